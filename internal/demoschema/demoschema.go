// Package demoschema is keeld's bundled example graph: a small blog —
// User (the sign-in identity), Post, Category — wired the same way the
// teacher's own examples/shop builds its GraphQL resolver graph, just
// against this engine's schema shape instead of ent's. It exists so
// `cmd/keeld` has something to serve out of the box; a real deployment
// replaces this package with its own schema.Graph construction.
package demoschema

import (
	"github.com/syssam/keel/identity"
	"github.com/syssam/keel/pipeline"
	"github.com/syssam/keel/schema"
	"github.com/syssam/keel/value"
)

// Build returns the finalized demo graph.
func Build() (*schema.Graph, error) {
	g := schema.NewGraph()

	g.AddModel(&schema.Model{
		Name:             "User",
		AuthIdentityKeys: []string{"email"},
		AuthByKeys:       []string{"password"},
		Fields: []*schema.Field{
			{Name: "id", Type: schema.FieldType{Kind: value.KindInt64}, Primary: true, Auto: true, AutoIncrement: true},
			{Name: "email", Type: schema.FieldType{Kind: value.KindString}, IdentityIdentifier: true, Queryable: true},
			{
				Name:            "password",
				Type:            schema.FieldType{Kind: value.KindString},
				Read:            schema.ReadNoRead,
				OnSet:           pipeline.New(identity.HashOnSet),
				IdentityChecker: pipeline.New(identity.PasswordChecker),
			},
			{Name: "name", Type: schema.FieldType{Kind: value.KindString}, Optional: true, Queryable: true, Sortable: true},
		},
		Indexes: []*schema.Index{
			{Kind: schema.IndexPrimary, Fields: []string{"id"}},
			{Kind: schema.IndexUnique, Fields: []string{"email"}},
		},
	})

	g.AddModel(&schema.Model{
		Name: "Category",
		Fields: []*schema.Field{
			{Name: "id", Type: schema.FieldType{Kind: value.KindInt64}, Primary: true, Auto: true, AutoIncrement: true},
			{Name: "name", Type: schema.FieldType{Kind: value.KindString}, Queryable: true, Sortable: true},
		},
		Indexes: []*schema.Index{
			{Kind: schema.IndexPrimary, Fields: []string{"id"}},
			{Kind: schema.IndexUnique, Fields: []string{"name"}},
		},
		Relations: []*schema.Relation{
			{Name: "posts", Target: "Post", IsVec: true, Inverse: "category"},
		},
	})

	g.AddModel(&schema.Model{
		Name: "Post",
		Fields: []*schema.Field{
			{Name: "id", Type: schema.FieldType{Kind: value.KindInt64}, Primary: true, Auto: true, AutoIncrement: true},
			{Name: "title", Type: schema.FieldType{Kind: value.KindString}, Queryable: true, Sortable: true},
			{Name: "body", Type: schema.FieldType{Kind: value.KindString}, Optional: true},
			{Name: "authorId", Column: "author_id", Type: schema.FieldType{Kind: value.KindInt64}, ForeignKey: true, Queryable: true},
			{Name: "categoryId", Column: "category_id", Type: schema.FieldType{Kind: value.KindInt64}, Optional: true, ForeignKey: true, Queryable: true},
		},
		Indexes: []*schema.Index{
			{Kind: schema.IndexPrimary, Fields: []string{"id"}},
		},
		Relations: []*schema.Relation{
			{Name: "author", Target: "User", Fields: []string{"authorId"}, References: []string{"id"}, Delete: schema.DeleteRuleCascade},
			{Name: "category", Target: "Category", Fields: []string{"categoryId"}, References: []string{"id"}, Optional: true, Delete: schema.DeleteRuleSetNull},
		},
	})

	if err := g.Finalize(); err != nil {
		return nil, err
	}
	return g, nil
}
