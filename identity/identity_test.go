package identity_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/keel/identity"
	"github.com/syssam/keel/object"
	"github.com/syssam/keel/pipeline"
	"github.com/syssam/keel/schema"
	"github.com/syssam/keel/value"
)

func userGraph(t *testing.T) *schema.Graph {
	t.Helper()
	g := schema.NewGraph()
	g.AddModel(&schema.Model{
		Name: "User",
		Fields: []*schema.Field{
			{Name: "id", Type: schema.FieldType{Kind: value.KindInt64}, Primary: true, Auto: true, AutoIncrement: true},
			{Name: "email", Type: schema.FieldType{Kind: value.KindString}},
		},
		Indexes: []*schema.Index{{Kind: schema.IndexPrimary, Fields: []string{"id"}}},
	})
	require.NoError(t, g.Finalize())
	return g
}

func TestTokenIssueAndVerifyRoundTrip(t *testing.T) {
	t.Parallel()
	g := userGraph(t)
	tok, err := identity.NewToken(g, []byte("test-secret"), time.Hour)
	require.NoError(t, err)

	userModel, _ := g.Model("User")
	u := object.New(userModel, object.ProgramCode(), pipeline.ActionCreate, nil)
	require.NoError(t, u.Set(context.Background(), "id", value.Int64(42)))

	signed, err := tok.Issue(context.Background(), u)
	require.NoError(t, err)
	assert.NotEmpty(t, signed)

	model, idValue, err := tok.Verify(context.Background(), signed)
	require.NoError(t, err)
	assert.Equal(t, "User", model.Name)
	assert.Equal(t, value.Int64(42), idValue)
}

func TestTokenVerifyRejectsTamperedSignature(t *testing.T) {
	t.Parallel()
	g := userGraph(t)
	tok, err := identity.NewToken(g, []byte("test-secret"), time.Hour)
	require.NoError(t, err)

	other, err := identity.NewToken(g, []byte("different-secret"), time.Hour)
	require.NoError(t, err)

	userModel, _ := g.Model("User")
	u := object.New(userModel, object.ProgramCode(), pipeline.ActionCreate, nil)
	require.NoError(t, u.Set(context.Background(), "id", value.Int64(1)))

	signed, err := other.Issue(context.Background(), u)
	require.NoError(t, err)

	_, _, err = tok.Verify(context.Background(), signed)
	assert.Error(t, err)
}

func TestPasswordCheckerAcceptsCorrectPassword(t *testing.T) {
	t.Parallel()
	hash, err := identity.HashPassword("s3cret")
	require.NoError(t, err)

	g := userGraph(t)
	userModel, _ := g.Model("User")
	u := object.New(userModel, object.ProgramCode(), pipeline.ActionCreate, nil)

	ctx := pipeline.Ctx{
		Context: context.Background(),
		Value:   value.String("s3cret"),
		Object:  withStoredHash{u, hash},
		Path:    value.Path{}.Key("password"),
	}
	_, err = identity.PasswordChecker.Run(ctx)
	assert.NoError(t, err)

	ctx.Value = value.String("wrong")
	_, err = identity.PasswordChecker.Run(ctx)
	assert.Error(t, err)
}

// withStoredHash stubs a bound object whose "password" field always
// reads back a fixed hash, without needing a password field declared in
// the schema graph.
type withStoredHash struct {
	*object.Object
	hash string
}

func (w withStoredHash) Get(key string) (value.Value, bool) {
	if key == "password" {
		return value.String(w.hash), true
	}
	return w.Object.Get(key)
}

func (w withStoredHash) GetPreviousValue(key string) (value.Value, bool) {
	return w.Object.GetPreviousValue(key)
}

func (w withStoredHash) ModelName() string { return w.Object.ModelName() }
