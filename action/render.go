package action

import (
	"github.com/syssam/keel/decoder"
	"github.com/syssam/keel/object"
)

// buildProjectionForRender converts a decoded request's select/include
// clauses into the *object.Projection engine.Render expects. This mirrors
// package engine's own (unexported) buildProjection rather than reusing
// it, since that helper is private to engine.
func buildProjectionForRender(req *decoder.Request) *object.Projection {
	return projectionFrom(req.Select, req.Include)
}

func projectionFrom(sel map[string]bool, include map[string]*decoder.IncludeClause) *object.Projection {
	if sel == nil && include == nil {
		return nil
	}
	proj := &object.Projection{Select: sel}
	if len(include) > 0 {
		proj.Include = make(map[string]*object.Projection, len(include))
		for name, clause := range include {
			proj.Include[name] = projectionFrom(clause.Select, clause.Include)
		}
	}
	return proj
}
