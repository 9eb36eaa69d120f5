package engine

import (
	"github.com/syssam/keel/connection"
	"github.com/syssam/keel/decoder"
	"github.com/syssam/keel/object"
)

// buildProjection converts a decoded select/include clause pair into an
// *object.Projection, recursing through nested include clauses so a
// three-level-deep include carries its own nested select/include down to
// ToJSONSelected.
func buildProjection(sel map[string]bool, include map[string]*decoder.IncludeClause) *object.Projection {
	if sel == nil && include == nil {
		return nil
	}
	proj := &object.Projection{Select: sel}
	if len(include) > 0 {
		proj.Include = make(map[string]*object.Projection, len(include))
		for name, clause := range include {
			proj.Include[name] = buildProjection(clause.Select, clause.Include)
		}
	}
	return proj
}

// buildFinder converts a decoded request's filter/order/paging clauses
// into a connection.Finder.
func buildFinder(req *decoder.Request) *connection.Finder {
	f := connection.NewFinder()
	f.Where = req.Where
	f.Cursor = req.Cursor
	f.Take = req.Take
	f.Skip = req.Skip
	if req.PageSize > 0 {
		f.Take = req.PageSize
		if req.PageNumber > 1 {
			f.Skip = (req.PageNumber - 1) * req.PageSize
		}
	}
	f.Distinct = req.Distinct
	f.Select = buildProjection(req.Select, req.Include)
	for _, term := range req.OrderBy {
		f.OrderBy = append(f.OrderBy, connection.OrderTerm{Field: term.Field, Desc: term.Desc})
	}
	return f
}

// finderFromInclude converts one nested include clause into the Finder
// the connection uses to eagerly load that relation.
func finderFromInclude(clause *decoder.IncludeClause) *connection.Finder {
	f := connection.NewFinder()
	f.Where = clause.Where
	f.Take = clause.Take
	f.Skip = clause.Skip
	f.Select = buildProjection(clause.Select, clause.Include)
	for _, term := range clause.OrderBy {
		f.OrderBy = append(f.OrderBy, connection.OrderTerm{Field: term.Field, Desc: term.Desc})
	}
	return f
}
