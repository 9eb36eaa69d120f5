package pipeline

// Item is one step of a Pipeline. It returns a (possibly rebound) Ctx to
// continue with, or an error to stop the pipeline. Items are pure over
// their ctx except at explicit I/O points (Custom callbacks, QueryRaw):
// this is what lets `when`/`any`/`else` branch on an item's outcome
// without needing to unwind any side effect.
type Item interface {
	Run(ctx Ctx) (Ctx, error)
}

// ItemFunc adapts a plain function to Item.
type ItemFunc func(ctx Ctx) (Ctx, error)

// Run implements Item.
func (f ItemFunc) Run(ctx Ctx) (Ctx, error) { return f(ctx) }

// Pipeline is a finite, ordered sequence of Items. It is itself an Item,
// so pipelines compose: a sub-pipeline embedded in `when`/`any`/`validate`
// runs exactly like a top-level one.
type Pipeline struct {
	Items []Item
}

// New builds a Pipeline from the given items, in order.
func New(items ...Item) *Pipeline {
	return &Pipeline{Items: items}
}

// Run executes every item in order, threading ctx through each. It stops
// and returns the first error encountered.
func (p *Pipeline) Run(ctx Ctx) (Ctx, error) {
	if p == nil {
		return ctx, nil
	}
	cur := ctx
	for _, item := range p.Items {
		next, err := item.Run(cur)
		if err != nil {
			return cur, err
		}
		cur = next
	}
	return cur, nil
}

// Append returns a new Pipeline with items appended after p's own items.
func (p *Pipeline) Append(items ...Item) *Pipeline {
	if p == nil {
		return New(items...)
	}
	out := make([]Item, 0, len(p.Items)+len(items))
	out = append(out, p.Items...)
	out = append(out, items...)
	return &Pipeline{Items: out}
}
