// Package action is the Action Dispatcher: the per-handler orchestrators
// (handle_find_*, handle_create*, handle_update*, handle_upsert,
// handle_delete*, handle_sign_in, handle_identity) that compose decoding,
// an optional per-model transformer, an engine call, and response
// shaping. It has no HTTP dependency of its own — it consumes a decoded
// request envelope and produces a result envelope, leaving HTTP framing
// entirely to package httpapi.
package action

import (
	"context"

	"github.com/syssam/keel"
	"github.com/syssam/keel/connection"
	"github.com/syssam/keel/decoder"
	"github.com/syssam/keel/engine"
	"github.com/syssam/keel/object"
	"github.com/syssam/keel/schema"
)

// TokenIssuer signs a token claim for a just-authenticated identity. It is
// implemented by package identity; action depends on it only through this
// small interface to keep identity downstream of action in the package
// dependency graph.
type TokenIssuer interface {
	Issue(ctx context.Context, identity *object.Object) (string, error)
}

// TestModeResetter is the optional after-each purge-and-reseed hook
// described by the Connection component's "used only by test-mode
// reset" note. It is implemented by package testmode; action depends on
// it only through this interface for the same reason it depends on
// TokenIssuer through one: testmode stays downstream of action in the
// package dependency graph.
type TestModeResetter interface {
	Reset(ctx context.Context, conn connection.Connection) error
}

// Dispatcher binds the pieces a request needs end to end: the schema
// graph, the storage connection, the query/mutation engine, the request
// decoder, and (optionally) a token issuer for sign_in.
type Dispatcher struct {
	graph   *schema.Graph
	conn    connection.Connection
	engine  *engine.Engine
	decoder *decoder.Decoder
	issuer  TokenIssuer
	reset   TestModeResetter

	transformers map[transformerKey]Transformer
}

type transformerKey struct {
	model   string
	handler schema.Handler
}

// Transformer rewrites a decoded request before the engine sees it — the
// hook a model uses to, for instance, apply createMany's per-entry
// transform to each element of a create list.
type Transformer func(ctx context.Context, req *decoder.Request) error

// New returns a Dispatcher bound to graph and conn, with its own engine
// and decoder.
func New(graph *schema.Graph, conn connection.Connection) *Dispatcher {
	return &Dispatcher{
		graph:        graph,
		conn:         conn,
		engine:       engine.New(graph),
		decoder:      decoder.New(graph),
		transformers: make(map[transformerKey]Transformer),
	}
}

// WithIssuer sets the TokenIssuer used by HandleSignIn, returning d for
// chaining.
func (d *Dispatcher) WithIssuer(issuer TokenIssuer) *Dispatcher {
	d.issuer = issuer
	return d
}

// WithTestModeResetter binds the optional after-each purge-and-reseed
// hook: once set, every Dispatch call resets the graph through r after
// the handler runs, success or failure. Host applications bind this only
// in a test environment, never in production.
func (d *Dispatcher) WithTestModeResetter(r TestModeResetter) *Dispatcher {
	d.reset = r
	return d
}

// RegisterTransformer installs a per-model, per-handler request
// transformer, run after decoding and before the engine call.
func (d *Dispatcher) RegisterTransformer(model string, handler schema.Handler, t Transformer) {
	d.transformers[transformerKey{model, handler}] = t
}

// Request is the decoded-envelope-plus-routing-metadata a caller (package
// httpapi, or a direct in-process caller) hands the dispatcher.
type Request struct {
	Model     *schema.Model
	Handler   schema.Handler
	Initiator object.Initiator
	Body      map[string]any
}

// Meta carries the response's `meta` object, per §6's three response
// shapes: many responses carry Count (and NumberOfPages when the request
// paginated by pageSize), sign_in carries Token.
type Meta struct {
	Count         *int64
	NumberOfPages *int64
	Token         string
}

// Response is the dispatcher's result envelope, shaped by package httpapi
// into the wire JSON of §6.
type Response struct {
	Data any
	Meta *Meta
}

// Dispatch validates that req.Model exposes req.Handler, decodes req.Body,
// runs any registered transformer, executes the handler, and shapes the
// result. Every error returned is a *keel.Error suitable for direct
// conversion to the canonical error envelope.
func (d *Dispatcher) Dispatch(ctx context.Context, req *Request) (*Response, error) {
	if d.reset != nil {
		defer func() {
			_ = d.reset.Reset(ctx, d.conn)
		}()
	}

	if !req.Model.HasAction(req.Handler) {
		return nil, keel.New(keel.KindDestinationNotFound, "model %s has no %s action", req.Model.Name, req.Handler)
	}

	decoded, err := d.decoder.Decode(req.Model, req.Handler, req.Body)
	if err != nil {
		return nil, err
	}

	if t, ok := d.transformers[transformerKey{req.Model.Name, req.Handler}]; ok {
		if err := t(ctx, decoded); err != nil {
			return nil, err
		}
	}

	switch req.Handler {
	case schema.HandlerFindUnique:
		return d.handleFindUnique(ctx, req, decoded)
	case schema.HandlerFindFirst:
		return d.handleFindFirst(ctx, req, decoded)
	case schema.HandlerFindMany:
		return d.handleFindMany(ctx, req, decoded)
	case schema.HandlerCreate:
		return d.handleCreate(ctx, req, decoded)
	case schema.HandlerCreateMany:
		return d.handleCreateMany(ctx, req, decoded)
	case schema.HandlerUpdate:
		return d.handleUpdate(ctx, req, decoded)
	case schema.HandlerUpdateMany:
		return d.handleUpdateMany(ctx, req, decoded)
	case schema.HandlerUpsert:
		return d.handleUpsert(ctx, req, decoded)
	case schema.HandlerDelete:
		return d.handleDelete(ctx, req, decoded)
	case schema.HandlerDeleteMany:
		return d.handleDeleteMany(ctx, req, decoded)
	case schema.HandlerCount:
		return d.handleCount(ctx, req, decoded)
	case schema.HandlerAggregate:
		return d.handleAggregate(ctx, req, decoded)
	case schema.HandlerGroupBy:
		return d.handleGroupBy(ctx, req, decoded)
	case schema.HandlerSignIn:
		return d.handleSignIn(ctx, req, decoded)
	case schema.HandlerIdentity:
		return d.handleIdentity(ctx, req, decoded)
	default:
		return nil, keel.New(keel.KindDestinationNotFound, "unknown handler %q", req.Handler)
	}
}

func (d *Dispatcher) render(ctx context.Context, obj *object.Object, req *decoder.Request) (any, error) {
	if obj == nil {
		return nil, nil
	}
	proj := buildProjectionForRender(req)
	return d.engine.Render(ctx, d.conn, obj, proj, req.Include)
}
