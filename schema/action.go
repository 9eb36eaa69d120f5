package schema

import "github.com/syssam/keel/pipeline"

// Verb is the mutation/query family an Action performs.
type Verb uint8

const (
	VerbFind Verb = iota
	VerbCreate
	VerbUpdate
	VerbUpsert
	VerbDelete
	VerbIdentity
	VerbSignIn
	VerbCount
	VerbAggregate
	VerbGroupBy
)

// Cardinality is how many objects an Action touches.
type Cardinality uint8

const (
	CardinalitySingle Cardinality = iota
	CardinalityMany
)

// EntryKind distinguishes a top-level request action from a nested
// relation-walker action (e.g. the implicit `update` the walker issues
// while cascading into a nested `update` operand).
type EntryKind uint8

const (
	EntryKindEntry EntryKind = iota
	EntryKindNested
)

// Action is the packed triple (Verb, Cardinality, EntryKind) carried by
// every engine call.
type Action struct {
	Verb        Verb
	Cardinality Cardinality
	Entry       EntryKind
}

// Tag converts Action to the pipeline package's ActionTag, used by the
// `when(actions, pipeline)` conditional composer. Kept as a method
// (rather than a pipeline dependency on this package) to avoid a
// schema<->pipeline import cycle.
func (a Action) Tag() pipeline.ActionTag {
	switch a.Verb {
	case VerbCreate:
		return pipeline.ActionCreate
	case VerbUpdate:
		return pipeline.ActionUpdate
	case VerbUpsert:
		return pipeline.ActionUpsert
	case VerbDelete:
		return pipeline.ActionDelete
	case VerbIdentity:
		return pipeline.ActionIdentity
	case VerbSignIn:
		return pipeline.ActionSignIn
	case VerbCount:
		return pipeline.ActionCount
	case VerbAggregate:
		return pipeline.ActionAggregate
	case VerbGroupBy:
		return pipeline.ActionGroupBy
	default:
		return pipeline.ActionFind
	}
}

// Handler is the fixed, externally-named set of handlers the wire
// protocol exposes, per spec.md §6.
type Handler string

const (
	HandlerFindUnique  Handler = "findUnique"
	HandlerFindFirst   Handler = "findFirst"
	HandlerFindMany    Handler = "findMany"
	HandlerCreate      Handler = "create"
	HandlerUpdate      Handler = "update"
	HandlerUpsert      Handler = "upsert"
	HandlerDelete      Handler = "delete"
	HandlerCreateMany  Handler = "createMany"
	HandlerUpdateMany  Handler = "updateMany"
	HandlerDeleteMany  Handler = "deleteMany"
	HandlerCount       Handler = "count"
	HandlerAggregate   Handler = "aggregate"
	HandlerGroupBy     Handler = "groupBy"
	HandlerSignIn      Handler = "signIn"
	HandlerIdentity    Handler = "identity"
)

// handlerActions maps each fixed Handler to the Action it performs; it
// backs ActionFor.
var handlerActions = map[Handler]Action{
	HandlerFindUnique: {Verb: VerbFind, Cardinality: CardinalitySingle},
	HandlerFindFirst:  {Verb: VerbFind, Cardinality: CardinalitySingle},
	HandlerFindMany:   {Verb: VerbFind, Cardinality: CardinalityMany},
	HandlerCreate:     {Verb: VerbCreate, Cardinality: CardinalitySingle},
	HandlerUpdate:     {Verb: VerbUpdate, Cardinality: CardinalitySingle},
	HandlerUpsert:     {Verb: VerbUpsert, Cardinality: CardinalitySingle},
	HandlerDelete:     {Verb: VerbDelete, Cardinality: CardinalitySingle},
	HandlerCreateMany: {Verb: VerbCreate, Cardinality: CardinalityMany},
	HandlerUpdateMany: {Verb: VerbUpdate, Cardinality: CardinalityMany},
	HandlerDeleteMany: {Verb: VerbDelete, Cardinality: CardinalityMany},
	HandlerCount:      {Verb: VerbCount, Cardinality: CardinalityMany},
	HandlerAggregate:  {Verb: VerbAggregate, Cardinality: CardinalityMany},
	HandlerGroupBy:    {Verb: VerbGroupBy, Cardinality: CardinalityMany},
	HandlerSignIn:     {Verb: VerbSignIn, Cardinality: CardinalitySingle},
	HandlerIdentity:   {Verb: VerbIdentity, Cardinality: CardinalitySingle},
}

// ActionFor returns the Action a fixed Handler performs, and whether h is
// a recognized handler name at all.
func ActionFor(h Handler) (Action, bool) {
	a, ok := handlerActions[h]
	return a, ok
}
