// Package object implements the per-request runtime handle the engine
// binds to a model and a value map: Object. Every read/write call the
// engine makes threads an Initiator through it for read/write-rule
// evaluation, and every mutation is staged here before a transaction
// commits it through a connection.Connection.
package object

// InitiatorKind distinguishes the three possible origins of an engine
// call, per spec.md §3's Initiator variant.
type InitiatorKind uint8

const (
	// InitiatorIdentity: the call originates from an authenticated
	// identity object (or an anonymous request, when Identity is nil).
	InitiatorIdentity InitiatorKind = iota
	// InitiatorProgramCode: the call originates from host application
	// code calling the engine directly, bypassing HTTP/identity entirely.
	InitiatorProgramCode
	// InitiatorInternal: the call originates from the engine itself (a
	// relation walker cascade, a test-mode reset); read/write-rule gates
	// are bypassed for internal calls.
	InitiatorInternal
)

// Initiator is the origin of an engine call, threaded through every
// read/write operation so that read-rule/write-rule pipelines (and
// can-read/can-mutate custom validators) can decide field visibility and
// mutability per spec.md §4.7.
type Initiator struct {
	Kind     InitiatorKind
	Identity *Object // non-nil only when Kind == InitiatorIdentity and the request is authenticated
}

// Anonymous returns an Identity-kind Initiator representing an
// unauthenticated request (missing Authorization header).
func Anonymous() Initiator { return Initiator{Kind: InitiatorIdentity} }

// WithIdentity returns an Identity-kind Initiator for an authenticated
// identity object.
func WithIdentity(identity *Object) Initiator {
	return Initiator{Kind: InitiatorIdentity, Identity: identity}
}

// ProgramCode returns a ProgramCode-kind Initiator.
func ProgramCode() Initiator { return Initiator{Kind: InitiatorProgramCode} }

// Internal returns an Internal-kind Initiator, used by the relation
// walker and test-mode reset hook.
func Internal() Initiator { return Initiator{Kind: InitiatorInternal} }

// IsAnonymous reports whether this is an unauthenticated identity call.
func (i Initiator) IsAnonymous() bool {
	return i.Kind == InitiatorIdentity && i.Identity == nil
}

// Bypasses reports whether this Initiator bypasses read/write-rule gates
// entirely, which is true only for internal engine-originated calls.
func (i Initiator) Bypasses() bool {
	return i.Kind == InitiatorInternal
}
