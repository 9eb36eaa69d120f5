package identity

import (
	"golang.org/x/crypto/bcrypt"

	"github.com/syssam/keel"
	"github.com/syssam/keel/pipeline"
	"github.com/syssam/keel/value"
)

// PasswordChecker is the pipeline.Item bound as an auth-by field's
// IdentityChecker: it bcrypt-compares ctx.Value (the submitted password)
// against the stored hash at the same field on ctx.Object. It is not
// registered under a name in any pipeline.Registry; schema authors bind
// it directly as the field's IdentityChecker.
var PasswordChecker pipeline.Item = pipeline.ItemFunc(checkPassword)

func checkPassword(ctx pipeline.Ctx) (pipeline.Ctx, error) {
	submitted, ok := ctx.Value.(value.String)
	if !ok {
		return ctx, keel.New(keel.KindUnexpectedInputType, "identity: password must be a string")
	}
	if ctx.Object == nil {
		return ctx, keel.New(keel.KindInternalServerError, "identity: password checker requires a bound object")
	}
	field := ctx.Path.Last()
	stored, ok := ctx.Object.Get(field)
	if !ok {
		return ctx, keel.ValidationError(field, "credential does not match")
	}
	hash, ok := stored.(value.String)
	if !ok {
		return ctx, keel.New(keel.KindInternalServerError, "identity: stored password hash is not a string")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(submitted)); err != nil {
		return ctx, keel.ValidationError(field, "credential does not match")
	}
	return ctx, nil
}

// HashPassword bcrypt-hashes plaintext at the default cost.
func HashPassword(plaintext string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), bcrypt.DefaultCost)
	if err != nil {
		return "", keel.Wrap(keel.KindInternalServerError, err, "identity: hashing password")
	}
	return string(hash), nil
}

// HashOnSet is an onSet pipeline item for a password field: it replaces
// the submitted plaintext with its bcrypt hash before the value is ever
// stored on the object.
var HashOnSet pipeline.Item = pipeline.ItemFunc(hashOnSet)

func hashOnSet(ctx pipeline.Ctx) (pipeline.Ctx, error) {
	plaintext, ok := ctx.Value.(value.String)
	if !ok {
		return ctx, keel.New(keel.KindUnexpectedInputType, "identity: password must be a string")
	}
	hash, err := HashPassword(string(plaintext))
	if err != nil {
		return ctx, err
	}
	return ctx.WithValue(value.String(hash)), nil
}
