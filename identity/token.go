// Package identity implements the engine's authentication primitives:
// signed identity tokens (via lestrrat-go/jwx/v2) and the bcrypt-based
// auth-by password checker (via golang.org/x/crypto/bcrypt), both wired
// into package action through small structurally-satisfied interfaces so
// that neither package imports the other directly.
package identity

import (
	"context"
	"fmt"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/lestrrat-go/jwx/v2/jwt"

	"github.com/syssam/keel"
	"github.com/syssam/keel/object"
	"github.com/syssam/keel/schema"
	"github.com/syssam/keel/value"
)

// Token signs and verifies the identity JWT described in §6: a claim set
// of exactly {id, model, exp}, HMAC-signed with a single shared secret.
// A single Token instance serves every model in the graph — model name
// is carried in the claim set, not in the signing key.
type Token struct {
	graph *schema.Graph
	key   jwk.Key
	ttl   time.Duration
}

// NewToken builds a Token signing with secret and issuing tokens valid
// for ttl.
func NewToken(graph *schema.Graph, secret []byte, ttl time.Duration) (*Token, error) {
	key, err := jwk.FromRaw(secret)
	if err != nil {
		return nil, keel.Wrap(keel.KindInternalServerError, err, "identity: building signing key")
	}
	if err := key.Set(jwk.AlgorithmKey, jwa.HS256); err != nil {
		return nil, keel.Wrap(keel.KindInternalServerError, err, "identity: configuring signing key")
	}
	return &Token{graph: graph, key: key, ttl: ttl}, nil
}

// Issue signs a token for identity, satisfying action.TokenIssuer.
func (t *Token) Issue(ctx context.Context, identity *object.Object) (string, error) {
	pk := identity.Model().PrimaryFields()
	if len(pk) != 1 {
		return "", keel.New(keel.KindInternalServerError, "identity: model %s must have a single-field primary key to sign in", identity.Model().Name)
	}
	idValue, ok := identity.Get(pk[0].Name)
	if !ok {
		return "", keel.New(keel.KindInternalServerError, "identity: identity object missing its own primary key")
	}

	builder := jwt.NewBuilder().
		Claim("id", claimValue(idValue)).
		Claim("model", identity.Model().Name).
		Expiration(time.Now().Add(t.ttl))
	tok, err := builder.Build()
	if err != nil {
		return "", keel.Wrap(keel.KindInternalServerError, err, "identity: building token claims")
	}
	signed, err := jwt.Sign(tok, jwt.WithKey(jwa.HS256, t.key))
	if err != nil {
		return "", keel.Wrap(keel.KindInternalServerError, err, "identity: signing token")
	}
	return string(signed), nil
}

// Verify parses and validates raw (already stripped of its "Bearer "
// prefix), returning the identity model it claims and the primary-key
// value to look the identity row up by. An expired, malformed, or
// badly-signed token yields invalid_auth_token; a token naming a model
// absent from the graph yields wrong_identity_model.
func (t *Token) Verify(ctx context.Context, raw string) (model *schema.Model, idValue value.Value, err error) {
	tok, err := jwt.Parse([]byte(raw), jwt.WithKey(jwa.HS256, t.key))
	if err != nil {
		return nil, nil, keel.New(keel.KindInvalidAuthToken, "identity: %v", err)
	}
	modelName, ok := tok.Get("model")
	if !ok {
		return nil, nil, keel.New(keel.KindInvalidAuthToken, "identity: token missing model claim")
	}
	modelStr, ok := modelName.(string)
	if !ok {
		return nil, nil, keel.New(keel.KindInvalidAuthToken, "identity: token model claim is not a string")
	}
	m, ok := t.graph.Model(modelStr)
	if !ok {
		return nil, nil, keel.New(keel.KindWrongIdentityModel, "identity: token names unknown model %q", modelStr)
	}
	idClaim, ok := tok.Get("id")
	if !ok {
		return nil, nil, keel.New(keel.KindInvalidAuthToken, "identity: token missing id claim")
	}
	pk := m.PrimaryFields()
	if len(pk) != 1 {
		return nil, nil, keel.New(keel.KindInternalServerError, "identity: model %s must have a single-field primary key to sign in", m.Name)
	}
	v, err := valueFromClaim(pk[0], idClaim)
	if err != nil {
		return nil, nil, keel.New(keel.KindInvalidAuthToken, "identity: %v", err)
	}
	return m, v, nil
}

// claimValue converts a primary-key Value into the plain Go type the JWT
// library marshals as a JSON claim.
func claimValue(v value.Value) any {
	switch v := v.(type) {
	case value.Int64:
		return int64(v)
	case value.Int32:
		return int32(v)
	case value.String:
		return string(v)
	case value.ObjectID:
		return v.String()
	default:
		return fmt.Sprintf("%v", v)
	}
}

// valueFromClaim converts a decoded JWT claim back into the Value kind
// field's declared type expects.
func valueFromClaim(field *schema.Field, claim any) (value.Value, error) {
	switch field.Type.Kind {
	case value.KindInt64:
		switch n := claim.(type) {
		case float64:
			return value.Int64(int64(n)), nil
		case int64:
			return value.Int64(n), nil
		}
		return nil, fmt.Errorf("id claim is not numeric")
	case value.KindInt32:
		switch n := claim.(type) {
		case float64:
			return value.Int32(int32(n)), nil
		case int32:
			return value.Int32(n), nil
		}
		return nil, fmt.Errorf("id claim is not numeric")
	case value.KindString:
		s, ok := claim.(string)
		if !ok {
			return nil, fmt.Errorf("id claim is not a string")
		}
		return value.String(s), nil
	default:
		return nil, fmt.Errorf("unsupported identity primary key kind %s", field.Type.Kind)
	}
}
