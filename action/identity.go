package action

import (
	"context"

	"github.com/syssam/keel"
	"github.com/syssam/keel/decoder"
	"github.com/syssam/keel/pipeline"
	"github.com/syssam/keel/schema"
	"github.com/syssam/keel/value"
)

// handleSignIn loads the identity matching the submitted identity key,
// runs the auth-by field's identity-checker pipeline against the
// submitted value, and on success issues a signed token carrying the
// identity's id and model name.
func (d *Dispatcher) handleSignIn(ctx context.Context, req *Request, decoded *decoder.Request) (*Response, error) {
	if decoded.Credentials == nil {
		return nil, keel.New(keel.KindMissingRequiredInput, "signIn requires credentials").AtPath("credentials")
	}
	identityKey, byKey, err := signInKeys(req.Model, decoded.Credentials)
	if err != nil {
		return nil, err
	}

	identityValue, _ := decoded.Credentials.Get(identityKey)
	where := value.NewMap()
	where.Set(identityKey, identityValue)
	identityObj, err := d.conn.FindUnique(ctx, req.Model, where, nil)
	if err != nil {
		return nil, err
	}
	if identityObj == nil {
		return nil, keel.ValidationError("credentials."+identityKey, "no matching identity")
	}

	byField, ok := req.Model.Field(byKey)
	if !ok {
		return nil, keel.New(keel.KindInternalServerError, "action: auth-by field %q not found", byKey)
	}
	submitted, _ := decoded.Credentials.Get(byKey)
	checkerCtx := pipeline.Ctx{
		Context:  ctx,
		Value:    submitted,
		Object:   identityObj,
		Path:     value.Path{}.Key("credentials").Key(byKey),
		Action:   pipeline.ActionSignIn,
		Position: pipeline.PositionIdentity,
		Conn:     d.conn,
	}
	if _, err := byField.IdentityChecker.Run(checkerCtx); err != nil {
		return nil, keel.ValidationError("credentials."+byKey, "credential does not match")
	}

	if d.issuer == nil {
		return nil, keel.New(keel.KindInternalServerError, "action: no token issuer configured")
	}
	token, err := d.issuer.Issue(ctx, identityObj)
	if err != nil {
		return nil, err
	}

	rendered, err := d.render(ctx, identityObj, decoded)
	if err != nil {
		return nil, err
	}
	return &Response{Data: rendered, Meta: &Meta{Token: token}}, nil
}

// handleIdentity returns the authenticated identity bound to req's
// Initiator, or null data when the request is anonymous.
func (d *Dispatcher) handleIdentity(ctx context.Context, req *Request, decoded *decoder.Request) (*Response, error) {
	if req.Initiator.Identity == nil {
		return &Response{Data: value.Null{}}, nil
	}
	rendered, err := d.render(ctx, req.Initiator.Identity, decoded)
	if err != nil {
		return nil, err
	}
	return &Response{Data: rendered}, nil
}

// signInKeys validates that credentials carries exactly one auth-identity
// key and exactly one auth-by key, per the sign_in request contract.
func signInKeys(model *schema.Model, credentials *value.Map) (identityKey, byKey string, err error) {
	identitySet := make(map[string]bool, len(model.AuthIdentityKeys))
	for _, k := range model.AuthIdentityKeys {
		identitySet[k] = true
	}
	bySet := make(map[string]bool, len(model.AuthByKeys))
	for _, k := range model.AuthByKeys {
		bySet[k] = true
	}
	identityCount, byCount := 0, 0
	for _, k := range credentials.Keys() {
		switch {
		case identitySet[k]:
			identityKey = k
			identityCount++
		case bySet[k]:
			byKey = k
			byCount++
		}
	}
	if identityCount != 1 || byCount != 1 {
		return "", "", keel.New(keel.KindMissingRequiredInput, "credentials must contain exactly one identity key and one auth-by key").AtPath("credentials")
	}
	return identityKey, byKey, nil
}
