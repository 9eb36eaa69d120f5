package httpapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/syssam/keel"
	"github.com/syssam/keel/action"
	"github.com/syssam/keel/object"
	"github.com/syssam/keel/schema"
	"github.com/syssam/keel/value"
)

// maxPayloadBytes is the wire protocol's in-memory body cap; a larger
// payload yields internal_server_error("Memory overflow") rather than
// letting an unbounded request body exhaust process memory.
const maxPayloadBytes = 262_144

func (s *Server) handleAction(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	model, ok := s.graph.ModelByURLSegment(chi.URLParam(r, "model"))
	if !ok {
		s.writeError(w, keel.New(keel.KindDestinationNotFound, "no such model %q", chi.URLParam(r, "model")))
		return
	}
	handler := schema.Handler(chi.URLParam(r, "handler"))

	initiator, err := s.authenticate(ctx, r)
	if err != nil {
		s.writeError(w, err)
		return
	}

	body, err := s.decodeBody(r)
	if err != nil {
		s.writeError(w, err)
		return
	}

	resp, err := s.dispatcher.Dispatch(ctx, &action.Request{
		Model:     model,
		Handler:   handler,
		Initiator: initiator,
		Body:      body,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeResponse(w, resp)
}

// decodeBody reads and JSON-decodes r's body, capped at maxPayloadBytes.
// An empty body decodes as an empty object, matching the wire protocol's
// "body is a JSON object" with no distinct empty-payload case.
func (s *Server) decodeBody(r *http.Request) (map[string]any, error) {
	limited := io.LimitReader(r.Body, maxPayloadBytes+1)
	raw, err := io.ReadAll(limited)
	if err != nil {
		return nil, keel.Wrap(keel.KindInternalServerError, err, "httpapi: reading request body")
	}
	if len(raw) > maxPayloadBytes {
		return nil, keel.New(keel.KindInternalServerError, "Memory overflow")
	}
	if len(strings.TrimSpace(string(raw))) == 0 {
		return map[string]any{}, nil
	}
	var body map[string]any
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, keel.New(keel.KindIncorrectJSONFormat, "httpapi: %v", err)
	}
	return body, nil
}

// authenticate parses the Authorization header into an Initiator: a
// missing header (or no bound verifier) yields anonymous, a header that
// is not "Bearer <token>" yields invalid_authorization_format, and a
// token the verifier rejects yields the verifier's error.
func (s *Server) authenticate(ctx context.Context, r *http.Request) (object.Initiator, error) {
	header := r.Header.Get("Authorization")
	if header == "" || s.verifier == nil {
		return object.Anonymous(), nil
	}
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return object.Initiator{}, keel.New(keel.KindInvalidAuthorizationFormat, "httpapi: Authorization header must be \"Bearer <token>\"")
	}
	raw := strings.TrimPrefix(header, prefix)

	model, idValue, err := s.verifier.Verify(ctx, raw)
	if err != nil {
		return object.Initiator{}, err
	}
	pk := model.PrimaryFields()
	if len(pk) != 1 {
		return object.Initiator{}, keel.New(keel.KindInternalServerError, "httpapi: model %s must have a single-field primary key to authenticate", model.Name)
	}
	where := value.NewMap()
	where.Set(pk[0].Name, idValue)

	identity, err := s.conn.FindUnique(ctx, model, where, nil)
	if err != nil {
		return object.Initiator{}, err
	}
	if identity == nil {
		return object.Initiator{}, keel.New(keel.KindInvalidAuthToken, "httpapi: token identity no longer exists")
	}
	return object.WithIdentity(identity), nil
}
