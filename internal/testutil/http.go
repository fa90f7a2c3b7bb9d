package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/brigadetools/paradebook/internal/app/system/authz"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// WithChiURLParam adds a chi URL parameter to the request context.
// Use this in handler tests that call handlers directly instead of going
// through a router.
func WithChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// OfficerActor returns a fresh actor holding the officer role.
func OfficerActor() authz.Actor {
	return authz.Actor{UserID: primitive.NewObjectID(), Email: "officer@test.com", Role: authz.Officer}
}

// CaptainActor returns a fresh actor holding the captain role.
func CaptainActor() authz.Actor {
	return authz.Actor{UserID: primitive.NewObjectID(), Email: "captain@test.com", Role: authz.Captain}
}

// AdminActor returns a fresh actor holding the admin role.
func AdminActor() authz.Actor {
	return authz.Actor{UserID: primitive.NewObjectID(), Email: "admin@test.com", Role: authz.Admin}
}

// JSONRequest builds a request with body marshaled as JSON. A nil body
// produces an empty-body request.
func JSONRequest(t *testing.T, method, target string, body any) *http.Request {
	t.Helper()

	if body == nil {
		return httptest.NewRequest(method, target, nil)
	}
	buf, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal request body: %v", err)
	}
	req := httptest.NewRequest(method, target, bytes.NewReader(buf))
	req.Header.Set("Content-Type", "application/json")
	return req
}

// ActorRequest builds a JSON request carrying the given actor, as if it had
// passed through the role resolver middleware.
func ActorRequest(t *testing.T, method, target string, actor authz.Actor, body any) *http.Request {
	t.Helper()
	return authz.WithActor(JSONRequest(t, method, target, body), actor)
}

// DecodeBody unmarshals a recorded JSON response body into dst.
func DecodeBody(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), dst); err != nil {
		t.Fatalf("decode response body %q: %v", rec.Body.String(), err)
	}
}
