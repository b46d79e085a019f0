package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"

	"github.com/lzjever/mbos-wsa/internal/core"
)

func TestRequestID_GeneratesAndEchoes(t *testing.T) {
	var seen string
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r)
	}))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest("GET", "/", nil))
	if seen == "" || w.Header().Get(RequestIDHeader) != seen {
		t.Errorf("generated id %q, header %q", seen, w.Header().Get(RequestIDHeader))
	}

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set(RequestIDHeader, "req-1")
	h.ServeHTTP(httptest.NewRecorder(), req)
	if seen != "req-1" {
		t.Errorf("expected caller id to be kept, got %q", seen)
	}
}

func TestIdentify(t *testing.T) {
	var got Actor
	h := Identify(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = GetActor(r)
	}))
	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set(ActorHeader, "alice")
	req.Header.Set(ActorRolesHeader, "admin, template-admin")
	h.ServeHTTP(httptest.NewRecorder(), req)

	if got.Name != "alice" || len(got.Roles) != 2 || got.Roles[1] != "template-admin" {
		t.Errorf("actor %+v", got)
	}
}

func TestRecoverer(t *testing.T) {
	h := Recoverer(zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest("GET", "/", nil))

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status %d", w.Code)
	}
	var resp core.ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Code != core.ErrInternal {
		t.Errorf("code %s", resp.Code)
	}
}
