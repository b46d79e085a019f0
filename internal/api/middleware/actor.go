package middleware

import (
	"context"
	"net/http"

	"github.com/lzjever/mbos-wsa/internal/core"
)

const (
	ActorHeader      = "X-Actor"
	ActorRolesHeader = "X-Actor-Roles"
)

// Actor is the caller a request acts on behalf of.
type Actor struct {
	Name  string   `json:"name"`
	Roles []string `json:"roles,omitempty"`
}

type ctxKeyActor struct{}

// Identify reads the actor headers into the request context. Authentication
// happens in front of this service.
func Identify(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		a := Actor{
			Name:  r.Header.Get(ActorHeader),
			Roles: core.ParseRoles(r.Header.Get(ActorRolesHeader)),
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKeyActor{}, a)))
	})
}

func GetActor(r *http.Request) Actor {
	if a, ok := r.Context().Value(ctxKeyActor{}).(Actor); ok {
		return a
	}
	return Actor{}
}
