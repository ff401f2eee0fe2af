package http

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/cmlabs-hris/settlement-backend-go/internal/domain/user"
	"github.com/cmlabs-hris/settlement-backend-go/internal/handler/http/middleware"
	"github.com/cmlabs-hris/settlement-backend-go/internal/handler/http/response"
	"github.com/cmlabs-hris/settlement-backend-go/internal/pkg/validator"
	"github.com/go-chi/chi/v5"
)

// actorOf returns the authenticated caller or writes 401.
func actorOf(w http.ResponseWriter, r *http.Request) (user.Actor, bool) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		response.Unauthorized(w, "Authentication required")
	}
	return actor, ok
}

// decode reads a JSON body into dst or writes 400. An empty body leaves dst
// at its zero value.
func decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if r.ContentLength == 0 {
		return true
	}
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		response.BadRequest(w, "Invalid request body", nil)
		return false
	}
	return true
}

// queryDate parses an optional YYYY-MM-DD query parameter.
func queryDate(r *http.Request, name string) (*time.Time, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	d, ok := validator.IsValidDate(raw)
	if !ok {
		return nil, validator.ValidationErrors{{Field: name, Message: "must be YYYY-MM-DD"}}
	}
	return &d, nil
}

// queryString returns a pointer to a non-empty query parameter.
func queryString(r *http.Request, name string) *string {
	if v := r.URL.Query().Get(name); v != "" {
		return &v
	}
	return nil
}

func urlID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := chi.URLParam(r, "id")
	if id == "" {
		response.BadRequest(w, "ID is required", nil)
		return "", false
	}
	return id, true
}
