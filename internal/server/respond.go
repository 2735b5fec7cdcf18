package server

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/oggyb/gymbro-match/internal/db"
	svcErr "github.com/oggyb/gymbro-match/internal/errors"
	"github.com/oggyb/gymbro-match/internal/logger"
	"github.com/oggyb/gymbro-match/internal/utils/pagination"
	"github.com/oggyb/gymbro-match/internal/utils/validation"
)

type ctxKey int

const userKey ctxKey = iota

// WithUser stores the authenticated user on the request context.
func WithUser(ctx context.Context, u *db.User) context.Context {
	return context.WithValue(ctx, userKey, u)
}

// CurrentUser returns the user set by Authenticate, or nil.
func CurrentUser(ctx context.Context) *db.User {
	u, _ := ctx.Value(userKey).(*db.User)
	return u
}

// JSON writes v with the given status.
func JSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	render.Status(r, status)
	render.JSON(w, r, v)
}

// Error writes the mapped error body. 5xx responses are logged with the cause.
func Error(w http.ResponseWriter, r *http.Request, err error) {
	status := svcErr.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		logger.FromContext(r.Context(), logger.L()).Error("request failed",
			"method", r.Method, "path", r.URL.Path, "err", err)
	}
	JSON(w, r, status, svcErr.ToBody(err))
}

// Decode reads a JSON body into v and validates its `validate` tags.
func Decode(r *http.Request, v any) error {
	if err := render.DecodeJSON(r.Body, v); err != nil {
		return svcErr.Validation("invalid JSON body")
	}
	return validation.Struct(v)
}

// URLID parses a numeric chi URL parameter.
func URLID(r *http.Request, name string) (uint64, error) {
	id, err := strconv.ParseUint(chi.URLParam(r, name), 10, 64)
	if err != nil || id == 0 {
		return 0, svcErr.InvalidArgument(name + " must be a positive integer")
	}
	return id, nil
}

// Page reads ?page_token=&limit= with limit clamped to the pagination bounds.
func Page(r *http.Request) (*string, int) {
	q := r.URL.Query()
	var token *string
	if t := q.Get("page_token"); t != "" {
		token = &t
	}
	limit, _ := strconv.Atoi(q.Get("limit"))
	return token, pagination.ClampLimit(limit)
}

// RequestLogger returns the request-scoped logger, falling back to log.
func RequestLogger(r *http.Request, log *slog.Logger) *slog.Logger {
	return logger.FromContext(r.Context(), log)
}
