package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"gorm.io/gorm"

	"github.com/oggyb/gymbro-match/internal/auth"
	"github.com/oggyb/gymbro-match/internal/db"
	svcErr "github.com/oggyb/gymbro-match/internal/errors"
	"github.com/oggyb/gymbro-match/internal/logger"
	"github.com/oggyb/gymbro-match/internal/metrics"
)

// UserLookup resolves the caller from the identity header.
type UserLookup interface {
	GetByTelegramID(ctx context.Context, telegramID string) (*db.User, error)
}

// Middleware carries the auth configuration shared by every route group.
type Middleware struct {
	users         UserLookup
	serviceSecret string
	adminID       string
}

func NewMiddleware(users UserLookup, serviceSecret, adminTelegramID string) *Middleware {
	return &Middleware{users: users, serviceSecret: serviceSecret, adminID: adminTelegramID}
}

// VerifySignature checks X-Telegram-Signature for telegramID when a service
// secret is configured.
func (m *Middleware) VerifySignature(r *http.Request, telegramID string) error {
	if !auth.Verify(m.serviceSecret, telegramID, r.Header.Get(auth.HeaderSignature)) {
		return svcErr.ErrBadSignature
	}
	return nil
}

// Authenticate resolves X-Telegram-ID to a registered user.
//
// Behavior:
//   - missing header → 401 UNAUTHENTICATED
//   - bad signature (only when SERVICE_SECRET is set) → 401 BAD_SIGNATURE
//   - unknown telegram id → 401 USER_NOT_REGISTERED
func (m *Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		telegramID := r.Header.Get(auth.HeaderTelegramID)
		if telegramID == "" {
			Error(w, r, svcErr.ErrUnauthenticated)
			return
		}
		if err := m.VerifySignature(r, telegramID); err != nil {
			Error(w, r, err)
			return
		}

		u, err := m.users.GetByTelegramID(r.Context(), telegramID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			Error(w, r, svcErr.ErrUserNotRegistered)
			return
		} else if err != nil {
			Error(w, r, err)
			return
		}

		ctx := WithUser(r.Context(), u)
		ctx = logger.WithContext(ctx, logger.FromContext(ctx, logger.L()).With("user_id", u.ID))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RejectBanned must run after Authenticate.
func (m *Middleware) RejectBanned(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if u := CurrentUser(r.Context()); u == nil || u.IsBanned {
			Error(w, r, svcErr.ErrUserBanned)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAdmin must run after Authenticate.
func (m *Middleware) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u := CurrentUser(r.Context())
		if u == nil || !auth.SameID(u.TelegramID, m.adminID) {
			Error(w, r, svcErr.ErrInvalidPermissions)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// AccessLog logs one line per request through slog and feeds the latency
// histogram. It also seeds the request-scoped logger with the request id.
func AccessLog(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			reqLog := log.With("request_id", middleware.GetReqID(r.Context()))
			next.ServeHTTP(ww, r.WithContext(logger.WithContext(r.Context(), reqLog)))

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			route := chi.RouteContext(r.Context()).RoutePattern()
			if route == "" {
				route = "unmatched"
			}
			elapsed := time.Since(start)
			metrics.HTTPRequestDuration.
				WithLabelValues(r.Method, route, strconv.Itoa(status)).
				Observe(elapsed.Seconds())

			reqLog.Info("http request",
				"method", r.Method,
				"route", route,
				"status", status,
				"bytes", ww.BytesWritten(),
				"duration_ms", elapsed.Milliseconds(),
			)
		})
	}
}
