// internal/errors/mapper.go
package errors

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"gorm.io/gorm"

	"github.com/oggyb/gymbro-match/internal/utils/pagination"
)

// Kind classifies a domain error. Each kind maps to one fixed HTTP status.
type Kind int

const (
	KindInternal Kind = iota
	KindNotFound
	KindConflict
	KindValidation
	KindUnauthorized
	KindForbidden
	KindTooManyRequests
	KindTimeout
)

// Error is a user-facing domain error with a stable machine-readable code.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches on Code so that wrapped sentinels compare equal.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

func newErr(kind Kind, code, msg string) *Error {
	return &Error{Kind: kind, Code: code, Message: msg}
}

// Sentinels shared by services. Compare with errors.Is.
var (
	ErrUserNotFound          = newErr(KindNotFound, "USER_NOT_FOUND", "user not found")
	ErrProfileNotFound       = newErr(KindNotFound, "PROFILE_NOT_FOUND", "profile not found")
	ErrNoMoreProfiles        = newErr(KindNotFound, "NO_MORE_PROFILES", "no more profiles available")
	ErrMatchNotFound         = newErr(KindNotFound, "MATCH_NOT_FOUND", "match not found")
	ErrIncomingLikeNotFound  = newErr(KindNotFound, "INCOMING_LIKE_NOT_FOUND", "no incoming like from this user")
	ErrBroadcastNotFound     = newErr(KindNotFound, "BROADCAST_NOT_FOUND", "broadcast not found")
	ErrProfileAlreadyExists  = newErr(KindConflict, "PROFILE_ALREADY_EXISTS", "profile already exists")
	ErrActionAlreadyExists   = newErr(KindConflict, "ACTION_ALREADY_EXISTS", "action already exists")
	ErrSelfAction            = newErr(KindValidation, "SELF_ACTION_NOT_ALLOWED", "cannot perform action on yourself")
	ErrUnauthenticated       = newErr(KindUnauthorized, "UNAUTHENTICATED", "X-Telegram-ID header required")
	ErrUserNotRegistered     = newErr(KindUnauthorized, "USER_NOT_REGISTERED", "user not registered")
	ErrBadSignature          = newErr(KindUnauthorized, "BAD_SIGNATURE", "request signature mismatch")
	ErrUserBanned            = newErr(KindForbidden, "USER_BANNED", "user is banned")
	ErrProfileInactive       = newErr(KindForbidden, "PROFILE_INACTIVE", "active profile required")
	ErrInvalidPermissions    = newErr(KindForbidden, "INVALID_PERMISSIONS", "admin permissions required")
	ErrRateLimited           = newErr(KindTooManyRequests, "RATE_LIMITED", "too many requests")
)

// Validation builds a validation error with a custom message.
func Validation(msg string) error {
	return &Error{Kind: KindValidation, Code: "VALIDATION_ERROR", Message: msg}
}

// InvalidArgument rejects a single malformed path or query parameter.
func InvalidArgument(msg string) error {
	return &Error{Kind: KindValidation, Code: "INVALID_ARGUMENT", Message: msg}
}

// Map converts repo/infra errors into domain errors.
// Keeps service layer clean by centralizing error mapping.
func Map(err error) error {
	if err == nil {
		return nil
	}

	var de *Error
	switch {
	case errors.As(err, &de):
		return de

	case errors.Is(err, gorm.ErrRecordNotFound):
		return &Error{Kind: KindNotFound, Code: "NOT_FOUND", Message: "record not found", Err: err}

	case errors.Is(err, pagination.ErrInvalidToken):
		return &Error{Kind: KindValidation, Code: "INVALID_PAGE_TOKEN", Message: "invalid pagination token", Err: err}

	case errors.Is(err, gorm.ErrDuplicatedKey):
		return &Error{Kind: KindConflict, Code: "CONFLICT", Message: "record already exists", Err: err}

	case errors.Is(err, context.DeadlineExceeded):
		return &Error{Kind: KindTimeout, Code: "TIMEOUT", Message: "request timed out", Err: err}

	case errors.Is(err, context.Canceled):
		return &Error{Kind: KindTimeout, Code: "CANCELED", Message: "request was canceled", Err: err}

	default:
		return &Error{Kind: KindInternal, Code: "INTERNAL", Message: "internal error", Err: err}
	}
}

// HTTPStatus returns the fixed status for the error's kind.
func HTTPStatus(err error) int {
	var de *Error
	if !errors.As(Map(err), &de) {
		return http.StatusInternalServerError
	}
	switch de.Kind {
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindValidation:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindTooManyRequests:
		return http.StatusTooManyRequests
	case KindTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// Body is the JSON error payload returned by every handler.
type Body struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// ToBody renders err for clients. Internal details are never exposed.
func ToBody(err error) Body {
	var de *Error
	if errors.As(Map(err), &de) {
		return Body{Error: de.Code, Message: de.Message}
	}
	return Body{Error: "INTERNAL", Message: "internal error"}
}
