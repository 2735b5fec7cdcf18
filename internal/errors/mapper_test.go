package errors_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"

	svcErr "github.com/oggyb/gymbro-match/internal/errors"
	"github.com/oggyb/gymbro-match/internal/utils/pagination"
)

func TestHTTPStatus(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{svcErr.ErrNoMoreProfiles, http.StatusNotFound},
		{svcErr.ErrActionAlreadyExists, http.StatusConflict},
		{svcErr.ErrSelfAction, http.StatusBadRequest},
		{svcErr.ErrUnauthenticated, http.StatusUnauthorized},
		{svcErr.ErrUserBanned, http.StatusForbidden},
		{svcErr.ErrRateLimited, http.StatusTooManyRequests},
		{gorm.ErrRecordNotFound, http.StatusNotFound},
		{fmt.Errorf("list: %w", pagination.ErrInvalidToken), http.StatusBadRequest},
		{fmt.Errorf("wrap: %w", context.DeadlineExceeded), http.StatusGatewayTimeout},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, svcErr.HTTPStatus(c.err), c.err.Error())
	}
}

func TestIsMatchesOnCode(t *testing.T) {
	err := &svcErr.Error{Kind: svcErr.KindNotFound, Code: "PROFILE_NOT_FOUND", Message: "profile for user 7 not found"}
	assert.True(t, errors.Is(err, svcErr.ErrProfileNotFound))
	assert.False(t, errors.Is(err, svcErr.ErrMatchNotFound))
	assert.True(t, errors.Is(fmt.Errorf("ctx: %w", svcErr.ErrSelfAction), svcErr.ErrSelfAction))
}

func TestToBodyHidesInternals(t *testing.T) {
	body := svcErr.ToBody(errors.New("pq: password authentication failed"))
	assert.Equal(t, "INTERNAL", body.Error)
	assert.NotContains(t, body.Message, "password")

	body = svcErr.ToBody(svcErr.ErrNoMoreProfiles)
	assert.Equal(t, "NO_MORE_PROFILES", body.Error)
}
