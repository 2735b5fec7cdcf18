// Package client is the bot's HTTP client for the matching API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/eapache/go-resiliency/retrier"

	"github.com/oggyb/gymbro-match/internal/auth"
	"github.com/oggyb/gymbro-match/internal/config"
	svcErr "github.com/oggyb/gymbro-match/internal/errors"
	"github.com/oggyb/gymbro-match/internal/service/dto"
)

// APIError is a non-2xx answer from the API.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api %d %s: %s", e.Status, e.Code, e.Message)
}

// ActionResult is the answer to a swipe.
type ActionResult struct {
	ID      uint64  `json:"id"`
	IsMatch bool    `json:"is_match"`
	MatchID *uint64 `json:"match_id"`
}

type Partner struct {
	User    dto.User     `json:"user"`
	Profile *dto.Profile `json:"profile"`
}

type Match struct {
	ID        uint64    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Partner   *Partner  `json:"partner"`
}

type Contact struct {
	TelegramID string  `json:"telegram_id"`
	Username   *string `json:"username"`
	FirstName  *string `json:"first_name"`
	Link       string  `json:"link"`
}

type matchPage struct {
	Items         []Match `json:"items"`
	NextPageToken *string `json:"next_page_token"`
}

// Client calls the API on behalf of a Telegram user.
//
// Behavior:
//   - Every request carries X-Telegram-ID and, with a secret, its signature.
//   - 404 yields a nil result and no error. The next-profile and
//     next-incoming calls only do so for NO_MORE_PROFILES.
//   - Pure reads and user registration are retried with exponential backoff
//     on 5xx and transport errors. GET /profile/next pops the candidate
//     queue, so it is sent once like every write.
type Client struct {
	baseURL string
	secret  string
	http    *http.Client
	retrier *retrier.Retrier
	log     *slog.Logger
}

// New builds a client from the BACKEND_* and SERVICE_SECRET settings.
func New(cfg *config.Config, log *slog.Logger) *Client {
	return NewClient(cfg.Backend.URL, cfg.Auth.ServiceSecret, cfg.Backend.Retries, cfg.Backend.Timeout, 200*time.Millisecond, log)
}

// NewClient makes at most attempts tries per idempotent call, waiting
// backoff, 2*backoff, ... between them.
func NewClient(baseURL, secret string, attempts int, timeout, backoff time.Duration, log *slog.Logger) *Client {
	if attempts < 1 {
		attempts = 1
	}
	r := retrier.New(retrier.ExponentialBackoff(attempts-1, backoff), retryClassifier{})
	r.SetJitter(0.1)
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		secret:  secret,
		http:    &http.Client{Timeout: timeout},
		retrier: r,
		log:     log,
	}
}

// Register is safe to retry: the API gets-or-creates by telegram id.
func (c *Client) Register(ctx context.Context, telegramID string, username, firstName *string) (*dto.User, error) {
	body := map[string]any{"telegram_id": telegramID, "username": username, "first_name": firstName}
	var u dto.User
	found, err := c.do(ctx, request{method: http.MethodPost, path: "/users/register", tgID: telegramID, body: body, retry: true}, &u)
	if err != nil || !found {
		return nil, err
	}
	return &u, nil
}

// Profile returns the user's own profile, nil when there is none.
func (c *Client) Profile(ctx context.Context, telegramID string) (*dto.Profile, error) {
	return c.getProfile(ctx, request{method: http.MethodGet, path: "/profile", tgID: telegramID, retry: true})
}

// NextProfile returns the next candidate, nil when there are no more.
// A requester without a profile gets a PROFILE_NOT_FOUND APIError.
func (c *Client) NextProfile(ctx context.Context, telegramID string) (*dto.Profile, error) {
	return c.getProfile(ctx, request{method: http.MethodGet, path: "/profile/next", tgID: telegramID, exhausted: codeNoMoreProfiles})
}

// NextIncoming returns the newest unanswered liker, nil when there is none.
func (c *Client) NextIncoming(ctx context.Context, telegramID string) (*dto.Profile, error) {
	return c.getProfile(ctx, request{method: http.MethodGet, path: "/matches/incoming/next", tgID: telegramID, retry: true, exhausted: codeNoMoreProfiles})
}

// SetActive shows or hides the user's profile.
func (c *Client) SetActive(ctx context.Context, telegramID string, active bool) (*dto.Profile, error) {
	var p dto.Profile
	found, err := c.do(ctx, request{method: http.MethodPatch, path: "/profile", tgID: telegramID, body: map[string]bool{"is_active": active}}, &p)
	if err != nil || !found {
		return nil, err
	}
	return &p, nil
}

// SendAction swipes on toUserID. Never retried.
func (c *Client) SendAction(ctx context.Context, telegramID string, toUserID uint64, actionType string, reportReason *string) (*ActionResult, error) {
	body := map[string]any{"to_user_id": toUserID, "action_type": actionType, "report_reason": reportReason}
	var res ActionResult
	found, err := c.do(ctx, request{method: http.MethodPost, path: "/actions", tgID: telegramID, body: body}, &res)
	if err != nil || !found {
		return nil, err
	}
	return &res, nil
}

// DecideIncoming answers likerID's like. Never retried.
func (c *Client) DecideIncoming(ctx context.Context, telegramID string, likerID uint64, actionType string) (*ActionResult, error) {
	path := "/matches/incoming/" + strconv.FormatUint(likerID, 10) + "/decide"
	var res ActionResult
	found, err := c.do(ctx, request{method: http.MethodPost, path: path, tgID: telegramID, body: map[string]string{"action_type": actionType}}, &res)
	if err != nil || !found {
		return nil, err
	}
	return &res, nil
}

// Matches returns up to limit of the user's newest matches.
func (c *Client) Matches(ctx context.Context, telegramID string, limit int) ([]Match, error) {
	q := url.Values{"limit": {strconv.Itoa(limit)}}
	var page matchPage
	_, err := c.do(ctx, request{method: http.MethodGet, path: "/matches?" + q.Encode(), tgID: telegramID, retry: true}, &page)
	return page.Items, err
}

// MatchContact reveals the partner of matchID.
func (c *Client) MatchContact(ctx context.Context, telegramID string, matchID uint64) (*Contact, error) {
	path := "/matches/" + strconv.FormatUint(matchID, 10) + "/contact"
	var contact Contact
	found, err := c.do(ctx, request{method: http.MethodGet, path: path, tgID: telegramID, retry: true}, &contact)
	if err != nil || !found {
		return nil, err
	}
	return &contact, nil
}

func (c *Client) getProfile(ctx context.Context, req request) (*dto.Profile, error) {
	var p dto.Profile
	found, err := c.do(ctx, req, &p)
	if err != nil || !found {
		return nil, err
	}
	return &p, nil
}

const codeNoMoreProfiles = "NO_MORE_PROFILES"

type request struct {
	method    string
	path      string
	tgID      string
	body      any
	retry     bool
	// exhausted, when set, is the only 404 code that means "no result".
	exhausted string
}

// retryableError marks failures worth another attempt.
type retryableError struct{ err error }

func (e *retryableError) Error() string { return e.err.Error() }
func (e *retryableError) Unwrap() error { return e.err }

type retryClassifier struct{}

func (retryClassifier) Classify(err error) retrier.Action {
	if err == nil {
		return retrier.Succeed
	}
	var r *retryableError
	if errors.As(err, &r) {
		return retrier.Retry
	}
	return retrier.Fail
}

// do sends req and decodes a 2xx body into out. found is false on 404.
func (c *Client) do(ctx context.Context, req request, out any) (found bool, err error) {
	var payload []byte
	if req.body != nil {
		if payload, err = json.Marshal(req.body); err != nil {
			return false, err
		}
	}

	attempt := 0
	call := func(ctx context.Context) error {
		attempt++
		found, err = c.once(ctx, req, payload, out)
		if err != nil && req.retry {
			c.log.Debug("backend call failed", "method", req.method, "path", req.path, "attempt", attempt, "err", err)
		}
		return err
	}

	if req.retry {
		err = c.retrier.RunCtx(ctx, call)
	} else {
		err = call(ctx)
	}

	var r *retryableError
	if errors.As(err, &r) {
		err = r.err
	}
	return found, err
}

func (c *Client) once(ctx context.Context, req request, payload []byte, out any) (bool, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.method, c.baseURL+req.path, body)
	if err != nil {
		return false, err
	}
	httpReq.Header.Set("Accept", "application/json")
	if payload != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	httpReq.Header.Set(auth.HeaderTelegramID, req.tgID)
	if sig := auth.Sign(c.secret, req.tgID); sig != "" {
		httpReq.Header.Set(auth.HeaderSignature, sig)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return false, err
		}
		return false, &retryableError{err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		if req.exhausted == "" {
			return false, nil
		}
		if err := decodeError(resp); !IsCode(err, req.exhausted) {
			return false, err
		}
		return false, nil
	case resp.StatusCode >= http.StatusInternalServerError:
		return false, &retryableError{err: decodeError(resp)}
	case resp.StatusCode >= http.StatusBadRequest:
		return false, decodeError(resp)
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return true, nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return false, fmt.Errorf("decode %s %s: %w", req.method, req.path, err)
	}
	return true, nil
}

func decodeError(resp *http.Response) error {
	var body svcErr.Body
	_ = json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&body)
	return &APIError{Status: resp.StatusCode, Code: body.Error, Message: body.Message}
}

// IsCode reports whether err is an APIError with the given code.
func IsCode(err error, code string) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Code == code
}
