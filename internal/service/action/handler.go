package action

import (
	"net/http"
	"time"

	"github.com/oggyb/gymbro-match/internal/server"
	"github.com/oggyb/gymbro-match/internal/service/dto"
)

type handler struct {
	svc *Service
}

type actionResponse struct {
	ID           uint64    `json:"id"`
	FromUserID   uint64    `json:"from_user_id"`
	ToUserID     uint64    `json:"to_user_id"`
	ActionType   string    `json:"action_type"`
	ReportReason *string   `json:"report_reason"`
	CreatedAt    time.Time `json:"created_at"`
	IsMatch      bool      `json:"is_match"`
	MatchID      *uint64   `json:"match_id,omitempty"`
}

func toActionResponse(res *Result) actionResponse {
	a := res.Action
	out := actionResponse{
		ID:           a.ID,
		FromUserID:   a.FromUserID,
		ToUserID:     a.ToUserID,
		ActionType:   string(a.ActionType),
		ReportReason: a.ReportReason,
		CreatedAt:    a.CreatedAt,
		IsMatch:      res.IsMatch,
	}
	if res.Match != nil {
		out.MatchID = &res.Match.ID
	}
	return out
}

type incomingItem struct {
	UserID  uint64       `json:"user_id"`
	LikedAt time.Time    `json:"liked_at"`
	Profile *dto.Profile `json:"profile"`
}

type incomingPage struct {
	Items         []incomingItem `json:"items"`
	NextPageToken *string        `json:"next_page_token"`
}

type decideInput struct {
	ActionType string `json:"action_type" validate:"required,oneof=like dislike"`
}

// send handles POST /actions.
func (h *handler) send(w http.ResponseWriter, r *http.Request) {
	var in SendInput
	if err := server.Decode(r, &in); err != nil {
		server.Error(w, r, err)
		return
	}
	res, err := h.svc.SendAction(r.Context(), server.CurrentUser(r.Context()).ID, in)
	if err != nil {
		server.Error(w, r, err)
		return
	}
	server.JSON(w, r, http.StatusCreated, toActionResponse(res))
}

// listIncoming handles GET /matches/incoming.
func (h *handler) listIncoming(w http.ResponseWriter, r *http.Request) {
	token, limit := server.Page(r)
	items, next, err := h.svc.ListIncoming(r.Context(), server.CurrentUser(r.Context()).ID, token, limit)
	if err != nil {
		server.Error(w, r, err)
		return
	}

	resp := incomingPage{Items: make([]incomingItem, 0, len(items)), NextPageToken: next}
	for _, in := range items {
		item := incomingItem{UserID: in.Action.FromUserID, LikedAt: in.Action.CreatedAt}
		if in.Profile != nil {
			p := dto.FromProfile(in.Profile)
			item.Profile = &p
		}
		resp.Items = append(resp.Items, item)
	}
	server.JSON(w, r, http.StatusOK, resp)
}

// nextIncoming handles GET /matches/incoming/next.
func (h *handler) nextIncoming(w http.ResponseWriter, r *http.Request) {
	p, err := h.svc.NextIncoming(r.Context(), server.CurrentUser(r.Context()).ID)
	if err != nil {
		server.Error(w, r, err)
		return
	}
	server.JSON(w, r, http.StatusOK, dto.FromProfile(p))
}

// decide handles POST /matches/incoming/{user_id}/decide.
func (h *handler) decide(w http.ResponseWriter, r *http.Request) {
	likerID, err := server.URLID(r, "user_id")
	if err != nil {
		server.Error(w, r, err)
		return
	}
	var in decideInput
	if err := server.Decode(r, &in); err != nil {
		server.Error(w, r, err)
		return
	}
	res, err := h.svc.DecideIncoming(r.Context(), server.CurrentUser(r.Context()).ID, likerID, in.ActionType)
	if err != nil {
		server.Error(w, r, err)
		return
	}
	server.JSON(w, r, http.StatusCreated, toActionResponse(res))
}
