package match

import (
	"net/http"
	"time"

	"github.com/oggyb/gymbro-match/internal/db"
	"github.com/oggyb/gymbro-match/internal/server"
	"github.com/oggyb/gymbro-match/internal/service/dto"
)

type handler struct {
	svc *Service
}

type partner struct {
	User    dto.User     `json:"user"`
	Profile *dto.Profile `json:"profile"`
}

type matchResponse struct {
	ID         uint64    `json:"id"`
	IsNotified bool      `json:"is_notified"`
	CreatedAt  time.Time `json:"created_at"`
	Partner    *partner  `json:"partner"`
}

type matchPage struct {
	Items         []matchResponse `json:"items"`
	NextPageToken *string         `json:"next_page_token"`
}

func toMatchResponse(m *db.Match, userID uint64) matchResponse {
	out := matchResponse{ID: m.ID, IsNotified: m.IsNotified, CreatedAt: m.CreatedAt}
	if u := Partner(m, userID); u != nil {
		out.Partner = &partner{User: dto.FromUser(u)}
		if u.Profile != nil {
			p := dto.FromProfile(u.Profile)
			out.Partner.Profile = &p
		}
	}
	return out
}

// list handles GET /matches.
func (h *handler) list(w http.ResponseWriter, r *http.Request) {
	userID := server.CurrentUser(r.Context()).ID
	token, limit := server.Page(r)
	matches, next, err := h.svc.List(r.Context(), userID, token, limit)
	if err != nil {
		server.Error(w, r, err)
		return
	}

	resp := matchPage{Items: make([]matchResponse, 0, len(matches)), NextPageToken: next}
	for i := range matches {
		resp.Items = append(resp.Items, toMatchResponse(&matches[i], userID))
	}
	server.JSON(w, r, http.StatusOK, resp)
}

// get handles GET /matches/{id}.
func (h *handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := server.URLID(r, "id")
	if err != nil {
		server.Error(w, r, err)
		return
	}
	userID := server.CurrentUser(r.Context()).ID
	m, err := h.svc.Get(r.Context(), userID, id)
	if err != nil {
		server.Error(w, r, err)
		return
	}
	server.JSON(w, r, http.StatusOK, toMatchResponse(m, userID))
}

// contact handles GET /matches/{id}/contact.
func (h *handler) contact(w http.ResponseWriter, r *http.Request) {
	id, err := server.URLID(r, "id")
	if err != nil {
		server.Error(w, r, err)
		return
	}
	c, err := h.svc.Contact(r.Context(), server.CurrentUser(r.Context()).ID, id)
	if err != nil {
		server.Error(w, r, err)
		return
	}
	server.JSON(w, r, http.StatusOK, c)
}

// unmatch handles DELETE /matches/{id}.
func (h *handler) unmatch(w http.ResponseWriter, r *http.Request) {
	id, err := server.URLID(r, "id")
	if err != nil {
		server.Error(w, r, err)
		return
	}
	if err := h.svc.Unmatch(r.Context(), server.CurrentUser(r.Context()).ID, id); err != nil {
		server.Error(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
