package admin

import (
	"bytes"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	svcErr "github.com/oggyb/gymbro-match/internal/errors"
	"github.com/oggyb/gymbro-match/internal/repository"
	"github.com/oggyb/gymbro-match/internal/server"
)

type handler struct {
	svc *Service
}

type broadcastInput struct {
	Text string `json:"text" validate:"required,max=4096"`
}

type broadcastStarted struct {
	TaskID string `json:"task_id"`
}

// exportProfiles handles GET /admin/export/profiles.csv?limit&offset&is_active.
func (h *handler) exportProfiles(w http.ResponseWriter, r *http.Request) {
	f, err := exportFilter(r)
	if err != nil {
		server.Error(w, r, err)
		return
	}
	rows, err := h.svc.ExportProfiles(r.Context(), f)
	if err != nil {
		server.Error(w, r, err)
		return
	}

	// buffered so a write error can still become a JSON error
	var buf bytes.Buffer
	if err := WriteProfilesCSV(&buf, rows); err != nil {
		server.Error(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="profiles.csv"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func exportFilter(r *http.Request) (repository.ExportFilter, error) {
	q := r.URL.Query()
	var f repository.ExportFilter
	var err error
	if v := q.Get("limit"); v != "" {
		if f.Limit, err = strconv.Atoi(v); err != nil || f.Limit < 0 {
			return f, svcErr.InvalidArgument("limit must be a non-negative integer")
		}
	}
	if v := q.Get("offset"); v != "" {
		if f.Offset, err = strconv.Atoi(v); err != nil || f.Offset < 0 {
			return f, svcErr.InvalidArgument("offset must be a non-negative integer")
		}
	}
	if v := strings.TrimSpace(q.Get("is_active")); v != "" {
		active, err := strconv.ParseBool(v)
		if err != nil {
			return f, svcErr.InvalidArgument("is_active must be true or false")
		}
		f.IsActive = &active
	}
	return f, nil
}

// startBroadcast handles POST /admin/broadcasts.
func (h *handler) startBroadcast(w http.ResponseWriter, r *http.Request) {
	var in broadcastInput
	if err := server.Decode(r, &in); err != nil {
		server.Error(w, r, err)
		return
	}
	admin := server.CurrentUser(r.Context())
	id := h.svc.Broadcasts().Start(admin.TelegramID, in.Text)
	server.JSON(w, r, http.StatusAccepted, broadcastStarted{TaskID: id})
}

// getBroadcast handles GET /admin/broadcasts/{id}.
func (h *handler) getBroadcast(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.Broadcasts().Get(chi.URLParam(r, "id"))
	if err != nil {
		server.Error(w, r, err)
		return
	}
	server.JSON(w, r, http.StatusOK, stats)
}

// cancelBroadcast handles POST /admin/broadcasts/{id}/cancel.
func (h *handler) cancelBroadcast(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.Broadcasts().Cancel(chi.URLParam(r, "id"))
	if err != nil {
		server.Error(w, r, err)
		return
	}
	server.JSON(w, r, http.StatusOK, stats)
}

// ban handles POST /admin/users/{id}/ban.
func (h *handler) ban(w http.ResponseWriter, r *http.Request) {
	id, err := server.URLID(r, "id")
	if err != nil {
		server.Error(w, r, err)
		return
	}
	admin := server.CurrentUser(r.Context())
	if err := h.svc.Ban(r.Context(), admin.TelegramID, id); err != nil {
		server.Error(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
