package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sitepulse/tracking-server-go/internal/service"
)

const topPagesLimit = 20

type AnalyticsHandler struct {
	analytics *service.AnalyticsService
	events    *EventsHandler
}

func NewAnalyticsHandler(analytics *service.AnalyticsService, events *EventsHandler) *AnalyticsHandler {
	return &AnalyticsHandler{
		analytics: analytics,
		events:    events,
	}
}

func (h *AnalyticsHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/overview", h.Overview)
	r.Get("/realtime", h.events.ServeHTTP)
	r.Get("/sessions", h.Sessions)
	r.Get("/sessions/{sessionID}", h.SessionDetail)
	r.Get("/pages", h.TopPages)
	r.Get("/geography", h.Geography)
	r.Get("/devices", h.Devices)

	return r
}

// GET /analytics/overview
func (h *AnalyticsHandler) Overview(w http.ResponseWriter, r *http.Request) {
	overview, err := h.analytics.Overview(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, overview)
}

// GET /analytics/sessions
func (h *AnalyticsHandler) Sessions(w http.ResponseWriter, r *http.Request) {
	p := ParsePagination(r)

	sessions, err := h.analytics.Sessions(r.Context(), p.Limit, p.Offset)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"sessions": sessions,
		"limit":    p.Limit,
		"offset":   p.Offset,
	})
}

// GET /analytics/sessions/{sessionID}
func (h *AnalyticsHandler) SessionDetail(w http.ResponseWriter, r *http.Request) {
	detail, err := h.analytics.SessionDetail(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

// GET /analytics/pages
func (h *AnalyticsHandler) TopPages(w http.ResponseWriter, r *http.Request) {
	pages, err := h.analytics.TopPages(r.Context(), topPagesLimit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"pages": pages})
}

// GET /analytics/geography
func (h *AnalyticsHandler) Geography(w http.ResponseWriter, r *http.Request) {
	stats, err := h.analytics.Geography(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"countries": stats})
}

// GET /analytics/devices
func (h *AnalyticsHandler) Devices(w http.ResponseWriter, r *http.Request) {
	stats, err := h.analytics.Devices(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"devices": stats})
}
