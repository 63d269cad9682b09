package handler

import (
	"encoding/json"
	"net/http"

	"github.com/dmitrymomot/foundation/pkg/clientip"
	"github.com/go-chi/chi/v5"

	apperrors "github.com/sitepulse/tracking-server-go/internal/errors"
	"github.com/sitepulse/tracking-server-go/internal/geo"
	"github.com/sitepulse/tracking-server-go/internal/service"
)

// TrackingHandler accepts the client-side instrumentation calls. Tracking
// is best-effort by contract: callers are expected to drop on failure, so
// handlers never retry and never block on anything but the durable write.
type TrackingHandler struct {
	tracking *service.TrackingService
	enabled  bool
}

func NewTrackingHandler(tracking *service.TrackingService, enabled bool) *TrackingHandler {
	return &TrackingHandler{
		tracking: tracking,
		enabled:  enabled,
	}
}

func (h *TrackingHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/session", h.StartSession)
	r.Post("/pageview", h.TrackPageview)
	r.Post("/event", h.TrackEvent)
	r.Post("/conversion", h.TrackConversion)
	r.Post("/end", h.EndSession)

	return r
}

func (h *TrackingHandler) capture(r *http.Request, userID *string, referrer *string) service.Capture {
	return service.Capture{
		UserID:    userID,
		IPAddress: clientip.GetIP(r),
		UserAgent: r.UserAgent(),
		Referrer:  referrer,
		Location:  geo.FromRequest(r),
	}
}

// trackingDisabled short-circuits every tracking call when the kill switch
// is off: accepted, discarded, no state touched.
func (h *TrackingHandler) trackingDisabled(w http.ResponseWriter) bool {
	if h.enabled {
		return false
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"tracked": false})
	return true
}

// POST /tracking/session
func (h *TrackingHandler) StartSession(w http.ResponseWriter, r *http.Request) {
	if h.trackingDisabled(w) {
		return
	}

	var req struct {
		SessionID string  `json:"sessionId"`
		PageURL   string  `json:"pageUrl"`
		Referrer  *string `json:"referrer,omitempty"`
		UserID    *string `json:"userId,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperrors.InvalidInput("body", "malformed JSON"))
		return
	}

	session, err := h.tracking.StartSession(r.Context(), req.SessionID, req.PageURL, h.capture(r, req.UserID, req.Referrer))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"tracked":   true,
		"sessionId": session.ID,
		"state":     session.State,
	})
}

// POST /tracking/pageview
func (h *TrackingHandler) TrackPageview(w http.ResponseWriter, r *http.Request) {
	if h.trackingDisabled(w) {
		return
	}

	var req struct {
		SessionID string `json:"sessionId"`
		URL       string `json:"url"`
		Title     string `json:"title"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperrors.InvalidInput("body", "malformed JSON"))
		return
	}

	page, err := h.tracking.TrackPageview(r.Context(), req.SessionID, req.URL, req.Title, h.capture(r, nil, nil))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"tracked": true,
		"seq":     page.Seq,
	})
}

// POST /tracking/event
func (h *TrackingHandler) TrackEvent(w http.ResponseWriter, r *http.Request) {
	if h.trackingDisabled(w) {
		return
	}

	var req struct {
		SessionID string          `json:"sessionId"`
		Event     string          `json:"event"`
		Name      string          `json:"name"`
		Data      json.RawMessage `json:"data,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperrors.InvalidInput("body", "malformed JSON"))
		return
	}

	event, err := h.tracking.TrackEvent(r.Context(), req.SessionID, req.Event, req.Name, req.Data, h.capture(r, nil, nil))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"tracked": true,
		"seq":     event.Seq,
	})
}

// POST /tracking/conversion
func (h *TrackingHandler) TrackConversion(w http.ResponseWriter, r *http.Request) {
	if h.trackingDisabled(w) {
		return
	}

	var req struct {
		SessionID string  `json:"sessionId"`
		Type      string  `json:"type"`
		Value     float64 `json:"value"`
		Currency  string  `json:"currency"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperrors.InvalidInput("body", "malformed JSON"))
		return
	}

	conv, alreadyRecorded, err := h.tracking.TrackConversion(r.Context(), req.SessionID, req.Type, req.Value, req.Currency, h.capture(r, nil, nil))
	if err != nil {
		writeError(w, err)
		return
	}

	// A duplicate conversion is informational, not an error: the stored
	// conversion is returned untouched.
	writeJSON(w, http.StatusOK, map[string]any{
		"tracked":         !alreadyRecorded,
		"alreadyRecorded": alreadyRecorded,
		"conversion":      conv,
	})
}

// POST /tracking/end
func (h *TrackingHandler) EndSession(w http.ResponseWriter, r *http.Request) {
	if h.trackingDisabled(w) {
		return
	}

	var req struct {
		SessionID string `json:"sessionId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperrors.InvalidInput("body", "malformed JSON"))
		return
	}

	session, err := h.tracking.EndSession(r.Context(), req.SessionID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"sessionId": session.ID,
		"state":     session.State,
		"duration":  session.Duration().Seconds(),
	})
}
