package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/sitepulse/tracking-server-go/internal/broker"
	"github.com/sitepulse/tracking-server-go/internal/config"
	"github.com/sitepulse/tracking-server-go/internal/service"
)

// EventsHandler streams live tracking records to dashboard clients over
// SSE. A client gets a snapshot of currently active sessions on connect,
// then the live feed. Records published before the connection are gone;
// history lives behind the aggregate queries.
type EventsHandler struct {
	broker    *broker.Broker
	analytics *service.AnalyticsService
}

func NewEventsHandler(b *broker.Broker, analytics *service.AnalyticsService) *EventsHandler {
	return &EventsHandler{
		broker:    b,
		analytics: analytics,
	}
}

func (h *EventsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Streaming not supported"})
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	client := h.broker.Subscribe()
	defer h.broker.Unsubscribe(client)

	ctx := r.Context()

	if err := h.sendSnapshot(w, flusher, r); err != nil {
		log.Error().Err(err).Msg("failed to send realtime snapshot")
		return
	}

	heartbeat := time.NewTicker(broker.HeartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("sse connection closed by client")
			return

		case <-client.Done:
			log.Info().Msg("sse connection closed by broker")
			return

		case event := <-client.Events:
			if err := h.sendEvent(w, flusher, event.Type, event); err != nil {
				log.Error().Err(err).Msg("failed to send event")
				return
			}

		case <-heartbeat.C:
			if _, err := fmt.Fprintf(w, ": ping\n\n"); err != nil {
				log.Debug().Msg("heartbeat failed, closing connection")
				return
			}
			flusher.Flush()
		}
	}
}

func (h *EventsHandler) sendSnapshot(w http.ResponseWriter, flusher http.Flusher, r *http.Request) error {
	snapshot, err := h.analytics.Realtime(r.Context(), config.RealtimeWindow)
	if err != nil {
		return err
	}
	return h.sendEvent(w, flusher, "snapshot", snapshot)
}

func (h *EventsHandler) sendEvent(w http.ResponseWriter, flusher http.Flusher, eventType string, data any) error {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return err
	}

	if _, err := fmt.Fprintf(w, "event: %s\n", eventType); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "data: %s\n\n", jsonData); err != nil {
		return err
	}
	flusher.Flush()
	return nil
}
