package handler

import (
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sitepulse/tracking-server-go/internal/broker"
)

func TestEventsHandler_sendEvent(t *testing.T) {
	t.Run("formats SSE event correctly", func(t *testing.T) {
		handler := &EventsHandler{}
		rec := httptest.NewRecorder()
		flusher := rec // httptest.ResponseRecorder implements http.Flusher

		event := broker.Event{
			Type:      "pageview",
			SessionID: "s1",
			Timestamp: time.Now(),
			Data:      json.RawMessage(`{"url":"/pricing"}`),
		}

		err := handler.sendEvent(rec, flusher, event.Type, event)

		require.NoError(t, err)
		body := rec.Body.String()
		assert.Contains(t, body, "event: pageview\n")
		assert.Contains(t, body, "data: ")
		assert.Contains(t, body, `"sessionId":"s1"`)
		assert.Contains(t, body, "\n\n")
	})

	t.Run("event payload round-trips as JSON", func(t *testing.T) {
		handler := &EventsHandler{}
		rec := httptest.NewRecorder()

		event := broker.Event{
			Type:      "conversion",
			SessionID: "s2",
			UserID:    "user-1",
			Data:      json.RawMessage(`{"type":"signup","value":0}`),
		}

		err := handler.sendEvent(rec, rec, event.Type, event)
		require.NoError(t, err)

		body := rec.Body.String()
		start := len("event: conversion\ndata: ")
		payload := body[start : len(body)-2]

		var parsed broker.Event
		require.NoError(t, json.Unmarshal([]byte(payload), &parsed))
		assert.Equal(t, "s2", parsed.SessionID)
		assert.Equal(t, "user-1", parsed.UserID)
	})
}

func TestSSEEventFormat(t *testing.T) {
	tests := []struct {
		name      string
		eventType string
		wantEvent string
	}{
		{"session start", "session_started", "event: session_started\n"},
		{"pageview", "pageview", "event: pageview\n"},
		{"custom event", "event", "event: event\n"},
		{"conversion", "conversion", "event: conversion\n"},
		{"session end", "session_ended", "event: session_ended\n"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			handler := &EventsHandler{}
			rec := httptest.NewRecorder()

			err := handler.sendEvent(rec, rec, tc.eventType, broker.Event{Type: tc.eventType})

			require.NoError(t, err)
			assert.Contains(t, rec.Body.String(), tc.wantEvent)
		})
	}
}
