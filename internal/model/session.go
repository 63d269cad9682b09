package model

import (
	"encoding/json"
	"time"
)

type Session struct {
	ID             string       `db:"id" json:"sessionId"`
	UserID         *string      `db:"user_id" json:"userId,omitempty"`
	State          SessionState `db:"state" json:"state"`
	IPAddress      string       `db:"ip_address" json:"ipAddress"`
	UserAgent      string       `db:"user_agent" json:"userAgent"`
	DeviceType     string       `db:"device_type" json:"deviceType"`
	DeviceOS       string       `db:"device_os" json:"deviceOs"`
	Browser        string       `db:"browser" json:"browser"`
	BrowserVersion string       `db:"browser_version" json:"browserVersion"`
	Country        string       `db:"country" json:"country"`
	Region         string       `db:"region" json:"region"`
	City           string       `db:"city" json:"city"`
	Timezone       string       `db:"timezone" json:"timezone"`
	EntryPage      string       `db:"entry_page" json:"entryPage"`
	CurrentPage    string       `db:"current_page" json:"currentPage"`
	Referrer       *string      `db:"referrer" json:"referrer,omitempty"`

	ConversionType     *string    `db:"conversion_type" json:"-"`
	ConversionValue    *float64   `db:"conversion_value" json:"-"`
	ConversionCurrency *string    `db:"conversion_currency" json:"-"`
	ConvertedAt        *time.Time `db:"converted_at" json:"-"`

	// Version is bumped on every accepted append and doubles as the
	// per-session record sequence.
	Version      int64      `db:"version" json:"-"`
	StartTime    time.Time  `db:"start_time" json:"startTime"`
	LastActivity time.Time  `db:"last_activity" json:"lastActivity"`
	EndTime      *time.Time `db:"end_time" json:"endTime,omitempty"`
}

// IsActive reports whether the session has not reached the terminal state.
// It flips true -> false exactly once, on the ENDED transition.
func (s *Session) IsActive() bool {
	return s.State != SessionStateEnded
}

// Duration is always derived, never stored: endTime (or lastActivity while
// the session is live) minus startTime.
func (s *Session) Duration() time.Duration {
	if s.EndTime != nil {
		return s.EndTime.Sub(s.StartTime)
	}
	return s.LastActivity.Sub(s.StartTime)
}

func (s *Session) Conversion() *Conversion {
	if s.ConversionType == nil {
		return nil
	}
	conv := Conversion{
		SessionID: s.ID,
		Type:      *s.ConversionType,
	}
	if s.ConversionValue != nil {
		conv.Value = *s.ConversionValue
	}
	if s.ConversionCurrency != nil {
		conv.Currency = *s.ConversionCurrency
	}
	if s.ConvertedAt != nil {
		conv.Timestamp = *s.ConvertedAt
	}
	return &conv
}

type CreateSessionParams struct {
	ID             string
	UserID         *string
	IPAddress      string
	UserAgent      string
	DeviceType     string
	DeviceOS       string
	Browser        string
	BrowserVersion string
	Country        string
	Region         string
	City           string
	Timezone       string
	EntryPage      string
	Referrer       *string
	StartTime      time.Time
}

type PageView struct {
	SessionID string    `db:"session_id" json:"sessionId"`
	Seq       int64     `db:"seq" json:"seq"`
	URL       string    `db:"url" json:"url"`
	Title     string    `db:"title" json:"title"`
	Timestamp time.Time `db:"ts" json:"timestamp"`
}

type Event struct {
	SessionID string           `db:"session_id" json:"sessionId"`
	Seq       int64            `db:"seq" json:"seq"`
	Type      string           `db:"event_type" json:"type"`
	Name      string           `db:"name" json:"name"`
	Data      *json.RawMessage `db:"data" json:"data,omitempty"`
	Timestamp time.Time        `db:"ts" json:"timestamp"`
}

type Conversion struct {
	SessionID string    `json:"sessionId"`
	Type      string    `json:"type"`
	Value     float64   `json:"value"`
	Currency  string    `json:"currency"`
	Timestamp time.Time `json:"timestamp"`
}

// SessionDetail is the drill-down view: the session row plus its full
// append-only history.
type SessionDetail struct {
	Session
	Pages  []PageView `json:"pages"`
	Events []Event    `json:"events"`
}
