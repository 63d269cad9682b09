package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/dmitrymomot/foundation/pkg/useragent"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/sitepulse/tracking-server-go/internal/broker"
	apperrors "github.com/sitepulse/tracking-server-go/internal/errors"
	"github.com/sitepulse/tracking-server-go/internal/geo"
	"github.com/sitepulse/tracking-server-go/internal/metrics"
	"github.com/sitepulse/tracking-server-go/internal/model"
	"github.com/sitepulse/tracking-server-go/internal/repository"
	"github.com/sitepulse/tracking-server-go/internal/util"
)

// Broadcaster is the live fan-out capability. Publish failures are the
// broadcaster's problem; the ingestion path only logs them.
type Broadcaster interface {
	Publish(ctx context.Context, event broker.Event) error
}

// Capture carries the request-scoped context a handler extracts for
// session creation: client address, user agent, referrer, geography.
type Capture struct {
	UserID    *string
	IPAddress string
	UserAgent string
	Referrer  *string
	Location  geo.Location
}

type TrackingService struct {
	sessions    repository.SessionRepository
	broadcaster Broadcaster
	anonymizeIP bool
}

func NewTrackingService(sessions repository.SessionRepository, broadcaster Broadcaster, anonymizeIP bool) *TrackingService {
	return &TrackingService{
		sessions:    sessions,
		broadcaster: broadcaster,
		anonymizeIP: anonymizeIP,
	}
}

// StartSession creates a session for an unseen id or touches an existing
// one. An empty sessionID gets a server-issued UUID. Touching an idle
// session reactivates it; touching an ended session fails.
func (s *TrackingService) StartSession(ctx context.Context, sessionID, pageURL string, cap Capture) (*model.Session, error) {
	if pageURL == "" {
		return nil, apperrors.MissingRequired("pageUrl")
	}
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	now := time.Now()
	session, err := s.sessions.Touch(ctx, sessionID, now)
	if errors.Is(err, repository.ErrSessionNotFound) {
		return s.createSession(ctx, sessionID, pageURL, cap, now)
	}
	if err != nil {
		return nil, s.storeError(err, sessionID)
	}
	return session, nil
}

// TrackPageview appends a pageview record. An unseen sessionId implicitly
// starts a session with this page as the entry page.
func (s *TrackingService) TrackPageview(ctx context.Context, sessionID, url, title string, cap Capture) (*model.PageView, error) {
	if sessionID == "" {
		return nil, apperrors.MissingRequired("sessionId")
	}
	if url == "" {
		return nil, apperrors.MissingRequired("url")
	}

	now := time.Now()
	page, session, err := s.sessions.AppendPageview(ctx, sessionID, url, title, now)
	if errors.Is(err, repository.ErrSessionNotFound) {
		if _, cerr := s.createSession(ctx, sessionID, url, cap, now); cerr != nil {
			return nil, cerr
		}
		page, session, err = s.sessions.AppendPageview(ctx, sessionID, url, title, now)
	}
	if err != nil {
		return nil, s.storeError(err, sessionID)
	}

	metrics.RecordsIngested.WithLabelValues(string(model.RecordTypePageview)).Inc()
	s.publish(ctx, string(model.RecordTypePageview), session, page.Timestamp, page)
	return page, nil
}

// TrackEvent appends a custom event record. The opaque data payload is
// bounds-checked before any write.
func (s *TrackingService) TrackEvent(ctx context.Context, sessionID, eventType, name string, data json.RawMessage, cap Capture) (*model.Event, error) {
	if sessionID == "" {
		return nil, apperrors.MissingRequired("sessionId")
	}
	if eventType == "" {
		return nil, apperrors.MissingRequired("event")
	}
	if name == "" {
		return nil, apperrors.MissingRequired("name")
	}
	if err := util.ValidateEventData(data); err != nil {
		metrics.RecordsRejected.WithLabelValues("payload").Inc()
		return nil, apperrors.PayloadTooLarge(err.Error())
	}

	var payload *json.RawMessage
	if len(data) > 0 {
		payload = &data
	}

	now := time.Now()
	event, session, err := s.sessions.AppendEvent(ctx, sessionID, eventType, name, payload, now)
	if errors.Is(err, repository.ErrSessionNotFound) {
		if _, cerr := s.createSession(ctx, sessionID, "", cap, now); cerr != nil {
			return nil, cerr
		}
		event, session, err = s.sessions.AppendEvent(ctx, sessionID, eventType, name, payload, now)
	}
	if err != nil {
		return nil, s.storeError(err, sessionID)
	}

	metrics.RecordsIngested.WithLabelValues(string(model.RecordTypeEvent)).Inc()
	s.publish(ctx, string(model.RecordTypeEvent), session, event.Timestamp, event)
	return event, nil
}

// TrackConversion records the session's conversion. A second call is a
// no-op returning the stored conversion; alreadyRecorded distinguishes it.
func (s *TrackingService) TrackConversion(ctx context.Context, sessionID, convType string, value float64, currency string, cap Capture) (conv *model.Conversion, alreadyRecorded bool, err error) {
	if sessionID == "" {
		return nil, false, apperrors.MissingRequired("sessionId")
	}
	if convType == "" {
		return nil, false, apperrors.MissingRequired("type")
	}

	now := time.Now()
	conv, err = s.sessions.RecordConversion(ctx, sessionID, convType, value, currency, now)
	if errors.Is(err, repository.ErrSessionNotFound) {
		if _, cerr := s.createSession(ctx, sessionID, "", cap, now); cerr != nil {
			return nil, false, cerr
		}
		conv, err = s.sessions.RecordConversion(ctx, sessionID, convType, value, currency, now)
	}
	if errors.Is(err, repository.ErrConversionExists) {
		session, ferr := s.sessions.FindByID(ctx, sessionID)
		if ferr != nil {
			return nil, false, s.storeError(ferr, sessionID)
		}
		if session == nil {
			return nil, false, apperrors.SessionNotFound(sessionID)
		}
		return session.Conversion(), true, nil
	}
	if err != nil {
		return nil, false, s.storeError(err, sessionID)
	}

	metrics.RecordsIngested.WithLabelValues(string(model.RecordTypeConversion)).Inc()

	session, ferr := s.sessions.FindByID(ctx, sessionID)
	if ferr == nil && session != nil {
		s.publish(ctx, string(model.RecordTypeConversion), session, conv.Timestamp, conv)
	}

	log.Info().
		Str("sessionId", sessionID).
		Str("type", convType).
		Float64("value", value).
		Msg("conversion recorded")

	return conv, false, nil
}

// EndSession handles the explicit end signal (page-unload beacon). Ending
// an already ended session is a no-op.
func (s *TrackingService) EndSession(ctx context.Context, sessionID string) (*model.Session, error) {
	if sessionID == "" {
		return nil, apperrors.MissingRequired("sessionId")
	}

	session, err := s.sessions.End(ctx, sessionID, time.Now())
	if err != nil {
		return nil, s.storeError(err, sessionID)
	}

	log.Info().
		Str("sessionId", session.ID).
		Dur("duration", session.Duration()).
		Msg("session ended")

	s.publish(ctx, "session_ended", session, time.Now(), map[string]any{
		"duration": session.Duration().Seconds(),
	})
	return session, nil
}

func (s *TrackingService) createSession(ctx context.Context, sessionID, entryPage string, cap Capture, now time.Time) (*model.Session, error) {
	if entryPage == "" {
		// Sessions created implicitly by an event or conversion carry no
		// page URL.
		entryPage = "unknown"
	}
	params := model.CreateSessionParams{
		ID:        sessionID,
		UserID:    cap.UserID,
		IPAddress: cap.IPAddress,
		UserAgent: cap.UserAgent,
		Country:   cap.Location.Country,
		Region:    cap.Location.Region,
		City:      cap.Location.City,
		Timezone:  cap.Location.Timezone,
		EntryPage: entryPage,
		Referrer:  cap.Referrer,
		StartTime: now,
	}
	if s.anonymizeIP {
		params.IPAddress = util.AnonymizeIP(params.IPAddress)
	}
	fillDeviceInfo(&params, cap.UserAgent)

	session, err := s.sessions.Create(ctx, params)
	if err != nil {
		return nil, apperrors.StoreUnavailable(err)
	}

	metrics.SessionsStarted.Inc()
	log.Info().
		Str("sessionId", session.ID).
		Str("deviceType", session.DeviceType).
		Str("country", session.Country).
		Str("entryPage", session.EntryPage).
		Msg("session started")

	s.publish(ctx, "session_started", session, session.StartTime, map[string]any{
		"entryPage":  session.EntryPage,
		"deviceType": session.DeviceType,
		"country":    session.Country,
	})
	return session, nil
}

// publish pushes the record to the live channel after the durable write.
// Fire and forget: failures are logged and dropped, never surfaced.
func (s *TrackingService) publish(ctx context.Context, eventType string, session *model.Session, ts time.Time, data any) {
	if s.broadcaster == nil {
		return
	}

	raw, err := json.Marshal(data)
	if err != nil {
		log.Error().Err(err).Str("event", eventType).Msg("failed to marshal live event")
		return
	}

	event := broker.Event{
		Type:      eventType,
		SessionID: session.ID,
		IP:        session.IPAddress,
		UserAgent: session.UserAgent,
		Timestamp: ts,
		Data:      raw,
	}
	if session.UserID != nil {
		event.UserID = *session.UserID
	}

	if err := s.broadcaster.Publish(ctx, event); err != nil {
		log.Warn().Err(err).
			Str("sessionId", session.ID).
			Str("event", eventType).
			Msg("live broadcast failed, event dropped")
	}
}

func (s *TrackingService) storeError(err error, sessionID string) error {
	switch {
	case errors.Is(err, repository.ErrSessionNotFound):
		metrics.RecordsRejected.WithLabelValues("not_found").Inc()
		return apperrors.SessionNotFound(sessionID)
	case errors.Is(err, repository.ErrSessionEnded):
		metrics.RecordsRejected.WithLabelValues("ended").Inc()
		return apperrors.SessionEnded(sessionID)
	default:
		metrics.RecordsRejected.WithLabelValues("store").Inc()
		return apperrors.StoreUnavailable(err)
	}
}

func fillDeviceInfo(params *model.CreateSessionParams, rawUA string) {
	params.DeviceType = "unknown"
	params.DeviceOS = "unknown"
	params.Browser = "unknown"

	ua, err := useragent.Parse(rawUA)
	if err != nil {
		return
	}
	params.DeviceType = string(ua.DeviceType())
	params.DeviceOS = string(ua.OS())
	params.Browser = ua.BrowserName()
	params.BrowserVersion = ua.BrowserVer()
}
