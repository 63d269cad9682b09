package service

import (
	"context"
	"time"

	apperrors "github.com/sitepulse/tracking-server-go/internal/errors"
	"github.com/sitepulse/tracking-server-go/internal/model"
	"github.com/sitepulse/tracking-server-go/internal/repository"
)

// OverviewReport is the dashboard overview: raw counts plus the derived
// conversion rate.
type OverviewReport struct {
	model.Overview
	ConversionRate float64 `json:"conversionRate"`
}

// AnalyticsService answers dashboard queries. Everything here reads the
// session store as of query start; in-flight appends may or may not be
// visible.
type AnalyticsService struct {
	stats    repository.StatsRepository
	sessions repository.SessionRepository
}

func NewAnalyticsService(stats repository.StatsRepository, sessions repository.SessionRepository) *AnalyticsService {
	return &AnalyticsService{
		stats:    stats,
		sessions: sessions,
	}
}

func (s *AnalyticsService) Overview(ctx context.Context) (*OverviewReport, error) {
	overview, err := s.stats.Overview(ctx)
	if err != nil {
		return nil, apperrors.StoreUnavailable(err)
	}
	return &OverviewReport{
		Overview:       *overview,
		ConversionRate: overview.ConversionRate(),
	}, nil
}

func (s *AnalyticsService) Realtime(ctx context.Context, window time.Duration) (*model.RealtimeSnapshot, error) {
	now := time.Now()
	sessions, err := s.stats.ActiveSince(ctx, now.Add(-window))
	if err != nil {
		return nil, apperrors.StoreUnavailable(err)
	}
	return &model.RealtimeSnapshot{
		ActiveSessions: sessions,
		AsOf:           now,
	}, nil
}

func (s *AnalyticsService) Sessions(ctx context.Context, limit, offset int) ([]model.Session, error) {
	sessions, err := s.stats.List(ctx, limit, offset)
	if err != nil {
		return nil, apperrors.StoreUnavailable(err)
	}
	return sessions, nil
}

// SessionDetail returns one session with its full page and event history.
func (s *AnalyticsService) SessionDetail(ctx context.Context, sessionID string) (*model.SessionDetail, error) {
	if sessionID == "" {
		return nil, apperrors.MissingRequired("sessionId")
	}

	session, err := s.sessions.FindByID(ctx, sessionID)
	if err != nil {
		return nil, apperrors.StoreUnavailable(err)
	}
	if session == nil {
		return nil, apperrors.SessionNotFound(sessionID)
	}

	pages, err := s.sessions.ListPages(ctx, sessionID)
	if err != nil {
		return nil, apperrors.StoreUnavailable(err)
	}
	events, err := s.sessions.ListEvents(ctx, sessionID)
	if err != nil {
		return nil, apperrors.StoreUnavailable(err)
	}

	return &model.SessionDetail{
		Session: *session,
		Pages:   pages,
		Events:  events,
	}, nil
}

func (s *AnalyticsService) TopPages(ctx context.Context, limit int) ([]model.PageStat, error) {
	pages, err := s.stats.TopPages(ctx, limit)
	if err != nil {
		return nil, apperrors.StoreUnavailable(err)
	}
	return pages, nil
}

func (s *AnalyticsService) Geography(ctx context.Context) ([]model.GeoStat, error) {
	stats, err := s.stats.Geography(ctx)
	if err != nil {
		return nil, apperrors.StoreUnavailable(err)
	}
	return stats, nil
}

func (s *AnalyticsService) Devices(ctx context.Context) ([]model.DeviceStat, error) {
	stats, err := s.stats.Devices(ctx)
	if err != nil {
		return nil, apperrors.StoreUnavailable(err)
	}
	return stats, nil
}
