package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/sitepulse/tracking-server-go/internal/errors"
	"github.com/sitepulse/tracking-server-go/internal/model"
	"github.com/sitepulse/tracking-server-go/internal/repository"
)

type mockStatsRepo struct {
	overview     model.Overview
	pages        []model.PageStat
	geo          []model.GeoStat
	devices      []model.DeviceStat
	active       []model.Session
	list         []model.Session
	err          error
	overviewHits int
}

func (m *mockStatsRepo) Overview(ctx context.Context) (*model.Overview, error) {
	m.overviewHits++
	if m.err != nil {
		return nil, m.err
	}
	overview := m.overview
	return &overview, nil
}

func (m *mockStatsRepo) TopPages(ctx context.Context, limit int) ([]model.PageStat, error) {
	if m.err != nil {
		return nil, m.err
	}
	if limit < len(m.pages) {
		return m.pages[:limit], nil
	}
	return m.pages, nil
}

func (m *mockStatsRepo) Geography(ctx context.Context) ([]model.GeoStat, error) {
	return m.geo, m.err
}

func (m *mockStatsRepo) Devices(ctx context.Context) ([]model.DeviceStat, error) {
	return m.devices, m.err
}

func (m *mockStatsRepo) ActiveSince(ctx context.Context, since time.Time) ([]model.Session, error) {
	return m.active, m.err
}

func (m *mockStatsRepo) List(ctx context.Context, limit, offset int) ([]model.Session, error) {
	return m.list, m.err
}

var _ repository.StatsRepository = (*mockStatsRepo)(nil)

func TestAnalyticsService_Overview(t *testing.T) {
	ctx := context.Background()

	t.Run("derives conversion rate from counts", func(t *testing.T) {
		stats := &mockStatsRepo{overview: model.Overview{
			TotalSessions:     10,
			ActiveSessions:    3,
			EndedSessions:     7,
			ConvertedSessions: 2,
			TotalPageviews:    41,
		}}
		svc := NewAnalyticsService(stats, newMemSessionRepo())

		report, err := svc.Overview(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(10), report.TotalSessions)
		assert.InDelta(t, 0.2, report.ConversionRate, 1e-9)
	})

	t.Run("zero sessions means zero rate", func(t *testing.T) {
		svc := NewAnalyticsService(&mockStatsRepo{}, newMemSessionRepo())
		report, err := svc.Overview(ctx)
		require.NoError(t, err)
		assert.Zero(t, report.ConversionRate)
	})

	t.Run("reads do not mutate", func(t *testing.T) {
		stats := &mockStatsRepo{overview: model.Overview{TotalSessions: 5, ConvertedSessions: 1}}
		svc := NewAnalyticsService(stats, newMemSessionRepo())

		first, err := svc.Overview(ctx)
		require.NoError(t, err)
		second, err := svc.Overview(ctx)
		require.NoError(t, err)
		assert.Equal(t, first, second)
		assert.Equal(t, 2, stats.overviewHits)
	})

	t.Run("store failure maps to STORE_UNAVAILABLE", func(t *testing.T) {
		svc := NewAnalyticsService(&mockStatsRepo{err: context.DeadlineExceeded}, newMemSessionRepo())
		_, err := svc.Overview(ctx)
		assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeStoreUnavailable))
	})
}

func TestAnalyticsService_Realtime(t *testing.T) {
	stats := &mockStatsRepo{active: []model.Session{
		{ID: "s1", State: model.SessionStateActive},
		{ID: "s2", State: model.SessionStateActive},
	}}
	svc := NewAnalyticsService(stats, newMemSessionRepo())

	snapshot, err := svc.Realtime(context.Background(), 5*time.Minute)
	require.NoError(t, err)
	assert.Len(t, snapshot.ActiveSessions, 2)
	assert.WithinDuration(t, time.Now(), snapshot.AsOf, time.Second)
}

func TestAnalyticsService_SessionDetail(t *testing.T) {
	ctx := context.Background()

	t.Run("returns session with history", func(t *testing.T) {
		repo := newMemSessionRepo()
		tracking := NewTrackingService(repo, nil, false)
		_, err := tracking.TrackPageview(ctx, "s1", "/", "Home", testCapture())
		require.NoError(t, err)
		_, err = tracking.TrackEvent(ctx, "s1", "click", "cta", nil, testCapture())
		require.NoError(t, err)

		svc := NewAnalyticsService(&mockStatsRepo{}, repo)
		detail, err := svc.SessionDetail(ctx, "s1")
		require.NoError(t, err)
		assert.Equal(t, "s1", detail.ID)
		assert.Len(t, detail.Pages, 1)
		assert.Len(t, detail.Events, 1)
	})

	t.Run("unknown id is SESSION_NOT_FOUND", func(t *testing.T) {
		svc := NewAnalyticsService(&mockStatsRepo{}, newMemSessionRepo())
		_, err := svc.SessionDetail(ctx, "missing")
		assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeSessionNotFound))
	})

	t.Run("empty id is rejected", func(t *testing.T) {
		svc := NewAnalyticsService(&mockStatsRepo{}, newMemSessionRepo())
		_, err := svc.SessionDetail(ctx, "")
		assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeMissingRequired))
	})
}

func TestAnalyticsService_TopPages(t *testing.T) {
	stats := &mockStatsRepo{pages: []model.PageStat{
		{URL: "/", Title: "Home", ViewCount: 120},
		{URL: "/pricing", Title: "Pricing", ViewCount: 45},
		{URL: "/docs", Title: "Docs", ViewCount: 12},
	}}
	svc := NewAnalyticsService(stats, newMemSessionRepo())

	pages, err := svc.TopPages(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, pages, 2)
	assert.Equal(t, "/", pages[0].URL)
}
