package repository

import (
	"context"
	"time"

	"github.com/sitepulse/tracking-server-go/internal/database"
	"github.com/sitepulse/tracking-server-go/internal/model"
)

// StatsRepository answers read-only aggregate queries over the session
// store. Nothing here mutates state.
type StatsRepository interface {
	Overview(ctx context.Context) (*model.Overview, error)
	TopPages(ctx context.Context, limit int) ([]model.PageStat, error)
	Geography(ctx context.Context) ([]model.GeoStat, error)
	Devices(ctx context.Context) ([]model.DeviceStat, error)
	ActiveSince(ctx context.Context, since time.Time) ([]model.Session, error)
	List(ctx context.Context, limit, offset int) ([]model.Session, error)
}

type statsRepo struct {
	db *database.DB
}

func NewStatsRepository(db *database.DB) StatsRepository {
	return &statsRepo{db: db}
}

func (r *statsRepo) Overview(ctx context.Context) (*model.Overview, error) {
	var overview model.Overview
	err := r.db.GetContext(ctx, &overview, `
		SELECT
			COUNT(*) AS total_sessions,
			COUNT(*) FILTER (WHERE state = 'active') AS active_sessions,
			COUNT(*) FILTER (WHERE state = 'idle') AS idle_sessions,
			COUNT(*) FILTER (WHERE state = 'ended') AS ended_sessions,
			COUNT(*) FILTER (WHERE conversion_type IS NOT NULL) AS converted_sessions,
			(SELECT COUNT(*) FROM session_pages) AS total_pageviews,
			(SELECT COUNT(*) FROM session_events) AS total_events
		FROM sessions
	`)
	if err != nil {
		return nil, err
	}
	return &overview, nil
}

func (r *statsRepo) TopPages(ctx context.Context, limit int) ([]model.PageStat, error) {
	var pages []model.PageStat
	err := r.db.SelectContext(ctx, &pages, `
		SELECT url, MAX(title) AS title, COUNT(*) AS view_count
		FROM session_pages
		GROUP BY url
		ORDER BY view_count DESC, url
		LIMIT $1
	`, limit)
	return pages, err
}

func (r *statsRepo) Geography(ctx context.Context) ([]model.GeoStat, error) {
	var stats []model.GeoStat
	err := r.db.SelectContext(ctx, &stats, `
		SELECT country, region, COUNT(*) AS session_count
		FROM sessions
		GROUP BY country, region
		ORDER BY session_count DESC, country, region
	`)
	return stats, err
}

func (r *statsRepo) Devices(ctx context.Context) ([]model.DeviceStat, error) {
	var stats []model.DeviceStat
	err := r.db.SelectContext(ctx, &stats, `
		SELECT device_type, browser, COUNT(*) AS session_count
		FROM sessions
		GROUP BY device_type, browser
		ORDER BY session_count DESC, device_type, browser
	`)
	return stats, err
}

func (r *statsRepo) ActiveSince(ctx context.Context, since time.Time) ([]model.Session, error) {
	var sessions []model.Session
	err := r.db.SelectContext(ctx, &sessions, `
		SELECT * FROM sessions
		WHERE state <> 'ended' AND last_activity >= $1
		ORDER BY last_activity DESC
	`, since)
	return sessions, err
}

func (r *statsRepo) List(ctx context.Context, limit, offset int) ([]model.Session, error) {
	var sessions []model.Session
	err := r.db.SelectContext(ctx, &sessions, `
		SELECT * FROM sessions
		ORDER BY start_time DESC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	return sessions, err
}
