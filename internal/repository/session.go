package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/sitepulse/tracking-server-go/internal/database"
	"github.com/sitepulse/tracking-server-go/internal/model"
)

// Sentinel errors surfaced to the service layer, which maps them onto the
// API error taxonomy.
var (
	ErrSessionNotFound  = errors.New("session not found")
	ErrSessionEnded     = errors.New("session ended")
	ErrConversionExists = errors.New("conversion already recorded")
)

type SessionRepository interface {
	FindByID(ctx context.Context, id string) (*model.Session, error)
	Create(ctx context.Context, params model.CreateSessionParams) (*model.Session, error)
	// Touch bumps lastActivity and reactivates an idle session without
	// appending a record.
	Touch(ctx context.Context, id string, now time.Time) (*model.Session, error)
	AppendPageview(ctx context.Context, id, url, title string, now time.Time) (*model.PageView, *model.Session, error)
	AppendEvent(ctx context.Context, id, eventType, name string, data *json.RawMessage, now time.Time) (*model.Event, *model.Session, error)
	RecordConversion(ctx context.Context, id, convType string, value float64, currency string, now time.Time) (*model.Conversion, error)
	End(ctx context.Context, id string, now time.Time) (*model.Session, error)
	MarkIdle(ctx context.Context, idleSince time.Time) (int64, error)
	EndIdle(ctx context.Context, idleSince time.Time) (int64, error)
	ListPages(ctx context.Context, id string) ([]model.PageView, error)
	ListEvents(ctx context.Context, id string) ([]model.Event, error)
}

type sessionRepo struct {
	db *database.DB
}

func NewSessionRepository(db *database.DB) SessionRepository {
	return &sessionRepo{db: db}
}

func (r *sessionRepo) FindByID(ctx context.Context, id string) (*model.Session, error) {
	var session model.Session
	err := r.db.GetContext(ctx, &session, `
		SELECT * FROM sessions WHERE id = $1
	`, id)
	return HandleNotFound(&session, err)
}

func (r *sessionRepo) Create(ctx context.Context, params model.CreateSessionParams) (*model.Session, error) {
	var session model.Session
	err := r.db.GetContext(ctx, &session, `
		INSERT INTO sessions (
			id, user_id, ip_address, user_agent,
			device_type, device_os, browser, browser_version,
			country, region, city, timezone,
			entry_page, current_page, referrer,
			start_time, last_activity
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $13, $14, $15, $15)
		ON CONFLICT (id) DO NOTHING
		RETURNING *
	`, params.ID, params.UserID, params.IPAddress, params.UserAgent,
		params.DeviceType, params.DeviceOS, params.Browser, params.BrowserVersion,
		params.Country, params.Region, params.City, params.Timezone,
		params.EntryPage, params.Referrer, params.StartTime)
	if errors.Is(err, sql.ErrNoRows) {
		// Lost a create race for the same sessionId; the winner's row is
		// equally valid.
		return r.FindByID(ctx, params.ID)
	}
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *sessionRepo) Touch(ctx context.Context, id string, now time.Time) (*model.Session, error) {
	var session model.Session
	err := r.db.GetContext(ctx, &session, `
		UPDATE sessions SET
			state = 'active',
			last_activity = GREATEST(last_activity, $2)
		WHERE id = $1 AND state <> 'ended'
		RETURNING *
	`, id, now)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, r.notAppendable(ctx, r.db, id)
	}
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *sessionRepo) AppendPageview(ctx context.Context, id, url, title string, now time.Time) (*model.PageView, *model.Session, error) {
	var page model.PageView
	var session *model.Session
	err := r.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		var err error
		session, err = r.bumpVersion(ctx, tx, id, now, &url)
		if err != nil {
			return err
		}
		return tx.GetContext(ctx, &page, `
			INSERT INTO session_pages (session_id, seq, url, title, ts)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING *
		`, id, session.Version, url, title, session.LastActivity)
	})
	if err != nil {
		return nil, nil, err
	}
	return &page, session, nil
}

func (r *sessionRepo) AppendEvent(ctx context.Context, id, eventType, name string, data *json.RawMessage, now time.Time) (*model.Event, *model.Session, error) {
	var event model.Event
	var session *model.Session
	err := r.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		var err error
		session, err = r.bumpVersion(ctx, tx, id, now, nil)
		if err != nil {
			return err
		}
		return tx.GetContext(ctx, &event, `
			INSERT INTO session_events (session_id, seq, event_type, name, data, ts)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING *
		`, id, session.Version, eventType, name, data, session.LastActivity)
	})
	if err != nil {
		return nil, nil, err
	}
	return &event, session, nil
}

func (r *sessionRepo) RecordConversion(ctx context.Context, id, convType string, value float64, currency string, now time.Time) (*model.Conversion, error) {
	var session model.Session
	err := r.db.GetContext(ctx, &session, `
		UPDATE sessions SET
			conversion_type = $2,
			conversion_value = $3,
			conversion_currency = $4,
			converted_at = $5,
			version = version + 1,
			state = 'active',
			last_activity = GREATEST(last_activity, $5)
		WHERE id = $1 AND state <> 'ended' AND conversion_type IS NULL
		RETURNING *
	`, id, convType, value, currency, now)
	if errors.Is(err, sql.ErrNoRows) {
		if err := r.notAppendable(ctx, r.db, id); err != nil {
			return nil, err
		}
		// Session is live but the guard did not match: a conversion is
		// already recorded.
		return nil, ErrConversionExists
	}
	if err != nil {
		return nil, err
	}
	return session.Conversion(), nil
}

func (r *sessionRepo) End(ctx context.Context, id string, now time.Time) (*model.Session, error) {
	var session model.Session
	err := r.db.GetContext(ctx, &session, `
		UPDATE sessions SET
			state = 'ended',
			end_time = $2
		WHERE id = $1 AND state <> 'ended'
		RETURNING *
	`, id, now)
	if errors.Is(err, sql.ErrNoRows) {
		// End beacons get retried by browsers; ending an ended session is
		// a no-op, not an error.
		existing, ferr := r.FindByID(ctx, id)
		if ferr != nil {
			return nil, ferr
		}
		if existing == nil {
			return nil, ErrSessionNotFound
		}
		return existing, nil
	}
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *sessionRepo) MarkIdle(ctx context.Context, idleSince time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE sessions SET state = 'idle'
		WHERE state = 'active' AND last_activity < $1
	`, idleSince)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (r *sessionRepo) EndIdle(ctx context.Context, idleSince time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE sessions SET
			state = 'ended',
			end_time = last_activity
		WHERE state = 'idle' AND last_activity < $1
	`, idleSince)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (r *sessionRepo) ListPages(ctx context.Context, id string) ([]model.PageView, error) {
	var pages []model.PageView
	err := r.db.SelectContext(ctx, &pages, `
		SELECT * FROM session_pages WHERE session_id = $1 ORDER BY seq
	`, id)
	return pages, err
}

func (r *sessionRepo) ListEvents(ctx context.Context, id string) ([]model.Event, error) {
	var events []model.Event
	err := r.db.SelectContext(ctx, &events, `
		SELECT * FROM session_events WHERE session_id = $1 ORDER BY seq
	`, id)
	return events, err
}

// bumpVersion is the single append primitive: the row lock taken by the
// UPDATE serializes concurrent appends for one session, and the returned
// version numbers the record being inserted. ENDED sessions never match,
// so late appends fail before any insert. last_activity is clamped under
// the same lock and stamps the record, so a caller whose clock reading
// lost the lock race cannot move timestamps backwards.
func (r *sessionRepo) bumpVersion(ctx context.Context, tx *sqlx.Tx, id string, now time.Time, currentPage *string) (*model.Session, error) {
	var session model.Session
	err := tx.GetContext(ctx, &session, `
		UPDATE sessions SET
			version = version + 1,
			state = 'active',
			last_activity = GREATEST(last_activity, $2),
			current_page = COALESCE($3, current_page)
		WHERE id = $1 AND state <> 'ended'
		RETURNING *
	`, id, now, currentPage)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, r.notAppendable(ctx, tx, id)
	}
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// notAppendable distinguishes why a guarded update matched no row.
func (r *sessionRepo) notAppendable(ctx context.Context, db database.DBTX, id string) error {
	var state model.SessionState
	err := db.GetContext(ctx, &state, `SELECT state FROM sessions WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrSessionNotFound
	}
	if err != nil {
		return err
	}
	if state == model.SessionStateEnded {
		return ErrSessionEnded
	}
	return nil
}
