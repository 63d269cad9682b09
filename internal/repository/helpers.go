package repository

import (
	"database/sql"
	"errors"
)

// HandleNotFound converts sql.ErrNoRows to a nil result without error.
// Lookups like FindByID treat a missing session as an expected outcome
// (the caller decides whether to create one), not a failure.
//
//	var session model.Session
//	err := r.db.GetContext(ctx, &session, query, id)
//	return HandleNotFound(&session, err)
func HandleNotFound[T any](result *T, err error) (*T, error) {
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return result, nil
}
