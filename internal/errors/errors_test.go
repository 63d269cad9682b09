package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError(t *testing.T) {
	t.Run("Error returns formatted string", func(t *testing.T) {
		err := New(ErrCodeSessionNotFound, "Session abc not found")
		assert.Equal(t, "SESSION_NOT_FOUND: Session abc not found", err.Error())
	})

	t.Run("Error with cause includes cause", func(t *testing.T) {
		cause := errors.New("database connection failed")
		err := Wrap(ErrCodeStoreUnavailable, "Session store unavailable", cause)
		assert.Contains(t, err.Error(), "STORE_UNAVAILABLE")
		assert.Contains(t, err.Error(), "Session store unavailable")
		assert.Contains(t, err.Error(), "database connection failed")
	})

	t.Run("WithCause adds cause to error", func(t *testing.T) {
		cause := errors.New("original error")
		err := New(ErrCodeInternal, "Something went wrong").WithCause(cause)
		assert.Equal(t, cause, err.Unwrap())
	})

	t.Run("WithDetails adds details to error", func(t *testing.T) {
		details := map[string]string{"field": "sessionId", "reason": "empty"}
		err := New(ErrCodeValidation, "Validation failed").WithDetails(details)
		assert.Equal(t, details, err.Details)
	})
}

func TestErrorConstructors(t *testing.T) {
	tests := []struct {
		name         string
		constructor  func() *AppError
		expectedCode ErrorCode
	}{
		{"ValidationError", func() *AppError { return ValidationError("test") }, ErrCodeValidation},
		{"InvalidInput", func() *AppError { return InvalidInput("url", "empty") }, ErrCodeInvalidInput},
		{"MissingRequired", func() *AppError { return MissingRequired("sessionId") }, ErrCodeMissingRequired},
		{"PayloadTooLarge", func() *AppError { return PayloadTooLarge("too deep") }, ErrCodePayloadTooLarge},
		{"SessionNotFound", func() *AppError { return SessionNotFound("s1") }, ErrCodeSessionNotFound},
		{"SessionEnded", func() *AppError { return SessionEnded("s1") }, ErrCodeSessionEnded},
		{"ConversionAlreadyRecorded", func() *AppError { return ConversionAlreadyRecorded("s1") }, ErrCodeConversionAlreadyRecorded},
		{"RateLimitExceeded", func() *AppError { return RateLimitExceeded() }, ErrCodeRateLimitExceeded},
		{"Internal", func() *AppError { return Internal("test") }, ErrCodeInternal},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.constructor()
			assert.Equal(t, tc.expectedCode, err.Code)
			assert.NotEmpty(t, err.Message)
		})
	}
}

func TestStoreUnavailable(t *testing.T) {
	t.Run("wraps store error", func(t *testing.T) {
		cause := errors.New("connection refused")
		err := StoreUnavailable(cause)
		assert.Equal(t, ErrCodeStoreUnavailable, err.Code)
		assert.Equal(t, cause, err.Unwrap())
	})
}

func TestGetCode(t *testing.T) {
	t.Run("returns code for AppError", func(t *testing.T) {
		err := SessionEnded("s1")
		assert.Equal(t, ErrCodeSessionEnded, GetCode(err))
	})

	t.Run("returns code for wrapped AppError", func(t *testing.T) {
		err := fmt.Errorf("handling request: %w", SessionEnded("s1"))
		assert.Equal(t, ErrCodeSessionEnded, GetCode(err))
		assert.True(t, IsCode(err, ErrCodeSessionEnded))
	})

	t.Run("returns internal for plain error", func(t *testing.T) {
		assert.Equal(t, ErrCodeInternal, GetCode(errors.New("boom")))
	})
}
