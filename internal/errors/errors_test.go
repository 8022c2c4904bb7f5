package errors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError(t *testing.T) {
	t.Run("Error returns formatted string", func(t *testing.T) {
		err := New(ErrCodeInvalidCode, "This pairing code does not exist")
		assert.Equal(t, "INVALID_CODE: This pairing code does not exist", err.Error())
	})

	t.Run("Error with cause includes cause", func(t *testing.T) {
		cause := errors.New("connection refused")
		err := Wrap(ErrCodeStoreUnavailable, "Pairing store is unavailable", cause)
		assert.Contains(t, err.Error(), "STORE_UNAVAILABLE")
		assert.Contains(t, err.Error(), "Pairing store is unavailable")
		assert.Contains(t, err.Error(), "connection refused")
	})

	t.Run("WithCause adds cause to error", func(t *testing.T) {
		cause := errors.New("original error")
		err := New(ErrCodeInternal, "Something went wrong").WithCause(cause)
		assert.Equal(t, cause, err.Unwrap())
	})

	t.Run("WithDetails adds details to error", func(t *testing.T) {
		details := map[string]string{"field": "code", "reason": "must be 6 characters"}
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
		{"Unauthorized", func() *AppError { return Unauthorized("test") }, ErrCodeUnauthorized},
		{"InvalidToken", func() *AppError { return InvalidToken("test") }, ErrCodeInvalidToken},
		{"ValidationError", func() *AppError { return ValidationError("test") }, ErrCodeValidation},
		{"InvalidInput", func() *AppError { return InvalidInput("code", "too short") }, ErrCodeInvalidInput},
		{"MissingRequired", func() *AppError { return MissingRequired("userId") }, ErrCodeMissingRequired},
		{"AlreadyPaired", func() *AppError { return AlreadyPaired() }, ErrCodeAlreadyPaired},
		{"InvalidCode", func() *AppError { return InvalidCode() }, ErrCodeInvalidCode},
		{"SelfPairingNotAllowed", func() *AppError { return SelfPairingNotAllowed() }, ErrCodeSelfPairingNotAllowed},
		{"CodeAlreadyUsed", func() *AppError { return CodeAlreadyUsed() }, ErrCodeCodeAlreadyUsed},
		{"CodeExpired", func() *AppError { return CodeExpired() }, ErrCodeCodeExpired},
		{"RateLimitExceeded", func() *AppError { return RateLimitExceeded() }, ErrCodeRateLimitExceeded},
		{"Internal", func() *AppError { return Internal("test") }, ErrCodeInternal},
		{"StoreUnavailable", func() *AppError { return StoreUnavailable(nil) }, ErrCodeStoreUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.constructor()
			assert.Equal(t, tt.expectedCode, err.Code)
			assert.NotEmpty(t, err.Message)
		})
	}
}

func TestErrorHelpers(t *testing.T) {
	t.Run("IsAppError detects AppError", func(t *testing.T) {
		assert.True(t, IsAppError(AlreadyPaired()))
		assert.False(t, IsAppError(errors.New("plain error")))
	})

	t.Run("AsAppError unwraps nested AppError", func(t *testing.T) {
		wrapped := CodeExpired()
		appErr, ok := AsAppError(wrapped)
		assert.True(t, ok)
		assert.Equal(t, ErrCodeCodeExpired, appErr.Code)
	})

	t.Run("GetCode falls back to internal", func(t *testing.T) {
		assert.Equal(t, ErrCodeInvalidCode, GetCode(InvalidCode()))
		assert.Equal(t, ErrCodeInternal, GetCode(errors.New("plain error")))
	})
}
