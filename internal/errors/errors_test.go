package errors

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCodeHTTPStatus(t *testing.T) {
	tests := []struct {
		code   Code
		status int
	}{
		{CodeNotFound, http.StatusNotFound},
		{CodeConflict, http.StatusConflict},
		{CodeInvalidState, http.StatusConflict},
		{CodeValidation, http.StatusBadRequest},
		{CodeForbidden, http.StatusForbidden},
		{CodeUnauthorized, http.StatusUnauthorized},
		{CodeInternal, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.status, tt.code.HTTPStatus())
		})
	}
}

func TestIsMatchesByCode(t *testing.T) {
	err := NotFound("tag not found")
	assert.True(t, Is(err, ErrNotFound))
	assert.False(t, Is(err, ErrConflict))
}

func TestIsMatchesThroughWrapping(t *testing.T) {
	inner := InvalidState("pack is not active")
	wrapped := fmt.Errorf("assigning pack: %w", inner)

	assert.True(t, Is(wrapped, ErrInvalidState))
	assert.False(t, Is(wrapped, ErrValidation))
}

func TestWithCausePreservesCode(t *testing.T) {
	cause := fmt.Errorf("disk full")
	err := Internal("write failed").WithCause(cause)

	assert.True(t, Is(err, ErrInternal))
	assert.Equal(t, cause, Unwrap(err))
	assert.Contains(t, err.Error(), "disk full")
}

func TestWithDetails(t *testing.T) {
	err := Validation("validation failed").WithDetails(map[string]string{"nfc_uid": "is required"})

	assert.Equal(t, CodeValidation, err.Code)
	details, ok := err.Details.(map[string]string)
	assert.True(t, ok)
	assert.Equal(t, "is required", details["nfc_uid"])
}

func TestAsExtractsDomainError(t *testing.T) {
	wrapped := fmt.Errorf("handler: %w", Conflict("pack code already exists"))

	var domainErr *Error
	assert.True(t, As(wrapped, &domainErr))
	assert.Equal(t, CodeConflict, domainErr.Code)
	assert.Equal(t, http.StatusConflict, domainErr.HTTPStatus())
}
