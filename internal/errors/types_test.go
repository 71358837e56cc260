package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *AppError
		expected string
	}{
		{
			name: "error without cause",
			err: &AppError{
				Code:    ErrCodeInvalidConfig,
				Message: "configuration is invalid",
			},
			expected: "INVALID_CONFIG: configuration is invalid",
		},
		{
			name: "error with cause",
			err: &AppError{
				Code:    ErrCodeParseFailure,
				Message: "failed to parse backup XML",
				Cause:   errors.New("unexpected EOF"),
			},
			expected: "PARSE_FAILURE: failed to parse backup XML: unexpected EOF",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.err.Error())
		})
	}
}

func TestAppError_Unwrap(t *testing.T) {
	cause := errors.New("underlying error")
	err := Wrap(cause, ErrCodeInternalError, "something went wrong")

	assert.Equal(t, cause, err.Unwrap())
	assert.True(t, errors.Is(err, cause))
}

func TestAppError_WithContext(t *testing.T) {
	err := New(ErrCodeInvalidInput, "validation failed")

	result := err.WithContext("field", "file").WithContext("value", "notes.txt")

	assert.Equal(t, err, result)
	assert.Len(t, err.Context, 2)
	assert.Equal(t, "file", err.Context["field"])
}

func TestGetCode(t *testing.T) {
	assert.Equal(t, ErrCodeParseFailure, GetCode(NewParseFailure(errors.New("x"))))
	assert.Equal(t, ErrCodeInternalError, GetCode(errors.New("plain")))

	wrapped := fmt.Errorf("load: %w", NewReadFailure("a.xml", errors.New("boom")))
	assert.Equal(t, ErrCodeReadFailure, GetCode(wrapped))
}

func TestGetUserMessage(t *testing.T) {
	assert.Equal(t, "The selected file is not a valid SMS backup", GetUserMessage(NewParseFailure(nil)))
	assert.Equal(t, "An internal error occurred", GetUserMessage(errors.New("plain")))
	assert.Equal(t, "An internal error occurred", GetUserMessage(New(ErrCodeInternalError, "no user message")))
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{"read failure", NewReadFailure("a.xml", nil), http.StatusBadRequest},
		{"invalid input", NewValidationError("file", "a.txt", "must be .xml"), http.StatusBadRequest},
		{"parse failure", NewParseFailure(nil), http.StatusUnprocessableEntity},
		{"database", NewDatabaseError("insert", errors.New("locked")), http.StatusInternalServerError},
		{"plain", errors.New("plain"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, HTTPStatus(tt.err))
		})
	}
}

func TestNewReadFailure(t *testing.T) {
	cause := errors.New("permission denied")
	err := NewReadFailure("backup.xml", cause)

	require.NotNil(t, err)
	assert.Equal(t, ErrCodeReadFailure, err.Code)
	assert.Equal(t, "backup.xml", err.Context["file"])
	assert.ErrorIs(t, err, cause)
}
