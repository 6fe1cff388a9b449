package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromStatusCode(t *testing.T) {
	tests := []struct {
		code int
		want ErrorType
	}{
		{0, ErrorTypeNetwork},
		{429, ErrorTypeRateLimit},
		{403, ErrorTypeForbidden},
		{404, ErrorTypeNotFound},
		{500, ErrorTypeServerError},
		{503, ErrorTypeServerError},
		{400, ErrorTypeUnknown},
		{302, ErrorTypeUnknown},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FromStatusCode(tt.code), "status %d", tt.code)
	}
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(ErrorTypeNetwork))
	assert.True(t, IsRetryable(ErrorTypeRateLimit))
	assert.True(t, IsRetryable(ErrorTypeForbidden))
	assert.True(t, IsRetryable(ErrorTypeMalformedBody))
	assert.False(t, IsRetryable(ErrorTypeNotFound))
	assert.False(t, IsRetryable(ErrorTypeServerError))
	assert.False(t, IsRetryable(ErrorTypeEmptyResponse))
	assert.False(t, IsRetryable(ErrorTypeParsing))
}

func TestTypeOfWrapped(t *testing.T) {
	base := New(ErrorTypeNotFound, 404, "thread %s not found", "abc")
	wrapped := fmt.Errorf("fetch root: %w", base)

	assert.Equal(t, "not_found error (code 404): thread abc not found", base.Error())
	assert.Equal(t, ErrorTypeNotFound, TypeOf(wrapped))
	assert.True(t, Is(wrapped, ErrorTypeNotFound))
	assert.False(t, Is(wrapped, ErrorTypeNetwork))
	assert.Equal(t, ErrorTypeUnknown, TypeOf(errors.New("plain")))
}
