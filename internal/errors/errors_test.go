package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppErrorIsMapsTypes(t *testing.T) {
	err := NotFound("chat.get", "abc", errors.New("no such session"))
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.False(t, errors.Is(err, ErrInvalidInput))
	assert.Equal(t, "chat.get failed on abc: no such session", err.Error())

	wrapped := fmt.Errorf("handler: %w", Invalid("chat.send", ErrInvalidInput))
	assert.True(t, errors.Is(wrapped, ErrInvalidInput))
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, http.StatusOK},
		{"not found", NotFound("op", "x", errors.New("gone")), http.StatusNotFound},
		{"sentinel invalid", fmt.Errorf("bad: %w", ErrInvalidInput), http.StatusBadRequest},
		{"unavailable", Unavailable("op", "redis", errors.New("down")), http.StatusServiceUnavailable},
		{"timeout", New(ErrorTypeTimeout, "op", "", errors.New("slow")), http.StatusGatewayTimeout},
		{"plain", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HTTPStatus(tt.err))
		})
	}
}

func TestCode(t *testing.T) {
	assert.Equal(t, "validation", Code(Invalid("op", errors.New("x"))))
	assert.Equal(t, "not_found", Code(fmt.Errorf("w: %w", ErrNotFound)))
	assert.Equal(t, "internal", Code(errors.New("x")))
}
