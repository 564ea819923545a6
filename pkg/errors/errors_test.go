package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorMessage(t *testing.T) {
	tests := []struct {
		name string
		err  *Error
		want string
	}{
		{"plain", ConfigError("server url missing", nil), "[CONFIG] server url missing"},
		{"with cause", NetworkError("dial", stderrors.New("refused")), "[NETWORK] dial: refused"},
		{"with status", APIError("boom", 500, "oops"), "[API] boom (status 500)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestIsTypeThroughWrapping(t *testing.T) {
	err := fmt.Errorf("outer: %w", NotFoundError("commit", nil))

	assert.True(t, IsType(err, ErrNotFound))
	assert.False(t, IsType(err, ErrNetwork))
	assert.False(t, IsType(nil, ErrNotFound))
	assert.False(t, IsType(stderrors.New("plain"), ErrNotFound))
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"network", NetworkError("timeout", nil), true},
		{"server error", APIError("bad gateway", http.StatusBadGateway, ""), true},
		{"rate limited", APIError("slow down", http.StatusTooManyRequests, ""), true},
		{"unprocessable", APIError("bad", http.StatusUnprocessableEntity, ""), false},
		{"auth", AuthenticationError("denied", nil), false},
		{"not found", NotFoundError("sha", nil), false},
		{"config", ConfigError("url", nil), false},
		{"foreign", stderrors.New("x"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsRetryable(tt.err))
		})
	}
}

func TestFromResponse(t *testing.T) {
	assert.True(t, IsType(FromResponse("x", http.StatusUnauthorized, ""), ErrAuthentication))
	assert.True(t, IsType(FromResponse("x", http.StatusForbidden, ""), ErrAuthentication))
	assert.True(t, IsType(FromResponse("x", http.StatusNotFound, ""), ErrNotFound))

	err := FromResponse("x", http.StatusTeapot, "short and stout")
	require.True(t, IsType(err, ErrAPI))
	assert.Equal(t, http.StatusTeapot, StatusCode(err))
	assert.Equal(t, "short and stout", err.Body)
}

func TestWithContext(t *testing.T) {
	err := ValidationError("bad sha", nil).WithContext("sha", "")
	assert.Equal(t, "", err.Context["sha"])
	assert.Equal(t, 0, StatusCode(stderrors.New("plain")))
}
