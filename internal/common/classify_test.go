package common

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/damoang/blok-client/pkg/apiclient"
)

func TestClassifyResponse(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		msg      string
		category Category
		message  string
		sentinel error
	}{
		{"network failure", 0, "network error", CategoryNetwork, MsgConnection, ErrNetwork},
		{"bad request with server message", 400, "title is required", CategoryError, "title is required", ErrInvalidInput},
		{"bad request without message", 400, "", CategoryError, MsgBadRequest, ErrInvalidInput},
		{"generic http text replaced", 404, "HTTP Error: 404", CategoryError, MsgNotFound, ErrNotFound},
		{"unauthorized", 401, "", CategoryError, MsgUnauthorized, ErrUnauthorized},
		{"forbidden keeps server text", 403, "admins only", CategoryError, "admins only", ErrForbidden},
		{"rate limited", 429, "slow down", CategoryWarning, MsgRateLimited, ErrRateLimited},
		{"internal error", 500, "NullPointerException", CategoryNetwork, MsgServerError, ErrServer},
		{"bad gateway", 502, "", CategoryNetwork, MsgUnavailable, ErrServer},
		{"unavailable", 503, "", CategoryNetwork, MsgUnavailable, ErrServer},
		{"other 5xx", 507, "", CategoryNetwork, MsgServerError, ErrServer},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ClassifyResponse(tt.status, tt.msg)
			assert.Equal(t, tt.category, got.Category)
			assert.Equal(t, tt.message, got.Message)
			assert.Equal(t, tt.status, got.Status)
			assert.ErrorIs(t, got, tt.sentinel)
		})
	}
}

func TestClassifyError(t *testing.T) {
	t.Run("nil", func(t *testing.T) {
		assert.Nil(t, ClassifyError(nil))
	})

	t.Run("deadline", func(t *testing.T) {
		got := ClassifyError(fmt.Errorf("get post: %w", context.DeadlineExceeded))
		assert.Equal(t, CategoryNetwork, got.Category)
		assert.Equal(t, MsgTimeout, got.Message)
		assert.ErrorIs(t, got, ErrNetwork)
	})

	t.Run("connection refused", func(t *testing.T) {
		got := ClassifyError(errors.New("dial tcp 127.0.0.1:8080: connect: connection refused"))
		assert.Equal(t, CategoryNetwork, got.Category)
		assert.Equal(t, MsgConnection, got.Message)
	})

	t.Run("plain error keeps message", func(t *testing.T) {
		got := ClassifyError(errors.New("title too long"))
		assert.Equal(t, CategoryError, got.Category)
		assert.Equal(t, "title too long", got.Message)
	})

	t.Run("already classified", func(t *testing.T) {
		orig := ClassifyResponse(429, "")
		got := ClassifyError(fmt.Errorf("wrapped: %w", orig))
		assert.Same(t, orig, got)
	})
}

func TestNotPermitted(t *testing.T) {
	err := NotPermitted()
	assert.ErrorIs(t, err, ErrNotPermitted)
	assert.Equal(t, CategoryError, err.Category)
}

func TestFromResponse(t *testing.T) {
	assert.Nil(t, FromResponse(&apiclient.Response{Status: 200, Body: []byte(`{}`), IsJSON: true}))
	assert.Nil(t, FromResponse(&apiclient.Response{Status: 204}))

	got := FromResponse(nil)
	assert.Equal(t, CategoryNetwork, got.Category)
	assert.ErrorIs(t, got, ErrNetwork)

	got = FromResponse(&apiclient.Response{Error: apiclient.NetworkError})
	assert.Equal(t, MsgConnection, got.Message)

	got = FromResponse(&apiclient.Response{Status: 404, Error: "Post not found"})
	assert.Equal(t, "Post not found", got.Message)
	assert.ErrorIs(t, got, ErrNotFound)
}
