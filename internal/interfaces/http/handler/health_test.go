package handler

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/cashflow/backend/internal/interfaces/http/dto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pingerFunc func(ctx context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestSystemHandler_Health(t *testing.T) {
	t.Run("fixture source", func(t *testing.T) {
		h := NewSystemHandler("1.0.0", "fixture", nil)
		c, w := newTestContext()

		h.Health(c)

		assert.Equal(t, http.StatusOK, w.Code)
		data := decodeResponse(t, w).Data.(map[string]any)
		assert.Equal(t, "ok", data["status"])
		assert.Equal(t, "fixture", data["source"])
		assert.NotContains(t, data, "database")
	})

	t.Run("database reachable", func(t *testing.T) {
		var pinged bool
		h := NewSystemHandler("1.0.0", "database", pingerFunc(func(ctx context.Context) error {
			_, hasDeadline := ctx.Deadline()
			pinged = hasDeadline
			return nil
		}))
		c, w := newTestContext()

		h.Health(c)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.True(t, pinged)
		assert.Equal(t, "ok", decodeResponse(t, w).Data.(map[string]any)["database"])
	})

	t.Run("database down", func(t *testing.T) {
		h := NewSystemHandler("1.0.0", "database", pingerFunc(func(context.Context) error {
			return errors.New("connection refused")
		}))
		c, w := newTestContext()

		h.Health(c)

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		resp := decodeResponse(t, w)
		assert.False(t, resp.Success)
		require.NotNil(t, resp.Error)
		assert.Equal(t, dto.ErrCodeServiceUnavailable, resp.Error.Code)
		assert.Equal(t, "degraded", resp.Data.(map[string]any)["status"])
	})
}

func TestSystemHandler_GetSystemInfo(t *testing.T) {
	h := NewSystemHandler("1.2.3", "database", nil)
	c, w := newTestContext()

	h.GetSystemInfo(c)

	assert.Equal(t, http.StatusOK, w.Code)
	data := decodeResponse(t, w).Data.(map[string]any)
	assert.Equal(t, "1.2.3", data["version"])
	assert.Equal(t, "database", data["source"])
	assert.NotEmpty(t, data["go_version"])
}
