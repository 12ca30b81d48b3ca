package server

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"example.com/mediaserve/internal/http1"
	"example.com/mediaserve/internal/logger"
)

func okFactory(body string) HandlerFactory {
	return func(mediaDir string, lg *logger.Logger) (Handler, error) {
		return HandlerFunc(func(*http1.Request) (*http1.Response, error) {
			return http1.NewResponse(http.StatusOK, "text/plain", []byte(body+":"+mediaDir)), nil
		}), nil
	}
}

func TestHandlerRegistry_RegisterAndCreate(t *testing.T) {
	reg := NewHandlerRegistry()
	require.NoError(t, reg.Register("Echo", okFactory("echo")))

	_, ok := reg.GetFactory("Echo")
	assert.True(t, ok)
	_, ok = reg.GetFactory("Missing")
	assert.False(t, ok)

	h, err := reg.CreateHandler("Echo", "/srv", logger.NewDiscardLogger())
	require.NoError(t, err)
	resp, err := h.Serve(http1.NewRequest("GET", "/", nil, nil))
	require.NoError(t, err)
	assert.Equal(t, "echo:/srv", string(resp.Body()))
}

func TestHandlerRegistry_Errors(t *testing.T) {
	reg := NewHandlerRegistry()
	require.NoError(t, reg.Register("Echo", okFactory("echo")))

	assert.ErrorContains(t, reg.Register("Echo", okFactory("again")), "already registered")
	assert.ErrorContains(t, reg.Register("Nil", nil), "cannot be nil")

	_, err := reg.CreateHandler("Missing", "/srv", logger.NewDiscardLogger())
	assert.ErrorContains(t, err, "no handler factory registered")

	_, err = reg.CreateHandler("Echo", "/srv", nil)
	assert.ErrorContains(t, err, "logger cannot be nil")
}
