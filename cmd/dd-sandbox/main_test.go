package main

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ddtools/datadomain_sdk_go/internal/ddapi"
	"github.com/ddtools/datadomain_sdk_go/pkg/datadomain/mock"
)

func TestParseFailConfig(t *testing.T) {
	cfg, err := parseFailConfig("")
	require.NoError(t, err)
	assert.Equal(t, failConfig{}, cfg)

	cfg, err = parseFailConfig("rate=0.25, code=503")
	require.NoError(t, err)
	assert.Equal(t, failConfig{rate: 0.25, code: 503}, cfg)

	cfg, err = parseFailConfig("rate=1")
	require.NoError(t, err)
	assert.Equal(t, http.StatusInternalServerError, cfg.code)

	for _, bad := range []string{"rate", "rate=x", "rate=2", "code=abc", "mode=1"} {
		_, err := parseFailConfig(bad)
		assert.Error(t, err, bad)
	}
}

func TestParseCommandFailures(t *testing.T) {
	got, err := parseCommandFailures("net config=1; replication initialize = 2")
	require.NoError(t, err)
	assert.Equal(t, []commandFailure{{"net config", 1}, {"replication initialize", 2}}, got)

	for _, bad := range []string{"net config", "=1", "net config=0", "net config=x"} {
		_, err := parseCommandFailures(bad)
		assert.Error(t, err, bad)
	}
}

func TestMiddlewareInjectsFailures(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := withMiddleware(logger, 0, failConfig{rate: 1, code: http.StatusServiceUnavailable}, mock.New(mock.Config{}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/rest/v1.0/dd-systems/0/mtrees", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "failure injected", ddapi.ExtractDetails(rec.Body.Bytes()))
}

func TestMiddlewarePassesThrough(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := withMiddleware(logger, 0, failConfig{}, mock.New(mock.Config{}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/rest/v1.0/dd-systems/0/mtrees", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
