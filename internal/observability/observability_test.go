package observability

import (
	"context"
	"errors"
	"testing"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/upb/jobtracker/internal/shared"
)

func TestNewLogger(t *testing.T) {
	tests := []struct {
		name    string
		level   string
		format  string
		wantErr bool
	}{
		{"json info", "info", "json", false},
		{"console debug", "debug", "console", false},
		{"default format", "warn", "", false},
		{"upper case level", "ERROR", "json", false},
		{"bad level", "verbose", "json", true},
		{"bad format", "info", "xml", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, err := NewLogger(tt.level, tt.format)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, logger)
		})
	}
}

func TestNewLogger_Level(t *testing.T) {
	logger, err := NewLogger("warn", "json")
	require.NoError(t, err)

	assert.False(t, logger.Core().Enabled(zapcore.InfoLevel))
	assert.True(t, logger.Core().Enabled(zapcore.WarnLevel))
}

func TestRequestLogger(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	base := zap.New(core)

	ctx := context.WithValue(context.Background(), chimiddleware.RequestIDKey, "req-42")
	RequestLogger(ctx, base).Info("with id")
	RequestLogger(context.Background(), base).Info("without id")

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, "req-42", entries[0].ContextMap()["request_id"])
	assert.NotContains(t, entries[1].ContextMap(), "request_id")
}

func TestAuthMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := NewAuthMetrics(reg)
	require.NoError(t, err)

	m.ObserveAuthentication("auth0", nil, 10*time.Millisecond)
	m.ObserveAuthentication("auth0", shared.NewAuthError(shared.CodeInvalidToken, "bad"), time.Millisecond)
	m.ObserveAuthentication("", errors.New("boom"), time.Millisecond)
	m.IdentityProvisioned()

	assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues("auth0", OutcomeSuccess, "")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues("auth0", OutcomeFailure, "invalid_token")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues("unknown", OutcomeFailure, "internal")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.provisioned))
	assert.Equal(t, 2, testutil.CollectAndCount(m.duration))
}

func TestAuthMetrics_DuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := NewAuthMetrics(reg)
	require.NoError(t, err)

	_, err = NewAuthMetrics(reg)
	assert.Error(t, err)
}

func TestAuthMetrics_Nil(t *testing.T) {
	var m *AuthMetrics
	assert.NotPanics(t, func() {
		m.ObserveAuthentication("auth0", nil, time.Second)
		m.IdentityProvisioned()
	})
}
