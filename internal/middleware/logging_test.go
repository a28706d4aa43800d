package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestLoggingMiddleware_Levels(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	status := http.StatusOK
	handler := LoggingMiddleware(zap.New(core))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, 2, logs.Len())
	assert.Equal(t, zapcore.DebugLevel, logs.All()[1].Level)

	status = http.StatusBadGateway
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/dashboard", nil))
	completed := logs.FilterMessage("Request completed").All()
	require.Len(t, completed, 2)
	assert.Equal(t, zapcore.WarnLevel, completed[1].Level)
	assert.Equal(t, int64(http.StatusBadGateway), completed[1].ContextMap()["status"])
}
