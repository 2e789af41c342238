package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/fekuna/omnipos-backoffice/config"
	"github.com/fekuna/omnipos-backoffice/internal/auth"
	"github.com/fekuna/omnipos-backoffice/internal/pkg/logger"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

func testConfig() *config.Config {
	cfg := config.LoadEnv()
	cfg.Postgres.Disabled = true
	cfg.Redis.Addr = ""
	cfg.Kafka.Brokers = nil
	cfg.Elastic.Addresses = nil
	cfg.Platform.BaseURL = ""
	cfg.Editor.Prefix = "/product_editor/"
	return cfg
}

func TestBuildInMemory(t *testing.T) {
	app, err := Build(context.Background(), testConfig(), logger.NewNop())
	require.NoError(t, err)
	defer app.Close()

	assert.Nil(t, app.Listener)

	summary, err := app.Validation.RunAll(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, summary.Runners)
	for _, r := range summary.Runners {
		assert.NotEqual(t, "platform", r.App, "platform runner needs a configured platform")
		assert.Empty(t, r.Error)
	}
}

func TestRouter(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cfg := testConfig()
	app, err := Build(context.Background(), cfg, logger.NewNop())
	require.NoError(t, err)
	defer app.Close()
	router := NewRouter(app.Handlers, cfg.Editor.Prefix, false, logger.NewNop())

	tests := []struct {
		name   string
		path   string
		user   string
		status int
	}{
		{name: "health", path: "/health", status: http.StatusOK},
		{name: "metrics", path: "/metrics", status: http.StatusOK},
		{name: "anonymous search", path: "/catalogue/search/", status: http.StatusUnauthorized},
		{name: "search", path: "/catalogue/search/", user: "u1", status: http.StatusOK},
		{name: "validation overview", path: "/validation/", user: "u1", status: http.StatusOK},
		{name: "anonymous editor", path: "/product_editor/start/", status: http.StatusUnauthorized},
		{name: "unknown", path: "/nowhere", user: "u1", status: http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.user != "" {
				req.Header.Set(auth.UserIDHeader, tt.user)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
		})
	}
}

func TestGRPCHealth(t *testing.T) {
	srv, hs := NewGRPCServer()
	defer srv.Stop()

	resp, err := hs.Check(context.Background(), &healthpb.HealthCheckRequest{Service: ServiceName})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.Status)

	hs.Shutdown()
	resp, err = hs.Check(context.Background(), &healthpb.HealthCheckRequest{Service: ServiceName})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, resp.Status)
}
