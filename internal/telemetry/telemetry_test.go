package telemetry

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/RoGogDBD/items/internal/config"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
)

func TestInit_Disabled(t *testing.T) {
	p, err := Init(context.Background(), config.TelemetryConfig{})
	require.NoError(t, err)
	assert.Nil(t, p.MetricsHandler)
	assert.NoError(t, p.Shutdown(context.Background()))
}

func TestInit_MetricsOnly(t *testing.T) {
	ctx := context.Background()
	p, err := Init(ctx, config.TelemetryConfig{
		ServiceName:    "items-test",
		MetricsEnabled: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Shutdown(ctx) })
	require.NotNil(t, p.MetricsHandler)

	counter, err := otel.Meter("telemetry-test").Int64Counter("items.test.hits")
	require.NoError(t, err)
	counter.Add(ctx, 2)

	rr := httptest.NewRecorder()
	p.MetricsHandler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	body, err := io.ReadAll(rr.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "items_test_hits")
	assert.Contains(t, string(body), "go_goroutines")
}

func TestShutdown_NilProviders(t *testing.T) {
	var p *Providers
	assert.NoError(t, p.Shutdown(context.Background()))
}

func TestWrapHandler_PassesThrough(t *testing.T) {
	h := WrapHandler(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	}), "items-test")

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/item", nil))
	assert.Equal(t, http.StatusAccepted, rr.Code)
}

func TestRouteSpanName_WithoutSpan(t *testing.T) {
	r := chi.NewRouter()
	r.Use(RouteSpanName)
	r.Get("/item/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/item/42", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
}
