package location_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/eventcrawl/internal/domain"
	"github.com/jonesrussell/eventcrawl/internal/location"
	"github.com/jonesrussell/eventcrawl/internal/logger"
)

func newTestResolver(t *testing.T, handler http.HandlerFunc) *location.NominatimResolver {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return location.NewNominatimResolver(location.Config{BaseURL: server.URL}, logger.NewNop())
}

func TestResolveCoordinates(t *testing.T) {
	resolver := newTestResolver(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, "Schlossplatz Karlsruhe", r.URL.Query().Get("q"))
		assert.NotEmpty(t, r.Header.Get("User-Agent"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"lat": "49.0134", "lon": "8.4044"}]`))
	})

	coords, err := resolver.ResolveCoordinates(context.Background(), "Schlossplatz Karlsruhe")
	require.NoError(t, err)
	assert.InDelta(t, 49.0134, coords.Latitude, 1e-9)
	assert.InDelta(t, 8.4044, coords.Longitude, 1e-9)
}

func TestResolveCoordinates_NotFound(t *testing.T) {
	resolver := newTestResolver(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[]`))
	})

	_, err := resolver.ResolveCoordinates(context.Background(), "Atlantis Community Hall")
	require.Error(t, err)
	assert.True(t, errors.Is(err, location.ErrLocationNotFound))
}

func TestResolveCoordinates_ServerError(t *testing.T) {
	resolver := newTestResolver(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	_, err := resolver.ResolveCoordinates(context.Background(), "Schlossplatz Karlsruhe")
	require.Error(t, err)
	assert.False(t, errors.Is(err, location.ErrLocationNotFound))
}

func TestResolveCityName(t *testing.T) {
	resolver := newTestResolver(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/reverse", r.URL.Path)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"address": {"city": "Karlsruhe"}}`))
	})

	city, err := resolver.ResolveCityName(context.Background(), domain.Coordinates{Latitude: 49.0134, Longitude: 8.4044})
	require.NoError(t, err)
	assert.Equal(t, "Karlsruhe", city)
}

func TestResolveCityName_TownFallback(t *testing.T) {
	resolver := newTestResolver(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"address": {"town": "Ettlingen"}}`))
	})

	city, err := resolver.ResolveCityName(context.Background(), domain.Coordinates{Latitude: 48.94, Longitude: 8.41})
	require.NoError(t, err)
	assert.Equal(t, "Ettlingen", city)
}

func TestResolveCityName_NotFound(t *testing.T) {
	resolver := newTestResolver(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"address": {}}`))
	})

	_, err := resolver.ResolveCityName(context.Background(), domain.Coordinates{Latitude: 0, Longitude: 0})
	require.Error(t, err)
	assert.True(t, errors.Is(err, location.ErrLocationNotFound))
}
