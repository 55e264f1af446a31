package location

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/jonesrussell/eventcrawl/internal/domain"
	"github.com/jonesrussell/eventcrawl/internal/logger"
)

const (
	defaultBaseURL = "https://nominatim.openstreetmap.org"
	defaultTimeout = 10 * time.Second
	// Nominatim's usage policy requires an identifying User-Agent.
	defaultAgent = "eventcrawl/1.0"
)

// Config holds the Nominatim client settings.
type Config struct {
	BaseURL   string
	UserAgent string
	Timeout   time.Duration
}

// SetDefaults applies default values to unset fields.
func (c *Config) SetDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = defaultBaseURL
	}
	if c.UserAgent == "" {
		c.UserAgent = defaultAgent
	}
	if c.Timeout == 0 {
		c.Timeout = defaultTimeout
	}
}

// NominatimResolver implements Resolver against a Nominatim-compatible
// geocoding API.
type NominatimResolver struct {
	cfg    Config
	client *http.Client
	logger logger.Logger
}

// NewNominatimResolver creates a Nominatim-backed resolver.
func NewNominatimResolver(cfg Config, log logger.Logger) *NominatimResolver {
	cfg.SetDefaults()
	return &NominatimResolver{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: log,
	}
}

// searchResult mirrors one entry of the Nominatim /search response.
type searchResult struct {
	Lat string `json:"lat"`
	Lon string `json:"lon"`
}

// reverseResult mirrors the Nominatim /reverse response.
type reverseResult struct {
	Address struct {
		City    string `json:"city"`
		Town    string `json:"town"`
		Village string `json:"village"`
	} `json:"address"`
}

// ResolveCoordinates geocodes a free-form location name.
func (r *NominatimResolver) ResolveCoordinates(ctx context.Context, name string) (*domain.Coordinates, error) {
	query := url.Values{}
	query.Set("q", name)
	query.Set("format", "json")
	query.Set("limit", "1")

	var results []searchResult
	if err := r.getJSON(ctx, "/search", query, &results); err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, fmt.Errorf("%w: %q", ErrLocationNotFound, name)
	}

	lat, err := strconv.ParseFloat(results[0].Lat, 64)
	if err != nil {
		return nil, fmt.Errorf("failed to parse latitude %q: %w", results[0].Lat, err)
	}
	lon, err := strconv.ParseFloat(results[0].Lon, 64)
	if err != nil {
		return nil, fmt.Errorf("failed to parse longitude %q: %w", results[0].Lon, err)
	}

	r.logger.Debug("Resolved location name",
		logger.String("name", name),
		logger.Float64("latitude", lat),
		logger.Float64("longitude", lon),
	)
	return &domain.Coordinates{Latitude: lat, Longitude: lon}, nil
}

// ResolveCityName reverse-geocodes coordinates to a city name. Town and
// village fall back in that order when the address has no city field.
func (r *NominatimResolver) ResolveCityName(ctx context.Context, coords domain.Coordinates) (string, error) {
	query := url.Values{}
	query.Set("lat", strconv.FormatFloat(coords.Latitude, 'f', -1, 64))
	query.Set("lon", strconv.FormatFloat(coords.Longitude, 'f', -1, 64))
	query.Set("format", "json")

	var result reverseResult
	if err := r.getJSON(ctx, "/reverse", query, &result); err != nil {
		return "", err
	}

	for _, candidate := range []string{result.Address.City, result.Address.Town, result.Address.Village} {
		if candidate != "" {
			return candidate, nil
		}
	}

	return "", fmt.Errorf("%w: no city at %.4f,%.4f", ErrLocationNotFound, coords.Latitude, coords.Longitude)
}

// getJSON performs a GET against the API and decodes the JSON response.
func (r *NominatimResolver) getJSON(ctx context.Context, path string, query url.Values, out any) error {
	endpoint := r.cfg.BaseURL + path + "?" + query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to build geocoding request: %w", err)
	}
	req.Header.Set("User-Agent", r.cfg.UserAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call geocoding API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("geocoding API returned status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode geocoding response: %w", err)
	}

	return nil
}
