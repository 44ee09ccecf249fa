package geocoding

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"servicefinder/models"

	"go.uber.org/zap"
)

// ErrNoResult is returned when the provider could not place the coordinates.
var ErrNoResult = errors.New("no geocoding result")

// Geocoder turns device coordinates into a display location.
type Geocoder interface {
	Reverse(ctx context.Context, lat, lng float64) (*models.StructuredLocation, error)
}

const defaultGoogleBaseURL = "https://maps.googleapis.com"

// GoogleGeocoder reverse-geocodes through the Google Maps geocoding API.
type GoogleGeocoder struct {
	apiKey  string
	baseURL string
	client  *http.Client
	logger  *zap.Logger
}

// NewGoogleGeocoder creates a geocoder. An empty baseURL uses the public Google endpoint.
func NewGoogleGeocoder(apiKey, baseURL string, logger *zap.Logger) *GoogleGeocoder {
	if baseURL == "" {
		baseURL = defaultGoogleBaseURL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GoogleGeocoder{
		apiKey:  apiKey,
		baseURL: baseURL,
		client:  &http.Client{Timeout: 5 * time.Second},
		logger:  logger,
	}
}

type addressComponent struct {
	LongName string   `json:"long_name"`
	Types    []string `json:"types"`
}

type geocodeResponse struct {
	Status  string `json:"status"`
	Results []struct {
		FormattedAddress  string             `json:"formatted_address"`
		AddressComponents []addressComponent `json:"address_components"`
	} `json:"results"`
}

func (g *GoogleGeocoder) Reverse(ctx context.Context, lat, lng float64) (*models.StructuredLocation, error) {
	if g.apiKey == "" {
		return nil, fmt.Errorf("geocoding: API key not configured")
	}

	q := url.Values{}
	q.Set("latlng", strconv.FormatFloat(lat, 'f', -1, 64)+","+strconv.FormatFloat(lng, 'f', -1, 64))
	q.Set("key", g.apiKey)
	target := g.baseURL + "/maps/api/geocode/json?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("geocoding: build request: %w", err)
	}
	resp, err := g.client.Do(req)
	if err != nil {
		g.logger.Warn("Reverse geocoding request failed", zap.Error(err))
		return nil, fmt.Errorf("geocoding: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		g.logger.Warn("Reverse geocoding returned non-OK status", zap.Int("status", resp.StatusCode))
		return nil, fmt.Errorf("geocoding: status %d", resp.StatusCode)
	}

	var data geocodeResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, fmt.Errorf("geocoding: decode response: %w", err)
	}
	if data.Status == "ZERO_RESULTS" || len(data.Results) == 0 {
		return nil, ErrNoResult
	}
	if data.Status != "" && data.Status != "OK" {
		return nil, fmt.Errorf("geocoding: provider status %s", data.Status)
	}

	first := data.Results[0]
	loc := fromComponents(first.AddressComponents)
	loc.FullAddress = first.FormattedAddress
	return &loc, nil
}

// fromComponents maps Google address components onto a StructuredLocation.
func fromComponents(components []addressComponent) models.StructuredLocation {
	byType := make(map[string]string)
	for _, c := range components {
		for _, t := range c.Types {
			if _, exists := byType[t]; !exists {
				byType[t] = c.LongName
			}
		}
	}
	first := func(types ...string) string {
		for _, t := range types {
			if v := byType[t]; v != "" {
				return v
			}
		}
		return ""
	}

	loc := models.StructuredLocation{
		Area:    first("sublocality_level_1", "sublocality", "neighborhood"),
		City:    first("locality", "postal_town", "administrative_area_level_2"),
		State:   first("administrative_area_level_1"),
		Country: first("country"),
	}
	if loc.Area == "" {
		loc.Area = loc.City
	}
	if loc.Country == "" {
		loc.Country = models.UnknownCountry
	}
	return loc
}
