package geocoding

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultBaseURL is the Google Maps Platform host
const DefaultBaseURL = "https://maps.googleapis.com"

// GoogleClient handles Google Geocoding API requests
type GoogleClient struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// geocodeResponse mirrors the fields we read from /maps/api/geocode/json
type geocodeResponse struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message,omitempty"`
	Results      []struct {
		FormattedAddress string `json:"formatted_address"`
		PlaceID          string `json:"place_id"`
	} `json:"results"`
}

// NewGoogleClient creates a new Google Geocoding API client.
// An empty baseURL selects DefaultBaseURL.
func NewGoogleClient(apiKey, baseURL string, timeout time.Duration) *GoogleClient {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &GoogleClient{
		apiKey:     apiKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Reverse looks up the address for a coordinate
func (c *GoogleClient) Reverse(ctx context.Context, lat, lng float64) (Result, error) {
	if c.apiKey == "" {
		log.Println("Google Maps API key not set, skipping reverse geocoding")
		return Result{Status: StatusRequestDenied}, nil
	}

	params := url.Values{}
	params.Add("latlng", fmt.Sprintf("%.6f,%.6f", lat, lng))
	params.Add("key", c.apiKey)
	fullURL := c.baseURL + "/maps/api/geocode/json?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return Result{}, fmt.Errorf("failed to build geocode request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("failed to call Google Geocoding API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return Result{}, fmt.Errorf("google geocoding API error (status %d): %s", resp.StatusCode, string(body))
	}

	var payload geocodeResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return Result{}, fmt.Errorf("failed to parse geocode response: %w", err)
	}

	if payload.Status != StatusOK {
		if payload.ErrorMessage != "" {
			log.Printf("Geocoding status %s for (%.6f, %.6f): %s", payload.Status, lat, lng, payload.ErrorMessage)
		}
		return Result{Status: payload.Status}, nil
	}
	if len(payload.Results) == 0 {
		return Result{Status: StatusZeroResults}, nil
	}

	return Result{Status: StatusOK, FormattedAddress: payload.Results[0].FormattedAddress}, nil
}
