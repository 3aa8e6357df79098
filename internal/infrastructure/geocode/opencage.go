package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"

	"github.com/shiptrack/tracking-system/internal/core/domain"
)

const defaultBaseURL = "https://api.opencagedata.com/geocode/v1/json"

// OpenCageClient resolves between coordinates and human-readable labels via
// the OpenCage geocoding API. Callers bound each lookup with a context
// deadline; the embedded HTTP client timeout is a backstop.
type OpenCageClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
	log     zerolog.Logger
}

func NewOpenCageClient(apiKey, baseURL string, timeout time.Duration, log zerolog.Logger) *OpenCageClient {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &OpenCageClient{
		apiKey:  apiKey,
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
		log:     log,
	}
}

// openCageResult is the subset of an API result the client consumes.
type openCageResult struct {
	Formatted string `json:"formatted"`
	Geometry  struct {
		Lat float64 `json:"lat"`
		Lng float64 `json:"lng"`
	} `json:"geometry"`
}

type openCageResponse struct {
	Results []openCageResult `json:"results"`
	Status  struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"status"`
}

// ReverseGeocode resolves coordinates to a formatted address label.
func (c *OpenCageClient) ReverseGeocode(ctx context.Context, pos domain.Coordinates) (string, error) {
	query := fmt.Sprintf("%f,%f", pos.Lat, pos.Lng)
	res, err := c.lookup(ctx, query)
	if err != nil {
		return "", err
	}
	return res.Formatted, nil
}

// Geocode resolves a street address to coordinates. Used at shipment
// creation, not on the ingest hot path.
func (c *OpenCageClient) Geocode(ctx context.Context, address string) (domain.Coordinates, error) {
	res, err := c.lookup(ctx, address)
	if err != nil {
		return domain.Coordinates{}, err
	}
	return domain.Coordinates{Lat: res.Geometry.Lat, Lng: res.Geometry.Lng}, nil
}

func (c *OpenCageClient) lookup(ctx context.Context, query string) (*openCageResult, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("key", c.apiKey)
	params.Set("limit", "1")
	params.Set("no_annotations", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("geocode request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("geocode call: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("geocode: unexpected status %d", resp.StatusCode)
	}

	var body openCageResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("geocode decode: %w", err)
	}
	if len(body.Results) == 0 {
		return nil, fmt.Errorf("geocode: no results for %q", query)
	}
	return &body.Results[0], nil
}
