package geocoding

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"
)

const defaultBaseURL = "https://maps.googleapis.com/maps/api/geocode/json"

// Provider issues one geocoding query. *Client is the production implementation.
type Provider interface {
	Query(ctx context.Context, address string) (*Response, error)
}

// Response is the decoded Google Geocoding API body.
type Response struct {
	Results      []APIResult `json:"results"`
	Status       string      `json:"status"`
	ErrorMessage string      `json:"error_message,omitempty"`
}

type APIResult struct {
	AddressComponents []AddressComponent `json:"address_components"`
	FormattedAddress  string             `json:"formatted_address"`
	Geometry          Geometry           `json:"geometry"`
	Types             []string           `json:"types"`
	PartialMatch      bool               `json:"partial_match,omitempty"`
}

type AddressComponent struct {
	LongName  string   `json:"long_name"`
	ShortName string   `json:"short_name"`
	Types     []string `json:"types"`
}

type Geometry struct {
	Location     LatLng `json:"location"`
	LocationType string `json:"location_type"`
}

type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Options configures a Client.
type Options struct {
	APIKey     string
	BaseURL    string        // defaults to the public Geocoding endpoint
	Region     string        // country bias, defaults to "au"
	Timeout    time.Duration // per request, defaults to 20s
	RatePerSec float64       // 0 disables limiting
	HTTPClient *http.Client
}

// Client wraps the Google Maps Geocoding API.
type Client struct {
	apiKey     string
	baseURL    string
	region     string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewClient creates a geocoding client. It fails with ErrMissingAPIKey when no
// key is set.
func NewClient(opts Options) (*Client, error) {
	if opts.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	if opts.BaseURL == "" {
		opts.BaseURL = defaultBaseURL
	}
	if opts.Region == "" {
		opts.Region = "au"
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 20 * time.Second
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: opts.Timeout}
	}

	c := &Client{
		apiKey:     opts.APIKey,
		baseURL:    opts.BaseURL,
		region:     opts.Region,
		httpClient: hc,
	}
	if opts.RatePerSec > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(opts.RatePerSec), 1)
	}
	return c, nil
}

// Query sends one geocoding request. Transport failures, timeouts, non-200
// responses and undecodable bodies are returned as *UpstreamError. Provider
// statuses (OK, ZERO_RESULTS, ...) are left for the caller to interpret.
func (c *Client) Query(ctx context.Context, address string) (*Response, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, &UpstreamError{Message: "rate limiter", Err: err}
		}
	}

	q := url.Values{}
	q.Set("address", address)
	q.Set("region", c.region)
	q.Set("components", "country:"+c.region)
	q.Set("key", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &UpstreamError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &UpstreamError{HTTPStatus: resp.StatusCode}
	}

	var out Response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, &UpstreamError{HTTPStatus: resp.StatusCode, Err: fmt.Errorf("decoding response: %w", err)}
	}
	return &out, nil
}
