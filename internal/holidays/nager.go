package holidays

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"
)

const DefaultBaseURL = "https://date.nager.at/api/v3"

// ErrUpstream matches every holiday provider failure.
var ErrUpstream = errors.New("holidays: upstream unavailable")

// UpstreamError is a transport, timeout, non-200 or decode failure.
type UpstreamError struct {
	HTTPStatus int
	Err        error
}

func (e *UpstreamError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("holiday request: %v", e.Err)
	}
	return fmt.Sprintf("holiday API returned HTTP %d", e.HTTPStatus)
}

func (e *UpstreamError) Is(target error) bool { return target == ErrUpstream }

func (e *UpstreamError) Unwrap() error { return e.Err }

// Options configures a Client.
type Options struct {
	BaseURL    string
	Timeout    time.Duration // per request, defaults to 20s
	MemoTTL    time.Duration // how long a year's list is reused, defaults to 12h
	HTTPClient *http.Client
}

// Client reads /PublicHolidays/{year}/AU from Nager.Date.
type Client struct {
	baseURL    string
	httpClient *http.Client
	memo       *cache.Cache
	log        *zap.Logger
}

func NewClient(opts Options, log *zap.Logger) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 20 * time.Second
	}
	if opts.MemoTTL <= 0 {
		opts.MemoTTL = 12 * time.Hour
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: opts.Timeout}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		httpClient: hc,
		memo:       cache.New(opts.MemoTTL, opts.MemoTTL),
		log:        log,
	}
}

// ForCountryYear returns every Australian public holiday for year. Failures
// are *UpstreamError; there is no retry.
func (c *Client) ForCountryYear(ctx context.Context, year int) ([]Entry, error) {
	key := strconv.Itoa(year)
	if v, ok := c.memo.Get(key); ok {
		return slices.Clone(v.([]Entry)), nil
	}

	u := fmt.Sprintf("%s/PublicHolidays/%d/AU", c.baseURL, year)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &UpstreamError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &UpstreamError{HTTPStatus: resp.StatusCode}
	}

	var entries []Entry
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		return nil, &UpstreamError{HTTPStatus: resp.StatusCode, Err: fmt.Errorf("decoding response: %w", err)}
	}

	c.log.Debug("fetched public holidays", zap.Int("year", year), zap.Int("count", len(entries)))
	c.memo.SetDefault(key, entries)
	return slices.Clone(entries), nil
}
