// Package alphavantage provides a client for the Alpha Vantage API.
//
// The free tier allows only 25 requests per day, so the client enforces
// a daily budget, caches responses in memory, and is best placed behind
// a cheaper source in the fetch chain.
package alphavantage

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/marketview/internal/domain"
)

// SourceName identifies this provider in source chains and cache tables.
const SourceName = "alphavantage"

const defaultBaseURL = "https://www.alphavantage.co/query"

// DailyRequestLimit is the free-tier request budget per UTC day.
const DailyRequestLimit = 25

// compactSpanDays approximates the calendar span of the 100 trading
// days returned by outputsize=compact.
const compactSpanDays = 140

// ErrRateLimitExceeded is returned when the daily request budget is spent.
type ErrRateLimitExceeded struct{}

func (e ErrRateLimitExceeded) Error() string {
	return fmt.Sprintf("alpha vantage rate limit exceeded (%d requests/day)", DailyRequestLimit)
}

// ErrInvalidAPIKey is returned when no usable API key is configured.
type ErrInvalidAPIKey struct{}

func (e ErrInvalidAPIKey) Error() string {
	return "invalid or missing alpha vantage API key"
}

// ErrSymbolNotFound is returned when the API rejects the requested symbol.
type ErrSymbolNotFound struct {
	Symbol string
}

func (e ErrSymbolNotFound) Error() string {
	return fmt.Sprintf("symbol not found: %s", e.Symbol)
}

// CacheTTL configures how long cached responses stay fresh.
type CacheTTL struct {
	PriceData time.Duration
}

// DefaultCacheTTL returns the default cache windows.
func DefaultCacheTTL() CacheTTL {
	return CacheTTL{
		PriceData: 15 * time.Minute,
	}
}

type cacheEntry struct {
	data      interface{}
	expiresAt time.Time
}

// ClientInterface defines the operations the fetch chain needs.
type ClientInterface interface {
	Name() string
	DailyBars(ctx context.Context, symbol string, start time.Time) ([]domain.Candle, error)
	GetRemainingRequests() int
}

// Client calls the Alpha Vantage HTTP API with rate limiting and an
// in-memory response cache.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	log        zerolog.Logger

	mu            sync.Mutex
	requestsToday int
	resetAt       time.Time

	cacheMu  sync.RWMutex
	cache    map[string]cacheEntry
	cacheTTL CacheTTL
}

// NewClient creates a new Alpha Vantage client
func NewClient(apiKey string, log zerolog.Logger) *Client {
	return &Client{
		apiKey:     apiKey,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		log:        log.With().Str("client", "alphavantage").Logger(),
		resetAt:    nextMidnightUTC(),
		cache:      make(map[string]cacheEntry),
		cacheTTL:   DefaultCacheTTL(),
	}
}

// Name returns the provider name.
func (c *Client) Name() string {
	return SourceName
}

// SetCacheTTL overrides the default cache windows.
func (c *Client) SetCacheTTL(ttl CacheTTL) {
	c.cacheMu.Lock()
	defer c.cacheMu.Unlock()
	c.cacheTTL = ttl
}

// DailyBars retrieves daily candles for a symbol from start to now
// using the TIME_SERIES_DAILY function. Responses are cached, so
// repeated calls within the TTL cost no API requests.
func (c *Client) DailyBars(ctx context.Context, symbol string, start time.Time) ([]domain.Candle, error) {
	if c.apiKey == "" {
		return nil, ErrInvalidAPIKey{}
	}

	params := map[string]string{
		"symbol":     symbol,
		"outputsize": outputSize(start),
	}

	cacheKey := buildCacheKey("TIME_SERIES_DAILY", params)
	if cached, ok := c.getFromCache(cacheKey); ok {
		if candles, ok := cached.([]domain.Candle); ok {
			return candlesFrom(candles, start), nil
		}
	}

	if err := c.checkRateLimit(); err != nil {
		return nil, err
	}

	body, err := c.get(ctx, "TIME_SERIES_DAILY", params)
	if err != nil {
		return nil, err
	}

	candles, err := parseDailySeries(body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse daily series for %s: %w", symbol, err)
	}
	if len(candles) == 0 {
		return nil, ErrSymbolNotFound{Symbol: symbol}
	}

	c.setCache(cacheKey, candles, c.cacheTTL.PriceData)

	c.log.Debug().
		Str("symbol", symbol).
		Int("bars", len(candles)).
		Int("remaining_requests", c.GetRemainingRequests()).
		Msg("Fetched daily series")

	return candlesFrom(candles, start), nil
}

// get performs one API request and checks the body for in-band errors.
func (c *Client) get(ctx context.Context, function string, params map[string]string) ([]byte, error) {
	values := url.Values{}
	values.Set("function", function)
	values.Set("apikey", c.apiKey)
	for k, v := range params {
		values.Set(k, v)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+values.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("alpha vantage request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("alpha vantage returned status %d", resp.StatusCode)
	}

	if err := c.checkAPIError(body); err != nil {
		return nil, err
	}

	return body, nil
}

// checkAPIError detects Alpha Vantage's in-band error responses, which
// arrive with HTTP 200.
func (c *Client) checkAPIError(body []byte) error {
	trimmed := strings.TrimSpace(string(body))

	// Rate limit overruns sometimes come back as plain text
	if !strings.HasPrefix(trimmed, "{") {
		if strings.Contains(trimmed, "Thank you for using Alpha Vantage") {
			return ErrRateLimitExceeded{}
		}
		return fmt.Errorf("unexpected alpha vantage response: %s", truncate(trimmed, 120))
	}

	var envelope struct {
		Note         string `json:"Note"`
		Information  string `json:"Information"`
		ErrorMessage string `json:"Error Message"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil
	}

	if envelope.Note != "" || envelope.Information != "" {
		return ErrRateLimitExceeded{}
	}
	if envelope.ErrorMessage != "" {
		return fmt.Errorf("alpha vantage error: %s", envelope.ErrorMessage)
	}

	return nil
}

// checkRateLimit consumes one request from the daily budget.
func (c *Client) checkRateLimit() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now().UTC()
	if now.After(c.resetAt) {
		c.requestsToday = 0
		c.resetAt = nextMidnightUTC()
	}

	if c.requestsToday >= DailyRequestLimit {
		return ErrRateLimitExceeded{}
	}

	c.requestsToday++
	return nil
}

// GetRemainingRequests returns how many requests are left today.
func (c *Client) GetRemainingRequests() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return DailyRequestLimit - c.requestsToday
}

// ResetDailyCounter resets the request budget. Exposed for the midnight
// reset job and tests.
func (c *Client) ResetDailyCounter() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.requestsToday = 0
	c.resetAt = nextMidnightUTC()
}

func nextMidnightUTC() time.Time {
	now := time.Now().UTC()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, 1)
}

// setCache stores a response with expiration = now + ttl.
func (c *Client) setCache(key string, data interface{}, ttl time.Duration) {
	c.cacheMu.Lock()
	defer c.cacheMu.Unlock()
	c.cache[key] = cacheEntry{
		data:      data,
		expiresAt: time.Now().Add(ttl),
	}
}

// getFromCache returns cached data if present and fresh.
func (c *Client) getFromCache(key string) (interface{}, bool) {
	c.cacheMu.RLock()
	defer c.cacheMu.RUnlock()

	entry, ok := c.cache[key]
	if !ok || time.Now().After(entry.expiresAt) {
		return nil, false
	}
	return entry.data, true
}

// ClearCache drops all cached responses.
func (c *Client) ClearCache() {
	c.cacheMu.Lock()
	defer c.cacheMu.Unlock()
	c.cache = make(map[string]cacheEntry)
}

// buildCacheKey derives a stable key from the function name and request
// parameters. The API key never becomes part of the key.
func buildCacheKey(function string, params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		if k == "apikey" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	sb.WriteString(function)
	for _, k := range keys {
		sb.WriteString("|")
		sb.WriteString(k)
		sb.WriteString("=")
		sb.WriteString(params[k])
	}
	return sb.String()
}

// outputSize picks compact (latest 100 trading days) when it covers the
// requested range, full otherwise.
func outputSize(start time.Time) string {
	if start.Before(time.Now().AddDate(0, 0, -compactSpanDays)) {
		return "full"
	}
	return "compact"
}

// candlesFrom filters out candles older than the requested start date.
func candlesFrom(candles []domain.Candle, start time.Time) []domain.Candle {
	cutoff := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)

	out := make([]domain.Candle, 0, len(candles))
	for _, c := range candles {
		if c.Date.Before(cutoff) {
			continue
		}
		out = append(out, c)
	}
	return out
}

// parseDailySeries decodes a TIME_SERIES_DAILY response into candles
// sorted ascending by date. Unparsable numeric fields become nil so the
// ingestor can drop those rows.
func parseDailySeries(body []byte) ([]domain.Candle, error) {
	var payload struct {
		Series map[string]map[string]string `json:"Time Series (Daily)"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	candles := make([]domain.Candle, 0, len(payload.Series))
	for dateStr, fields := range payload.Series {
		date := parseDate(dateStr)
		if date.IsZero() {
			continue
		}

		candles = append(candles, domain.Candle{
			Date:   date,
			Open:   parseFloat64Ptr(fields["1. open"]),
			High:   parseFloat64Ptr(fields["2. high"]),
			Low:    parseFloat64Ptr(fields["3. low"]),
			Close:  parseFloat64Ptr(fields["4. close"]),
			Volume: parseInt64Ptr(fields["5. volume"]),
		})
	}

	sort.Slice(candles, func(i, j int) bool {
		return candles[i].Date.Before(candles[j].Date)
	})

	return candles, nil
}

// parseFloat64 parses Alpha Vantage numeric strings. Sentinel values
// ("None", "null", "-", "") and unparsable input become 0. A trailing
// percent sign is stripped.
func parseFloat64(s string) float64 {
	if v := parseFloat64Ptr(s); v != nil {
		return *v
	}
	return 0
}

// parseFloat64Ptr is the nullable variant of parseFloat64: sentinel and
// unparsable values become nil.
func parseFloat64Ptr(s string) *float64 {
	s = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "%"))
	if s == "" || s == "None" || s == "null" || s == "-" {
		return nil
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &v
}

// parseInt64 parses integer strings, accepting scientific notation and
// truncating fractions. Sentinel values become 0.
func parseInt64(s string) int64 {
	if v := parseInt64Ptr(s); v != nil {
		return *v
	}
	return 0
}

// parseInt64Ptr is the nullable variant of parseInt64.
func parseInt64Ptr(s string) *int64 {
	s = strings.TrimSpace(s)
	if s == "" || s == "None" || s == "null" || s == "-" {
		return nil
	}

	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		return &v
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	v := int64(f)
	return &v
}

// parseDate parses a YYYY-MM-DD date, returning the zero time on failure.
func parseDate(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
