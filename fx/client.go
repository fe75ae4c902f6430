package fx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

const DefaultBaseURL = "https://fxmarketapi.com"

// ErrNoRate is returned when the API has no quote for the pair and minute.
var ErrNoRate = errors.New("no exchange rate")

type Config struct {
	BaseURL           string
	APIKey            string
	Timeout           time.Duration
	RequestsPerSecond float64
	CacheTTL          time.Duration
}

// Client looks up historical minute rates from fxmarketapi.
type Client struct {
	BaseURL string
	APIKey  string
	HTTP    *http.Client

	limiter *rate.Limiter
	cache   *cache.Cache
	log     *logrus.Entry
}

func NewClient(cfg Config, log *logrus.Entry) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 20 * time.Second
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 24 * time.Hour
	}
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}

	c := &Client{
		BaseURL: strings.TrimRight(cfg.BaseURL, "/"),
		APIKey:  cfg.APIKey,
		HTTP:    &http.Client{Timeout: cfg.Timeout},
		cache:   cache.New(cfg.CacheTTL, 2*cfg.CacheTTL),
		log:     log.WithField("component", "fx"),
	}
	if cfg.RequestsPerSecond > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}
	return c
}

// LastQuoteTime maps weekend times to the last minute of the preceding
// Friday, when the forex market was still open. Times are returned in UTC.
func LastQuoteTime(t time.Time) time.Time {
	t = t.UTC()
	var back int
	switch t.Weekday() {
	case time.Saturday:
		back = 1
	case time.Sunday:
		back = 2
	default:
		return t
	}
	f := t.AddDate(0, 0, -back)
	return time.Date(f.Year(), f.Month(), f.Day(), 23, 59, 59, 0, time.UTC)
}

type historicalResp struct {
	Price map[string]decimal.Decimal `json:"price"`
	Error string                     `json:"error,omitempty"`
}

// Rate returns the price of one unit of the pair's base currency in its
// quote currency (pair "GBPEUR" gives EUR per GBP) at the given time.
func (c *Client) Rate(ctx context.Context, pair string, at time.Time) (decimal.Decimal, error) {
	pair = strings.ToUpper(strings.TrimSpace(pair))
	if len(pair) != 6 {
		return decimal.Zero, fmt.Errorf("invalid currency pair %q", pair)
	}

	when := LastQuoteTime(at)
	stamp := when.Format("2006-01-02-15:04")
	key := pair + "@" + stamp
	if v, ok := c.cache.Get(key); ok {
		return v.(decimal.Decimal), nil
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return decimal.Zero, err
		}
	}

	r, err := c.fetch(ctx, pair, stamp)
	if err != nil {
		return decimal.Zero, err
	}
	c.cache.SetDefault(key, r)
	c.log.WithFields(logrus.Fields{"pair": pair, "at": stamp, "rate": r.String()}).Debug("fetched rate")
	return r, nil
}

func (c *Client) fetch(ctx context.Context, pair, stamp string) (decimal.Decimal, error) {
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return decimal.Zero, err
	}
	u.Path = "/apihistorical"

	q := u.Query()
	q.Set("currency", pair)
	q.Set("date", stamp)
	q.Set("interval", "minute")
	q.Set("api_key", c.APIKey)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return decimal.Zero, err
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return decimal.Zero, fmt.Errorf("fx request %s: %w", pair, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
		return decimal.Zero, fmt.Errorf("fx http %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}

	var body historicalResp
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return decimal.Zero, fmt.Errorf("decode fx response: %w", err)
	}
	if body.Error != "" {
		return decimal.Zero, fmt.Errorf("fx api: %s", body.Error)
	}
	r, ok := body.Price[pair]
	if !ok || !r.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w for %s at %s", ErrNoRate, pair, stamp)
	}
	return r, nil
}

// Static is a fixed table of rates keyed by pair, ignoring time.
type Static map[string]decimal.Decimal

func (s Static) Rate(_ context.Context, pair string, _ time.Time) (decimal.Decimal, error) {
	r, ok := s[strings.ToUpper(pair)]
	if !ok {
		return decimal.Zero, fmt.Errorf("%w for %s", ErrNoRate, pair)
	}
	return r, nil
}
