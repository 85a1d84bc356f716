// Package dexscreener looks up token metadata on the Dexscreener API.
package dexscreener

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"

	"memedesk/internal/cache"
	"memedesk/internal/observability"
)

const (
	DefaultBaseURL     = "https://api.dexscreener.com"
	DefaultTimeout     = 10 * time.Second
	DefaultMaxAttempts = 3
	DefaultRetryDelay  = 300 * time.Millisecond
	DefaultMaxDelay    = 5 * time.Second
	DefaultBackoffMult = 2.0
	DefaultCacheTTL    = 5 * time.Minute
)

// SupportedChains are probed in this order; the first chain with pairs wins.
var SupportedChains = []string{
	"solana",
	"ethereum",
	"bsc",
	"base",
	"arbitrum",
	"polygon",
	"avalanche",
	"fantom",
	"optimism",
}

// errNotListed means the chain answered but has no pairs for the token.
var errNotListed = errors.New("token not listed")

// Token is one side of a pair.
type Token struct {
	Address string `json:"address"`
	Name    string `json:"name"`
	Symbol  string `json:"symbol"`
}

// Pair is the subset of a Dexscreener pair used for metadata.
type Pair struct {
	ChainID       string `json:"chainId"`
	PairAddress   string `json:"pairAddress"`
	BaseToken     Token  `json:"baseToken"`
	QuoteToken    Token  `json:"quoteToken"`
	PairCreatedAt int64  `json:"pairCreatedAt"`
}

// Client queries Dexscreener with bounded retries and caches lookups.
type Client struct {
	baseURL     string
	client      *http.Client
	maxAttempts int
	retryDelay  time.Duration
	maxDelay    time.Duration
	backoffMult float64
	chains      []string
	cache       cache.Store
	cacheTTL    time.Duration
	log         *zap.Logger
}

// ClientOption configures Client.
type ClientOption func(*Client)

// WithBaseURL overrides the API root.
func WithBaseURL(u string) ClientOption {
	return func(c *Client) {
		c.baseURL = u
	}
}

// WithTimeout bounds each HTTP request.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.client.Timeout = d
	}
}

// WithMaxAttempts sets how many times a chain is queried before giving up.
func WithMaxAttempts(n int) ClientOption {
	return func(c *Client) {
		if n > 0 {
			c.maxAttempts = n
		}
	}
}

// WithRetryDelay sets the wait before the second attempt; later waits grow
// by DefaultBackoffMult up to DefaultMaxDelay.
func WithRetryDelay(d time.Duration) ClientOption {
	return func(c *Client) {
		c.retryDelay = d
	}
}

// WithHTTPClient replaces the transport client, e.g. for tests.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.client = hc
	}
}

// WithChains replaces the probed chain list.
func WithChains(chains ...string) ClientOption {
	return func(c *Client) {
		c.chains = chains
	}
}

// WithCache caches lookup results in s for ttl.
func WithCache(s cache.Store, ttl time.Duration) ClientOption {
	return func(c *Client) {
		c.cache = s
		c.cacheTTL = ttl
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) ClientOption {
	return func(c *Client) {
		c.log = l
	}
}

// NewClient creates a Dexscreener client. Without WithCache an in-memory
// cache with DefaultCacheTTL is used.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		baseURL:     DefaultBaseURL,
		client:      &http.Client{Timeout: DefaultTimeout},
		maxAttempts: DefaultMaxAttempts,
		retryDelay:  DefaultRetryDelay,
		maxDelay:    DefaultMaxDelay,
		backoffMult: DefaultBackoffMult,
		chains:      SupportedChains,
		cacheTTL:    DefaultCacheTTL,
		log:         zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.cache == nil {
		c.cache = cache.NewMemoryStore()
	}
	return c
}

func retryable(status int) bool {
	switch status {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}

// TokenPairs returns the pairs listed for ca on chain. A 404 or an empty
// list yields errNotListed.
func (c *Client) TokenPairs(ctx context.Context, chain, ca string) ([]Pair, error) {
	endpoint := fmt.Sprintf("%s/token-pairs/v1/%s/%s", c.baseURL, url.PathEscape(chain), url.PathEscape(ca))

	start := time.Now()
	label := "error"
	defer func() {
		observability.RecordDexscreenerCall(chain, label, time.Since(start).Seconds())
	}()

	wait := c.retryDelay
	var lastErr error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		if attempt > 1 {
			if err := sleepCtx(ctx, wait); err != nil {
				return nil, err
			}
			wait = min(time.Duration(float64(wait)*c.backoffMult), c.maxDelay)
		}

		code, body, err := c.get(ctx, endpoint)
		if err != nil {
			lastErr = err
			continue
		}
		label = strconv.Itoa(code)

		switch {
		case code == http.StatusOK:
			var pairs []Pair
			if err := json.Unmarshal(body, &pairs); err != nil {
				return nil, fmt.Errorf("decode pairs: %w", err)
			}
			if len(pairs) == 0 {
				return nil, errNotListed
			}
			return pairs, nil
		case code == http.StatusNotFound:
			return nil, errNotListed
		case !retryable(code):
			return nil, fmt.Errorf("dexscreener status %d", code)
		}
		lastErr = fmt.Errorf("dexscreener status %d", code)
	}
	return nil, fmt.Errorf("gave up after %d attempts: %w", c.maxAttempts, lastErr)
}

// get performs one request and returns the status and full body.
func (c *Client) get(ctx context.Context, endpoint string) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return 0, nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "memedesk/1.0")

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("dexscreener request: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("read body: %w", err)
	}
	return resp.StatusCode, body, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
