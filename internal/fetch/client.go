// Package fetch is the outbound HTTP client shared by source adapters and
// the website enricher: per-host rate limiting, bounded retries on transient
// failures, response size caps, and a naive robots.txt check.
package fetch

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/reson-group/lead-radar/internal/config"
	"github.com/reson-group/lead-radar/internal/resilience"
)

// Client fetches pages politely. Safe for concurrent use; one instance is
// shared across all adapters so per-host limits hold across sources.
type Client struct {
	httpClient    *http.Client
	userAgent     string
	maxBodyBytes  int64
	perHostRPS    rate.Limit
	respectRobots bool
	retry         resilience.RetryConfig

	mu       sync.Mutex
	limiters map[string]*rate.Limiter

	// robots caches the per-host verdict; sites change rarely within a run.
	robots sync.Map // host -> bool (allowed)
}

// NewClient builds a Client from config.
func NewClient(cfg config.FetchConfig) *Client {
	timeout := time.Duration(cfg.TimeoutSecs) * time.Second
	if timeout <= 0 {
		timeout = 12 * time.Second
	}
	rps := cfg.PerHostRPS
	if rps <= 0 {
		rps = 0.5
	}
	maxBody := cfg.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = 2 * 1024 * 1024
	}
	retry := resilience.DefaultRetryConfig()
	if cfg.MaxRetries > 0 {
		retry.MaxAttempts = cfg.MaxRetries
	}
	return &Client{
		httpClient:    &http.Client{Timeout: timeout},
		userAgent:     cfg.UserAgent,
		maxBodyBytes:  maxBody,
		perHostRPS:    rate.Limit(rps),
		respectRobots: cfg.RespectRobots,
		retry:         retry,
		limiters:      make(map[string]*rate.Limiter),
	}
}

// Get fetches a URL and returns its body, waiting for the host's rate
// limiter first and retrying transient failures with backoff.
func (c *Client) Get(ctx context.Context, rawURL string) ([]byte, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, eris.Wrapf(err, "fetch: bad url %q", rawURL)
	}
	if u.Host == "" {
		return nil, eris.Errorf("fetch: bad url %q", rawURL)
	}

	if c.respectRobots && !c.robotsAllowed(ctx, u) {
		return nil, eris.Errorf("fetch: robots disallow for %s", u.Host)
	}

	var body []byte
	err = resilience.Do(ctx, c.retry, func(ctx context.Context) error {
		if err := c.limiter(u.Host).Wait(ctx); err != nil {
			return err
		}
		b, fetchErr := c.do(ctx, rawURL)
		if fetchErr != nil {
			return fetchErr
		}
		body = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	return body, nil
}

func (c *Client) do(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "fetch: build request")
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/json;q=0.9,*/*;q=0.8")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, eris.Wrapf(err, "fetch: get %s", rawURL)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		err := eris.Errorf("fetch: %s returned %d", rawURL, resp.StatusCode)
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return nil, resilience.NewTransientError(err, resp.StatusCode)
		}
		return nil, err
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBodyBytes))
	if err != nil {
		return nil, eris.Wrapf(err, "fetch: read %s", rawURL)
	}
	return body, nil
}

func (c *Client) limiter(host string) *rate.Limiter {
	c.mu.Lock()
	defer c.mu.Unlock()
	lim, ok := c.limiters[host]
	if !ok {
		lim = rate.NewLimiter(c.perHostRPS, 1)
		c.limiters[host] = lim
	}
	return lim
}

// robotsAllowed applies the crude blanket-disallow check: a host whose
// robots.txt disallows everything for all agents is skipped outright.
// Failure to fetch robots.txt counts as allowed.
func (c *Client) robotsAllowed(ctx context.Context, u *url.URL) bool {
	if cached, ok := c.robots.Load(u.Host); ok {
		return cached.(bool)
	}

	robotsURL := u.Scheme + "://" + u.Host + "/robots.txt"
	allowed := true
	if err := c.limiter(u.Host).Wait(ctx); err == nil {
		if body, err := c.do(ctx, robotsURL); err == nil {
			allowed = !blanketDisallow(string(body))
		}
	}
	if !allowed {
		zap.L().Debug("fetch: robots disallow", zap.String("host", u.Host))
	}
	c.robots.Store(u.Host, allowed)
	return allowed
}

func blanketDisallow(robots string) bool {
	inWildcard := false
	for _, line := range strings.Split(robots, "\n") {
		line = strings.TrimSpace(line)
		if v, ok := cutPrefixFold(line, "user-agent:"); ok {
			inWildcard = strings.TrimSpace(v) == "*"
			continue
		}
		if v, ok := cutPrefixFold(line, "disallow:"); ok && inWildcard {
			if strings.TrimSpace(v) == "/" {
				return true
			}
		}
	}
	return false
}

func cutPrefixFold(s, prefix string) (string, bool) {
	if len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix) {
		return s[len(prefix):], true
	}
	return "", false
}
