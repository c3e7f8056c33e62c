package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"crmcore/internal/core"
	"crmcore/internal/ctxlog"
	"crmcore/pkg/domain"

	"github.com/cenkalti/backoff/v4"
)

const (
	defaultRequestTimeout = 10 * time.Second
	defaultRetryInterval  = 500 * time.Millisecond
	defaultMaxRetries     = 3
)

// HTTPClient consumes a deployed gateway over JSON HTTP. Every call
// goes through the same bounded retry policy: transport failures and
// server errors retry with exponential backoff, response errors in the
// 4xx range fail immediately.
type HTTPClient struct {
	endpoint      string
	httpClient    *http.Client
	maxRetries    uint64
	retryInterval time.Duration
}

// HTTPOption configures an HTTPClient.
type HTTPOption func(*HTTPClient)

// WithRequestTimeout bounds each individual request attempt.
func WithRequestTimeout(d time.Duration) HTTPOption {
	return func(c *HTTPClient) { c.httpClient.Timeout = d }
}

// WithMaxRetries sets how many times a failed call is retried.
func WithMaxRetries(n uint64) HTTPOption {
	return func(c *HTTPClient) { c.maxRetries = n }
}

// WithRetryInterval sets the initial backoff interval between retries.
func WithRetryInterval(d time.Duration) HTTPOption {
	return func(c *HTTPClient) { c.retryInterval = d }
}

// WithHTTPDoer swaps the underlying http client.
func WithHTTPDoer(hc *http.Client) HTTPOption {
	return func(c *HTTPClient) { c.httpClient = hc }
}

// NewHTTPClient builds a client against the gateway base endpoint.
func NewHTTPClient(endpoint string, opts ...HTTPOption) *HTTPClient {
	c := &HTTPClient{
		endpoint:      strings.TrimRight(endpoint, "/"),
		httpClient:    &http.Client{Timeout: defaultRequestTimeout},
		maxRetries:    defaultMaxRetries,
		retryInterval: defaultRetryInterval,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var _ Client = (*HTTPClient)(nil)

// Hello probes the gateway liveness endpoint.
func (c *HTTPClient) Hello(ctx context.Context) (string, error) {
	var payload struct {
		Message string `json:"message"`
	}
	if err := c.get(ctx, "/hello", nil, &payload); err != nil {
		return "", err
	}
	return payload.Message, nil
}

// Aggregate fetches store-wide counts and revenue.
func (c *HTTPClient) Aggregate(ctx context.Context) (core.AggregateReport, error) {
	var report core.AggregateReport
	if err := c.get(ctx, "/aggregate", nil, &report); err != nil {
		return core.AggregateReport{}, err
	}
	return report, nil
}

// RecentOrders fetches orders placed at or after since.
func (c *HTTPClient) RecentOrders(ctx context.Context, since time.Time) ([]domain.Order, error) {
	var payload struct {
		Orders []domain.Order `json:"orders"`
	}
	query := url.Values{"since": []string{since.UTC().Format(time.RFC3339)}}
	if err := c.get(ctx, "/orders", query, &payload); err != nil {
		return nil, err
	}
	return payload.Orders, nil
}

func (c *HTTPClient) get(ctx context.Context, path string, query url.Values, out any) error {
	target := c.endpoint + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	attempt := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrUnreachable, err)
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode >= http.StatusInternalServerError:
			return fmt.Errorf("gateway responded %s", resp.Status)
		case resp.StatusCode != http.StatusOK:
			return backoff.Permanent(fmt.Errorf("gateway responded %s", resp.Status))
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return backoff.Permanent(fmt.Errorf("decode gateway response: %w", err))
		}
		return nil
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = c.retryInterval
	notify := func(err error, wait time.Duration) {
		ctxlog.FromContext(ctx).Warn("gateway call failed, retrying", "path", path, "error", err, "wait", wait)
	}
	return backoff.RetryNotify(attempt, backoff.WithContext(backoff.WithMaxRetries(policy, c.maxRetries), ctx), notify)
}
