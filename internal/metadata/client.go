package metadata

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/Clark-Hu/cinerank/internal/domain"
	"github.com/Clark-Hu/cinerank/internal/metrics"
)

var (
	// ErrNotFound is returned when the provider has no record for the title.
	ErrNotFound = errors.New("metadata: not found")
	// ErrUnavailable is returned when the provider cannot be reached or the
	// circuit breaker is open.
	ErrUnavailable = errors.New("metadata: provider unavailable")
)

// Client looks up descriptive details for a media title.
type Client interface {
	Lookup(ctx context.Context, name string, category domain.Category) (*Details, error)
}

// Options configures HTTPClient.
type Options struct {
	BaseURL         string
	APIKey          string
	Timeout         time.Duration
	BreakerFailures uint32
	BreakerCooldown time.Duration
	Logger          zerolog.Logger
}

// HTTPClient implements Client over HTTP behind a circuit breaker.
type HTTPClient struct {
	baseURL *url.URL
	apiKey  string
	client  *http.Client
	breaker *gobreaker.CircuitBreaker[*Details]
	logger  zerolog.Logger
	now     func() time.Time
}

// NewHTTPClient constructs a new HTTP-backed metadata client.
func NewHTTPClient(opts Options) (*HTTPClient, error) {
	parsed, err := url.Parse(strings.TrimRight(opts.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse metadata url: %w", err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("metadata url %q must be absolute", opts.BaseURL)
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	failures := opts.BreakerFailures
	if failures == 0 {
		failures = 5
	}
	cooldown := opts.BreakerCooldown
	if cooldown <= 0 {
		cooldown = 30 * time.Second
	}

	c := &HTTPClient{
		baseURL: parsed,
		apiKey:  opts.APIKey,
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				Proxy: http.ProxyFromEnvironment,
				DialContext: (&net.Dialer{
					Timeout:   timeout,
					KeepAlive: 30 * time.Second,
				}).DialContext,
				TLSHandshakeTimeout:   timeout,
				ResponseHeaderTimeout: timeout,
				ExpectContinueTimeout: 1 * time.Second,
			},
		},
		logger: opts.Logger.With().Str("component", "metadata").Logger(),
		now:    time.Now,
	}
	c.breaker = gobreaker.NewCircuitBreaker[*Details](gobreaker.Settings{
		Name:    "metadata",
		Timeout: cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		// A missing title is an answer and a caller hanging up is not a
		// provider fault.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrNotFound) || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			c.logger.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("metadata circuit breaker state changed")
		},
	})
	return c, nil
}

// Lookup fetches and normalizes details for name in category.
func (c *HTTPClient) Lookup(ctx context.Context, name string, category domain.Category) (*Details, error) {
	details, err := c.breaker.Execute(func() (*Details, error) {
		return c.fetch(ctx, name, category)
	})
	switch {
	case err == nil:
		metrics.MetadataLookups.WithLabelValues("ok").Inc()
		return details, nil
	case errors.Is(err, ErrNotFound):
		metrics.MetadataLookups.WithLabelValues("not_found").Inc()
		return nil, err
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		metrics.MetadataLookups.WithLabelValues("unavailable").Inc()
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	case errors.Is(err, ErrUnavailable):
		metrics.MetadataLookups.WithLabelValues("unavailable").Inc()
		return nil, err
	case errors.Is(err, context.Canceled):
		metrics.MetadataLookups.WithLabelValues("canceled").Inc()
		return nil, err
	default:
		metrics.MetadataLookups.WithLabelValues("error").Inc()
		return nil, err
	}
}

func (c *HTTPClient) fetch(ctx context.Context, name string, category domain.Category) (*Details, error) {
	rel := &url.URL{Path: c.baseURL.Path + "/metadata"}
	q := rel.Query()
	q.Set("name", name)
	q.Set("type", string(category))
	rel.RawQuery = q.Encode()
	endpoint := c.baseURL.ResolveReference(rel)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-API-Key", c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, fmt.Errorf("metadata request: %w", err)
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		var payload apiResponse
		if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
			return nil, fmt.Errorf("decode metadata response: %w", err)
		}
		details := normalize(payload, name, category, c.now())
		return &details, nil
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrNotFound
	case resp.StatusCode >= http.StatusInternalServerError:
		c.logger.Warn().Int("status", resp.StatusCode).Str("name", name).Msg("metadata provider error")
		return nil, fmt.Errorf("%w: upstream returned %d", ErrUnavailable, resp.StatusCode)
	default:
		c.logger.Warn().Int("status", resp.StatusCode).Str("name", name).Msg("unexpected metadata status")
		return nil, fmt.Errorf("metadata: upstream returned %d", resp.StatusCode)
	}
}
