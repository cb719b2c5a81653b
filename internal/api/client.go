package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/net/publicsuffix"
	"golang.org/x/time/rate"

	"github.com/wolfman30/clinic-portal/internal/observability/metrics"
	"github.com/wolfman30/clinic-portal/internal/tenancy"
	"github.com/wolfman30/clinic-portal/pkg/logging"
)

const (
	defaultTimeout = 15 * time.Second
	maxLoggedBody  = 300
)

var tracer = otel.Tracer("clinic.internal.api")

// Config holds configuration for the API client.
type Config struct {
	BaseURL      string // e.g. "https://clinic.example.com/api"
	Timeout      time.Duration
	RateLimitRPS float64 // <= 0 disables pacing
	Burst        int
	Token        string // optional bearer token
	Logger       *logging.Logger
	Metrics      *metrics.ClientMetrics
	HTTPClient   *http.Client // overrides Timeout and the cookie jar when set
}

// Client wraps the clinic REST API. Sessions are carried by the server's
// cookie and, when the server issues one, a bearer token.
type Client struct {
	httpClient *http.Client
	baseURL    string
	logger     *logging.Logger
	metrics    *metrics.ClientMetrics
	limiter    *rate.Limiter

	mu    sync.RWMutex
	token string
}

// New creates a new API client.
func New(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, fmt.Errorf("api: BaseURL is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout == 0 {
			timeout = defaultTimeout
		}
		jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
		if err != nil {
			return nil, fmt.Errorf("api: cookie jar: %w", err)
		}
		httpClient = &http.Client{Timeout: timeout, Jar: jar}
	}

	var limiter *rate.Limiter
	if cfg.RateLimitRPS > 0 {
		burst := cfg.Burst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimitRPS), burst)
	}

	return &Client{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		logger:     logger.Component("api"),
		metrics:    cfg.Metrics,
		limiter:    limiter,
		token:      cfg.Token,
	}, nil
}

// SetToken replaces the bearer token sent with each request.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

// Token returns the current bearer token.
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

type call struct {
	method  string
	route   string // stable label for metrics and spans, e.g. "appointments.cancel"
	path    string
	body    any
	out     any
	headers map[string]string
}

func (c *Client) do(ctx context.Context, cl call) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("%w: %s: rate limiter: %w", ErrNetwork, cl.route, err)
		}
	}

	ctx, span := tracer.Start(ctx, "api."+cl.route, trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	span.SetAttributes(
		attribute.String("http.method", cl.method),
		attribute.String("clinic.route", cl.route),
	)

	var bodyReader io.Reader
	if cl.body != nil {
		payload, err := json.Marshal(cl.body)
		if err != nil {
			return fmt.Errorf("api: %s: marshal request: %w", cl.route, err)
		}
		bodyReader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, cl.method, c.baseURL+cl.path, bodyReader)
	if err != nil {
		return fmt.Errorf("api: %s: build request: %w", cl.route, err)
	}
	requestID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	if cl.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for k, v := range tenancy.Headers(ctx) {
		req.Header.Set(k, v)
	}
	for k, v := range cl.headers {
		req.Header.Set(k, v)
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.ObserveRequest(cl.method, cl.route, 0, time.Since(start).Seconds())
		span.RecordError(err)
		span.SetStatus(codes.Error, "transport failure")
		c.logger.Warn("api request failed", "route", cl.route, "request_id", requestID, "error", err)
		return fmt.Errorf("%w: %s: %w", ErrNetwork, cl.route, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	c.metrics.ObserveRequest(cl.method, cl.route, resp.StatusCode, time.Since(start).Seconds())
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("%w: %s: read response: %w", ErrNetwork, cl.route, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := string(respBody)
		if len(msg) > maxLoggedBody {
			msg = msg[:maxLoggedBody]
		}
		span.SetStatus(codes.Error, resp.Status)
		c.logger.Warn("api non-2xx response",
			"route", cl.route,
			"status", resp.StatusCode,
			"request_id", requestID,
			"body", msg,
		)
		return &Error{
			StatusCode: resp.StatusCode,
			Route:      cl.route,
			Detail:     parseDetail(respBody),
			Body:       msg,
		}
	}

	c.logger.Debug("api request completed",
		"route", cl.route,
		"status", resp.StatusCode,
		"request_id", requestID,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	if len(bytes.TrimSpace(respBody)) == 0 || cl.out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, cl.out); err != nil {
		return fmt.Errorf("api: %s: decode response: %w", cl.route, err)
	}
	return nil
}

// IsNetwork reports whether err means no response was received.
func IsNetwork(err error) bool {
	return errors.Is(err, ErrNetwork)
}
