package spree

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/angelmondragon/spree-storefront/pkg/config"
	pkgerrors "github.com/angelmondragon/spree-storefront/pkg/errors"
	"github.com/angelmondragon/spree-storefront/pkg/logger"
	"github.com/angelmondragon/spree-storefront/pkg/types"
)

const (
	serviceName      = "spree"
	storeAPIPath     = "/api/v3/store"
	defaultTimeout   = 10 * time.Second
	headerAPIKey     = "X-Spree-Api-Key"
	headerOrderToken = "X-Spree-Order-Token"
	headerLocale     = "X-Spree-Locale"
	headerCountry    = "X-Spree-Country"
)

const errorBodyReadLimit int64 = 4096

var errAPIKeyRequired = errors.New("spree api key is required")

// Observer receives the outcome of each upstream call.
type Observer interface {
	Observe(operation string, elapsed time.Duration, code string)
}

// Client wraps the Spree Store API used by the storefront.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	breaker    *gobreaker.CircuitBreaker[struct{}]
	limiter    *rate.Limiter
	observer   Observer
	logg       *logger.Logger
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithObserver attaches call metrics.
func WithObserver(observer Observer) Option {
	return func(c *Client) {
		c.observer = observer
	}
}

// WithLogger attaches a logger for upstream failures.
func WithLogger(logg *logger.Logger) Option {
	return func(c *Client) {
		c.logg = logg
	}
}

// WithRateLimit caps outbound requests per second; rps <= 0 leaves calls unthrottled.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		if burst <= 0 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithBreaker replaces the circuit breaker, mainly so tests can trip it quickly.
func WithBreaker(settings BreakerSettings) Option {
	return func(c *Client) {
		c.breaker = newBreaker(settings)
	}
}

// NewClient builds the Spree client from configuration.
func NewClient(cfg config.SpreeConfig, opts ...Option) (*Client, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errAPIKeyRequired
	}
	base := strings.TrimRight(strings.TrimSpace(cfg.APIURL), "/")
	if base == "" {
		return nil, errors.New("spree api url is required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	client := &Client{
		apiKey:     apiKey,
		baseURL:    base + storeAPIPath,
		httpClient: &http.Client{Timeout: timeout},
		breaker:    newBreaker(breakerSettingsFromConfig(cfg)),
	}
	WithRateLimit(cfg.MaxRequestsPerSecond, cfg.RequestBurst)(client)

	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}

	if client.httpClient == nil {
		client.httpClient = &http.Client{Timeout: timeout}
	}

	return client, nil
}

type call struct {
	operation string
	method    string
	path      string
	query     url.Values
	session   types.Session
	body      any
}

type errorBody struct {
	Error  string              `json:"error"`
	Errors map[string][]string `json:"errors"`
}

type dataEnvelope[T any] struct {
	Data T `json:"data"`
}

// do runs the call through the circuit breaker and decodes the response into out.
func (c *Client) do(ctx context.Context, req call, out any) error {
	if c == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "spree client not configured")
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "commerce api request throttled")
		}
	}

	start := time.Now()
	_, err := c.breaker.Execute(func() (struct{}, error) {
		return struct{}{}, c.roundTrip(ctx, req, out)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		err = pkgerrors.Wrap(pkgerrors.CodeDependency, err, "commerce api temporarily unavailable")
	}

	code := ""
	if err != nil {
		code = string(pkgerrors.As(err).Code())
		if c.logg != nil {
			logCtx := c.logg.WithFields(ctx, map[string]any{
				"operation": req.operation,
				"dump":      pkgerrors.Dump(err),
			})
			c.logg.Warn(logCtx, "spree.request.failed")
		}
	}
	if c.observer != nil {
		c.observer.Observe(req.operation, time.Since(start), code)
	}
	return err
}

func (c *Client) roundTrip(ctx context.Context, req call, out any) error {
	var body io.Reader
	if req.body != nil {
		payload, err := json.Marshal(req.body)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "marshal "+req.operation+" request")
		}
		body = bytes.NewReader(payload)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, c.buildURL(req.path, req.query), body)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build "+req.operation+" request")
	}
	httpReq.Header.Set("Accept", "application/json")
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	httpReq.Header.Set(headerAPIKey, c.apiKey)
	applySession(httpReq.Header, req.session)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute "+req.operation+" request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(req.operation, resp)
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode "+req.operation+" response")
	}
	return nil
}

func applySession(h http.Header, s types.Session) {
	if token := strings.TrimSpace(s.AuthToken); token != "" {
		h.Set("Authorization", "Bearer "+token)
	}
	if token := strings.TrimSpace(s.CartToken); token != "" {
		h.Set(headerOrderToken, token)
	}
	if s.Locale != "" {
		h.Set(headerLocale, s.Locale)
	}
	if s.Country != "" {
		h.Set(headerCountry, s.Country)
	}
}

// decodeError turns a non-2xx answer into a coded error. 422 carries Spree's own
// message, which the storefront is allowed to show verbatim.
func decodeError(operation string, resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyReadLimit))

	var parsed errorBody
	_ = json.Unmarshal(raw, &parsed)
	message := strings.TrimSpace(parsed.Error)
	if message == "" {
		message = firstFieldError(parsed.Errors)
	}

	upstream := &pkgerrors.Upstream{
		Service:   serviceName,
		Operation: operation,
		Status:    resp.StatusCode,
		Message:   message,
		Fields:    parsed.Errors,
	}
	if upstream.Message == "" && len(raw) > 0 && resp.StatusCode >= 500 {
		upstream.Message = strings.TrimSpace(string(raw))
	}

	code := codeForStatus(resp.StatusCode)
	public := message
	if public == "" || code == pkgerrors.CodeDependency {
		public = fmt.Sprintf("%s request failed", operation)
	}
	typed := pkgerrors.Wrap(code, upstream, public)
	if len(parsed.Errors) > 0 {
		typed = typed.WithDetails(parsed.Errors)
	}
	return typed
}

func codeForStatus(status int) pkgerrors.Code {
	switch status {
	case http.StatusBadRequest:
		return pkgerrors.CodeValidation
	case http.StatusUnauthorized:
		return pkgerrors.CodeUnauthorized
	case http.StatusForbidden:
		return pkgerrors.CodeForbidden
	case http.StatusNotFound:
		return pkgerrors.CodeNotFound
	case http.StatusConflict:
		return pkgerrors.CodeConflict
	case http.StatusUnprocessableEntity:
		return pkgerrors.CodeUpstreamRejected
	case http.StatusTooManyRequests:
		return pkgerrors.CodeRateLimit
	default:
		return pkgerrors.CodeDependency
	}
}

func firstFieldError(fields map[string][]string) string {
	if len(fields) == 0 {
		return ""
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if msgs := fields[k]; len(msgs) > 0 {
			return strings.ReplaceAll(k, "_", " ") + " " + msgs[0]
		}
	}
	return ""
}

func (c *Client) buildURL(path string, query url.Values) string {
	u := c.baseURL + "/" + strings.TrimLeft(path, "/")
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}
