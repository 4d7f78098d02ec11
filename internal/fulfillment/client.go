package fulfillment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"github.com/imrishuroy/omnichannel-fulfillment/internal/config"
)

// HTTPClient talks to the Selling-Partner-style REST API. Every call runs through a circuit
// breaker; an open breaker is reported as a 503 so the retry router treats it like an outage.
type HTTPClient struct {
	baseURL       string
	marketplaceID string
	httpClient    *http.Client
	tokens        oauth2.TokenSource
	breaker       *gobreaker.CircuitBreaker
	logger        *zap.Logger
	nowFunc       func() time.Time
}

var _ API = (*HTTPClient)(nil)

// NewHTTPClient builds a client from config. httpClient may be nil.
func NewHTTPClient(cfg config.FulfillmentConfig, httpClient *http.Client, logger *zap.Logger) *HTTPClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	logger = logger.Named("fulfillment")

	maxFailures := cfg.BreakerMaxFailures
	if maxFailures == 0 {
		maxFailures = 5
	}
	settings := gobreaker.Settings{
		Name:        "fulfillment-api",
		MaxRequests: 1,
		Timeout:     cfg.BreakerOpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		// client errors are the caller's problem, not an outage
		IsSuccessful: func(err error) bool {
			if err == nil {
				return true
			}
			code, ok := StatusCode(err)
			return ok && code < http.StatusInternalServerError
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	}

	return &HTTPClient{
		baseURL:       strings.TrimRight(cfg.BaseURL, "/"),
		marketplaceID: cfg.MarketplaceID,
		httpClient:    httpClient,
		tokens:        newTokenSource(cfg, httpClient),
		breaker:       gobreaker.NewCircuitBreaker(settings),
		logger:        logger,
		nowFunc:       time.Now,
	}
}

type apiRequest struct {
	method  string
	path    string
	query   url.Values
	body    interface{}
	headers map[string]string
}

func (c *HTTPClient) do(ctx context.Context, req apiRequest, out interface{}) error {
	_, err := c.breaker.Execute(func() (interface{}, error) {
		return nil, c.roundTrip(ctx, req, out)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return &APIError{StatusCode: http.StatusServiceUnavailable, Code: "CircuitOpen", Message: err.Error()}
	}
	return err
}

func (c *HTTPClient) roundTrip(ctx context.Context, req apiRequest, out interface{}) error {
	token, err := c.tokens.Token()
	if err != nil {
		return tokenError(err)
	}

	u := c.baseURL + req.path
	if len(req.query) > 0 {
		u += "?" + req.query.Encode()
	}

	var body io.Reader
	if req.body != nil {
		b, err := json.Marshal(req.body)
		if err != nil {
			return fmt.Errorf("marshal %s %s: %w", req.method, req.path, err)
		}
		body = bytes.NewReader(b)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, u, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("x-amz-access-token", token.AccessToken)
	httpReq.Header.Set("Accept", "application/json")
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	for k, v := range req.headers {
		httpReq.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("%s %s: %w", req.method, req.path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := parseAPIError(resp.StatusCode, raw)
		c.logger.Warn("fulfillment api error",
			zap.String("method", req.method),
			zap.String("path", req.path),
			zap.Int("status", apiErr.StatusCode),
			zap.String("code", apiErr.Code),
		)
		return apiErr
	}

	if out != nil && len(bytes.TrimSpace(raw)) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("decode %s %s: %w", req.method, req.path, err)
		}
	}
	return nil
}

func parseAPIError(status int, raw []byte) *APIError {
	apiErr := &APIError{StatusCode: status, Message: strings.TrimSpace(string(raw))}
	var payload struct {
		Errors []struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"errors"`
	}
	if err := json.Unmarshal(raw, &payload); err == nil && len(payload.Errors) > 0 {
		apiErr.Code = payload.Errors[0].Code
		apiErr.Message = payload.Errors[0].Message
	}
	return apiErr
}

// newTokenSource exchanges the LWA refresh token for access tokens. The source caches each
// token until shortly before it expires.
func newTokenSource(cfg config.FulfillmentConfig, httpClient *http.Client) oauth2.TokenSource {
	oc := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Endpoint:     oauth2.Endpoint{TokenURL: cfg.TokenURL, AuthStyle: oauth2.AuthStyleInParams},
	}
	// refreshes outlive any single request, so they get the client's own timeout instead
	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, httpClient)
	return oc.TokenSource(ctx, &oauth2.Token{RefreshToken: cfg.RefreshToken})
}

// tokenError keeps the status of a rejected refresh so it is classified like any API error.
func tokenError(err error) error {
	var re *oauth2.RetrieveError
	if errors.As(err, &re) && re.Response != nil {
		msg := re.ErrorDescription
		if msg == "" {
			msg = strings.TrimSpace(string(re.Body))
		}
		return &APIError{StatusCode: re.Response.StatusCode, Code: re.ErrorCode, Message: msg}
	}
	return fmt.Errorf("token request: %w", err)
}
