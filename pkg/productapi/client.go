package productapi

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
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/oapi-codegen/runtime"
	"go.uber.org/zap"

	serviceErrs "github.com/backupqa/qa-agent/pkg/errors"
)

const (
	defaultMaxRetries  = 5
	defaultRetryWindow = time.Minute
	tokenRefreshSkew   = time.Minute
)

// Client talks to the REST API of the backup product.
type Client struct {
	baseURL     *url.URL
	httpClient  *http.Client
	username    string
	password    string
	maxRetries  uint
	retryWindow time.Duration

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

func WithCredentials(username, password string) Option {
	return func(c *Client) {
		c.username = username
		c.password = password
	}
}

// WithToken uses a pre-issued token instead of logging in.
func WithToken(token string) Option {
	return func(c *Client) {
		c.token = token
		c.tokenExpiry = tokenExpiry(token)
	}
}

func WithRetries(maxRetries uint, window time.Duration) Option {
	return func(c *Client) {
		c.maxRetries = maxRetries
		c.retryWindow = window
	}
}

func NewClient(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize product client: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("failed to initialize product client: invalid url %q", baseURL)
	}

	c := &Client{
		baseURL:     u,
		httpClient:  &http.Client{Timeout: 30 * time.Second},
		maxRetries:  defaultMaxRetries,
		retryWindow: defaultRetryWindow,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string `json:"token"`
}

type errorResponse struct {
	ErrorCode    int    `json:"errorCode"`
	ErrorMessage string `json:"errorMessage"`
}

// APIError is a non-successful answer of the product.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("product api returned %d", e.StatusCode)
	}
	return fmt.Sprintf("product api returned %d: %s", e.StatusCode, e.Message)
}

// Login exchanges the configured credentials for a token.
func (c *Client) Login(ctx context.Context) error {
	if c.username == "" {
		return serviceErrs.NewAgentUnauthorized()
	}

	var resp loginResponse
	err := c.send(ctx, "", http.MethodPost, "/Login", nil, loginRequest{Username: c.username, Password: c.password}, &resp)
	if err != nil {
		return fmt.Errorf("login as %s: %w", c.username, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = resp.Token
	c.tokenExpiry = tokenExpiry(resp.Token)

	zap.S().Named("product_client").Debugw("logged in", "user", c.username, "expiry", c.tokenExpiry)
	return nil
}

func (c *Client) authToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	token, expiry := c.token, c.tokenExpiry
	c.mu.Unlock()

	needsLogin := token == "" || (!expiry.IsZero() && time.Until(expiry) < tokenRefreshSkew)
	if needsLogin && c.username != "" {
		if err := c.Login(ctx); err != nil {
			return "", err
		}
		c.mu.Lock()
		token = c.token
		c.mu.Unlock()
	}
	return token, nil
}

// tokenExpiry reads the exp claim without verifying the signature; the product does that.
func tokenExpiry(token string) time.Time {
	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}
	}
	if claims.ExpiresAt == nil {
		return time.Time{}
	}
	return claims.ExpiresAt.Time
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	token, err := c.authToken(ctx)
	if err != nil {
		return err
	}

	err = c.send(ctx, token, method, path, query, body, out)
	if serviceErrs.IsAgentUnauthorizedError(err) {
		c.mu.Lock()
		c.token = ""
		c.mu.Unlock()
	}
	return err
}

func (c *Client) send(ctx context.Context, token, method, path string, query url.Values, body, out any) error {
	var payload []byte
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		payload = b
	}

	u := c.baseURL.JoinPath(path)
	u.RawQuery = query.Encode()

	op := func() (struct{}, error) {
		var reader io.Reader
		if payload != nil {
			reader = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
		if err != nil {
			return struct{}{}, backoff.Permanent(err)
		}
		req.Header.Set("Accept", "application/json")
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return struct{}{}, backoff.Permanent(ctx.Err())
			}
			return struct{}{}, err
		}
		defer resp.Body.Close()

		return struct{}{}, c.handleResponse(resp, path, out)
	}

	notify := func(err error, next time.Duration) {
		zap.S().Named("product_client").Warnw("request failed, retrying", "method", method, "path", path, "error", err, "next", next)
	}

	_, err := backoff.Retry(ctx, op,
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(c.maxRetries),
		backoff.WithMaxElapsedTime(c.retryWindow),
		backoff.WithNotify(notify),
	)

	var perm *backoff.PermanentError
	if errors.As(err, &perm) {
		return perm.Err
	}
	return err
}

func (c *Client) handleResponse(resp *http.Response, path string, out any) error {
	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		if out == nil || resp.StatusCode == http.StatusNoContent {
			return nil
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return backoff.Permanent(fmt.Errorf("failed to decode response of %s: %w", path, err))
		}
		return nil
	case resp.StatusCode == http.StatusUnauthorized:
		return backoff.Permanent(serviceErrs.NewAgentUnauthorized())
	case resp.StatusCode == http.StatusNotFound:
		return backoff.Permanent(serviceErrs.NewResourceNotFoundError("resource", path))
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return backoff.Permanent(readAPIError(resp))
	default:
		return readAPIError(resp)
	}
}

func readAPIError(resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	var e errorResponse
	if json.Unmarshal(body, &e) == nil && e.ErrorMessage != "" {
		apiErr.Message = e.ErrorMessage
	} else {
		apiErr.Message = strings.TrimSpace(string(body))
	}
	return apiErr
}

func pathParam(name string, value any) (string, error) {
	return runtime.StyleParamWithLocation("simple", false, name, runtime.ParamLocationPath, value)
}
