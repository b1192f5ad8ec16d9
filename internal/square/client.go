// Package square provides a minimal client for the Square REST API covering
// catalog listing, payment listing, location probing, and webhook signature
// verification.
package square

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/sacredflow/backend-go/internal/config"
	"github.com/sacredflow/backend-go/pkg/logger"
)

const (
	sandboxBaseURL    = "https://connect.squareupsandbox.com"
	productionBaseURL = "https://connect.squareup.com"
	apiVersion        = "2024-08-21"

	defaultTimeout    = 10 * time.Second
	defaultMaxRetries = 3
)

// ErrNotConfigured is returned when no Square access token is available.
// Callers are expected to degrade, not crash: sync reports it in its error
// list, the healthcheck reports a degraded status.
var ErrNotConfigured = errors.New("square access token not configured")

// HTTPClient is the transport interface, satisfied by *http.Client and by
// test doubles.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client is a Square API client bound to one environment and access token.
// It is constructed once at the composition root and passed explicitly.
type Client struct {
	httpClient  HTTPClient
	baseURL     string
	accessToken string
	environment string
	maxRetries  int
}

// NewClient creates a Square client from configuration. It returns
// ErrNotConfigured when the access token is empty.
func NewClient(cfg *config.SquareConfig) (*Client, error) {
	if strings.TrimSpace(cfg.AccessToken) == "" {
		return nil, ErrNotConfigured
	}

	environment := ResolveEnvironment(cfg.Environment)
	baseURL := sandboxBaseURL
	if environment == "production" {
		baseURL = productionBaseURL
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}

	return &Client{
		httpClient:  &http.Client{Timeout: timeout},
		baseURL:     baseURL,
		accessToken: strings.TrimSpace(cfg.AccessToken),
		environment: environment,
		maxRetries:  maxRetries,
	}, nil
}

// SetHTTPClient swaps the transport. Intended for tests.
func (c *Client) SetHTTPClient(hc HTTPClient) {
	c.httpClient = hc
}

// Environment returns the resolved environment name ("sandbox" or "production").
func (c *Client) Environment() string {
	return c.environment
}

// ResolveEnvironment normalizes an environment string for the Square API.
// production/prod/live map to production; everything else is sandbox.
func ResolveEnvironment(value string) string {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "production", "prod", "live":
		return "production"
	default:
		return "sandbox"
	}
}

// APIError carries the error payload returned by the Square API.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type APIError struct {
	StatusCode int
	Errors     []ErrorDetail
}

// ErrorDetail is one entry of a Square error response.
type ErrorDetail struct {
	Category string `json:"category"`
	Code     string `json:"code"`
	Detail   string `json:"detail"`
}

func (e *APIError) Error() string {
	if len(e.Errors) == 0 {
		return fmt.Sprintf("square API error (status %d)", e.StatusCode)
	}
	details := make([]string, 0, len(e.Errors))
	for _, d := range e.Errors {
		if d.Detail != "" {
			details = append(details, d.Detail)
		} else {
			details = append(details, d.Code)
		}
	}
	return fmt.Sprintf("square API error (status %d): %s", e.StatusCode, strings.Join(details, "; "))
}

// ListCatalog returns the full remote catalog listing filtered to the given
// comma-separated object types, in a single call. Pagination cursors are not
// followed; the remote catalog is assumed to fit in one page.
func (c *Client) ListCatalog(ctx context.Context, types string) ([]CatalogObject, error) {
	query := url.Values{}
	if types != "" {
		query.Set("types", types)
	}

	var resp struct {
		Objects []json.RawMessage `json:"objects"`
	}
	if err := c.get(ctx, "/v2/catalog/list", query, &resp); err != nil {
		return nil, err
	}

	objects := make([]CatalogObject, 0, len(resp.Objects))
	for _, raw := range resp.Objects {
		var obj CatalogObject
		if err := json.Unmarshal(raw, &obj); err != nil {
			return nil, fmt.Errorf("decode catalog object: %w", err)
		}
		obj.Raw = raw
		objects = append(objects, obj)
	}
	return objects, nil
}

// ListPayments returns up to limit recent payments as raw JSON objects,
// passed through to the caller unmodified.
func (c *Client) ListPayments(ctx context.Context, limit int) ([]json.RawMessage, error) {
	query := url.Values{}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}

	var resp struct {
		Payments []json.RawMessage `json:"payments"`
	}
	if err := c.get(ctx, "/v2/payments", query, &resp); err != nil {
		return nil, err
	}
	return resp.Payments, nil
}

// Location is a Square business location, used only by the healthcheck probe.
type Location struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ListLocations returns the merchant's locations.
func (c *Client) ListLocations(ctx context.Context) ([]Location, error) {
	var resp struct {
		Locations []Location `json:"locations"`
	}
	if err := c.get(ctx, "/v2/locations", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Locations, nil
}

// get performs an authenticated GET with a small fixed retry budget for
// transport errors and 5xx responses.
func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(attempt) * 200 * time.Millisecond):
			}
			logger.Log.Debug("retrying Square request",
				zap.String("path", path),
				zap.Int("attempt", attempt),
			)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+c.accessToken)
		req.Header.Set("Square-Version", apiVersion)
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("square request failed: %w", err)
			continue
		}

		body, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			lastErr = fmt.Errorf("read square response: %w", readErr)
			continue
		}

		if resp.StatusCode >= 500 {
			lastErr = decodeAPIError(resp.StatusCode, body)
			continue
		}
		if resp.StatusCode >= 400 {
			return decodeAPIError(resp.StatusCode, body)
		}

		if err := json.Unmarshal(body, out); err != nil {
			return fmt.Errorf("decode square response: %w", err)
		}
		return nil
	}

	return lastErr
}

func decodeAPIError(statusCode int, body []byte) error {
	apiErr := &APIError{StatusCode: statusCode}
	var payload struct {
		Errors []ErrorDetail `json:"errors"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		apiErr.Errors = payload.Errors
	}
	return apiErr
}
