package clinicapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"osraclinic.com/workbench/internal/metrics"
)

// Client is a thin wrapper around the clinic backend REST API. It performs no
// caching and no retries; every failure is returned to the caller.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// APIError carries a server-reported failure. The message is extracted from
// the response body and surfaced verbatim to the user.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return e.Message
}

// NewClient creates a new clinic API client.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// do issues a request with an optional JSON body and decodes the JSON
// response into out when out is non-nil.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body interface{}, out interface{}) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reqBody io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reqBody = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reqBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	startTime := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.RecordUpstreamRequest("clinic", path, startTime, 0)
		return fmt.Errorf("clinic API request failed: %w", err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			log.Error().Err(closeErr).Msg("Failed to close response body")
		}
	}()

	metrics.RecordUpstreamRequest("clinic", path, startTime, resp.StatusCode)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeAPIError(resp)
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode clinic API response: %w", err)
	}
	return nil
}

// decodeAPIError extracts the server-reported message from a non-2xx response.
func decodeAPIError(resp *http.Response) error {
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return &APIError{StatusCode: resp.StatusCode, Message: fmt.Sprintf("clinic API returned status %d", resp.StatusCode)}
	}

	var payload map[string]interface{}
	if err := json.Unmarshal(raw, &payload); err == nil {
		for _, key := range []string{"message", "error", "detail"} {
			if msg, ok := payload[key].(string); ok && msg != "" {
				return &APIError{StatusCode: resp.StatusCode, Message: msg}
			}
		}
	}

	return &APIError{StatusCode: resp.StatusCode, Message: fmt.Sprintf("clinic API returned status %d", resp.StatusCode)}
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out interface{}) error {
	return c.do(ctx, http.MethodGet, path, query, nil, out)
}

func (c *Client) post(ctx context.Context, path string, body, out interface{}) error {
	return c.do(ctx, http.MethodPost, path, nil, body, out)
}

func (c *Client) patch(ctx context.Context, path string, body, out interface{}) error {
	return c.do(ctx, http.MethodPatch, path, nil, body, out)
}

func (c *Client) delete(ctx context.Context, path string) error {
	return c.do(ctx, http.MethodDelete, path, nil, nil, nil)
}
