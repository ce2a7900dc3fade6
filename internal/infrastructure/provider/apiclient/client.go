// Package apiclient is the JSON-over-HTTP transport shared by the hosted
// checkout providers.
package apiclient

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

	"github.com/wekeepgrowing/shop-settlement/internal/domain/provider"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

const maxResponseBytes = 1 << 20

// Client calls one provider API rooted at BaseURL.
type Client struct {
	name    string
	baseURL string
	http    *http.Client
	logger  *zap.Logger
}

// New returns a client whose requests are bounded by timeout and traced.
func New(name, baseURL string, timeout time.Duration, logger *zap.Logger) *Client {
	return &Client{
		name:    name,
		baseURL: strings.TrimRight(baseURL, "/"),
		http: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		logger: logger,
	}
}

// Request describes one API call. Body is JSON encoded unless it is
// url.Values, which is sent as a form.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Header http.Header
	Body   interface{}
}

// Do sends req and decodes a 2xx JSON response into out. Every failure is
// returned as *provider.ProviderError.
func (c *Client) Do(ctx context.Context, req Request, out interface{}) error {
	var body io.Reader
	contentType := ""
	switch b := req.Body.(type) {
	case nil:
	case url.Values:
		body = strings.NewReader(b.Encode())
		contentType = "application/x-www-form-urlencoded"
	default:
		jsonBody, err := json.Marshal(b)
		if err != nil {
			return &provider.ProviderError{
				Code:    provider.ErrCodeMarshal,
				Message: "Failed to prepare request",
				Details: err.Error(),
			}
		}
		body = bytes.NewReader(jsonBody)
		contentType = "application/json"
	}

	endpoint := c.baseURL + req.Path
	if len(req.Query) > 0 {
		endpoint += "?" + req.Query.Encode()
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, endpoint, body)
	if err != nil {
		return &provider.ProviderError{
			Code:    provider.ErrCodeRequest,
			Message: "Failed to create request",
			Details: err.Error(),
		}
	}
	for k, values := range req.Header {
		for _, v := range values {
			httpReq.Header.Add(k, v)
		}
	}
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	httpReq.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		c.logger.Error("Provider request failed",
			zap.String("provider", c.name),
			zap.String("method", req.Method),
			zap.String("path", req.Path),
			zap.Bool("timeout", errors.Is(err, context.DeadlineExceeded)),
			zap.Error(err))
		return &provider.ProviderError{
			Code:    provider.ErrCodeAPI,
			Message: fmt.Sprintf("%s API request failed", c.name),
			Details: err.Error(),
		}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return &provider.ProviderError{
			Code:       provider.ErrCodeResponse,
			Message:    "Failed to read response",
			Details:    err.Error(),
			StatusCode: resp.StatusCode,
		}
	}

	c.logger.Debug("Provider response received",
		zap.String("provider", c.name),
		zap.String("method", req.Method),
		zap.String("path", req.Path),
		zap.Int("status_code", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return responseError(c.name, resp.StatusCode, respBody)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return &provider.ProviderError{
			Code:       provider.ErrCodeParse,
			Message:    "Failed to parse response",
			Details:    err.Error(),
			StatusCode: resp.StatusCode,
		}
	}
	return nil
}

// responseError extracts the provider's own error code and message; the
// body shapes differ so only the common keys are tried.
func responseError(name string, statusCode int, body []byte) *provider.ProviderError {
	var errResp map[string]interface{}
	_ = json.Unmarshal(body, &errResp)

	code, _ := errResp["code"].(string)
	if code == "" {
		code, _ = errResp["name"].(string)
	}
	if code == "" {
		code, _ = errResp["error"].(string)
	}
	if code == "" {
		code = provider.ErrCodeAPI
	}

	message, _ := errResp["message"].(string)
	if message == "" {
		message, _ = errResp["error_description"].(string)
	}
	if message == "" {
		message = fmt.Sprintf("%s API returned status %d", name, statusCode)
	}

	return &provider.ProviderError{
		Code:       code,
		Message:    message,
		Details:    string(body),
		StatusCode: statusCode,
	}
}
