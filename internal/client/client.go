// Package client talks to a running prediction server.
package client

import (
	"fmt"
	"strings"
	"time"

	"pricerange/internal/features"
	"pricerange/internal/ml"
	"pricerange/internal/schema"

	"github.com/go-resty/resty/v2"
)

type Client struct {
	base string
	rest *resty.Client
}

// APIError is a non-2xx answer from the server.
type APIError struct {
	StatusCode int
	Kind       string
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("pricer: %d %s: %s", e.StatusCode, e.Kind, e.Message)
}

func New(base string, timeout time.Duration) *Client {
	r := resty.New()
	if timeout > 0 {
		r.SetTimeout(timeout)
	} else {
		r.SetTimeout(5 * time.Second) // default fallback
	}
	r.SetHeader("Accept", "application/json")
	return &Client{base: strings.TrimRight(base, "/"), rest: r}
}

// Predict sends one raw record to /predict. requestID may be empty.
func (c *Client) Predict(input features.RawInput, requestID string) (*ml.PredictionResponse, error) {
	body := make(map[string]any, len(input)+1)
	for k, v := range input {
		body[k] = v
	}
	if requestID != "" {
		body["request_id"] = requestID
	}

	result := &ml.PredictionResponse{}
	apiErr := &ml.ErrorResponse{}
	resp, err := c.rest.R().
		SetBody(body).
		SetResult(result).
		SetError(apiErr).
		Post(c.base + "/predict")
	if err != nil {
		return nil, fmt.Errorf("predict request: %w", err)
	}
	if resp.IsError() {
		return nil, &APIError{StatusCode: resp.StatusCode(), Kind: apiErr.Kind, Message: apiErr.Error}
	}
	return result, nil
}

// Options fetches the allowed values per input field.
func (c *Client) Options() (*schema.InputOptions, error) {
	result := &schema.InputOptions{}
	if err := c.get("/options", result); err != nil {
		return nil, err
	}
	return result, nil
}

// Health fetches the server's health status. An unhealthy server still
// returns its status together with an *APIError.
func (c *Client) Health() (*ml.HealthStatus, error) {
	result := &ml.HealthStatus{}
	resp, err := c.rest.R().
		SetResult(result).
		SetError(result).
		Get(c.base + "/health")
	if err != nil {
		return nil, fmt.Errorf("health request: %w", err)
	}
	if resp.IsError() {
		return result, &APIError{StatusCode: resp.StatusCode(), Kind: "unhealthy", Message: result.LastError}
	}
	return result, nil
}

func (c *Client) get(path string, result any) error {
	apiErr := &ml.ErrorResponse{}
	resp, err := c.rest.R().
		SetResult(result).
		SetError(apiErr).
		Get(c.base + path)
	if err != nil {
		return fmt.Errorf("get %s: %w", path, err)
	}
	if resp.IsError() {
		return &APIError{StatusCode: resp.StatusCode(), Kind: apiErr.Kind, Message: apiErr.Error}
	}
	return nil
}
