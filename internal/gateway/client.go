package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/samuraifrenchienft/Music-Legends-Final-sub000/internal/crypto"
	"github.com/samuraifrenchienft/Music-Legends-Final-sub000/internal/domain"
)

// Client is the REST client for the payment processor API.
type Client struct {
	baseURL    string
	auth       *crypto.HMACAuth
	httpClient *http.Client
}

// NewClient creates a processor REST client. baseURL is the API root, e.g.
// "https://api.processor.example/v1".
func NewClient(baseURL string, auth *crypto.HMACAuth) *Client {
	return &Client{
		baseURL: baseURL,
		auth:    auth,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Authorize places a hold on funds and returns the processor reference.
func (c *Client) Authorize(ctx context.Context, amountCents int64, currency string, metadata map[string]string) (authorizationResponse, error) {
	payload := map[string]any{
		"amount":   amountCents,
		"currency": currency,
		"metadata": metadata,
	}

	var resp authorizationResponse
	if err := c.do(ctx, http.MethodPost, "/authorizations", payload, &resp); err != nil {
		return authorizationResponse{}, fmt.Errorf("gateway: authorize: %w", err)
	}
	return resp, nil
}

// Capture finalizes the charge on a previously authorized reference.
func (c *Client) Capture(ctx context.Context, reference string) (chargeResponse, error) {
	path := fmt.Sprintf("/authorizations/%s/capture", url.PathEscape(reference))

	var resp chargeResponse
	if err := c.do(ctx, http.MethodPost, path, nil, &resp); err != nil {
		return chargeResponse{}, fmt.Errorf("gateway: capture %s: %w", reference, err)
	}
	return resp, nil
}

// Void releases a hold without charging.
func (c *Client) Void(ctx context.Context, reference string) (authorizationResponse, error) {
	path := fmt.Sprintf("/authorizations/%s/void", url.PathEscape(reference))

	var resp authorizationResponse
	if err := c.do(ctx, http.MethodPost, path, nil, &resp); err != nil {
		return authorizationResponse{}, fmt.Errorf("gateway: void %s: %w", reference, err)
	}
	return resp, nil
}

// Refund returns captured funds. amountCents of zero refunds the full charge.
func (c *Client) Refund(ctx context.Context, chargeID string, amountCents int64) (chargeResponse, error) {
	path := fmt.Sprintf("/charges/%s/refunds", url.PathEscape(chargeID))

	payload := map[string]any{}
	if amountCents > 0 {
		payload["amount"] = amountCents
	}

	var resp chargeResponse
	if err := c.do(ctx, http.MethodPost, path, payload, &resp); err != nil {
		return chargeResponse{}, fmt.Errorf("gateway: refund %s: %w", chargeID, err)
	}
	return resp, nil
}

// Status queries the processor's current view of a reference.
func (c *Client) Status(ctx context.Context, reference string) (domain.ProcessorState, error) {
	path := fmt.Sprintf("/authorizations/%s", url.PathEscape(reference))

	var resp authorizationResponse
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return domain.ProcessorStateUnknown, fmt.Errorf("gateway: status %s: %w", reference, err)
	}
	return translateState(resp.Status), nil
}

// do issues a signed request and decodes the JSON response into out.
// Processor error bodies are decoded into *APIError.
func (c *Client) do(ctx context.Context, method, path string, payload, out any) error {
	var body []byte
	if payload != nil {
		var err error
		body, err = json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range c.auth.Headers(method, path, string(body)) {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr struct {
			Error APIError `json:"error"`
		}
		if err := json.Unmarshal(respBody, &apiErr); err != nil || apiErr.Error.Code == "" {
			return &APIError{
				Status:  resp.StatusCode,
				Code:    "http_error",
				Message: string(respBody),
			}
		}
		apiErr.Error.Status = resp.StatusCode
		return &apiErr.Error
	}

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}
