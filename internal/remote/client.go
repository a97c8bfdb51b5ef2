// Package remote is the JSON-over-HTTP client for the quoting service.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"quotedesk/internal/model"
	"quotedesk/internal/utils"
)

const (
	chatPath        = "/chat"
	pricingPath     = "/pricing"
	createOrderPath = "/create-order"
)

// ChatRequest is the body of POST /chat. Nil pointers are sent as null.
type ChatRequest struct {
	Message        string  `json:"message"`
	ConversationID *string `json:"conversation_id"`
	ClientID       *string `json:"client_id"`
}

// PricingRequest forwards the requirements exactly as the service sent them.
type PricingRequest struct {
	ClientID     *string        `json:"client_id"`
	Requirements []model.Record `json:"requirements"`
}

type OrderRequest struct {
	ConversationID *string        `json:"conversation_id"`
	ClientID       string         `json:"client_id"`
	Requirements   []model.Record `json:"requirements"`
	Price          float64        `json:"price"`
}

// APIError is a non-2xx answer from the service. Detail is empty when the
// body did not carry one.
type APIError struct {
	StatusCode int
	Detail     string
}

func (e *APIError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("quote service returned status %d: %s", e.StatusCode, e.Detail)
	}
	return fmt.Sprintf("quote service returned status %d", e.StatusCode)
}

// Detail extracts the service-provided failure detail from err, if any.
func Detail(err error) (string, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Detail != "" {
		return apiErr.Detail, true
	}
	return "", false
}

type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a client for the service at baseURL.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return NewClientWithHTTP(baseURL, utils.NewHTTPClient(timeout))
}

// NewClientWithHTTP is NewClient with a caller-supplied *http.Client.
func NewClientWithHTTP(baseURL string, httpClient *http.Client) *Client {
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: httpClient,
	}
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

// Chat calls POST /chat and returns the whole response body.
func (c *Client) Chat(ctx context.Context, req *ChatRequest) (model.Record, error) {
	return c.post(ctx, chatPath, req)
}

// Pricing calls POST /pricing. The response body is the pricing snapshot.
func (c *Client) Pricing(ctx context.Context, req *PricingRequest) (model.Record, error) {
	if req.Requirements == nil {
		req.Requirements = []model.Record{}
	}
	return c.post(ctx, pricingPath, req)
}

// CreateOrder calls POST /create-order. The response body is the order status.
func (c *Client) CreateOrder(ctx context.Context, req *OrderRequest) (model.Record, error) {
	if req.Requirements == nil {
		req.Requirements = []model.Record{}
	}
	return c.post(ctx, createOrderPath, req)
}

func (c *Client) post(ctx context.Context, path string, payload any) (model.Record, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s request: %w", path, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to call %s: %w", path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s response: %w", path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, newAPIError(resp.StatusCode, respBody)
	}

	rec, err := model.DecodeRecord(respBody)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s response: %w", path, err)
	}
	return rec, nil
}

// newAPIError reads the detail from an error body. FastAPI-style validation
// errors put a list under detail; those are joined into one line.
func newAPIError(status int, body []byte) *APIError {
	apiErr := &APIError{StatusCode: status}

	rec, err := model.DecodeRecord(body)
	if err != nil {
		return apiErr
	}

	switch detail := rec["detail"].(type) {
	case string:
		apiErr.Detail = detail
	case []any:
		var parts []string
		for _, item := range detail {
			if obj, ok := item.(map[string]any); ok {
				if msg, ok := obj["msg"].(string); ok {
					parts = append(parts, msg)
				}
			}
		}
		apiErr.Detail = strings.Join(parts, "; ")
	}
	return apiErr
}
