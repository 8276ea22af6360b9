package backend

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

	"github.com/google/uuid"
	"github.com/vibast-solutions/ms-go-donations/app/types"
)

type Config struct {
	BaseURL     string
	APIKey      string
	HTTPTimeout time.Duration
}

// Client talks to the nonprofit backend API that owns payment processing,
// persistence and the real business rules.
type Client struct {
	cfg    Config
	client *http.Client
}

func NewClient(cfg Config) *Client {
	timeout := cfg.HTTPTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")

	return &Client{
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
	}
}

type DirectPayInput struct {
	Amount      int64  `json:"amount"`
	Phone       string `json:"phone"`
	DonorName   string `json:"donorName"`
	DonorEmail  string `json:"donorEmail"`
	Message     string `json:"message"`
	IsAnonymous bool   `json:"isAnonymous"`
}

type SubscribeInput struct {
	DonorName   string `json:"donorName"`
	DonorEmail  string `json:"donorEmail"`
	Phone       string `json:"phone"`
	Amount      int64  `json:"amount"`
	Message     string `json:"message"`
	IsAnonymous bool   `json:"isAnonymous"`
}

type UpdateSubscriptionInput struct {
	DonorEmail string `json:"donorEmail"`
	Amount     int64  `json:"amount"`
	Phone      string `json:"phone"`
	Message    string `json:"message"`
}

func (c *Client) DirectPay(ctx context.Context, input *DirectPayInput) (string, error) {
	body, status, err := c.doJSON(ctx, http.MethodPost, "/api/donations/direct-pay", input)
	if err != nil {
		return "", err
	}
	if status >= 400 {
		return "", apiError(status, body)
	}

	var payload struct {
		Data struct {
			TransactionID string `json:"transactionId"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", err
	}
	transactionID := strings.TrimSpace(payload.Data.TransactionID)
	if transactionID == "" {
		return "", errors.New("backend direct-pay response is missing a transaction id")
	}
	return transactionID, nil
}

func (c *Client) TransactionStatus(ctx context.Context, transactionID string) (types.TransactionStatus, error) {
	path := "/api/donations/status/" + url.PathEscape(strings.TrimSpace(transactionID))
	body, status, err := c.doJSON(ctx, http.MethodGet, path, nil)
	if err != nil {
		return "", err
	}
	if status >= 400 {
		return "", apiError(status, body)
	}

	var payload struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", err
	}
	return types.TransactionStatus(strings.ToLower(strings.TrimSpace(payload.Status))), nil
}

func (c *Client) Subscribe(ctx context.Context, input *SubscribeInput) error {
	body, status, err := c.doJSON(ctx, http.MethodPost, "/api/subscriptions/subscribe", input)
	if err != nil {
		return err
	}
	if status >= 400 {
		return apiError(status, body)
	}

	var payload struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return err
	}
	if !payload.Success {
		message := strings.TrimSpace(payload.Message)
		if message == "" {
			message = defaultErrorMessage
		}
		return &APIError{StatusCode: status, Message: message}
	}
	return nil
}

// MySubscription returns (nil, nil) when the email has no subscription; a 404
// from the backend is not an error state.
func (c *Client) MySubscription(ctx context.Context, email string) (*types.Subscription, error) {
	path := "/api/subscriptions/my-subscription?email=" + url.QueryEscape(strings.TrimSpace(email))
	body, status, err := c.doJSON(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound {
		return nil, nil
	}
	if status >= 400 {
		return nil, apiError(status, body)
	}

	var payload struct {
		Success bool               `json:"success"`
		Data    types.Subscription `json:"data"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, err
	}
	if !payload.Success || strings.TrimSpace(payload.Data.ID) == "" {
		return nil, nil
	}
	subscription := payload.Data
	return &subscription, nil
}

func (c *Client) UpdateSubscription(ctx context.Context, id string, input *UpdateSubscriptionInput) error {
	path := "/api/subscriptions/" + url.PathEscape(strings.TrimSpace(id))
	return c.doMutation(ctx, http.MethodPut, path, input)
}

func (c *Client) PauseSubscription(ctx context.Context, id, donorEmail string, pauseDuration int32) error {
	path := "/api/subscriptions/" + url.PathEscape(strings.TrimSpace(id)) + "/pause"
	payload := map[string]any{
		"donorEmail":    donorEmail,
		"pauseDuration": pauseDuration,
	}
	return c.doMutation(ctx, http.MethodPost, path, payload)
}

func (c *Client) ResumeSubscription(ctx context.Context, id, donorEmail string) error {
	path := "/api/subscriptions/" + url.PathEscape(strings.TrimSpace(id)) + "/resume"
	payload := map[string]any{"donorEmail": donorEmail}
	return c.doMutation(ctx, http.MethodPost, path, payload)
}

// CancelSubscription carries its payload in the DELETE body, matching the
// backend contract.
func (c *Client) CancelSubscription(ctx context.Context, id, donorEmail, cancelReason string) error {
	path := "/api/subscriptions/" + url.PathEscape(strings.TrimSpace(id))
	payload := map[string]any{
		"donorEmail":   donorEmail,
		"cancelReason": cancelReason,
	}
	return c.doMutation(ctx, http.MethodDelete, path, payload)
}

func (c *Client) doMutation(ctx context.Context, method, path string, payload any) error {
	body, status, err := c.doJSON(ctx, method, path, payload)
	if err != nil {
		return err
	}
	if status >= 400 {
		return apiError(status, body)
	}

	var result struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return err
	}
	if !result.Success {
		message := strings.TrimSpace(result.Message)
		if message == "" {
			message = defaultErrorMessage
		}
		return &APIError{StatusCode: status, Message: message}
	}
	return nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, payload any) ([]byte, int, error) {
	var reqBody io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, 0, err
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, reqBody)
	if err != nil {
		return nil, 0, err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("X-Request-ID", uuid.NewString())
	if c.cfg.APIKey != "" {
		req.Header.Set("X-API-Key", c.cfg.APIKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, 0, ctx.Err()
		}
		return nil, 0, fmt.Errorf("%w: %v", ErrBackendUnreachable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrBackendUnreachable, err)
	}
	return body, resp.StatusCode, nil
}

func apiError(status int, body []byte) error {
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	message := defaultErrorMessage
	if json.Unmarshal(body, &payload) == nil {
		if m := strings.TrimSpace(payload.Message); m != "" {
			message = m
		} else if m := strings.TrimSpace(payload.Error); m != "" {
			message = m
		}
	}
	return &APIError{StatusCode: status, Message: message}
}
