// Package smsgateway is a client for the SMS verification provider. The
// provider both delivers the code and checks it, so no code material is ever
// held on our side.
package smsgateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Verifier starts and checks phone verifications.
type Verifier interface {
	// SendCode asks the provider to deliver a verification code to phone.
	SendCode(ctx context.Context, phone string) error

	// CheckCode asks the provider whether code is the one delivered to
	// phone. A wrong or stale code is (false, nil); err is reserved for
	// transport and provider failures.
	CheckCode(ctx context.Context, phone, code string) (bool, error)
}

// Client talks to the provider's verification API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

var _ Verifier = (*Client)(nil)

func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type verificationRequest struct {
	To      string `json:"to"`
	Channel string `json:"channel"`
}

type verificationCheckRequest struct {
	To   string `json:"to"`
	Code string `json:"code"`
}

type verificationResponse struct {
	Status string `json:"status"`
}

type errorResponse struct {
	Message string `json:"message"`
	Code    int    `json:"code"`
}

func (e *errorResponse) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("sms gateway error %d: %s", e.Code, e.Message)
	}
	return "unknown sms gateway error"
}

func (c *Client) SendCode(ctx context.Context, phone string) error {
	payload := verificationRequest{To: phone, Channel: "sms"}
	_, err := c.post(ctx, "/v2/verifications", payload)
	return err
}

func (c *Client) CheckCode(ctx context.Context, phone, code string) (bool, error) {
	payload := verificationCheckRequest{To: phone, Code: code}
	resp, err := c.post(ctx, "/v2/verifications/check", payload)
	if err != nil {
		return false, err
	}
	return resp.Status == "approved", nil
}

func (c *Client) post(ctx context.Context, path string, payload any) (*verificationResponse, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("smsgateway: marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewBuffer(body))
	if err != nil {
		return nil, fmt.Errorf("smsgateway: creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("smsgateway: executing request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("smsgateway: reading response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var errResp errorResponse
		if err := json.Unmarshal(respBody, &errResp); err != nil {
			return nil, fmt.Errorf("smsgateway: unexpected status %d", resp.StatusCode)
		}
		errResp.Code = resp.StatusCode
		return nil, &errResp
	}

	var out verificationResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return nil, fmt.Errorf("smsgateway: decoding response: %w", err)
	}
	return &out, nil
}
