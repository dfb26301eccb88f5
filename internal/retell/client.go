// Package retell is the HTTP client for the Retell voice-AI API. It
// implements the leads module's CallProvider port.
package retell

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"epiclead_backend/internal/leads/ports"
	"epiclead_backend/platform/config"
	"epiclead_backend/platform/logger"
)

const defaultBaseURL = "https://api.retellai.com"

type Client struct {
	baseURL    string
	apiKey     string
	agentID    string
	fromNumber string
	http       *http.Client
	log        *logger.Logger
}

type createCallRequest struct {
	FromNumber       string            `json:"from_number"`
	ToNumber         string            `json:"to_number"`
	OverrideAgentID  string            `json:"override_agent_id,omitempty"`
	Metadata         map[string]string `json:"metadata,omitempty"`
	DynamicVariables map[string]string `json:"retell_llm_dynamic_variables,omitempty"`
}

type createCallResponse struct {
	CallID string `json:"call_id"`
}

type createSMSRequest struct {
	FromNumber string `json:"from_number"`
	ToNumber   string `json:"to_number"`
	Message    string `json:"message"`
}

// NewClient returns nil when the provider is not configured; callers treat a
// nil client as calling disabled.
func NewClient(cfg config.RetellConfig, log *logger.Logger) *Client {
	if !cfg.IsRetellEnabled() {
		return nil
	}

	return &Client{
		baseURL:    defaultBaseURL,
		apiKey:     cfg.GetRetellAPIKey(),
		agentID:    cfg.GetRetellAgentID(),
		fromNumber: cfg.GetRetellFromNumber(),
		http:       &http.Client{Timeout: 15 * time.Second},
		log:        log,
	}
}

// PlaceCall starts an outbound agent call and returns the provider's call id.
func (c *Client) PlaceCall(ctx context.Context, call ports.OutboundCall) (string, error) {
	payload := createCallRequest{
		FromNumber:       c.fromNumber,
		ToNumber:         call.ToNumber,
		OverrideAgentID:  c.agentID,
		Metadata:         call.Metadata,
		DynamicVariables: call.DynamicVars,
	}

	var resp createCallResponse
	if err := c.post(ctx, "/v2/create-phone-call", payload, &resp); err != nil {
		return "", err
	}
	if resp.CallID == "" {
		return "", fmt.Errorf("retell returned no call id")
	}

	c.log.Info("retell call created", "call_id", resp.CallID, "to", call.ToNumber)
	return resp.CallID, nil
}

// SendText opens an SMS conversation with the lead. Best-effort by contract.
func (c *Client) SendText(ctx context.Context, toNumber, message string) error {
	payload := createSMSRequest{
		FromNumber: c.fromNumber,
		ToNumber:   toNumber,
		Message:    message,
	}
	return c.post(ctx, "/create-sms-chat", payload, nil)
}

func (c *Client) post(ctx context.Context, path string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal retell payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewBuffer(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("retell request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode >= http.StatusBadRequest {
		data, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("retell returned %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode retell response: %w", err)
	}
	return nil
}

// Compile-time check that Client implements the leads port
var _ ports.CallProvider = (*Client)(nil)
