// Package calendly is the HTTP client for the Calendly v2 API. It implements
// the leads module's SchedulingProvider port.
package calendly

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

	"epiclead_backend/internal/leads/ports"
	"epiclead_backend/platform/config"
	"epiclead_backend/platform/logger"
)

const defaultBaseURL = "https://api.calendly.com"

type Client struct {
	baseURL   string
	token     string
	eventType string
	timezone  string
	http      *http.Client
	log       *logger.Logger
}

// NewClient returns nil when the provider is not configured; callers treat a
// nil client as scheduling disabled.
func NewClient(cfg config.CalendlyConfig, log *logger.Logger) *Client {
	if !cfg.IsCalendlyEnabled() {
		return nil
	}

	return &Client{
		baseURL:   defaultBaseURL,
		token:     cfg.GetCalendlyToken(),
		eventType: cfg.GetCalendlyEventType(),
		timezone:  cfg.GetCalendlyTimezone(),
		http:      &http.Client{Timeout: 15 * time.Second},
		log:       log,
	}
}

type availableTimesResponse struct {
	Collection []struct {
		StartTime time.Time `json:"start_time"`
		Status    string    `json:"status"`
	} `json:"collection"`
}

// AvailableTimes lists the event type's open slots inside the window.
// Calendly rejects windows longer than seven days, so the end is clamped.
func (c *Client) AvailableTimes(ctx context.Context, start, end time.Time) ([]ports.Slot, error) {
	if max := start.Add(7 * 24 * time.Hour); end.After(max) {
		end = max
	}

	query := url.Values{}
	query.Set("event_type", c.eventType)
	query.Set("start_time", start.UTC().Format(time.RFC3339))
	query.Set("end_time", end.UTC().Format(time.RFC3339))

	var resp availableTimesResponse
	if err := c.do(ctx, http.MethodGet, "/event_type_available_times?"+query.Encode(), nil, &resp); err != nil {
		return nil, err
	}

	slots := make([]ports.Slot, 0, len(resp.Collection))
	for _, entry := range resp.Collection {
		if entry.Status != "" && entry.Status != "available" {
			continue
		}
		slots = append(slots, ports.Slot{StartTime: entry.StartTime})
	}
	return slots, nil
}

type createInviteeRequest struct {
	EventType string         `json:"event_type"`
	StartTime string         `json:"start_time"`
	Invitee   inviteeDetails `json:"invitee"`
}

type inviteeDetails struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Timezone string `json:"timezone"`
}

type inviteeResource struct {
	Resource struct {
		URI           string `json:"uri"`
		CancelURL     string `json:"cancel_url"`
		RescheduleURL string `json:"reschedule_url"`
		Event         struct {
			URI string `json:"uri"`
		} `json:"event"`
	} `json:"resource"`
}

// BookInvitee books a slot directly on the configured event type.
func (c *Client) BookInvitee(ctx context.Context, req ports.BookingRequest) (ports.Booking, error) {
	timezone := req.Timezone
	if timezone == "" {
		timezone = c.timezone
	}

	payload := createInviteeRequest{
		EventType: c.eventType,
		StartTime: req.StartTime.UTC().Format(time.RFC3339),
		Invitee: inviteeDetails{
			Name:     req.Name,
			Email:    req.Email,
			Timezone: timezone,
		},
	}

	var resp inviteeResource
	if err := c.do(ctx, http.MethodPost, "/invitees", payload, &resp); err != nil {
		return ports.Booking{}, err
	}

	eventURI := resp.Resource.Event.URI
	if eventURI == "" {
		eventURI = resp.Resource.URI
	}

	c.log.Info("calendly invitee booked", "event_uri", eventURI)
	return ports.Booking{
		EventURI:      eventURI,
		CancelURL:     resp.Resource.CancelURL,
		RescheduleURL: resp.Resource.RescheduleURL,
	}, nil
}

type cancellationRequest struct {
	Reason string `json:"reason,omitempty"`
}

// CancelEvent cancels a booked event. Calendly answers 403 for an event that
// is already cancelled; that is reported as ErrAlreadyCancelled rather than a
// failure.
func (c *Client) CancelEvent(ctx context.Context, eventURI, reason string) error {
	err := c.doAbsolute(ctx, http.MethodPost, eventURI+"/cancellation", cancellationRequest{Reason: reason}, nil)
	var statusErr *statusError
	if errors.As(err, &statusErr) && statusErr.code == http.StatusForbidden {
		return ports.ErrAlreadyCancelled
	}
	return err
}

type eventResource struct {
	Resource struct {
		StartTime time.Time `json:"start_time"`
	} `json:"resource"`
}

// EventStartTime fetches a booked event's start time by its URI.
func (c *Client) EventStartTime(ctx context.Context, eventURI string) (time.Time, error) {
	var resp eventResource
	if err := c.doAbsolute(ctx, http.MethodGet, eventURI, nil, &resp); err != nil {
		return time.Time{}, err
	}
	return resp.Resource.StartTime, nil
}

type schedulingLinkRequest struct {
	MaxEventCount int    `json:"max_event_count"`
	Owner         string `json:"owner"`
	OwnerType     string `json:"owner_type"`
}

type schedulingLinkResponse struct {
	Resource struct {
		BookingURL string `json:"booking_url"`
	} `json:"resource"`
}

// SingleUseLink creates a one-shot booking link for the configured event type.
func (c *Client) SingleUseLink(ctx context.Context) (string, error) {
	payload := schedulingLinkRequest{
		MaxEventCount: 1,
		Owner:         c.eventType,
		OwnerType:     "EventType",
	}

	var resp schedulingLinkResponse
	if err := c.do(ctx, http.MethodPost, "/scheduling_links", payload, &resp); err != nil {
		return "", err
	}
	if resp.Resource.BookingURL == "" {
		return "", fmt.Errorf("calendly returned no booking url")
	}
	return resp.Resource.BookingURL, nil
}

// statusError preserves the HTTP status of a failed Calendly call so callers
// can tell permanent conditions from transient ones.
type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("calendly returned %d: %s", e.code, e.body)
}

func (c *Client) do(ctx context.Context, method, path string, payload, out any) error {
	return c.doAbsolute(ctx, method, c.baseURL+path, payload, out)
}

func (c *Client) doAbsolute(ctx context.Context, method, fullURL string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal calendly payload: %w", err)
		}
		body = bytes.NewBuffer(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("calendly request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode >= http.StatusBadRequest {
		data, _ := io.ReadAll(resp.Body)
		return &statusError{code: resp.StatusCode, body: strings.TrimSpace(string(data))}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode calendly response: %w", err)
	}
	return nil
}

// Compile-time check that Client implements the leads port
var _ ports.SchedulingProvider = (*Client)(nil)
