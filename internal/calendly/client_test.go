package calendly

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"epiclead_backend/internal/leads/ports"
	"epiclead_backend/platform/logger"
)

func testClient(serverURL string) *Client {
	return &Client{
		baseURL:   serverURL,
		token:     "pat_test",
		eventType: serverURL + "/event_types/ET1",
		timezone:  "America/Chicago",
		http:      &http.Client{Timeout: 2 * time.Second},
		log:       logger.New("development"),
	}
}

func TestAvailableTimesFiltersAndClamps(t *testing.T) {
	var gotQuery map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = map[string]string{
			"event_type": r.URL.Query().Get("event_type"),
			"start_time": r.URL.Query().Get("start_time"),
			"end_time":   r.URL.Query().Get("end_time"),
		}
		_, _ = w.Write([]byte(`{"collection": [
			{"start_time": "2026-09-07T15:00:00Z", "status": "available"},
			{"start_time": "2026-09-07T16:00:00Z", "status": "unavailable"},
			{"start_time": "2026-09-07T17:00:00Z", "status": "available"}
		]}`))
	}))
	defer server.Close()

	client := testClient(server.URL)
	start := time.Date(2026, 9, 7, 0, 0, 0, 0, time.UTC)
	slots, err := client.AvailableTimes(context.Background(), start, start.AddDate(0, 1, 0))
	if err != nil {
		t.Fatalf("AvailableTimes() error = %v", err)
	}
	if len(slots) != 2 {
		t.Fatalf("slots = %d, want 2 after filtering unavailable", len(slots))
	}
	if gotQuery["event_type"] == "" {
		t.Fatalf("event_type not sent")
	}

	// A month-long window must be clamped to Calendly's seven-day maximum.
	end, err := time.Parse(time.RFC3339, gotQuery["end_time"])
	if err != nil {
		t.Fatalf("end_time %q: %v", gotQuery["end_time"], err)
	}
	if end.After(start.Add(7 * 24 * time.Hour)) {
		t.Fatalf("end_time %v beyond the seven-day clamp", end)
	}
}

func TestBookInvitee(t *testing.T) {
	var got createInviteeRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/invitees" {
			t.Errorf("path = %q", r.URL.Path)
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		_, _ = w.Write([]byte(`{"resource": {
			"uri": "https://api.calendly.com/scheduled_events/ev1/invitees/inv1",
			"cancel_url": "https://calendly.com/cancellations/inv1",
			"event": {"uri": "https://api.calendly.com/scheduled_events/ev1"}
		}}`))
	}))
	defer server.Close()

	booking, err := testClient(server.URL).BookInvitee(context.Background(), ports.BookingRequest{
		StartTime: time.Date(2026, 9, 7, 15, 0, 0, 0, time.UTC),
		Name:      "Jamie Rivera",
		Email:     "jamie@example.com",
	})
	if err != nil {
		t.Fatalf("BookInvitee() error = %v", err)
	}
	if booking.EventURI != "https://api.calendly.com/scheduled_events/ev1" {
		t.Fatalf("event uri = %q", booking.EventURI)
	}
	if got.Invitee.Timezone != "America/Chicago" {
		t.Fatalf("timezone default not applied: %q", got.Invitee.Timezone)
	}
	if got.StartTime != "2026-09-07T15:00:00Z" {
		t.Fatalf("start time = %q", got.StartTime)
	}
}

func TestCancelEventAlreadyCancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"title": "Permission Denied"}`, http.StatusForbidden)
	}))
	defer server.Close()

	client := testClient(server.URL)
	err := client.CancelEvent(context.Background(), server.URL+"/scheduled_events/ev1", "caller asked")
	if !errors.Is(err, ports.ErrAlreadyCancelled) {
		t.Fatalf("error = %v, want ErrAlreadyCancelled on 403", err)
	}
}

func TestCancelEventOtherFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	client := testClient(server.URL)
	err := client.CancelEvent(context.Background(), server.URL+"/scheduled_events/ev1", "caller asked")
	if err == nil || errors.Is(err, ports.ErrAlreadyCancelled) {
		t.Fatalf("error = %v, want plain failure on 500", err)
	}
}

func TestEventStartTime(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"resource": {"start_time": "2026-09-07T15:00:00Z"}}`))
	}))
	defer server.Close()

	start, err := testClient(server.URL).EventStartTime(context.Background(), server.URL+"/scheduled_events/ev1")
	if err != nil {
		t.Fatalf("EventStartTime() error = %v", err)
	}
	want := time.Date(2026, 9, 7, 15, 0, 0, 0, time.UTC)
	if !start.Equal(want) {
		t.Fatalf("start = %v, want %v", start, want)
	}
}

func TestSingleUseLink(t *testing.T) {
	var got schedulingLinkRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/scheduling_links" {
			t.Errorf("path = %q", r.URL.Path)
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		_, _ = w.Write([]byte(`{"resource": {"booking_url": "https://calendly.com/d/abc-def"}}`))
	}))
	defer server.Close()

	link, err := testClient(server.URL).SingleUseLink(context.Background())
	if err != nil {
		t.Fatalf("SingleUseLink() error = %v", err)
	}
	if link != "https://calendly.com/d/abc-def" {
		t.Fatalf("link = %q", link)
	}
	if got.MaxEventCount != 1 || got.OwnerType != "EventType" {
		t.Fatalf("request = %+v", got)
	}
}

func TestNewClientDisabled(t *testing.T) {
	if client := NewClient(disabledConfig{}, logger.New("development")); client != nil {
		t.Fatalf("NewClient() = %v, want nil when unconfigured", client)
	}
}

type disabledConfig struct{}

func (disabledConfig) GetCalendlyToken() string         { return "" }
func (disabledConfig) GetCalendlyEventType() string     { return "" }
func (disabledConfig) GetCalendlyWebhookSecret() string { return "" }
func (disabledConfig) GetCalendlyTimezone() string      { return "UTC" }
func (disabledConfig) IsCalendlyEnabled() bool          { return false }
