package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"epiclead_backend/internal/leads/service"
	"epiclead_backend/platform/apperr"
	"epiclead_backend/platform/logger"

	"github.com/gin-gonic/gin"
)

type fakeReconciler struct {
	callOutcomes []service.CallOutcomeParams
	bookings     []service.BookingCreatedParams
	callErr      error
	bookErr      error
	inboundVars  map[string]string
}

func (f *fakeReconciler) HandleCallOutcome(_ context.Context, params service.CallOutcomeParams) error {
	if f.callErr != nil {
		return f.callErr
	}
	f.callOutcomes = append(f.callOutcomes, params)
	return nil
}

func (f *fakeReconciler) HandleBookingCreated(_ context.Context, params service.BookingCreatedParams) error {
	if f.bookErr != nil {
		return f.bookErr
	}
	f.bookings = append(f.bookings, params)
	return nil
}

func (f *fakeReconciler) InboundCallVariables(_ context.Context, _ string) map[string]string {
	return f.inboundVars
}

func newTestRouter(rec *fakeReconciler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	handler := NewHandler(rec, logger.New("development"))

	router := gin.New()
	router.POST("/retell", handler.HandleRetellCall)
	router.POST("/retell/inbound", handler.HandleRetellInbound)
	router.POST("/calendly", handler.HandleCalendly)
	return router
}

func postJSON(router *gin.Engine, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestRetellCallEndedProcessed(t *testing.T) {
	fake := &fakeReconciler{}
	router := newTestRouter(fake)

	rec := postJSON(router, "/retell", `{
		"event": "call_ended",
		"call": {
			"call_id": "call_abc",
			"call_status": "ended",
			"disconnection_reason": "voicemail_reached",
			"to_number": "+15558675309",
			"metadata": {"lead_id": "11111111-1111-1111-1111-111111111111"},
			"call_analysis": {"call_summary": "Left a voicemail.", "user_sentiment": "Neutral"}
		}
	}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if len(fake.callOutcomes) != 1 {
		t.Fatalf("reconciler calls = %d, want 1", len(fake.callOutcomes))
	}

	got := fake.callOutcomes[0]
	if got.LeadID != "11111111-1111-1111-1111-111111111111" {
		t.Fatalf("lead id = %q", got.LeadID)
	}
	if got.RetellCallID != "call_abc" {
		t.Fatalf("call id = %q", got.RetellCallID)
	}
	if got.CallerPhone != "+15558675309" {
		t.Fatalf("caller phone = %q", got.CallerPhone)
	}
	if got.Signals.DisconnectReason != "voicemail_reached" || got.Signals.Summary != "Left a voicemail." {
		t.Fatalf("signals = %+v", got.Signals)
	}
}

func TestRetellDisconnectReasonField(t *testing.T) {
	fake := &fakeReconciler{}
	router := newTestRouter(fake)

	rec := postJSON(router, "/retell", `{
		"event": "call_ended",
		"call": {
			"call_id": "call_dr",
			"call_status": "ended",
			"disconnect_reason": "voicemail_reached",
			"to_number": "+15558675309",
			"metadata": {"lead_id": "11111111-1111-1111-1111-111111111111"}
		}
	}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if len(fake.callOutcomes) != 1 {
		t.Fatalf("reconciler calls = %d, want 1", len(fake.callOutcomes))
	}
	if got := fake.callOutcomes[0].Signals.DisconnectReason; got != "voicemail_reached" {
		t.Fatalf("disconnect reason = %q, want voicemail_reached", got)
	}
}

func TestRetellEndReasonFallback(t *testing.T) {
	var call RetellCall
	if err := json.Unmarshal([]byte(`{"call_id": "c1", "end_reason": "dial_no_answer"}`), &call); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if call.DisconnectReason != "dial_no_answer" {
		t.Fatalf("disconnect reason = %q, want end_reason fallback", call.DisconnectReason)
	}
}

func TestRetellFlatPayloadAccepted(t *testing.T) {
	fake := &fakeReconciler{}
	router := newTestRouter(fake)

	rec := postJSON(router, "/retell", `{
		"event": "call_ended",
		"call_id": "call_flat",
		"call_status": "ended",
		"disconnect_reason": "user_hangup",
		"from_number": "+15550002222",
		"metadata": {"lead_id": "22222222-2222-2222-2222-222222222222"}
	}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if len(fake.callOutcomes) != 1 {
		t.Fatalf("reconciler calls = %d, want 1", len(fake.callOutcomes))
	}
	got := fake.callOutcomes[0]
	if got.RetellCallID != "call_flat" || got.LeadID != "22222222-2222-2222-2222-222222222222" {
		t.Fatalf("flat delivery not attributed: %+v", got)
	}
}

func TestRetellDataWrappedPayloadAccepted(t *testing.T) {
	var payload RetellCallPayload
	body := `{"event": "call_ended", "data": {"call_id": "call_data", "disconnect_reason": "voicemail_reached"}}`
	if err := json.Unmarshal([]byte(body), &payload); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if payload.Call.CallID != "call_data" || payload.Call.DisconnectReason != "voicemail_reached" {
		t.Fatalf("data envelope dropped: %+v", payload.Call)
	}
}

func TestRetellNonCallEndedSkipped(t *testing.T) {
	fake := &fakeReconciler{}
	router := newTestRouter(fake)

	rec := postJSON(router, "/retell", `{"event": "call_started", "call": {"call_id": "call_abc"}}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if len(fake.callOutcomes) != 0 {
		t.Fatalf("skipped event reached the reconciler")
	}
}

func TestRetellUnknownLeadIs404(t *testing.T) {
	fake := &fakeReconciler{callErr: apperr.NotFound("no lead matches this call")}
	router := newTestRouter(fake)

	rec := postJSON(router, "/retell", `{"event": "call_ended", "call": {"call_id": "call_zzz"}}`)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestRetellInternalFaultIs500(t *testing.T) {
	fake := &fakeReconciler{callErr: apperr.Internal("db down")}
	router := newTestRouter(fake)

	rec := postJSON(router, "/retell", `{"event": "call_ended", "call": {"call_id": "call_zzz"}}`)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
}

func TestRetellInboundAlwaysConnects(t *testing.T) {
	fake := &fakeReconciler{inboundVars: map[string]string{"first_name": "Jamie"}}
	router := newTestRouter(fake)

	rec := postJSON(router, "/retell/inbound", `{"event": "call_inbound", "call_inbound": {"from_number": "+15558675309"}}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var resp struct {
		CallInbound struct {
			DynamicVariables map[string]string `json:"dynamic_variables"`
		} `json:"call_inbound"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.CallInbound.DynamicVariables["first_name"] != "Jamie" {
		t.Fatalf("dynamic variables = %v", resp.CallInbound.DynamicVariables)
	}

	// Malformed payloads still answer 200 with empty variables.
	rec = postJSON(router, "/retell/inbound", `{not json`)
	if rec.Code != http.StatusOK {
		t.Fatalf("malformed payload status = %d, want 200", rec.Code)
	}
}

func TestCalendlyInviteeCreatedProcessed(t *testing.T) {
	fake := &fakeReconciler{}
	router := newTestRouter(fake)

	rec := postJSON(router, "/calendly", `{
		"event": "invitee.created",
		"payload": {
			"uri": "https://api.calendly.com/scheduled_events/ev1/invitees/INV123",
			"name": "Jamie Rivera",
			"email": "jamie@example.com",
			"text_reminder_number": "+15550001111",
			"questions_and_answers": [{"question": "Phone Number", "answer": "555-867-5309"}],
			"event": "https://api.calendly.com/scheduled_events/ev1"
		}
	}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if len(fake.bookings) != 1 {
		t.Fatalf("bookings = %d, want 1", len(fake.bookings))
	}

	got := fake.bookings[0]
	if got.CalendlyUID != "INV123" {
		t.Fatalf("uid = %q", got.CalendlyUID)
	}
	if got.Phone != "555-867-5309" {
		t.Fatalf("phone = %q, want the form question to win over the reminder number", got.Phone)
	}
	if got.EventURI != "https://api.calendly.com/scheduled_events/ev1" {
		t.Fatalf("event uri = %q", got.EventURI)
	}
}

func TestCalendlyOtherEventsSkipped(t *testing.T) {
	fake := &fakeReconciler{}
	router := newTestRouter(fake)

	rec := postJSON(router, "/calendly", `{"event": "invitee.canceled", "payload": {}}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if len(fake.bookings) != 0 {
		t.Fatalf("skipped event reached the reconciler")
	}
}

func TestCalendlyHandlerFaultIs500(t *testing.T) {
	fake := &fakeReconciler{bookErr: apperr.Internal("db down")}
	router := newTestRouter(fake)

	rec := postJSON(router, "/calendly", `{"event": "invitee.created", "payload": {"uri": "x/INV1"}}`)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
}

func TestCalendlyEventURISources(t *testing.T) {
	cases := []struct {
		name string
		body string
		want string
	}{
		{"string event field", `{"event": "https://api.calendly.com/scheduled_events/ev1"}`, "https://api.calendly.com/scheduled_events/ev1"},
		{"object event field", `{"event": {"uri": "https://api.calendly.com/scheduled_events/ev2"}}`, "https://api.calendly.com/scheduled_events/ev2"},
		{"scheduled_event fallback", `{"scheduled_event": {"uri": "https://api.calendly.com/scheduled_events/ev3"}}`, "https://api.calendly.com/scheduled_events/ev3"},
		{"string wins over scheduled_event", `{"event": "https://api.calendly.com/scheduled_events/ev4", "scheduled_event": {"uri": "other"}}`, "https://api.calendly.com/scheduled_events/ev4"},
	}
	for _, tc := range cases {
		var invitee CalendlyInvitee
		if err := json.Unmarshal([]byte(tc.body), &invitee); err != nil {
			t.Fatalf("%s: unmarshal: %v", tc.name, err)
		}
		if got := invitee.EventURI(); got != tc.want {
			t.Fatalf("%s: EventURI() = %q, want %q", tc.name, got, tc.want)
		}
	}
}

func TestCalendlyPhoneFallsBackToReminderNumber(t *testing.T) {
	invitee := CalendlyInvitee{
		TextReminderNumber: "+15550001111",
		QuestionsAndAnswers: []CalendlyQuestion{
			{Question: "Anything else?", Answer: "no"},
		},
	}
	if got := invitee.Phone(); got != "+15550001111" {
		t.Fatalf("Phone() = %q, want reminder number fallback", got)
	}
}
