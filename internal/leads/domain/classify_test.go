package domain

import "testing"

const fmtExpectedStatus = "expected status=%q, got %q"

func TestClassifyVoicemailIsNoAnswer(t *testing.T) {
	out := ClassifyCallOutcome(CallSignals{DisconnectReason: DisconnectVoicemailReached})
	if out.Status != StatusNoAnswer {
		t.Fatalf(fmtExpectedStatus, StatusNoAnswer, out.Status)
	}
	if !out.FollowUpSMS {
		t.Fatalf("expected follow-up SMS for voicemail")
	}
	if out.Note != "Call ended: voicemail_reached" {
		t.Fatalf("unexpected note %q", out.Note)
	}
}

func TestClassifyNoPickupReasons(t *testing.T) {
	for _, reason := range []string{DisconnectNoAnswer, DisconnectBusy, DisconnectVoicemailReached, DisconnectMachineDetected} {
		out := ClassifyCallOutcome(CallSignals{DisconnectReason: reason})
		if out.Status != StatusNoAnswer {
			t.Fatalf("reason %q: "+fmtExpectedStatus, reason, StatusNoAnswer, out.Status)
		}
		if !out.FollowUpSMS {
			t.Fatalf("reason %q: expected follow-up SMS", reason)
		}
	}
}

func TestClassifyErroredHangupIsNoAnswer(t *testing.T) {
	out := ClassifyCallOutcome(CallSignals{DisconnectReason: DisconnectUserHangup, CallStatus: "error"})
	if out.Status != StatusNoAnswer {
		t.Fatalf(fmtExpectedStatus, StatusNoAnswer, out.Status)
	}
	if !out.FollowUpSMS {
		t.Fatalf("expected follow-up SMS")
	}
}

func TestClassifyBookedFlagWins(t *testing.T) {
	out := ClassifyCallOutcome(CallSignals{
		CallStatus:     "ended",
		Transcript:     longTranscript(),
		CustomAnalysis: map[string]any{"booked": true},
	})
	if out.Status != StatusAIBooked {
		t.Fatalf(fmtExpectedStatus, StatusAIBooked, out.Status)
	}
	if out.FollowUpSMS {
		t.Fatalf("booked lead must not get a follow-up SMS")
	}
}

func TestClassifySummaryBookingKeyword(t *testing.T) {
	out := ClassifyCallOutcome(CallSignals{
		CallStatus: "completed",
		Summary:    "Caller agreed to Book a demo for Friday",
	})
	if out.Status != StatusAIBooked {
		t.Fatalf(fmtExpectedStatus, StatusAIBooked, out.Status)
	}
	if out.Note != "Caller agreed to Book a demo for Friday" {
		t.Fatalf("expected summary to become the note, got %q", out.Note)
	}
}

// Booking signals must outrank sentiment: a negative-but-booked call is still
// a booking.
func TestClassifyBookingOutranksNegativeSentiment(t *testing.T) {
	out := ClassifyCallOutcome(CallSignals{
		CallStatus:     "ended",
		Sentiment:      "Negative",
		Transcript:     longTranscript(),
		CustomAnalysis: map[string]any{"booked": true},
	})
	if out.Status != StatusAIBooked {
		t.Fatalf(fmtExpectedStatus, StatusAIBooked, out.Status)
	}
}

func TestClassifyNegativeSentimentIsNotQualified(t *testing.T) {
	out := ClassifyCallOutcome(CallSignals{CallStatus: "ended", Sentiment: "Negative", Transcript: longTranscript()})
	if out.Status != StatusNotQualified {
		t.Fatalf(fmtExpectedStatus, StatusNotQualified, out.Status)
	}
}

func TestClassifyExplicitUnqualifiedFlag(t *testing.T) {
	out := ClassifyCallOutcome(CallSignals{
		CallStatus:     "ended",
		Transcript:     longTranscript(),
		CustomAnalysis: map[string]any{"qualified": false},
	})
	if out.Status != StatusNotQualified {
		t.Fatalf(fmtExpectedStatus, StatusNotQualified, out.Status)
	}
}

func TestClassifyAbsentQualifiedFlagIsNotFalse(t *testing.T) {
	out := ClassifyCallOutcome(CallSignals{CallStatus: "ended", Transcript: longTranscript()})
	if out.Status != StatusNotQualified {
		// Falls through to rule 5: completed, long transcript, no booking.
		t.Fatalf(fmtExpectedStatus, StatusNotQualified, out.Status)
	}
	if out.Note != "Call completed, no booking" {
		t.Fatalf("unexpected note %q", out.Note)
	}
}

func TestClassifyShortTranscriptIsNoAnswer(t *testing.T) {
	out := ClassifyCallOutcome(CallSignals{CallStatus: "completed", Transcript: "Hello?"})
	if out.Status != StatusNoAnswer {
		t.Fatalf(fmtExpectedStatus, StatusNoAnswer, out.Status)
	}
	if !out.FollowUpSMS {
		t.Fatalf("expected follow-up SMS for short call")
	}
}

func TestClassifyDefaultIsConservativeNoAnswer(t *testing.T) {
	out := ClassifyCallOutcome(CallSignals{})
	if out.Status != StatusNoAnswer {
		t.Fatalf(fmtExpectedStatus, StatusNoAnswer, out.Status)
	}
	if out.FollowUpSMS {
		t.Fatalf("default outcome must not trigger an SMS")
	}
}

func TestClassifySummaryAlwaysOverwritesNote(t *testing.T) {
	out := ClassifyCallOutcome(CallSignals{
		DisconnectReason: DisconnectBusy,
		Summary:          "Line was busy, left nothing",
	})
	if out.Note != "Line was busy, left nothing" {
		t.Fatalf("expected summary to overwrite note, got %q", out.Note)
	}
	if out.Status != StatusNoAnswer {
		t.Fatalf(fmtExpectedStatus, StatusNoAnswer, out.Status)
	}
}

// Totality: every combination yields a defined status from the enum.
func TestClassifyIsTotal(t *testing.T) {
	reasons := []string{"", DisconnectNoAnswer, DisconnectUserHangup, "agent_hangup"}
	statuses := []string{"", "ended", "completed", "error", "registered"}
	sentiments := []string{"", "Positive", "Negative", "Neutral"}
	analyses := []map[string]any{nil, {"booked": true}, {"qualified": false}, {"booked": false, "qualified": true}}
	transcripts := []string{"", longTranscript()}

	valid := map[Status]bool{
		StatusNoAnswer: true, StatusNotQualified: true, StatusAIBooked: true,
	}

	for _, r := range reasons {
		for _, cs := range statuses {
			for _, sent := range sentiments {
				for _, an := range analyses {
					for _, tr := range transcripts {
						out := ClassifyCallOutcome(CallSignals{
							DisconnectReason: r,
							CallStatus:       cs,
							Sentiment:        sent,
							CustomAnalysis:   an,
							Transcript:       tr,
						})
						if !valid[out.Status] {
							t.Fatalf("classifier produced unexpected status %q for reason=%q status=%q", out.Status, r, cs)
						}
					}
				}
			}
		}
	}
}

func TestAllowClassifierTransitionGuardsDowngrades(t *testing.T) {
	if AllowClassifierTransition(StatusBooked, StatusNoAnswer) {
		t.Fatalf("booked lead must not downgrade to no_answer")
	}
	if AllowClassifierTransition(StatusAIBooked, StatusNotQualified) {
		t.Fatalf("ai_booked lead must not downgrade to not_qualified")
	}
	if AllowClassifierTransition(StatusCancelled, StatusNoAnswer) {
		t.Fatalf("cancelled lead must not be revived by a stale call outcome")
	}
	if !AllowClassifierTransition(StatusAICalled, StatusNoAnswer) {
		t.Fatalf("ai_called to no_answer must be allowed")
	}
	if !AllowClassifierTransition(StatusBooked, StatusAIBooked) {
		t.Fatalf("booked states may move between each other")
	}
}

func TestSkipsOutboundCall(t *testing.T) {
	if SkipsOutboundCall(StatusFormStarted) {
		t.Fatalf("form_started must remain dialable")
	}
	for _, s := range []Status{StatusBooked, StatusAICalled, StatusAIBooked, StatusNotQualified, StatusNoAnswer, StatusCancelled} {
		if !SkipsOutboundCall(s) {
			t.Fatalf("status %q must skip the outbound call", s)
		}
	}
}

func longTranscript() string {
	text := ""
	for range 10 {
		text += "Agent: Hi, this is the assistant calling about your request. "
	}
	return text
}
