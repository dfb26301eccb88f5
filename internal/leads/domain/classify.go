package domain

import "strings"

// Disconnect reasons reported by the calling provider.
const (
	DisconnectNoAnswer         = "no_answer"
	DisconnectBusy             = "busy"
	DisconnectVoicemailReached = "voicemail_reached"
	DisconnectMachineDetected  = "machine_detected"
	DisconnectUserHangup       = "user_hangup"
)

// shortTranscriptThreshold is the transcript length below which a completed
// call is treated as no real conversation.
const shortTranscriptThreshold = 100

// CallSignals is the bundle of signals one call-ended event carries.
type CallSignals struct {
	DisconnectReason string
	CallStatus       string
	Transcript       string
	Sentiment        string
	Summary          string
	CustomAnalysis   map[string]any
}

// Outcome is the classifier's verdict for one call-ended event.
type Outcome struct {
	Status      Status
	Note        string
	FollowUpSMS bool
}

// ClassifyCallOutcome maps one bundle of call signals to exactly one lead
// status. Rules are evaluated in fixed precedence order and the first match
// wins: booking signals outrank sentiment, and sentiment outranks generic
// completion, so a negative-but-booked call still classifies as booked.
// The function is total: every input yields a defined status, with no_answer
// as the conservative default.
func ClassifyCallOutcome(sig CallSignals) Outcome {
	// 1. The callee never picked up.
	switch sig.DisconnectReason {
	case DisconnectNoAnswer, DisconnectBusy, DisconnectVoicemailReached, DisconnectMachineDetected:
		return withSummary(sig, Outcome{
			Status:      StatusNoAnswer,
			Note:        "Call ended: " + sig.DisconnectReason,
			FollowUpSMS: true,
		})
	}

	// 2. Errored call that the user hung up on immediately.
	if sig.DisconnectReason == DisconnectUserHangup && sig.CallStatus == "error" {
		return withSummary(sig, Outcome{
			Status:      StatusNoAnswer,
			Note:        "Call error or user hung up immediately",
			FollowUpSMS: true,
		})
	}

	// 3. Booking signal, from the analysis flag or the summary text.
	if flagTrue(sig.CustomAnalysis, "booked") || strings.Contains(strings.ToLower(sig.Summary), "book") {
		return withSummary(sig, Outcome{
			Status: StatusAIBooked,
			Note:   noteOr(sig.Summary, "AI booked appointment"),
		})
	}

	// 4. Negative sentiment or an explicit not-qualified verdict.
	if sig.Sentiment == "Negative" || flagFalse(sig.CustomAnalysis, "qualified") {
		return withSummary(sig, Outcome{
			Status: StatusNotQualified,
			Note:   noteOr(sig.Summary, "Lead not qualified"),
		})
	}

	// 5. Completed call with no booking signal.
	if sig.CallStatus == "ended" || sig.CallStatus == "completed" {
		if len(sig.Transcript) < shortTranscriptThreshold {
			return withSummary(sig, Outcome{
				Status:      StatusNoAnswer,
				Note:        "Very short call, likely no real conversation",
				FollowUpSMS: true,
			})
		}
		return withSummary(sig, Outcome{
			Status: StatusNotQualified,
			Note:   noteOr(sig.Summary, "Call completed, no booking"),
		})
	}

	// 6. Conservative default.
	return withSummary(sig, Outcome{Status: StatusNoAnswer})
}

// withSummary applies the rule that a non-empty call summary always overwrites
// the note, regardless of which rule fired.
func withSummary(sig CallSignals, out Outcome) Outcome {
	if sig.Summary != "" {
		out.Note = sig.Summary
	}
	return out
}

func noteOr(summary, fallback string) string {
	if summary != "" {
		return summary
	}
	return fallback
}

// flagTrue reports whether the custom analysis carries key with value true.
func flagTrue(analysis map[string]any, key string) bool {
	value, ok := analysis[key].(bool)
	return ok && value
}

// flagFalse reports whether the custom analysis carries key with an explicit
// false. An absent flag is not the same as false.
func flagFalse(analysis map[string]any, key string) bool {
	value, ok := analysis[key].(bool)
	return ok && !value
}
