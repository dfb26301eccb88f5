package webhook

import (
	"encoding/json"
	"strings"
)

// RetellCallPayload is the calling provider's webhook envelope. The call
// object has arrived wrapped under "data", under "call", and flat at the top
// level depending on provider version, so all three shapes are accepted. Only
// call_ended deliveries are processed; everything else is acknowledged and
// skipped.
type RetellCallPayload struct {
	Event string     `json:"event"`
	Call  RetellCall `json:"call"`
}

func (p *RetellCallPayload) UnmarshalJSON(data []byte) error {
	var envelope struct {
		Event string      `json:"event"`
		Call  *RetellCall `json:"call"`
		Data  *RetellCall `json:"data"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return err
	}
	p.Event = envelope.Event
	switch {
	case envelope.Data != nil && envelope.Data.CallID != "":
		p.Call = *envelope.Data
	case envelope.Call != nil && envelope.Call.CallID != "":
		p.Call = *envelope.Call
	default:
		return json.Unmarshal(data, &p.Call)
	}
	return nil
}

type RetellCall struct {
	CallID           string            `json:"call_id"`
	CallStatus       string            `json:"call_status"`
	DisconnectReason string            `json:"disconnect_reason"`
	Transcript       string            `json:"transcript"`
	FromNumber       string            `json:"from_number"`
	ToNumber         string            `json:"to_number"`
	Metadata         map[string]string `json:"metadata"`
	Analysis         RetellAnalysis    `json:"call_analysis"`
}

// UnmarshalJSON folds the provider's alternate reason fields into
// DisconnectReason: disconnect_reason wins, then end_reason, then the live
// API's disconnection_reason spelling.
func (c *RetellCall) UnmarshalJSON(data []byte) error {
	type plain RetellCall
	aux := struct {
		*plain
		EndReason       string `json:"end_reason"`
		LiveAPISpelling string `json:"disconnection_reason"`
	}{plain: (*plain)(c)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if c.DisconnectReason == "" {
		c.DisconnectReason = aux.EndReason
	}
	if c.DisconnectReason == "" {
		c.DisconnectReason = aux.LiveAPISpelling
	}
	return nil
}

type RetellAnalysis struct {
	Summary        string         `json:"call_summary"`
	Sentiment      string         `json:"user_sentiment"`
	CustomAnalysis map[string]any `json:"custom_analysis_data"`
}

// IsCallEnded accepts both spellings the provider has used for the event.
func (p RetellCallPayload) IsCallEnded() bool {
	return p.Event == "call_ended" || p.Event == "call.ended"
}

// RetellInboundPayload is the pre-call lookup the provider fires when a call
// comes in, before connecting the agent.
type RetellInboundPayload struct {
	Event       string            `json:"event"`
	CallInbound RetellInboundCall `json:"call_inbound"`
}

type RetellInboundCall struct {
	FromNumber string `json:"from_number"`
	ToNumber   string `json:"to_number"`
	AgentID    string `json:"agent_id"`
}

// CalendlyWebhookPayload is the scheduling provider's webhook envelope.
type CalendlyWebhookPayload struct {
	Event   string          `json:"event"`
	Payload CalendlyInvitee `json:"payload"`
}

type CalendlyInvitee struct {
	URI                 string             `json:"uri"`
	Name                string             `json:"name"`
	Email               string             `json:"email"`
	TextReminderNumber  string             `json:"text_reminder_number"`
	QuestionsAndAnswers []CalendlyQuestion `json:"questions_and_answers"`
	Event               json.RawMessage    `json:"event"`
	ScheduledEvent      CalendlyEvent      `json:"scheduled_event"`
}

type CalendlyQuestion struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

type CalendlyEvent struct {
	URI       string `json:"uri"`
	StartTime string `json:"start_time"`
}

// InviteeUID extracts the invitee's stable identifier from its resource URI.
// Redeliveries of the same invitee carry the same UID.
func (i CalendlyInvitee) InviteeUID() string {
	trimmed := strings.TrimRight(i.URI, "/")
	if idx := strings.LastIndex(trimmed, "/"); idx >= 0 {
		return trimmed[idx+1:]
	}
	return trimmed
}

// EventURI returns the scheduled event's resource URI. Older deliveries carry
// it as the string field "event"; the v2 API nests it under
// scheduled_event.uri, and some payloads put an object under "event".
func (i CalendlyInvitee) EventURI() string {
	if len(i.Event) > 0 {
		var uri string
		if json.Unmarshal(i.Event, &uri) == nil && uri != "" {
			return uri
		}
		var ev CalendlyEvent
		if json.Unmarshal(i.Event, &ev) == nil && ev.URI != "" {
			return ev.URI
		}
	}
	return i.ScheduledEvent.URI
}

// Phone returns the invitee's phone: a "phone" form question wins, the SMS
// reminder number is the fallback.
func (i CalendlyInvitee) Phone() string {
	for _, qa := range i.QuestionsAndAnswers {
		if strings.Contains(strings.ToLower(qa.Question), "phone") && strings.TrimSpace(qa.Answer) != "" {
			return qa.Answer
		}
	}
	return i.TextReminderNumber
}
