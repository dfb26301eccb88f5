// Package transport defines the request and response shapes for the leads module.
package transport

import "github.com/google/uuid"

// CreateLeadRequest is the public form submission payload.
type CreateLeadRequest struct {
	Name   string `json:"name" validate:"required,min=1,max=200"`
	Phone  string `json:"phone" validate:"required,min=5,max=30"`
	Email  string `json:"email,omitempty" validate:"omitempty,email"`
	Source string `json:"source,omitempty" validate:"omitempty,max=100"`
}

// CreateLeadResponse acknowledges a form submission. Duplicate submissions
// within the dedupe window return the existing lead.
type CreateLeadResponse struct {
	LeadID    uuid.UUID `json:"lead_id"`
	Status    string    `json:"status"`
	Duplicate bool      `json:"duplicate,omitempty"`
}

// CallContext is the live-call metadata the voice agent attaches to tool calls.
type CallContext struct {
	FromNumber       string            `json:"from_number"`
	DynamicVariables map[string]string `json:"dynamic_variables"`
}

// LookupArgs are the voice agent's lookup tool arguments.
type LookupArgs struct {
	Phone string `json:"phone"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// LookupLeadRequest is the lookup tool envelope. The agent platform nests tool
// arguments under "args" and may carry caller metadata under "call".
type LookupLeadRequest struct {
	Args       LookupArgs   `json:"args"`
	Call       *CallContext `json:"call"`
	FromNumber string       `json:"from_number"`
}

// CallerPhone returns the best phone to match on: explicit argument first,
// then the live call's caller ID, then the call's dynamic variables.
func (r LookupLeadRequest) CallerPhone() string {
	if r.Args.Phone != "" {
		return r.Args.Phone
	}
	if r.Call != nil && r.Call.FromNumber != "" {
		return r.Call.FromNumber
	}
	if r.FromNumber != "" {
		return r.FromNumber
	}
	if r.Call != nil {
		return r.Call.DynamicVariables["phone"]
	}
	return ""
}

// LookupLeadResponse is always sayable: Result carries a natural-language
// sentence for the live agent even when nothing was found.
type LookupLeadResponse struct {
	Result           string `json:"result"`
	Found            bool   `json:"found"`
	LeadID           string `json:"lead_id,omitempty"`
	Name             string `json:"name,omitempty"`
	Email            string `json:"email,omitempty"`
	Status           string `json:"status,omitempty"`
	AppointmentTime  string `json:"appointment_time,omitempty"`
	CalendlyEventURI string `json:"calendly_event_uri,omitempty"`
}

// AvailabilityArgs are the availability tool arguments. Date accepts "today",
// "tomorrow", "this week", or an ISO date.
type AvailabilityArgs struct {
	Date string `json:"date"`
}

// AvailabilityRequest is the availability tool envelope.
type AvailabilityRequest struct {
	Args AvailabilityArgs `json:"args"`
}

// SlotView is one human-formatted available slot.
type SlotView struct {
	Day       string `json:"day"`
	Time      string `json:"time"`
	StartTime string `json:"start_time"`
}

// AvailabilityResponse lists available slots, capped and human-formatted for
// the agent to read out.
type AvailabilityResponse struct {
	Result string     `json:"result"`
	Slots  []SlotView `json:"slots,omitempty"`
}

// BookArgs are the booking tool arguments.
type BookArgs struct {
	StartTime string `json:"start_time"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	LeadID    string `json:"lead_id"`
}

// BookRequest is the booking tool envelope.
type BookRequest struct {
	Args BookArgs `json:"args"`
}

// BookResponse confirms a booking in sayable form.
type BookResponse struct {
	Result        string `json:"result"`
	FormattedTime string `json:"formatted_time,omitempty"`
	EventURI      string `json:"event_uri,omitempty"`
}

// CancelArgs are the cancellation tool arguments.
type CancelArgs struct {
	LeadID           string `json:"lead_id"`
	CalendlyEventURI string `json:"calendly_event_uri"`
	Reason           string `json:"reason"`
}

// CancelRequest is the cancellation tool envelope.
type CancelRequest struct {
	Args CancelArgs `json:"args"`
}

// CancelResponse acknowledges a cancellation in sayable form.
type CancelResponse struct {
	Result string `json:"result"`
}
