// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"epiclead_backend/platform/events"

	"github.com/google/uuid"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
)

// Re-export platform functions
var NewBaseEvent = events.NewBaseEvent

// =============================================================================
// Lead Lifecycle Events
// =============================================================================

// LeadCreated is published when a new lead is created from a form submission
// or an authoritative external event.
type LeadCreated struct {
	BaseEvent
	LeadID uuid.UUID `json:"leadId"`
	Name   string    `json:"name"`
	Phone  string    `json:"phone"`
	Source string    `json:"source"`
	Status string    `json:"status"`
}

func (e LeadCreated) EventName() string { return "leads.created" }

// LeadNoAnswer is published when a call outcome classifies as no_answer and a
// follow-up text should be attempted. Subscribers are best-effort: a failed
// follow-up never affects the status update that triggered it.
type LeadNoAnswer struct {
	BaseEvent
	LeadID uuid.UUID `json:"leadId"`
	Name   string    `json:"name"`
	Phone  string    `json:"phone"`
	Reason string    `json:"reason"`
}

func (e LeadNoAnswer) EventName() string { return "leads.call.no_answer" }

// LeadBooked is published when a lead reaches a booked state, either through
// the scheduling provider webhook or an AI-driven booking.
type LeadBooked struct {
	BaseEvent
	LeadID   uuid.UUID `json:"leadId"`
	EventURI string    `json:"eventUri,omitempty"`
	ByAgent  bool      `json:"byAgent"`
}

func (e LeadBooked) EventName() string { return "leads.booked" }

// LeadCancelled is published when a booked appointment is cancelled.
type LeadCancelled struct {
	BaseEvent
	LeadID uuid.UUID `json:"leadId"`
	Reason string    `json:"reason,omitempty"`
}

func (e LeadCancelled) EventName() string { return "leads.cancelled" }
