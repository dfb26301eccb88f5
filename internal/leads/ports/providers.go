// Package ports defines the narrow interfaces the leads domain uses to talk
// to external collaborators. Implementations live in internal/retell,
// internal/calendly, and internal/scheduler.
package ports

import (
	"context"
	"time"
)

// OutboundCall is a request to dial a lead through the calling provider.
type OutboundCall struct {
	ToNumber    string
	Metadata    map[string]string
	DynamicVars map[string]string
}

// CallProvider places outbound calls and sends follow-up texts.
type CallProvider interface {
	// PlaceCall starts an outbound call and returns the provider's opaque
	// call-session handle.
	PlaceCall(ctx context.Context, call OutboundCall) (string, error)
	// SendText sends a follow-up SMS. Best-effort; callers must tolerate failure.
	SendText(ctx context.Context, toNumber, message string) error
}

// Slot is one bookable appointment slot.
type Slot struct {
	StartTime time.Time
}

// BookingRequest books a specific slot for an invitee.
type BookingRequest struct {
	StartTime time.Time
	Name      string
	Email     string
	Timezone  string
}

// Booking is the provider's record of a confirmed appointment.
type Booking struct {
	EventURI      string
	CancelURL     string
	RescheduleURL string
}

// SchedulingProvider exposes the scheduling provider's booking operations.
type SchedulingProvider interface {
	// AvailableTimes lists open slots in the window.
	AvailableTimes(ctx context.Context, start, end time.Time) ([]Slot, error)
	// BookInvitee books a slot directly and returns the appointment handles.
	BookInvitee(ctx context.Context, req BookingRequest) (Booking, error)
	// CancelEvent cancels a booked event by its URI. Implementations report an
	// already-cancelled event as ErrAlreadyCancelled.
	CancelEvent(ctx context.Context, eventURI, reason string) error
	// EventStartTime fetches the start time of a booked event.
	EventStartTime(ctx context.Context, eventURI string) (time.Time, error)
	// SingleUseLink creates a one-shot booking link for follow-up messages.
	SingleUseLink(ctx context.Context) (string, error)
}

// CallTaskScheduler enqueues the delayed outbound-call trigger.
type CallTaskScheduler interface {
	ScheduleLeadCall(ctx context.Context, leadID string, runAt time.Time) error
}
