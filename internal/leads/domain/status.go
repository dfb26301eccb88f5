// Package domain holds the pure lead lifecycle rules: the status enum, the
// call outcome classifier, and the transition guard. Nothing in this package
// touches storage or providers.
package domain

// Status is the lead lifecycle status.
type Status string

const (
	StatusFormStarted  Status = "form_started"
	StatusAICalled     Status = "ai_called"
	StatusAIBooked     Status = "ai_booked"
	StatusBooked       Status = "booked"
	StatusNotQualified Status = "not_qualified"
	StatusNoAnswer     Status = "no_answer"
	StatusCancelled    Status = "cancelled"
)

// SkipsOutboundCall reports whether a lead in this status must not receive the
// delayed outbound call: its situation already resolved, or a call is already
// in flight. Only a clean form_started lead is dialable.
func SkipsOutboundCall(s Status) bool {
	switch s {
	case StatusBooked, StatusAICalled, StatusAIBooked, StatusNotQualified, StatusNoAnswer, StatusCancelled:
		return true
	}
	return false
}

// isBookedState reports whether the status represents a live booking.
func isBookedState(s Status) bool {
	return s == StatusBooked || s == StatusAIBooked
}

// AllowClassifierTransition reports whether a classifier-derived status write
// may be committed over the current status. A stale call outcome must never
// downgrade a lead that has since booked or cancelled; explicit booking and
// cancellation transitions bypass this guard entirely.
func AllowClassifierTransition(current, next Status) bool {
	if isBookedState(current) || current == StatusCancelled {
		return isBookedState(next)
	}
	return true
}
