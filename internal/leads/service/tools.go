package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"epiclead_backend/internal/events"
	"epiclead_backend/internal/leads/ports"
	"epiclead_backend/internal/leads/repository"
	"epiclead_backend/internal/leads/resolver"
	"epiclead_backend/internal/leads/transport"
	"epiclead_backend/platform/apperr"
	"epiclead_backend/platform/phone"

	"github.com/google/uuid"
)

const maxSlotsPerAnswer = 6

// slotBuffer keeps the agent from offering a slot the caller cannot reach
// before the booking round-trip completes.
const slotBuffer = 5 * time.Minute

// LookupLead answers the voice agent's lookup tool. It never fails the call:
// every path, including internal errors, produces a sayable result.
func (s *Service) LookupLead(ctx context.Context, req transport.LookupLeadRequest) transport.LookupLeadResponse {
	identity := resolver.Identity{
		Phone: req.CallerPhone(),
		Email: req.Args.Email,
		Name:  req.Args.Name,
	}

	lead, err := s.resolver.Resolve(ctx, identity)
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) || apperr.Is(err, apperr.KindInsufficientIdentity) {
			return transport.LookupLeadResponse{
				Result: "I couldn't find a record for you. Could I get your name and phone number?",
			}
		}
		s.logger.Error("lead lookup failed", "error", err)
		return transport.LookupLeadResponse{
			Result: "I'm having trouble pulling up your record right now.",
		}
	}

	resp := transport.LookupLeadResponse{
		Found:  true,
		LeadID: lead.ID.String(),
		Name:   lead.Name,
		Status: string(lead.Status),
	}
	if lead.Email != nil {
		resp.Email = *lead.Email
	}
	if lead.CalendlyEventURI != nil {
		resp.CalendlyEventURI = *lead.CalendlyEventURI
	}

	resp.Result = fmt.Sprintf("I found your record, %s.", firstName(lead.Name))
	if uri := resp.CalendlyEventURI; uri != "" && s.booking != nil {
		start, err := s.booking.EventStartTime(ctx, uri)
		if err != nil {
			s.logger.Warn("could not fetch appointment time", "lead_id", lead.ID, "error", err)
		} else {
			resp.AppointmentTime = start.Format(time.RFC3339)
			resp.Result = fmt.Sprintf("I found your record, %s. You have an appointment on %s.",
				firstName(lead.Name), s.sayTime(start))
		}
	}
	return resp
}

// InboundCallVariables returns the dynamic variables for an inbound pre-call
// lookup. An unknown caller gets an empty map so the agent falls back to its
// generic greeting.
func (s *Service) InboundCallVariables(ctx context.Context, fromNumber string) map[string]string {
	candidates := phone.Candidates(fromNumber)
	if len(candidates) == 0 {
		return map[string]string{}
	}

	lead, err := s.store.FindMostRecentByPhones(ctx, candidates)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			s.logger.Error("inbound caller lookup failed", "error", err)
		}
		return map[string]string{}
	}

	return map[string]string{
		"customer_name": lead.Name,
		"first_name":    firstName(lead.Name),
		"lead_id":       lead.ID.String(),
		"lead_status":   string(lead.Status),
	}
}

// Availability answers the voice agent's availability tool for a spoken date
// hint ("today", "tomorrow", "this week", or an ISO date).
func (s *Service) Availability(ctx context.Context, dateHint string) transport.AvailabilityResponse {
	if s.booking == nil {
		return transport.AvailabilityResponse{Result: "Online scheduling isn't available right now."}
	}

	start, end := s.availabilityWindow(dateHint)
	slots, err := s.booking.AvailableTimes(ctx, start, end)
	if err != nil {
		s.logger.Error("availability lookup failed", "error", err)
		return transport.AvailabilityResponse{Result: "I'm having trouble checking the calendar right now."}
	}
	if len(slots) == 0 {
		return transport.AvailabilityResponse{Result: "I don't see any openings for that time. Would another day work?"}
	}
	if len(slots) > maxSlotsPerAnswer {
		slots = slots[:maxSlotsPerAnswer]
	}

	views := make([]transport.SlotView, 0, len(slots))
	spoken := make([]string, 0, len(slots))
	for _, slot := range slots {
		local := slot.StartTime.In(s.location)
		views = append(views, transport.SlotView{
			Day:       local.Format("Monday, January 2"),
			Time:      local.Format("3:04 PM"),
			StartTime: slot.StartTime.Format(time.RFC3339),
		})
		spoken = append(spoken, s.sayTime(slot.StartTime))
	}

	return transport.AvailabilityResponse{
		Result: fmt.Sprintf("I have %d openings: %s.", len(views), strings.Join(spoken, "; ")),
		Slots:  views,
	}
}

// availabilityWindow maps a spoken date hint onto a query window. The window
// never reaches into the past: the start is clamped to now plus a small
// buffer.
func (s *Service) availabilityWindow(hint string) (time.Time, time.Time) {
	now := s.now().In(s.location)
	floor := now.Add(slotBuffer)

	var start, end time.Time
	switch strings.ToLower(strings.TrimSpace(hint)) {
	case "", "this week":
		start = now
		end = now.AddDate(0, 0, 7)
	case "today":
		start = now
		end = endOfDay(now)
	case "tomorrow":
		tomorrow := now.AddDate(0, 0, 1)
		start = startOfDay(tomorrow)
		end = endOfDay(tomorrow)
	default:
		day, err := time.ParseInLocation("2006-01-02", strings.TrimSpace(hint), s.location)
		if err != nil {
			start = now
			end = now.AddDate(0, 0, 7)
			break
		}
		start = startOfDay(day)
		end = endOfDay(day)
	}

	if start.Before(floor) {
		start = floor
	}
	if end.Before(start) {
		end = start
	}
	return start, end
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func endOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, 0, t.Location())
}

// BookSlot books a specific slot on behalf of the caller and advances the
// lead to ai_booked. Callers without an email get a placeholder so the
// provider accepts the invitee.
func (s *Service) BookSlot(ctx context.Context, args transport.BookArgs) transport.BookResponse {
	if s.booking == nil {
		return transport.BookResponse{Result: "Online scheduling isn't available right now."}
	}

	startTime, err := time.Parse(time.RFC3339, args.StartTime)
	if err != nil {
		return transport.BookResponse{Result: "I didn't catch the exact time. Which slot would you like?"}
	}

	name := strings.TrimSpace(args.Name)
	if name == "" {
		name = "Phone caller"
	}
	email := strings.TrimSpace(args.Email)
	if email == "" {
		email = placeholderEmail(args.Phone)
	}

	booking, err := s.booking.BookInvitee(ctx, ports.BookingRequest{
		StartTime: startTime,
		Name:      name,
		Email:     email,
		Timezone:  s.location.String(),
	})
	if err != nil {
		s.logger.Error("booking failed", "error", err)
		return transport.BookResponse{Result: "I wasn't able to book that slot. Want to try a different time?"}
	}

	formatted := s.sayTime(startTime)
	s.recordAgentBooking(ctx, args, booking, formatted)

	return transport.BookResponse{
		Result:        fmt.Sprintf("You're booked for %s.", formatted),
		FormattedTime: formatted,
		EventURI:      booking.EventURI,
	}
}

// recordAgentBooking attaches the confirmed booking to the lead record. The
// booking already succeeded upstream, so persistence problems are logged and
// never surface to the caller.
func (s *Service) recordAgentBooking(ctx context.Context, args transport.BookArgs, booking ports.Booking, formatted string) {
	lead, ok := s.findToolLead(ctx, args.LeadID, args.Phone)
	if !ok {
		s.logger.Warn("agent booking has no matching lead", "event_uri", booking.EventURI)
		return
	}

	note := fmt.Sprintf("AI booked appointment for %s", formatted)
	if err := s.store.MarkAIBooked(ctx, lead.ID, booking.EventURI, note); err != nil {
		s.logger.DatabaseError("mark ai_booked", err)
		return
	}
	s.bus.Publish(ctx, events.LeadBooked{
		BaseEvent: events.NewBaseEvent(),
		LeadID:    lead.ID,
		EventURI:  booking.EventURI,
		ByAgent:   true,
	})
}

// CancelAppointment cancels a booked appointment for the voice agent. An
// appointment the provider already cancelled still reads as success.
func (s *Service) CancelAppointment(ctx context.Context, args transport.CancelArgs) transport.CancelResponse {
	if s.booking == nil {
		return transport.CancelResponse{Result: "Online scheduling isn't available right now."}
	}

	lead, haveLead := s.findToolLead(ctx, args.LeadID, "")
	eventURI := strings.TrimSpace(args.CalendlyEventURI)
	if eventURI == "" && haveLead && lead.CalendlyEventURI != nil {
		eventURI = *lead.CalendlyEventURI
	}
	if eventURI == "" {
		return transport.CancelResponse{Result: "I couldn't find an appointment to cancel."}
	}

	reason := strings.TrimSpace(args.Reason)
	if reason == "" {
		reason = "Cancelled by phone"
	}

	if err := s.booking.CancelEvent(ctx, eventURI, reason); err != nil && !errors.Is(err, ports.ErrAlreadyCancelled) {
		s.logger.Error("cancellation failed", "event_uri", eventURI, "error", err)
		return transport.CancelResponse{Result: "I wasn't able to cancel that appointment. Please try again in a moment."}
	}

	if haveLead {
		note := fmt.Sprintf("Appointment cancelled: %s", reason)
		if err := s.store.MarkCancelled(ctx, lead.ID, note); err != nil {
			s.logger.DatabaseError("mark cancelled", err)
		} else {
			s.bus.Publish(ctx, events.LeadCancelled{
				BaseEvent: events.NewBaseEvent(),
				LeadID:    lead.ID,
				Reason:    reason,
			})
		}
	}

	return transport.CancelResponse{Result: "Your appointment has been cancelled."}
}

// findToolLead locates the lead a tool call refers to: explicit id first,
// caller phone second.
func (s *Service) findToolLead(ctx context.Context, leadID, callerPhone string) (repository.Lead, bool) {
	if id, err := uuid.Parse(strings.TrimSpace(leadID)); err == nil {
		lead, err := s.store.GetByID(ctx, id)
		if err == nil {
			return lead, true
		}
		if !errors.Is(err, repository.ErrNotFound) {
			s.logger.DatabaseError("load lead by id", err)
		}
	}

	if callerPhone != "" {
		lead, err := s.resolver.Resolve(ctx, resolver.Identity{Phone: callerPhone})
		if err == nil {
			return lead, true
		}
	}
	return repository.Lead{}, false
}

// placeholderEmail derives a syntactically valid invitee email for callers
// who gave none. The local part is the caller's digits so the address stays
// traceable to the call.
func placeholderEmail(rawPhone string) string {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, rawPhone)
	if digits == "" {
		digits = "caller"
	}
	return digits + "@voicemail.epiclead.ai"
}
