// Package service implements the reconciliation orchestrator: every inbound
// event (form submission, call outcome, booking webhook, voice-agent tool
// call) funnels through one method here, which resolves the lead, applies the
// lifecycle policy, persists, and publishes side effects.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"epiclead_backend/internal/events"
	"epiclead_backend/internal/leads/domain"
	"epiclead_backend/internal/leads/ports"
	"epiclead_backend/internal/leads/repository"
	"epiclead_backend/internal/leads/resolver"
	"epiclead_backend/internal/leads/transport"
	"epiclead_backend/platform/apperr"
	"epiclead_backend/platform/config"
	"epiclead_backend/platform/logger"
	"epiclead_backend/platform/phone"

	"github.com/google/uuid"
)

// Deps are the collaborators the orchestrator needs. Providers may be nil
// when disabled by configuration; every use site checks.
type Deps struct {
	Store     repository.LeadStore
	Resolver  *resolver.Resolver
	Calls     ports.CallProvider
	Booking   ports.SchedulingProvider
	Scheduler ports.CallTaskScheduler
	Bus       events.Bus
	Logger    *logger.Logger
	Policy    config.CallPolicyConfig
	Timezone  string
}

type Service struct {
	store     repository.LeadStore
	resolver  *resolver.Resolver
	calls     ports.CallProvider
	booking   ports.SchedulingProvider
	scheduler ports.CallTaskScheduler
	bus       events.Bus
	logger    *logger.Logger
	policy    config.CallPolicyConfig
	location  *time.Location

	now func() time.Time
}

func New(deps Deps) *Service {
	loc, err := time.LoadLocation(deps.Timezone)
	if err != nil || deps.Timezone == "" {
		loc = time.UTC
	}
	return &Service{
		store:     deps.Store,
		resolver:  deps.Resolver,
		calls:     deps.Calls,
		booking:   deps.Booking,
		scheduler: deps.Scheduler,
		bus:       deps.Bus,
		logger:    deps.Logger,
		policy:    deps.Policy,
		location:  loc,
		now:       time.Now,
	}
}

// SubmitForm records a website form submission and schedules the delayed
// outbound call. A repeat submission for the same phone inside the duplicate
// window returns the existing lead instead of creating a second one.
func (s *Service) SubmitForm(ctx context.Context, req transport.CreateLeadRequest) (transport.CreateLeadResponse, error) {
	name := strings.TrimSpace(req.Name)
	normalized := phone.Normalize(req.Phone)
	if name == "" || normalized == "" {
		return transport.CreateLeadResponse{}, apperr.BadRequest("name and phone are required")
	}
	if !phone.IsPlausible(normalized) {
		return transport.CreateLeadResponse{}, apperr.BadRequest("phone number does not look dialable")
	}

	existing, err := s.store.FindRecentByPhone(ctx, normalized, s.policy.GetDuplicateWindow())
	if err == nil {
		s.logger.Info("duplicate form submission", "lead_id", existing.ID, "phone", normalized)
		return transport.CreateLeadResponse{
			LeadID:    existing.ID,
			Status:    string(existing.Status),
			Duplicate: true,
		}, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return transport.CreateLeadResponse{}, apperr.Wrap(apperr.KindInternal, "duplicate check failed", err)
	}

	source := strings.TrimSpace(req.Source)
	if source == "" {
		source = "website"
	}
	params := repository.CreateLeadParams{
		Name:   name,
		Phone:  normalized,
		Source: source,
		Status: domain.StatusFormStarted,
	}
	if email := strings.TrimSpace(req.Email); email != "" {
		params.Email = &email
	}

	lead, err := s.store.Create(ctx, params)
	if err != nil {
		return transport.CreateLeadResponse{}, apperr.Wrap(apperr.KindInternal, "create lead", err)
	}

	runAt := s.now().Add(s.policy.GetCallDelay())
	if err := s.store.SetCallScheduledAt(ctx, lead.ID, runAt); err != nil {
		s.logger.DatabaseError("set call_scheduled_at", err)
	}
	if s.scheduler != nil {
		if err := s.scheduler.ScheduleLeadCall(ctx, lead.ID.String(), runAt); err != nil {
			// The lead is already persisted; a lost trigger is recoverable by
			// resubmission or manual dial, so the submission still succeeds.
			s.logger.Error("failed to enqueue call trigger", "lead_id", lead.ID, "error", err)
		}
	}

	s.bus.Publish(ctx, events.LeadCreated{
		BaseEvent: events.NewBaseEvent(),
		LeadID:    lead.ID,
		Name:      lead.Name,
		Phone:     lead.Phone,
		Source:    lead.Source,
		Status:    string(lead.Status),
	})

	return transport.CreateLeadResponse{LeadID: lead.ID, Status: string(lead.Status)}, nil
}

// TriggerScheduledCall fires the delayed outbound call for a lead. The worker
// invokes it when the task comes due; the status re-read here, not the
// enqueue-time status, decides whether to dial.
func (s *Service) TriggerScheduledCall(ctx context.Context, leadID string) error {
	id, err := uuid.Parse(leadID)
	if err != nil {
		return apperr.BadRequest("malformed lead id in call task")
	}

	lead, err := s.store.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		s.logger.Info("call trigger for missing lead, dropping", "lead_id", leadID)
		return nil
	}
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "load lead for call trigger", err)
	}

	if domain.SkipsOutboundCall(lead.Status) {
		s.logger.Info("skipping outbound call", "lead_id", lead.ID, "status", lead.Status)
		return nil
	}

	if s.calls == nil {
		s.logger.Warn("call provider disabled, dropping call trigger", "lead_id", lead.ID)
		return nil
	}

	callID, err := s.calls.PlaceCall(ctx, ports.OutboundCall{
		ToNumber: lead.Phone,
		Metadata: map[string]string{"lead_id": lead.ID.String()},
		DynamicVars: map[string]string{
			"customer_name": lead.Name,
			"first_name":    firstName(lead.Name),
		},
	})
	if err != nil {
		// Status stays form_started so the retried task dials again.
		return apperr.Upstream("place outbound call", err)
	}

	attached, err := s.store.AttachCallSession(ctx, lead.ID, callID)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "attach call session", err)
	}
	if !attached {
		s.logger.Warn("call session not attached, concurrent update won", "lead_id", lead.ID, "call_id", callID)
		return nil
	}

	s.logger.Info("outbound call placed", "lead_id", lead.ID, "call_id", callID)
	return nil
}

// CallOutcomeParams carries the fields of a call-ended event the orchestrator
// needs. LeadID comes from the call's metadata when the call was placed by us.
type CallOutcomeParams struct {
	LeadID       string
	RetellCallID string
	CallerPhone  string
	Signals      domain.CallSignals
}

// HandleCallOutcome reconciles a finished call into the lead record: resolve,
// classify, guard the transition, persist, then publish follow-up work.
func (s *Service) HandleCallOutcome(ctx context.Context, params CallOutcomeParams) error {
	lead, err := s.resolveCallLead(ctx, params)
	if err != nil {
		return err
	}

	outcome := domain.ClassifyCallOutcome(params.Signals)
	if !domain.AllowClassifierTransition(lead.Status, outcome.Status) {
		s.logger.Info("stale call outcome ignored",
			"lead_id", lead.ID, "current", lead.Status, "classified", outcome.Status)
		return nil
	}

	if err := s.store.UpdateOutcome(ctx, lead.ID, outcome.Status, outcome.Note); err != nil {
		return apperr.Wrap(apperr.KindInternal, "persist call outcome", err)
	}

	s.logger.Info("call outcome applied", "lead_id", lead.ID, "status", outcome.Status)

	if outcome.Status == domain.StatusAIBooked {
		s.bus.Publish(ctx, events.LeadBooked{
			BaseEvent: events.NewBaseEvent(),
			LeadID:    lead.ID,
			ByAgent:   true,
		})
	}
	if outcome.FollowUpSMS {
		s.bus.Publish(ctx, events.LeadNoAnswer{
			BaseEvent: events.NewBaseEvent(),
			LeadID:    lead.ID,
			Name:      lead.Name,
			Phone:     lead.Phone,
			Reason:    params.Signals.DisconnectReason,
		})
	}
	return nil
}

func (s *Service) resolveCallLead(ctx context.Context, params CallOutcomeParams) (repository.Lead, error) {
	if id, err := uuid.Parse(params.LeadID); err == nil {
		lead, err := s.store.GetByID(ctx, id)
		if err == nil {
			return lead, nil
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return repository.Lead{}, apperr.Wrap(apperr.KindInternal, "load lead by metadata id", err)
		}
	}

	if params.RetellCallID != "" {
		lead, err := s.store.FindByRetellCallID(ctx, params.RetellCallID)
		if err == nil {
			return lead, nil
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return repository.Lead{}, apperr.Wrap(apperr.KindInternal, "load lead by call id", err)
		}
	}

	if params.CallerPhone != "" {
		lead, err := s.resolver.Resolve(ctx, resolver.Identity{Phone: params.CallerPhone})
		if err == nil {
			return lead, nil
		}
		if !apperr.Is(err, apperr.KindNotFound) && !apperr.Is(err, apperr.KindInsufficientIdentity) {
			return repository.Lead{}, err
		}
	}

	// A call we cannot tie to a lead never creates one; the event is dropped.
	return repository.Lead{}, apperr.NotFound("no lead matches this call")
}

// BookingCreatedParams carries the fields of a scheduling-provider
// invitee.created event after the webhook layer has flattened the payload.
type BookingCreatedParams struct {
	CalendlyUID string
	EventURI    string
	Name        string
	Email       string
	Phone       string
}

// HandleBookingCreated reconciles a confirmed booking into the lead record.
// Bookings are authoritative: an unmatched invitee becomes a new booked lead.
// Redeliveries of the same invitee are absorbed by the calendly_uid check.
func (s *Service) HandleBookingCreated(ctx context.Context, params BookingCreatedParams) error {
	if params.CalendlyUID != "" {
		if lead, err := s.store.FindByCalendlyUID(ctx, params.CalendlyUID); err == nil {
			s.logger.Info("booking already applied", "lead_id", lead.ID, "calendly_uid", params.CalendlyUID)
			return nil
		} else if !errors.Is(err, repository.ErrNotFound) {
			return apperr.Wrap(apperr.KindInternal, "booking idempotency check", err)
		}
	}

	lead, err := s.resolver.Resolve(ctx, resolver.Identity{Phone: params.Phone, Email: params.Email})
	switch {
	case err == nil:
		if err := s.store.MarkBooked(ctx, lead.ID, params.CalendlyUID, params.EventURI); err != nil {
			return apperr.Wrap(apperr.KindInternal, "mark lead booked", err)
		}
		s.logger.Info("booking matched to lead", "lead_id", lead.ID, "calendly_uid", params.CalendlyUID)
		s.bus.Publish(ctx, events.LeadBooked{
			BaseEvent: events.NewBaseEvent(),
			LeadID:    lead.ID,
			EventURI:  params.EventURI,
			ByAgent:   false,
		})
		return nil

	case apperr.Is(err, apperr.KindNotFound), apperr.Is(err, apperr.KindInsufficientIdentity):
		created, err := s.createBookedLead(ctx, params)
		if err != nil {
			return err
		}
		s.logger.Info("booking created new lead", "lead_id", created.ID, "calendly_uid", params.CalendlyUID)
		return nil

	default:
		return err
	}
}

func (s *Service) createBookedLead(ctx context.Context, params BookingCreatedParams) (repository.Lead, error) {
	name := strings.TrimSpace(params.Name)
	if name == "" {
		name = "Calendly invitee"
	}
	createParams := repository.CreateLeadParams{
		Name:   name,
		Phone:  phone.Normalize(params.Phone),
		Source: "calendly_direct",
		Status: domain.StatusBooked,
	}
	if email := strings.TrimSpace(params.Email); email != "" {
		createParams.Email = &email
	}
	if params.EventURI != "" {
		createParams.CalendlyEventURI = &params.EventURI
	}
	if params.CalendlyUID != "" {
		createParams.CalendlyUID = &params.CalendlyUID
	}

	lead, err := s.store.Create(ctx, createParams)
	if err != nil {
		return repository.Lead{}, apperr.Wrap(apperr.KindInternal, "create booked lead", err)
	}

	s.bus.Publish(ctx, events.LeadCreated{
		BaseEvent: events.NewBaseEvent(),
		LeadID:    lead.ID,
		Name:      lead.Name,
		Phone:     lead.Phone,
		Source:    lead.Source,
		Status:    string(lead.Status),
	})
	s.bus.Publish(ctx, events.LeadBooked{
		BaseEvent: events.NewBaseEvent(),
		LeadID:    lead.ID,
		EventURI:  params.EventURI,
		ByAgent:   false,
	})
	return lead, nil
}

// firstName picks the leading word of a full name for conversational use.
func firstName(full string) string {
	fields := strings.Fields(full)
	if len(fields) == 0 {
		return full
	}
	return fields[0]
}

// sayTime formats a timestamp the way a voice agent would read it out.
func (s *Service) sayTime(t time.Time) string {
	local := t.In(s.location)
	return fmt.Sprintf("%s at %s", local.Format("Monday, January 2"), local.Format("3:04 PM"))
}
