// Package notification sends the best-effort SMS follow-up when a lead could
// not be reached by phone. It subscribes to the event bus and never sits in
// any webhook or tool critical path.
package notification

import (
	"context"
	"fmt"
	"strings"

	"epiclead_backend/internal/events"
	"epiclead_backend/platform/config"
	"epiclead_backend/platform/logger"
)

// TextSender sends one SMS. The retell client satisfies this.
type TextSender interface {
	SendText(ctx context.Context, toNumber, message string) error
}

// LinkBuilder creates a single-use booking link. The calendly client
// satisfies this.
type LinkBuilder interface {
	SingleUseLink(ctx context.Context) (string, error)
}

type Module struct {
	sender TextSender
	links  LinkBuilder
	policy config.CallPolicyConfig
	log    *logger.Logger
}

func NewModule(sender TextSender, links LinkBuilder, policy config.CallPolicyConfig, log *logger.Logger) *Module {
	return &Module{
		sender: sender,
		links:  links,
		policy: policy,
		log:    log,
	}
}

// RegisterHandlers subscribes to the events this module reacts to.
func (m *Module) RegisterHandlers(bus events.Bus) {
	bus.Subscribe(events.LeadNoAnswer{}.EventName(), m)
}

// Handle routes events to the appropriate handler method.
func (m *Module) Handle(ctx context.Context, event events.Event) error {
	switch e := event.(type) {
	case events.LeadNoAnswer:
		return m.handleLeadNoAnswer(ctx, e)
	}
	return nil
}

// handleLeadNoAnswer texts the lead a booking link. Failures are logged and
// swallowed: the status write that published this event must stand either way.
func (m *Module) handleLeadNoAnswer(ctx context.Context, event events.LeadNoAnswer) error {
	if m.sender == nil {
		m.log.Info("sms follow-up skipped, no sender configured", "lead_id", event.LeadID)
		return nil
	}
	if event.Phone == "" {
		m.log.Warn("sms follow-up skipped, lead has no phone", "lead_id", event.LeadID)
		return nil
	}

	message := m.buildFollowUpText(ctx, event.Name)
	if err := m.sender.SendText(ctx, event.Phone, message); err != nil {
		m.log.Warn("sms follow-up failed", "lead_id", event.LeadID, "error", err)
		return nil
	}

	m.log.Info("sms follow-up sent", "lead_id", event.LeadID)
	return nil
}

// buildFollowUpText assembles the message: first name plus a booking link.
// A fresh single-use link is preferred; the public booking site is the
// fallback when the scheduling provider is unavailable.
func (m *Module) buildFollowUpText(ctx context.Context, name string) string {
	link := m.policy.GetBookingSiteURL()
	if m.links != nil {
		if singleUse, err := m.links.SingleUseLink(ctx); err == nil && singleUse != "" {
			link = singleUse
		} else if err != nil {
			m.log.Warn("single-use link failed, using booking site", "error", err)
		}
	}

	greeting := "Hi"
	if first := firstName(name); first != "" {
		greeting = "Hi " + first
	}
	return fmt.Sprintf("%s, we just tried to call you about your request. Grab a time that works for you here: %s", greeting, link)
}

func firstName(full string) string {
	fields := strings.Fields(full)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}
