// Package webhook receives the calling and scheduling providers' event
// deliveries and hands them to the lead reconciliation service.
package webhook

import (
	"context"
	"net/http"

	"epiclead_backend/internal/leads/domain"
	"epiclead_backend/internal/leads/service"
	"epiclead_backend/platform/apperr"
	"epiclead_backend/platform/logger"

	"github.com/gin-gonic/gin"
)

// LeadReconciler is the slice of the leads service this module needs.
type LeadReconciler interface {
	HandleCallOutcome(ctx context.Context, params service.CallOutcomeParams) error
	HandleBookingCreated(ctx context.Context, params service.BookingCreatedParams) error
	InboundCallVariables(ctx context.Context, fromNumber string) map[string]string
}

type Handler struct {
	reconciler LeadReconciler
	logger     *logger.Logger
}

func NewHandler(reconciler LeadReconciler, log *logger.Logger) *Handler {
	return &Handler{reconciler: reconciler, logger: log}
}

// HandleRetellCall processes call_ended deliveries. Webhook senders redeliver
// on non-2xx, so permanent conditions (unknown event, unknown lead) must not
// look transient: unknown events are 200-acknowledged, unknown leads are 404.
func (h *Handler) HandleRetellCall(c *gin.Context) {
	var payload RetellCallPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		h.logger.WebhookEvent("retell", "unknown", false, "malformed payload")
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed payload"})
		return
	}

	if !payload.IsCallEnded() {
		h.logger.WebhookEvent("retell", payload.Event, true, "skipped")
		c.JSON(http.StatusOK, gin.H{"status": "skipped"})
		return
	}

	callerPhone := payload.Call.ToNumber
	if callerPhone == "" {
		callerPhone = payload.Call.FromNumber
	}

	err := h.reconciler.HandleCallOutcome(c.Request.Context(), service.CallOutcomeParams{
		LeadID:       payload.Call.Metadata["lead_id"],
		RetellCallID: payload.Call.CallID,
		CallerPhone:  callerPhone,
		Signals: domain.CallSignals{
			DisconnectReason: payload.Call.DisconnectReason,
			CallStatus:       payload.Call.CallStatus,
			Transcript:       payload.Call.Transcript,
			Sentiment:        payload.Call.Analysis.Sentiment,
			Summary:          payload.Call.Analysis.Summary,
			CustomAnalysis:   payload.Call.Analysis.CustomAnalysis,
		},
	})
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			h.logger.WebhookEvent("retell", payload.Event, false, "no matching lead")
			c.JSON(http.StatusNotFound, gin.H{"error": "no matching lead"})
			return
		}
		h.logger.Error("call outcome failed", "call_id", payload.Call.CallID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	h.logger.WebhookEvent("retell", payload.Event, true, "")
	c.JSON(http.StatusOK, gin.H{"status": "processed"})
}

// HandleRetellInbound answers the pre-call lookup. It always returns 200:
// a failed lookup yields an empty variable set rather than blocking the call
// from connecting.
func (h *Handler) HandleRetellInbound(c *gin.Context) {
	var payload RetellInboundPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		h.logger.WebhookEvent("retell", "call_inbound", false, "malformed payload")
		c.JSON(http.StatusOK, gin.H{"call_inbound": gin.H{"dynamic_variables": gin.H{}}})
		return
	}

	vars := h.reconciler.InboundCallVariables(c.Request.Context(), payload.CallInbound.FromNumber)
	h.logger.WebhookEvent("retell", "call_inbound", true, "")
	c.JSON(http.StatusOK, gin.H{"call_inbound": gin.H{"dynamic_variables": vars}})
}

// HandleCalendly processes invitee.created deliveries; other event types are
// acknowledged and skipped. Internal faults return 500 so Calendly redelivers.
func (h *Handler) HandleCalendly(c *gin.Context) {
	var payload CalendlyWebhookPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		h.logger.WebhookEvent("calendly", "unknown", false, "malformed payload")
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed payload"})
		return
	}

	if payload.Event != "invitee.created" {
		h.logger.WebhookEvent("calendly", payload.Event, true, "skipped")
		c.JSON(http.StatusOK, gin.H{"status": "skipped"})
		return
	}

	err := h.reconciler.HandleBookingCreated(c.Request.Context(), service.BookingCreatedParams{
		CalendlyUID: payload.Payload.InviteeUID(),
		EventURI:    payload.Payload.EventURI(),
		Name:        payload.Payload.Name,
		Email:       payload.Payload.Email,
		Phone:       payload.Payload.Phone(),
	})
	if err != nil {
		h.logger.Error("booking event failed", "invitee", payload.Payload.URI, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	h.logger.WebhookEvent("calendly", payload.Event, true, "")
	c.JSON(http.StatusOK, gin.H{"status": "processed"})
}
