// Package handler exposes the leads module over HTTP: the public form
// endpoint and the voice-agent tool endpoints.
package handler

import (
	"net/http"

	"epiclead_backend/internal/leads/service"
	"epiclead_backend/internal/leads/transport"
	"epiclead_backend/platform/httpkit"
	"epiclead_backend/platform/logger"
	"epiclead_backend/platform/validator"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	service *service.Service
	val     *validator.Validator
	logger  *logger.Logger
}

func New(svc *service.Service, val *validator.Validator, log *logger.Logger) *Handler {
	return &Handler{service: svc, val: val, logger: log}
}

// SubmitForm handles the public website form submission.
func (h *Handler) SubmitForm(c *gin.Context) {
	var req transport.CreateLeadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "name and phone are required")
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "name and phone are required")
		return
	}

	resp, err := h.service.SubmitForm(c.Request.Context(), req)
	if httpkit.HandleError(c, err) {
		return
	}

	status := http.StatusCreated
	if resp.Duplicate {
		status = http.StatusOK
	}
	httpkit.JSON(c, status, resp)
}

// The tool endpoints below serve a live voice agent mid-call. They always
// answer 200 with a sayable result string; a non-2xx status would surface to
// the caller as a dead tool instead of a graceful sentence.

func (h *Handler) LookupLead(c *gin.Context) {
	var req transport.LookupLeadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("malformed lookup tool payload", "error", err)
	}
	httpkit.OK(c, h.service.LookupLead(c.Request.Context(), req))
}

func (h *Handler) Availability(c *gin.Context) {
	var req transport.AvailabilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("malformed availability tool payload", "error", err)
	}
	httpkit.OK(c, h.service.Availability(c.Request.Context(), req.Args.Date))
}

func (h *Handler) Book(c *gin.Context) {
	var req transport.BookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("malformed book tool payload", "error", err)
	}
	httpkit.OK(c, h.service.BookSlot(c.Request.Context(), req.Args))
}

func (h *Handler) Cancel(c *gin.Context) {
	var req transport.CancelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("malformed cancel tool payload", "error", err)
	}
	httpkit.OK(c, h.service.CancelAppointment(c.Request.Context(), req.Args))
}
