package webhook

import (
	apphttp "epiclead_backend/internal/http"
	"epiclead_backend/platform/config"
	"epiclead_backend/platform/logger"
)

// Module is the inbound-webhook bounded context implementing http.Module.
type Module struct {
	handler *Handler
	config  config.CalendlyConfig
}

func NewModule(reconciler LeadReconciler, cfg config.CalendlyConfig, log *logger.Logger) *Module {
	return &Module{
		handler: NewHandler(reconciler, log),
		config:  cfg,
	}
}

func (m *Module) Name() string {
	return "webhook"
}

// RegisterRoutes mounts the provider webhook routes. Calendly deliveries pass
// the signature check before any handler runs.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.Webhooks.POST("/retell", m.handler.HandleRetellCall)
	ctx.Webhooks.POST("/retell/inbound", m.handler.HandleRetellInbound)
	ctx.Webhooks.POST("/calendly",
		CalendlySignatureMiddleware(m.config.GetCalendlyWebhookSecret()),
		m.handler.HandleCalendly,
	)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
