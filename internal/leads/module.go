// Package leads wires the lead lifecycle module: repository, identity
// resolver, reconciliation service, and HTTP handlers.
package leads

import (
	"epiclead_backend/internal/events"
	apphttp "epiclead_backend/internal/http"
	"epiclead_backend/internal/leads/handler"
	"epiclead_backend/internal/leads/ports"
	"epiclead_backend/internal/leads/repository"
	"epiclead_backend/internal/leads/resolver"
	"epiclead_backend/internal/leads/service"
	"epiclead_backend/platform/config"
	"epiclead_backend/platform/logger"
	"epiclead_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ModuleDeps are the external collaborators the leads module needs.
type ModuleDeps struct {
	Pool      *pgxpool.Pool
	Calls     ports.CallProvider
	Booking   ports.SchedulingProvider
	Scheduler ports.CallTaskScheduler
	Bus       events.Bus
	Logger    *logger.Logger
	Policy    config.CallPolicyConfig
	Timezone  string
}

// Module bundles the leads components and exposes the service to sibling
// modules (webhooks, the scheduler worker).
type Module struct {
	Service *service.Service
	handler *handler.Handler
}

func NewModule(deps ModuleDeps) *Module {
	repo := repository.New(deps.Pool)
	svc := service.New(service.Deps{
		Store:     repo,
		Resolver:  resolver.New(repo),
		Calls:     deps.Calls,
		Booking:   deps.Booking,
		Scheduler: deps.Scheduler,
		Bus:       deps.Bus,
		Logger:    deps.Logger,
		Policy:    deps.Policy,
		Timezone:  deps.Timezone,
	})
	return &Module{
		Service: svc,
		handler: handler.New(svc, validator.New(), deps.Logger),
	}
}

func (m *Module) Name() string { return "leads" }

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.V1.POST("/leads", ctx.FormRateLimiter.RateLimit(), m.handler.SubmitForm)

	tools := ctx.V1.Group("/tools")
	tools.POST("/lookup-lead", m.handler.LookupLead)
	tools.POST("/availability", m.handler.Availability)
	tools.POST("/book", m.handler.Book)
	tools.POST("/cancel", m.handler.Cancel)
}
