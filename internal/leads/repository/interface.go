package repository

import (
	"context"
	"time"

	"epiclead_backend/internal/leads/domain"

	"github.com/google/uuid"
)

// LeadStore is the persistence contract the resolver and orchestrator depend
// on. *Repository is the pgx implementation; tests use in-memory fakes.
type LeadStore interface {
	Create(ctx context.Context, params CreateLeadParams) (Lead, error)
	GetByID(ctx context.Context, id uuid.UUID) (Lead, error)
	FindMostRecentByPhones(ctx context.Context, candidates []string) (Lead, error)
	FindMostRecentByEmail(ctx context.Context, email string) (Lead, error)
	FindMostRecentByNameLike(ctx context.Context, name string) (Lead, error)
	FindByRetellCallID(ctx context.Context, callID string) (Lead, error)
	FindByCalendlyUID(ctx context.Context, uid string) (Lead, error)
	FindRecentByPhone(ctx context.Context, phone string, window time.Duration) (Lead, error)
	SetCallScheduledAt(ctx context.Context, id uuid.UUID, at time.Time) error
	UpdateOutcome(ctx context.Context, id uuid.UUID, status domain.Status, note string) error
	AttachCallSession(ctx context.Context, id uuid.UUID, callID string) (bool, error)
	MarkBooked(ctx context.Context, id uuid.UUID, calendlyUID, eventURI string) error
	MarkAIBooked(ctx context.Context, id uuid.UUID, eventURI, note string) error
	MarkCancelled(ctx context.Context, id uuid.UUID, note string) error
}

// Compile-time check that Repository implements LeadStore
var _ LeadStore = (*Repository)(nil)
