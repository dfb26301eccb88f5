package repository

import (
	"context"
	"errors"
	"time"

	"epiclead_backend/internal/leads/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("lead not found")

const leadColumns = `id, name, phone, email, source, status, notes,
	call_scheduled_at, retell_call_id, calendly_event_uri, calendly_uid,
	created_at, updated_at`

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Lead is the persistent lead record.
type Lead struct {
	ID               uuid.UUID
	Name             string
	Phone            string
	Email            *string
	Source           string
	Status           domain.Status
	Notes            *string
	CallScheduledAt  *time.Time
	RetellCallID     *string
	CalendlyEventURI *string
	CalendlyUID      *string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

type CreateLeadParams struct {
	Name             string
	Phone            string
	Email            *string
	Source           string
	Status           domain.Status
	Notes            *string
	CalendlyEventURI *string
	CalendlyUID      *string
}

func (r *Repository) Create(ctx context.Context, params CreateLeadParams) (Lead, error) {
	var lead Lead
	err := r.pool.QueryRow(ctx, `
		INSERT INTO leads (name, phone, email, source, status, notes, calendly_event_uri, calendly_uid)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING `+leadColumns,
		params.Name, params.Phone, params.Email, params.Source, params.Status,
		params.Notes, params.CalendlyEventURI, params.CalendlyUID,
	).Scan(scanTargets(&lead)...)
	if err != nil {
		return Lead{}, err
	}

	return lead, nil
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (Lead, error) {
	return r.queryOne(ctx, `SELECT `+leadColumns+` FROM leads WHERE id = $1`, id)
}

// FindMostRecentByPhones matches any of the normalized phone candidates,
// newest lead first.
func (r *Repository) FindMostRecentByPhones(ctx context.Context, candidates []string) (Lead, error) {
	if len(candidates) == 0 {
		return Lead{}, ErrNotFound
	}
	return r.queryOne(ctx, `
		SELECT `+leadColumns+`
		FROM leads
		WHERE phone = ANY($1)
		ORDER BY created_at DESC
		LIMIT 1
	`, candidates)
}

func (r *Repository) FindMostRecentByEmail(ctx context.Context, email string) (Lead, error) {
	return r.queryOne(ctx, `
		SELECT `+leadColumns+`
		FROM leads
		WHERE lower(email) = lower($1)
		ORDER BY created_at DESC
		LIMIT 1
	`, email)
}

// FindMostRecentByNameLike is the last-resort substring match on name.
func (r *Repository) FindMostRecentByNameLike(ctx context.Context, name string) (Lead, error) {
	return r.queryOne(ctx, `
		SELECT `+leadColumns+`
		FROM leads
		WHERE name ILIKE '%' || $1 || '%'
		ORDER BY created_at DESC
		LIMIT 1
	`, name)
}

func (r *Repository) FindByRetellCallID(ctx context.Context, callID string) (Lead, error) {
	return r.queryOne(ctx, `
		SELECT `+leadColumns+`
		FROM leads
		WHERE retell_call_id = $1
		ORDER BY created_at DESC
		LIMIT 1
	`, callID)
}

// FindByCalendlyUID locates a lead already attached to a scheduling-provider
// invitee, for idempotent webhook redelivery.
func (r *Repository) FindByCalendlyUID(ctx context.Context, uid string) (Lead, error) {
	return r.queryOne(ctx, `
		SELECT `+leadColumns+`
		FROM leads
		WHERE calendly_uid = $1
		LIMIT 1
	`, uid)
}

// FindRecentByPhone finds the newest lead with this phone created within the
// given window, for duplicate form submissions.
func (r *Repository) FindRecentByPhone(ctx context.Context, phone string, window time.Duration) (Lead, error) {
	return r.queryOne(ctx, `
		SELECT `+leadColumns+`
		FROM leads
		WHERE phone = $1 AND created_at >= $2
		ORDER BY created_at DESC
		LIMIT 1
	`, phone, time.Now().Add(-window))
}

func (r *Repository) SetCallScheduledAt(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.exec(ctx, `
		UPDATE leads SET call_scheduled_at = $2, updated_at = now() WHERE id = $1
	`, id, at)
}

// UpdateOutcome commits a classifier-derived status and note.
func (r *Repository) UpdateOutcome(ctx context.Context, id uuid.UUID, status domain.Status, note string) error {
	return r.exec(ctx, `
		UPDATE leads SET status = $2, notes = $3, updated_at = now() WHERE id = $1
	`, id, status, note)
}

// AttachCallSession records the call-session handle and advances the lead to
// ai_called in one conditional update. It returns false when the lead was no
// longer a clean form_started record, which means another trigger already won;
// the caller must not dial again.
func (r *Repository) AttachCallSession(ctx context.Context, id uuid.UUID, callID string) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE leads
		SET status = $2, retell_call_id = $3, updated_at = now()
		WHERE id = $1 AND status = $4 AND retell_call_id IS NULL
	`, id, domain.StatusAICalled, callID, domain.StatusFormStarted)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// MarkBooked applies a scheduling-provider booking: status booked plus the
// external appointment handles.
func (r *Repository) MarkBooked(ctx context.Context, id uuid.UUID, calendlyUID, eventURI string) error {
	return r.exec(ctx, `
		UPDATE leads
		SET status = $2, calendly_uid = $3, calendly_event_uri = $4, updated_at = now()
		WHERE id = $1
	`, id, domain.StatusBooked, calendlyUID, eventURI)
}

// MarkAIBooked applies a booking made by the voice agent during a live call.
func (r *Repository) MarkAIBooked(ctx context.Context, id uuid.UUID, eventURI, note string) error {
	return r.exec(ctx, `
		UPDATE leads
		SET status = $2, calendly_event_uri = NULLIF($3, ''), notes = $4, updated_at = now()
		WHERE id = $1
	`, id, domain.StatusAIBooked, eventURI, note)
}

// MarkCancelled applies an explicit cancellation transition.
func (r *Repository) MarkCancelled(ctx context.Context, id uuid.UUID, note string) error {
	return r.exec(ctx, `
		UPDATE leads SET status = $2, notes = $3, updated_at = now() WHERE id = $1
	`, id, domain.StatusCancelled, note)
}

func (r *Repository) queryOne(ctx context.Context, query string, args ...any) (Lead, error) {
	var lead Lead
	err := r.pool.QueryRow(ctx, query, args...).Scan(scanTargets(&lead)...)
	if errors.Is(err, pgx.ErrNoRows) {
		return Lead{}, ErrNotFound
	}
	if err != nil {
		return Lead{}, err
	}
	return lead, nil
}

func (r *Repository) exec(ctx context.Context, query string, args ...any) error {
	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanTargets(lead *Lead) []any {
	return []any{
		&lead.ID, &lead.Name, &lead.Phone, &lead.Email, &lead.Source, &lead.Status, &lead.Notes,
		&lead.CallScheduledAt, &lead.RetellCallID, &lead.CalendlyEventURI, &lead.CalendlyUID,
		&lead.CreatedAt, &lead.UpdatedAt,
	}
}
