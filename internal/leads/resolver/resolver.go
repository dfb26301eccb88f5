// Package resolver maps a fuzzy event identity (phone, email, name) to an
// existing lead record.
package resolver

import (
	"context"
	"errors"
	"strings"

	"epiclead_backend/internal/leads/repository"
	"epiclead_backend/platform/apperr"
	"epiclead_backend/platform/phone"
)

// Identity is the partial identity an external event carries.
type Identity struct {
	Phone string
	Email string
	Name  string
}

// Empty reports whether no matching key was supplied at all.
func (id Identity) Empty() bool {
	return strings.TrimSpace(id.Phone) == "" &&
		strings.TrimSpace(id.Email) == "" &&
		strings.TrimSpace(id.Name) == ""
}

// Resolver finds the single best-matching lead for a partial identity.
type Resolver struct {
	store repository.LeadStore
}

func New(store repository.LeadStore) *Resolver {
	return &Resolver{store: store}
}

// Resolve tries keys in confidence order, first hit wins: normalized phone
// variants, then case-insensitive email, then name substring as last resort.
// Lower-priority keys are only consulted when higher-priority ones miss.
// With no key at all it returns InsufficientIdentity; with keys that all miss
// it returns a NotFound error.
func (r *Resolver) Resolve(ctx context.Context, id Identity) (repository.Lead, error) {
	if id.Empty() {
		return repository.Lead{}, apperr.InsufficientIdentity("no phone, email, or name to match on")
	}

	if candidates := phone.Candidates(id.Phone); len(candidates) > 0 {
		lead, err := r.store.FindMostRecentByPhones(ctx, candidates)
		if err == nil {
			return lead, nil
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return repository.Lead{}, err
		}
	}

	if email := strings.TrimSpace(id.Email); email != "" {
		lead, err := r.store.FindMostRecentByEmail(ctx, email)
		if err == nil {
			return lead, nil
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return repository.Lead{}, err
		}
	}

	if name := strings.TrimSpace(id.Name); name != "" {
		lead, err := r.store.FindMostRecentByNameLike(ctx, name)
		if err == nil {
			return lead, nil
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return repository.Lead{}, err
		}
	}

	return repository.Lead{}, apperr.NotFound("no lead matches the supplied identity")
}
