// Package store persists TextResource aggregates behind a unit of work.
//
// A Repository is opened per request with Store.Begin. Reads load whole
// aggregates (translations included) and track them; writes are staged until
// Save commits everything in one atomic step.
package store

import (
	"context"

	"lokal/internal/translation/models"
)

// Store opens units of work.
type Store interface {
	Begin() Repository
}

// Repository is a unit of work over TextResource aggregates. It is not safe
// for concurrent use; open one per request.
type Repository interface {
	// ListSids returns every sid, ordered by sid.
	ListSids(ctx context.Context) ([]string, error)
	// List loads every aggregate with its translations.
	List(ctx context.Context) ([]*models.TextResource, error)
	// GetBySid loads one aggregate or returns a wrapped sentinel.ErrNotFound.
	GetBySid(ctx context.Context, sid string) (*models.TextResource, error)
	// Add stages a new aggregate for insertion.
	Add(ctx context.Context, resource *models.TextResource) error
	// DeleteBySid stages removal of the aggregate and its translations.
	// Absent sids are a no-op.
	DeleteBySid(ctx context.Context, sid string) error
	// Save commits all staged and tracked changes atomically. Unique
	// violations surface as a wrapped sentinel.ErrConflict.
	Save(ctx context.Context) error
}
