package eventstore

import (
	"context"
	"time"
)

// Store persists and retrieves events.
type Store interface {
	// Append adds a new event to the store.
	Append(ctx context.Context, e Event) error

	// GetByMaterial retrieves all events of one material, oldest first.
	GetByMaterial(ctx context.Context, material string) ([]Event, error)

	// GetAll retrieves every event, oldest first.
	GetAll(ctx context.Context) ([]Event, error)

	// GetRange retrieves events within a time range, oldest first.
	GetRange(ctx context.Context, start, end time.Time) ([]Event, error)

	// Close closes the store and releases resources.
	Close() error
}
