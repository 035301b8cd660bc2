// Package storage defines interfaces and implementations for power output storage backends.
package storage

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/chrissnell/windfeed/pkg/power"
)

// Output is a computed power series ready to be stored
type Output struct {
	RunID      uuid.UUID
	Kind       string // turbine, farm or cluster
	Name       string
	ComputedAt time.Time
	Series     *power.Series
}

// Engine is an interface that provides a few standardized methods for
// various storage backends
type Engine interface {
	StoreOutput(ctx context.Context, out Output) error
	Health(ctx context.Context) error
	Close() error
}
