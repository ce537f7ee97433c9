// Package store persists job execution records. The planner records
// terminal executions fire-and-forget; a store failure never fails the
// job itself.
package store

import (
	"context"
	"errors"

	"github.com/coreyalejandro/juniorgpt/pkg/models"
)

// ErrNotFound indicates no record exists for the requested execution.
var ErrNotFound = errors.New("execution record not found")

// Store is the planner's view of persistence.
type Store interface {
	// Record writes or replaces the execution record.
	Record(ctx context.Context, exec *models.JobExecution) error
	// FetchExecution returns one recorded execution by ID, or
	// ErrNotFound.
	FetchExecution(ctx context.Context, execID string) (*models.JobExecution, error)
	// FetchHistory returns all recorded executions for a job, newest
	// first.
	FetchHistory(ctx context.Context, jobID string) ([]*models.JobExecution, error)
	// Close releases the store's resources.
	Close() error
}
