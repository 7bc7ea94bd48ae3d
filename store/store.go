// Package store holds the task persistence backends.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"todo-api/config"
	"todo-api/models"
)

// ErrNotFound is returned by Get when no live task has the given id.
var ErrNotFound = errors.New("task not found")

// TaskStore is the set of operations the handlers need from a backend.
//
// Update and Delete never fail on a missing id: Update leaves the store
// untouched and Delete is a no-op. Tasks whose ttl has passed are invisible
// to Get, ListByUser and Update on every backend, whether or not they have
// been physically removed yet.
type TaskStore interface {
	Put(ctx context.Context, task models.Task) error
	Get(ctx context.Context, taskID string) (models.Task, error)
	ListByUser(ctx context.Context, userID string, limit int) ([]models.Task, error)
	Update(ctx context.Context, taskID string, upd models.TaskUpdate) error
	Delete(ctx context.Context, taskID string) error
	Close() error
}

// Sweeper is implemented by backends without native expiry.
type Sweeper interface {
	PurgeExpired(ctx context.Context, now time.Time) (int64, error)
}

// Open builds the backend selected by cfg.Driver.
func Open(ctx context.Context, cfg config.StoreConfig) (TaskStore, error) {
	switch cfg.Driver {
	case config.DriverDynamoDB:
		d, err := OpenDynamo(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return d, nil
	case config.DriverSQLite:
		s, err := OpenSQLite(ctx, cfg.SQLitePath, cfg.TableName)
		if err != nil {
			return nil, err
		}
		return s, nil
	case config.DriverMemory:
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}
