// Package store defines the remote task store boundary.
package store

import (
	"context"
	"errors"

	"github.com/Makepad-fr/donezo/internal/model"
)

// ErrNotFound is returned by Update and Delete when no row matched the id.
var ErrNotFound = errors.New("task not found")

// Store is the system of record while a user identity is established.
// Writes are per record; List returns tasks newest first.
type Store interface {
	List(ctx context.Context, userID string) ([]model.Task, error)
	Insert(ctx context.Context, userID string, t model.Task) (model.Task, error)
	Update(ctx context.Context, id string, p model.Patch) error
	Delete(ctx context.Context, id string) error
}
