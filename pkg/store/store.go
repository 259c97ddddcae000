// Package store persists named pipeline programs.
//
// Programs are stored in their wire form (package io), so a store never
// needs an operator registry: resolution happens when a loaded program is
// turned back into instructions by the caller.
package store

import (
	"context"
	"errors"

	flowio "github.com/flowforge/flowforge/pkg/io"
)

// ErrNotFound is returned when no program is stored under the given name.
var ErrNotFound = errors.New("program not found")

// Store is the persistence surface for named programs.
// Save overwrites an existing program of the same name.
type Store interface {
	Save(ctx context.Context, name string, p flowio.Program) error
	Load(ctx context.Context, name string) (flowio.Program, error)
	List(ctx context.Context) ([]string, error)
	Delete(ctx context.Context, name string) error
}
