package csvimport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"dxt-admin/internal/session"
)

const (
	keyWorkflow = "csv_import"
	keyFile     = "csv_import_file"
	keyLock     = "csv_import_lock"
)

// Stash keeps each session's workflow and staged file in the session store.
type Stash struct {
	store session.Store
	ttl   time.Duration
}

func NewStash(store session.Store, ttl time.Duration) *Stash {
	return &Stash{store: store, ttl: ttl}
}

// Workflow returns the session's workflow, or a fresh idle one.
func (s *Stash) Workflow(ctx context.Context, sid string) (*Workflow, error) {
	data, err := s.store.Get(ctx, sid, keyWorkflow)
	if errors.Is(err, session.ErrNotFound) {
		return NewWorkflow(), nil
	}
	if err != nil {
		return nil, err
	}
	w := NewWorkflow()
	if err := json.Unmarshal(data, w); err != nil {
		return nil, fmt.Errorf("failed to decode import workflow: %w", err)
	}
	return w, nil
}

func (s *Stash) SaveWorkflow(ctx context.Context, sid string, w *Workflow) error {
	data, err := json.Marshal(w)
	if err != nil {
		return fmt.Errorf("failed to encode import workflow: %w", err)
	}
	return s.store.Set(ctx, sid, keyWorkflow, data, s.ttl)
}

// File returns the staged upload. ErrFileMissing means nothing is staged or
// it expired.
func (s *Stash) File(ctx context.Context, sid string) (Upload, error) {
	data, err := s.store.Get(ctx, sid, keyFile)
	if errors.Is(err, session.ErrNotFound) {
		return Upload{}, ErrFileMissing
	}
	if err != nil {
		return Upload{}, err
	}
	var u Upload
	if err := json.Unmarshal(data, &u); err != nil {
		return Upload{}, fmt.Errorf("failed to decode staged file: %w", err)
	}
	return u, nil
}

func (s *Stash) SaveFile(ctx context.Context, sid string, u Upload) error {
	data, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("failed to encode staged file: %w", err)
	}
	return s.store.Set(ctx, sid, keyFile, data, s.ttl)
}

func (s *Stash) DropFile(ctx context.Context, sid string) error {
	return s.store.Delete(ctx, sid, keyFile)
}

// Lock claims the session's upload phase for ttl. It reports false while
// another request runs a preview or commit for the same session.
func (s *Stash) Lock(ctx context.Context, sid string, ttl time.Duration) (bool, error) {
	return s.store.SetNX(ctx, sid, keyLock, []byte("1"), ttl)
}

func (s *Stash) Unlock(ctx context.Context, sid string) error {
	return s.store.Delete(ctx, sid, keyLock)
}

// Clear removes everything the session staged.
func (s *Stash) Clear(ctx context.Context, sid string) error {
	return s.store.Delete(ctx, sid, keyWorkflow, keyFile, keyLock)
}
