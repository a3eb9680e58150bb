// Copyright 2024 Google, LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package services contains the business logic for interacting with data
// sources. This file defines the IndexStore: the write-through content index
// that pairs a durable layer with an in-memory mirror used for serving reads
// and search. The durable layer is the source of truth; the mirror is rebuilt
// from it at startup and kept consistent on every write and delete.
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/tarunaws/psl-media-sub003/internal/core/model"
)

// IndexStore holds the indexed content. All reads are served from the
// in-memory mirror; all writes go to the durable layer first and touch the
// mirror only after the durable layer has accepted them.
//
// An IndexStore is created per deployment, not held as package state, so that
// tests can run isolated instances side by side.
type IndexStore struct {
	durable   DurableIndex
	dimension int // Expected embedding length. Zero disables the check.

	mu     sync.RWMutex
	mirror map[string]*model.ContentItem
}

// NewIndexStore creates an empty store over the given durable layer. Every
// stored embedding must have length dimension; pass zero to accept any.
func NewIndexStore(durable DurableIndex, dimension int) *IndexStore {
	return &IndexStore{
		durable:   durable,
		dimension: dimension,
		mirror:    make(map[string]*model.ContentItem),
	}
}

// Dimension returns the embedding length the store enforces.
func (s *IndexStore) Dimension() int {
	return s.dimension
}

// LoadMirror rebuilds the in-memory mirror from the durable layer. It is
// called once at startup, before the store starts serving, and again whenever
// a write or delete leaves the two layers inconsistent.
func (s *IndexStore) LoadMirror(ctx context.Context) error {
	items, err := s.durable.Scan(ctx)
	if err != nil {
		return fmt.Errorf("failed to rebuild index mirror: %w", err)
	}

	fresh := make(map[string]*model.ContentItem, len(items))
	for _, item := range items {
		fresh[item.Id] = item
	}

	s.mu.Lock()
	s.mirror = fresh
	s.mu.Unlock()

	slog.Info("index mirror loaded", "items", len(items))
	return nil
}

// Put indexes one complete content record. The durable write happens first;
// the mirror is only updated once the durable layer has accepted the record,
// so a durable failure leaves the store unchanged.
func (s *IndexStore) Put(ctx context.Context, item *model.ContentItem) error {
	if item == nil || item.Id == "" {
		return fmt.Errorf("cannot index an item without an id")
	}
	if s.dimension > 0 && len(item.Embedding) != s.dimension {
		return fmt.Errorf("cannot index item %s: embedding has dimension %d, index requires %d",
			item.Id, len(item.Embedding), s.dimension)
	}

	if err := s.durable.Write(ctx, item); err != nil {
		return err
	}

	s.mu.Lock()
	s.mirror[item.Id] = item.Clone()
	s.mu.Unlock()
	return nil
}

// Get returns a copy of the record with the given id, or model.ErrNotFound.
func (s *IndexStore) Get(id string) (*model.ContentItem, error) {
	s.mu.RLock()
	item, ok := s.mirror[id]
	s.mu.RUnlock()
	if !ok {
		return nil, model.ErrNotFound
	}
	return item.Clone(), nil
}

// Delete removes the record from both layers. The mirror entry is removed
// first so that search stops surfacing the item immediately; if the durable
// delete then fails, the mirror is reconciled against the durable layer
// before the error is reported, so the two layers never diverge in a way a
// search can observe.
func (s *IndexStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	item, ok := s.mirror[id]
	if !ok {
		s.mu.Unlock()
		return model.ErrNotFound
	}
	delete(s.mirror, id)
	s.mu.Unlock()

	if err := s.durable.Remove(ctx, id); err != nil {
		s.reconcile(ctx, id, item)
		return &model.StoreInconsistencyError{Op: "delete", ItemId: id, Err: err}
	}
	return nil
}

// reconcile restores the mirror entry for one id from the durable layer, the
// source of truth: present there means present here, absent means absent. If
// the durable read itself fails the previously mirrored copy is restored so
// the record does not silently vanish from search.
func (s *IndexStore) reconcile(ctx context.Context, id string, fallback *model.ContentItem) {
	found, err := s.durable.Find(ctx, id)
	switch {
	case err == nil:
		s.mu.Lock()
		s.mirror[id] = found
		s.mu.Unlock()
	case errors.Is(err, model.ErrNotFound):
		// The durable layer already dropped the record; the mirror entry
		// stays deleted.
	default:
		slog.Warn("mirror reconciliation could not read the durable layer", "id", id, "error", err)
		s.mu.Lock()
		s.mirror[id] = fallback
		s.mu.Unlock()
	}
}

// Len returns the number of indexed records.
func (s *IndexStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.mirror)
}

// Items returns copies of every indexed record, newest first. Search and the
// listing API both consume this ordering.
func (s *IndexStore) Items() []*model.ContentItem {
	s.mu.RLock()
	out := make([]*model.ContentItem, 0, len(s.mirror))
	for _, item := range s.mirror {
		out = append(out, item.Clone())
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].Id < out[j].Id
	})
	return out
}
