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

// Package services_test contains unit tests for the business logic services.
// This file tests the write-through IndexStore: durable-first writes, mirror
// consistency on failure, delete rollback, and mirror rebuilds.
package services_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/tarunaws/psl-media-sub003/internal/core/model"
	"github.com/tarunaws/psl-media-sub003/internal/core/services"
	test "github.com/tarunaws/psl-media-sub003/internal/testutil"
)

func newIndexedItem(title string, createdAt time.Time) *model.ContentItem {
	item := model.NewContentItem(title, "desc", "gs://bucket/"+title+".mp4")
	item.Embedding = []float32{1, 0, 0}
	item.CreatedAt = createdAt
	return item
}

// TestPutWritesThrough verifies a successful Put lands in both layers and
// that reads hand out copies rather than mirror references.
func TestPutWritesThrough(t *testing.T) {
	ctx := context.Background()
	durable := test.NewFakeDurableIndex()
	store := services.NewIndexStore(durable, 3)

	item := newIndexedItem("one", time.Now())
	test.HandleErr(store.Put(ctx, item), t)

	assert.Equal(t, 1, store.Len())
	assert.Equal(t, 1, durable.Len())

	got, err := store.Get(item.Id)
	test.HandleErr(err, t)
	got.Title = "mutated"

	again, err := store.Get(item.Id)
	test.HandleErr(err, t)
	assert.Equal(t, "one", again.Title)
}

// TestPutDurableFailureLeavesStoreUnchanged verifies that when the durable
// layer rejects a write, the mirror never sees the item. The durable layer is
// the source of truth; the mirror must not get ahead of it.
func TestPutDurableFailureLeavesStoreUnchanged(t *testing.T) {
	ctx := context.Background()
	durable := test.NewFakeDurableIndex()
	durable.WriteErr = test.ErrInjected
	store := services.NewIndexStore(durable, 3)

	err := store.Put(ctx, newIndexedItem("one", time.Now()))
	assert.Error(t, err)
	assert.Equal(t, 0, store.Len())
	assert.Equal(t, 0, durable.Len())
}

// TestPutEnforcesDimension verifies that items whose embedding length does
// not match the index dimension are rejected before touching either layer.
func TestPutEnforcesDimension(t *testing.T) {
	ctx := context.Background()
	durable := test.NewFakeDurableIndex()
	store := services.NewIndexStore(durable, 4)

	item := newIndexedItem("one", time.Now()) // 3-dimensional embedding
	err := store.Put(ctx, item)
	assert.Error(t, err)
	assert.Equal(t, 0, durable.Len())

	// An item without an id is likewise rejected.
	blank := newIndexedItem("two", time.Now())
	blank.Id = ""
	assert.Error(t, store.Put(ctx, blank))
}

// TestGetUnknownId verifies lookups of unindexed ids return ErrNotFound.
func TestGetUnknownId(t *testing.T) {
	store := services.NewIndexStore(test.NewFakeDurableIndex(), 0)
	_, err := store.Get("nope")
	assert.ErrorIs(t, err, model.ErrNotFound)
}

// TestDeleteRollsBackOnDurableFailure verifies the delete contract: the
// mirror entry is removed first, and when the durable delete fails it is
// restored and the caller gets a StoreInconsistencyError.
func TestDeleteRollsBackOnDurableFailure(t *testing.T) {
	ctx := context.Background()
	durable := test.NewFakeDurableIndex()
	store := services.NewIndexStore(durable, 3)

	item := newIndexedItem("one", time.Now())
	test.HandleErr(store.Put(ctx, item), t)

	durable.RemoveErr = test.ErrInjected
	err := store.Delete(ctx, item.Id)

	var inconsistency *model.StoreInconsistencyError
	assert.True(t, errors.As(err, &inconsistency))
	assert.Equal(t, "delete", inconsistency.Op)

	// The item must still be readable after the rollback.
	got, err := store.Get(item.Id)
	test.HandleErr(err, t)
	assert.Equal(t, "one", got.Title)
}

// TestDeleteReconcilesAgainstDurable verifies reconciliation follows the
// durable layer as the source of truth: when the durable delete errors but
// the record is in fact already gone there, the mirror entry stays deleted
// instead of being blindly restored.
func TestDeleteReconcilesAgainstDurable(t *testing.T) {
	ctx := context.Background()
	durable := test.NewFakeDurableIndex()
	store := services.NewIndexStore(durable, 3)

	item := newIndexedItem("one", time.Now())
	test.HandleErr(store.Put(ctx, item), t)

	// The durable record is removed out of band, then the delete call itself
	// reports a failure.
	test.HandleErr(durable.Remove(ctx, item.Id), t)
	durable.RemoveErr = test.ErrInjected

	err := store.Delete(ctx, item.Id)
	var inconsistency *model.StoreInconsistencyError
	assert.True(t, errors.As(err, &inconsistency))

	_, err = store.Get(item.Id)
	assert.ErrorIs(t, err, model.ErrNotFound)
}

// TestDeleteRestoresMirrorWhenDurableUnreadable verifies the fallback: when
// the reconciling read fails too, the previously mirrored copy is restored so
// the record does not silently vanish from search.
func TestDeleteRestoresMirrorWhenDurableUnreadable(t *testing.T) {
	ctx := context.Background()
	durable := test.NewFakeDurableIndex()
	store := services.NewIndexStore(durable, 3)

	item := newIndexedItem("one", time.Now())
	test.HandleErr(store.Put(ctx, item), t)

	durable.RemoveErr = test.ErrInjected
	durable.FindErr = test.ErrInjected

	err := store.Delete(ctx, item.Id)
	var inconsistency *model.StoreInconsistencyError
	assert.True(t, errors.As(err, &inconsistency))

	got, err := store.Get(item.Id)
	test.HandleErr(err, t)
	assert.Equal(t, "one", got.Title)
}

// TestDeleteRemovesFromBothLayers covers the successful path, including the
// not-found case for a second delete of the same id.
func TestDeleteRemovesFromBothLayers(t *testing.T) {
	ctx := context.Background()
	durable := test.NewFakeDurableIndex()
	store := services.NewIndexStore(durable, 3)

	item := newIndexedItem("one", time.Now())
	test.HandleErr(store.Put(ctx, item), t)
	test.HandleErr(store.Delete(ctx, item.Id), t)

	assert.Equal(t, 0, store.Len())
	assert.Equal(t, 0, durable.Len())
	assert.ErrorIs(t, store.Delete(ctx, item.Id), model.ErrNotFound)
}

// TestLoadMirrorRebuildsFromDurable verifies that a fresh store over a
// populated durable layer serves the same records after LoadMirror.
func TestLoadMirrorRebuildsFromDurable(t *testing.T) {
	ctx := context.Background()
	durable := test.NewFakeDurableIndex()
	store := services.NewIndexStore(durable, 3)

	first := newIndexedItem("first", time.Now().Add(-time.Hour))
	second := newIndexedItem("second", time.Now())
	test.HandleErr(store.Put(ctx, first), t)
	test.HandleErr(store.Put(ctx, second), t)

	rebuilt := services.NewIndexStore(durable, 3)
	test.HandleErr(rebuilt.LoadMirror(ctx), t)

	assert.Equal(t, 2, rebuilt.Len())
	got, err := rebuilt.Get(first.Id)
	test.HandleErr(err, t)
	assert.Equal(t, "first", got.Title)
}

// TestItemsNewestFirst verifies the listing order: newest CreatedAt first,
// ties broken by the lexically smaller id.
func TestItemsNewestFirst(t *testing.T) {
	ctx := context.Background()
	store := services.NewIndexStore(test.NewFakeDurableIndex(), 3)

	now := time.Now()
	older := newIndexedItem("older", now.Add(-time.Minute))
	newer := newIndexedItem("newer", now)
	test.HandleErr(store.Put(ctx, older), t)
	test.HandleErr(store.Put(ctx, newer), t)

	items := store.Items()
	assert.Equal(t, 2, len(items))
	assert.Equal(t, "newer", items[0].Title)
	assert.Equal(t, "older", items[1].Title)
}
