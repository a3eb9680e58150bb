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
// This file tests the cosine ranking of the SearchService: score math,
// malformed query rejection, tie-breaking, and top-k truncation.
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

// TestCosineSimilarity covers the score math, including the degenerate
// inputs that are defined to score 0.0 instead of producing NaN.
func TestCosineSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, services.CosineSimilarity([]float32{1, 0}, []float32{2, 0}), 1e-9)
	assert.InDelta(t, 0.0, services.CosineSimilarity([]float32{1, 0}, []float32{0, 1}), 1e-9)
	assert.InDelta(t, -1.0, services.CosineSimilarity([]float32{1, 0}, []float32{-1, 0}), 1e-9)

	// Zero-magnitude vectors score 0.0.
	assert.Equal(t, 0.0, services.CosineSimilarity([]float32{0, 0}, []float32{1, 0}))
	// Length mismatches score 0.0 rather than panicking.
	assert.Equal(t, 0.0, services.CosineSimilarity([]float32{1}, []float32{1, 0}))
	assert.Equal(t, 0.0, services.CosineSimilarity(nil, nil))
}

// TestSearchRejectsEmptyQuery verifies that an empty query fails with a
// SearchInputError before any embedding call is made.
func TestSearchRejectsEmptyQuery(t *testing.T) {
	store := services.NewIndexStore(test.NewFakeDurableIndex(), 0)
	svc := services.NewSearchService(store, &test.FakeEmbedder{Dim: 8})

	_, err := svc.Search(context.Background(), "", 10)
	var inputErr *model.SearchInputError
	assert.True(t, errors.As(err, &inputErr))
}

// TestSearchByVectorRejectsDimensionMismatch verifies that a query vector of
// the wrong length is rejected without touching stored state.
func TestSearchByVectorRejectsDimensionMismatch(t *testing.T) {
	store := services.NewIndexStore(test.NewFakeDurableIndex(), 3)
	svc := services.NewSearchService(store, &test.FakeEmbedder{Dim: 3})

	_, err := svc.SearchByVector([]float32{1, 0}, 10)
	var inputErr *model.SearchInputError
	assert.True(t, errors.As(err, &inputErr))
}

// TestSearchEmbedFailureSurfaces verifies that a failing embedder fails the
// request; there is no degraded text-match fallback.
func TestSearchEmbedFailureSurfaces(t *testing.T) {
	store := services.NewIndexStore(test.NewFakeDurableIndex(), 0)
	svc := services.NewSearchService(store, &test.FakeEmbedder{Dim: 8, Err: test.ErrInjected})

	_, err := svc.Search(context.Background(), "beach", 10)
	assert.ErrorIs(t, err, test.ErrInjected)
}

// TestSearchRanking indexes two items with hand-built embeddings and checks
// that the closer vector ranks first and scores carry through to the results.
func TestSearchRanking(t *testing.T) {
	ctx := context.Background()
	store := services.NewIndexStore(test.NewFakeDurableIndex(), 3)
	svc := services.NewSearchService(store, &test.FakeEmbedder{Dim: 3})

	near := newIndexedItem("near", time.Now())
	near.Embedding = []float32{1, 0, 0}
	far := newIndexedItem("far", time.Now())
	far.Embedding = []float32{0, 1, 0}
	test.HandleErr(store.Put(ctx, near), t)
	test.HandleErr(store.Put(ctx, far), t)

	results, err := svc.SearchByVector([]float32{1, 0, 0}, 10)
	test.HandleErr(err, t)

	assert.Equal(t, 2, len(results))
	assert.Equal(t, "near", results[0].Title)
	assert.InDelta(t, 1.0, results[0].Score, 1e-9)
	assert.InDelta(t, 0.0, results[1].Score, 1e-9)
}

// TestSearchTieBreak verifies the deterministic ordering of equal scores:
// the most recently indexed item wins, and identical timestamps fall back to
// the lexically smaller id.
func TestSearchTieBreak(t *testing.T) {
	ctx := context.Background()
	store := services.NewIndexStore(test.NewFakeDurableIndex(), 2)
	svc := services.NewSearchService(store, &test.FakeEmbedder{Dim: 2})

	now := time.Now()
	older := newIndexedItem("older", now.Add(-time.Hour))
	older.Embedding = []float32{1, 0}
	newer := newIndexedItem("newer", now)
	newer.Embedding = []float32{1, 0}
	test.HandleErr(store.Put(ctx, older), t)
	test.HandleErr(store.Put(ctx, newer), t)

	results, err := svc.SearchByVector([]float32{1, 0}, 10)
	test.HandleErr(err, t)
	assert.Equal(t, "newer", results[0].Title)
	assert.Equal(t, "older", results[1].Title)

	// Same timestamp: smaller id first.
	twinA := newIndexedItem("twin-a", now)
	twinA.Id = "aaaa"
	twinA.Embedding = []float32{1, 0}
	twinB := newIndexedItem("twin-b", now)
	twinB.Id = "bbbb"
	twinB.Embedding = []float32{1, 0}

	twinStore := services.NewIndexStore(test.NewFakeDurableIndex(), 2)
	test.HandleErr(twinStore.Put(ctx, twinB), t)
	test.HandleErr(twinStore.Put(ctx, twinA), t)

	twinResults, err := services.NewSearchService(twinStore, &test.FakeEmbedder{Dim: 2}).
		SearchByVector([]float32{1, 0}, 10)
	test.HandleErr(err, t)
	assert.Equal(t, "aaaa", twinResults[0].ItemId)
}

// TestSearchTopK verifies truncation to maxResults, and that a non-positive
// count still yields one result.
func TestSearchTopK(t *testing.T) {
	ctx := context.Background()
	store := services.NewIndexStore(test.NewFakeDurableIndex(), 2)
	svc := services.NewSearchService(store, &test.FakeEmbedder{Dim: 2})

	for i := 0; i < 5; i++ {
		item := newIndexedItem("item", time.Now().Add(time.Duration(i)*time.Second))
		item.Embedding = []float32{1, 0}
		test.HandleErr(store.Put(ctx, item), t)
	}

	results, err := svc.SearchByVector([]float32{1, 0}, 3)
	test.HandleErr(err, t)
	assert.Equal(t, 3, len(results))

	one, err := svc.SearchByVector([]float32{1, 0}, 0)
	test.HandleErr(err, t)
	assert.Equal(t, 1, len(one))
}

// TestSearchEndToEndWithBagOfWords runs the full query path with the
// deterministic bag-of-words embedder: items whose compiled metadata shares
// words with the query must outrank unrelated items.
func TestSearchEndToEndWithBagOfWords(t *testing.T) {
	ctx := context.Background()
	embedder := &test.FakeEmbedder{Dim: 64}
	store := services.NewIndexStore(test.NewFakeDurableIndex(), 64)
	svc := services.NewSearchService(store, embedder)

	beach := newIndexedItem("beach-party", time.Now())
	beachVec, err := embedder.Embed(ctx, "beach party sunset ocean waves")
	test.HandleErr(err, t)
	beach.Embedding = beachVec

	office := newIndexedItem("office-tour", time.Now())
	officeVec, err := embedder.Embed(ctx, "office desks meeting rooms corridor")
	test.HandleErr(err, t)
	office.Embedding = officeVec

	test.HandleErr(store.Put(ctx, beach), t)
	test.HandleErr(store.Put(ctx, office), t)

	results, err := svc.Search(ctx, "beach party at sunset", 2)
	test.HandleErr(err, t)
	assert.Equal(t, "beach-party", results[0].Title)
	assert.Greater(t, results[0].Score, results[1].Score)
}
