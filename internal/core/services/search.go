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
// sources. This file defines the SearchService: it converts a natural
// language query into a vector embedding and ranks every indexed item by
// cosine similarity against that vector, served entirely from the index
// store's in-memory mirror.
package services

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/tarunaws/psl-media-sub003/internal/core/model"
)

// Display bounds for search results: the transcript excerpt length and the
// number of leading labels carried on each ranked match.
const (
	maxSnippetRunes = 160
	maxResultLabels = 10
)

// Embedder converts text into the fixed-length vector space the index uses.
// Both the ingestion pipeline and the query path go through this interface so
// that documents and queries always share one embedding space.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// SearchService ranks indexed content against natural language queries.
type SearchService struct {
	Store    *IndexStore // The content index whose mirror is searched.
	Embedder Embedder    // The model used to embed query text.
}

// NewSearchService creates a search service over the given store and embedder.
func NewSearchService(store *IndexStore, embedder Embedder) *SearchService {
	return &SearchService{Store: store, Embedder: embedder}
}

// Search embeds the query text and returns the maxResults most similar items,
// best first. Queries that cannot be embedded fail the request; there is no
// degraded text-match fallback.
//
// Inputs:
//   - ctx: The context for the request.
//   - query: The natural language search string.
//   - maxResults: The maximum number of results to return. Values less than
//     one fall back to a single result.
//
// Outputs:
//   - []*model.SearchResult: Ranked matches, highest score first.
//   - error: A SearchInputError for malformed requests, or the embedding failure.
func (s *SearchService) Search(ctx context.Context, query string, maxResults int) ([]*model.SearchResult, error) {
	if query == "" {
		return nil, &model.SearchInputError{Reason: "query text is empty"}
	}
	vector, err := s.Embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	return s.SearchByVector(vector, maxResults)
}

// SearchByVector ranks every indexed item against an already-embedded query
// vector. The vector's dimension must match the index's; a mismatch rejects
// the request without touching stored state.
func (s *SearchService) SearchByVector(vector []float32, maxResults int) ([]*model.SearchResult, error) {
	if dim := s.Store.Dimension(); dim > 0 && len(vector) != dim {
		return nil, &model.SearchInputError{
			Reason: fmt.Sprintf("query embedding has dimension %d, index requires %d", len(vector), dim),
		}
	}
	if maxResults < 1 {
		maxResults = 1
	}

	items := s.Store.Items()
	results := make([]*model.SearchResult, 0, len(items))
	for _, item := range items {
		score := CosineSimilarity(vector, item.Embedding)
		results = append(results, &model.SearchResult{
			ItemId:            item.Id,
			Title:             item.Title,
			Description:       item.Description,
			TranscriptSnippet: snippet(item.Transcript),
			Labels:            leadingLabels(item.Labels),
			Emotions:          item.Emotions,
			Thumbnail:         item.Thumbnail,
			Score:             score,
			CreatedAt:         item.CreatedAt,
		})
	}

	// Rank by score descending. Ties go to the most recently indexed item,
	// then to the lexically smaller id so that ordering is deterministic.
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		if !results[i].CreatedAt.Equal(results[j].CreatedAt) {
			return results[i].CreatedAt.After(results[j].CreatedAt)
		}
		return results[i].ItemId < results[j].ItemId
	})

	if len(results) > maxResults {
		results = results[:maxResults]
	}
	return results, nil
}

// CosineSimilarity computes the cosine of the angle between two vectors of
// equal length. When either vector has zero magnitude the similarity is
// defined as 0.0 rather than NaN, so items with degenerate embeddings rank
// at the bottom instead of poisoning the sort.
func CosineSimilarity(a []float32, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0.0
	}
	var dot, magA, magB float64
	for i := range a {
		av := float64(a[i])
		bv := float64(b[i])
		dot += av * bv
		magA += av * av
		magB += bv * bv
	}
	if magA == 0 || magB == 0 {
		return 0.0
	}
	return dot / (math.Sqrt(magA) * math.Sqrt(magB))
}

// leadingLabels returns at most maxResultLabels labels for display. The full
// aggregate stays on the indexed record.
func leadingLabels(labels []string) []string {
	if len(labels) > maxResultLabels {
		labels = labels[:maxResultLabels]
	}
	return append([]string(nil), labels...)
}

// snippet returns the leading portion of a transcript for display in results.
func snippet(transcript string) string {
	runes := []rune(transcript)
	if len(runes) <= maxSnippetRunes {
		return transcript
	}
	return string(runes[:maxSnippetRunes]) + "..."
}
