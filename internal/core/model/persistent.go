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

// Package model defines the core data structures for the application.
// This file contains the persistent data models: the records that are written
// to the durable index and mirrored in memory for search.
package model

import (
	"time"

	"github.com/google/uuid"
)

// Caps applied to the aggregated visual signals at write time. Emotions are
// deliberately uncapped; the number of distinct emotion tags is small.
const (
	MaxLabels       = 50
	MaxOnScreenText = 20
)

// ContentItem is the unit of indexing: the full, immutable record for one
// ingested media asset. It is created once per ingestion request, populated
// in a single pipeline pass, and becomes visible to search only after its
// embedding has been generated.
type ContentItem struct {
	// Id is generated at ingestion and never changes.
	Id string `json:"id" bigquery:"id"`

	// Title and Description are user supplied. When no title is given the
	// ingestion pipeline derives one from the source file name.
	Title       string `json:"title" bigquery:"title"`
	Description string `json:"description" bigquery:"description"`

	// SourceLocation is an opaque reference to the original media object in
	// the storage collaborator (e.g. a gs:// URI). The raw bytes are owned by
	// the storage layer, not by this record.
	SourceLocation string `json:"source_location" bigquery:"source_location"`

	// Transcript holds the full speech-to-text output. It is the empty string
	// when transcription was unavailable, failed, or timed out.
	Transcript string `json:"transcript" bigquery:"transcript"`

	// Labels, OnScreenText and Emotions are insertion-order-deduplicated
	// aggregates across all analyzed frames. Labels and OnScreenText respect
	// MaxLabels and MaxOnScreenText at write time.
	Labels       []string `json:"labels" bigquery:"labels"`
	OnScreenText []string `json:"on_screen_text" bigquery:"on_screen_text"`
	Emotions     []string `json:"emotions" bigquery:"emotions"`

	// Embedding is the fixed-length semantic vector over the compiled
	// metadata text. Its length is constant across all indexed items.
	Embedding []float32 `json:"embedding,omitempty" bigquery:"embedding"`

	// Thumbnail is the encoded midpoint frame of the source video.
	Thumbnail []byte `json:"thumbnail,omitempty" bigquery:"thumbnail"`

	// CreatedAt is set once, when the pipeline completes.
	CreatedAt time.Time `json:"created_at" bigquery:"created_at"`
}

// NewContentItem creates a ContentItem with a fresh identifier and empty,
// non-nil signal slices so that aggregation and serialization never have to
// distinguish nil from empty.
func NewContentItem(title string, description string, sourceLocation string) *ContentItem {
	return &ContentItem{
		Id:             uuid.NewString(),
		Title:          title,
		Description:    description,
		SourceLocation: sourceLocation,
		Labels:         make([]string, 0),
		OnScreenText:   make([]string, 0),
		Emotions:       make([]string, 0),
	}
}

// Clone returns a deep copy of the item. The index store hands out copies so
// that callers can never mutate the in-memory mirror through a shared slice.
func (c *ContentItem) Clone() *ContentItem {
	out := *c
	out.Labels = append([]string(nil), c.Labels...)
	out.OnScreenText = append([]string(nil), c.OnScreenText...)
	out.Emotions = append([]string(nil), c.Emotions...)
	out.Embedding = append([]float32(nil), c.Embedding...)
	out.Thumbnail = append([]byte(nil), c.Thumbnail...)
	return &out
}

// SearchResult is the derived, never-persisted view of one ranked match.
type SearchResult struct {
	ItemId            string    `json:"item_id"`
	Title             string    `json:"title"`
	Description       string    `json:"description"`
	TranscriptSnippet string    `json:"transcript_snippet"`
	Labels            []string  `json:"labels"`
	Emotions          []string  `json:"emotions"`
	Thumbnail         []byte    `json:"thumbnail,omitempty"`
	Score             float64   `json:"score"`
	CreatedAt         time.Time `json:"created_at"`
}

// ContentSummary is the listing view: everything a browse page needs without
// the embedding vector or transcript payload.
type ContentSummary struct {
	Id          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Labels      []string  `json:"labels"`
	CreatedAt   time.Time `json:"created_at"`
}

// Summarize projects the item onto its listing view.
func (c *ContentItem) Summarize() *ContentSummary {
	return &ContentSummary{
		Id:          c.Id,
		Title:       c.Title,
		Description: c.Description,
		Labels:      append([]string(nil), c.Labels...),
		CreatedAt:   c.CreatedAt,
	}
}
