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

// Package model_test contains unit tests for the data models defined in the
// model package. This file tests the persistent content record: its
// constructor, its deep copy semantics, and its listing projection.
package model_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tarunaws/psl-media-sub003/internal/core/model"
)

// TestNewContentItem verifies that the constructor assigns a fresh identifier
// and initializes the aggregate slices as empty rather than nil, so that
// serialization and aggregation never have to special-case a missing slice.
func TestNewContentItem(t *testing.T) {
	item := model.NewContentItem("A Title", "A description.", "gs://bucket/object.mp4")

	assert.NotEmpty(t, item.Id)
	assert.Equal(t, "A Title", item.Title)
	assert.Equal(t, "A description.", item.Description)
	assert.Equal(t, "gs://bucket/object.mp4", item.SourceLocation)
	assert.NotNil(t, item.Labels)
	assert.NotNil(t, item.OnScreenText)
	assert.NotNil(t, item.Emotions)
	assert.Equal(t, 0, len(item.Labels))

	// Two constructions never share an identifier.
	other := model.NewContentItem("A Title", "A description.", "gs://bucket/object.mp4")
	assert.NotEqual(t, item.Id, other.Id)
}

// TestContentItemClone verifies that Clone produces a deep copy: mutating the
// copy's slices must not be observable through the original. The index store
// relies on this to protect its in-memory mirror.
func TestContentItemClone(t *testing.T) {
	item := model.NewContentItem("Original", "desc", "gs://bucket/a.mp4")
	item.Labels = []string{"beach", "sunset"}
	item.Embedding = []float32{0.1, 0.2, 0.3}

	clone := item.Clone()
	clone.Labels[0] = "mutated"
	clone.Embedding[0] = 99.0
	clone.Title = "Changed"

	assert.Equal(t, "beach", item.Labels[0])
	assert.Equal(t, float32(0.1), item.Embedding[0])
	assert.Equal(t, "Original", item.Title)
}

// TestSummarize verifies the listing projection carries only the browse
// fields and copies the label slice.
func TestSummarize(t *testing.T) {
	item := model.NewContentItem("Title", "desc", "gs://bucket/a.mp4")
	item.Labels = []string{"boat"}

	summary := item.Summarize()
	assert.Equal(t, item.Id, summary.Id)
	assert.Equal(t, item.Title, summary.Title)
	assert.Equal(t, item.Labels, summary.Labels)

	summary.Labels[0] = "mutated"
	assert.Equal(t, "boat", item.Labels[0])
}
