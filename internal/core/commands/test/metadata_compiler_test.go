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

// Package commands_test contains unit tests for the pipeline commands. This
// file tests the metadata document compiler. The document feeds the embedding
// model, so its layout has to be byte-stable: same signals in, same text out.
package commands_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tarunaws/psl-media-sub003/internal/core/commands"
	"github.com/tarunaws/psl-media-sub003/internal/core/model"
)

// TestCompileMetadataDocumentFixedOrder verifies the six sections appear in
// their fixed order with comma-joined list values.
func TestCompileMetadataDocumentFixedOrder(t *testing.T) {
	item := model.NewContentItem("Beach Party", "Friends at the shore.", "gs://b/v.mp4")
	item.Transcript = "welcome to the party"
	item.Labels = []string{"beach", "sunset"}
	item.OnScreenText = []string{"GRAND OPENING"}
	item.Emotions = []string{"joy"}

	doc := commands.CompileMetadataDocument(item)
	expected := "Beach Party\n" +
		"Friends at the shore.\n" +
		"Transcript: welcome to the party\n" +
		"Visual elements: beach, sunset\n" +
		"Text in video: GRAND OPENING\n" +
		"Emotions detected: joy\n"
	assert.Equal(t, expected, doc)
}

// TestCompileMetadataDocumentEmptySections verifies that empty signals still
// emit their header lines, so documents from items with different signal
// coverage remain structurally identical.
func TestCompileMetadataDocumentEmptySections(t *testing.T) {
	item := model.NewContentItem("", "", "gs://b/v.mp4")

	doc := commands.CompileMetadataDocument(item)
	expected := "\n" +
		"\n" +
		"Transcript: \n" +
		"Visual elements: \n" +
		"Text in video: \n" +
		"Emotions detected: \n"
	assert.Equal(t, expected, doc)
}

// TestCompileMetadataDocumentDeterministic verifies repeated compilation of
// the same item is byte-identical.
func TestCompileMetadataDocumentDeterministic(t *testing.T) {
	item := model.NewContentItem("T", "D", "gs://b/v.mp4")
	item.Labels = []string{"a", "b", "c"}

	first := commands.CompileMetadataDocument(item)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, commands.CompileMetadataDocument(item))
	}
}
