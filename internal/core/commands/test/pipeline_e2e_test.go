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
// file runs the analysis stages end to end against fake collaborators: two
// videos are sampled, analyzed, transcribed, compiled, embedded, and written
// through the index store, and a semantic query must then rank them by
// relevance.
package commands_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/tarunaws/psl-media-sub003/internal/core/commands"
	"github.com/tarunaws/psl-media-sub003/internal/core/cor"
	"github.com/tarunaws/psl-media-sub003/internal/core/model"
	"github.com/tarunaws/psl-media-sub003/internal/core/services"
	test "github.com/tarunaws/psl-media-sub003/internal/testutil"
)

// ingestItem drives one item through sampling, parallel signal extraction,
// metadata compilation, embedding, and persistence, exactly as the workflow
// chain sequences them.
func ingestItem(
	t *testing.T,
	store *services.IndexStore,
	embedder services.Embedder,
	item *model.ContentItem,
	analyzer *test.FakeAnalyzer,
	transcript string) {
	chainCtx := cor.NewBaseContext(context.Background())
	defer chainCtx.Close()
	chainCtx.Add(commands.GetContentItemParameterName(), item)
	chainCtx.Add(commands.GetLocalVideoParameterName(), "/tmp/"+item.Title+".mp4")

	toolkit := &test.FakeToolkit{DurationValue: 25}
	vision := commands.NewVisionAnalyzer("analyze-frames", analyzer, 30, 0.70, 20, 3, 4)
	speech := commands.NewSpeechTranscriber(
		"transcribe-speech", toolkit, &test.FakeTranscriber{Transcript: transcript},
		commands.NewSystemClock(), time.Millisecond, time.Second)

	steps := []cor.Command{
		commands.NewFrameSampler("sample-frames", toolkit, 10),
		commands.NewSignalExtraction("extract-signals", vision, speech),
		commands.NewMetadataCompiler("compile-metadata"),
		commands.NewEmbeddingGenerator("generate-embedding", embedder),
		commands.NewContentPersist("persist-content", store, commands.NewSystemClock()),
	}
	for _, step := range steps {
		assert.True(t, step.IsExecutable(chainCtx), step.GetName())
		step.Execute(chainCtx)
	}
	assert.False(t, chainCtx.HasErrors())
}

// TestIngestAndSearch indexes a beach video and an office video and verifies
// that a beach query surfaces the beach item first, complete with the
// signals the analysis stages produced.
func TestIngestAndSearch(t *testing.T) {
	embedder := &test.FakeEmbedder{Dim: 64}
	store := services.NewIndexStore(test.NewFakeDurableIndex(), 64)

	beach := model.NewContentItem("beach-day", "A day at the shore.", "gs://b/beach.mp4")
	ingestItem(t, store, embedder, beach, &test.FakeAnalyzer{
		Default: &model.FrameObservations{
			Labels: []model.ScoredDetection{
				{Value: "beach", Confidence: 0.95},
				{Value: "sunset", Confidence: 0.85},
			},
			Faces: []model.FaceObservation{
				{Emotions: []model.ScoredDetection{{Value: "joy", Confidence: 0.9}}},
			},
		},
	}, "a party on the beach at sunset")

	office := model.NewContentItem("office-tour", "Walking the office floor.", "gs://b/office.mp4")
	ingestItem(t, store, embedder, office, &test.FakeAnalyzer{
		Default: &model.FrameObservations{
			Labels: []model.ScoredDetection{
				{Value: "desk", Confidence: 0.9},
				{Value: "whiteboard", Confidence: 0.8},
			},
		},
	}, "this is the engineering floor")

	// Both items are fully assembled and indexed.
	assert.Equal(t, 2, store.Len())
	indexed, err := store.Get(beach.Id)
	test.HandleErr(err, t)
	assert.Equal(t, []string{"beach", "sunset"}, indexed.Labels)
	assert.Equal(t, []string{"joy"}, indexed.Emotions)
	assert.Equal(t, "a party on the beach at sunset", indexed.Transcript)
	assert.Equal(t, 64, len(indexed.Embedding))
	assert.NotEmpty(t, indexed.Thumbnail)
	assert.False(t, indexed.CreatedAt.IsZero())

	// A beach query ranks the beach item first.
	search := services.NewSearchService(store, embedder)
	results, err := search.Search(context.Background(), "beach party at sunset", 10)
	test.HandleErr(err, t)
	assert.Equal(t, 2, len(results))
	assert.Equal(t, "beach-day", results[0].Title)
	assert.Greater(t, results[0].Score, results[1].Score)
}

// TestIngestFatalEmbeddingFailure verifies that an embedding failure keeps
// the item out of the index entirely.
func TestIngestFatalEmbeddingFailure(t *testing.T) {
	store := services.NewIndexStore(test.NewFakeDurableIndex(), 64)
	item := model.NewContentItem("doomed", "d", "gs://b/doomed.mp4")

	chainCtx := cor.NewBaseContext(context.Background())
	defer chainCtx.Close()
	chainCtx.Add(commands.GetContentItemParameterName(), item)
	chainCtx.Add(commands.GetMetadataDocParameterName(), "Title: doomed\n")

	embed := commands.NewEmbeddingGenerator("generate-embedding", &test.FakeEmbedder{Dim: 64, Err: test.ErrInjected})
	embed.Execute(chainCtx)

	assert.True(t, chainCtx.HasErrors())
	for _, err := range chainCtx.GetErrors() {
		assert.True(t, model.IsFatalIngestion(err))
	}
	assert.Equal(t, 0, store.Len())
}
