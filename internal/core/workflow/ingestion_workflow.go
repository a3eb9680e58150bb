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

// Package workflow defines the high-level business logic orchestrations,
// combining various commands into coherent pipelines. This file implements
// the media ingestion workflow: from a GCS object notification to a fully
// indexed, searchable content item.
package workflow

import (
	goctx "context"
	"encoding/json"
	"time"

	"cloud.google.com/go/storage"
	"github.com/google/uuid"
	"github.com/tarunaws/psl-media-sub003/internal/cloud"
	"github.com/tarunaws/psl-media-sub003/internal/core/commands"
	"github.com/tarunaws/psl-media-sub003/internal/core/cor"
	"github.com/tarunaws/psl-media-sub003/internal/core/model"
	"github.com/tarunaws/psl-media-sub003/internal/core/services"
)

// Pipeline stage names reported through the status registry.
const (
	StageDownload         = "download"
	StageFrameSampling    = "frame-sampling"
	StageSignalExtraction = "signal-extraction"
	StageMetadata         = "metadata-compilation"
	StageEmbedding        = "embedding"
	StagePersist          = "persist"
)

// cancelParamName is the context key holding the run's cancel function, set
// by the workflow and consumed by the run registration step.
const cancelParamName = "__RUN_CANCEL__"

// duplicateRunParamName marks a chain execution that lost the registration
// race to an ingestion already in flight for the same item.
const duplicateRunParamName = "__RUN_DUPLICATE__"

// IngestionWorkflow orchestrates the full analysis of one media object. It is
// structured as a Chain of Responsibility that downloads the source, samples
// frames, extracts visual and speech signals in parallel, compiles and embeds
// the metadata document, and writes the finished item through the index
// store. The workflow is typically triggered by a Pub/Sub message for a new
// object in the media bucket.
type IngestionWorkflow struct {
	cor.BaseCommand
	config        *cloud.Config
	storageClient *storage.Client
	toolkit       commands.MediaToolkit
	analyzer      commands.FrameAnalyzer
	transcriber   commands.Transcriber
	embedder      services.Embedder
	clock         commands.Clock
	store         *services.IndexStore
	registry      *services.StatusRegistry
	chain         cor.Chain // The underlying chain of commands to be executed.
}

// Execute runs the ingestion chain under a cancelable context and settles the
// run's status when the chain finishes.
func (w *IngestionWorkflow) Execute(context cor.Context) {
	ctx, cancel := goctx.WithCancel(context.GetContext())
	defer cancel()
	context.SetContext(ctx)
	context.Add(cancelParamName, goctx.CancelFunc(cancel))

	w.chain.Execute(context)

	item, _ := context.Get(commands.GetContentItemParameterName()).(*model.ContentItem)
	if item == nil {
		return
	}
	if dup, _ := context.Get(duplicateRunParamName).(bool); dup {
		// The registered run belongs to another execution; leave its status
		// alone.
		return
	}
	if context.HasErrors() {
		for _, err := range context.GetErrors() {
			w.registry.Fail(item.Id, err.Error())
			break
		}
		return
	}
	w.registry.Complete(item.Id)
}

// Start runs an ingestion for the given object in the background and returns
// the id of the content item it will produce, so callers can poll status
// immediately. The id is minted here unless the object already carries one;
// either way the same id flows through the chain into the finished record. It
// is the entry point for the upload API and for re-indexing an object that
// already sits in the media bucket without a Pub/Sub round trip.
func (w *IngestionWorkflow) Start(ctx goctx.Context, obj *cloud.GCSObject) string {
	itemId := obj.ItemId
	if itemId == "" {
		itemId = uuid.NewString()
	}
	notification := &cloud.GCSPubSubNotification{
		Bucket:      obj.Bucket,
		Name:        obj.Name,
		ContentType: obj.MIMEType,
		MetaData: map[string]interface{}{
			commands.MetadataTitleKey:       obj.Title,
			commands.MetadataDescriptionKey: obj.Description,
			commands.MetadataItemIdKey:      itemId,
		},
	}
	payload, _ := json.Marshal(notification)

	go func() {
		chainCtx := cor.NewBaseContext(ctx)
		defer chainCtx.Close()
		chainCtx.Add(cor.CtxIn, string(payload))
		w.Execute(chainCtx)
	}()
	return itemId
}

// initializeChain builds the sequence of commands that make up the workflow.
func (w *IngestionWorkflow) initializeChain() {
	out := cor.NewBaseChain(w.GetName())

	// Step 1: Parse the incoming Pub/Sub notification into a GCS object
	// reference and reject anything that is not a video.
	out.AddCommand(commands.NewMediaTriggerReader("read-media-trigger"))

	// Step 2: Create the content item the rest of the chain populates, and
	// register the run for status tracking and cancellation.
	out.AddCommand(commands.NewItemBuilder("build-content-item"))
	out.AddCommand(newRunRegistration(w.registry))

	// Step 3: Stage the source object into a local temp file for the media
	// toolkit.
	out.AddCommand(newStageMark(w.registry, StageDownload))
	out.AddCommand(commands.NewGCSToTempFile("gcs-to-temp-file", w.storageClient))

	// Step 4: Sample still frames at the configured interval. An
	// undeterminable duration aborts the run here.
	out.AddCommand(newStageMark(w.registry, StageFrameSampling))
	out.AddCommand(commands.NewFrameSampler("sample-frames", w.toolkit, w.config.Ingestion.FrameIntervalSeconds))

	// Step 5: Extract visual and speech signals concurrently. Vision fans
	// frames out over a worker pool; speech drives the asynchronous
	// transcription job. Both degrade gracefully rather than failing the run.
	out.AddCommand(newStageMark(w.registry, StageSignalExtraction))
	vision := commands.NewVisionAnalyzer(
		"analyze-frames",
		w.analyzer,
		w.config.Ingestion.MaxAnalyzedFrames,
		w.config.Ingestion.MinLabelConfidence,
		w.config.Ingestion.MaxLabelsPerFrame,
		w.config.Ingestion.MaxEmotionsPerFace,
		w.config.Ingestion.VisionWorkerPoolSize)
	speech := commands.NewSpeechTranscriber(
		"transcribe-speech",
		w.toolkit,
		w.transcriber,
		w.clock,
		time.Duration(w.config.Transcription.PollIntervalSeconds)*time.Second,
		time.Duration(w.config.Transcription.TimeoutSeconds)*time.Second)
	out.AddCommand(commands.NewSignalExtraction("extract-signals", vision, speech))

	// Step 6: Compile the metadata document in its fixed section order.
	out.AddCommand(newStageMark(w.registry, StageMetadata))
	out.AddCommand(commands.NewMetadataCompiler("compile-metadata"))

	// Step 7: Embed the document. A failure here is fatal; an item without an
	// embedding can never be found.
	out.AddCommand(newStageMark(w.registry, StageEmbedding))
	out.AddCommand(commands.NewEmbeddingGenerator("generate-embedding", w.embedder))

	// Step 8: Write the finished item through the index store, durable layer
	// first.
	out.AddCommand(newStageMark(w.registry, StagePersist))
	out.AddCommand(commands.NewContentPersist("persist-content", w.store, w.clock))

	w.chain = out
}

// NewIngestionPipeline creates and wires the ingestion workflow.
//
// Inputs:
//   - config: The application's overall configuration.
//   - storageClient: The GCS client used to stage source objects.
//   - toolkit: The local media tooling (ffmpeg/ffprobe or a test fake).
//   - analyzer: The vision collaborator.
//   - transcriber: The asynchronous speech collaborator.
//   - embedder: The shared document/query embedding model.
//   - clock: The clock driving the transcription poll loop and timestamps.
//   - store: The write-through content index.
//   - registry: The status registry runs report into.
func NewIngestionPipeline(
	config *cloud.Config,
	storageClient *storage.Client,
	toolkit commands.MediaToolkit,
	analyzer commands.FrameAnalyzer,
	transcriber commands.Transcriber,
	embedder services.Embedder,
	clock commands.Clock,
	store *services.IndexStore,
	registry *services.StatusRegistry) *IngestionWorkflow {
	pipeline := &IngestionWorkflow{
		BaseCommand:   *cor.NewBaseCommand("media-ingestion-pipeline"),
		config:        config,
		storageClient: storageClient,
		toolkit:       toolkit,
		analyzer:      analyzer,
		transcriber:   transcriber,
		embedder:      embedder,
		clock:         clock,
		store:         store,
		registry:      registry,
	}
	pipeline.initializeChain()
	return pipeline
}
