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

package main

import (
	"context"
	"log"
	"os"

	"github.com/tarunaws/psl-media-sub003/internal/cloud"
	"github.com/tarunaws/psl-media-sub003/internal/core/commands"
	"github.com/tarunaws/psl-media-sub003/internal/core/services"
	"github.com/tarunaws/psl-media-sub003/internal/core/workflow"
)

// Logical names of the configured collaborators, matching the keys in the
// TOML configuration files.
const (
	embeddingModelKey = "multi-lingual"
	visionModelKey    = "creative-flash"
	transcriberKey    = "transcriber"
	uploadListenerKey = "MediaUploads"
)

// StateManager holds the shared state of the running server: configuration,
// cloud clients, and the services the API handlers delegate to.
type StateManager struct {
	config         *cloud.Config
	cloud          *cloud.ServiceClients
	store          *services.IndexStore
	searchService  *services.SearchService
	mediaService   *services.MediaService
	statusRegistry *services.StatusRegistry
	ingestion      *workflow.IngestionWorkflow
}

var state = &StateManager{}

func SetupOS() (err error) {
	err = os.Setenv(cloud.EnvConfigFilePrefix, "configs")
	if err != nil {
		return err
	}
	err = os.Setenv(cloud.EnvConfigRuntime, "local")
	return err
}

func GetConfig() *cloud.Config {
	if state.config == nil {
		err := SetupOS()
		if err != nil {
			log.Fatalf("failed to setup os environment: %v\n", err)
		}
		// Create a default cloud config
		config := cloud.NewConfig()
		// Load it from the TOML files
		cloud.LoadConfig(&config)
		state.config = config
	}
	return state.config
}

// InitState wires the full object graph: cloud clients, the write-through
// index store (with its in-memory mirror warmed from BigQuery), the search
// and media services, and the ingestion pipeline attached to the upload
// notification subscription.
func InitState(ctx context.Context) {
	// Get the config file
	config := GetConfig()

	cloudClients, err := cloud.NewCloudServiceClients(ctx, config)
	if err != nil {
		panic(err)
	}
	state.cloud = cloudClients

	embedder, ok := cloudClients.EmbeddingModels[embeddingModelKey]
	if !ok {
		log.Fatalf("no embedding model configured under %q\n", embeddingModelKey)
	}

	durable := services.NewBigQueryDurableIndex(
		cloudClients.BigQueryClient,
		config.BigQueryDataSource.DatasetName,
		config.BigQueryDataSource.ContentTable)
	store := services.NewIndexStore(durable, embedder.Dimension)

	// Rebuild the in-memory mirror before serving any traffic so reads and
	// searches see everything already indexed.
	if err := store.LoadMirror(ctx); err != nil {
		panic(err)
	}
	state.store = store

	state.searchService = services.NewSearchService(store, embedder)

	state.mediaService = &services.MediaService{
		Store:         store,
		StorageClient: cloudClients.StorageClient,
		IAMClient:     cloudClients.IAMClient,
		SignerEmail:   config.Application.SignerServiceAccountEmail,
	}

	state.statusRegistry = services.NewStatusRegistry()

	transcriberModel, ok := cloudClients.VisionModels[transcriberKey]
	if !ok {
		log.Fatalf("no transcription model configured under %q\n", transcriberKey)
	}
	visionModel, ok := cloudClients.VisionModels[visionModelKey]
	if !ok {
		log.Fatalf("no vision model configured under %q\n", visionModelKey)
	}

	state.ingestion = workflow.NewIngestionPipeline(
		config,
		cloudClients.StorageClient,
		commands.NewFFmpegToolkit(),
		cloud.NewGeminiVisionAnalyzer(visionModel),
		cloud.NewGeminiTranscriber(transcriberModel, cloudClients.StorageClient, config.Storage.MediaBucket),
		embedder,
		commands.NewSystemClock(),
		store,
		state.statusRegistry)

	SetupListeners(config, cloudClients, ctx)
}

// SetupListeners attaches the ingestion pipeline to the upload notification
// subscription and starts receiving.
func SetupListeners(_ *cloud.Config, cloudClients *cloud.ServiceClients, ctx context.Context) {
	listener, ok := cloudClients.PubSubListeners[uploadListenerKey]
	if !ok {
		log.Fatalf("no subscription configured under %q\n", uploadListenerKey)
	}
	listener.SetCommand(state.ingestion)
	listener.Listen(ctx)
}
