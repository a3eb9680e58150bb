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

// Package cloud defines the data structures for application configuration,
// loaded from TOML files. It provides a structured way to manage settings
// for various components, including Google Cloud services, AI models,
// Pub/Sub topics, and the tunable parameters of the ingestion pipeline.
//
// Structs:
//   - BigQueryDataSource: Configuration for the BigQuery dataset and content table.
//   - Ingestion: Tunable parameters of the frame sampling and vision analysis stages.
//   - Transcription: Polling cadence and deadline for asynchronous speech transcription.
//   - Search: Result-count and relevance-floor defaults for the query surface.
//   - VertexAiEmbeddingModel: Configuration for a Vertex AI embedding model.
//   - VertexAiVisionModel: Configuration for the multimodal frame-analysis model.
//   - TopicSubscription: Configuration for a single Pub/Sub topic subscription.
//   - Storage: Configuration for Google Cloud Storage buckets.
//   - Config: The top-level struct that aggregates all other configuration structs.
//
// Functions:
//   - NewConfig: A constructor that initializes a new Config object with empty maps.
package cloud

import "google.golang.org/genai"

// DefaultSafetySettings defines the default content safety thresholds for GenAI
// models. These settings are non-restrictive because the media being analyzed
// is trusted, operator-supplied input.
var DefaultSafetySettings = []*genai.SafetySetting{
	{
		Category:  genai.HarmCategoryDangerousContent,
		Threshold: genai.HarmBlockThresholdBlockNone,
	},
	{
		Category:  genai.HarmCategoryHarassment,
		Threshold: genai.HarmBlockThresholdBlockNone,
	},
	{
		Category:  genai.HarmCategoryHateSpeech,
		Threshold: genai.HarmBlockThresholdBlockNone,
	},
	{
		Category:  genai.HarmCategorySexuallyExplicit,
		Threshold: genai.HarmBlockThresholdBlockNone,
	},
}

// BigQueryDataSource represents the configuration for the durable index.
type BigQueryDataSource struct {
	DatasetName  string `toml:"dataset"`       // The name of the BigQuery dataset.
	ContentTable string `toml:"content_table"` // The table holding indexed content records.
}

// Ingestion holds the tunable parameters of the media analysis pipeline.
type Ingestion struct {
	FrameIntervalSeconds float64 `toml:"frame_interval_seconds"`  // Sampling interval between extracted frames.
	MaxAnalyzedFrames    int     `toml:"max_analyzed_frames"`     // Upper bound on frames sent for vision analysis.
	MinLabelConfidence   float64 `toml:"min_label_confidence"`    // Labels below this confidence are discarded.
	MaxLabelsPerFrame    int     `toml:"max_labels_per_frame"`    // Per-frame label cap, ranked by confidence.
	MaxEmotionsPerFace   int     `toml:"max_emotions_per_face"`   // Per-face emotion cap, ranked by confidence.
	VisionWorkerPoolSize int     `toml:"vision_worker_pool_size"` // Number of concurrent frame-analysis workers.
}

// Transcription holds the lifecycle parameters for asynchronous speech jobs.
type Transcription struct {
	PollIntervalSeconds int `toml:"poll_interval_seconds"` // Delay between status polls of a submitted job.
	TimeoutSeconds      int `toml:"timeout_seconds"`       // Total time allowed before the job is abandoned.
}

// Search holds the defaults applied to semantic search requests.
type Search struct {
	DefaultResultCount int     `toml:"default_result_count"` // Results returned when the caller does not specify a count.
	ScoreFloor         float64 `toml:"score_floor"`          // Minimum cosine score for a result to be surfaced by the API.
}

// VertexAiEmbeddingModel represents the configuration for a Vertex AI embedding model.
type VertexAiEmbeddingModel struct {
	Model                string `toml:"model"`                   // The name of the Vertex AI embedding model.
	Dimension            int    `toml:"dimension"`               // The fixed output vector length.
	MaxRequestsPerMinute int    `toml:"max_requests_per_minute"` // The maximum number of requests allowed per minute.
}

// VertexAiVisionModel represents the configuration for the multimodal model
// used for per-frame signal extraction and for speech transcription.
type VertexAiVisionModel struct {
	Model              string  `toml:"model"`               // The name of the Vertex AI model.
	SystemInstructions string  `toml:"system_instructions"` // The system instructions for the model.
	Temperature        float32 `toml:"temperature"`         // The temperature parameter.
	TopP               float32 `toml:"top_p"`               // The top_p parameter.
	TopK               float32 `toml:"top_k"`               // The top_k parameter.
	MaxTokens          int32   `toml:"max_tokens"`          // The maximum number of output tokens.
	OutputFormat       string  `toml:"output_format"`       // The desired response MIME type.
	RateLimit          int     `toml:"rate_limit"`          // The rate limit in requests per second.
}

// TopicSubscription represents the configuration for a Pub/Sub topic subscription.
type TopicSubscription struct {
	Name             string `toml:"name"`               // The name of the Pub/Sub subscription.
	DeadLetterTopic  string `toml:"dead_letter_topic"`  // The name of the dead-letter topic for the subscription.
	TimeoutInSeconds int    `toml:"timeout_in_seconds"` // The timeout for the subscription in seconds.
}

// Storage represents the configuration for storage buckets.
type Storage struct {
	MediaBucket       string `toml:"media_bucket"`         // The bucket holding uploaded source media.
	GCSFuseMountPoint string `toml:"gcs_fuse_mount_point"` // The mount point for GCS FUSE, when available.
}

// Config represents the overall configuration for the application, loaded from
// TOML files. It acts as the root container for all other configuration structs.
type Config struct {
	// Application holds general application settings.
	Application struct {
		Name                      string `toml:"name"`                         // The name of the application.
		GoogleProjectId           string `toml:"google_project_id"`            // The Google Cloud project ID.
		GoogleLocation            string `toml:"location"`                     // The Google Cloud location.
		SignerServiceAccountEmail string `toml:"signer_service_account_email"` // The service account email used for signing GCS URLs.
	} `toml:"application"`
	Ingestion          Ingestion                         `toml:"ingestion"`             // Pipeline tunables.
	Transcription      Transcription                     `toml:"transcription"`         // Speech job lifecycle settings.
	Search             Search                            `toml:"search"`                // Query surface defaults.
	Storage            Storage                           `toml:"storage"`               // Storage configuration.
	BigQueryDataSource BigQueryDataSource                `toml:"big_query_data_source"` // BigQuery data source configuration.
	TopicSubscriptions map[string]TopicSubscription      `toml:"topic_subscriptions"`   // Pub/Sub topic subscriptions, keyed by a logical name.
	EmbeddingModels    map[string]VertexAiEmbeddingModel `toml:"embedding_models"`      // Vertex AI embedding models, keyed by a logical name.
	VisionModels       map[string]VertexAiVisionModel    `toml:"vision_models"`         // Vertex AI multimodal models, keyed by a logical name.
}

// NewConfig creates a new, initialized Config instance. The maps must be
// initialized before the configuration loader populates them.
func NewConfig() *Config {
	return &Config{
		TopicSubscriptions: make(map[string]TopicSubscription),
		EmbeddingModels:    make(map[string]VertexAiEmbeddingModel),
		VisionModels:       make(map[string]VertexAiVisionModel),
	}
}
