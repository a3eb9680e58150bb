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

// Package cloud provides components for interacting with Google Cloud services.
// This file implements decorators around the Generative AI client that add
// rate limiting and retries. Vertex AI enforces per-minute quotas; these
// wrappers keep the pipeline's burst of per-frame calls inside them.
//
// Structs:
//   - QuotaAwareGenerativeAIModel: Wraps a generation model with a rate limiter.
//   - QuotaAwareEmbeddingModel: Wraps an embedding model with a rate limiter.
//
// Functions:
//   - NewQuotaAwareModel: Constructor for the generation wrapper.
//   - NewQuotaAwareEmbedder: Constructor for the embedding wrapper.
package cloud

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/time/rate"
	"google.golang.org/genai"
)

// QuotaAwareGenerativeAIModel is a decorator that pairs a model name and its
// generation config with a rate limiter. Calls block until the limiter admits
// them, and transient failures are retried with a backoff wait.
type QuotaAwareGenerativeAIModel struct {
	GenerativeContentConfig *genai.GenerateContentConfig // The generation settings applied to every call.
	ModelName               string                       // The Vertex AI model identifier.
	ModelHandle             *genai.Models                // The underlying model invocation handle.
	RateLimit               *rate.Limiter                // Controls request admission frequency.
}

// NewQuotaAwareModel creates a rate-limited generation model.
//
// Inputs:
//   - wrapped: The generation config to apply on every call.
//   - name: The Vertex AI model identifier.
//   - modelHandle: The genai invocation handle.
//   - requestsPerSecond: The maximum number of API calls allowed per second.
//
// Outputs:
//   - *QuotaAwareGenerativeAIModel: A pointer to the newly created wrapper.
func NewQuotaAwareModel(wrapped *genai.GenerateContentConfig, name string, modelHandle *genai.Models, requestsPerSecond int) *QuotaAwareGenerativeAIModel {
	if requestsPerSecond <= 0 {
		requestsPerSecond = 1
	}
	return &QuotaAwareGenerativeAIModel{
		GenerativeContentConfig: wrapped,
		ModelName:               name,
		ModelHandle:             modelHandle,
		RateLimit:               rate.NewLimiter(rate.Every(time.Second), requestsPerSecond),
	}
}

// GenerateContent waits for the rate limiter, invokes the model, and retries
// once after a short pause on failure. The limiter wait respects ctx, so a
// canceled ingestion never sits in the admission queue.
func (q *QuotaAwareGenerativeAIModel) GenerateContent(ctx context.Context, content []*genai.Content) (resp *genai.GenerateContentResponse, err error) {
	if err := q.RateLimit.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait aborted: %w", err)
	}
	resp, err = q.ModelHandle.GenerateContent(ctx, q.ModelName, content, q.GenerativeContentConfig)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		// One immediate in-place retry before surfacing the error to the
		// caller's retry loop in GenerateMultiModalResponse.
		time.Sleep(time.Second * 5)
		return q.ModelHandle.GenerateContent(ctx, q.ModelName, content, q.GenerativeContentConfig)
	}
	return resp, nil
}

// QuotaAwareEmbeddingModel is the embedding counterpart: a model name and
// output dimension behind a per-minute rate limiter.
type QuotaAwareEmbeddingModel struct {
	ModelName   string        // The Vertex AI embedding model identifier.
	Dimension   int           // The fixed output vector length.
	ModelHandle *genai.Models // The underlying model invocation handle.
	RateLimit   *rate.Limiter // Controls request admission frequency.
}

// NewQuotaAwareEmbedder creates a rate-limited embedding model.
func NewQuotaAwareEmbedder(name string, dimension int, modelHandle *genai.Models, requestsPerMinute int) *QuotaAwareEmbeddingModel {
	if requestsPerMinute <= 0 {
		requestsPerMinute = 60
	}
	return &QuotaAwareEmbeddingModel{
		ModelName:   name,
		Dimension:   dimension,
		ModelHandle: modelHandle,
		RateLimit:   rate.NewLimiter(rate.Every(time.Minute/time.Duration(requestsPerMinute)), requestsPerMinute),
	}
}

// Embed generates the embedding vector for a single text. The returned slice
// always has length Dimension on success.
func (q *QuotaAwareEmbeddingModel) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := q.RateLimit.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait aborted: %w", err)
	}
	dim := int32(q.Dimension)
	resp, err := q.ModelHandle.EmbedContent(ctx, q.ModelName, genai.Text(text), &genai.EmbedContentConfig{
		OutputDimensionality: &dim,
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Embeddings) == 0 || len(resp.Embeddings[0].Values) == 0 {
		return nil, errors.New("embedding response contained no vector")
	}
	vector := resp.Embeddings[0].Values
	if len(vector) != q.Dimension {
		return nil, fmt.Errorf("embedding dimension mismatch: got %d, want %d", len(vector), q.Dimension)
	}
	return vector, nil
}
