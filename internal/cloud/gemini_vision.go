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
// This file implements the frame analysis provider on top of a Gemini
// multimodal model. Each call sends one still frame with a JSON-output prompt
// and parses the response into raw scored observations. Filtering and ranking
// of those observations belong to the pipeline, not to this provider.
package cloud

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/tarunaws/psl-media-sub003/internal/core/model"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"google.golang.org/genai"
)

// frameAnalysisPrompt instructs the model to report every detection it can
// make on the frame, with confidences, as a single JSON document.
const frameAnalysisPrompt = `Analyze the attached video frame and respond with a single JSON object, no markdown, with this exact shape:
{
  "labels": [{"value": "<object or scene label>", "confidence": <0.0-1.0>}],
  "on_screen_text": ["<each piece of visible text, exactly as written>"],
  "faces": [{"emotions": [{"value": "<emotion>", "confidence": <0.0-1.0>}]}]
}
Report every label you can detect with its confidence. Report one faces entry per visible human face, listing the emotions that face displays ranked by confidence. Use empty arrays when nothing is detected.`

// GeminiVisionAnalyzer sends individual frames to a rate-limited Gemini model
// and returns the raw observations the model reports.
type GeminiVisionAnalyzer struct {
	model              *QuotaAwareGenerativeAIModel
	inputTokenCounter  metric.Int64Counter
	outputTokenCounter metric.Int64Counter
	retryCounter       metric.Int64Counter
}

// NewGeminiVisionAnalyzer creates the analyzer around a configured model.
func NewGeminiVisionAnalyzer(model *QuotaAwareGenerativeAIModel) *GeminiVisionAnalyzer {
	meter := otel.Meter("gemini-vision-analyzer")
	inputTokens, _ := meter.Int64Counter("gemini.vision.input_tokens")
	outputTokens, _ := meter.Int64Counter("gemini.vision.output_tokens")
	retries, _ := meter.Int64Counter("gemini.vision.retries")
	return &GeminiVisionAnalyzer{
		model:              model,
		inputTokenCounter:  inputTokens,
		outputTokenCounter: outputTokens,
		retryCounter:       retries,
	}
}

// AnalyzeFrame submits one encoded frame and parses the model's JSON response.
// Errors here are per-frame: the caller decides whether to degrade or abort.
func (g *GeminiVisionAnalyzer) AnalyzeFrame(ctx context.Context, image []byte) (*model.FrameObservations, error) {
	content := []*genai.Content{{
		Parts: []*genai.Part{
			{Text: frameAnalysisPrompt},
			NewInlineImage(image, "image/jpeg"),
		},
	}}

	raw, err := GenerateMultiModalResponse(ctx, g.inputTokenCounter, g.outputTokenCounter, g.retryCounter, 0, g.model, content)
	if err != nil {
		return nil, fmt.Errorf("frame analysis request failed: %w", err)
	}

	out := &model.FrameObservations{}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return nil, fmt.Errorf("frame analysis returned unparseable output: %w", err)
	}
	return out, nil
}
