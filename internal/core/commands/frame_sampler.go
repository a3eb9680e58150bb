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

// Package commands provides the concrete implementations of the Chain of
// Responsibility (COR) pattern's Command interface. This file defines the
// frame sampling step of the ingestion pipeline: stills are lifted from the
// source video at a fixed interval for downstream vision analysis.
//
// Sampling rules:
//   - Frames are taken at offsets 0, I, 2I, ... strictly less than the
//     duration, where I is the configured interval.
//   - A video no longer than one interval yields exactly one frame, at 0.
//   - A duration that cannot be determined aborts the whole ingestion; with
//     no duration there is no sampling plan at all.
//   - A single frame that fails to extract is skipped and logged. Vision
//     signals degrade; the item still gets indexed.
package commands

import (
	"log/slog"

	"github.com/tarunaws/psl-media-sub003/internal/core/cor"
	"github.com/tarunaws/psl-media-sub003/internal/core/model"
)

// FrameSampler extracts still frames from a local video file.
type FrameSampler struct {
	cor.BaseCommand
	toolkit         MediaToolkit // The local media tooling.
	intervalSeconds float64      // Sampling interval between frames.
}

// NewFrameSampler creates the sampling command.
//
// Inputs:
//   - name: A string name for this command instance.
//   - toolkit: The media toolkit used to probe and decode the video.
//   - intervalSeconds: The sampling interval. Non-positive values fall back
//     to a 10 second default.
func NewFrameSampler(name string, toolkit MediaToolkit, intervalSeconds float64) *FrameSampler {
	if intervalSeconds <= 0 {
		intervalSeconds = 10
	}
	cmd := &FrameSampler{
		BaseCommand:     *cor.NewBaseCommand(name),
		toolkit:         toolkit,
		intervalSeconds: intervalSeconds,
	}
	cmd.InputParam = GetLocalVideoParameterName()
	cmd.OutputParam = GetFrameSamplesParameterName()
	return cmd
}

// Execute probes the video duration, derives the sampling offsets, and
// extracts one frame per offset.
func (c *FrameSampler) Execute(context cor.Context) {
	videoPath := context.Get(c.GetInputParam()).(string)
	ctx := context.GetContext()

	duration, err := c.toolkit.Duration(ctx, videoPath)
	if err != nil {
		context.AddError(c.GetName(), model.NewFatalIngestionError("frame-sampling", err))
		return
	}

	offsets := SamplingOffsets(duration, c.intervalSeconds)

	samples := make([]*model.FrameSample, 0, len(offsets))
	for _, offset := range offsets {
		if ctx.Err() != nil {
			context.AddError(c.GetName(), ctx.Err())
			return
		}
		image, err := c.toolkit.ExtractFrame(ctx, videoPath, offset)
		if err != nil {
			slog.Warn("skipping unextractable frame", "video", videoPath, "offset", offset, "error", err)
			continue
		}
		samples = append(samples, &model.FrameSample{TimestampSeconds: offset, Image: image})
	}

	slog.Info("frame sampling complete", "video", videoPath,
		"duration", duration, "planned", len(offsets), "extracted", len(samples))

	context.Add(c.GetOutputParam(), samples)
	context.Add(cor.CtxOut, samples)
}

// SamplingOffsets returns the frame offsets for a video of the given
// duration: multiples of the interval strictly below the duration, and always
// at least the single offset zero. A video no longer than one interval is
// represented by its opening frame alone.
func SamplingOffsets(durationSeconds float64, intervalSeconds float64) []float64 {
	if durationSeconds <= intervalSeconds {
		return []float64{0}
	}
	offsets := make([]float64, 0, int(durationSeconds/intervalSeconds)+1)
	for t := 0.0; t < durationSeconds; t += intervalSeconds {
		offsets = append(offsets, t)
	}
	return offsets
}
