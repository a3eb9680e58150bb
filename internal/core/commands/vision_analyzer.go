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
// vision analysis step: sampled frames are analyzed concurrently by a worker
// pool, the raw observations are filtered and ranked per frame, and the
// surviving signals are aggregated across frames onto the content item.
//
// Aggregation is order sensitive. Results come back from the pool in
// completion order, so they are re-sorted into frame order before folding;
// a value is attributed to the first frame that saw it regardless of worker
// scheduling. A frame whose analysis fails degrades that frame only: its
// error is logged and the remaining frames still contribute.
package commands

import (
	"context"
	"log/slog"
	"sort"
	"sync"

	"github.com/tarunaws/psl-media-sub003/internal/core/cor"
	"github.com/tarunaws/psl-media-sub003/internal/core/model"
)

// FrameAnalyzer is the vision collaborator: one call analyzes one frame and
// reports every detection with its confidence.
type FrameAnalyzer interface {
	AnalyzeFrame(ctx context.Context, image []byte) (*model.FrameObservations, error)
}

// VisionAnalyzer runs frame analysis over a worker pool and aggregates the
// filtered signals onto the content item being assembled.
type VisionAnalyzer struct {
	cor.BaseCommand
	analyzer           FrameAnalyzer // The vision model collaborator.
	maxFrames          int           // Upper bound on frames analyzed per video.
	minConfidence      float64       // Labels below this confidence are discarded.
	maxLabelsPerFrame  int           // Per-frame label cap, ranked by confidence.
	maxEmotionsPerFace int           // Per-face emotion cap, ranked by confidence.
	numberOfWorkers    int           // The number of concurrent workers to spawn.
}

// NewVisionAnalyzer creates the analysis command. Non-positive tunables fall
// back to the service defaults.
func NewVisionAnalyzer(
	name string,
	analyzer FrameAnalyzer,
	maxFrames int,
	minConfidence float64,
	maxLabelsPerFrame int,
	maxEmotionsPerFace int,
	numberOfWorkers int) *VisionAnalyzer {
	if maxFrames <= 0 {
		maxFrames = 30
	}
	if maxLabelsPerFrame <= 0 {
		maxLabelsPerFrame = 20
	}
	if maxEmotionsPerFace <= 0 {
		maxEmotionsPerFace = 3
	}
	if numberOfWorkers <= 0 {
		numberOfWorkers = 4
	}
	cmd := &VisionAnalyzer{
		BaseCommand:        *cor.NewBaseCommand(name),
		analyzer:           analyzer,
		maxFrames:          maxFrames,
		minConfidence:      minConfidence,
		maxLabelsPerFrame:  maxLabelsPerFrame,
		maxEmotionsPerFace: maxEmotionsPerFace,
		numberOfWorkers:    numberOfWorkers,
	}
	cmd.InputParam = GetFrameSamplesParameterName()
	cmd.OutputParam = GetFrameResultsParameterName()
	return cmd
}

// IsExecutable requires the sampled frames and the item under assembly.
func (c *VisionAnalyzer) IsExecutable(context cor.Context) bool {
	return context != nil &&
		context.Get(c.GetInputParam()) != nil &&
		context.Get(GetContentItemParameterName()) != nil
}

// frameJob carries one frame into the pool.
type frameJob struct {
	index  int
	sample *model.FrameSample
}

// Execute fans the frames out to the pool, re-sorts the results into frame
// order, and folds them onto the content item.
func (c *VisionAnalyzer) Execute(context cor.Context) {
	samples := context.Get(c.GetInputParam()).([]*model.FrameSample)
	item := context.Get(GetContentItemParameterName()).(*model.ContentItem)
	ctx := context.GetContext()

	if len(samples) > c.maxFrames {
		samples = samples[:c.maxFrames]
	}

	jobs := make(chan *frameJob, len(samples))
	results := make(chan *model.FrameResult, len(samples))

	var wg sync.WaitGroup
	for w := 0; w < c.numberOfWorkers; w++ {
		wg.Add(1)
		go c.frameWorker(ctx, jobs, results, &wg)
	}

	for i, sample := range samples {
		jobs <- &frameJob{index: i, sample: sample}
	}
	close(jobs)
	wg.Wait()
	close(results)

	frameResults := make([]*model.FrameResult, 0, len(samples))
	for r := range results {
		frameResults = append(frameResults, r)
	}
	// Workers finish out of order; restore sampling order before folding so
	// first-seen attribution is deterministic.
	sort.Slice(frameResults, func(i, j int) bool {
		return frameResults[i].Index < frameResults[j].Index
	})

	labels := model.NewOrderedSet()
	onScreenText := model.NewOrderedSet()
	emotions := model.NewOrderedSet()
	failed := 0
	for _, r := range frameResults {
		if r.Err != nil {
			failed++
			slog.Warn("frame analysis failed", "item", item.Id, "frame", r.Index, "error", r.Err)
			continue
		}
		labels.AddAll(r.Signals.Labels)
		onScreenText.AddAll(r.Signals.OnScreenText)
		emotions.AddAll(r.Signals.Emotions)
	}

	item.Labels = labels.Values(model.MaxLabels)
	item.OnScreenText = onScreenText.Values(model.MaxOnScreenText)
	item.Emotions = emotions.Values(0)

	slog.Info("vision analysis complete", "item", item.Id, "frames", len(samples),
		"failed", failed, "labels", len(item.Labels), "on_screen_text", len(item.OnScreenText),
		"emotions", len(item.Emotions))

	context.Add(c.GetOutputParam(), frameResults)
	context.Add(cor.CtxOut, frameResults)
}

// frameWorker analyzes frames from the jobs channel until it is closed.
func (c *VisionAnalyzer) frameWorker(ctx context.Context, jobs <-chan *frameJob, results chan<- *model.FrameResult, wg *sync.WaitGroup) {
	defer wg.Done()
	for j := range jobs {
		if ctx.Err() != nil {
			results <- &model.FrameResult{Index: j.index, Err: ctx.Err()}
			continue
		}
		observations, err := c.analyzer.AnalyzeFrame(ctx, j.sample.Image)
		if err != nil {
			results <- &model.FrameResult{Index: j.index,
				Err: &model.RecoverableSignalError{Signal: "vision", Err: err}}
			continue
		}
		results <- &model.FrameResult{Index: j.index, Signals: c.filter(observations)}
	}
}

// filter reduces raw observations to the per-frame signal set: labels at or
// above the confidence threshold ranked best first and capped, the strongest
// emotions of each face, and on-screen text passed through untouched.
func (c *VisionAnalyzer) filter(obs *model.FrameObservations) *model.FrameSignals {
	signals := &model.FrameSignals{
		Labels:       make([]string, 0, len(obs.Labels)),
		OnScreenText: append([]string(nil), obs.OnScreenText...),
		Emotions:     make([]string, 0),
	}

	kept := make([]model.ScoredDetection, 0, len(obs.Labels))
	for _, label := range obs.Labels {
		if label.Confidence >= c.minConfidence {
			kept = append(kept, label)
		}
	}
	sort.SliceStable(kept, func(i, j int) bool { return kept[i].Confidence > kept[j].Confidence })
	if len(kept) > c.maxLabelsPerFrame {
		kept = kept[:c.maxLabelsPerFrame]
	}
	for _, label := range kept {
		signals.Labels = append(signals.Labels, label.Value)
	}

	for _, face := range obs.Faces {
		ranked := append([]model.ScoredDetection(nil), face.Emotions...)
		sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].Confidence > ranked[j].Confidence })
		if len(ranked) > c.maxEmotionsPerFace {
			ranked = ranked[:c.maxEmotionsPerFace]
		}
		for _, emotion := range ranked {
			signals.Emotions = append(signals.Emotions, emotion.Value)
		}
	}
	return signals
}
