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
// speech transcription step, which drives an asynchronous transcription job
// through its lifecycle:
//
//	NotStarted -> AudioExtracted -> Submitted -> Completed | Failed | TimedOut
//
// The command polls the submitted job on a fixed interval until it finishes
// or the deadline passes. Every terminal path, including cancellation of the
// surrounding ingestion, runs provider cleanup so no staged audio or remote
// job state outlives the run. Transcription is fail-open: a failed or timed
// out job leaves the item with an empty transcript and the pipeline moves on.
// Only cancellation aborts the run, since then nothing downstream should
// execute either.
package commands

import (
	"context"
	"log/slog"
	"time"

	"github.com/tarunaws/psl-media-sub003/internal/core/cor"
	"github.com/tarunaws/psl-media-sub003/internal/core/model"
)

// Transcriber is the asynchronous speech-to-text collaborator.
type Transcriber interface {
	// Submit starts a transcription for the local audio file and returns the
	// job id used for polling.
	Submit(ctx context.Context, audioPath string) (string, error)

	// Poll reports whether the job finished and, once done, its transcript or
	// failure.
	Poll(ctx context.Context, jobId string) (done bool, transcript string, err error)

	// Cleanup releases everything associated with the job, in whatever state
	// it is in.
	Cleanup(ctx context.Context, jobId string) error
}

// SpeechTranscriber extracts the audio track and runs it through the
// asynchronous transcription lifecycle.
type SpeechTranscriber struct {
	cor.BaseCommand
	toolkit      MediaToolkit  // Extracts the audio track from the video.
	transcriber  Transcriber   // The asynchronous transcription collaborator.
	clock        Clock         // Injected so tests can drive the poll loop.
	pollInterval time.Duration // Delay between status polls.
	timeout      time.Duration // Total time allowed after submission.
}

// NewSpeechTranscriber creates the transcription command. Non-positive
// intervals fall back to the service defaults of 5s polling and a 300s
// deadline.
func NewSpeechTranscriber(
	name string,
	toolkit MediaToolkit,
	transcriber Transcriber,
	clock Clock,
	pollInterval time.Duration,
	timeout time.Duration) *SpeechTranscriber {
	if pollInterval <= 0 {
		pollInterval = 5 * time.Second
	}
	if timeout <= 0 {
		timeout = 300 * time.Second
	}
	cmd := &SpeechTranscriber{
		BaseCommand:  *cor.NewBaseCommand(name),
		toolkit:      toolkit,
		transcriber:  transcriber,
		clock:        clock,
		pollInterval: pollInterval,
		timeout:      timeout,
	}
	cmd.InputParam = GetLocalVideoParameterName()
	return cmd
}

// IsExecutable requires the local video and the item under assembly.
func (c *SpeechTranscriber) IsExecutable(context cor.Context) bool {
	return context != nil &&
		context.Get(c.GetInputParam()) != nil &&
		context.Get(GetContentItemParameterName()) != nil
}

// Execute runs the full lifecycle and writes the resulting transcript, which
// may be empty, onto the content item.
func (c *SpeechTranscriber) Execute(context cor.Context) {
	videoPath := context.Get(c.GetInputParam()).(string)
	item := context.Get(GetContentItemParameterName()).(*model.ContentItem)
	ctx := context.GetContext()

	job := &model.TranscriptionJob{Status: model.StatusNotStarted}
	item.Transcript = ""

	audioPath, err := c.toolkit.ExtractAudio(ctx, videoPath)
	if err != nil {
		sigErr := &model.RecoverableSignalError{Signal: "transcription", Err: err}
		job.Status = model.StatusFailed
		job.FailureReason = sigErr.Error()
		slog.Warn("audio extraction failed, continuing without transcript", "item", item.Id, "error", sigErr)
		context.Add(cor.CtxOut, job)
		return
	}
	context.AddTempFile(audioPath)
	job.Status = model.StatusAudioExtracted

	jobId, err := c.transcriber.Submit(ctx, audioPath)
	if err != nil {
		sigErr := &model.RecoverableSignalError{Signal: "transcription", Err: err}
		job.Status = model.StatusFailed
		job.FailureReason = sigErr.Error()
		slog.Warn("transcription submit failed, continuing without transcript", "item", item.Id, "error", sigErr)
		context.Add(cor.CtxOut, job)
		return
	}
	job.JobId = jobId
	job.SubmittedAt = c.clock.Now()
	job.Status = model.StatusSubmitted
	deadline := job.SubmittedAt.Add(c.timeout)

	for {
		select {
		case <-ctx.Done():
			// Cancellation aborts the run, but provider state is still torn
			// down before handing the error back.
			c.cleanup(ctx, item.Id, jobId)
			job.Status = model.StatusFailed
			job.FailureReason = ctx.Err().Error()
			context.Add(cor.CtxOut, job)
			context.AddError(c.GetName(), ctx.Err())
			return
		case <-c.clock.After(c.pollInterval):
		}

		if c.clock.Now().After(deadline) {
			c.cleanup(ctx, item.Id, jobId)
			job.Status = model.StatusTimedOut
			job.FailureReason = "transcription deadline exceeded"
			slog.Warn("transcription timed out, continuing without transcript",
				"item", item.Id, "job", jobId, "timeout", c.timeout)
			context.Add(cor.CtxOut, job)
			return
		}

		done, transcript, err := c.transcriber.Poll(ctx, jobId)
		if err != nil {
			c.cleanup(ctx, item.Id, jobId)
			sigErr := &model.RecoverableSignalError{Signal: "transcription", Err: err}
			job.Status = model.StatusFailed
			job.FailureReason = sigErr.Error()
			slog.Warn("transcription failed, continuing without transcript",
				"item", item.Id, "job", jobId, "error", sigErr)
			context.Add(cor.CtxOut, job)
			return
		}
		if done {
			c.cleanup(ctx, item.Id, jobId)
			job.Status = model.StatusCompleted
			job.Transcript = transcript
			item.Transcript = transcript
			slog.Info("transcription complete", "item", item.Id, "job", jobId, "chars", len(transcript))
			context.Add(cor.CtxOut, job)
			return
		}
	}
}

// cleanup tears down provider-side job state. It runs on a context that
// survives cancellation of the ingestion itself.
func (c *SpeechTranscriber) cleanup(ctx context.Context, itemId string, jobId string) {
	if err := c.transcriber.Cleanup(context.WithoutCancel(ctx), jobId); err != nil {
		slog.Warn("transcription cleanup failed", "item", itemId, "job", jobId, "error", err)
	}
}
