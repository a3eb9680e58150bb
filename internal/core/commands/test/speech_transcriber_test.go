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
// file tests the speech transcription lifecycle. The fake clock drives the
// poll loop, so the tests cover completion, failure, timeout, and
// cancellation without any wall-clock waits, and verify that provider
// cleanup runs on every terminal path.
package commands_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/tarunaws/psl-media-sub003/internal/core/commands"
	"github.com/tarunaws/psl-media-sub003/internal/core/cor"
	"github.com/tarunaws/psl-media-sub003/internal/core/model"
	test "github.com/tarunaws/psl-media-sub003/internal/testutil"
)

const (
	testPollInterval = 5 * time.Second
	testTimeout      = 300 * time.Second
)

// transcriberFixture bundles the collaborators of one test run.
type transcriberFixture struct {
	clock       *test.FakeClock
	toolkit     *test.FakeToolkit
	transcriber *test.FakeTranscriber
	item        *model.ContentItem
	chainCtx    *cor.BaseContext
	command     *commands.SpeechTranscriber
}

func newTranscriberFixture(ctx context.Context, transcriber *test.FakeTranscriber) *transcriberFixture {
	f := &transcriberFixture{
		clock:       test.NewFakeClock(time.Date(2024, 10, 11, 3, 0, 0, 0, time.UTC)),
		toolkit:     &test.FakeToolkit{DurationValue: 25},
		transcriber: transcriber,
		item:        model.NewContentItem("t", "d", "gs://b/v.mp4"),
	}
	f.command = commands.NewSpeechTranscriber(
		"transcribe-speech", f.toolkit, f.transcriber, f.clock, testPollInterval, testTimeout)
	f.chainCtx = cor.NewBaseContext(ctx)
	f.chainCtx.Add(commands.GetLocalVideoParameterName(), "/tmp/video.mp4")
	f.chainCtx.Add(commands.GetContentItemParameterName(), f.item)
	return f
}

// run executes the command on a goroutine and returns a channel closed on
// completion, so the test can advance the clock while the poll loop waits.
func (f *transcriberFixture) run() <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		f.command.Execute(f.chainCtx)
	}()
	return done
}

func (f *transcriberFixture) job() *model.TranscriptionJob {
	return f.chainCtx.Get(cor.CtxOut).(*model.TranscriptionJob)
}

// TestTranscriptionCompletes walks the happy path: audio extracted, job
// submitted, one poll tick, transcript written onto the item, and provider
// state cleaned up exactly once.
func TestTranscriptionCompletes(t *testing.T) {
	f := newTranscriberFixture(context.Background(), &test.FakeTranscriber{Transcript: "hello world"})
	done := f.run()

	f.clock.BlockUntilWaiters(1)
	f.clock.Advance(testPollInterval)
	<-done

	assert.False(t, f.chainCtx.HasErrors())
	assert.Equal(t, "hello world", f.item.Transcript)
	assert.Equal(t, model.StatusCompleted, f.job().Status)
	assert.Equal(t, 1, f.transcriber.CleanupCount())
	// The extracted audio file is registered for removal with the run.
	assert.Equal(t, 1, len(f.chainCtx.GetTempFiles()))
}

// TestTranscriptionPollFailureFailsOpen verifies that a failed job leaves an
// empty transcript and no run error: the item still gets indexed, it is just
// not findable by speech.
func TestTranscriptionPollFailureFailsOpen(t *testing.T) {
	f := newTranscriberFixture(context.Background(), &test.FakeTranscriber{
		PollScript: []test.PollResponse{{Err: test.ErrInjected}},
	})
	done := f.run()

	f.clock.BlockUntilWaiters(1)
	f.clock.Advance(testPollInterval)
	<-done

	assert.False(t, f.chainCtx.HasErrors())
	assert.Equal(t, "", f.item.Transcript)
	assert.Equal(t, model.StatusFailed, f.job().Status)
	assert.Equal(t, 1, f.transcriber.CleanupCount())
}

// TestTranscriptionTimesOut verifies the deadline: once the clock passes the
// configured timeout the job is abandoned as TimedOut, cleanup runs, and the
// pipeline continues without a transcript.
func TestTranscriptionTimesOut(t *testing.T) {
	f := newTranscriberFixture(context.Background(), &test.FakeTranscriber{
		PollScript: []test.PollResponse{{Done: false}},
	})
	done := f.run()

	// First tick: the job is still running.
	f.clock.BlockUntilWaiters(1)
	f.clock.Advance(testPollInterval)
	// Second tick lands past the deadline.
	f.clock.BlockUntilWaiters(1)
	f.clock.Advance(testTimeout)
	<-done

	assert.False(t, f.chainCtx.HasErrors())
	assert.Equal(t, "", f.item.Transcript)
	assert.Equal(t, model.StatusTimedOut, f.job().Status)
	assert.Equal(t, 1, f.transcriber.CleanupCount())
}

// TestTranscriptionSubmitFailureFailsOpen verifies a submission failure
// degrades to an empty transcript without entering the poll loop.
func TestTranscriptionSubmitFailureFailsOpen(t *testing.T) {
	f := newTranscriberFixture(context.Background(), &test.FakeTranscriber{SubmitErr: test.ErrInjected})
	<-f.run()

	assert.False(t, f.chainCtx.HasErrors())
	assert.Equal(t, model.StatusFailed, f.job().Status)
	// Nothing was submitted, so there is nothing to clean up.
	assert.Equal(t, 0, f.transcriber.CleanupCount())
}

// TestTranscriptionAudioExtractionFailureFailsOpen verifies the earliest
// failure point: no audio, no job, empty transcript, no run error.
func TestTranscriptionAudioExtractionFailureFailsOpen(t *testing.T) {
	f := newTranscriberFixture(context.Background(), &test.FakeTranscriber{})
	f.toolkit.AudioErr = test.ErrInjected
	<-f.run()

	assert.False(t, f.chainCtx.HasErrors())
	assert.Equal(t, model.StatusFailed, f.job().Status)
	assert.Equal(t, "", f.item.Transcript)
}

// TestTranscriptionCancellationAborts verifies the one terminal path that is
// not fail-open: canceling the surrounding ingestion records an error on the
// run, and provider state is still torn down.
func TestTranscriptionCancellationAborts(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	f := newTranscriberFixture(ctx, &test.FakeTranscriber{})
	done := f.run()

	f.clock.BlockUntilWaiters(1)
	cancel()
	<-done

	assert.True(t, f.chainCtx.HasErrors())
	assert.Equal(t, model.StatusFailed, f.job().Status)
	assert.Equal(t, 1, f.transcriber.CleanupCount())
}
