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
// This file implements the asynchronous speech transcription provider. The
// extracted audio track is staged in GCS, a Gemini transcription request is
// started in the background, and callers poll for the result by job id.
// Cleanup removes the staged audio object and forgets the job, whatever state
// it ended in.
package cloud

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"sync"

	"cloud.google.com/go/storage"
	"github.com/google/uuid"
	"google.golang.org/genai"
)

const transcriptionPrompt = `Transcribe all spoken words in the attached audio. Respond with only the transcript text, with no commentary, timestamps, or speaker labels. Respond with an empty string if there is no speech.`

// ErrJobNotFound is returned when polling or cleaning up a job id this
// provider does not know, typically after cleanup has already run.
var ErrJobNotFound = errors.New("transcription job not found")

// transcriptionJob is the provider-side record of one background request.
type transcriptionJob struct {
	done       bool
	transcript string
	err        error
	audioURI   string
	cancel     context.CancelFunc
}

// GeminiTranscriber stages audio in GCS and transcribes it with a Gemini
// model in the background. It is safe for concurrent use.
type GeminiTranscriber struct {
	model         *QuotaAwareGenerativeAIModel
	storageClient *storage.Client
	stagingBucket string

	mu   sync.Mutex
	jobs map[string]*transcriptionJob
}

// NewGeminiTranscriber creates a transcriber that stages audio objects under
// the given bucket.
func NewGeminiTranscriber(model *QuotaAwareGenerativeAIModel, storageClient *storage.Client, stagingBucket string) *GeminiTranscriber {
	return &GeminiTranscriber{
		model:         model,
		storageClient: storageClient,
		stagingBucket: stagingBucket,
		jobs:          make(map[string]*transcriptionJob),
	}
}

// Submit uploads the local audio file to the staging bucket and starts the
// transcription in the background. It returns the job id used for polling.
//
// Inputs:
//   - ctx: Bounds the upload. The background transcription runs on its own
//     context so that it can be canceled independently via Cleanup.
//   - audioPath: The local path of the extracted audio track.
//
// Outputs:
//   - string: The job id.
//   - error: An error when staging the audio fails; nothing is retained then.
func (g *GeminiTranscriber) Submit(ctx context.Context, audioPath string) (string, error) {
	jobId := uuid.NewString()
	objectName := "transcription-staging/" + jobId + path.Ext(audioPath)

	f, err := os.Open(audioPath)
	if err != nil {
		return "", fmt.Errorf("failed to open audio file: %w", err)
	}
	defer func() { _ = f.Close() }()

	writer := g.storageClient.Bucket(g.stagingBucket).Object(objectName).NewWriter(ctx)
	if _, err = io.Copy(writer, f); err != nil {
		_ = writer.Close()
		return "", fmt.Errorf("failed to stage audio in gcs: %w", err)
	}
	if err = writer.Close(); err != nil {
		return "", fmt.Errorf("failed to finalize staged audio: %w", err)
	}

	audioURI := fmt.Sprintf("gs://%s/%s", g.stagingBucket, objectName)
	jobCtx, cancel := context.WithCancel(context.Background())
	job := &transcriptionJob{audioURI: audioURI, cancel: cancel}

	g.mu.Lock()
	g.jobs[jobId] = job
	g.mu.Unlock()

	go g.run(jobCtx, jobId, audioURI)
	return jobId, nil
}

// run performs the model call and records the outcome on the job.
func (g *GeminiTranscriber) run(ctx context.Context, jobId string, audioURI string) {
	fileData := NewFileData(audioURI, "audio/wav")
	content := []*genai.Content{{
		Parts: []*genai.Part{
			{Text: transcriptionPrompt},
			{FileData: &fileData},
		},
	}}

	resp, err := g.model.GenerateContent(ctx, content)

	g.mu.Lock()
	defer g.mu.Unlock()
	job, ok := g.jobs[jobId]
	if !ok {
		// Cleanup ran while the request was in flight.
		return
	}
	job.done = true
	if err != nil {
		job.err = err
		return
	}
	for _, candidate := range resp.Candidates {
		if candidate.Content != nil {
			for _, part := range candidate.Content.Parts {
				job.transcript += part.Text
			}
		}
	}
}

// Poll reports whether the job has finished and, once done, its transcript or
// failure.
func (g *GeminiTranscriber) Poll(_ context.Context, jobId string) (done bool, transcript string, err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	job, ok := g.jobs[jobId]
	if !ok {
		return false, "", ErrJobNotFound
	}
	if !job.done {
		return false, "", nil
	}
	return true, job.transcript, job.err
}

// Cleanup cancels the job if still running, deletes the staged audio object,
// and forgets the job. It is safe to call in every terminal path, including
// after a timeout or an external cancellation.
func (g *GeminiTranscriber) Cleanup(ctx context.Context, jobId string) error {
	g.mu.Lock()
	job, ok := g.jobs[jobId]
	delete(g.jobs, jobId)
	g.mu.Unlock()
	if !ok {
		return ErrJobNotFound
	}

	job.cancel()

	_, objectName, err := ParseGCSURI(job.audioURI)
	if err != nil {
		return err
	}
	if err := g.storageClient.Bucket(g.stagingBucket).Object(objectName).Delete(ctx); err != nil &&
		!errors.Is(err, storage.ErrObjectNotExist) {
		return fmt.Errorf("failed to delete staged audio: %w", err)
	}
	return nil
}
