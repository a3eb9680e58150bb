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

// Package test provides utility functions, fake collaborators, and mock data
// to support the application's test suite. This file holds in-memory fakes
// for every external collaborator of the ingestion pipeline, so workflow and
// command tests run hermetically: no GCP clients, no ffmpeg binaries, no
// wall-clock waits.
package test

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"math"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/tarunaws/psl-media-sub003/internal/core/model"
)

// FakeDurableIndex is an in-memory stand-in for the BigQuery-backed durable
// layer. Failures are injected through the error fields.
type FakeDurableIndex struct {
	mu        sync.Mutex
	records   map[string]*model.ContentItem
	WriteErr  error // When non-nil, Write fails with this error.
	RemoveErr error // When non-nil, Remove fails with this error.
	FindErr   error // When non-nil, Find fails with this error.
	ScanErr   error // When non-nil, Scan fails with this error.
}

func NewFakeDurableIndex() *FakeDurableIndex {
	return &FakeDurableIndex{records: make(map[string]*model.ContentItem)}
}

func (f *FakeDurableIndex) Write(_ context.Context, item *model.ContentItem) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.WriteErr != nil {
		return f.WriteErr
	}
	f.records[item.Id] = item.Clone()
	return nil
}

func (f *FakeDurableIndex) Remove(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.RemoveErr != nil {
		return f.RemoveErr
	}
	delete(f.records, id)
	return nil
}

func (f *FakeDurableIndex) Find(_ context.Context, id string) (*model.ContentItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FindErr != nil {
		return nil, f.FindErr
	}
	item, ok := f.records[id]
	if !ok {
		return nil, model.ErrNotFound
	}
	return item.Clone(), nil
}

func (f *FakeDurableIndex) Scan(_ context.Context) ([]*model.ContentItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ScanErr != nil {
		return nil, f.ScanErr
	}
	out := make([]*model.ContentItem, 0, len(f.records))
	for _, item := range f.records {
		out = append(out, item.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// Len reports how many records the durable layer holds.
func (f *FakeDurableIndex) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.records)
}

// FakeClock is a manually advanced clock. After channels fire only when
// Advance moves the clock past their deadline, which lets tests drive the
// transcription poll loop deterministically.
type FakeClock struct {
	mu      sync.Mutex
	now     time.Time
	waiters []*clockWaiter
}

type clockWaiter struct {
	deadline time.Time
	ch       chan time.Time
}

func NewFakeClock(start time.Time) *FakeClock {
	return &FakeClock{now: start}
}

func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *FakeClock) After(d time.Duration) <-chan time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	w := &clockWaiter{deadline: c.now.Add(d), ch: make(chan time.Time, 1)}
	if d <= 0 {
		w.ch <- c.now
		return w.ch
	}
	c.waiters = append(c.waiters, w)
	return w.ch
}

// Advance moves the clock forward and fires every waiter whose deadline has
// been reached.
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	remaining := c.waiters[:0]
	for _, w := range c.waiters {
		if !w.deadline.After(c.now) {
			w.ch <- c.now
		} else {
			remaining = append(remaining, w)
		}
	}
	c.waiters = remaining
}

// BlockUntilWaiters spins until at least n After calls are pending, so tests
// can synchronize with a goroutine entering the poll loop before advancing.
func (c *FakeClock) BlockUntilWaiters(n int) {
	for {
		c.mu.Lock()
		pending := len(c.waiters)
		c.mu.Unlock()
		if pending >= n {
			return
		}
		time.Sleep(time.Millisecond)
	}
}

// FakeToolkit is a MediaToolkit that fabricates frames and audio without
// shelling out.
type FakeToolkit struct {
	DurationValue float64
	DurationErr   error
	FrameErrAt    map[float64]error // Offsets whose frame extraction should fail.
	AudioErr      error

	mu             sync.Mutex
	ExtractedAudio []string // Paths of the audio files handed out.
}

func (f *FakeToolkit) Duration(_ context.Context, _ string) (float64, error) {
	if f.DurationErr != nil {
		return 0, f.DurationErr
	}
	return f.DurationValue, nil
}

func (f *FakeToolkit) ExtractFrame(_ context.Context, _ string, offsetSeconds float64) ([]byte, error) {
	if err, ok := f.FrameErrAt[offsetSeconds]; ok {
		return nil, err
	}
	return []byte(fmt.Sprintf("frame-at-%.3f", offsetSeconds)), nil
}

func (f *FakeToolkit) ExtractAudio(_ context.Context, _ string) (string, error) {
	if f.AudioErr != nil {
		return "", f.AudioErr
	}
	tempFile, err := os.CreateTemp("", "fake-audio-*.wav")
	if err != nil {
		return "", err
	}
	_ = tempFile.Close()
	f.mu.Lock()
	f.ExtractedAudio = append(f.ExtractedAudio, tempFile.Name())
	f.mu.Unlock()
	return tempFile.Name(), nil
}

// FakeAnalyzer returns scripted observations per frame. The script is keyed by
// the frame bytes the FakeToolkit fabricates.
type FakeAnalyzer struct {
	Observations map[string]*model.FrameObservations // Keyed by string(image).
	ErrFor       map[string]error                    // Frames whose analysis should fail.
	Default      *model.FrameObservations            // Returned for unscripted frames.
}

func (f *FakeAnalyzer) AnalyzeFrame(_ context.Context, image []byte) (*model.FrameObservations, error) {
	key := string(image)
	if err, ok := f.ErrFor[key]; ok {
		return nil, err
	}
	if obs, ok := f.Observations[key]; ok {
		return obs, nil
	}
	if f.Default != nil {
		return f.Default, nil
	}
	return &model.FrameObservations{}, nil
}

// FakeTranscriber is a scripted asynchronous transcription collaborator. Each
// Poll call consumes the next entry from PollScript; once the script is
// exhausted the job reports done with the configured transcript.
type FakeTranscriber struct {
	Transcript string
	SubmitErr  error
	PollScript []PollResponse // Consumed one entry per Poll call.

	mu          sync.Mutex
	pollCalls   int
	CleanupJobs []string // Job ids Cleanup was called with.
}

type PollResponse struct {
	Done       bool
	Transcript string
	Err        error
}

func (f *FakeTranscriber) Submit(_ context.Context, _ string) (string, error) {
	if f.SubmitErr != nil {
		return "", f.SubmitErr
	}
	return "job-0001", nil
}

func (f *FakeTranscriber) Poll(_ context.Context, _ string) (bool, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.pollCalls < len(f.PollScript) {
		resp := f.PollScript[f.pollCalls]
		f.pollCalls++
		return resp.Done, resp.Transcript, resp.Err
	}
	return true, f.Transcript, nil
}

func (f *FakeTranscriber) Cleanup(_ context.Context, jobId string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.CleanupJobs = append(f.CleanupJobs, jobId)
	return nil
}

// CleanupCount reports how many times Cleanup ran.
func (f *FakeTranscriber) CleanupCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.CleanupJobs)
}

// FakeEmbedder produces deterministic bag-of-words vectors: each lowercased
// token is hashed into a bucket and the vector is L2 normalized. Texts that
// share words produce vectors with high cosine similarity, which is enough
// signal for ranking tests without a real model.
type FakeEmbedder struct {
	Dim int
	Err error
}

func (f *FakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if f.Err != nil {
		return nil, f.Err
	}
	dim := f.Dim
	if dim <= 0 {
		dim = 64
	}
	vec := make([]float32, dim)
	for _, word := range strings.Fields(strings.ToLower(text)) {
		h := fnv.New32a()
		_, _ = h.Write([]byte(strings.Trim(word, ".,:;!?")))
		vec[int(h.Sum32())%dim] += 1.0
	}
	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm == 0 {
		return vec, nil
	}
	norm = math.Sqrt(norm)
	for i := range vec {
		vec[i] = float32(float64(vec[i]) / norm)
	}
	return vec, nil
}

// ErrInjected is a reusable sentinel for failure-injection tests.
var ErrInjected = errors.New("injected failure")
