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

// Package model defines the core data structures for the application.
// This file contains the transient models: in-memory carriers that exist only
// while a single ingestion pipeline run is executing and are never persisted.
package model

import "time"

// FrameSample is one still frame lifted from the source video. Samples are
// consumed by the vision analyzer and then discarded; only the midpoint frame
// survives, as the item's thumbnail.
type FrameSample struct {
	TimestampSeconds float64 // Offset of the frame from the start of the video.
	Image            []byte  // Encoded frame bytes (JPEG).
}

// ScoredDetection is one raw detection from the vision model, paired with the
// model's confidence in the range [0, 1].
type ScoredDetection struct {
	Value      string  `json:"value"`
	Confidence float64 `json:"confidence"`
}

// FaceObservation holds the emotion detections for a single face in a frame.
type FaceObservation struct {
	Emotions []ScoredDetection `json:"emotions"`
}

// FrameObservations is the unfiltered vision output for one frame, exactly as
// the model reported it. Confidence filtering and ranking happen downstream.
type FrameObservations struct {
	Labels       []ScoredDetection `json:"labels"`
	OnScreenText []string          `json:"on_screen_text"`
	Faces        []FaceObservation `json:"faces"`
}

// FrameSignals holds the filtered, ranked detection outputs for a single
// frame: the shape aggregation consumes.
type FrameSignals struct {
	Labels       []string `json:"labels"`
	OnScreenText []string `json:"on_screen_text"`
	Emotions     []string `json:"emotions"`
}

// FrameResult is the typed outcome of analyzing one frame: either a set of
// signals or the reason the frame was skipped. Aggregation folds over the Ok
// results only; Err results are logged and dropped without aborting the run.
type FrameResult struct {
	Index   int           // Position of the frame in sampling order.
	Signals *FrameSignals // Populated when Err is nil.
	Err     error         // Non-nil when this frame's analysis failed.
}

// TranscriptionStatus enumerates the states of the speech transcription
// lifecycle. The zero value is StatusNotStarted.
type TranscriptionStatus int

const (
	StatusNotStarted TranscriptionStatus = iota
	StatusAudioExtracted
	StatusSubmitted
	StatusCompleted
	StatusFailed
	StatusTimedOut
)

// String returns the lifecycle state name, primarily for logs.
func (s TranscriptionStatus) String() string {
	switch s {
	case StatusNotStarted:
		return "NotStarted"
	case StatusAudioExtracted:
		return "AudioExtracted"
	case StatusSubmitted:
		return "Submitted"
	case StatusCompleted:
		return "Completed"
	case StatusFailed:
		return "Failed"
	case StatusTimedOut:
		return "TimedOut"
	default:
		return "Unknown"
	}
}

// Terminal reports whether the lifecycle has reached an end state.
func (s TranscriptionStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusTimedOut
}

// TranscriptionJob tracks one remote transcription through its lifecycle.
// It is never persisted past job completion.
type TranscriptionJob struct {
	JobId         string
	SubmittedAt   time.Time
	Status        TranscriptionStatus
	Transcript    string
	FailureReason string
}
