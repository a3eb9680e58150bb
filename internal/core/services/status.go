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

// Package services contains the business logic for interacting with data
// sources. This file defines the StatusRegistry, which tracks in-flight
// ingestion runs: the stage each run has reached, its terminal outcome, and a
// cancel handle so an operator can abandon a run mid-flight.
package services

import (
	"context"
	"sync"
	"time"
)

// Ingestion run states reported by the status API.
const (
	RunStateRunning  = "running"
	RunStateComplete = "complete"
	RunStateFailed   = "failed"
	RunStateCanceled = "canceled"
)

// IngestionStatus is the externally visible progress of one pipeline run.
type IngestionStatus struct {
	ItemId    string    `json:"item_id"`
	State     string    `json:"state"`
	Stage     string    `json:"stage"` // The last pipeline stage the run entered.
	Error     string    `json:"error,omitempty"`
	StartedAt time.Time `json:"started_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// StatusRegistry tracks ingestion runs by item id. It is safe for concurrent
// use; pipeline goroutines update it while API handlers read it.
type StatusRegistry struct {
	mu     sync.RWMutex
	runs   map[string]*IngestionStatus
	cancel map[string]context.CancelFunc
}

// NewStatusRegistry creates an empty registry.
func NewStatusRegistry() *StatusRegistry {
	return &StatusRegistry{
		runs:   make(map[string]*IngestionStatus),
		cancel: make(map[string]context.CancelFunc),
	}
}

// Begin records a new running ingestion and retains its cancel handle. It
// reports false, without touching the existing run, when an ingestion for the
// same item is already in flight. The API path and the bucket notification
// can both trigger the same upload; whichever registers first owns the run. A
// finished run may be begun again, which is how re-ingestion works.
func (r *StatusRegistry) Begin(itemId string, cancel context.CancelFunc) bool {
	now := time.Now()
	r.mu.Lock()
	defer r.mu.Unlock()
	if run, ok := r.runs[itemId]; ok && run.State == RunStateRunning {
		return false
	}
	r.runs[itemId] = &IngestionStatus{
		ItemId:    itemId,
		State:     RunStateRunning,
		StartedAt: now,
		UpdatedAt: now,
	}
	r.cancel[itemId] = cancel
	return true
}

// EnterStage records that the run has reached a named pipeline stage.
func (r *StatusRegistry) EnterStage(itemId string, stage string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if run, ok := r.runs[itemId]; ok && run.State == RunStateRunning {
		run.Stage = stage
		run.UpdatedAt = time.Now()
	}
}

// Complete marks the run as successfully finished and drops its cancel handle.
func (r *StatusRegistry) Complete(itemId string) {
	r.finish(itemId, RunStateComplete, "")
}

// Fail marks the run as failed with the given reason.
func (r *StatusRegistry) Fail(itemId string, reason string) {
	r.finish(itemId, RunStateFailed, reason)
}

// Cancel aborts a running ingestion. It reports whether a running ingestion
// with that id existed.
func (r *StatusRegistry) Cancel(itemId string) bool {
	r.mu.Lock()
	cancel, ok := r.cancel[itemId]
	r.mu.Unlock()
	if !ok {
		return false
	}
	cancel()
	r.finish(itemId, RunStateCanceled, "")
	return true
}

// Get returns a copy of the run's status.
func (r *StatusRegistry) Get(itemId string) (IngestionStatus, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	run, ok := r.runs[itemId]
	if !ok {
		return IngestionStatus{}, false
	}
	return *run, true
}

func (r *StatusRegistry) finish(itemId string, state string, reason string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if run, ok := r.runs[itemId]; ok {
		if run.State == RunStateRunning {
			run.State = state
			run.Error = reason
			run.UpdatedAt = time.Now()
		}
	}
	delete(r.cancel, itemId)
}
