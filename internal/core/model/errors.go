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
// This file defines the error taxonomy shared by the pipeline and the search
// services. The distinction that matters everywhere: a FatalIngestionError
// removes the item from the index entirely, while a recoverable signal error
// only degrades one signal and is absorbed at the component boundary.
package model

import (
	"errors"
	"fmt"
)

// FatalIngestionError wraps a failure that prevents the item from being
// indexed at all: an undeterminable duration, or a failed embedding call.
type FatalIngestionError struct {
	Stage string // The pipeline stage that failed.
	Err   error
}

func (e *FatalIngestionError) Error() string {
	return fmt.Sprintf("ingestion failed at %s: %v", e.Stage, e.Err)
}

func (e *FatalIngestionError) Unwrap() error { return e.Err }

// NewFatalIngestionError wraps err as a pipeline-terminal failure.
func NewFatalIngestionError(stage string, err error) *FatalIngestionError {
	return &FatalIngestionError{Stage: stage, Err: err}
}

// IsFatalIngestion reports whether err is (or wraps) a FatalIngestionError.
func IsFatalIngestion(err error) bool {
	var fe *FatalIngestionError
	return errors.As(err, &fe)
}

// RecoverableSignalError wraps a failure that degrades a single signal
// (one frame's vision output, or the transcript) without removing the item
// from the index. It is absorbed at the component that produced it.
type RecoverableSignalError struct {
	Signal string // "vision" or "transcription".
	Err    error
}

func (e *RecoverableSignalError) Error() string {
	return fmt.Sprintf("%s signal degraded: %v", e.Signal, e.Err)
}

func (e *RecoverableSignalError) Unwrap() error { return e.Err }

// StoreInconsistencyError reports that the durable layer and the in-memory
// mirror diverged during a write or delete. The holder must reconcile from
// the durable layer, which is the source of truth.
type StoreInconsistencyError struct {
	Op     string // "put" or "delete"
	ItemId string
	Err    error
}

func (e *StoreInconsistencyError) Error() string {
	return fmt.Sprintf("index store inconsistency during %s of %s: %v", e.Op, e.ItemId, e.Err)
}

func (e *StoreInconsistencyError) Unwrap() error { return e.Err }

// SearchInputError rejects a single search request (e.g. a query embedding
// whose dimension does not match the index) without touching stored state.
type SearchInputError struct {
	Reason string
}

func (e *SearchInputError) Error() string {
	return "invalid search input: " + e.Reason
}

// ErrNotFound is returned by lookups for identifiers that are not indexed.
var ErrNotFound = errors.New("content item not found")
