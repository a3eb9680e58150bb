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

// Package cor (Chain of Responsibility) provides the building blocks for
// pipelines: atomic commands, chains that sequence them, and a shared context
// that carries data, errors, and temp-file bookkeeping between steps.
package cor

import (
	"context"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// CtxIn and CtxOut are the keys a chain uses to pipe one command's primary
// output into the next command's primary input.
const (
	CtxIn  = "__IN__"
	CtxOut = "__OUT__"
)

// Context is the shared state for one pipeline execution. Commands read their
// inputs from it, write their outputs to it, and record errors on it. A
// Context is owned by a single execution and is not safe for concurrent use;
// commands that fan work out must collect results before writing back.
type Context interface {
	// SetContext and GetContext manage the standard Go context that carries
	// cancellation and trace information through the pipeline.
	SetContext(ctx context.Context)
	GetContext() context.Context

	// Add stores a value under a key and returns the Context for chaining.
	Add(key string, value interface{}) Context

	// Get retrieves a stored value, or nil when absent.
	Get(key string) interface{}

	// Remove deletes a key.
	Remove(key string)

	// AddError records a failure, keyed by the command that produced it.
	AddError(key string, err error)

	// GetErrors returns every recorded failure.
	GetErrors() map[string]error

	// HasErrors reports whether any command has failed.
	HasErrors() bool

	// AddTempFile registers a local file for removal when the execution ends.
	AddTempFile(file string)

	// GetTempFiles lists the registered files.
	GetTempFiles() []string

	// Close removes all registered temp files. Defer it at execution start.
	Close()
}

// Command is an atomic, testable unit of work within a chain.
type Command interface {
	// Execute performs the command's work against the shared context.
	Execute(context Context)

	// GetName identifies the command in logs, traces and error maps.
	GetName() string

	// GetInputParam and GetOutputParam name the context keys for the
	// command's primary input and output.
	GetInputParam() string
	GetOutputParam() string

	// IsExecutable is a precondition check run before Execute.
	IsExecutable(context Context) bool

	// Telemetry accessors used by chains and by the commands themselves.
	GetTracer() trace.Tracer
	GetMeter() metric.Meter
	GetSuccessCounter() metric.Int64Counter
	GetErrorCounter() metric.Int64Counter
}

// Chain sequences commands. A Chain is itself a Command, so chains nest.
type Chain interface {
	Command

	// ContinueOnFailure controls whether later commands still run after an
	// earlier one has recorded an error. Default is to stop.
	ContinueOnFailure(bool) Chain

	// AddCommand appends a command to the execution sequence.
	AddCommand(command Command) Chain
}
