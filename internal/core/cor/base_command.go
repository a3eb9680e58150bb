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

package cor

import (
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// BaseCommand supplies the boilerplate every concrete command needs: a name,
// the default input/output parameter wiring, and per-command telemetry
// (a tracer plus success and error counters). Concrete commands embed it and
// implement Execute.
type BaseCommand struct {
	Name           string
	InputParam     string
	OutputParam    string
	Tracer         trace.Tracer
	Meter          metric.Meter
	SuccessCounter metric.Int64Counter
	ErrorCounter   metric.Int64Counter
}

// NewBaseCommand creates the shared command state for the given name. Input
// and output default to the chain piping keys; commands with fixed context
// keys override them after construction.
func NewBaseCommand(name string) *BaseCommand {
	tracer := otel.Tracer(name)
	meter := otel.Meter(name)

	successCounter, err := meter.Int64Counter(
		fmt.Sprintf("%s.success", name),
		metric.WithDescription(fmt.Sprintf("count of successful %s executions", name)))
	if err != nil {
		slog.Warn("failed to create success counter", "command", name, "error", err)
	}
	errorCounter, err := meter.Int64Counter(
		fmt.Sprintf("%s.error", name),
		metric.WithDescription(fmt.Sprintf("count of failed %s executions", name)))
	if err != nil {
		slog.Warn("failed to create error counter", "command", name, "error", err)
	}

	return &BaseCommand{
		Name:           name,
		InputParam:     CtxIn,
		OutputParam:    CtxOut,
		Tracer:         tracer,
		Meter:          meter,
		SuccessCounter: successCounter,
		ErrorCounter:   errorCounter,
	}
}

func (b *BaseCommand) GetName() string {
	return b.Name
}

func (b *BaseCommand) GetInputParam() string {
	return b.InputParam
}

func (b *BaseCommand) GetOutputParam() string {
	return b.OutputParam
}

// IsExecutable verifies the command's input is present. Commands with no
// input dependency override this to return true.
func (b *BaseCommand) IsExecutable(context Context) bool {
	return context.Get(b.InputParam) != nil
}

func (b *BaseCommand) GetTracer() trace.Tracer {
	return b.Tracer
}

func (b *BaseCommand) GetMeter() metric.Meter {
	return b.Meter
}

func (b *BaseCommand) GetSuccessCounter() metric.Int64Counter {
	return b.SuccessCounter
}

func (b *BaseCommand) GetErrorCounter() metric.Int64Counter {
	return b.ErrorCounter
}
