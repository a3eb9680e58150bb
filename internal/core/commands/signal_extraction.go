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
// step that runs vision analysis and speech transcription concurrently.
// Neither signal depends on the other, and transcription spends most of its
// time waiting on a remote job, so running them side by side roughly halves
// the wall time of an ingestion.
//
// The shared chain context is not safe for concurrent writes, so each branch
// runs against its own child context seeded with the keys it reads. The two
// branches touch disjoint fields of the content item (vision writes the
// visual aggregates, speech writes the transcript), and their outputs are
// merged back into the parent only after both have finished.
package commands

import (
	"sync"

	"github.com/tarunaws/psl-media-sub003/internal/core/cor"
)

// SignalExtraction runs its two member commands in parallel.
type SignalExtraction struct {
	cor.BaseCommand
	vision cor.Command // The vision analysis branch.
	speech cor.Command // The speech transcription branch.
}

// NewSignalExtraction creates the parallel step from its two branches.
func NewSignalExtraction(name string, vision cor.Command, speech cor.Command) *SignalExtraction {
	cmd := &SignalExtraction{
		BaseCommand: *cor.NewBaseCommand(name),
		vision:      vision,
		speech:      speech,
	}
	cmd.InputParam = GetContentItemParameterName()
	return cmd
}

// Execute runs both branches to completion and merges their results.
func (c *SignalExtraction) Execute(context cor.Context) {
	seedKeys := []string{
		GetContentItemParameterName(),
		GetLocalVideoParameterName(),
		GetFrameSamplesParameterName(),
	}

	makeChild := func() cor.Context {
		child := cor.NewBaseContext(context.GetContext())
		for _, key := range seedKeys {
			if v := context.Get(key); v != nil {
				child.Add(key, v)
			}
		}
		return child
	}

	visionCtx := makeChild()
	speechCtx := makeChild()

	var wg sync.WaitGroup
	for _, branch := range []struct {
		command cor.Command
		ctx     cor.Context
	}{
		{c.vision, visionCtx},
		{c.speech, speechCtx},
	} {
		wg.Add(1)
		go func(command cor.Command, ctx cor.Context) {
			defer wg.Done()
			if command.IsExecutable(ctx) {
				command.Execute(ctx)
			}
		}(branch.command, branch.ctx)
	}
	wg.Wait()

	// Fold child state back into the parent: temp files always, so cleanup
	// still runs; named outputs; and any recorded errors.
	for _, child := range []cor.Context{visionCtx, speechCtx} {
		for _, f := range child.GetTempFiles() {
			context.AddTempFile(f)
		}
		for name, err := range child.GetErrors() {
			context.AddError(name, err)
		}
	}
	if out := visionCtx.Get(GetFrameResultsParameterName()); out != nil {
		context.Add(GetFrameResultsParameterName(), out)
	}

	// The item itself was mutated in place by both branches; hand it to the
	// next step in the chain.
	context.Add(cor.CtxOut, context.Get(GetContentItemParameterName()))
}
