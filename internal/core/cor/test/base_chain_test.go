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

// Package cor_test contains unit tests for the Chain of Responsibility
// building blocks: output piping, the stop-on-error contract, cancellation
// between commands, and temp file cleanup.
package cor_test

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tarunaws/psl-media-sub003/internal/core/cor"
)

// appendCommand appends its suffix to the piped string input.
type appendCommand struct {
	cor.BaseCommand
	suffix string
	fail   bool
	ran    bool
}

func newAppendCommand(name string, suffix string, fail bool) *appendCommand {
	return &appendCommand{BaseCommand: *cor.NewBaseCommand(name), suffix: suffix, fail: fail}
}

func (c *appendCommand) Execute(context cor.Context) {
	c.ran = true
	if c.fail {
		context.AddError(c.GetName(), assert.AnError)
		return
	}
	in := context.Get(c.GetInputParam()).(string)
	context.Add(cor.CtxOut, in+c.suffix)
}

// TestChainPipesOutputs verifies each command's output becomes the next
// command's input.
func TestChainPipesOutputs(t *testing.T) {
	chain := cor.NewBaseChain("test-chain")
	chain.AddCommand(newAppendCommand("first", "-a", false))
	chain.AddCommand(newAppendCommand("second", "-b", false))

	chainCtx := cor.NewBaseContext(context.Background())
	chainCtx.Add(cor.CtxIn, "start")
	chain.Execute(chainCtx)

	assert.False(t, chainCtx.HasErrors())
	assert.Equal(t, "start-a-b", chainCtx.Get(cor.CtxOut))
}

// TestChainStopsOnError verifies the chain stops at the first recorded error
// unless ContinueOnFailure is set.
func TestChainStopsOnError(t *testing.T) {
	failing := newAppendCommand("failing", "-a", true)
	after := newAppendCommand("after", "-b", false)

	chain := cor.NewBaseChain("test-chain")
	chain.AddCommand(failing)
	chain.AddCommand(after)

	chainCtx := cor.NewBaseContext(context.Background())
	chainCtx.Add(cor.CtxIn, "start")
	chain.Execute(chainCtx)

	assert.True(t, chainCtx.HasErrors())
	assert.True(t, failing.ran)
	assert.False(t, after.ran)
}

// TestChainCancellation verifies a canceled Go context stops the chain
// between commands and records the cancellation.
func TestChainCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	after := newAppendCommand("after", "-a", false)
	chain := cor.NewBaseChain("test-chain")
	chain.AddCommand(after)

	chainCtx := cor.NewBaseContext(ctx)
	chainCtx.Add(cor.CtxIn, "start")
	chain.Execute(chainCtx)

	assert.True(t, chainCtx.HasErrors())
	assert.False(t, after.ran)
}

// TestContextCloseRemovesTempFiles verifies registered temp files are gone
// after Close, and that missing files do not trip cleanup.
func TestContextCloseRemovesTempFiles(t *testing.T) {
	f, err := os.CreateTemp("", "cor-cleanup-*")
	assert.NoError(t, err)
	_ = f.Close()

	chainCtx := cor.NewBaseContext(context.Background())
	chainCtx.AddTempFile(f.Name())
	chainCtx.AddTempFile(f.Name() + ".does-not-exist")
	chainCtx.Close()

	_, err = os.Stat(f.Name())
	assert.True(t, os.IsNotExist(err))
}
