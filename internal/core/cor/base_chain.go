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
	"log/slog"
)

// BaseChain is the default Chain implementation. It runs its commands in
// order, piping each command's output key into the next command's input key,
// and stops at the first recorded error unless ContinueOnFailure(true) was
// set. Cancellation of the execution's Go context also stops the chain
// between commands.
type BaseChain struct {
	*BaseCommand
	commands          []Command
	continueOnFailure bool
}

// NewBaseChain creates an empty named chain.
func NewBaseChain(name string) *BaseChain {
	return &BaseChain{
		BaseCommand: NewBaseCommand(name),
		commands:    make([]Command, 0),
	}
}

func (c *BaseChain) ContinueOnFailure(continueOnFailure bool) Chain {
	c.continueOnFailure = continueOnFailure
	return c
}

func (c *BaseChain) AddCommand(command Command) Chain {
	c.commands = append(c.commands, command)
	return c
}

// IsExecutable is always true for a chain; each member command performs its
// own precondition check as the chain reaches it.
func (c *BaseChain) IsExecutable(_ Context) bool {
	return true
}

// Execute runs the chain. Each command runs inside its own span; a command
// whose precondition fails or whose execution records an error increments its
// error counter, and a clean execution increments its success counter.
func (c *BaseChain) Execute(context Context) {
	ctx, span := c.GetTracer().Start(context.GetContext(), c.GetName())
	defer span.End()
	context.SetContext(ctx)

	for _, command := range c.commands {
		if err := ctx.Err(); err != nil {
			slog.Info("chain canceled", "chain", c.GetName(), "error", err)
			context.AddError(c.GetName(), err)
			return
		}

		if context.HasErrors() && !c.continueOnFailure {
			slog.Error("chain stopped on prior error", "chain", c.GetName(), "command", command.GetName())
			return
		}

		// Pipe the previous command's output into this command's input.
		if out := context.Get(CtxOut); out != nil {
			context.Add(command.GetInputParam(), out)
			context.Remove(CtxOut)
		}

		if !command.IsExecutable(context) {
			slog.Error("command precondition not met", "chain", c.GetName(), "command", command.GetName())
			if counter := command.GetErrorCounter(); counter != nil {
				counter.Add(ctx, 1)
			}
			continue
		}

		cmdCtx, cmdSpan := command.GetTracer().Start(ctx, command.GetName())
		context.SetContext(cmdCtx)
		errsBefore := len(context.GetErrors())
		command.Execute(context)
		cmdSpan.End()
		context.SetContext(ctx)

		if len(context.GetErrors()) > errsBefore {
			if counter := command.GetErrorCounter(); counter != nil {
				counter.Add(ctx, 1)
			}
		} else if counter := command.GetSuccessCounter(); counter != nil {
			counter.Add(ctx, 1)
		}

		// A nested chain pipes through its own output key.
		if command.GetOutputParam() != CtxOut {
			if out := context.Get(command.GetOutputParam()); out != nil {
				context.Add(CtxOut, out)
			}
		}
	}
}
