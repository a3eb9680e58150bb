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

// Package workflow defines the high-level business logic orchestrations.
// This file holds the small bookkeeping commands that thread the status
// registry through an ingestion chain: one registers the run once its item
// exists, the others mark stage transitions.
package workflow

import (
	goctx "context"
	"fmt"

	"github.com/tarunaws/psl-media-sub003/internal/core/commands"
	"github.com/tarunaws/psl-media-sub003/internal/core/cor"
	"github.com/tarunaws/psl-media-sub003/internal/core/model"
	"github.com/tarunaws/psl-media-sub003/internal/core/services"
)

// runRegistration enters the current run into the status registry, attaching
// the cancel function the workflow stored in the context.
type runRegistration struct {
	cor.BaseCommand
	registry *services.StatusRegistry
}

func newRunRegistration(registry *services.StatusRegistry) *runRegistration {
	cmd := &runRegistration{
		BaseCommand: *cor.NewBaseCommand("register-run"),
		registry:    registry,
	}
	cmd.InputParam = commands.GetContentItemParameterName()
	return cmd
}

func (c *runRegistration) Execute(context cor.Context) {
	item := context.Get(c.GetInputParam()).(*model.ContentItem)
	cancel, _ := context.Get(cancelParamName).(goctx.CancelFunc)
	if cancel == nil {
		cancel = func() {}
	}
	// The direct API path and the bucket notification can both fire for one
	// upload. Only the first registration proceeds; the duplicate stops here,
	// before anything is downloaded, and must not settle the original run's
	// status on its way out.
	if !c.registry.Begin(item.Id, cancel) {
		context.Add(duplicateRunParamName, true)
		context.AddError(c.GetName(), fmt.Errorf("ingestion already running for item %s", item.Id))
	}
}

// stageMark records that the run has entered a named stage. It never fails
// and never touches the data flowing through the chain.
type stageMark struct {
	cor.BaseCommand
	registry *services.StatusRegistry
	stage    string
}

func newStageMark(registry *services.StatusRegistry, stage string) *stageMark {
	return &stageMark{
		BaseCommand: *cor.NewBaseCommand("stage-" + stage),
		registry:    registry,
		stage:       stage,
	}
}

func (c *stageMark) IsExecutable(_ cor.Context) bool { return true }

func (c *stageMark) Execute(context cor.Context) {
	if item, ok := context.Get(commands.GetContentItemParameterName()).(*model.ContentItem); ok && item != nil {
		c.registry.EnterStage(item.Id, c.stage)
	}
}
