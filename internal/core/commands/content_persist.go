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
// final persistence step of the ingestion pipeline: the completed item is
// stamped, given its thumbnail, and written through the index store. Only
// after this step does the item become visible to search.
package commands

import (
	"log/slog"

	"github.com/tarunaws/psl-media-sub003/internal/core/cor"
	"github.com/tarunaws/psl-media-sub003/internal/core/model"
	"github.com/tarunaws/psl-media-sub003/internal/core/services"
)

// ContentPersist writes the completed item into the index store.
type ContentPersist struct {
	cor.BaseCommand
	store *services.IndexStore // The write-through content index.
	clock Clock                // Stamps CreatedAt.
}

// NewContentPersist creates the persistence command.
func NewContentPersist(name string, store *services.IndexStore, clock Clock) *ContentPersist {
	cmd := &ContentPersist{
		BaseCommand: *cor.NewBaseCommand(name),
		store:       store,
		clock:       clock,
	}
	cmd.InputParam = GetContentItemParameterName()
	return cmd
}

// Execute stamps the item, selects its thumbnail, and writes it through the
// store. The durable layer accepts the record before the in-memory mirror
// sees it, so a failure here leaves nothing half-indexed.
func (c *ContentPersist) Execute(context cor.Context) {
	item := context.Get(c.GetInputParam()).(*model.ContentItem)

	item.CreatedAt = c.clock.Now().UTC()
	item.Thumbnail = selectThumbnail(context)

	if err := c.store.Put(context.GetContext(), item); err != nil {
		context.AddError(c.GetName(), model.NewFatalIngestionError("persist", err))
		return
	}

	slog.Info("content item indexed", "item", item.Id, "title", item.Title,
		"labels", len(item.Labels), "transcript_chars", len(item.Transcript))
	context.Add(cor.CtxOut, item)
}

// selectThumbnail picks the midpoint frame of the sampled set. Items whose
// frames all failed to extract simply have no thumbnail.
func selectThumbnail(context cor.Context) []byte {
	raw := context.Get(GetFrameSamplesParameterName())
	if raw == nil {
		return nil
	}
	samples := raw.([]*model.FrameSample)
	if len(samples) == 0 {
		return nil
	}
	return samples[len(samples)/2].Image
}
