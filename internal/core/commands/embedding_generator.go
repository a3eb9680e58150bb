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
// embedding generation step. Unlike the signal extraction steps, embedding
// failures are fatal to the ingestion: an item without an embedding can never
// match a query, so indexing it would only pollute the store with
// unreachable records.
package commands

import (
	"github.com/tarunaws/psl-media-sub003/internal/core/cor"
	"github.com/tarunaws/psl-media-sub003/internal/core/model"
	"github.com/tarunaws/psl-media-sub003/internal/core/services"
)

// EmbeddingGenerator embeds the compiled metadata document onto the item.
type EmbeddingGenerator struct {
	cor.BaseCommand
	embedder services.Embedder // The shared document/query embedding model.
}

// NewEmbeddingGenerator creates the embedding command.
func NewEmbeddingGenerator(name string, embedder services.Embedder) *EmbeddingGenerator {
	cmd := &EmbeddingGenerator{
		BaseCommand: *cor.NewBaseCommand(name),
		embedder:    embedder,
	}
	cmd.InputParam = GetMetadataDocParameterName()
	return cmd
}

// IsExecutable requires the compiled document and the item under assembly.
func (c *EmbeddingGenerator) IsExecutable(context cor.Context) bool {
	return context != nil &&
		context.Get(c.GetInputParam()) != nil &&
		context.Get(GetContentItemParameterName()) != nil
}

// Execute embeds the document and attaches the vector to the item.
func (c *EmbeddingGenerator) Execute(context cor.Context) {
	doc := context.Get(c.GetInputParam()).(string)
	item := context.Get(GetContentItemParameterName()).(*model.ContentItem)

	vector, err := c.embedder.Embed(context.GetContext(), doc)
	if err != nil {
		context.AddError(c.GetName(), model.NewFatalIngestionError("embedding", err))
		return
	}

	item.Embedding = vector
	context.Add(cor.CtxOut, item)
}
