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
// metadata compilation step: the assembled item is rendered into a single
// text document that the embedding model consumes.
//
// The document layout is fixed. Sections always appear, in the same order,
// even when their content is empty, so that two items with identical signals
// always produce byte-identical documents and therefore identical embeddings.
package commands

import (
	"fmt"
	"strings"

	"github.com/tarunaws/psl-media-sub003/internal/core/cor"
	"github.com/tarunaws/psl-media-sub003/internal/core/model"
)

// MetadataCompiler renders a content item into its embedding document.
type MetadataCompiler struct {
	cor.BaseCommand
}

// NewMetadataCompiler creates the compilation command.
func NewMetadataCompiler(name string) *MetadataCompiler {
	cmd := &MetadataCompiler{BaseCommand: *cor.NewBaseCommand(name)}
	cmd.InputParam = GetContentItemParameterName()
	cmd.OutputParam = GetMetadataDocParameterName()
	return cmd
}

// Execute compiles the document and places it in the context.
func (c *MetadataCompiler) Execute(context cor.Context) {
	item := context.Get(c.GetInputParam()).(*model.ContentItem)
	doc := CompileMetadataDocument(item)
	context.Add(c.GetOutputParam(), doc)
	context.Add(cor.CtxOut, doc)
}

// CompileMetadataDocument renders the item's searchable signals in a fixed
// section order: title, description, transcript, visual labels, on-screen
// text, emotions. Empty sections still emit their label line with an empty
// value rather than being omitted.
func CompileMetadataDocument(item *model.ContentItem) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", item.Title)
	fmt.Fprintf(&b, "%s\n", item.Description)
	fmt.Fprintf(&b, "Transcript: %s\n", item.Transcript)
	fmt.Fprintf(&b, "Visual elements: %s\n", strings.Join(item.Labels, ", "))
	fmt.Fprintf(&b, "Text in video: %s\n", strings.Join(item.OnScreenText, ", "))
	fmt.Fprintf(&b, "Emotions detected: %s\n", strings.Join(item.Emotions, ", "))
	return b.String()
}
