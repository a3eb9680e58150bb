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
// command that opens an ingestion run: it creates the ContentItem that every
// later step populates. Items that never reach persistence simply vanish with
// the run.
package commands

import (
	"path"
	"strings"

	"github.com/tarunaws/psl-media-sub003/internal/cloud"
	"github.com/tarunaws/psl-media-sub003/internal/core/cor"
	"github.com/tarunaws/psl-media-sub003/internal/core/model"
)

// ItemBuilder creates the content item for the triggering GCS object.
type ItemBuilder struct {
	cor.BaseCommand
}

// NewItemBuilder creates the item construction command.
func NewItemBuilder(name string) *ItemBuilder {
	cmd := &ItemBuilder{BaseCommand: *cor.NewBaseCommand(name)}
	cmd.InputParam = cloud.GetGCSObjectName()
	cmd.OutputParam = GetContentItemParameterName()
	return cmd
}

// Execute builds the item and stores it under the content item key, where
// every later step of the chain finds it. An id pre-assigned by the upload
// API wins over a freshly minted one, so the id the uploader was handed is
// the id the finished item carries.
func (c *ItemBuilder) Execute(context cor.Context) {
	obj := context.Get(c.GetInputParam()).(*cloud.GCSObject)

	title := obj.Title
	if title == "" {
		title = TitleFromObjectName(obj.Name)
	}

	item := model.NewContentItem(title, obj.Description, obj.URI())
	if obj.ItemId != "" {
		item.Id = obj.ItemId
	}
	context.Add(c.GetOutputParam(), item)
	context.Add(cor.CtxOut, item)
}

// TitleFromObjectName derives a display title from a storage object name:
// the base name without its extension, with separators opened up into spaces.
func TitleFromObjectName(name string) string {
	base := path.Base(name)
	base = strings.TrimSuffix(base, path.Ext(base))
	base = strings.NewReplacer("_", " ", "-", " ").Replace(base)
	return strings.TrimSpace(base)
}
