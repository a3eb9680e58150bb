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

// Package commands_test contains unit tests for the pipeline commands. This
// file tests the ingestion entry point: parsing the GCS notification, the
// non-video rejection, and title derivation for untitled uploads.
package commands_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tarunaws/psl-media-sub003/internal/cloud"
	"github.com/tarunaws/psl-media-sub003/internal/core/commands"
	"github.com/tarunaws/psl-media-sub003/internal/core/cor"
	"github.com/tarunaws/psl-media-sub003/internal/core/model"
	test "github.com/tarunaws/psl-media-sub003/internal/testutil"
)

// TestMediaTriggerReaderParsesNotification feeds the reader the canned
// upload notification and checks the object reference, including the title
// and description carried in the object metadata.
func TestMediaTriggerReaderParsesNotification(t *testing.T) {
	reader := commands.NewMediaTriggerReader("read-media-trigger")
	chainCtx := cor.NewBaseContext(context.Background())
	chainCtx.Add(cor.CtxIn, test.GetTestUploadMessageText())

	reader.Execute(chainCtx)

	assert.False(t, chainCtx.HasErrors())
	obj := chainCtx.Get(cloud.GetGCSObjectName()).(*cloud.GCSObject)
	assert.Equal(t, "media_index_uploads", obj.Bucket)
	assert.Equal(t, "test-trailer-001.mp4", obj.Name)
	assert.Equal(t, "video/mp4", obj.MIMEType)
	assert.Equal(t, "Test Trailer", obj.Title)
	assert.Equal(t, "A trailer used by the test suite.", obj.Description)
	assert.Equal(t, "itm-test-trailer-001", obj.ItemId)
	assert.Equal(t, "gs://media_index_uploads/test-trailer-001.mp4", obj.URI())
}

// TestMediaTriggerReaderRejectsNonVideo verifies that objects whose content
// type is not video never get past the entry command.
func TestMediaTriggerReaderRejectsNonVideo(t *testing.T) {
	reader := commands.NewMediaTriggerReader("read-media-trigger")
	chainCtx := cor.NewBaseContext(context.Background())
	chainCtx.Add(cor.CtxIn, `{"bucket":"b","name":"readme.txt","contentType":"text/plain"}`)

	reader.Execute(chainCtx)

	assert.True(t, chainCtx.HasErrors())
	assert.Nil(t, chainCtx.Get(cloud.GetGCSObjectName()))
}

func TestMediaTriggerReaderRejectsMalformedPayload(t *testing.T) {
	reader := commands.NewMediaTriggerReader("read-media-trigger")
	chainCtx := cor.NewBaseContext(context.Background())
	chainCtx.Add(cor.CtxIn, "not json")

	reader.Execute(chainCtx)
	assert.True(t, chainCtx.HasErrors())
}

// TestItemBuilderFallsBackToDerivedTitle verifies untitled uploads get a
// readable title from the object name.
func TestItemBuilderFallsBackToDerivedTitle(t *testing.T) {
	builder := commands.NewItemBuilder("build-content-item")
	chainCtx := cor.NewBaseContext(context.Background())
	chainCtx.Add(cloud.GetGCSObjectName(), &cloud.GCSObject{
		Bucket:   "b",
		Name:     "videos/summer_beach-trip.mp4",
		MIMEType: "video/mp4",
	})

	builder.Execute(chainCtx)

	item := chainCtx.Get(commands.GetContentItemParameterName()).(*model.ContentItem)
	assert.Equal(t, "summer beach trip", item.Title)
	assert.Equal(t, "gs://b/videos/summer_beach-trip.mp4", item.SourceLocation)
	assert.NotEmpty(t, item.Id)
}

// TestItemBuilderUsesPreAssignedId verifies an id carried in the object
// metadata survives onto the content item, so the upload API's id and the
// indexed record's id are the same one.
func TestItemBuilderUsesPreAssignedId(t *testing.T) {
	builder := commands.NewItemBuilder("build-content-item")
	chainCtx := cor.NewBaseContext(context.Background())
	chainCtx.Add(cloud.GetGCSObjectName(), &cloud.GCSObject{
		Bucket:   "b",
		Name:     "clip.mp4",
		MIMEType: "video/mp4",
		ItemId:   "itm-preassigned-42",
	})

	builder.Execute(chainCtx)

	item := chainCtx.Get(commands.GetContentItemParameterName()).(*model.ContentItem)
	assert.Equal(t, "itm-preassigned-42", item.Id)
}

func TestTitleFromObjectName(t *testing.T) {
	assert.Equal(t, "summer beach trip", commands.TitleFromObjectName("videos/summer_beach-trip.mp4"))
	assert.Equal(t, "clip", commands.TitleFromObjectName("clip.mov"))
	assert.Equal(t, "clip", commands.TitleFromObjectName("clip"))
}
