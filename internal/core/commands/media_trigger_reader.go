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
// entry command of the event-driven ingestion path: it parses a GCS object
// notification delivered over Pub/Sub into the internal GCSObject the rest of
// the chain works with. Non-video objects are rejected here, before anything
// is downloaded.
package commands

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tarunaws/psl-media-sub003/internal/cloud"
	"github.com/tarunaws/psl-media-sub003/internal/core/cor"
)

// Metadata keys an uploader may attach to the GCS object.
const (
	MetadataTitleKey       = "title"
	MetadataDescriptionKey = "description"
	MetadataItemIdKey      = "item-id"
)

// MediaTriggerReader converts a GCS Pub/Sub notification payload into a
// GCSObject for the ingestion chain.
type MediaTriggerReader struct {
	cor.BaseCommand
}

// NewMediaTriggerReader creates the trigger parsing command.
func NewMediaTriggerReader(name string) *MediaTriggerReader {
	return &MediaTriggerReader{BaseCommand: *cor.NewBaseCommand(name)}
}

// Execute parses the notification JSON and validates the object type.
func (c *MediaTriggerReader) Execute(context cor.Context) {
	payload := context.Get(c.GetInputParam()).(string)

	notification := &cloud.GCSPubSubNotification{}
	if err := json.Unmarshal([]byte(payload), notification); err != nil {
		context.AddError(c.GetName(), fmt.Errorf("unparseable gcs notification: %w", err))
		return
	}
	if notification.Bucket == "" || notification.Name == "" {
		context.AddError(c.GetName(), fmt.Errorf("gcs notification missing bucket or object name"))
		return
	}
	if !strings.HasPrefix(notification.ContentType, "video/") {
		context.AddError(c.GetName(), fmt.Errorf("object %s is %q, not a video", notification.Name, notification.ContentType))
		return
	}

	obj := &cloud.GCSObject{
		Bucket:      notification.Bucket,
		Name:        notification.Name,
		MIMEType:    notification.ContentType,
		Title:       metadataString(notification.MetaData, MetadataTitleKey),
		Description: metadataString(notification.MetaData, MetadataDescriptionKey),
		ItemId:      metadataString(notification.MetaData, MetadataItemIdKey),
	}

	context.Add(cloud.GetGCSObjectName(), obj)
	context.Add(cor.CtxOut, obj)
}

func metadataString(metadata map[string]interface{}, key string) string {
	if metadata == nil {
		return ""
	}
	if v, ok := metadata[key].(string); ok {
		return v
	}
	return ""
}
