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
// command that stages a GCS object into a local temp file so the media
// toolkit can work on it. The local copy is registered with the context for
// cleanup when the run ends.
package commands

import (
	"fmt"
	"io"
	"os"

	"cloud.google.com/go/storage"
	"github.com/tarunaws/psl-media-sub003/internal/cloud"
	"github.com/tarunaws/psl-media-sub003/internal/core/cor"
)

// GCSToTempFile downloads the triggering GCS object to local disk.
type GCSToTempFile struct {
	cor.BaseCommand
	storageClient *storage.Client
}

// NewGCSToTempFile creates the download command.
func NewGCSToTempFile(name string, storageClient *storage.Client) *GCSToTempFile {
	cmd := &GCSToTempFile{
		BaseCommand:   *cor.NewBaseCommand(name),
		storageClient: storageClient,
	}
	cmd.InputParam = cloud.GetGCSObjectName()
	cmd.OutputParam = GetLocalVideoParameterName()
	return cmd
}

// Execute streams the object into a temp file and publishes its path.
func (c *GCSToTempFile) Execute(context cor.Context) {
	obj := context.Get(c.GetInputParam()).(*cloud.GCSObject)
	ctx := context.GetContext()

	reader, err := c.storageClient.Bucket(obj.Bucket).Object(obj.Name).NewReader(ctx)
	if err != nil {
		context.AddError(c.GetName(), fmt.Errorf("failed to open %s: %w", obj.URI(), err))
		return
	}
	defer func() { _ = reader.Close() }()

	tempFile, err := os.CreateTemp("", TempFilePrefix+"video-*")
	if err != nil {
		context.AddError(c.GetName(), err)
		return
	}
	context.AddTempFile(tempFile.Name())

	if _, err := io.Copy(tempFile, reader); err != nil {
		_ = tempFile.Close()
		context.AddError(c.GetName(), fmt.Errorf("failed to download %s: %w", obj.URI(), err))
		return
	}
	if err := tempFile.Close(); err != nil {
		context.AddError(c.GetName(), err)
		return
	}

	// FFmpeg keys some behavior off the extension; give the local copy the
	// extension matching its real container type.
	localPath, err := NormalizeExtension(tempFile.Name())
	if err != nil {
		context.AddError(c.GetName(), err)
		return
	}
	if localPath != tempFile.Name() {
		context.AddTempFile(localPath)
	}

	context.Add(c.GetOutputParam(), localPath)
	context.Add(cor.CtxOut, localPath)
}
