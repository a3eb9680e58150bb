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

// Package services contains the business logic for interacting with data
// sources. This file defines the MediaService: the read and delete surface
// over indexed content, plus generation of secure, time-limited URLs for
// streaming the original media objects out of Google Cloud Storage.
package services

import (
	"context"
	"fmt"
	"time"

	credentials "cloud.google.com/go/iam/credentials/apiv1"
	"cloud.google.com/go/storage"
	"github.com/tarunaws/psl-media-sub003/internal/cloud"
	"github.com/tarunaws/psl-media-sub003/internal/core/model"
)

// MediaService serves content reads from the index store and resolves source
// media references into signed streaming URLs.
type MediaService struct {
	Store         *IndexStore                       // The content index.
	StorageClient *storage.Client                   // Client for interacting with Google Cloud Storage.
	IAMClient     *credentials.IamCredentialsClient // Client for interacting with IAM, used for signing URLs.
	SignerEmail   string                            // The service account email used to sign URLs.
}

// List returns summaries of every indexed item, newest first.
func (s *MediaService) List() []*model.ContentSummary {
	items := s.Store.Items()
	out := make([]*model.ContentSummary, 0, len(items))
	for _, item := range items {
		out = append(out, item.Summarize())
	}
	return out
}

// Get returns the full record for one indexed item.
func (s *MediaService) Get(id string) (*model.ContentItem, error) {
	return s.Store.Get(id)
}

// Delete removes one item from the index. The original media object in GCS is
// left in place; the index never owns the source bytes.
func (s *MediaService) Delete(ctx context.Context, id string) error {
	return s.Store.Delete(ctx, id)
}

// GenerateSignedURL creates a time-limited, secure URL for the source media
// object of an indexed item, so browsers can stream video directly from GCS
// without credentials of their own. The URL is signed with the configured
// service account via the IAM Credentials API, which avoids local key files.
//
// Inputs:
//   - ctx: The context for the request.
//   - id: The indexed item whose source media should be streamed.
//   - expires: The duration for which the URL will be valid.
//
// Outputs:
//   - string: The generated signed URL.
//   - error: model.ErrNotFound for unknown ids, or the signing failure.
func (s *MediaService) GenerateSignedURL(ctx context.Context, id string, expires time.Duration) (string, error) {
	item, err := s.Store.Get(id)
	if err != nil {
		return "", err
	}

	bucketName, objectName, err := cloud.ParseGCSURI(item.SourceLocation)
	if err != nil {
		return "", fmt.Errorf("item %s has an unresolvable source location: %w", id, err)
	}

	opts := &storage.SignedURLOptions{
		Scheme:         storage.SigningSchemeV4,
		Method:         "GET",
		Expires:        time.Now().Add(expires),
		GoogleAccessID: s.SignerEmail,
	}

	u, err := s.StorageClient.Bucket(bucketName).SignedURL(objectName, opts)
	if err != nil {
		return "", fmt.Errorf("Bucket(%q).Object(%q).SignedURL: %w", bucketName, objectName, err)
	}
	return u, nil
}
