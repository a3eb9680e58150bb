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
// shared context parameter names that let commands in an ingestion chain find
// the artifacts produced by earlier steps without being wired to each other
// directly.
package commands

// GetContentItemParameterName returns the context key holding the ContentItem
// being assembled by the current ingestion run.
func GetContentItemParameterName() string { return "__CONTENT_ITEM__" }

// GetLocalVideoParameterName returns the context key holding the local path
// of the downloaded source video.
func GetLocalVideoParameterName() string { return "__LOCAL_VIDEO__" }

// GetFrameSamplesParameterName returns the context key holding the sampled
// frames extracted from the source video.
func GetFrameSamplesParameterName() string { return "__FRAME_SAMPLES__" }

// GetFrameResultsParameterName returns the context key holding the per-frame
// analysis outcomes.
func GetFrameResultsParameterName() string { return "__FRAME_RESULTS__" }

// GetMetadataDocParameterName returns the context key holding the compiled
// metadata document used for embedding.
func GetMetadataDocParameterName() string { return "__METADATA_DOC__" }
