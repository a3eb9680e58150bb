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
// sources. This file centralizes the BigQuery SQL query strings used by the
// durable index. The queries use fmt.Sprintf format verbs as placeholders for
// the fully qualified table name; item identifiers are always bound as query
// parameters, never interpolated.
package services

const (
	// QryScanContent streams every indexed content record, oldest first. It is
	// run once at startup to rebuild the in-memory mirror, and again whenever
	// the mirror must be reconciled with the durable layer.
	QryScanContent = "SELECT * FROM `%s` ORDER BY created_at ASC"

	// QryFindContentById retrieves a single content record by its unique ID.
	QryFindContentById = "SELECT * FROM `%s` WHERE id = @id"

	// QryDeleteContentById removes a single content record by its unique ID.
	// Streaming-buffer rows cannot be deleted by DML; callers treat that
	// failure like any other durable-layer error.
	QryDeleteContentById = "DELETE FROM `%s` WHERE id = @id"
)
