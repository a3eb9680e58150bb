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
// sources. This file defines the durable layer of the index: the interface
// the IndexStore writes through, and its BigQuery implementation. Writes use
// the streaming inserter; scans and deletes run standard SQL against the
// content table.
package services

import (
	"context"
	"fmt"
	"strings"

	"cloud.google.com/go/bigquery"
	"github.com/tarunaws/psl-media-sub003/internal/core/model"
	"google.golang.org/api/iterator"
)

// DurableIndex is the persistence boundary of the index. The IndexStore
// treats it as the source of truth: a record exists once Write returns nil,
// and stops existing once Remove returns nil.
type DurableIndex interface {
	// Write persists one complete content record.
	Write(ctx context.Context, item *model.ContentItem) error

	// Remove deletes the record with the given id. Removing an id that does
	// not exist is not an error.
	Remove(ctx context.Context, id string) error

	// Find reads one record by id, or model.ErrNotFound. The IndexStore uses
	// it to reconcile a mirror entry against the source of truth.
	Find(ctx context.Context, id string) (*model.ContentItem, error)

	// Scan streams every persisted record, for mirror rebuilds.
	Scan(ctx context.Context) ([]*model.ContentItem, error)
}

// BigQueryDurableIndex implements DurableIndex against a BigQuery table.
type BigQueryDurableIndex struct {
	Client       *bigquery.Client // Client for interacting with Google BigQuery.
	DatasetName  string           // The name of the BigQuery dataset.
	ContentTable string           // The name of the table holding content records.
}

// NewBigQueryDurableIndex creates the durable index over the configured table.
func NewBigQueryDurableIndex(client *bigquery.Client, dataset string, table string) *BigQueryDurableIndex {
	return &BigQueryDurableIndex{Client: client, DatasetName: dataset, ContentTable: table}
}

// GetFQN returns the complete, queryable name for the content table,
// formatted with dots instead of colons.
func (b *BigQueryDurableIndex) GetFQN() string {
	fqn := b.Client.Dataset(b.DatasetName).Table(b.ContentTable).FullyQualifiedName()
	return strings.Replace(fqn, ":", ".", -1)
}

// Write streams the record into the content table. The client library maps
// struct fields to table columns through the bigquery struct tags.
func (b *BigQueryDurableIndex) Write(ctx context.Context, item *model.ContentItem) error {
	ins := b.Client.Dataset(b.DatasetName).Table(b.ContentTable).Inserter()
	if err := ins.Put(ctx, item); err != nil {
		return fmt.Errorf("bigquery insert failed for item %s: %w", item.Id, err)
	}
	return nil
}

// Remove deletes the record by id with a parameterized DML statement.
func (b *BigQueryDurableIndex) Remove(ctx context.Context, id string) error {
	q := b.Client.Query(fmt.Sprintf(QryDeleteContentById, b.GetFQN()))
	q.Parameters = []bigquery.QueryParameter{{Name: "id", Value: id}}
	job, err := q.Run(ctx)
	if err != nil {
		return fmt.Errorf("bigquery delete failed for item %s: %w", id, err)
	}
	status, err := job.Wait(ctx)
	if err != nil {
		return fmt.Errorf("bigquery delete did not complete for item %s: %w", id, err)
	}
	if status.Err() != nil {
		return fmt.Errorf("bigquery delete job failed for item %s: %w", id, status.Err())
	}
	return nil
}

// Find reads the record with the given id, or model.ErrNotFound when the
// table holds no such row.
func (b *BigQueryDurableIndex) Find(ctx context.Context, id string) (*model.ContentItem, error) {
	q := b.Client.Query(fmt.Sprintf(QryFindContentById, b.GetFQN()))
	q.Parameters = []bigquery.QueryParameter{{Name: "id", Value: id}}
	itr, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("bigquery lookup failed for item %s: %w", id, err)
	}
	item := &model.ContentItem{}
	err = itr.Next(item)
	if err == iterator.Done {
		return nil, model.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read content record %s: %w", id, err)
	}
	return item, nil
}

// Scan reads every persisted record, oldest first.
func (b *BigQueryDurableIndex) Scan(ctx context.Context) ([]*model.ContentItem, error) {
	out := make([]*model.ContentItem, 0)
	q := b.Client.Query(fmt.Sprintf(QryScanContent, b.GetFQN()))
	itr, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read content table: %w", err)
	}
	for {
		item := &model.ContentItem{}
		err := itr.Next(item)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to iterate content records: %w", err)
		}
		out = append(out, item)
	}
	return out, nil
}
