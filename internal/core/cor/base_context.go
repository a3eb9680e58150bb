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

package cor

import (
	"context"
	"log/slog"
	"os"
)

// BaseContext is the default Context implementation. It holds the execution's
// key/value data, the per-command error map, and the temp files to be removed
// when the execution finishes.
type BaseContext struct {
	ctx       context.Context
	data      map[string]interface{}
	errors    map[string]error
	tempFiles []string
}

// NewBaseContext creates an empty execution context rooted at ctx.
func NewBaseContext(ctx context.Context) *BaseContext {
	return &BaseContext{
		ctx:       ctx,
		data:      make(map[string]interface{}),
		errors:    make(map[string]error),
		tempFiles: make([]string, 0),
	}
}

func (b *BaseContext) SetContext(ctx context.Context) {
	b.ctx = ctx
}

func (b *BaseContext) GetContext() context.Context {
	if b.ctx == nil {
		return context.Background()
	}
	return b.ctx
}

func (b *BaseContext) Add(key string, value interface{}) Context {
	b.data[key] = value
	return b
}

func (b *BaseContext) Get(key string) interface{} {
	return b.data[key]
}

func (b *BaseContext) Remove(key string) {
	delete(b.data, key)
}

func (b *BaseContext) AddError(key string, err error) {
	b.errors[key] = err
}

func (b *BaseContext) GetErrors() map[string]error {
	return b.errors
}

func (b *BaseContext) HasErrors() bool {
	return len(b.errors) > 0
}

func (b *BaseContext) AddTempFile(file string) {
	b.tempFiles = append(b.tempFiles, file)
}

func (b *BaseContext) GetTempFiles() []string {
	return b.tempFiles
}

// Close removes every registered temp file. Missing files are ignored; any
// other removal failure is logged and skipped so cleanup always runs to the
// end of the list.
func (b *BaseContext) Close() {
	for _, file := range b.tempFiles {
		if err := os.Remove(file); err != nil && !os.IsNotExist(err) {
			slog.Warn("failed to remove temp file", "file", file, "error", err)
		}
	}
	b.tempFiles = b.tempFiles[:0]
}
