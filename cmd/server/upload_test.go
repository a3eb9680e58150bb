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

package main

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

// TestStageMultipartFileReturnsCompleteContent uploads a payload large enough
// that a single Read on the multipart part would return early, and verifies
// the staged bytes match the original exactly. A truncated video here would
// be silently indexed from partial content.
func TestStageMultipartFileReturnsCompleteContent(t *testing.T) {
	payload := make([]byte, 2<<20)
	for i := range payload {
		payload[i] = byte(i % 251)
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("files", "staging-check.mp4")
	assert.NoError(t, err)
	_, err = part.Write(payload)
	assert.NoError(t, err)
	assert.NoError(t, writer.Close())

	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodPost, "/api/v1/uploads", &body)
	c.Request.Header.Set("Content-Type", writer.FormDataContentType())

	form, err := c.MultipartForm()
	assert.NoError(t, err)
	files := form.File["files"]
	assert.Equal(t, 1, len(files))

	content, err := stageMultipartFile(c, files[0])
	assert.NoError(t, err)
	assert.Equal(t, len(payload), len(content))
	assert.True(t, bytes.Equal(payload, content))
}
