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
	"context"
	"errors"
	"log"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/h2non/filetype"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/tarunaws/psl-media-sub003/internal/cloud"
	"github.com/tarunaws/psl-media-sub003/internal/core/commands"
	"github.com/tarunaws/psl-media-sub003/internal/core/model"
	"github.com/tarunaws/psl-media-sub003/internal/telemetry"
)

func main() {
	telemetry.SetupLogging()
	slog.Info("Logging initialized")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	config := GetConfig()

	shutdownTelemetry, err := telemetry.SetupOpenTelemetry(ctx, config)
	if err != nil {
		slog.Error("Failed to setup OpenTelemetry", "error", err)
		log.Fatal(err)
	}
	slog.Info("Tracing initialized")

	InitState(ctx)
	slog.Info("Initialized State")

	r := gin.Default()
	r.Use(otelgin.Middleware(config.Application.Name))
	r.Use(cors.Default())

	apiV1 := r.Group("/api/v1")
	{
		MediaRouter(apiV1)
		FileUpload(apiV1)
	}

	srv := &http.Server{
		Addr:    ":8080",
		Handler: r,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("failed to listen", "error", err)
		}
	}()
	slog.Info("Server Ready on port 8080")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("Shutdown Server ...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server Shutdown Failed", "error", err)
	}
	if err := shutdownTelemetry(shutdownCtx); err != nil {
		slog.Error("Telemetry Shutdown Failed", "error", err)
	}

	log.Println("Server exiting")
}

// MediaRouter sets up the routes for browsing, searching, streaming, and
// managing indexed content.
func MediaRouter(r *gin.RouterGroup) {
	media := r.Group("/media")
	{
		// GET /media lists the index; GET /media?s=<query> searches it.
		// Search results below the configured relevance floor are dropped
		// here, at the API edge, so the ranking service stays floor-agnostic.
		media.GET("", func(c *gin.Context) {
			query := c.Query("s")
			if query == "" {
				c.JSON(http.StatusOK, state.mediaService.List())
				return
			}

			count, err := strconv.Atoi(c.DefaultQuery("count", strconv.Itoa(state.config.Search.DefaultResultCount)))
			if err != nil || count < 1 {
				count = state.config.Search.DefaultResultCount
			}

			results, err := state.searchService.Search(c.Request.Context(), query, count)
			if err != nil {
				var inputErr *model.SearchInputError
				if errors.As(err, &inputErr) {
					c.JSON(http.StatusBadRequest, gin.H{"error": inputErr.Error()})
					return
				}
				slog.Error("search failed", "query", query, "error", err)
				c.Status(http.StatusInternalServerError)
				return
			}

			floored := make([]*model.SearchResult, 0, len(results))
			for _, result := range results {
				if result.Score >= state.config.Search.ScoreFloor {
					floored = append(floored, result)
				}
			}
			c.JSON(http.StatusOK, floored)
		})

		media.GET("/:id", func(c *gin.Context) {
			out, err := state.mediaService.Get(c.Param("id"))
			if err != nil {
				c.Status(http.StatusNotFound)
				return
			}
			c.JSON(http.StatusOK, out)
		})

		media.GET("/:id/status", func(c *gin.Context) {
			status, ok := state.statusRegistry.Get(c.Param("id"))
			if !ok {
				c.Status(http.StatusNotFound)
				return
			}
			c.JSON(http.StatusOK, status)
		})

		media.POST("/:id/cancel", func(c *gin.Context) {
			if !state.statusRegistry.Cancel(c.Param("id")) {
				c.Status(http.StatusNotFound)
				return
			}
			c.Status(http.StatusAccepted)
		})

		media.GET("/:id/thumbnail", func(c *gin.Context) {
			item, err := state.mediaService.Get(c.Param("id"))
			if err != nil {
				c.Status(http.StatusNotFound)
				return
			}
			if len(item.Thumbnail) == 0 {
				c.Status(http.StatusNoContent)
				return
			}
			c.Data(http.StatusOK, "image/jpeg", item.Thumbnail)
		})

		// Generate a signed URL valid for 15 minutes to stream the source.
		media.GET("/:id/stream", func(c *gin.Context) {
			signedURL, err := state.mediaService.GenerateSignedURL(c.Request.Context(), c.Param("id"), 15*time.Minute)
			if err != nil {
				if err == model.ErrNotFound {
					c.JSON(http.StatusNotFound, gin.H{"error": "media not found"})
					return
				}
				slog.Error("failed to sign streaming url", "id", c.Param("id"), "error", err)
				c.JSON(http.StatusInternalServerError, gin.H{"error": "could not generate streaming URL"})
				return
			}
			c.JSON(http.StatusOK, gin.H{"url": signedURL})
		})

		media.DELETE("/:id", func(c *gin.Context) {
			err := state.mediaService.Delete(c.Request.Context(), c.Param("id"))
			if err != nil {
				if err == model.ErrNotFound {
					c.Status(http.StatusNotFound)
					return
				}
				slog.Error("delete failed", "id", c.Param("id"), "error", err)
				c.Status(http.StatusInternalServerError)
				return
			}
			c.Status(http.StatusNoContent)
		})
	}
}

// FileUpload sets up the route for handling media uploads. Each file is
// staged locally, validated, and written to the media bucket with its title,
// description, and a freshly minted item id attached as object metadata.
// Ingestion starts immediately and the response carries the item id per file,
// so callers can poll /media/:id/status right away. The bucket's finalize
// notification fires for the same object with the same id and is suppressed
// as a duplicate run.
func FileUpload(r *gin.RouterGroup) {
	upload := r.Group("/uploads")
	{
		upload.POST("", func(c *gin.Context) {
			form, err := c.MultipartForm()
			if err != nil {
				c.String(http.StatusBadRequest, "get form err: %s", err.Error())
				return
			}
			files := form.File["files"]
			title := c.PostForm("title")
			description := c.PostForm("description")
			bucket := state.cloud.StorageClient.Bucket(state.config.Storage.MediaBucket)

			accepted := make([]gin.H, 0, len(files))
			for _, file := range files {
				content, err := stageMultipartFile(c, file)
				if err != nil {
					c.String(http.StatusBadRequest, "upload file err: %s", err.Error())
					return
				}

				// Reject anything that is not actually a video, whatever the
				// file name claims.
				if !filetype.IsVideo(content) {
					c.String(http.StatusUnsupportedMediaType, "file %s is not a video", file.Filename)
					return
				}
				kind, _ := filetype.Match(content)

				itemId := uuid.NewString()
				wc := bucket.Object(file.Filename).NewWriter(c.Request.Context())
				wc.ContentType = kind.MIME.Value
				wc.Metadata = map[string]string{
					commands.MetadataTitleKey:       title,
					commands.MetadataDescriptionKey: description,
					commands.MetadataItemIdKey:      itemId,
				}
				if _, err = wc.Write(content); err != nil {
					c.String(http.StatusInternalServerError, "write file to bucket err: %s", err.Error())
					return
				}
				if err := wc.Close(); err != nil {
					slog.Error("failed to close bucket handle", "error", err)
					c.Status(http.StatusInternalServerError)
					return
				}

				// The ingestion outlives this request, so it runs under its
				// own context rather than the request's.
				state.ingestion.Start(context.Background(), &cloud.GCSObject{
					Bucket:      state.config.Storage.MediaBucket,
					Name:        file.Filename,
					MIMEType:    kind.MIME.Value,
					Title:       title,
					Description: description,
					ItemId:      itemId,
				})
				accepted = append(accepted, gin.H{"file": file.Filename, "item_id": itemId})
			}
			c.JSON(http.StatusAccepted, accepted)
		})
	}
}

// stageMultipartFile copies one uploaded file into the local temp directory,
// reads the staged copy back in full, and removes it. Staging through the
// filesystem and os.ReadFile returns the complete upload regardless of how
// the multipart reader chunks its data.
func stageMultipartFile(c *gin.Context, file *multipart.FileHeader) ([]byte, error) {
	localPath := filepath.Join(os.TempDir(), file.Filename)
	if err := c.SaveUploadedFile(file, localPath); err != nil {
		return nil, err
	}
	content, err := os.ReadFile(localPath)
	if err != nil {
		return nil, err
	}
	if err := os.Remove(localPath); err != nil {
		slog.Warn("failed to remove staged upload", "path", localPath, "error", err)
	}
	return content, nil
}
