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
// Responsibility (COR) pattern's Command interface. This file wraps the
// FFmpeg and FFprobe command line tools behind the MediaToolkit interface.
// The pipeline commands depend only on the interface, so tests substitute a
// fake and never shell out.
//
// FFmpeg is particular about file extensions, so the toolkit detects the real
// container type of ambiguous inputs with the filetype library and renames
// its working copies accordingly before invoking the tool.
package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"github.com/h2non/filetype"
)

// Constants used for media tool execution.
const (
	TempFilePrefix   = "media-ingest-"
	CommandSeparator = " "

	// ffprobeDurationArgs prints the container duration in seconds as a bare
	// decimal on stdout.
	ffprobeDurationArgs = "-v error -show_entries format=duration -of default=noprint_wrappers=1:nokey=1 %s"

	// ffmpegFrameArgs seeks to a timestamp and writes a single JPEG frame.
	// Seeking before -i is fast because it uses container keyframe indexes.
	ffmpegFrameArgs = "-y -hide_banner -loglevel error -ss %s -i %s -frames:v 1 -q:v 2 -f image2 %s"

	// ffmpegAudioArgs strips the video stream and writes 16 kHz mono PCM, the
	// input format the transcription models expect.
	ffmpegAudioArgs = "-y -hide_banner -loglevel error -i %s -vn -acodec pcm_s16le -ar 16000 -ac 1 -f wav %s"
)

// MediaToolkit abstracts the local media tooling the pipeline needs.
type MediaToolkit interface {
	// Duration returns the length of the media file in seconds.
	Duration(ctx context.Context, path string) (float64, error)

	// ExtractFrame writes the frame at the given offset as an encoded JPEG
	// and returns its bytes.
	ExtractFrame(ctx context.Context, path string, offsetSeconds float64) ([]byte, error)

	// ExtractAudio writes the audio track as a WAV file and returns its path.
	// The caller owns the returned file.
	ExtractAudio(ctx context.Context, path string) (string, error)
}

// FFmpegToolkit implements MediaToolkit by shelling out to ffmpeg and ffprobe.
type FFmpegToolkit struct {
	FFmpegPath  string // Path to the ffmpeg executable.
	FFprobePath string // Path to the ffprobe executable.
}

// NewFFmpegToolkit creates a toolkit using executables found on PATH.
func NewFFmpegToolkit() *FFmpegToolkit {
	return &FFmpegToolkit{FFmpegPath: "ffmpeg", FFprobePath: "ffprobe"}
}

// Duration probes the media file for its container duration.
func (t *FFmpegToolkit) Duration(ctx context.Context, path string) (float64, error) {
	args := fmt.Sprintf(ffprobeDurationArgs, path)
	out, err := exec.CommandContext(ctx, t.FFprobePath, strings.Split(args, CommandSeparator)...).Output()
	if err != nil {
		return 0, fmt.Errorf("ffprobe failed for %s: %w", path, err)
	}
	duration, err := strconv.ParseFloat(strings.TrimSpace(string(out)), 64)
	if err != nil {
		return 0, fmt.Errorf("ffprobe returned unparseable duration %q: %w", string(out), err)
	}
	if duration <= 0 {
		return 0, fmt.Errorf("ffprobe reported non-positive duration %f for %s", duration, path)
	}
	return duration, nil
}

// ExtractFrame writes one JPEG frame at the requested offset to a temp file,
// reads it back, and removes the temp file before returning.
func (t *FFmpegToolkit) ExtractFrame(ctx context.Context, path string, offsetSeconds float64) ([]byte, error) {
	tempFile, err := os.CreateTemp("", TempFilePrefix+"frame-*.jpg")
	if err != nil {
		return nil, err
	}
	_ = tempFile.Close()
	defer func() { _ = os.Remove(tempFile.Name()) }()

	offset := strconv.FormatFloat(offsetSeconds, 'f', 3, 64)
	args := fmt.Sprintf(ffmpegFrameArgs, offset, path, tempFile.Name())
	cmd := exec.CommandContext(ctx, t.FFmpegPath, strings.Split(args, CommandSeparator)...)
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("ffmpeg frame extraction failed at %ss: %w", offset, err)
	}
	return os.ReadFile(tempFile.Name())
}

// ExtractAudio writes the audio track to a temp WAV file and returns its path.
func (t *FFmpegToolkit) ExtractAudio(ctx context.Context, path string) (string, error) {
	tempFile, err := os.CreateTemp("", TempFilePrefix+"audio-*.wav")
	if err != nil {
		return "", err
	}
	_ = tempFile.Close()

	args := fmt.Sprintf(ffmpegAudioArgs, path, tempFile.Name())
	cmd := exec.CommandContext(ctx, t.FFmpegPath, strings.Split(args, CommandSeparator)...)
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		_ = os.Remove(tempFile.Name())
		return "", fmt.Errorf("ffmpeg audio extraction failed for %s: %w", path, err)
	}
	return tempFile.Name(), nil
}

// NormalizeExtension copies a file whose extension does not match its real
// container type into a sibling with the detected extension, returning the
// path FFmpeg should read. Files whose extension already matches are returned
// unchanged.
func NormalizeExtension(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer func() { _ = f.Close() }()

	head := make([]byte, 261)
	n, err := f.Read(head)
	if err != nil && err != io.EOF {
		return "", err
	}
	kind, err := filetype.Match(head[:n])
	if err != nil || kind == filetype.Unknown {
		return path, nil
	}
	if strings.HasSuffix(path, "."+kind.Extension) {
		return path, nil
	}

	renamed := path + "." + kind.Extension
	src, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer func() { _ = src.Close() }()
	dst, err := os.Create(renamed)
	if err != nil {
		return "", err
	}
	defer func() { _ = dst.Close() }()
	if _, err := io.Copy(dst, src); err != nil {
		return "", err
	}
	return renamed, nil
}
