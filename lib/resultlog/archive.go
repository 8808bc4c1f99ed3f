// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package resultlog

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"

	"github.com/bureau-foundation/fmtbot/lib/pipeline"
)

// OutputFile is the archive name inside a run's directory.
const OutputFile = "output.log.zst"

// zstdEncoder and zstdDecoder are shared; both are safe for concurrent
// use with EncodeAll/DecodeAll.
var (
	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
)

func init() {
	var err error
	zstdEncoder, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		panic("resultlog: zstd encoder initialization failed: " + err.Error())
	}
	zstdDecoder, err = zstd.NewReader(nil)
	if err != nil {
		panic("resultlog: zstd decoder initialization failed: " + err.Error())
	}
}

// Archive stores formatter output under a results directory.
type Archive struct {
	dir    string
	logger *slog.Logger
}

var _ pipeline.Observer = (*Archive)(nil)

// NewArchive returns an Archive rooted at dir.
func NewArchive(dir string, logger *slog.Logger) *Archive {
	return &Archive{dir: dir, logger: logger}
}

// Path returns where the output of runID is stored.
func (archive *Archive) Path(runID string) string {
	return filepath.Join(archive.dir, runID, OutputFile)
}

// Write compresses output and stores it for runID.
func (archive *Archive) Write(runID string, output []byte) (string, error) {
	path := archive.Path(runID)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", fmt.Errorf("creating run directory: %w", err)
	}
	if err := os.WriteFile(path, zstdEncoder.EncodeAll(output, nil), 0644); err != nil {
		return "", fmt.Errorf("writing output archive: %w", err)
	}
	return path, nil
}

// ReadOutput decompresses an archive written by Write.
func ReadOutput(path string) ([]byte, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening output archive: %w", err)
	}
	defer file.Close()

	compressed, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("reading output archive: %w", err)
	}
	output, err := zstdDecoder.DecodeAll(compressed, nil)
	if err != nil {
		return nil, fmt.Errorf("decompressing output archive: %w", err)
	}
	return output, nil
}

func (archive *Archive) RunStarted(*pipeline.Run) {}

func (archive *Archive) Transitioned(*pipeline.Run, pipeline.State, pipeline.State) {}

// RunFinished archives the run's output. Runs that never reached the
// formatter have nothing to store.
func (archive *Archive) RunFinished(run *pipeline.Run) {
	if run.Output == "" {
		return
	}
	path, err := archive.Write(run.ID, []byte(run.Output))
	if err != nil {
		archive.logger.Warn("failed to archive formatter output", "run_id", run.ID, "error", err)
		return
	}
	archive.logger.Debug("formatter output archived", "run_id", run.ID, "path", path)
}
