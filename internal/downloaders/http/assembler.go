package fetchhttp

import (
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/tanq16/fetcher/internal/utils"
)

// Assemble writes the chunk payloads of plan to outputPath in index order.
// Data goes to a sibling temp file that is renamed into place only when
// complete; on any failure the temp file is removed and outputPath is left
// untouched.
func Assemble(set utils.ChunkSet, plan []utils.ChunkSpec, outputPath string) (int64, error) {
	for i, chunk := range plan {
		if chunk.Index != i {
			panic(fmt.Sprintf("chunk plan out of order: position %d holds chunk %d", i, chunk.Index))
		}
		data, ok := set[i]
		if !ok {
			return 0, fmt.Errorf("%w: chunk %d", utils.ErrChunkGap, i)
		}
		if int64(len(data)) != chunk.Size() {
			return 0, fmt.Errorf("%w: chunk %d has %d bytes, want %d", utils.ErrChunkGap, i, len(data), chunk.Size())
		}
	}

	tempPath := utils.TempPath(outputPath)
	if err := os.Remove(tempPath); err != nil && !os.IsNotExist(err) {
		return 0, &AssemblyError{Path: tempPath, Op: "removing stale", Err: err}
	}
	destFile, err := os.OpenFile(tempPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		return 0, &AssemblyError{Path: tempPath, Op: "creating", Err: err}
	}
	completed := false
	defer func() {
		if !completed {
			destFile.Close()
			os.Remove(tempPath)
		}
	}()

	var totalWritten int64
	for i := range plan {
		written, err := destFile.Write(set[i])
		totalWritten += int64(written)
		if err != nil {
			return 0, &AssemblyError{Path: tempPath, Op: "writing", Err: err}
		}
	}
	if totalWritten != planSize(plan) {
		return 0, &AssemblyError{Path: tempPath, Op: "writing", Err: fmt.Errorf("wrote %d bytes, expected %d", totalWritten, planSize(plan))}
	}
	if err := destFile.Sync(); err != nil {
		return 0, &AssemblyError{Path: tempPath, Op: "syncing", Err: err}
	}
	if err := destFile.Close(); err != nil {
		return 0, &AssemblyError{Path: tempPath, Op: "closing", Err: err}
	}
	if err := os.Rename(tempPath, outputPath); err != nil {
		return 0, &AssemblyError{Path: outputPath, Op: "finalizing", Err: err}
	}
	completed = true
	log.Debug().Str("op", "http/assembler").Int64("totalBytes", totalWritten).Str("outputFile", outputPath).Msg("File assembly completed")
	return totalWritten, nil
}
