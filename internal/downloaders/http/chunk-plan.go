package fetchhttp

import (
	"fmt"

	"github.com/tanq16/fetcher/internal/utils"
)

// Plan splits totalSize bytes into chunkCount contiguous inclusive ranges.
// Every chunk gets totalSize/chunkCount bytes; the last one also takes the
// remainder.
func Plan(totalSize int64, chunkCount int) ([]utils.ChunkSpec, error) {
	if chunkCount < 1 || totalSize < int64(chunkCount) {
		return nil, fmt.Errorf("%w: %d bytes over %d chunks", utils.ErrPlanTooSmall, totalSize, chunkCount)
	}
	chunkSize := totalSize / int64(chunkCount)
	plan := make([]utils.ChunkSpec, 0, chunkCount)
	for i := range chunkCount {
		startByte := int64(i) * chunkSize
		endByte := startByte + chunkSize - 1
		if i == chunkCount-1 {
			endByte = totalSize - 1
		}
		plan = append(plan, utils.ChunkSpec{Index: i, Start: startByte, End: endByte})
	}
	return plan, nil
}

func planSize(plan []utils.ChunkSpec) int64 {
	if len(plan) == 0 {
		return 0
	}
	return plan[len(plan)-1].End + 1
}
