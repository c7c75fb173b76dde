package app

import (
	"fmt"

	"gp-gam-emulation/internal/domain"
)

// PlanChunks splits [0, totalRows) into ascending contiguous ranges of
// chunkSize rows; the last range may be shorter.
func PlanChunks(totalRows, chunkSize int) ([]domain.Chunk, error) {
	if totalRows < 0 {
		return nil, fmt.Errorf("%w: total rows %d < 0", domain.ErrInvalidArgument, totalRows)
	}
	if chunkSize <= 0 {
		return nil, fmt.Errorf("%w: chunk size %d <= 0", domain.ErrInvalidArgument, chunkSize)
	}

	count := (totalRows + chunkSize - 1) / chunkSize
	chunks := make([]domain.Chunk, 0, count)
	for start := 0; start < totalRows; start += chunkSize {
		chunks = append(chunks, domain.Chunk{Start: start, End: min(start+chunkSize, totalRows)})
	}
	return chunks, nil
}
