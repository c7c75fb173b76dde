package app

import (
	"fmt"

	"gp-gam-emulation/internal/domain"
)

// RowCapPolicy limits how many leading rows of a stored sample a stage uses.
type RowCapPolicy struct {
	UseAll bool
	Cap    int
}

// Rows returns min(Cap, available), or available when UseAll is set.
// It fails when fewer than required rows are available.
func (p RowCapPolicy) Rows(available, required int) (int, error) {
	if available < required {
		return 0, fmt.Errorf("%w: %d rows available, %d required", domain.ErrInsufficientData, available, required)
	}
	if p.UseAll {
		return available, nil
	}
	if p.Cap <= 0 {
		return 0, fmt.Errorf("%w: row cap %d <= 0", domain.ErrInvalidArgument, p.Cap)
	}
	return min(p.Cap, available), nil
}

// Limit is how many leading sample rows a loader has to read so that Rows
// can decide; 0 means the whole sample.
func (p RowCapPolicy) Limit(required int) int {
	if p.UseAll {
		return 0
	}
	return max(p.Cap, required)
}

// Required is the minimum row count the GAM stage asks for: the cap itself
// unless every row is used.
func (p RowCapPolicy) Required() int {
	if p.UseAll {
		return 0
	}
	return p.Cap
}
