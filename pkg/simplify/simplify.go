// Package simplify implements triangle mesh decimation by edge collapse and
// by vertex clustering.
package simplify

import (
	"errors"
	"fmt"
)

// Configuration errors.
var (
	ErrConfig            = errors.New("invalid simplification config")
	ErrInvalidRatio      = fmt.Errorf("%w: reduction ratio must be in (0, 1]", ErrConfig)
	ErrInvalidCellLength = fmt.Errorf("%w: cell length out of range", ErrConfig)
)

// ValidateRatio checks an edge collapse reduction ratio.
func ValidateRatio(ratio float64) error {
	// NaN fails both comparisons.
	if !(ratio > 0 && ratio <= 1) {
		return fmt.Errorf("%w: got %v", ErrInvalidRatio, ratio)
	}
	return nil
}
