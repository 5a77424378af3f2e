package partition

import (
	"errors"
	"fmt"
)

// ErrProblemTooSmall is returned when there are too few items to form groups of 4 or 5
var ErrProblemTooSmall = errors.New("problem too small to partition")

// ErrInconsistentPartition is returned when decoded groups do not exactly cover a permutation
var ErrInconsistentPartition = errors.New("inconsistent partition")

// TooSmallError describes why a problem size cannot be partitioned
type TooSmallError struct {
	N         int
	Remainder int
	Required  int // minimum item count the remainder branch needs
}

func (e *TooSmallError) Error() string {
	return fmt.Sprintf("%s: %d items (remainder %d) need at least %d", ErrProblemTooSmall, e.N, e.Remainder, e.Required)
}

func (e *TooSmallError) Is(target error) bool {
	return target == ErrProblemTooSmall
}

func inconsistent(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInconsistentPartition, fmt.Sprintf(format, args...))
}
