// Package radixpath decomposes a target dimension index into a path of
// child-slot indices over a fixed powers-of-four table.
package radixpath

import "errors"

// ErrInvalidDimensionDelta is returned when a path is requested for a
// negative delta, or largest_power_of_4_at_most is asked about zero.
var ErrInvalidDimensionDelta = errors.New("radixpath: target dimension is below base dimension")

// Powers is the fixed powers-of-four table. A child at slot i of a node
// with dimension d represents dimension d+Powers[i].
var Powers = [8]uint32{1, 4, 16, 64, 256, 1024, 4096, 16384}

// Width is len(Powers): the number of a tree node's child slots that a path
// can address.
const Width = len(Powers)

// LargestPowerOfFourAtMost returns the index into Powers and the value of
// the greatest power of four not exceeding n. n must be >= 1.
func LargestPowerOfFourAtMost(n uint32) (int, uint32, error) {
	if n == 0 {
		return 0, 0, ErrInvalidDimensionDelta
	}
	for i := len(Powers) - 1; i >= 0; i-- {
		if Powers[i] <= n {
			return i, Powers[i], nil
		}
	}
	// Unreachable: Powers[0] == 1 <= any n >= 1.
	return 0, 0, ErrInvalidDimensionDelta
}

// Path decomposes (target - base) into a greedy, largest-power-first
// sequence of child-slot indices. Requires target >= base; for target ==
// base it returns an empty path. The decomposition is deterministic: the
// tree's shape depends on it, so implementations must match it exactly.
func Path(target, base uint32) ([]int, error) {
	if target < base {
		return nil, ErrInvalidDimensionDelta
	}
	remaining := target - base
	var path []int
	for remaining > 0 {
		idx, p, err := LargestPowerOfFourAtMost(remaining)
		if err != nil {
			return nil, err
		}
		path = append(path, idx)
		remaining -= p
	}
	return path, nil
}
