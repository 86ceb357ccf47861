package tensor

import (
	"fmt"
	"strings"
)

// Shape represents the feature dimensions of a tensor, without the batch axis.
// The batch axis is prepended at buffer-allocation time.
type Shape []int

// NumElements returns the total number of elements described by the shape.
func (s Shape) NumElements() int {
	if len(s) == 0 {
		return 0
	}
	n := 1
	for _, dim := range s {
		n *= dim
	}
	return n
}

// Validate checks that the shape is fully specified (non-empty, all dims > 0).
func (s Shape) Validate() error {
	if len(s) == 0 {
		return fmt.Errorf("shape is empty")
	}
	for i, dim := range s {
		if dim <= 0 {
			return fmt.Errorf("invalid dimension at index %d: %d (must be > 0)", i, dim)
		}
	}
	return nil
}

// IsSet reports whether the shape is fully specified.
func (s Shape) IsSet() bool {
	return s.Validate() == nil
}

// Equal checks if two shapes are equal.
func (s Shape) Equal(other Shape) bool {
	if len(s) != len(other) {
		return false
	}
	for i := range s {
		if s[i] != other[i] {
			return false
		}
	}
	return true
}

// Clone returns a copy of the shape.
func (s Shape) Clone() Shape {
	clone := make(Shape, len(s))
	copy(clone, s)
	return clone
}

// WithBatch returns the buffer shape for a given batch size: [batch, s...].
func (s Shape) WithBatch(batch int) Shape {
	full := make(Shape, 0, len(s)+1)
	full = append(full, batch)
	full = append(full, s...)
	return full
}

// String renders the shape as "2x3x4".
func (s Shape) String() string {
	if len(s) == 0 {
		return "unset"
	}
	parts := make([]string, len(s))
	for i, dim := range s {
		parts[i] = fmt.Sprintf("%d", dim)
	}
	return strings.Join(parts, "x")
}
