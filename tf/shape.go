package tf

import (
	"fmt"
	"strconv"
	"strings"
)

// Shape represents the dimensions of a tensor.
type Shape []int64

// NewShape creates a shape from dimensions.
func NewShape(dims ...int64) Shape {
	return Shape(dims)
}

// ParseShape parses a comma-separated shape string (for example: "1,224,224,3").
func ParseShape(raw string) (Shape, error) {
	parts := strings.Split(raw, ",")
	shape := make(Shape, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			return nil, fmt.Errorf("empty dimension")
		}

		dim, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("failed to parse dimension %q: %w", part, err)
		}
		if dim < 0 {
			return nil, fmt.Errorf("negative dimension %d", dim)
		}
		shape = append(shape, dim)
	}

	return shape, nil
}

func cloneShape(shape Shape) Shape {
	if len(shape) == 0 {
		// Scalar tensors keep a non-nil rank-0 shape.
		return Shape{}
	}

	out := make(Shape, len(shape))
	copy(out, shape)
	return out
}

// shapeElementCount returns the number of elements a shape describes.
// Dimensions must be non-negative; a zero dimension yields zero elements.
func shapeElementCount(shape Shape) (int, error) {
	maxInt := int(^uint(0) >> 1)

	count := 1
	for i, dim := range shape {
		if dim < 0 {
			return 0, fmt.Errorf("invalid shape dimension at index %d: %d (must be >= 0)", i, dim)
		}
		if dim == 0 {
			count = 0
			continue
		}
		if count == 0 {
			continue
		}
		if dim > int64(maxInt) {
			return 0, fmt.Errorf("shape dimension at index %d is too large: %d", i, dim)
		}

		dimInt := int(dim)
		if count > maxInt/dimInt {
			return 0, fmt.Errorf("shape %v exceeds maximum supported element count", shape)
		}
		count *= dimInt
	}

	return count, nil
}
