package graph

import "fmt"

// Shape is a resolved BHWC tensor shape.
//
// The channel axis is packed into 4-lane slabs on the GPU, so most kernels
// iterate over Depth() rather than C.
type Shape struct {
	B int // batch
	H int // height
	W int // width
	C int // channels
}

// NewShape returns a BHWC shape.
func NewShape(b, h, w, c int) Shape {
	return Shape{B: b, H: h, W: w, C: c}
}

// Depth returns the number of 4-channel slabs: ceil(C / 4).
func (s Shape) Depth() int {
	return DivideRoundUp(s.C, 4)
}

// NumElements returns B*H*W*C.
func (s Shape) NumElements() int {
	return s.B * s.H * s.W * s.C
}

// Validate checks that all extents are positive.
func (s Shape) Validate() error {
	dims := [4]int{s.B, s.H, s.W, s.C}
	for i, dim := range dims {
		if dim <= 0 {
			return fmt.Errorf("invalid dimension at index %d: %d (must be > 0)", i, dim)
		}
	}
	return nil
}

// String formats the shape as BxHxWxC.
func (s Shape) String() string {
	return fmt.Sprintf("%dx%dx%dx%d", s.B, s.H, s.W, s.C)
}

// DivideRoundUp returns ceil(n / d) for non-negative n and positive d.
func DivideRoundUp(n, d int) int {
	return (n + d - 1) / d
}
