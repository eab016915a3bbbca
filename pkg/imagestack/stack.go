// Package imagestack holds decoded grayscale frames and the ordered 3D stack
// a reader returns to the host.
package imagestack

import (
	"errors"
	"fmt"
)

// ErrShapeMismatch is returned when a frame's height or width differs from
// the frames already in the stack.
var ErrShapeMismatch = errors.New("imagestack: frame shape mismatch")

// ErrEmptyFrame is returned for frames with a zero dimension.
var ErrEmptyFrame = errors.New("imagestack: empty frame")

// Frame is a single 8-bit grayscale image stored row-major.
type Frame struct {
	Height int
	Width  int
	Pix    []uint8
}

// NewFrame allocates a zeroed frame.
func NewFrame(height, width int) Frame {
	return Frame{Height: height, Width: width, Pix: make([]uint8, height*width)}
}

// At returns the pixel at row y, column x.
func (f Frame) At(y, x int) uint8 { return f.Pix[y*f.Width+x] }

func (f Frame) validate() error {
	if f.Height <= 0 || f.Width <= 0 {
		return fmt.Errorf("%w: %dx%d", ErrEmptyFrame, f.Height, f.Width)
	}
	if len(f.Pix) != f.Height*f.Width {
		return fmt.Errorf("imagestack: frame has %d pixels, want %d", len(f.Pix), f.Height*f.Width)
	}
	return nil
}

// ShapeError describes a rejected append.
type ShapeError struct {
	Index int
	Want  [2]int
	Got   [2]int
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("%s: frame %d is %dx%d, stack is %dx%d",
		ErrShapeMismatch, e.Index, e.Got[0], e.Got[1], e.Want[0], e.Want[1])
}

// Unwrap lets errors.Is match ErrShapeMismatch.
func (e *ShapeError) Unwrap() error { return ErrShapeMismatch }

// Stack is an ordered (frames, height, width) array of uint8 pixels.
// Frame i occupies data[i*height*width : (i+1)*height*width].
type Stack struct {
	height int
	width  int
	frames int
	data   []uint8
}

// New seeds a stack with its first frame.
func New(first Frame) (*Stack, error) {
	if err := first.validate(); err != nil {
		return nil, err
	}
	s := &Stack{height: first.Height, width: first.Width}
	s.data = make([]uint8, 0, len(first.Pix))
	s.data = append(s.data, first.Pix...)
	s.frames = 1
	return s, nil
}

// FromFrames builds a stack from frames in order.
func FromFrames(frames []Frame) (*Stack, error) {
	if len(frames) == 0 {
		return nil, fmt.Errorf("imagestack: no frames")
	}
	s, err := New(frames[0])
	if err != nil {
		return nil, err
	}
	s.data = append(make([]uint8, 0, len(frames)*len(frames[0].Pix)), s.data...)
	for _, f := range frames[1:] {
		if err := s.Append(f); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Append adds f as the next frame. The stack is unchanged on error.
func (s *Stack) Append(f Frame) error {
	if f.Height != s.height || f.Width != s.width {
		return &ShapeError{Index: s.frames, Want: [2]int{s.height, s.width}, Got: [2]int{f.Height, f.Width}}
	}
	if err := f.validate(); err != nil {
		return err
	}
	s.data = append(s.data, f.Pix...)
	s.frames++
	return nil
}

// Shape returns (frames, height, width).
func (s *Stack) Shape() [3]int { return [3]int{s.frames, s.height, s.width} }

// Len returns the number of frames.
func (s *Stack) Len() int { return s.frames }

// Frame returns a copy of frame i.
func (s *Stack) Frame(i int) Frame {
	n := s.height * s.width
	pix := make([]uint8, n)
	copy(pix, s.data[i*n:(i+1)*n])
	return Frame{Height: s.height, Width: s.width, Pix: pix}
}

// At returns the pixel of frame i at row y, column x.
func (s *Stack) At(i, y, x int) uint8 {
	return s.data[(i*s.height+y)*s.width+x]
}

// Bytes returns the backing pixel buffer. Callers must not modify it.
func (s *Stack) Bytes() []uint8 { return s.data }

// String renders the shape the way array libraries print it, e.g. "(2, 50, 50)".
func (s *Stack) String() string {
	return fmt.Sprintf("(%d, %d, %d)", s.frames, s.height, s.width)
}
