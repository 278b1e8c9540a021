package camera

import (
	"errors"
	"sync"
)

// ErrBufferOverflow is generated when a full CircularBuffer is offered a frame
var ErrBufferOverflow = errors.New("circular buffer overflow")

// Clearer is a sink that can drop everything it holds
type Clearer interface {
	Clear()
}

// CircularBuffer is a bounded in-memory ring of frames.  It is safe for one
// producer and any number of consumers
type CircularBuffer struct {
	mu     sync.Mutex
	frames []*Frame
	head   int // index of the oldest frame
	n      int // number of frames held
	total  uint64
}

// NewCircularBuffer returns a ring holding at most capacity frames
func NewCircularBuffer(capacity int) *CircularBuffer {
	if capacity < 1 {
		capacity = 1
	}
	return &CircularBuffer{frames: make([]*Frame, capacity)}
}

// InsertFrame copies a frame into the ring.  A full ring refuses the frame
// with ErrBufferOverflow
func (c *CircularBuffer) InsertFrame(pix []byte, width, height, bytesPerPixel int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.n == len(c.frames) {
		return ErrBufferOverflow
	}
	idx := (c.head + c.n) % len(c.frames)
	f := c.frames[idx]
	if f == nil {
		f = &Frame{}
		c.frames[idx] = f
	}
	f.Resize(width, height, bytesPerPixel)
	copy(f.Pix, pix)
	c.n++
	c.total++
	return nil
}

// Pop removes and returns the oldest frame, or nil if the ring is empty.
// The returned frame is a copy owned by the caller
func (c *CircularBuffer) Pop() *Frame {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.n == 0 {
		return nil
	}
	f := c.frames[c.head]
	out := &Frame{Width: f.Width, Height: f.Height, BytesPerPixel: f.BytesPerPixel, Pix: append([]byte(nil), f.Pix...)}
	c.head = (c.head + 1) % len(c.frames)
	c.n--
	return out
}

// Len is the number of frames held
func (c *CircularBuffer) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.n
}

// Cap is the capacity of the ring
func (c *CircularBuffer) Cap() int {
	return len(c.frames)
}

// Total is the number of frames ever accepted
func (c *CircularBuffer) Total() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.total
}

// Clear drops every frame held
func (c *CircularBuffer) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.head, c.n = 0, 0
}
