package render

import (
	"context"
	"runtime"
)

// Gate bounds concurrent raster+encode work, per spec.md §4.4.6. SVG
// generation is never gated; only Rasterize+Encode are acquired around.
type Gate struct {
	slots chan struct{}
}

// NewGate creates a gate with size slots. size <= 0 defaults to
// runtime.NumCPU().
func NewGate(size int) *Gate {
	if size <= 0 {
		size = runtime.NumCPU()
	}
	return &Gate{slots: make(chan struct{}, size)}
}

// Acquire blocks until a slot is free or ctx is done, whichever first.
func (g *Gate) Acquire(ctx context.Context) error {
	select {
	case g.slots <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Release frees a previously-acquired slot.
func (g *Gate) Release() {
	select {
	case <-g.slots:
	default:
	}
}
