package render

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGateLimitsConcurrency(t *testing.T) {
	g := NewGate(1)

	assert.NoError(t, g.Acquire(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := g.Acquire(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	g.Release()
	assert.NoError(t, g.Acquire(context.Background()))
}

func TestGateDefaultsToNumCPU(t *testing.T) {
	g := NewGate(0)
	assert.NotNil(t, g.slots)
	assert.Greater(t, cap(g.slots), 0)
}
