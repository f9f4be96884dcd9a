package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllowWithinBurst(t *testing.T) {
	krl := New(1, 3)
	defer krl.Stop()

	for i := range 3 {
		assert.True(t, krl.Allow("op-1"), "request %d should be within burst", i+1)
	}
	assert.False(t, krl.Allow("op-1"), "burst exhausted")
}

func TestKeysAreIndependent(t *testing.T) {
	krl := New(1, 1)
	defer krl.Stop()

	assert.True(t, krl.Allow("op-1"))
	assert.False(t, krl.Allow("op-1"))

	// A different operator has a fresh bucket.
	assert.True(t, krl.Allow("op-2"))
	assert.Equal(t, 2, krl.Len())
}

func TestTokensRefill(t *testing.T) {
	krl := New(100, 1)
	defer krl.Stop()

	require.True(t, krl.Allow("op-1"))
	require.False(t, krl.Allow("op-1"))

	// At 100 rps a token returns within 10ms.
	time.Sleep(20 * time.Millisecond)
	assert.True(t, krl.Allow("op-1"))
}

func TestWaitRespectsContext(t *testing.T) {
	krl := New(0.01, 1)
	defer krl.Stop()

	require.True(t, krl.Allow("op-1"))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := krl.Wait(ctx, "op-1")
	assert.Error(t, err)
}

func TestStopIsIdempotent(t *testing.T) {
	krl := New(1, 1)
	krl.Stop()
	krl.Stop()
}
