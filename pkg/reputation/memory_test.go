package reputation

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryGate_AllowsHealthyWindow(t *testing.T) {
	gate := NewMemoryGate()
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		require.NoError(t, gate.RecordResult(ctx, "tenant-1", "whatsapp", true))
	}

	decision, err := gate.CanSend(ctx, "tenant-1", "whatsapp")
	require.NoError(t, err)
	assert.True(t, decision.Allowed)
}

func TestMemoryGate_DefersBelowCriticalFloor(t *testing.T) {
	gate := NewMemoryGate()
	ctx := context.Background()

	// All-failed window: score 20, below the floor.
	for i := 0; i < 10; i++ {
		require.NoError(t, gate.RecordResult(ctx, "tenant-1", "whatsapp", false))
	}

	decision, err := gate.CanSend(ctx, "tenant-1", "whatsapp")
	require.NoError(t, err)
	assert.False(t, decision.Allowed)
	assert.Greater(t, decision.RetryAfter, time.Duration(0))
	assert.LessOrEqual(t, decision.RetryAfter, Window)
}

func TestMemoryGate_IsolatesTenantAndChannel(t *testing.T) {
	gate := NewMemoryGate()
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		require.NoError(t, gate.RecordResult(ctx, "tenant-1", "whatsapp", false))
	}

	sameTenantOtherChannel, err := gate.CanSend(ctx, "tenant-1", "sms")
	require.NoError(t, err)
	assert.True(t, sameTenantOtherChannel.Allowed)

	otherTenant, err := gate.CanSend(ctx, "tenant-2", "whatsapp")
	require.NoError(t, err)
	assert.True(t, otherTenant.Allowed)
}

func TestMemoryGate_WindowExpiryResetsCounters(t *testing.T) {
	gate := NewMemoryGate()
	ctx := context.Background()

	current := time.Now()
	gate.now = func() time.Time { return current }

	for i := 0; i < 10; i++ {
		require.NoError(t, gate.RecordResult(ctx, "tenant-1", "whatsapp", false))
	}

	decision, err := gate.CanSend(ctx, "tenant-1", "whatsapp")
	require.NoError(t, err)
	require.False(t, decision.Allowed)

	// Reputation recovers once the rolling window elapses.
	current = current.Add(Window + time.Minute)

	decision, err = gate.CanSend(ctx, "tenant-1", "whatsapp")
	require.NoError(t, err)
	assert.True(t, decision.Allowed)
}
