package firestore

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLease_RenewalOutlivesTTL(t *testing.T) {
	l := &MintLockFS{TTL: 2 * time.Minute}
	t0 := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	acquired := l.leaseData("mint:X", "a", t0, t0)
	assert.True(t, leaseHeldByOther(acquired, "b", t0.Add(l.TTL/2)))

	// renewed at TTL/2, a second instance arriving after the original TTL still waits
	renewed := l.leaseData("mint:X", "a", t0, t0.Add(l.TTL/2))
	late := t0.Add(l.TTL + 10*time.Second)
	assert.False(t, leaseHeldByOther(acquired, "b", late))
	assert.True(t, leaseHeldByOther(renewed, "b", late))
	assert.Equal(t, t0, renewed["acquiredAt"])

	// the holder itself never blocks on its own lease
	assert.False(t, leaseHeldByOther(renewed, "a", late))
	assert.False(t, leaseHeldByOther(map[string]any{"holder": "a"}, "b", late))
}

func TestKeepAlive_RenewsUntilStopped(t *testing.T) {
	var n atomic.Int32
	l := &MintLockFS{TTL: 30 * time.Millisecond}
	l.renew = func(_ context.Context, docID, key, holder string) error {
		assert.Equal(t, "mint:X", docID)
		assert.Equal(t, "h1", holder)
		n.Add(1)
		return nil
	}

	stop := l.keepAlive("mint:X", "mint:X", "h1")
	require.Eventually(t, func() bool { return n.Load() >= 3 }, 2*time.Second, 5*time.Millisecond)
	stop()

	after := n.Load()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, after, n.Load())
}

func TestKeepAlive_StopsWhenLeaseLost(t *testing.T) {
	var n atomic.Int32
	l := &MintLockFS{TTL: 15 * time.Millisecond}
	l.renew = func(context.Context, string, string, string) error {
		n.Add(1)
		return errLeaseLost
	}

	stop := l.keepAlive("mint:X", "mint:X", "h1")
	require.Eventually(t, func() bool { return n.Load() == 1 }, 2*time.Second, 5*time.Millisecond)
	time.Sleep(40 * time.Millisecond)
	assert.Equal(t, int32(1), n.Load())
	stop()
}

func TestKeepAlive_RetriesTransientErrors(t *testing.T) {
	var n atomic.Int32
	l := &MintLockFS{TTL: 15 * time.Millisecond}
	l.renew = func(context.Context, string, string, string) error {
		n.Add(1)
		return errors.New("unavailable")
	}

	stop := l.keepAlive("mint:X", "mint:X", "h1")
	require.Eventually(t, func() bool { return n.Load() >= 2 }, 2*time.Second, 5*time.Millisecond)
	stop()
}
