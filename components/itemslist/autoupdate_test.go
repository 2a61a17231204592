package itemslist

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingUpdater struct {
	calls atomic.Int32
}

func (u *countingUpdater) Update() { u.calls.Add(1) }

func TestAutoUpdaterTicksWhileEnabled(t *testing.T) {
	target := &countingUpdater{}
	updater := NewAutoUpdater(target, 10*time.Millisecond)
	defer updater.Stop()

	assert.True(t, updater.Enabled())
	require.Eventually(t, func() bool { return target.calls.Load() >= 2 }, time.Second, 5*time.Millisecond)
}

func TestAutoUpdaterDisabledSkipsButKeepsTimer(t *testing.T) {
	target := &countingUpdater{}
	updater := NewAutoUpdater(target, 10*time.Millisecond)
	defer updater.Stop()

	updater.SetEnabled(false)
	time.Sleep(40 * time.Millisecond)
	assert.Zero(t, target.calls.Load())

	updater.SetEnabled(true)
	require.Eventually(t, func() bool { return target.calls.Load() >= 1 }, time.Second, 5*time.Millisecond)
}

func TestAutoUpdaterStop(t *testing.T) {
	target := &countingUpdater{}
	updater := NewAutoUpdater(target, 10*time.Millisecond)
	updater.Stop()
	time.Sleep(30 * time.Millisecond)
	assert.Zero(t, target.calls.Load())
}
