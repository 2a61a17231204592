package itemslist

import (
	"sync"
	"time"
)

// DefaultAutoUpdateInterval matches the refresh rate of admin monitoring lists.
const DefaultAutoUpdateInterval = 60 * time.Second

// Updater is anything that can re-issue its current query.
type Updater interface {
	Update()
}

// AutoUpdater calls Update on a fixed interval while enabled. The timer is re-armed
// after every tick whether or not the flag is set, so toggling the flag never needs
// a restart.
type AutoUpdater struct {
	target   Updater
	interval time.Duration

	mu      sync.Mutex
	enabled bool
	timer   *time.Timer
	stopped bool
}

// NewAutoUpdater starts polling target. Auto-update begins enabled.
func NewAutoUpdater(target Updater, interval time.Duration) *AutoUpdater {
	if interval <= 0 {
		interval = DefaultAutoUpdateInterval
	}
	a := &AutoUpdater{target: target, interval: interval, enabled: true}
	a.mu.Lock()
	a.schedule()
	a.mu.Unlock()
	return a
}

// SetEnabled switches auto-update on or off.
func (a *AutoUpdater) SetEnabled(enabled bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.enabled = enabled
}

// Enabled reports the current flag.
func (a *AutoUpdater) Enabled() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.enabled
}

// Stop clears the timer. No Update is issued afterwards.
func (a *AutoUpdater) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.stopped = true
	if a.timer != nil {
		a.timer.Stop()
		a.timer = nil
	}
}

func (a *AutoUpdater) schedule() {
	a.timer = time.AfterFunc(a.interval, a.tick)
}

func (a *AutoUpdater) tick() {
	a.mu.Lock()
	if a.stopped {
		a.mu.Unlock()
		return
	}
	enabled := a.enabled
	a.schedule()
	a.mu.Unlock()
	if enabled {
		a.target.Update()
	}
}
