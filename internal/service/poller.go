package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/asavelyev/notesync/internal/config"
	"github.com/asavelyev/notesync/internal/logger"
	"github.com/asavelyev/notesync/internal/remote"
	"github.com/asavelyev/notesync/models"
)

// PollerState is the poller's lifecycle phase.
type PollerState string

const (
	PollerStopped PollerState = "stopped"
	PollerRunning PollerState = "running"
	PollerPaused  PollerState = "paused"
)

// Poller samples the shared status marker on a ticker and schedules a pass
// through the queue whenever another device published a change this device
// has not yet observed. It deliberately reads one tiny object per tick; the
// expensive listing work only happens when something actually moved.
type Poller struct {
	objects  remote.ObjectStore
	queue    Queue
	deviceID string
	logger   *logger.Logger

	interval  time.Duration
	editPause time.Duration

	mu          sync.Mutex
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	pausedUntil time.Time
	lastSeen    int64
}

func NewPoller(objects remote.ObjectStore, queue Queue, cfg config.Sync, deviceID string, log *logger.Logger) *Poller {
	interval := cfg.PollInterval
	if interval <= 0 {
		interval = config.DefaultPollInterval
	}
	editPause := cfg.EditPause
	if editPause <= 0 {
		editPause = config.DefaultEditPause
	}
	return &Poller{
		objects:   objects,
		queue:     queue,
		deviceID:  deviceID,
		logger:    log,
		interval:  interval,
		editPause: editPause,
	}
}

// Start launches the polling goroutine. A previously running poller is
// stopped first, so Start is idempotent. The goroutine exits when ctx is
// cancelled or Stop is called.
func (p *Poller) Start(ctx context.Context) {
	p.Stop()

	p.mu.Lock()
	pollCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.wg.Add(1)
	p.mu.Unlock()

	go func() {
		defer p.wg.Done()
		t := time.NewTicker(p.interval)
		defer t.Stop()

		for {
			select {
			case <-pollCtx.Done():
				return
			case <-t.C:
				p.tick(pollCtx)
			}
		}
	}()
}

// Stop cancels the polling goroutine and blocks until it has exited. Safe
// to call when the poller is not running.
func (p *Poller) Stop() {
	p.mu.Lock()
	cancel := p.cancel
	p.cancel = nil
	p.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	p.wg.Wait()
}

// State reports the poller's current phase.
func (p *Poller) State() PollerState {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cancel == nil {
		return PollerStopped
	}
	if time.Now().Before(p.pausedUntil) {
		return PollerPaused
	}
	return PollerRunning
}

// NotifyEditing pauses polling while the user is actively typing, so a
// background pull never replaces the item under their cursor. Repeated
// calls extend the pause.
func (p *Poller) NotifyEditing() {
	p.mu.Lock()
	p.pausedUntil = time.Now().Add(p.editPause)
	p.mu.Unlock()
}

// NotifyEditingStopped resumes polling at the next tick.
func (p *Poller) NotifyEditingStopped() {
	p.mu.Lock()
	p.pausedUntil = time.Time{}
	p.mu.Unlock()
}

// tick samples the status marker once. The tick is skipped, never delayed,
// while editing is paused: the ticker keeps running and the next tick after
// the pause picks up whatever accumulated.
func (p *Poller) tick(ctx context.Context) {
	p.mu.Lock()
	paused := time.Now().Before(p.pausedUntil)
	lastSeen := p.lastSeen
	p.mu.Unlock()
	if paused {
		return
	}

	content, _, err := p.objects.Get(ctx, remote.StatusPath)
	if errors.Is(err, remote.ErrNotFound) {
		return
	}
	if err != nil {
		p.logger.Warn().Err(err).Msg("status poll failed")
		return
	}

	marker, err := remote.DecodeStatus(content)
	if err != nil {
		p.logger.Warn().Err(err).Msg("malformed status marker")
		return
	}

	if marker.LastChangeAt <= lastSeen {
		return
	}

	p.mu.Lock()
	p.lastSeen = marker.LastChangeAt
	p.mu.Unlock()

	if marker.LastDevice == p.deviceID {
		// Our own publication; nothing remote to pick up.
		return
	}

	p.logger.Info().
		Str("device", marker.LastDevice).
		Msg("remote change detected, scheduling sync")
	for _, scope := range p.scopesFor(marker) {
		p.queue.Enqueue(scope)
	}
}

// scopesFor maps a marker to the scopes worth syncing. An empty scope list
// in the marker means the publisher did not say, so everything is checked.
func (p *Poller) scopesFor(marker models.StatusMarker) []models.SyncScope {
	if len(marker.ChangedScopes) == 0 {
		return []models.SyncScope{models.ScopeAll}
	}
	for _, s := range marker.ChangedScopes {
		if s == models.ScopeAll {
			return []models.SyncScope{models.ScopeAll}
		}
	}
	return marker.ChangedScopes
}
