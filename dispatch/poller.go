package dispatch

import (
	"context"
	"errors"
	"time"

	"fleetdesk/backend/logging"
	"fleetdesk/backend/querycache"
)

// Poller refetches the snapshots of all open boards on an interval. It races
// freely with drags; Drop's snapshot check is what keeps gestures safe.
type Poller struct {
	registry *Registry
	interval time.Duration
}

func NewPoller(registry *Registry, interval time.Duration) *Poller {
	return &Poller{registry: registry, interval: interval}
}

// Run polls until ctx is done.
func (p *Poller) Run(ctx context.Context) {
	log := logging.FromContext(ctx)
	log.Infof("Starting board poller, interval %v", p.interval)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Info("Board poller stopped")
			return
		case <-ticker.C:
			p.Tick(ctx)
		}
	}
}

// Tick closes idle boards and refreshes the rest, fetching each snapshot key once.
func (p *Poller) Tick(ctx context.Context) {
	log := logging.FromContext(ctx)
	if n := p.registry.Sweep(); n > 0 {
		log.Infof("Closed %d idle boards", n)
	}

	fetched := make(map[querycache.Key]bool)
	for _, b := range p.registry.Boards() {
		if fetched[b.Key()] && b.sync() {
			continue
		}
		if err := b.Refresh(ctx); err != nil {
			if !errors.Is(err, ErrBoardClosed) {
				log.WithError(err).WithField("board", b.ID()).Warn("Polling refresh failed")
			}
			continue
		}
		fetched[b.Key()] = true
	}
}
