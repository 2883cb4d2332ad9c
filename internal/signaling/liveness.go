package signaling

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// DefaultLivenessInterval is the probe period. A connection that has not
// acknowledged the previous probe when the next one is due is evicted.
const DefaultLivenessInterval = 30 * time.Second

// Monitor finds half-open connections by probing every registered
// connection once per interval.
type Monitor struct {
	hub      *Hub
	interval time.Duration
	log      *zap.Logger
}

func NewMonitor(hub *Hub, interval time.Duration) *Monitor {
	if interval <= 0 {
		interval = DefaultLivenessInterval
	}
	return &Monitor{
		hub:      hub,
		interval: interval,
		log:      hub.log.Named("monitor"),
	}
}

// Run sweeps on every tick until ctx is done.
func (m *Monitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			probed, evicted := m.Sweep()
			if evicted > 0 {
				m.log.Info("liveness sweep", zap.Int("probed", probed), zap.Int("evicted", evicted))
			}
		}
	}
}

// Sweep runs one probe round.
func (m *Monitor) Sweep() (probed, evicted int) {
	for _, c := range m.hub.registry.Snapshot() {
		if c.State() != StateOpen {
			continue
		}
		if !c.awaitingAck.CompareAndSwap(false, true) {
			m.log.Info("evicting unresponsive peer", zap.String("peer", c.ID), zap.Time("lastAck", c.LastAck()))
			m.hub.Evict(c)
			evicted++
			continue
		}
		if err := c.transport.Ping(); err != nil {
			m.log.Info("probe failed", zap.String("peer", c.ID), zap.Error(err))
			m.hub.Evict(c)
			evicted++
			continue
		}
		probed++
	}
	return probed, evicted
}
