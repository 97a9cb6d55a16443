package idle

import (
	"context"
	"log/slog"
	"time"
)

// Sink receives sweep triggers. Implemented by the relay dispatcher, which
// serializes the sweep with every other event.
type Sink interface {
	Sweep()
}

// Monitor triggers periodic idle sweeps. It holds no session state itself:
// deciding who is stale and evicting them happens inside the relay loop.
type Monitor struct {
	interval time.Duration
	sink     Sink
	logger   *slog.Logger
}

// New creates a new Monitor firing at the given interval
func New(interval time.Duration, sink Sink, logger *slog.Logger) *Monitor {
	return &Monitor{
		interval: interval,
		sink:     sink,
		logger:   logger.With(slog.String("component", "idle")),
	}
}

// Run fires sweeps until the context is cancelled
func (m *Monitor) Run(ctx context.Context) {
	m.logger.Info("idle monitor started", slog.Duration("interval", m.interval))
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.logger.Info("idle monitor stopped")
			return
		case <-ticker.C:
			m.sink.Sweep()
		}
	}
}
