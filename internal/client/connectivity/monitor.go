// Package connectivity tracks whether the remote backend is reachable and
// signals offline to online transitions.
package connectivity

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dmitrijs2005/gophnotes/internal/client/metrics"
	"github.com/dmitrijs2005/gophnotes/internal/logging"
)

// DefaultProbeTimeout bounds a single probe.
const DefaultProbeTimeout = 3 * time.Second

// Prober checks reachability. A nil error means online.
type Prober interface {
	Ping(ctx context.Context) error
}

type ProberFunc func(ctx context.Context) error

func (f ProberFunc) Ping(ctx context.Context) error { return f(ctx) }

// Signal is the "is online" reading consumed by the services.
type Signal interface {
	IsOnline() bool
}

// Monitor polls a Prober and fires OnOnline handlers on every offline to
// online edge. It starts offline, so the first successful probe fires them.
type Monitor struct {
	prober   Prober
	interval time.Duration
	timeout  time.Duration
	logger   logging.Logger
	metrics  *metrics.Metrics

	online atomic.Bool

	mu       sync.Mutex
	handlers []func(ctx context.Context)
}

func NewMonitor(p Prober, interval time.Duration, logger logging.Logger, m *metrics.Metrics) *Monitor {
	return &Monitor{
		prober:   p,
		interval: interval,
		timeout:  DefaultProbeTimeout,
		logger:   logger,
		metrics:  m,
	}
}

func (m *Monitor) IsOnline() bool {
	return m.online.Load()
}

// OnOnline registers fn to run after each transition to online. Handlers
// run on the monitor's goroutine, one after another.
func (m *Monitor) OnOnline(fn func(ctx context.Context)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers = append(m.handlers, fn)
}

// Check probes once, records the result and handles a transition.
func (m *Monitor) Check(ctx context.Context) bool {
	probeCtx, cancel := context.WithTimeout(ctx, m.timeout)
	err := m.prober.Ping(probeCtx)
	cancel()

	now := err == nil
	was := m.online.Swap(now)
	m.metrics.SetOnline(now)

	if was == now {
		return now
	}
	if !now {
		m.logger.Warn(ctx, "switched to offline mode", "err", err)
		return now
	}

	m.logger.Info(ctx, "switched to online mode")
	m.mu.Lock()
	handlers := append([]func(context.Context){}, m.handlers...)
	m.mu.Unlock()
	for _, h := range handlers {
		h(ctx)
	}
	return now
}

// Run checks immediately and then every interval until ctx is done.
func (m *Monitor) Run(ctx context.Context) error {
	m.Check(ctx)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.Check(ctx)
		case <-ctx.Done():
			return nil
		}
	}
}

// Static is a Signal set by hand, for tests and fixed-mode runs.
type Static struct {
	v atomic.Bool
}

func NewStatic(online bool) *Static {
	s := &Static{}
	s.v.Store(online)
	return s
}

func (s *Static) IsOnline() bool { return s.v.Load() }

func (s *Static) Set(online bool) { s.v.Store(online) }
