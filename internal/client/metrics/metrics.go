// Package metrics exposes the client's Prometheus instruments and an
// optional /metrics endpoint.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/dmitrijs2005/gophnotes/internal/client/models"
	"github.com/dmitrijs2005/gophnotes/internal/logging"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "gophnotes"

type Metrics struct {
	Applied       prometheus.Counter
	Abandoned     prometheus.Counter
	DrainFailures prometheus.Counter
	Enqueued      *prometheus.CounterVec
	QueueDepth    prometheus.Gauge
	Online        prometheus.Gauge
}

// New registers the instruments on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Applied: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "sync", Name: "mutations_applied_total",
			Help: "Queued mutations confirmed by the remote backend.",
		}),
		Abandoned: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "sync", Name: "mutations_abandoned_total",
			Help: "Queued mutations dropped after a permanent remote rejection.",
		}),
		DrainFailures: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "sync", Name: "drain_failures_total",
			Help: "Drains stopped early by a transient remote failure.",
		}),
		Enqueued: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "mutations_enqueued_total",
			Help: "Mutations written to the local queue.",
		}, []string{"table"}),
		QueueDepth: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "sync", Name: "queue_depth",
			Help: "Mutations waiting in the local queue after the last drain.",
		}),
		Online: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "online",
			Help: "1 while the remote backend is reachable.",
		}),
	}
}

// NewDiscard returns instruments registered on a private registry.
func NewDiscard() *Metrics {
	return New(prometheus.NewRegistry())
}

func (m *Metrics) MutationEnqueued(table models.Table) {
	m.Enqueued.WithLabelValues(string(table)).Inc()
}

func (m *Metrics) SetOnline(online bool) {
	if online {
		m.Online.Set(1)
		return
	}
	m.Online.Set(0)
}

// Serve exposes g on addr under /metrics until ctx is cancelled.
func Serve(ctx context.Context, addr string, g prometheus.Gatherer, logger logging.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(g, promhttp.HandlerOpts{}))

	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	errCh := make(chan error, 1)
	go func() {
		logger.Info(ctx, "metrics endpoint listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
