package services

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
)

var remoteSyncs = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "remote_sync_total",
		Help: "Best-effort remote sync attempts by kind and result.",
	},
	[]string{"kind", "result"},
)

func init() {
	prometheus.MustRegister(remoteSyncs)
}

// defaultSyncTimeout bounds a sync task when the service has none configured.
const defaultSyncTimeout = 15 * time.Second

// SyncOutcome is the informational result of a best-effort remote sync. It
// never affects the local outcome of the operation that started it.
type SyncOutcome struct {
	// Attempted is false when remote sync is disabled.
	Attempted bool
	Err       error
}

// OK reports whether the sync was attempted and succeeded.
func (o SyncOutcome) OK() bool { return o.Attempted && o.Err == nil }

// skipped returns a closed channel holding a not-attempted outcome.
func skipped() <-chan SyncOutcome {
	ch := make(chan SyncOutcome, 1)
	ch <- SyncOutcome{}
	close(ch)
	return ch
}

// runSync starts fn in the background, detached from ctx cancellation and
// bounded by timeout. The outcome is logged, counted and delivered on the
// returned channel, which is buffered so nobody has to read it.
func runSync(ctx context.Context, kind string, timeout time.Duration, fn func(context.Context) error) <-chan SyncOutcome {
	if timeout <= 0 {
		timeout = defaultSyncTimeout
	}
	ch := make(chan SyncOutcome, 1)
	go func() {
		defer close(ch)
		sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
		defer cancel()

		err := fn(sctx)
		if err != nil {
			remoteSyncs.WithLabelValues(kind, "error").Inc()
			log.Warn().Err(err).Str("kind", kind).Msg("remote sync failed; local change kept")
		} else {
			remoteSyncs.WithLabelValues(kind, "ok").Inc()
			log.Debug().Str("kind", kind).Msg("remote sync ok")
		}
		ch <- SyncOutcome{Attempted: true, Err: err}
	}()
	return ch
}
