package replay

import (
	"time"

	"github.com/marmos91/dittoflow/pkg/metrics"
	"github.com/marmos91/dittoflow/pkg/replaystats"
)

// statsCollector fans every duration update out to the required in-memory
// statistics registry (spec.md §4.3) and, additively, to the Prometheus
// histograms in pkg/metrics. The registry is the data model the replay
// driver's printed report is built from; Prometheus is the ambient
// observability layer carried alongside it.
type statsCollector struct {
	store replaystats.Store
	runID string
}

func newStatsCollector(store replaystats.Store, runID string) *statsCollector {
	return &statsCollector{store: store, runID: runID}
}

func (c *statsCollector) updateOriginal(action string, d time.Duration) {
	c.store.UpdateOriginal(action, d)
	metrics.ObserveOriginalDuration(c.runID, action, d)
}

func (c *statsCollector) updateActual(action string, d time.Duration) {
	c.store.UpdateActual(action, d)
	metrics.ObserveActualDuration(c.runID, action, d)
}

// inFlightInc and inFlightDec bracket one action's time between submission
// to the pipeline and its completion callback firing.
func (c *statsCollector) inFlightInc() {
	metrics.InFlightInc(c.runID)
}

func (c *statsCollector) inFlightDec() {
	metrics.InFlightDec(c.runID)
}
