// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package pipeline

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// schedulerMetrics holds the Prometheus metrics for the scanning
// pipeline, registered exactly once via sync.Once so repeated Scheduler
// construction within one process doesn't panic on double-registration.
type schedulerMetrics struct {
	once sync.Once

	blobsScanned  prometheus.Counter
	blobsSeen     prometheus.Counter
	provenanceNew prometheus.Counter
	matchesFound  prometheus.Counter
	writeErrors   prometheus.Counter

	scanDuration  prometheus.Histogram
	writeDuration prometheus.Histogram
}

var (
	sharedMetrics     *schedulerMetrics
	sharedMetricsOnce sync.Once
)

func newSchedulerMetrics() *schedulerMetrics {
	sharedMetricsOnce.Do(func() {
		sharedMetrics = &schedulerMetrics{}
		sharedMetrics.init()
	})
	return sharedMetrics
}

func (m *schedulerMetrics) init() {
	m.once.Do(func() {
		m.blobsScanned = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "noseyparker_blobs_scanned_total", Help: "Blobs run through the matcher",
		})
		m.blobsSeen = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "noseyparker_blobs_seen_total", Help: "Blob+provenance pairs observed that required no new work",
		})
		m.provenanceNew = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "noseyparker_provenance_links_total", Help: "New provenance rows recorded for already-scanned blobs",
		})
		m.matchesFound = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "noseyparker_matches_found_total", Help: "Raw matches emitted by workers",
		})
		m.writeErrors = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "noseyparker_write_errors_total", Help: "Datastore write failures",
		})

		buckets := []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5}
		m.scanDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
			Name: "noseyparker_scan_seconds", Help: "Per-blob scan duration", Buckets: buckets,
		})
		m.writeDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
			Name: "noseyparker_write_seconds", Help: "Writer batch commit duration", Buckets: buckets,
		})

		prometheus.MustRegister(
			m.blobsScanned, m.blobsSeen, m.provenanceNew, m.matchesFound, m.writeErrors,
			m.scanDuration, m.writeDuration,
		)
	})
}

// recordResult updates counters for one successfully-written ResultItem.
func (m *schedulerMetrics) recordResult(item ResultItem) {
	switch item.Kind {
	case KindMatches:
		m.blobsScanned.Inc()
		m.matchesFound.Add(float64(len(item.Matches)))
	case KindProvenanceOnly:
		m.provenanceNew.Inc()
	case KindBlobSeen:
		m.blobsSeen.Inc()
	}
}
