package aggregator

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	recordsIngested = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gwstationd_records_ingested_total",
		Help: "Decoded instant records folded into station state.",
	}, []string{"station"})

	spikesRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gwstationd_spikes_rejected_total",
		Help: "Readings discarded by the spike filter.",
	}, []string{"quantity"})

	recordsBroken = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gwstationd_extremes_broken_total",
		Help: "Running extreme records broken, by scope.",
	}, []string{"scope"})

	rolloversRun = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gwstationd_rollovers_total",
		Help: "Day/month/year rollover transitions executed.",
	}, []string{"kind"})

	lastIngestTime = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "gwstationd_last_ingest_timestamp_seconds",
		Help: "Unix time of the most recent successful ingest, feeds the stalled-data alarm.",
	}, []string{"station"})
)
