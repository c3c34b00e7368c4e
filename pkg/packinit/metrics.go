package packinit

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	runsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "assetpacks",
			Subsystem: "init",
			Name:      "runs_total",
			Help:      "Completed initialization runs by outcome",
		},
		[]string{"outcome"},
	)

	warningsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "assetpacks",
			Subsystem: "init",
			Name:      "warnings_total",
			Help:      "Initialization runs that fell back to default bundle locations, by reason",
		},
		[]string{"kind"},
	)

	packsCompletedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "assetpacks",
			Subsystem: "init",
			Name:      "packs_completed_total",
			Help:      "Asset packs located on the device while initializing",
		},
	)
)

func init() {
	prometheus.MustRegister(runsTotal, warningsTotal, packsCompletedTotal)
}

const (
	OUTCOME_INSTALLED = "installed"
	OUTCOME_SKIPPED   = "skipped"
	OUTCOME_WARNING   = "warning"
)
