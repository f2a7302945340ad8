package obs

import (
	"github.com/prometheus/client_golang/prometheus"
)

// buildInfo is a constant 1 gauge labelled with version and commit.
var buildInfo = prometheus.NewGaugeVec(
	prometheus.GaugeOpts{
		Name: "matchbook_build_info",
		Help: "Matchbook API build information.",
	},
	[]string{"version", "commit"},
)

// InitBuildInfo sets build_info{version,commit} to 1. Init must have run.
func InitBuildInfo(version, commit string) {
	buildInfo.WithLabelValues(version, commit).Set(1)
}
