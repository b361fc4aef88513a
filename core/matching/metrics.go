package matching

import "github.com/prometheus/client_golang/prometheus"

const (
	outcomeAccepted   = "accepted"
	outcomeCapacity   = "capacity_rejected"
	outcomeConstraint = "constraint_rejected"
)

var (
	roundsPerRun         prometheus.Histogram
	proposalsTotal       *prometheus.CounterVec
	constraintRejections *prometheus.CounterVec
)

func newCollectors() (prometheus.Histogram, *prometheus.CounterVec, *prometheus.CounterVec) {
	rounds := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "matching_rounds_per_run",
		Help:    "Deferred acceptance rounds needed to clear all slots of a run",
		Buckets: prometheus.ExponentialBuckets(1, 2, 12),
	})
	props := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "matching_proposals_total",
		Help: "Operator proposals by outcome",
	}, []string{"outcome"})
	rej := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "matching_constraint_rejections_total",
		Help: "Proposals vetoed by a hard constraint",
	}, []string{"kind"})
	return rounds, props, rej
}

func init() {
	roundsPerRun, proposalsTotal, constraintRejections = newCollectors()
	MustRegisterMetrics(nil)
}

// MustRegisterMetrics registers matching metrics on reg, or on
// prometheus.DefaultRegisterer when reg is nil.
func MustRegisterMetrics(reg prometheus.Registerer) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(roundsPerRun, proposalsTotal, constraintRejections)
}

// ResetMetrics recreates the collectors for tests and registers them on reg
// when it is not nil.
func ResetMetrics(reg prometheus.Registerer) {
	roundsPerRun, proposalsTotal, constraintRejections = newCollectors()
	if reg != nil {
		MustRegisterMetrics(reg)
	}
}
