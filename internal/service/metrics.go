package service

import "github.com/prometheus/client_golang/prometheus"

var (
	instructionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "raceledger_instructions_total",
			Help: "Processed instructions by operation",
		},
		[]string{"op"},
	)
	instructionsFailed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "raceledger_instructions_failed_total",
			Help: "Rejected instructions by operation and error code",
		},
		[]string{"op", "code"},
	)
	payoutsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "raceledger_payouts_total",
			Help: "Prizes claimed",
		},
	)
)

func init() {
	prometheus.MustRegister(instructionsTotal, instructionsFailed, payoutsTotal)
}
