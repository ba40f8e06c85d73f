package gate

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var decisionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "volunteerverse_gate_decisions_total",
	Help: "Page gate decisions by route category, visitor state and outcome.",
}, []string{"category", "state", "outcome"})
