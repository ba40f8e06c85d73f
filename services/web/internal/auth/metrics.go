package auth

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var loginsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "volunteerverse_auth_logins_total",
	Help: "Login attempts by result.",
}, []string{"result"})
