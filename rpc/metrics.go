package rpc

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	outcomeSuccess  = "success"
	outcomeFailure  = "failure"
	outcomeFatal    = "fatal"
	outcomeNotFound = "not_found"
)

var (
	loginsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mobileid_logins_total",
			Help: "Total number of login completion attempts by outcome",
		},
		[]string{"outcome"},
	)

	serviceFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mobileid_service_failures_total",
			Help: "Login failures by stable error code",
		},
		[]string{"code"},
	)
)
