package tasks

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

var taskOperationsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "tasks_operations_total",
		Help: "Task operations by outcome",
	},
	[]string{"operation", "outcome"},
)

func init() {
	prometheus.MustRegister(taskOperationsTotal)
}

func observe(operation string, err error) {
	taskOperationsTotal.WithLabelValues(operation, outcome(err)).Inc()
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrNotOwner), errors.Is(err, ErrUnauthenticated):
		return "unauthorized"
	case isClientError(err):
		return "invalid"
	default:
		return "error"
	}
}
