package http

import (
	"time"

	"github.com/GriffinCanCode/AgentOS/windowing/internal/infrastructure/monitoring"
)

// HandlerMetrics wraps handlers with metrics tracking
type HandlerMetrics struct {
	metrics *monitoring.Metrics
}

// NewHandlerMetrics creates a metrics wrapper
func NewHandlerMetrics(metrics *monitoring.Metrics) *HandlerMetrics {
	return &HandlerMetrics{metrics: metrics}
}

// Track starts timing an admin operation. The returned func records it with
// the outcome of the error it is given.
func (hm *HandlerMetrics) Track(operation string) func(err error) {
	start := time.Now()
	return func(err error) {
		status := "success"
		if err != nil {
			status = "error"
		}
		hm.metrics.RecordAdminOp(operation, status, time.Since(start))
	}
}
