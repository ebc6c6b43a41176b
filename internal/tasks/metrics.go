package tasks

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics - счётчики операций над задачами.
//
// nil *Metrics допустим: все методы тогда ничего не делают (удобно в тестах).
type Metrics struct {
	operations *prometheus.CounterVec
	pageSize   prometheus.Histogram
}

// NewMetrics регистрирует метрики в reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tasks",
			Name:      "operations_total",
			Help:      "Task operations by kind and outcome.",
		}, []string{"op", "result"}),
		pageSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "tasks",
			Name:      "list_page_items",
			Help:      "Number of items returned per list page.",
			Buckets:   []float64{0, 1, 5, 10, 25, 50, 100},
		}),
	}
	reg.MustRegister(m.operations, m.pageSize)
	return m
}

func (m *Metrics) observe(op string, err error) {
	if m == nil {
		return
	}
	m.operations.WithLabelValues(op, resultLabel(err)).Inc()
}

func (m *Metrics) observePage(items int) {
	if m == nil {
		return
	}
	m.pageSize.Observe(float64(items))
}

func resultLabel(err error) string {
	var verr *ValidationError
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.As(err, &verr):
		return "invalid"
	default:
		return "error"
	}
}
