package genl

import (
	"context"
	"fmt"
	"reflect"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/scitags/genetlinkd/types"
)

// Dispatch outcomes as reported by the outcome label.
const (
	outcomeOK            = "ok"
	outcomeMalformed     = "malformed"
	outcomeUnknownFamily = "unknown_family"
	outcomeTooShort      = "header_too_short"
	outcomeUnsupported   = "unsupported"
	outcomeDenied        = "denied"
	outcomeHandlerError  = "handler_error"
)

// unknownFamily labels messages that never resolved to a family.
const unknownFamily = "-"

type metrics struct {
	Messages *prometheus.CounterVec
	Handlers *prometheus.HistogramVec
	Families prometheus.GaugeFunc
}

func newMetrics(r *Registry) *metrics {
	return &metrics{
		Messages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "genl_messages_total",
			Help: "Inbound generic netlink messages by family and outcome",
		}, []string{"family", "outcome"}),

		Handlers: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "genl_handler_duration_seconds",
			Help:    "Time spent within doit and dumpit handlers",
			Buckets: prometheus.ExponentialBuckets(1e-6, 4, 10),
		}, []string{"family", "handler"}),

		Families: prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "genl_families",
			Help: "Currently registered families",
		}, func() float64 {
			return float64(r.Len())
		}),
	}
}

func (m *metrics) register(reg prometheus.Registerer) error {
	v := reflect.ValueOf(*m)

	i := 0
	for i = 0; i < v.NumField(); i++ {
		vv, ok := v.Field(i).Interface().(prometheus.Collector)
		if !ok {
			return fmt.Errorf("error casting the interface for index %d", i)
		}
		if err := reg.Register(vv); err != nil {
			return fmt.Errorf("error registering index %d: %w", i, err)
		}
	}
	logger.Log(context.Background(), types.LevelTrace, "registered collectors", "i", i)

	return nil
}

func (m *metrics) count(family, outcome string) {
	m.Messages.WithLabelValues(family, outcome).Inc()
}
