package utils

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	AllocationSequential = "sequential"
	AllocationFallback   = "fallback"
	AllocationEmergency  = "emergency"
)

type Metrics struct {
	reg              *prometheus.Registry
	NumbersAllocated *prometheus.CounterVec
	OrdersCreated    *prometheus.CounterVec
	EmailsSent       *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	r := prometheus.NewRegistry()
	allocated := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "onam_order_numbers_allocated_total",
		Help: "Order numbers handed out, by allocation mode.",
	}, []string{"mode"})
	created := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "onam_orders_created_total",
		Help: "Orders persisted, by payment method.",
	}, []string{"payment_method"})
	emails := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "onam_emails_sent_total",
		Help: "Confirmation emails attempted, by result.",
	}, []string{"result"})

	r.MustRegister(allocated, created, emails)
	return &Metrics{
		reg:              r,
		NumbersAllocated: allocated,
		OrdersCreated:    created,
		EmailsSent:       emails,
	}
}

func (m *Metrics) Handler() http.Handler { return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{}) }
