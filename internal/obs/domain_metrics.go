package obs

import (
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// InvoiceRecalcTotal counts invoice total recomputations by outcome.
	InvoiceRecalcTotal *prometheus.CounterVec
	// InvoiceRecalcDuration records recompute latency in milliseconds.
	InvoiceRecalcDuration prometheus.Histogram
	// InvoiceCreatedTotal counts invoices created on demand.
	InvoiceCreatedTotal prometheus.Counter
	// CampusSplitTotal counts campus-invoicing enablements.
	CampusSplitTotal prometheus.Counter
	// PaymentRecordedTotal counts payments recorded against invoices.
	PaymentRecordedTotal prometheus.Counter
)

// MustRegisterDomainMetrics initialises and registers billing-domain
// Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		InvoiceRecalcTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "invoice_recalc_total",
			Help:      "Count of invoice total recomputations by outcome.",
		}, []string{"result"})
		InvoiceRecalcDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "invoice_recalc_duration_ms",
			Help:      "Latency of invoice total recomputation in milliseconds.",
			Buckets:   []float64{1, 2, 5, 10, 25, 50, 100, 250, 500},
		})
		InvoiceCreatedTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "invoice_created_total",
			Help:      "Number of invoices created on demand.",
		})
		CampusSplitTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "invoice_campus_split_total",
			Help:      "Number of campus-invoicing enablements.",
		})
		PaymentRecordedTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "invoice_payment_recorded_total",
			Help:      "Number of payments recorded against invoices.",
		})

		mustRegisterCollector(reg, InvoiceRecalcTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				InvoiceRecalcTotal = v
			}
		})
		mustRegisterCollector(reg, InvoiceRecalcDuration, func(existing prometheus.Collector) {
			if v, ok := existing.(prometheus.Histogram); ok {
				InvoiceRecalcDuration = v
			}
		})
		mustRegisterCollector(reg, InvoiceCreatedTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(prometheus.Counter); ok {
				InvoiceCreatedTotal = v
			}
		})
		mustRegisterCollector(reg, CampusSplitTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(prometheus.Counter); ok {
				CampusSplitTotal = v
			}
		})
		mustRegisterCollector(reg, PaymentRecordedTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(prometheus.Counter); ok {
				PaymentRecordedTotal = v
			}
		})
	})
}

func mustRegisterCollector(reg prometheus.Registerer, collector prometheus.Collector, replace func(prometheus.Collector)) {
	if err := reg.Register(collector); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			replace(are.ExistingCollector)
			return
		}
		panic(fmt.Errorf("register collector: %w", err))
	}
}
