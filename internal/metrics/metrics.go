package metrics

import "github.com/prometheus/client_golang/prometheus"

// BookingMetrics exposes counters for the booking flow.
type BookingMetrics struct {
	bookingsTotal     *prometheus.CounterVec
	cancellationTotal *prometheus.CounterVec
	integrationTotal  *prometheus.CounterVec
}

func NewBookingMetrics(reg prometheus.Registerer) *BookingMetrics {
	m := &BookingMetrics{
		bookingsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "booking",
			Name:      "requests_total",
			Help:      "Booking attempts by outcome",
		}, []string{"outcome"}),
		cancellationTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "booking",
			Name:      "cancellations_total",
			Help:      "Cancellation attempts by outcome",
		}, []string{"outcome"}),
		integrationTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "booking",
			Name:      "integration_total",
			Help:      "Post-reservation integration calls by collaborator and status",
		}, []string{"collaborator", "status"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.bookingsTotal, m.cancellationTotal, m.integrationTotal)
	return m
}

func (m *BookingMetrics) ObserveBooking(outcome string) {
	if m == nil {
		return
	}
	m.bookingsTotal.WithLabelValues(outcome).Inc()
}

func (m *BookingMetrics) ObserveCancellation(outcome string) {
	if m == nil {
		return
	}
	m.cancellationTotal.WithLabelValues(outcome).Inc()
}

func (m *BookingMetrics) ObserveIntegration(collaborator string, ok bool) {
	if m == nil {
		return
	}
	status := "ok"
	if !ok {
		status = "failed"
	}
	m.integrationTotal.WithLabelValues(collaborator, status).Inc()
}
