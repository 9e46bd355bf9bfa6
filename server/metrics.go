package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	match "github.com/openclob/openclob"
)

var (
	ordersTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "clobd_orders_accepted_total",
		Help: "Orders accepted at the HTTP boundary, by side and type.",
	}, []string{"side", "type"})

	bookEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "clobd_book_events_total",
		Help: "Book events emitted by the matching core, by event type.",
	}, []string{"type"})

	tradedVolume = promauto.NewCounter(prometheus.CounterOpts{
		Name: "clobd_traded_volume_total",
		Help: "Total matched quantity across all trades.",
	})
)

// MetricsPublisher counts book events into prometheus metrics. It processes
// events synchronously, so it is safe to use with the pooled events the
// book publishes.
type MetricsPublisher struct {
}

// NewMetricsPublisher creates a new MetricsPublisher.
func NewMetricsPublisher() *MetricsPublisher {
	return &MetricsPublisher{}
}

// Publish increments the per-type event counters and the traded volume.
func (p *MetricsPublisher) Publish(events ...*match.BookEvent) {
	for _, event := range events {
		bookEventsTotal.WithLabelValues(string(event.Type)).Inc()

		if event.Type == match.EventTypeMatch {
			size, _ := event.Size.Float64()
			tradedVolume.Add(size)
		}
	}
}
