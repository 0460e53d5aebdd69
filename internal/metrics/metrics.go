package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	RemindersDelivered = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reminders_delivered_total",
			Help: "Reminders delivered, by channel",
		},
		[]string{"channel"},
	)

	RemindersSkipped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reminders_skipped_total",
			Help: "Due reminders that were not delivered, by reason",
		},
		[]string{"reason"},
	)

	RemindersPending = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "reminders_pending",
			Help: "Reminders currently tracked by the scheduler",
		},
	)

	DeliveryLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "reminder_delivery_seconds",
			Help:    "Time spent delivering a reminder, by channel",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"channel"},
	)

	// Tardiness is how late a reminder fired relative to its notification time.
	Tardiness = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "reminder_tardiness_seconds",
			Help:    "Delay between notification time and delivery",
			Buckets: prometheus.LinearBuckets(0.25, 0.25, 8),
		},
	)

	SubscriptionsReplaced = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "push_subscriptions_replaced_total",
			Help: "Stored push subscriptions torn down before a new one was saved",
		},
	)
)

func Init() {
	prometheus.MustRegister(RemindersDelivered)
	prometheus.MustRegister(RemindersSkipped)
	prometheus.MustRegister(RemindersPending)
	prometheus.MustRegister(DeliveryLatency)
	prometheus.MustRegister(Tardiness)
	prometheus.MustRegister(SubscriptionsReplaced)
}

func Delivered(channel string, started time.Time, due time.Time) {
	RemindersDelivered.WithLabelValues(channel).Inc()
	DeliveryLatency.WithLabelValues(channel).Observe(time.Since(started).Seconds())
	if late := started.Sub(due); late > 0 {
		Tardiness.Observe(late.Seconds())
	}
}

func Skipped(reason string) {
	RemindersSkipped.WithLabelValues(reason).Inc()
}
