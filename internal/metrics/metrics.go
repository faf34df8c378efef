package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestsCreated counts persisted repair requests by source.
	RequestsCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "repairdesk_requests_created_total",
		Help: "Repair requests persisted, by intake source.",
	}, []string{"source"})

	// NotificationsFailed counts chat deliveries that were dropped.
	NotificationsFailed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "repairdesk_notifications_failed_total",
		Help: "Notifications that could not be delivered, by kind.",
	}, []string{"kind"})

	// Updates counts chat events handled by the router.
	Updates = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "repairdesk_updates_total",
		Help: "Chat updates dispatched, by kind and route.",
	}, []string{"kind", "route"})
)
