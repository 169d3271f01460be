package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ServiceRequestsCreated counts service requests opened by clients.
	ServiceRequestsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "service_requests_created_total",
		Help: "The total number of service requests created",
	})

	// ServiceRequestTransitions counts successful status changes by target status.
	ServiceRequestTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "service_request_transitions_total",
		Help: "The total number of service request status transitions",
	}, []string{"status"})

	// ServiceRequestClaimConflicts counts accepts lost to another mechanic.
	ServiceRequestClaimConflicts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "service_request_claim_conflicts_total",
		Help: "The total number of accept attempts on already claimed service requests",
	})

	// VehiclesRegistered counts vehicles created.
	VehiclesRegistered = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vehicles_registered_total",
		Help: "The total number of vehicles registered",
	})

	// UsersRegistered counts self-registered users by role.
	UsersRegistered = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "users_registered_total",
		Help: "The total number of users registered",
	}, []string{"role"})

	// ProximityResults observes how many results a nearby search returned, by searched entity.
	ProximityResults = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "proximity_search_results",
		Help:    "Number of results returned by proximity searches",
		Buckets: []float64{0, 1, 5, 10, 25, 50, 100},
	}, []string{"entity"})

	// OutboxEventsPublished counts outbox events by final processing status.
	OutboxEventsPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "outbox_events_total",
		Help: "The total number of outbox events handled by the worker",
	}, []string{"status"})
)
