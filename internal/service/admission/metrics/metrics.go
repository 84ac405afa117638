// Package metrics 暴露准入链路的 Prometheus 指标。
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	TokensIssued = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "seckill",
		Name:      "tokens_issued_total",
		Help:      "Purchase tokens issued by the admission gate.",
	})

	TokensRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "seckill",
		Name:      "tokens_rejected_total",
		Help:      "Token requests rejected, by reason.",
	}, []string{"reason"})

	ReservationsAccepted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "seckill",
		Name:      "reservations_accepted_total",
		Help:      "Reservations accepted by the fast-store counter.",
	})

	ReservationsRejected = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "seckill",
		Name:      "reservations_rejected_total",
		Help:      "Reservations rejected for insufficient counter value.",
	})

	Compensations = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "seckill",
		Name:      "reservation_compensations_total",
		Help:      "Compensating increments applied to the reservation counter.",
	})

	HalfMessages = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "seckill",
		Name:      "half_messages_total",
		Help:      "Half-message resolutions, by outcome.",
	}, []string{"outcome"})

	ReconcileApplied = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "seckill",
		Name:      "reconcile_applied_total",
		Help:      "Decrement messages applied to the stock ledger.",
	})

	ReconcileDuplicates = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "seckill",
		Name:      "reconcile_duplicates_total",
		Help:      "Redelivered decrement messages skipped by the idempotency guard.",
	})
)
