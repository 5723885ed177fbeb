package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ProductsCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "products_created_total",
		Help: "Total number of products created",
	})

	ProductsDeletedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "products_deleted_total",
		Help: "Total number of products deleted",
	})

	StockUpdatesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stock_updates_total",
		Help: "Total number of quantity or threshold updates applied",
	}, []string{"field"})

	AlertsOpenedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stock_alerts_opened_total",
		Help: "Total number of low-stock alerts opened",
	})

	AlertsResolvedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stock_alerts_resolved_total",
		Help: "Total number of low-stock alerts resolved",
	}, []string{"reason"})

	AlertsDeletedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stock_alerts_deleted_total",
		Help: "Total number of alert records deleted",
	})

	AlertsRepairedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stock_alerts_repaired_total",
		Help: "Total number of alert drifts repaired by reconciliation",
	}, []string{"action"})

	EngineOperationLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "alert_engine_operation_latency_seconds",
		Help:    "Latency of consistency engine operations",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})

	EngineOperationErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "alert_engine_operation_errors_total",
		Help: "Total number of failed consistency engine operations",
	}, []string{"operation", "kind"})

	StockCommandsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stock_commands_total",
		Help: "Total number of stock commands consumed",
	}, []string{"type", "result"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
)
