package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ProductsMutatedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "products_mutated_total",
		Help: "Total number of committed catalog mutations",
	}, []string{"action"})

	InventoryProducts = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "inventory_products",
		Help: "Number of products currently in the catalog",
	})

	SalesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sales_total",
		Help: "Total number of completed sales",
	})

	UnitsSoldTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "units_sold_total",
		Help: "Total number of units sold",
	})

	SalesFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sales_failed_total",
		Help: "Total number of rejected or failed sales",
	}, []string{"reason"})

	PersistenceFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "persistence_failures_total",
		Help: "Total number of failed record set writes",
	}, []string{"kind"})

	PersistenceWriteLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "persistence_write_latency_seconds",
		Help:    "Latency of record set writes",
		Buckets: prometheus.DefBuckets,
	}, []string{"kind"})

	LoginsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "logins_total",
		Help: "Total number of login attempts",
	}, []string{"result"})

	ForecastsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "forecasts_total",
		Help: "Total number of sales forecasts computed",
	})

	LowStockAlertsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "low_stock_alerts_total",
		Help: "Total number of low stock alerts raised",
	})

	VoiceSearchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voice_searches_total",
		Help: "Total number of voice searches",
	}, []string{"result"})

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
