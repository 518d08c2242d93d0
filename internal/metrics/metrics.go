// internal/metrics/metrics.go
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Metrics holds the prometheus collectors of the service. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	Registry *prometheus.Registry

	requestCounter   *prometheus.CounterVec
	requestLatency   *prometheus.HistogramVec
	operationCounter *prometheus.CounterVec
	operationLatency *prometheus.HistogramVec
	cacheLoads       *prometheus.CounterVec
	products         prometheus.Gauge
	outOfStock       prometheus.Gauge
	lowStock         prometheus.Gauge
}

// New creates the collectors and registers them on a fresh registry, along
// with the Go runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		Registry: reg,
		requestCounter: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "angelfit_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status"},
		),
		requestLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "angelfit_http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "endpoint"},
		),
		operationCounter: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "angelfit_inventory_operations_total",
				Help: "Inventory mutations by operation and result",
			},
			[]string{"operation", "result"},
		),
		operationLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "angelfit_inventory_operation_duration_seconds",
				Help:    "Duration of inventory mutations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		cacheLoads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "angelfit_cache_loads_total",
				Help: "Full cache reloads from the data store",
			},
			[]string{"result"},
		),
		products: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "angelfit_products",
			Help: "Number of products in the cache",
		}),
		outOfStock: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "angelfit_products_out_of_stock",
			Help: "Number of products with zero stock",
		}),
		lowStock: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "angelfit_products_low_stock",
			Help: "Number of products at or below their minimum stock",
		}),
	}

	reg.MustRegister(
		m.requestCounter,
		m.requestLatency,
		m.operationCounter,
		m.operationLatency,
		m.cacheLoads,
		m.products,
		m.outOfStock,
		m.lowStock,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) ObserveRequest(method, endpoint, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.requestCounter.WithLabelValues(method, endpoint, status).Inc()
	m.requestLatency.WithLabelValues(method, endpoint).Observe(d.Seconds())
}

// ObserveOperation records one inventory mutation. result is "success",
// "rejected", "rolled_back" or "partial_failure".
func (m *Metrics) ObserveOperation(operation, result string, d time.Duration) {
	if m == nil {
		return
	}
	m.operationCounter.WithLabelValues(operation, result).Inc()
	m.operationLatency.WithLabelValues(operation).Observe(d.Seconds())
}

func (m *Metrics) ObserveCacheLoad(err error) {
	if m == nil {
		return
	}
	result := "success"
	if err != nil {
		result = "error"
	}
	m.cacheLoads.WithLabelValues(result).Inc()
}

func (m *Metrics) SetStockLevels(products, outOfStock, lowStock int) {
	if m == nil {
		return
	}
	m.products.Set(float64(products))
	m.outOfStock.Set(float64(outOfStock))
	m.lowStock.Set(float64(lowStock))
}
