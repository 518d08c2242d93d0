// internal/metrics/metrics_test.go
package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsRecord(t *testing.T) {
	m := New()
	m.ObserveOperation("sale.create", "success", 10*time.Millisecond)
	m.ObserveOperation("sale.create", "rejected", time.Millisecond)
	m.ObserveCacheLoad(nil)
	m.ObserveCacheLoad(errors.New("down"))
	m.SetStockLevels(3, 1, 1)
	m.ObserveRequest("GET", "/v1/products", "200", time.Millisecond)

	families, err := m.Registry.Gather()
	require.NoError(t, err)

	names := make(map[string]bool)
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["angelfit_inventory_operations_total"])
	assert.True(t, names["angelfit_cache_loads_total"])
	assert.True(t, names["angelfit_products_out_of_stock"])
	assert.True(t, names["angelfit_http_requests_total"])
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveOperation("sale.delete", "success", time.Second)
		m.ObserveCacheLoad(nil)
		m.SetStockLevels(0, 0, 0)
		m.ObserveRequest("GET", "/", "200", time.Second)
	})
}

func TestNewUsesIsolatedRegistry(t *testing.T) {
	assert.NotPanics(t, func() {
		New()
		New()
	})
}
