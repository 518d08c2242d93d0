// internal/services/report_service_test.go
package services

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx"

	"github.com/rfmontes/angel-fit-app/internal/store"
)

func reportFixture(t *testing.T) (*InventoryService, *StorageService, string) {
	mem := store.NewTxMemoryStore()
	seeded := mem.Seed(
		product("Top Preto M", "Top", "Preto", 30, 12, 10, 2),
		product("Calça Azul G", "Calça", "Azul", 80, 35, 0, 1),
	)
	service := NewInventoryService(mem, testConfig(), nil, nil)
	require.NoError(t, service.Load(context.Background()))
	_, err := service.CreateSale(context.Background(), saleRequest("Maria", line(seeded[0], 3, 20)))
	require.NoError(t, err)

	dir := t.TempDir()
	cfg := testConfig()
	cfg.Server.Host = "localhost"
	cfg.Server.Port = "8080"
	cfg.AWS.LocalUploadDir = dir
	storage, err := NewStorageService(cfg)
	require.NoError(t, err)
	return service, storage, dir
}

func TestProductsWorkbook(t *testing.T) {
	inventory, _, _ := reportFixture(t)
	reports := NewReportService(inventory, nil, nil)

	var buf bytes.Buffer
	require.NoError(t, reports.WriteProducts(&buf))

	file, err := xlsx.OpenBinary(buf.Bytes())
	require.NoError(t, err)
	require.Len(t, file.Sheets, 1)
	sheet := file.Sheets[0]
	assert.Equal(t, "Estoque", sheet.Name)
	require.Len(t, sheet.Rows, 3)
	assert.Equal(t, "Nome", sheet.Rows[0].Cells[1].String())
	// sorted by supplier and category
	assert.Equal(t, "Calça Azul G", sheet.Rows[1].Cells[1].String())
	assert.Equal(t, "Top Preto M", sheet.Rows[2].Cells[1].String())
	stock, err := sheet.Rows[2].Cells[8].Int()
	require.NoError(t, err)
	assert.Equal(t, 7, stock)
}

func TestInventoryWorkbook(t *testing.T) {
	inventory, _, _ := reportFixture(t)
	reports := NewReportService(inventory, nil, nil)

	file, err := reports.InventoryWorkbook(time.Now())
	require.NoError(t, err)
	require.Len(t, file.Sheets, 3)
	assert.Equal(t, "Resumo", file.Sheets[0].Name)
	assert.Equal(t, "Vendas", file.Sheets[2].Name)

	sales := file.Sheets[2]
	require.Len(t, sales.Rows, 2)
	assert.Equal(t, "Maria", sales.Rows[1].Cells[2].String())
	assert.Equal(t, "Top Preto M", sales.Rows[1].Cells[6].String())
	total, err := sales.Rows[1].Cells[9].Float()
	require.NoError(t, err)
	assert.Equal(t, 60.0, total)
}

func TestPublishInventoryReportLocally(t *testing.T) {
	inventory, storage, dir := reportFixture(t)
	reports := NewReportService(inventory, storage, nil)
	assert.Equal(t, dir, storage.LocalDir())

	now := time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC)
	result, err := reports.PublishInventoryReport(context.Background(), now)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(result.Key, "reports/"))
	assert.True(t, strings.HasSuffix(result.Key, ".xlsx"))
	assert.Equal(t, XLSXContentType, result.MimeType)
	assert.Equal(t, "http://localhost:8080/v1/uploads/"+result.Key, result.URL)
	// timestamp, then a full uuid
	name := strings.TrimSuffix(strings.TrimPrefix(result.Key, "reports/"), ".xlsx")
	assert.Len(t, name, len("20060102_150405_")+36)
	assert.NotEmpty(t, result.SHA256)

	data, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(result.Key)))
	require.NoError(t, err)
	assert.Equal(t, result.Size, int64(len(data)))

	_, err = storage.GeneratePresignedURL(result.Key, time.Minute)
	assert.Error(t, err)
}
