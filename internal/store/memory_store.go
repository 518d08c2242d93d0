// internal/store/memory_store.go
package store

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rfmontes/angel-fit-app/internal/models"
)

type memoryState struct {
	products []models.Product
	sales    []models.Sale // headers only
	items    []models.SaleItem
	users    []models.User
}

func (st memoryState) clone() memoryState {
	out := memoryState{
		products: make([]models.Product, len(st.products)),
		sales:    make([]models.Sale, len(st.sales)),
		items:    make([]models.SaleItem, 0, len(st.items)),
		users:    make([]models.User, len(st.users)),
	}
	copy(out.products, st.products)
	copy(out.sales, st.sales)
	copy(out.users, st.users)
	for _, item := range st.items {
		out.items = append(out.items, cloneItem(item))
	}
	return out
}

func cloneItem(item models.SaleItem) models.SaleItem {
	if item.ProductID != nil {
		id := *item.ProductID
		item.ProductID = &id
	}
	return item
}

// MemoryStore keeps every table in process memory. It has no transactions:
// each call commits on its own, like a plain REST table endpoint.
type MemoryStore struct {
	mu    sync.Mutex
	state memoryState
	now   func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{now: time.Now}
}

// Seed replaces the product table. Intended for development data and tests.
func (m *MemoryStore) Seed(products ...models.Product) []models.Product {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.products = m.state.products[:0]
	for _, p := range products {
		m.state.products = append(m.state.products, m.stampProduct(p))
	}
	out := make([]models.Product, len(m.state.products))
	copy(out, m.state.products)
	return out
}

func (m *MemoryStore) stampProduct(p models.Product) models.Product {
	now := m.now()
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	return p
}

func (m *MemoryStore) SelectProducts(ctx context.Context) ([]models.Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Product, len(m.state.products))
	copy(out, m.state.products)
	return out, nil
}

func (m *MemoryStore) CountProducts(ctx context.Context) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.state.products)), nil
}

func (m *MemoryStore) InsertProduct(ctx context.Context, product *models.Product) (*models.Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	row := m.stampProduct(*product)
	m.state.products = append(m.state.products, row)
	return &row, nil
}

func (m *MemoryStore) UpdateProduct(ctx context.Context, id uuid.UUID, fields map[string]interface{}) (*models.Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.state.products {
		if m.state.products[i].ID != id {
			continue
		}
		applyProductFields(&m.state.products[i], filterFields(fields, productFields))
		m.state.products[i].UpdatedAt = m.now()
		row := m.state.products[i]
		return &row, nil
	}
	return nil, ErrNotFound
}

func (m *MemoryStore) UpdateAllProducts(ctx context.Context, fields map[string]interface{}) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	fields = filterFields(fields, productFields)
	if len(fields) == 0 {
		return 0, nil
	}
	now := m.now()
	for i := range m.state.products {
		applyProductFields(&m.state.products[i], fields)
		m.state.products[i].UpdatedAt = now
	}
	return int64(len(m.state.products)), nil
}

func (m *MemoryStore) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.state.products {
		if m.state.products[i].ID == id {
			m.state.products = append(m.state.products[:i], m.state.products[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

func (m *MemoryStore) SelectSales(ctx context.Context) ([]models.Sale, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Sale, 0, len(m.state.sales))
	for _, sale := range m.state.sales {
		sale.Items = m.itemsOf(sale.ID)
		out = append(out, sale)
	}
	return out, nil
}

func (m *MemoryStore) itemsOf(saleID uuid.UUID) []models.SaleItem {
	items := []models.SaleItem{}
	for _, item := range m.state.items {
		if item.SaleID == saleID {
			items = append(items, cloneItem(item))
		}
	}
	return items
}

func (m *MemoryStore) InsertSale(ctx context.Context, sale *models.Sale) (*models.Sale, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	row := *sale
	row.Items = nil
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	if row.SaleDate.IsZero() {
		row.SaleDate = now.UTC()
	}
	if row.Status == "" {
		row.Status = models.SaleStatusActive
	}
	row.CreatedAt = now
	row.UpdatedAt = now
	m.state.sales = append(m.state.sales, row)
	return &row, nil
}

func (m *MemoryStore) UpdateSale(ctx context.Context, id uuid.UUID, fields map[string]interface{}) (*models.Sale, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.state.sales {
		if m.state.sales[i].ID != id {
			continue
		}
		applySaleFields(&m.state.sales[i], filterFields(fields, saleFields))
		m.state.sales[i].UpdatedAt = m.now()
		row := m.state.sales[i]
		return &row, nil
	}
	return nil, ErrNotFound
}

func (m *MemoryStore) DeleteSale(ctx context.Context, id uuid.UUID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.state.sales {
		if m.state.sales[i].ID == id {
			m.state.sales = append(m.state.sales[:i], m.state.sales[i+1:]...)
			m.deleteItems(id)
			return nil
		}
	}
	return ErrNotFound
}

func (m *MemoryStore) SelectSaleItems(ctx context.Context, saleID uuid.UUID) ([]models.SaleItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.itemsOf(saleID), nil
}

func (m *MemoryStore) InsertSaleItems(ctx context.Context, items []models.SaleItem) ([]models.SaleItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	out := make([]models.SaleItem, 0, len(items))
	for _, item := range items {
		row := cloneItem(item)
		if row.ID == uuid.Nil {
			row.ID = uuid.New()
		}
		row.CreatedAt = now
		m.state.items = append(m.state.items, row)
		out = append(out, cloneItem(row))
	}
	return out, nil
}

func (m *MemoryStore) DeleteSaleItems(ctx context.Context, saleID uuid.UUID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleteItems(saleID)
	return nil
}

func (m *MemoryStore) deleteItems(saleID uuid.UUID) {
	kept := m.state.items[:0]
	for _, item := range m.state.items {
		if item.SaleID != saleID {
			kept = append(kept, item)
		}
	}
	m.state.items = kept
}

func (m *MemoryStore) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	email = strings.ToLower(strings.TrimSpace(email))
	for _, u := range m.state.users {
		if strings.ToLower(u.Email) == email {
			user := u
			return &user, nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryStore) FindUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.state.users {
		if u.ID == id {
			user := u
			return &user, nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryStore) CreateUser(ctx context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	user.CreatedAt = now
	user.UpdatedAt = now
	m.state.users = append(m.state.users, *user)
	return nil
}

func (m *MemoryStore) TouchLastLogin(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.state.users {
		if m.state.users[i].ID == id {
			now := m.now()
			m.state.users[i].LastLoginAt = &now
			return nil
		}
	}
	return ErrNotFound
}

func (m *MemoryStore) snapshot() memoryState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.clone()
}

func (m *MemoryStore) restore(st memoryState) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = st
}

// TxMemoryStore adds snapshot-based transactions to MemoryStore. Writes made
// inside a failed transaction are discarded by restoring the snapshot taken
// when it began. Transactions are serialized.
type TxMemoryStore struct {
	*MemoryStore
	txMu sync.Mutex
}

func NewTxMemoryStore() *TxMemoryStore {
	return &TxMemoryStore{MemoryStore: NewMemoryStore()}
}

func (t *TxMemoryStore) Transaction(ctx context.Context, fn func(tx DataStore) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	t.txMu.Lock()
	defer t.txMu.Unlock()

	snap := t.snapshot()
	committed := false
	defer func() {
		if !committed {
			t.restore(snap)
		}
	}()

	if err := fn(t.MemoryStore); err != nil {
		return err
	}
	committed = true
	return nil
}

func applyProductFields(p *models.Product, fields map[string]interface{}) {
	for k, v := range fields {
		switch k {
		case "name":
			p.Name = asString(v)
		case "category":
			p.Category = asString(v)
		case "color":
			p.Color = asString(v)
		case "size":
			p.Size = asString(v)
		case "supplier":
			p.Supplier = asString(v)
		case "price":
			p.Price = asDecimal(v)
		case "cost":
			p.Cost = asDecimal(v)
		case "stock":
			p.Stock = asInt(v)
		case "min_stock":
			p.MinStock = asInt(v)
		}
	}
}

func applySaleFields(s *models.Sale, fields map[string]interface{}) {
	for k, v := range fields {
		switch k {
		case "total":
			s.Total = asDecimal(v)
		case "payment_method":
			s.PaymentMethod = asString(v)
		case "customer_name":
			s.CustomerName = asString(v)
		case "customer_phone":
			s.CustomerPhone = asString(v)
		case "sale_date":
			if t, ok := v.(time.Time); ok {
				s.SaleDate = t
			}
		case "status":
			s.Status = models.SaleStatus(asString(v))
		}
	}
}

func asString(v interface{}) string {
	switch val := v.(type) {
	case string:
		return val
	case models.SaleStatus:
		return string(val)
	case *string:
		if val != nil {
			return *val
		}
	}
	return ""
}

func asInt(v interface{}) int {
	switch val := v.(type) {
	case int:
		return val
	case int32:
		return int(val)
	case int64:
		return int(val)
	case float64:
		return int(val)
	}
	return 0
}

func asDecimal(v interface{}) decimal.Decimal {
	switch val := v.(type) {
	case decimal.Decimal:
		return val
	case float64:
		return decimal.NewFromFloat(val)
	case int:
		return decimal.NewFromInt(int64(val))
	case string:
		if d, err := decimal.NewFromString(val); err == nil {
			return d
		}
	}
	return decimal.Zero
}
