// internal/store/gorm_store.go
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/rfmontes/angel-fit-app/internal/database"
	"github.com/rfmontes/angel-fit-app/internal/models"
)

// GormStore is the postgres-backed DataStore. It also implements Transactor
// and UserStore.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) Transaction(ctx context.Context, fn func(tx DataStore) error) error {
	return database.WithTransaction(s.db.WithContext(ctx), func(tx *gorm.DB) error {
		return fn(&GormStore{db: tx})
	})
}

func (s *GormStore) SelectProducts(ctx context.Context) ([]models.Product, error) {
	var products []models.Product
	if err := s.db.WithContext(ctx).Order("created_at ASC").Find(&products).Error; err != nil {
		return nil, fmt.Errorf("failed to select products: %w", err)
	}
	return products, nil
}

func (s *GormStore) CountProducts(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.Product{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count products: %w", err)
	}
	return count, nil
}

func (s *GormStore) InsertProduct(ctx context.Context, product *models.Product) (*models.Product, error) {
	row := *product
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return nil, fmt.Errorf("failed to insert product: %w", err)
	}
	return &row, nil
}

func (s *GormStore) UpdateProduct(ctx context.Context, id uuid.UUID, fields map[string]interface{}) (*models.Product, error) {
	db := s.db.WithContext(ctx)
	fields = filterFields(fields, productFields)
	if len(fields) > 0 {
		result := db.Model(&models.Product{}).Where("id = ?", id).Updates(fields)
		if result.Error != nil {
			return nil, fmt.Errorf("failed to update product: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return nil, ErrNotFound
		}
	}

	var product models.Product
	if err := db.Where("id = ?", id).First(&product).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to reload product: %w", err)
	}
	return &product, nil
}

func (s *GormStore) UpdateAllProducts(ctx context.Context, fields map[string]interface{}) (int64, error) {
	fields = filterFields(fields, productFields)
	if len(fields) == 0 {
		return 0, nil
	}
	result := s.db.WithContext(ctx).Model(&models.Product{}).Where("id IS NOT NULL").Updates(fields)
	if result.Error != nil {
		return 0, fmt.Errorf("failed to update products: %w", result.Error)
	}
	return result.RowsAffected, nil
}

func (s *GormStore) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	result := s.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Product{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete product: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormStore) SelectSales(ctx context.Context) ([]models.Sale, error) {
	var sales []models.Sale
	err := s.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		}).
		Order("sale_date ASC, created_at ASC").
		Find(&sales).Error
	if err != nil {
		return nil, fmt.Errorf("failed to select sales: %w", err)
	}
	return sales, nil
}

func (s *GormStore) InsertSale(ctx context.Context, sale *models.Sale) (*models.Sale, error) {
	row := *sale
	row.Items = nil
	if row.SaleDate.IsZero() {
		row.SaleDate = time.Now().UTC()
	}
	if err := s.db.WithContext(ctx).Omit(clause.Associations).Create(&row).Error; err != nil {
		return nil, fmt.Errorf("failed to insert sale: %w", err)
	}
	return &row, nil
}

func (s *GormStore) UpdateSale(ctx context.Context, id uuid.UUID, fields map[string]interface{}) (*models.Sale, error) {
	db := s.db.WithContext(ctx)
	fields = filterFields(fields, saleFields)
	if len(fields) > 0 {
		result := db.Model(&models.Sale{}).Where("id = ?", id).Updates(fields)
		if result.Error != nil {
			return nil, fmt.Errorf("failed to update sale: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return nil, ErrNotFound
		}
	}

	var sale models.Sale
	if err := db.Where("id = ?", id).First(&sale).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to reload sale: %w", err)
	}
	return &sale, nil
}

func (s *GormStore) DeleteSale(ctx context.Context, id uuid.UUID) error {
	result := s.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Sale{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete sale: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormStore) SelectSaleItems(ctx context.Context, saleID uuid.UUID) ([]models.SaleItem, error) {
	var items []models.SaleItem
	err := s.db.WithContext(ctx).Where("sale_id = ?", saleID).Order("created_at ASC").Find(&items).Error
	if err != nil {
		return nil, fmt.Errorf("failed to select sale items: %w", err)
	}
	return items, nil
}

func (s *GormStore) InsertSaleItems(ctx context.Context, items []models.SaleItem) ([]models.SaleItem, error) {
	if len(items) == 0 {
		return []models.SaleItem{}, nil
	}
	rows := make([]models.SaleItem, len(items))
	copy(rows, items)
	if err := s.db.WithContext(ctx).Create(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to insert sale items: %w", err)
	}
	return rows, nil
}

func (s *GormStore) DeleteSaleItems(ctx context.Context, saleID uuid.UUID) error {
	if err := s.db.WithContext(ctx).Where("sale_id = ?", saleID).Delete(&models.SaleItem{}).Error; err != nil {
		return fmt.Errorf("failed to delete sale items: %w", err)
	}
	return nil
}

func (s *GormStore) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Where("lower(email) = ?", strings.ToLower(strings.TrimSpace(email))).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return &user, nil
}

func (s *GormStore) FindUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return &user, nil
}

func (s *GormStore) CreateUser(ctx context.Context, user *models.User) error {
	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (s *GormStore) TouchLastLogin(ctx context.Context, id uuid.UUID) error {
	now := time.Now()
	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Update("last_login_at", &now).Error; err != nil {
		return fmt.Errorf("failed to update last login: %w", err)
	}
	return nil
}
