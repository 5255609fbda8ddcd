package storage

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/example/couture/internal/models"
)

// DatabaseStore implements Store on top of GORM.
type DatabaseStore struct {
	db *gorm.DB
}

var _ Store = (*DatabaseStore)(nil)

// NewDatabaseStore wraps an open GORM connection.
func NewDatabaseStore(db *gorm.DB) *DatabaseStore {
	return &DatabaseStore{db: db}
}

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrDuplicate
	}
	return err
}

func (s *DatabaseStore) first(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	return translate(s.db.WithContext(ctx).Where(query, args...).First(dest).Error)
}

// insertIgnoringConflict inserts row unless one with the same unique column
// value exists. A unique violation would abort the surrounding transaction,
// so the conflict is resolved by Postgres instead of being reported.
func (s *DatabaseStore) insertIgnoringConflict(ctx context.Context, row interface{}, column string) error {
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: column}}, DoNothing: true}).
		Create(row).Error
}

func (s *DatabaseStore) deleteByID(ctx context.Context, model interface{}, id uuid.UUID) error {
	res := s.db.WithContext(ctx).Where("id = ?", id).Delete(model)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Transaction runs fn inside a database transaction.
func (s *DatabaseStore) Transaction(ctx context.Context, fn func(tx Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&DatabaseStore{db: tx})
	})
}

// Ping checks the underlying connection.
func (s *DatabaseStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *DatabaseStore) CreateUser(ctx context.Context, user *models.User) error {
	return translate(s.db.WithContext(ctx).Create(user).Error)
}

func (s *DatabaseStore) GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := s.first(ctx, &user, "id = ?", id); err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *DatabaseStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := s.first(ctx, &user, "lower(email) = lower(?)", email); err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *DatabaseStore) UpdateUser(ctx context.Context, user *models.User) error {
	return translate(s.db.WithContext(ctx).Save(user).Error)
}

func (s *DatabaseStore) CreateCategory(ctx context.Context, category *models.Category) error {
	return translate(s.db.WithContext(ctx).Omit(clause.Associations).Create(category).Error)
}

func (s *DatabaseStore) ListCategories(ctx context.Context) ([]models.Category, error) {
	var categories []models.Category
	if err := s.db.WithContext(ctx).Order("name asc").Find(&categories).Error; err != nil {
		return nil, err
	}
	return categories, nil
}

func (s *DatabaseStore) GetCategoryBySlug(ctx context.Context, slug string) (*models.Category, error) {
	var category models.Category
	if err := s.first(ctx, &category, "slug = ?", slug); err != nil {
		return nil, err
	}
	return &category, nil
}

func (s *DatabaseStore) CreateProduct(ctx context.Context, product *models.Product) error {
	return translate(s.db.WithContext(ctx).Omit(clause.Associations).Create(product).Error)
}

func (s *DatabaseStore) GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := s.db.WithContext(ctx).Preload("Category").Where("id = ?", id).First(&product).Error; err != nil {
		return nil, translate(err)
	}
	return &product, nil
}

func (s *DatabaseStore) ListProducts(ctx context.Context, filter models.ProductFilter) ([]models.Product, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.Product{})
	if filter.CategoryID != nil {
		query = query.Where("category_id = ?", *filter.CategoryID)
	}
	if filter.Search != "" {
		query = query.Where("name ILIKE ?", "%"+filter.Search+"%")
	}
	if filter.MinPrice != nil {
		query = query.Where("price >= ?", *filter.MinPrice)
	}
	if filter.MaxPrice != nil {
		query = query.Where("price <= ?", *filter.MaxPrice)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	order, ok := models.ProductOrdering[filter.Ordering]
	if !ok {
		order = models.ProductOrdering[models.DefaultProductOrdering]
	}
	query = query.Preload("Category").Order(order)
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit).Offset(filter.Offset)
	}

	var products []models.Product
	if err := query.Find(&products).Error; err != nil {
		return nil, 0, err
	}
	return products, total, nil
}

func (s *DatabaseStore) GetCartByCode(ctx context.Context, code string) (*models.Cart, error) {
	var cart models.Cart
	if err := s.first(ctx, &cart, "cart_code = ?", code); err != nil {
		return nil, err
	}
	return &cart, nil
}

func (s *DatabaseStore) GetOrCreateCart(ctx context.Context, code string) (*models.Cart, error) {
	cart := models.Cart{CartCode: code}
	if err := s.insertIgnoringConflict(ctx, &cart, "cart_code"); err != nil {
		return nil, err
	}
	return s.GetCartByCode(ctx, code)
}

func (s *DatabaseStore) GetCartItem(ctx context.Context, cartID, itemID uuid.UUID) (*models.CartItem, error) {
	var item models.CartItem
	if err := s.first(ctx, &item, "id = ? AND cart_id = ?", itemID, cartID); err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *DatabaseStore) GetCartItemByProduct(ctx context.Context, cartID, productID uuid.UUID) (*models.CartItem, error) {
	var item models.CartItem
	if err := s.first(ctx, &item, "cart_id = ? AND product_id = ?", cartID, productID); err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *DatabaseStore) ListCartItems(ctx context.Context, cartID uuid.UUID) ([]models.CartItem, error) {
	var items []models.CartItem
	if err := s.db.WithContext(ctx).
		Preload("Product").
		Where("cart_id = ?", cartID).
		Order("created_at asc").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *DatabaseStore) SaveCartItem(ctx context.Context, item *models.CartItem) error {
	return translate(s.db.WithContext(ctx).Omit(clause.Associations).Save(item).Error)
}

func (s *DatabaseStore) DeleteCartItem(ctx context.Context, id uuid.UUID) error {
	return s.deleteByID(ctx, &models.CartItem{}, id)
}

func (s *DatabaseStore) CreateCustomOrder(ctx context.Context, order *models.CustomOrder) error {
	return translate(s.db.WithContext(ctx).Create(order).Error)
}

func (s *DatabaseStore) GetCustomOrder(ctx context.Context, id uuid.UUID) (*models.CustomOrder, error) {
	var order models.CustomOrder
	if err := s.first(ctx, &order, "id = ?", id); err != nil {
		return nil, err
	}
	return &order, nil
}

func (s *DatabaseStore) UpdateCustomOrder(ctx context.Context, order *models.CustomOrder) error {
	return translate(s.db.WithContext(ctx).Save(order).Error)
}

func (s *DatabaseStore) DeleteCustomOrder(ctx context.Context, id uuid.UUID) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, dependent := range []interface{}{&models.OrderNote{}, &models.OrderStatusLog{}, &models.OrderCartItem{}} {
			if err := tx.Where("custom_order_id = ?", id).Delete(dependent).Error; err != nil {
				return err
			}
		}
		return (&DatabaseStore{db: tx}).deleteByID(ctx, &models.CustomOrder{}, id)
	})
}

func (s *DatabaseStore) ListCustomOrders(ctx context.Context, filter models.CustomOrderFilter) ([]models.CustomOrder, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.CustomOrder{})
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.Occasion != "" {
		query = query.Where("occasion = ?", filter.Occasion)
	}
	if filter.Search != "" {
		like := "%" + filter.Search + "%"
		query = query.Where("first_name ILIKE ? OR last_name ILIKE ? OR email ILIKE ?", like, like, like)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = query.Order("created_at desc")
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit).Offset(filter.Offset)
	}

	var orders []models.CustomOrder
	if err := query.Find(&orders).Error; err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

type groupCount struct {
	Label string
	Count int64
}

func (s *DatabaseStore) groupedCounts(ctx context.Context, column string) (map[string]int64, error) {
	var rows []groupCount
	if err := s.db.WithContext(ctx).Model(&models.CustomOrder{}).
		Select(column + " as label, count(*) as count").
		Group(column).
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(rows))
	for _, row := range rows {
		out[row.Label] = row.Count
	}
	return out, nil
}

func (s *DatabaseStore) CustomOrderStats(ctx context.Context, since time.Time) (*models.CustomOrderStats, error) {
	stats := &models.CustomOrderStats{WindowStart: since}
	if err := s.db.WithContext(ctx).Model(&models.CustomOrder{}).Count(&stats.Total).Error; err != nil {
		return nil, err
	}

	var err error
	if stats.ByStatus, err = s.groupedCounts(ctx, "status"); err != nil {
		return nil, err
	}
	if stats.ByOccasion, err = s.groupedCounts(ctx, "occasion"); err != nil {
		return nil, err
	}

	if err := s.db.WithContext(ctx).Model(&models.CustomOrder{}).
		Where("created_at >= ?", since).
		Count(&stats.LastThirty).Error; err != nil {
		return nil, err
	}
	return stats, nil
}

func (s *DatabaseStore) CreateOrderNote(ctx context.Context, note *models.OrderNote) error {
	return translate(s.db.WithContext(ctx).Create(note).Error)
}

func (s *DatabaseStore) ListOrderNotes(ctx context.Context, orderID uuid.UUID) ([]models.OrderNote, error) {
	var notes []models.OrderNote
	if err := s.db.WithContext(ctx).
		Where("custom_order_id = ?", orderID).
		Order("created_at desc").
		Find(&notes).Error; err != nil {
		return nil, err
	}
	return notes, nil
}

func (s *DatabaseStore) CreateStatusLog(ctx context.Context, entry *models.OrderStatusLog) error {
	return translate(s.db.WithContext(ctx).Create(entry).Error)
}

func (s *DatabaseStore) ListStatusLogs(ctx context.Context, orderID uuid.UUID) ([]models.OrderStatusLog, error) {
	var entries []models.OrderStatusLog
	if err := s.db.WithContext(ctx).
		Where("custom_order_id = ?", orderID).
		Order("created_at asc").
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

func (s *DatabaseStore) GetOrderCartByCode(ctx context.Context, code string) (*models.OrderCart, error) {
	var cart models.OrderCart
	if err := s.first(ctx, &cart, "identity_code = ?", code); err != nil {
		return nil, err
	}
	return &cart, nil
}

func (s *DatabaseStore) GetOrCreateOrderCart(ctx context.Context, code string) (*models.OrderCart, error) {
	cart := models.OrderCart{IdentityCode: code}
	if err := s.insertIgnoringConflict(ctx, &cart, "identity_code"); err != nil {
		return nil, err
	}
	return s.GetOrderCartByCode(ctx, code)
}

func (s *DatabaseStore) CreateOrderCartItem(ctx context.Context, item *models.OrderCartItem) error {
	return translate(s.db.WithContext(ctx).Omit(clause.Associations).Create(item).Error)
}

func (s *DatabaseStore) ListOrderCartItems(ctx context.Context, cartID uuid.UUID) ([]models.OrderCartItem, error) {
	var items []models.OrderCartItem
	if err := s.db.WithContext(ctx).
		Preload("CustomOrder").
		Where("order_cart_id = ?", cartID).
		Order("created_at asc").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *DatabaseStore) FindOrderCartItem(ctx context.Context, cartID, orderID uuid.UUID) (*models.OrderCartItem, error) {
	var item models.OrderCartItem
	if err := s.db.WithContext(ctx).
		Where("order_cart_id = ? AND custom_order_id = ?", cartID, orderID).
		Order("created_at asc").
		First(&item).Error; err != nil {
		return nil, translate(err)
	}
	return &item, nil
}

func (s *DatabaseStore) DeleteOrderCartItem(ctx context.Context, id uuid.UUID) error {
	return s.deleteByID(ctx, &models.OrderCartItem{}, id)
}
