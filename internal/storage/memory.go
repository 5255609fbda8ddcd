package storage

import (
	"context"
	"maps"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/example/couture/internal/models"
)

// memData is the shared state behind a MemoryStore and its transaction views.
type memData struct {
	// txMu serializes transactions against every other write.
	txMu sync.Mutex
	mu   sync.RWMutex

	users          map[uuid.UUID]models.User
	categories     map[uuid.UUID]models.Category
	products       map[uuid.UUID]models.Product
	carts          map[uuid.UUID]models.Cart
	cartItems      map[uuid.UUID]models.CartItem
	orders         map[uuid.UUID]models.CustomOrder
	notes          map[uuid.UUID]models.OrderNote
	statusLogs     map[uuid.UUID]models.OrderStatusLog
	orderCarts     map[uuid.UUID]models.OrderCart
	orderCartItems map[uuid.UUID]models.OrderCartItem

	// seq breaks CreatedAt ties so listings are stable.
	seq map[uuid.UUID]int64
	n   int64
}

// MemoryStore keeps every record in process memory. It backs tests and
// USE_MEMORY_STORE deployments.
type MemoryStore struct {
	data *memData
	now  func() time.Time
	tx   bool
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data: &memData{
			users:          make(map[uuid.UUID]models.User),
			categories:     make(map[uuid.UUID]models.Category),
			products:       make(map[uuid.UUID]models.Product),
			carts:          make(map[uuid.UUID]models.Cart),
			cartItems:      make(map[uuid.UUID]models.CartItem),
			orders:         make(map[uuid.UUID]models.CustomOrder),
			notes:          make(map[uuid.UUID]models.OrderNote),
			statusLogs:     make(map[uuid.UUID]models.OrderStatusLog),
			orderCarts:     make(map[uuid.UUID]models.OrderCart),
			orderCartItems: make(map[uuid.UUID]models.OrderCartItem),
			seq:            make(map[uuid.UUID]int64),
		},
		now: time.Now,
	}
}

// WithClock sets the time source used for record timestamps.
func (m *MemoryStore) WithClock(now func() time.Time) *MemoryStore {
	m.now = now
	return m
}

// write locks the data for a mutation. Inside a transaction the
// transaction already holds txMu.
func (m *MemoryStore) write() func() {
	if !m.tx {
		m.data.txMu.Lock()
	}
	m.data.mu.Lock()
	return func() {
		m.data.mu.Unlock()
		if !m.tx {
			m.data.txMu.Unlock()
		}
	}
}

func (m *MemoryStore) read() func() {
	m.data.mu.RLock()
	return m.data.mu.RUnlock
}

// insert stamps a new record and records its insertion order. Caller holds the write lock.
func (m *MemoryStore) insert(base *models.BaseModel) {
	base.EnsureID()
	base.Stamp(m.now())
	m.data.n++
	m.data.seq[base.ID] = m.data.n
}

func (m *MemoryStore) touch(base *models.BaseModel) {
	base.UpdatedAt = m.now()
	if base.UpdatedAt.Before(base.CreatedAt) {
		base.UpdatedAt = base.CreatedAt
	}
}

// before orders records by creation time, then insertion order.
func (m *MemoryStore) before(a, b models.BaseModel) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return m.data.seq[a.ID] < m.data.seq[b.ID]
}

type memSnapshot struct {
	users          map[uuid.UUID]models.User
	categories     map[uuid.UUID]models.Category
	products       map[uuid.UUID]models.Product
	carts          map[uuid.UUID]models.Cart
	cartItems      map[uuid.UUID]models.CartItem
	orders         map[uuid.UUID]models.CustomOrder
	notes          map[uuid.UUID]models.OrderNote
	statusLogs     map[uuid.UUID]models.OrderStatusLog
	orderCarts     map[uuid.UUID]models.OrderCart
	orderCartItems map[uuid.UUID]models.OrderCartItem
}

func (m *MemoryStore) snapshot() memSnapshot {
	defer m.read()()
	d := m.data
	return memSnapshot{
		users:          maps.Clone(d.users),
		categories:     maps.Clone(d.categories),
		products:       maps.Clone(d.products),
		carts:          maps.Clone(d.carts),
		cartItems:      maps.Clone(d.cartItems),
		orders:         maps.Clone(d.orders),
		notes:          maps.Clone(d.notes),
		statusLogs:     maps.Clone(d.statusLogs),
		orderCarts:     maps.Clone(d.orderCarts),
		orderCartItems: maps.Clone(d.orderCartItems),
	}
}

func (m *MemoryStore) restore(s memSnapshot) {
	m.data.mu.Lock()
	defer m.data.mu.Unlock()
	d := m.data
	d.users = s.users
	d.categories = s.categories
	d.products = s.products
	d.carts = s.carts
	d.cartItems = s.cartItems
	d.orders = s.orders
	d.notes = s.notes
	d.statusLogs = s.statusLogs
	d.orderCarts = s.orderCarts
	d.orderCartItems = s.orderCartItems
}

// Transaction runs fn against a view of the store. Writes made by fn are
// discarded when it returns an error or panics.
func (m *MemoryStore) Transaction(ctx context.Context, fn func(tx Store) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !m.tx {
		m.data.txMu.Lock()
		defer m.data.txMu.Unlock()
	}
	snap := m.snapshot()
	view := &MemoryStore{data: m.data, now: m.now, tx: true}
	defer func() {
		if p := recover(); p != nil {
			m.restore(snap)
			panic(p)
		}
	}()
	if err := fn(view); err != nil {
		m.restore(snap)
		return err
	}
	return nil
}

// Ping always succeeds.
func (m *MemoryStore) Ping(ctx context.Context) error {
	return ctx.Err()
}

// Users

func (m *MemoryStore) CreateUser(ctx context.Context, user *models.User) error {
	defer m.write()()
	for _, u := range m.data.users {
		if strings.EqualFold(u.Email, user.Email) {
			return ErrDuplicate
		}
	}
	m.insert(&user.BaseModel)
	m.data.users[user.ID] = *user
	return nil
}

func (m *MemoryStore) GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	defer m.read()()
	u, ok := m.data.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &u, nil
}

func (m *MemoryStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	defer m.read()()
	for _, u := range m.data.users {
		if strings.EqualFold(u.Email, email) {
			return &u, nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryStore) UpdateUser(ctx context.Context, user *models.User) error {
	defer m.write()()
	if _, ok := m.data.users[user.ID]; !ok {
		return ErrNotFound
	}
	m.touch(&user.BaseModel)
	m.data.users[user.ID] = *user
	return nil
}

// Catalog

func (m *MemoryStore) CreateCategory(ctx context.Context, category *models.Category) error {
	defer m.write()()
	for _, c := range m.data.categories {
		if c.Slug == category.Slug {
			return ErrDuplicate
		}
	}
	m.insert(&category.BaseModel)
	stored := *category
	stored.Products = nil
	m.data.categories[category.ID] = stored
	return nil
}

func (m *MemoryStore) ListCategories(ctx context.Context) ([]models.Category, error) {
	defer m.read()()
	out := make([]models.Category, 0, len(m.data.categories))
	for _, c := range m.data.categories {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *MemoryStore) GetCategoryBySlug(ctx context.Context, slug string) (*models.Category, error) {
	defer m.read()()
	for _, c := range m.data.categories {
		if c.Slug == slug {
			return &c, nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryStore) CreateProduct(ctx context.Context, product *models.Product) error {
	defer m.write()()
	if product.Slug != "" {
		for _, p := range m.data.products {
			if p.Slug == product.Slug {
				return ErrDuplicate
			}
		}
	}
	m.insert(&product.BaseModel)
	stored := *product
	stored.Category = nil
	m.data.products[product.ID] = stored
	return nil
}

// withCategory returns p joined to its category. Caller holds the read lock.
func (m *MemoryStore) withCategory(p models.Product) models.Product {
	if p.CategoryID != nil {
		if c, ok := m.data.categories[*p.CategoryID]; ok {
			p.Category = &c
		}
	}
	return p
}

func (m *MemoryStore) GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	defer m.read()()
	p, ok := m.data.products[id]
	if !ok {
		return nil, ErrNotFound
	}
	p = m.withCategory(p)
	return &p, nil
}

func (m *MemoryStore) ListProducts(ctx context.Context, filter models.ProductFilter) ([]models.Product, int64, error) {
	defer m.read()()
	search := strings.ToLower(filter.Search)
	var out []models.Product
	for _, p := range m.data.products {
		if filter.CategoryID != nil && (p.CategoryID == nil || *p.CategoryID != *filter.CategoryID) {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(p.Name), search) {
			continue
		}
		if filter.MinPrice != nil && p.Price.LessThan(*filter.MinPrice) {
			continue
		}
		if filter.MaxPrice != nil && p.Price.GreaterThan(*filter.MaxPrice) {
			continue
		}
		out = append(out, m.withCategory(p))
	}

	ordering := filter.Ordering
	if _, ok := models.ProductOrdering[ordering]; !ok {
		ordering = models.DefaultProductOrdering
	}
	desc := strings.HasPrefix(ordering, "-")
	key := strings.TrimPrefix(ordering, "-")
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if desc {
			a, b = b, a
		}
		switch key {
		case "price":
			if !a.Price.Equal(b.Price) {
				return a.Price.LessThan(b.Price)
			}
		case "created_at":
			if !a.CreatedAt.Equal(b.CreatedAt) {
				return a.CreatedAt.Before(b.CreatedAt)
			}
		}
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		return m.data.seq[a.ID] < m.data.seq[b.ID]
	})

	total := int64(len(out))
	return page(out, filter.Limit, filter.Offset), total, nil
}

func page[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return []T{}
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

// Product carts

func (m *MemoryStore) findCart(code string) (models.Cart, bool) {
	for _, c := range m.data.carts {
		if c.CartCode == code {
			return c, true
		}
	}
	return models.Cart{}, false
}

func (m *MemoryStore) GetCartByCode(ctx context.Context, code string) (*models.Cart, error) {
	defer m.read()()
	c, ok := m.findCart(code)
	if !ok {
		return nil, ErrNotFound
	}
	return &c, nil
}

func (m *MemoryStore) GetOrCreateCart(ctx context.Context, code string) (*models.Cart, error) {
	defer m.write()()
	if c, ok := m.findCart(code); ok {
		return &c, nil
	}
	c := models.Cart{CartCode: code}
	m.insert(&c.BaseModel)
	m.data.carts[c.ID] = c
	return &c, nil
}

func (m *MemoryStore) GetCartItem(ctx context.Context, cartID, itemID uuid.UUID) (*models.CartItem, error) {
	defer m.read()()
	item, ok := m.data.cartItems[itemID]
	if !ok || item.CartID != cartID {
		return nil, ErrNotFound
	}
	return &item, nil
}

func (m *MemoryStore) GetCartItemByProduct(ctx context.Context, cartID, productID uuid.UUID) (*models.CartItem, error) {
	defer m.read()()
	for _, item := range m.data.cartItems {
		if item.CartID == cartID && item.ProductID == productID {
			return &item, nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryStore) ListCartItems(ctx context.Context, cartID uuid.UUID) ([]models.CartItem, error) {
	defer m.read()()
	out := []models.CartItem{}
	for _, item := range m.data.cartItems {
		if item.CartID != cartID {
			continue
		}
		if p, ok := m.data.products[item.ProductID]; ok {
			item.Product = &p
		}
		out = append(out, item)
	}
	sort.Slice(out, func(i, j int) bool { return m.before(out[i].BaseModel, out[j].BaseModel) })
	return out, nil
}

func (m *MemoryStore) SaveCartItem(ctx context.Context, item *models.CartItem) error {
	defer m.write()()
	if _, exists := m.data.cartItems[item.ID]; exists && item.ID != uuid.Nil {
		m.touch(&item.BaseModel)
	} else {
		for _, other := range m.data.cartItems {
			if other.CartID == item.CartID && other.ProductID == item.ProductID {
				return ErrDuplicate
			}
		}
		m.insert(&item.BaseModel)
	}
	stored := *item
	stored.Product = nil
	m.data.cartItems[item.ID] = stored
	return nil
}

func (m *MemoryStore) DeleteCartItem(ctx context.Context, id uuid.UUID) error {
	defer m.write()()
	if _, ok := m.data.cartItems[id]; !ok {
		return ErrNotFound
	}
	delete(m.data.cartItems, id)
	return nil
}

// Custom orders

func (m *MemoryStore) CreateCustomOrder(ctx context.Context, order *models.CustomOrder) error {
	defer m.write()()
	m.insert(&order.BaseModel)
	m.data.orders[order.ID] = *order
	return nil
}

func (m *MemoryStore) GetCustomOrder(ctx context.Context, id uuid.UUID) (*models.CustomOrder, error) {
	defer m.read()()
	o, ok := m.data.orders[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &o, nil
}

func (m *MemoryStore) UpdateCustomOrder(ctx context.Context, order *models.CustomOrder) error {
	defer m.write()()
	if _, ok := m.data.orders[order.ID]; !ok {
		return ErrNotFound
	}
	m.touch(&order.BaseModel)
	m.data.orders[order.ID] = *order
	return nil
}

func (m *MemoryStore) DeleteCustomOrder(ctx context.Context, id uuid.UUID) error {
	defer m.write()()
	if _, ok := m.data.orders[id]; !ok {
		return ErrNotFound
	}
	delete(m.data.orders, id)
	maps.DeleteFunc(m.data.notes, func(_ uuid.UUID, n models.OrderNote) bool { return n.CustomOrderID == id })
	maps.DeleteFunc(m.data.statusLogs, func(_ uuid.UUID, l models.OrderStatusLog) bool { return l.CustomOrderID == id })
	maps.DeleteFunc(m.data.orderCartItems, func(_ uuid.UUID, i models.OrderCartItem) bool { return i.CustomOrderID == id })
	return nil
}

func (m *MemoryStore) ListCustomOrders(ctx context.Context, filter models.CustomOrderFilter) ([]models.CustomOrder, int64, error) {
	defer m.read()()
	search := strings.ToLower(filter.Search)
	var out []models.CustomOrder
	for _, o := range m.data.orders {
		if filter.Status != "" && o.Status != filter.Status {
			continue
		}
		if filter.Occasion != "" && o.Occasion != filter.Occasion {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(o.FirstName), search) &&
			!strings.Contains(strings.ToLower(o.LastName), search) &&
			!strings.Contains(strings.ToLower(o.Email), search) {
			continue
		}
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return m.before(out[j].BaseModel, out[i].BaseModel) })
	return page(out, filter.Limit, filter.Offset), int64(len(out)), nil
}

func (m *MemoryStore) CustomOrderStats(ctx context.Context, since time.Time) (*models.CustomOrderStats, error) {
	defer m.read()()
	stats := &models.CustomOrderStats{
		ByStatus:    map[string]int64{},
		ByOccasion:  map[string]int64{},
		WindowStart: since,
	}
	for _, o := range m.data.orders {
		stats.Total++
		stats.ByStatus[string(o.Status)]++
		stats.ByOccasion[o.Occasion]++
		if !o.CreatedAt.Before(since) {
			stats.LastThirty++
		}
	}
	return stats, nil
}

func (m *MemoryStore) CreateOrderNote(ctx context.Context, note *models.OrderNote) error {
	defer m.write()()
	if _, ok := m.data.orders[note.CustomOrderID]; !ok {
		return ErrNotFound
	}
	m.insert(&note.BaseModel)
	m.data.notes[note.ID] = *note
	return nil
}

func (m *MemoryStore) ListOrderNotes(ctx context.Context, orderID uuid.UUID) ([]models.OrderNote, error) {
	defer m.read()()
	out := []models.OrderNote{}
	for _, n := range m.data.notes {
		if n.CustomOrderID == orderID {
			out = append(out, n)
		}
	}
	sort.Slice(out, func(i, j int) bool { return m.before(out[j].BaseModel, out[i].BaseModel) })
	return out, nil
}

func (m *MemoryStore) CreateStatusLog(ctx context.Context, entry *models.OrderStatusLog) error {
	defer m.write()()
	m.insert(&entry.BaseModel)
	m.data.statusLogs[entry.ID] = *entry
	return nil
}

func (m *MemoryStore) ListStatusLogs(ctx context.Context, orderID uuid.UUID) ([]models.OrderStatusLog, error) {
	defer m.read()()
	out := []models.OrderStatusLog{}
	for _, l := range m.data.statusLogs {
		if l.CustomOrderID == orderID {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return m.before(out[i].BaseModel, out[j].BaseModel) })
	return out, nil
}

// Order carts

func (m *MemoryStore) findOrderCart(code string) (models.OrderCart, bool) {
	for _, c := range m.data.orderCarts {
		if c.IdentityCode == code {
			return c, true
		}
	}
	return models.OrderCart{}, false
}

func (m *MemoryStore) GetOrderCartByCode(ctx context.Context, code string) (*models.OrderCart, error) {
	defer m.read()()
	c, ok := m.findOrderCart(code)
	if !ok {
		return nil, ErrNotFound
	}
	return &c, nil
}

func (m *MemoryStore) GetOrCreateOrderCart(ctx context.Context, code string) (*models.OrderCart, error) {
	defer m.write()()
	if c, ok := m.findOrderCart(code); ok {
		return &c, nil
	}
	c := models.OrderCart{IdentityCode: code}
	m.insert(&c.BaseModel)
	m.data.orderCarts[c.ID] = c
	return &c, nil
}

func (m *MemoryStore) CreateOrderCartItem(ctx context.Context, item *models.OrderCartItem) error {
	defer m.write()()
	if _, ok := m.data.orderCarts[item.OrderCartID]; !ok {
		return ErrNotFound
	}
	if _, ok := m.data.orders[item.CustomOrderID]; !ok {
		return ErrNotFound
	}
	m.insert(&item.BaseModel)
	stored := *item
	stored.CustomOrder = nil
	m.data.orderCartItems[item.ID] = stored
	return nil
}

func (m *MemoryStore) ListOrderCartItems(ctx context.Context, cartID uuid.UUID) ([]models.OrderCartItem, error) {
	defer m.read()()
	out := []models.OrderCartItem{}
	for _, item := range m.data.orderCartItems {
		if item.OrderCartID != cartID {
			continue
		}
		if o, ok := m.data.orders[item.CustomOrderID]; ok {
			item.CustomOrder = &o
		}
		out = append(out, item)
	}
	sort.Slice(out, func(i, j int) bool { return m.before(out[i].BaseModel, out[j].BaseModel) })
	return out, nil
}

func (m *MemoryStore) FindOrderCartItem(ctx context.Context, cartID, orderID uuid.UUID) (*models.OrderCartItem, error) {
	defer m.read()()
	var found *models.OrderCartItem
	for _, item := range m.data.orderCartItems {
		if item.OrderCartID != cartID || item.CustomOrderID != orderID {
			continue
		}
		if found == nil || m.before(item.BaseModel, found.BaseModel) {
			it := item
			found = &it
		}
	}
	if found == nil {
		return nil, ErrNotFound
	}
	return found, nil
}

func (m *MemoryStore) DeleteOrderCartItem(ctx context.Context, id uuid.UUID) error {
	defer m.write()()
	if _, ok := m.data.orderCartItems[id]; !ok {
		return ErrNotFound
	}
	delete(m.data.orderCartItems, id)
	return nil
}
