// Package storetest provides an in-memory store for service and handler tests.
package storetest

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"careshare-service/internal/models"
	"careshare-service/internal/store"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

// Memory is an in-memory stand-in for store.Store used by tests. A single mutex
// serializes CreatePurchaseTx the way the row lock does in Postgres.
type Memory struct {
	mu        sync.Mutex
	nextID    int64
	users     map[int64]*models.User
	products  map[int64]*models.Product
	exchanges map[int64]*models.ExchangeRequest
	purchases map[int64]*models.Purchase
	clock     time.Time
}

func NewMemory() *Memory {
	return &Memory{
		users:     map[int64]*models.User{},
		products:  map[int64]*models.Product{},
		exchanges: map[int64]*models.ExchangeRequest{},
		purchases: map[int64]*models.Purchase{},
		clock:     time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func (m *Memory) id() int64 {
	m.nextID++
	return m.nextID
}

// tick returns strictly increasing timestamps so newest-first ordering is deterministic
func (m *Memory) tick() time.Time {
	m.clock = m.clock.Add(time.Second)
	return m.clock
}

// users

func (m *Memory) CreateUser(_ context.Context, u *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	for _, existing := range m.users {
		if existing.Email == u.Email {
			return store.ErrDuplicate
		}
	}
	if len(u.Roles) == 0 {
		u.Roles = pq.StringArray{models.RoleUser}
	}
	u.ID = m.id()
	u.CreatedAt = m.tick()
	cp := *u
	m.users[u.ID] = &cp
	return nil
}

func (m *Memory) GetUserByID(_ context.Context, id int64) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *Memory) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	email = strings.ToLower(strings.TrimSpace(email))
	for _, u := range m.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *Memory) GetUserByResetToken(_ context.Context, token string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.ResetToken != nil && *u.ResetToken == token {
			cp := *u
			return &cp, nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *Memory) ListUsers(_ context.Context) ([]models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.User{}
	for _, u := range m.users {
		out = append(out, *u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) UpdateUserRole(_ context.Context, id int64, isAdmin bool) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	u.IsAdmin = isAdmin
	u.Roles = pq.StringArray{models.RoleUser}
	if isAdmin {
		u.Roles = append(u.Roles, models.RoleAdmin)
	}
	cp := *u
	return &cp, nil
}

func (m *Memory) DeleteUser(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[id]; !ok {
		return store.ErrNotFound
	}
	delete(m.users, id)
	return nil
}

func (m *Memory) CountUsers(_ context.Context) (int64, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var admins int64
	for _, u := range m.users {
		if u.IsAdmin {
			admins++
		}
	}
	return int64(len(m.users)), admins, nil
}

func (m *Memory) SetResetToken(_ context.Context, id int64, token string, expiry time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return store.ErrNotFound
	}
	u.ResetToken = &token
	u.ResetTokenExpiry = &expiry
	return nil
}

func (m *Memory) UpdatePassword(_ context.Context, id int64, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return store.ErrNotFound
	}
	u.PasswordHash = hash
	u.ResetToken = nil
	u.ResetTokenExpiry = nil
	return nil
}

// products

func (m *Memory) CreateProduct(_ context.Context, p *models.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p.ID = m.id()
	p.CreatedAt = m.tick()
	cp := *p
	m.products[p.ID] = &cp
	return nil
}

func (m *Memory) GetProductByID(_ context.Context, id int64) (*models.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *Memory) withOwner(p *models.Product) models.ProductWithOwner {
	out := models.ProductWithOwner{Product: *p}
	if u, ok := m.users[p.UserID]; ok {
		out.OwnerFirstName = u.FirstName
		out.OwnerLastName = u.LastName
		out.OwnerEmail = u.Email
	}
	return out
}

func (m *Memory) GetProductWithOwner(_ context.Context, id int64) (*models.ProductWithOwner, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	out := m.withOwner(p)
	return &out, nil
}

func (m *Memory) ListProducts(_ context.Context, f store.ProductFilter) ([]models.ProductWithOwner, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.ProductWithOwner{}
	for _, p := range m.products {
		if f.OwnerID != 0 && p.UserID != f.OwnerID {
			continue
		}
		if f.Status != "" && p.Status != f.Status {
			continue
		}
		if f.Type != "" && p.Type != f.Type {
			continue
		}
		if f.Category != "" && !strings.EqualFold(p.Category, f.Category) {
			continue
		}
		out = append(out, m.withOwner(p))
	}

	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		switch f.Sort {
		case store.SortOldest:
			return a.ID < b.ID
		case store.SortPriceLow:
			return a.Price.LessThan(b.Price)
		case store.SortPriceHigh:
			return a.Price.GreaterThan(b.Price)
		case store.SortNameAsc:
			return a.Name < b.Name
		case store.SortNameDesc:
			return a.Name > b.Name
		default:
			return a.ID > b.ID
		}
	})
	return out, nil
}

func (m *Memory) ApproveProduct(_ context.Context, id int64, at time.Time) (*models.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	if p.Status != models.ProductStatusPending && p.Status != models.ProductStatusRejected {
		return nil, store.ErrConflict
	}
	p.Status = models.ProductStatusApproved
	p.ApprovedAt = &at
	p.RejectionReason = nil
	cp := *p
	return &cp, nil
}

func (m *Memory) RejectProduct(_ context.Context, id int64, reason string, at time.Time) (*models.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	if p.Status != models.ProductStatusPending && p.Status != models.ProductStatusApproved {
		return nil, store.ErrConflict
	}
	p.Status = models.ProductStatusRejected
	p.RejectedAt = &at
	p.RejectionReason = &reason
	cp := *p
	return &cp, nil
}

func (m *Memory) CountProductsByStatus(_ context.Context) (map[string]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := map[string]int64{}
	for _, p := range m.products {
		out[p.Status]++
	}
	return out, nil
}

// exchange requests

func (m *Memory) CreateExchangeRequest(_ context.Context, r *models.ExchangeRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r.ID = m.id()
	r.CreatedAt = m.tick()
	cp := *r
	m.exchanges[r.ID] = &cp
	return nil
}

func (m *Memory) exchangeDetail(r *models.ExchangeRequest) models.ExchangeRequestDetail {
	d := models.ExchangeRequestDetail{ExchangeRequest: *r}
	if p, ok := m.products[r.TargetProductID]; ok {
		d.ProductName = p.Name
		d.ProductImage = p.ImagePath
		d.OwnerID = p.UserID
		if o, ok := m.users[p.UserID]; ok {
			d.OwnerEmail = o.Email
			d.OwnerFirstName = o.FirstName
			d.OwnerLastName = o.LastName
		}
	}
	if u, ok := m.users[r.RequesterID]; ok {
		d.RequesterEmail = u.Email
		d.RequesterFirstName = u.FirstName
		d.RequesterLastName = u.LastName
	}
	return d
}

func (m *Memory) GetExchangeRequest(_ context.Context, id int64) (*models.ExchangeRequestDetail, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.exchanges[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	d := m.exchangeDetail(r)
	return &d, nil
}

func (m *Memory) TransitionExchangeRequest(_ context.Context, id int64, status string, reason *string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.exchanges[id]
	if !ok {
		return store.ErrNotFound
	}
	if r.Status != models.ExchangeStatusPending {
		return store.ErrConflict
	}
	r.Status = status
	r.RejectionReason = reason
	return nil
}

func (m *Memory) DeleteExchangeRequest(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.exchanges[id]; !ok {
		return store.ErrNotFound
	}
	delete(m.exchanges, id)
	return nil
}

func (m *Memory) matchExchange(d models.ExchangeRequestDetail, f store.ExchangeFilter) bool {
	if f.RequesterID != 0 && d.RequesterID != f.RequesterID {
		return false
	}
	if f.OwnerID != 0 && d.OwnerID != f.OwnerID {
		return false
	}
	return f.Status == "" || d.Status == f.Status
}

func (m *Memory) ListExchangeRequests(_ context.Context, f store.ExchangeFilter) ([]models.ExchangeRequestDetail, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.ExchangeRequestDetail{}
	for _, r := range m.exchanges {
		if d := m.exchangeDetail(r); m.matchExchange(d, f) {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (m *Memory) CountExchangeRequests(_ context.Context, f store.ExchangeFilter) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, r := range m.exchanges {
		if m.matchExchange(m.exchangeDetail(r), f) {
			n++
		}
	}
	return n, nil
}

// purchases

func (m *Memory) CreatePurchaseTx(_ context.Context, pu *models.Purchase) (*models.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[pu.ProductID]
	if !ok {
		return nil, store.ErrNotFound
	}
	if p.Status != models.ProductStatusApproved {
		cp := *p
		return &cp, store.ErrProductUnavailable
	}
	if p.UserID == pu.BuyerID {
		cp := *p
		return &cp, store.ErrSelfPurchase
	}
	pu.ID = m.id()
	pu.CreatedAt = m.tick()
	pu.Amount = p.Price
	pu.Status = models.PurchaseStatusPending
	cp := *pu
	m.purchases[pu.ID] = &cp
	p.Status = models.ProductStatusSold
	sold := *p
	return &sold, nil
}

func (m *Memory) purchaseDetail(pu *models.Purchase) models.PurchaseDetail {
	d := models.PurchaseDetail{Purchase: *pu}
	if p, ok := m.products[pu.ProductID]; ok {
		d.ProductName = p.Name
		d.ProductImage = p.ImagePath
		d.ProductCategory = p.Category
		d.SellerID = p.UserID
		if s, ok := m.users[p.UserID]; ok {
			d.SellerEmail = s.Email
			d.SellerFirstName = s.FirstName
			d.SellerLastName = s.LastName
		}
	}
	if b, ok := m.users[pu.BuyerID]; ok {
		d.BuyerEmail = b.Email
		d.BuyerFirstName = b.FirstName
		d.BuyerLastName = b.LastName
	}
	return d
}

func (m *Memory) GetPurchase(_ context.Context, id int64) (*models.PurchaseDetail, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	pu, ok := m.purchases[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	d := m.purchaseDetail(pu)
	return &d, nil
}

func (m *Memory) UpdatePurchaseStatus(_ context.Context, id int64, status string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	pu, ok := m.purchases[id]
	if !ok {
		return store.ErrNotFound
	}
	pu.Status = status
	pu.UpdatedAt = &at
	return nil
}

func (m *Memory) ListPurchases(_ context.Context, f store.PurchaseFilter) ([]models.PurchaseDetail, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.PurchaseDetail{}
	for _, pu := range m.purchases {
		d := m.purchaseDetail(pu)
		if f.BuyerID != 0 && d.BuyerID != f.BuyerID {
			continue
		}
		if f.SellerID != 0 && d.SellerID != f.SellerID {
			continue
		}
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *Memory) CountPurchases(_ context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.purchases)), nil
}

// TB is the subset of testing.TB the seeding helpers need
type TB interface {
	Helper()
	Fatalf(format string, args ...interface{})
}

// SeedUser creates a user named first with an @example.com address
func (m *Memory) SeedUser(t TB, first string, admin bool) models.Identity {
	t.Helper()
	u := &models.User{
		Email:     strings.ToLower(first) + "@example.com",
		FirstName: first,
		LastName:  "Tester",
		IsAdmin:   admin,
	}
	if err := m.CreateUser(context.Background(), u); err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return models.Identity{UserID: u.ID, Email: u.Email, IsAdmin: admin}
}

// SeedProduct creates a RESELL lamp owned by owner
func (m *Memory) SeedProduct(t TB, owner models.Identity, price, status string) *models.Product {
	t.Helper()
	p := &models.Product{
		Name:        "Lamp",
		Price:       decimal.RequireFromString(price),
		Category:    "Home",
		Type:        models.ProductTypeResell,
		Description: "Desk lamp",
		ImagePath:   "/uploads/products/lamp.png",
		Condition:   models.DefaultCondition,
		Status:      status,
		UserID:      owner.UserID,
	}
	if err := m.CreateProduct(context.Background(), p); err != nil {
		t.Fatalf("seed product: %v", err)
	}
	return p
}

func (m *Memory) ProductStatus(id int64) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.products[id].Status
}

// SetProductPrice changes a stored price behind the services' back
func (m *Memory) SetProductPrice(id int64, price decimal.Decimal) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.products[id].Price = price
}

// ProductCount reports how many products are stored
func (m *Memory) ProductCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.products)
}

// ExchangeCount reports how many exchange requests are stored
func (m *Memory) ExchangeCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.exchanges)
}
