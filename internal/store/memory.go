package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"stock-alert-service/internal/models"
	"stock-alert-service/internal/threshold"

	"github.com/google/uuid"
)

type memProduct struct {
	p   models.Product
	seq uint64
}

type memAlert struct {
	a   models.Alert
	seq uint64
}

// MemoryStore is an in-process Repository used for local runs and tests.
//
// Transactions stage their writes and apply them in one step at commit, so
// readers never see half of a mutation. Per-product locks come from a keyed
// lock table; products that are not shared never wait on each other.
type MemoryStore struct {
	mu        sync.RWMutex
	products  map[string]memProduct
	skus      map[string]string
	alerts    map[string]memAlert
	byProduct map[string]map[string]struct{}
	processed map[string]models.ProcessedEvent
	seq       uint64

	locks       *keyedLocks
	lockTimeout time.Duration
}

// NewMemoryStore creates an empty store. lockTimeout bounds product lock waits.
func NewMemoryStore(lockTimeout time.Duration) *MemoryStore {
	return &MemoryStore{
		products:    make(map[string]memProduct),
		skus:        make(map[string]string),
		alerts:      make(map[string]memAlert),
		byProduct:   make(map[string]map[string]struct{}),
		processed:   make(map[string]models.ProcessedEvent),
		locks:       newKeyedLocks(),
		lockTimeout: lockTimeout,
	}
}

func (s *MemoryStore) Ping(ctx context.Context) error { return nil }
func (s *MemoryStore) Close() error                   { return nil }

// InTx runs fn with a fresh staging area and commits it if fn succeeds and
// ctx is still live
func (s *MemoryStore) InTx(ctx context.Context, fn func(tx Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	tx := &memTx{
		s:        s,
		held:     make(map[string]func()),
		products: make(map[string]*models.Product),
		alerts:   make(map[string]*models.Alert),
		events:   make(map[string]string),
	}
	defer tx.releaseAll()

	if err := fn(tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("transaction aborted: %w", err)
	}
	return s.commit(tx)
}

func (s *MemoryStore) GetProductByID(ctx context.Context, id string) (*models.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	mp, ok := s.products[id]
	if !ok {
		return nil, fmt.Errorf("product %s: %w", id, ErrNotFound)
	}
	p := mp.p
	return &p, nil
}

func (s *MemoryStore) GetProducts(ctx context.Context) ([]models.Product, error) {
	return s.selectProducts(func(models.Product) bool { return true }, func(a, b memProduct) bool {
		return newerFirst(a.p.CreatedAt, b.p.CreatedAt, a.seq, b.seq)
	}), nil
}

func (s *MemoryStore) GetLowStockProducts(ctx context.Context) ([]models.Product, error) {
	return s.selectProducts(func(p models.Product) bool {
		return threshold.ShouldAlert(p.Quantity, p.MinStockLevel)
	}, func(a, b memProduct) bool {
		if a.p.Quantity != b.p.Quantity {
			return a.p.Quantity < b.p.Quantity
		}
		return newerFirst(a.p.CreatedAt, b.p.CreatedAt, a.seq, b.seq)
	}), nil
}

func (s *MemoryStore) selectProducts(keep func(models.Product) bool, less func(a, b memProduct) bool) []models.Product {
	s.mu.RLock()
	rows := make([]memProduct, 0, len(s.products))
	for _, mp := range s.products {
		if keep(mp.p) {
			rows = append(rows, mp)
		}
	}
	s.mu.RUnlock()

	sort.Slice(rows, func(i, j int) bool { return less(rows[i], rows[j]) })
	out := make([]models.Product, len(rows))
	for i, r := range rows {
		out[i] = r.p
	}
	return out
}

func (s *MemoryStore) GetAlertByID(ctx context.Context, id string) (*models.Alert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ma, ok := s.alerts[id]
	if !ok {
		return nil, fmt.Errorf("alert %s: %w", id, ErrNotFound)
	}
	a := ma.a
	return &a, nil
}

func (s *MemoryStore) GetAlerts(ctx context.Context) ([]models.AlertWithProduct, error) {
	return s.selectAlerts(func(models.Alert) bool { return true }), nil
}

func (s *MemoryStore) GetActiveAlerts(ctx context.Context) ([]models.AlertWithProduct, error) {
	return s.selectAlerts(func(a models.Alert) bool { return a.IsActive() }), nil
}

func (s *MemoryStore) GetAlertsByProduct(ctx context.Context, productID string) ([]models.AlertWithProduct, error) {
	return s.selectAlerts(func(a models.Alert) bool { return a.ProductID == productID }), nil
}

func (s *MemoryStore) selectAlerts(keep func(models.Alert) bool) []models.AlertWithProduct {
	type row struct {
		a   models.AlertWithProduct
		seq uint64
	}

	s.mu.RLock()
	rows := make([]row, 0)
	for _, ma := range s.alerts {
		if !keep(ma.a) {
			continue
		}
		mp := s.products[ma.a.ProductID]
		rows = append(rows, row{
			a: models.AlertWithProduct{
				Alert:      ma.a,
				IsResolved: !ma.a.IsActive(),
				Product: models.ProductSummary{
					ID:       mp.p.ID,
					Name:     mp.p.Name,
					SKU:      mp.p.SKU,
					Quantity: mp.p.Quantity,
				},
			},
			seq: ma.seq,
		})
	}
	s.mu.RUnlock()

	sort.Slice(rows, func(i, j int) bool {
		return newerFirst(rows[i].a.CreatedAt, rows[j].a.CreatedAt, rows[i].seq, rows[j].seq)
	})
	out := make([]models.AlertWithProduct, len(rows))
	for i, r := range rows {
		out[i] = r.a
	}
	return out
}

func newerFirst(a, b time.Time, aSeq, bSeq uint64) bool {
	if !a.Equal(b) {
		return a.After(b)
	}
	return aSeq > bSeq
}

// commit validates the staged writes against current state and applies
// them under the write lock. Nothing is applied if validation fails.
func (s *MemoryStore) commit(tx *memTx) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for eventID := range tx.events {
		if _, ok := s.processed[eventID]; ok {
			return fmt.Errorf("%w: event %s processed concurrently", ErrConflict, eventID)
		}
	}

	for id, p := range tx.products {
		if p == nil {
			continue
		}
		if owner, ok := s.skus[p.SKU]; ok && owner != id && !tx.releasesSKU(owner, p.SKU) {
			return fmt.Errorf("%w: %s", ErrDuplicateSKU, p.SKU)
		}
	}

	for id, a := range tx.alerts {
		if a == nil {
			continue
		}
		if !s.productLiveAfter(tx, a.ProductID) {
			return fmt.Errorf("alert %s references product %s: %w", id, a.ProductID, ErrNotFound)
		}
		if a.IsActive() {
			for other := range s.byProduct[a.ProductID] {
				if other == id {
					continue
				}
				if staged, ok := tx.alerts[other]; ok && (staged == nil || !staged.IsActive()) {
					continue
				}
				if s.alerts[other].a.IsActive() {
					return fmt.Errorf("%w: product %s already has an active alert", ErrConflict, a.ProductID)
				}
			}
		}
	}

	for id := range tx.products {
		if old, ok := s.products[id]; ok && s.skus[old.p.SKU] == id {
			delete(s.skus, old.p.SKU)
		}
	}
	for id, p := range tx.products {
		if p != nil {
			continue
		}
		delete(s.products, id)
		for alertID := range s.byProduct[id] {
			delete(s.alerts, alertID)
		}
		delete(s.byProduct, id)
	}
	for id, p := range tx.products {
		if p == nil {
			continue
		}
		mp, ok := s.products[id]
		if !ok {
			s.seq++
			mp.seq = s.seq
		}
		mp.p = *p
		s.products[id] = mp
		s.skus[p.SKU] = id
	}

	for id, a := range tx.alerts {
		if a == nil {
			if old, ok := s.alerts[id]; ok {
				delete(s.byProduct[old.a.ProductID], id)
				delete(s.alerts, id)
			}
			continue
		}
		if _, ok := s.products[a.ProductID]; !ok {
			// cascaded away by a product delete in this same tx
			continue
		}
		ma, ok := s.alerts[id]
		if !ok {
			s.seq++
			ma.seq = s.seq
		}
		ma.a = *a
		s.alerts[id] = ma
		if s.byProduct[a.ProductID] == nil {
			s.byProduct[a.ProductID] = make(map[string]struct{})
		}
		s.byProduct[a.ProductID][id] = struct{}{}
	}

	for eventID, eventType := range tx.events {
		s.processed[eventID] = models.ProcessedEvent{
			EventID:     eventID,
			EventType:   eventType,
			ProcessedAt: time.Now(),
		}
	}
	return nil
}

// productLiveAfter reports whether the product exists once tx is applied.
// Caller holds s.mu.
func (s *MemoryStore) productLiveAfter(tx *memTx, id string) bool {
	if p, ok := tx.products[id]; ok {
		return p != nil
	}
	_, ok := s.products[id]
	return ok
}

// memTx stages writes for a MemoryStore transaction. A nil map value marks
// a delete.
type memTx struct {
	s        *MemoryStore
	held     map[string]func()
	products map[string]*models.Product
	alerts   map[string]*models.Alert
	events   map[string]string
}

func (t *memTx) releaseAll() {
	for _, release := range t.held {
		release()
	}
}

func (t *memTx) lock(ctx context.Context, productID string) error {
	if _, ok := t.held[productID]; ok {
		return nil
	}
	release, err := t.s.locks.acquire(ctx, "product:"+productID, t.s.lockTimeout)
	if err != nil {
		return err
	}
	t.held[productID] = release
	return nil
}

// releasesSKU reports whether this tx deletes owner or moves it off sku
func (t *memTx) releasesSKU(owner, sku string) bool {
	staged, ok := t.products[owner]
	return ok && (staged == nil || staged.SKU != sku)
}

func (t *memTx) product(id string) (*models.Product, bool) {
	if staged, ok := t.products[id]; ok {
		if staged == nil {
			return nil, false
		}
		p := *staged
		return &p, true
	}
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()
	mp, ok := t.s.products[id]
	if !ok {
		return nil, false
	}
	p := mp.p
	return &p, true
}

func (t *memTx) skuTaken(sku, exceptID string) bool {
	for id, p := range t.products {
		if p != nil && id != exceptID && p.SKU == sku {
			return true
		}
	}
	t.s.mu.RLock()
	owner, ok := t.s.skus[sku]
	t.s.mu.RUnlock()
	return ok && owner != exceptID && !t.releasesSKU(owner, sku)
}

func (t *memTx) CreateProduct(ctx context.Context, p *models.Product) error {
	if err := t.lock(ctx, p.ID); err != nil {
		return err
	}
	if _, exists := t.product(p.ID); exists {
		return fmt.Errorf("product %s already exists", p.ID)
	}
	if t.skuTaken(p.SKU, p.ID) {
		return fmt.Errorf("%w: %s", ErrDuplicateSKU, p.SKU)
	}
	staged := *p
	t.products[p.ID] = &staged
	return nil
}

func (t *memTx) LockProduct(ctx context.Context, id string) (*models.Product, error) {
	if err := t.lock(ctx, id); err != nil {
		return nil, err
	}
	p, ok := t.product(id)
	if !ok {
		return nil, fmt.Errorf("product %s: %w", id, ErrNotFound)
	}
	return p, nil
}

func (t *memTx) UpdateProduct(ctx context.Context, p *models.Product) error {
	if _, ok := t.product(p.ID); !ok {
		return fmt.Errorf("product %s: %w", p.ID, ErrNotFound)
	}
	if t.skuTaken(p.SKU, p.ID) {
		return fmt.Errorf("%w: %s", ErrDuplicateSKU, p.SKU)
	}
	staged := *p
	t.products[p.ID] = &staged
	return nil
}

func (t *memTx) DeleteProduct(ctx context.Context, id string) error {
	if _, ok := t.product(id); !ok {
		return fmt.Errorf("product %s: %w", id, ErrNotFound)
	}
	t.products[id] = nil
	return nil
}

func (t *memTx) alert(id string) (*models.Alert, bool) {
	if staged, ok := t.alerts[id]; ok {
		if staged == nil {
			return nil, false
		}
		a := *staged
		return &a, true
	}
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()
	ma, ok := t.s.alerts[id]
	if !ok {
		return nil, false
	}
	a := ma.a
	return &a, true
}

// alertsFor merges committed and staged alerts of one product
func (t *memTx) alertsFor(productID string) []*models.Alert {
	var out []*models.Alert

	t.s.mu.RLock()
	for id := range t.s.byProduct[productID] {
		if _, staged := t.alerts[id]; staged {
			continue
		}
		a := t.s.alerts[id].a
		out = append(out, &a)
	}
	t.s.mu.RUnlock()

	for _, staged := range t.alerts {
		if staged != nil && staged.ProductID == productID {
			a := *staged
			out = append(out, &a)
		}
	}
	return out
}

func (t *memTx) GetAlert(ctx context.Context, id string) (*models.Alert, error) {
	a, ok := t.alert(id)
	if !ok {
		return nil, fmt.Errorf("alert %s: %w", id, ErrNotFound)
	}
	return a, nil
}

func (t *memTx) GetActiveAlert(ctx context.Context, productID string) (*models.Alert, error) {
	for _, a := range t.alertsFor(productID) {
		if a.IsActive() {
			return a, nil
		}
	}
	return nil, nil
}

func (t *memTx) OpenAlert(ctx context.Context, productID string, at time.Time) (*models.Alert, bool, error) {
	existing, err := t.GetActiveAlert(ctx, productID)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		return existing, false, nil
	}

	alert := &models.Alert{
		ID:        uuid.New().String(),
		ProductID: productID,
		Status:    models.AlertStatusActive,
		CreatedAt: at,
	}
	staged := *alert
	t.alerts[alert.ID] = &staged
	return alert, true, nil
}

func (t *memTx) ResolveAlert(ctx context.Context, id string, at time.Time) (*models.Alert, error) {
	a, ok := t.alert(id)
	if !ok {
		return nil, fmt.Errorf("alert %s: %w", id, ErrNotFound)
	}
	if a.IsActive() {
		resolvedAt := at
		a.Status = models.AlertStatusResolved
		a.ResolvedAt = &resolvedAt
	}
	staged := *a
	t.alerts[id] = &staged
	return a, nil
}

func (t *memTx) DeleteAlert(ctx context.Context, id string) error {
	if _, ok := t.alert(id); !ok {
		return fmt.Errorf("alert %s: %w", id, ErrNotFound)
	}
	t.alerts[id] = nil
	return nil
}

func (t *memTx) DeleteAlertsByProduct(ctx context.Context, productID string) (int64, error) {
	var n int64
	for _, a := range t.alertsFor(productID) {
		t.alerts[a.ID] = nil
		n++
	}
	return n, nil
}

func (t *memTx) MarkEventProcessed(ctx context.Context, eventID, eventType string) (bool, error) {
	if _, ok := t.events[eventID]; ok {
		return false, nil
	}
	t.s.mu.RLock()
	_, done := t.s.processed[eventID]
	t.s.mu.RUnlock()
	if done {
		return false, nil
	}
	t.events[eventID] = eventType
	return true, nil
}
