package syncer

import (
	"context"
	"sync"

	"agrovet-pos/internal/model"
	"agrovet-pos/internal/remote"
	"agrovet-pos/internal/store"
)

// fakeStore is an in-memory OfflineStore with deterministic ordering.
type fakeStore struct {
	mu        sync.Mutex
	sales     map[string]model.Sale
	saleOrder []string
	products  map[string]model.Product
	customers map[string]model.Customer
}

var _ store.OfflineStore = (*fakeStore)(nil)

func newFakeStore() *fakeStore {
	return &fakeStore{
		sales:     make(map[string]model.Sale),
		products:  make(map[string]model.Product),
		customers: make(map[string]model.Customer),
	}
}

func (f *fakeStore) PutSale(ctx context.Context, sale model.Sale) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.sales[sale.ID]; !ok {
		f.saleOrder = append(f.saleOrder, sale.ID)
	}
	sale.Synced = false
	f.sales[sale.ID] = sale
	return nil
}

func (f *fakeStore) GetSale(ctx context.Context, id string) (model.Sale, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	sale, ok := f.sales[id]
	if !ok {
		return model.Sale{}, store.ErrNotFound
	}
	return sale, nil
}

func (f *fakeStore) SalesByShop(ctx context.Context, shopID string) ([]model.Sale, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Sale
	for _, id := range f.saleOrder {
		if s := f.sales[id]; s.ShopID == shopID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeStore) UnsyncedSales(ctx context.Context) ([]model.Sale, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Sale
	for _, id := range f.saleOrder {
		if s := f.sales[id]; !s.Synced {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeStore) MarkSaleSynced(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if sale, ok := f.sales[id]; ok {
		sale.Synced = true
		f.sales[id] = sale
	}
	return nil
}

func (f *fakeStore) DeleteSale(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.sales, id)
	return nil
}

func (f *fakeStore) DeleteUnsyncedSales(ctx context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var deleted int64
	for id, s := range f.sales {
		if !s.Synced {
			delete(f.sales, id)
			deleted++
		}
	}
	return deleted, nil
}

func (f *fakeStore) PendingSaleQuantity(ctx context.Context, productID string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	total := 0
	for _, s := range f.sales {
		if !s.Synced && s.ProductID == productID {
			total += s.Quantity
		}
	}
	return total, nil
}

func (f *fakeStore) PutProduct(ctx context.Context, product model.Product) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	product.Synced = false
	f.products[product.ID] = product
	return nil
}

func (f *fakeStore) GetProduct(ctx context.Context, id string) (model.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.products[id]
	if !ok {
		return model.Product{}, store.ErrNotFound
	}
	return p, nil
}

func (f *fakeStore) ProductsByShop(ctx context.Context, shopID string) ([]model.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Product
	for _, p := range f.products {
		if p.ShopID == shopID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeStore) UnsyncedProducts(ctx context.Context) ([]model.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Product
	for _, p := range f.products {
		if !p.Synced {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeStore) MarkProductSynced(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if p, ok := f.products[id]; ok {
		p.Synced = true
		f.products[id] = p
	}
	return nil
}

func (f *fakeStore) DeleteProduct(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.products, id)
	return nil
}

func (f *fakeStore) DeleteUnsyncedProducts(ctx context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var deleted int64
	for id, p := range f.products {
		if !p.Synced {
			delete(f.products, id)
			deleted++
		}
	}
	return deleted, nil
}

func (f *fakeStore) CacheProducts(ctx context.Context, products []model.Product) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range products {
		if existing, ok := f.products[p.ID]; ok && !existing.Synced {
			continue
		}
		p.Synced = true
		f.products[p.ID] = p
	}
	return nil
}

func (f *fakeStore) PutCustomer(ctx context.Context, customer model.Customer) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	customer.Synced = false
	f.customers[customer.ID] = customer
	return nil
}

func (f *fakeStore) GetCustomer(ctx context.Context, id string) (model.Customer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.customers[id]
	if !ok {
		return model.Customer{}, store.ErrNotFound
	}
	return c, nil
}

func (f *fakeStore) CustomersByShop(ctx context.Context, shopID string) ([]model.Customer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Customer
	for _, c := range f.customers {
		if c.ShopID == shopID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeStore) UnsyncedCustomers(ctx context.Context) ([]model.Customer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Customer
	for _, c := range f.customers {
		if !c.Synced {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeStore) MarkCustomerSynced(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if c, ok := f.customers[id]; ok {
		c.Synced = true
		f.customers[id] = c
	}
	return nil
}

func (f *fakeStore) DeleteCustomer(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.customers, id)
	return nil
}

func (f *fakeStore) DeleteUnsyncedCustomers(ctx context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var deleted int64
	for id, c := range f.customers {
		if !c.Synced {
			delete(f.customers, id)
			deleted++
		}
	}
	return deleted, nil
}

func (f *fakeStore) CountUnsynced(ctx context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for _, s := range f.sales {
		if !s.Synced {
			count++
		}
	}
	for _, p := range f.products {
		if !p.Synced {
			count++
		}
	}
	for _, c := range f.customers {
		if !c.Synced {
			count++
		}
	}
	return count, nil
}

func (f *fakeStore) Close() error { return nil }

// putRaw stores a sale bypassing the normal pending reset, for seeding
// malformed or pre-synced rows.
func (f *fakeStore) putRaw(sale model.Sale) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.sales[sale.ID]; !ok {
		f.saleOrder = append(f.saleOrder, sale.ID)
	}
	f.sales[sale.ID] = sale
}

// fakeRemote is an in-memory remote.Store with failure injection.
type fakeRemote struct {
	mu sync.Mutex

	sales      map[string]model.Sale
	products   map[string]model.Product
	customers  map[string]model.Customer
	quantities map[string]int

	insertErr      error
	upsertErr      error
	insertCalls    int
	decrementCalls int
	setCalls       int
	upsertProducts int
	upsertCusts    int
}

var _ remote.Store = (*fakeRemote)(nil)

func newFakeRemote() *fakeRemote {
	return &fakeRemote{
		sales:      make(map[string]model.Sale),
		products:   make(map[string]model.Product),
		customers:  make(map[string]model.Customer),
		quantities: make(map[string]int),
	}
}

func (f *fakeRemote) SaleExists(ctx context.Context, id string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.sales[id]
	return ok, nil
}

func (f *fakeRemote) InsertSale(ctx context.Context, sale model.Sale) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.insertCalls++
	if f.insertErr != nil {
		return f.insertErr
	}
	if _, ok := f.sales[sale.ID]; ok {
		return remote.ErrConflict
	}
	f.sales[sale.ID] = sale
	return nil
}

func (f *fakeRemote) SalesByShop(ctx context.Context, shopID string) ([]model.Sale, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Sale
	for _, s := range f.sales {
		if s.ShopID == shopID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeRemote) DecrementQuantity(ctx context.Context, productID string, quantity int) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.decrementCalls++
	f.quantities[productID] -= quantity
	return f.quantities[productID], nil
}

func (f *fakeRemote) SetProductQuantity(ctx context.Context, productID string, quantity int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.setCalls++
	if p, ok := f.products[productID]; ok {
		p.Quantity = quantity
		f.products[productID] = p
	}
	f.quantities[productID] = quantity
	return nil
}

func (f *fakeRemote) UpsertProduct(ctx context.Context, product model.Product) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.upsertProducts++
	if f.upsertErr != nil {
		return f.upsertErr
	}
	f.products[product.ID] = product
	return nil
}

func (f *fakeRemote) GetProduct(ctx context.Context, id string) (model.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.products[id]
	if !ok {
		return model.Product{}, remote.ErrNotFound
	}
	return p, nil
}

func (f *fakeRemote) ProductsByShop(ctx context.Context, shopID string) ([]model.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Product
	for _, p := range f.products {
		if p.ShopID == shopID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeRemote) UpsertCustomer(ctx context.Context, customer model.Customer) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.upsertCusts++
	if f.upsertErr != nil {
		return f.upsertErr
	}
	f.customers[customer.ID] = customer
	return nil
}

func (f *fakeRemote) CustomersByShop(ctx context.Context, shopID string) ([]model.Customer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Customer
	for _, c := range f.customers {
		if c.ShopID == shopID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeRemote) DeleteCustomer(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.customers, id)
	return nil
}

func (f *fakeRemote) Ping(ctx context.Context) error { return nil }

func (f *fakeRemote) Close() error { return nil }

func (f *fakeRemote) setInsertErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.insertErr = err
}

func (f *fakeRemote) counts() (inserts, decrements int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.insertCalls, f.decrementCalls
}
