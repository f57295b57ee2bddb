// Package service holds the business-facing operations of the API. Offline
// is the single decision point between the remote system of record and the
// local offline store.
package service

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"agrovet-pos/internal/cache"
	"agrovet-pos/internal/connectivity"
	"agrovet-pos/internal/model"
	"agrovet-pos/internal/remote"
	"agrovet-pos/internal/store"
	"agrovet-pos/pkg/uid"
)

// DefaultCacheTTL bounds how long remote product lists are served from cache.
const DefaultCacheTTL = 5 * time.Minute

// Offline routes every offline-tolerant write and read. Online writes go
// straight to the remote system; offline writes are captured as pending
// records for the sync engine to reconcile later.
type Offline struct {
	store    store.OfflineStore
	remote   remote.Store
	monitor  *connectivity.Monitor
	cache    cache.Cache
	cacheTTL time.Duration
}

// NewOffline creates the façade. cache may be nil.
func NewOffline(st store.OfflineStore, rs remote.Store, monitor *connectivity.Monitor, c cache.Cache) *Offline {
	return &Offline{
		store:    st,
		remote:   rs,
		monitor:  monitor,
		cache:    c,
		cacheTTL: DefaultCacheTTL,
	}
}

// Online reports current connectivity.
func (s *Offline) Online() bool {
	return s.monitor.Current()
}

// PendingSyncs returns the outstanding pending-record count.
func (s *Offline) PendingSyncs(ctx context.Context) (int, error) {
	return s.store.CountUnsynced(ctx)
}

func productsCacheKey(shopID string) string {
	return "products:" + shopID
}

// RecordSale records a sale. Online it is written to the remote system
// (including the stock decrement); offline it is captured as a pending
// record shaped identically, so callers never branch on connectivity.
func (s *Offline) RecordSale(ctx context.Context, sale model.Sale) (model.Sale, error) {
	if sale.ID == "" {
		sale.ID = uid.New()
	}
	sale.ApplyDefaults()

	if !s.monitor.Current() {
		sale.Synced = false
		if err := s.store.PutSale(ctx, sale); err != nil {
			// The caller must know the action was not captured.
			return model.Sale{}, err
		}
		return sale, nil
	}

	err := s.remote.InsertSale(ctx, sale)
	if err != nil && !remote.IsConflict(err) {
		return model.Sale{}, err
	}
	if err == nil {
		newQuantity, err := s.remote.DecrementQuantity(ctx, sale.ProductID, sale.Quantity)
		if err != nil {
			return model.Sale{}, err
		}
		if err := s.remote.SetProductQuantity(ctx, sale.ProductID, newQuantity); err != nil {
			return model.Sale{}, err
		}
	}
	sale.Synced = true
	s.invalidateProducts(ctx, sale.ShopID)
	return sale, nil
}

// Sales returns remote sales when online, or only the local pending sales
// (tagged unsynced) when offline.
func (s *Offline) Sales(ctx context.Context, shopID string) ([]model.Sale, error) {
	if s.monitor.Current() {
		return s.remote.SalesByShop(ctx, shopID)
	}
	return s.pendingSales(ctx, shopID)
}

// SalesView returns the unified sales list for display: remote rows plus
// local pending rows, deduplicated by id with the remote copy winning.
// A record can briefly be both remote and locally pending while a sync
// pass is mid-flight; the merge hides the duplicate.
func (s *Offline) SalesView(ctx context.Context, shopID string) ([]model.Sale, error) {
	if !s.monitor.Current() {
		return s.pendingSales(ctx, shopID)
	}

	remoteSales, err := s.remote.SalesByShop(ctx, shopID)
	if err != nil {
		return nil, err
	}

	pending, err := s.pendingSales(ctx, shopID)
	if err != nil {
		// Degrade to remote-only rather than failing the read.
		log.Printf("[Offline] Pending-sale read failed, serving remote only: %v", err)
		return remoteSales, nil
	}

	seen := make(map[string]bool, len(remoteSales))
	for _, sale := range remoteSales {
		seen[sale.ID] = true
	}
	merged := remoteSales
	for _, sale := range pending {
		if !seen[sale.ID] {
			merged = append(merged, sale)
		}
	}
	return merged, nil
}

// PendingSales returns the local sales still waiting to be synchronized.
func (s *Offline) PendingSales(ctx context.Context, shopID string) ([]model.Sale, error) {
	return s.pendingSales(ctx, shopID)
}

func (s *Offline) pendingSales(ctx context.Context, shopID string) ([]model.Sale, error) {
	all, err := s.store.SalesByShop(ctx, shopID)
	if err != nil {
		return nil, err
	}
	var pending []model.Sale
	for _, sale := range all {
		if !sale.Synced {
			pending = append(pending, sale)
		}
	}
	return pending, nil
}

// SaveProduct creates or updates a product, online or offline.
func (s *Offline) SaveProduct(ctx context.Context, product model.Product) (model.Product, error) {
	if product.ID == "" {
		product.ID = uid.New()
	}

	if !s.monitor.Current() {
		product.Synced = false
		if err := s.store.PutProduct(ctx, product); err != nil {
			return model.Product{}, err
		}
		return product, nil
	}

	if err := s.remote.UpsertProduct(ctx, product); err != nil {
		return model.Product{}, err
	}
	product.Synced = true
	s.invalidateProducts(ctx, product.ShopID)
	return product, nil
}

// Products returns remote products when online (served through the read
// cache and snapshotted locally for offline fallback), or only the local
// pending product edits when offline.
func (s *Offline) Products(ctx context.Context, shopID string) ([]model.Product, error) {
	if !s.monitor.Current() {
		all, err := s.store.ProductsByShop(ctx, shopID)
		if err != nil {
			return nil, err
		}
		var pending []model.Product
		for _, p := range all {
			if !p.Synced {
				pending = append(pending, p)
			}
		}
		return pending, nil
	}
	return s.remoteProducts(ctx, shopID)
}

// ProductsView returns the product list for display. Online it is the
// remote list; offline it is everything known locally, cached snapshots
// included.
func (s *Offline) ProductsView(ctx context.Context, shopID string) ([]model.Product, error) {
	if s.monitor.Current() {
		return s.remoteProducts(ctx, shopID)
	}
	return s.store.ProductsByShop(ctx, shopID)
}

func (s *Offline) remoteProducts(ctx context.Context, shopID string) ([]model.Product, error) {
	key := productsCacheKey(shopID)
	if s.cache != nil {
		if data, err := s.cache.Get(ctx, key); err == nil {
			var products []model.Product
			if err := json.Unmarshal(data, &products); err == nil {
				return products, nil
			}
		}
	}

	products, err := s.remote.ProductsByShop(ctx, shopID)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if data, err := json.Marshal(products); err == nil {
			if err := s.cache.Set(ctx, key, data, s.cacheTTL); err != nil {
				log.Printf("[Offline] Product cache write failed: %v", err)
			}
		}
	}

	// Snapshot for offline reads; a failure here only costs offline
	// fallback, not the current read.
	if err := s.store.CacheProducts(ctx, products); err != nil {
		log.Printf("[Offline] Product snapshot failed: %v", err)
	}
	return products, nil
}

func (s *Offline) invalidateProducts(ctx context.Context, shopID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, productsCacheKey(shopID)); err != nil {
		log.Printf("[Offline] Product cache invalidation failed: %v", err)
	}
}

// ProductStock returns displayable stock for a product. Offline it is the
// last-known local quantity minus quantities of not-yet-synced sales.
func (s *Offline) ProductStock(ctx context.Context, productID string) (int, error) {
	if s.monitor.Current() {
		product, err := s.remote.GetProduct(ctx, productID)
		if err != nil {
			return 0, err
		}
		return product.Quantity, nil
	}

	product, err := s.store.GetProduct(ctx, productID)
	if err != nil {
		return 0, err
	}
	pending, err := s.store.PendingSaleQuantity(ctx, productID)
	if err != nil {
		return 0, err
	}
	return product.Quantity - pending, nil
}

// SaveCustomer creates or updates a customer, online or offline.
func (s *Offline) SaveCustomer(ctx context.Context, customer model.Customer) (model.Customer, error) {
	if customer.ID == "" {
		customer.ID = uid.New()
	}

	if !s.monitor.Current() {
		customer.Synced = false
		if err := s.store.PutCustomer(ctx, customer); err != nil {
			return model.Customer{}, err
		}
		return customer, nil
	}

	if err := s.remote.UpsertCustomer(ctx, customer); err != nil {
		return model.Customer{}, err
	}
	customer.Synced = true
	return customer, nil
}

// Customers returns remote customers when online, or only the local
// pending customers when offline.
func (s *Offline) Customers(ctx context.Context, shopID string) ([]model.Customer, error) {
	if s.monitor.Current() {
		return s.remote.CustomersByShop(ctx, shopID)
	}

	all, err := s.store.CustomersByShop(ctx, shopID)
	if err != nil {
		return nil, err
	}
	var pending []model.Customer
	for _, c := range all {
		if !c.Synced {
			pending = append(pending, c)
		}
	}
	return pending, nil
}

// DeleteCustomer removes a customer. Offline, only the local copy can be
// removed; a remote copy (if any) is untouched until the user is online.
func (s *Offline) DeleteCustomer(ctx context.Context, id string) error {
	if s.monitor.Current() {
		if err := s.remote.DeleteCustomer(ctx, id); err != nil {
			return err
		}
	}
	return s.store.DeleteCustomer(ctx, id)
}
