// Package syncer drives convergence between the local offline store and the
// remote system of record.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"time"

	"agrovet-pos/internal/connectivity"
	"agrovet-pos/internal/model"
	"agrovet-pos/internal/remote"
	"agrovet-pos/internal/store"
)

// ErrSyncInProgress is returned when a pass is requested while another is
// running. Triggers are dropped, not queued; the next tick retries.
var ErrSyncInProgress = errors.New("sync already in progress")

// ErrOffline is returned when a pass is requested while disconnected.
var ErrOffline = errors.New("cannot sync while offline")

// Config holds the reconciliation policy.
type Config struct {
	// Interval between periodic passes while online.
	Interval time.Duration
	// MaxRetries bounds the per-pass retry counter.
	MaxRetries int
	// RetryDelay is the fixed backoff between retries of a failing record.
	RetryDelay time.Duration
}

// DefaultConfig returns the production reconciliation policy.
func DefaultConfig() Config {
	return Config{
		Interval:   30 * time.Second,
		MaxRetries: 3,
		RetryDelay: 5 * time.Second,
	}
}

// PassResult summarizes one reconciliation pass.
type PassResult struct {
	Synced  int  `json:"synced"`
	Invalid int  `json:"invalid"`
	Aborted bool `json:"aborted"`
}

// Engine owns the reconciliation protocol. At most one pass runs per
// process; all durable state lives in the offline store, so an abandoned
// pass is picked up from scratch by the next one.
type Engine struct {
	store   store.OfflineStore
	remote  remote.Store
	monitor *connectivity.Monitor
	cfg     Config

	busy chan struct{}
}

// NewEngine creates a sync engine. Config zero values fall back to defaults.
func NewEngine(st store.OfflineStore, rs remote.Store, monitor *connectivity.Monitor, cfg Config) *Engine {
	def := DefaultConfig()
	if cfg.Interval <= 0 {
		cfg.Interval = def.Interval
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = def.MaxRetries
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = def.RetryDelay
	}

	busy := make(chan struct{}, 1)
	busy <- struct{}{}
	return &Engine{store: st, remote: rs, monitor: monitor, cfg: cfg, busy: busy}
}

func (e *Engine) acquire() bool {
	select {
	case <-e.busy:
		return true
	default:
		return false
	}
}

func (e *Engine) release() {
	e.busy <- struct{}{}
}

// RunPass drains pending local records into the remote system: sales first
// (they carry the inventory side effect), then products and customers.
// A retry-exhausted transient failure aborts the whole pass; everything not
// yet processed stays pending for the next one.
func (e *Engine) RunPass(ctx context.Context) (PassResult, error) {
	var result PassResult

	if !e.monitor.Current() {
		return result, ErrOffline
	}
	if !e.acquire() {
		return result, ErrSyncInProgress
	}
	defer e.release()

	retries := 0

	aborted, err := e.syncSales(ctx, &result, &retries)
	if err != nil {
		return result, err
	}
	if aborted {
		result.Aborted = true
		return result, nil
	}

	aborted, err = e.syncProducts(ctx, &result, &retries)
	if err != nil {
		return result, err
	}
	if aborted {
		result.Aborted = true
		return result, nil
	}

	aborted, err = e.syncCustomers(ctx, &result, &retries)
	if err != nil {
		return result, err
	}
	result.Aborted = aborted

	if result.Synced > 0 || result.Invalid > 0 {
		log.Printf("[SyncEngine] Pass complete - synced: %d, invalid: %d, aborted: %v",
			result.Synced, result.Invalid, result.Aborted)
	}
	return result, nil
}

// attempt runs fn with the pass's bounded-retry policy. It returns
// aborted=true once the per-pass retry counter is exhausted, at which point
// the caller must stop processing further records.
func (e *Engine) attempt(ctx context.Context, retries *int, fn func() error) (aborted bool, err error) {
	for {
		callErr := fn()
		if callErr == nil {
			return false, nil
		}
		*retries++
		if *retries >= e.cfg.MaxRetries {
			log.Printf("[SyncEngine] Retries exhausted, aborting pass: %v", callErr)
			return true, nil
		}
		log.Printf("[SyncEngine] Transient failure (retry %d/%d): %v", *retries, e.cfg.MaxRetries, callErr)

		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-time.After(e.cfg.RetryDelay):
		}
	}
}

func saleSubmittable(s model.Sale) bool {
	return s.ID != "" && s.ShopID != "" && s.ProductID != "" && s.Quantity > 0 &&
		!math.IsNaN(s.TotalPrice) && !math.IsInf(s.TotalPrice, 0)
}

func (e *Engine) syncSales(ctx context.Context, result *PassResult, retries *int) (bool, error) {
	sales, err := e.store.UnsyncedSales(ctx)
	if err != nil {
		return false, err
	}

	for _, sale := range sales {
		// Structurally invalid records are never submitted and never
		// deleted; they stay pending for manual cleanup.
		if !saleSubmittable(sale) {
			log.Printf("[SyncEngine] Skipping invalid sale %q", sale.ID)
			result.Invalid++
			continue
		}

		aborted, err := e.attempt(ctx, retries, func() error {
			return e.syncSale(ctx, sale)
		})
		if aborted || err != nil {
			return aborted, err
		}
		result.Synced++
	}
	return false, nil
}

// syncSale reconciles one sale. The exists-check and the conflict branch
// both mark the local record synced, which makes a retry after a crash
// between remote insert and local mark safe.
func (e *Engine) syncSale(ctx context.Context, sale model.Sale) error {
	exists, err := e.remote.SaleExists(ctx, sale.ID)
	if err != nil {
		return err
	}
	if exists {
		return e.store.MarkSaleSynced(ctx, sale.ID)
	}

	sale.ApplyDefaults()
	err = e.remote.InsertSale(ctx, sale)
	if remote.IsConflict(err) {
		return e.store.MarkSaleSynced(ctx, sale.ID)
	}
	if err != nil {
		return err
	}

	newQuantity, err := e.remote.DecrementQuantity(ctx, sale.ProductID, sale.Quantity)
	if err != nil {
		return err
	}
	if err := e.remote.SetProductQuantity(ctx, sale.ProductID, newQuantity); err != nil {
		return err
	}

	return e.store.MarkSaleSynced(ctx, sale.ID)
}

func (e *Engine) syncProducts(ctx context.Context, result *PassResult, retries *int) (bool, error) {
	products, err := e.store.UnsyncedProducts(ctx)
	if err != nil {
		return false, err
	}

	for _, product := range products {
		p := product
		aborted, err := e.attempt(ctx, retries, func() error {
			if err := e.remote.UpsertProduct(ctx, p); err != nil && !remote.IsConflict(err) {
				return err
			}
			return e.store.MarkProductSynced(ctx, p.ID)
		})
		if aborted || err != nil {
			return aborted, err
		}
		result.Synced++
	}
	return false, nil
}

func (e *Engine) syncCustomers(ctx context.Context, result *PassResult, retries *int) (bool, error) {
	customers, err := e.store.UnsyncedCustomers(ctx)
	if err != nil {
		return false, err
	}

	for _, customer := range customers {
		c := customer
		aborted, err := e.attempt(ctx, retries, func() error {
			if err := e.remote.UpsertCustomer(ctx, c); err != nil && !remote.IsConflict(err) {
				return err
			}
			return e.store.MarkCustomerSynced(ctx, c.ID)
		})
		if aborted || err != nil {
			return aborted, err
		}
		result.Synced++
	}
	return false, nil
}

// Reconcile retries a single pending record on demand, independent of the
// scheduler. Errors surface to the caller instead of the retry policy.
func (e *Engine) Reconcile(ctx context.Context, kind model.Kind, id string) error {
	if !e.monitor.Current() {
		return ErrOffline
	}
	if !e.acquire() {
		return ErrSyncInProgress
	}
	defer e.release()

	switch kind {
	case model.KindSale:
		sale, err := e.store.GetSale(ctx, id)
		if err != nil {
			return err
		}
		if sale.Synced {
			return nil
		}
		if !saleSubmittable(sale) {
			return &store.ValidationError{Field: "sale", Reason: "has missing or non-finite fields"}
		}
		return e.syncSale(ctx, sale)
	case model.KindProduct:
		product, err := e.store.GetProduct(ctx, id)
		if err != nil {
			return err
		}
		if product.Synced {
			return nil
		}
		if err := e.remote.UpsertProduct(ctx, product); err != nil && !remote.IsConflict(err) {
			return err
		}
		return e.store.MarkProductSynced(ctx, id)
	case model.KindCustomer:
		customer, err := e.store.GetCustomer(ctx, id)
		if err != nil {
			return err
		}
		if customer.Synced {
			return nil
		}
		if err := e.remote.UpsertCustomer(ctx, customer); err != nil && !remote.IsConflict(err) {
			return err
		}
		return e.store.MarkCustomerSynced(ctx, id)
	}
	return fmt.Errorf("unknown entity kind %q", kind)
}

// PendingSyncs re-queries the store for the outstanding pending count.
func (e *Engine) PendingSyncs(ctx context.Context) (int, error) {
	return e.store.CountUnsynced(ctx)
}
