package store

import (
	"context"

	"agrovet-pos/internal/model"
)

// OfflineStore is the durable, shop-scoped buffer for writes captured while
// disconnected. It is the single owner of pending-record state; the sync
// engine flips sync flags through it and every consumer re-reads it rather
// than caching results.
type OfflineStore interface {
	// Sales
	PutSale(ctx context.Context, sale model.Sale) error
	GetSale(ctx context.Context, id string) (model.Sale, error)
	SalesByShop(ctx context.Context, shopID string) ([]model.Sale, error)
	UnsyncedSales(ctx context.Context) ([]model.Sale, error)
	MarkSaleSynced(ctx context.Context, id string) error
	DeleteSale(ctx context.Context, id string) error
	DeleteUnsyncedSales(ctx context.Context) (int64, error)

	// PendingSaleQuantity returns the total quantity of unsynced sales
	// recorded against a product, for offline stock display.
	PendingSaleQuantity(ctx context.Context, productID string) (int, error)

	// Products
	PutProduct(ctx context.Context, product model.Product) error
	GetProduct(ctx context.Context, id string) (model.Product, error)
	ProductsByShop(ctx context.Context, shopID string) ([]model.Product, error)
	UnsyncedProducts(ctx context.Context) ([]model.Product, error)
	MarkProductSynced(ctx context.Context, id string) error
	DeleteProduct(ctx context.Context, id string) error
	DeleteUnsyncedProducts(ctx context.Context) (int64, error)

	// CacheProducts snapshots remote products locally as already-synced
	// rows for offline reads. Rows with pending local edits are left alone.
	CacheProducts(ctx context.Context, products []model.Product) error

	// Customers
	PutCustomer(ctx context.Context, customer model.Customer) error
	GetCustomer(ctx context.Context, id string) (model.Customer, error)
	CustomersByShop(ctx context.Context, shopID string) ([]model.Customer, error)
	UnsyncedCustomers(ctx context.Context) ([]model.Customer, error)
	MarkCustomerSynced(ctx context.Context, id string) error
	DeleteCustomer(ctx context.Context, id string) error
	DeleteUnsyncedCustomers(ctx context.Context) (int64, error)

	// CountUnsynced returns the number of pending records across all
	// collections, for the user-facing pending-sync indicator.
	CountUnsynced(ctx context.Context) (int, error)

	Close() error
}
