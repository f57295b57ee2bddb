// Package remote is the boundary to the hosted relational service that is
// the system of record for sales, products and customers.
package remote

import (
	"context"
	"errors"

	"agrovet-pos/internal/model"
)

// ErrConflict is returned when an insert hits the remote uniqueness
// constraint on the client-generated id. The sync engine treats it as
// success-by-idempotency.
var ErrConflict = errors.New("remote: duplicate id")

// ErrNotFound is returned when a keyed lookup misses.
var ErrNotFound = errors.New("remote: record not found")

// IsConflict reports whether err signals a duplicate-key insert.
func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict)
}

// Store defines the remote data access methods the offline core consumes.
// Any error other than ErrConflict and ErrNotFound is treated as transient
// by the sync engine.
type Store interface {
	// SaleExists reports whether a sale with the given id is already
	// persisted remotely.
	SaleExists(ctx context.Context, id string) (bool, error)

	// InsertSale inserts a sale carrying its client-generated id.
	// Returns ErrConflict if the id already exists.
	InsertSale(ctx context.Context, sale model.Sale) error

	// SalesByShop lists all remote sales for a shop.
	SalesByShop(ctx context.Context, shopID string) ([]model.Sale, error)

	// DecrementQuantity atomically decrements a product's stock and
	// returns the new quantity.
	DecrementQuantity(ctx context.Context, productID string, quantity int) (int, error)

	// SetProductQuantity persists a quantity previously returned by
	// DecrementQuantity back to the product record.
	SetProductQuantity(ctx context.Context, productID string, quantity int) error

	// UpsertProduct inserts or updates a product by id.
	UpsertProduct(ctx context.Context, product model.Product) error

	// GetProduct returns one product by id, or ErrNotFound.
	GetProduct(ctx context.Context, id string) (model.Product, error)

	// ProductsByShop lists all remote products for a shop.
	ProductsByShop(ctx context.Context, shopID string) ([]model.Product, error)

	// UpsertCustomer inserts or updates a customer by id.
	UpsertCustomer(ctx context.Context, customer model.Customer) error

	// CustomersByShop lists all remote customers for a shop.
	CustomersByShop(ctx context.Context, shopID string) ([]model.Customer, error)

	// DeleteCustomer removes a customer by id.
	DeleteCustomer(ctx context.Context, id string) error

	// Ping checks remote reachability; used as the connectivity signal.
	Ping(ctx context.Context) error

	Close() error
}
