package store

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"math"
	"sync"
	"time"

	"agrovet-pos/internal/model"

	_ "modernc.org/sqlite" // Pure Go SQLite driver - no CGO required
)

// schemaVersion is the current on-device schema version. Upgrades are
// additive only: a collection or index is created if missing, never dropped.
const schemaVersion = 2

// SQLite implements OfflineStore on a local SQLite database.
// Thread-safe with WAL mode for high-concurrency reads.
type SQLite struct {
	db *sql.DB
	mu sync.RWMutex
}

// OpenSQLite opens (or creates) the offline database at dbPath and applies
// any pending schema migrations.
func OpenSQLite(dbPath string) (*SQLite, error) {
	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000", dbPath)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite: %w", err)
	}

	// SQLite only supports 1 writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate offline schema: %w", err)
	}

	log.Printf("[OfflineStore] Initialized with database: %s", dbPath)
	return &SQLite{db: db}, nil
}

// migrate brings the schema up to schemaVersion, applying only the steps
// beyond the recorded version.
func migrate(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return err
	}

	if version < 1 {
		if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS offline_sales (
			id TEXT PRIMARY KEY,
			shop_id TEXT NOT NULL,
			product_id TEXT NOT NULL,
			customer_id TEXT,
			quantity INTEGER NOT NULL,
			total_price REAL NOT NULL,
			payment_method TEXT NOT NULL,
			sale_date TIMESTAMP NOT NULL,
			synced INTEGER NOT NULL DEFAULT 0
		);
		CREATE INDEX IF NOT EXISTS idx_sales_shop ON offline_sales(shop_id);
		CREATE INDEX IF NOT EXISTS idx_sales_synced ON offline_sales(synced);
		`); err != nil {
			return err
		}
	}

	if version < 2 {
		if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS offline_products (
			id TEXT PRIMARY KEY,
			shop_id TEXT NOT NULL,
			name TEXT NOT NULL,
			category TEXT NOT NULL DEFAULT '',
			quantity INTEGER NOT NULL DEFAULT 0,
			purchase_price REAL NOT NULL DEFAULT 0,
			selling_price REAL NOT NULL DEFAULT 0,
			is_regulated INTEGER NOT NULL DEFAULT 0,
			barcode TEXT NOT NULL DEFAULT '',
			synced INTEGER NOT NULL DEFAULT 0
		);
		CREATE INDEX IF NOT EXISTS idx_products_shop ON offline_products(shop_id);
		CREATE INDEX IF NOT EXISTS idx_products_synced ON offline_products(synced);
		CREATE TABLE IF NOT EXISTS offline_customers (
			id TEXT PRIMARY KEY,
			shop_id TEXT NOT NULL,
			name TEXT NOT NULL,
			phone TEXT NOT NULL DEFAULT '',
			email TEXT NOT NULL DEFAULT '',
			address TEXT NOT NULL DEFAULT '',
			preferences TEXT NOT NULL DEFAULT '',
			synced INTEGER NOT NULL DEFAULT 0
		);
		CREATE INDEX IF NOT EXISTS idx_customers_shop ON offline_customers(shop_id);
		CREATE INDEX IF NOT EXISTS idx_customers_synced ON offline_customers(synced);
		`); err != nil {
			return err
		}
	}

	if version < schemaVersion {
		if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", schemaVersion)); err != nil {
			return err
		}
	}
	return nil
}

func validateSale(s model.Sale) error {
	switch {
	case s.ID == "":
		return &ValidationError{Field: "id", Reason: "is required"}
	case s.ShopID == "":
		return &ValidationError{Field: "shop_id", Reason: "is required"}
	case s.ProductID == "":
		return &ValidationError{Field: "product_id", Reason: "is required"}
	case s.Quantity <= 0:
		return &ValidationError{Field: "quantity", Reason: "must be positive"}
	case math.IsNaN(s.TotalPrice) || math.IsInf(s.TotalPrice, 0):
		return &ValidationError{Field: "total_price", Reason: "must be a finite number"}
	}
	return nil
}

func validateProduct(p model.Product) error {
	switch {
	case p.ID == "":
		return &ValidationError{Field: "id", Reason: "is required"}
	case p.ShopID == "":
		return &ValidationError{Field: "shop_id", Reason: "is required"}
	case p.Name == "":
		return &ValidationError{Field: "name", Reason: "is required"}
	}
	return nil
}

func validateCustomer(c model.Customer) error {
	switch {
	case c.ID == "":
		return &ValidationError{Field: "id", Reason: "is required"}
	case c.ShopID == "":
		return &ValidationError{Field: "shop_id", Reason: "is required"}
	case c.Name == "":
		return &ValidationError{Field: "name", Reason: "is required"}
	}
	return nil
}

// PutSale upserts a pending sale by id. The row is always stored with
// synced = 0; only MarkSaleSynced flips it.
func (s *SQLite) PutSale(ctx context.Context, sale model.Sale) error {
	if err := validateSale(sale); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var customerID sql.NullString
	if sale.CustomerID != nil {
		customerID = sql.NullString{String: *sale.CustomerID, Valid: true}
	}

	query := `
		INSERT INTO offline_sales (id, shop_id, product_id, customer_id, quantity, total_price, payment_method, sale_date, synced)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, 0)
		ON CONFLICT(id) DO UPDATE SET
			shop_id = excluded.shop_id,
			product_id = excluded.product_id,
			customer_id = excluded.customer_id,
			quantity = excluded.quantity,
			total_price = excluded.total_price,
			payment_method = excluded.payment_method,
			sale_date = excluded.sale_date,
			synced = 0`

	_, err := s.db.ExecContext(ctx, query,
		sale.ID, sale.ShopID, sale.ProductID, customerID,
		sale.Quantity, sale.TotalPrice, sale.PaymentMethod, sale.SaleDate.UTC())
	return storageErr("put sale", err)
}

const saleColumns = `id, shop_id, product_id, customer_id, quantity, total_price, payment_method, sale_date, synced`

func scanSale(scanner interface{ Scan(...any) error }) (model.Sale, error) {
	var (
		sale       model.Sale
		customerID sql.NullString
		saleDate   time.Time
	)
	err := scanner.Scan(&sale.ID, &sale.ShopID, &sale.ProductID, &customerID,
		&sale.Quantity, &sale.TotalPrice, &sale.PaymentMethod, &saleDate, &sale.Synced)
	if err != nil {
		return model.Sale{}, err
	}
	if customerID.Valid {
		sale.CustomerID = &customerID.String
	}
	sale.SaleDate = saleDate
	return sale, nil
}

// GetSale returns one sale by id, or ErrNotFound.
func (s *SQLite) GetSale(ctx context.Context, id string) (model.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `SELECT `+saleColumns+` FROM offline_sales WHERE id = ?`, id)
	sale, err := scanSale(row)
	if err == sql.ErrNoRows {
		return model.Sale{}, ErrNotFound
	}
	if err != nil {
		return model.Sale{}, storageErr("get sale", err)
	}
	return sale, nil
}

func (s *SQLite) querySales(ctx context.Context, op, query string, args ...any) ([]model.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storageErr(op, err)
	}
	defer rows.Close()

	var sales []model.Sale
	for rows.Next() {
		sale, err := scanSale(rows)
		if err != nil {
			return nil, storageErr(op, err)
		}
		sales = append(sales, sale)
	}
	return sales, storageErr(op, rows.Err())
}

// SalesByShop returns a snapshot of all locally stored sales for a shop.
func (s *SQLite) SalesByShop(ctx context.Context, shopID string) ([]model.Sale, error) {
	return s.querySales(ctx, "sales by shop",
		`SELECT `+saleColumns+` FROM offline_sales WHERE shop_id = ?`, shopID)
}

// UnsyncedSales returns all pending sales across shops.
func (s *SQLite) UnsyncedSales(ctx context.Context) ([]model.Sale, error) {
	return s.querySales(ctx, "unsynced sales",
		`SELECT `+saleColumns+` FROM offline_sales WHERE synced = 0`)
}

// MarkSaleSynced flips the sync flag. No-op if the record is absent or
// already synced, so the sync engine can call it blindly after a duplicate.
func (s *SQLite) MarkSaleSynced(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `UPDATE offline_sales SET synced = 1 WHERE id = ?`, id)
	return storageErr("mark sale synced", err)
}

// DeleteSale removes a sale unconditionally.
func (s *SQLite) DeleteSale(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `DELETE FROM offline_sales WHERE id = ?`, id)
	return storageErr("delete sale", err)
}

// DeleteUnsyncedSales discards every pending sale. Administrative escape
// hatch for records that can never converge.
func (s *SQLite) DeleteUnsyncedSales(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `DELETE FROM offline_sales WHERE synced = 0`)
	if err != nil {
		return 0, storageErr("delete unsynced sales", err)
	}
	deleted, _ := res.RowsAffected()
	if deleted > 0 {
		log.Printf("[OfflineStore] Discarded %d unsynced sales", deleted)
	}
	return deleted, nil
}

// PendingSaleQuantity sums unsynced sale quantities for a product.
func (s *SQLite) PendingSaleQuantity(ctx context.Context, productID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var total int
	err := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(quantity), 0) FROM offline_sales WHERE product_id = ? AND synced = 0`,
		productID).Scan(&total)
	if err != nil {
		return 0, storageErr("pending sale quantity", err)
	}
	return total, nil
}

// PutProduct upserts a pending product edit by id, always with synced = 0.
func (s *SQLite) PutProduct(ctx context.Context, product model.Product) error {
	if err := validateProduct(product); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO offline_products (id, shop_id, name, category, quantity, purchase_price, selling_price, is_regulated, barcode, synced)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, 0)
		ON CONFLICT(id) DO UPDATE SET
			shop_id = excluded.shop_id,
			name = excluded.name,
			category = excluded.category,
			quantity = excluded.quantity,
			purchase_price = excluded.purchase_price,
			selling_price = excluded.selling_price,
			is_regulated = excluded.is_regulated,
			barcode = excluded.barcode,
			synced = 0`

	_, err := s.db.ExecContext(ctx, query,
		product.ID, product.ShopID, product.Name, product.Category, product.Quantity,
		product.PurchasePrice, product.SellingPrice, product.IsRegulated, product.Barcode)
	return storageErr("put product", err)
}

// CacheProducts snapshots remote products as synced rows for offline reads.
// A row holding a pending local edit (synced = 0) is never overwritten.
func (s *SQLite) CacheProducts(ctx context.Context, products []model.Product) error {
	if len(products) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return storageErr("cache products", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO offline_products (id, shop_id, name, category, quantity, purchase_price, selling_price, is_regulated, barcode, synced)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, 1)
		ON CONFLICT(id) DO UPDATE SET
			shop_id = excluded.shop_id,
			name = excluded.name,
			category = excluded.category,
			quantity = excluded.quantity,
			purchase_price = excluded.purchase_price,
			selling_price = excluded.selling_price,
			is_regulated = excluded.is_regulated,
			barcode = excluded.barcode
		WHERE offline_products.synced = 1`)
	if err != nil {
		return storageErr("cache products", err)
	}
	defer stmt.Close()

	for _, p := range products {
		if _, err := stmt.ExecContext(ctx, p.ID, p.ShopID, p.Name, p.Category,
			p.Quantity, p.PurchasePrice, p.SellingPrice, p.IsRegulated, p.Barcode); err != nil {
			return storageErr("cache products", err)
		}
	}
	return storageErr("cache products", tx.Commit())
}

const productColumns = `id, shop_id, name, category, quantity, purchase_price, selling_price, is_regulated, barcode, synced`

func scanProduct(scanner interface{ Scan(...any) error }) (model.Product, error) {
	var p model.Product
	err := scanner.Scan(&p.ID, &p.ShopID, &p.Name, &p.Category, &p.Quantity,
		&p.PurchasePrice, &p.SellingPrice, &p.IsRegulated, &p.Barcode, &p.Synced)
	return p, err
}

// GetProduct returns one product by id, or ErrNotFound.
func (s *SQLite) GetProduct(ctx context.Context, id string) (model.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `SELECT `+productColumns+` FROM offline_products WHERE id = ?`, id)
	p, err := scanProduct(row)
	if err == sql.ErrNoRows {
		return model.Product{}, ErrNotFound
	}
	if err != nil {
		return model.Product{}, storageErr("get product", err)
	}
	return p, nil
}

func (s *SQLite) queryProducts(ctx context.Context, op, query string, args ...any) ([]model.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storageErr(op, err)
	}
	defer rows.Close()

	var products []model.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, storageErr(op, err)
		}
		products = append(products, p)
	}
	return products, storageErr(op, rows.Err())
}

// ProductsByShop returns a snapshot of all locally stored products
// (pending edits and cached remote rows) for a shop.
func (s *SQLite) ProductsByShop(ctx context.Context, shopID string) ([]model.Product, error) {
	return s.queryProducts(ctx, "products by shop",
		`SELECT `+productColumns+` FROM offline_products WHERE shop_id = ?`, shopID)
}

// UnsyncedProducts returns all pending product edits across shops.
func (s *SQLite) UnsyncedProducts(ctx context.Context) ([]model.Product, error) {
	return s.queryProducts(ctx, "unsynced products",
		`SELECT `+productColumns+` FROM offline_products WHERE synced = 0`)
}

// MarkProductSynced flips the sync flag; no-op if absent or already synced.
func (s *SQLite) MarkProductSynced(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `UPDATE offline_products SET synced = 1 WHERE id = ?`, id)
	return storageErr("mark product synced", err)
}

// DeleteProduct removes a product unconditionally.
func (s *SQLite) DeleteProduct(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `DELETE FROM offline_products WHERE id = ?`, id)
	return storageErr("delete product", err)
}

// DeleteUnsyncedProducts discards every pending product edit.
func (s *SQLite) DeleteUnsyncedProducts(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `DELETE FROM offline_products WHERE synced = 0`)
	if err != nil {
		return 0, storageErr("delete unsynced products", err)
	}
	deleted, _ := res.RowsAffected()
	return deleted, nil
}

// PutCustomer upserts a pending customer by id, always with synced = 0.
// Local edits re-flag an already-synced customer as pending.
func (s *SQLite) PutCustomer(ctx context.Context, customer model.Customer) error {
	if err := validateCustomer(customer); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO offline_customers (id, shop_id, name, phone, email, address, preferences, synced)
		VALUES (?, ?, ?, ?, ?, ?, ?, 0)
		ON CONFLICT(id) DO UPDATE SET
			shop_id = excluded.shop_id,
			name = excluded.name,
			phone = excluded.phone,
			email = excluded.email,
			address = excluded.address,
			preferences = excluded.preferences,
			synced = 0`

	_, err := s.db.ExecContext(ctx, query,
		customer.ID, customer.ShopID, customer.Name, customer.Phone,
		customer.Email, customer.Address, customer.Preferences)
	return storageErr("put customer", err)
}

const customerColumns = `id, shop_id, name, phone, email, address, preferences, synced`

func scanCustomer(scanner interface{ Scan(...any) error }) (model.Customer, error) {
	var c model.Customer
	err := scanner.Scan(&c.ID, &c.ShopID, &c.Name, &c.Phone, &c.Email,
		&c.Address, &c.Preferences, &c.Synced)
	return c, err
}

// GetCustomer returns one customer by id, or ErrNotFound.
func (s *SQLite) GetCustomer(ctx context.Context, id string) (model.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `SELECT `+customerColumns+` FROM offline_customers WHERE id = ?`, id)
	c, err := scanCustomer(row)
	if err == sql.ErrNoRows {
		return model.Customer{}, ErrNotFound
	}
	if err != nil {
		return model.Customer{}, storageErr("get customer", err)
	}
	return c, nil
}

func (s *SQLite) queryCustomers(ctx context.Context, op, query string, args ...any) ([]model.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storageErr(op, err)
	}
	defer rows.Close()

	var customers []model.Customer
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, storageErr(op, err)
		}
		customers = append(customers, c)
	}
	return customers, storageErr(op, rows.Err())
}

// CustomersByShop returns a snapshot of all locally stored customers for a shop.
func (s *SQLite) CustomersByShop(ctx context.Context, shopID string) ([]model.Customer, error) {
	return s.queryCustomers(ctx, "customers by shop",
		`SELECT `+customerColumns+` FROM offline_customers WHERE shop_id = ?`, shopID)
}

// UnsyncedCustomers returns all pending customers across shops.
func (s *SQLite) UnsyncedCustomers(ctx context.Context) ([]model.Customer, error) {
	return s.queryCustomers(ctx, "unsynced customers",
		`SELECT `+customerColumns+` FROM offline_customers WHERE synced = 0`)
}

// MarkCustomerSynced flips the sync flag; no-op if absent or already synced.
func (s *SQLite) MarkCustomerSynced(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `UPDATE offline_customers SET synced = 1 WHERE id = ?`, id)
	return storageErr("mark customer synced", err)
}

// DeleteCustomer removes a customer unconditionally.
func (s *SQLite) DeleteCustomer(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `DELETE FROM offline_customers WHERE id = ?`, id)
	return storageErr("delete customer", err)
}

// DeleteUnsyncedCustomers discards every pending customer.
func (s *SQLite) DeleteUnsyncedCustomers(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `DELETE FROM offline_customers WHERE synced = 0`)
	if err != nil {
		return 0, storageErr("delete unsynced customers", err)
	}
	deleted, _ := res.RowsAffected()
	return deleted, nil
}

// CountUnsynced returns the number of pending records across all collections.
func (s *SQLite) CountUnsynced(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var total int
	err := s.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM offline_sales WHERE synced = 0) +
			(SELECT COUNT(*) FROM offline_products WHERE synced = 0) +
			(SELECT COUNT(*) FROM offline_customers WHERE synced = 0)`).Scan(&total)
	if err != nil {
		return 0, storageErr("count unsynced", err)
	}
	return total, nil
}

// Close closes the database connection.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// Ensure SQLite implements OfflineStore
var _ OfflineStore = (*SQLite)(nil)
