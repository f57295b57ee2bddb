package remote

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"agrovet-pos/internal/model"

	"github.com/go-sql-driver/mysql"
)

// mysqlDuplicateEntry is the MySQL error number for a duplicate key.
const mysqlDuplicateEntry = 1062

// MySQL implements Store against a hosted MySQL service.
type MySQL struct {
	db *sql.DB
}

// NewMySQL connects to the remote MySQL service.
// dsn format: "user:password@tcp(host:port)/dbname?parseTime=true"
func NewMySQL(dsn string) (*MySQL, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open MySQL: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping MySQL: %w", err)
	}

	if err := createMySQLSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	log.Printf("[Remote] MySQL backend initialized")
	return &MySQL{db: db}, nil
}

func createMySQLSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS products (
			id VARCHAR(36) PRIMARY KEY,
			shop_id VARCHAR(36) NOT NULL,
			name VARCHAR(255) NOT NULL,
			category VARCHAR(255) NOT NULL DEFAULT '',
			quantity INT NOT NULL DEFAULT 0,
			purchase_price DOUBLE NOT NULL DEFAULT 0,
			selling_price DOUBLE NOT NULL DEFAULT 0,
			is_regulated BOOLEAN NOT NULL DEFAULT FALSE,
			barcode VARCHAR(64) NOT NULL DEFAULT '',
			INDEX idx_products_shop (shop_id)
		)`,
		`CREATE TABLE IF NOT EXISTS customers (
			id VARCHAR(36) PRIMARY KEY,
			shop_id VARCHAR(36) NOT NULL,
			name VARCHAR(255) NOT NULL,
			phone VARCHAR(32) NOT NULL DEFAULT '',
			email VARCHAR(255) NOT NULL DEFAULT '',
			address TEXT,
			preferences TEXT,
			INDEX idx_customers_shop (shop_id)
		)`,
		`CREATE TABLE IF NOT EXISTS sales (
			id VARCHAR(36) PRIMARY KEY,
			shop_id VARCHAR(36) NOT NULL,
			product_id VARCHAR(36) NOT NULL,
			customer_id VARCHAR(36),
			quantity INT NOT NULL,
			total_price DOUBLE NOT NULL,
			payment_method VARCHAR(32) NOT NULL,
			sale_date TIMESTAMP NOT NULL,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			INDEX idx_sales_shop (shop_id)
		)`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// isMySQLConflict reports whether err is a duplicate-entry error (1062).
func isMySQLConflict(err error) bool {
	var myErr *mysql.MySQLError
	return errors.As(err, &myErr) && myErr.Number == mysqlDuplicateEntry
}

// SaleExists checks for a sale by its client-generated id.
func (r *MySQL) SaleExists(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM sales WHERE id = ?)`, id).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check sale: %w", err)
	}
	return exists, nil
}

// InsertSale inserts a sale; a duplicate id surfaces as ErrConflict.
func (r *MySQL) InsertSale(ctx context.Context, sale model.Sale) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO sales (id, shop_id, product_id, customer_id, quantity, total_price, payment_method, sale_date)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		sale.ID, sale.ShopID, sale.ProductID, sale.CustomerID,
		sale.Quantity, sale.TotalPrice, sale.PaymentMethod, sale.SaleDate)
	if isMySQLConflict(err) {
		return ErrConflict
	}
	if err != nil {
		return fmt.Errorf("failed to insert sale: %w", err)
	}
	return nil
}

// SalesByShop lists remote sales for a shop, newest first.
func (r *MySQL) SalesByShop(ctx context.Context, shopID string) ([]model.Sale, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, shop_id, product_id, customer_id, quantity, total_price, payment_method, sale_date
		FROM sales WHERE shop_id = ? ORDER BY sale_date DESC`, shopID)
	if err != nil {
		return nil, fmt.Errorf("failed to list sales: %w", err)
	}
	defer rows.Close()

	var sales []model.Sale
	for rows.Next() {
		var (
			sale       model.Sale
			customerID sql.NullString
		)
		if err := rows.Scan(&sale.ID, &sale.ShopID, &sale.ProductID, &customerID,
			&sale.Quantity, &sale.TotalPrice, &sale.PaymentMethod, &sale.SaleDate); err != nil {
			return nil, fmt.Errorf("failed to scan sale: %w", err)
		}
		if customerID.Valid {
			sale.CustomerID = &customerID.String
		}
		sale.Synced = true
		sales = append(sales, sale)
	}
	return sales, rows.Err()
}

// DecrementQuantity decrements stock inside a transaction and returns the
// new quantity. MySQL has no UPDATE ... RETURNING, so the read happens on
// the same connection before commit.
func (r *MySQL) DecrementQuantity(ctx context.Context, productID string, quantity int) (int, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`UPDATE products SET quantity = quantity - ? WHERE id = ?`, quantity, productID); err != nil {
		return 0, fmt.Errorf("failed to decrement quantity: %w", err)
	}

	var newQuantity int
	if err := tx.QueryRowContext(ctx,
		`SELECT quantity FROM products WHERE id = ?`, productID).Scan(&newQuantity); err != nil {
		if err == sql.ErrNoRows {
			return 0, ErrNotFound
		}
		return 0, fmt.Errorf("failed to read quantity: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit decrement: %w", err)
	}
	return newQuantity, nil
}

// SetProductQuantity writes a quantity back to the product record.
func (r *MySQL) SetProductQuantity(ctx context.Context, productID string, quantity int) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE products SET quantity = ? WHERE id = ?`, quantity, productID)
	if err != nil {
		return fmt.Errorf("failed to update product quantity: %w", err)
	}
	return nil
}

// UpsertProduct inserts or updates a product by id.
func (r *MySQL) UpsertProduct(ctx context.Context, product model.Product) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO products (id, shop_id, name, category, quantity, purchase_price, selling_price, is_regulated, barcode)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
			shop_id = VALUES(shop_id),
			name = VALUES(name),
			category = VALUES(category),
			quantity = VALUES(quantity),
			purchase_price = VALUES(purchase_price),
			selling_price = VALUES(selling_price),
			is_regulated = VALUES(is_regulated),
			barcode = VALUES(barcode)`,
		product.ID, product.ShopID, product.Name, product.Category, product.Quantity,
		product.PurchasePrice, product.SellingPrice, product.IsRegulated, product.Barcode)
	if err != nil {
		return fmt.Errorf("failed to upsert product: %w", err)
	}
	return nil
}

// GetProduct returns one product by id, or ErrNotFound.
func (r *MySQL) GetProduct(ctx context.Context, id string) (model.Product, error) {
	var p model.Product
	err := r.db.QueryRowContext(ctx, `
		SELECT id, shop_id, name, category, quantity, purchase_price, selling_price, is_regulated, barcode
		FROM products WHERE id = ?`, id).Scan(
		&p.ID, &p.ShopID, &p.Name, &p.Category, &p.Quantity,
		&p.PurchasePrice, &p.SellingPrice, &p.IsRegulated, &p.Barcode)
	if err == sql.ErrNoRows {
		return model.Product{}, ErrNotFound
	}
	if err != nil {
		return model.Product{}, fmt.Errorf("failed to get product: %w", err)
	}
	p.Synced = true
	return p, nil
}

// ProductsByShop lists remote products for a shop.
func (r *MySQL) ProductsByShop(ctx context.Context, shopID string) ([]model.Product, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, shop_id, name, category, quantity, purchase_price, selling_price, is_regulated, barcode
		FROM products WHERE shop_id = ? ORDER BY name`, shopID)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	defer rows.Close()

	var products []model.Product
	for rows.Next() {
		var p model.Product
		if err := rows.Scan(&p.ID, &p.ShopID, &p.Name, &p.Category, &p.Quantity,
			&p.PurchasePrice, &p.SellingPrice, &p.IsRegulated, &p.Barcode); err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		p.Synced = true
		products = append(products, p)
	}
	return products, rows.Err()
}

// UpsertCustomer inserts or updates a customer by id.
func (r *MySQL) UpsertCustomer(ctx context.Context, customer model.Customer) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO customers (id, shop_id, name, phone, email, address, preferences)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
			shop_id = VALUES(shop_id),
			name = VALUES(name),
			phone = VALUES(phone),
			email = VALUES(email),
			address = VALUES(address),
			preferences = VALUES(preferences)`,
		customer.ID, customer.ShopID, customer.Name, customer.Phone,
		customer.Email, customer.Address, customer.Preferences)
	if err != nil {
		return fmt.Errorf("failed to upsert customer: %w", err)
	}
	return nil
}

// CustomersByShop lists remote customers for a shop.
func (r *MySQL) CustomersByShop(ctx context.Context, shopID string) ([]model.Customer, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, shop_id, name, phone, email, address, preferences
		FROM customers WHERE shop_id = ? ORDER BY name`, shopID)
	if err != nil {
		return nil, fmt.Errorf("failed to list customers: %w", err)
	}
	defer rows.Close()

	var customers []model.Customer
	for rows.Next() {
		var c model.Customer
		var address, preferences sql.NullString
		if err := rows.Scan(&c.ID, &c.ShopID, &c.Name, &c.Phone, &c.Email,
			&address, &preferences); err != nil {
			return nil, fmt.Errorf("failed to scan customer: %w", err)
		}
		c.Address = address.String
		c.Preferences = preferences.String
		c.Synced = true
		customers = append(customers, c)
	}
	return customers, rows.Err()
}

// DeleteCustomer removes a customer by id.
func (r *MySQL) DeleteCustomer(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM customers WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete customer: %w", err)
	}
	return nil
}

// Ping checks remote reachability.
func (r *MySQL) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Close closes the database connection.
func (r *MySQL) Close() error {
	return r.db.Close()
}

// Ensure MySQL implements Store
var _ Store = (*MySQL)(nil)
