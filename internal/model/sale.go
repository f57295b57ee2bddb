package model

import "time"

// DefaultPaymentMethod is applied when a sale is recorded without one.
const DefaultPaymentMethod = "cash"

// Sale represents a single point-of-sale transaction.
// ID is assigned by the client at capture time and doubles as the
// idempotency key for remote submission.
type Sale struct {
	ID            string    `json:"id"`
	ShopID        string    `json:"shop_id"`
	ProductID     string    `json:"product_id"`
	CustomerID    *string   `json:"customer_id"`
	Quantity      int       `json:"quantity"`
	TotalPrice    float64   `json:"total_price"`
	PaymentMethod string    `json:"payment_method"`
	SaleDate      time.Time `json:"sale_date"`
	Synced        bool      `json:"synced"`
}

// ApplyDefaults fills the payment method and sale date if they were left
// empty by the caller.
func (s *Sale) ApplyDefaults() {
	if s.PaymentMethod == "" {
		s.PaymentMethod = DefaultPaymentMethod
	}
	if s.SaleDate.IsZero() {
		s.SaleDate = time.Now().UTC()
	}
}
