package model

// Product represents an inventory item scoped to a shop.
type Product struct {
	ID            string  `json:"id"`
	ShopID        string  `json:"shop_id"`
	Name          string  `json:"name"`
	Category      string  `json:"category,omitempty"`
	Quantity      int     `json:"quantity"`
	PurchasePrice float64 `json:"purchase_price"`
	SellingPrice  float64 `json:"selling_price"`
	IsRegulated   bool    `json:"is_regulated"`
	Barcode       string  `json:"barcode,omitempty"`
	Synced        bool    `json:"synced"`
}
