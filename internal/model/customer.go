package model

// Customer represents a shop customer.
type Customer struct {
	ID          string `json:"id"`
	ShopID      string `json:"shop_id"`
	Name        string `json:"name"`
	Phone       string `json:"phone,omitempty"`
	Email       string `json:"email,omitempty"`
	Address     string `json:"address,omitempty"`
	Preferences string `json:"preferences,omitempty"`
	Synced      bool   `json:"synced"`
}

// Kind identifies an offline-capable entity collection.
type Kind string

const (
	KindSale     Kind = "sales"
	KindProduct  Kind = "products"
	KindCustomer Kind = "customers"
)

// ValidKind reports whether k names a known entity collection.
func ValidKind(k Kind) bool {
	switch k {
	case KindSale, KindProduct, KindCustomer:
		return true
	}
	return false
}
