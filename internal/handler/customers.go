package handler

import (
	"encoding/json"
	"net/http"

	"agrovet-pos/internal/model"
	"agrovet-pos/internal/service"
	"agrovet-pos/pkg/apierror"
	"agrovet-pos/pkg/response"

	"github.com/go-chi/chi/v5"
)

// CustomersHandler handles customer-related HTTP requests.
type CustomersHandler struct {
	offline *service.Offline
}

// NewCustomersHandler creates a new customers handler.
func NewCustomersHandler(offline *service.Offline) *CustomersHandler {
	return &CustomersHandler{
		offline: offline,
	}
}

// SaveCustomer handles POST /api/v1/shops/{shop_id}/customers
func (h *CustomersHandler) SaveCustomer(w http.ResponseWriter, r *http.Request) {
	shopID := chi.URLParam(r, "shop_id")
	if shopID == "" {
		response.Error(w, apierror.BadRequest("shop_id is required"))
		return
	}

	var customer model.Customer
	if err := json.NewDecoder(r.Body).Decode(&customer); err != nil {
		response.Error(w, apierror.BadRequest("invalid JSON"))
		return
	}
	defer r.Body.Close()

	customer.ShopID = shopID

	saved, err := h.offline.SaveCustomer(r.Context(), customer)
	if err != nil {
		writeError(w, err)
		return
	}

	response.Created(w, saved)
}

// ListCustomers handles GET /api/v1/shops/{shop_id}/customers
func (h *CustomersHandler) ListCustomers(w http.ResponseWriter, r *http.Request) {
	shopID := chi.URLParam(r, "shop_id")
	if shopID == "" {
		response.Error(w, apierror.BadRequest("shop_id is required"))
		return
	}

	customers, err := h.offline.Customers(r.Context(), shopID)
	if err != nil {
		writeError(w, err)
		return
	}

	response.OK(w, map[string]interface{}{
		"shop_id":   shopID,
		"customers": customers,
		"count":     len(customers),
	})
}

// DeleteCustomer handles DELETE /api/v1/customers/{customer_id}
func (h *CustomersHandler) DeleteCustomer(w http.ResponseWriter, r *http.Request) {
	customerID := chi.URLParam(r, "customer_id")
	if customerID == "" {
		response.Error(w, apierror.BadRequest("customer_id is required"))
		return
	}

	if err := h.offline.DeleteCustomer(r.Context(), customerID); err != nil {
		writeError(w, err)
		return
	}

	response.NoContent(w)
}
