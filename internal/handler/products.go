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

// ProductsHandler handles product-related HTTP requests.
type ProductsHandler struct {
	offline *service.Offline
}

// NewProductsHandler creates a new products handler.
func NewProductsHandler(offline *service.Offline) *ProductsHandler {
	return &ProductsHandler{
		offline: offline,
	}
}

// SaveProduct handles POST /api/v1/shops/{shop_id}/products
func (h *ProductsHandler) SaveProduct(w http.ResponseWriter, r *http.Request) {
	shopID := chi.URLParam(r, "shop_id")
	if shopID == "" {
		response.Error(w, apierror.BadRequest("shop_id is required"))
		return
	}

	var product model.Product
	if err := json.NewDecoder(r.Body).Decode(&product); err != nil {
		response.Error(w, apierror.BadRequest("invalid JSON"))
		return
	}
	defer r.Body.Close()

	product.ShopID = shopID

	saved, err := h.offline.SaveProduct(r.Context(), product)
	if err != nil {
		writeError(w, err)
		return
	}

	response.Created(w, saved)
}

// ListProducts handles GET /api/v1/shops/{shop_id}/products
func (h *ProductsHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	shopID := chi.URLParam(r, "shop_id")
	if shopID == "" {
		response.Error(w, apierror.BadRequest("shop_id is required"))
		return
	}

	products, err := h.offline.ProductsView(r.Context(), shopID)
	if err != nil {
		writeError(w, err)
		return
	}

	response.OK(w, map[string]interface{}{
		"shop_id":  shopID,
		"products": products,
		"count":    len(products),
	})
}

// GetStock handles GET /api/v1/products/{product_id}/stock
//
// While offline the reported quantity is the last cached value minus
// any pending local sales of the product, so the till never oversells
// stock it already committed.
func (h *ProductsHandler) GetStock(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "product_id")
	if productID == "" {
		response.Error(w, apierror.BadRequest("product_id is required"))
		return
	}

	quantity, err := h.offline.ProductStock(r.Context(), productID)
	if err != nil {
		writeError(w, err)
		return
	}

	response.OK(w, map[string]interface{}{
		"product_id": productID,
		"quantity":   quantity,
		"online":     h.offline.Online(),
	})
}
