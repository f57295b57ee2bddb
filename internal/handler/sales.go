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

// SalesHandler handles sale-related HTTP requests.
type SalesHandler struct {
	offline *service.Offline
}

// NewSalesHandler creates a new sales handler.
func NewSalesHandler(offline *service.Offline) *SalesHandler {
	return &SalesHandler{
		offline: offline,
	}
}

// RecordSale handles POST /api/v1/shops/{shop_id}/sales
func (h *SalesHandler) RecordSale(w http.ResponseWriter, r *http.Request) {
	shopID := chi.URLParam(r, "shop_id")
	if shopID == "" {
		response.Error(w, apierror.BadRequest("shop_id is required"))
		return
	}

	var sale model.Sale
	if err := json.NewDecoder(r.Body).Decode(&sale); err != nil {
		response.Error(w, apierror.BadRequest("invalid JSON"))
		return
	}
	defer r.Body.Close()

	sale.ShopID = shopID

	saved, err := h.offline.RecordSale(r.Context(), sale)
	if err != nil {
		writeError(w, err)
		return
	}

	response.Created(w, saved)
}

// ListSales handles GET /api/v1/shops/{shop_id}/sales
func (h *SalesHandler) ListSales(w http.ResponseWriter, r *http.Request) {
	shopID := chi.URLParam(r, "shop_id")
	if shopID == "" {
		response.Error(w, apierror.BadRequest("shop_id is required"))
		return
	}

	sales, err := h.offline.SalesView(r.Context(), shopID)
	if err != nil {
		writeError(w, err)
		return
	}

	response.OK(w, map[string]interface{}{
		"shop_id": shopID,
		"sales":   sales,
		"count":   len(sales),
	})
}

// ListPendingSales handles GET /api/v1/shops/{shop_id}/sales/pending
func (h *SalesHandler) ListPendingSales(w http.ResponseWriter, r *http.Request) {
	shopID := chi.URLParam(r, "shop_id")
	if shopID == "" {
		response.Error(w, apierror.BadRequest("shop_id is required"))
		return
	}

	sales, err := h.offline.PendingSales(r.Context(), shopID)
	if err != nil {
		writeError(w, err)
		return
	}

	response.OK(w, map[string]interface{}{
		"shop_id": shopID,
		"sales":   sales,
		"count":   len(sales),
	})
}
