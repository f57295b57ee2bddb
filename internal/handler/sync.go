package handler

import (
	"encoding/json"
	"net/http"

	"agrovet-pos/internal/connectivity"
	"agrovet-pos/internal/model"
	"agrovet-pos/internal/store"
	"agrovet-pos/internal/syncer"
	"agrovet-pos/pkg/apierror"
	"agrovet-pos/pkg/response"

	"github.com/go-chi/chi/v5"
)

// SyncHandler handles synchronization admin requests.
type SyncHandler struct {
	engine  *syncer.Engine
	monitor *connectivity.Monitor
	store   store.OfflineStore
}

// NewSyncHandler creates a new sync admin handler.
func NewSyncHandler(engine *syncer.Engine, monitor *connectivity.Monitor, st store.OfflineStore) *SyncHandler {
	return &SyncHandler{
		engine:  engine,
		monitor: monitor,
		store:   st,
	}
}

// RunSync handles POST /api/v1/admin/sync
//
// Triggers a sync pass immediately instead of waiting for the next
// scheduled tick. A pass already in flight yields 409.
func (h *SyncHandler) RunSync(w http.ResponseWriter, r *http.Request) {
	result, err := h.engine.RunPass(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	response.OK(w, map[string]interface{}{
		"synced":  result.Synced,
		"invalid": result.Invalid,
		"aborted": result.Aborted,
	})
}

// Reconcile handles POST /api/v1/admin/sync/{kind}/{id}
//
// Retries a single pending record by id, for support staff chasing a
// stuck row without waiting for the scheduler.
func (h *SyncHandler) Reconcile(w http.ResponseWriter, r *http.Request) {
	kind := model.Kind(chi.URLParam(r, "kind"))
	if !model.ValidKind(kind) {
		response.Error(w, apierror.BadRequest("kind must be one of sales, products, customers"))
		return
	}
	id := chi.URLParam(r, "id")
	if id == "" {
		response.Error(w, apierror.BadRequest("id is required"))
		return
	}

	if err := h.engine.Reconcile(r.Context(), kind, id); err != nil {
		writeError(w, err)
		return
	}

	response.OK(w, map[string]interface{}{
		"kind":   string(kind),
		"id":     id,
		"status": "synced",
	})
}

// DeleteUnsynced handles DELETE /api/v1/admin/unsynced/{kind}
//
// Discards pending records that will never sync, such as rows left
// behind by a retired shop profile. This is destructive and does not
// touch the remote store.
func (h *SyncHandler) DeleteUnsynced(w http.ResponseWriter, r *http.Request) {
	kind := model.Kind(chi.URLParam(r, "kind"))
	if !model.ValidKind(kind) {
		response.Error(w, apierror.BadRequest("kind must be one of sales, products, customers"))
		return
	}

	var deleted int64
	var err error
	switch kind {
	case model.KindSale:
		deleted, err = h.store.DeleteUnsyncedSales(r.Context())
	case model.KindProduct:
		deleted, err = h.store.DeleteUnsyncedProducts(r.Context())
	case model.KindCustomer:
		deleted, err = h.store.DeleteUnsyncedCustomers(r.Context())
	}
	if err != nil {
		writeError(w, err)
		return
	}

	response.OK(w, map[string]interface{}{
		"kind":    string(kind),
		"deleted": deleted,
	})
}

type overrideRequest struct {
	Online *bool `json:"online"`
}

// ForceConnectivity handles POST /api/v1/admin/connectivity
//
// Pins the connectivity state for testing. Only honored in development;
// production builds reject the override.
func (h *SyncHandler) ForceConnectivity(w http.ResponseWriter, r *http.Request) {
	var req overrideRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, apierror.BadRequest("invalid JSON"))
		return
	}
	defer r.Body.Close()

	if req.Online == nil {
		response.Error(w, apierror.BadRequest("online is required"))
		return
	}

	if err := h.monitor.Force(*req.Online); err != nil {
		writeError(w, err)
		return
	}

	response.OK(w, map[string]interface{}{
		"online": *req.Online,
		"forced": true,
	})
}

// ReleaseConnectivity handles DELETE /api/v1/admin/connectivity
func (h *SyncHandler) ReleaseConnectivity(w http.ResponseWriter, r *http.Request) {
	if err := h.monitor.Release(); err != nil {
		writeError(w, err)
		return
	}

	response.OK(w, map[string]interface{}{
		"forced": false,
	})
}
