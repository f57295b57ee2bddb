package handler

import (
	"errors"
	"net/http"

	"agrovet-pos/internal/connectivity"
	"agrovet-pos/internal/remote"
	"agrovet-pos/internal/store"
	"agrovet-pos/internal/syncer"
	"agrovet-pos/pkg/apierror"
	"agrovet-pos/pkg/response"
)

// writeError maps domain errors onto the API error envelope.
func writeError(w http.ResponseWriter, err error) {
	var validationErr *store.ValidationError
	var storageErr *store.StorageError

	switch {
	case errors.As(err, &validationErr):
		response.Error(w, apierror.ValidationError(validationErr.Error()))
	case errors.As(err, &storageErr):
		// The write was not captured; the caller must be told loudly.
		response.Error(w, apierror.ServiceUnavailable("offline storage failed, the action was not saved"))
	case errors.Is(err, store.ErrNotFound), errors.Is(err, remote.ErrNotFound):
		response.Error(w, apierror.NotFound(""))
	case errors.Is(err, syncer.ErrSyncInProgress):
		response.Error(w, apierror.Conflict("a sync pass is already running"))
	case errors.Is(err, syncer.ErrOffline):
		response.Error(w, apierror.ServiceUnavailable("cannot sync while offline"))
	case errors.Is(err, connectivity.ErrOverrideDisabled):
		response.Error(w, apierror.Forbidden(err.Error()))
	default:
		response.Error(w, err)
	}
}
