// Package httphandler is the HTTP driving adapter serving the admin API.
package httphandler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/ericfisherdev/keysync/internal/application"
	"github.com/ericfisherdev/keysync/internal/domain/model"
	"github.com/ericfisherdev/keysync/internal/domain/port/driven"
)

// ResyncObserver records the outcome of resync passes.
type ResyncObserver interface {
	ObserveResync(report model.ResyncReport, elapsed time.Duration, err error)
}

// Handler is the HTTP driving adapter that serves the admin API.
type Handler struct {
	keyStore driven.KeyStore
	keySvc   *application.KeyService
	credSvc  *application.CredentialService
	observer ResyncObserver
	logger   *slog.Logger

	// resyncMu serializes operator-triggered resyncs; KeyService does no locking.
	resyncMu sync.Mutex
}

// NewHandler creates a Handler with all required dependencies.
func NewHandler(
	keyStore driven.KeyStore,
	keySvc *application.KeyService,
	credSvc *application.CredentialService,
	observer ResyncObserver,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		keyStore: keyStore,
		keySvc:   keySvc,
		credSvc:  credSvc,
		observer: observer,
		logger:   logger,
	}
}

// NewServeMux creates an http.Handler with all routes registered and wrapped
// with logging and recovery middleware. metrics may be nil.
func NewServeMux(h *Handler, metrics http.Handler, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/v1/health", h.Health)
	mux.HandleFunc("GET /api/v1/keys", h.ListKeys)
	mux.HandleFunc("GET /api/v1/credentials", h.ListCredentials)
	mux.HandleFunc("POST /api/v1/credentials", h.StoreCredential)
	mux.HandleFunc("GET /api/v1/credentials/{id}", h.RevealCredential)
	mux.HandleFunc("POST /api/v1/resync", h.Resync)
	if metrics != nil {
		mux.Handle("GET /metrics", metrics)
	}

	// Recovery innermost so panics are caught before logging.
	wrapped := recoveryMiddleware(logger, mux)
	wrapped = loggingMiddleware(logger, wrapped)

	return wrapped
}

// ListKeys returns the metadata of every encryption key in store order.
func (h *Handler) ListKeys(w http.ResponseWriter, r *http.Request) {
	keys, err := h.keyStore.List(r.Context())
	if err != nil {
		h.logger.Error("failed to list keys", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	resp := make([]KeyResponse, 0, len(keys))
	for _, k := range keys {
		resp = append(resp, toKeyResponse(k))
	}

	writeJSON(w, http.StatusOK, resp)
}

// ListCredentials returns the status of every credential.
func (h *Handler) ListCredentials(w http.ResponseWriter, r *http.Request) {
	creds, err := h.credSvc.List(r.Context())
	if err != nil {
		h.logger.Error("failed to list credentials", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	resp := make([]CredentialResponse, 0, len(creds))
	for _, c := range creds {
		resp = append(resp, toCredentialResponse(c))
	}

	writeJSON(w, http.StatusOK, resp)
}

// StoreCredential encrypts and stores a new credential.
func (h *Handler) StoreCredential(w http.ResponseWriter, r *http.Request) {
	var req StoreCredentialRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Data == nil {
		writeError(w, http.StatusBadRequest, "data must be a JSON object")
		return
	}

	cred, err := h.credSvc.Store(r.Context(), req.Name, model.CredentialData(req.Data))
	switch {
	case err == nil:
		writeJSON(w, http.StatusCreated, toCredentialResponse(cred))
	case errors.Is(err, application.ErrCredentialNameRequired):
		writeError(w, http.StatusBadRequest, "name is required")
	case errors.Is(err, application.ErrNoKeyAvailable):
		writeError(w, http.StatusServiceUnavailable, "no encryption key available")
	default:
		h.logger.Error("failed to store credential", "name", req.Name, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

// RevealCredential returns the decrypted payload of a credential. A lost or
// ambiguous key is reported as a conflict the operator can fix with a resync.
func (h *Handler) RevealCredential(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid credential id")
		return
	}

	data, err := h.credSvc.Reveal(r.Context(), id)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, RevealResponse{ID: id, Data: data})
	case errors.Is(err, driven.ErrCredentialNotFound):
		writeError(w, http.StatusNotFound, "credential not found")
	case errors.Is(err, application.ErrEncryptionKeyLost),
		errors.Is(err, application.ErrMultipleEncryptions),
		errors.Is(err, application.ErrDecryption):
		h.logger.Warn("credential not decryptable", "credential_id", id, "error", err)
		writeError(w, http.StatusConflict, err.Error())
	default:
		h.logger.Error("failed to reveal credential", "credential_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

// Resync runs a resync pass and returns its report. Only one resync runs at a
// time; a concurrent request gets 409. The pass is not cancelled when the
// client disconnects.
func (h *Handler) Resync(w http.ResponseWriter, r *http.Request) {
	if !h.resyncMu.TryLock() {
		writeError(w, http.StatusConflict, "resync already in progress")
		return
	}
	defer h.resyncMu.Unlock()

	start := time.Now()
	report, err := h.keySvc.Resync(context.WithoutCancel(r.Context()))
	elapsed := time.Since(start)
	if h.observer != nil {
		h.observer.ObserveResync(report, elapsed, err)
	}
	if err != nil {
		h.logger.Error("resync failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, toResyncResponse(report, elapsed))
}

// Health returns a simple health check response.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status: "ok",
		Time:   time.Now().UTC().Format(time.RFC3339),
	})
}
