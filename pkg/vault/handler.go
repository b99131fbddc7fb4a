package vault

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/ritzau/notegraph/pkg/logging"
	"github.com/ritzau/notegraph/pkg/model"
)

// RegisterRoutes serves store over the vault HTTP endpoints
func RegisterRoutes(r *mux.Router, store Store) {
	h := &handler{store: store}
	r.HandleFunc(FilesPath, h.list).Methods(http.MethodGet)
	r.HandleFunc(WritePath, h.write).Methods(http.MethodPost)
	r.HandleFunc(DeletePath, h.delete).Methods(http.MethodPost)
}

type handler struct {
	store Store
}

func (h *handler) list(w http.ResponseWriter, r *http.Request) {
	entries, err := h.store.List(r.Context())
	if err != nil {
		logging.ErrorContext(r.Context(), "failed to list vault", "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if entries == nil {
		// Empty vaults encode as [] rather than null
		entries = []model.FileEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

func (h *handler) write(w http.ResponseWriter, r *http.Request) {
	var req writeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, mutationResponse{Error: "invalid request body"})
		return
	}
	if err := h.store.Write(r.Context(), req.FilePath, req.Content); err != nil {
		h.fail(w, r, "write", req.FilePath, err)
		return
	}
	writeJSON(w, http.StatusOK, mutationResponse{Success: true})
}

func (h *handler) delete(w http.ResponseWriter, r *http.Request) {
	var req deleteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, mutationResponse{Error: "invalid request body"})
		return
	}
	if err := h.store.Delete(r.Context(), req.FilePath); err != nil {
		h.fail(w, r, "delete", req.FilePath, err)
		return
	}
	writeJSON(w, http.StatusOK, mutationResponse{Success: true})
}

func (h *handler) fail(w http.ResponseWriter, r *http.Request, op, path string, err error) {
	status := http.StatusInternalServerError
	if errors.Is(err, ErrOutsideRoot) || errors.Is(err, ErrNotNote) {
		status = http.StatusBadRequest
	}
	logging.WarnContext(r.Context(), "vault request failed", "op", op, "path", path, "error", err)
	writeJSON(w, status, mutationResponse{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Error("failed to encode response", "error", err)
	}
}
