package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/camden-git/requestsysbackend/permissions"
)

type PermissionHandler struct{}

// ListPermissionDefinitions serves the statically defined permission groups.
func (h *PermissionHandler) ListPermissionDefinitions(w http.ResponseWriter, r *http.Request) {
	definitions := permissions.DefinedPermissionGroups

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(definitions); err != nil {
		http.Error(w, "Failed to encode permission definitions", http.StatusInternalServerError)
	}
}
