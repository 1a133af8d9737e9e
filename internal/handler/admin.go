package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/Shivanand-hulikatti/eventportal/internal/service"
)

// AdminHandler exposes operator actions behind the admin token.
type AdminHandler struct {
	catalog *service.CatalogSync
	regs    *service.RegistrationService
	logger  *zap.Logger
}

// NewAdminHandler constructs an AdminHandler.
func NewAdminHandler(catalog *service.CatalogSync, regs *service.RegistrationService, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{catalog: catalog, regs: regs, logger: logger}
}

// Sync handles POST /api/admin/sync
// Pulls the catalog from the CMS immediately.
func (h *AdminHandler) Sync(w http.ResponseWriter, r *http.Request) {
	res, err := h.catalog.Sync(r.Context())
	if err != nil {
		writeServiceError(w, h.logger, err, "catalog sync failed")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Complete handles POST /api/admin/events/{id}/complete
// Closes the event and credits its XP to every attendee.
func (h *AdminHandler) Complete(w http.ResponseWriter, r *http.Request) {
	res, err := h.regs.Complete(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, h.logger, err, "failed to complete event")
		return
	}
	writeJSON(w, http.StatusOK, res)
}
