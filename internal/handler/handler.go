// Package handler contains chi HTTP handlers that translate HTTP
// requests/responses to and from the service layer.
package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/Shivanand-hulikatti/eventportal/internal/model"
	"github.com/Shivanand-hulikatti/eventportal/internal/service"
)

// EventHandler serves the event listing, detail and registration endpoints.
type EventHandler struct {
	events *service.EventService
	regs   *service.RegistrationService
	logger *zap.Logger
}

// NewEventHandler constructs an EventHandler.
func NewEventHandler(events *service.EventService, regs *service.RegistrationService, logger *zap.Logger) *EventHandler {
	return &EventHandler{events: events, regs: regs, logger: logger}
}

// ─── Helper utilities ─────────────────────────────────────────────────────────

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, model.ErrorResponse{Error: msg})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1 MB limit
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// writeServiceError maps service sentinels onto HTTP statuses. Anything
// unrecognised is logged and reported as a generic 500 with fallback.
func writeServiceError(w http.ResponseWriter, logger *zap.Logger, err error, fallback string) {
	switch {
	case errors.Is(err, model.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, model.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, model.ErrAlreadyRegistered):
		writeJSON(w, http.StatusConflict, model.ErrorResponse{
			Error:             "you are already registered for this event",
			AlreadyRegistered: true,
		})
	case errors.Is(err, model.ErrEventFull):
		writeError(w, http.StatusConflict, "event is fully booked")
	case errors.Is(err, model.ErrEventClosed):
		writeError(w, http.StatusUnprocessableEntity, "event is not open for registration")
	case errors.Is(err, model.ErrUnauthenticated):
		writeError(w, http.StatusUnauthorized, "sign in required")
	case errors.Is(err, model.ErrUnavailable):
		logger.Warn("backend unavailable", zap.Error(err))
		writeError(w, http.StatusServiceUnavailable, "service temporarily unavailable, please retry")
	default:
		logger.Error(fallback, zap.Error(err))
		writeError(w, http.StatusInternalServerError, fallback)
	}
}

// ─── Handlers ─────────────────────────────────────────────────────────────────

// ListEvents handles GET /api/events
// Returns a JSON array of all events ordered by date.
func (h *EventHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	events, err := h.events.ListEvents(r.Context())
	if err != nil {
		writeServiceError(w, h.logger, err, "failed to list events")
		return
	}
	writeJSON(w, http.StatusOK, events)
}

// GetEvent handles GET /api/events/{id}
// Returns the event plus the caller's registration state.
func (h *EventHandler) GetEvent(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	detail, ok, err := h.events.ViewEvent(r.Context(), id, userID(r))
	if err != nil {
		writeServiceError(w, h.logger, err, "failed to get event")
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "event not found")
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

// Register handles POST /api/events/{id}/register
// Books a seat for the signed-in user.
func (h *EventHandler) Register(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	reg, err := h.regs.Register(r.Context(), id, userID(r))
	if err != nil {
		if errors.Is(err, model.ErrProfileNotFound) {
			writeError(w, http.StatusNotFound, "profile not found, sign in again")
			return
		}
		if errors.Is(err, model.ErrNotFound) {
			writeError(w, http.StatusNotFound, "event not found")
			return
		}
		writeServiceError(w, h.logger, err, "failed to register")
		return
	}
	writeJSON(w, http.StatusCreated, reg)
}

// ListRegistrations handles GET /api/events/{id}/registrations
// Returns the roster of an event.
func (h *EventHandler) ListRegistrations(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	regs, err := h.events.Roster(r.Context(), id)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			writeError(w, http.StatusNotFound, "event not found")
			return
		}
		writeServiceError(w, h.logger, err, "failed to list registrations")
		return
	}
	writeJSON(w, http.StatusOK, regs)
}

// ─── Health check ─────────────────────────────────────────────────────────────

// HealthCheck handles GET /health
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
