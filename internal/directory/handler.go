package directory

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/wolfman30/telehealth-scheduling/internal/apperr"
	"github.com/wolfman30/telehealth-scheduling/internal/identity"
	"github.com/wolfman30/telehealth-scheduling/internal/scheduling"
	"github.com/wolfman30/telehealth-scheduling/pkg/logging"
)

// Handler serves availability management endpoints.
type Handler struct {
	service *AvailabilityService
	logger  *logging.Logger
}

func NewHandler(service *AvailabilityService, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{service: service, logger: logger}
}

// SetAvailabilityRequest is the body of PUT /doctors/me/availability.
type SetAvailabilityRequest struct {
	DayOfWeek *int   `json:"day_of_week"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

// AvailabilityResponse lists a doctor's weekly windows.
type AvailabilityResponse struct {
	DoctorID     string                          `json:"doctor_id"`
	Availability []scheduling.WeeklyAvailability `json:"availability"`
}

// ListAvailability handles GET /doctors/{doctorID}/availability
func (h *Handler) ListAvailability(w http.ResponseWriter, r *http.Request) {
	doctorID, err := uuid.Parse(chi.URLParam(r, "doctorID"))
	if err != nil {
		apperr.WriteJSON(w, apperr.ErrValidation.WithMessage("invalid doctor id"))
		return
	}
	h.list(w, r, doctorID)
}

// ListOwnAvailability handles GET /doctors/me/availability
func (h *Handler) ListOwnAvailability(w http.ResponseWriter, r *http.Request) {
	caller, ok := identity.CallerFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	h.list(w, r, caller.UserID)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request, doctorID uuid.UUID) {
	records, err := h.service.List(r.Context(), doctorID)
	if err != nil {
		h.fail(w, err, doctorID)
		return
	}
	writeJSON(w, http.StatusOK, AvailabilityResponse{DoctorID: doctorID.String(), Availability: records})
}

// SetAvailability handles PUT /doctors/me/availability
func (h *Handler) SetAvailability(w http.ResponseWriter, r *http.Request) {
	caller, ok := identity.CallerFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	var req SetAvailabilityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apperr.WriteJSON(w, apperr.ErrValidation.WithMessage("invalid JSON body"))
		return
	}
	if req.DayOfWeek == nil {
		apperr.WriteJSON(w, apperr.ErrValidation.WithMessage("day_of_week is required"))
		return
	}
	saved, err := h.service.Set(r.Context(), caller.UserID, time.Weekday(*req.DayOfWeek), req.StartTime, req.EndTime)
	if err != nil {
		h.fail(w, err, caller.UserID)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

// DeleteAvailability handles DELETE /doctors/me/availability/{availabilityID}
func (h *Handler) DeleteAvailability(w http.ResponseWriter, r *http.Request) {
	caller, ok := identity.CallerFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	availabilityID, err := uuid.Parse(chi.URLParam(r, "availabilityID"))
	if err != nil {
		apperr.WriteJSON(w, apperr.ErrValidation.WithMessage("invalid availability id"))
		return
	}
	if err := h.service.Delete(r.Context(), caller.UserID, availabilityID); err != nil {
		h.fail(w, err, caller.UserID)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) fail(w http.ResponseWriter, err error, doctorID uuid.UUID) {
	if apperr.KindOf(err) == apperr.KindInternal {
		h.logger.Error("availability request failed", "error", err, "doctor_id", doctorID)
	}
	apperr.WriteJSON(w, err)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
