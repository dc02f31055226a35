package scheduling

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/wolfman30/telehealth-scheduling/internal/apperr"
	"github.com/wolfman30/telehealth-scheduling/pkg/logging"
)

// Handler serves slot queries.
type Handler struct {
	service *SlotService
	logger  *logging.Logger
}

func NewHandler(service *SlotService, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{service: service, logger: logger}
}

// SlotsResponse is the body of GET /doctors/{doctorID}/slots.
type SlotsResponse struct {
	DoctorID string     `json:"doctor_id"`
	Days     []DaySlots `json:"days"`
}

// GetAvailableSlots handles GET /doctors/{doctorID}/slots
func (h *Handler) GetAvailableSlots(w http.ResponseWriter, r *http.Request) {
	doctorID, err := uuid.Parse(chi.URLParam(r, "doctorID"))
	if err != nil {
		apperr.WriteJSON(w, apperr.ErrValidation.WithMessage("invalid doctor id"))
		return
	}

	days, err := h.service.GetAvailableSlots(r.Context(), doctorID)
	if err != nil {
		if apperr.KindOf(err) == apperr.KindInternal {
			h.logger.Error("failed to compute available slots", "error", err, "doctor_id", doctorID)
		}
		apperr.WriteJSON(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(SlotsResponse{DoctorID: doctorID.String(), Days: days})
}
