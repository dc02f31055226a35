package appointments

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/wolfman30/telehealth-scheduling/internal/apperr"
	"github.com/wolfman30/telehealth-scheduling/internal/identity"
	"github.com/wolfman30/telehealth-scheduling/pkg/logging"
)

// Handler exposes booking and appointment lifecycle endpoints.
type Handler struct {
	booker *Booker
	logger *logging.Logger
}

func NewHandler(booker *Booker, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{booker: booker, logger: logger}
}

// BookRequestBody is the body of POST /appointments.
type BookRequestBody struct {
	DoctorID    string    `json:"doctor_id"`
	StartTime   time.Time `json:"start_time"`
	EndTime     time.Time `json:"end_time"`
	Description string    `json:"description"`
}

type cancelBody struct {
	Reason string `json:"reason"`
}

// Book handles POST /appointments. The caller is the patient.
func (h *Handler) Book(w http.ResponseWriter, r *http.Request) {
	caller, ok := identity.CallerFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	var body BookRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		apperr.WriteJSON(w, apperr.ErrValidation.WithMessage("invalid JSON body"))
		return
	}
	doctorID, err := uuid.Parse(body.DoctorID)
	if err != nil {
		apperr.WriteJSON(w, apperr.ErrValidation.WithMessage("invalid doctor id"))
		return
	}

	appt, err := h.booker.BookAppointment(r.Context(), BookRequest{
		DoctorID:    doctorID,
		PatientID:   caller.UserID,
		StartTime:   body.StartTime,
		EndTime:     body.EndTime,
		Description: body.Description,
	})
	if err != nil {
		h.fail(w, err, "booking failed")
		return
	}
	writeJSON(w, http.StatusCreated, appt)
}

// JoinToken handles POST /appointments/{appointmentID}/token
func (h *Handler) JoinToken(w http.ResponseWriter, r *http.Request) {
	caller, appointmentID, ok := h.target(w, r)
	if !ok {
		return
	}
	token, err := h.booker.GenerateJoinToken(r.Context(), appointmentID, caller.UserID)
	if err != nil {
		h.fail(w, err, "join token failed")
		return
	}
	writeJSON(w, http.StatusOK, token)
}

// Cancel handles POST /appointments/{appointmentID}/cancel
func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	caller, appointmentID, ok := h.target(w, r)
	if !ok {
		return
	}
	var body cancelBody
	if err := decodeOptional(r, &body); err != nil {
		apperr.WriteJSON(w, apperr.ErrValidation.WithMessage("invalid JSON body"))
		return
	}
	appt, err := h.booker.Cancel(r.Context(), appointmentID, caller.UserID, body.Reason)
	if err != nil {
		h.fail(w, err, "cancel failed")
		return
	}
	writeJSON(w, http.StatusOK, appt)
}

// Complete handles POST /appointments/{appointmentID}/complete
func (h *Handler) Complete(w http.ResponseWriter, r *http.Request) {
	caller, appointmentID, ok := h.target(w, r)
	if !ok {
		return
	}
	var notes CompletionNotes
	if err := decodeOptional(r, &notes); err != nil {
		apperr.WriteJSON(w, apperr.ErrValidation.WithMessage("invalid JSON body"))
		return
	}
	appt, err := h.booker.Complete(r.Context(), appointmentID, caller.UserID, notes)
	if err != nil {
		h.fail(w, err, "complete failed")
		return
	}
	writeJSON(w, http.StatusOK, appt)
}

// ListMine handles GET /doctors/me/appointments?status=&page=&limit=
func (h *Handler) ListMine(w http.ResponseWriter, r *http.Request) {
	caller, ok := identity.CallerFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	q := r.URL.Query()
	var status Status
	if raw := q.Get("status"); raw != "" {
		parsed, err := ParseStatus(raw)
		if err != nil {
			apperr.WriteJSON(w, err)
			return
		}
		status = parsed
	}
	page, err := intParam(q.Get("page"))
	if err != nil {
		apperr.WriteJSON(w, apperr.ErrValidation.WithMessage("page must be a number"))
		return
	}
	limit, err := intParam(q.Get("limit"))
	if err != nil {
		apperr.WriteJSON(w, apperr.ErrValidation.WithMessage("limit must be a number"))
		return
	}

	result, err := h.booker.ListForDoctor(r.Context(), caller.UserID, status, page, limit)
	if err != nil {
		h.fail(w, err, "list appointments failed")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) target(w http.ResponseWriter, r *http.Request) (identity.Caller, uuid.UUID, bool) {
	caller, ok := identity.CallerFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return identity.Caller{}, uuid.Nil, false
	}
	appointmentID, err := uuid.Parse(chi.URLParam(r, "appointmentID"))
	if err != nil {
		apperr.WriteJSON(w, apperr.ErrValidation.WithMessage("invalid appointment id"))
		return identity.Caller{}, uuid.Nil, false
	}
	return caller, appointmentID, true
}

func (h *Handler) fail(w http.ResponseWriter, err error, msg string) {
	if apperr.KindOf(err) == apperr.KindInternal {
		h.logger.Error(msg, "error", err)
	}
	apperr.WriteJSON(w, err)
}

func decodeOptional(r *http.Request, out any) error {
	err := json.NewDecoder(r.Body).Decode(out)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

func intParam(raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	return strconv.Atoi(raw)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
