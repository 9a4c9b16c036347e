package scheduling

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/Rithvickkr/DOBBE-assignment/internal/auth"
	"github.com/Rithvickkr/DOBBE-assignment/pkg/logging"
)

// Handler exposes the doctor-facing availability endpoints.
type Handler struct {
	store  Store
	logger *logging.Logger
}

// NewHandler creates a scheduling handler.
func NewHandler(store Store, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{store: store, logger: logger}
}

// AddSlotsRequest is the POST /appointments body.
type AddSlotsRequest struct {
	Slots Availability `json:"slots"`
}

// AddSlotsResponse echoes the doctor's availability after the union.
type AddSlotsResponse struct {
	Detail string `json:"detail"`
	AddSlotsResult
}

// AddSlots handles POST /appointments for the calling doctor.
func (h *Handler) AddSlots(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	if !principal.IsDoctor() {
		http.Error(w, "Not authorized", http.StatusForbidden)
		return
	}

	var req AddSlotsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if len(req.Slots) == 0 {
		http.Error(w, "slots are required", http.StatusBadRequest)
		return
	}

	doc, err := h.store.DoctorByOwner(r.Context(), principal.Email)
	if err != nil {
		if errors.Is(err, ErrDoctorNotFound) {
			http.Error(w, "Doctor record not found", http.StatusNotFound)
			return
		}
		h.logger.Error("failed to resolve doctor", "error", err, "email", principal.Email)
		http.Error(w, "failed to add appointment slots", http.StatusInternalServerError)
		return
	}

	result, err := h.store.AddSlots(r.Context(), doc.ID, req.Slots)
	if err != nil {
		if errors.Is(err, ErrInvalidDate) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		h.logger.Error("failed to add slots", "error", err, "doctor", doc.Name)
		http.Error(w, "failed to add appointment slots", http.StatusInternalServerError)
		return
	}

	h.logger.Info("slots added", "doctor", doc.Name, "dates", len(req.Slots), "skipped", len(result.Skipped))

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(AddSlotsResponse{
		Detail:         "Appointment slots added successfully",
		AddSlotsResult: *result,
	})
}
