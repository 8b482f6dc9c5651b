package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/credential-api/internal/application/registration"
	"github.com/credential-api/internal/application/verification"
	"github.com/credential-api/internal/domain"
	"github.com/credential-api/internal/pkg/validate"
)

// AccountHandler handles registration and verification endpoints.
type AccountHandler struct {
	registrations registration.Service
	verifications verification.Service
}

func NewAccountHandler(reg registration.Service, ver verification.Service) *AccountHandler {
	return &AccountHandler{registrations: reg, verifications: ver}
}

func (h *AccountHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req domain.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	accountID, err := h.registrations.Register(r.Context(), req)
	if err != nil {
		slog.Warn("registration failed", "err", err)
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, RegisterEnvelope{
		AccountID: accountID,
		Message:   "verification sent",
	})
}

func (h *AccountHandler) Verify(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Ticket string `json:"ticket"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Ticket == "" {
		writeError(w, http.StatusBadRequest, "ticket required")
		return
	}
	if _, err := h.verifications.Verify(r.Context(), req.Ticket); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "email verified"})
}

func (h *AccountHandler) ResendVerification(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email" validate:"required,email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.registrations.ResendVerification(r.Context(), req.Email); err != nil {
		writeDomainError(w, err)
		return
	}
	// Same acknowledgement whether or not the address is registered.
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "verification sent if the address is registered"})
}
