package handler

import (
	"net/http"

	"github.com/credential-api/internal/infrastructure/keys"
)

// KeyHandler exports the verification public key so other services can
// validate access tokens without contacting this engine.
type KeyHandler struct {
	material *keys.Material
}

func NewKeyHandler(material *keys.Material) *KeyHandler {
	return &KeyHandler{material: material}
}

func (h *KeyHandler) PublicKey(w http.ResponseWriter, _ *http.Request) {
	pemBytes, err := h.material.PublicPEM()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	w.Header().Set("Content-Type", "application/x-pem-file")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(pemBytes)
}
