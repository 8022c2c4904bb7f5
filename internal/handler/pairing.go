package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	apperrors "github.com/duetapp/pairing-server-go/internal/errors"
	"github.com/duetapp/pairing-server-go/internal/httputil"
	"github.com/duetapp/pairing-server-go/internal/middleware"
	"github.com/duetapp/pairing-server-go/internal/service"
)

type PairingHandler struct {
	pairingService *service.PairingService
	redeemLimit    func(http.Handler) http.Handler
}

// NewPairingHandler wires the pairing routes. redeemLimit guards the redeem
// endpoint against code brute-forcing; pass nil to disable.
func NewPairingHandler(
	pairingService *service.PairingService,
	redeemLimit func(http.Handler) http.Handler,
) *PairingHandler {
	if redeemLimit == nil {
		redeemLimit = func(next http.Handler) http.Handler { return next }
	}
	return &PairingHandler{
		pairingService: pairingService,
		redeemLimit:    redeemLimit,
	}
}

func (h *PairingHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/code", h.IssueCode)
	r.With(h.redeemLimit).Post("/redeem", h.RedeemCode)
	r.Get("/", h.GetPartnership)
	r.Delete("/", h.Unlink)

	return r
}

// POST /v1/pairing/code
// Issues a fresh pairing code for the caller; regenerating overwrites any
// outstanding unredeemed code.
func (h *PairingHandler) IssueCode(w http.ResponseWriter, r *http.Request) {
	profile := middleware.GetProfile(r.Context())
	if profile == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
		return
	}

	issued, err := h.pairingService.IssueCode(r.Context(), profile.ID)
	if err != nil {
		log.Error().Err(err).Str("userId", profile.ID).Msg("failed to issue pairing code")
		httputil.WriteError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"code":      issued.Code,
		"expiresAt": issued.ExpiresAt.Format(time.RFC3339),
	})
}

// POST /v1/pairing/redeem
// Redeems another user's code and links both identities.
func (h *PairingHandler) RedeemCode(w http.ResponseWriter, r *http.Request) {
	profile := middleware.GetProfile(r.Context())
	if profile == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
		return
	}

	var req struct {
		Code string `json:"code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Code == "" {
		httputil.WriteError(w, apperrors.MissingRequired("code"))
		return
	}

	partnerID, err := h.pairingService.RedeemCode(r.Context(), profile.ID, req.Code)
	if err != nil {
		// Every rejection reason reaches the user verbatim; pairing is the
		// one flow where "why not" matters.
		log.Warn().Err(err).Str("userId", profile.ID).Msg("redeem failed")
		httputil.WriteError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"partnerId": partnerID,
	})
}

// GET /v1/pairing
// Reports the caller's pairing state: null body when no record exists.
func (h *PairingHandler) GetPartnership(w http.ResponseWriter, r *http.Request) {
	profile := middleware.GetProfile(r.Context())
	if profile == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
		return
	}

	view, err := h.pairingService.GetPartnership(r.Context(), profile.ID)
	if err != nil {
		log.Error().Err(err).Str("userId", profile.ID).Msg("failed to read partnership")
		httputil.WriteError(w, err)
		return
	}

	if view == nil {
		writeJSON(w, http.StatusOK, nil)
		return
	}

	writeJSON(w, http.StatusOK, view)
}

// DELETE /v1/pairing
// Tears down the caller's partnership from either side. Idempotent.
func (h *PairingHandler) Unlink(w http.ResponseWriter, r *http.Request) {
	profile := middleware.GetProfile(r.Context())
	if profile == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
		return
	}

	if err := h.pairingService.Unlink(r.Context(), profile.ID); err != nil {
		log.Error().Err(err).Str("userId", profile.ID).Msg("failed to unlink")
		httputil.WriteError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}
