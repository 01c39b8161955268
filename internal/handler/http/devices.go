package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/asavelyev/notesync/internal/logger"
	"github.com/asavelyev/notesync/internal/store"
	"github.com/asavelyev/notesync/internal/utils"
	"github.com/asavelyev/notesync/models"
	"golang.org/x/crypto/bcrypt"
)

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromRequest(r)

	var device models.Device
	if err := json.NewDecoder(r.Body).Decode(&device); err != nil {
		log.Err(err).Msg("invalid JSON was passed")
		http.Error(w, "invalid JSON was passed", http.StatusBadRequest)
		return
	}
	if device.DeviceID == "" || device.Secret == "" {
		http.Error(w, "device_id and secret are required", http.StatusBadRequest)
		return
	}

	registered, err := h.devices.Create(ctx, device)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrDeviceExists):
			log.Err(err).Msg("device already registered")
			http.Error(w, "device already registered", http.StatusConflict)
			return
		default:
			log.Err(err).Msg("unexpected error occurred during device registration")
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}
	}

	token, err := utils.GenerateJWTToken(h.cfg.TokenIssuer, registered.DeviceID, h.cfg.TokenDuration, h.cfg.TokenSignKey)
	if err != nil {
		log.Err(err).Msg("creation of token failed")
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Authorization", fmt.Sprintf("Bearer %s", token.SignedString))
	w.WriteHeader(http.StatusOK)
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromRequest(r)

	var device models.Device
	if err := json.NewDecoder(r.Body).Decode(&device); err != nil {
		log.Err(err).Msg("invalid JSON was passed")
		http.Error(w, "invalid JSON was passed", http.StatusBadRequest)
		return
	}

	found, err := h.devices.FindByID(ctx, device.DeviceID)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrDeviceNotFound):
			log.Err(err).Msg("unknown device")
			http.Error(w, "invalid device id/secret", http.StatusUnauthorized)
			return
		default:
			log.Err(err).Msg("unexpected error occurred during device login")
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}
	}

	if err = bcrypt.CompareHashAndPassword([]byte(found.SecretHash), []byte(device.Secret)); err != nil {
		log.Err(err).Str("device_id", device.DeviceID).Msg("wrong secret")
		http.Error(w, "invalid device id/secret", http.StatusUnauthorized)
		return
	}

	token, err := utils.GenerateJWTToken(h.cfg.TokenIssuer, found.DeviceID, h.cfg.TokenDuration, h.cfg.TokenSignKey)
	if err != nil {
		log.Err(err).Msg("creation of token failed")
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Authorization", fmt.Sprintf("Bearer %s", token.SignedString))
	w.WriteHeader(http.StatusOK)
}
