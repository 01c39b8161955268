// SPDX-License-Identifier: Apache-2.0

// Package http implements the object-store server's HTTP transport:
// device registration and login, and the authenticated per-path object API
// with version-token optimistic concurrency. Authentication, tracing, and
// request logging are handled here before reaching the repositories.
package http

import (
	"github.com/asavelyev/notesync/internal/config"
	"github.com/asavelyev/notesync/internal/logger"
	"github.com/asavelyev/notesync/internal/store"
)

type Handler struct {
	objects store.ObjectRepository
	devices store.DeviceRepository
	cfg     config.App

	logger *logger.Logger
}

func NewHandler(objects store.ObjectRepository, devices store.DeviceRepository, cfg config.App, logger *logger.Logger) *Handler {
	logger.Info().Msg("http handler created")
	return &Handler{
		objects: objects,
		devices: devices,
		cfg:     cfg,
		logger:  logger,
	}
}
