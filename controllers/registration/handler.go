package controllers

import (
	"brz/logger"
	"brz/services"
)

// Handler groups the registration, notification and verification endpoints.
type Handler struct {
	Registrations *services.RegistrationService
	Notifications *services.NotificationService
	Verifier      *services.VerificationService
	Log           logger.Logger
}

func NewHandler(registrations *services.RegistrationService, notifications *services.NotificationService, verifier *services.VerificationService, log logger.Logger) *Handler {
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &Handler{
		Registrations: registrations,
		Notifications: notifications,
		Verifier:      verifier,
		Log:           log,
	}
}
