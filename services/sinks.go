package services

import (
	"brz/models"
	"brz/utils"
	"context"
	"time"
)

// EmailSink mails applicants at their registration email and operators at the
// configured operator addresses.
type EmailSink struct {
	mailer    utils.Mailer
	operators []string
}

func NewEmailSink(mailer utils.Mailer, operatorEmails []string) *EmailSink {
	return &EmailSink{mailer: mailer, operators: operatorEmails}
}

func (s *EmailSink) Name() string { return "email" }

func (s *EmailSink) Deliver(ctx context.Context, d Delivery) error {
	var to []string
	switch d.Notification.Audience {
	case models.AudienceOperator:
		to = s.operators
	case models.AudienceApplicant:
		if d.Registration != nil && d.Registration.Email != "" {
			to = []string{d.Registration.Email}
		}
	}
	if len(to) == 0 {
		return nil
	}
	return s.mailer.Send(ctx, to, d.Notification.Title, utils.EmailTemplate(d.Notification.Title, d.Notification.Message))
}

// WebhookPoster is satisfied by *utils.WebhookClient.
type WebhookPoster interface {
	Post(ctx context.Context, payload any) error
}

type WebhookSink struct {
	client WebhookPoster
}

func NewWebhookSink(client WebhookPoster) *WebhookSink {
	return &WebhookSink{client: client}
}

func (s *WebhookSink) Name() string { return "webhook" }

type webhookPayload struct {
	Event          Event                   `json:"event"`
	Audience       models.Audience         `json:"audience"`
	Title          string                  `json:"title"`
	Message        string                  `json:"message"`
	Type           models.NotificationType `json:"type"`
	RegistrationID *uint                   `json:"registration_id,omitempty"`
	ProgramID      string                  `json:"program_id,omitempty"`
	Status         string                  `json:"status,omitempty"`
	SentAt         time.Time               `json:"sent_at"`
}

func (s *WebhookSink) Deliver(ctx context.Context, d Delivery) error {
	payload := webhookPayload{
		Event:          d.Event,
		Audience:       d.Notification.Audience,
		Title:          d.Notification.Title,
		Message:        d.Notification.Message,
		Type:           d.Notification.Type,
		RegistrationID: d.Notification.RegistrationID,
		SentAt:         time.Now().UTC(),
	}
	if d.Registration != nil {
		payload.ProgramID = d.Registration.ProgramID
		payload.Status = string(d.Registration.Status)
	}
	return s.client.Post(ctx, payload)
}
