package services

import (
	"brz/models"
	"strings"
)

// Event names a lifecycle moment that produces a notification.
type Event string

const (
	EventSubmitted                   Event = "submitted"
	EventApproved                    Event = "approved"
	EventRejected                    Event = "rejected"
	EventCertificateIssued           Event = "certificate_issued"
	EventCompletedWithoutCertificate Event = "completed_without_certificate"
	EventStaleWaiting                Event = "stale_waiting"
)

type eventContent struct {
	Audience models.Audience
	Title    string
	Message  string
	Type     models.NotificationType
}

// eventTable holds the notification copy. Placeholders: {name}, {program},
// {notes}, {code}, {count}, {cutoff}.
var eventTable = map[Event]eventContent{
	EventSubmitted: {
		Audience: models.AudienceOperator,
		Title:    "New class registration",
		Message:  "{name} registered for {program} and is waiting for review.",
		Type:     models.NotificationInfo,
	},
	EventApproved: {
		Audience: models.AudienceApplicant,
		Title:    "Registration approved",
		Message:  "Your registration for {program} has been approved. {notes}",
		Type:     models.NotificationSuccess,
	},
	EventRejected: {
		Audience: models.AudienceApplicant,
		Title:    "Registration rejected",
		Message:  "Your registration for {program} was not approved. Reason: {notes}",
		Type:     models.NotificationError,
	},
	EventCertificateIssued: {
		Audience: models.AudienceApplicant,
		Title:    "Your certificate is ready",
		Message:  "Congratulations on completing {program}! Your certificate {code} is ready to download.",
		Type:     models.NotificationSuccess,
	},
	EventCompletedWithoutCertificate: {
		Audience: models.AudienceApplicant,
		Title:    "Class completed",
		Message:  "Your registration for {program} has been marked as completed.",
		Type:     models.NotificationInfo,
	},
	EventStaleWaiting: {
		Audience: models.AudienceOperator,
		Title:    "Registrations awaiting review",
		Message:  "{count} registration(s) have been waiting since before {cutoff}.",
		Type:     models.NotificationWarning,
	},
}

// BuildNotification renders the event's copy for reg. reg may be nil for
// operator digests.
func BuildNotification(event Event, reg *models.Registration, extra map[string]string) (*models.Notification, bool) {
	content, ok := eventTable[event]
	if !ok {
		return nil, false
	}

	values := map[string]string{"{notes}": ""}
	if reg != nil {
		values["{name}"] = reg.FullName
		values["{program}"] = reg.ProgramName
		if reg.AdminNotes != nil {
			values["{notes}"] = *reg.AdminNotes
		}
		if reg.CertificateCode != nil {
			values["{code}"] = *reg.CertificateCode
		}
	}
	for k, v := range extra {
		values["{"+k+"}"] = v
	}
	if event == EventRejected && strings.TrimSpace(values["{notes}"]) == "" {
		values["{notes}"] = "no reason was given."
	}

	pairs := make([]string, 0, len(values)*2)
	for k, v := range values {
		pairs = append(pairs, k, v)
	}

	n := &models.Notification{
		Audience: content.Audience,
		Title:    content.Title,
		Message:  strings.TrimSpace(strings.NewReplacer(pairs...).Replace(content.Message)),
		Type:     content.Type,
	}
	if reg != nil {
		id := reg.ID
		n.RegistrationID = &id
		if content.Audience == models.AudienceApplicant {
			n.UserID = reg.UserID
		}
	}
	return n, true
}
