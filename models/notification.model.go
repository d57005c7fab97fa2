package models

import "time"

type Audience string

const (
	AudienceOperator  Audience = "operator"
	AudienceApplicant Audience = "applicant"
)

type NotificationType string

const (
	NotificationInfo    NotificationType = "info"
	NotificationSuccess NotificationType = "success"
	NotificationWarning NotificationType = "warning"
	NotificationError   NotificationType = "error"
)

// Notification is written as a side effect of a lifecycle transition.
type Notification struct {
	ID             uint             `json:"id" gorm:"primaryKey"`
	Audience       Audience         `json:"audience" gorm:"size:16;index;not null"`
	UserID         *uint            `json:"user_id" gorm:"index"`
	RegistrationID *uint            `json:"registration_id" gorm:"index"`
	Title          string           `json:"title" gorm:"size:191;not null"`
	Message        string           `json:"message"`
	Type           NotificationType `json:"type" gorm:"size:16"`
	IsRead         bool             `json:"is_read" gorm:"default:false"`
	ReadAt         *time.Time       `json:"read_at"`
	CreatedAt      time.Time        `json:"created_at"`
}
