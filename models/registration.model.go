package models

import (
	"fmt"
	"time"

	"gorm.io/datatypes"
)

type RegistrationStatus string

const (
	StatusWaiting   RegistrationStatus = "waiting"
	StatusApproved  RegistrationStatus = "approved"
	StatusRejected  RegistrationStatus = "rejected"
	StatusCompleted RegistrationStatus = "completed"
)

// IsTerminal reports whether no further transition can leave this status.
func (s RegistrationStatus) IsTerminal() bool {
	return s == StatusRejected || s == StatusCompleted
}

type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentVerified PaymentStatus = "verified"
	PaymentRejected PaymentStatus = "rejected"
)

// Registration is one applicant's request to join a training program.
type Registration struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	UserID      *uint  `json:"user_id" gorm:"index"`
	ProgramID   string `json:"program_id" gorm:"size:64;index;not null"`
	ProgramName string `json:"program_name" gorm:"size:191;not null"`

	FullName        string                      `json:"full_name" gorm:"size:191;not null"`
	BirthDate       time.Time                   `json:"birth_date" gorm:"type:date"`
	Gender          string                      `json:"gender" gorm:"size:16"`
	Address         string                      `json:"address"`
	Phone           string                      `json:"phone" gorm:"size:32"`
	Email           string                      `json:"email,omitempty" gorm:"size:191"`
	Packages        datatypes.JSONSlice[string] `json:"packages"`
	Schedule        string                      `json:"schedule" gorm:"size:64"`
	Experience      string                      `json:"experience" gorm:"size:32"`
	TrainingHistory string                      `json:"training_history,omitempty"`

	PaymentProofURL string        `json:"payment_proof_url"`
	PaymentStatus   PaymentStatus `json:"payment_status" gorm:"size:16;default:'pending'"`

	Status     RegistrationStatus `json:"status" gorm:"size:16;index;default:'waiting'"`
	AdminNotes *string            `json:"admin_notes"`
	DecidedBy  *uint              `json:"decided_by"`
	DecidedAt  *time.Time         `json:"decided_at"`

	// ActiveKey is "<user>:<program>" while the registration is waiting or approved
	// and NULL otherwise; the unique index makes duplicate active intake impossible.
	ActiveKey *string `json:"-" gorm:"size:128;uniqueIndex"`

	CertificateCode          *string    `json:"certificate_code" gorm:"size:64;uniqueIndex"`
	CertificateURL           *string    `json:"certificate_url"`
	CertificateRecipientName *string    `json:"certificate_recipient_name"`
	CertificateSkillLabel    *string    `json:"certificate_skill_label"`
	CertificateDateText      *string    `json:"certificate_date_text"`
	LegacyCompletion         bool       `json:"legacy_completion" gorm:"default:false"`
	CompletedAt              *time.Time `json:"completed_at"`
}

// ActiveKeyFor builds the uniqueness key for a non-terminal registration.
// Anonymous intake has no key.
func ActiveKeyFor(userID *uint, programID string) *string {
	if userID == nil {
		return nil
	}
	key := fmt.Sprintf("%d:%s", *userID, programID)
	return &key
}

// OwnedBy reports whether actorID submitted this registration.
func (r *Registration) OwnedBy(actorID uint) bool {
	return r.UserID != nil && *r.UserID == actorID
}
