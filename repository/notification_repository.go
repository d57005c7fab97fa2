package repository

import (
	"brz/models"
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
)

type NotificationRepository struct {
	DB *gorm.DB
}

func NewNotificationRepository(db *gorm.DB) *NotificationRepository {
	return &NotificationRepository{DB: db}
}

func (r *NotificationRepository) Create(ctx context.Context, n *models.Notification) error {
	if err := r.DB.WithContext(ctx).Create(n).Error; err != nil {
		return fmt.Errorf("create notification: %w", err)
	}
	return nil
}

// NotificationScope selects whose inbox is read. Operators share one inbox;
// applicants see only rows addressed to their user id.
type NotificationScope struct {
	Audience   models.Audience
	UserID     uint
	UnreadOnly bool
	Limit      int
}

func (s NotificationScope) apply(db *gorm.DB) *gorm.DB {
	db = db.Where("audience = ?", s.Audience)
	if s.Audience == models.AudienceApplicant {
		db = db.Where("user_id = ?", s.UserID)
	}
	if s.UnreadOnly {
		db = db.Where("is_read = ?", false)
	}
	return db
}

func (r *NotificationRepository) List(ctx context.Context, scope NotificationScope) ([]models.Notification, error) {
	limit := scope.Limit
	if limit < 1 || limit > 100 {
		limit = 50
	}
	var out []models.Notification
	err := scope.apply(r.DB.WithContext(ctx).Model(&models.Notification{})).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&out).Error
	return out, err
}

func (r *NotificationRepository) ListByRegistration(ctx context.Context, registrationID uint) ([]models.Notification, error) {
	var out []models.Notification
	err := r.DB.WithContext(ctx).
		Where("registration_id = ?", registrationID).
		Order("id ASC").
		Find(&out).Error
	return out, err
}

// MarkRead flags one notification as read if it belongs to scope.
func (r *NotificationRepository) MarkRead(ctx context.Context, id uint, scope NotificationScope, at time.Time) (bool, error) {
	res := scope.apply(r.DB.WithContext(ctx).Model(&models.Notification{}).Where("id = ?", id)).
		Updates(map[string]any{"is_read": true, "read_at": at})
	if res.Error != nil {
		return false, fmt.Errorf("mark notification %d read: %w", id, res.Error)
	}
	return res.RowsAffected == 1, nil
}
