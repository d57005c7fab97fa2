package repository

import (
	"brz/apperrors"
	"brz/models"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
)

// ActiveStatuses are the statuses that hold a user's slot for a program.
var ActiveStatuses = []models.RegistrationStatus{models.StatusWaiting, models.StatusApproved}

type RegistrationRepository struct {
	DB *gorm.DB
}

func NewRegistrationRepository(db *gorm.DB) *RegistrationRepository {
	return &RegistrationRepository{DB: db}
}

// RegistrationFilter narrows the operator listing. Zero values mean "any".
type RegistrationFilter struct {
	Status    models.RegistrationStatus
	ProgramID string
	UserID    *uint
	Search    string
	Page      int
	Limit     int
}

func (f *RegistrationFilter) normalize() {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 {
		f.Limit = 10
	}
	if f.Limit > 100 {
		f.Limit = 100
	}
}

// Create inserts a registration. A second active registration for the same user
// and program trips the active_key unique index.
func (r *RegistrationRepository) Create(ctx context.Context, reg *models.Registration) error {
	err := r.DB.WithContext(ctx).Create(reg).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return apperrors.DuplicateActiveRegistration(reg.ProgramID)
	}
	if err != nil {
		return fmt.Errorf("create registration: %w", err)
	}
	return nil
}

func (r *RegistrationRepository) FindByID(ctx context.Context, id uint) (*models.Registration, error) {
	var reg models.Registration
	err := r.DB.WithContext(ctx).First(&reg, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NotFound("registration")
	}
	if err != nil {
		return nil, fmt.Errorf("find registration %d: %w", id, err)
	}
	return &reg, nil
}

func (r *RegistrationRepository) FindByCertificateCode(ctx context.Context, code string) (*models.Registration, error) {
	var reg models.Registration
	err := r.DB.WithContext(ctx).Where("certificate_code = ?", code).First(&reg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NotFound("certificate")
	}
	if err != nil {
		return nil, fmt.Errorf("find certificate %s: %w", code, err)
	}
	return &reg, nil
}

// ListByUser returns every registration of a user, newest first.
func (r *RegistrationRepository) ListByUser(ctx context.Context, userID uint) ([]models.Registration, error) {
	var regs []models.Registration
	err := r.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Find(&regs).Error
	return regs, err
}

// List returns one page of registrations plus the total match count.
func (r *RegistrationRepository) List(ctx context.Context, filter RegistrationFilter) ([]models.Registration, int64, error) {
	filter.normalize()

	query := r.DB.WithContext(ctx).Model(&models.Registration{})
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.ProgramID != "" {
		query = query.Where("program_id = ?", filter.ProgramID)
	}
	if filter.UserID != nil {
		query = query.Where("user_id = ?", *filter.UserID)
	}
	if s := strings.TrimSpace(filter.Search); s != "" {
		like := "%" + strings.ToLower(s) + "%"
		query = query.Where("(LOWER(full_name) LIKE ? OR LOWER(email) LIKE ? OR phone LIKE ?)", like, like, like)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count registrations: %w", err)
	}

	var regs []models.Registration
	err := query.
		Order("created_at DESC, id DESC").
		Offset((filter.Page - 1) * filter.Limit).
		Limit(filter.Limit).
		Find(&regs).Error
	if err != nil {
		return nil, 0, fmt.Errorf("list registrations: %w", err)
	}
	return regs, total, nil
}

// HasActive reports whether the user already holds a waiting or approved
// registration for the program.
func (r *RegistrationRepository) HasActive(ctx context.Context, userID uint, programID string) (bool, error) {
	var count int64
	err := r.DB.WithContext(ctx).Model(&models.Registration{}).
		Where("user_id = ? AND program_id = ? AND status IN ?", userID, programID, ActiveStatuses).
		Count(&count).Error
	return count > 0, err
}

// UpdateGuarded applies updates only while the row is still in status from.
// It reports false when another writer moved the row first.
func (r *RegistrationRepository) UpdateGuarded(ctx context.Context, id uint, from models.RegistrationStatus, updates map[string]any) (bool, error) {
	res := r.DB.WithContext(ctx).Model(&models.Registration{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if res.Error != nil {
		return false, fmt.Errorf("update registration %d: %w", id, res.Error)
	}
	return res.RowsAffected == 1, nil
}

// DeleteGuarded hard-deletes the row only while it is in one of statuses.
func (r *RegistrationRepository) DeleteGuarded(ctx context.Context, id uint, statuses ...models.RegistrationStatus) (bool, error) {
	res := r.DB.WithContext(ctx).
		Where("id = ? AND status IN ?", id, statuses).
		Delete(&models.Registration{})
	if res.Error != nil {
		return false, fmt.Errorf("delete registration %d: %w", id, res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (r *RegistrationRepository) Delete(ctx context.Context, id uint) (bool, error) {
	res := r.DB.WithContext(ctx).Delete(&models.Registration{}, id)
	if res.Error != nil {
		return false, fmt.Errorf("delete registration %d: %w", id, res.Error)
	}
	return res.RowsAffected == 1, nil
}

// ListWaitingBefore returns waiting registrations created before cutoff, oldest first.
func (r *RegistrationRepository) ListWaitingBefore(ctx context.Context, cutoff time.Time) ([]models.Registration, error) {
	var regs []models.Registration
	err := r.DB.WithContext(ctx).
		Where("status = ? AND created_at < ?", models.StatusWaiting, cutoff).
		Order("created_at ASC").
		Find(&regs).Error
	return regs, err
}
