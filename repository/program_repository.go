package repository

import (
	"brz/apperrors"
	"brz/models"
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
)

type ProgramRepository struct {
	DB *gorm.DB
}

func NewProgramRepository(db *gorm.DB) *ProgramRepository {
	return &ProgramRepository{DB: db}
}

// FindActive loads an enabled program by code.
func (r *ProgramRepository) FindActive(ctx context.Context, code string) (*models.Program, error) {
	var p models.Program
	err := r.DB.WithContext(ctx).Where("code = ? AND active = ?", code, true).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NotFound("program")
	}
	if err != nil {
		return nil, fmt.Errorf("find program %s: %w", code, err)
	}
	return &p, nil
}

func (r *ProgramRepository) ListActive(ctx context.Context) ([]models.Program, error) {
	var out []models.Program
	err := r.DB.WithContext(ctx).Where("active = ?", true).Order("code").Find(&out).Error
	return out, err
}
