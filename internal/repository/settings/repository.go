package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aniladanir/billing-reminder-service/internal/domain"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const messageConfigID = 1

type Repository interface {
	GetMessageConfig(ctx context.Context) (domain.MessageConfig, error)
	SaveMessageConfig(ctx context.Context, cfg *domain.MessageConfig) error
	ListServiceOptions(ctx context.Context) ([]domain.ServiceOption, error)
	AddServiceOption(ctx context.Context, name string) ([]domain.ServiceOption, error)
	RemoveServiceOption(ctx context.Context, id uuid.UUID) ([]domain.ServiceOption, error)
}

type repo struct {
	db *gorm.DB
}

func NewSettingsRepository(db *gorm.DB) Repository {
	return &repo{db: db}
}

// GetMessageConfig returns the stored configuration, or the defaults when
// nothing was saved yet
func (r *repo) GetMessageConfig(ctx context.Context) (domain.MessageConfig, error) {
	var cfg domain.MessageConfig
	err := r.db.WithContext(ctx).Where("id = ?", messageConfigID).First(&cfg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		def := domain.DefaultMessageConfig()
		def.ID = messageConfigID
		return def, nil
	}
	return cfg, err
}

func (r *repo) SaveMessageConfig(ctx context.Context, cfg *domain.MessageConfig) error {
	now := time.Now().UTC()
	cfg.ID = messageConfigID
	cfg.UpdatedAt = &now
	return r.db.WithContext(ctx).Save(cfg).Error
}

func (r *repo) ListServiceOptions(ctx context.Context) ([]domain.ServiceOption, error) {
	var opts []domain.ServiceOption
	err := r.db.WithContext(ctx).Order("name ASC").Find(&opts).Error
	return opts, err
}

// AddServiceOption stores name unless an option with the same name, ignoring
// case, already exists
func (r *repo) AddServiceOption(ctx context.Context, name string) ([]domain.ServiceOption, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: service name is required", domain.ErrValidation)
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&domain.ServiceOption{}).
			Where("LOWER(name) = ?", strings.ToLower(name)).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return nil
		}
		return tx.Create(&domain.ServiceOption{ID: uuid.New(), Name: name}).Error
	})
	if err != nil {
		return nil, err
	}

	return r.ListServiceOptions(ctx)
}

func (r *repo) RemoveServiceOption(ctx context.Context, id uuid.UUID) ([]domain.ServiceOption, error) {
	if err := r.db.WithContext(ctx).Where("id = ?", id).Delete(&domain.ServiceOption{}).Error; err != nil {
		return nil, err
	}
	return r.ListServiceOptions(ctx)
}
