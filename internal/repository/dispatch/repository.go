package repository

import (
	"context"
	"errors"
	"time"

	"github.com/aniladanir/billing-reminder-service/internal/domain"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Repository interface {
	Begin(ctx context.Context, a *domain.DispatchAttempt, retryFailed bool) error
	UpdateStatus(ctx context.Context, a *domain.DispatchAttempt, status domain.DispatchStatus) error
	List(ctx context.Context, limit, offset int) ([]domain.DispatchAttempt, error)
	ListPendingBefore(ctx context.Context, before time.Time) ([]domain.DispatchAttempt, error)
}

type repo struct {
	db *gorm.DB
}

func NewDispatchRepository(db *gorm.DB) Repository {
	return &repo{db: db}
}

// Begin stores a new attempt. It returns domain.ErrDuplicateDispatch when an
// attempt for the same client, kind and due instant already exists, unless
// retryFailed is set and that attempt failed, in which case the stored row is
// reset to a and tried again.
func (r *repo) Begin(ctx context.Context, a *domain.DispatchAttempt, retryFailed bool) error {
	if a.Status == "" {
		a.Status = domain.DispatchPending
	}
	a.DueAt = a.DueAt.UTC()
	a.FireAt = a.FireAt.UTC()

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing domain.DispatchAttempt
		err := tx.Where("client_id = ? AND kind = ? AND due_at = ?", a.ClientID, a.Kind, a.DueAt).
			First(&existing).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			if a.ID == uuid.Nil {
				a.ID = uuid.New()
			}
			a.Tries = 1
			return tx.Create(a).Error
		}
		if err != nil {
			return err
		}
		if !retryFailed || existing.Status != domain.DispatchFailed {
			return domain.ErrDuplicateDispatch
		}

		now := time.Now().UTC()
		a.ID = existing.ID
		a.Tries = existing.Tries + 1
		a.CreatedAt = now
		a.UpdatedAt = &now
		res := tx.Model(&domain.DispatchAttempt{}).
			Where("id = ? AND status = ?", existing.ID, domain.DispatchFailed).
			Updates(map[string]any{
				"fire_at":           a.FireAt,
				"previous_status":   a.PreviousStatus,
				"status":            a.Status,
				"remote_message_id": "",
				"error":             "",
				"tries":             a.Tries,
				"created_at":        now,
				"updated_at":        now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected != 1 {
			return domain.ErrDuplicateDispatch
		}
		return nil
	})
	// the unique index catches inserts racing past the lookup
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return domain.ErrDuplicateDispatch
	}
	return err
}

// UpdateStatus updates attempt status to provided status
func (r *repo) UpdateStatus(ctx context.Context, a *domain.DispatchAttempt, status domain.DispatchStatus) error {
	now := time.Now().UTC()
	a.UpdatedAt = &now
	a.Status = status
	return r.db.WithContext(ctx).Save(a).Error
}

// List returns attempts, newest first
func (r *repo) List(ctx context.Context, limit, offset int) ([]domain.DispatchAttempt, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	var attempts []domain.DispatchAttempt
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&attempts).Error
	return attempts, err
}

// ListPendingBefore returns attempts still pending that were created before
// the given instant
func (r *repo) ListPendingBefore(ctx context.Context, before time.Time) ([]domain.DispatchAttempt, error) {
	var attempts []domain.DispatchAttempt
	err := r.db.WithContext(ctx).
		Where("status = ? AND created_at < ?", domain.DispatchPending, before.UTC()).
		Find(&attempts).Error
	return attempts, err
}
