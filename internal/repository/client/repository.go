package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aniladanir/billing-reminder-service/internal/domain"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Repository interface {
	Create(ctx context.Context, c *domain.Client) error
	Get(ctx context.Context, id uuid.UUID) (*domain.Client, error)
	List(ctx context.Context) ([]domain.Client, error)
	Update(ctx context.Context, c *domain.Client, expected domain.ClientStatus) error
	Delete(ctx context.Context, id uuid.UUID) error
	CompareAndSetStatus(ctx context.Context, id uuid.UUID, from, to domain.ClientStatus) (bool, error)
}

type repo struct {
	db *gorm.DB
}

func NewClientRepository(db *gorm.DB) Repository {
	return &repo{db: db}
}

// Create assigns an id when missing and stores the client
func (r *repo) Create(ctx context.Context, c *domain.Client) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	normalize(c)
	return r.db.WithContext(ctx).Create(c).Error
}

func (r *repo) Get(ctx context.Context, id uuid.UUID) (*domain.Client, error) {
	var c domain.Client
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("client %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// List returns every client ordered by due instant, clients without one last
func (r *repo) List(ctx context.Context) ([]domain.Client, error) {
	var clients []domain.Client
	err := r.db.WithContext(ctx).
		Order("CASE WHEN due_at IS NULL THEN 1 ELSE 0 END").
		Order("due_at ASC").
		Order("name ASC").
		Find(&clients).Error
	return clients, err
}

// Update overwrites every mutable field of an existing client. A non-empty
// expected status makes the write conditional on the stored status, and a
// mismatch returns domain.ErrConflict.
func (r *repo) Update(ctx context.Context, c *domain.Client, expected domain.ClientStatus) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing domain.Client
		if err := tx.Where("id = ?", c.ID).First(&existing).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("client %s: %w", c.ID, domain.ErrNotFound)
			}
			return err
		}

		now := time.Now().UTC()
		c.CreatedAt = existing.CreatedAt
		c.UpdatedAt = &now
		normalize(c)

		q := tx.Model(c).Select("*").Omit("created_at")
		if expected != "" {
			q = q.Where("status = ?", expected)
		}
		res := q.Updates(c)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("client %s status is %s: %w", c.ID, existing.Status, domain.ErrConflict)
		}
		return nil
	})
}

func (r *repo) Delete(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&domain.Client{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("client %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

// CompareAndSetStatus writes status to only when the stored status still
// equals from, and reports whether the row changed
func (r *repo) CompareAndSetStatus(ctx context.Context, id uuid.UUID, from, to domain.ClientStatus) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&domain.Client{}).
		Where("id = ? AND status = ?", id, from).
		Updates(map[string]any{
			"status":     to,
			"updated_at": time.Now().UTC(),
		})
	return res.RowsAffected == 1, res.Error
}

func normalize(c *domain.Client) {
	if c.DueAt != nil {
		if c.DueAt.IsZero() {
			c.DueAt = nil
		} else {
			utc := c.DueAt.UTC()
			c.DueAt = &utc
		}
	}
	if c.Status == "" {
		c.Status = domain.StatusPending
	}
}
