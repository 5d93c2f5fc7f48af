package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrNotFound   = errors.New("not found")
	ErrValidation = errors.New("validation failed")
	ErrConflict   = errors.New("record changed concurrently")
)

type ClientStatus string

const (
	StatusPending     ClientStatus = "Pendente"
	StatusDueToday    ClientStatus = "Vence Hoje"
	StatusOverdue     ClientStatus = "Atrasado"
	StatusMessageSent ClientStatus = "Mensagem Enviada"
	StatusPaid        ClientStatus = "Pago"
)

// Valid reports whether s belongs to the closed set of client statuses.
func (s ClientStatus) Valid() bool {
	switch s {
	case StatusPending, StatusDueToday, StatusOverdue, StatusMessageSent, StatusPaid:
		return true
	}
	return false
}

// Sticky statuses are never overwritten by derivation.
func (s ClientStatus) Sticky() bool {
	return s == StatusMessageSent || s == StatusPaid
}

type Client struct {
	ID               uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	Name             string          `gorm:"type:varchar(120);not null" json:"name"`
	Service          string          `gorm:"type:varchar(120)" json:"service"`
	Value            decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"value"`
	DueAt            *time.Time      `gorm:"index" json:"due_at"`
	Phone            string          `gorm:"type:varchar(20)" json:"phone"`
	Status           ClientStatus    `gorm:"type:varchar(20);not null" json:"status"`
	AutomaticMessage bool            `gorm:"not null" json:"automatic_message"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        *time.Time      `json:"updated_at"`
}

// Validate checks the fields a client must carry before it is stored.
func (c *Client) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrValidation)
	}
	if c.Value.IsNegative() {
		return fmt.Errorf("%w: value must not be negative", ErrValidation)
	}
	if c.Status != "" && !c.Status.Valid() {
		return fmt.Errorf("%w: unknown status %q", ErrValidation, c.Status)
	}
	return nil
}
