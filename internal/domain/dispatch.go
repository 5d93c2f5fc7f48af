package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var ErrDuplicateDispatch = errors.New("dispatch already recorded")

type DispatchKind string

const (
	KindCharge   DispatchKind = "charge"
	KindReminder DispatchKind = "reminder"
	KindManual   DispatchKind = "manual"
)

type DispatchStatus string

const (
	DispatchPending   DispatchStatus = "pending"
	DispatchSent      DispatchStatus = "sent"
	DispatchConfirmed DispatchStatus = "confirmed"
	DispatchFailed    DispatchStatus = "failed"
	DispatchMissed    DispatchStatus = "missed"
)

// DispatchAttempt records one outbound payment message for a client. The
// (client, kind, due instant) triple is unique so an automatic message is
// sent at most once per due instant. A failed attempt may be retried in
// place, which bumps Tries.
type DispatchAttempt struct {
	ID              uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	ClientID        uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex:idx_dispatch_once,priority:1" json:"client_id"`
	Kind            DispatchKind   `gorm:"type:varchar(16);not null;uniqueIndex:idx_dispatch_once,priority:2" json:"kind"`
	DueAt           time.Time      `gorm:"not null;uniqueIndex:idx_dispatch_once,priority:3" json:"due_at"`
	FireAt          time.Time      `gorm:"not null" json:"fire_at"`
	PreviousStatus  ClientStatus   `gorm:"type:varchar(20)" json:"previous_status"`
	Status          DispatchStatus `gorm:"type:varchar(16);not null;index" json:"status"`
	RemoteMessageID string         `gorm:"type:varchar(128)" json:"remote_message_id,omitempty"`
	Error           string         `gorm:"type:text" json:"error,omitempty"`
	Tries           int            `gorm:"not null;default:1" json:"tries"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       *time.Time     `json:"updated_at"`
}
