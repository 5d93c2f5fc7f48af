package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const DefaultChargeTemplate = `Olá [nome], tudo bem?

Passando para lembrar sobre o pagamento do serviço: [servico]
Valor: [valor]
Vencimento: [vencimento]

Por favor, me avise quando realizar o pagamento para que eu possa dar baixa no sistema.

Agradeço a atenção!`

const DefaultReminderTemplate = `Olá [nome]! Seu pagamento de [valor] referente a [servico] vence em [dias] dia(s), em [vencimento].`

// MessageConfig is the single persisted row holding the outbound templates
// and their timing.
type MessageConfig struct {
	ID                 uint       `gorm:"primaryKey" json:"-"`
	ChargeTemplate     string     `gorm:"type:text;not null" json:"charge_template"`
	ChargeDaysAfterDue int        `gorm:"not null" json:"charge_days_after_due"`
	ReminderTemplate   string     `gorm:"type:text" json:"reminder_template"`
	SendReminder       bool       `gorm:"not null" json:"send_reminder"`
	ReminderDaysBefore int        `gorm:"not null" json:"reminder_days_before"`
	ReminderHour       int        `gorm:"not null" json:"reminder_hour"`
	ReminderMinute     int        `gorm:"not null" json:"reminder_minute"`
	UpdatedAt          *time.Time `json:"updated_at"`
}

func DefaultMessageConfig() MessageConfig {
	return MessageConfig{
		ChargeTemplate:     DefaultChargeTemplate,
		ReminderTemplate:   DefaultReminderTemplate,
		ReminderDaysBefore: 1,
		ReminderHour:       9,
	}
}

func (c *MessageConfig) Validate() error {
	switch {
	case strings.TrimSpace(c.ChargeTemplate) == "":
		return fmt.Errorf("%w: charge template is required", ErrValidation)
	case c.ChargeDaysAfterDue < 0:
		return fmt.Errorf("%w: charge_days_after_due must be >= 0", ErrValidation)
	case c.ReminderDaysBefore < 0:
		return fmt.Errorf("%w: reminder_days_before must be >= 0", ErrValidation)
	case c.ReminderHour < 0 || c.ReminderHour > 23:
		return fmt.Errorf("%w: reminder_hour must be between 0 and 23", ErrValidation)
	case c.ReminderMinute < 0 || c.ReminderMinute > 59:
		return fmt.Errorf("%w: reminder_minute must be between 0 and 59", ErrValidation)
	case c.SendReminder && strings.TrimSpace(c.ReminderTemplate) == "":
		return fmt.Errorf("%w: reminder template is required when reminders are enabled", ErrValidation)
	}
	return nil
}

// ChargeFireAt is the instant the charge message for dueAt goes out.
func (c *MessageConfig) ChargeFireAt(dueAt time.Time) time.Time {
	return dueAt.AddDate(0, 0, c.ChargeDaysAfterDue)
}

// ReminderFireAt is the configured time of day, ReminderDaysBefore days
// before the due date, in loc.
func (c *MessageConfig) ReminderFireAt(dueAt time.Time, loc *time.Location) time.Time {
	y, m, d := dueAt.In(loc).Date()
	return time.Date(y, m, d-c.ReminderDaysBefore, c.ReminderHour, c.ReminderMinute, 0, 0, loc)
}

type ServiceOption struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name      string    `gorm:"type:varchar(120);not null" json:"name"`
	CreatedAt time.Time `json:"created_at"`
}
