package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessageConfig_Validate(t *testing.T) {
	cfg := DefaultMessageConfig()
	require.NoError(t, cfg.Validate())

	tests := []struct {
		name   string
		mutate func(c *MessageConfig)
	}{
		{"empty charge template", func(c *MessageConfig) { c.ChargeTemplate = "  " }},
		{"negative charge offset", func(c *MessageConfig) { c.ChargeDaysAfterDue = -1 }},
		{"negative reminder offset", func(c *MessageConfig) { c.ReminderDaysBefore = -2 }},
		{"hour out of range", func(c *MessageConfig) { c.ReminderHour = 24 }},
		{"minute out of range", func(c *MessageConfig) { c.ReminderMinute = 60 }},
		{"reminder enabled without template", func(c *MessageConfig) {
			c.SendReminder = true
			c.ReminderTemplate = ""
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := DefaultMessageConfig()
			tt.mutate(&c)
			assert.ErrorIs(t, c.Validate(), ErrValidation)
		})
	}
}

func TestMessageConfig_FireTimes(t *testing.T) {
	loc := time.FixedZone("BRT", -3*60*60)
	due := time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC)

	cfg := DefaultMessageConfig()
	assert.True(t, cfg.ChargeFireAt(due).Equal(due))

	cfg.ChargeDaysAfterDue = 2
	assert.True(t, cfg.ChargeFireAt(due).Equal(due.AddDate(0, 0, 2)))

	cfg.ReminderDaysBefore = 3
	cfg.ReminderHour = 8
	cfg.ReminderMinute = 30
	want := time.Date(2024, 1, 7, 8, 30, 0, 0, loc)
	assert.True(t, cfg.ReminderFireAt(due, loc).Equal(want))
}

func TestClient_Validate(t *testing.T) {
	c := Client{Name: "Ana"}
	require.NoError(t, c.Validate())

	c.Name = ""
	assert.ErrorIs(t, c.Validate(), ErrValidation)

	c = Client{Name: "Ana", Status: "Em dia"}
	assert.ErrorIs(t, c.Validate(), ErrValidation)
}
