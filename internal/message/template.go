// Package message renders the outbound payment texts from user templates.
package message

import (
	"strconv"
	"strings"
	"time"

	"github.com/aniladanir/billing-reminder-service/internal/domain"
	"github.com/shopspring/decimal"
)

const InvalidDateLabel = "Data inválida"

// Fields are the per-client values substituted into a template.
type Fields struct {
	Name         string
	Service      string
	DueLabel     string
	Amount       decimal.Decimal
	DaysUntilDue int
}

// Render replaces every recognized placeholder in tmpl. Both {token} and
// [token] spellings are accepted; anything else is left as is.
func Render(tmpl string, f Fields) string {
	values := map[string]string{
		"nome":       f.Name,
		"servico":    f.Service,
		"valor":      FormatBRL(f.Amount),
		"vencimento": f.DueLabel,
		"dias":       strconv.Itoa(f.DaysUntilDue),
	}

	pairs := make([]string, 0, len(values)*4)
	for token, val := range values {
		pairs = append(pairs, "{"+token+"}", val, "["+token+"]", val)
	}
	return strings.NewReplacer(pairs...).Replace(tmpl)
}

// FieldsFor builds template fields for c as seen at now.
func FieldsFor(c *domain.Client, now time.Time) Fields {
	f := Fields{
		Name:     c.Name,
		Service:  c.Service,
		Amount:   c.Value,
		DueLabel: FormatDueLabel(c.DueAt, now.Location()),
	}
	if c.DueAt != nil && !c.DueAt.IsZero() {
		f.DaysUntilDue = daysBetween(now, *c.DueAt)
	}
	return f
}

// FormatBRL formats v as Brazilian reais, e.g. "R$ 1.234,56".
func FormatBRL(v decimal.Decimal) string {
	s := v.Abs().StringFixed(2)
	intPart, frac, _ := strings.Cut(s, ".")

	var b strings.Builder
	if v.Round(2).IsNegative() {
		b.WriteByte('-')
	}
	b.WriteString("R$ ")
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}
	b.WriteByte(',')
	b.WriteString(frac)
	return b.String()
}

// FormatDueLabel renders t as dd/mm/yyyy hh:mm in loc.
func FormatDueLabel(t *time.Time, loc *time.Location) string {
	if t == nil || t.IsZero() {
		return InvalidDateLabel
	}
	if loc == nil {
		loc = time.Local
	}
	return t.In(loc).Format("02/01/2006 15:04")
}

func daysBetween(from, to time.Time) int {
	loc := from.Location()
	fy, fm, fd := from.Date()
	ty, tm, td := to.In(loc).Date()
	start := time.Date(fy, fm, fd, 0, 0, 0, 0, time.UTC)
	end := time.Date(ty, tm, td, 0, 0, 0, 0, time.UTC)
	days := int(end.Sub(start).Hours() / 24)
	if days < 0 {
		return 0
	}
	return days
}
