// Package coupon implements the distribution engine for coupon-payment
// entries: it keeps the coupon percentage rate, each holding row's cash
// order amount, and the running total mutually consistent.
package coupon

import (
	"github.com/shopspring/decimal"

	"github.com/nestara/console-backend/internal/domain"
)

var hundred = decimal.NewFromInt(100)

// Engine holds the per-session distribution state for one ISIN selection.
// Manual-edit tracking is session scoped and reset whenever the ISIN changes,
// since new holdings invalidate any prior per-row edit history.
type Engine struct {
	isin   string
	rows   []domain.CouponRow
	manual map[int]struct{}
	total  decimal.Decimal
}

// NewEngine creates an engine with no ISIN selected
func NewEngine() *Engine {
	return &Engine{manual: make(map[int]struct{})}
}

// Reset discards all rows, manual-edit tracking and the total, and records
// the newly selected ISIN.
func (e *Engine) Reset(isin string) {
	e.isin = isin
	e.rows = nil
	e.manual = make(map[int]struct{})
	e.total = decimal.Zero
}

// ISIN returns the instrument the current rows belong to
func (e *Engine) ISIN() string {
	return e.isin
}

// HasRows reports whether rows exist for the current ISIN
func (e *Engine) HasRows() bool {
	return len(e.rows) > 0
}

// InitializeFromHoldings builds one zero-amount row per holding. Idempotent:
// if rows already exist for the current ISIN the existing rows are returned
// unchanged, so a repeated holdings arrival cannot wipe user input.
func (e *Engine) InitializeFromHoldings(holdings []domain.Holding) []domain.CouponRow {
	if len(e.rows) > 0 {
		return e.Rows()
	}
	e.rows = make([]domain.CouponRow, 0, len(holdings))
	for _, h := range holdings {
		e.rows = append(e.rows, domain.CouponRow{
			ClientName:         h.ClientName,
			OrganizationNum:    h.OrganizationNum,
			SubOrganizationNum: h.SubOrganizationNum,
			SubAccountNum:      h.SubAccountNum,
			EffectiveValueAmt:  h.EffectiveValueAmt,
			CashOrderAmt:       decimal.Zero,
			Currency:           h.Currency,
			BankAccountTo:      "",
		})
	}
	e.recomputeTotal()
	return e.Rows()
}

// ApplyRateChange recomputes the cash order amount of every row not in the
// manually-edited set as (rate / 100) * effectiveValueAmt. A nil or zero
// rate resets those rows to zero. Manually edited rows are left untouched.
func (e *Engine) ApplyRateChange(rate *decimal.Decimal) []domain.CouponRow {
	if len(e.rows) == 0 {
		return nil
	}
	for i := range e.rows {
		if _, edited := e.manual[i]; edited {
			continue
		}
		if rate == nil || rate.IsZero() {
			e.rows[i].CashOrderAmt = decimal.Zero
			continue
		}
		e.rows[i].CashOrderAmt = rate.Mul(e.rows[i].EffectiveValueAmt).Div(hundred)
	}
	e.recomputeTotal()
	return e.Rows()
}

// ApplyManualRowEdit fixes one row's amount to a user-entered value and
// re-derives the implied rate from that row. The manual-edit set is reseeded
// to just the edited index: the new implied rate drives every other row.
// Returns the updated rows and the implied rate, or nil when the row's
// effective value is zero (the rate is then left unchanged).
func (e *Engine) ApplyManualRowEdit(index int, value decimal.Decimal) ([]domain.CouponRow, *decimal.Decimal) {
	if index < 0 || index >= len(e.rows) {
		return e.Rows(), nil
	}

	e.manual = map[int]struct{}{index: {}}
	e.rows[index].CashOrderAmt = value

	effective := e.rows[index].EffectiveValueAmt
	if !effective.IsPositive() {
		// Zero holding value: no implied rate can be derived. Keep the
		// entered value and the other rows as they are.
		e.recomputeTotal()
		return e.Rows(), nil
	}

	implied := value.Div(effective).Mul(hundred).Round(4)
	e.ApplyRateChange(&implied)
	return e.Rows(), &implied
}

// ApplyBankAccountChange assigns the destination account of one row. No
// amounts are recomputed.
func (e *Engine) ApplyBankAccountChange(index int, bankAccountUID string) []domain.CouponRow {
	if index < 0 || index >= len(e.rows) {
		return e.Rows()
	}
	e.rows[index].BankAccountTo = bankAccountUID
	return e.Rows()
}

// Rows returns a copy of the current rows
func (e *Engine) Rows() []domain.CouponRow {
	if e.rows == nil {
		return nil
	}
	out := make([]domain.CouponRow, len(e.rows))
	copy(out, e.rows)
	return out
}

// Total returns the sum of cash order amounts across all rows
func (e *Engine) Total() decimal.Decimal {
	return e.total
}

func (e *Engine) recomputeTotal() {
	total := decimal.Zero
	for _, row := range e.rows {
		total = total.Add(row.CashOrderAmt)
	}
	e.total = total
}
