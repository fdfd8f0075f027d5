// Package rules implements the cross-field validation that gates the
// transition from editing to review. Failures are field-addressed data,
// never errors thrown as control flow.
package rules

import (
	"fmt"
	"strings"
	"time"

	"github.com/nestara/console-backend/internal/domain"
)

// FieldError is a single validation failure addressed at a form field.
// Row-level failures use an indexed path such as
// "couponPayments[2].bankAccountTo" so the UI can point at the exact cell.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Errors is the collection of failures for one validation pass
type Errors []FieldError

// OK reports whether the pass found no failures
func (e Errors) OK() bool {
	return len(e) == 0
}

// Has reports whether a failure is addressed at the given field path
func (e Errors) Has(field string) bool {
	for _, fe := range e {
		if fe.Field == field {
			return true
		}
	}
	return false
}

// Input carries everything one validation pass depends on
type Input struct {
	Values     *domain.TransactionFormValues
	Category   domain.Category
	Descriptor domain.FieldVisibilityDescriptor

	// BankAccountOptions is the size of the currency-filtered bank-account
	// collection. An empty collection means "no options available", which
	// makes the bank-account field not applicable rather than blocking.
	BankAccountOptions int

	// Now anchors the effective-date window
	Now time.Time
}

// Validate runs the full rule set and returns the collected failures
func Validate(in Input) Errors {
	v := in.Values
	var errs Errors
	add := func(field, message string) {
		errs = append(errs, FieldError{Field: field, Message: message})
	}

	if v.TransactionType == "" {
		add("transactionType", "transaction type is required")
	} else if !domain.IsKnownType(in.Category, v.TransactionType) {
		add("transactionType", fmt.Sprintf("unknown %s transaction type %q", in.Category, v.TransactionType))
	}

	if v.Status == "" {
		add("status", "status is required")
	} else if !domain.IsKnownStatus(v.Status) {
		add("status", fmt.Sprintf("unknown status %q", v.Status))
	}

	if v.Currency == "" {
		add("currency", "currency is required")
	}

	validateEffectiveDate(v, in.Now, add)

	if strings.TrimSpace(v.Description) == "" {
		add("description", "description is required")
	}

	if in.Descriptor.ShowClientFields && v.ClientName == "" {
		add("clientName", "client is required")
	}

	isCoupon := v.TransactionType == domain.TypeCouponPayment

	if !isCoupon {
		if v.Amount == nil {
			add("amount", "amount is required")
		} else if !v.Amount.IsPositive() {
			add("amount", "amount must be greater than zero")
		}
	}

	if in.Descriptor.ShowFees && v.Fees != nil && v.Fees.IsNegative() {
		add("fees", "fees cannot be negative")
	}
	if in.Descriptor.ShowBankCharges && v.BankCharges != nil && v.BankCharges.IsNegative() {
		add("bankCharges", "bank charges cannot be negative")
	}
	if in.Descriptor.ShowGSTAmount && v.GSTAmount != nil && v.GSTAmount.IsNegative() {
		add("gstAmount", "GST amount cannot be negative")
	}

	if !isCoupon && in.BankAccountOptions > 0 && v.BankAccount == "" {
		add("bankAccount", "bank account is required")
	}

	if isCoupon {
		validateCouponFields(v, add)
	}

	return errs
}

// validateEffectiveDate requires the date and checks the rolling ±3-month
// window anchored on today. Boundary dates are valid; comparison is by
// calendar day, not instant.
func validateEffectiveDate(v *domain.TransactionFormValues, now time.Time, add func(field, message string)) {
	if v.EffectiveDate.IsZero() {
		add("effectiveDate", "effective date is required")
		return
	}
	today := truncateToDay(now)
	earliest := today.AddDate(0, -3, 0)
	latest := today.AddDate(0, 3, 0)
	d := truncateToDay(v.EffectiveDate)
	if d.Before(earliest) || d.After(latest) {
		add("effectiveDate", "effective date must be within 3 months of today")
	}
}

func validateCouponFields(v *domain.TransactionFormValues, add func(field, message string)) {
	if v.ISIN == "" {
		add("isin", "ISIN is required")
	}
	if v.PaymentDate.IsZero() {
		add("paymentDate", "payment date is required")
	}
	if v.CouponPercentageRate == nil {
		add("couponPercentageRate", "coupon percentage rate is required")
	} else if !v.CouponPercentageRate.IsPositive() {
		add("couponPercentageRate", "coupon percentage rate must be greater than zero")
	}

	if len(v.CouponPayments) == 0 {
		add("couponPayments", "at least one coupon payment row is required")
		return
	}
	for i, row := range v.CouponPayments {
		if row.BankAccountTo == "" {
			add(fmt.Sprintf("couponPayments[%d].bankAccountTo", i), "destination bank account is required")
		}
		if !row.CashOrderAmt.IsPositive() {
			add(fmt.Sprintf("couponPayments[%d].cashOrderAmt", i), "cash order amount must be greater than zero")
		}
	}
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
