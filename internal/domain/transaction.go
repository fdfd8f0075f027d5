package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Category represents the entry category offered to the operator
type Category string

const (
	CategoryDebit  Category = "debit"
	CategoryCredit Category = "credit"
)

// Status represents the lifecycle status of a transaction entry
type Status string

const (
	StatusDraft     Status = "Draft"
	StatusPending   Status = "Pending"
	StatusCompleted Status = "Completed"
	StatusCancelled Status = "Cancelled"
)

// Statuses is the full status vocabulary
var Statuses = []Status{StatusDraft, StatusPending, StatusCompleted, StatusCancelled}

// SubmitAction is the terminal action a reviewed transaction is sent with
type SubmitAction string

const (
	ActionDraft    SubmitAction = "draft"
	ActionPending  SubmitAction = "pending"
	ActionComplete SubmitAction = "complete"
)

// RequestName returns the action flag the platform backend expects
func (a SubmitAction) RequestName() string {
	return "request-" + string(a)
}

// Attachment is an uploaded supporting document. Byte upload is handled
// elsewhere; the engine only carries metadata.
type Attachment struct {
	FileName    string
	ContentType string
	Size        int64
}

// CouponRow is one holding's payment line in a coupon-payment entry
type CouponRow struct {
	ClientName         string
	OrganizationNum    string
	SubOrganizationNum string
	SubAccountNum      string
	EffectiveValueAmt  decimal.Decimal // settled holding value, read-only
	CashOrderAmt       decimal.Decimal // derived or user-entered net payment
	Currency           string
	BankAccountTo      string
}

// TransactionFormValues is the single mutable aggregate for one in-progress
// transaction entry. Hidden fields are retained regardless of visibility.
type TransactionFormValues struct {
	TransactionType  string
	Status           Status
	ClientName       string
	SubOrgName       string
	Currency         string
	Amount           *decimal.Decimal
	Fees             *decimal.Decimal
	BankCharges      *decimal.Decimal
	GSTAmount        *decimal.Decimal
	EffectiveDate    time.Time
	CreatedDate      time.Time
	BankAccount      string
	Description      string
	SupportingDocs   []Attachment
	InternalComments string

	// Coupon-only fields
	ISIN                 string
	SecurityName         string
	CouponPercentageRate *decimal.Decimal
	PaymentDate          time.Time
	CouponPayments       []CouponRow
	TotalCouponAmount    decimal.Decimal
}

// NewTransactionFormValues returns the default aggregate for a fresh entry
func NewTransactionFormValues(now time.Time) *TransactionFormValues {
	return &TransactionFormValues{
		Status:      StatusDraft,
		CreatedDate: now,
	}
}

// Clone returns a detached deep copy of the aggregate. The review phase
// displays a clone so later recomputation cannot mutate the frozen view.
func (v *TransactionFormValues) Clone() *TransactionFormValues {
	c := *v
	c.Amount = cloneDecimal(v.Amount)
	c.Fees = cloneDecimal(v.Fees)
	c.BankCharges = cloneDecimal(v.BankCharges)
	c.GSTAmount = cloneDecimal(v.GSTAmount)
	c.CouponPercentageRate = cloneDecimal(v.CouponPercentageRate)
	if v.SupportingDocs != nil {
		c.SupportingDocs = make([]Attachment, len(v.SupportingDocs))
		copy(c.SupportingDocs, v.SupportingDocs)
	}
	if v.CouponPayments != nil {
		c.CouponPayments = make([]CouponRow, len(v.CouponPayments))
		copy(c.CouponPayments, v.CouponPayments)
	}
	return &c
}

func cloneDecimal(d *decimal.Decimal) *decimal.Decimal {
	if d == nil {
		return nil
	}
	c := *d
	return &c
}

// IsKnownStatus reports whether s belongs to the status vocabulary
func IsKnownStatus(s Status) bool {
	for _, known := range Statuses {
		if s == known {
			return true
		}
	}
	return false
}
