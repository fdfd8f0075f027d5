// Package payload transforms a validated form aggregate into the wire
// payload the platform backend accepts on POST /transactions/cash.
package payload

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/nestara/console-backend/internal/domain"
)

const dateLayout = "2006-01-02"

// Request is the full body of the transaction-creation call: the chosen
// terminal action plus the mapped form data.
type Request struct {
	Action string  `json:"action"`
	Data   Payload `json:"data"`
}

// Payload is the data fragment of the transaction-creation request. Optional
// monetary fields are kept as explicit nulls, never omitted.
type Payload struct {
	TransactionType  string           `json:"transactionType"`
	Status           string           `json:"status"`
	OrgNum           string           `json:"orgNum"`
	SubOrgNum        string           `json:"subOrgNum"`
	Currency         string           `json:"currency"`
	Amount           *decimal.Decimal `json:"amount"`
	Fees             *decimal.Decimal `json:"fees"`
	BankCharges      *decimal.Decimal `json:"bankCharges"`
	GSTAmount        *decimal.Decimal `json:"gstAmount"`
	EffectiveDate    string           `json:"effectiveDate"`
	CreatedDate      string           `json:"createdDate"`
	BankAccountUID   string           `json:"bankAccountUid"`
	Description      string           `json:"description"`
	DocumentNames    []string         `json:"documentNames"`
	InternalComments string           `json:"internalComments"`

	Coupon *CouponFragment `json:"coupon,omitempty"`
}

// CouponFragment is appended only for coupon-payment transactions
type CouponFragment struct {
	ISIN                 string          `json:"isin"`
	SecurityName         string          `json:"securityName"`
	CouponPercentageRate decimal.Decimal `json:"couponPercentageRate"`
	PaymentDate          string          `json:"paymentDate"`
	TotalCouponAmount    decimal.Decimal `json:"totalCouponAmount"`
	Payments             []RowPayload    `json:"payments"`
}

// RowPayload is one holding's payment line on the wire
type RowPayload struct {
	OrgNum            string          `json:"orgNum"`
	SubOrgNum         string          `json:"subOrgNum"`
	SubAccountNum     string          `json:"subAccountNum"`
	EffectiveValueAmt decimal.Decimal `json:"effectiveValueAmt"`
	CashOrderAmt      decimal.Decimal `json:"cashOrderAmt"`
	Currency          string          `json:"currency"`
	BankAccountTo     string          `json:"bankAccountTo"`
}

// Build maps the aggregate and the chosen terminal action to the wire
// request. Pure and total: every aggregate that passed validation (and any
// that did not) produces a request without error.
func Build(v *domain.TransactionFormValues, action domain.SubmitAction) Request {
	return Request{
		Action: action.RequestName(),
		Data:   buildData(v),
	}
}

func buildData(v *domain.TransactionFormValues) Payload {
	p := Payload{
		TransactionType:  kebabCase(v.TransactionType),
		Status:           string(v.Status),
		OrgNum:           v.ClientName,
		SubOrgNum:        v.SubOrgName,
		Currency:         v.Currency,
		Amount:           v.Amount,
		Fees:             v.Fees,
		BankCharges:      v.BankCharges,
		GSTAmount:        v.GSTAmount,
		EffectiveDate:    formatDate(v.EffectiveDate),
		CreatedDate:      formatDate(v.CreatedDate),
		BankAccountUID:   v.BankAccount,
		Description:      v.Description,
		DocumentNames:    documentNames(v.SupportingDocs),
		InternalComments: v.InternalComments,
	}

	if v.TransactionType == domain.TypeCouponPayment {
		p.Coupon = buildCouponFragment(v)
	}

	return p
}

func buildCouponFragment(v *domain.TransactionFormValues) *CouponFragment {
	rate := decimal.Zero
	if v.CouponPercentageRate != nil {
		rate = *v.CouponPercentageRate
	}
	payments := make([]RowPayload, 0, len(v.CouponPayments))
	for _, row := range v.CouponPayments {
		payments = append(payments, RowPayload{
			OrgNum:            row.OrganizationNum,
			SubOrgNum:         row.SubOrganizationNum,
			SubAccountNum:     row.SubAccountNum,
			EffectiveValueAmt: row.EffectiveValueAmt,
			CashOrderAmt:      row.CashOrderAmt,
			Currency:          row.Currency,
			BankAccountTo:     row.BankAccountTo,
		})
	}
	return &CouponFragment{
		ISIN:                 v.ISIN,
		SecurityName:         v.SecurityName,
		CouponPercentageRate: rate,
		PaymentDate:          formatDate(v.PaymentDate),
		TotalCouponAmount:    v.TotalCouponAmount,
		Payments:             payments,
	}
}

// documentNames reduces attachment blobs to their file names; the byte
// upload itself is handled by the document service, not this engine.
func documentNames(docs []domain.Attachment) []string {
	names := make([]string, 0, len(docs))
	for _, d := range docs {
		names = append(names, d.FileName)
	}
	return names
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(dateLayout)
}

func kebabCase(s string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), " ", "-")
}
