package domain

import (
	"context"

	"github.com/shopspring/decimal"
)

// Organization is a client organization on the platform
type Organization struct {
	OrgNum string
	Name   string
}

// SubOrganization is a subdivision of a client organization
type SubOrganization struct {
	SubOrgNum string
	OrgNum    string
	Name      string
}

// Currency is an ISO-like currency code entry
type Currency struct {
	Code string
	Name string
}

// BankAccount is a platform bank account, scoped to a single currency
type BankAccount struct {
	UID        string
	Name       string
	AccountNum string
	Currency   string
}

// Instrument is a tradable security identified by its ISIN
type Instrument struct {
	ISIN         string
	SecurityName string
}

// InstrumentDetail carries the per-instrument attributes needed for a
// coupon-payment entry
type InstrumentDetail struct {
	ISIN         string
	SecurityName string
	CouponRate   *decimal.Decimal
}

// Holding is a client's settled position in an instrument. Its effective
// value amount is the base for coupon calculation.
type Holding struct {
	ClientName         string
	OrganizationNum    string
	SubOrganizationNum string
	SubAccountNum      string
	EffectiveValueAmt  decimal.Decimal
	Currency           string
}

// ReferenceDataSource supplies the read-only lookup collections the form
// engine depends on. Implementations talk to the platform backend.
type ReferenceDataSource interface {
	Organizations(ctx context.Context) ([]Organization, error)

	// SubOrganizations returns the subdivisions of one organization
	SubOrganizations(ctx context.Context, orgNum string) ([]SubOrganization, error)

	Currencies(ctx context.Context) ([]Currency, error)

	// BankAccounts returns accounts filtered by currency; an empty currency
	// returns the unfiltered collection
	BankAccounts(ctx context.Context, currency string) ([]BankAccount, error)

	Instruments(ctx context.Context) ([]Instrument, error)

	// Holdings returns the settled positions for one instrument
	Holdings(ctx context.Context, isin string) ([]Holding, error)

	InstrumentDetail(ctx context.Context, isin string) (*InstrumentDetail, error)
}
