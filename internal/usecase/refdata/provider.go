// Package refdata supplies the read-only lookup collections the form engine
// depends on. Each collection carries its own loading flag, and dependent
// collections are keyed by their dependency value so a stale response for a
// previously selected organization or ISIN can never overwrite state for a
// newly selected one.
package refdata

import (
	"context"
	"sync"
	"time"

	"github.com/nestara/console-backend/internal/domain"
)

// DefaultCacheTTL is how long the static collections (organizations,
// currencies, instruments) are served from memory before a refetch.
const DefaultCacheTTL = 5 * time.Minute

// Provider holds one session's view of the reference data
type Provider struct {
	source   domain.ReferenceDataSource
	cacheTTL time.Duration
	now      func() time.Time

	mu sync.Mutex

	organizations        []domain.Organization
	organizationsAt      time.Time
	organizationsLoading bool

	currencies        []domain.Currency
	currenciesAt      time.Time
	currenciesLoading bool

	instruments        []domain.Instrument
	instrumentsAt      time.Time
	instrumentsLoading bool

	subOrgs        []domain.SubOrganization
	subOrgsKey     string
	subOrgsLoading bool

	bankAccounts        []domain.BankAccount
	bankAccountsKey     string
	bankAccountsLoading bool

	holdings        []domain.Holding
	holdingsKey     string
	holdingsLoading bool

	detail        *domain.InstrumentDetail
	detailKey     string
	detailLoading bool
}

// NewProvider creates a provider over the given source
func NewProvider(source domain.ReferenceDataSource) *Provider {
	return &Provider{
		source:   source,
		cacheTTL: DefaultCacheTTL,
		now:      time.Now,
	}
}

// LoadOrganizations fetches the organization collection unless a fresh
// cached copy exists
func (p *Provider) LoadOrganizations(ctx context.Context) error {
	p.mu.Lock()
	if p.organizations != nil && p.now().Sub(p.organizationsAt) < p.cacheTTL {
		p.mu.Unlock()
		return nil
	}
	p.organizationsLoading = true
	p.mu.Unlock()

	items, err := p.source.Organizations(ctx)

	p.mu.Lock()
	defer p.mu.Unlock()
	p.organizationsLoading = false
	if err != nil {
		return err
	}
	p.organizations = items
	p.organizationsAt = p.now()
	return nil
}

// Organizations returns the collection and its loading flag
func (p *Provider) Organizations() ([]domain.Organization, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.organizations, p.organizationsLoading
}

// LoadCurrencies fetches the currency collection unless a fresh cached copy
// exists
func (p *Provider) LoadCurrencies(ctx context.Context) error {
	p.mu.Lock()
	if p.currencies != nil && p.now().Sub(p.currenciesAt) < p.cacheTTL {
		p.mu.Unlock()
		return nil
	}
	p.currenciesLoading = true
	p.mu.Unlock()

	items, err := p.source.Currencies(ctx)

	p.mu.Lock()
	defer p.mu.Unlock()
	p.currenciesLoading = false
	if err != nil {
		return err
	}
	p.currencies = items
	p.currenciesAt = p.now()
	return nil
}

// Currencies returns the collection and its loading flag
func (p *Provider) Currencies() ([]domain.Currency, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.currencies, p.currenciesLoading
}

// LoadInstruments fetches the instrument list unless a fresh cached copy
// exists
func (p *Provider) LoadInstruments(ctx context.Context) error {
	p.mu.Lock()
	if p.instruments != nil && p.now().Sub(p.instrumentsAt) < p.cacheTTL {
		p.mu.Unlock()
		return nil
	}
	p.instrumentsLoading = true
	p.mu.Unlock()

	items, err := p.source.Instruments(ctx)

	p.mu.Lock()
	defer p.mu.Unlock()
	p.instrumentsLoading = false
	if err != nil {
		return err
	}
	p.instruments = items
	p.instrumentsAt = p.now()
	return nil
}

// Instruments returns the collection and its loading flag
func (p *Provider) Instruments() ([]domain.Instrument, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.instruments, p.instrumentsLoading
}

// LoadSubOrganizations fetches the subdivisions of one organization. An
// empty orgNum clears the collection without fetching. A response is applied
// only if orgNum is still the current dependency when it arrives.
func (p *Provider) LoadSubOrganizations(ctx context.Context, orgNum string) error {
	p.mu.Lock()
	p.subOrgsKey = orgNum
	p.subOrgs = nil
	if orgNum == "" {
		p.subOrgsLoading = false
		p.mu.Unlock()
		return nil
	}
	p.subOrgsLoading = true
	p.mu.Unlock()

	items, err := p.source.SubOrganizations(ctx, orgNum)

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.subOrgsKey != orgNum {
		// Superseded by a newer selection; discard
		return nil
	}
	p.subOrgsLoading = false
	if err != nil {
		return err
	}
	p.subOrgs = items
	return nil
}

// SubOrganizations returns the collection and its loading flag
func (p *Provider) SubOrganizations() ([]domain.SubOrganization, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.subOrgs, p.subOrgsLoading
}

// SoleSubOrganization returns the only entry when the collection has
// exactly one
func (p *Provider) SoleSubOrganization() (*domain.SubOrganization, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.subOrgs) != 1 {
		return nil, false
	}
	s := p.subOrgs[0]
	return &s, true
}

// HasSubOrganization reports whether subOrgNum belongs to the loaded
// collection
func (p *Provider) HasSubOrganization(subOrgNum string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, s := range p.subOrgs {
		if s.SubOrgNum == subOrgNum {
			return true
		}
	}
	return false
}

// LoadBankAccounts fetches accounts filtered by currency. An empty currency
// fetches the unfiltered collection (used before a currency is chosen, so a
// bank-account pick can back-fill the currency).
func (p *Provider) LoadBankAccounts(ctx context.Context, currency string) error {
	p.mu.Lock()
	p.bankAccountsKey = currency
	p.bankAccounts = nil
	p.bankAccountsLoading = true
	p.mu.Unlock()

	items, err := p.source.BankAccounts(ctx, currency)

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.bankAccountsKey != currency {
		return nil
	}
	p.bankAccountsLoading = false
	if err != nil {
		return err
	}
	p.bankAccounts = items
	return nil
}

// BankAccounts returns the collection and its loading flag
func (p *Provider) BankAccounts() ([]domain.BankAccount, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.bankAccounts, p.bankAccountsLoading
}

// BankAccountCount returns the size of the loaded collection
func (p *Provider) BankAccountCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.bankAccounts)
}

// SoleBankAccount returns the only entry when the collection has exactly one
func (p *Provider) SoleBankAccount() (*domain.BankAccount, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.bankAccounts) != 1 {
		return nil, false
	}
	a := p.bankAccounts[0]
	return &a, true
}

// BankAccountByUID looks up an account in the loaded collection
func (p *Provider) BankAccountByUID(uid string) (*domain.BankAccount, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, a := range p.bankAccounts {
		if a.UID == uid {
			acct := a
			return &acct, true
		}
	}
	return nil, false
}

// LoadHoldings fetches the settled positions for one instrument, with the
// same supersede guard as the other dependent collections
func (p *Provider) LoadHoldings(ctx context.Context, isin string) error {
	p.mu.Lock()
	p.holdingsKey = isin
	p.holdings = nil
	if isin == "" {
		p.holdingsLoading = false
		p.mu.Unlock()
		return nil
	}
	p.holdingsLoading = true
	p.mu.Unlock()

	items, err := p.source.Holdings(ctx, isin)

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.holdingsKey != isin {
		return nil
	}
	p.holdingsLoading = false
	if err != nil {
		return err
	}
	p.holdings = items
	return nil
}

// Holdings returns the collection and its loading flag
func (p *Provider) Holdings() ([]domain.Holding, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.holdings, p.holdingsLoading
}

// LoadInstrumentDetail fetches the per-instrument attributes for one ISIN
func (p *Provider) LoadInstrumentDetail(ctx context.Context, isin string) error {
	p.mu.Lock()
	p.detailKey = isin
	p.detail = nil
	if isin == "" {
		p.detailLoading = false
		p.mu.Unlock()
		return nil
	}
	p.detailLoading = true
	p.mu.Unlock()

	detail, err := p.source.InstrumentDetail(ctx, isin)

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.detailKey != isin {
		return nil
	}
	p.detailLoading = false
	if err != nil {
		return err
	}
	p.detail = detail
	return nil
}

// InstrumentDetail returns the loaded detail and its loading flag
func (p *Provider) InstrumentDetail() (*domain.InstrumentDetail, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.detail, p.detailLoading
}
