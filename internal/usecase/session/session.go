// Package session implements the transaction form state machine: one
// Session owns the mutable aggregate for one in-progress entry, applies the
// dependent-field reset rules on every mutation, and walks the
// Editing -> Reviewing -> Submitted lifecycle.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/nestara/console-backend/internal/domain"
	"github.com/nestara/console-backend/internal/logging"
	"github.com/nestara/console-backend/internal/usecase/coupon"
	"github.com/nestara/console-backend/internal/usecase/payload"
	"github.com/nestara/console-backend/internal/usecase/refdata"
	"github.com/nestara/console-backend/internal/usecase/rules"
)

// Phase is the lifecycle phase of a form session
type Phase string

const (
	PhaseEditing   Phase = "Editing"
	PhaseReviewing Phase = "Reviewing"
	PhaseSubmitted Phase = "Submitted"
)

var (
	ErrSessionClosed     = errors.New("session is closed")
	ErrInvalidPhase      = errors.New("operation not allowed in current phase")
	ErrDescriptionLocked = errors.New("description is not editable for this transaction type")
	ErrNotCouponType     = errors.New("operation only applies to coupon-payment transactions")
	ErrUnknownSubOrg     = errors.New("sub-organization does not belong to the selected organization")
	// ErrNoFrozenAggregate signals a defect: confirm was invoked without a
	// frozen review copy.
	ErrNoFrozenAggregate = errors.New("no frozen aggregate to confirm")
)

// SubmissionAck is the backend's acknowledgement of a created transaction
type SubmissionAck struct {
	TransactionID string `json:"transactionId"`
	Status        string `json:"status"`
}

// Submitter sends the built payload to the platform backend
type Submitter interface {
	SubmitCashTransaction(ctx context.Context, req payload.Request) (*SubmissionAck, error)
}

// Session is the stateful orchestrator for one transaction entry. All leaf
// computation (distribution, validation, payload mapping) is delegated to
// pure components; the session only sequences them and owns the aggregate.
// Safe for concurrent use: mutations from parallel console requests are
// serialized per session.
type Session struct {
	ID uuid.UUID

	mu        sync.Mutex
	category  domain.Category
	phase     Phase
	closed    bool
	values    *domain.TransactionFormValues
	frozen    *domain.TransactionFormValues
	engine    *coupon.Engine
	refdata   *refdata.Provider
	submitter Submitter
	log       *logging.Logger
	now       func() time.Time
}

// New creates a session in the Editing phase for the given category
func New(category domain.Category, provider *refdata.Provider, submitter Submitter, log *logging.Logger) *Session {
	s := &Session{
		ID:        uuid.New(),
		category:  category,
		phase:     PhaseEditing,
		engine:    coupon.NewEngine(),
		refdata:   provider,
		submitter: submitter,
		log:       log,
		now:       time.Now,
	}
	s.values = domain.NewTransactionFormValues(s.now())
	return s
}

// Phase returns the current lifecycle phase
func (s *Session) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// Category returns the selected entry category
func (s *Session) Category() domain.Category {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.category
}

// Values returns a detached copy of the editable aggregate
func (s *Session) Values() *domain.TransactionFormValues {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.values.Clone()
}

// ReviewValues returns a detached copy of the frozen aggregate, or nil
// outside the Reviewing phase
func (s *Session) ReviewValues() *domain.TransactionFormValues {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.frozen == nil {
		return nil
	}
	return s.frozen.Clone()
}

// Descriptor returns the field-visibility descriptor for the currently
// selected transaction type
func (s *Session) Descriptor() domain.FieldVisibilityDescriptor {
	s.mu.Lock()
	defer s.mu.Unlock()
	return domain.ResolveFieldVisibility(s.values.TransactionType)
}

// ReferenceData exposes the session's reference-data provider
func (s *Session) ReferenceData() *refdata.Provider {
	return s.refdata
}

// TypeOptions returns the transaction-type vocabulary for the session's
// category
func (s *Session) TypeOptions() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return domain.TypesForCategory(s.category)
}

// editable must be called with the lock held
func (s *Session) editable() error {
	if s.closed {
		return ErrSessionClosed
	}
	if s.phase != PhaseEditing {
		return ErrInvalidPhase
	}
	return nil
}

// SelectCategory switches the entry category and resets the entire
// aggregate to defaults
func (s *Session) SelectCategory(category domain.Category) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.editable(); err != nil {
		return err
	}
	s.category = category
	s.values = domain.NewTransactionFormValues(s.now())
	s.engine.Reset("")
	return nil
}

// SelectTransactionType changes the type: the optional monetary fields are
// reset, the visibility descriptor is re-resolved, and the description is
// auto-filled from the descriptor's template (or cleared when the template
// is empty).
func (s *Session) SelectTransactionType(transactionType string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.editable(); err != nil {
		return err
	}
	s.values.TransactionType = transactionType
	s.values.Fees = nil
	s.values.BankCharges = nil
	s.values.GSTAmount = nil
	desc := domain.ResolveFieldVisibility(transactionType)
	s.values.Description = desc.DescriptionAutoFill
	return nil
}

// SelectClient changes the organization: the sub-organization is cleared,
// the dependent collection is refetched, and a sole entry is auto-selected.
func (s *Session) SelectClient(ctx context.Context, orgNum string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.editable(); err != nil {
		return err
	}
	s.values.ClientName = orgNum
	s.values.SubOrgName = ""
	if err := s.refdata.LoadSubOrganizations(ctx, orgNum); err != nil {
		s.log.Warn("sub-organization fetch failed", zap.String("orgNum", orgNum), zap.Error(err))
	}
	if sole, ok := s.refdata.SoleSubOrganization(); ok {
		s.values.SubOrgName = sole.SubOrgNum
	}
	return nil
}

// SelectSubOrganization picks a subdivision of the selected organization
func (s *Session) SelectSubOrganization(subOrgNum string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.editable(); err != nil {
		return err
	}
	if subOrgNum != "" && !s.refdata.HasSubOrganization(subOrgNum) {
		return ErrUnknownSubOrg
	}
	s.values.SubOrgName = subOrgNum
	return nil
}

// SelectCurrency changes the currency: the bank account is cleared, the
// currency-filtered account collection is refetched, and a sole entry is
// auto-selected.
func (s *Session) SelectCurrency(ctx context.Context, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.editable(); err != nil {
		return err
	}
	s.values.Currency = code
	s.values.BankAccount = ""
	if err := s.refdata.LoadBankAccounts(ctx, code); err != nil {
		s.log.Warn("bank-account fetch failed", zap.String("currency", code), zap.Error(err))
	}
	if sole, ok := s.refdata.SoleBankAccount(); ok {
		s.values.BankAccount = sole.UID
	}
	return nil
}

// SelectBankAccount picks an account. Choosing an account before a currency
// back-fills the currency from the account.
func (s *Session) SelectBankAccount(ctx context.Context, uid string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.editable(); err != nil {
		return err
	}
	s.values.BankAccount = uid
	if s.values.Currency == "" {
		if acct, ok := s.refdata.BankAccountByUID(uid); ok {
			s.values.Currency = acct.Currency
			if err := s.refdata.LoadBankAccounts(ctx, acct.Currency); err != nil {
				s.log.Warn("bank-account refetch failed", zap.String("currency", acct.Currency), zap.Error(err))
			}
		}
	}
	return nil
}

// SetStatus assigns the transaction status
func (s *Session) SetStatus(status domain.Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.editable(); err != nil {
		return err
	}
	s.values.Status = status
	return nil
}

// SetAmount assigns the top-level amount
func (s *Session) SetAmount(amount *decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.editable(); err != nil {
		return err
	}
	s.values.Amount = amount
	return nil
}

// SetFees assigns the fees field
func (s *Session) SetFees(fees *decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.editable(); err != nil {
		return err
	}
	s.values.Fees = fees
	return nil
}

// SetBankCharges assigns the bank-charges field
func (s *Session) SetBankCharges(charges *decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.editable(); err != nil {
		return err
	}
	s.values.BankCharges = charges
	return nil
}

// SetGSTAmount assigns the GST field
func (s *Session) SetGSTAmount(gst *decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.editable(); err != nil {
		return err
	}
	s.values.GSTAmount = gst
	return nil
}

// SetEffectiveDate assigns the effective date
func (s *Session) SetEffectiveDate(t time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.editable(); err != nil {
		return err
	}
	s.values.EffectiveDate = t
	return nil
}

// SetPaymentDate assigns the coupon payment date
func (s *Session) SetPaymentDate(t time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.editable(); err != nil {
		return err
	}
	s.values.PaymentDate = t
	return nil
}

// SetDescription assigns the free-text description when the active
// descriptor allows editing it
func (s *Session) SetDescription(text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.editable(); err != nil {
		return err
	}
	if !domain.ResolveFieldVisibility(s.values.TransactionType).DescriptionEditable {
		return ErrDescriptionLocked
	}
	s.values.Description = text
	return nil
}

// SetInternalComments assigns the internal notes
func (s *Session) SetInternalComments(text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.editable(); err != nil {
		return err
	}
	s.values.InternalComments = text
	return nil
}

// AddSupportingDoc appends an attachment reference
func (s *Session) AddSupportingDoc(doc domain.Attachment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.editable(); err != nil {
		return err
	}
	s.values.SupportingDocs = append(s.values.SupportingDocs, doc)
	return nil
}

// SubmitForReview validates the aggregate against the active descriptor.
// On success the session freezes a detached copy for display and moves to
// Reviewing; on failure the field-addressed errors are returned and the
// phase is unchanged.
func (s *Session) SubmitForReview() (rules.Errors, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.editable(); err != nil {
		return nil, err
	}
	errs := rules.Validate(rules.Input{
		Values:             s.values,
		Category:           s.category,
		Descriptor:         domain.ResolveFieldVisibility(s.values.TransactionType),
		BankAccountOptions: s.refdata.BankAccountCount(),
		Now:                s.now(),
	})
	if !errs.OK() {
		return errs, nil
	}
	s.frozen = s.values.Clone()
	s.phase = PhaseReviewing
	return nil, nil
}

// BackToEdit returns from review to editing. The editable aggregate was
// never mutated during review, so nothing is lost.
func (s *Session) BackToEdit() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	if s.phase != PhaseReviewing {
		return ErrInvalidPhase
	}
	s.frozen = nil
	s.phase = PhaseEditing
	return nil
}

// ConfirmAndSend builds the payload from the frozen aggregate and submits
// it with the chosen action. On backend failure the session stays in
// Reviewing with all data intact so the operator can retry or go back.
func (s *Session) ConfirmAndSend(ctx context.Context, action domain.SubmitAction) (*SubmissionAck, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrSessionClosed
	}
	if s.phase != PhaseReviewing {
		return nil, ErrInvalidPhase
	}
	if s.frozen == nil {
		return nil, ErrNoFrozenAggregate
	}
	req := payload.Build(s.frozen, action)
	ack, err := s.submitter.SubmitCashTransaction(ctx, req)
	if err != nil {
		s.log.Warn("transaction submission failed", zap.String("action", string(action)), zap.Error(err))
		return nil, err
	}
	s.phase = PhaseSubmitted
	s.log.Info("transaction submitted",
		zap.String("transactionType", s.frozen.TransactionType),
		zap.String("action", string(action)),
		zap.String("transactionId", ack.TransactionID),
	)
	return ack, nil
}

// Close discards the session. Any in-flight reference-data fetch is
// abandoned; its late result is rejected by the provider's dependency guard.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
}

// Closed reports whether the session has been discarded
func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
