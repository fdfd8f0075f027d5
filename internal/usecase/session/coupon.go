package session

import (
	"context"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/nestara/console-backend/internal/domain"
)

// SelectISIN changes the coupon instrument: existing payment rows are
// discarded, the description is regenerated, the payment date defaults to
// today when unset, and holdings plus instrument detail are fetched for the
// new selection. Row initialization runs exactly once per ISIN selection.
func (s *Session) SelectISIN(ctx context.Context, isin string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.editable(); err != nil {
		return err
	}
	if s.values.TransactionType != domain.TypeCouponPayment {
		return ErrNotCouponType
	}

	s.values.ISIN = isin
	s.values.SecurityName = ""
	s.values.CouponPayments = nil
	s.values.TotalCouponAmount = decimal.Zero
	s.engine.Reset(isin)

	if isin == "" {
		s.values.Description = domain.TypeCouponPayment
		return nil
	}

	s.values.Description = domain.TypeCouponPayment + " " + isin
	if s.values.PaymentDate.IsZero() {
		s.values.PaymentDate = s.now()
	}

	if err := s.refdata.LoadHoldings(ctx, isin); err != nil {
		s.log.Warn("holdings fetch failed", zap.String("isin", isin), zap.Error(err))
	}
	if err := s.refdata.LoadInstrumentDetail(ctx, isin); err != nil {
		s.log.Warn("instrument detail fetch failed", zap.String("isin", isin), zap.Error(err))
	}

	if detail, _ := s.refdata.InstrumentDetail(); detail != nil && detail.ISIN == isin {
		s.values.SecurityName = detail.SecurityName
	}

	// The ISIN may have changed again while the fetch was in flight; only
	// holdings for the current selection seed rows.
	if s.engine.ISIN() != isin || s.engine.HasRows() {
		return nil
	}
	holdings, _ := s.refdata.Holdings()
	s.values.CouponPayments = s.engine.InitializeFromHoldings(holdings)
	if s.values.CouponPercentageRate != nil {
		s.values.CouponPayments = s.engine.ApplyRateChange(s.values.CouponPercentageRate)
	}
	s.values.TotalCouponAmount = s.engine.Total()
	return nil
}

// SetCouponRate drives every non-edited row from the new percentage rate
// and refreshes the running total
func (s *Session) SetCouponRate(rate *decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.editable(); err != nil {
		return err
	}
	if s.values.TransactionType != domain.TypeCouponPayment {
		return ErrNotCouponType
	}
	s.values.CouponPercentageRate = rate
	if rows := s.engine.ApplyRateChange(rate); rows != nil {
		s.values.CouponPayments = rows
	}
	s.values.TotalCouponAmount = s.engine.Total()
	return nil
}

// EditCouponRowAmount fixes one row to a user-entered amount. The implied
// rate derived from that row redrives the remaining rows and replaces the
// form's percentage rate.
func (s *Session) EditCouponRowAmount(index int, value decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.editable(); err != nil {
		return err
	}
	if s.values.TransactionType != domain.TypeCouponPayment {
		return ErrNotCouponType
	}
	rows, implied := s.engine.ApplyManualRowEdit(index, value)
	if rows != nil {
		s.values.CouponPayments = rows
	}
	if implied != nil {
		s.values.CouponPercentageRate = implied
	}
	s.values.TotalCouponAmount = s.engine.Total()
	return nil
}

// SetCouponRowBankAccount assigns one row's destination account
func (s *Session) SetCouponRowBankAccount(index int, bankAccountUID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.editable(); err != nil {
		return err
	}
	if s.values.TransactionType != domain.TypeCouponPayment {
		return ErrNotCouponType
	}
	if rows := s.engine.ApplyBankAccountChange(index, bankAccountUID); rows != nil {
		s.values.CouponPayments = rows
	}
	return nil
}
