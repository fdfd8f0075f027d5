package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/nestara/console-backend/internal/domain"
	"github.com/nestara/console-backend/internal/usecase/session"
)

func isPhaseError(err error) bool {
	return errors.Is(err, session.ErrInvalidPhase) ||
		errors.Is(err, session.ErrSessionClosed) ||
		errors.Is(err, session.ErrNoFrozenAggregate)
}

type createSessionInput struct {
	Category string `json:"category" binding:"required,oneof=debit credit"`
}

func (s *Server) createSession(c *gin.Context) {
	var input createSessionInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input: " + err.Error()})
		return
	}

	sess := s.newSession(domain.Category(input.Category))
	s.registry.Put(sess)

	// Warm the static lookups so the form opens with options in place.
	// A failed fetch is non-fatal: the collection stays empty.
	ref := sess.ReferenceData()
	ctx := c.Request.Context()
	if err := ref.LoadOrganizations(ctx); err != nil {
		s.log.Warn("organization fetch failed", zap.Error(err))
	}
	if err := ref.LoadCurrencies(ctx); err != nil {
		s.log.Warn("currency fetch failed", zap.Error(err))
	}
	if err := ref.LoadInstruments(ctx); err != nil {
		s.log.Warn("instrument fetch failed", zap.Error(err))
	}

	c.JSON(http.StatusCreated, newSessionView(sess))
}

func (s *Server) getSession(c *gin.Context) {
	sess, ok := s.sessionFromPath(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, newSessionView(sess))
}

func (s *Server) closeSession(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid session id"})
		return
	}
	s.registry.Remove(id)
	c.Status(http.StatusNoContent)
}

type transactionTypeInput struct {
	TransactionType string `json:"transactionType"`
}

func (s *Server) selectTransactionType(c *gin.Context) {
	sess, ok := s.sessionFromPath(c)
	if !ok {
		return
	}
	var input transactionTypeInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input: " + err.Error()})
		return
	}
	if err := sess.SelectTransactionType(input.TransactionType); err != nil {
		respondMutationError(c, err)
		return
	}
	c.JSON(http.StatusOK, newSessionView(sess))
}

type clientInput struct {
	OrgNum string `json:"orgNum"`
}

func (s *Server) selectClient(c *gin.Context) {
	sess, ok := s.sessionFromPath(c)
	if !ok {
		return
	}
	var input clientInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input: " + err.Error()})
		return
	}
	if err := sess.SelectClient(c.Request.Context(), input.OrgNum); err != nil {
		respondMutationError(c, err)
		return
	}
	c.JSON(http.StatusOK, newSessionView(sess))
}

type subOrganizationInput struct {
	SubOrgNum string `json:"subOrgNum"`
}

func (s *Server) selectSubOrganization(c *gin.Context) {
	sess, ok := s.sessionFromPath(c)
	if !ok {
		return
	}
	var input subOrganizationInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input: " + err.Error()})
		return
	}
	if err := sess.SelectSubOrganization(input.SubOrgNum); err != nil {
		respondMutationError(c, err)
		return
	}
	c.JSON(http.StatusOK, newSessionView(sess))
}

type currencyInput struct {
	Currency string `json:"currency"`
}

func (s *Server) selectCurrency(c *gin.Context) {
	sess, ok := s.sessionFromPath(c)
	if !ok {
		return
	}
	var input currencyInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input: " + err.Error()})
		return
	}
	if err := sess.SelectCurrency(c.Request.Context(), input.Currency); err != nil {
		respondMutationError(c, err)
		return
	}
	c.JSON(http.StatusOK, newSessionView(sess))
}

type bankAccountInput struct {
	BankAccountUID string `json:"bankAccountUid"`
}

func (s *Server) selectBankAccount(c *gin.Context) {
	sess, ok := s.sessionFromPath(c)
	if !ok {
		return
	}
	var input bankAccountInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input: " + err.Error()})
		return
	}
	if err := sess.SelectBankAccount(c.Request.Context(), input.BankAccountUID); err != nil {
		respondMutationError(c, err)
		return
	}
	c.JSON(http.StatusOK, newSessionView(sess))
}

// fieldsInput is a partial update: only the fields present in the request
// body are applied.
type fieldsInput struct {
	Status           *string          `json:"status"`
	Amount           *decimal.Decimal `json:"amount"`
	Fees             *decimal.Decimal `json:"fees"`
	BankCharges      *decimal.Decimal `json:"bankCharges"`
	GSTAmount        *decimal.Decimal `json:"gstAmount"`
	EffectiveDate    *string          `json:"effectiveDate"`
	PaymentDate      *string          `json:"paymentDate"`
	Description      *string          `json:"description"`
	InternalComments *string          `json:"internalComments"`
}

func (s *Server) updateFields(c *gin.Context) {
	sess, ok := s.sessionFromPath(c)
	if !ok {
		return
	}
	var input fieldsInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input: " + err.Error()})
		return
	}

	apply := func(err error) bool {
		if err != nil {
			respondMutationError(c, err)
			return false
		}
		return true
	}

	if input.Status != nil && !apply(sess.SetStatus(domain.Status(*input.Status))) {
		return
	}
	if input.Amount != nil && !apply(sess.SetAmount(input.Amount)) {
		return
	}
	if input.Fees != nil && !apply(sess.SetFees(input.Fees)) {
		return
	}
	if input.BankCharges != nil && !apply(sess.SetBankCharges(input.BankCharges)) {
		return
	}
	if input.GSTAmount != nil && !apply(sess.SetGSTAmount(input.GSTAmount)) {
		return
	}
	if input.EffectiveDate != nil {
		t, err := parseDate(*input.EffectiveDate)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid effectiveDate: " + err.Error()})
			return
		}
		if !apply(sess.SetEffectiveDate(t)) {
			return
		}
	}
	if input.PaymentDate != nil {
		t, err := parseDate(*input.PaymentDate)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid paymentDate: " + err.Error()})
			return
		}
		if !apply(sess.SetPaymentDate(t)) {
			return
		}
	}
	if input.Description != nil && !apply(sess.SetDescription(*input.Description)) {
		return
	}
	if input.InternalComments != nil && !apply(sess.SetInternalComments(*input.InternalComments)) {
		return
	}

	c.JSON(http.StatusOK, newSessionView(sess))
}

type isinInput struct {
	ISIN string `json:"isin"`
}

func (s *Server) selectISIN(c *gin.Context) {
	sess, ok := s.sessionFromPath(c)
	if !ok {
		return
	}
	var input isinInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input: " + err.Error()})
		return
	}
	if err := sess.SelectISIN(c.Request.Context(), input.ISIN); err != nil {
		respondMutationError(c, err)
		return
	}
	c.JSON(http.StatusOK, newSessionView(sess))
}

type couponRateInput struct {
	Rate *decimal.Decimal `json:"rate"`
}

func (s *Server) setCouponRate(c *gin.Context) {
	sess, ok := s.sessionFromPath(c)
	if !ok {
		return
	}
	var input couponRateInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input: " + err.Error()})
		return
	}
	if err := sess.SetCouponRate(input.Rate); err != nil {
		respondMutationError(c, err)
		return
	}
	c.JSON(http.StatusOK, newSessionView(sess))
}

type rowAmountInput struct {
	Amount decimal.Decimal `json:"amount"`
}

func (s *Server) editCouponRowAmount(c *gin.Context) {
	sess, ok := s.sessionFromPath(c)
	if !ok {
		return
	}
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid row index"})
		return
	}
	var input rowAmountInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input: " + err.Error()})
		return
	}
	if err := sess.EditCouponRowAmount(index, input.Amount); err != nil {
		respondMutationError(c, err)
		return
	}
	c.JSON(http.StatusOK, newSessionView(sess))
}

func (s *Server) setCouponRowBankAccount(c *gin.Context) {
	sess, ok := s.sessionFromPath(c)
	if !ok {
		return
	}
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid row index"})
		return
	}
	var input bankAccountInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input: " + err.Error()})
		return
	}
	if err := sess.SetCouponRowBankAccount(index, input.BankAccountUID); err != nil {
		respondMutationError(c, err)
		return
	}
	c.JSON(http.StatusOK, newSessionView(sess))
}

func (s *Server) submitForReview(c *gin.Context) {
	sess, ok := s.sessionFromPath(c)
	if !ok {
		return
	}
	errs, err := sess.SubmitForReview()
	if err != nil {
		respondMutationError(c, err)
		return
	}
	if !errs.OK() {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"errors": errs})
		return
	}
	c.JSON(http.StatusOK, newSessionView(sess))
}

func (s *Server) backToEdit(c *gin.Context) {
	sess, ok := s.sessionFromPath(c)
	if !ok {
		return
	}
	if err := sess.BackToEdit(); err != nil {
		respondMutationError(c, err)
		return
	}
	c.JSON(http.StatusOK, newSessionView(sess))
}

type confirmInput struct {
	Action string `json:"action" binding:"required,oneof=draft pending complete"`
}

func (s *Server) confirmAndSend(c *gin.Context) {
	sess, ok := s.sessionFromPath(c)
	if !ok {
		return
	}
	var input confirmInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input: " + err.Error()})
		return
	}
	ack, err := sess.ConfirmAndSend(c.Request.Context(), domain.SubmitAction(input.Action))
	if err != nil {
		if isPhaseError(err) {
			respondMutationError(c, err)
			return
		}
		// Submission failure: the session stays in Reviewing; the operator
		// can retry or go back.
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, ack)
}

func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(dateLayout, s)
}
