// Package httpapi is the JSON surface the administrative console UI drives
// form sessions through.
package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/nestara/console-backend/internal/domain"
	"github.com/nestara/console-backend/internal/logging"
	"github.com/nestara/console-backend/internal/usecase/refdata"
	"github.com/nestara/console-backend/internal/usecase/session"
)

// Server wires the session registry to the gin router
type Server struct {
	registry  *Registry
	source    domain.ReferenceDataSource
	submitter session.Submitter
	log       *logging.Logger
	router    *gin.Engine
}

// NewServer creates the API server. An empty token disables authentication
// (local development only).
func NewServer(source domain.ReferenceDataSource, submitter session.Submitter, token string, log *logging.Logger) *Server {
	s := &Server{
		registry:  NewRegistry(),
		source:    source,
		submitter: submitter,
		log:       log.Named("httpapi"),
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	api := router.Group("/api/v1")
	if token != "" {
		api.Use(AuthMiddleware(token))
	}

	api.POST("/sessions", s.createSession)
	api.GET("/sessions/:id", s.getSession)
	api.DELETE("/sessions/:id", s.closeSession)

	api.PUT("/sessions/:id/transaction-type", s.selectTransactionType)
	api.PUT("/sessions/:id/client", s.selectClient)
	api.PUT("/sessions/:id/sub-organization", s.selectSubOrganization)
	api.PUT("/sessions/:id/currency", s.selectCurrency)
	api.PUT("/sessions/:id/bank-account", s.selectBankAccount)
	api.PUT("/sessions/:id/fields", s.updateFields)

	api.PUT("/sessions/:id/isin", s.selectISIN)
	api.PUT("/sessions/:id/coupon-rate", s.setCouponRate)
	api.PUT("/sessions/:id/coupon-rows/:index/amount", s.editCouponRowAmount)
	api.PUT("/sessions/:id/coupon-rows/:index/bank-account", s.setCouponRowBankAccount)

	api.POST("/sessions/:id/review", s.submitForReview)
	api.POST("/sessions/:id/back", s.backToEdit)
	api.POST("/sessions/:id/confirm", s.confirmAndSend)

	s.router = router
	return s
}

// Handler returns the underlying http.Handler
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) sessionFromPath(c *gin.Context) (*session.Session, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid session id"})
		return nil, false
	}
	sess, ok := s.registry.Get(id)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return nil, false
	}
	return sess, true
}

// respondMutationError maps session errors to HTTP statuses: phase
// violations conflict with the session's lifecycle (409), everything else
// is a bad request.
func respondMutationError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, session.ErrInvalidPhase), errors.Is(err, session.ErrSessionClosed):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	}
}

func (s *Server) newSession(category domain.Category) *session.Session {
	provider := refdata.NewProvider(s.source)
	return session.New(category, provider, s.submitter, s.log)
}
