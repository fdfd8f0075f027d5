package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/nestara/console-backend/internal/domain"
	"github.com/nestara/console-backend/internal/logging"
	"github.com/nestara/console-backend/internal/usecase/payload"
	"github.com/nestara/console-backend/internal/usecase/session"
)

type mockRefSource struct {
	mock.Mock
}

func (m *mockRefSource) Organizations(ctx context.Context) ([]domain.Organization, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Organization), args.Error(1)
}

func (m *mockRefSource) SubOrganizations(ctx context.Context, orgNum string) ([]domain.SubOrganization, error) {
	args := m.Called(ctx, orgNum)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.SubOrganization), args.Error(1)
}

func (m *mockRefSource) Currencies(ctx context.Context) ([]domain.Currency, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Currency), args.Error(1)
}

func (m *mockRefSource) BankAccounts(ctx context.Context, currency string) ([]domain.BankAccount, error) {
	args := m.Called(ctx, currency)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.BankAccount), args.Error(1)
}

func (m *mockRefSource) Instruments(ctx context.Context) ([]domain.Instrument, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Instrument), args.Error(1)
}

func (m *mockRefSource) Holdings(ctx context.Context, isin string) ([]domain.Holding, error) {
	args := m.Called(ctx, isin)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Holding), args.Error(1)
}

func (m *mockRefSource) InstrumentDetail(ctx context.Context, isin string) (*domain.InstrumentDetail, error) {
	args := m.Called(ctx, isin)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.InstrumentDetail), args.Error(1)
}

type mockSubmitter struct {
	mock.Mock
}

func (m *mockSubmitter) SubmitCashTransaction(ctx context.Context, req payload.Request) (*session.SubmissionAck, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*session.SubmissionAck), args.Error(1)
}

type testServer struct {
	server    *Server
	source    *mockRefSource
	submitter *mockSubmitter
	token     string
}

func newTestServer(t *testing.T, token string) *testServer {
	t.Helper()
	source := new(mockRefSource)
	submitter := new(mockSubmitter)

	// Static lookups warmed on session creation
	source.On("Organizations", mock.Anything).
		Return([]domain.Organization{{OrgNum: "org1", Name: "Acme Capital"}}, nil).Maybe()
	source.On("Currencies", mock.Anything).
		Return([]domain.Currency{{Code: "USD"}, {Code: "SGD"}}, nil).Maybe()
	source.On("Instruments", mock.Anything).
		Return([]domain.Instrument{{ISIN: "XS1", SecurityName: "Bond One"}}, nil).Maybe()

	return &testServer{
		server:    NewServer(source, submitter, token, logging.NewNopLogger()),
		source:    source,
		submitter: submitter,
		token:     token,
	}
}

func (ts *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if ts.token != "" {
		req.Header.Set("Authorization", "Bearer "+ts.token)
	}
	rec := httptest.NewRecorder()
	ts.server.Handler().ServeHTTP(rec, req)
	return rec
}

func (ts *testServer) createSession(t *testing.T, category string) string {
	t.Helper()
	rec := ts.do(t, http.MethodPost, "/api/v1/sessions", gin.H{"category": category})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var view struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	require.NotEmpty(t, view.ID)
	return view.ID
}

func TestAuth_RejectsMissingAndWrongToken(t *testing.T) {
	ts := newTestServer(t, "secret")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/sessions", bytes.NewBufferString(`{"category":"debit"}`))
	rec := httptest.NewRecorder()
	ts.server.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/api/v1/sessions", bytes.NewBufferString(`{"category":"debit"}`))
	req.Header.Set("Authorization", "Bearer wrong")
	rec = httptest.NewRecorder()
	ts.server.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCreateSession(t *testing.T) {
	ts := newTestServer(t, "secret")

	rec := ts.do(t, http.MethodPost, "/api/v1/sessions", gin.H{"category": "debit"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var view struct {
		ID          string   `json:"id"`
		Category    string   `json:"category"`
		Phase       string   `json:"phase"`
		TypeOptions []string `json:"typeOptions"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	assert.NotEmpty(t, view.ID)
	assert.Equal(t, "debit", view.Category)
	assert.Equal(t, "Editing", view.Phase)
	assert.Contains(t, view.TypeOptions, domain.TypeWireTransfer)
}

func TestCreateSession_RejectsUnknownCategory(t *testing.T) {
	ts := newTestServer(t, "")

	rec := ts.do(t, http.MethodPost, "/api/v1/sessions", gin.H{"category": "sideways"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetSession_NotFoundAndBadID(t *testing.T) {
	ts := newTestServer(t, "")

	rec := ts.do(t, http.MethodGet, "/api/v1/sessions/0e3c4c44-3bea-48a2-b8f4-5bd1fb0194cf", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/v1/sessions/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCloseSession(t *testing.T) {
	ts := newTestServer(t, "")
	id := ts.createSession(t, "debit")

	rec := ts.do(t, http.MethodDelete, "/api/v1/sessions/"+id, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/v1/sessions/"+id, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSelectTransactionType_UpdatesDescriptorAndValues(t *testing.T) {
	ts := newTestServer(t, "")
	id := ts.createSession(t, "debit")

	rec := ts.do(t, http.MethodPut, "/api/v1/sessions/"+id+"/transaction-type",
		gin.H{"transactionType": domain.TypeWireTransfer})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var view struct {
		Descriptor struct {
			ShowFees      bool   `json:"showFees"`
			BankDirection string `json:"bankDirection"`
		} `json:"descriptor"`
		Values struct {
			Description string `json:"description"`
		} `json:"values"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	assert.True(t, view.Descriptor.ShowFees)
	assert.Equal(t, "from", view.Descriptor.BankDirection)
	assert.Equal(t, "Wire Transfer", view.Values.Description)
}

func TestUpdateFields_PartialPatch(t *testing.T) {
	ts := newTestServer(t, "")
	id := ts.createSession(t, "debit")

	rec := ts.do(t, http.MethodPut, "/api/v1/sessions/"+id+"/fields", gin.H{
		"amount":        "5000",
		"effectiveDate": "2025-06-15",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var view struct {
		Values struct {
			Amount        *decimal.Decimal `json:"amount"`
			EffectiveDate string           `json:"effectiveDate"`
			Status        string           `json:"status"`
		} `json:"values"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	require.NotNil(t, view.Values.Amount)
	assert.True(t, view.Values.Amount.Equal(decimal.NewFromInt(5000)))
	assert.Equal(t, "2025-06-15", view.Values.EffectiveDate)
	assert.Equal(t, "Draft", view.Values.Status, "untouched fields keep their values")

	rec = ts.do(t, http.MethodPut, "/api/v1/sessions/"+id+"/fields", gin.H{"effectiveDate": "15/06/2025"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSubmitForReview_Returns422WithFieldErrors(t *testing.T) {
	ts := newTestServer(t, "")
	id := ts.createSession(t, "debit")

	rec := ts.do(t, http.MethodPost, "/api/v1/sessions/"+id+"/review", nil)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	var body struct {
		Errors []struct {
			Field   string `json:"field"`
			Message string `json:"message"`
		} `json:"errors"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.NotEmpty(t, body.Errors)

	fields := make(map[string]bool)
	for _, e := range body.Errors {
		fields[e.Field] = true
		assert.NotEmpty(t, e.Message)
	}
	assert.True(t, fields["transactionType"])
	assert.True(t, fields["currency"])
}

// fillWireTransfer drives a session to a valid Wire Transfer over the API
func (ts *testServer) fillWireTransfer(t *testing.T, id string) {
	t.Helper()
	ts.source.On("SubOrganizations", mock.Anything, "org1").
		Return([]domain.SubOrganization{{SubOrgNum: "sub1", OrgNum: "org1"}}, nil).Maybe()
	ts.source.On("BankAccounts", mock.Anything, "USD").
		Return([]domain.BankAccount{{UID: "acct-1", Name: "Operating USD", Currency: "USD"}}, nil).Maybe()

	steps := []struct {
		path string
		body gin.H
	}{
		{"/transaction-type", gin.H{"transactionType": domain.TypeWireTransfer}},
		{"/client", gin.H{"orgNum": "org1"}},
		{"/currency", gin.H{"currency": "USD"}},
		{"/fields", gin.H{"amount": "5000", "effectiveDate": time.Now().Format("2006-01-02")}},
	}
	for _, step := range steps {
		rec := ts.do(t, http.MethodPut, "/api/v1/sessions/"+id+step.path, step.body)
		require.Equal(t, http.StatusOK, rec.Code, "%s: %s", step.path, rec.Body.String())
	}
}

func TestReviewAndConfirm_FullFlow(t *testing.T) {
	ts := newTestServer(t, "")
	id := ts.createSession(t, "debit")
	ts.fillWireTransfer(t, id)

	rec := ts.do(t, http.MethodPost, "/api/v1/sessions/"+id+"/review", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var view struct {
		Phase  string          `json:"phase"`
		Review json.RawMessage `json:"review"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	assert.Equal(t, "Reviewing", view.Phase)
	assert.NotEmpty(t, view.Review, "the frozen copy is exposed during review")

	// Mutations conflict with the review phase
	rec = ts.do(t, http.MethodPut, "/api/v1/sessions/"+id+"/fields", gin.H{"amount": "1"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	ts.submitter.On("SubmitCashTransaction", mock.Anything, mock.Anything).
		Return(&session.SubmissionAck{TransactionID: "tx-1", Status: "Pending"}, nil).Once()

	rec = ts.do(t, http.MethodPost, "/api/v1/sessions/"+id+"/confirm", gin.H{"action": "pending"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var ack session.SubmissionAck
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ack))
	assert.Equal(t, "tx-1", ack.TransactionID)

	// A submitted session conflicts with further sends
	rec = ts.do(t, http.MethodPost, "/api/v1/sessions/"+id+"/confirm", gin.H{"action": "pending"})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestConfirm_BackendFailureIsBadGateway(t *testing.T) {
	ts := newTestServer(t, "")
	id := ts.createSession(t, "debit")
	ts.fillWireTransfer(t, id)

	rec := ts.do(t, http.MethodPost, "/api/v1/sessions/"+id+"/review", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	ts.submitter.On("SubmitCashTransaction", mock.Anything, mock.Anything).
		Return(nil, errors.New("backend unavailable")).Once()

	rec = ts.do(t, http.MethodPost, "/api/v1/sessions/"+id+"/confirm", gin.H{"action": "pending"})
	assert.Equal(t, http.StatusBadGateway, rec.Code)

	// The session survives for retry
	rec = ts.do(t, http.MethodGet, "/api/v1/sessions/"+id, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var view struct {
		Phase string `json:"phase"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	assert.Equal(t, "Reviewing", view.Phase)
}

func TestConfirm_RejectsUnknownAction(t *testing.T) {
	ts := newTestServer(t, "")
	id := ts.createSession(t, "debit")
	ts.fillWireTransfer(t, id)

	rec := ts.do(t, http.MethodPost, "/api/v1/sessions/"+id+"/review", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(t, http.MethodPost, "/api/v1/sessions/"+id+"/confirm", gin.H{"action": "yolo"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBackToEdit_ResumesEditing(t *testing.T) {
	ts := newTestServer(t, "")
	id := ts.createSession(t, "debit")
	ts.fillWireTransfer(t, id)

	rec := ts.do(t, http.MethodPost, "/api/v1/sessions/"+id+"/review", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(t, http.MethodPost, "/api/v1/sessions/"+id+"/back", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var view struct {
		Phase  string          `json:"phase"`
		Review json.RawMessage `json:"review"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	assert.Equal(t, "Editing", view.Phase)
	assert.True(t, len(view.Review) == 0 || string(view.Review) == "null")

	rec = ts.do(t, http.MethodPut, "/api/v1/sessions/"+id+"/fields", gin.H{"amount": "7000"})
	assert.Equal(t, http.StatusOK, rec.Code)
}
