// Package platform is the REST adapter for the marketplace backend. It
// implements the reference-data source and the transaction submitter ports
// behind a circuit breaker.
package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/nestara/console-backend/internal/config"
	"github.com/nestara/console-backend/internal/domain"
	"github.com/nestara/console-backend/internal/logging"
	"github.com/nestara/console-backend/internal/usecase/payload"
	"github.com/nestara/console-backend/internal/usecase/session"
)

// Client talks to the platform backend over HTTP/JSON
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	cb      *gobreaker.CircuitBreaker
	log     *logging.Logger
}

// NewClient creates a client from the platform configuration
func NewClient(cfg config.PlatformConfig, log *logging.Logger) *Client {
	logger := log.Named("platform")
	settings := gobreaker.Settings{
		Name:    "platform-backend",
		Timeout: cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.BreakerFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	}
	return &Client{
		baseURL: cfg.BaseURL,
		token:   cfg.Token,
		http:    &http.Client{Timeout: cfg.RequestTimeout},
		cb:      gobreaker.NewCircuitBreaker(settings),
		log:     logger,
	}
}

// Organizations fetches the organization collection
func (c *Client) Organizations(ctx context.Context) ([]domain.Organization, error) {
	var out []organizationDTO
	if err := c.getJSON(ctx, "/organizations", nil, &out); err != nil {
		return nil, err
	}
	orgs := make([]domain.Organization, 0, len(out))
	for _, o := range out {
		orgs = append(orgs, domain.Organization{OrgNum: o.OrgNum, Name: o.Name})
	}
	return orgs, nil
}

// SubOrganizations fetches the subdivisions of one organization
func (c *Client) SubOrganizations(ctx context.Context, orgNum string) ([]domain.SubOrganization, error) {
	var out []subOrganizationDTO
	path := "/organizations/" + url.PathEscape(orgNum) + "/sub-organizations"
	if err := c.getJSON(ctx, path, nil, &out); err != nil {
		return nil, err
	}
	subs := make([]domain.SubOrganization, 0, len(out))
	for _, s := range out {
		subs = append(subs, domain.SubOrganization{
			SubOrgNum: s.SubOrgNum,
			OrgNum:    s.OrgNum,
			Name:      s.Name,
		})
	}
	return subs, nil
}

// Currencies fetches the currency collection
func (c *Client) Currencies(ctx context.Context) ([]domain.Currency, error) {
	var out []currencyDTO
	if err := c.getJSON(ctx, "/currencies", nil, &out); err != nil {
		return nil, err
	}
	currencies := make([]domain.Currency, 0, len(out))
	for _, cur := range out {
		currencies = append(currencies, domain.Currency{Code: cur.Code, Name: cur.Name})
	}
	return currencies, nil
}

// BankAccounts fetches accounts, filtered by currency when one is given
func (c *Client) BankAccounts(ctx context.Context, currency string) ([]domain.BankAccount, error) {
	query := url.Values{}
	if currency != "" {
		query.Set("currency", currency)
	}
	var out []bankAccountDTO
	if err := c.getJSON(ctx, "/bank-accounts", query, &out); err != nil {
		return nil, err
	}
	accounts := make([]domain.BankAccount, 0, len(out))
	for _, a := range out {
		accounts = append(accounts, domain.BankAccount{
			UID:        a.UID,
			Name:       a.Name,
			AccountNum: a.AccountNum,
			Currency:   a.Currency,
		})
	}
	return accounts, nil
}

// Instruments fetches the ISIN list
func (c *Client) Instruments(ctx context.Context) ([]domain.Instrument, error) {
	var out []instrumentDTO
	if err := c.getJSON(ctx, "/instruments", nil, &out); err != nil {
		return nil, err
	}
	instruments := make([]domain.Instrument, 0, len(out))
	for _, i := range out {
		instruments = append(instruments, domain.Instrument{ISIN: i.ISIN, SecurityName: i.SecurityName})
	}
	return instruments, nil
}

// Holdings fetches the settled positions for one instrument
func (c *Client) Holdings(ctx context.Context, isin string) ([]domain.Holding, error) {
	var out []holdingDTO
	path := "/instruments/" + url.PathEscape(isin) + "/holdings"
	if err := c.getJSON(ctx, path, nil, &out); err != nil {
		return nil, err
	}
	holdings := make([]domain.Holding, 0, len(out))
	for _, h := range out {
		holdings = append(holdings, domain.Holding{
			ClientName:         h.ClientName,
			OrganizationNum:    h.OrgNum,
			SubOrganizationNum: h.SubOrgNum,
			SubAccountNum:      h.SubAccountNum,
			EffectiveValueAmt:  h.EffectiveValueAmt,
			Currency:           h.Currency,
		})
	}
	return holdings, nil
}

// InstrumentDetail fetches the per-instrument attributes for one ISIN
func (c *Client) InstrumentDetail(ctx context.Context, isin string) (*domain.InstrumentDetail, error) {
	var out instrumentDetailDTO
	path := "/instruments/" + url.PathEscape(isin)
	if err := c.getJSON(ctx, path, nil, &out); err != nil {
		return nil, err
	}
	return &domain.InstrumentDetail{
		ISIN:         out.ISIN,
		SecurityName: out.SecurityName,
		CouponRate:   out.CouponRate,
	}, nil
}

// SubmitCashTransaction posts the built request to /transactions/cash
func (c *Client) SubmitCashTransaction(ctx context.Context, req payload.Request) (*session.SubmissionAck, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode transaction request: %w", err)
	}

	result, err := c.cb.Execute(func() (interface{}, error) {
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/transactions/cash", bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		httpReq.Header.Set("Content-Type", "application/json")
		c.authorize(httpReq)

		resp, err := c.http.Do(httpReq)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			return nil, fmt.Errorf("transaction submission rejected: status %d: %s", resp.StatusCode, string(msg))
		}

		var ack session.SubmissionAck
		if err := json.NewDecoder(resp.Body).Decode(&ack); err != nil {
			return nil, fmt.Errorf("failed to decode submission acknowledgement: %w", err)
		}
		return &ack, nil
	})
	if err != nil {
		c.log.Warn("cash transaction submission failed", zap.String("action", req.Action), zap.Error(err))
		return nil, err
	}
	return result.(*session.SubmissionAck), nil
}

func (c *Client) getJSON(ctx context.Context, path string, query url.Values, out interface{}) error {
	result, err := c.cb.Execute(func() (interface{}, error) {
		u := c.baseURL + path
		if len(query) > 0 {
			u += "?" + query.Encode()
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return nil, err
		}
		c.authorize(req)

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("unexpected status %d from %s", resp.StatusCode, path)
		}
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, err
		}
		return body, nil
	})
	if err != nil {
		return err
	}
	return json.Unmarshal(result.([]byte), out)
}

func (c *Client) authorize(req *http.Request) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}
