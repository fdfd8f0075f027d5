package httpapi

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/nestara/console-backend/internal/domain"
	"github.com/nestara/console-backend/internal/usecase/session"
)

const dateLayout = "2006-01-02"

// sessionView is the JSON shape of one form session returned to the console
type sessionView struct {
	ID          string          `json:"id"`
	Category    string          `json:"category"`
	Phase       string          `json:"phase"`
	TypeOptions []string        `json:"typeOptions"`
	Descriptor  descriptorView  `json:"descriptor"`
	Values      *formValuesView `json:"values"`
	Review      *formValuesView `json:"review,omitempty"`
	Loading     loadingView     `json:"loading"`
}

type descriptorView struct {
	ShowClientFields    bool   `json:"showClientFields"`
	ShowFees            bool   `json:"showFees"`
	ShowBankCharges     bool   `json:"showBankCharges"`
	ShowGSTAmount       bool   `json:"showGstAmount"`
	BankDirection       string `json:"bankDirection"`
	DescriptionEditable bool   `json:"descriptionEditable"`
}

type formValuesView struct {
	TransactionType  string           `json:"transactionType"`
	Status           string           `json:"status"`
	ClientName       string           `json:"clientName"`
	SubOrgName       string           `json:"subOrgName"`
	Currency         string           `json:"currency"`
	Amount           *decimal.Decimal `json:"amount"`
	Fees             *decimal.Decimal `json:"fees"`
	BankCharges      *decimal.Decimal `json:"bankCharges"`
	GSTAmount        *decimal.Decimal `json:"gstAmount"`
	EffectiveDate    string           `json:"effectiveDate"`
	CreatedDate      string           `json:"createdDate"`
	BankAccount      string           `json:"bankAccount"`
	Description      string           `json:"description"`
	DocumentNames    []string         `json:"documentNames"`
	InternalComments string           `json:"internalComments"`

	ISIN                 string           `json:"isin,omitempty"`
	SecurityName         string           `json:"securityName,omitempty"`
	CouponPercentageRate *decimal.Decimal `json:"couponPercentageRate,omitempty"`
	PaymentDate          string           `json:"paymentDate,omitempty"`
	CouponPayments       []couponRowView  `json:"couponPayments,omitempty"`
	TotalCouponAmount    *decimal.Decimal `json:"totalCouponAmount,omitempty"`
}

type couponRowView struct {
	ClientName        string          `json:"clientName"`
	OrgNum            string          `json:"orgNum"`
	SubOrgNum         string          `json:"subOrgNum"`
	SubAccountNum     string          `json:"subAccountNum"`
	EffectiveValueAmt decimal.Decimal `json:"effectiveValueAmt"`
	CashOrderAmt      decimal.Decimal `json:"cashOrderAmt"`
	Currency          string          `json:"currency"`
	BankAccountTo     string          `json:"bankAccountTo"`
}

type loadingView struct {
	Organizations    bool `json:"organizations"`
	SubOrganizations bool `json:"subOrganizations"`
	Currencies       bool `json:"currencies"`
	BankAccounts     bool `json:"bankAccounts"`
	Instruments      bool `json:"instruments"`
	Holdings         bool `json:"holdings"`
}

func newSessionView(s *session.Session) sessionView {
	desc := s.Descriptor()
	ref := s.ReferenceData()
	_, orgsLoading := ref.Organizations()
	_, subOrgsLoading := ref.SubOrganizations()
	_, currenciesLoading := ref.Currencies()
	_, accountsLoading := ref.BankAccounts()
	_, instrumentsLoading := ref.Instruments()
	_, holdingsLoading := ref.Holdings()

	return sessionView{
		ID:          s.ID.String(),
		Category:    string(s.Category()),
		Phase:       string(s.Phase()),
		TypeOptions: s.TypeOptions(),
		Descriptor: descriptorView{
			ShowClientFields:    desc.ShowClientFields,
			ShowFees:            desc.ShowFees,
			ShowBankCharges:     desc.ShowBankCharges,
			ShowGSTAmount:       desc.ShowGSTAmount,
			BankDirection:       string(desc.BankDirection),
			DescriptionEditable: desc.DescriptionEditable,
		},
		Values: newFormValuesView(s.Values()),
		Review: newFormValuesView(s.ReviewValues()),
		Loading: loadingView{
			Organizations:    orgsLoading,
			SubOrganizations: subOrgsLoading,
			Currencies:       currenciesLoading,
			BankAccounts:     accountsLoading,
			Instruments:      instrumentsLoading,
			Holdings:         holdingsLoading,
		},
	}
}

func newFormValuesView(v *domain.TransactionFormValues) *formValuesView {
	if v == nil {
		return nil
	}
	view := &formValuesView{
		TransactionType:  v.TransactionType,
		Status:           string(v.Status),
		ClientName:       v.ClientName,
		SubOrgName:       v.SubOrgName,
		Currency:         v.Currency,
		Amount:           v.Amount,
		Fees:             v.Fees,
		BankCharges:      v.BankCharges,
		GSTAmount:        v.GSTAmount,
		EffectiveDate:    formatDate(v.EffectiveDate),
		CreatedDate:      formatDate(v.CreatedDate),
		BankAccount:      v.BankAccount,
		Description:      v.Description,
		InternalComments: v.InternalComments,
	}
	for _, doc := range v.SupportingDocs {
		view.DocumentNames = append(view.DocumentNames, doc.FileName)
	}
	if v.TransactionType == domain.TypeCouponPayment {
		view.ISIN = v.ISIN
		view.SecurityName = v.SecurityName
		view.CouponPercentageRate = v.CouponPercentageRate
		view.PaymentDate = formatDate(v.PaymentDate)
		total := v.TotalCouponAmount
		view.TotalCouponAmount = &total
		for _, row := range v.CouponPayments {
			view.CouponPayments = append(view.CouponPayments, couponRowView{
				ClientName:        row.ClientName,
				OrgNum:            row.OrganizationNum,
				SubOrgNum:         row.SubOrganizationNum,
				SubAccountNum:     row.SubAccountNum,
				EffectiveValueAmt: row.EffectiveValueAmt,
				CashOrderAmt:      row.CashOrderAmt,
				Currency:          row.Currency,
				BankAccountTo:     row.BankAccountTo,
			})
		}
	}
	return view
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(dateLayout)
}
