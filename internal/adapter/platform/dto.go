package platform

import "github.com/shopspring/decimal"

// Wire representations of the platform backend's reference-data responses

type organizationDTO struct {
	OrgNum string `json:"orgNum"`
	Name   string `json:"name"`
}

type subOrganizationDTO struct {
	SubOrgNum string `json:"subOrgNum"`
	OrgNum    string `json:"orgNum"`
	Name      string `json:"name"`
}

type currencyDTO struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

type bankAccountDTO struct {
	UID        string `json:"uid"`
	Name       string `json:"name"`
	AccountNum string `json:"accountNum"`
	Currency   string `json:"currency"`
}

type instrumentDTO struct {
	ISIN         string `json:"isin"`
	SecurityName string `json:"securityName"`
}

type instrumentDetailDTO struct {
	ISIN         string           `json:"isin"`
	SecurityName string           `json:"securityName"`
	CouponRate   *decimal.Decimal `json:"couponRate"`
}

type holdingDTO struct {
	ClientName        string          `json:"clientName"`
	OrgNum            string          `json:"orgNum"`
	SubOrgNum         string          `json:"subOrgNum"`
	SubAccountNum     string          `json:"subAccountNum"`
	EffectiveValueAmt decimal.Decimal `json:"effectiveValueAmt"`
	Currency          string          `json:"currency"`
}
