package domain

// BankDirection indicates which side of the transaction a bank account represents
type BankDirection string

const (
	BankDirectionFrom BankDirection = "from"
	BankDirectionTo   BankDirection = "to"
	BankDirectionNone BankDirection = ""
)

// Transaction type names offered per category
const (
	TypeWireTransfer         = "Wire Transfer"
	TypeWithdrawal           = "Withdrawal"
	TypeFeePayment           = "Fee Payment"
	TypeInvestmentPurchase   = "Investment Purchase"
	TypeDeposit              = "Deposit"
	TypeCouponPayment        = "Coupon Payment"
	TypeInvestmentRedemption = "Investment Redemption"
	TypeRefund               = "Refund"
)

// FieldVisibilityDescriptor controls which optional fields a transaction type
// shows and how the description and bank-account direction behave.
type FieldVisibilityDescriptor struct {
	ShowClientFields    bool
	ShowFees            bool
	ShowBankCharges     bool
	ShowGSTAmount       bool
	BankDirection       BankDirection
	DescriptionAutoFill string
	DescriptionEditable bool
}

var debitTypes = []string{
	TypeWireTransfer,
	TypeWithdrawal,
	TypeFeePayment,
	TypeInvestmentPurchase,
}

var creditTypes = []string{
	TypeDeposit,
	TypeCouponPayment,
	TypeInvestmentRedemption,
	TypeRefund,
}

var typeDescriptors = map[string]FieldVisibilityDescriptor{
	TypeWireTransfer: {
		ShowClientFields:    true,
		ShowFees:            true,
		ShowBankCharges:     true,
		BankDirection:       BankDirectionFrom,
		DescriptionAutoFill: "Wire Transfer",
		DescriptionEditable: true,
	},
	TypeWithdrawal: {
		ShowClientFields:    true,
		ShowBankCharges:     true,
		BankDirection:       BankDirectionFrom,
		DescriptionAutoFill: "Cash Withdrawal",
		DescriptionEditable: true,
	},
	TypeFeePayment: {
		ShowClientFields:    true,
		ShowGSTAmount:       true,
		BankDirection:       BankDirectionFrom,
		DescriptionAutoFill: "Fee Payment",
		DescriptionEditable: false,
	},
	TypeInvestmentPurchase: {
		ShowClientFields:    true,
		ShowFees:            true,
		ShowGSTAmount:       true,
		BankDirection:       BankDirectionFrom,
		DescriptionAutoFill: "Investment Purchase",
		DescriptionEditable: true,
	},
	TypeDeposit: {
		ShowClientFields:    true,
		BankDirection:       BankDirectionTo,
		DescriptionEditable: true,
	},
	TypeCouponPayment: {
		// Client and bank account are carried per coupon row, not top-level
		ShowClientFields:    false,
		BankDirection:       BankDirectionNone,
		DescriptionAutoFill: "Coupon Payment",
		DescriptionEditable: false,
	},
	TypeInvestmentRedemption: {
		ShowClientFields:    true,
		ShowFees:            true,
		BankDirection:       BankDirectionTo,
		DescriptionAutoFill: "Investment Redemption",
		DescriptionEditable: true,
	},
	TypeRefund: {
		ShowClientFields:    true,
		BankDirection:       BankDirectionTo,
		DescriptionAutoFill: "Refund",
		DescriptionEditable: true,
	},
}

// ResolveFieldVisibility returns the descriptor for the given transaction type.
// An empty or unrecognized type yields the default descriptor: client fields
// shown, no optional monetary fields, no bank direction, editable description.
func ResolveFieldVisibility(transactionType string) FieldVisibilityDescriptor {
	if d, ok := typeDescriptors[transactionType]; ok {
		return d
	}
	return FieldVisibilityDescriptor{
		ShowClientFields:    true,
		DescriptionEditable: true,
	}
}

// TypesForCategory returns the transaction-type vocabulary for a category
func TypesForCategory(c Category) []string {
	switch c {
	case CategoryDebit:
		return debitTypes
	case CategoryCredit:
		return creditTypes
	default:
		return nil
	}
}

// IsKnownType reports whether t belongs to the vocabulary of category c
func IsKnownType(c Category, t string) bool {
	for _, known := range TypesForCategory(c) {
		if t == known {
			return true
		}
	}
	return false
}
