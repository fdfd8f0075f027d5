package coupon

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nestara/console-backend/internal/domain"
)

func holdingsFixture() []domain.Holding {
	return []domain.Holding{
		{
			ClientName:         "Acme Capital",
			OrganizationNum:    "org1",
			SubOrganizationNum: "sub1",
			SubAccountNum:      "acc1",
			EffectiveValueAmt:  decimal.NewFromInt(100000),
			Currency:           "USD",
		},
		{
			ClientName:         "Birch Holdings",
			OrganizationNum:    "org2",
			SubOrganizationNum: "sub2",
			SubAccountNum:      "acc2",
			EffectiveValueAmt:  decimal.NewFromInt(150000),
			Currency:           "USD",
		},
		{
			ClientName:         "Cedar Trust",
			OrganizationNum:    "org3",
			SubOrganizationNum: "sub3",
			SubAccountNum:      "acc3",
			EffectiveValueAmt:  decimal.NewFromInt(200000),
			Currency:           "USD",
		},
	}
}

func newEngineWithRows(t *testing.T) *Engine {
	t.Helper()
	e := NewEngine()
	e.Reset("ISIN1")
	rows := e.InitializeFromHoldings(holdingsFixture())
	require.Len(t, rows, 3)
	return e
}

func TestInitializeFromHoldings_SeedsZeroRows(t *testing.T) {
	e := newEngineWithRows(t)

	for _, row := range e.Rows() {
		assert.True(t, row.CashOrderAmt.IsZero())
		assert.Empty(t, row.BankAccountTo)
	}
	assert.True(t, e.Total().IsZero())
}

func TestInitializeFromHoldings_IdempotentPerISIN(t *testing.T) {
	e := newEngineWithRows(t)

	rate := decimal.NewFromInt(2)
	e.ApplyRateChange(&rate)

	// A second holdings arrival for the same ISIN must not duplicate or
	// reset the computed rows
	rows := e.InitializeFromHoldings(holdingsFixture())
	require.Len(t, rows, 3)
	assert.True(t, rows[0].CashOrderAmt.Equal(decimal.NewFromInt(2000)))
	assert.True(t, e.Total().Equal(decimal.NewFromInt(9000)))
}

func TestApplyRateChange_DistributesAcrossRows(t *testing.T) {
	e := newEngineWithRows(t)

	rate := decimal.NewFromInt(2)
	rows := e.ApplyRateChange(&rate)

	require.Len(t, rows, 3)
	assert.True(t, rows[0].CashOrderAmt.Equal(decimal.NewFromInt(2000)), "2% of 100000 should be 2000")
	assert.True(t, rows[1].CashOrderAmt.Equal(decimal.NewFromInt(3000)), "2% of 150000 should be 3000")
	assert.True(t, rows[2].CashOrderAmt.Equal(decimal.NewFromInt(4000)), "2% of 200000 should be 4000")
	assert.True(t, e.Total().Equal(decimal.NewFromInt(9000)))
}

func TestApplyRateChange_RoundTripsToRate(t *testing.T) {
	e := newEngineWithRows(t)

	rate := decimal.NewFromFloat(3.7)
	rows := e.ApplyRateChange(&rate)

	hundred := decimal.NewFromInt(100)
	total := decimal.Zero
	for _, row := range rows {
		back := row.CashOrderAmt.Div(row.EffectiveValueAmt).Mul(hundred)
		assert.True(t, back.Equal(rate), "reading the rate back from row amounts should reproduce it")
		total = total.Add(row.CashOrderAmt)
	}
	assert.True(t, e.Total().Equal(total))
}

func TestApplyRateChange_NilOrZeroResetsRows(t *testing.T) {
	e := newEngineWithRows(t)

	rate := decimal.NewFromInt(2)
	e.ApplyRateChange(&rate)

	rows := e.ApplyRateChange(nil)
	for _, row := range rows {
		assert.True(t, row.CashOrderAmt.IsZero())
	}
	assert.True(t, e.Total().IsZero())

	e.ApplyRateChange(&rate)
	zero := decimal.Zero
	rows = e.ApplyRateChange(&zero)
	for _, row := range rows {
		assert.True(t, row.CashOrderAmt.IsZero())
	}
}

func TestApplyManualRowEdit_ReseedsAndRedistributes(t *testing.T) {
	e := newEngineWithRows(t)

	rate := decimal.NewFromInt(2)
	e.ApplyRateChange(&rate)

	// Editing row 0 to 2500 implies a 2.5% rate, which redrives the others
	edited := decimal.NewFromInt(2500)
	rows, implied := e.ApplyManualRowEdit(0, edited)

	require.NotNil(t, implied)
	assert.True(t, implied.Equal(decimal.NewFromFloat(2.5)))
	assert.True(t, rows[0].CashOrderAmt.Equal(edited), "edited row keeps the entered value exactly")
	assert.True(t, rows[1].CashOrderAmt.Equal(decimal.NewFromInt(3750)))
	assert.True(t, rows[2].CashOrderAmt.Equal(decimal.NewFromInt(5000)))
	assert.True(t, e.Total().Equal(decimal.NewFromInt(11250)))
}

func TestApplyManualRowEdit_ReseedClearsPriorEdits(t *testing.T) {
	e := newEngineWithRows(t)

	rate := decimal.NewFromInt(2)
	e.ApplyRateChange(&rate)

	// First manual edit pins row 0
	e.ApplyManualRowEdit(0, decimal.NewFromInt(9999))

	// Second manual edit reseeds the set to row 1: row 0 is no longer
	// pinned and follows the new implied rate
	rows, implied := e.ApplyManualRowEdit(1, decimal.NewFromInt(1500))
	require.NotNil(t, implied)
	assert.True(t, implied.Equal(decimal.NewFromInt(1)), "1500 of 150000 implies 1%")
	assert.True(t, rows[0].CashOrderAmt.Equal(decimal.NewFromInt(1000)))
	assert.True(t, rows[1].CashOrderAmt.Equal(decimal.NewFromInt(1500)))
	assert.True(t, rows[2].CashOrderAmt.Equal(decimal.NewFromInt(2000)))
}

func TestApplyManualRowEdit_SubsequentRateChangeSkipsEditedRow(t *testing.T) {
	e := newEngineWithRows(t)

	edited := decimal.NewFromInt(1234)
	e.ApplyManualRowEdit(0, edited)

	rate := decimal.NewFromInt(4)
	rows := e.ApplyRateChange(&rate)
	assert.True(t, rows[0].CashOrderAmt.Equal(edited), "manually edited row is left untouched")
	assert.True(t, rows[1].CashOrderAmt.Equal(decimal.NewFromInt(6000)))
	assert.True(t, rows[2].CashOrderAmt.Equal(decimal.NewFromInt(8000)))
}

func TestApplyManualRowEdit_ImpliedRateRoundsToFourPlaces(t *testing.T) {
	e := newEngineWithRows(t)

	// 1234.56 of 150000 is 0.82304%
	rows, implied := e.ApplyManualRowEdit(1, decimal.NewFromFloat(1234.56))
	require.NotNil(t, implied)
	assert.True(t, implied.Equal(decimal.NewFromFloat(0.823)), "implied rate is rounded to 4 decimal places")
	assert.True(t, rows[1].CashOrderAmt.Equal(decimal.NewFromFloat(1234.56)))
}

func TestApplyManualRowEdit_ZeroEffectiveValueKeepsRateUnchanged(t *testing.T) {
	e := NewEngine()
	e.Reset("ISIN2")
	e.InitializeFromHoldings([]domain.Holding{
		{OrganizationNum: "org1", EffectiveValueAmt: decimal.Zero},
		{OrganizationNum: "org2", EffectiveValueAmt: decimal.NewFromInt(50000)},
	})
	rate := decimal.NewFromInt(2)
	e.ApplyRateChange(&rate)

	rows, implied := e.ApplyManualRowEdit(0, decimal.NewFromInt(100))
	assert.Nil(t, implied, "no implied rate can be derived from a zero holding value")
	assert.True(t, rows[0].CashOrderAmt.Equal(decimal.NewFromInt(100)))
	assert.True(t, rows[1].CashOrderAmt.Equal(decimal.NewFromInt(1000)), "other rows keep the prior rate's amounts")
	assert.True(t, e.Total().Equal(decimal.NewFromInt(1100)))
}

func TestEngine_NoHoldingsIsNoOp(t *testing.T) {
	e := NewEngine()
	e.Reset("ISIN3")

	rate := decimal.NewFromInt(2)
	assert.Nil(t, e.ApplyRateChange(&rate))

	rows, implied := e.ApplyManualRowEdit(0, decimal.NewFromInt(100))
	assert.Nil(t, rows)
	assert.Nil(t, implied)
	assert.True(t, e.Total().IsZero())
	assert.False(t, e.HasRows())
}

func TestReset_ClearsManualEditTracking(t *testing.T) {
	e := newEngineWithRows(t)
	e.ApplyManualRowEdit(0, decimal.NewFromInt(500))

	e.Reset("ISIN9")
	e.InitializeFromHoldings(holdingsFixture())

	rate := decimal.NewFromInt(2)
	rows := e.ApplyRateChange(&rate)
	assert.True(t, rows[0].CashOrderAmt.Equal(decimal.NewFromInt(2000)), "edit history does not survive an ISIN change")
}

func TestApplyBankAccountChange_DoesNotRecompute(t *testing.T) {
	e := newEngineWithRows(t)
	rate := decimal.NewFromInt(2)
	e.ApplyRateChange(&rate)

	rows := e.ApplyBankAccountChange(1, "acct-9")
	assert.Equal(t, "acct-9", rows[1].BankAccountTo)
	assert.True(t, rows[1].CashOrderAmt.Equal(decimal.NewFromInt(3000)))
	assert.True(t, e.Total().Equal(decimal.NewFromInt(9000)))
}

func TestTotal_MatchesRowSumAfterEveryOperation(t *testing.T) {
	e := newEngineWithRows(t)

	ops := []func(){
		func() { r := decimal.NewFromFloat(1.25); e.ApplyRateChange(&r) },
		func() { e.ApplyManualRowEdit(2, decimal.NewFromInt(777)) },
		func() { r := decimal.NewFromFloat(0.5); e.ApplyRateChange(&r) },
		func() { e.ApplyRateChange(nil) },
	}
	for _, op := range ops {
		op()
		sum := decimal.Zero
		for _, row := range e.Rows() {
			sum = sum.Add(row.CashOrderAmt)
		}
		assert.True(t, e.Total().Equal(sum), "total must equal the row sum after every recompute")
	}
}
