package ledger

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// TestEndToEndYearLifecycle walks a fiscal year from opening through a mix
// of cash, VAT and accrual postings, SIE round-trip, and closing into the
// next year — exercising the seed scenarios behind §8's acceptance suite.
func TestEndToEndYearLifecycle(t *testing.T) {
	f := newTestFixture(t)

	// cash sale with VAT
	_, err := f.posting.Commit(&Verification{
		CompanyID: f.company.ID, FiscalYearID: f.fiscalYear.ID,
		Date:        time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC),
		Description: "Kontantförsäljning",
		Lines: []Line{
			{AccountID: f.acct("1910"), Debit: mustMoney(t, "1250.00")},
			{AccountID: f.acct("3010"), Credit: mustMoney(t, "1000.00")},
			{AccountID: f.acct("2610"), Credit: mustMoney(t, "250.00")},
		},
	})
	require.NoError(t, err)

	// prepaid insurance, accrued over 3 months
	accrual := &Accrual{
		CompanyID: f.company.ID, Kind: PrepaidExpense,
		TotalAmount: mustMoney(t, "900.00"), Periods: 3,
		StartDate: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC),
		Frequency: Monthly,
		SourceAccountID: f.acct("1710"), TargetAccountID: f.acct("5010"),
		Active: true,
	}
	require.NoError(t, f.store.CreateAccrual(accrual))
	as := NewAccrualScheduler(f.store, f.posting, f.events)
	for i, d := range []time.Time{
		time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 2, 28, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC),
	} {
		_, err := as.RunPeriod(accrual.ID, f.fiscalYear.ID, i+1, d)
		require.NoError(t, err)
	}

	ok, err := f.balance.IsBalanced(f.fiscalYear.ID, time.Time{})
	require.NoError(t, err)
	require.True(t, ok)

	// SIE round trip
	writer := NewSIEWriter(f.store)
	text, err := writer.Write(f.fiscalYear.ID)
	require.NoError(t, err)
	doc, err := DecodeSIE([]byte(text))
	require.NoError(t, err)
	require.Len(t, doc.Verifications, 4) // 1 sale + 3 accrual periods

	// close into next year and carry balances
	next := &FiscalYear{
		CompanyID: f.company.ID,
		Start:     time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		End:       time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, f.store.CreateFiscalYear(next))
	report, err := f.closing.Close(f.fiscalYear.ID, next.ID)
	require.NoError(t, err)
	require.True(t, report.CarriedAccounts > 0)

	closedFY, err := f.store.GetFiscalYear(f.fiscalYear.ID)
	require.NoError(t, err)
	require.True(t, closedFY.Closed)

	// post-close writes to the closed year are rejected
	_, err = f.posting.Commit(&Verification{
		CompanyID: f.company.ID, FiscalYearID: f.fiscalYear.ID,
		Date: time.Date(2025, 12, 15, 0, 0, 0, 0, time.UTC),
		Lines: []Line{
			{AccountID: f.acct("1910"), Debit: mustMoney(t, "1.00")},
			{AccountID: f.acct("3010"), Credit: mustMoney(t, "1.00")},
		},
	})
	require.Error(t, err)
	var closedErr *ClosedYearError
	require.ErrorAs(t, err, &closedErr)
}
