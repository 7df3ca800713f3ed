package ledger

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestAccrualScheduleAbsorbsResidualInLastPeriod(t *testing.T) {
	f := newTestFixture(t)
	as := NewAccrualScheduler(f.store, f.posting, f.events)

	accrual := &Accrual{
		CompanyID:       f.company.ID,
		Kind:            PrepaidExpense,
		TotalAmount:     mustMoney(t, "1000.00"),
		Periods:         3,
		StartDate:       time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:         time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC),
		Frequency:       Monthly,
		SourceAccountID: f.acct("1710"),
		TargetAccountID: f.acct("5010"),
		Active:          true,
	}
	require.NoError(t, f.store.CreateAccrual(accrual))

	var total Money = Zero()
	for i, d := range []time.Time{
		time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 2, 28, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC),
	} {
		entry, err := as.RunPeriod(accrual.ID, f.fiscalYear.ID, i+1, d)
		require.NoError(t, err)
		total = total.Add(entry.Amount)
	}
	require.True(t, total.Equal(mustMoney(t, "1000.00")))
}

func TestAccrualRunPeriodIdempotent(t *testing.T) {
	f := newTestFixture(t)
	as := NewAccrualScheduler(f.store, f.posting, f.events)
	accrual := &Accrual{
		CompanyID:       f.company.ID,
		Kind:            PrepaidExpense,
		TotalAmount:     mustMoney(t, "300.00"),
		Periods:         3,
		StartDate:       time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:         time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC),
		Frequency:       Monthly,
		SourceAccountID: f.acct("1710"),
		TargetAccountID: f.acct("5010"),
		Active:          true,
	}
	require.NoError(t, f.store.CreateAccrual(accrual))

	d := time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC)
	first, err := as.RunPeriod(accrual.ID, f.fiscalYear.ID, 1, d)
	require.NoError(t, err)
	second, err := as.RunPeriod(accrual.ID, f.fiscalYear.ID, 1, d)
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID)

	entries, err := f.store.ListAccrualEntries(accrual.ID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
}
