package ledger

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDepreciationScheduleAbsorbsResidualAndIsIdempotent(t *testing.T) {
	f := newTestFixture(t)
	ds := NewDepreciationScheduler(f.store, f.posting, f.events)

	expenseAcct := &Account{CompanyID: f.company.ID, Number: "7832", Name: "Avskrivningar inventarier", Type: Expense, Active: true}
	require.NoError(t, f.store.CreateAccount(expenseAcct))
	accumAcct := &Account{CompanyID: f.company.ID, Number: "1229", Name: "Ack avskrivningar inventarier", Type: Asset, Active: true}
	require.NoError(t, f.store.CreateAccount(accumAcct))

	asset := &Asset{
		CompanyID:            f.company.ID,
		Name:                 "Laptop",
		Type:                 AssetTangible,
		AcquisitionDate:      time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		AcquisitionCost:      mustMoney(t, "1000.00"),
		ResidualValue:        Zero(),
		UsefulLifeMonths:     3,
		Method:               DepreciationLinear,
		ExpenseAccountID:     expenseAcct.ID,
		AccumulatedAccountID: accumAcct.ID,
		Active:               true,
	}
	require.NoError(t, f.store.CreateAsset(asset))

	total := Zero()
	for _, d := range []time.Time{
		time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
	} {
		entry, err := ds.RunPeriod(asset.ID, f.fiscalYear.ID, d)
		require.NoError(t, err)
		total = total.Add(entry.Amount)
	}
	require.True(t, total.Equal(mustMoney(t, "1000.00")))

	again, err := ds.RunPeriod(asset.ID, f.fiscalYear.ID, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	entries, err := f.store.ListDepreciationEntries(asset.ID)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	require.NotNil(t, again)
}

func TestDepreciationRejectsNonLinearMethod(t *testing.T) {
	f := newTestFixture(t)
	ds := NewDepreciationScheduler(f.store, f.posting, f.events)
	asset := &Asset{
		CompanyID:        f.company.ID,
		Name:             "Machine",
		AcquisitionDate:  time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		AcquisitionCost:  mustMoney(t, "1000.00"),
		UsefulLifeMonths: 12,
		Method:           DepreciationComponent,
		Active:           true,
	}
	require.NoError(t, f.store.CreateAsset(asset))
	_, err := ds.RunPeriod(asset.ID, f.fiscalYear.ID, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	require.Error(t, err)
}

func TestDisposalGainLoss(t *testing.T) {
	f := newTestFixture(t)
	ds := NewDepreciationScheduler(f.store, f.posting, f.events)
	expenseAcct := &Account{CompanyID: f.company.ID, Number: "7832", Name: "Avskrivningar", Type: Expense, Active: true}
	require.NoError(t, f.store.CreateAccount(expenseAcct))
	accumAcct := &Account{CompanyID: f.company.ID, Number: "1229", Name: "Ack avskrivningar", Type: Asset, Active: true}
	require.NoError(t, f.store.CreateAccount(accumAcct))

	asset := &Asset{
		CompanyID: f.company.ID, Name: "Van",
		AcquisitionDate: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		AcquisitionCost: mustMoney(t, "1200.00"), UsefulLifeMonths: 12,
		Method: DepreciationLinear, ExpenseAccountID: expenseAcct.ID, AccumulatedAccountID: accumAcct.ID, Active: true,
	}
	require.NoError(t, f.store.CreateAsset(asset))
	_, err := ds.RunPeriod(asset.ID, f.fiscalYear.ID, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	disposed, err := ds.Dispose(asset.ID, time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC), mustMoney(t, "1150.00"))
	require.NoError(t, err)
	require.False(t, disposed.Active)

	gain, err := ds.GainLoss(asset.ID)
	require.NoError(t, err)
	require.True(t, gain.IsPositive())
}
