package ledger

// Depreciation Scheduler (§4.5). Grounded on the teacher's accrual_service.go
// schedule-generation shape (periods derived from a start date and a count),
// adapted to straight-line asset depreciation with residual-value clamping.

import (
	"fmt"
	"time"
)

// DepreciationScheduler generates and posts monthly depreciation entries
// for Assets using the Linear method. Declining and Component methods are
// declared in the type system but rejected here; see DESIGN.md for why.
type DepreciationScheduler struct {
	store   *Store
	posting *PostingEngine
	events  *EventStore
}

func NewDepreciationScheduler(store *Store, posting *PostingEngine, events *EventStore) *DepreciationScheduler {
	return &DepreciationScheduler{store: store, posting: posting, events: events}
}

// MonthlyAmount returns the depreciable base (cost minus residual value)
// divided evenly across UsefulLifeMonths, rounded to 2 decimals. The
// scheduler, not this helper, is responsible for having the final period
// absorb the rounding residual.
func (a Asset) MonthlyAmount() Money {
	base := a.AcquisitionCost.Sub(a.ResidualValue)
	if a.UsefulLifeMonths <= 0 {
		return Zero()
	}
	return base.DivRound(a.UsefulLifeMonths)
}

// RunPeriod posts the depreciation entry for asset at periodDate (the
// first day of the month being depreciated), into fiscalYearID. It is
// idempotent: a second call for the same (asset, periodDate) is a no-op
// that returns the existing entry.
func (ds *DepreciationScheduler) RunPeriod(assetID, fiscalYearID int64, periodDate time.Time) (*DepreciationEntry, error) {
	asset, err := ds.store.GetAsset(assetID)
	if err != nil {
		return nil, err
	}
	if !asset.Active {
		return nil, fmt.Errorf("ledger: asset %d is not active", assetID)
	}
	if asset.Method != DepreciationLinear {
		return nil, fmt.Errorf("ledger: depreciation method %s is not implemented", asset.Method)
	}

	exists, err := ds.store.HasDepreciationEntry(assetID, periodDate, "MONTH")
	if err != nil {
		return nil, err
	}
	if exists {
		entries, err := ds.store.ListDepreciationEntries(assetID)
		if err != nil {
			return nil, err
		}
		for _, e := range entries {
			if sameMonth(e.PeriodDate, periodDate) {
				return e, nil
			}
		}
	}

	periodIndex, err := ds.periodIndex(asset, periodDate)
	if err != nil {
		return nil, err
	}
	amount := ds.amountForPeriod(asset, periodIndex)
	if amount.IsZero() {
		return nil, nil
	}

	v := &Verification{
		CompanyID:    asset.CompanyID,
		FiscalYearID: fiscalYearID,
		Date:         periodDate,
		Description:  fmt.Sprintf("Avskrivning %s", asset.Name),
		Lines: []Line{
			{AccountID: asset.ExpenseAccountID, Debit: amount},
			{AccountID: asset.AccumulatedAccountID, Credit: amount},
		},
	}
	committed, err := ds.posting.Commit(v)
	if err != nil {
		return nil, err
	}

	entry := &DepreciationEntry{
		AssetID:        assetID,
		PeriodDate:     periodDate,
		PeriodType:     "MONTH",
		Amount:         amount,
		VerificationID: committed.ID,
	}
	if err := ds.store.CreateDepreciationEntry(entry); err != nil {
		return nil, &StoreUnavailable{Cause: err}
	}
	if _, err := ds.events.Append(asset.CompanyID, EventDepreciationPosted, entry, periodDate, ""); err != nil {
		return nil, err
	}
	return entry, nil
}

// periodIndex returns the 0-based month offset of periodDate from the
// asset's acquisition month, bounded to [0, UsefulLifeMonths).
func (ds *DepreciationScheduler) periodIndex(asset *Asset, periodDate time.Time) (int, error) {
	months := monthsBetween(asset.AcquisitionDate, periodDate)
	if months < 0 || months >= asset.UsefulLifeMonths {
		return 0, fmt.Errorf("ledger: period %s is outside asset %d's useful life", periodDate.Format("2006-01"), asset.ID)
	}
	return months, nil
}

// amountForPeriod returns the monthly amount, with the final period of
// the useful life absorbing whatever residual the preceding periods'
// rounding left behind.
func (ds *DepreciationScheduler) amountForPeriod(asset *Asset, periodIndex int) Money {
	base := asset.AcquisitionCost.Sub(asset.ResidualValue)
	parts := SplitEven(base, asset.UsefulLifeMonths)
	if periodIndex < 0 || periodIndex >= len(parts) {
		return Zero()
	}
	return parts[periodIndex]
}

// Dispose records an asset's disposal date and proceeds. It does not post
// a gain/loss verification automatically (Open Question 2 — see
// DESIGN.md); CarryingValue and GainLoss are exposed so a caller can
// construct that posting explicitly.
func (ds *DepreciationScheduler) Dispose(assetID int64, disposedAt time.Time, proceeds Money) (*Asset, error) {
	asset, err := ds.store.GetAsset(assetID)
	if err != nil {
		return nil, err
	}
	asset.Active = false
	asset.DisposedAt = &disposedAt
	asset.DisposalProceeds = &proceeds
	if err := ds.store.UpdateAsset(asset); err != nil {
		return nil, &StoreUnavailable{Cause: err}
	}
	return asset, nil
}

// CarryingValue returns acquisition cost minus accumulated depreciation
// posted to date.
func (ds *DepreciationScheduler) CarryingValue(assetID int64) (Money, error) {
	asset, err := ds.store.GetAsset(assetID)
	if err != nil {
		return Zero(), err
	}
	entries, err := ds.store.ListDepreciationEntries(assetID)
	if err != nil {
		return Zero(), err
	}
	accumulated := Zero()
	for _, e := range entries {
		accumulated = accumulated.Add(e.Amount)
	}
	return asset.AcquisitionCost.Sub(accumulated), nil
}

// GainLoss returns disposal proceeds minus carrying value at disposal; a
// positive result is a gain. Returns an error if the asset has not been
// disposed.
func (ds *DepreciationScheduler) GainLoss(assetID int64) (Money, error) {
	asset, err := ds.store.GetAsset(assetID)
	if err != nil {
		return Zero(), err
	}
	if asset.DisposalProceeds == nil {
		return Zero(), fmt.Errorf("ledger: asset %d has not been disposed", assetID)
	}
	carrying, err := ds.CarryingValue(assetID)
	if err != nil {
		return Zero(), err
	}
	return asset.DisposalProceeds.Sub(carrying), nil
}

func sameMonth(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month()
}

func monthsBetween(from, to time.Time) int {
	return (to.Year()-from.Year())*12 + int(to.Month()) - int(from.Month())
}
