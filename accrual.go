package ledger

// Accrual Scheduler (§4.6). Grounded on the teacher's accrual_service.go,
// generalized from its single accrual shape to the spec's 4-kind
// prepaid/accrued expense/income model with an explicit source/target
// account mapping per kind.

import (
	"fmt"
	"time"
)

// AccrualScheduler posts one period of an Accrual at a time, idempotently,
// with the final period absorbing any rounding residual.
type AccrualScheduler struct {
	store   *Store
	posting *PostingEngine
	events  *EventStore
}

func NewAccrualScheduler(store *Store, posting *PostingEngine, events *EventStore) *AccrualScheduler {
	return &AccrualScheduler{store: store, posting: posting, events: events}
}

// periodAmounts splits TotalAmount across Periods using SplitEven, so the
// sum always reconciles exactly to TotalAmount regardless of Periods.
func periodAmounts(a *Accrual) []Money {
	return SplitEven(a.TotalAmount, a.Periods)
}

// RunPeriod posts periodNumber (1-based) of accrualID into fiscalYearID,
// dated periodDate. Debit/credit direction follows the accrual's Kind:
// prepaid kinds release an asset/liability into the income statement each
// period; accrued kinds build up a liability/asset against the income
// statement each period.
func (as *AccrualScheduler) RunPeriod(accrualID, fiscalYearID int64, periodNumber int, periodDate time.Time) (*AccrualEntry, error) {
	accrual, err := as.store.GetAccrual(accrualID)
	if err != nil {
		return nil, err
	}
	if !accrual.Active {
		return nil, fmt.Errorf("ledger: accrual %d is not active", accrualID)
	}
	if periodNumber < 1 || periodNumber > accrual.Periods {
		return nil, fmt.Errorf("ledger: period %d is outside accrual %d's %d periods", periodNumber, accrualID, accrual.Periods)
	}

	exists, err := as.store.HasAccrualEntry(accrualID, periodNumber)
	if err != nil {
		return nil, err
	}
	if exists {
		entries, err := as.store.ListAccrualEntries(accrualID)
		if err != nil {
			return nil, err
		}
		for _, e := range entries {
			if e.PeriodNumber == periodNumber {
				return e, nil
			}
		}
	}

	amounts := periodAmounts(accrual)
	amount := amounts[periodNumber-1]

	debitAccount, creditAccount := accrualLineAccounts(accrual)

	v := &Verification{
		CompanyID:    accrual.CompanyID,
		FiscalYearID: fiscalYearID,
		Date:         periodDate,
		Description:  fmt.Sprintf("Periodisering %s (%d/%d)", accrual.Kind, periodNumber, accrual.Periods),
		Lines: []Line{
			{AccountID: debitAccount, Debit: amount},
			{AccountID: creditAccount, Credit: amount},
		},
	}
	committed, err := as.posting.Commit(v)
	if err != nil {
		return nil, err
	}

	entry := &AccrualEntry{
		AccrualID:      accrualID,
		PeriodNumber:   periodNumber,
		Amount:         amount,
		VerificationID: committed.ID,
	}
	if err := as.store.CreateAccrualEntry(entry); err != nil {
		return nil, &StoreUnavailable{Cause: err}
	}
	if _, err := as.events.Append(accrual.CompanyID, EventAccrualPosted, entry, periodDate, ""); err != nil {
		return nil, err
	}
	return entry, nil
}

// accrualLineAccounts returns (debitAccountID, creditAccountID) for one
// release/build-up period of accrual, given its Kind:
//
//   PrepaidExpense: an asset (SourceAccountID) was prepaid; each period
//     releases it into expense (debit TargetAccountID, credit
//     SourceAccountID).
//   AccruedExpense: an expense has been incurred but not yet invoiced;
//     each period books it (debit TargetAccountID expense, credit
//     SourceAccountID liability).
//   PrepaidIncome: income was received in advance; each period earns it
//     (debit SourceAccountID liability, credit TargetAccountID income).
//   AccruedIncome: income has been earned but not yet invoiced; each
//     period books it (debit SourceAccountID asset, credit
//     TargetAccountID income).
func accrualLineAccounts(a *Accrual) (debit, credit int64) {
	switch a.Kind {
	case PrepaidExpense, AccruedExpense:
		return a.TargetAccountID, a.SourceAccountID
	default: // PrepaidIncome, AccruedIncome
		return a.SourceAccountID, a.TargetAccountID
	}
}
