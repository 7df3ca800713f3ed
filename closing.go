package ledger

// Closing Engine: the year-end transition described in §4.4. Grounded on
// the teacher's engine.go orchestration style (a facade method sequencing
// checks before touching storage), generalized from the teacher's period
// lifecycle to the spec's disposition-and-carry model.

import (
	"fmt"
)

const (
	closingCostsAndRevenuesAccount = "2099" // årets resultat
	taxAccount                     = "2098" // balanserat resultat
)

// ClosingReport summarizes the checks and postings a Close produced.
type ClosingReport struct {
	FiscalYearID    int64
	PeriodResult    Money
	DispositionVerificationID int64
	NextFiscalYearID int64
	CarriedAccounts  int
	// Warnings holds non-fatal conditions noticed during the close (inactive
	// year, missing key accounts) that did not block the transition.
	Warnings []string
}

// ClosingEngine sequences the checks and postings that turn an open
// fiscal year into a closed one.
type ClosingEngine struct {
	store   *Store
	posting *PostingEngine
	balance *BalanceEngine
	events  *EventStore
}

func NewClosingEngine(store *Store, posting *PostingEngine, balance *BalanceEngine, events *EventStore) *ClosingEngine {
	return &ClosingEngine{store: store, posting: posting, balance: balance, events: events}
}

// Close runs the full year-end sequence for fiscalYearID: trial-balance
// check (fatal), activity check and key-account presence (both recorded as
// warnings on the report, not fatal), period-result disposition posting,
// opening-balance carry into nextFiscalYearID (classes 1-2 only), and marks
// the year closed. A non-zero result still requires the key accounts to
// exist, since the disposition posting cannot be built without them. It
// runs once per year: calling it again on an already-closed year returns
// ClosedYearError and changes nothing.
func (ce *ClosingEngine) Close(fiscalYearID, nextFiscalYearID int64) (*ClosingReport, error) {
	fy, err := ce.store.GetFiscalYear(fiscalYearID)
	if err != nil {
		return nil, err
	}
	if fy.Closed {
		return nil, &ClosedYearError{FiscalYearID: fy.ID}
	}

	ok, err := ce.balance.IsBalanced(fiscalYearID, fy.End)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("ledger: fiscal year %d trial balance does not balance, refusing to close", fiscalYearID)
	}

	var warnings []string

	verifications, err := ce.store.ListVerifications(fy.CompanyID, fiscalYearID)
	if err != nil {
		return nil, err
	}
	if len(verifications) == 0 {
		warnings = append(warnings, fmt.Sprintf("fiscal year %d has no verifications on or before the close date", fiscalYearID))
	}

	resultAccount, resultErr := ce.store.GetAccountByNumber(fy.CompanyID, closingCostsAndRevenuesAccount)
	taxAcct, taxErr := ce.store.GetAccountByNumber(fy.CompanyID, taxAccount)
	if resultErr != nil || taxErr != nil {
		warnings = append(warnings, fmt.Sprintf("key account %s or %s missing", closingCostsAndRevenuesAccount, taxAccount))
	}

	result, err := ce.balance.PeriodResult(fiscalYearID, fy.End)
	if err != nil {
		return nil, err
	}

	var disposition int64
	if !result.IsZero() {
		if resultErr != nil || taxErr != nil {
			return nil, fmt.Errorf("ledger: cannot post disposition, key account %s or %s missing", closingCostsAndRevenuesAccount, taxAccount)
		}
		disposition, err = ce.postDisposition(fy, resultAccount, taxAcct, result)
		if err != nil {
			return nil, err
		}
	}

	carried := 0
	if nextFiscalYearID != 0 {
		carried, err = ce.carryOpeningBalances(fy, nextFiscalYearID)
		if err != nil {
			return nil, err
		}
	}

	fy.Closed = true
	if err := ce.store.UpdateFiscalYear(fy); err != nil {
		return nil, &StoreUnavailable{Cause: err}
	}
	if _, err := ce.events.Append(fy.CompanyID, EventFiscalYearClosed, FiscalYearClosedEvent{FiscalYearID: fy.ID, NextFiscalYearID: nextFiscalYearID}, fy.End, ""); err != nil {
		return nil, err
	}

	return &ClosingReport{
		FiscalYearID:              fy.ID,
		PeriodResult:              result,
		DispositionVerificationID: disposition,
		NextFiscalYearID:          nextFiscalYearID,
		CarriedAccounts:           carried,
		Warnings:                  warnings,
	}, nil
}

// postDisposition books the period result between 2099 (årets resultat)
// and 2098 (balanserat resultat): a profit debits 2099 and credits 2098, a loss is the
// reverse (§4.4). result is assumed non-zero; the caller skips the call
// entirely when the year broke even.
func (ce *ClosingEngine) postDisposition(fy *FiscalYear, resultAccount, taxAcct *Account, result Money) (int64, error) {
	var lines []Line
	if result.IsPositive() {
		lines = []Line{
			{AccountID: resultAccount.ID, Debit: result},
			{AccountID: taxAcct.ID, Credit: result},
		}
	} else {
		amount := result.Neg()
		lines = []Line{
			{AccountID: taxAcct.ID, Debit: amount},
			{AccountID: resultAccount.ID, Credit: amount},
		}
	}

	v := &Verification{
		CompanyID:    fy.CompanyID,
		FiscalYearID: fy.ID,
		Date:         fy.End,
		Description:  "Årets resultat - disposition",
		Lines:        lines,
	}
	committed, err := ce.posting.Commit(v)
	if err != nil {
		return 0, err
	}
	return committed.ID, nil
}

// carryOpeningBalances copies the closing balance of every balance-sheet
// account (classes 1-2) into nextFiscalYearID's opening balances. It is
// idempotent: running it twice for the same pair overwrites the same
// values rather than compounding them.
func (ce *ClosingEngine) carryOpeningBalances(fy *FiscalYear, nextFiscalYearID int64) (int, error) {
	next, err := ce.store.GetFiscalYear(nextFiscalYearID)
	if err != nil {
		return 0, err
	}
	if next.CompanyID != fy.CompanyID {
		return 0, fmt.Errorf("ledger: fiscal year %d belongs to a different company", nextFiscalYearID)
	}

	balances, err := ce.balance.AllBalances(fy.ID, fy.End)
	if err != nil {
		return 0, err
	}
	accounts, err := ce.store.ListAccounts(fy.CompanyID)
	if err != nil {
		return 0, err
	}
	byID := make(map[int64]*Account, len(accounts))
	for _, a := range accounts {
		byID[a.ID] = a
	}

	count := 0
	for _, b := range balances {
		a := byID[b.AccountID]
		if a == nil || !a.IsBalanceSheet() {
			continue
		}
		if err := ce.store.SetOpeningBalance(nextFiscalYearID, a.ID, b.Balance); err != nil {
			return 0, &StoreUnavailable{Cause: err}
		}
		count++
	}
	return count, nil
}
