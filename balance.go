package ledger

// Balance Engine: the single formula for an account's signed balance, and
// the trial balance / period result reports layered on top of it. This
// replaces the teacher's posting_engine.go getBalanceMultiplier, which
// branched on account class to decide the sign of each entry — a design
// that double-counts the sign already carried by the debit/credit split
// and was flagged as a defect in the spec's first open question. Here the
// formula is uniform for every account: signed balance = opening balance +
// Σdebit − Σcredit, with no class-dependent branching anywhere.

import (
	"sort"
	"strings"
	"time"
)

// BalanceEngine computes account and aggregate balances for a fiscal year
// by scanning its committed verifications.
type BalanceEngine struct {
	store *Store
}

func NewBalanceEngine(store *Store) *BalanceEngine {
	return &BalanceEngine{store: store}
}

// AccountBalance reports the signed balance of one account as of a fiscal
// year, optionally truncated to verifications dated on or before asOf.
type AccountBalance struct {
	AccountID int64
	Balance   Money
}

// Balance returns the signed balance of accountID within fiscalYearID: the
// account's opening balance for that year plus every debit, minus every
// credit, from verifications dated on or before asOf (or the year's end
// when asOf is zero).
func (be *BalanceEngine) Balance(fiscalYearID, accountID int64, asOf time.Time) (Money, error) {
	fy, err := be.store.GetFiscalYear(fiscalYearID)
	if err != nil {
		return Zero(), err
	}
	if asOf.IsZero() {
		asOf = fy.End
	}
	opening, err := be.store.GetOpeningBalance(fiscalYearID, accountID)
	if err != nil {
		return Zero(), err
	}
	verifications, err := be.store.ListVerificationsUpTo(fy.CompanyID, fiscalYearID, asOf)
	if err != nil {
		return Zero(), err
	}
	balance := opening
	for _, v := range verifications {
		for _, l := range v.Lines {
			if l.AccountID != accountID {
				continue
			}
			balance = balance.Add(l.Debit).Sub(l.Credit)
		}
	}
	return balance, nil
}

// AllBalances returns the signed balance of every account owned by the
// fiscal year's company, as of asOf.
func (be *BalanceEngine) AllBalances(fiscalYearID int64, asOf time.Time) ([]AccountBalance, error) {
	fy, err := be.store.GetFiscalYear(fiscalYearID)
	if err != nil {
		return nil, err
	}
	accounts, err := be.store.ListAccounts(fy.CompanyID)
	if err != nil {
		return nil, err
	}
	openings := make(map[int64]Money, len(accounts))
	for _, a := range accounts {
		ob, err := be.store.GetOpeningBalance(fiscalYearID, a.ID)
		if err != nil {
			return nil, err
		}
		openings[a.ID] = ob
	}
	if asOf.IsZero() {
		asOf = fy.End
	}
	verifications, err := be.store.ListVerificationsUpTo(fy.CompanyID, fiscalYearID, asOf)
	if err != nil {
		return nil, err
	}
	running := make(map[int64]Money, len(accounts))
	for id, ob := range openings {
		running[id] = ob
	}
	for _, v := range verifications {
		for _, l := range v.Lines {
			running[l.AccountID] = running[l.AccountID].Add(l.Debit).Sub(l.Credit)
		}
	}
	out := make([]AccountBalance, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, AccountBalance{AccountID: a.ID, Balance: running[a.ID]})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AccountID < out[j].AccountID })
	return out, nil
}

// TrialBalanceRow projects a signed balance onto the debit/credit columns
// of a conventional trial balance report.
type TrialBalanceRow struct {
	Account    *Account
	DebitCol   Money
	CreditCol  Money
	Balance    Money
}

// TrialBalance reports every account of fiscalYearID's company with a
// nonzero balance, split into debit and credit columns via MaxZero.
func (be *BalanceEngine) TrialBalance(fiscalYearID int64, asOf time.Time) ([]TrialBalanceRow, error) {
	fy, err := be.store.GetFiscalYear(fiscalYearID)
	if err != nil {
		return nil, err
	}
	balances, err := be.AllBalances(fiscalYearID, asOf)
	if err != nil {
		return nil, err
	}
	accountsByID := make(map[int64]*Account)
	accounts, err := be.store.ListAccounts(fy.CompanyID)
	if err != nil {
		return nil, err
	}
	for _, a := range accounts {
		accountsByID[a.ID] = a
	}
	var rows []TrialBalanceRow
	for _, b := range balances {
		if b.Balance.IsZero() {
			continue
		}
		rows = append(rows, TrialBalanceRow{
			Account:   accountsByID[b.AccountID],
			DebitCol:  MaxZero(b.Balance),
			CreditCol: MaxZero(b.Balance.Neg()),
			Balance:   b.Balance,
		})
	}
	return rows, nil
}

// IsBalanced reports whether Σdebit_col == Σcredit_col across the trial
// balance — true by construction, since every committed verification
// balances, but exposed as a standalone check for post-import and
// post-amendment diagnostics.
func (be *BalanceEngine) IsBalanced(fiscalYearID int64, asOf time.Time) (bool, error) {
	rows, err := be.TrialBalance(fiscalYearID, asOf)
	if err != nil {
		return false, err
	}
	debit, credit := Zero(), Zero()
	for _, r := range rows {
		debit = debit.Add(r.DebitCol)
		credit = credit.Add(r.CreditCol)
	}
	return debit.Equal(credit), nil
}

// PeriodResult returns the fiscal year's net result: revenue (class 3)
// minus expenses (classes 4-8). A positive result is a profit.
func (be *BalanceEngine) PeriodResult(fiscalYearID int64, asOf time.Time) (Money, error) {
	rows, err := be.TrialBalance(fiscalYearID, asOf)
	if err != nil {
		return Zero(), err
	}
	result := Zero()
	for _, r := range rows {
		switch r.Account.Class() {
		case 3, 4, 5, 6, 7, 8:
			// revenue (class 3) is normal-credit, so its balance runs negative
			// in a surplus; expenses (4-8) are normal-debit and run positive.
			// Subtracting both yields revenue minus expenses either way.
			result = result.Sub(r.Balance)
		}
	}
	return result, nil
}

// PrefixDebitSum sums only the trial-balance debit column of every account
// whose number starts with any of prefixes, i.e. the positive part of each
// account's net balance (e.g. AGI's gross salary on 70*). Credits posted to
// such an account reduce its contribution; this is not gross debit turnover.
func (be *BalanceEngine) PrefixDebitSum(fiscalYearID int64, asOf time.Time, prefixes ...string) (Money, error) {
	rows, err := be.TrialBalance(fiscalYearID, asOf)
	if err != nil {
		return Zero(), err
	}
	total := Zero()
	for _, r := range rows {
		for _, p := range prefixes {
			if strings.HasPrefix(r.Account.Number, p) {
				total = total.Add(r.DebitCol)
				break
			}
		}
	}
	return total, nil
}

// PrefixSum sums the signed balance of every account whose number starts
// with any of prefixes, as used by the tax aggregators (§4.8-style group
// tables) and the reporting package's line groupings.
func (be *BalanceEngine) PrefixSum(fiscalYearID int64, asOf time.Time, prefixes ...string) (Money, error) {
	rows, err := be.TrialBalance(fiscalYearID, asOf)
	if err != nil {
		return Zero(), err
	}
	total := Zero()
	for _, r := range rows {
		for _, p := range prefixes {
			if strings.HasPrefix(r.Account.Number, p) {
				total = total.Add(r.Balance)
				break
			}
		}
	}
	return total, nil
}
