package ledger

// Report formatting on top of the Balance Engine, grounded on the
// teacher's reporting.go structure (a report type per statement, each with
// a plain-text Render), trimmed of the teacher's zero-based-budget and
// consolidation-group sections, which have no SPEC_FULL.md counterpart.

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// TrialBalanceReport is the printable trial balance for a fiscal year.
type TrialBalanceReport struct {
	FiscalYearID int64
	Rows         []TrialBalanceRow
	TotalDebit   Money
	TotalCredit  Money
}

// BuildTrialBalanceReport assembles a TrialBalanceReport as of asOf.
func BuildTrialBalanceReport(balance *BalanceEngine, fiscalYearID int64, asOf time.Time) (*TrialBalanceReport, error) {
	rows, err := balance.TrialBalance(fiscalYearID, asOf)
	if err != nil {
		return nil, err
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Account.Number < rows[j].Account.Number })
	report := &TrialBalanceReport{FiscalYearID: fiscalYearID, Rows: rows, TotalDebit: Zero(), TotalCredit: Zero()}
	for _, r := range rows {
		report.TotalDebit = report.TotalDebit.Add(r.DebitCol)
		report.TotalCredit = report.TotalCredit.Add(r.CreditCol)
	}
	return report, nil
}

// Render formats the report as an aligned plain-text table.
func (r *TrialBalanceReport) Render() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%-10s %-40s %14s %14s\n", "Account", "Name", "Debit", "Credit")
	for _, row := range r.Rows {
		fmt.Fprintf(&b, "%-10s %-40s %14s %14s\n", row.Account.Number, row.Account.Name, row.DebitCol, row.CreditCol)
	}
	fmt.Fprintf(&b, "%-10s %-40s %14s %14s\n", "", "TOTAL", r.TotalDebit, r.TotalCredit)
	return b.String()
}

// IncomeStatement groups income-statement accounts (classes 3-8) into
// revenue and expense and reports the net result.
type IncomeStatement struct {
	FiscalYearID int64
	Revenue      Money
	Expenses     Money
	Result       Money
}

// BuildIncomeStatement assembles an IncomeStatement as of asOf.
func BuildIncomeStatement(balance *BalanceEngine, fiscalYearID int64, asOf time.Time) (*IncomeStatement, error) {
	revenueBalance, err := balance.PrefixSum(fiscalYearID, asOf, "3")
	if err != nil {
		return nil, err
	}
	expenseBalance, err := balance.PrefixSum(fiscalYearID, asOf, "4", "5", "6", "7", "8")
	if err != nil {
		return nil, err
	}
	result, err := balance.PeriodResult(fiscalYearID, asOf)
	if err != nil {
		return nil, err
	}
	return &IncomeStatement{
		FiscalYearID: fiscalYearID,
		Revenue:      revenueBalance.Neg(),
		Expenses:     expenseBalance,
		Result:       result,
	}, nil
}

// Render formats the income statement as plain text.
func (s *IncomeStatement) Render() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Revenue:  %14s\n", s.Revenue)
	fmt.Fprintf(&b, "Expenses: %14s\n", s.Expenses)
	fmt.Fprintf(&b, "Result:   %14s\n", s.Result)
	return b.String()
}

// BalanceSheet groups balance-sheet accounts (classes 1-2) into assets
// and liabilities-plus-equity.
type BalanceSheet struct {
	FiscalYearID int64
	Assets       Money
	LiabilitiesAndEquity Money
}

// BuildBalanceSheet assembles a BalanceSheet as of asOf.
func BuildBalanceSheet(balance *BalanceEngine, fiscalYearID int64, asOf time.Time) (*BalanceSheet, error) {
	assets, err := balance.PrefixSum(fiscalYearID, asOf, "1")
	if err != nil {
		return nil, err
	}
	liabEquity, err := balance.PrefixSum(fiscalYearID, asOf, "2")
	if err != nil {
		return nil, err
	}
	return &BalanceSheet{
		FiscalYearID:         fiscalYearID,
		Assets:               assets,
		LiabilitiesAndEquity: liabEquity.Neg(),
	}, nil
}

// Render formats the balance sheet as plain text.
func (s *BalanceSheet) Render() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Assets:                 %14s\n", s.Assets)
	fmt.Fprintf(&b, "Liabilities and equity: %14s\n", s.LiabilitiesAndEquity)
	return b.String()
}
