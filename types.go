package ledger

// Core data structures for the ledger kernel: tenants, chart of accounts,
// fiscal years, balanced verifications, and the rule-posting entities
// (assets, accruals, templates) that the schedulers produce. No business
// logic lives here — that is layered on in posting.go, balance.go,
// closing.go and the scheduler files.

import (
	"time"

	"github.com/shopspring/decimal"
)

// ----------------------------------------------------------------------------
// Reporting standard & chart classification
// ----------------------------------------------------------------------------

type ReportingStandard string

const (
	K2 ReportingStandard = "K2"
	K3 ReportingStandard = "K3"
)

type AccountType string

const (
	Asset     AccountType = "ASSET"
	Liability AccountType = "LIABILITY"
	Equity    AccountType = "EQUITY"
	Revenue   AccountType = "REVENUE"
	Expense   AccountType = "EXPENSE"
)

// ----------------------------------------------------------------------------
// Tenant
// ----------------------------------------------------------------------------

// Company is a legal entity: the root of every owned collection (accounts,
// fiscal years, verifications, assets, accruals, templates).
type Company struct {
	ID                   int64             `json:"id"`
	OrgNumber            string            `json:"org_number"` // NNNNNN-NNNN
	Name                 string            `json:"name"`
	Standard             ReportingStandard `json:"standard"`
	FiscalYearStartMonth int               `json:"fiscal_year_start_month"` // 1..12
	ContactEmail         string            `json:"contact_email,omitempty"`
	ContactPhone         string            `json:"contact_phone,omitempty"`
	CreatedAt            time.Time         `json:"created_at"`
}

// ----------------------------------------------------------------------------
// Chart of accounts
// ----------------------------------------------------------------------------

// Account is a BAS-numbered ledger account owned by a Company.
type Account struct {
	ID             int64       `json:"id"`
	CompanyID      int64       `json:"company_id"`
	Number         string      `json:"number"` // 1-10 chars; first digit is class 1-8
	Name           string      `json:"name"`
	Type           AccountType `json:"type"`
	VATCode        string      `json:"vat_code,omitempty"`
	Active         bool        `json:"active"`
	OpeningBalance Money       `json:"opening_balance"` // SIE sign: +debit, -credit
}

// Class returns the account's leading digit, 1-8, or 0 if Number is empty.
func (a Account) Class() int {
	if a.Number == "" {
		return 0
	}
	c := a.Number[0]
	if c < '1' || c > '8' {
		return 0
	}
	return int(c - '0')
}

// NormalDebit reports whether the account's normal balance is the debit
// side. Classes 1 and 4-8 are normal-debit; classes 2-3 are normal-credit.
func (a Account) NormalDebit() bool {
	switch a.Class() {
	case 1, 4, 5, 6, 7, 8:
		return true
	default:
		return false
	}
}

// IsBalanceSheet reports whether the account belongs to the balance sheet
// (classes 1-2) as opposed to the income statement (classes 3-8).
func (a Account) IsBalanceSheet() bool {
	c := a.Class()
	return c == 1 || c == 2
}

// ----------------------------------------------------------------------------
// Fiscal years
// ----------------------------------------------------------------------------

// FiscalYear is a contiguous 1-24 month accounting period for a Company.
type FiscalYear struct {
	ID        int64     `json:"id"`
	CompanyID int64     `json:"company_id"`
	Start     time.Time `json:"start"`
	End       time.Time `json:"end"`
	Closed    bool      `json:"closed"`
}

// Contains reports whether d lies within [Start, End] inclusive.
func (fy FiscalYear) Contains(d time.Time) bool {
	d = truncateToDay(d)
	return !d.Before(truncateToDay(fy.Start)) && !d.After(truncateToDay(fy.End))
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// ----------------------------------------------------------------------------
// Verifications
// ----------------------------------------------------------------------------

// Line is one debit or credit leg of a Verification.
type Line struct {
	AccountID int64  `json:"account_id"`
	Debit     Money  `json:"debit"`
	Credit    Money  `json:"credit"`
	Note      string `json:"note,omitempty"`
}

// Verification is a balanced posting: a single accounting journal entry.
// Number is dense and 1-based per (CompanyID, FiscalYearID), assigned at
// insert by the Posting Engine.
type Verification struct {
	ID           int64     `json:"id"`
	CompanyID    int64     `json:"company_id"`
	FiscalYearID int64     `json:"fiscal_year_id"`
	Number       int       `json:"number"`
	Date         time.Time `json:"date"`
	Description  string    `json:"description"`
	CreatedAt    time.Time `json:"created_at"`
	Lines        []Line    `json:"lines"`
}

// DebitTotal sums the debit column.
func (v Verification) DebitTotal() Money {
	total := Zero()
	for _, l := range v.Lines {
		total = total.Add(l.Debit)
	}
	return total
}

// CreditTotal sums the credit column.
func (v Verification) CreditTotal() Money {
	total := Zero()
	for _, l := range v.Lines {
		total = total.Add(l.Credit)
	}
	return total
}

// IsBalanced reports whether Σ debit == Σ credit. The invariant is enforced
// at creation time and re-enforced on demand for amended verifications
// (§4.1); it is never silently assumed after an amendment.
func (v Verification) IsBalanced() bool {
	return v.DebitTotal().Equal(v.CreditTotal())
}

// ----------------------------------------------------------------------------
// Assets & depreciation
// ----------------------------------------------------------------------------

type AssetType string

const (
	AssetTangible   AssetType = "TANGIBLE"
	AssetIntangible AssetType = "INTANGIBLE"
	AssetFinancial  AssetType = "FINANCIAL"
)

type DepreciationMethod string

const (
	DepreciationLinear    DepreciationMethod = "LINEAR"
	DepreciationDeclining DepreciationMethod = "DECLINING"
	DepreciationComponent DepreciationMethod = "COMPONENT" // declared, not implemented; see DESIGN.md
)

// Asset is a depreciable asset owned by a Company.
type Asset struct {
	ID                   int64              `json:"id"`
	CompanyID            int64              `json:"company_id"`
	Name                 string             `json:"name"`
	Type                 AssetType          `json:"type"`
	AcquisitionDate      time.Time          `json:"acquisition_date"`
	AcquisitionCost      Money              `json:"acquisition_cost"`
	ResidualValue        Money              `json:"residual_value"`
	UsefulLifeMonths     int                `json:"useful_life_months"`
	Method               DepreciationMethod `json:"method"`
	CarryingAccountID    int64              `json:"carrying_account_id"`
	ExpenseAccountID     int64              `json:"expense_account_id"`
	AccumulatedAccountID int64              `json:"accumulated_account_id"`
	Active               bool               `json:"active"`
	DisposedAt           *time.Time         `json:"disposed_at,omitempty"`
	DisposalProceeds     *Money             `json:"disposal_proceeds,omitempty"`
}

// DepreciationEntry is one posted period of depreciation for an Asset.
// Unique per (AssetID, PeriodDate, PeriodType).
type DepreciationEntry struct {
	ID             int64     `json:"id"`
	AssetID        int64     `json:"asset_id"`
	PeriodDate     time.Time `json:"period_date"`
	PeriodType     string    `json:"period_type"` // "MONTH"
	Amount         Money     `json:"amount"`
	VerificationID int64     `json:"verification_id"`
}

// ----------------------------------------------------------------------------
// Accruals
// ----------------------------------------------------------------------------

type AccrualKind string

const (
	PrepaidExpense AccrualKind = "PREPAID_EXPENSE"
	AccruedExpense AccrualKind = "ACCRUED_EXPENSE"
	PrepaidIncome  AccrualKind = "PREPAID_INCOME"
	AccruedIncome  AccrualKind = "ACCRUED_INCOME"
)

type Frequency string

const (
	Monthly   Frequency = "MONTHLY"
	Quarterly Frequency = "QUARTERLY"
	Annual    Frequency = "ANNUAL"
)

// Accrual is a periodisation definition: total amount spread evenly across
// Periods occurrences, booked between a source and a target account.
type Accrual struct {
	ID              int64       `json:"id"`
	CompanyID       int64       `json:"company_id"`
	Kind            AccrualKind `json:"kind"`
	TotalAmount     Money       `json:"total_amount"`
	Periods         int         `json:"periods"`
	AmountPerPeriod Money       `json:"amount_per_period"`
	StartDate       time.Time   `json:"start_date"`
	EndDate         time.Time   `json:"end_date"`
	Frequency       Frequency   `json:"frequency"`
	SourceAccountID int64       `json:"source_account_id"`
	TargetAccountID int64       `json:"target_account_id"`
	Active          bool        `json:"active"`
}

// AccrualEntry is one posted period of an Accrual. Unique per
// (AccrualID, PeriodNumber).
type AccrualEntry struct {
	ID             int64 `json:"id"`
	AccrualID      int64 `json:"accrual_id"`
	PeriodNumber   int   `json:"period_number"`
	Amount         Money `json:"amount"`
	VerificationID int64 `json:"verification_id"`
}

// ----------------------------------------------------------------------------
// Templates
// ----------------------------------------------------------------------------

type TemplateLineKind string

const (
	TemplateFixed      TemplateLineKind = "FIXED"
	TemplatePercentage TemplateLineKind = "PERCENTAGE"
	TemplateRemainder  TemplateLineKind = "REMAINDER"
)

type TemplateSide string

const (
	TemplateDebit  TemplateSide = "DEBIT"
	TemplateCredit TemplateSide = "CREDIT"
)

// TemplateLine is one tagged line of a Template: a Fixed amount, a
// Percentage of the applied total, or the single Remainder that balances
// the rest.
type TemplateLine struct {
	Kind      TemplateLineKind `json:"kind"`
	Amount    Money            `json:"amount,omitempty"` // Fixed
	Rate      decimal.Decimal  `json:"rate,omitempty"`   // Percentage, in [0,100]
	Side      TemplateSide     `json:"side"`
	AccountID int64            `json:"account_id"`
}

// Template is an ordered set of posting lines expanded against a total
// amount by the Template Engine.
type Template struct {
	ID        int64          `json:"id"`
	CompanyID int64          `json:"company_id"`
	Name      string         `json:"name"`
	Lines     []TemplateLine `json:"lines"`
}
