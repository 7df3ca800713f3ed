package ledger

// Tax aggregators (VAT/SKV 4700, AGI, INK2): read-only reports layered on
// the Balance Engine's prefix-sum queries. None of this exists in the
// teacher; it is supplemented from original_source/app/services/tax.py and
// app/services/tax_declaration.py per spec.md §6's declarative box/group
// tables, expressed here as plain Go rather than translated line-for-line.

import (
	"time"

	"github.com/shopspring/decimal"
)

var ink2Rate = decimal.RequireFromString("0.206")
var agiContributionRate = decimal.RequireFromString("0.3142")

// TaxEngine computes the statutory aggregations a Swedish small business
// files: VAT (SKV 4700), the employer report (AGI), and corporate income
// tax (INK2).
type TaxEngine struct {
	balance *BalanceEngine
}

func NewTaxEngine(balance *BalanceEngine) *TaxEngine {
	return &TaxEngine{balance: balance}
}

// VATReport is SKV 4700's box layout.
type VATReport struct {
	Box05 Money // taxable sales ex VAT
	Box10 Money // output VAT, account 2610
	Box11 Money // output VAT, account 2620
	Box12 Money // output VAT, account 2630
	Box48 Money // input VAT, account 2640
	Box49 Money // net VAT payable (positive) or refundable (negative)
}

func (te *TaxEngine) VATReport(fiscalYearID int64, asOf time.Time) (*VATReport, error) {
	box05, err := te.balance.PrefixSum(fiscalYearID, asOf, "3")
	if err != nil {
		return nil, err
	}
	box10, err := te.balance.PrefixSum(fiscalYearID, asOf, "2610")
	if err != nil {
		return nil, err
	}
	box11, err := te.balance.PrefixSum(fiscalYearID, asOf, "2620")
	if err != nil {
		return nil, err
	}
	box12, err := te.balance.PrefixSum(fiscalYearID, asOf, "2630")
	if err != nil {
		return nil, err
	}
	box48, err := te.balance.PrefixDebitSum(fiscalYearID, asOf, "2640")
	if err != nil {
		return nil, err
	}
	// box05 is class 3 (normal-credit); report as a positive sales figure.
	box05 = box05.Neg()
	outputVAT := box10.Neg().Add(box11.Neg()).Add(box12.Neg())
	box49 := outputVAT.Sub(box48)
	return &VATReport{
		Box05: box05,
		Box10: box10.Neg(),
		Box11: box11.Neg(),
		Box12: box12.Neg(),
		Box48: box48,
		Box49: box49,
	}, nil
}

// AGIReport is the employer (arbetsgivardeklaration) report.
type AGIReport struct {
	GrossSalary           Money
	CalculatedContributions Money
	WithholdingTax        Money
	EmployerContribution  Money
	TotalPayable          Money
}

func (te *TaxEngine) AGIReport(fiscalYearID int64, asOf time.Time) (*AGIReport, error) {
	gross, err := te.balance.PrefixDebitSum(fiscalYearID, asOf, "70")
	if err != nil {
		return nil, err
	}
	withholdingBalance, err := te.balance.PrefixSum(fiscalYearID, asOf, "2710")
	if err != nil {
		return nil, err
	}
	employerBalance, err := te.balance.PrefixSum(fiscalYearID, asOf, "273")
	if err != nil {
		return nil, err
	}
	withholding := withholdingBalance.Neg()   // credit-minus-debit
	employer := employerBalance.Neg()         // credit-minus-debit
	return &AGIReport{
		GrossSalary:             gross,
		CalculatedContributions: gross.MulRate(agiContributionRate),
		WithholdingTax:          withholding,
		EmployerContribution:    employer,
		TotalPayable:            withholding.Add(employer),
	}, nil
}

// ink2Groups is the exhaustive account-prefix table from spec.md §6.
var ink2Groups = map[string][]string{
	"revenue":            {"30", "31", "32", "33", "34", "35", "36", "37", "38", "39"},
	"goods_cost":         {"40", "41", "42", "43", "44", "45", "46", "47", "48", "49"},
	"other_external":     {"50", "51", "52", "53", "54", "55", "56", "57", "58", "59", "60", "61", "62", "63", "64", "65", "66", "67", "68", "69"},
	"personnel":          {"70", "71", "72", "73", "74", "75", "76"},
	"depreciation":       {"78"},
	"other_operating":    {"77", "79"},
	"financial_income":   {"80", "81", "82", "83"},
	"financial_expense":  {"84"},
	"extraordinary":      {"85", "86", "87", "88"},
	"tax":                {"89"},
	"intangible_assets":  {"10"},
	"tangible":           {"11", "12"},
	"financial_assets":   {"13"},
	"inventory":          {"14"},
	"receivables":        {"15", "16", "17"},
	"cash":               {"19"},
	"equity":             {"20"},
	"provisions":         {"22", "23"},
	"long_term_debt":     {"24"},
	"short_term_debt":    {"25", "26", "27", "28", "29"},
}

// INK2Report is the corporate income tax aggregation.
type INK2Report struct {
	Groups        map[string]Money
	TaxableIncome Money
	Tax           Money
}

func (te *TaxEngine) INK2Report(fiscalYearID int64, asOf time.Time) (*INK2Report, error) {
	groups := make(map[string]Money, len(ink2Groups))
	for name, prefixes := range ink2Groups {
		sum, err := te.balance.PrefixSum(fiscalYearID, asOf, prefixes...)
		if err != nil {
			return nil, err
		}
		groups[name] = sum
	}
	result, err := te.balance.PeriodResult(fiscalYearID, asOf)
	if err != nil {
		return nil, err
	}
	tax := MaxZero(result.MulRate(ink2Rate))
	return &INK2Report{Groups: groups, TaxableIncome: result, Tax: tax}, nil
}
