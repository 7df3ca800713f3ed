package ledger

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestVATReportNetsOutputAgainstInput(t *testing.T) {
	f := newTestFixture(t)
	te := NewTaxEngine(f.balance)

	// sale: 1000 + 250 VAT
	_, err := f.posting.Commit(&Verification{
		CompanyID: f.company.ID, FiscalYearID: f.fiscalYear.ID,
		Date: time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC),
		Lines: []Line{
			{AccountID: f.acct("1910"), Debit: mustMoney(t, "1250.00")},
			{AccountID: f.acct("3010"), Credit: mustMoney(t, "1000.00")},
			{AccountID: f.acct("2610"), Credit: mustMoney(t, "250.00")},
		},
	})
	require.NoError(t, err)
	// purchase: 400 + 100 input VAT
	_, err = f.posting.Commit(&Verification{
		CompanyID: f.company.ID, FiscalYearID: f.fiscalYear.ID,
		Date: time.Date(2025, 2, 2, 0, 0, 0, 0, time.UTC),
		Lines: []Line{
			{AccountID: f.acct("4010"), Debit: mustMoney(t, "400.00")},
			{AccountID: f.acct("2640"), Debit: mustMoney(t, "100.00")},
			{AccountID: f.acct("1910"), Credit: mustMoney(t, "500.00")},
		},
	})
	require.NoError(t, err)

	report, err := te.VATReport(f.fiscalYear.ID, time.Time{})
	require.NoError(t, err)
	require.Equal(t, "1000.00", report.Box05.String())
	require.Equal(t, "250.00", report.Box10.String())
	require.Equal(t, "100.00", report.Box48.String())
	require.Equal(t, "150.00", report.Box49.String())
}

func TestAGIReportComputesContributions(t *testing.T) {
	f := newTestFixture(t)
	te := NewTaxEngine(f.balance)

	_, err := f.posting.Commit(&Verification{
		CompanyID: f.company.ID, FiscalYearID: f.fiscalYear.ID,
		Date: time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC),
		Lines: []Line{
			{AccountID: f.acct("7010"), Debit: mustMoney(t, "10000.00")},
			{AccountID: f.acct("2710"), Credit: mustMoney(t, "3000.00")},
			{AccountID: f.acct("2730"), Credit: mustMoney(t, "3142.00")},
			{AccountID: f.acct("1930"), Credit: mustMoney(t, "3858.00")},
		},
	})
	require.NoError(t, err)

	report, err := te.AGIReport(f.fiscalYear.ID, time.Time{})
	require.NoError(t, err)
	require.Equal(t, "10000.00", report.GrossSalary.String())
	require.Equal(t, "3142.00", report.CalculatedContributions.String())
	require.Equal(t, "3000.00", report.WithholdingTax.String())
	require.Equal(t, "3142.00", report.EmployerContribution.String())
}

func TestINK2ReportComputesTax(t *testing.T) {
	f := newTestFixture(t)
	te := NewTaxEngine(f.balance)

	_, err := f.posting.Commit(&Verification{
		CompanyID: f.company.ID, FiscalYearID: f.fiscalYear.ID,
		Date: time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC),
		Lines: []Line{
			{AccountID: f.acct("1910"), Debit: mustMoney(t, "10000.00")},
			{AccountID: f.acct("3010"), Credit: mustMoney(t, "10000.00")},
		},
	})
	require.NoError(t, err)

	report, err := te.INK2Report(f.fiscalYear.ID, time.Time{})
	require.NoError(t, err)
	require.Equal(t, "10000.00", report.TaxableIncome.String())
	require.Equal(t, "2060.00", report.Tax.String())
}
