package ledger

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const sampleSIE = `#FLAGGA 0
#PROGRAM "Test" 1.0
#FORMAT PC8
#GEN 20250101
#FNAMN "Exempel AB"
#ORGNR 556677-8899
#RAR 0 20250101 20251231
#KONTO 1910 "Kassa"
#KONTO 3010 "Försäljning"
#IB 0 1910 500.00
#VER A 1 20250215 "Kontantförsäljning"
{
#TRANS 1910 {} 200.00
#TRANS 3010 {} -200.00
}
`

func TestDecodeSIEParsesDocument(t *testing.T) {
	doc, err := DecodeSIE([]byte(sampleSIE))
	require.NoError(t, err)
	require.Equal(t, "Exempel AB", doc.CompanyName)
	require.Equal(t, "556677-8899", doc.OrgNumber)
	require.Len(t, doc.FiscalYears, 1)
	require.Len(t, doc.Accounts, 2)
	require.Len(t, doc.Openings, 1)
	require.Len(t, doc.Verifications, 1)
	require.Len(t, doc.Verifications[0].Lines, 2)
}

func TestDecodeSIETolerantOfUnknownTags(t *testing.T) {
	raw := sampleSIE + "#SRU 1910 7214\n#FUTURETAG foo bar baz\n"
	_, err := DecodeSIE([]byte(raw))
	require.NoError(t, err)
}

func TestParseSIEDateLongAndShortForm(t *testing.T) {
	d, err := parseSIEDate("20250215")
	require.NoError(t, err)
	require.Equal(t, time.Date(2025, 2, 15, 0, 0, 0, 0, time.UTC), d)

	d2, err := parseSIEDate("250215")
	require.NoError(t, err)
	require.Equal(t, time.Date(2025, 2, 15, 0, 0, 0, 0, time.UTC), d2)

	d3, err := parseSIEDate("990215")
	require.NoError(t, err)
	require.Equal(t, 1999, d3.Year())
}

func TestSIEImportThenBalanceMatches(t *testing.T) {
	f := newBareFixture(t)
	doc, err := DecodeSIE([]byte(sampleSIE))
	require.NoError(t, err)

	importer := NewSIEImporter(f.store, f.posting)
	result, err := importer.Import(f.company.ID, doc)
	require.NoError(t, err)
	require.Equal(t, 1, result.VerificationsOK)
	require.Equal(t, 0, result.VerificationsSkipped)
	require.Equal(t, 2, result.AccountsCreated)

	// #IB 500.00 plus the imported 200.00 debit
	cash, err := f.store.GetAccountByNumber(f.company.ID, "1910")
	require.NoError(t, err)
	cashBalance, err := f.balance.Balance(result.FiscalYearIDs[0], cash.ID, time.Time{})
	require.NoError(t, err)
	require.Equal(t, "700.00", cashBalance.String())
}

func TestSIEImportSkipsUnbalancedVerification(t *testing.T) {
	raw := strings.Replace(sampleSIE, "#TRANS 3010 {} -200.00", "#TRANS 3010 {} -150.00", 1)
	doc, err := DecodeSIE([]byte(raw))
	require.NoError(t, err)

	f := newBareFixture(t)
	importer := NewSIEImporter(f.store, f.posting)
	result, err := importer.Import(f.company.ID, doc)
	require.NoError(t, err)
	require.Equal(t, 0, result.VerificationsOK)
	require.Equal(t, 1, result.VerificationsSkipped)
}

func TestSIEImportNewCreatesCompanyFromDocument(t *testing.T) {
	store, err := NewStore(filepath.Join(t.TempDir(), "bok.db"), time.Second)
	require.NoError(t, err)
	defer store.Close()
	events := NewEventStore(store)
	posting := NewPostingEngine(store, events)

	doc, err := DecodeSIE([]byte(sampleSIE))
	require.NoError(t, err)

	importer := NewSIEImporter(store, posting)
	result, err := importer.ImportNew(doc)
	require.NoError(t, err)
	require.NotZero(t, result.CompanyID)
	require.Equal(t, 1, result.VerificationsOK)

	company, err := store.GetCompany(result.CompanyID)
	require.NoError(t, err)
	require.Equal(t, "Exempel AB", company.Name)
	require.Equal(t, "556677-8899", company.OrgNumber)
}

func TestInferAccountTypeClassesTwentyAndTwentyOneAreEquity(t *testing.T) {
	require.Equal(t, Equity, inferAccountType("2081"))
	require.Equal(t, Equity, inferAccountType("2091"))
	require.Equal(t, Equity, inferAccountType("2150"))
	require.Equal(t, Liability, inferAccountType("2440"))
	require.Equal(t, Asset, inferAccountType("1910"))
}

func TestSIERoundTrip(t *testing.T) {
	f := newTestFixture(t)
	_, err := f.posting.Commit(&Verification{
		CompanyID: f.company.ID, FiscalYearID: f.fiscalYear.ID,
		Date: time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC),
		Description: "cash sale",
		Lines: []Line{
			{AccountID: f.acct("1910"), Debit: mustMoney(t, "1000.00")},
			{AccountID: f.acct("3010"), Credit: mustMoney(t, "1000.00")},
		},
	})
	require.NoError(t, err)

	writer := NewSIEWriter(f.store)
	text, err := writer.Write(f.fiscalYear.ID)
	require.NoError(t, err)
	require.Contains(t, text, "#VER A 1 20250201")
	require.Contains(t, text, "#KONTO 1910")

	doc, err := DecodeSIE([]byte(text))
	require.NoError(t, err)
	require.Len(t, doc.Verifications, 1)
	require.Len(t, doc.Verifications[0].Lines, 2)
}
