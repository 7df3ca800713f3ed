package ledger

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// testFixture bundles a fresh store and the engines layered on it, plus a
// seeded company, chart of accounts and fiscal year, for use across the
// kernel's test suite.
type testFixture struct {
	store     *Store
	events    *EventStore
	posting   *PostingEngine
	balance   *BalanceEngine
	closing   *ClosingEngine
	company   *Company
	fiscalYear *FiscalYear
	accounts  map[string]*Account
}

func newTestFixture(t *testing.T) *testFixture {
	t.Helper()
	f := newBareFixture(t)

	seed := []struct {
		number, name string
		typ          AccountType
	}{
		{"1510", "Kundfordringar", Asset},
		{"1630", "Skattekonto", Asset},
		{"1710", "Förutbetalda kostnader", Asset},
		{"1910", "Kassa", Asset},
		{"1930", "Bankkonto", Asset},
		{"2099", "Årets resultat", Equity},
		{"2098", "Skatteskuld", Liability},
		{"2440", "Leverantörsskulder", Liability},
		{"2610", "Utgående moms, 25%", Liability},
		{"2640", "Ingående moms", Asset},
		{"2710", "Personalens källskatt", Liability},
		{"2730", "Lagstadgade sociala avgifter", Liability},
		{"3010", "Försäljning", Revenue},
		{"4010", "Inköp material", Expense},
		{"5010", "Lokalhyra", Expense},
		{"7010", "Löner", Expense},
	}
	for _, s := range seed {
		a := &Account{CompanyID: f.company.ID, Number: s.number, Name: s.name, Type: s.typ, Active: true}
		require.NoError(t, f.store.CreateAccount(a))
		f.accounts[s.number] = a
	}
	return f
}

// newBareFixture builds a fresh store with a company and fiscal year but
// no chart of accounts, for tests (e.g. SIE import) that need to control
// account creation themselves.
func newBareFixture(t *testing.T) *testFixture {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "bok.db")
	store, err := NewStore(dbPath, 2*time.Second)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	company := &Company{OrgNumber: "556677-8899", Name: "Test AB", Standard: K2, FiscalYearStartMonth: 1}
	require.NoError(t, store.CreateCompany(company))

	fy := &FiscalYear{
		CompanyID: company.ID,
		Start:     time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		End:       time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, store.CreateFiscalYear(fy))

	events := NewEventStore(store)
	posting := NewPostingEngine(store, events)
	balance := NewBalanceEngine(store)
	closing := NewClosingEngine(store, posting, balance, events)

	return &testFixture{
		store: store, events: events, posting: posting, balance: balance, closing: closing,
		company: company, fiscalYear: fy, accounts: make(map[string]*Account),
	}
}

func (f *testFixture) acct(number string) int64 {
	return f.accounts[number].ID
}
