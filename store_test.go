package ledger

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestStoreCompanyOrgNumberUniqueness(t *testing.T) {
	store, err := NewStore(filepath.Join(t.TempDir(), "bok.db"), time.Second)
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.CreateCompany(&Company{OrgNumber: "111111-1111", Name: "A"}))
	err = store.CreateCompany(&Company{OrgNumber: "111111-1111", Name: "B"})
	require.Error(t, err)
}

func TestStoreAccountNumberUniquenessPerCompany(t *testing.T) {
	store, err := NewStore(filepath.Join(t.TempDir(), "bok.db"), time.Second)
	require.NoError(t, err)
	defer store.Close()

	c1 := &Company{OrgNumber: "111111-1111", Name: "A"}
	require.NoError(t, store.CreateCompany(c1))
	c2 := &Company{OrgNumber: "222222-2222", Name: "B"}
	require.NoError(t, store.CreateCompany(c2))

	require.NoError(t, store.CreateAccount(&Account{CompanyID: c1.ID, Number: "1910", Name: "Kassa"}))
	// same number, different company: fine
	require.NoError(t, store.CreateAccount(&Account{CompanyID: c2.ID, Number: "1910", Name: "Kassa"}))
	// same number, same company: rejected
	err = store.CreateAccount(&Account{CompanyID: c1.ID, Number: "1910", Name: "Kassa duplicate"})
	require.Error(t, err)
}

func TestStoreNextVerificationNumberDenseAndMaxPlusOne(t *testing.T) {
	store, err := NewStore(filepath.Join(t.TempDir(), "bok.db"), time.Second)
	require.NoError(t, err)
	defer store.Close()

	company := &Company{OrgNumber: "111111-1111", Name: "A"}
	require.NoError(t, store.CreateCompany(company))
	fy := &FiscalYear{CompanyID: company.ID, Start: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), End: time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC)}
	require.NoError(t, store.CreateFiscalYear(fy))

	n, err := store.NextVerificationNumber(company.ID, fy.ID)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	require.NoError(t, store.InsertVerification(&Verification{CompanyID: company.ID, FiscalYearID: fy.ID, Number: 1, Date: fy.Start}))
	require.NoError(t, store.InsertVerification(&Verification{CompanyID: company.ID, FiscalYearID: fy.ID, Number: 2, Date: fy.Start}))

	n, err = store.NextVerificationNumber(company.ID, fy.ID)
	require.NoError(t, err)
	require.Equal(t, 3, n)
}

func TestStoreListAccountsReturnsAllForCompany(t *testing.T) {
	store, err := NewStore(filepath.Join(t.TempDir(), "bok.db"), time.Second)
	require.NoError(t, err)
	defer store.Close()

	company := &Company{OrgNumber: "111111-1111", Name: "A"}
	require.NoError(t, store.CreateCompany(company))
	for _, n := range []string{"1910", "2099", "3010"} {
		require.NoError(t, store.CreateAccount(&Account{CompanyID: company.ID, Number: n, Name: n}))
	}
	accounts, err := store.ListAccounts(company.ID)
	require.NoError(t, err)
	require.Len(t, accounts, 3)
}

func TestStoreDeleteCompanyCascades(t *testing.T) {
	store, err := NewStore(filepath.Join(t.TempDir(), "bok.db"), time.Second)
	require.NoError(t, err)
	defer store.Close()

	company := &Company{OrgNumber: "111111-1111", Name: "A"}
	require.NoError(t, store.CreateCompany(company))
	fy := &FiscalYear{CompanyID: company.ID, Start: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), End: time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC)}
	require.NoError(t, store.CreateFiscalYear(fy))

	cash := &Account{CompanyID: company.ID, Number: "1910", Name: "Kassa"}
	require.NoError(t, store.CreateAccount(cash))
	revenue := &Account{CompanyID: company.ID, Number: "3010", Name: "Försäljning"}
	require.NoError(t, store.CreateAccount(revenue))
	require.NoError(t, store.InsertVerification(&Verification{
		CompanyID: company.ID, FiscalYearID: fy.ID, Number: 1, Date: fy.Start,
		Lines: []Line{{AccountID: cash.ID, Debit: mustMoney(t, "100.00")}, {AccountID: revenue.ID, Credit: mustMoney(t, "100.00")}},
	}))
	require.NoError(t, store.SetOpeningBalance(fy.ID, cash.ID, mustMoney(t, "50.00")))

	require.NoError(t, store.DeleteCompany(company.ID))

	_, err = store.GetCompany(company.ID)
	require.Error(t, err)
	_, err = store.GetCompanyByOrgNumber("111111-1111")
	require.Error(t, err)
	_, err = store.GetAccount(cash.ID)
	require.Error(t, err)
	_, err = store.GetFiscalYear(fy.ID)
	require.Error(t, err)
	verifications, err := store.ListVerifications(company.ID, fy.ID)
	require.NoError(t, err)
	require.Empty(t, verifications)

	// the org number and account number are free again for reuse
	require.NoError(t, store.CreateCompany(&Company{OrgNumber: "111111-1111", Name: "B"}))
	require.NoError(t, store.CreateAccount(&Account{CompanyID: company.ID, Number: "1910", Name: "Kassa"}))
}

func TestStoreNotFound(t *testing.T) {
	store, err := NewStore(filepath.Join(t.TempDir(), "bok.db"), time.Second)
	require.NoError(t, err)
	defer store.Close()

	_, err = store.GetCompany(999)
	require.Error(t, err)
	var nf *NotFound
	require.ErrorAs(t, err, &nf)
}
