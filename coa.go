package ledger

// Chart-of-accounts seed loading (§6), grounded on original_source's
// app/config.py loader: skip duplicates, never overwrite an account the
// company already has. The teacher's own Account/AccountType shape in
// the old accounting.go is the basis for the type mapping below.

import (
	"encoding/json"
	"fmt"
)

// seedAccount is the JSON shape of one entry in a chart-of-accounts seed
// file.
type seedAccount struct {
	Number  string `json:"number"`
	Name    string `json:"name"`
	Type    string `json:"type"`
	VATCode string `json:"vat_code"`
}

type seedFile struct {
	Accounts []seedAccount `json:"accounts"`
}

// seedTypeMapping maps the seed file's Swedish type labels to AccountType.
var seedTypeMapping = map[string]AccountType{
	"Tillgång":     Asset,
	"Skuld":        Liability,
	"Eget kapital": Equity,
	"Intäkt":       Revenue,
	"Kostnad":      Expense,
}

// LoadSeed parses a chart-of-accounts seed file and creates every account
// that companyID does not already have. Existing accounts (matched by
// number) are left untouched, matching the Python loader this is grounded
// on: a seed load never overwrites data the company has already built.
func LoadSeed(store *Store, companyID int64, raw []byte) (int, error) {
	var seed seedFile
	if err := json.Unmarshal(raw, &seed); err != nil {
		return 0, fmt.Errorf("ledger: invalid chart-of-accounts seed: %w", err)
	}

	created := 0
	for _, sa := range seed.Accounts {
		if _, err := store.GetAccountByNumber(companyID, sa.Number); err == nil {
			continue
		}
		accountType, ok := seedTypeMapping[sa.Type]
		if !ok {
			accountType = inferAccountType(sa.Number)
		}
		account := &Account{
			CompanyID: companyID,
			Number:    sa.Number,
			Name:      sa.Name,
			Type:      accountType,
			VATCode:   sa.VATCode,
			Active:    true,
		}
		if err := store.CreateAccount(account); err != nil {
			return created, &StoreUnavailable{Cause: err}
		}
		created++
	}
	return created, nil
}
