package ledger

// SIE4 emitter: the write side of the round-trip property (§8.4). Shares
// the tag grammar and date/amount formats with sie.go but is kept in its
// own file, matching the teacher's habit of splitting a concern's read and
// write paths into separate files (event_store.go append vs. the
// projections that consumed it).

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/encoding/charmap"
)

// SIEWriter emits a Company's chart of accounts, fiscal years, opening
// balances and verifications as a SIE4 text document.
type SIEWriter struct {
	store *Store
}

func NewSIEWriter(store *Store) *SIEWriter {
	return &SIEWriter{store: store}
}

// Write emits fiscalYearID (and its company's full chart of accounts) as
// SIE4 text encoded in CP437, matching its #FORMAT PC8 header. Text with a
// character CP437 cannot represent yields an EncodingError.
func (w *SIEWriter) Write(fiscalYearID int64) (string, error) {
	fy, err := w.store.GetFiscalYear(fiscalYearID)
	if err != nil {
		return "", err
	}
	company, err := w.store.GetCompany(fy.CompanyID)
	if err != nil {
		return "", err
	}
	accounts, err := w.store.ListAccounts(fy.CompanyID)
	if err != nil {
		return "", err
	}
	sort.Slice(accounts, func(i, j int) bool { return accounts[i].Number < accounts[j].Number })
	verifications, err := w.store.ListVerifications(fy.CompanyID, fiscalYearID)
	if err != nil {
		return "", err
	}
	sort.Slice(verifications, func(i, j int) bool { return verifications[i].Number < verifications[j].Number })

	var b strings.Builder
	fmt.Fprintf(&b, "#FLAGGA 0\n")
	fmt.Fprintf(&b, "#PROGRAM %s 1.0\n", sieQuote("bokforing"))
	fmt.Fprintf(&b, "#FORMAT PC8\n")
	fmt.Fprintf(&b, "#GEN %s\n", formatSIEDate(time.Now()))
	fmt.Fprintf(&b, "#FNAMN %s\n", sieQuote(company.Name))
	fmt.Fprintf(&b, "#ORGNR %s\n", company.OrgNumber)
	fmt.Fprintf(&b, "#RAR 0 %s %s\n", formatSIEDate(fy.Start), formatSIEDate(fy.End))

	for _, a := range accounts {
		fmt.Fprintf(&b, "#KONTO %s %s\n", a.Number, sieQuote(a.Name))
	}
	for _, a := range accounts {
		ob, err := w.store.GetOpeningBalance(fiscalYearID, a.ID)
		if err != nil {
			return "", err
		}
		if ob.IsZero() {
			continue
		}
		fmt.Fprintf(&b, "#IB 0 %s %s\n", a.Number, ob.String())
	}

	accountNumber := make(map[int64]string, len(accounts))
	for _, a := range accounts {
		accountNumber[a.ID] = a.Number
	}

	for _, v := range verifications {
		fmt.Fprintf(&b, "#VER A %d %s %s\n", v.Number, formatSIEDate(v.Date), sieQuote(v.Description))
		b.WriteString("{\n")
		for _, l := range v.Lines {
			signed := l.Debit.Sub(l.Credit)
			fmt.Fprintf(&b, "#TRANS %s {} %s\n", accountNumber[l.AccountID], signed.String())
		}
		b.WriteString("}\n")
	}

	encoded, err := charmap.CodePage437.NewEncoder().String(b.String())
	if err != nil {
		return "", &EncodingError{Msg: err.Error()}
	}
	return encoded, nil
}

// formatSIEDate renders t as SIE4's canonical 8-digit YYYYMMDD.
func formatSIEDate(t time.Time) string {
	return t.Format("20060102")
}

// sieQuote wraps s in double quotes, escaping any embedded quote.
func sieQuote(s string) string {
	return strconv.Quote(s)
}
