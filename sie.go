package ledger

// SIE4 codec: a tag-oriented Swedish bookkeeping interchange format.
// Grounded on the teacher's event_store.go JSON-first approach to external
// payloads (no protobuf anywhere in this repo — see DESIGN.md) and
// generalized to SIE4's line-tag grammar, which the pack's other example
// repos do not otherwise touch. Decoding is tolerant of unknown tags, as
// real-world SIE files carry many vendor-specific extensions.

import (
	"bufio"
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

// SIEDocument is the tag-level parse of a SIE4 file, before it is
// reconciled against a Company's chart of accounts and fiscal years.
type SIEDocument struct {
	CompanyName string
	OrgNumber   string
	FiscalYears []sieFiscalYear
	Accounts    []sieAccount
	Openings    []sieOpening
	Verifications []sieVerification
}

type sieFiscalYear struct {
	Index int // 0 = current, -1 = previous, ...
	Start time.Time
	End   time.Time
}

type sieAccount struct {
	Number string
	Name   string
}

type sieOpening struct {
	YearIndex int
	Account   string
	Amount    Money
}

type sieVerification struct {
	Series      string
	Number      string
	Date        time.Time
	Description string
	Lines       []sieTransaction
}

type sieTransaction struct {
	Account string
	Amount  Money
}

// DecodeSIE parses raw SIE4 bytes, transcoding from CP437 (the historical
// default) or Latin-1 as a fallback. Unknown tags are skipped, not
// rejected, so the parser tolerates vendor extensions it does not model.
func DecodeSIE(raw []byte) (*SIEDocument, error) {
	text, err := decodeSIEBytes(raw)
	if err != nil {
		return nil, err
	}

	doc := &SIEDocument{}
	scanner := bufio.NewScanner(strings.NewReader(text))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var currentVer *sieVerification
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "//") {
			continue
		}
		fields, err := splitSIEFields(line)
		if err != nil {
			return nil, &ParseError{Line: lineNo, Tag: "", Msg: err.Error()}
		}
		if len(fields) == 0 {
			continue
		}
		tag := fields[0]

		switch {
		case tag == "{":
			continue
		case tag == "}":
			if currentVer != nil {
				doc.Verifications = append(doc.Verifications, *currentVer)
				currentVer = nil
			}
			continue
		case tag == "#FNAMN" && len(fields) >= 2:
			doc.CompanyName = fields[1]
		case tag == "#ORGNR" && len(fields) >= 2:
			doc.OrgNumber = fields[1]
		case tag == "#RAR" && len(fields) >= 4:
			idx, err := strconv.Atoi(fields[1])
			if err != nil {
				return nil, &ParseError{Line: lineNo, Tag: tag, Msg: "invalid year index"}
			}
			start, err := parseSIEDate(fields[2])
			if err != nil {
				return nil, &ParseError{Line: lineNo, Tag: tag, Msg: err.Error()}
			}
			end, err := parseSIEDate(fields[3])
			if err != nil {
				return nil, &ParseError{Line: lineNo, Tag: tag, Msg: err.Error()}
			}
			doc.FiscalYears = append(doc.FiscalYears, sieFiscalYear{Index: idx, Start: start, End: end})
		case tag == "#KONTO" && len(fields) >= 3:
			doc.Accounts = append(doc.Accounts, sieAccount{Number: fields[1], Name: fields[2]})
		case tag == "#IB" && len(fields) >= 4:
			idx, err := strconv.Atoi(fields[1])
			if err != nil {
				return nil, &ParseError{Line: lineNo, Tag: tag, Msg: "invalid year index"}
			}
			amount, err := ParseMoney(fields[3])
			if err != nil {
				return nil, &ParseError{Line: lineNo, Tag: tag, Msg: err.Error()}
			}
			doc.Openings = append(doc.Openings, sieOpening{YearIndex: idx, Account: fields[2], Amount: amount})
		case tag == "#VER":
			v := sieVerification{}
			if len(fields) >= 2 {
				v.Series = fields[1]
			}
			if len(fields) >= 3 {
				v.Number = fields[2]
			}
			if len(fields) >= 4 {
				d, err := parseSIEDate(fields[3])
				if err != nil {
					return nil, &ParseError{Line: lineNo, Tag: tag, Msg: err.Error()}
				}
				v.Date = d
			}
			if len(fields) >= 5 {
				v.Description = fields[4]
			}
			currentVer = &v
		case tag == "#TRANS" && len(fields) >= 3:
			if currentVer == nil {
				return nil, &ParseError{Line: lineNo, Tag: tag, Msg: "#TRANS outside #VER block"}
			}
			// fields[2] is the (usually empty) {object-list}; the amount
			// follows it when present, or sits in fields[2] directly when
			// the object list was omitted.
			amountField := fields[2]
			if strings.HasPrefix(amountField, "{") {
				if len(fields) < 4 {
					return nil, &ParseError{Line: lineNo, Tag: tag, Msg: "#TRANS missing amount after object list"}
				}
				amountField = fields[3]
			}
			amount, err := ParseMoney(amountField)
			if err != nil {
				return nil, &ParseError{Line: lineNo, Tag: tag, Msg: err.Error()}
			}
			currentVer.Lines = append(currentVer.Lines, sieTransaction{Account: fields[1], Amount: amount})
		default:
			// unknown or unmodeled tag (#PROGRAM, #FORMAT, #GEN, #SRU, ...):
			// tolerated by design.
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, &ParseError{Line: lineNo, Tag: "", Msg: err.Error()}
	}
	return doc, nil
}

// decodeSIEBytes transcodes raw to UTF-8, trying CP437 first (the SIE4
// historical default) and falling back to Latin-1 if CP437 produces
// replacement characters for bytes that Latin-1 maps cleanly.
func decodeSIEBytes(raw []byte) (string, error) {
	cp437, err437 := transformToUTF8(raw, charmap.CodePage437)
	if err437 == nil && !bytes.ContainsRune([]byte(cp437), '�') {
		return cp437, nil
	}
	latin1, err1 := transformToUTF8(raw, charmap.ISO8859_1)
	if err1 == nil {
		return latin1, nil
	}
	return "", &EncodingError{Msg: "could not decode as CP437 or Latin-1"}
}

func transformToUTF8(raw []byte, cm *charmap.Charmap) (string, error) {
	reader := transform.NewReader(bytes.NewReader(raw), cm.NewDecoder())
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(reader); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// splitSIEFields tokenizes a SIE line: whitespace-separated fields, with
// "quoted strings" kept intact as a single field.
func splitSIEFields(line string) ([]string, error) {
	var fields []string
	var cur strings.Builder
	inQuotes := false
	for i := 0; i < len(line); i++ {
		c := line[i]
		switch {
		case c == '"':
			inQuotes = !inQuotes
		case c == ' ' || c == '\t':
			if inQuotes {
				cur.WriteByte(c)
			} else if cur.Len() > 0 {
				fields = append(fields, cur.String())
				cur.Reset()
			}
		default:
			cur.WriteByte(c)
		}
	}
	if inQuotes {
		return nil, fmt.Errorf("unterminated quoted field")
	}
	if cur.Len() > 0 {
		fields = append(fields, cur.String())
	}
	return fields, nil
}

// parseSIEDate parses an 8-digit YYYYMMDD date, falling back to 6-digit
// YYMMDD with century inference (00-69 -> 2000s, 70-99 -> 1900s) for older
// exports that still emit the short form.
func parseSIEDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	switch len(s) {
	case 8:
		t, err := time.Parse("20060102", s)
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid date %q: %w", s, err)
		}
		return t, nil
	case 6:
		yy, err := strconv.Atoi(s[:2])
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid date %q", s)
		}
		century := 1900
		if yy < 70 {
			century = 2000
		}
		full := fmt.Sprintf("%04d%s", century+yy, s[2:])
		t, err := time.Parse("20060102", full)
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid date %q: %w", s, err)
		}
		return t, nil
	default:
		return time.Time{}, fmt.Errorf("unrecognized date format %q", s)
	}
}

// ImportResult summarizes what an import did, including verifications
// skipped for failing to balance (§4.3 importer contract).
type ImportResult struct {
	CompanyID        int64
	FiscalYearIDs    map[int]int64 // SIE year index -> FiscalYear.ID
	AccountsCreated  int
	AccountsReused   int
	VerificationsOK  int
	VerificationsSkipped int
}

// SIEImporter reconciles a parsed SIEDocument against a Company's store,
// creating accounts and fiscal years as needed and skipping (not failing
// on) unbalanced verifications, counting them instead.
type SIEImporter struct {
	store   *Store
	posting *PostingEngine
}

func NewSIEImporter(store *Store, posting *PostingEngine) *SIEImporter {
	return &SIEImporter{store: store, posting: posting}
}

// ImportNew creates a new company from doc's own name and org number
// (§4.3 importer contract, mode (a)), then imports into it exactly as
// Import would.
func (imp *SIEImporter) ImportNew(doc *SIEDocument) (*ImportResult, error) {
	company := &Company{
		OrgNumber:            doc.OrgNumber,
		Name:                 doc.CompanyName,
		Standard:             K2,
		FiscalYearStartMonth: 1,
	}
	if company.Name == "" {
		company.Name = "Imported company"
	}
	if err := imp.store.CreateCompany(company); err != nil {
		return nil, &StoreUnavailable{Cause: err}
	}
	return imp.Import(company.ID, doc)
}

// Import applies doc to companyID, which must already exist (§4.3 importer
// contract, mode (b)). Use ImportNew to create the company from doc first.
func (imp *SIEImporter) Import(companyID int64, doc *SIEDocument) (*ImportResult, error) {
	result := &ImportResult{CompanyID: companyID, FiscalYearIDs: make(map[int]int64)}

	for _, fy := range doc.FiscalYears {
		existing, err := imp.store.FindFiscalYear(companyID, fy.Start, fy.End)
		if err == nil {
			result.FiscalYearIDs[fy.Index] = existing.ID
			continue
		}
		created := &FiscalYear{CompanyID: companyID, Start: fy.Start, End: fy.End}
		if err := imp.store.CreateFiscalYear(created); err != nil {
			return nil, &StoreUnavailable{Cause: err}
		}
		result.FiscalYearIDs[fy.Index] = created.ID
	}

	accountIDs := make(map[string]int64)
	for _, a := range doc.Accounts {
		existing, err := imp.store.GetAccountByNumber(companyID, a.Number)
		if err == nil {
			accountIDs[a.Number] = existing.ID
			result.AccountsReused++
			continue
		}
		created := &Account{
			CompanyID: companyID,
			Number:    a.Number,
			Name:      a.Name,
			Type:      inferAccountType(a.Number),
			Active:    true,
		}
		if err := imp.store.CreateAccount(created); err != nil {
			return nil, &StoreUnavailable{Cause: err}
		}
		accountIDs[a.Number] = created.ID
		result.AccountsCreated++
	}

	for _, ob := range doc.Openings {
		fyID, ok := result.FiscalYearIDs[ob.YearIndex]
		if !ok {
			continue
		}
		accountID, ok := accountIDs[ob.Account]
		if !ok {
			continue
		}
		if err := imp.store.SetOpeningBalance(fyID, accountID, ob.Amount); err != nil {
			return nil, &StoreUnavailable{Cause: err}
		}
	}

	for _, sv := range doc.Verifications {
		fyID, err := imp.fiscalYearFor(companyID, sv.Date, result.FiscalYearIDs)
		if err != nil {
			result.VerificationsSkipped++
			continue
		}
		var lines []Line
		ok := true
		for _, t := range sv.Lines {
			accountID, found := accountIDs[t.Account]
			if !found {
				ok = false
				break
			}
			line := Line{AccountID: accountID}
			if t.Amount.IsPositive() {
				line.Debit = t.Amount
			} else {
				line.Credit = t.Amount.Neg()
			}
			lines = append(lines, line)
		}
		v := &Verification{
			CompanyID:    companyID,
			FiscalYearID: fyID,
			Date:         sv.Date,
			Description:  sv.Description,
			Lines:        lines,
		}
		if !ok || !v.IsBalanced() {
			result.VerificationsSkipped++
			continue
		}
		if _, err := imp.posting.Commit(v); err != nil {
			result.VerificationsSkipped++
			continue
		}
		result.VerificationsOK++
	}

	return result, nil
}

func (imp *SIEImporter) fiscalYearFor(companyID int64, d time.Time, known map[int]int64) (int64, error) {
	for _, fyID := range known {
		fy, err := imp.store.GetFiscalYear(fyID)
		if err != nil {
			continue
		}
		if fy.Contains(d) {
			return fyID, nil
		}
	}
	return 0, fmt.Errorf("ledger: no fiscal year covers date %s", d.Format("2006-01-02"))
}

// inferAccountType infers a BAS account's type from its leading digits,
// used when importing accounts the destination company has never seen.
// Class 2 is split: 20/21-prefixed accounts are equity (share capital,
// retained earnings), the rest are liabilities.
func inferAccountType(number string) AccountType {
	if number == "" {
		return Expense
	}
	switch number[0] {
	case '1':
		return Asset
	case '2':
		if strings.HasPrefix(number, "20") || strings.HasPrefix(number, "21") {
			return Equity
		}
		return Liability
	case '3':
		return Revenue
	default:
		return Expense
	}
}
