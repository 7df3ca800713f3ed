package ledger

// Template Engine (§4.7): expands a Template's Fixed/Percentage/Remainder
// lines against an applied total into a concrete Line set, then hands it to
// the Posting Engine. Grounded on the teacher's accrual_service.go
// schedule-expansion style, generalized to the three line kinds.

import "fmt"

// TemplateEngine expands Templates and posts the resulting verification.
type TemplateEngine struct {
	store   *Store
	posting *PostingEngine
}

func NewTemplateEngine(store *Store, posting *PostingEngine) *TemplateEngine {
	return &TemplateEngine{store: store, posting: posting}
}

// Validate checks that a template is structurally solvable: at most one
// Remainder line, and every line has a DEBIT or CREDIT side. Account
// references are not checked here; the Posting Engine checks them when the
// expanded verification is committed.
func (te *TemplateEngine) Validate(t *Template) error {
	remainders := 0
	for _, l := range t.Lines {
		if l.Kind == TemplateRemainder {
			remainders++
		}
		if l.Side != TemplateDebit && l.Side != TemplateCredit {
			return &TemplateError{TemplateID: t.ID, Msg: fmt.Sprintf("line references account %d with invalid side %q", l.AccountID, l.Side)}
		}
	}
	if remainders > 1 {
		return &TemplateError{TemplateID: t.ID, Msg: "at most one REMAINDER line is allowed"}
	}
	return nil
}

// Expand computes the concrete Line set a Template produces when applied
// to total. Fixed lines use their own Amount; Percentage lines use
// Percentage(total, Rate); the single Remainder line (if present) absorbs
// whatever balance the other lines leave, so the result always balances.
func (te *TemplateEngine) Expand(t *Template, total Money) ([]Line, error) {
	if err := te.Validate(t); err != nil {
		return nil, err
	}

	var lines []Line
	debitSum, creditSum := Zero(), Zero()
	var remainderIdx = -1

	for i, tl := range t.Lines {
		if tl.Kind == TemplateRemainder {
			remainderIdx = i
			lines = append(lines, Line{AccountID: tl.AccountID})
			continue
		}
		var amount Money
		switch tl.Kind {
		case TemplateFixed:
			amount = tl.Amount
		case TemplatePercentage:
			amount = Percentage(total, tl.Rate)
		default:
			return nil, &TemplateError{TemplateID: t.ID, Msg: fmt.Sprintf("unknown line kind %q", tl.Kind)}
		}
		line := Line{AccountID: tl.AccountID}
		if tl.Side == TemplateDebit {
			line.Debit = amount
			debitSum = debitSum.Add(amount)
		} else {
			line.Credit = amount
			creditSum = creditSum.Add(amount)
		}
		lines = append(lines, line)
	}

	if remainderIdx >= 0 {
		diff := debitSum.Sub(creditSum)
		if diff.IsPositive() {
			lines[remainderIdx].Credit = diff
		} else if diff.IsNegative() {
			lines[remainderIdx].Debit = diff.Neg()
		}
		// diff == 0: the remainder line contributes nothing, which is valid.
	} else if !debitSum.Equal(creditSum) {
		return nil, &TemplateError{TemplateID: t.ID, Msg: "template has no REMAINDER line and does not balance on its own"}
	}

	return lines, nil
}

// Apply expands t against total and commits the resulting verification
// via the Posting Engine.
func (te *TemplateEngine) Apply(t *Template, companyID, fiscalYearID int64, date string, description string, total Money) (*Verification, error) {
	lines, err := te.Expand(t, total)
	if err != nil {
		return nil, err
	}
	d, err := parseSIEDate(date)
	if err != nil {
		return nil, err
	}
	v := &Verification{
		CompanyID:    companyID,
		FiscalYearID: fiscalYearID,
		Date:         d,
		Description:  description,
		Lines:        lines,
	}
	return te.posting.Commit(v)
}
