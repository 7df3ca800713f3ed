package ledger

// Posting Engine: the single path by which a Verification enters a fiscal
// year, grounded on the teacher's posting_engine.go validate/post shape but
// rebuilt around the spec's balanced-journal-entry model instead of the
// teacher's independent-entry ledger. Every mutation is journaled through
// EventStore: amendments and deletions append their event before the store
// write, Commit appends its event after the insert that assigns the id.

import (
	"fmt"
	"time"
)

// PostingEngine validates and commits Verifications, and carries out the
// line-level amendment operations §4.1 names.
type PostingEngine struct {
	store  *Store
	events *EventStore
}

func NewPostingEngine(store *Store, events *EventStore) *PostingEngine {
	return &PostingEngine{store: store, events: events}
}

// Validate checks the structural invariants a Verification must satisfy
// before it can be committed: balance, account ownership, and period
// containment. It does not check the closed-year rule, since that
// depends on which fiscal year the caller resolved to — Commit checks it.
func (pe *PostingEngine) Validate(v *Verification) error {
	if !v.IsBalanced() {
		return &BalanceError{DebitTotal: v.DebitTotal(), CreditTotal: v.CreditTotal()}
	}
	if len(v.Lines) == 0 || v.DebitTotal().IsZero() {
		return &BalanceError{DebitTotal: Zero(), CreditTotal: Zero()}
	}
	for _, l := range v.Lines {
		account, err := pe.store.GetAccount(l.AccountID)
		if err != nil {
			return &AccountError{AccountNumber: fmt.Sprintf("id:%d", l.AccountID)}
		}
		if account.CompanyID != v.CompanyID {
			return &AccountError{AccountNumber: account.Number}
		}
	}
	fy, err := pe.store.GetFiscalYear(v.FiscalYearID)
	if err != nil {
		return err
	}
	if fy.CompanyID != v.CompanyID {
		return &AccountError{AccountNumber: fmt.Sprintf("fiscal year %d", fy.ID)}
	}
	if !fy.Contains(v.Date) {
		return &PeriodError{
			Date:           v.Date.Format("2006-01-02"),
			FiscalYearID:   fy.ID,
			FiscalYearFrom: fy.Start.Format("2006-01-02"),
			FiscalYearTo:   fy.End.Format("2006-01-02"),
		}
	}
	return nil
}

// Commit allocates the next dense verification number for
// (CompanyID, FiscalYearID), validates, and inserts the verification
// under the company's write lock. v.Number is overwritten.
func (pe *PostingEngine) Commit(v *Verification) (*Verification, error) {
	unlock := pe.store.LockCompany(v.CompanyID)
	defer unlock()

	fy, err := pe.store.GetFiscalYear(v.FiscalYearID)
	if err != nil {
		return nil, err
	}
	if fy.Closed {
		return nil, &ClosedYearError{FiscalYearID: fy.ID}
	}
	if err := pe.Validate(v); err != nil {
		return nil, err
	}

	number, err := pe.store.NextVerificationNumber(v.CompanyID, v.FiscalYearID)
	if err != nil {
		return nil, err
	}
	v.Number = number

	if err := pe.store.InsertVerification(v); err != nil {
		return nil, &StoreUnavailable{Cause: err}
	}
	if _, err := pe.events.Append(v.CompanyID, EventVerificationCreated, VerificationCreatedEvent{VerificationID: v.ID}, v.Date, ""); err != nil {
		return nil, err
	}
	return v, nil
}

// requireOpen loads the verification and the fiscal year it belongs to,
// and rejects the operation if the year is closed.
func (pe *PostingEngine) requireOpen(verificationID int64) (*Verification, *FiscalYear, error) {
	v, err := pe.store.GetVerification(verificationID)
	if err != nil {
		return nil, nil, err
	}
	fy, err := pe.store.GetFiscalYear(v.FiscalYearID)
	if err != nil {
		return nil, nil, err
	}
	if fy.Closed {
		return nil, nil, &ClosedYearError{FiscalYearID: fy.ID}
	}
	return v, fy, nil
}

// AddLine appends a line to an existing verification. The resulting
// verification is not required to balance immediately; IsBalanced() is a
// query the caller may run at any time (§4.1).
func (pe *PostingEngine) AddLine(verificationID int64, line Line) (*Verification, error) {
	v, _, err := pe.requireOpen(verificationID)
	if err != nil {
		return nil, err
	}
	unlock := pe.store.LockCompany(v.CompanyID)
	defer unlock()

	account, err := pe.store.GetAccount(line.AccountID)
	if err != nil || account.CompanyID != v.CompanyID {
		return nil, &AccountError{AccountNumber: fmt.Sprintf("id:%d", line.AccountID)}
	}
	v.Lines = append(v.Lines, line)
	if err := pe.commitAmendment(v, "ADD_LINE"); err != nil {
		return nil, err
	}
	return v, nil
}

// UpdateLine replaces the line at index with updated.
func (pe *PostingEngine) UpdateLine(verificationID int64, index int, updated Line) (*Verification, error) {
	v, _, err := pe.requireOpen(verificationID)
	if err != nil {
		return nil, err
	}
	if index < 0 || index >= len(v.Lines) {
		return nil, fmt.Errorf("ledger: line index %d out of range", index)
	}
	unlock := pe.store.LockCompany(v.CompanyID)
	defer unlock()

	account, err := pe.store.GetAccount(updated.AccountID)
	if err != nil || account.CompanyID != v.CompanyID {
		return nil, &AccountError{AccountNumber: fmt.Sprintf("id:%d", updated.AccountID)}
	}
	v.Lines[index] = updated
	if err := pe.commitAmendment(v, "UPDATE_LINE"); err != nil {
		return nil, err
	}
	return v, nil
}

// DeleteLine removes the line at index.
func (pe *PostingEngine) DeleteLine(verificationID int64, index int) (*Verification, error) {
	v, _, err := pe.requireOpen(verificationID)
	if err != nil {
		return nil, err
	}
	if index < 0 || index >= len(v.Lines) {
		return nil, fmt.Errorf("ledger: line index %d out of range", index)
	}
	unlock := pe.store.LockCompany(v.CompanyID)
	defer unlock()

	v.Lines = append(v.Lines[:index], v.Lines[index+1:]...)
	if err := pe.commitAmendment(v, "DELETE_LINE"); err != nil {
		return nil, err
	}
	return v, nil
}

// UpdateHeader changes the date and/or description of a verification,
// re-validating period containment against its fiscal year.
func (pe *PostingEngine) UpdateHeader(verificationID int64, date time.Time, description string) (*Verification, error) {
	v, fy, err := pe.requireOpen(verificationID)
	if err != nil {
		return nil, err
	}
	if !fy.Contains(date) {
		return nil, &PeriodError{
			Date:           date.Format("2006-01-02"),
			FiscalYearID:   fy.ID,
			FiscalYearFrom: fy.Start.Format("2006-01-02"),
			FiscalYearTo:   fy.End.Format("2006-01-02"),
		}
	}
	unlock := pe.store.LockCompany(v.CompanyID)
	defer unlock()

	v.Date = date
	v.Description = description
	if err := pe.commitAmendment(v, "UPDATE_HEADER"); err != nil {
		return nil, err
	}
	return v, nil
}

func (pe *PostingEngine) commitAmendment(v *Verification, op string) error {
	if _, err := pe.events.Append(v.CompanyID, EventVerificationAmended, VerificationAmendedEvent{VerificationID: v.ID, Operation: op}, v.Date, ""); err != nil {
		return err
	}
	if err := pe.store.UpdateVerification(v); err != nil {
		return &StoreUnavailable{Cause: err}
	}
	return nil
}

// Delete removes a verification outright. The gap it leaves is not
// backfilled (§4.1): new numbers continue from the highest remaining
// number, so only the highest-numbered verification's number can be
// assigned again after it is deleted.
func (pe *PostingEngine) Delete(verificationID int64) error {
	v, _, err := pe.requireOpen(verificationID)
	if err != nil {
		return err
	}
	unlock := pe.store.LockCompany(v.CompanyID)
	defer unlock()

	if _, err := pe.events.Append(v.CompanyID, EventVerificationDeleted, VerificationDeletedEvent{VerificationID: v.ID}, v.Date, ""); err != nil {
		return err
	}
	if err := pe.store.DeleteVerification(verificationID); err != nil {
		return &StoreUnavailable{Cause: err}
	}
	return nil
}
