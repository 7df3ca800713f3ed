package ledger

// Engine wires every kernel collaborator into one facade, grounded on the
// teacher's engine.go orchestration pattern: a single struct holding the
// store and every service built on top of it, constructed once at process
// startup and handed to callers (CLI commands, tests) as a unit.

import (
	"time"

	"github.com/sirupsen/logrus"
)

// Engine is the top-level entry point for every ledger operation.
type Engine struct {
	Store        *Store
	Events       *EventStore
	Posting      *PostingEngine
	Balance      *BalanceEngine
	Closing      *ClosingEngine
	Depreciation *DepreciationScheduler
	Accrual      *AccrualScheduler
	Template     *TemplateEngine
	Tax          *TaxEngine
	SIEImporter  *SIEImporter
	SIEWriter    *SIEWriter

	log *logrus.Logger
}

// NewEngine opens the store at cfg.StorePath and wires every collaborator
// on top of it.
func NewEngine(cfg *Config, log *logrus.Logger) (*Engine, error) {
	store, err := NewStore(cfg.StorePath, time.Duration(cfg.LockTimeoutSeconds)*time.Second)
	if err != nil {
		return nil, err
	}
	events := NewEventStore(store)
	posting := NewPostingEngine(store, events)
	balance := NewBalanceEngine(store)

	return &Engine{
		Store:        store,
		Events:       events,
		Posting:      posting,
		Balance:      balance,
		Closing:      NewClosingEngine(store, posting, balance, events),
		Depreciation: NewDepreciationScheduler(store, posting, events),
		Accrual:      NewAccrualScheduler(store, posting, events),
		Template:     NewTemplateEngine(store, posting),
		Tax:          NewTaxEngine(balance),
		SIEImporter:  NewSIEImporter(store, posting),
		SIEWriter:    NewSIEWriter(store),
		log:          log,
	}, nil
}

// Close releases the underlying store handle.
func (e *Engine) Close() error {
	return e.Store.Close()
}
