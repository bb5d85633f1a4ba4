package registration

import (
	"context"
	"fmt"
	"time"

	"ms-registration/internal/logger"
	"ms-registration/internal/models"
	"ms-registration/internal/rowsource"
	"ms-registration/internal/utils"
)

// Sequencer hands out entry and Poker Run numbers from row counts and
// writes the registration row. Two events that read the same count before
// either appends get the same provisional number; reconciliation against
// the append position corrects the entry number but not the Poker Run number.
type Sequencer struct {
	src         rowsource.RowSource
	logger      *logger.Logger
	loc         *time.Location
	now         func() time.Time
	baseFee     int64
	pokerRunFee int64
}

type SequencerOptions struct {
	Location    *time.Location
	BaseFee     int64
	PokerRunFee int64
	// Now is overridden in tests.
	Now func() time.Time
}

func NewSequencer(src rowsource.RowSource, opts SequencerOptions, log *logger.Logger) *Sequencer {
	if src == nil {
		src = rowsource.Unconfigured{}
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Sequencer{
		src:         src,
		logger:      log,
		loc:         opts.Location,
		now:         opts.Now,
		baseFee:     opts.BaseFee,
		pokerRunFee: opts.PokerRunFee,
	}
}

// AssignEntryNumber returns data rows + 1. When the row source cannot be
// read it returns a time-derived placeholder and a non-OK outcome.
func (s *Sequencer) AssignEntryNumber(ctx context.Context) (int, Outcome) {
	cells, err := s.src.ReadColumn(ctx, EntryCountColumn)
	if err != nil {
		outcome := Classify(err)
		n := s.placeholder()
		s.logger.Warn("SEQUENCE", fmt.Sprintf("Entry count unavailable, using placeholder %s: %s", FormatNumber(n), outcome))
		return n, outcome
	}

	n := 0
	if len(cells) > 0 {
		n = len(cells) - 1
	}
	next := n + 1
	if next < 1 {
		next = 1
	}
	return next, Outcome{Kind: KindNone}
}

// AssignPokerRunNumber returns marked rows + 1 with the same fallback.
func (s *Sequencer) AssignPokerRunNumber(ctx context.Context) (int, Outcome) {
	cells, err := s.src.ReadColumn(ctx, ColPokerRun)
	if err != nil {
		outcome := Classify(err)
		n := s.placeholder()
		s.logger.Warn("SEQUENCE", fmt.Sprintf("Poker Run count unavailable, using placeholder %s: %s", FormatNumber(n), outcome))
		return n, outcome
	}
	return countMarkers(cells, PokerRunMarker) + 1, Outcome{Kind: KindNone}
}

func (s *Sequencer) placeholder() int {
	n := int(s.now().UnixMilli() % 1000)
	if n < 1 {
		n = 1
	}
	return n
}

// Reconciliation is the result of Persist.
type Reconciliation struct {
	Provisional int
	// EntryNumber is authoritative for everything downstream.
	EntryNumber int
	Row         int
	// Confirmed is set when the append reported a usable row position.
	Confirmed bool
	Append    Outcome
	// Mismatch carries a KindReconciliationMismatch outcome when the
	// position overrode the provisional number.
	Mismatch Outcome
}

// Persist appends the registration row and reconciles the entry number
// against the reported row position. It never returns an error.
func (s *Sequencer) Persist(ctx context.Context, reg models.Registration, entryNumber, pokerRunNumber int) Reconciliation {
	rec := Reconciliation{
		Provisional: entryNumber,
		EntryNumber: entryNumber,
		Mismatch:    Outcome{Kind: KindNone},
	}

	row := BuildRow(RowInput{
		Timestamp:      utils.FormatIn(s.now(), s.loc, utils.SheetTimestampLayout),
		Fields:         reg.Fields,
		PokerRun:       reg.PokerRun,
		BaseFee:        s.baseFee,
		PokerRunFee:    s.pokerRunFee,
		AmountPaid:     reg.AmountPaid(),
		PaymentID:      reg.PaymentIntentID,
		EntryNumber:    entryNumber,
		PokerRunNumber: pokerRunNumber,
	})

	res, err := s.src.AppendRow(ctx, row)
	rec.Append = Classify(err)
	if err != nil {
		s.logger.Error("SEQUENCE", fmt.Sprintf("Append failed for %s, keeping provisional entry %s: %s",
			reg.Fields.FullName(), FormatNumber(entryNumber), rec.Append))
		return rec
	}

	if !res.HasRow() || res.Row-1 < 1 {
		s.logger.Warn("SEQUENCE", fmt.Sprintf("Append for %s reported no usable row (%q), keeping provisional entry %s",
			reg.Fields.FullName(), res.Range, FormatNumber(entryNumber)))
		return rec
	}

	rec.Row = res.Row
	rec.Confirmed = true
	actual := res.Row - 1
	if actual != entryNumber {
		mismatch := &MismatchError{Provisional: entryNumber, Actual: actual}
		rec.Mismatch = Classify(mismatch)
		s.logger.Warn("SEQUENCE", fmt.Sprintf("Reconciliation mismatch for %s: %v", reg.Fields.FullName(), mismatch))
	}
	rec.EntryNumber = actual
	s.logger.LogRegistration("PERSIST", FormatNumber(actual), fmt.Sprintf("%s written at row %d", reg.Fields.FullName(), res.Row))
	return rec
}
