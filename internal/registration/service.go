package registration

import (
	"context"
	"fmt"
	"strings"
	"time"

	"ms-registration/internal/logger"
	"ms-registration/internal/models"
	"ms-registration/internal/normalize"

	"github.com/alitto/pond/v2"
)

// Notifier delivers the admin summary and the participant dash sheet.
type Notifier interface {
	SendAdminNotification(ctx context.Context, n models.AdminNotification) error
	SendDashSheet(ctx context.Context, d models.DashSheetDelivery) error
}

// DashSheetRenderer turns template data into PDF bytes.
type DashSheetRenderer interface {
	Render(ctx context.Context, data models.DashSheetData) ([]byte, error)
}

// EventPublisher announces persisted registrations.
type EventPublisher interface {
	PublishRegistrationCompleted(ctx context.Context, ev models.RegistrationEvent) error
}

// EventGuard claims a payment event id so provider retries are skipped.
type EventGuard interface {
	Claim(ctx context.Context, eventID string) (bool, error)
}

type ServiceOptions struct {
	Sequencer  *Sequencer
	Gate       *CapacityGate
	Notifier   Notifier
	DashSheets DashSheetRenderer
	// Publisher and Guard are optional.
	Publisher   EventPublisher
	Guard       EventGuard
	BaseFee     int64
	PokerRunFee int64
	Workers     int
	Logger      *logger.Logger
	Now         func() time.Time
}

// Service runs the post-payment flow for one confirmed checkout.
type Service struct {
	sequencer   *Sequencer
	gate        *CapacityGate
	notifier    Notifier
	dashSheets  DashSheetRenderer
	publisher   EventPublisher
	guard       EventGuard
	baseFee     int64
	pokerRunFee int64
	pool        pond.Pool
	logger      *logger.Logger
	now         func() time.Time
}

func NewService(opts ServiceOptions) *Service {
	if opts.Workers <= 0 {
		opts.Workers = 8
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Service{
		sequencer:   opts.Sequencer,
		gate:        opts.Gate,
		notifier:    opts.Notifier,
		dashSheets:  opts.DashSheets,
		publisher:   opts.Publisher,
		guard:       opts.Guard,
		baseFee:     opts.BaseFee,
		pokerRunFee: opts.PokerRunFee,
		pool:        pond.NewPool(opts.Workers),
		logger:      opts.Logger,
		now:         opts.Now,
	}
}

// Close drains the notification pool.
func (s *Service) Close() {
	s.pool.StopAndWait()
}

// ProcessResult reports every step of one ProcessCompletedPayment call.
type ProcessResult struct {
	Registration models.Registration
	// Duplicate is set when the event id was already claimed.
	Duplicate              bool
	ProvisionalEntryNumber int
	EntryNumber            int
	PokerRunNumber         int

	EntrySequencing    Outcome
	PokerRunSequencing Outcome
	AdminEmail         Outcome
	Append             Outcome
	Reconciliation     Outcome
	Capacity           Outcome
	Publish            Outcome
	DashSheet          Outcome
}

// Failures lists the steps that did not complete cleanly.
func (r ProcessResult) Failures() []string {
	var out []string
	add := func(step string, o Outcome) {
		if !o.OK() {
			out = append(out, step+"="+o.Kind.String())
		}
	}
	add("entry_sequencing", r.EntrySequencing)
	add("poker_run_sequencing", r.PokerRunSequencing)
	add("admin_email", r.AdminEmail)
	add("append", r.Append)
	add("reconciliation", r.Reconciliation)
	add("capacity", r.Capacity)
	add("publish", r.Publish)
	add("dash_sheet", r.DashSheet)
	return out
}

var okOutcome = Outcome{Kind: KindNone}

// ProcessCompletedPayment normalizes, numbers, persists and notifies. No step
// failure is returned to the caller; each is classified into the result.
func (s *Service) ProcessCompletedPayment(ctx context.Context, reg models.Registration) ProcessResult {
	result := ProcessResult{
		EntrySequencing:    okOutcome,
		PokerRunSequencing: okOutcome,
		AdminEmail:         okOutcome,
		Append:             okOutcome,
		Reconciliation:     okOutcome,
		Capacity:           okOutcome,
		Publish:            okOutcome,
		DashSheet:          okOutcome,
	}

	if s.guard != nil && reg.EventID != "" {
		claimed, err := s.guard.Claim(ctx, reg.EventID)
		switch {
		case err != nil:
			s.logger.Warn("WEBHOOK", fmt.Sprintf("Event guard unavailable for %s, processing anyway: %v", reg.EventID, err))
		case !claimed:
			s.logger.Info("WEBHOOK", fmt.Sprintf("Event %s already processed, skipping", reg.EventID))
			result.Duplicate = true
			return result
		}
	}

	reg.Fields = normalize.Registration(reg.Fields)
	if reg.SubmittedAt.IsZero() {
		reg.SubmittedAt = s.now()
	}
	result.Registration = reg
	name := reg.Fields.FullName()

	// Sequence numbers and the append stay close together.
	entry, entryOutcome := s.sequencer.AssignEntryNumber(ctx)
	result.EntrySequencing = entryOutcome
	result.ProvisionalEntryNumber = entry
	result.EntryNumber = entry

	if reg.PokerRun {
		prn, prnOutcome := s.sequencer.AssignPokerRunNumber(ctx)
		result.PokerRunSequencing = prnOutcome
		result.PokerRunNumber = prn
	}

	s.logger.LogRegistration("SEQUENCE", FormatNumber(entry), fmt.Sprintf("Provisional numbers for %s (poker run: %v)", name, reg.PokerRun))

	var rec Reconciliation
	tasks := []pond.Task{
		s.submit("admin email", func() error {
			return s.notifier.SendAdminNotification(ctx, models.AdminNotification{
				Registration:   reg,
				EntryNumber:    entry,
				PokerRunNumber: result.PokerRunNumber,
				BaseFee:        s.baseFee,
				PokerRunFee:    s.pokerRunFee,
				RegisteredAt:   reg.SubmittedAt,
			})
		}, func(o Outcome) { result.AdminEmail = o }),
		s.submit("row append", func() error {
			rec = s.sequencer.Persist(ctx, reg, entry, result.PokerRunNumber)
			return rec.Append.Err
		}, func(o Outcome) { result.Append = o }),
	}
	if reg.PokerRun && s.gate != nil {
		tasks = append(tasks, s.submit("capacity check", func() error {
			count, err := s.gate.CurrentCount(ctx)
			if err == nil && count > s.gate.Limit() {
				s.logger.Warn("CAPACITY", fmt.Sprintf("Poker Run over capacity after payment from %s: %d/%d", name, count, s.gate.Limit()))
			}
			return err
		}, func(o Outcome) { result.Capacity = o }))
	}

	// wait for every task; one failing never cancels the others
	for _, task := range tasks {
		if err := task.Wait(); err != nil {
			s.logger.Error("WEBHOOK", fmt.Sprintf("Registration step for %s failed: %v", name, err))
		}
	}

	result.EntryNumber = entry
	result.Reconciliation = rec.Mismatch
	if rec.Confirmed {
		result.EntryNumber = rec.EntryNumber
	} else {
		result.Reconciliation = Outcome{
			Kind: KindReconciliationMismatch,
			Err:  fmt.Errorf("entry number %d not confirmed by row position", entry),
		}
	}

	if s.publisher != nil {
		err := s.publisher.PublishRegistrationCompleted(ctx, models.RegistrationEvent{
			EventID:         reg.EventID,
			PaymentIntentID: reg.PaymentIntentID,
			EntryNumber:     result.EntryNumber,
			PokerRunNumber:  result.PokerRunNumber,
			FullName:        name,
			Email:           reg.Fields.Email,
			Vehicle:         reg.Fields.Vehicle(),
			AmountPaid:      fmt.Sprintf("%.2f", reg.AmountPaid()),
			RegisteredAt:    reg.SubmittedAt.UTC().Format(time.RFC3339),
		})
		result.Publish = Classify(err)
		if err != nil {
			s.logger.Error("KAFKA", fmt.Sprintf("Failed to publish registration %s: %v", FormatNumber(result.EntryNumber), err))
		}
	}

	size, err := s.sendDashSheet(ctx, reg.Fields, result.EntryNumber, result.PokerRunNumber)
	result.DashSheet = Classify(err)
	if err != nil {
		s.logger.Error("DASHSHEET", fmt.Sprintf("Dash sheet for %s not delivered: %v", name, err))
	} else {
		s.logger.LogRegistration("DASHSHEET", FormatNumber(result.EntryNumber), fmt.Sprintf("Sent to %s (%d bytes)", reg.Fields.Email, size))
	}

	if failures := result.Failures(); len(failures) > 0 {
		s.logger.Warn("WEBHOOK", fmt.Sprintf("Registration %s for %s completed with issues: %s",
			FormatNumber(result.EntryNumber), name, strings.Join(failures, ", ")))
	} else {
		s.logger.LogRegistration("COMPLETE", FormatNumber(result.EntryNumber), name)
	}
	return result
}

func (s *Service) sendDashSheet(ctx context.Context, fields models.RegistrationFields, entry, pokerRun int) (int, error) {
	if s.dashSheets == nil {
		return 0, ErrNotConfigured
	}
	pdf, err := s.dashSheets.Render(ctx, models.DashSheetFrom(fields, entry, pokerRun))
	if err != nil {
		return 0, fmt.Errorf("render dash sheet: %w", err)
	}
	err = s.notifier.SendDashSheet(ctx, models.DashSheetDelivery{
		To:             fields.Email,
		Name:           fields.FullName(),
		EntryNumber:    entry,
		PokerRunNumber: pokerRun,
		PDF:            pdf,
	})
	if err != nil {
		return 0, fmt.Errorf("send dash sheet: %w", err)
	}
	return len(pdf), nil
}

// RegenerateDashSheet rebuilds and re-sends a dash sheet for numbers an
// operator already knows.
func (s *Service) RegenerateDashSheet(ctx context.Context, raw models.RegistrationFields, entry, pokerRun int) (models.RegenerateSummary, error) {
	fields := normalize.Registration(raw)
	size, err := s.sendDashSheet(ctx, fields, entry, pokerRun)
	if err != nil {
		return models.RegenerateSummary{}, err
	}
	s.logger.LogRegistration("REGENERATE", FormatNumber(entry), fmt.Sprintf("Dash sheet re-sent to %s", fields.Email))
	return models.RegenerateSummary{
		Recipient:   fields.FullName(),
		Email:       fields.Email,
		EntryNumber: FormatNumber(entry),
		Vehicle:     fields.Vehicle(),
		Location:    fields.City + ", " + fields.Province,
		PDFSize:     size,
	}, nil
}

// SampleEntryNumber is printed on the test dash sheet.
const SampleEntryNumber = 42

// SampleFields is the registrant used by the test dash sheet.
func SampleFields(to string) models.RegistrationFields {
	return models.RegistrationFields{
		FirstName: "John",
		LastName:  "Doe",
		Email:     to,
		Year:      "1969",
		Make:      "Chevrolet",
		Model:     "Camaro SS",
		City:      "Parksville",
		Province:  "BC",
	}
}

// SendTestDashSheet renders the sample dash sheet and mails it to `to`.
func (s *Service) SendTestDashSheet(ctx context.Context, to string) (int, error) {
	return s.sendDashSheet(ctx, SampleFields(to), SampleEntryNumber, 0)
}

// submit runs fn on the pool and records its classified outcome. A panic
// is recorded as a remote failure instead of escaping the worker.
func (s *Service) submit(step string, fn func() error, record func(Outcome)) pond.Task {
	return s.pool.SubmitErr(func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("%s panicked: %v", step, r)
				record(Outcome{Kind: KindRemoteServiceFailure, Err: err})
			}
		}()
		err = fn()
		record(Classify(err))
		return err
	})
}
