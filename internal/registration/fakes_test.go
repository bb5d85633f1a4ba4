package registration

import (
	"context"
	"fmt"
	"io"
	"sync"

	"ms-registration/internal/logger"
	"ms-registration/internal/models"
	"ms-registration/internal/payment"
	"ms-registration/internal/rowsource"
)

func testLogger() *logger.Logger {
	return logger.NewTestLogger(io.Discard)
}

// memorySheet is an in-memory row source laid out like the live sheet.
type memorySheet struct {
	mu        sync.Mutex
	rows      [][]string
	readErr   error
	appendErr error
	// noPosition drops the row number from append results.
	noPosition bool
	// beforeAppend runs inside AppendRow to simulate a concurrent writer.
	beforeAppend func(s *memorySheet)
	appended     [][]any
}

func newMemorySheet(dataRows int, pokerRunRows int) *memorySheet {
	s := &memorySheet{rows: [][]string{Header}}
	for i := 0; i < dataRows; i++ {
		s.addRow(i < pokerRunRows)
	}
	return s
}

func (s *memorySheet) addRow(pokerRun bool) {
	row := make([]string, len(Header))
	row[0] = "1/1/2026, 9:00:00 AM"
	row[9] = "No"
	if pokerRun {
		row[9] = PokerRunMarker
	}
	s.rows = append(s.rows, row)
}

func (s *memorySheet) ReadColumn(_ context.Context, column string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.readErr != nil {
		return nil, s.readErr
	}
	idx := int(column[0] - 'A')
	out := make([]string, len(s.rows))
	for i, row := range s.rows {
		if idx < len(row) {
			out[i] = row[idx]
		}
	}
	return out, nil
}

func (s *memorySheet) AppendRow(_ context.Context, values []any) (rowsource.AppendResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.appendErr != nil {
		return rowsource.AppendResult{}, s.appendErr
	}
	if s.beforeAppend != nil {
		s.beforeAppend(s)
	}
	row := make([]string, len(values))
	for i, v := range values {
		row[i] = fmt.Sprint(v)
	}
	s.rows = append(s.rows, row)
	s.appended = append(s.appended, values)
	if s.noPosition {
		return rowsource.AppendResult{}, nil
	}
	n := len(s.rows)
	return rowsource.AppendResult{Row: n, Range: fmt.Sprintf("Sheet1!A%d:P%d", n, n)}, nil
}

type recordingNotifier struct {
	mu         sync.Mutex
	admin      []models.AdminNotification
	dashSheets []models.DashSheetDelivery
	adminErr   error
	dashErr    error
	adminPanic bool
}

func (n *recordingNotifier) SendAdminNotification(_ context.Context, a models.AdminNotification) error {
	if n.adminPanic {
		panic("smtp client exploded")
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.adminErr != nil {
		return n.adminErr
	}
	n.admin = append(n.admin, a)
	return nil
}

func (n *recordingNotifier) SendDashSheet(_ context.Context, d models.DashSheetDelivery) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.dashErr != nil {
		return n.dashErr
	}
	n.dashSheets = append(n.dashSheets, d)
	return nil
}

type stubRenderer struct {
	last models.DashSheetData
	err  error
}

func (r *stubRenderer) Render(_ context.Context, data models.DashSheetData) ([]byte, error) {
	r.last = data
	if r.err != nil {
		return nil, r.err
	}
	return []byte("%PDF-" + FormatNumber(data.EntryNumber)), nil
}

type memoryGuard struct {
	mu   sync.Mutex
	seen map[string]bool
	err  error
}

func (g *memoryGuard) Claim(_ context.Context, id string) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.err != nil {
		return false, g.err
	}
	if g.seen == nil {
		g.seen = map[string]bool{}
	}
	if g.seen[id] {
		return false, nil
	}
	g.seen[id] = true
	return true, nil
}

type recordingPublisher struct {
	events []models.RegistrationEvent
	err    error
}

func (p *recordingPublisher) PublishRegistrationCompleted(_ context.Context, ev models.RegistrationEvent) error {
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, ev)
	return nil
}

type recordingSessions struct {
	params []payment.CheckoutParams
	err    error
}

func (r *recordingSessions) CreateCheckoutSession(_ context.Context, p payment.CheckoutParams) (string, error) {
	if r.err != nil {
		return "", r.err
	}
	r.params = append(r.params, p)
	return "https://checkout.stripe.test/session", nil
}
