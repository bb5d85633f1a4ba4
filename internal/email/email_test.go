package email

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"ms-registration/internal/config"
	"ms-registration/internal/logger"
	"ms-registration/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/gomail.v2"
)

type fakeSender struct {
	sent []*gomail.Message
	err  error
}

func (f *fakeSender) DialAndSend(m ...*gomail.Message) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, m...)
	return nil
}

func TestSelectTransportPriority(t *testing.T) {
	all := config.EmailConfig{
		Brevo:   config.BrevoConfig{Key: "bk", User: "brevo@example.com"},
		Mailgun: config.MailgunConfig{APIKey: "mk", Domain: "mg.example.com"},
		Gmail:   config.GmailConfig{User: "g@example.com", Password: "gp"},
	}

	tr, err := SelectTransport(all)
	require.NoError(t, err)
	assert.Equal(t, ProviderBrevo, tr.Provider)
	assert.Equal(t, "smtp-relay.brevo.com", tr.Host)
	assert.Equal(t, 587, tr.Port)
	assert.False(t, tr.SSL)

	all.Brevo = config.BrevoConfig{}
	tr, err = SelectTransport(all)
	require.NoError(t, err)
	assert.Equal(t, ProviderMailgun, tr.Provider)
	assert.Equal(t, "smtp.mailgun.org", tr.Host)
	assert.Equal(t, "postmaster@mg.example.com", tr.Username)
	assert.Equal(t, "mk", tr.Password)

	all.Mailgun = config.MailgunConfig{}
	tr, err = SelectTransport(all)
	require.NoError(t, err)
	assert.Equal(t, ProviderGmail, tr.Provider)
	assert.Equal(t, "smtp.gmail.com", tr.Host)

	_, err = SelectTransport(config.EmailConfig{})
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestSelectTransportVariants(t *testing.T) {
	tr, err := SelectTransport(config.EmailConfig{Brevo: config.BrevoConfig{Key: "k", User: "u", Port: 465}})
	require.NoError(t, err)
	assert.True(t, tr.SSL)

	tr, err = SelectTransport(config.EmailConfig{Mailgun: config.MailgunConfig{
		APIKey: "k", Domain: "d", Region: "eu", SMTPUser: "custom", SMTPPassword: "pw",
	}})
	require.NoError(t, err)
	assert.Equal(t, "smtp.eu.mailgun.org", tr.Host)
	assert.Equal(t, "custom", tr.Username)
	assert.Equal(t, "pw", tr.Password)
}

func TestAddressFallbacks(t *testing.T) {
	cfg := config.EmailConfig{Mailgun: config.MailgunConfig{APIKey: "k", Domain: "mg.example.com"}}

	from, err := FromAddress(cfg)
	require.NoError(t, err)
	assert.Equal(t, "postmaster@mg.example.com", from)

	admin, _ := AdminAddress(cfg)
	assert.Equal(t, from, admin)
	reply, _ := ReplyTo(cfg)
	assert.Equal(t, from, reply)
	assert.Equal(t, "Seaside Cruizers Car Show", FromName(cfg))

	cfg.FromAddress = "info@example.com"
	cfg.AdminEmail = "admin@example.com"
	from, _ = FromAddress(cfg)
	admin, _ = AdminAddress(cfg)
	assert.Equal(t, "info@example.com", from)
	assert.Equal(t, "admin@example.com", admin)

	_, err = FromAddress(config.EmailConfig{})
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func sampleNotification() models.AdminNotification {
	return models.AdminNotification{
		Registration: models.Registration{
			Fields: models.RegistrationFields{
				FirstName: "Jane", LastName: "Smith", Email: "jane@example.com",
				Country: "Canada", Province: "BC", City: "Nanaimo", PostalCode: "V9R 1A1",
				Year: "1957", Make: "Ford", Model: "Thunderbird",
			},
			PokerRun:        true,
			AmountTotal:     3500,
			PaymentIntentID: "pi_123",
		},
		EntryNumber:    7,
		PokerRunNumber: 3,
		BaseFee:        30,
		PokerRunFee:    5,
		RegisteredAt:   time.Date(2026, 6, 1, 19, 30, 0, 0, time.UTC),
	}
}

func TestAdminBody(t *testing.T) {
	loc, err := time.LoadLocation("America/Los_Angeles")
	require.NoError(t, err)

	body := AdminBody(sampleNotification(), loc)
	assert.Contains(t, body, "Name: Jane Smith")
	assert.Contains(t, body, "Address: Canada, BC, Nanaimo, V9R 1A1")
	assert.Contains(t, body, "Car Club Affiliation: None")
	assert.Contains(t, body, "Participating: Yes")
	assert.Contains(t, body, "Poker Run Number: 003")
	assert.Contains(t, body, "Base Registration: $30.00")
	assert.Contains(t, body, "Poker Run: $5.00")
	assert.Contains(t, body, "Total Charged: $35.00")
	assert.Contains(t, body, "Payment Transaction ID: pi_123")
	assert.Contains(t, body, "Entry Number: 007")
	assert.Contains(t, body, "2026")
}

func TestAdminBodyWithoutPokerRun(t *testing.T) {
	n := sampleNotification()
	n.Registration.PokerRun = false
	n.Registration.AmountTotal = 3000
	n.PokerRunNumber = 0

	body := AdminBody(n, time.UTC)
	assert.Contains(t, body, "Participating: No")
	assert.NotContains(t, body, "Poker Run Number")
	assert.Contains(t, body, "Poker Run: $0.00")
	assert.Contains(t, body, "Total Charged: $30.00")
}

func newTestService(t *testing.T, sender Sender) *Service {
	t.Helper()
	svc, err := NewWithSender(sender, config.EmailConfig{
		FromAddress: "info@example.com",
		AdminEmail:  "admin@example.com",
	}, time.UTC, logger.NewTestLogger(io.Discard))
	require.NoError(t, err)
	return svc
}

func TestSendAdminNotification(t *testing.T) {
	sender := &fakeSender{}
	svc := newTestService(t, sender)

	require.NoError(t, svc.SendAdminNotification(context.Background(), sampleNotification()))
	require.Len(t, sender.sent, 1)

	m := sender.sent[0]
	assert.Equal(t, []string{"admin@example.com"}, m.GetHeader("To"))
	assert.Equal(t, []string{AdminSubject}, m.GetHeader("Subject"))
	assert.Equal(t, []string{"info@example.com"}, m.GetHeader("Reply-To"))
}

func TestSendDashSheetAttachesPDF(t *testing.T) {
	sender := &fakeSender{}
	svc := newTestService(t, sender)

	err := svc.SendDashSheet(context.Background(), models.DashSheetDelivery{
		To:          "jane@example.com",
		Name:        "Jane",
		EntryNumber: 7,
		PDF:         []byte("%PDF-1.4"),
	})
	require.NoError(t, err)
	require.Len(t, sender.sent, 1)

	m := sender.sent[0]
	assert.Equal(t, []string{"jane@example.com"}, m.GetHeader("To"))
	assert.Equal(t, []string{DashSheetSubject}, m.GetHeader("Subject"))

	var buf bytes.Buffer
	_, err = m.WriteTo(&buf)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Dashsheet-007.pdf")
	assert.Contains(t, buf.String(), "application/pdf")
}

func TestSendFailureWrapped(t *testing.T) {
	boom := errors.New("smtp down")
	svc := newTestService(t, &fakeSender{err: boom})

	err := svc.SendAdminNotification(context.Background(), sampleNotification())
	assert.ErrorIs(t, err, boom)
}

func TestSendRespectsCancelledContext(t *testing.T) {
	sender := &fakeSender{}
	svc := newTestService(t, sender)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, svc.SendAdminNotification(ctx, sampleNotification()), context.Canceled)
	assert.Empty(t, sender.sent)
}

func TestDashSheetBodies(t *testing.T) {
	assert.Contains(t, DashSheetText("Jane", 7), "Your entry number is: 007")

	html, err := DashSheetHTML("<Jane>", 7)
	require.NoError(t, err)
	assert.Contains(t, html, "&lt;Jane&gt;")
	assert.Contains(t, html, ">007<")
	assert.Equal(t, "Dashsheet-042.pdf", AttachmentName(42))
}
