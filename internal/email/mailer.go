// Package email delivers the organiser notification and the participant
// dash sheet over SMTP.
package email

import (
	"context"
	"fmt"
	"io"
	"time"

	"ms-registration/internal/config"
	"ms-registration/internal/logger"
	"ms-registration/internal/models"

	"gopkg.in/gomail.v2"
)

// Sender is satisfied by *gomail.Dialer.
type Sender interface {
	DialAndSend(m ...*gomail.Message) error
}

type Service struct {
	sender   Sender
	provider Provider
	from     string
	fromName string
	replyTo  string
	admin    string
	loc      *time.Location
	logger   *logger.Logger
}

// New selects a transport from cfg; it returns ErrNotConfigured when no
// provider has credentials.
func New(cfg config.EmailConfig, loc *time.Location, log *logger.Logger) (*Service, error) {
	tr, err := SelectTransport(cfg)
	if err != nil {
		return nil, err
	}
	d := gomail.NewDialer(tr.Host, tr.Port, tr.Username, tr.Password)
	d.SSL = tr.SSL

	svc, err := NewWithSender(d, cfg, loc, log)
	if err != nil {
		return nil, err
	}
	svc.provider = tr.Provider
	log.Info("EMAIL", fmt.Sprintf("Using %s (%s:%d) for email delivery", tr.Provider, tr.Host, tr.Port))
	return svc, nil
}

// NewWithSender builds the service over an existing sender.
func NewWithSender(sender Sender, cfg config.EmailConfig, loc *time.Location, log *logger.Logger) (*Service, error) {
	from, err := FromAddress(cfg)
	if err != nil {
		return nil, err
	}
	replyTo, _ := ReplyTo(cfg)
	admin, _ := AdminAddress(cfg)
	if loc == nil {
		loc = time.UTC
	}
	return &Service{
		sender:   sender,
		from:     from,
		fromName: FromName(cfg),
		replyTo:  replyTo,
		admin:    admin,
		loc:      loc,
		logger:   log,
	}, nil
}

func (s *Service) Provider() Provider { return s.provider }

func (s *Service) newMessage(to, subject string) *gomail.Message {
	m := gomail.NewMessage()
	m.SetAddressHeader("From", s.from, s.fromName)
	m.SetHeader("To", to)
	m.SetHeader("Reply-To", s.replyTo)
	m.SetHeader("Subject", subject)
	return m
}

func (s *Service) send(ctx context.Context, kind, to string, m *gomail.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.sender.DialAndSend(m); err != nil {
		s.logger.Error("EMAIL", fmt.Sprintf("Failed to send %s email to %s: %v", kind, to, err))
		return fmt.Errorf("send %s email: %w", kind, err)
	}
	s.logger.LogEmail(kind, to, "sent")
	return nil
}

// SendAdminNotification mails the registration summary to the organisers.
func (s *Service) SendAdminNotification(ctx context.Context, n models.AdminNotification) error {
	m := s.newMessage(s.admin, AdminSubject)
	m.SetBody("text/plain", AdminBody(n, s.loc))
	return s.send(ctx, "ADMIN", s.admin, m)
}

// SendDashSheet mails the rendered dash sheet to the registrant.
func (s *Service) SendDashSheet(ctx context.Context, d models.DashSheetDelivery) error {
	htmlBody, err := DashSheetHTML(d.Name, d.EntryNumber)
	if err != nil {
		return fmt.Errorf("render dash sheet email: %w", err)
	}

	m := s.newMessage(d.To, DashSheetSubject)
	m.SetBody("text/plain", DashSheetText(d.Name, d.EntryNumber))
	m.AddAlternative("text/html", htmlBody)

	pdf := d.PDF
	m.Attach(AttachmentName(d.EntryNumber),
		gomail.SetCopyFunc(func(w io.Writer) error {
			_, err := w.Write(pdf)
			return err
		}),
		gomail.SetHeader(map[string][]string{"Content-Type": {"application/pdf"}}),
	)
	return s.send(ctx, "DASHSHEET", d.To, m)
}
