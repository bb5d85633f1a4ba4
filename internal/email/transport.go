package email

import (
	"errors"
	"fmt"

	"ms-registration/internal/config"
)

// ErrNotConfigured is returned when no SMTP provider has credentials.
var ErrNotConfigured = errors.New("no email service configured: set BREVO_SMTP_KEY and BREVO_SMTP_USER, MAILGUN_API_KEY and MAILGUN_DOMAIN, or GMAIL_USER and GMAIL_PASS")

type Provider string

const (
	ProviderBrevo   Provider = "brevo"
	ProviderMailgun Provider = "mailgun"
	ProviderGmail   Provider = "gmail"
)

// Transport is the SMTP endpoint chosen for outbound mail.
type Transport struct {
	Provider Provider
	Host     string
	Port     int
	Username string
	Password string
	SSL      bool
}

// SelectTransport picks Brevo, then Mailgun, then Gmail.
func SelectTransport(cfg config.EmailConfig) (Transport, error) {
	if cfg.Brevo.Key != "" && cfg.Brevo.User != "" {
		host := cfg.Brevo.Host
		if host == "" {
			host = "smtp-relay.brevo.com"
		}
		port := cfg.Brevo.Port
		if port == 0 {
			port = 587
		}
		return Transport{
			Provider: ProviderBrevo,
			Host:     host,
			Port:     port,
			Username: cfg.Brevo.User,
			Password: cfg.Brevo.Key,
			SSL:      port == 465,
		}, nil
	}

	if cfg.Mailgun.APIKey != "" && cfg.Mailgun.Domain != "" {
		host := "smtp.mailgun.org"
		if cfg.Mailgun.Region == "eu" {
			host = "smtp.eu.mailgun.org"
		}
		user := cfg.Mailgun.SMTPUser
		if user == "" {
			user = "postmaster@" + cfg.Mailgun.Domain
		}
		pass := cfg.Mailgun.SMTPPassword
		if pass == "" {
			pass = cfg.Mailgun.APIKey
		}
		return Transport{Provider: ProviderMailgun, Host: host, Port: 587, Username: user, Password: pass}, nil
	}

	if cfg.Gmail.User != "" && cfg.Gmail.Password != "" {
		return Transport{
			Provider: ProviderGmail,
			Host:     "smtp.gmail.com",
			Port:     587,
			Username: cfg.Gmail.User,
			Password: cfg.Gmail.Password,
		}, nil
	}

	return Transport{}, ErrNotConfigured
}

// FromAddress is EMAIL_FROM_ADDRESS, else the provider's own identity.
func FromAddress(cfg config.EmailConfig) (string, error) {
	switch {
	case cfg.FromAddress != "":
		return cfg.FromAddress, nil
	case cfg.Brevo.User != "":
		return cfg.Brevo.User, nil
	case cfg.Mailgun.Domain != "":
		return "postmaster@" + cfg.Mailgun.Domain, nil
	case cfg.Gmail.User != "":
		return cfg.Gmail.User, nil
	}
	return "", fmt.Errorf("no email from address configured: %w", ErrNotConfigured)
}

// ReplyTo falls back to the from address.
func ReplyTo(cfg config.EmailConfig) (string, error) {
	if cfg.ReplyTo != "" {
		return cfg.ReplyTo, nil
	}
	return FromAddress(cfg)
}

// AdminAddress falls back to the from address.
func AdminAddress(cfg config.EmailConfig) (string, error) {
	if cfg.AdminEmail != "" {
		return cfg.AdminEmail, nil
	}
	return FromAddress(cfg)
}

func FromName(cfg config.EmailConfig) string {
	if cfg.FromName != "" {
		return cfg.FromName
	}
	return "Seaside Cruizers Car Show"
}
