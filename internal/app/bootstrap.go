// Package app wires configuration into the registration components shared
// by the HTTP service and the operator CLI.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ms-registration/internal/auth"
	"ms-registration/internal/config"
	"ms-registration/internal/dashsheet"
	"ms-registration/internal/email"
	"ms-registration/internal/kafka"
	"ms-registration/internal/logger"
	"ms-registration/internal/models"
	"ms-registration/internal/payment"
	"ms-registration/internal/registration"
	rediswrap "ms-registration/internal/registration/redis"
	"ms-registration/internal/registration/registration_api"
	"ms-registration/internal/rowsource"
	"ms-registration/internal/utils"

	"github.com/go-redis/redis/v8"
)

// App holds the wired components and everything that needs closing.
type App struct {
	Config    *config.Config
	Rows      rowsource.RowSource
	Sequencer *registration.Sequencer
	Gate      *registration.CapacityGate
	Service   *registration.Service
	Checkout  *registration.Checkout
	Handler   *registration_api.Handler

	closers []func() error
	logger  *logger.Logger
}

// OpenRowSource selects the configured backend. On error the returned
// source is rowsource.Unconfigured so callers can still fail open.
func OpenRowSource(ctx context.Context, cfg *config.Config, log *logger.Logger) (rowsource.RowSource, func() error, error) {
	noop := func() error { return nil }

	switch cfg.RowStore.Driver {
	case "sheets", "":
		creds := rowsource.Credentials{
			KeyFile:    cfg.RowStore.KeyFile,
			Email:      cfg.RowStore.ServiceEmail,
			PrivateKey: cfg.RowStore.PrivateKey,
		}
		if cfg.RowStore.SpreadsheetID == "" || !creds.Configured() {
			return rowsource.Unconfigured{}, noop, rowsource.ErrNotConfigured
		}
		tokens, err := creds.TokenSource(ctx)
		if err != nil {
			return rowsource.Unconfigured{}, noop, err
		}
		client, err := rowsource.NewSheetsClient(rowsource.SheetsOptions{
			SpreadsheetID: cfg.RowStore.SpreadsheetID,
			SheetName:     cfg.RowStore.SheetName,
			LastColumn:    registration.LastColumn,
			TokenSource:   tokens,
			Logger:        log,
		})
		if err != nil {
			return rowsource.Unconfigured{}, noop, err
		}
		log.Info("ROWSTORE", fmt.Sprintf("Using Google Sheets %s (%s)", cfg.RowStore.SpreadsheetID, cfg.RowStore.SheetName))
		return client, noop, nil

	case "sqlite", "postgres":
		db, err := rowsource.OpenSQL(cfg.RowStore.Driver, cfg.RowStore.DSN)
		if err != nil {
			return rowsource.Unconfigured{}, noop, err
		}
		store := rowsource.NewSQLStore(db, rowsource.SQLStoreOptions{
			Sheet:      cfg.RowStore.SheetName,
			Header:     registration.Header,
			LastColumn: registration.LastColumn,
			Logger:     log,
		})
		if err := store.Init(ctx); err != nil {
			db.Close()
			return rowsource.Unconfigured{}, noop, err
		}
		log.Info("ROWSTORE", fmt.Sprintf("Using %s row store", cfg.RowStore.Driver))
		return store, db.Close, nil

	default:
		return rowsource.Unconfigured{}, noop, fmt.Errorf("unsupported ROW_STORE %q", cfg.RowStore.Driver)
	}
}

// NewSequencing builds the sequencer and capacity gate over rows.
func NewSequencing(cfg *config.Config, rows rowsource.RowSource, log *logger.Logger) (*registration.Sequencer, *registration.CapacityGate) {
	seq := registration.NewSequencer(rows, registration.SequencerOptions{
		Location:    utils.LoadLocation(cfg.Event.Timezone),
		BaseFee:     cfg.Event.BaseFee,
		PokerRunFee: cfg.Event.PokerRunFee,
	}, log)
	gate := registration.NewCapacityGate(rows, cfg.Event.PokerRunLimit, log)
	return seq, gate
}

// unconfiguredNotifier stands in when no SMTP provider is set so the
// webhook still records the registration.
type unconfiguredNotifier struct{ err error }

func (u unconfiguredNotifier) SendAdminNotification(context.Context, models.AdminNotification) error {
	return u.err
}

func (u unconfiguredNotifier) SendDashSheet(context.Context, models.DashSheetDelivery) error {
	return u.err
}

// unconfiguredSessions fails every checkout when Stripe has no key.
type unconfiguredSessions struct{ err error }

func (u unconfiguredSessions) CreateCheckoutSession(context.Context, payment.CheckoutParams) (string, error) {
	return "", u.err
}

// Build wires every component. Optional collaborators that cannot be set
// up are logged and left out; only programming errors are returned.
func Build(ctx context.Context, cfg *config.Config, log *logger.Logger) (*App, error) {
	a := &App{Config: cfg, logger: log}

	rows, closeRows, err := OpenRowSource(ctx, cfg, log)
	if err != nil {
		log.Warn("ROWSTORE", fmt.Sprintf("Row store unavailable, numbering will fail open: %v", err))
	}
	a.Rows = rows
	a.closers = append(a.closers, closeRows)
	a.Sequencer, a.Gate = NewSequencing(cfg, rows, log)

	loc := utils.LoadLocation(cfg.Event.Timezone)
	var notifier registration.Notifier
	mailer, err := email.New(cfg.Email, loc, log)
	if err != nil {
		log.Warn("EMAIL", fmt.Sprintf("Email disabled: %v", err))
		notifier = unconfiguredNotifier{err: err}
	} else {
		notifier = mailer
	}

	renderer, err := dashsheet.NewRenderer(dashsheet.Options{
		PDFShiftAPIKey: cfg.DashSheet.PDFShiftAPIKey,
		TemplatePath:   cfg.DashSheet.TemplatePath,
		LogoPath:       cfg.DashSheet.LogoPath,
		FontPath:       cfg.DashSheet.FontPath,
		Logger:         log,
	})
	if err != nil {
		return nil, fmt.Errorf("dash sheet renderer: %w", err)
	}

	opts := registration.ServiceOptions{
		Sequencer:   a.Sequencer,
		Gate:        a.Gate,
		Notifier:    notifier,
		DashSheets:  renderer,
		BaseFee:     cfg.Event.BaseFee,
		PokerRunFee: cfg.Event.PokerRunFee,
		Logger:      log,
	}

	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
		if err := client.Ping(ctx).Err(); err != nil {
			log.Warn("REDIS", fmt.Sprintf("Redis unavailable at %s, duplicate event guard disabled: %v", cfg.Redis.Addr, err))
			client.Close()
		} else {
			log.Info("REDIS", fmt.Sprintf("Duplicate event guard using %s", cfg.Redis.Addr))
			opts.Guard = rediswrap.NewEventGuard(client, rediswrap.DefaultEventTTL, log)
			a.closers = append(a.closers, client.Close)
		}
	}

	if cfg.Kafka.Enabled {
		topic := cfg.Kafka.Topics.Registrations
		topicCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		if err := kafka.EnsureTopicsExist(topicCtx, cfg.Kafka.Brokers, []string{topic}, log); err != nil {
			log.Warn("KAFKA", fmt.Sprintf("Topic creation might have failed: %v", err))
		}
		cancel()
		producer := kafka.NewProducer(cfg.Kafka.Brokers, topic, log)
		opts.Publisher = producer
		a.closers = append(a.closers, producer.Close)
		log.Info("KAFKA", fmt.Sprintf("Publishing registrations to %s", topic))
	}

	a.Service = registration.NewService(opts)

	var sessions registration.SessionCreator
	stripeClient, err := payment.NewStripeClient(cfg.Stripe.SecretKey, log)
	if err != nil {
		log.Warn("STRIPE", fmt.Sprintf("Checkout disabled: %v", err))
		sessions = unconfiguredSessions{err: err}
	} else {
		sessions = stripeClient
	}
	a.Checkout = registration.NewCheckout(registration.CheckoutOptions{
		Gate:        a.Gate,
		Sessions:    sessions,
		ProductName: cfg.Event.ProductName,
		Currency:    cfg.Stripe.Currency,
		BaseFee:     cfg.Event.BaseFee,
		PokerRunFee: cfg.Event.PokerRunFee,
		Logger:      log,
	})

	a.Handler = &registration_api.Handler{
		Service:      a.Service,
		Checkout:     a.Checkout,
		Availability: a.Gate,
		Verifier:     payment.NewWebhookVerifier(cfg.Stripe.WebhookSecret, log),
		AdminKey:     auth.AdminKey{Key: cfg.AdminKey},
		Logger:       log,
	}
	if cfg.AdminKey == "" {
		log.Warn("AUTH", "ADMIN_KEY not set, manual dash sheet endpoints are open")
	}
	return a, nil
}

// Close drains the worker pool and releases connections.
func (a *App) Close() error {
	if a.Service != nil {
		a.Service.Close()
	}
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
