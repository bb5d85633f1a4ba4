package registration

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"ms-registration/internal/logger"
	"ms-registration/internal/models"
	"ms-registration/internal/payment"

	"github.com/go-playground/validator/v10"
)

// SessionCreator opens a hosted checkout session.
type SessionCreator interface {
	CreateCheckoutSession(ctx context.Context, p payment.CheckoutParams) (string, error)
}

type CheckoutOptions struct {
	Gate        *CapacityGate
	Sessions    SessionCreator
	ProductName string
	Currency    string
	BaseFee     int64
	PokerRunFee int64
	Logger      *logger.Logger
}

// Checkout validates the form, checks Poker Run capacity and creates the
// payment session. Capacity is checked before any charge.
type Checkout struct {
	gate        *CapacityGate
	sessions    SessionCreator
	validate    *validator.Validate
	productName string
	currency    string
	baseFee     int64
	pokerRunFee int64
	logger      *logger.Logger
}

func NewCheckout(opts CheckoutOptions) *Checkout {
	if opts.Currency == "" {
		opts.Currency = "cad"
	}
	return &Checkout{
		gate:        opts.Gate,
		sessions:    opts.Sessions,
		validate:    validator.New(),
		productName: opts.ProductName,
		currency:    opts.Currency,
		baseFee:     opts.BaseFee,
		pokerRunFee: opts.PokerRunFee,
		logger:      opts.Logger,
	}
}

// AmountCents is the base fee plus the optional Poker Run fee, in cents.
func (c *Checkout) AmountCents(pokerRun bool) int64 {
	total := c.baseFee
	if pokerRun {
		total += c.pokerRunFee
	}
	return total * 100
}

// Create returns the hosted checkout URL. Validation and capacity failures
// are *ValidationError.
func (c *Checkout) Create(ctx context.Context, req models.CheckoutRequest) (string, error) {
	if err := c.validate.Struct(req); err != nil {
		return "", &ValidationError{Code: CodeInvalidRequest, Message: describeValidation(err)}
	}

	if req.PokerRun && c.gate != nil {
		av := c.gate.Check(ctx)
		if !av.Available {
			c.logger.Warn("CHECKOUT", fmt.Sprintf("Rejected Poker Run checkout for %s %s: %s", req.FirstName, req.LastName, av.Message))
			return "", ErrPokerRunFull
		}
	}

	origin := strings.TrimRight(req.Origin, "/")
	description := "Car show registration"
	if req.PokerRun {
		description += " + Poker Run"
	}

	sessionURL, err := c.sessions.CreateCheckoutSession(ctx, payment.CheckoutParams{
		ProductName: c.productName,
		Description: description,
		Currency:    c.currency,
		AmountCents: c.AmountCents(req.PokerRun),
		SuccessURL:  fmt.Sprintf("%s/registration.html?success=true&firstName=%s", origin, url.QueryEscape(req.FirstName)),
		CancelURL:   origin + "/registration.html?canceled=true",
		Metadata:    req.RegistrationFields.ToMetadata(req.PokerRun),
	})
	if err != nil {
		return "", fmt.Errorf("create checkout session: %w", err)
	}

	c.logger.Info("CHECKOUT", fmt.Sprintf("Checkout session created for %s %s (poker run: %v)", req.FirstName, req.LastName, req.PokerRun))
	return sessionURL, nil
}

func describeValidation(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, lowerFirst(fe.Field()))
	}
	return "Invalid or missing fields: " + strings.Join(fields, ", ")
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}
