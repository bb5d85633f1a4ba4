package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"ms-registration/internal/logger"
	"ms-registration/internal/models"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/client"
	"github.com/stripe/stripe-go/v82/webhook"
)

var ErrStripeClientInitFailed = errors.New("failed to initialize Stripe client")

// Webhook error categories.
const (
	CategoryConfiguration = "configuration"
	CategoryValidation    = "validation"
	CategoryProcessing    = "processing"
)

// WebhookError represents an error that occurred during webhook processing
type WebhookError struct {
	Category      string // "configuration", "validation", "processing"
	StatusCode    int    // HTTP status code
	PublicError   string // Safe to expose to clients
	InternalError string // Detailed error for logs only
	OriginalErr   error  // Underlying error
}

func (e *WebhookError) Error() string {
	return e.InternalError
}

func (e *WebhookError) Unwrap() error {
	return e.OriginalErr
}

// CheckoutParams describes a single-line-item hosted checkout.
type CheckoutParams struct {
	ProductName string
	Description string
	Currency    string
	AmountCents int64
	SuccessURL  string
	CancelURL   string
	Metadata    map[string]string
}

// StripeClient creates checkout sessions.
type StripeClient struct {
	client *client.API
	log    *logger.Logger
}

func NewStripeClient(secretKey string, log *logger.Logger) (*StripeClient, error) {
	if secretKey == "" {
		log.Error("STRIPE", "STRIPE_SECRET_KEY environment variable not set")
		return nil, ErrStripeClientInitFailed
	}
	sc := client.New(secretKey, nil)
	log.Info("STRIPE", "Stripe client initialized successfully")
	return &StripeClient{client: sc, log: log}, nil
}

func (s *StripeClient) CreateCheckoutSession(ctx context.Context, p CheckoutParams) (string, error) {
	params := &stripe.CheckoutSessionParams{
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency: stripe.String(p.Currency),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name:        stripe.String(p.ProductName),
						Description: stripe.String(p.Description),
					},
					UnitAmount: stripe.Int64(p.AmountCents),
				},
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL: stripe.String(p.SuccessURL),
		CancelURL:  stripe.String(p.CancelURL),
	}
	params.Context = ctx
	for k, v := range p.Metadata {
		params.AddMetadata(k, v)
	}

	sess, err := s.client.CheckoutSessions.New(params)
	if err != nil {
		s.log.Error("STRIPE", fmt.Sprintf("Failed to create checkout session: %v", err))
		return "", err
	}
	s.log.Info("STRIPE", fmt.Sprintf("Created checkout session %s (%s %.2f)", sess.ID, p.Currency, float64(p.AmountCents)/100))
	return sess.URL, nil
}

// WebhookVerifier checks Stripe signatures over the raw request body.
type WebhookVerifier struct {
	secret string
	log    *logger.Logger
}

func NewWebhookVerifier(secret string, log *logger.Logger) *WebhookVerifier {
	return &WebhookVerifier{secret: secret, log: log}
}

// Verify returns the event when payload was signed with the configured secret.
func (v *WebhookVerifier) Verify(payload []byte, signature string) (stripe.Event, error) {
	if v.secret == "" {
		v.log.Error("WEBHOOK", "Stripe webhook secret is not configured")
		return stripe.Event{}, &WebhookError{
			Category:      CategoryConfiguration,
			StatusCode:    http.StatusInternalServerError,
			PublicError:   "Webhook processing error",
			InternalError: "Stripe webhook secret is not configured",
		}
	}

	// Verify signature with API version mismatch tolerance
	opts := webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	}

	event, err := webhook.ConstructEventWithOptions(payload, signature, v.secret, opts)
	if err != nil {
		var errorMessage string
		switch {
		case errors.Is(err, webhook.ErrNotSigned):
			errorMessage = "Missing webhook signature"
		case errors.Is(err, webhook.ErrTooOld):
			errorMessage = "Webhook timestamp outside tolerance"
		case errors.Is(err, webhook.ErrNoValidSignature), errors.Is(err, webhook.ErrInvalidHeader):
			errorMessage = "Webhook signature verification failed"
		default:
			errorMessage = "Invalid webhook payload"
		}

		v.log.LogSecurity("WEBHOOK_SIGNATURE", fmt.Sprintf("%s: %v", errorMessage, err))
		return stripe.Event{}, &WebhookError{
			Category:      CategoryValidation,
			StatusCode:    http.StatusBadRequest,
			PublicError:   fmt.Sprintf("Webhook Error: %s", errorMessage),
			InternalError: fmt.Sprintf("%s: %v", errorMessage, err),
			OriginalErr:   err,
		}
	}
	return event, nil
}

// IsCheckoutCompleted reports the only event type with side effects.
func IsCheckoutCompleted(event stripe.Event) bool {
	return event.Type == stripe.EventTypeCheckoutSessionCompleted
}

// RegistrationFromEvent rebuilds the registration carried in a completed
// checkout session's metadata.
func RegistrationFromEvent(event stripe.Event) (models.Registration, error) {
	var session stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
		return models.Registration{}, &WebhookError{
			Category:      CategoryProcessing,
			StatusCode:    http.StatusBadRequest,
			PublicError:   "Invalid event data",
			InternalError: fmt.Sprintf("Failed to unmarshal checkout session: %v", err),
			OriginalErr:   err,
		}
	}

	fields, pokerRun := models.FieldsFromMetadata(session.Metadata)
	reg := models.Registration{
		Fields:      fields,
		PokerRun:    pokerRun,
		AmountTotal: session.AmountTotal,
		SessionID:   session.ID,
		EventID:     event.ID,
		SubmittedAt: time.Now(),
	}
	if session.PaymentIntent != nil {
		reg.PaymentIntentID = session.PaymentIntent.ID
	}
	return reg, nil
}
