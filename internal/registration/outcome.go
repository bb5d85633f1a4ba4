package registration

import (
	"errors"
	"fmt"

	"ms-registration/internal/dashsheet"
	"ms-registration/internal/email"
	"ms-registration/internal/payment"
	"ms-registration/internal/rowsource"
)

// Kind tags a failure so each caller can decide to fail open or closed.
type Kind int

const (
	KindNone Kind = iota
	KindAuthenticityFailure
	KindConfigurationMissing
	KindRemoteServiceFailure
	KindReconciliationMismatch
	KindValidationFailure
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "ok"
	case KindAuthenticityFailure:
		return "authenticity_failure"
	case KindConfigurationMissing:
		return "configuration_missing"
	case KindRemoteServiceFailure:
		return "remote_service_failure"
	case KindReconciliationMismatch:
		return "reconciliation_mismatch"
	case KindValidationFailure:
		return "validation_failure"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Outcome is the classified result of one step.
type Outcome struct {
	Kind Kind
	Err  error
}

func (o Outcome) OK() bool { return o.Kind == KindNone }

// FailOpen reports whether the flow should carry on with defaults.
func (o Outcome) FailOpen() bool {
	return o.Kind == KindConfigurationMissing || o.Kind == KindRemoteServiceFailure
}

func (o Outcome) String() string {
	if o.Err == nil {
		return o.Kind.String()
	}
	return fmt.Sprintf("%s: %v", o.Kind, o.Err)
}

// Validation error codes returned to the registration form.
const (
	CodeInvalidRequest = "INVALID_REQUEST"
	CodePokerRunFull   = "POKER_RUN_FULL"
)

// ValidationError rejects a checkout before any charge is made.
type ValidationError struct {
	Code    string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// ErrPokerRunFull is returned when the add-on has no remaining slots.
var ErrPokerRunFull = &ValidationError{
	Code:    CodePokerRunFull,
	Message: "Poker Run is full. Please register without the Poker Run option.",
}

// MismatchError records a provisional entry number that the row position overrode.
type MismatchError struct {
	Provisional int
	Actual      int
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("entry number %d reconciled to %d from append position", e.Provisional, e.Actual)
}

// Classify maps an error onto the failure taxonomy.
func Classify(err error) Outcome {
	if err == nil {
		return Outcome{Kind: KindNone}
	}

	var webhookErr *payment.WebhookError
	if errors.As(err, &webhookErr) {
		if webhookErr.Category == payment.CategoryConfiguration {
			return Outcome{Kind: KindConfigurationMissing, Err: err}
		}
		return Outcome{Kind: KindAuthenticityFailure, Err: err}
	}

	var validationErr *ValidationError
	if errors.As(err, &validationErr) {
		return Outcome{Kind: KindValidationFailure, Err: err}
	}

	var mismatch *MismatchError
	if errors.As(err, &mismatch) {
		return Outcome{Kind: KindReconciliationMismatch, Err: err}
	}

	if errors.Is(err, rowsource.ErrNotConfigured) ||
		errors.Is(err, email.ErrNotConfigured) ||
		errors.Is(err, dashsheet.ErrRendererNotConfigured) ||
		errors.Is(err, ErrNotConfigured) {
		return Outcome{Kind: KindConfigurationMissing, Err: err}
	}

	return Outcome{Kind: KindRemoteServiceFailure, Err: err}
}

// ErrNotConfigured marks an optional collaborator that was not wired.
var ErrNotConfigured = errors.New("collaborator not configured")
