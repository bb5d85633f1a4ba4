package registration_api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"ms-registration/internal/auth"
	"ms-registration/internal/logger"
	"ms-registration/internal/models"
	"ms-registration/internal/payment"
	"ms-registration/internal/registration"
	"ms-registration/internal/utils"

	"github.com/go-chi/chi/v5"
	"github.com/stripe/stripe-go/v82"
)

const (
	maxWebhookBody = 65536
	maxJSONBody    = 1 << 20

	defaultWebhookTimeout = 25 * time.Second
)

type Processor interface {
	ProcessCompletedPayment(ctx context.Context, reg models.Registration) registration.ProcessResult
	RegenerateDashSheet(ctx context.Context, fields models.RegistrationFields, entry, pokerRun int) (models.RegenerateSummary, error)
	SendTestDashSheet(ctx context.Context, to string) (int, error)
}

type CheckoutCreator interface {
	Create(ctx context.Context, req models.CheckoutRequest) (string, error)
}

type AvailabilityChecker interface {
	Check(ctx context.Context) models.Availability
}

type EventVerifier interface {
	Verify(payload []byte, signature string) (stripe.Event, error)
}

type Handler struct {
	Service      Processor
	Checkout     CheckoutCreator
	Availability AvailabilityChecker
	Verifier     EventVerifier
	AdminKey     auth.AdminKey
	Logger       *logger.Logger
	// WebhookTimeout bounds post-payment processing once the event is verified.
	WebhookTimeout time.Duration
}

// Routes mounts every endpoint under /api.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.MethodNotAllowed(h.MethodNotAllowed)
	r.NotFound(h.NotFound)

	r.Post("/webhook", h.StripeWebhook)
	r.Post("/create-checkout-session", h.CreateCheckoutSession)
	r.Get("/check-poker-run-availability", h.CheckPokerRunAvailability)
	r.Options("/check-poker-run-availability", h.Preflight)
	r.Post("/regenerate-dashsheet", h.RegenerateDashSheet)
	r.With(h.AdminKey.Middleware()).Post("/test-dashsheet", h.TestDashSheet)
	return r
}

func (h *Handler) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	h.Logger.Warn("API", fmt.Sprintf("%s %s: method not allowed", r.Method, r.URL.Path))
	_ = utils.WriteError(w, http.StatusMethodNotAllowed, utils.ErrorResponse("Method not allowed", ""))
}

func (h *Handler) NotFound(w http.ResponseWriter, r *http.Request) {
	_ = utils.WriteError(w, http.StatusNotFound, utils.ErrorResponse("Not found", ""))
}

func (h *Handler) Preflight(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}

// StripeWebhook verifies the signature, then always acknowledges. Only a
// completed checkout has side effects.
func (h *Handler) StripeWebhook(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	delivery := utils.NewCorrelationID()
	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("StripeWebhook: failed to read body: %v", err))
		http.Error(w, "Error reading request body", http.StatusServiceUnavailable)
		return
	}

	event, err := h.Verifier.Verify(payload, r.Header.Get("Stripe-Signature"))
	if err != nil {
		var webhookErr *payment.WebhookError
		if errors.As(err, &webhookErr) {
			h.Logger.Info("API", fmt.Sprintf("StripeWebhook: rejecting event category=%s, status=%d",
				webhookErr.Category, webhookErr.StatusCode))
			http.Error(w, webhookErr.PublicError, webhookErr.StatusCode)
			return
		}
		http.Error(w, "Webhook Error: "+err.Error(), http.StatusBadRequest)
		return
	}

	if !payment.IsCheckoutCompleted(event) {
		h.Logger.Debug("API", fmt.Sprintf("StripeWebhook[%s]: ignoring event %s of type %s", delivery, event.ID, event.Type))
		h.acknowledge(w)
		return
	}

	reg, err := payment.RegistrationFromEvent(event)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("StripeWebhook[%s]: event %s carried no usable session: %v", delivery, event.ID, err))
		h.acknowledge(w)
		return
	}

	timeout := h.WebhookTimeout
	if timeout <= 0 {
		timeout = defaultWebhookTimeout
	}
	// the provider's disconnect must not abort a paid registration
	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), timeout)
	defer cancel()

	result := h.Service.ProcessCompletedPayment(ctx, reg)
	switch {
	case result.Duplicate:
		h.Logger.Info("API", fmt.Sprintf("StripeWebhook[%s]: duplicate delivery of %s acknowledged", delivery, event.ID))
	case len(result.Failures()) > 0:
		h.Logger.Warn("API", fmt.Sprintf("StripeWebhook[%s]: event %s processed with issues: %s",
			delivery, event.ID, strings.Join(result.Failures(), ", ")))
	default:
		h.Logger.Info("API", fmt.Sprintf("StripeWebhook[%s]: event %s processed, entry %s",
			delivery, event.ID, registration.FormatNumber(result.EntryNumber)))
	}
	h.Logger.LogAPI(r.Method, r.URL.Path, "200", time.Since(start).String())
	h.acknowledge(w)
}

func (h *Handler) acknowledge(w http.ResponseWriter) {
	_ = utils.WriteJSON(w, http.StatusOK, map[string]bool{"received": true})
}

func (h *Handler) CreateCheckoutSession(w http.ResponseWriter, r *http.Request) {
	var req models.CheckoutRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody)).Decode(&req); err != nil {
		h.Logger.Error("API", fmt.Sprintf("CreateCheckoutSession: failed to decode request: %v", err))
		_ = utils.WriteError(w, http.StatusBadRequest, utils.ErrorResponse("Invalid request body", registration.CodeInvalidRequest))
		return
	}

	sessionURL, err := h.Checkout.Create(r.Context(), req)
	if err != nil {
		var verr *registration.ValidationError
		if errors.As(err, &verr) {
			status := http.StatusBadRequest
			if verr.Code == registration.CodePokerRunFull {
				status = http.StatusConflict
			}
			_ = utils.WriteError(w, status, utils.ErrorResponse(verr.Message, verr.Code))
			return
		}
		h.Logger.Error("API", fmt.Sprintf("CreateCheckoutSession: %v", err))
		_ = utils.WriteError(w, http.StatusInternalServerError, utils.ErrorResponse("Failed to create Stripe session", ""))
		return
	}

	_ = utils.WriteJSON(w, http.StatusOK, models.CheckoutResponse{URL: sessionURL})
}

func (h *Handler) CheckPokerRunAvailability(w http.ResponseWriter, r *http.Request) {
	av := h.Availability.Check(r.Context())
	h.Logger.Debug("API", fmt.Sprintf("CheckPokerRunAvailability: %s", av.Message))
	_ = utils.WriteJSON(w, http.StatusOK, av)
}

func (h *Handler) RegenerateDashSheet(w http.ResponseWriter, r *http.Request) {
	var req models.RegenerateRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody)).Decode(&req); err != nil {
		_ = utils.WriteError(w, http.StatusBadRequest, utils.ErrorResponse("Invalid request body", ""))
		return
	}

	if !h.AdminKey.Authorized(r.Header.Get(auth.HeaderAdminKey), req.AdminKey) {
		h.Logger.LogSecurity("ADMIN_KEY", fmt.Sprintf("Rejected dash sheet regeneration from %s", r.RemoteAddr))
		_ = utils.WriteError(w, http.StatusUnauthorized, utils.ErrorResponse("Unauthorized. Admin key required.", ""))
		return
	}

	if missing := req.MissingFields(); len(missing) > 0 {
		_ = utils.WriteError(w, http.StatusBadRequest, utils.ErrorBody{Error: "Missing required fields", Missing: missing})
		return
	}
	if !req.EntryNumber.Positive() {
		_ = utils.WriteError(w, http.StatusBadRequest, utils.ErrorResponse("Invalid entry number. Must be a positive integer.", ""))
		return
	}
	pokerRun := 0
	if req.PokerRunNumber.Set {
		if !req.PokerRunNumber.Positive() {
			_ = utils.WriteError(w, http.StatusBadRequest, utils.ErrorResponse("Invalid Poker Run number. Must be a positive integer or omitted.", ""))
			return
		}
		pokerRun = req.PokerRunNumber.Value
	}

	fields := models.RegistrationFields{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Year:      req.Year,
		Make:      req.Make,
		Model:     req.Model,
		City:      req.City,
		Province:  req.Province,
	}
	summary, err := h.Service.RegenerateDashSheet(r.Context(), fields, req.EntryNumber.Value, pokerRun)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("RegenerateDashSheet: %v", err))
		_ = utils.WriteError(w, http.StatusInternalServerError, utils.ErrorBody{Error: "Failed to regenerate dash sheet", Message: err.Error()})
		return
	}

	_ = utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse(
		fmt.Sprintf("Dash sheet PDF regenerated and sent to %s", summary.Email), summary))
}

type testDashSheetRequest struct {
	Email string `json:"email"`
}

type testDashSheetResponse struct {
	Success     bool   `json:"success"`
	Message     string `json:"message"`
	PDFSize     int    `json:"pdfSize"`
	EntryNumber int    `json:"entryNumber"`
}

func (h *Handler) TestDashSheet(w http.ResponseWriter, r *http.Request) {
	var req testDashSheetRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody)).Decode(&req); err != nil || strings.TrimSpace(req.Email) == "" {
		_ = utils.WriteError(w, http.StatusBadRequest, utils.ErrorResponse("Email address is required", ""))
		return
	}

	size, err := h.Service.SendTestDashSheet(r.Context(), strings.TrimSpace(req.Email))
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("TestDashSheet: %v", err))
		_ = utils.WriteError(w, http.StatusInternalServerError, utils.ErrorBody{Error: "Failed to send test dash sheet", Message: err.Error()})
		return
	}

	_ = utils.WriteJSON(w, http.StatusOK, testDashSheetResponse{
		Success:     true,
		Message:     fmt.Sprintf("Test dash sheet sent to %s", req.Email),
		PDFSize:     size,
		EntryNumber: registration.SampleEntryNumber,
	})
}
