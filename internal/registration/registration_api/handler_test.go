package registration_api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"ms-registration/internal/auth"
	"ms-registration/internal/logger"
	"ms-registration/internal/models"
	"ms-registration/internal/payment"
	"ms-registration/internal/registration"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v82/webhook"
)

const testSecret = "whsec_test_secret"

type mockProcessor struct {
	mock.Mock
}

func (m *mockProcessor) ProcessCompletedPayment(ctx context.Context, reg models.Registration) registration.ProcessResult {
	args := m.Called(ctx, reg)
	return args.Get(0).(registration.ProcessResult)
}

func (m *mockProcessor) RegenerateDashSheet(ctx context.Context, f models.RegistrationFields, entry, pokerRun int) (models.RegenerateSummary, error) {
	args := m.Called(ctx, f, entry, pokerRun)
	return args.Get(0).(models.RegenerateSummary), args.Error(1)
}

func (m *mockProcessor) SendTestDashSheet(ctx context.Context, to string) (int, error) {
	args := m.Called(ctx, to)
	return args.Int(0), args.Error(1)
}

type mockCheckout struct {
	mock.Mock
}

func (m *mockCheckout) Create(ctx context.Context, req models.CheckoutRequest) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

type fixedAvailability models.Availability

func (f fixedAvailability) Check(context.Context) models.Availability {
	return models.Availability(f)
}

func newTestHandler(adminKey string) (*Handler, *mockProcessor, *mockCheckout) {
	log := logger.NewTestLogger(io.Discard)
	proc := &mockProcessor{}
	checkout := &mockCheckout{}
	return &Handler{
		Service:  proc,
		Checkout: checkout,
		Availability: fixedAvailability{
			Available: true, CurrentCount: 97, MaxLimit: 100, Remaining: 3,
			Message: "3 Poker Run spots remaining",
		},
		Verifier: payment.NewWebhookVerifier(testSecret, log),
		AdminKey: auth.AdminKey{Key: adminKey},
		Logger:   log,
	}, proc, checkout
}

func serve(h *Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, req)
	return rec
}

func eventPayload(eventType string) string {
	return `{
  "id": "evt_1",
  "object": "event",
  "type": "` + eventType + `",
  "data": {"object": {
    "id": "cs_1", "object": "checkout.session", "amount_total": 3000, "payment_intent": "pi_1",
    "metadata": {"firstName": "jane", "lastName": "smith", "email": "jane@example.com",
      "year": "1957", "make": "ford", "model": "thunderbird", "pokerRun": "false"}
  }}
}`
}

func signedRequest(payload string) *http.Request {
	sp := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{Payload: []byte(payload), Secret: testSecret})
	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(payload))
	req.Header.Set("Stripe-Signature", sp.Header)
	return req
}

func TestWebhookProcessesCompletedCheckout(t *testing.T) {
	h, proc, _ := newTestHandler("")
	proc.On("ProcessCompletedPayment", mock.Anything, mock.MatchedBy(func(reg models.Registration) bool {
		return reg.EventID == "evt_1" && reg.PaymentIntentID == "pi_1" && reg.Fields.FirstName == "jane"
	})).Return(registration.ProcessResult{EntryNumber: 5})

	rec := serve(h, signedRequest(eventPayload("checkout.session.completed")))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"received":true}`, rec.Body.String())
	proc.AssertExpectations(t)
}

func TestWebhookAcknowledgesEvenWithFailures(t *testing.T) {
	h, proc, _ := newTestHandler("")
	proc.On("ProcessCompletedPayment", mock.Anything, mock.Anything).Return(registration.ProcessResult{
		Append:    registration.Outcome{Kind: registration.KindRemoteServiceFailure, Err: errors.New("503")},
		DashSheet: registration.Outcome{Kind: registration.KindConfigurationMissing},
	})

	rec := serve(h, signedRequest(eventPayload("checkout.session.completed")))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestWebhookIgnoresOtherEvents(t *testing.T) {
	h, proc, _ := newTestHandler("")

	rec := serve(h, signedRequest(eventPayload("payment_intent.created")))

	assert.Equal(t, http.StatusOK, rec.Code)
	proc.AssertNotCalled(t, "ProcessCompletedPayment", mock.Anything, mock.Anything)
}

func TestWebhookRejectsBadSignature(t *testing.T) {
	h, proc, _ := newTestHandler("")
	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(eventPayload("checkout.session.completed")))
	req.Header.Set("Stripe-Signature", "t=1,v1=deadbeef")

	rec := serve(h, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Webhook Error")
	proc.AssertNotCalled(t, "ProcessCompletedPayment", mock.Anything, mock.Anything)
}

func TestWebhookRejectsMissingSignature(t *testing.T) {
	h, _, _ := newTestHandler("")
	rec := serve(h, httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader("{}")))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWebhookMethodNotAllowed(t *testing.T) {
	h, _, _ := newTestHandler("")
	rec := serve(h, httptest.NewRequest(http.MethodGet, "/webhook", nil))

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.JSONEq(t, `{"error":"Method not allowed"}`, rec.Body.String())
}

func checkoutBody() string {
	return `{"firstName":"Jane","lastName":"Smith","email":"jane@example.com","year":"1957",
"make":"Ford","model":"Thunderbird","pokerRun":true,"origin":"https://example.com"}`
}

func TestCreateCheckoutSession(t *testing.T) {
	h, _, checkout := newTestHandler("")
	checkout.On("Create", mock.Anything, mock.MatchedBy(func(req models.CheckoutRequest) bool {
		return req.PokerRun && req.Email == "jane@example.com"
	})).Return("https://checkout.stripe.test/s", nil)

	rec := serve(h, httptest.NewRequest(http.MethodPost, "/create-checkout-session", strings.NewReader(checkoutBody())))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"url":"https://checkout.stripe.test/s"}`, rec.Body.String())
}

func TestCreateCheckoutSessionErrors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"poker run full", registration.ErrPokerRunFull, http.StatusConflict, registration.CodePokerRunFull},
		{"invalid", &registration.ValidationError{Code: registration.CodeInvalidRequest, Message: "Invalid or missing fields: email"},
			http.StatusBadRequest, registration.CodeInvalidRequest},
		{"provider", errors.New("stripe down"), http.StatusInternalServerError, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, _, checkout := newTestHandler("")
			checkout.On("Create", mock.Anything, mock.Anything).Return("", tt.err)

			rec := serve(h, httptest.NewRequest(http.MethodPost, "/create-checkout-session", strings.NewReader(checkoutBody())))
			assert.Equal(t, tt.status, rec.Code)

			var body map[string]string
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.code, body["code"])
			assert.NotEmpty(t, body["error"])
		})
	}
}

func TestCreateCheckoutSessionBadJSON(t *testing.T) {
	h, _, checkout := newTestHandler("")
	rec := serve(h, httptest.NewRequest(http.MethodPost, "/create-checkout-session", strings.NewReader("{")))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	checkout.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestCheckPokerRunAvailability(t *testing.T) {
	h, _, _ := newTestHandler("")
	rec := serve(h, httptest.NewRequest(http.MethodGet, "/check-poker-run-availability", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"available":true,"currentCount":97,"maxLimit":100,"remaining":3,"message":"3 Poker Run spots remaining"}`, rec.Body.String())
}

func regenerateBody(extra string) string {
	return `{"firstName":"jane","lastName":"smith","email":"jane@example.com","year":"1957",
"make":"ford","model":"thunderbird","city":"nanaimo","province":"bc"` + extra + `}`
}

func TestRegenerateDashSheet(t *testing.T) {
	h, proc, _ := newTestHandler("s3cret")
	proc.On("RegenerateDashSheet", mock.Anything, mock.Anything, 12, 4).Return(models.RegenerateSummary{
		Recipient: "Jane Smith", Email: "jane@example.com", EntryNumber: "012", PDFSize: 100,
	}, nil)

	req := httptest.NewRequest(http.MethodPost, "/regenerate-dashsheet",
		strings.NewReader(regenerateBody(`,"entryNumber":"12","pokerRunNumber":4,"adminKey":"s3cret"`)))
	rec := serve(h, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Success bool                     `json:"success"`
		Message string                   `json:"message"`
		Data    models.RegenerateSummary `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.Success)
	assert.Equal(t, "Dash sheet PDF regenerated and sent to jane@example.com", body.Message)
	assert.Equal(t, "012", body.Data.EntryNumber)
	proc.AssertExpectations(t)
}

func TestRegenerateDashSheetValidation(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		header string
		status int
		want   string
	}{
		{"unauthorized", regenerateBody(`,"entryNumber":1`), "", http.StatusUnauthorized, "Unauthorized. Admin key required."},
		{"wrong key", regenerateBody(`,"entryNumber":1`), "nope", http.StatusUnauthorized, "Unauthorized. Admin key required."},
		{"missing", `{"firstName":"jane"}`, "s3cret", http.StatusBadRequest, "Missing required fields"},
		{"bad entry", regenerateBody(`,"entryNumber":"abc"`), "s3cret", http.StatusBadRequest, "Invalid entry number. Must be a positive integer."},
		{"negative entry", regenerateBody(`,"entryNumber":-3`), "s3cret", http.StatusBadRequest, "Invalid entry number. Must be a positive integer."},
		{"bad poker run", regenerateBody(`,"entryNumber":1,"pokerRunNumber":"x"`), "s3cret", http.StatusBadRequest,
			"Invalid Poker Run number. Must be a positive integer or omitted."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, proc, _ := newTestHandler("s3cret")
			req := httptest.NewRequest(http.MethodPost, "/regenerate-dashsheet", strings.NewReader(tt.body))
			if tt.header != "" {
				req.Header.Set(auth.HeaderAdminKey, tt.header)
			}
			rec := serve(h, req)

			assert.Equal(t, tt.status, rec.Code)
			var body map[string]any
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.want, body["error"])
			proc.AssertNotCalled(t, "RegenerateDashSheet", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestRegenerateMissingFieldsListed(t *testing.T) {
	h, _, _ := newTestHandler("")
	rec := serve(h, httptest.NewRequest(http.MethodPost, "/regenerate-dashsheet", strings.NewReader(`{"firstName":"jane"}`)))

	var body struct {
		Missing []string `json:"missingFields"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Contains(t, body.Missing, "lastName")
	assert.Contains(t, body.Missing, "entryNumber")
	assert.NotContains(t, body.Missing, "firstName")
}

func TestRegenerateFailure(t *testing.T) {
	h, proc, _ := newTestHandler("")
	proc.On("RegenerateDashSheet", mock.Anything, mock.Anything, 1, 0).Return(models.RegenerateSummary{}, errors.New("smtp down"))

	rec := serve(h, httptest.NewRequest(http.MethodPost, "/regenerate-dashsheet", strings.NewReader(regenerateBody(`,"entryNumber":1`))))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "smtp down")
}

func TestTestDashSheet(t *testing.T) {
	h, proc, _ := newTestHandler("")
	proc.On("SendTestDashSheet", mock.Anything, "ops@example.com").Return(2048, nil)

	rec := serve(h, httptest.NewRequest(http.MethodPost, "/test-dashsheet", strings.NewReader(`{"email":"ops@example.com"}`)))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true,"message":"Test dash sheet sent to ops@example.com","pdfSize":2048,"entryNumber":42}`, rec.Body.String())
}

func TestTestDashSheetRequiresEmail(t *testing.T) {
	h, _, _ := newTestHandler("")
	rec := serve(h, httptest.NewRequest(http.MethodPost, "/test-dashsheet", strings.NewReader(`{}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTestDashSheetRequiresAdminKeyWhenSet(t *testing.T) {
	h, proc, _ := newTestHandler("s3cret")
	rec := serve(h, httptest.NewRequest(http.MethodPost, "/test-dashsheet", strings.NewReader(`{"email":"ops@example.com"}`)))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	proc.AssertNotCalled(t, "SendTestDashSheet", mock.Anything, mock.Anything)
}
