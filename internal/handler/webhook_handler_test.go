package handler

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/chapelgive/donation-engine/internal/domain"
	"github.com/chapelgive/donation-engine/internal/paystack"
	"github.com/chapelgive/donation-engine/internal/service"
	"github.com/chapelgive/donation-engine/internal/transport"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

const testWebhookSecret = "whsec_test_secret"

type stubVerifier struct {
	ok bool
}

func (v stubVerifier) VerifySignature(rawBody []byte, signature string) bool {
	return v.ok
}

func signBody(t *testing.T, body []byte) string {
	t.Helper()

	mac := hmac.New(sha512.New, []byte(testWebhookSecret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func newWebhookTestApp(t *testing.T, svc DonationService, verifier SignatureVerifier) *fiber.App {
	t.Helper()

	app := fiber.New(fiber.Config{
		ErrorHandler: transport.ErrorHandler(zap.NewNop()),
	})

	if err := RegisterWebhookRoutes(app, svc, verifier, zap.NewNop()); err != nil {
		t.Fatalf("RegisterWebhookRoutes() error = %v", err)
	}

	return app
}

func postWebhook(t *testing.T, app *fiber.App, body []byte, signature string) *http.Response {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/v1/webhooks/paystack", bytes.NewReader(body))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	if signature != "" {
		req.Header.Set(paystackSignatureHeader, signature)
	}

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}
	return resp
}

func TestWebhookRejectsBadSignatureBeforeReconcile(t *testing.T) {
	t.Parallel()

	svc := &stubDonationService{
		reconcileFn: func(ctx context.Context, reference string, data service.VerificationData) (domain.DonationStatus, error) {
			t.Fatal("Reconcile must not run for a rejected signature")
			return "", nil
		},
	}

	app := newWebhookTestApp(t, svc, stubVerifier{ok: false})

	body := []byte(`{"event":"charge.success","data":{"reference":"don-1","amount":5000,"status":"success"}}`)
	resp := postWebhook(t, app, body, "forged-signature")
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("status = %d, want 400 for bad signature", resp.StatusCode)
	}

	resp = postWebhook(t, app, body, "")
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("status = %d, want 400 for missing signature", resp.StatusCode)
	}
}

func TestWebhookVerifiesRealSignatureOverRawBody(t *testing.T) {
	t.Parallel()

	client, err := paystack.NewClient("", "sk_test_key", testWebhookSecret)
	if err != nil {
		t.Fatalf("paystack.NewClient() error = %v", err)
	}

	reconciled := false
	svc := &stubDonationService{
		reconcileFn: func(ctx context.Context, reference string, data service.VerificationData) (domain.DonationStatus, error) {
			reconciled = true
			return domain.StatusSuccess, nil
		},
	}

	app := newWebhookTestApp(t, svc, client)

	body := []byte(`{"event":"charge.success","data":{"id":9001,"reference":"don-1","amount":5000,"status":"success"}}`)
	resp := postWebhook(t, app, body, signBody(t, body))
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want 200 for valid signature", resp.StatusCode)
	}
	if !reconciled {
		t.Fatal("Reconcile should run for a valid signature")
	}

	// Flipping one body byte invalidates the signature.
	tampered := bytes.Replace(body, []byte(`"amount":5000`), []byte(`"amount":9999`), 1)
	resp = postWebhook(t, app, tampered, signBody(t, body))
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("status = %d, want 400 for tampered body", resp.StatusCode)
	}
}

func TestWebhookIgnoresNonChargeEvents(t *testing.T) {
	t.Parallel()

	svc := &stubDonationService{
		reconcileFn: func(ctx context.Context, reference string, data service.VerificationData) (domain.DonationStatus, error) {
			t.Fatal("Reconcile must not run for ignored events")
			return "", nil
		},
	}

	app := newWebhookTestApp(t, svc, stubVerifier{ok: true})

	body := []byte(`{"event":"subscription.create","data":{"reference":"don-1"}}`)
	resp := postWebhook(t, app, body, "any")
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want 200 ack for ignored event", resp.StatusCode)
	}
}

func TestWebhookAcksUnknownReference(t *testing.T) {
	t.Parallel()

	svc := &stubDonationService{
		reconcileFn: func(ctx context.Context, reference string, data service.VerificationData) (domain.DonationStatus, error) {
			return "", domain.ErrNotFound
		},
	}

	app := newWebhookTestApp(t, svc, stubVerifier{ok: true})

	body := []byte(`{"event":"charge.success","data":{"reference":"don-unknown","amount":5000,"status":"success"}}`)
	resp := postWebhook(t, app, body, "any")
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want 200 so the provider stops redelivering", resp.StatusCode)
	}
}

func TestWebhookInternalErrorReturns500(t *testing.T) {
	t.Parallel()

	svc := &stubDonationService{
		reconcileFn: func(ctx context.Context, reference string, data service.VerificationData) (domain.DonationStatus, error) {
			return "", errors.New("database unavailable")
		},
	}

	app := newWebhookTestApp(t, svc, stubVerifier{ok: true})

	body := []byte(`{"event":"charge.success","data":{"reference":"don-1","amount":5000,"status":"success"}}`)
	resp := postWebhook(t, app, body, "any")
	if resp.StatusCode != fiber.StatusInternalServerError {
		t.Fatalf("status = %d, want 500 so the provider redelivers", resp.StatusCode)
	}
}

func TestWebhookPassesProviderDataToReconcile(t *testing.T) {
	t.Parallel()

	var got service.VerificationData
	svc := &stubDonationService{
		reconcileFn: func(ctx context.Context, reference string, data service.VerificationData) (domain.DonationStatus, error) {
			if reference != "don-1" {
				t.Fatalf("reference = %q, want don-1", reference)
			}
			got = data
			return domain.StatusSuccess, nil
		},
	}

	app := newWebhookTestApp(t, svc, stubVerifier{ok: true})

	body := []byte(`{"event":"charge.success","data":{"id":9001,"reference":"don-1","amount":5000,"status":"success","gateway_response":"Successful"}}`)
	resp := postWebhook(t, app, body, "any")
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	if got.ProviderTxnID != "9001" {
		t.Fatalf("provider txn id = %q, want 9001", got.ProviderTxnID)
	}
	if got.Amount != 5000 {
		t.Fatalf("amount = %d, want 5000 minor units", got.Amount)
	}
	if got.GatewayResponse != "Successful" {
		t.Fatalf("gateway response = %q", got.GatewayResponse)
	}
	if string(got.Raw) != string(body) {
		t.Fatal("raw webhook payload should be carried into the audit trail")
	}

	// No reference means no retry target; the event is acked, not retried.
	// The stub above fails the test if reconcile is reached without don-1.
	body = []byte(`{"event":"charge.success","data":{"amount":5000,"status":"success"}}`)
	resp = postWebhook(t, app, body, "any")
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want 200 for missing reference", resp.StatusCode)
	}
}
