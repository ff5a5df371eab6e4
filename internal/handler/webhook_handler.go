package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/chapelgive/donation-engine/internal/domain"
	"github.com/chapelgive/donation-engine/internal/paystack"
	"github.com/chapelgive/donation-engine/internal/service"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

const paystackSignatureHeader = "x-paystack-signature"

// SignatureVerifier checks the provider HMAC over the exact raw request body.
type SignatureVerifier interface {
	VerifySignature(rawBody []byte, signature string) bool
}

type WebhookHandler struct {
	service  DonationService
	verifier SignatureVerifier
	logger   *zap.Logger
}

func NewWebhookHandler(service DonationService, verifier SignatureVerifier, logger *zap.Logger) (*WebhookHandler, error) {
	if service == nil {
		return nil, fmt.Errorf("donation service is required")
	}
	if verifier == nil {
		return nil, fmt.Errorf("signature verifier is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &WebhookHandler{
		service:  service,
		verifier: verifier,
		logger:   logger,
	}, nil
}

func RegisterWebhookRoutes(router fiber.Router, service DonationService, verifier SignatureVerifier, logger *zap.Logger) error {
	h, err := NewWebhookHandler(service, verifier, logger)
	if err != nil {
		return err
	}

	v1 := router.Group("/v1")
	v1.Post("/webhooks/paystack", h.HandlePaystack)

	return nil
}

type paystackEvent struct {
	Event string                   `json:"event"`
	Data  paystack.TransactionData `json:"data"`
}

// HandlePaystack processes a provider push. The signature is checked against
// the untouched raw body before anything is parsed. Unknown references ack
// with 200 so the provider stops redelivering; internal failures return 500
// so it retries.
func (h *WebhookHandler) HandlePaystack(c *fiber.Ctx) error {
	// c.Body() is reused by fiber after the handler returns; copy before the
	// bytes travel into the reconciliation audit trail.
	raw := append([]byte(nil), c.Body()...)

	signature := strings.TrimSpace(c.Get(paystackSignatureHeader))
	if !h.verifier.VerifySignature(raw, signature) {
		h.logger.Warn("webhook signature rejected",
			zap.Int("bodyBytes", len(raw)),
			zap.Bool("signaturePresent", signature != ""),
		)
		return fiber.NewError(fiber.StatusBadRequest, "invalid signature")
	}

	var event paystackEvent
	if err := json.Unmarshal(raw, &event); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid payload")
	}

	switch event.Event {
	case "charge.success", "transaction.success":
	default:
		h.logger.Info("ignoring webhook event", zap.String("event", event.Event))
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "ok"})
	}

	reference := strings.TrimSpace(event.Data.Reference)
	if reference == "" {
		// Authenticated but unprocessable; a 400 would only make the
		// provider redeliver an event with no retry target.
		h.logger.Warn("webhook event without transaction reference",
			zap.String("event", event.Event),
		)
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "ok"})
	}

	status, err := h.service.Reconcile(c.Context(), reference, service.VerificationData{
		Provider:        domain.ProviderPaystack,
		ProviderRef:     reference,
		ProviderTxnID:   fmt.Sprintf("%d", event.Data.ID),
		Amount:          event.Data.Amount,
		Status:          event.Data.Status,
		GatewayResponse: event.Data.GatewayResponse,
		Raw:             json.RawMessage(raw),
	})
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			h.logger.Warn("webhook for unknown donation reference",
				zap.String("reference", reference),
				zap.String("event", event.Event),
			)
			return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "ok"})
		}
		// A 500 makes the provider redeliver; reconciliation is idempotent.
		return err
	}

	h.logger.Info("webhook reconciled",
		zap.String("reference", reference),
		zap.String("status", status.String()),
	)
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "ok"})
}
