package rest

import (
	"crypto/rsa"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/aavault/aavault/internal/jws"
	"github.com/aavault/aavault/internal/logging"
	"github.com/aavault/aavault/internal/server/audit"
	"github.com/aavault/aavault/internal/server/config"
	"github.com/aavault/aavault/internal/server/consents"
	"github.com/aavault/aavault/internal/server/sessions"
)

const signatureHeader = "x-jws-signature"

// WebhookHandler receives aggregator status pushes. The detached signature
// over the raw body is the sole gate for trusting them.
type WebhookHandler struct {
	consents      *consents.Service
	sessions      *sessions.Service
	audit         *audit.Service
	aggregatorKey *rsa.PublicKey
	mode          config.SignatureMode
	logger        logging.Logger
}

func NewWebhookHandler(consentService *consents.Service, sessionService *sessions.Service,
	auditService *audit.Service, aggregatorKey *rsa.PublicKey, mode config.SignatureMode,
	logger logging.Logger) *WebhookHandler {
	return &WebhookHandler{
		consents:      consentService,
		sessions:      sessionService,
		audit:         auditService,
		aggregatorKey: aggregatorKey,
		mode:          mode,
		logger:        logger.With("module", "webhooks"),
	}
}

type consentStatusNotification struct {
	ConsentID     string `json:"consentId"`
	ConsentHandle string `json:"consentHandle"`
	ConsentStatus string `json:"consentStatus"`
}

type fiStatusNotification struct {
	SessionID     string `json:"sessionId"`
	SessionStatus string `json:"sessionStatus"`
}

type notificationBody struct {
	ConsentStatusNotification *consentStatusNotification `json:"ConsentStatusNotification"`
	FIStatusNotification      *fiStatusNotification      `json:"FIStatusNotification"`
}

// checkSignature verifies the detached signature over the exact raw body.
// In disabled_with_audit mode a missing or bad signature is let through,
// but every such pass is logged and audited.
func (h *WebhookHandler) checkSignature(c *fiber.Ctx) error {
	signature := c.Get(signatureHeader)
	valid := signature != "" && jws.Verify(signature, c.Body(), h.aggregatorKey)
	if valid {
		return nil
	}

	if h.mode == config.SignatureDisabledWithAudit {
		h.logger.Warn(c.UserContext(), "webhook accepted without valid signature",
			"path", c.Path(), "signaturePresent", signature != "")
		h.audit.Record(c.UserContext(), "aggregator", "webhook.unverified", "webhook", c.Path())
		return nil
	}
	return fiber.NewError(http.StatusUnauthorized, "invalid webhook signature")
}

// Notify handles both notification shapes the aggregator sends.
func (h *WebhookHandler) Notify(c *fiber.Ctx) error {
	if err := h.checkSignature(c); err != nil {
		return err
	}

	var body notificationBody
	if err := c.BodyParser(&body); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	switch {
	case body.ConsentStatusNotification != nil:
		n := body.ConsentStatusNotification
		_, err := h.consents.HandleNotification(c.UserContext(),
			n.ConsentID, n.ConsentHandle, consents.Status(n.ConsentStatus))
		if err != nil {
			return domainError(err)
		}
	case body.FIStatusNotification != nil:
		n := body.FIStatusNotification
		_, err := h.sessions.HandleNotification(c.UserContext(), n.SessionID, n.SessionStatus)
		if err != nil {
			return domainError(err)
		}
	default:
		return fiber.NewError(http.StatusBadRequest, "unrecognized notification")
	}

	return c.JSON(fiber.Map{"status": "ok"})
}
