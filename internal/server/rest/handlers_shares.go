package rest

import (
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/aavault/aavault/internal/server/audit"
	"github.com/aavault/aavault/internal/server/shares"
)

type ShareHandler struct {
	shares *shares.Service
	audit  *audit.Service
}

func NewShareHandler(shareService *shares.Service, auditService *audit.Service) *ShareHandler {
	return &ShareHandler{shares: shareService, audit: auditService}
}

type createShareRequest struct {
	AttestationID string `json:"attestationId"`
	RecipientID   string `json:"recipientId"`
	Purpose       string `json:"purpose"`
	TTLHours      int    `json:"ttlHours"`
	MaxAccess     int    `json:"maxAccess"`
}

type shareResponse struct {
	ID            string     `json:"id"`
	AttestationID string     `json:"attestationId"`
	RecipientID   string     `json:"recipientId"`
	Purpose       string     `json:"purpose"`
	Token         string     `json:"token,omitempty"`
	ExpiresAt     time.Time  `json:"expiresAt"`
	MaxAccess     int        `json:"maxAccess"`
	AccessCount   int        `json:"accessCount"`
	RevokedAt     *time.Time `json:"revokedAt,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
}

func toShareResponse(s *shares.Share, includeToken bool) shareResponse {
	resp := shareResponse{
		ID:            s.ID,
		AttestationID: s.AttestationID,
		RecipientID:   s.RecipientID,
		Purpose:       s.Purpose,
		ExpiresAt:     s.ExpiresAt,
		MaxAccess:     s.MaxAccess,
		AccessCount:   s.AccessCount,
		RevokedAt:     s.RevokedAt,
		CreatedAt:     s.CreatedAt,
	}
	if includeToken {
		resp.Token = s.Token
	}
	return resp
}

func (h *ShareHandler) Create(c *fiber.Ctx) error {
	var req createShareRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if req.AttestationID == "" {
		return fiber.NewError(http.StatusBadRequest, "attestationId is required")
	}

	share, err := h.shares.Create(c.UserContext(), shares.CreateParams{
		OwnerID:       userID(c),
		AttestationID: req.AttestationID,
		RecipientID:   req.RecipientID,
		Purpose:       req.Purpose,
		TTL:           time.Duration(req.TTLHours) * time.Hour,
		MaxAccess:     req.MaxAccess,
	})
	if err != nil {
		return domainError(err)
	}

	h.audit.Record(c.UserContext(), userID(c), "share.create", "share", share.ID)
	// the token is shown exactly once, on creation
	return c.Status(http.StatusCreated).JSON(toShareResponse(share, true))
}

func (h *ShareHandler) List(c *fiber.Ctx) error {
	list, err := h.shares.List(c.UserContext(), userID(c))
	if err != nil {
		return domainError(err)
	}
	out := make([]shareResponse, 0, len(list))
	for _, s := range list {
		out = append(out, toShareResponse(s, false))
	}
	return c.JSON(out)
}

func (h *ShareHandler) Revoke(c *fiber.Ctx) error {
	share, err := h.shares.Revoke(c.UserContext(), userID(c), c.Params("id"))
	if err != nil {
		return domainError(err)
	}

	h.audit.Record(c.UserContext(), userID(c), "share.revoke", "share", share.ID)
	return c.JSON(toShareResponse(share, false))
}

// Redeem is the unauthenticated third-party entry point: a valid token
// returns the attestation's public metadata and the remaining budget.
func (h *ShareHandler) Redeem(c *fiber.Ctx) error {
	token := c.Params("token")

	redemption, err := h.shares.Redeem(c.UserContext(), token)
	if err != nil {
		return domainError(err)
	}

	prefix := token
	if len(prefix) > 8 {
		prefix = prefix[:8]
	}
	h.audit.Record(c.UserContext(), "anonymous", "share.redeem", "share-token", prefix)
	return c.JSON(redemption)
}
