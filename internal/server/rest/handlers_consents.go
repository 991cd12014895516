package rest

import (
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/aavault/aavault/internal/server/audit"
	"github.com/aavault/aavault/internal/server/consents"
)

type ConsentHandler struct {
	consents *consents.Service
	audit    *audit.Service
}

func NewConsentHandler(consentService *consents.Service, auditService *audit.Service) *ConsentHandler {
	return &ConsentHandler{consents: consentService, audit: auditService}
}

type createConsentRequest struct {
	VUA           string    `json:"vua"`
	FiTypes       []string  `json:"fiTypes"`
	PurposeCode   string    `json:"purposeCode"`
	PurposeText   string    `json:"purposeText"`
	DataRangeFrom time.Time `json:"dataRangeFrom"`
	DataRangeTo   time.Time `json:"dataRangeTo"`
	DurationDays  int       `json:"durationDays"`
	FetchType     string    `json:"fetchType"`
	ConsentMode   string    `json:"consentMode"`
}

type consentResponse struct {
	ID          string    `json:"id"`
	VUA         string    `json:"vua"`
	FiTypes     []string  `json:"fiTypes"`
	PurposeCode string    `json:"purposeCode"`
	Status      string    `json:"status"`
	ApprovalURL string    `json:"approvalUrl,omitempty"`
	ExpiresAt   time.Time `json:"expiresAt"`
	CreatedAt   time.Time `json:"createdAt"`
}

func toConsentResponse(g *consents.Grant) consentResponse {
	return consentResponse{
		ID:          g.ID,
		VUA:         g.VUA,
		FiTypes:     g.FiTypes,
		PurposeCode: g.PurposeCode,
		Status:      string(g.Status),
		ApprovalURL: g.ApprovalURL,
		ExpiresAt:   g.ExpiresAt,
		CreatedAt:   g.CreatedAt,
	}
}

func (h *ConsentHandler) Create(c *fiber.Ctx) error {
	var req createConsentRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if req.VUA == "" || len(req.FiTypes) == 0 {
		return fiber.NewError(http.StatusBadRequest, "vua and fiTypes are required")
	}

	grant, err := h.consents.Create(c.UserContext(), consents.CreateParams{
		OwnerID:       userID(c),
		VUA:           req.VUA,
		FiTypes:       req.FiTypes,
		PurposeCode:   req.PurposeCode,
		PurposeText:   req.PurposeText,
		DataRangeFrom: req.DataRangeFrom,
		DataRangeTo:   req.DataRangeTo,
		DurationDays:  req.DurationDays,
		FetchType:     req.FetchType,
		ConsentMode:   req.ConsentMode,
	})
	if err != nil {
		return domainError(err)
	}

	h.audit.Record(c.UserContext(), userID(c), "consent.create", "consent", grant.ID)
	return c.Status(http.StatusCreated).JSON(toConsentResponse(grant))
}

func (h *ConsentHandler) List(c *fiber.Ctx) error {
	grants, err := h.consents.List(c.UserContext(), userID(c))
	if err != nil {
		return domainError(err)
	}
	out := make([]consentResponse, 0, len(grants))
	for _, g := range grants {
		out = append(out, toConsentResponse(g))
	}
	return c.JSON(out)
}

func (h *ConsentHandler) Get(c *fiber.Ctx) error {
	grant, err := h.consents.Get(c.UserContext(), userID(c), c.Params("id"))
	if err != nil {
		return domainError(err)
	}
	return c.JSON(toConsentResponse(grant))
}

func (h *ConsentHandler) Revoke(c *fiber.Ctx) error {
	grant, err := h.consents.Revoke(c.UserContext(), userID(c), c.Params("id"))
	if err != nil {
		return domainError(err)
	}

	h.audit.Record(c.UserContext(), userID(c), "consent.revoke", "consent", grant.ID)
	return c.JSON(toConsentResponse(grant))
}
