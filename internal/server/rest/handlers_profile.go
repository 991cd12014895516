package rest

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/aavault/aavault/internal/server/audit"
	"github.com/aavault/aavault/internal/server/identities"
	"github.com/aavault/aavault/internal/server/kyc"
)

type ProfileHandler struct {
	identities *identities.Service
	kyc        *kyc.Service
	audit      *audit.Service
}

func NewProfileHandler(identityService *identities.Service, kycService *kyc.Service, auditService *audit.Service) *ProfileHandler {
	return &ProfileHandler{identities: identityService, kyc: kycService, audit: auditService}
}

type profileResponse struct {
	ID          string `json:"id"`
	Phone       string `json:"phone"`
	Email       string `json:"email,omitempty"`
	KycStatus   string `json:"kycStatus"`
	KycLevel    string `json:"kycLevel,omitempty"`
	KycProvider string `json:"kycProvider,omitempty"`
}

func toProfileResponse(i *identities.Identity) profileResponse {
	return profileResponse{
		ID:          i.ID,
		Phone:       i.Phone,
		Email:       i.Email,
		KycStatus:   i.KycStatus,
		KycLevel:    i.KycLevel,
		KycProvider: i.KycProvider,
	}
}

func (h *ProfileHandler) Get(c *fiber.Ctx) error {
	identity, err := h.identities.Get(c.UserContext(), userID(c))
	if err != nil {
		return domainError(err)
	}
	return c.JSON(toProfileResponse(identity))
}

type updateProfileRequest struct {
	Email string `json:"email"`
}

func (h *ProfileHandler) Update(c *fiber.Ctx) error {
	var req updateProfileRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if req.Email == "" {
		return fiber.NewError(http.StatusBadRequest, "email is required")
	}

	identity, err := h.identities.UpdateEmail(c.UserContext(), userID(c), req.Email)
	if err != nil {
		return domainError(err)
	}
	return c.JSON(toProfileResponse(identity))
}

type kycVerifyRequest struct {
	Pan        string `json:"pan"`
	AadhaarRef string `json:"aadhaarRef"`
	AadhaarOTP string `json:"aadhaarOtp"`
	FullName   string `json:"fullName"`
	BirthDate  string `json:"birthDate"`
}

func (h *ProfileHandler) VerifyKyc(c *fiber.Ctx) error {
	var req kycVerifyRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	level, err := h.kyc.Verify(c.UserContext(), userID(c), kyc.Input{
		Pan:        req.Pan,
		AadhaarRef: req.AadhaarRef,
		AadhaarOTP: req.AadhaarOTP,
		FullName:   req.FullName,
		BirthDate:  req.BirthDate,
	})
	if err != nil {
		return domainError(err)
	}

	h.audit.Record(c.UserContext(), userID(c), "kyc.verify", "identity", userID(c))
	return c.JSON(fiber.Map{"kycLevel": level})
}
