package rest

import (
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/aavault/aavault/internal/server/auth"
	"github.com/aavault/aavault/internal/server/identities"
	"github.com/aavault/aavault/internal/server/otp"
)

// AuthHandler implements the OTP login flow: request a code, verify it,
// receive a bearer token.
type AuthHandler struct {
	otp        *otp.Service
	identities *identities.Service
	secretKey  []byte
	validity   time.Duration
}

func NewAuthHandler(otpService *otp.Service, identityService *identities.Service, secretKey []byte, validity time.Duration) *AuthHandler {
	return &AuthHandler{
		otp:        otpService,
		identities: identityService,
		secretKey:  secretKey,
		validity:   validity,
	}
}

type otpRequest struct {
	Phone string `json:"phone"`
}

type otpVerifyRequest struct {
	Phone string `json:"phone"`
	Code  string `json:"code"`
}

func (h *AuthHandler) RequestOTP(c *fiber.Ctx) error {
	var req otpRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	phone := strings.TrimSpace(req.Phone)
	if phone == "" {
		return fiber.NewError(http.StatusBadRequest, "phone is required")
	}

	code, err := h.otp.Generate(c.UserContext(), phone)
	if err != nil {
		return domainError(err)
	}

	resp := fiber.Map{"status": "sent"}
	if code != "" {
		// sandbox mode only; impossible to reach in production config
		resp["code"] = code
	}
	return c.Status(http.StatusAccepted).JSON(resp)
}

func (h *AuthHandler) VerifyOTP(c *fiber.Ctx) error {
	var req otpVerifyRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	ok, err := h.otp.Verify(c.UserContext(), strings.TrimSpace(req.Phone), strings.TrimSpace(req.Code))
	if err != nil {
		return domainError(err)
	}
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, "invalid or expired code")
	}

	identity, err := h.identities.FindOrCreateByPhone(c.UserContext(), strings.TrimSpace(req.Phone))
	if err != nil {
		return domainError(err)
	}

	token, err := auth.GenerateToken(identity.ID, identity.Phone, h.secretKey, h.validity)
	if err != nil {
		return domainError(err)
	}

	return c.JSON(fiber.Map{
		"accessToken": token,
		"userId":      identity.ID,
	})
}
