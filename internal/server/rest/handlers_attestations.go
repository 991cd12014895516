package rest

import (
	"encoding/base64"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/aavault/aavault/internal/server/attestations"
	"github.com/aavault/aavault/internal/server/audit"
)

type AttestationHandler struct {
	attestations *attestations.Service
	audit        *audit.Service
}

func NewAttestationHandler(attestationService *attestations.Service, auditService *audit.Service) *AttestationHandler {
	return &AttestationHandler{attestations: attestationService, audit: auditService}
}

type submitAttestationRequest struct {
	FactType     string            `json:"factType"`
	PublicInputs map[string]string `json:"publicInputs"`
	Proof        string            `json:"proof"` // base64
}

type attestationResponse struct {
	ID              string            `json:"id"`
	FactType        string            `json:"factType"`
	PublicInputs    map[string]string `json:"publicInputs"`
	ContentHash     string            `json:"contentHash"`
	HashAlg         string            `json:"hashAlg"`
	Verified        bool              `json:"verified"`
	Status          string            `json:"status"`
	VerifierVersion string            `json:"verifierVersion"`
	ExpiresAt       time.Time         `json:"expiresAt"`
	CreatedAt       time.Time         `json:"createdAt"`
}

func toAttestationResponse(a *attestations.Attestation) attestationResponse {
	return attestationResponse{
		ID:              a.ID,
		FactType:        a.FactType,
		PublicInputs:    a.PublicInputs,
		ContentHash:     a.ContentHash,
		HashAlg:         a.HashAlg,
		Verified:        a.Verified,
		Status:          string(a.Status),
		VerifierVersion: a.VerifierVersion,
		ExpiresAt:       a.ExpiresAt,
		CreatedAt:       a.CreatedAt,
	}
}

func decodeProof(s string) ([]byte, error) {
	return base64.StdEncoding.DecodeString(s)
}

func (h *AttestationHandler) Submit(c *fiber.Ctx) error {
	var req submitAttestationRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	proof, err := decodeProof(req.Proof)
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, "proof must be base64")
	}

	attestation, err := h.attestations.Submit(c.UserContext(), userID(c), req.FactType, req.PublicInputs, proof)
	if err != nil {
		return domainError(err)
	}

	h.audit.Record(c.UserContext(), userID(c), "attestation.submit", "attestation", attestation.ID)
	return c.Status(http.StatusCreated).JSON(toAttestationResponse(attestation))
}

func (h *AttestationHandler) List(c *fiber.Ctx) error {
	list, err := h.attestations.List(c.UserContext(), userID(c))
	if err != nil {
		return domainError(err)
	}
	out := make([]attestationResponse, 0, len(list))
	for _, a := range list {
		out = append(out, toAttestationResponse(a))
	}
	return c.JSON(out)
}

func (h *AttestationHandler) Get(c *fiber.Ctx) error {
	attestation, err := h.attestations.Get(c.UserContext(), userID(c), c.Params("id"))
	if err != nil {
		return domainError(err)
	}
	return c.JSON(toAttestationResponse(attestation))
}

// VerifyPublic re-runs verification for anyone, without authentication and
// without persisting anything.
func (h *AttestationHandler) VerifyPublic(c *fiber.Ctx) error {
	var req submitAttestationRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	proof, err := decodeProof(req.Proof)
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, "proof must be base64")
	}

	valid, version, err := h.attestations.VerifyPublic(c.UserContext(), req.FactType, proof, req.PublicInputs)
	if err != nil {
		return domainError(err)
	}
	return c.JSON(fiber.Map{
		"valid":           valid,
		"verifierVersion": version,
	})
}
