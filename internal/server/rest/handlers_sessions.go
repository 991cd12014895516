package rest

import (
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/aavault/aavault/internal/server/audit"
	"github.com/aavault/aavault/internal/server/sessions"
)

type SessionHandler struct {
	sessions *sessions.Service
	audit    *audit.Service
}

func NewSessionHandler(sessionService *sessions.Service, auditService *audit.Service) *SessionHandler {
	return &SessionHandler{sessions: sessionService, audit: auditService}
}

type sessionResponse struct {
	ID          string     `json:"id"`
	ConsentID   string     `json:"consentId"`
	Status      string     `json:"status"`
	ContentHash string     `json:"contentHash,omitempty"`
	HashAlg     string     `json:"hashAlg,omitempty"`
	FetchedAt   *time.Time `json:"fetchedAt,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
}

func toSessionResponse(s *sessions.Session) sessionResponse {
	return sessionResponse{
		ID:          s.ID,
		ConsentID:   s.ConsentID,
		Status:      string(s.Status),
		ContentHash: s.ContentHash,
		HashAlg:     s.HashAlg,
		FetchedAt:   s.FetchedAt,
		CreatedAt:   s.CreatedAt,
	}
}

func (h *SessionHandler) Create(c *fiber.Ctx) error {
	session, err := h.sessions.Create(c.UserContext(), userID(c), c.Params("id"))
	if err != nil {
		return domainError(err)
	}

	h.audit.Record(c.UserContext(), userID(c), "session.create", "session", session.ID)
	return c.Status(http.StatusCreated).JSON(toSessionResponse(session))
}

func (h *SessionHandler) ListByConsent(c *fiber.Ctx) error {
	list, err := h.sessions.ListByConsent(c.UserContext(), userID(c), c.Params("id"))
	if err != nil {
		return domainError(err)
	}
	out := make([]sessionResponse, 0, len(list))
	for _, s := range list {
		out = append(out, toSessionResponse(s))
	}
	return c.JSON(out)
}

func (h *SessionHandler) Get(c *fiber.Ctx) error {
	session, err := h.sessions.Get(c.UserContext(), userID(c), c.Params("id"))
	if err != nil {
		return domainError(err)
	}
	return c.JSON(toSessionResponse(session))
}

// Data streams the decrypted payload back to the owner of a COMPLETED
// session.
func (h *SessionHandler) Data(c *fiber.Ctx) error {
	plaintext, session, err := h.sessions.Fetch(c.UserContext(), userID(c), c.Params("id"))
	if err != nil {
		return domainError(err)
	}

	h.audit.Record(c.UserContext(), userID(c), "session.fetch", "session", session.ID)

	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	return c.Send(plaintext)
}
