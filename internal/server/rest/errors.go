package rest

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/aavault/aavault/internal/common"
)

// statusFromError maps the domain sentinel errors onto HTTP statuses. The
// REST layer never leaks internal error text for 5xx responses.
func statusFromError(err error) int {
	switch {
	case errors.Is(err, common.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, common.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, common.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, common.ErrUnauthorized),
		errors.Is(err, common.ErrInvalidToken),
		errors.Is(err, common.ErrTokenExpired):
		return http.StatusUnauthorized
	case errors.Is(err, common.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, common.ErrRetryable):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func domainError(err error) error {
	status := statusFromError(err)
	if status == http.StatusInternalServerError {
		return fiber.NewError(status, "internal error")
	}
	return fiber.NewError(status, err.Error())
}
