package middleware

import (
	"flashgen/internal/domain"
	"flashgen/internal/dto"
	"flashgen/internal/validation"

	"github.com/gofiber/fiber/v2"
)

// ValidatedRequestKey is the Locals key holding the *dto.GenerateRequest
// accepted by ValidateGenerateRequest.
const ValidatedRequestKey = "validated_generate_request"

// ValidationMiddleware provides request validation middleware
type ValidationMiddleware struct {
	validator *validation.Validator
}

// NewValidationMiddleware creates a new validation middleware instance
func NewValidationMiddleware() *ValidationMiddleware {
	return &ValidationMiddleware{
		validator: validation.NewValidator(),
	}
}

// ValidateGenerateRequest parses and validates a generation body. A missing
// count is replaced by defaultCount before validation; pass 0 to make count
// mandatory.
func (vm *ValidationMiddleware) ValidateGenerateRequest(defaultCount int) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !c.Is("json") {
			return domain.NewInvalidRequestError("Content-Type must be application/json")
		}

		var req dto.GenerateRequest
		if err := c.BodyParser(&req); err != nil {
			return domain.NewInvalidRequestError("Request body must be a valid JSON object")
		}
		if req.Count == 0 {
			req.Count = defaultCount
		}

		if errors := vm.validator.ValidateStruct(&req); len(errors) > 0 {
			return errors
		}

		// Store validated value in context for handlers to use
		c.Locals(ValidatedRequestKey, &req)
		return c.Next()
	}
}

// GenerateRequestFrom returns the request stored by ValidateGenerateRequest.
func GenerateRequestFrom(c *fiber.Ctx) (*dto.GenerateRequest, bool) {
	req, ok := c.Locals(ValidatedRequestKey).(*dto.GenerateRequest)
	return req, ok
}
