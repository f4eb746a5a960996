package handlers

import (
	"strings"

	"github.com/felipe/wagateway/internal/api/dto"
	"github.com/felipe/wagateway/internal/apierr"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

var validate = validator.New()

// bindAndValidate parses the request body into req and runs its `validate`
// struct tags, returning one typed bad-input error that names every field
// that failed so a caller doesn't have to guess from a generic 400.
func bindAndValidate(c *fiber.Ctx, req interface{}) error {
	if err := c.BodyParser(req); err != nil {
		return apierr.BadInput("invalid_body", "could not parse request body")
	}
	if err := validate.Struct(req); err != nil {
		var fields []string
		for _, fe := range err.(validator.ValidationErrors) {
			fields = append(fields, fe.Field()+": "+fe.Tag())
		}
		return apierr.BadInput("validation_failed", strings.Join(fields, ", "))
	}
	return nil
}

func writeSuccess(c *fiber.Ctx, status int, message string, data interface{}) error {
	return c.Status(status).JSON(dto.NewSuccessResponse(message, data))
}

// writeError maps a typed *apierr.Error to its HTTP status; any other error
// is treated as unexpected/internal.
func writeError(c *fiber.Ctx, err error) error {
	apiErr, ok := apierr.As(err)
	if !ok {
		apiErr = apierr.Unexpected("unexpected", err.Error(), err)
	}
	return c.Status(apiErr.HTTPStatus()).JSON(dto.NewErrorResponse(apiErr.Code, apiErr.Message, apiErr.HTTPStatus()))
}
