package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/example/couture/internal/models"
	"github.com/example/couture/internal/validation"
)

// parseBody decodes the request body into dest.
func parseBody(c *fiber.Ctx, dest interface{}) error {
	if err := c.BodyParser(dest); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	return nil
}

// parseID reads a UUID path or body value. A malformed value means the
// resource cannot exist, so notFound is returned.
func parseID(value string, notFound error) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(value))
	if err != nil {
		return uuid.Nil, notFound
	}
	return id, nil
}

// required reports every empty value among the given fields.
func required(fields ...[2]string) error {
	p := validation.New()
	for _, f := range fields {
		p.Field(f[0], validation.Required(f[1], "This field is required."))
	}
	return p.Validate()
}

func field(name, value string) [2]string {
	return [2]string{name, value}
}

func userJSON(u *models.User) fiber.Map {
	return fiber.Map{
		"id":                u.ID,
		"email":             u.Email,
		"first_name":        u.FirstName,
		"last_name":         u.LastName,
		"is_staff":          u.IsStaff,
		"is_email_verified": u.IsEmailVerified,
	}
}
