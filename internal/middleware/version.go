package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/localnerve/lxnotes/internal/utils"
)

// APIVersion is the version of the REST surface served under /api
const APIVersion = "1.0.0"

// VersionMiddleware accepts requests for the current major API version.
// Clients may omit X-Api-Version or send a short alias such as "1" or "1.0".
func VersionMiddleware() fiber.Handler {
	major := strings.SplitN(APIVersion, ".", 2)[0]
	return func(c *fiber.Ctx) error {
		requested := strings.TrimSpace(c.Get("X-Api-Version", APIVersion))
		if strings.SplitN(requested, ".", 2)[0] != major {
			return utils.ErrorResponse(c, "Unsupported API version '"+requested+"'", fiber.StatusBadRequest, "version.unsupported")
		}

		c.Locals("apiVersion", APIVersion)
		c.Set("X-Api-Version", APIVersion)

		return c.Next()
	}
}
