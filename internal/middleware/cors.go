package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// CORS returns an Echo middleware implementing the gateway's wildcard CORS
// contract: every response carries exactly one Access-Control-Allow-Origin,
// one Access-Control-Allow-Methods listing the given methods, and one
// Access-Control-Allow-Headers, regardless of the request's Origin header.
//
// Register it with e.Pre so it runs before routing: OPTIONS requests are
// answered with an empty 200 on any path without consulting the router, and
// router errors (404, 405) still carry the same headers. The headers are set
// before the handler runs because streamed responses commit the header map on
// the first body write.
func CORS(methods []string) echo.MiddlewareFunc {
	allowMethods := strings.Join(methods, ", ")
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			h := c.Response().Header()
			h.Set(echo.HeaderAccessControlAllowOrigin, "*")
			h.Set(echo.HeaderAccessControlAllowMethods, allowMethods)
			h.Set(echo.HeaderAccessControlAllowHeaders, "*")

			if c.Request().Method == http.MethodOptions {
				return c.NoContent(http.StatusOK)
			}

			return next(c)
		}
	}
}
