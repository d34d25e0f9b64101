package requestaudit

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
)

// EchoMiddleware awaits the downstream handler and audits the outcome. A
// handler error is mapped to its terminal status (echo.HTTPError code or
// 500) since echo writes the response only after this middleware returns.
func (e *Engine) EchoMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			st := e.OnRequest(c.Request())

			err := next(c)

			status := c.Response().Status
			size := int(c.Response().Size)
			if err != nil {
				status = http.StatusInternalServerError
				var httpErr *echo.HTTPError
				if errors.As(err, &httpErr) {
					status = httpErr.Code
				}
			}

			e.OnResponse(st, status, size)
			return err
		}
	}
}
