package protocol

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

func RegisterRoutes(api *echo.Group) {
	api.GET("/protocols/clean", CleanHandler)
}

// CleanHandler serves GET /protocols/clean?description=...
func CleanHandler(c echo.Context) error {
	desc := c.QueryParam("description")
	if desc == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "description is required")
	}
	return c.JSON(http.StatusOK, map[string]string{
		"description": desc,
		"cleaned":     Clean(desc),
	})
}
