package study

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/livingpark/ppmi/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/disease-duration", h.DiseaseDuration)
}

// DiseaseDuration serves GET /disease-duration?force=&minimal=&policy=&limit=&offset=
func (h *Handler) DiseaseDuration(c echo.Context) error {
	opts := Options{Minimal: true, Policy: ConflictPolicy(c.QueryParam("policy"))}

	var err error
	if v := c.QueryParam("force"); v != "" {
		if opts.Force, err = strconv.ParseBool(v); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid force: "+v)
		}
	}
	if v := c.QueryParam("minimal"); v != "" {
		if opts.Minimal, err = strconv.ParseBool(v); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid minimal: "+v)
		}
	}

	rows, err := h.svc.DiseaseDuration(c.Request().Context(), opts)
	if err != nil {
		return echo.NewHTTPError(statusFor(err), err.Error())
	}

	pg := pagination.FromContext(c)
	return c.JSON(http.StatusOK, pagination.NewResponse(pagination.Page(rows, pg), len(rows), pg))
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrInvalidPolicy):
		return http.StatusBadRequest
	case errors.Is(err, ErrMissingInput):
		return http.StatusServiceUnavailable
	case errors.Is(err, ErrMalformedDate), errors.Is(err, ErrDuplicateDiagnosis):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
