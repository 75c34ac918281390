package imaging

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
)

type Handler struct {
	resolver *Resolver
}

func NewHandler(resolver *Resolver) *Handler {
	return &Handler{resolver: resolver}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/nifti", h.Find)
	api.POST("/nifti/batch", h.FindBatch)
}

// Find serves GET /nifti?subject=&event=&protocol=. Not-found and ambiguous
// lookups still return the classified resolution.
func (h *Handler) Find(c echo.Context) error {
	q := Query{
		SubjectID:           c.QueryParam("subject"),
		EventID:             c.QueryParam("event"),
		ProtocolDescription: c.QueryParam("protocol"),
	}
	res, err := h.resolver.Resolve(q)
	if err != nil {
		return echo.NewHTTPError(statusFor(err), err.Error())
	}

	status := http.StatusOK
	switch res.Outcome {
	case OutcomeNotFound:
		status = http.StatusNotFound
	case OutcomeAmbiguous:
		status = http.StatusConflict
	}
	return c.JSON(status, res)
}

// FindBatch serves POST /nifti/batch with a JSON array of queries.
func (h *Handler) FindBatch(c echo.Context) error {
	var qs []Query
	if err := c.Bind(&qs); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	out, err := h.resolver.FindAll(qs)
	if err != nil {
		return echo.NewHTTPError(statusFor(err), err.Error())
	}
	return c.JSON(http.StatusOK, out)
}

func statusFor(err error) int {
	if errors.Is(err, ErrInvalidQuery) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
