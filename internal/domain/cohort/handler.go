package cohort

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

type Handler struct {
	mode     Mode
	generate func([]string) string
}

func NewHandler(mode Mode) (*Handler, error) {
	gen, err := Generator(mode)
	if err != nil {
		return nil, err
	}
	if mode == "" {
		mode = ModeHash
	}
	return &Handler{mode: mode, generate: gen}, nil
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/cohort-id", h.CohortID)
}

// IDRequest accepts patient numbers as JSON numbers or strings.
type IDRequest struct {
	PatientIDs []interface{} `json:"patient_ids"`
}

type IDResponse struct {
	CohortID string `json:"cohort_id"`
	Mode     Mode   `json:"mode"`
	Size     int    `json:"size"`
}

func (h *Handler) CohortID(c echo.Context) error {
	var req IDRequest
	dec := json.NewDecoder(c.Request().Body)
	dec.UseNumber()
	if err := dec.Decode(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body: "+err.Error())
	}
	if len(req.PatientIDs) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "patient_ids is required")
	}

	ids := make([]string, 0, len(req.PatientIDs))
	for _, v := range req.PatientIDs {
		var id string
		switch t := v.(type) {
		case json.Number:
			id = t.String()
		case string:
			id = strings.TrimSpace(t)
		default:
			return echo.NewHTTPError(http.StatusBadRequest, "patient_ids must be numbers or strings")
		}
		if id == "" {
			return echo.NewHTTPError(http.StatusBadRequest, "patient_ids must not contain empty values")
		}
		ids = append(ids, id)
	}

	return c.JSON(http.StatusOK, IDResponse{
		CohortID: h.generate(ids),
		Mode:     h.mode,
		Size:     len(Normalize(ids)),
	})
}
