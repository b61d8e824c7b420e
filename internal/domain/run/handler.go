package run

import (
	"errors"
	"io"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/mode1990/mtb-harmonizer/internal/jsonfix"
	"github.com/mode1990/mtb-harmonizer/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/repair", h.RepairDocument)
	api.GET("/runs", h.ListRuns)
	api.GET("/runs/:id", h.GetRun)
	api.GET("/runs/:id/files", h.ListRunFiles)
	api.GET("/runs/:id/gate", h.Gate)
}

// RepairResponse is the payload of the stateless repair endpoint.
type RepairResponse struct {
	Outcome     jsonfix.Outcome     `json:"outcome"`
	Strategy    jsonfix.Strategy    `json:"strategy"`
	Diagnostics jsonfix.Diagnostics `json:"diagnostics"`
	Repaired    string              `json:"repaired,omitempty"`
	Detail      string              `json:"detail,omitempty"`
}

// RepairDocument repairs a single document supplied as the request
// body and returns the repaired text without touching any file. The
// strategy query parameter defaults to auto.
func (h *Handler) RepairDocument(c echo.Context) error {
	strategy := jsonfix.StrategyAuto
	if name := c.QueryParam("strategy"); name != "" {
		var err error
		strategy, err = jsonfix.ParseStrategy(name)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
	}

	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "read request body")
	}
	if len(body) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "empty request body")
	}

	repaired, res := jsonfix.RepairBytes(body, strategy)
	resp := RepairResponse{
		Outcome:     res.Outcome,
		Strategy:    res.Strategy,
		Diagnostics: res.Diagnostics,
		Detail:      res.Detail,
	}
	if res.Outcome == jsonfix.OutcomeFixed || res.Outcome == jsonfix.OutcomeAlreadyValid {
		resp.Repaired = string(repaired)
		return c.JSON(http.StatusOK, resp)
	}
	return c.JSON(http.StatusUnprocessableEntity, resp)
}

func (h *Handler) ListRuns(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListRuns(c.Request().Context(), pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) GetRun(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	r, err := h.svc.GetRun(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "run not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, r)
}

func (h *Handler) ListRunFiles(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	files, err := h.svc.ListFiles(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "run not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, files)
}

func (h *Handler) Gate(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	gate, err := h.svc.Gate(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "run not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, gate)
}
