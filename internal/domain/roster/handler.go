package roster

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/agendly/agendly/internal/platform/auth"
	"github.com/agendly/agendly/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	readGroup := api.Group("", auth.RequireRole("admin", "manager", "receptionist"))
	readGroup.GET("/professionals", h.ListProfessionals)
	readGroup.GET("/professionals/:id", h.GetProfessional)
	readGroup.GET("/professionals/:id/windows", h.ListWindows)
	readGroup.GET("/blackouts", h.ListBlackouts)

	writeGroup := api.Group("", auth.RequireRole("admin", "manager"))
	writeGroup.POST("/professionals", h.CreateProfessional)
	writeGroup.PUT("/professionals/:id", h.UpdateProfessional)
	writeGroup.DELETE("/professionals/:id", h.DeleteProfessional)
	writeGroup.POST("/professionals/:id/services/:serviceId", h.AssignService)
	writeGroup.DELETE("/professionals/:id/services/:serviceId", h.UnassignService)
	writeGroup.POST("/professionals/:id/windows", h.CreateWindow)
	writeGroup.DELETE("/windows/:id", h.DeleteWindow)
	writeGroup.POST("/blackouts", h.CreateBlackout)
	writeGroup.DELETE("/blackouts/:id", h.DeleteBlackout)
}

func (h *Handler) CreateProfessional(c echo.Context) error {
	var p Professional
	if err := c.Bind(&p); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.CreateProfessional(c.Request().Context(), &p); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, p)
}

func (h *Handler) GetProfessional(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	p, err := h.svc.GetProfessional(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "professional not found")
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) ListProfessionals(c echo.Context) error {
	pg := pagination.FromContext(c)
	activeOnly := c.QueryParam("active") == "true"
	items, total, err := h.svc.ListProfessionals(c.Request().Context(), activeOnly, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) UpdateProfessional(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var p Professional
	if err := c.Bind(&p); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	p.ID = id
	if err := h.svc.UpdateProfessional(c.Request().Context(), &p); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) DeleteProfessional(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.DeleteProfessional(c.Request().Context(), id); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) AssignService(c echo.Context) error {
	profID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	svcID, err := uuid.Parse(c.Param("serviceId"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid service id")
	}
	if err := h.svc.AssignService(c.Request().Context(), profID, svcID); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) UnassignService(c echo.Context) error {
	profID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	svcID, err := uuid.Parse(c.Param("serviceId"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid service id")
	}
	if err := h.svc.UnassignService(c.Request().Context(), profID, svcID); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) CreateWindow(c echo.Context) error {
	profID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var w AvailabilityWindow
	if err := c.Bind(&w); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	w.ProfessionalID = profID
	if err := h.svc.CreateWindow(c.Request().Context(), &w); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, w)
}

func (h *Handler) ListWindows(c echo.Context) error {
	profID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	items, err := h.svc.ListWindows(c.Request().Context(), profID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) DeleteWindow(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.DeleteWindow(c.Request().Context(), id); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) CreateBlackout(c echo.Context) error {
	var b BlackoutBlock
	if err := c.Bind(&b); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.CreateBlackout(c.Request().Context(), &b); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, b)
}

func (h *Handler) ListBlackouts(c echo.Context) error {
	pg := pagination.FromContext(c)
	var profID *uuid.UUID
	if raw := c.QueryParam("professional_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid professional_id")
		}
		profID = &id
	}
	items, total, err := h.svc.ListBlackouts(c.Request().Context(), profID, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) DeleteBlackout(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.DeleteBlackout(c.Request().Context(), id); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}
