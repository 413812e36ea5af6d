package org

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/agendly/agendly/internal/platform/auth"
)

type Handler struct {
	repo Repository
}

func NewHandler(repo Repository) *Handler {
	return &Handler{repo: repo}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	group := api.Group("", auth.RequireRole("admin", "manager"))
	group.GET("/settings", h.GetSettings)
	group.PUT("/settings", h.UpdateSettings)
}

func (h *Handler) GetSettings(c echo.Context) error {
	s, err := h.repo.Get(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, s)
}

func (h *Handler) UpdateSettings(c echo.Context) error {
	var s Settings
	if err := c.Bind(&s); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.repo.Update(c.Request().Context(), &s); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, s)
}
