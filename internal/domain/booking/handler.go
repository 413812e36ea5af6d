package booking

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/agendly/agendly/internal/platform/auth"
	"github.com/agendly/agendly/pkg/clock"
	"github.com/agendly/agendly/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	readGroup := api.Group("", auth.RequireRole("admin", "manager", "receptionist", "professional"))
	readGroup.GET("/appointments", h.SearchAppointments)
	readGroup.GET("/appointments/:id", h.GetAppointment)
	readGroup.GET("/series/:seriesId", h.GetSeries)

	writeGroup := api.Group("", auth.RequireRole("admin", "manager", "receptionist"))
	writeGroup.POST("/appointments", h.CreateAppointment)
	writeGroup.PUT("/appointments/:id", h.UpdateAppointment)
	writeGroup.POST("/appointments/:id/cancel", h.CancelAppointment)
	writeGroup.POST("/appointments/:id/confirm", h.ConfirmAttendance)
	writeGroup.POST("/appointments/:id/check-in", h.CheckIn)
	writeGroup.POST("/appointments/:id/start", h.StartService)
	writeGroup.POST("/appointments/:id/complete", h.CompleteService)
	writeGroup.POST("/appointments/:id/no-show", h.MarkNoShow)
	writeGroup.POST("/appointments/:id/reschedule", h.Reschedule)
	writeGroup.POST("/walk-ins", h.CreateWalkIn)
	writeGroup.POST("/series", h.CreateSeries)
	writeGroup.POST("/series/preview", h.PreviewSeries)
	writeGroup.POST("/series/:seriesId/cancel", h.CancelSeries)
}

// schedulingHTTPError maps the error taxonomy onto HTTP statuses: validation
// 400, not found 404, conflicts and rejections 409. Everything else is left
// for the generic 500 path.
func schedulingHTTPError(err error) error {
	se, ok := AsSchedulingError(err)
	if !ok {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	status := http.StatusInternalServerError
	switch se.Category {
	case CategoryValidation:
		status = http.StatusBadRequest
	case CategoryNotFound:
		status = http.StatusNotFound
	case CategoryConflict, CategoryRejected:
		status = http.StatusConflict
	}
	return echo.NewHTTPError(status, se)
}

func userID(c echo.Context) string {
	if id := auth.UserIDFromContext(c.Request().Context()); id != "" {
		return id
	}
	return "system"
}

func (h *Handler) CreateAppointment(c echo.Context) error {
	var req CreateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	appt, err := h.svc.CreateAppointment(c.Request().Context(), &req, userID(c))
	if err != nil {
		return schedulingHTTPError(err)
	}
	return c.JSON(http.StatusCreated, appt)
}

func (h *Handler) GetAppointment(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	appt, err := h.svc.GetAppointment(c.Request().Context(), id)
	if err != nil {
		return schedulingHTTPError(err)
	}
	return c.JSON(http.StatusOK, appt)
}

func (h *Handler) SearchAppointments(c echo.Context) error {
	pg := pagination.FromContext(c)
	filter, err := searchFilterFromQuery(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	items, total, err := h.svc.SearchAppointments(c.Request().Context(), filter, pg.Limit, pg.Offset)
	if err != nil {
		return schedulingHTTPError(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func searchFilterFromQuery(c echo.Context) (SearchFilter, error) {
	var filter SearchFilter
	if raw := c.QueryParam("client_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return filter, errors.New("invalid client_id")
		}
		filter.ClientID = &id
	}
	if raw := c.QueryParam("professional_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return filter, errors.New("invalid professional_id")
		}
		filter.ProfessionalID = &id
	}
	if raw := c.QueryParam("status"); raw != "" {
		st := Status(raw)
		if !validStatuses[st] {
			return filter, errors.New("invalid status")
		}
		filter.Status = &st
	}
	if raw := c.QueryParam("date_from"); raw != "" {
		d, err := clock.ParseDate(raw)
		if err != nil {
			return filter, errors.New("invalid date_from")
		}
		filter.DateFrom = &d
	}
	if raw := c.QueryParam("date_to"); raw != "" {
		d, err := clock.ParseDate(raw)
		if err != nil {
			return filter, errors.New("invalid date_to")
		}
		filter.DateTo = &d
	}
	if raw := c.QueryParam("series_id"); raw != "" {
		filter.SeriesID = &raw
	}
	return filter, nil
}

func (h *Handler) UpdateAppointment(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req UpdateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	appt, err := h.svc.UpdateAppointment(c.Request().Context(), id, &req, userID(c))
	if err != nil {
		return schedulingHTTPError(err)
	}
	return c.JSON(http.StatusOK, appt)
}

func (h *Handler) CancelAppointment(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var body struct {
		Reason *string `json:"reason,omitempty"`
	}
	_ = c.Bind(&body)
	appt, err := h.svc.CancelAppointment(c.Request().Context(), id, body.Reason, userID(c))
	if err != nil {
		return schedulingHTTPError(err)
	}
	return c.JSON(http.StatusOK, appt)
}

func (h *Handler) ConfirmAttendance(c echo.Context) error {
	return h.simpleTransition(c, h.svc.ConfirmAttendance)
}

func (h *Handler) CheckIn(c echo.Context) error {
	return h.simpleTransition(c, h.svc.CheckIn)
}

func (h *Handler) StartService(c echo.Context) error {
	return h.simpleTransition(c, h.svc.StartService)
}

func (h *Handler) CompleteService(c echo.Context) error {
	return h.simpleTransition(c, h.svc.CompleteService)
}

func (h *Handler) MarkNoShow(c echo.Context) error {
	return h.simpleTransition(c, h.svc.MarkNoShow)
}

func (h *Handler) simpleTransition(c echo.Context, fn func(ctx context.Context, id uuid.UUID, userID string) (*Appointment, error)) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	appt, err := fn(c.Request().Context(), id, userID(c))
	if err != nil {
		return schedulingHTTPError(err)
	}
	return c.JSON(http.StatusOK, appt)
}

func (h *Handler) Reschedule(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var body struct {
		Date      string      `json:"date"`
		StartTime clock.Time  `json:"start_time"`
		EndTime   *clock.Time `json:"end_time,omitempty"`
	}
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	appt, err := h.svc.Reschedule(c.Request().Context(), id, body.Date, body.StartTime, body.EndTime, userID(c))
	if err != nil {
		return schedulingHTTPError(err)
	}
	return c.JSON(http.StatusOK, appt)
}

func (h *Handler) CreateWalkIn(c echo.Context) error {
	var req WalkInRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	appt, err := h.svc.CreateWalkIn(c.Request().Context(), &req, userID(c))
	if err != nil {
		return schedulingHTTPError(err)
	}
	return c.JSON(http.StatusCreated, appt)
}

func (h *Handler) CreateSeries(c echo.Context) error {
	var req SeriesRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	result, err := h.svc.CreateRecurringSeries(c.Request().Context(), &req, userID(c))
	if err != nil {
		return schedulingHTTPError(err)
	}
	return c.JSON(http.StatusCreated, result)
}

func (h *Handler) PreviewSeries(c echo.Context) error {
	var req SeriesRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	preview, err := h.svc.PreviewRecurringSeries(c.Request().Context(), &req)
	if err != nil {
		return schedulingHTTPError(err)
	}
	return c.JSON(http.StatusOK, preview)
}

func (h *Handler) GetSeries(c echo.Context) error {
	appts, err := h.svc.ListSeries(c.Request().Context(), c.Param("seriesId"))
	if err != nil {
		return schedulingHTTPError(err)
	}
	if len(appts) == 0 {
		return echo.NewHTTPError(http.StatusNotFound, "series not found")
	}
	return c.JSON(http.StatusOK, appts)
}

func (h *Handler) CancelSeries(c echo.Context) error {
	var opts CancelSeriesOptions
	if err := c.Bind(&opts); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	result, err := h.svc.CancelSeries(c.Request().Context(), c.Param("seriesId"), opts, userID(c))
	if err != nil {
		return schedulingHTTPError(err)
	}
	return c.JSON(http.StatusOK, result)
}
