package handler

import (
	"errors"
	"net/http"
	"strconv"

	"subscription-billing-backoffice/internal/apperr"
	"subscription-billing-backoffice/internal/dto"
	"subscription-billing-backoffice/internal/repository"
	"subscription-billing-backoffice/internal/service"

	"github.com/labstack/echo/v4"
)

const defaultPageSize = 20

type AssignmentHandler struct {
	assignmentService service.AssignmentService
}

func NewAssignmentHandler(assignmentService service.AssignmentService) *AssignmentHandler {
	return &AssignmentHandler{
		assignmentService: assignmentService,
	}
}

// toHTTPError maps the service taxonomy onto status codes: validation and
// bad ids are 400, missing records 404, duplicate assignments 409,
// constraint failures 422, everything else 500.
func toHTTPError(err error) error {
	switch {
	case apperr.IsValidation(err):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, apperr.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, apperr.ErrDuplicateAssignment):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, apperr.ErrConstraintViolation):
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	default:
		return err
	}
}

func subscriptionIDFromPath(c echo.Context) (uint, error) {
	raw := c.Param("id")
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "malformed subscription id")
	}
	return uint(id), nil
}

func (h *AssignmentHandler) Create(c echo.Context) error {
	ctx := c.Request().Context()

	var req dto.CreateAssignmentRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid req body")
	}

	result, err := h.assignmentService.CreateAssignment(ctx, &req)
	if err != nil {
		return toHTTPError(err)
	}

	return c.JSON(http.StatusCreated, result)
}

func (h *AssignmentHandler) List(c echo.Context) error {
	ctx := c.Request().Context()

	page, _ := strconv.Atoi(c.QueryParam("page"))
	if page < 1 {
		page = 1
	}
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	if limit < 1 {
		limit = defaultPageSize
	}

	resp, err := h.assignmentService.ListAssignments(ctx, repository.ListOptions{
		SortBy:  c.QueryParam("sort_by"),
		SortDir: c.QueryParam("sort_dir"),
		Offset:  (page - 1) * limit,
		Limit:   limit,
	})
	if err != nil {
		return toHTTPError(err)
	}

	return c.JSON(http.StatusOK, resp)
}

func (h *AssignmentHandler) GetByID(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := subscriptionIDFromPath(c)
	if err != nil {
		return err
	}

	view, err := h.assignmentService.GetAssignment(ctx, id)
	if err != nil {
		return toHTTPError(err)
	}

	return c.JSON(http.StatusOK, view)
}

func (h *AssignmentHandler) Lookup(c echo.Context) error {
	ctx := c.Request().Context()

	view, err := h.assignmentService.GetAssignmentByCustomerAndPlan(ctx, c.QueryParam("customer_id"), c.QueryParam("plan_id"))
	if err != nil {
		return toHTTPError(err)
	}

	return c.JSON(http.StatusOK, view)
}

func (h *AssignmentHandler) ListByCustomer(c echo.Context) error {
	ctx := c.Request().Context()

	views, err := h.assignmentService.ListAssignmentsByCustomer(ctx, c.Param("id"))
	if err != nil {
		return toHTTPError(err)
	}

	return c.JSON(http.StatusOK, views)
}

func (h *AssignmentHandler) ListByPlan(c echo.Context) error {
	ctx := c.Request().Context()

	views, err := h.assignmentService.ListAssignmentsByPlan(ctx, c.Param("id"))
	if err != nil {
		return toHTTPError(err)
	}

	return c.JSON(http.StatusOK, views)
}

func (h *AssignmentHandler) Replace(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := subscriptionIDFromPath(c)
	if err != nil {
		return err
	}

	var req dto.ReplaceAssignmentRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid req body")
	}

	view, err := h.assignmentService.ReplaceAssignment(ctx, id, &req)
	if err != nil {
		return toHTTPError(err)
	}

	return c.JSON(http.StatusOK, view)
}

func (h *AssignmentHandler) Patch(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := subscriptionIDFromPath(c)
	if err != nil {
		return err
	}

	var req dto.PatchAssignmentRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid req body")
	}

	result, err := h.assignmentService.PatchAssignment(ctx, id, &req)
	if err != nil {
		return toHTTPError(err)
	}

	return c.JSON(http.StatusOK, result)
}

func (h *AssignmentHandler) Delete(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := subscriptionIDFromPath(c)
	if err != nil {
		return err
	}

	view, err := h.assignmentService.DeleteAssignment(ctx, id)
	if err != nil {
		return toHTTPError(err)
	}

	return c.JSON(http.StatusOK, view)
}
