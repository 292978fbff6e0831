package handler

import (
	"net/http"
	"strconv"

	"subscription-billing-backoffice/internal/dto"
	"subscription-billing-backoffice/internal/service"

	"github.com/labstack/echo/v4"
)

type InvoiceHandler struct {
	invoiceService service.InvoiceService
}

func NewInvoiceHandler(invoiceService service.InvoiceService) *InvoiceHandler {
	return &InvoiceHandler{
		invoiceService: invoiceService,
	}
}

func (h *InvoiceHandler) GetByID(c echo.Context) error {
	ctx := c.Request().Context()

	raw := c.Param("id")
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed invoice id")
	}

	view, err := h.invoiceService.GetInvoice(ctx, uint(id))
	if err != nil {
		return toHTTPError(err)
	}

	return c.JSON(http.StatusOK, view)
}

func (h *InvoiceHandler) ListBySubscription(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := subscriptionIDFromPath(c)
	if err != nil {
		return err
	}

	views, err := h.invoiceService.ListBySubscription(ctx, id)
	if err != nil {
		return toHTTPError(err)
	}

	return c.JSON(http.StatusOK, views)
}

func (h *InvoiceHandler) BatchDelete(c echo.Context) error {
	ctx := c.Request().Context()

	var req dto.BatchDeleteInvoicesRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid req body")
	}

	deleted, err := h.invoiceService.BatchDelete(ctx, req.IDs)
	if err != nil {
		return toHTTPError(err)
	}

	return c.JSON(http.StatusOK, &dto.BatchDeleteInvoicesResponse{
		Deleted: deleted,
	})
}
