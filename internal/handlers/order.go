package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/giftnest/shop/internal/models"
	"github.com/giftnest/shop/internal/service/checkout"
	"github.com/giftnest/shop/internal/util"
)

type OrderHandler struct {
	DB       *gorm.DB
	Checkout *checkout.Service
}

func (h *OrderHandler) GetOrders(c echo.Context) error {
	userID, err := GetID(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
	}

	page := parseIntDefault(c.QueryParam("page"), 1)
	size := parseIntDefault(c.QueryParam("size"), util.DefaultPageSize)
	offset, limit := util.Calculate(page, size)

	orders, total, err := h.Checkout.ListOrders(c.Request().Context(), userID, offset, limit)
	if err != nil {
		return errorResponse(c, http.StatusInternalServerError, err)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"data": orders,
		"meta": paginationMeta(page, limit, offset, total),
	})
}

func (h *OrderHandler) GetOrder(c echo.Context) error {
	userID, err := GetID(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
	}

	order, err := h.Checkout.GetOrder(c.Request().Context(), userID, c.Param("id"))
	if err != nil {
		if errors.Is(err, checkout.ErrOrderNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "order not found")
		}
		return errorResponse(c, http.StatusInternalServerError, err)
	}
	return c.JSON(http.StatusOK, order)
}

func (h *OrderHandler) AdminListOrders(c echo.Context) error {
	page := parseIntDefault(c.QueryParam("page"), 1)
	size := parseIntDefault(c.QueryParam("size"), util.DefaultPageSize)
	offset, limit := util.Calculate(page, size)

	q := h.DB.Model(&models.Order{})
	if status := c.QueryParam("status"); status != "" {
		q = q.Where("status = ?", status)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return errorResponse(c, http.StatusInternalServerError, err)
	}

	var orders []models.Order
	if err := q.Preload("Items").Order("created_at DESC").
		Offset(offset).Limit(limit).Find(&orders).Error; err != nil {
		return errorResponse(c, http.StatusInternalServerError, err)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"data": orders,
		"meta": paginationMeta(page, limit, offset, total),
	})
}

// AdminUpdateStatus moves a paid or COD order along the fulfillment states.
// Payment fields are never writable here.
func (h *OrderHandler) AdminUpdateStatus(c echo.Context) error {
	var req struct {
		Status string `json:"status"`
	}
	if err := c.Bind(&req); err != nil {
		return errorResponse(c, http.StatusBadRequest, err)
	}

	switch req.Status {
	case models.OrderStatusShipped, models.OrderStatusDelivered, models.OrderStatusCancelled:
	default:
		return echo.NewHTTPError(http.StatusBadRequest, "status must be shipped, delivered or cancelled")
	}

	res := h.DB.Model(&models.Order{}).
		Where("id = ?", c.Param("id")).
		Update("status", req.Status)
	if res.Error != nil {
		return errorResponse(c, http.StatusInternalServerError, res.Error)
	}
	if res.RowsAffected == 0 {
		return echo.NewHTTPError(http.StatusNotFound, "order not found")
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true, "status": req.Status})
}
