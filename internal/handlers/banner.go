package handlers

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/giftnest/shop/internal/models"
)

type BannerHandler struct {
	DB *gorm.DB
}

func (h *BannerHandler) GetBanners(c echo.Context) error {
	var banners []models.Banner
	if err := h.DB.Where("active = ?", true).Order("id ASC").Find(&banners).Error; err != nil {
		return errorResponse(c, http.StatusInternalServerError, err)
	}
	return c.JSON(http.StatusOK, banners)
}

func (h *BannerHandler) CreateBanner(c echo.Context) error {
	var req struct {
		Title  string `json:"title"`
		Image  string `json:"image"`
		Link   string `json:"link"`
		Active *bool  `json:"active"`
	}
	if err := c.Bind(&req); err != nil {
		return errorResponse(c, http.StatusBadRequest, err)
	}
	if req.Image == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "image required")
	}

	banner := models.Banner{Title: req.Title, Image: req.Image, Link: req.Link, Active: true}
	if req.Active != nil {
		banner.Active = *req.Active
	}
	if err := h.DB.Create(&banner).Error; err != nil {
		return errorResponse(c, http.StatusBadRequest, err)
	}
	return c.JSON(http.StatusCreated, banner)
}

func (h *BannerHandler) DeleteBanner(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errorResponse(c, http.StatusBadRequest, err)
	}
	if err := h.DB.Delete(&models.Banner{}, id).Error; err != nil {
		return errorResponse(c, http.StatusInternalServerError, err)
	}
	return c.NoContent(http.StatusNoContent)
}
