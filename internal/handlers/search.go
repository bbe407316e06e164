package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/giftnest/shop/internal/es"
	"github.com/giftnest/shop/internal/util"
)

type SearchHandler struct {
	Indexer *es.Indexer
}

func (h *SearchHandler) Search(c echo.Context) error {
	query := c.QueryParam("q")
	if query == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "q required")
	}

	page := parseIntDefault(c.QueryParam("page"), 1)
	size := parseIntDefault(c.QueryParam("size"), util.DefaultPageSize)
	offset, limit := util.Calculate(page, size)

	hits, total, err := h.Indexer.SearchProducts(c.Request().Context(), query, offset, limit)
	if err != nil {
		return errorResponse(c, http.StatusInternalServerError, err)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"data": hits,
		"meta": paginationMeta(page, limit, offset, total),
	})
}
