package handlers

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"github.com/giftnest/shop/internal/models"
)

func TestAddToCartUpsertsQuantity(t *testing.T) {
	h := &CartHandler{DB: initTestDB(t)}

	c, rec := newContext(t, http.MethodPost, "/api/v1/cart", `{"product_id":5,"quantity":2}`, 1)
	require.NoError(t, h.AddToCart(c))
	require.Equal(t, http.StatusOK, rec.Code)

	c, _ = newContext(t, http.MethodPost, "/api/v1/cart", `{"product_id":5,"quantity":3}`, 1)
	require.NoError(t, h.AddToCart(c))

	var item models.CartItem
	require.NoError(t, h.DB.Where("user_id = ? AND product_id = ?", 1, 5).First(&item).Error)
	require.Equal(t, uint(5), item.Quantity)

	var count int64
	require.NoError(t, h.DB.Model(&models.CartItem{}).Where("user_id = ?", 1).Count(&count).Error)
	require.Equal(t, int64(1), count)
}

func TestAddToCartDefaultsQuantity(t *testing.T) {
	h := &CartHandler{DB: initTestDB(t)}

	c, _ := newContext(t, http.MethodPost, "/api/v1/cart", `{"product_id":5}`, 1)
	require.NoError(t, h.AddToCart(c))

	var item models.CartItem
	require.NoError(t, h.DB.Where("user_id = ? AND product_id = ?", 1, 5).First(&item).Error)
	require.Equal(t, uint(1), item.Quantity)
}

func TestDeleteOneFromCart(t *testing.T) {
	h := &CartHandler{DB: initTestDB(t)}

	item := models.CartItem{UserID: 1, ProductID: 5, Quantity: 2}
	require.NoError(t, h.DB.Create(&item).Error)

	c, _ := newContext(t, http.MethodDelete, "/", "", 1)
	c.SetParamNames("id")
	c.SetParamValues(fmt.Sprint(item.ID))
	require.NoError(t, h.DeleteOneFromCart(c))

	var stored models.CartItem
	require.NoError(t, h.DB.First(&stored, item.ID).Error)
	require.Equal(t, uint(1), stored.Quantity)

	c, _ = newContext(t, http.MethodDelete, "/", "", 1)
	c.SetParamNames("id")
	c.SetParamValues(fmt.Sprint(item.ID))
	require.NoError(t, h.DeleteOneFromCart(c))

	var count int64
	require.NoError(t, h.DB.Model(&models.CartItem{}).Where("id = ?", item.ID).Count(&count).Error)
	require.Zero(t, count)
}

func TestDeleteOneFromCartOtherUser(t *testing.T) {
	h := &CartHandler{DB: initTestDB(t)}

	item := models.CartItem{UserID: 2, ProductID: 5, Quantity: 1}
	require.NoError(t, h.DB.Create(&item).Error)

	c, _ := newContext(t, http.MethodDelete, "/", "", 1)
	c.SetParamNames("id")
	c.SetParamValues(fmt.Sprint(item.ID))
	err := h.DeleteOneFromCart(c)
	var httpErr *echo.HTTPError
	require.ErrorAs(t, err, &httpErr)
	require.Equal(t, http.StatusNotFound, httpErr.Code)
}

func TestClearCart(t *testing.T) {
	h := &CartHandler{DB: initTestDB(t)}

	require.NoError(t, h.DB.Create(&models.CartItem{UserID: 1, ProductID: 5, Quantity: 1}).Error)
	require.NoError(t, h.DB.Create(&models.CartItem{UserID: 1, ProductID: 6, Quantity: 2}).Error)
	require.NoError(t, h.DB.Create(&models.CartItem{UserID: 2, ProductID: 5, Quantity: 1}).Error)

	c, rec := newContext(t, http.MethodDelete, "/api/v1/cart", "", 1)
	require.NoError(t, h.ClearCart(c))
	require.Equal(t, http.StatusNoContent, rec.Code)

	var mine, theirs int64
	require.NoError(t, h.DB.Model(&models.CartItem{}).Where("user_id = ?", 1).Count(&mine).Error)
	require.NoError(t, h.DB.Model(&models.CartItem{}).Where("user_id = ?", 2).Count(&theirs).Error)
	require.Zero(t, mine)
	require.Equal(t, int64(1), theirs)
}

func TestCartRequiresAuth(t *testing.T) {
	h := &CartHandler{DB: initTestDB(t)}

	c, _ := newContext(t, http.MethodGet, "/api/v1/cart", "", 0)
	err := h.GetCart(c)
	var httpErr *echo.HTTPError
	require.ErrorAs(t, err, &httpErr)
	require.Equal(t, http.StatusUnauthorized, httpErr.Code)
}
