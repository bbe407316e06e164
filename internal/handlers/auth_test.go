package handlers

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"github.com/giftnest/shop/internal/hash"
	"github.com/giftnest/shop/internal/models"
)

func TestRegister(t *testing.T) {
	h := &AuthHandler{DB: initTestDB(t), JWTSecret: []byte("jwt"), RefreshSecret: []byte("refresh")}

	c, rec := newContext(t, http.MethodPost, "/api/v1/register",
		`{"username":"gifted","email":"gifted@example.com","phone":"9000000000","password":"hunter22"}`, 0)
	require.NoError(t, h.Register(c))
	require.Equal(t, http.StatusCreated, rec.Code)

	var user models.User
	require.NoError(t, h.DB.Where("username = ?", "gifted").First(&user).Error)
	require.Equal(t, "user", user.Role)
	require.NotEqual(t, "hunter22", user.PasswordHash)
}

func TestRegisterDuplicate(t *testing.T) {
	h := &AuthHandler{DB: initTestDB(t), JWTSecret: []byte("jwt"), RefreshSecret: []byte("refresh")}

	c, _ := newContext(t, http.MethodPost, "/api/v1/register", `{"username":"gifted","password":"hunter22"}`, 0)
	require.NoError(t, h.Register(c))

	c, _ = newContext(t, http.MethodPost, "/api/v1/register", `{"username":"gifted","password":"other"}`, 0)
	err := h.Register(c)
	var httpErr *echo.HTTPError
	require.ErrorAs(t, err, &httpErr)
	require.Equal(t, http.StatusConflict, httpErr.Code)
}

func TestRegisterMissingFields(t *testing.T) {
	h := &AuthHandler{DB: initTestDB(t)}

	c, _ := newContext(t, http.MethodPost, "/api/v1/register", `{"username":"gifted"}`, 0)
	err := h.Register(c)
	var httpErr *echo.HTTPError
	require.ErrorAs(t, err, &httpErr)
	require.Equal(t, http.StatusBadRequest, httpErr.Code)
}

func TestLogin(t *testing.T) {
	db := initTestDB(t)
	h := &AuthHandler{DB: db, JWTSecret: []byte("jwt"), RefreshSecret: []byte("refresh")}

	passwordHash, err := hash.HashPassword("hunter22")
	require.NoError(t, err)
	require.NoError(t, db.Create(&models.User{Username: "gifted", PasswordHash: passwordHash, Role: "user"}).Error)

	c, rec := newContext(t, http.MethodPost, "/api/v1/login", `{"username":"gifted","password":"hunter22"}`, 0)
	require.NoError(t, h.Login(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp["access_token"])
	require.NotEmpty(t, resp["refresh_token"])
	require.Equal(t, false, resp["is_admin"])

	var stored models.RefreshToken
	require.NoError(t, db.Where("token = ?", resp["refresh_token"]).First(&stored).Error)
	require.False(t, stored.Revoked)

	cookies := rec.Result().Cookies()
	names := map[string]bool{}
	for _, ck := range cookies {
		names[ck.Name] = true
	}
	require.True(t, names["accessToken"])
	require.True(t, names["refreshToken"])
}

func TestLoginWrongPassword(t *testing.T) {
	db := initTestDB(t)
	h := &AuthHandler{DB: db, JWTSecret: []byte("jwt"), RefreshSecret: []byte("refresh")}

	passwordHash, err := hash.HashPassword("hunter22")
	require.NoError(t, err)
	require.NoError(t, db.Create(&models.User{Username: "gifted", PasswordHash: passwordHash, Role: "user"}).Error)

	c, _ := newContext(t, http.MethodPost, "/api/v1/login", `{"username":"gifted","password":"wrong"}`, 0)
	err = h.Login(c)
	var httpErr *echo.HTTPError
	require.ErrorAs(t, err, &httpErr)
	require.Equal(t, http.StatusUnauthorized, httpErr.Code)
}

func TestLogOutRevokesRefreshToken(t *testing.T) {
	db := initTestDB(t)
	h := &AuthHandler{DB: db, JWTSecret: []byte("jwt"), RefreshSecret: []byte("refresh")}

	require.NoError(t, db.Create(&models.RefreshToken{Token: "tok-1", UserID: 1, Role: "user", ExpiresAt: 9999999999}).Error)

	c, rec := newContext(t, http.MethodPost, "/api/v1/logout", "", 0)
	c.Request().AddCookie(&http.Cookie{Name: "refreshToken", Value: "tok-1"})
	require.NoError(t, h.LogOut(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var stored models.RefreshToken
	require.NoError(t, db.Where("token = ?", "tok-1").First(&stored).Error)
	require.True(t, stored.Revoked)
}
