package token

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/giftnest/shop/internal/models"
)

func initTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to connect to in-memory db: %v", err)
	}
	if err := db.AutoMigrate(&models.RefreshToken{}); err != nil {
		t.Fatalf("failed to migrate tables: %v", err)
	}
	return db
}

var (
	jwtSecret     = []byte("access-secret")
	refreshSecret = []byte("refresh-secret")
)

func newService(t *testing.T) *TokenService {
	return &TokenService{DB: initTestDB(t), JWTSecret: jwtSecret, RefreshSecret: refreshSecret}
}

func TestRefreshTokenRoundtrip(t *testing.T) {
	svc := newService(t)

	raw, err := SignRefreshToken(42, "user", refreshSecret)
	require.NoError(t, err)
	require.NoError(t, SaveRefreshToken(svc.DB, raw, 42, "user"))

	claims, err := ValidateRefresh(raw, refreshSecret, svc.DB)
	require.NoError(t, err)
	require.Equal(t, float64(42), claims["sub"])
	require.Equal(t, "user", claims["role"])
}

func TestValidateRefreshRejectsRevoked(t *testing.T) {
	svc := newService(t)

	raw, err := SignRefreshToken(42, "user", refreshSecret)
	require.NoError(t, err)
	require.NoError(t, SaveRefreshToken(svc.DB, raw, 42, "user"))
	require.NoError(t, svc.RevokeRefresh(raw))

	_, err = ValidateRefresh(raw, refreshSecret, svc.DB)
	require.Error(t, err)
}

func TestValidateRefreshRejectsUnknownToken(t *testing.T) {
	svc := newService(t)

	raw, err := SignRefreshToken(42, "user", refreshSecret)
	require.NoError(t, err)

	_, err = ValidateRefresh(raw, refreshSecret, svc.DB)
	require.Error(t, err)
}

func TestValidateRefreshRejectsAccessToken(t *testing.T) {
	svc := newService(t)

	raw, err := SignAccessToken(42, "user", refreshSecret)
	require.NoError(t, err)
	require.NoError(t, SaveRefreshToken(svc.DB, raw, 42, "user"))

	_, err = ValidateRefresh(raw, refreshSecret, svc.DB)
	require.Error(t, err, "tokens without typ=refresh must not rotate")
}

func TestRotateTokenIssuesFreshPair(t *testing.T) {
	svc := newService(t)

	raw, err := SignRefreshToken(42, "user", refreshSecret)
	require.NoError(t, err)
	require.NoError(t, SaveRefreshToken(svc.DB, raw, 42, "user"))

	access, refresh, claims, err := svc.RotateToken(raw)
	require.NoError(t, err)
	require.NotEmpty(t, access)
	require.NotEmpty(t, refresh)
	require.NotEqual(t, raw, refresh)
	require.Equal(t, "user", claims["role"])

	var stored models.RefreshToken
	require.NoError(t, svc.DB.Where("token = ?", refresh).First(&stored).Error)
	require.Equal(t, uint(42), stored.UserID)
}

func middlewareContext(t *testing.T) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestAutoRefreshMiddlewarePassesValidAccess(t *testing.T) {
	svc := newService(t)

	access, err := SignAccessToken(42, "user", jwtSecret)
	require.NoError(t, err)

	c, _ := middlewareContext(t)
	c.Request().AddCookie(&http.Cookie{Name: "accessToken", Value: access})

	called := false
	next := func(c echo.Context) error {
		called = true
		require.Equal(t, uint(42), c.Get("userID"))
		return nil
	}
	require.NoError(t, svc.AutoRefreshMiddleware(next)(c))
	require.True(t, called)
}

func TestAutoRefreshMiddlewareRotatesExpiredAccess(t *testing.T) {
	svc := newService(t)

	expired, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  42,
		"role": "user",
		"exp":  time.Now().Add(-time.Minute).Unix(),
	}).SignedString(jwtSecret)
	require.NoError(t, err)

	refresh, err := SignRefreshToken(42, "user", refreshSecret)
	require.NoError(t, err)
	require.NoError(t, SaveRefreshToken(svc.DB, refresh, 42, "user"))

	c, rec := middlewareContext(t)
	c.Request().AddCookie(&http.Cookie{Name: "accessToken", Value: expired})
	c.Request().AddCookie(&http.Cookie{Name: "refreshToken", Value: refresh})

	called := false
	next := func(c echo.Context) error {
		called = true
		require.Equal(t, uint(42), c.Get("userID"))
		return nil
	}
	require.NoError(t, svc.AutoRefreshMiddleware(next)(c))
	require.True(t, called)

	names := map[string]bool{}
	for _, ck := range rec.Result().Cookies() {
		names[ck.Name] = true
	}
	require.True(t, names["accessToken"])
	require.True(t, names["refreshToken"])
}

func TestAutoRefreshMiddlewareRejectsMissingCookies(t *testing.T) {
	svc := newService(t)

	c, _ := middlewareContext(t)
	err := svc.AutoRefreshMiddleware(func(c echo.Context) error { return nil })(c)
	var httpErr *echo.HTTPError
	require.ErrorAs(t, err, &httpErr)
	require.Equal(t, http.StatusUnauthorized, httpErr.Code)
}

func TestAdminMiddlewareRejectsNonAdmin(t *testing.T) {
	svc := newService(t)

	access, err := SignAccessToken(42, "user", jwtSecret)
	require.NoError(t, err)

	c, _ := middlewareContext(t)
	c.Request().AddCookie(&http.Cookie{Name: "accessToken", Value: access})

	err = svc.AutoRefreshMiddlewareAdmin(func(c echo.Context) error { return nil })(c)
	var httpErr *echo.HTTPError
	require.ErrorAs(t, err, &httpErr)
	require.Equal(t, http.StatusForbidden, httpErr.Code)
}

func TestAdminMiddlewareAllowsAdmin(t *testing.T) {
	svc := newService(t)

	access, err := SignAccessToken(1, "admin", jwtSecret)
	require.NoError(t, err)

	c, _ := middlewareContext(t)
	c.Request().AddCookie(&http.Cookie{Name: "accessToken", Value: access})

	called := false
	require.NoError(t, svc.AutoRefreshMiddlewareAdmin(func(c echo.Context) error {
		called = true
		return nil
	})(c))
	require.True(t, called)
}
