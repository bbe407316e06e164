package httpserver

import (
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"
	"gorm.io/gorm"

	"github.com/giftnest/shop/internal/handlers"
	"github.com/giftnest/shop/internal/service/token"
)

type Deps struct {
	DB              *gorm.DB
	AuthHandler     *handlers.AuthHandler
	ProductHandler  *handlers.ProductHandler
	CategoryHandler *handlers.CategoryHandler
	BannerHandler   *handlers.BannerHandler
	CartHandler     *handlers.CartHandler
	HamperHandler   *handlers.HamperHandler
	WishlistHandler *handlers.WishlistHandler
	OrderHandler    *handlers.OrderHandler
	PaymentHandler  *handlers.PaymentHandler
	SearchHandler   *handlers.SearchHandler
	TokenService    *token.TokenService
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(200) })
	e.GET("/health/ready", func(c echo.Context) error { return c.NoContent(200) })

	v1 := e.Group("/api/v1")

	// Brute-force guard on credential/OTP endpoints.
	authLimiter := middleware.RateLimiter(middleware.NewRateLimiterMemoryStore(rate.Limit(5)))

	v1.POST("/register", d.AuthHandler.Register, authLimiter)
	v1.POST("/login", d.AuthHandler.Login, authLimiter)
	v1.POST("/logout", d.AuthHandler.LogOut)
	v1.POST("/otp/request", d.AuthHandler.RequestOTP, authLimiter)
	v1.POST("/otp/verify", d.AuthHandler.VerifyOTP, authLimiter)

	v1.GET("/search", d.SearchHandler.Search)
	v1.GET("/products", d.ProductHandler.GetProducts)
	v1.GET("/products/:id", d.ProductHandler.GetProduct)
	v1.GET("/categories", d.CategoryHandler.GetCategories)
	v1.GET("/banners", d.BannerHandler.GetBanners)

	admin := v1.Group("/admin", d.TokenService.AutoRefreshMiddlewareAdmin)
	admin.POST("/products", d.ProductHandler.CreateProduct)
	admin.PATCH("/products/:id", d.ProductHandler.PatchProduct)
	admin.DELETE("/products/:id", d.ProductHandler.DeleteProduct)
	admin.POST("/categories", d.CategoryHandler.CreateCategory)
	admin.PATCH("/categories/:id", d.CategoryHandler.PatchCategory)
	admin.DELETE("/categories/:id", d.CategoryHandler.DeleteCategory)
	admin.POST("/banners", d.BannerHandler.CreateBanner)
	admin.DELETE("/banners/:id", d.BannerHandler.DeleteBanner)
	admin.GET("/orders", d.OrderHandler.AdminListOrders)
	admin.PATCH("/orders/:id/status", d.OrderHandler.AdminUpdateStatus)

	cart := v1.Group("/cart", d.TokenService.AutoRefreshMiddleware)
	cart.GET("", d.CartHandler.GetCart)
	cart.POST("", d.CartHandler.AddToCart)
	cart.DELETE("/:id", d.CartHandler.DeleteOneFromCart)
	cart.DELETE("", d.CartHandler.ClearCart)

	hamper := v1.Group("/hamper", d.TokenService.AutoRefreshMiddleware)
	hamper.GET("", d.HamperHandler.GetHamper)
	hamper.POST("", d.HamperHandler.AddToHamper)
	hamper.DELETE("/:id", d.HamperHandler.DeleteFromHamper)
	hamper.DELETE("", d.HamperHandler.ClearHamper)

	wishlist := v1.Group("/wishlist", d.TokenService.AutoRefreshMiddleware)
	wishlist.GET("", d.WishlistHandler.GetWishlist)
	wishlist.POST("", d.WishlistHandler.AddToWishlist)
	wishlist.DELETE("/:id", d.WishlistHandler.DeleteFromWishlist)

	orders := v1.Group("/orders", d.TokenService.AutoRefreshMiddleware)
	orders.GET("", d.OrderHandler.GetOrders)
	orders.GET("/:id", d.OrderHandler.GetOrder)

	pay := v1.Group("/pay")
	pay.POST("/:gateway/create-order", d.PaymentHandler.CreateOrder, d.TokenService.AutoRefreshMiddleware)
	pay.POST("/:gateway/verify-payment", d.PaymentHandler.VerifyPayment, d.TokenService.AutoRefreshMiddleware)
	// Webhooks authenticate by signature, not by session.
	pay.POST("/:gateway/webhook", d.PaymentHandler.Webhook)
}
