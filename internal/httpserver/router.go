package httpserver

import (
	"github.com/labstack/echo/v4"

	"github.com/skvortsovm/storefront/internal/broadcast"
	"github.com/skvortsovm/storefront/internal/handlers"
	authmw "github.com/skvortsovm/storefront/internal/middleware/auth"
)

type Deps struct {
	JWTSecret       []byte
	Hub             *broadcast.Hub
	AuthHandler     *handlers.AuthHandler
	ProductHandler  *handlers.ProductHandler
	CartHandler     *handlers.CartHandler
	WishlistHandler *handlers.WishlistHandler
	SearchHandler   *handlers.SearchHandler
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(200) })
	e.GET("/health/ready", func(c echo.Context) error { return c.NoContent(200) })

	e.GET("/ws", d.Hub.Serve)

	api := e.Group("/api")
	requireAuth := authmw.RequireAuth(d.JWTSecret)

	auth := api.Group("/auth")
	auth.POST("/register", d.AuthHandler.Register)
	auth.POST("/login", d.AuthHandler.Login)
	auth.GET("/profile", d.AuthHandler.Profile, requireAuth)

	products := api.Group("/products")
	products.GET("", d.ProductHandler.GetProducts)
	products.GET("/search", d.SearchHandler.Search)
	products.GET("/:id", d.ProductHandler.GetProduct)

	admin := api.Group("/products", requireAuth, authmw.AdminOnly)
	admin.POST("", d.ProductHandler.CreateProduct)
	admin.PUT("/:id", d.ProductHandler.UpdateProduct)
	admin.DELETE("/:id", d.ProductHandler.DeleteProduct)

	cart := api.Group("/cart", requireAuth)
	cart.GET("", d.CartHandler.GetCart)
	cart.POST("", d.CartHandler.AddToCart)
	cart.PUT("/:itemId", d.CartHandler.UpdateQuantity)
	cart.DELETE("/:itemId", d.CartHandler.RemoveItem)

	wishlist := api.Group("/wishlist", requireAuth)
	wishlist.GET("", d.WishlistHandler.GetWishlist)
	wishlist.POST("", d.WishlistHandler.AddItem)
	wishlist.DELETE("/:itemId", d.WishlistHandler.RemoveItem)
}
