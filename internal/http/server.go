// README: API gateway; registers gin routes and delegates to module services.
package http

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"village/internal/http/handlers"
	"village/internal/http/middleware"
	"village/internal/infra"
	"village/internal/maps"
	"village/internal/modules/assist"
	"village/internal/modules/cart"
	"village/internal/modules/catalog"
	"village/internal/modules/order"
	"village/internal/modules/pricing"
	"village/internal/modules/user"
	"village/internal/session"
)

type ServerDeps struct {
	Order    *order.Service
	Cart     *cart.Service
	Pricing  *pricing.Service
	Catalog  *catalog.Catalog
	Sessions *session.Store
	Users    *user.Service
	Assist   *assist.Service
	// Places may be nil when no Maps key is configured.
	Places   *maps.PlacesService
	Verifier infra.TokenVerifier

	CORSOrigins    []string
	RequestTimeout time.Duration
}

type Server struct {
	deps ServerDeps
}

func NewServer(deps ServerDeps) *Server {
	return &Server{deps: deps}
}

func (s *Server) Routes() *gin.Engine {
	d := s.deps
	r := gin.New()
	r.Use(middleware.Recovery(), middleware.Logging(), cors.New(corsConfig(d.CORSOrigins)), middleware.Timeout(d.RequestTimeout))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	quotes := handlers.NewQuoteHandler(d.Pricing, d.Catalog)
	directory := handlers.NewDirectoryHandler(d.Catalog, d.Places)
	sessions := handlers.NewSessionHandler(d.Sessions)
	carts := handlers.NewCartHandler(d.Cart, d.Catalog)
	orders := handlers.NewOrderHandler(d.Order, d.Users)
	profiles := handlers.NewProfileHandler(d.Users)
	assistant := handlers.NewAssistHandler(d.Assist)
	admin := handlers.NewAdminHandler(d.Order)

	api := r.Group("/api")
	api.GET("/quotes/ride", quotes.Ride)
	api.GET("/quotes/delivery", quotes.Delivery)
	api.GET("/shops", directory.Shops)
	api.GET("/places", directory.Places)

	authed := api.Group("", middleware.Auth(d.Verifier))
	authed.POST("/session", sessions.Create)
	authed.POST("/orders/transport", orders.Transport)
	authed.POST("/orders/service", orders.Service)
	authed.GET("/orders", orders.List)
	authed.GET("/orders/:id", orders.Get)
	authed.POST("/orders/:id/cancel", orders.Cancel)
	authed.GET("/me", profiles.Me)
	authed.PUT("/me/addresses", profiles.SaveAddress)
	authed.DELETE("/me/addresses/:label", profiles.RemoveAddress)
	authed.POST("/assist/custom-order", assistant.CustomOrder)
	authed.GET("/assist/quota", assistant.Quota)

	sess := authed.Group("", middleware.Session(d.Sessions))
	sess.DELETE("/session", sessions.Delete)
	sess.GET("/cart", carts.Get)
	sess.DELETE("/cart", carts.Clear)
	sess.POST("/cart/items", carts.AddItem)
	sess.PUT("/cart/items/:id", carts.UpdateQuantity)
	sess.DELETE("/cart/items/:id", carts.Remove)
	sess.POST("/cart/items/:id/increment", carts.Increment)
	sess.POST("/cart/items/:id/decrement", carts.Decrement)
	sess.PUT("/cart/custom", carts.SetCustomOrder)
	sess.POST("/orders/shopping", orders.Shopping)

	staff := authed.Group("/admin", middleware.RequireRole(middleware.RoleAdmin, middleware.RoleTeam))
	staff.GET("/orders", admin.List)
	staff.GET("/orders/:id", admin.Get)
	staff.POST("/orders/:id/status", admin.AppendStatus)

	return r
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.DefaultConfig()
	cfg.AllowHeaders = append(cfg.AllowHeaders, "Authorization", middleware.SessionHeader)
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cfg
}
