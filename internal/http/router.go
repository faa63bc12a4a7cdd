package http

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/maysqunaibi/strollers-backend/internal/http/handlers"
	"github.com/maysqunaibi/strollers-backend/internal/http/middleware"
)

// Deps carries the wired handlers into the router so main stays the only
// place that knows construction order.
type Deps struct {
	Logger   *slog.Logger
	Rentals  *handlers.RentalHandler
	Callback *handlers.CallbackHandler
	Orders   *handlers.OrdersHandler
	Packages *handlers.PackagesHandler
	Devices  *handlers.DevicesHandler
}

func NewRouter(d Deps) *gin.Engine {
	r := gin.New()

	r.Use(
		middleware.RequestID(),
		middleware.Logger(d.Logger),
		middleware.Recovery(d.Logger),
		middleware.ErrorHandler(d.Logger),
	)

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// The vendor posts return notifications here. Registered at both paths:
	// the bare one is what we hand the vendor, the /api one is kept for
	// deployments that already registered it.
	r.POST("/handcart/callback", d.Callback.HandleReturn)
	r.POST("/api/handcart/callback", d.Callback.HandleReturn)

	api := r.Group("/api")
	{
		api.POST("/handcart/confirm-unlock", d.Rentals.ConfirmUnlock)

		api.GET("/orders/open", d.Orders.Open)
		api.GET("/orders/recent", d.Orders.Recent)
		api.GET("/orders/:id", d.Orders.Get)
		api.POST("/orders/:id/return", d.Orders.MarkReturned)
		api.POST("/orders/:id/cancel", d.Orders.Cancel)

		api.GET("/packages", d.Packages.List)

		api.GET("/site/list", d.Devices.SiteList)
		api.GET("/site/:siteNo/slots", d.Devices.SiteSlots)
		api.GET("/site/:siteNo/meals", d.Devices.SiteMeals)
		api.GET("/site/:siteNo/default-meals", d.Devices.SiteDefaultMeals)
		api.POST("/site/add", d.Devices.SiteAdd)
		api.POST("/site/update", d.Devices.SiteUpdate)
		api.POST("/site/remove", d.Devices.SiteRemove)
		api.POST("/setMeal/save", d.Devices.SetMealSave)

		api.GET("/device/:deviceNo/info", d.Devices.DeviceInfo)
		api.GET("/device/:deviceNo/params", d.Devices.DeviceParams)
		api.POST("/device-status", d.Devices.DeviceStatus)
		api.POST("/device/score", d.Devices.DeviceScore)
		api.POST("/bind", d.Devices.Bind)
		api.POST("/unbind", d.Devices.Unbind)

		api.POST("/handcart/list", d.Devices.HandcartList)
		api.POST("/handcart/bind", d.Devices.HandcartBind)
		api.POST("/handcart/unbind", d.Devices.HandcartUnbind)
	}

	return r
}
