package router

import (
	"github.com/erp/stockledger/internal/interfaces/http/handler"
	"github.com/gin-gonic/gin"
)

// ItemRoutes declares /items, its stock operations and its forecast.
// tenantScope runs before every handler in the group; it is the tenant
// resolution chain in production.
func ItemRoutes(items *handler.ItemHandler, forecasts *handler.ForecastHandler, tenantScope ...gin.HandlerFunc) *DomainGroup {
	g := NewDomainGroup("items", "/items").Use(tenantScope...)
	g.POST("", items.Create)
	g.GET("", items.List)
	g.GET("/:id", items.Get)
	g.PUT("/:id", items.Update)
	g.PATCH("/:id", items.Update)
	g.DELETE("/:id", items.Delete)
	g.PUT("/:id/quantity", items.SetQuantity)
	g.GET("/:id/movements", items.ListMovements)
	g.GET("/:id/forecast", forecasts.GetItemForecast)

	stock := g.Group("stock", "/:id/stock")
	stock.POST("/add", items.AddStock)
	stock.POST("/remove", items.RemoveStock)
	stock.POST("/adjust", items.AdjustStock)
	return g
}

// ForecastRoutes declares the tenant-wide forecast listing
func ForecastRoutes(forecasts *handler.ForecastHandler, tenantScope ...gin.HandlerFunc) *DomainGroup {
	g := NewDomainGroup("forecasts", "/forecasts").Use(tenantScope...)
	g.GET("", forecasts.ListForecasts)
	return g
}

// AdminRoutes declares tenant administration. These routes never resolve a
// tenant from the request.
func AdminRoutes(tenants *handler.TenantHandler, guard ...gin.HandlerFunc) *DomainGroup {
	g := NewDomainGroup("admin", "/admin").Use(guard...)
	t := g.Group("tenants", "/tenants")
	t.POST("", tenants.Create)
	t.GET("", tenants.List)
	t.GET("/:id", tenants.Get)
	t.PATCH("/:id", tenants.UpdateSettings)
	t.PATCH("/:id/status", tenants.UpdateStatus)
	t.DELETE("/:id", tenants.Delete)
	return g
}
