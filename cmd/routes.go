package main

import (
	"tabletop/internal/handlers"
	"tabletop/internal/metrics"
	"tabletop/internal/middleware"
	"tabletop/internal/models"

	_ "tabletop/docs"

	"github.com/labstack/echo/v4"
	echoSwagger "github.com/swaggo/echo-swagger"
)

type routeHandlers struct {
	auth      *handlers.AuthHandlers
	tenants   *handlers.TenantHandlers
	staff     *handlers.StaffHandlers
	tables    *handlers.TableHandlers
	products  *handlers.ProductHandlers
	orders    *handlers.OrderHandlers
	dashboard *handlers.DashboardHandlers
	reports   *handlers.ReportHandlers
	audit     *handlers.AuditLogsHandlers
	health    *handlers.HealthHandlers
}

func registerRoutes(e *echo.Echo, h *routeHandlers, sessions *middleware.SessionMiddleware, guard *middleware.Guard, versions *middleware.VersionMiddleware, m *metrics.Metrics) {
	e.Pre(versions.APIVersionResolver())

	e.GET("/health", h.health.HealthCheck)
	e.GET("/health/ready", h.health.ReadinessCheck)
	e.GET("/health/live", h.health.LivenessCheck)
	e.GET("/metrics", echo.WrapHandler(m.Handler()))
	e.GET("/swagger/*", echoSwagger.WrapHandler)
	e.GET("/logout", h.auth.LogoutRedirect)

	v1 := e.Group("/v1", versions.VersionHeader("v1"))

	// public
	v1.POST("/register", h.auth.Register)
	v1.POST("/auth/login", h.auth.Login)
	v1.POST("/auth/logout", h.auth.Logout)

	authenticated := sessions.Authenticate()
	anyStaff := guard.RequireRole(models.RoleAdmin, models.RoleWaiter)

	v1.GET("/me", h.staff.Me, authenticated, anyStaff)

	admin := v1.Group("/admin", authenticated, guard.RequireRole(models.RoleAdmin))
	admin.GET("/settings", h.tenants.GetSettings)
	admin.PUT("/settings", h.tenants.UpdateSettings)

	admin.GET("/staff", h.staff.ListStaff)
	admin.GET("/waiters", h.staff.ListWaiters)
	admin.POST("/waiters", h.auth.CreateWaiter)
	admin.DELETE("/waiters/:id", h.staff.RemoveWaiter)

	admin.GET("/tables", h.tables.ListTables)
	admin.POST("/tables", h.tables.CreateTable)
	admin.GET("/tables/:id", h.tables.GetTable)
	admin.DELETE("/tables/:id", h.tables.DeleteTable)

	admin.GET("/products", h.products.ListProducts)
	admin.POST("/products", h.products.CreateProduct)
	admin.GET("/products/:id", h.products.GetProduct)
	admin.PUT("/products/:id", h.products.UpdateProduct)
	admin.DELETE("/products/:id", h.products.DeleteProduct)
	admin.POST("/products/:id/toggle", h.products.ToggleProduct)
	admin.PUT("/products/:id/stock", h.products.UpdateStock)
	admin.GET("/stock", h.products.ListStock)

	admin.GET("/orders", h.orders.ListOrders)
	admin.GET("/orders/daily-total", h.orders.DailyTotal)
	admin.GET("/orders/:id", h.orders.GetOrder)
	admin.POST("/orders/:id/pay", h.orders.Pay)

	admin.GET("/reports", h.reports.Sales)
	admin.GET("/reports/archives", h.reports.ListArchives)
	admin.GET("/audit-logs", h.audit.ListAuditLogs)

	waiter := v1.Group("/waiter", authenticated, anyStaff)
	waiter.GET("/dashboard", h.dashboard.Snapshot)
	waiter.GET("/dashboard/stream", h.dashboard.Stream)
	waiter.GET("/menu", h.products.Menu)
	waiter.GET("/tables", h.tables.ListTables)
	waiter.GET("/tables/:id", h.tables.GetTable)
	waiter.GET("/tables/:id/order", h.orders.GetActiveOrder)
	waiter.POST("/tables/:id/items", h.orders.AddItem)
	waiter.GET("/orders/:id", h.orders.GetOrder)
	waiter.POST("/orders/:id/items", h.orders.AddItemToOrder)
	waiter.POST("/orders/:id/send", h.orders.SendToKitchen)
	waiter.PATCH("/items/:id", h.orders.UpdateItem)
	waiter.DELETE("/items/:id", h.orders.RemoveItem)
}
