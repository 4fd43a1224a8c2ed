package handlers

import "github.com/gofiber/fiber/v2"

// Routes mounts the API surface. Order matters: /orders/myorders must
// register before /orders/:id.
func Routes(app *fiber.App, d *Deps) {
	api := app.Group("/api")

	auth := api.Group("/auth")
	auth.Post("/register", d.AuthHandler.Register)
	auth.Post("/login", d.AuthHandler.Login)
	auth.Post("/logout", d.AuthHandler.Logout)
	auth.Get("/me", RequireUser(d.Auth), d.AuthHandler.Me)

	products := api.Group("/products")
	products.Get("/", d.ProductHandler.List)
	products.Post("/", RequireAdmin(d.Auth), d.ProductHandler.Create)
	products.Get("/:id/availability", d.ProductHandler.Availability)
	products.Get("/:id", d.ProductHandler.Detail)
	products.Put("/:id", RequireAdmin(d.Auth), d.ProductHandler.Update)
	products.Delete("/:id", RequireAdmin(d.Auth), d.ProductHandler.Delete)

	orders := api.Group("/orders")
	orders.Post("/", RequireUser(d.Auth), d.OrderHandler.Place)
	orders.Get("/", RequireAdmin(d.Auth), d.OrderHandler.List)
	orders.Get("/myorders", RequireUser(d.Auth), d.OrderHandler.MyOrders)
	orders.Get("/:id", RequireUser(d.Auth), d.OrderHandler.View)
	orders.Put("/:id/pay", RequireUser(d.Auth), d.OrderHandler.Pay)
	orders.Put("/:id/status", RequireAdmin(d.Auth), d.OrderHandler.UpdateStatus)
}
