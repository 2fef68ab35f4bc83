package main

import (
	"errors"
	"log"
	"strings"

	"imalat-backend/internal/audit"
	"imalat-backend/internal/auth"
	"imalat-backend/internal/config"
	"imalat-backend/internal/customer"
	"imalat-backend/internal/database"
	"imalat-backend/internal/delivery"
	"imalat-backend/internal/inventory"
	"imalat-backend/internal/models"
	"imalat-backend/internal/order"
	"imalat-backend/internal/stock"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
)

func main() {
	cfg := config.Load()
	database.Init(cfg)

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			var de *stock.DomainError
			if errors.As(err, &de) {
				return c.Status(de.Status).JSON(fiber.Map{
					"code":  de.Code,
					"error": de.Message,
				})
			}
			if e, ok := err.(*fiber.Error); ok {
				return c.Status(e.Code).JSON(fiber.Map{
					"error": e.Message,
				})
			}
			log.Println("Unexpected error:", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Beklenmeyen sunucu hatası",
			})
		},
	})

	corsOrigins := strings.Split(cfg.CORSOrigins, ",")
	for i := range corsOrigins {
		corsOrigins[i] = strings.TrimSpace(corsOrigins[i])
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins: strings.Join(corsOrigins, ","),
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
	}))

	deliverySvc := delivery.NewService(database.DB)

	api := app.Group("/api")

	// Public auth
	api.Post("/auth/register-admin", auth.RegisterAdminHandler(cfg))
	api.Post("/auth/login", auth.LoginHandler(cfg))

	// Protected
	protected := api.Group("")
	protected.Use(auth.JWTMiddleware(cfg))

	protected.Get("/auth/me", auth.MeHandler())

	// Müşteriler
	protected.Get("/customers", customer.ListCustomersHandler())
	protected.Get("/customers/:id", customer.GetCustomerHandler())
	protected.Post("/customers", customer.CreateCustomerHandler())
	protected.Put("/customers/:id", customer.UpdateCustomerHandler())
	protected.Delete("/customers/:id", customer.DeleteCustomerHandler())

	// Ürünler
	protected.Get("/products", inventory.ListProductsHandler())
	protected.Get("/products/:id", inventory.GetProductHandler())
	protected.Post("/products", inventory.CreateProductHandler())
	protected.Put("/products/:id", inventory.UpdateProductHandler())
	protected.Delete("/products/:id", inventory.DeleteProductHandler())

	// Siparişler
	protected.Post("/orders", order.CreateOrderHandler())
	protected.Get("/orders", order.ListOrdersHandler())
	protected.Get("/orders/:id", order.GetOrderHandler())
	protected.Put("/orders/:id/status", order.UpdateOrderStatusHandler())
	protected.Delete("/orders/:id", order.DeleteOrderHandler())

	// İrsaliyeler
	protected.Post("/deliveries", delivery.CreateDeliveryHandler(deliverySvc))
	protected.Get("/deliveries", delivery.ListDeliveriesHandler())
	protected.Get("/deliveries/:id", delivery.GetDeliveryHandler())
	protected.Put("/deliveries/:id", delivery.UpdateDeliveryHandler(deliverySvc))
	protected.Delete("/deliveries/:id", delivery.RemoveDeliveryHandler(deliverySvc))

	// Stok defteri
	protected.Get("/stock-movements", stock.ListStockMovementsHandler())
	protected.Post("/stock-movements", stock.CreateStockMovementHandler())
	protected.Delete("/stock-movements/:id", stock.DeleteStockMovementHandler())
	protected.Get("/stock-integrity", stock.StockIntegrityReportHandler())

	// Audit logs
	protected.Get("/audit-logs", audit.ListAuditLogsHandler())

	// Admin: mutabakat sayaçları yeniden yazar, yetki ister
	adminRoutes := protected.Group("")
	adminRoutes.Use(auth.RequireRole(models.RoleAdmin))
	adminRoutes.Post("/stock-reconcile", stock.ReconcileStockHandler())

	log.Println("Server çalışıyor port:", cfg.HTTPPort)
	if err := app.Listen(":" + cfg.HTTPPort); err != nil {
		log.Fatal(err)
	}
}
