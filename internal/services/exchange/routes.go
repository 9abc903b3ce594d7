package exchange

import (
	"github.com/gofiber/fiber/v3"

	"github.com/rajivgeraev/skillswap-api/internal/middleware"
)

// SetupRoutes настраивает маршруты для API заявок на обмен
func (s *ExchangeService) SetupRoutes(app *fiber.App) {
	// Группа для API заявок
	api := app.Group("/api/exchanges")

	// Защищенные маршруты (требуют авторизации)
	api.Use(middleware.AuthMiddleware(s.jwtService))

	// Маршрут для создания заявки на обмен
	api.Post("/", s.CreateRequest)

	// Маршрут для получения списка заявок
	api.Get("/", s.GetMyRequests)

	// Маршрут для решения по заявке (принять/отклонить)
	api.Put("/:id/decision", s.DecideRequest)
}
