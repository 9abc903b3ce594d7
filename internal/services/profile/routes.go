package profile

import (
	"github.com/gofiber/fiber/v3"

	"github.com/rajivgeraev/skillswap-api/internal/middleware"
)

// SetupRoutes настраивает маршруты для API профиля
func (s *ProfileService) SetupRoutes(app *fiber.App) {
	// Группа для API профиля
	api := app.Group("/api/profile")

	// Защищенные маршруты (требуют авторизации)
	api.Use(middleware.AuthMiddleware(s.jwtService))

	// Маршрут для получения своего профиля
	api.Get("/", s.GetProfile)

	// Маршрут для обновления профиля
	api.Put("/", s.UpdateProfile)
}
