package listing

import (
	"github.com/gofiber/fiber/v3"

	"github.com/rajivgeraev/skillswap-api/internal/middleware"
)

// SetupRoutes настраивает маршруты для API объявлений
func (s *ListingService) SetupRoutes(app *fiber.App) {
	// Группа для API объявлений
	api := app.Group("/api/listings")

	// Защищенные маршруты (требуют авторизации)
	api.Use(middleware.AuthMiddleware(s.jwtService))

	// Маршрут для создания объявления
	api.Post("/create", s.CreateListing)

	// Маршрут для получения списка своих объявлений
	api.Get("/my", s.GetMyListings)

	// Маршрут для получения одного объявления по ID
	api.Get("/:id", s.GetListing)

	// Маршрут для закрытия объявления владельцем
	api.Post("/:id/withdraw", s.WithdrawListing)
}

// SetupPublicRoutes настраивает публичные маршруты для объявлений
func (s *ListingService) SetupPublicRoutes(app *fiber.App) {
	// Публичная лента объявлений; живет вне /api/listings, чтобы не
	// попадать под auth middleware группы
	app.Get("/api/feed", s.GetPublicListings)
}
