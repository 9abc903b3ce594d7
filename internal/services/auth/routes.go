package auth

import (
	"time"

	"github.com/gofiber/fiber/v3"

	"github.com/rajivgeraev/skillswap-api/internal/middleware"
)

// SetupRoutes настраивает маршруты для API авторизации
func (s *AuthService) SetupRoutes(app *fiber.App) {
	// Группа для API авторизации
	api := app.Group("/api/auth")

	// Регистрацию и вход ограничиваем по частоте
	limiter := middleware.NewLimiterStore(20, 5, 5*time.Minute)
	api.Use(middleware.RateLimit(limiter))

	// Маршрут для регистрации по email
	api.Post("/register", s.RegisterHandler)

	// Маршрут для подтверждения email
	api.Post("/confirm", s.ConfirmHandler)

	// Маршрут для входа
	api.Post("/login", s.LoginHandler)

	// Маршрут для входа через Telegram Mini App
	api.Post("/telegram", s.TelegramAuthHandler)
}
