package chat

import (
	"github.com/gofiber/fiber/v3"

	"github.com/rajivgeraev/skillswap-api/internal/middleware"
)

// SetupRoutes настраивает маршруты для API диалогов
func (s *ChatService) SetupRoutes(app *fiber.App) {
	// Группа для API диалогов
	api := app.Group("/api/chats")

	// Защищенные маршруты (требуют авторизации)
	api.Use(middleware.AuthMiddleware(s.jwtService))

	// Маршрут для получения всех диалогов пользователя
	api.Get("/", s.GetChats)

	// Маршрут для получения сообщений диалога
	api.Get("/:id/messages", s.GetChatMessages)

	// Маршрут для отправки сообщения
	api.Post("/:id/messages", s.SendMessage)

	// Маршрут для отметки диалога прочитанным
	api.Post("/:id/read", s.MarkRead)
}
