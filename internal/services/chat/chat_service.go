package chat

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/rajivgeraev/skillswap-api/internal/config"
	"github.com/rajivgeraev/skillswap-api/internal/db"
	"github.com/rajivgeraev/skillswap-api/internal/exchange"
	"github.com/rajivgeraev/skillswap-api/internal/models"
	"github.com/rajivgeraev/skillswap-api/internal/utils"
	"github.com/rajivgeraev/skillswap-api/internal/websocket"
)

// ChatService представляет сервис для работы с диалогами
type ChatService struct {
	cfg        *config.Config
	jwtService *utils.JWTService
	manager    *exchange.Manager
	wsManager  *websocket.Manager
}

// NewChatService создает новый экземпляр ChatService
func NewChatService(cfg *config.Config, manager *exchange.Manager, wsManager *websocket.Manager) *ChatService {
	return &ChatService{
		cfg:        cfg,
		jwtService: utils.NewJWTService(cfg.JWTSecret),
		manager:    manager,
		wsManager:  wsManager,
	}
}

// lifecycleError переводит ошибку жизненного цикла в HTTP ответ
func lifecycleError(c fiber.Ctx, err error) error {
	status := exchange.HTTPStatus(err)
	message := err.Error()
	if status == fiber.StatusInternalServerError {
		log.Error().Err(err).Msg("Внутренняя ошибка")
		message = "Внутренняя ошибка сервера"
	}
	return c.Status(status).JSON(fiber.Map{
		"error": message,
		"code":  exchange.Code(err),
	})
}

// GetChats возвращает список диалогов пользователя
func (s *ChatService) GetChats(c fiber.Ctx) error {
	userID := c.Locals("userID").(string)
	if userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Пользователь не авторизован"})
	}

	userUUID, err := uuid.Parse(userID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат ID пользователя"})
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	// Непрочитанные считаем от чужих сообщений после моей отметки прочтения
	query := `
        SELECT c.id, c.listing_id, c.owner_id, c.requester_id, c.status, c.created_at,
               c.last_message_text, c.last_message_time,
               (SELECT COUNT(*) FROM messages m
                WHERE m.conversation_id = c.id
                  AND m.sender_id != $1
                  AND m.created_at > COALESCE(
                      CASE WHEN c.owner_id = $1 THEN c.owner_last_read_at
                           ELSE c.requester_last_read_at END,
                      'epoch'::timestamptz)) AS unread_count
        FROM conversations c
        WHERE c.owner_id = $1 OR c.requester_id = $1
        ORDER BY c.last_message_time DESC NULLS LAST, c.created_at DESC
    `

	rows, err := db.Pool.Query(ctx, query, userUUID)
	if err != nil {
		log.Error().Err(err).Msg("Ошибка запроса диалогов")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка получения диалогов"})
	}
	defer rows.Close()

	var conversations []models.Conversation
	for rows.Next() {
		var conversation models.Conversation
		if err := rows.Scan(
			&conversation.ID,
			&conversation.ListingID,
			&conversation.OwnerID,
			&conversation.RequesterID,
			&conversation.Status,
			&conversation.CreatedAt,
			&conversation.LastMessageText,
			&conversation.LastMessageTime,
			&conversation.UnreadCount,
		); err != nil {
			log.Error().Err(err).Msg("Ошибка сканирования строки")
			continue
		}

		// Данные второго участника и объявления
		conversation.Interlocutor = getUserInfo(ctx, conversation.OtherParticipant(userUUID))
		conversation.Listing = getListingInfo(ctx, conversation.ListingID)

		conversations = append(conversations, conversation)
	}

	return c.JSON(fiber.Map{
		"chats": conversations,
		"count": len(conversations),
	})
}

// GetChatMessages возвращает сообщения диалога по возрастанию времени
func (s *ChatService) GetChatMessages(c fiber.Ctx) error {
	userID := c.Locals("userID").(string)
	if userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Пользователь не авторизован"})
	}

	userUUID, err := uuid.Parse(userID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат ID пользователя"})
	}

	conversationID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат ID диалога"})
	}

	// Пагинация: after — ID последнего уже полученного сообщения
	after := uuid.Nil
	if afterParam := c.Query("after"); afterParam != "" {
		after, err = uuid.Parse(afterParam)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат ID сообщения"})
		}
	}
	limit, _ := strconv.Atoi(c.Query("limit", "50"))

	ctx, cancel := db.GetContext()
	defer cancel()

	messages, err := s.manager.ListMessages(ctx, conversationID, userUUID, after, limit)
	if err != nil {
		return lifecycleError(c, err)
	}

	// Добавляем информацию об отправителях
	for i := range messages {
		messages[i].Sender = getUserInfo(ctx, messages[i].SenderID)
	}

	return c.JSON(fiber.Map{
		"messages": messages,
		"count":    len(messages),
	})
}

// SendMessage отправляет новое сообщение в диалог
func (s *ChatService) SendMessage(c fiber.Ctx) error {
	userID := c.Locals("userID").(string)
	if userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Пользователь не авторизован"})
	}

	userUUID, err := uuid.Parse(userID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат ID пользователя"})
	}

	conversationID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат ID диалога"})
	}

	// Получаем данные запроса
	var requestData struct {
		Content string `json:"content"`
	}

	if err := c.Bind().Body(&requestData); err != nil {
		log.Error().Err(err).Msg("Ошибка чтения тела запроса")
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат данных"})
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	message, err := s.manager.PostMessage(ctx, conversationID, userUUID, requestData.Content)
	if err != nil {
		return lifecycleError(c, err)
	}

	message.Sender = getUserInfo(ctx, userUUID)

	// Уведомляем второго участника; доставка не гарантируется, клиент
	// в любом случае дочитает сообщения обычным запросом
	s.notifyParticipant(ctx, conversationID, userUUID, message)

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": message,
		"success": true,
	})
}

// MarkRead отмечает диалог прочитанным
func (s *ChatService) MarkRead(c fiber.Ctx) error {
	userID := c.Locals("userID").(string)
	if userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Пользователь не авторизован"})
	}

	userUUID, err := uuid.Parse(userID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат ID пользователя"})
	}

	conversationID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат ID диалога"})
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	if err := s.manager.MarkRead(ctx, conversationID, userUUID); err != nil {
		return lifecycleError(c, err)
	}

	return c.JSON(fiber.Map{"success": true})
}

// notifyParticipant отправляет WebSocket событие второму участнику диалога
func (s *ChatService) notifyParticipant(ctx context.Context, conversationID, senderID uuid.UUID, message *models.Message) {
	conversation, err := s.manager.GetConversation(ctx, conversationID, senderID)
	if err != nil {
		log.Warn().Err(err).Msg("Ошибка получения диалога для уведомления")
		return
	}

	payload, err := json.Marshal(message)
	if err != nil {
		log.Warn().Err(err).Msg("Ошибка сериализации сообщения")
		return
	}

	s.wsManager.SendToUser(conversation.OtherParticipant(senderID).String(), websocket.Event{
		Type:           websocket.EventNewMessage,
		ConversationID: conversationID.String(),
		MessageID:      message.ID.String(),
		UserID:         senderID.String(),
		Timestamp:      time.Now(),
		Payload:        payload,
	})
}

// getUserInfo получает информацию о пользователе
func getUserInfo(ctx context.Context, userID uuid.UUID) *models.User {
	var user models.User
	err := db.Pool.QueryRow(ctx, `
        SELECT id, name, avatar_url, skills, skills_to_learn
        FROM users
        WHERE id = $1
    `, userID).Scan(
		&user.ID,
		&user.Name,
		&user.AvatarURL,
		&user.Skills,
		&user.SkillsToLearn,
	)

	if err != nil {
		log.Warn().Err(err).Str("user_id", userID.String()).Msg("Ошибка получения пользователя")
		return nil
	}

	return &user
}

// getListingInfo получает краткую информацию об объявлении
func getListingInfo(ctx context.Context, listingID uuid.UUID) *models.Listing {
	var listing models.Listing
	err := db.Pool.QueryRow(ctx, `
        SELECT id, user_id, title, description, skills_offered, skills_wanted, status, created_at, updated_at
        FROM listings
        WHERE id = $1
    `, listingID).Scan(
		&listing.ID,
		&listing.UserID,
		&listing.Title,
		&listing.Description,
		&listing.SkillsOffered,
		&listing.SkillsWanted,
		&listing.Status,
		&listing.CreatedAt,
		&listing.UpdatedAt,
	)

	if err != nil {
		log.Warn().Err(err).Str("listing_id", listingID.String()).Msg("Ошибка получения объявления")
		return nil
	}

	return &listing
}
