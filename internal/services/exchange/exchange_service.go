package exchange

import (
	"context"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/rajivgeraev/skillswap-api/internal/config"
	"github.com/rajivgeraev/skillswap-api/internal/db"
	"github.com/rajivgeraev/skillswap-api/internal/exchange"
	"github.com/rajivgeraev/skillswap-api/internal/models"
	"github.com/rajivgeraev/skillswap-api/internal/utils"
)

// ExchangeService представляет сервис для работы с заявками на обмен
type ExchangeService struct {
	cfg        *config.Config
	jwtService *utils.JWTService
	manager    *exchange.Manager
}

// NewExchangeService создает новый экземпляр ExchangeService
func NewExchangeService(cfg *config.Config, manager *exchange.Manager) *ExchangeService {
	return &ExchangeService{
		cfg:        cfg,
		jwtService: utils.NewJWTService(cfg.JWTSecret),
		manager:    manager,
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

// CreateRequest создает новую заявку на обмен
func (s *ExchangeService) CreateRequest(c fiber.Ctx) error {
	userID := c.Locals("userID").(string)
	if userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Пользователь не авторизован"})
	}

	requesterID, err := uuid.Parse(userID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат ID пользователя"})
	}

	// Извлекаем данные из запроса
	var requestData struct {
		ListingID string `json:"listing_id"`
		Message   string `json:"message"`
	}

	if err := c.Bind().Body(&requestData); err != nil {
		log.Error().Err(err).Msg("Ошибка декодирования тела запроса")
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат данных"})
	}

	if requestData.ListingID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "ID объявления не указан"})
	}

	listingID, err := uuid.Parse(requestData.ListingID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат ID объявления"})
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	request, err := s.manager.SubmitRequest(ctx, listingID, requesterID, requestData.Message)
	if err != nil {
		return lifecycleError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success":    true,
		"request_id": request.ID,
		"request":    request,
		"message":    "Заявка на обмен отправлена",
	})
}

// GetMyRequests возвращает список входящих и исходящих заявок на обмен
func (s *ExchangeService) GetMyRequests(c fiber.Ctx) error {
	userID := c.Locals("userID").(string)
	if userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Пользователь не авторизован"})
	}

	userUUID, err := uuid.Parse(userID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат ID пользователя"})
	}

	// Получаем тип заявок (входящие/исходящие/все)
	requestType := c.Query("type", "all") // all, incoming, outgoing
	status := c.Query("status", "all")    // all, pending, accepted, rejected

	ctx, cancel := db.GetContext()
	defer cancel()

	// Входящие — заявки на мои объявления, исходящие — мои заявки
	query := `
        SELECT r.id, r.listing_id, r.requester_id, r.message, r.status, r.created_at, r.decided_at
        FROM exchange_requests r
        JOIN listings l ON l.id = r.listing_id
        WHERE `
	var args []interface{}

	switch requestType {
	case "incoming":
		query += `l.user_id = $1`
		args = append(args, userUUID)
	case "outgoing":
		query += `r.requester_id = $1`
		args = append(args, userUUID)
	default:
		query += `(l.user_id = $1 OR r.requester_id = $1)`
		args = append(args, userUUID)
	}

	if status != "all" {
		query += ` AND r.status = $2`
		args = append(args, status)
	}
	query += ` ORDER BY r.created_at DESC`

	rows, err := db.Pool.Query(ctx, query, args...)
	if err != nil {
		log.Error().Err(err).Msg("Ошибка запроса заявок на обмен")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка получения заявок"})
	}
	defer rows.Close()

	var requests []models.ExchangeRequest
	for rows.Next() {
		var request models.ExchangeRequest
		if err := rows.Scan(
			&request.ID,
			&request.ListingID,
			&request.RequesterID,
			&request.Message,
			&request.Status,
			&request.CreatedAt,
			&request.DecidedAt,
		); err != nil {
			log.Error().Err(err).Msg("Ошибка сканирования строки")
			continue
		}

		// Загружаем дополнительную информацию об объявлении и пользователях
		request.Listing = getListingInfo(ctx, request.ListingID)
		request.Requester = getUserInfo(ctx, request.RequesterID)
		if request.Listing != nil {
			request.Owner = getUserInfo(ctx, request.Listing.UserID)
		}

		// Для принятой заявки подтягиваем ID диалога
		if request.Status == models.RequestStatusAccepted {
			var conversationID uuid.UUID
			err = db.Pool.QueryRow(ctx, `
                SELECT id FROM conversations WHERE listing_id = $1 AND requester_id = $2
            `, request.ListingID, request.RequesterID).Scan(&conversationID)
			if err == nil {
				request.ConversationID = &conversationID
			}
		}

		requests = append(requests, request)
	}

	return c.JSON(fiber.Map{
		"requests": requests,
		"count":    len(requests),
	})
}

// DecideRequest принимает или отклоняет заявку на обмен
func (s *ExchangeService) DecideRequest(c fiber.Ctx) error {
	userID := c.Locals("userID").(string)
	if userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Пользователь не авторизован"})
	}

	deciderID, err := uuid.Parse(userID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат ID пользователя"})
	}

	requestID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат ID заявки"})
	}

	// Получаем решение из запроса
	var requestData struct {
		Decision string `json:"decision"` // accepted, rejected
	}

	if err := c.Bind().Body(&requestData); err != nil {
		log.Error().Err(err).Msg("Ошибка декодирования тела запроса")
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат данных"})
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	request, conversation, err := s.manager.DecideRequest(ctx, requestID, deciderID, requestData.Decision)
	if err != nil {
		return lifecycleError(c, err)
	}

	// Формируем сообщение в зависимости от решения
	message := "Заявка отклонена"
	if request.Status == models.RequestStatusAccepted {
		message = "Заявка принята, объявление закрыто"
	}

	response := fiber.Map{
		"success":    true,
		"message":    message,
		"request_id": request.ID,
		"status":     request.Status,
	}

	// Если был создан диалог, включаем его ID в ответ
	if conversation != nil {
		response["conversation_id"] = conversation.ID
	}

	return c.JSON(response)
}

// getListingInfo получает информацию об объявлении
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
