package listing

import (
	"context"
	"strconv"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"

	"github.com/rajivgeraev/skillswap-api/internal/config"
	"github.com/rajivgeraev/skillswap-api/internal/db"
	"github.com/rajivgeraev/skillswap-api/internal/exchange"
	"github.com/rajivgeraev/skillswap-api/internal/models"
	"github.com/rajivgeraev/skillswap-api/internal/utils"
)

// ListingService представляет сервис для работы с объявлениями
type ListingService struct {
	cfg        *config.Config
	jwtService *utils.JWTService
	manager    *exchange.Manager
}

// NewListingService создает новый экземпляр ListingService
func NewListingService(cfg *config.Config, manager *exchange.Manager) *ListingService {
	return &ListingService{
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

// CreateListing обрабатывает создание нового объявления
func (s *ListingService) CreateListing(c fiber.Ctx) error {
	userID := c.Locals("userID").(string)
	if userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Пользователь не авторизован"})
	}

	// Преобразуем userID в UUID
	userUUID, err := uuid.Parse(userID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат ID пользователя"})
	}

	// Извлекаем данные из запроса
	var requestData struct {
		Title         string   `json:"title"`
		Description   string   `json:"description"`
		SkillsOffered []string `json:"skills_offered"`
		SkillsWanted  []string `json:"skills_wanted"`
	}

	if err := c.Bind().Body(&requestData); err != nil {
		log.Error().Err(err).Msg("Ошибка декодирования тела запроса")
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат данных"})
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	listing, err := s.manager.CreateListing(ctx, userUUID, requestData.Title,
		requestData.Description, requestData.SkillsOffered, requestData.SkillsWanted)
	if err != nil {
		return lifecycleError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success":    true,
		"listing_id": listing.ID,
		"listing":    listing,
	})
}

// GetPublicListings возвращает ленту активных объявлений
func (s *ListingService) GetPublicListings(c fiber.Ctx) error {
	skill := c.Query("skill")
	limit := 20
	offset, _ := strconv.Atoi(c.Query("offset", "0"))

	ctx, cancel := db.GetContext()
	defer cancel()

	var rows pgx.Rows
	var queryErr error

	if skill != "" {
		// Ищем навык и среди предлагаемых, и среди желаемых
		rows, queryErr = db.Pool.Query(ctx, `
            SELECT id, user_id, title, description, skills_offered, skills_wanted, status, created_at, updated_at
            FROM listings
            WHERE status = $1 AND ($2 = ANY(skills_offered) OR $2 = ANY(skills_wanted))
            ORDER BY created_at DESC
            LIMIT $3 OFFSET $4
        `, models.ListingStatusActive, skill, limit, offset)
	} else {
		rows, queryErr = db.Pool.Query(ctx, `
            SELECT id, user_id, title, description, skills_offered, skills_wanted, status, created_at, updated_at
            FROM listings
            WHERE status = $1
            ORDER BY created_at DESC
            LIMIT $2 OFFSET $3
        `, models.ListingStatusActive, limit, offset)
	}

	if queryErr != nil {
		log.Error().Err(queryErr).Msg("Ошибка запроса объявлений")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка получения объявлений"})
	}
	defer rows.Close()

	listings, err := scanListings(ctx, rows, true)
	if err != nil {
		log.Error().Err(err).Msg("Ошибка сканирования объявлений")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка получения объявлений"})
	}

	return c.JSON(fiber.Map{
		"listings": listings,
		"count":    len(listings),
	})
}

// GetMyListings возвращает список объявлений текущего пользователя
func (s *ListingService) GetMyListings(c fiber.Ctx) error {
	userID := c.Locals("userID").(string)
	if userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Пользователь не авторизован"})
	}

	userUUID, err := uuid.Parse(userID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат ID пользователя"})
	}

	// Параметры фильтрации и пагинации
	status := c.Query("status", "all") // all, active, closed
	limit := 20
	offset, _ := strconv.Atoi(c.Query("offset", "0"))

	ctx, cancel := db.GetContext()
	defer cancel()

	var rows pgx.Rows
	var queryErr error

	if status == "all" {
		rows, queryErr = db.Pool.Query(ctx, `
            SELECT id, user_id, title, description, skills_offered, skills_wanted, status, created_at, updated_at
            FROM listings
            WHERE user_id = $1
            ORDER BY updated_at DESC
            LIMIT $2 OFFSET $3
        `, userUUID, limit, offset)
	} else {
		rows, queryErr = db.Pool.Query(ctx, `
            SELECT id, user_id, title, description, skills_offered, skills_wanted, status, created_at, updated_at
            FROM listings
            WHERE user_id = $1 AND status = $2
            ORDER BY updated_at DESC
            LIMIT $3 OFFSET $4
        `, userUUID, status, limit, offset)
	}

	if queryErr != nil {
		log.Error().Err(queryErr).Msg("Ошибка запроса объявлений")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка получения объявлений"})
	}
	defer rows.Close()

	listings, err := scanListings(ctx, rows, false)
	if err != nil {
		log.Error().Err(err).Msg("Ошибка сканирования объявлений")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка получения объявлений"})
	}

	return c.JSON(fiber.Map{
		"listings": listings,
		"count":    len(listings),
	})
}

// GetListing возвращает одно объявление по ID
func (s *ListingService) GetListing(c fiber.Ctx) error {
	listingID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат ID объявления"})
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	var listing models.Listing
	err = db.Pool.QueryRow(ctx, `
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
		if err == pgx.ErrNoRows {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Объявление не найдено"})
		}
		log.Error().Err(err).Msg("Ошибка запроса объявления")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка получения объявления"})
	}

	listing.Owner = getUserInfo(ctx, listing.UserID)

	return c.JSON(fiber.Map{"listing": listing})
}

// WithdrawListing закрывает объявление по инициативе владельца
func (s *ListingService) WithdrawListing(c fiber.Ctx) error {
	userID := c.Locals("userID").(string)
	if userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Пользователь не авторизован"})
	}

	userUUID, err := uuid.Parse(userID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат ID пользователя"})
	}

	listingID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат ID объявления"})
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	if err := s.manager.WithdrawListing(ctx, listingID, userUUID); err != nil {
		return lifecycleError(c, err)
	}

	return c.JSON(fiber.Map{
		"success":    true,
		"listing_id": listingID,
		"message":    "Объявление закрыто",
	})
}

// scanListings читает строки объявлений; withOwner добавляет данные владельца
func scanListings(ctx context.Context, rows pgx.Rows, withOwner bool) ([]models.Listing, error) {
	var listings []models.Listing
	for rows.Next() {
		var listing models.Listing
		if err := rows.Scan(
			&listing.ID,
			&listing.UserID,
			&listing.Title,
			&listing.Description,
			&listing.SkillsOffered,
			&listing.SkillsWanted,
			&listing.Status,
			&listing.CreatedAt,
			&listing.UpdatedAt,
		); err != nil {
			return nil, err
		}
		listings = append(listings, listing)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if withOwner {
		for i := range listings {
			listings[i].Owner = getUserInfo(ctx, listings[i].UserID)
		}
	}

	return listings, nil
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
