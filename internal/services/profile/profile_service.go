package profile

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/rajivgeraev/skillswap-api/internal/config"
	"github.com/rajivgeraev/skillswap-api/internal/db"
	"github.com/rajivgeraev/skillswap-api/internal/models"
	"github.com/rajivgeraev/skillswap-api/internal/utils"
)

// ProfileService представляет сервис для работы с профилем пользователя
type ProfileService struct {
	cfg        *config.Config
	jwtService *utils.JWTService
}

// NewProfileService создает новый экземпляр ProfileService
func NewProfileService(cfg *config.Config) *ProfileService {
	return &ProfileService{
		cfg:        cfg,
		jwtService: utils.NewJWTService(cfg.JWTSecret),
	}
}

// GetProfile возвращает профиль текущего пользователя
func (s *ProfileService) GetProfile(c fiber.Ctx) error {
	userID := c.Locals("userID").(string)
	if userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Пользователь не авторизован"})
	}

	userUUID, err := uuid.Parse(userID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат ID пользователя"})
	}

	user, err := db.GetUserByID(userUUID)
	if err != nil {
		if errors.Is(err, db.ErrUserNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Пользователь не найден"})
		}
		log.Error().Err(err).Msg("Ошибка запроса профиля")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка получения профиля"})
	}

	return c.JSON(fiber.Map{
		"user": models.User{
			ID:            user.ID,
			Name:          user.Name,
			Bio:           user.Bio,
			AvatarURL:     user.AvatarURL,
			Skills:        user.Skills,
			SkillsToLearn: user.SkillsToLearn,
		},
	})
}

// UpdateProfile обновляет профиль: имя, описание, аватар и списки навыков
func (s *ProfileService) UpdateProfile(c fiber.Ctx) error {
	userID := c.Locals("userID").(string)
	if userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Пользователь не авторизован"})
	}

	userUUID, err := uuid.Parse(userID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат ID пользователя"})
	}

	var requestData struct {
		Name          string   `json:"name"`
		Bio           string   `json:"bio"`
		AvatarURL     string   `json:"avatar_url"`
		Skills        []string `json:"skills"`
		SkillsToLearn []string `json:"skills_to_learn"`
	}

	if err := c.Bind().Body(&requestData); err != nil {
		log.Error().Err(err).Msg("Ошибка декодирования тела запроса")
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат данных"})
	}

	requestData.Name = strings.TrimSpace(requestData.Name)
	if requestData.Name == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Имя обязательно"})
	}

	user, err := db.UpdateProfile(userUUID, requestData.Name, requestData.Bio,
		requestData.AvatarURL, requestData.Skills, requestData.SkillsToLearn)
	if err != nil {
		if errors.Is(err, db.ErrUserNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Пользователь не найден"})
		}
		log.Error().Err(err).Msg("Ошибка обновления профиля")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка сохранения профиля"})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"user": models.User{
			ID:            user.ID,
			Name:          user.Name,
			Bio:           user.Bio,
			AvatarURL:     user.AvatarURL,
			Skills:        user.Skills,
			SkillsToLearn: user.SkillsToLearn,
		},
	})
}
