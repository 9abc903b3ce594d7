package auth

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/rs/zerolog/log"
	initdata "github.com/telegram-mini-apps/init-data-golang"
	"golang.org/x/crypto/bcrypt"

	"github.com/rajivgeraev/skillswap-api/internal/config"
	"github.com/rajivgeraev/skillswap-api/internal/db"
	"github.com/rajivgeraev/skillswap-api/internal/models"
	"github.com/rajivgeraev/skillswap-api/internal/utils"
)

// AuthService – структура для обработки авторизации
type AuthService struct {
	cfg        *config.Config
	jwtService *utils.JWTService
}

// NewAuthService – конструктор AuthService
func NewAuthService(cfg *config.Config) *AuthService {
	return &AuthService{
		cfg:        cfg,
		jwtService: utils.NewJWTService(cfg.JWTSecret),
	}
}

// GetJWTService возвращает JWT сервис для middleware
func (s *AuthService) GetJWTService() *utils.JWTService {
	return s.jwtService
}

// generateConfirmationToken создает токен для письма подтверждения
func generateConfirmationToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// RegisterHandler регистрирует пользователя по email и паролю
func (s *AuthService) RegisterHandler(c fiber.Ctx) error {
	var payload struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}

	if err := c.Bind().Body(&payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат данных"})
	}

	payload.Email = strings.ToLower(strings.TrimSpace(payload.Email))
	if payload.Email == "" || !strings.Contains(payload.Email, "@") {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Укажите корректный email"})
	}
	if len(payload.Password) < 8 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Пароль должен быть не короче 8 символов"})
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(payload.Password), bcrypt.DefaultCost)
	if err != nil {
		log.Error().Err(err).Msg("Ошибка хеширования пароля")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка регистрации"})
	}

	token, err := generateConfirmationToken()
	if err != nil {
		log.Error().Err(err).Msg("Ошибка генерации токена подтверждения")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка регистрации"})
	}

	user, err := db.CreateUser(payload.Email, string(hash), token)
	if err != nil {
		if errors.Is(err, db.ErrEmailTaken) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Пользователь с таким email уже существует"})
		}
		log.Error().Err(err).Msg("Ошибка создания пользователя")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка регистрации"})
	}

	// Доставка письма — забота внешнего сервиса; здесь фиксируем факт выдачи токена
	log.Info().Str("email", user.Email).Msg("Выдан токен подтверждения email")

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"user_id": user.ID,
		"message": "Проверьте почту для подтверждения адреса",
	})
}

// ConfirmHandler подтверждает email по токену из письма
func (s *AuthService) ConfirmHandler(c fiber.Ctx) error {
	var payload struct {
		Token string `json:"token"`
	}

	if err := c.Bind().Body(&payload); err != nil || payload.Token == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Токен не указан"})
	}

	user, err := db.ConfirmEmail(payload.Token)
	if err != nil {
		if errors.Is(err, db.ErrUserNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Токен недействителен или уже использован"})
		}
		log.Error().Err(err).Msg("Ошибка подтверждения email")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка подтверждения email"})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"user_id": user.ID,
	})
}

// LoginHandler проверяет пароль и выдает JWT
func (s *AuthService) LoginHandler(c fiber.Ctx) error {
	var payload struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}

	if err := c.Bind().Body(&payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат данных"})
	}

	payload.Email = strings.ToLower(strings.TrimSpace(payload.Email))

	user, err := db.GetUserByEmail(payload.Email)
	if err != nil {
		if errors.Is(err, db.ErrUserNotFound) {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Неверный email или пароль"})
		}
		log.Error().Err(err).Msg("Ошибка запроса пользователя")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка входа"})
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(payload.Password)); err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Неверный email или пароль"})
	}

	if !user.EmailConfirmed {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Подтвердите email перед входом"})
	}

	jwtToken, err := s.jwtService.GenerateToken(user.ID)
	if err != nil {
		log.Error().Err(err).Msg("Ошибка генерации JWT")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to generate JWT"})
	}

	if err := db.TouchLastLogin(user.ID); err != nil {
		log.Warn().Err(err).Msg("Ошибка обновления отметки входа")
	}

	return c.JSON(fiber.Map{
		"token": jwtToken,
		"user":  publicUser(user),
	})
}

// TelegramAuthHandler проверяет initData, создает JWT и возвращает его
func (s *AuthService) TelegramAuthHandler(c fiber.Ctx) error {
	if s.cfg.TelegramBotToken == "" {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Вход через Telegram отключен"})
	}

	var payload struct {
		InitData string `json:"init_data"`
	}

	if err := c.Bind().Body(&payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request"})
	}

	// Проверяем initData
	expiration := 24 * time.Hour
	if err := initdata.Validate(payload.InitData, s.cfg.TelegramBotToken, expiration); err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid Telegram data"})
	}

	// Парсим данные
	data, err := initdata.Parse(payload.InitData)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Failed to parse initData"})
	}

	// В raw_data кладем разобранные данные: колонка JSONB, сырая строка
	// initData не является валидным JSON
	rawData, err := json.Marshal(data)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Failed to parse initData"})
	}

	user, err := db.CreateOrUpdateTelegramUser(
		data.User.ID, data.User.Username, data.User.FirstName, data.User.LastName,
		data.User.PhotoURL, rawData,
	)
	if err != nil {
		log.Error().Err(err).Msg("Ошибка сохранения пользователя Telegram")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка входа"})
	}

	// Генерируем JWT
	jwtToken, err := s.jwtService.GenerateToken(user.ID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to generate JWT"})
	}

	return c.JSON(fiber.Map{
		"token": jwtToken,
		"user":  publicUser(user),
	})
}

// publicUser убирает из ответа служебные поля пользователя
func publicUser(u *db.User) *models.User {
	return &models.User{
		ID:            u.ID,
		Name:          u.Name,
		Bio:           u.Bio,
		AvatarURL:     u.AvatarURL,
		Skills:        u.Skills,
		SkillsToLearn: u.SkillsToLearn,
	}
}
