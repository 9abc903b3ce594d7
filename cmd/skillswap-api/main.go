package main

import (
	"net/http"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/gofiber/fiber/v3/middleware/recover"
	zlog "github.com/rs/zerolog/log"

	"github.com/rajivgeraev/skillswap-api/internal/config"
	"github.com/rajivgeraev/skillswap-api/internal/db"
	"github.com/rajivgeraev/skillswap-api/internal/exchange"
	"github.com/rajivgeraev/skillswap-api/internal/logger"
	"github.com/rajivgeraev/skillswap-api/internal/services/auth"
	"github.com/rajivgeraev/skillswap-api/internal/services/chat"
	"github.com/rajivgeraev/skillswap-api/internal/services/cloudinary"
	exchangesvc "github.com/rajivgeraev/skillswap-api/internal/services/exchange"
	"github.com/rajivgeraev/skillswap-api/internal/services/favorite"
	"github.com/rajivgeraev/skillswap-api/internal/services/listing"
	"github.com/rajivgeraev/skillswap-api/internal/services/profile"
	"github.com/rajivgeraev/skillswap-api/internal/websocket"
)

func main() {
	// Загружаем конфигурацию
	cfg := config.LoadConfig()

	// Настраиваем логгер
	zlog.Logger = logger.Setup(cfg)

	// Инициализируем базу данных
	if err := db.InitDB(cfg); err != nil {
		zlog.Fatal().Err(err).Msg("❌ Ошибка при инициализации базы данных")
	}
	defer db.CloseDB()

	// Создаём экземпляр Fiber
	app := fiber.New(fiber.Config{
		AppName:      "SkillSwap API (MVP)",
		ErrorHandler: errorHandler,
	})

	// Добавляем middleware
	app.Use(recover.New())
	app.Use(fiberlogger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowCredentials: false,
	}))

	// Ядро жизненного цикла обмена
	manager := exchange.NewManager(db.Pool)

	// Менеджер WebSocket соединений
	wsManager := websocket.NewManager()
	defer wsManager.Shutdown()

	// Создаём сервисы
	authService := auth.NewAuthService(cfg)
	profileService := profile.NewProfileService(cfg)
	cloudinaryService := cloudinary.NewCloudinaryService(cfg)
	listingService := listing.NewListingService(cfg, manager)
	exchangeService := exchangesvc.NewExchangeService(cfg, manager)
	chatService := chat.NewChatService(cfg, manager, wsManager)
	favoriteService := favorite.NewFavoriteService(cfg)

	// Регистрируем маршруты. Cloudinary идет последним: его группа вешает
	// auth middleware на общий префикс /api
	authService.SetupRoutes(app)
	listingService.SetupPublicRoutes(app)
	profileService.SetupRoutes(app)
	listingService.SetupRoutes(app)
	exchangeService.SetupRoutes(app)
	chatService.SetupRoutes(app)
	favoriteService.SetupRoutes(app)
	cloudinaryService.SetupRoutes(app)

	// WebSocket живет на отдельном listener: fasthttp не поддерживает
	// hijack, который нужен gorilla/websocket
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/ws", websocket.Handler(wsManager, authService.GetJWTService()))

		server := &http.Server{
			Addr:              cfg.WSAddr,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		}

		zlog.Info().Str("addr", cfg.WSAddr).Msg("✅ WebSocket listener запущен")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zlog.Fatal().Err(err).Msg("❌ Ошибка WebSocket listener")
		}
	}()

	// Запускаем сервер
	zlog.Info().Str("addr", cfg.HTTPAddr).Msg("✅ SkillSwap API запущен")
	if err := app.Listen(cfg.HTTPAddr); err != nil {
		zlog.Fatal().Err(err).Msg("❌ Ошибка запуска сервера")
	}
}

// errorHandler обрабатывает ошибки Fiber
func errorHandler(c fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError

	// Проверяем, является ли ошибка из Fiber
	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
	}

	// Отправляем ошибку в JSON
	return c.Status(code).JSON(fiber.Map{
		"error": err.Error(),
	})
}
