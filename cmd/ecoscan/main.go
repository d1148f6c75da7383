package main

import (
	"github.com/ecoscan/ecoscan/cmd/config"
	"github.com/ecoscan/ecoscan/internal/geo"
	"github.com/ecoscan/ecoscan/internal/handlers"
	"github.com/ecoscan/ecoscan/internal/logger"
	"github.com/ecoscan/ecoscan/internal/middleware"
	"github.com/ecoscan/ecoscan/internal/policy"
	"github.com/ecoscan/ecoscan/internal/scanner"
	"github.com/ecoscan/ecoscan/internal/storage"
	"github.com/ecoscan/ecoscan/internal/vision"
	"github.com/ecoscan/ecoscan/internal/workers"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"go.uber.org/zap"
)

func main() {
	config.ParseFlags()

	if err := logger.Initialize(config.LogLevel); err != nil {
		logger.Log.Fatal("Failed to initialize logger", zap.Error(err))
	}

	if err := storage.Init(); err != nil {
		logger.Log.Error("Failed to init storage", zap.Error(err))
		return
	}

	classifier := vision.New(config.VisionEndpoint, config.VisionAPIKey)

	scanner.Init(storage.Handle{}, classifier, scanner.Config{
		AwardPoints:  config.ScanAwardPoints,
		Cooldown:     config.ScanCooldown,
		Window:       policy.SchoolWeek(config.WindowOpenHour, config.WindowCloseHour),
		Target:       geo.Position{Lat: config.SchoolLat, Lon: config.SchoolLon},
		RadiusMeters: config.GeofenceRadiusMeters,
	})

	workers.InitMonthlyReset()

	if err := run(); err != nil {
		logger.Log.Fatal("Failed to run server", zap.Error(err))
	}
}

func run() error {
	app := fiber.New()
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PATCH,DELETE,OPTIONS",
	}))

	app.Post("/api/user/register", handlers.RegisterHandler)
	app.Post("/api/user/login", handlers.LoginHandler)

	authRoutes := app.Group("/api", middleware.AuthMiddleware)
	authRoutes.Get("/user/profile", handlers.GetProfileHandler)
	authRoutes.Patch("/user/profile", handlers.UpdateProfileHandler)
	authRoutes.Delete("/user", handlers.DeleteAccountHandler)
	authRoutes.Get("/user/balance", handlers.GetUserBalanceHandler)
	authRoutes.Get("/leaderboard", handlers.GetLeaderboardHandler)
	authRoutes.Get("/missions", handlers.GetMissionsHandler)
	authRoutes.Post("/missions/:id/claim", handlers.ClaimMissionHandler)
	authRoutes.Post("/scan/arm", handlers.ArmScanHandler)
	authRoutes.Post("/scan/qr", handlers.QRReadHandler)
	authRoutes.Post("/scan/capture", handlers.CaptureHandler)
	authRoutes.Post("/scan/cancel", handlers.CancelScanHandler)
	authRoutes.Get("/rewards", handlers.GetRewardsHandler)
	authRoutes.Post("/rewards/redeem", handlers.RedeemRewardHandler)
	authRoutes.Get("/orders", handlers.GetOrdersHandler)

	adminRoutes := authRoutes.Group("/admin", middleware.AdminMiddleware)
	adminRoutes.Get("/orders/:id", handlers.GetOrderHandler)
	adminRoutes.Post("/orders/:id/redeem", handlers.ConfirmRedemptionHandler)
	adminRoutes.Get("/redemptions", handlers.GetMonthlyRedemptionsHandler)
	adminRoutes.Get("/users/:id/photo", handlers.GetUserPhotoHandler)
	adminRoutes.Post("/settings", handlers.UpdateSettingHandler)

	logger.Log.Info("Running server", zap.String("address", config.RunAddress))
	return app.Listen(config.RunAddress)
}
