package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"monster-league-system/handlers"
	"monster-league-system/logger"
	"monster-league-system/middleware"
	"monster-league-system/models"
	"monster-league-system/services"
	"monster-league-system/storage"
	"monster-league-system/utils"
	"monster-league-system/workers"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	envErr := godotenv.Load()
	logger.Init()
	if envErr != nil {
		logger.Warnf("no .env file found, reading environment variables directly")
	}

	app := fiber.New(fiber.Config{
		BodyLimit: 8 * 1024 * 1024, // icon uploads are the largest payload
	})

	// Every request must carry the gateway service token — no exceptions.
	app.Use(middleware.GatewayAuthMiddleware())

	allowedOriginsEnv := os.Getenv("ALLOWED_ORIGINS")
	if allowedOriginsEnv == "" {
		logger.Warnf("ALLOWED_ORIGINS not set, using default: http://localhost:3000")
		allowedOriginsEnv = "http://localhost:3000"
	}
	allowedOriginsList := strings.Split(allowedOriginsEnv, ",")
	for i, origin := range allowedOriginsList {
		allowedOriginsList[i] = strings.TrimSpace(origin)
	}
	allowedOriginsString := strings.Join(allowedOriginsList, ",")

	app.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOriginsString,
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS,PATCH,HEAD",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With, X-Request-ID, User-Agent, Cache-Control, X-User-ID, X-User-Roles",
		ExposeHeaders:    "Content-Length, Content-Type, Authorization, X-Request-ID",
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		logger.Fatalf("DATABASE_URL environment variable not set")
	}

	if err := utils.InitR2(); err != nil {
		logger.Fatalf("failed to initialize R2 client: %v", err)
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		logger.Fatalf("failed to connect to database: %v", err)
	}

	if err := db.AutoMigrate(
		&models.ObjectiveDefinition{},
		&models.ObjectiveSet{},
		&models.ObjectiveSetMember{},
		&models.ObjectiveProgress{},
		&models.ObjectiveSetProgress{},
		&models.Season{},
		&models.UserWallet{},
		&models.RewardPack{},
		&models.PackOpen{},
		&models.Monster{},
		&models.UserMonster{},
		&models.SquadEntry{},
		&models.MarketTransaction{},
	); err != nil {
		logger.Fatalf("failed to migrate database: %v", err)
	}

	authServiceURL := os.Getenv("AUTH_SERVICE_URL")
	if authServiceURL == "" {
		logger.Fatalf("AUTH_SERVICE_URL environment variable not set")
	}
	serviceToken := os.Getenv("LEAGUE_SERVICE_TOKEN")
	if serviceToken == "" {
		logger.Fatalf("LEAGUE_SERVICE_TOKEN environment variable not set")
	}

	// Catalog reads go through a short TTL cache; admin writes bust it.
	catalog := storage.NewCachedCatalog(storage.NewCatalogRepository(db), 30*time.Second)
	progress := storage.NewProgressRepository(db)
	metrics := storage.NewMetricRepository(db)
	store := storage.NewStore(db)

	sets := services.NewSetAggregator(catalog, progress, store)
	recorder := services.NewProgressRecorder(catalog, store, sets)
	resync := services.NewResynchronizer(catalog, metrics, store, sets)
	overview := services.NewOverviewService(catalog, progress, resync)
	issuer := services.NewRewardIssuer(catalog, store)
	catalogAdmin := services.NewCatalogAdminService(db, catalog)
	wallet := services.NewWalletService(db)
	stream := services.NewStreamService(db)
	authClient := services.NewAuthClient(authServiceURL, serviceToken)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	resyncWorker := workers.NewResyncWorker(db, resync)
	go workers.PollProgress(ctx, resyncWorker, 1*time.Minute)

	catalogAdmin.StartSeasonScheduler()

	handlers.SetupObjectiveRoutes(app, overview, issuer, resync, wallet, stream, authClient)
	handlers.SetupInternalRoutes(app, recorder, resync)
	handlers.SetupAdminRoutes(app, catalogAdmin)

	port := os.Getenv("PORT")
	if port == "" {
		port = "5300"
	}

	go func() {
		if err := app.Listen(":" + port); err != nil {
			logger.Errorf("server error: %v", err)
		}
	}()

	logger.Infof("server running on http://localhost:%s", port)
	logger.Infof("progress resync worker running (every 1m)")
	logger.Infof("gateway auth enforced globally")
	logger.Infof("CORS configured for origins: %s", allowedOriginsString)

	<-ctx.Done()
	logger.Infof("shutting down server...")
}
