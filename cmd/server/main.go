package main

import (
	"log"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/washly/station-backend/internal/config"
	"github.com/washly/station-backend/internal/database"
	"github.com/washly/station-backend/internal/handler"
	"github.com/washly/station-backend/internal/middleware"
	"github.com/washly/station-backend/internal/queue"
	"github.com/washly/station-backend/internal/repository"
	"github.com/washly/station-backend/internal/router"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	users := repository.NewUserRepo(db)
	stations := repository.NewStationRepo(db)
	assignments := repository.NewAssignmentRepo(db)
	offers := repository.NewOfferRepo(db)
	benefits := repository.NewBenefitRepo(db)
	subscriptions := repository.NewSubscriptionRepo(db)
	quotas := repository.NewQuotaRepo(db)
	washRecords := repository.NewWashRecordRepo(db)
	stocks := repository.NewStockRepo(db)

	h := router.Handlers{
		Auth:          handler.NewAuthHandler(cfg, users),
		Users:         handler.NewUserHandler(cfg, users, stations, subscriptions, assignments),
		Stations:      handler.NewStationHandler(stations, assignments),
		Employees:     handler.NewEmployeeHandler(cfg, users, stations, assignments),
		Offers:        handler.NewOfferHandler(offers, benefits),
		Benefits:      handler.NewBenefitHandler(benefits),
		Subscriptions: handler.NewSubscriptionHandler(subscriptions, offers),
		Stocks:        handler.NewStockHandler(stocks),
		Managers:      handler.NewManagerHandler(users, stations, quotas, washRecords),
		BenefitGate:   middleware.NewBenefitGate(stations, subscriptions, benefits, assignments),
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(echomw.Logger())

	// Redis-backed rate limiting; degrades to pass-through when Redis is
	// unreachable.
	rdb := config.NewRedisClient()
	e.Use(middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb))

	router.RegisterPublic(e, h)
	router.RegisterProtected(e, h, cfg.JWTSecret)

	// Registration audit consumer; runs its own reconnect loop.
	go func() {
		if err := queue.StartRegistrationConsumer(); err != nil {
			log.Printf("registration consumer stopped: %v", err)
		}
	}()

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
