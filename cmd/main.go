package main

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/jwsummers/techmetrix/internal/api"
	"github.com/jwsummers/techmetrix/internal/config"
	"github.com/jwsummers/techmetrix/internal/database"
	"github.com/jwsummers/techmetrix/internal/db"
	"github.com/jwsummers/techmetrix/internal/repository"
	"github.com/jwsummers/techmetrix/internal/service"
	"github.com/jwsummers/techmetrix/pkg/logger"
)

func main() {
	logger, err := logger.NewLogger()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	logger.Info("starting application")

	cfg := config.Load()

	pool, err := pgxpool.New(context.Background(), cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer pool.Close()

	if err = pool.Ping(context.Background()); err != nil {
		logger.Fatal("failed to ping database", zap.Error(err))
	}

	logger.Info("database connection established")

	if err = database.Migrate(context.Background(), cfg.DatabaseURL); err != nil {
		logger.Fatal("failed to apply migrations", zap.Error(err))
	}

	logger.Info("migrations applied")

	transactor := db.NewPgxTransactor(pool)

	userRepo := repository.NewPgxUserRepository(pool)
	teamRepo := repository.NewPgxTeamRepository(pool)
	orderRepo := repository.NewPgxRepairOrderRepository(pool)

	teams := service.NewTeamService(transactor).
		WithTeamRepo(teamRepo).
		WithUserRepo(userRepo).
		WithOrderRepo(orderRepo)
	users := service.NewUserService(transactor).WithUserRepo(userRepo)
	orders := service.NewOrderService(transactor, cfg.Targets).WithOrderRepo(orderRepo)
	authSvc := service.NewAuthService(
		transactor,
		cfg.TokenSecret,
		time.Duration(cfg.TokenTTLHrs)*time.Hour,
		cfg.BcryptCost,
	).WithUserRepo(userRepo)

	healthChecker := api.MustNewHealthChecker(api.PostgresCheck(pool))

	e := echo.New()

	handler := api.NewHandler(logger, cfg.TokenSecret).
		WithHealthChecker(healthChecker).
		WithTeamService(teams).
		WithUserService(users).
		WithOrderService(orders).
		WithAuthService(authSvc)

	handler.RegisterRoutes(e)

	logger.Info("server starting", zap.String("port", cfg.Port))
	if err = e.Start(":" + cfg.Port); err != nil {
		logger.Fatal("failed to start server", zap.Error(err))
	}
}
