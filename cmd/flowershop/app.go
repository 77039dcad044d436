package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/agamariel/flowershop/internal/auth"
	"github.com/agamariel/flowershop/internal/config"
	"github.com/agamariel/flowershop/internal/handlers"
	"github.com/agamariel/flowershop/internal/migrations"
	"github.com/agamariel/flowershop/internal/refundsink"
	"github.com/agamariel/flowershop/internal/services"
	"github.com/agamariel/flowershop/internal/storage"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// App структура для управления приложением и его зависимостями.
type App struct {
	cfg    *config.Config
	logger *slog.Logger
	dbPool *pgxpool.Pool
	echo   *echo.Echo
	relay  *services.OutboxRelay
	amqp   *refundsink.AMQPPublisher

	operatorHandler    *handlers.OperatorHandler
	fulfillmentHandler *handlers.FulfillmentHandler
}

// NewApp создаёт и инициализирует новое приложение.
func NewApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	app := &App{
		cfg:    cfg,
		logger: logger,
	}

	if err := app.initDatabase(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	if err := app.initDependencies(); err != nil {
		app.dbPool.Close()
		return nil, fmt.Errorf("failed to initialize dependencies: %w", err)
	}

	app.initServer()

	return app, nil
}

// initDatabase выполняет миграции и открывает пул соединений.
func (app *App) initDatabase(ctx context.Context) error {
	app.logger.Info("running database migrations")
	sqlDB, err := sql.Open("pgx", app.cfg.DatabaseURI)
	if err != nil {
		return fmt.Errorf("unable to open database connection: %w", err)
	}
	defer sqlDB.Close()

	if err := migrations.Run(sqlDB, app.logger); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	dbPool, err := pgxpool.New(ctx, app.cfg.DatabaseURI)
	if err != nil {
		return fmt.Errorf("unable to connect to database: %w", err)
	}

	if err := dbPool.Ping(ctx); err != nil {
		dbPool.Close()
		return fmt.Errorf("unable to ping database: %w", err)
	}

	app.dbPool = dbPool
	app.logger.Info("connected to database")
	return nil
}

// initDependencies собирает слои storage, services и handlers.
func (app *App) initDependencies() error {
	operatorStorage := storage.NewPostgresOperatorStorage(app.dbPool)
	orderStorage := storage.NewPostgresOrderStorage(app.dbPool)
	eventStorage := storage.NewPostgresDeliveryEventStorage(app.dbPool)
	refundStorage := storage.NewPostgresRefundStorage(app.dbPool)
	outboxStorage := storage.NewPostgresOutboxStorage(app.dbPool)

	operatorService := services.NewOperatorService(operatorStorage, app.cfg.JWTSecret, app.cfg.TokenExpiration)
	fulfillmentService := services.NewFulfillmentService(
		app.dbPool, orderStorage, eventStorage, refundStorage, outboxStorage, app.logger)

	app.operatorHandler = handlers.NewOperatorHandler(operatorService)
	app.fulfillmentHandler = handlers.NewFulfillmentHandler(fulfillmentService)

	if app.cfg.UsesDefaultSecret() {
		app.logger.Warn("JWT_SECRET is not set, using the built-in development secret")
	}

	var publisher services.RefundPublisher
	switch {
	case app.cfg.AMQPURL != "":
		p, err := refundsink.DialAMQP(app.cfg.AMQPURL)
		if err != nil {
			return err
		}
		app.amqp = p
		publisher = p
		app.logger.Info("refund requests will be published to RabbitMQ", "exchange", refundsink.ExchangeName)
	case app.cfg.RefundWebhookURL != "":
		publisher = refundsink.NewHTTPPublisher(app.cfg.RefundWebhookURL, 5*time.Second)
		app.logger.Info("refund requests will be posted to webhook", "url", app.cfg.RefundWebhookURL)
	default:
		app.logger.Warn("neither AMQP_URL nor REFUND_WEBHOOK_URL is configured, refund requests stay in the outbox")
	}

	if publisher != nil {
		relay, err := services.NewOutboxRelay(outboxStorage, publisher, app.cfg.OutboxInterval, app.cfg.OutboxRate, app.logger)
		if err != nil {
			return err
		}
		app.relay = relay
	}
	return nil
}

// initServer настраивает HTTP-сервер и маршруты.
func (app *App) initServer() {
	e := echo.New()
	e.HideBanner = true
	e.Validator = handlers.NewRequestValidator()

	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.Gzip())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{echo.GET, echo.POST, echo.PUT},
	}))

	e.GET("/healthz", app.health)

	// Публичные маршруты
	e.POST("/api/operator/register", app.operatorHandler.Register)
	e.POST("/api/operator/login", app.operatorHandler.Login)

	// Консоль оператора
	admin := e.Group("/api/admin")
	admin.Use(auth.JWTMiddleware(app.cfg.JWTSecret))
	admin.GET("/orders", app.fulfillmentHandler.ListOrders)
	admin.GET("/orders/:id", app.fulfillmentHandler.GetOrder)
	admin.POST("/orders/:id/delivery-status", app.fulfillmentHandler.AppendDeliveryEvent)
	admin.PUT("/orders/:id/delivery-status/:event_id/image", app.fulfillmentHandler.UpdateEvidenceImage)
	admin.POST("/orders/:id/cancel", app.fulfillmentHandler.CancelOrder)
	admin.GET("/refunds", app.fulfillmentHandler.ListRefunds)
	admin.GET("/reports/revenue", app.fulfillmentHandler.RevenueReport)

	app.echo = e
}

func (app *App) health(c echo.Context) error {
	if err := app.dbPool.Ping(c.Request().Context()); err != nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "database unavailable")
	}
	return c.NoContent(http.StatusOK)
}

// Start запускает воркер outbox и HTTP-сервер.
func (app *App) Start(ctx context.Context) error {
	if app.relay != nil {
		app.relay.Start(ctx)
		app.logger.Info("outbox relay started", "interval", app.cfg.OutboxInterval, "rate", app.cfg.OutboxRate)
	}

	app.logger.Info("starting server", "address", app.cfg.RunAddress)
	if err := app.echo.Start(app.cfg.RunAddress); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server stopped: %w", err)
	}
	return nil
}

// Shutdown корректно завершает работу приложения.
func (app *App) Shutdown(ctx context.Context) error {
	app.logger.Info("shutting down server")

	if err := app.echo.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}

	if app.amqp != nil {
		if err := app.amqp.Close(); err != nil {
			app.logger.Warn("failed to close AMQP connection", "error", err)
		}
	}

	if app.dbPool != nil {
		app.dbPool.Close()
	}

	app.logger.Info("server gracefully stopped")
	return nil
}
