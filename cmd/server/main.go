package main

import (
	"context"
	"database/sql"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	accounts "github.com/goliatone/go-accounts"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

func main() {
	config, err := accounts.LoadConfig()
	if err != nil {
		// a missing JWT_SIGNING_KEY lands here, on purpose: the service
		// refuses to boot with a guessable default
		log.Fatalf("load config: %v", err)
	}

	logger := accounts.NewAppLogger(config.Debug)

	db, err := openDatabase(config.DatabaseDSN)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer db.Close()

	if err := createSchema(context.Background(), db); err != nil {
		log.Fatalf("create schema: %v", err)
	}

	repo := accounts.NewRepositoryManager(db)
	repo.MustValidate()

	tokens := accounts.NewTokenService([]byte(config.SigningKey), config.TokenTTL, logger)

	mailer, err := config.Mailer(logger)
	if err != nil {
		log.Fatalf("mailer: %v", err)
	}

	auther := accounts.NewAuthenticator(
		accounts.NewUserProvider(repo.Users()).WithLogger(logger),
		tokens,
	).WithLogger(logger)

	app := fiber.New(fiber.Config{
		AppName:      "go-accounts",
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	})

	accounts.RegisterAccountRoutes(app,
		accounts.WithRepository(repo),
		accounts.WithAuthenticator(auther),
		accounts.WithTokenService(tokens),
		accounts.WithMailer(mailer),
		accounts.WithResetBaseURL(config.ResetBaseURL),
		accounts.WithControllerLogger(logger),
		accounts.WithDebug(config.Debug),
	)

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit
		logger.Info("shutting down...")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			logger.Error("shutdown error: %v", err)
		}
	}()

	logger.Info("listening on %s", config.HTTPAddr)
	if err := app.Listen(config.HTTPAddr); err != nil {
		log.Fatalf("server: %v", err)
	}
}

func openDatabase(dsn string) (*bun.DB, error) {
	sqldb, err := sql.Open(sqliteshim.ShimName, dsn)
	if err != nil {
		return nil, err
	}

	db := bun.NewDB(sqldb, sqlitedialect.New())
	if err := db.Ping(); err != nil {
		return nil, err
	}

	return db, nil
}

func createSchema(ctx context.Context, db *bun.DB) error {
	models := []any{
		(*accounts.User)(nil),
		(*accounts.PasswordReset)(nil),
	}

	for _, model := range models {
		if _, err := db.NewCreateTable().
			Model(model).
			IfNotExists().
			Exec(ctx); err != nil {
			return err
		}
	}

	return nil
}
