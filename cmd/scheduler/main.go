package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Freeeeeet/room_scheduler/internal/app"
	"github.com/Freeeeeet/room_scheduler/internal/config"
	"go.uber.org/zap"
)

const usage = `usage: scheduler <command> [flags]

commands:
  migrate [up|down|version]  apply or roll back database migrations
  seed                       create default rooms
  rooms                      list rooms with their schedule
  hours                      print or replace open hours of a room (admin)
  closure                    close a room for a date range (admin)
  closures                   list closures of a room
  activate | deactivate      open or close a room for new bookings (admin)
  availability               print free slots of a room for a day
  bookings                   list bookings (admin)
  request                    request a booking
  create                     create a confirmed booking (admin)
  approve | reject           decide on a pending booking (admin)
  cancel                     cancel a booking
  edit                       move a booking to another interval

With STORE_BACKEND=memory nothing survives the process: every run starts
from freshly seeded rooms, so approve, reject, cancel and edit are refused.
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := app.NewLogger(cfg.Environment, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if !cfg.DotEnvLoaded {
		logger.Debug("No .env file found, using environment variables")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger, os.Args[1], os.Args[2:]); err != nil {
		var usageErr usageError
		if errors.As(err, &usageErr) {
			fmt.Fprintf(os.Stderr, "%v\n\n%s", err, usage)
			os.Exit(2)
		}
		logger.Error("Command failed", zap.String("command", os.Args[1]), zap.Error(err))
		os.Exit(1)
	}
}

type usageError struct{ msg string }

func (e usageError) Error() string { return e.msg }

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger, command string, args []string) error {
	if command == "migrate" {
		return runMigrate(ctx, cfg, logger, args)
	}

	handler, ok := commands[command]
	if !ok {
		return usageError{msg: fmt.Sprintf("unknown command %q", command)}
	}
	if cfg.StoreBackend == config.BackendMemory && needsStoredBooking[command] {
		return usageError{msg: fmt.Sprintf("%s needs a booking from an earlier run, use STORE_BACKEND=postgres", command)}
	}

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	if cfg.StoreBackend == config.BackendMemory && command != "seed" {
		// в памяти ничего не сохраняется между запусками
		if _, err := a.Seed(ctx); err != nil {
			return err
		}
	}

	return handler(ctx, a, args)
}

func runMigrate(ctx context.Context, cfg *config.Config, logger *zap.Logger, args []string) error {
	if cfg.StoreBackend != config.BackendPostgres {
		return usageError{msg: "migrate requires STORE_BACKEND=postgres"}
	}

	pool, err := app.NewPostgresPool(ctx, cfg.DBDSN)
	if err != nil {
		return err
	}
	defer pool.Close()

	migrator, err := app.NewMigrator(pool, cfg.MigrationsPath, logger)
	if err != nil {
		return err
	}
	defer migrator.Close()

	action := "up"
	if len(args) > 0 {
		action = args[0]
	}

	switch action {
	case "up":
		return migrator.Run(ctx)
	case "down":
		return migrator.Down(ctx)
	case "version":
		version, err := migrator.Version(ctx)
		if err != nil {
			return err
		}
		fmt.Println(version)
		return nil
	default:
		return usageError{msg: fmt.Sprintf("unknown migrate action %q", action)}
	}
}
