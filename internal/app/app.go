// Package app собирает движок бронирования из конфигурации.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/Freeeeeet/room_scheduler/internal/config"
	"github.com/Freeeeeet/room_scheduler/internal/lock"
	"github.com/Freeeeeet/room_scheduler/internal/model"
	"github.com/Freeeeeet/room_scheduler/internal/notify"
	"github.com/Freeeeeet/room_scheduler/internal/policy"
	"github.com/Freeeeeet/room_scheduler/internal/repository"
	"github.com/Freeeeeet/room_scheduler/internal/repository/memory"
	"github.com/Freeeeeet/room_scheduler/internal/service"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

type App struct {
	Bookings     *service.BookingService
	Availability *service.AvailabilityService
	Rooms        *service.RoomService

	cfg      *config.Config
	logger   *zap.Logger
	store    service.Store
	catalog  service.RoomCatalog
	pool     *pgxpool.Pool
	pgStore  *repository.Store
	memStore *memory.Store
	closers  []func() error
}

// New поднимает хранилище, блокировки и получателей событий по конфигурации
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	a := &App{cfg: cfg, logger: logger}

	if err := a.initStore(ctx); err != nil {
		return nil, err
	}

	locker, err := a.initLocker(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}

	notifier, err := a.initNotifier()
	if err != nil {
		a.Close()
		return nil, err
	}

	limits := policy.Limits{
		MaxDurationMinutes: cfg.MaxBookingMinutes,
		MaxAdvanceHours:    cfg.MaxAdvanceHours,
	}

	a.Bookings = service.NewBookingService(a.store, locker, notifier, service.RealClock{}, limits, logger.Named("booking"))
	a.Availability = service.NewAvailabilityService(a.store, cfg.Location(), cfg.PendingBlocksAvailability, logger.Named("availability"))
	a.Rooms = service.NewRoomService(a.catalog, cfg.Location(), logger.Named("rooms"))

	logger.Info("Scheduler engine ready",
		zap.String("store", cfg.StoreBackend),
		zap.String("lock", cfg.LockBackend),
		zap.Int("max_booking_minutes", limits.MaxDurationMinutes),
		zap.Int("max_advance_hours", limits.MaxAdvanceHours),
		zap.Bool("pending_blocks", cfg.PendingBlocksAvailability),
	)

	return a, nil
}

func (a *App) initStore(ctx context.Context) error {
	switch a.cfg.StoreBackend {
	case config.BackendMemory:
		a.memStore = memory.New()
		a.store = a.memStore
		a.catalog = a.memStore
		return nil
	case config.BackendPostgres:
		pool, err := NewPostgresPool(ctx, a.cfg.DBDSN)
		if err != nil {
			return err
		}
		a.pool = pool
		a.closers = append(a.closers, func() error { pool.Close(); return nil })
		a.pgStore = repository.NewStore(pool, a.cfg.StoreTimeout, a.logger.Named("store"))
		a.store = a.pgStore
		a.catalog = a.pgStore
		return nil
	default:
		return fmt.Errorf("unknown store backend %q", a.cfg.StoreBackend)
	}
}

func (a *App) initLocker(ctx context.Context) (service.Locker, error) {
	if a.cfg.LockBackend != config.LockRedis {
		return lock.NewLocal(), nil
	}

	client, err := NewRedisClient(ctx, a.cfg.RedisAddr, a.cfg.RedisPassword)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, client.Close)

	return lock.NewRedis(client, a.cfg.LockTTL, a.logger.Named("lock")), nil
}

func (a *App) initNotifier() (service.Notifier, error) {
	var targets []notify.Notifier

	if a.cfg.AMQPURL != "" {
		conn, ch, err := NewAMQPChannel(a.cfg.AMQPURL)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, ch.Close, conn.Close)

		publisher, err := notify.NewAMQP(ch, a.cfg.AMQPExchange)
		if err != nil {
			return nil, err
		}
		targets = append(targets, publisher)
	}

	if a.cfg.TelegramToken != "" {
		tg, err := notify.NewTelegram(a.cfg.TelegramToken, a.cfg.TelegramAdminChatID, a.cfg.Location())
		if err != nil {
			return nil, err
		}
		targets = append(targets, tg)
	}

	if len(targets) == 0 {
		return notify.Nop{}, nil
	}
	return notify.NewMulti(a.logger.Named("notify"), targets...), nil
}

// Pool пул PostgreSQL; nil для хранилища в памяти
func (a *App) Pool() *pgxpool.Pool {
	return a.pool
}

// FindRoom ищет комнату по UUID или по имени
func (a *App) FindRoom(ctx context.Context, ref string) (*model.Room, error) {
	if id, err := uuid.Parse(ref); err == nil {
		return a.store.GetRoom(ctx, id)
	}

	if a.memStore != nil {
		return a.memStore.RoomByName(ref), nil
	}
	return a.pgStore.Rooms().GetByName(ctx, ref)
}

// Close освобождает соединения в обратном порядке
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
