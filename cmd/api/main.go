package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"barbershop/backend/internal/calendar"
	"barbershop/backend/internal/config"
	"barbershop/backend/internal/domain/blocking"
	"barbershop/backend/internal/domain/news"
	"barbershop/backend/internal/domain/profile"
	"barbershop/backend/internal/domain/reservation"
	"barbershop/backend/internal/domain/schedule"
	"barbershop/backend/internal/domain/timegrid"
	"barbershop/backend/internal/firebase"
	apihttp "barbershop/backend/internal/http"
	"barbershop/backend/internal/i18n"
	"barbershop/backend/internal/live"
	"barbershop/backend/internal/lock"
	"barbershop/backend/internal/logging"
	"barbershop/backend/internal/store"

	fb "firebase.google.com/go/v4"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	// .env is optional; real deployments set the environment directly
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger, err := logging.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Error("api stopped", zap.Error(err))
		_ = logger.Sync()
		os.Exit(1)
	}
}

func run(cfg config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	loc, err := cfg.Location()
	if err != nil {
		return err
	}
	grid, err := businessHours(cfg)
	if err != nil {
		return err
	}
	policy, err := schedule.ParseClosedWeekdays(cfg.ClosedWeekdays)
	if err != nil {
		return fmt.Errorf("bad CLOSED_WEEKDAYS: %w", err)
	}
	lang, err := i18n.Parse(cfg.DefaultLanguage)
	if err != nil {
		return fmt.Errorf("bad DEFAULT_LANGUAGE: %w", err)
	}

	app, err := firebase.NewApp(ctx, cfg)
	if err != nil {
		return fmt.Errorf("firebase app init failed: %w", err)
	}
	authClient, err := firebase.NewAuthClient(ctx, app)
	if err != nil {
		return fmt.Errorf("firebase auth client init failed: %w", err)
	}

	backend, closeBackend, err := openStore(ctx, cfg, app, logger.Named("store"))
	if err != nil {
		return err
	}
	defer closeBackend()
	st := store.WithMetrics(backend)

	var locker lock.Locker = lock.Noop{}
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer rdb.Close()
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := rdb.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			return fmt.Errorf("redis ping failed: %w", err)
		}
		locker = lock.NewRedis(rdb, cfg.SlotLockTTL, cfg.SlotLockWait, "barbershop:slot")
		logger.Info("slot lock enabled", zap.String("addr", cfg.RedisAddr))
	}

	mirror := live.New(st, logger.Named("mirror"))
	if err := mirror.Start(ctx); err != nil {
		return fmt.Errorf("mirror start failed: %w", err)
	}
	defer mirror.Stop()

	// Repositories
	blockRepo := blocking.NewRepo(st, logger.Named("blocking"))
	reservationRepo := reservation.NewRepo(st, logger.Named("reservation"))
	profileRepo := profile.NewRepo(st)

	// Services
	profileSvc := profile.NewService(profileRepo, authClient, cfg.AdminUID, logger.Named("profile"))
	window := schedule.Options{
		WindowSize:  cfg.WindowDays,
		HorizonDays: cfg.HorizonDays,
	}
	reservationSvc := reservation.NewService(reservationRepo, blockRepo, profileSvc, reservation.Options{
		Grid:     grid,
		Location: loc,
		Lock:     locker,
		Logger:   logger.Named("reservation"),
		Policy:   policy,
		Window:   window,
	})
	blockingSvc := blocking.NewService(blockRepo, grid, logger.Named("blocking"))
	newsSvc := news.NewService(st, logger.Named("news"))

	// event streams never go idle on their own
	streams, closeStreams := context.WithCancel(context.Background())
	defer closeStreams()

	router := apihttp.NewRouter(apihttp.RouterDeps{
		Cfg:            cfg,
		Verifier:       authClient,
		Logger:         logger.Named("http"),
		Mirror:         mirror,
		ProfileSvc:     profileSvc,
		ReservationSvc: reservationSvc,
		BlockingSvc:    blockingSvc,
		NewsSvc:        newsSvc,
		Done:           streams.Done(),
		Grid:           grid,
		Policy:         policy,
		Window:         window,
		Location:       loc,
		Language:       lang,
	})

	// no WriteTimeout: /v1/events streams stay open
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	srv.RegisterOnShutdown(closeStreams)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("API listening",
			zap.String("port", cfg.Port),
			zap.String("store", cfg.StoreBackend),
			zap.String("project", cfg.ProjectID),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("listen failed: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctxShutdown); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	logger.Info("stopped")
	return nil
}

func businessHours(cfg config.Config) (timegrid.Grid, error) {
	open, err := calendar.ParseClock(cfg.BusinessOpen)
	if err != nil {
		return timegrid.Grid{}, fmt.Errorf("bad BUSINESS_OPEN: %w", err)
	}
	closing, err := calendar.ParseClock(cfg.BusinessClose)
	if err != nil {
		return timegrid.Grid{}, fmt.Errorf("bad BUSINESS_CLOSE: %w", err)
	}
	return timegrid.New(open, closing, cfg.SlotMinutes)
}

// openStore returns the configured backend and a func that releases it.
func openStore(ctx context.Context, cfg config.Config, app *fb.App, logger *zap.Logger) (store.Store, func(), error) {
	switch cfg.StoreBackend {
	case "rtdb":
		dbc, err := firebase.NewDatabase(ctx, app)
		if err != nil {
			return nil, nil, fmt.Errorf("realtime database init failed: %w", err)
		}
		s := store.NewRTDB(dbc, cfg.StorePollInterval, logger)
		return s, func() { _ = s.Close() }, nil
	case "firestore":
		fs, err := firebase.NewFirestore(ctx, app)
		if err != nil {
			return nil, nil, fmt.Errorf("firestore init failed: %w", err)
		}
		s := store.NewFirestore(fs.Client, logger)
		return s, func() {
			_ = s.Close()
			fs.Close()
		}, nil
	default:
		logger.Warn("using the in-memory store; data is lost on restart")
		s := store.NewMemory()
		return s, func() { _ = s.Close() }, nil
	}
}
