package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	amqpad "hotel_booking/internal/adapters/amqp"
	server "hotel_booking/internal/adapters/http_server"
	"hotel_booking/internal/adapters/notify"
	"hotel_booking/internal/adapters/observability"
	redisad "hotel_booking/internal/adapters/redis"
	"hotel_booking/internal/app"
	"hotel_booking/internal/domain"
	"hotel_booking/internal/shared"
	"hotel_booking/internal/storage/memory"
	mysqlrepo "hotel_booking/internal/storage/mysql"
)

func main() {
	cfg := shared.Load()

	// set global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reg := observability.InitRegistry()
	observability.Serve(cfg.MetricsAddr, reg)

	// store
	var store domain.Store
	switch cfg.StorageDriver {
	case shared.StorageMemory:
		log.Warn().Msg("using in-memory store; data is lost on restart")
		store = memory.New()
	default:
		db, err := sql.Open("mysql", cfg.MySQLDSN)
		if err != nil {
			log.Fatal().Err(err).Msg("sql.Open failed")
		}
		defer db.Close()
		if err := db.PingContext(ctx); err != nil {
			log.Fatal().Err(err).Msg("db.Ping failed")
		}
		log.Info().Msg("database connection ok")
		store = mysqlrepo.New(db)
	}

	// cache (optional)
	var cache domain.Cache
	if cfg.RedisAddr != "" {
		rc := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
		defer rc.Close()
		if err := rc.Ping(ctx); err != nil {
			log.Warn().Err(err).Str("addr", cfg.RedisAddr).Msg("redis unreachable; policy cache disabled")
		} else {
			cache = rc
		}
	}

	// event sinks
	var sinks app.Notifiers
	if cfg.NotifyBase != "" {
		nc, err := notify.New(cfg.NotifyBase, cfg.NotifyKey, cfg.NotifyRPS)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to initialize notify client")
		}
		sinks = append(sinks, nc)
	}
	if cfg.AMQPURL != "" {
		sinks = append(sinks, amqpad.New(cfg.AMQPURL))
	}

	// services
	cal := app.NewCalendar(store)
	engine := app.NewReservationEngine(store, cal)
	policies := app.NewPolicyService(store, cache, cfg.CacheTTL, cfg.PolicyID)
	bookings := app.NewBookingService(store, engine, cal, policies, sinks)
	reconciler := app.NewReconciler(store, bookings, cfg.PaymentRefMarker, cfg.PaymentTolerance)

	// http
	srv := server.New()
	srv.Mount("/metrics", observability.MetricsHandler(reg))
	var limiter *rate.Limiter
	if cfg.WebhookRPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.WebhookRPS), cfg.WebhookRPS)
	}
	srv.MountHandlers(&server.Handlers{
		Store:            store,
		Bookings:         bookings,
		Engine:           engine,
		Calendar:         cal,
		Policies:         policies,
		Reconciler:       reconciler,
		Validate:         validator.New(),
		DefaultDaysAhead: cfg.CalendarDaysAhead,
		WebhookKey:       cfg.WebhookAPIKey,
		WebhookLimiter:   limiter,
	})

	httpSrv := &http.Server{Addr: cfg.HTTPAddr, Handler: srv.Mux(), ReadHeaderTimeout: 5 * time.Second}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("addr", cfg.HTTPAddr).Str("storage", cfg.StorageDriver).Int("sinks", len(sinks)).Msg("API listening")
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Fatal().Err(err).Msg("http server failed")
	}
	log.Info().Msg("API stopped")
}
