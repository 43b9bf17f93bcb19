package main

import (
	"context"
	"database/sql"
	"sync"
	"sync/atomic"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"hotel_booking/internal/adapters/observability"
	"hotel_booking/internal/app"
	"hotel_booking/internal/shared"
	mysqlrepo "hotel_booking/internal/storage/mysql"
)

// calendar provisions today..today+CALENDAR_DAYS_AHEAD for every room and
// re-syncs future capacity to each room's current quantity. Safe to re-run.
func main() {
	ctx := context.Background()
	cfg := shared.Load()

	log.Logger = observability.NewLogger(cfg.AppEnv, cfg.LogLevel)

	log.Info().
		Int("days_ahead", cfg.CalendarDaysAhead).
		Int("workers", cfg.CalendarWorkers).
		Msg("calendar job starting")

	db, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("sql.Open failed")
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		log.Fatal().Err(err).Msg("db.Ping failed")
	}
	log.Info().Msg("db ping ok")

	repo := mysqlrepo.New(db)
	cal := app.NewCalendar(repo)

	rooms, err := repo.ListRooms(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("list rooms failed")
	}

	workers := max(cfg.CalendarWorkers, 1)
	sem := semaphore.NewWeighted(int64(workers))
	var wg sync.WaitGroup
	var failed atomic.Int32

	for _, room := range rooms {
		// acquire before launching the goroutine; release inside it
		if err := sem.Acquire(ctx, 1); err != nil {
			log.Fatal().Err(err).Msg("semaphore acquire failed")
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			defer sem.Release(1)

			if _, err := cal.EnsureFutureCalendar(ctx, room, cfg.CalendarDaysAhead); err != nil {
				failed.Add(1)
				log.Warn().Int64("room", room.ID).Err(err).Msg("provision failed")
			}
		}()
	}

	wg.Wait()
	log.Info().Int("rooms", len(rooms)).Int32("failed", failed.Load()).Msg("calendar job completed")
	if failed.Load() > 0 {
		log.Fatal().Msg("calendar job finished with failures")
	}
}
