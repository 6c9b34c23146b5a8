package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/hray3182/Agenda/internal/config"
	"github.com/hray3182/Agenda/internal/database"
	"github.com/hray3182/Agenda/internal/logging"
	"github.com/hray3182/Agenda/internal/memstore"
	"github.com/hray3182/Agenda/internal/models"
	"github.com/hray3182/Agenda/internal/notify"
	"github.com/hray3182/Agenda/internal/planner"
	"github.com/hray3182/Agenda/internal/reminder"
	"github.com/hray3182/Agenda/internal/repository"
	"github.com/hray3182/Agenda/internal/scheduler"
)

// stores bundles one backend's implementations of every store contract.
type stores struct {
	appointments planner.AppointmentStore
	calendars    planner.CalendarStore
	reminders    interface {
		planner.ReminderStore
		reminder.Store
	}
	settings interface {
		planner.SettingsStore
		scheduler.SettingsStore
	}
}

func main() {
	memory := flag.Bool("memory", false, "keep data in memory instead of PostgreSQL")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err = run(ctx, cfg, logger, *memory)
	stop()
	if err != nil {
		logger.Fatal("agenda stopped", zap.Error(err))
	}
	logger.Info("shutting down")
	_ = logger.Sync()
}

// run wires the stores, notifiers and scheduler and blocks until ctx is
// cancelled. Deferred cleanup runs before main decides how to exit.
func run(ctx context.Context, cfg *config.Config, logger *zap.Logger, memory bool) error {
	var st stores
	if memory {
		mem := memstore.New()
		st = stores{mem.Appointments, mem.Calendars, mem.Reminders, mem.Settings}
		logger.Warn("using in-memory store, data is lost on exit")
	} else {
		if cfg.DatabaseURI == "" {
			return errors.New("DATABASE_URI is required")
		}
		db, err := database.New(ctx, cfg.DatabaseURI, logger)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer db.Close()

		if err := db.Migrate(ctx); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
		st = stores{
			repository.NewAppointmentRepository(db),
			repository.NewCalendarRepository(db),
			repository.NewReminderRepository(db, logger),
			repository.NewUserSettingsRepository(db),
		}
	}

	svc := planner.NewService(st.appointments, st.calendars, st.reminders, st.settings, planner.Options{
		AllowConflicts: cfg.AllowConflicts,
		MaxOccurrences: cfg.MaxOccurrences,
		ListWeeks:      cfg.ListWeeks,
		Location:       cfg.Location(),
	}, logger)

	router := notify.NewRouter()
	var digests scheduler.DigestSender
	if cfg.TelegramToken != "" {
		api, err := tgbotapi.NewBotAPI(cfg.TelegramToken)
		if err != nil {
			return fmt.Errorf("failed to create Telegram API: %w", err)
		}
		tg := notify.NewTelegram(api, cfg.Location(), logger)
		router.Handle(models.ChannelBrowser, tg)
		digests = tg
		logger.Info("telegram notifier ready", zap.String("bot", api.Self.UserName))
	} else {
		logger.Warn("TELEGRAM_TOKEN not set, browser reminders and digests disabled")
	}
	if cfg.SMTP.Host != "" {
		router.Handle(models.ChannelEmail, notify.NewEmail(notify.SMTPConfig{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			Username: cfg.SMTP.Username,
			Password: cfg.SMTP.Password,
			From:     cfg.SMTP.From,
		}, st.settings, logger))
	} else {
		logger.Warn("SMTP_HOST not set, email reminders disabled")
	}

	dispatcher := reminder.NewDispatcher(st.reminders, router, cfg.ClaimLease, logger)
	sched := scheduler.New(scheduler.Config{
		SweepSchedule:  cfg.SweepSchedule,
		DigestSchedule: cfg.DigestSchedule,
	}, dispatcher, st.settings, svc, digests, logger)

	// catch up on anything that came due while the process was down
	sched.Notify()
	return sched.Start(ctx)
}
