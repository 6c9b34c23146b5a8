// Package scheduler runs the reminder sweep and the daily digest on cron
// schedules.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/hray3182/Agenda/internal/models"
	"github.com/hray3182/Agenda/internal/reminder"
)

const (
	DefaultSweepSchedule  = "@every 1m"
	DefaultDigestSchedule = "@every 1m"
)

type Sweeper interface {
	ProcessDue(ctx context.Context, now time.Time) (reminder.SweepResult, error)
}

type SettingsStore interface {
	GetOrCreate(ctx context.Context, ownerID int64) (*models.UserSettings, error)
	GetAllWithDigestEnabled(ctx context.Context) ([]int64, error)
	SetLastDigestDate(ctx context.Context, ownerID int64, date time.Time) error
}

// DigestSource renders an owner's digest for the day containing now.
type DigestSource interface {
	DigestText(ctx context.Context, ownerID int64, now time.Time) (string, error)
}

type DigestSender interface {
	SendDigest(ctx context.Context, ownerID int64, text string) error
}

type Config struct {
	SweepSchedule  string
	DigestSchedule string
}

type Scheduler struct {
	cron     *cron.Cron
	cfg      Config
	sweeper  Sweeper
	settings SettingsStore
	digests  DigestSource
	sender   DigestSender
	now      func() time.Time
	notifyCh chan struct{}
	log      *zap.Logger
}

// New builds a scheduler. A nil sender turns the digest job off.
func New(cfg Config, sweeper Sweeper, settings SettingsStore, digests DigestSource, sender DigestSender, log *zap.Logger) *Scheduler {
	if cfg.SweepSchedule == "" {
		cfg.SweepSchedule = DefaultSweepSchedule
	}
	if cfg.DigestSchedule == "" {
		cfg.DigestSchedule = DefaultDigestSchedule
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Scheduler{
		cron:     cron.New(cron.WithLogger(cronLogger{log.Sugar()})),
		cfg:      cfg,
		sweeper:  sweeper,
		settings: settings,
		digests:  digests,
		sender:   sender,
		now:      time.Now,
		notifyCh: make(chan struct{}, 1),
		log:      log,
	}
}

// Notify triggers an immediate sweep. Non-blocking if one is already pending.
func (s *Scheduler) Notify() {
	select {
	case s.notifyCh <- struct{}{}:
	default:
	}
}

// Start registers the jobs and blocks until ctx is done. Jobs still
// running at shutdown are waited for.
func (s *Scheduler) Start(ctx context.Context) error {
	if _, err := s.cron.AddFunc(s.cfg.SweepSchedule, func() { s.Sweep(ctx) }); err != nil {
		return fmt.Errorf("failed to schedule reminder sweep %q: %w", s.cfg.SweepSchedule, err)
	}
	if s.sender != nil {
		if _, err := s.cron.AddFunc(s.cfg.DigestSchedule, func() { s.SendDigests(ctx) }); err != nil {
			return fmt.Errorf("failed to schedule digest %q: %w", s.cfg.DigestSchedule, err)
		}
	}

	s.cron.Start()
	s.log.Info("scheduler started",
		zap.String("sweep", s.cfg.SweepSchedule),
		zap.String("digest", s.cfg.DigestSchedule),
		zap.Bool("digest_enabled", s.sender != nil))

	for {
		select {
		case <-ctx.Done():
			<-s.cron.Stop().Done()
			s.log.Info("scheduler stopped")
			return nil
		case <-s.notifyCh:
			s.log.Debug("sweep triggered by notification")
			s.Sweep(ctx)
		}
	}
}

// Sweep runs one reminder pass and logs its result.
func (s *Scheduler) Sweep(ctx context.Context) reminder.SweepResult {
	res, err := s.sweeper.ProcessDue(ctx, s.now())
	if err != nil {
		s.log.Error("reminder sweep failed", zap.Error(err))
		return res
	}
	if res.Total > 0 {
		s.log.Info("reminder sweep",
			zap.Int("total", res.Total),
			zap.Int("sent", res.Sent),
			zap.Int("failed", res.Failed))
	}
	return res
}

// SendDigests sends today's digest to every owner whose digest time has
// passed and who has not had one today. It returns how many were sent.
func (s *Scheduler) SendDigests(ctx context.Context) int {
	if s.sender == nil {
		return 0
	}
	now := s.now()

	ownerIDs, err := s.settings.GetAllWithDigestEnabled(ctx)
	if err != nil {
		s.log.Error("failed to get owners with digest enabled", zap.Error(err))
		return 0
	}

	sent := 0
	for _, ownerID := range ownerIDs {
		if s.sendDigestIfNeeded(ctx, ownerID, now) {
			sent++
		}
	}
	return sent
}

func (s *Scheduler) sendDigestIfNeeded(ctx context.Context, ownerID int64, now time.Time) bool {
	log := s.log.With(zap.Int64("owner_id", ownerID))

	settings, err := s.settings.GetOrCreate(ctx, ownerID)
	if err != nil {
		log.Error("failed to get settings for digest", zap.Error(err))
		return false
	}
	if !settings.ShouldSendDigest(now) {
		return false
	}

	text, err := s.digests.DigestText(ctx, ownerID, now)
	if err != nil {
		log.Error("failed to compile digest", zap.Error(err))
		return false
	}
	if err := s.sender.SendDigest(ctx, ownerID, text); err != nil {
		log.Error("failed to send digest", zap.Error(err))
		return false
	}
	if err := s.settings.SetLastDigestDate(ctx, ownerID, now); err != nil {
		log.Error("failed to record digest date", zap.Error(err))
	}

	log.Info("sent daily digest")
	return true
}

// cronLogger routes cron's own logging into zap.
type cronLogger struct {
	s *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.s.Debugw("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.s.Errorw("cron: "+msg, append(keysAndValues, "error", err)...)
}
