package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/hray3182/Agenda/internal/interval"
)

type SMTPConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"-"`
	From     string `yaml:"from"`
}

// Config holds process settings. Secrets come from the environment only;
// the engine section may also be read from a YAML file named by CONFIG_FILE.
type Config struct {
	DatabaseURI   string `yaml:"-"`
	TelegramToken string `yaml:"-"`

	// Timezone is the IANA zone used when an owner has no zone of their own.
	Timezone  string `yaml:"timezone"`
	WeekStart string `yaml:"week_start"`

	// MaxOccurrences caps the occurrences one series yields per expansion.
	MaxOccurrences int  `yaml:"max_occurrences"`
	ListWeeks      int  `yaml:"list_weeks"`
	AllowConflicts bool `yaml:"allow_conflicts"`

	// SweepSchedule and DigestSchedule are robfig/cron specs.
	SweepSchedule  string        `yaml:"sweep_schedule"`
	DigestSchedule string        `yaml:"digest_schedule"`
	ClaimLease     time.Duration `yaml:"claim_lease"`

	SMTP     SMTPConfig `yaml:"smtp"`
	LogLevel string     `yaml:"log_level"`
}

func DefaultConfig() *Config {
	return &Config{
		Timezone:       "UTC",
		WeekStart:      "monday",
		MaxOccurrences: 500,
		ListWeeks:      4,
		SweepSchedule:  "@every 1m",
		DigestSchedule: "@every 1m",
		ClaimLease:     5 * time.Minute,
		SMTP:           SMTPConfig{Port: 587},
		LogLevel:       "info",
	}
}

// Normalize fills zero values with defaults and falls back on unknown ones.
func (c *Config) Normalize() {
	def := DefaultConfig()
	if _, err := time.LoadLocation(c.Timezone); c.Timezone == "" || err != nil {
		c.Timezone = def.Timezone
	}
	if _, err := interval.ParseWeekday(c.WeekStart); err != nil {
		c.WeekStart = def.WeekStart
	}
	if c.MaxOccurrences <= 0 {
		c.MaxOccurrences = def.MaxOccurrences
	}
	if c.ListWeeks <= 0 {
		c.ListWeeks = def.ListWeeks
	}
	if c.SweepSchedule == "" {
		c.SweepSchedule = def.SweepSchedule
	}
	if c.DigestSchedule == "" {
		c.DigestSchedule = def.DigestSchedule
	}
	if c.ClaimLease <= 0 {
		c.ClaimLease = def.ClaimLease
	}
	if c.SMTP.Port <= 0 {
		c.SMTP.Port = def.SMTP.Port
	}
	if c.LogLevel == "" {
		c.LogLevel = def.LogLevel
	}
}

// Location resolves Timezone; Normalize guarantees it loads.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func (c *Config) WeekStartDay() time.Weekday {
	d, err := interval.ParseWeekday(c.WeekStart)
	if err != nil {
		return time.Monday
	}
	return d
}

// Load reads .env if present, then the YAML file named by CONFIG_FILE, then
// the environment. Later sources win.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg := DefaultConfig()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := loadFile(path, cfg); err != nil {
			return nil, err
		}
	}
	if err := applyEnv(cfg, os.Getenv); err != nil {
		return nil, err
	}
	cfg.Normalize()
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config, getenv func(string) string) error {
	str := func(key string, dst *string) {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}
	num := func(key string, dst *int) error {
		v := getenv(key)
		if v == "" {
			return nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", key, err)
		}
		*dst = n
		return nil
	}

	str("DATABASE_URI", &cfg.DatabaseURI)
	str("TELEGRAM_TOKEN", &cfg.TelegramToken)
	str("TIMEZONE", &cfg.Timezone)
	str("WEEK_START", &cfg.WeekStart)
	str("SWEEP_SCHEDULE", &cfg.SweepSchedule)
	str("DIGEST_SCHEDULE", &cfg.DigestSchedule)
	str("SMTP_HOST", &cfg.SMTP.Host)
	str("SMTP_USERNAME", &cfg.SMTP.Username)
	str("SMTP_PASSWORD", &cfg.SMTP.Password)
	str("SMTP_FROM", &cfg.SMTP.From)
	str("LOG_LEVEL", &cfg.LogLevel)

	if err := num("MAX_OCCURRENCES", &cfg.MaxOccurrences); err != nil {
		return err
	}
	if err := num("LIST_WEEKS", &cfg.ListWeeks); err != nil {
		return err
	}
	if err := num("SMTP_PORT", &cfg.SMTP.Port); err != nil {
		return err
	}
	if v := getenv("ALLOW_CONFLICTS"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid ALLOW_CONFLICTS: %w", err)
		}
		cfg.AllowConflicts = b
	}
	if v := getenv("CLAIM_LEASE"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid CLAIM_LEASE: %w", err)
		}
		cfg.ClaimLease = d
	}
	return nil
}
