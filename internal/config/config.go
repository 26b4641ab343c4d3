package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port      string `mapstructure:"PORT"`
	Env       string `mapstructure:"ENV"`
	LogLevel  string `mapstructure:"LOG_LEVEL"`
	ProjectID string `mapstructure:"FIREBASE_PROJECT_ID"`

	DatabaseURL        string `mapstructure:"FIREBASE_DATABASE_URL"`
	ServiceAccountJSON string `mapstructure:"FIREBASE_SERVICE_ACCOUNT_JSON"`

	// StoreBackend is rtdb, firestore or memory.
	StoreBackend      string        `mapstructure:"STORE_BACKEND"`
	StorePollInterval time.Duration `mapstructure:"STORE_POLL_INTERVAL"`

	AllowedOrigins []string `mapstructure:"ALLOWED_ORIGINS"`
	AdminUID       string   `mapstructure:"ADMIN_UID"`

	Timezone       string   `mapstructure:"TIMEZONE"`
	BusinessOpen   string   `mapstructure:"BUSINESS_OPEN"`
	BusinessClose  string   `mapstructure:"BUSINESS_CLOSE"`
	SlotMinutes    int      `mapstructure:"SLOT_MINUTES"`
	WindowDays     int      `mapstructure:"WINDOW_DAYS"`
	HorizonDays    int      `mapstructure:"HORIZON_DAYS"`
	ClosedWeekdays []string `mapstructure:"CLOSED_WEEKDAYS"`

	DefaultLanguage string `mapstructure:"DEFAULT_LANGUAGE"`

	// Slot lock; disabled when RedisAddr is empty.
	RedisAddr     string        `mapstructure:"REDIS_ADDR"`
	RedisPassword string        `mapstructure:"REDIS_PASSWORD"`
	RedisDB       int           `mapstructure:"REDIS_DB"`
	SlotLockTTL   time.Duration `mapstructure:"SLOT_LOCK_TTL"`
	SlotLockWait  time.Duration `mapstructure:"SLOT_LOCK_WAIT"`

	RateLimitPerMin int `mapstructure:"RATE_LIMIT_PER_MIN"`
}

var defaults = map[string]any{
	"PORT":                          "8080",
	"ENV":                           "development",
	"LOG_LEVEL":                     "",
	"FIREBASE_PROJECT_ID":           "",
	"GOOGLE_CLOUD_PROJECT":          "",
	"FIREBASE_DATABASE_URL":         "",
	"FIREBASE_SERVICE_ACCOUNT_JSON": "",
	"STORE_BACKEND":                 "rtdb",
	"STORE_POLL_INTERVAL":           "2s",
	"ALLOWED_ORIGINS":               "http://localhost:3000",
	"ADMIN_UID":                     "",
	"TIMEZONE":                      "Asia/Jerusalem",
	"BUSINESS_OPEN":                 "09:00",
	"BUSINESS_CLOSE":                "19:00",
	"SLOT_MINUTES":                  30,
	"WINDOW_DAYS":                   5,
	"HORIZON_DAYS":                  30,
	"CLOSED_WEEKDAYS":               "saturday",
	"DEFAULT_LANGUAGE":              "he",
	"REDIS_ADDR":                    "",
	"REDIS_PASSWORD":                "",
	"REDIS_DB":                      0,
	"SLOT_LOCK_TTL":                 "5s",
	"SLOT_LOCK_WAIT":                "2s",
	"RATE_LIMIT_PER_MIN":            30,
}

// Load reads configuration from the environment.
func Load() (Config, error) {
	v := viper.New()
	v.AutomaticEnv()
	for k, d := range defaults {
		v.SetDefault(k, d)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to load config: %w", err)
	}

	if cfg.ProjectID == "" {
		cfg.ProjectID = v.GetString("GOOGLE_CLOUD_PROJECT")
	}
	cfg.AllowedOrigins = splitList(cfg.AllowedOrigins)
	cfg.ClosedWeekdays = splitList(cfg.ClosedWeekdays)
	cfg.StoreBackend = strings.ToLower(strings.TrimSpace(cfg.StoreBackend))

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch c.StoreBackend {
	case "rtdb":
		if c.DatabaseURL == "" {
			return fmt.Errorf("FIREBASE_DATABASE_URL is required for the rtdb store")
		}
	case "firestore":
		if c.ProjectID == "" {
			return fmt.Errorf("missing FIREBASE_PROJECT_ID or GOOGLE_CLOUD_PROJECT")
		}
	case "memory":
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q", c.StoreBackend)
	}
	if c.SlotMinutes <= 0 || c.WindowDays <= 0 || c.HorizonDays <= 0 {
		return fmt.Errorf("SLOT_MINUTES, WINDOW_DAYS and HORIZON_DAYS must be positive")
	}
	return nil
}

func (c Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("bad TIMEZONE %q: %w", c.Timezone, err)
	}
	return loc, nil
}

func (c Config) IsProduction() bool {
	return c.Env == "production"
}

// splitList accepts both "a,b" and already-split values.
func splitList(in []string) []string {
	out := []string{}
	for _, s := range in {
		for _, p := range strings.Split(s, ",") {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}
