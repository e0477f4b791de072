// File: internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type BotConfig struct {
	Token           string  `yaml:"token"`
	GroupID         int64   `yaml:"group_id"`          // protected group the subscription gates
	GroupInviteLink string  `yaml:"group_invite_link"` // sent on approval when set
	Workers         int     `yaml:"workers"`           // polling workers
	AdminIDs        []int64 `yaml:"admin_ids"`
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type WebConfig struct {
	Port          int           `yaml:"port"`
	AdminSecret   string        `yaml:"admin_secret"`    // HMAC secret for admin session cookies
	AdminTTL      time.Duration `yaml:"admin_ttl"`       // admin session lifetime
	SecureCookies bool          `yaml:"secure_cookies"`  // true behind TLS
	WebhookQueue  int           `yaml:"webhook_queue"`   // buffered reconcile jobs
	WebhookWorker int           `yaml:"webhook_workers"` // pool size draining the queue
}

type DatabaseConfig struct {
	URL string `yaml:"url"`
}

type RedisConfig struct {
	URL      string        `yaml:"url"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	LockTTL  time.Duration `yaml:"lock_ttl"` // per-key reconcile lock lifetime
}

type PaymentConfig struct {
	MercadoPago struct {
		AccessToken   string        `yaml:"access_token"`
		WebhookURL    string        `yaml:"webhook_url"`    // set as notification_url on charges
		WebhookSecret string        `yaml:"webhook_secret"` // advisory x-signature validation
		PayerEmail    string        `yaml:"payer_email"`    // fallback payer email for PIX charges
		Timeout       time.Duration `yaml:"timeout"`
		Sandbox       bool          `yaml:"sandbox"`
	} `yaml:"mercadopago"`
}

type PlanConfig struct {
	Code         string `yaml:"code"`
	Name         string `yaml:"name"`
	DurationDays int    `yaml:"duration_days"`
	AmountCents  int64  `yaml:"amount_cents"`
	Renewal      bool   `yaml:"renewal"`
}

type SweeperConfig struct {
	Interval      time.Duration `yaml:"interval"`       // sweep tick, default 10m
	RenewalWindow time.Duration `yaml:"renewal_window"` // trailing discount window, default 24h
	BatchLimit    int           `yaml:"batch_limit"`
}

type ReconcilerConfig struct {
	Interval   time.Duration `yaml:"interval"`    // stale-pending rescan tick
	StaleAfter time.Duration `yaml:"stale_after"` // pending age before a recheck
}

type Config struct {
	Bot        BotConfig        `yaml:"bot"`
	Log        LogConfig        `yaml:"log"`
	Web        WebConfig        `yaml:"web"`
	Database   DatabaseConfig   `yaml:"database"`
	Redis      RedisConfig      `yaml:"redis"`
	Payment    PaymentConfig    `yaml:"payment"`
	Plans      []PlanConfig     `yaml:"plans"`
	Sweeper    SweeperConfig    `yaml:"sweeper"`
	Reconciler ReconcilerConfig `yaml:"reconciler"`

	Runtime RuntimeConfig `yaml:"-"`
}

func LoadConfig(path string, dev bool) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.applyDefaults()

	// Minimal validation
	if cfg.Bot.Token == "" {
		return nil, errors.New("bot.token is required")
	}
	if cfg.Database.URL == "" {
		return nil, errors.New("database.url is required")
	}
	if cfg.Redis.URL == "" {
		return nil, errors.New("redis.url is required")
	}
	if cfg.Payment.MercadoPago.AccessToken == "" {
		return nil, errors.New("payment.mercadopago.access_token is required")
	}

	cfg.Runtime.Dev = dev
	return &cfg, nil
}

func (cfg *Config) applyDefaults() {
	if cfg.Bot.Workers <= 0 {
		cfg.Bot.Workers = 8
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Web.Port <= 0 {
		cfg.Web.Port = 8080
	}
	if cfg.Web.AdminTTL <= 0 {
		cfg.Web.AdminTTL = 30 * time.Minute
	}
	if cfg.Web.WebhookQueue <= 0 {
		cfg.Web.WebhookQueue = 256
	}
	if cfg.Web.WebhookWorker <= 0 {
		cfg.Web.WebhookWorker = 4
	}
	if cfg.Redis.LockTTL <= 0 {
		cfg.Redis.LockTTL = 30 * time.Second
	}
	if cfg.Payment.MercadoPago.Timeout <= 0 {
		cfg.Payment.MercadoPago.Timeout = 25 * time.Second
	}
	if cfg.Sweeper.Interval <= 0 {
		cfg.Sweeper.Interval = 10 * time.Minute
	}
	if cfg.Sweeper.RenewalWindow <= 0 {
		cfg.Sweeper.RenewalWindow = 24 * time.Hour
	}
	if cfg.Sweeper.BatchLimit <= 0 {
		cfg.Sweeper.BatchLimit = 500
	}
	if cfg.Reconciler.Interval <= 0 {
		cfg.Reconciler.Interval = time.Minute
	}
	if cfg.Reconciler.StaleAfter <= 0 {
		cfg.Reconciler.StaleAfter = 10 * time.Minute
	}
}
