// Package config loads service configuration from the environment.
// A .env file in the working directory is read first when present.
package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/chris/library-ledger/pkg/engine"
	"github.com/chris/library-ledger/pkg/wallet"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

const (
	BackendDynamoDB = "dynamodb"
	BackendPostgres = "postgres"
	BackendMemory   = "memory"

	SchedulerSQS   = "sqs"
	SchedulerLocal = "local"

	NotifierSES = "ses"
	NotifierLog = "log"
)

// Tables names the DynamoDB tables used by the dynamodb backend.
type Tables struct {
	Books       string
	Members     string
	Holdings    string
	Actions     string
	Wallets     string
	Movements   string
	Restocks    string
	Connections string
}

// Config is the full service configuration.
type Config struct {
	HTTPPort string

	StoreBackend string
	Tables       Tables
	PostgresDSN  string

	Scheduler   string
	SQSQueueURL string

	Notifier          string
	EmailFrom         string
	WebsocketEndpoint string

	Engine engine.Policy
	Wallet wallet.Policy

	// BackgroundJobs runs the reconciler and reminder tickers inside cmd/app.
	// It defaults to on only with the local scheduler; on AWS the lambdas run them.
	BackgroundJobs bool

	ReconcileInterval time.Duration
	ReconcileGrace    time.Duration
	ReminderInterval  time.Duration
	BorrowPeriod      time.Duration
	EffectTimeout     time.Duration
}

// Load reads the configuration and validates it.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}
	return FromEnv()
}

// FromEnv builds a Config from the process environment only.
func FromEnv() (*Config, error) {
	p := &parser{}
	ep := engine.DefaultPolicy()
	wp := wallet.DefaultPolicy()
	sched := getEnv("SCHEDULER", SchedulerLocal)

	cfg := &Config{
		HTTPPort:     getEnv("HTTP_PORT", "8080"),
		StoreBackend: getEnv("STORE_BACKEND", BackendMemory),
		Tables: Tables{
			Books:       os.Getenv("DYNAMODB_BOOKS_TABLE_NAME"),
			Members:     os.Getenv("DYNAMODB_MEMBERS_TABLE_NAME"),
			Holdings:    os.Getenv("DYNAMODB_HOLDINGS_TABLE_NAME"),
			Actions:     os.Getenv("DYNAMODB_ACTIONS_TABLE_NAME"),
			Wallets:     os.Getenv("DYNAMODB_WALLETS_TABLE_NAME"),
			Movements:   os.Getenv("DYNAMODB_MOVEMENTS_TABLE_NAME"),
			Restocks:    os.Getenv("DYNAMODB_RESTOCKS_TABLE_NAME"),
			Connections: os.Getenv("DYNAMODB_CONNECTIONS_TABLE_NAME"),
		},
		PostgresDSN:       os.Getenv("POSTGRES_DSN"),
		Scheduler:         sched,
		SQSQueueURL:       os.Getenv("SQS_QUEUE_URL"),
		Notifier:          getEnv("NOTIFIER", NotifierLog),
		EmailFrom:         getEnv("EMAIL_FROM", "noreply@library.com"),
		WebsocketEndpoint: os.Getenv("WEBSOCKET_API_ENDPOINT"),
		Engine: engine.Policy{
			BorrowLimit:         p.intVar("BORROW_LIMIT", ep.BorrowLimit),
			BuyLimit:            p.intVar("BUY_LIMIT", ep.BuyLimit),
			MaxBuyQuantity:      p.intVar("MAX_BUY_QUANTITY", ep.MaxBuyQuantity),
			AllowRepeatPurchase: p.boolVar("ALLOW_REPEAT_PURCHASE", ep.AllowRepeatPurchase),
			LowStockThreshold:   p.intVar("LOW_STOCK_THRESHOLD", ep.LowStockThreshold),
			RestockQuantity:     p.intVar("RESTOCK_QUANTITY", ep.RestockQuantity),
			RestockDelay:        p.durationVar("RESTOCK_DELAY", ep.RestockDelay),
			ManagementEmail:     getEnv("MANAGEMENT_EMAIL", ep.ManagementEmail),
		},
		Wallet: wallet.Policy{
			MilestoneThreshold: p.decimalVar("MILESTONE_THRESHOLD", wp.MilestoneThreshold),
			ManagementEmail:    getEnv("MILESTONE_EMAIL", wp.ManagementEmail),
		},
		BackgroundJobs:    p.boolVar("BACKGROUND_JOBS", sched == SchedulerLocal),
		ReconcileInterval: p.durationVar("RECONCILE_INTERVAL", time.Minute),
		ReconcileGrace:    p.durationVar("RECONCILE_GRACE", 5*time.Minute),
		ReminderInterval:  p.durationVar("REMINDER_INTERVAL", 24*time.Hour),
		BorrowPeriod:      p.durationVar("BORROW_PERIOD", 3*24*time.Hour),
		EffectTimeout:     p.durationVar("EFFECT_TIMEOUT", 10*time.Second),
	}
	if err := errors.Join(p.errs...); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that the selected backends have what they need.
func (c *Config) Validate() error {
	var errs []error

	switch c.StoreBackend {
	case BackendDynamoDB:
		t := c.Tables
		if t.Books == "" || t.Members == "" || t.Holdings == "" || t.Actions == "" ||
			t.Wallets == "" || t.Movements == "" || t.Restocks == "" {
			errs = append(errs, errors.New("one or more DynamoDB table name environment variables are not set"))
		}
	case BackendPostgres:
		if c.PostgresDSN == "" {
			errs = append(errs, errors.New("POSTGRES_DSN environment variable not set"))
		}
	case BackendMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown STORE_BACKEND %q", c.StoreBackend))
	}

	switch c.Scheduler {
	case SchedulerSQS:
		if c.SQSQueueURL == "" {
			errs = append(errs, errors.New("SQS_QUEUE_URL environment variable not set"))
		}
	case SchedulerLocal:
	default:
		errs = append(errs, fmt.Errorf("unknown SCHEDULER %q", c.Scheduler))
	}

	switch c.Notifier {
	case NotifierSES, NotifierLog:
	default:
		errs = append(errs, fmt.Errorf("unknown NOTIFIER %q", c.Notifier))
	}

	e := c.Engine
	if e.BorrowLimit < 1 || e.BuyLimit < 1 || e.MaxBuyQuantity < 1 {
		errs = append(errs, errors.New("borrow limit, buy limit and max buy quantity must be positive"))
	}
	if e.LowStockThreshold < 0 || e.RestockQuantity < 1 || e.RestockDelay < 0 {
		errs = append(errs, errors.New("invalid restock settings"))
	}

	return errors.Join(errs...)
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

// parser collects every malformed variable instead of stopping at the first one.
type parser struct {
	errs []error
}

func (p *parser) intVar(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: %w", key, err))
		return fallback
	}
	return n
}

func (p *parser) boolVar(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: %w", key, err))
		return fallback
	}
	return b
}

func (p *parser) durationVar(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: %w", key, err))
		return fallback
	}
	return d
}

func (p *parser) decimalVar(key string, fallback decimal.Decimal) decimal.Decimal {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: %w", key, err))
		return fallback
	}
	return d
}
