// Package config loads service configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config is the root configuration of the portal.
type Config struct {
	Env        string `env:"APP_ENV" envDefault:"development"`
	AdminToken string `env:"ADMIN_TOKEN"`

	HTTP     HTTP     `envPrefix:"HTTP_"`
	DB       DB       `envPrefix:"DB_"`
	Store    Store    `envPrefix:"STORE_"`
	DynamoDB DynamoDB `envPrefix:"DYNAMODB_"`
	CMS      CMS      `envPrefix:"CMS_"`
	Auth     Auth     `envPrefix:"AUTH_"`
	Activity Activity `envPrefix:"ACTIVITY_"`
}

// HTTP holds listener settings.
type HTTP struct {
	Port         string        `env:"PORT" envDefault:"8080"`
	ReadTimeout  time.Duration `env:"READ_TIMEOUT" envDefault:"15s"`
	WriteTimeout time.Duration `env:"WRITE_TIMEOUT" envDefault:"15s"`
	IdleTimeout  time.Duration `env:"IDLE_TIMEOUT" envDefault:"60s"`
	WebDir       string        `env:"WEB_DIR" envDefault:"./web"`
	CORSOrigins  []string      `env:"CORS_ORIGINS" envSeparator:"," envDefault:"*"`
}

// DB holds PostgreSQL connection settings. URL wins over the discrete fields.
type DB struct {
	URL      string `env:"URL"`
	Host     string `env:"HOST" envDefault:"localhost"`
	Port     string `env:"PORT" envDefault:"5432"`
	User     string `env:"USER" envDefault:"postgres"`
	Password string `env:"PASSWORD" envDefault:"postgres"`
	Name     string `env:"NAME" envDefault:"eventportal"`
	SSLMode  string `env:"SSLMODE" envDefault:"disable"`
	MaxConns int32  `env:"MAX_CONNS" envDefault:"20"`
	MinConns int32  `env:"MIN_CONNS" envDefault:"2"`
}

// DSN builds a libpq-compatible connection string.
func (c DB) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

// Backends accepted for the event registry and the profile store.
const (
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
	BackendDynamoDB = "dynamodb"
)

// Store selects the storage backends.
type Store struct {
	Events   string `env:"EVENTS" envDefault:"postgres"`
	Profiles string `env:"PROFILES" envDefault:"postgres"`
}

// DynamoDB configures the document-store profile backend.
type DynamoDB struct {
	Table    string `env:"TABLE" envDefault:"eventportal-profiles"`
	Region   string `env:"REGION" envDefault:"us-east-1"`
	Endpoint string `env:"ENDPOINT"`
}

// CMS configures the headless content API.
type CMS struct {
	BaseURL       string        `env:"BASE_URL" envDefault:"https://cdn.contentful.com"`
	Space         string        `env:"SPACE"`
	Environment   string        `env:"ENVIRONMENT" envDefault:"master"`
	Token         string        `env:"TOKEN"`
	ContentType   string        `env:"CONTENT_TYPE" envDefault:"event"`
	Timeout       time.Duration `env:"TIMEOUT" envDefault:"10s"`
	RetryAttempts uint          `env:"RETRY_ATTEMPTS" envDefault:"3"`
	RetryDelay    time.Duration `env:"RETRY_DELAY" envDefault:"1s"`
	SyncInterval  time.Duration `env:"SYNC_INTERVAL" envDefault:"5m"`
}

// Auth configures ID-token verification and portal sessions.
type Auth struct {
	Issuer        string        `env:"ISSUER"`
	Audience      string        `env:"AUDIENCE"`
	Algorithm     string        `env:"ALGORITHM" envDefault:"RS256"`
	PublicKeyPEM  string        `env:"PUBLIC_KEY"`
	SharedSecret  string        `env:"SHARED_SECRET"`
	SessionSecret string        `env:"SESSION_SECRET"`
	SessionTTL    time.Duration `env:"SESSION_TTL" envDefault:"168h"`
	CookieName    string        `env:"COOKIE_NAME" envDefault:"portal_session"`
	CookieSecure  bool          `env:"COOKIE_SECURE" envDefault:"true"`
}

// Activity sinks.
const (
	SinkLog   = "log"
	SinkKafka = "kafka"
	SinkNATS  = "nats"
)

// Activity configures where activity records are shipped.
type Activity struct {
	Sink         string        `env:"SINK" envDefault:"log"`
	Buffer       int           `env:"BUFFER" envDefault:"1024"`
	FlushEvery   time.Duration `env:"FLUSH_EVERY" envDefault:"250ms"`
	KafkaBrokers []string      `env:"KAFKA_BROKERS" envSeparator:","`
	KafkaTopic   string        `env:"KAFKA_TOPIC" envDefault:"portal.activity"`
	NATSURL      string        `env:"NATS_URL"`
	NATSSubject  string        `env:"NATS_SUBJECT" envDefault:"portal.activity"`
}

// Load parses the environment into a Config and validates it.
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Production reports whether the service runs in production mode.
func (c *Config) Production() bool {
	return c.Env == "production"
}

// Validate checks cross-field requirements.
func (c *Config) Validate() error {
	var errs []error

	switch c.Store.Events {
	case BackendPostgres, BackendMemory:
	default:
		errs = append(errs, fmt.Errorf("STORE_EVENTS must be postgres or memory, got %q", c.Store.Events))
	}
	switch c.Store.Profiles {
	case BackendPostgres, BackendMemory:
	case BackendDynamoDB:
		if c.DynamoDB.Table == "" {
			errs = append(errs, errors.New("DYNAMODB_TABLE is required for the dynamodb profile store"))
		}
	default:
		errs = append(errs, fmt.Errorf("STORE_PROFILES must be postgres, memory or dynamodb, got %q", c.Store.Profiles))
	}

	switch c.Activity.Sink {
	case SinkLog:
	case SinkKafka:
		if len(c.Activity.KafkaBrokers) == 0 {
			errs = append(errs, errors.New("ACTIVITY_KAFKA_BROKERS is required for the kafka sink"))
		}
	case SinkNATS:
		if c.Activity.NATSURL == "" {
			errs = append(errs, errors.New("ACTIVITY_NATS_URL is required for the nats sink"))
		}
	default:
		errs = append(errs, fmt.Errorf("ACTIVITY_SINK must be log, kafka or nats, got %q", c.Activity.Sink))
	}
	if c.Activity.Buffer <= 0 {
		errs = append(errs, errors.New("ACTIVITY_BUFFER must be positive"))
	}

	if c.CMS.RetryAttempts == 0 {
		errs = append(errs, errors.New("CMS_RETRY_ATTEMPTS must be at least 1"))
	}

	if c.Auth.SessionSecret == "" {
		errs = append(errs, errors.New("AUTH_SESSION_SECRET is required"))
	}
	if strings.TrimSpace(c.Auth.Issuer) == "" {
		errs = append(errs, errors.New("AUTH_ISSUER is required"))
	}
	if strings.TrimSpace(c.Auth.Audience) == "" {
		errs = append(errs, errors.New("AUTH_AUDIENCE is required"))
	}
	switch c.Auth.Algorithm {
	case "RS256":
		if c.Auth.PublicKeyPEM == "" {
			errs = append(errs, errors.New("AUTH_PUBLIC_KEY is required for RS256"))
		}
	case "HS256":
		if c.Auth.SharedSecret == "" {
			errs = append(errs, errors.New("AUTH_SHARED_SECRET is required for HS256"))
		}
	default:
		errs = append(errs, fmt.Errorf("AUTH_ALGORITHM must be RS256 or HS256, got %q", c.Auth.Algorithm))
	}

	return errors.Join(errs...)
}
