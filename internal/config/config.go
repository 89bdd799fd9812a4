package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

var singleConfig *Config = nil

type Config struct {
	Database  *dbConfig
	Service   *svcConfig
	Scheduler *schedulerConfig
}

type dbConfig struct {
	Type     string `envconfig:"DB_TYPE" default:"pgsql"`
	Hostname string `envconfig:"DB_HOST" default:"localhost"`
	Port     string `envconfig:"DB_PORT" default:"5432"`
	Name     string `envconfig:"DB_NAME" default:"exams"`
	User     string `envconfig:"DB_USER" default:"admin"`
	Password string `envconfig:"DB_PASS" default:"adminpass"`
}

type svcConfig struct {
	Address         string   `envconfig:"EXAM_PIPELINE_ADDRESS" default:":3443"`
	MetricsAddress  string   `envconfig:"EXAM_PIPELINE_METRICS_ADDRESS" default:":8080"`
	BaseUrl         string   `envconfig:"EXAM_PIPELINE_BASE_URL" default:"http://localhost:3443"`
	LogLevel        string   `envconfig:"EXAM_PIPELINE_LOG_LEVEL" default:"info"`
	MigrationFolder string   `envconfig:"EXAM_PIPELINE_MIGRATIONS_FOLDER" default:""`
	Timezone        string   `envconfig:"EXAM_PIPELINE_TIMEZONE" default:"Asia/Kolkata"`
	AllowedOrigins  []string `envconfig:"EXAM_PIPELINE_ALLOWED_ORIGINS" default:"http://localhost:3000"`
	Auth            Auth
}

type Auth struct {
	AuthenticationType string `envconfig:"EXAM_PIPELINE_AUTH" default:""`
	JwkCertURL         string `envconfig:"EXAM_PIPELINE_JWK_URL" default:""`
	LocalSigningKey    string `envconfig:"EXAM_PIPELINE_SIGNING_KEY" default:""`
	CronSecret         string `envconfig:"CRON_SECRET" default:""`
	AdminRole          string `envconfig:"EXAM_PIPELINE_ADMIN_ROLE" default:"admin"`
}

type schedulerConfig struct {
	Enabled         bool          `envconfig:"EXAM_PIPELINE_SCHEDULER_ENABLED" default:"true"`
	RefreshInterval time.Duration `envconfig:"EXAM_PIPELINE_REFRESH_INTERVAL" default:"6h"`
	SweepInterval   time.Duration `envconfig:"EXAM_PIPELINE_SWEEP_INTERVAL" default:"15m"`
	StaleRunAfter   time.Duration `envconfig:"EXAM_PIPELINE_STALE_RUN_AFTER" default:"10m"`
}

func New() (*Config, error) {
	if singleConfig == nil {
		singleConfig = new(Config)
		if err := envconfig.Process("", singleConfig); err != nil {
			return nil, err
		}
	}
	return singleConfig, nil
}

// NewDefault returns a fresh configuration built from the environment and defaults.
// Unlike New it is never cached, so tests can mutate it freely.
func NewDefault() *Config {
	cfg := new(Config)
	if err := envconfig.Process("", cfg); err != nil {
		panic(fmt.Errorf("processing default configuration: %w", err))
	}
	return cfg
}

// Location resolves the configured time zone used to decide which calendar day it is.
func (c *Config) Location() (*time.Location, error) {
	if c.Service == nil || c.Service.Timezone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(c.Service.Timezone)
	if err != nil {
		return nil, fmt.Errorf("loading timezone %q: %w", c.Service.Timezone, err)
	}
	return loc, nil
}

func (c *Config) String() string {
	return fmt.Sprintf("db=%s@%s:%s/%s address=%s metrics=%s auth=%s refresh=%s sweep=%s",
		c.Database.Type, c.Database.Hostname, c.Database.Port, c.Database.Name,
		c.Service.Address, c.Service.MetricsAddress, c.Service.Auth.AuthenticationType,
		c.Scheduler.RefreshInterval, c.Scheduler.SweepInterval)
}
