package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	ModeOnce     = "once"
	ModeSchedule = "schedule"
)

type Config struct {
	App       AppConfig       `mapstructure:"app"`
	CoinGecko CoinGeckoConfig `mapstructure:"coingecko"`
	Email     EmailConfig     `mapstructure:"email"`
	Schedule  ScheduleConfig  `mapstructure:"schedule"`
	Log       LogConfig       `mapstructure:"log"`
	Postgres  PostgresConfig  `mapstructure:"postgres"`
	SSM       SSMConfig       `mapstructure:"ssm"`
}

type AppConfig struct {
	Mode         string        `mapstructure:"mode"`          // "once" or "schedule"
	RunOnStart   bool          `mapstructure:"run_on_start"`  // schedule mode: run once before the first wait
	Table        string        `mapstructure:"table"`         // target table name
	StageTimeout time.Duration `mapstructure:"stage_timeout"` // deadline for the load and notify stages
}

type CoinGeckoConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
	PerPage int           `mapstructure:"per_page"`
	Page    int           `mapstructure:"page"`
	APIKey  string        `mapstructure:"api_key"`
}

type EmailConfig struct {
	Sender    string `mapstructure:"sender"`
	Password  string `mapstructure:"password"`
	Receivers string `mapstructure:"receivers"` // comma separated
	SMTPHost  string `mapstructure:"smtp_host"`
	SMTPPort  int    `mapstructure:"smtp_port"`
}

// ReceiverList splits the comma separated receivers, dropping blanks.
func (e EmailConfig) ReceiverList() []string {
	var out []string
	for _, r := range strings.Split(e.Receivers, ",") {
		if r = strings.TrimSpace(r); r != "" {
			out = append(out, r)
		}
	}
	return out
}

type ScheduleConfig struct {
	Time string `mapstructure:"time"` // daily trigger, HH:MM local time
}

// Options defines the logger configuration options.
type LogConfig struct {
	Level       string `mapstructure:"level"`       // log level: "debug", "info", "warn", "error"
	Format      string `mapstructure:"format"`      // log format: "json" or "console"
	OutputFile  string `mapstructure:"output_file"` // file path to store logs (optional)
	Environment string `mapstructure:"environment"` // environment: "dev" or "prod"
}

// SSMConfig names the Parameter Store entries read in prod.
type SSMConfig struct {
	PostgresPassword string `mapstructure:"postgres_password"`
	EmailPassword    string `mapstructure:"email_password"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.mode", ModeSchedule)
	v.SetDefault("app.run_on_start", false)
	v.SetDefault("app.table", "crypto_data")
	v.SetDefault("app.stage_timeout", 2*time.Minute)

	v.SetDefault("coingecko.base_url", "https://api.coingecko.com/api/v3")
	v.SetDefault("coingecko.timeout", 30*time.Second)
	v.SetDefault("coingecko.per_page", 250)
	v.SetDefault("coingecko.page", 1)
	v.SetDefault("coingecko.api_key", "")

	v.SetDefault("email.sender", "")
	v.SetDefault("email.password", "")
	v.SetDefault("email.receivers", "")
	v.SetDefault("email.smtp_host", "smtp.gmail.com")
	v.SetDefault("email.smtp_port", 587)

	v.SetDefault("schedule.time", "09:00")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.output_file", filepath.Join("logs", "etl.log"))
	v.SetDefault("log.environment", "dev")

	v.SetDefault("postgres.host", "localhost")
	v.SetDefault("postgres.port", 5432)
	v.SetDefault("postgres.user", "postgres")
	v.SetDefault("postgres.password", "")
	v.SetDefault("postgres.dbname", "crypto_db")
	v.SetDefault("postgres.admin_dbname", "postgres")
	v.SetDefault("postgres.sslmode", "disable")
	v.SetDefault("postgres.timezone", "")

	v.SetDefault("ssm.postgres_password", "")
	v.SetDefault("ssm.email_password", "")
}

// Load loads application configuration using Viper.
// A .env file is applied first, then config.yaml (optional), then environment variables.
func Load() (*Config, error) {
	loadDotenv()

	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config") // config.yaml
	v.SetConfigType("yaml")
	if p := os.Getenv("CONFIG_PATH"); p != "" {
		v.AddConfigPath(p)
	}
	v.AddConfigPath(".")
	v.AddConfigPath("config")

	// Support environment variables with dot notation (e.g., POSTGRES_HOST)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("postgres.dbname", "POSTGRES_DBNAME", "POSTGRES_DB")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects values the pipeline cannot run with.
func (c *Config) Validate() error {
	if c.App.Mode != ModeOnce && c.App.Mode != ModeSchedule {
		return fmt.Errorf("invalid app.mode %q: want %q or %q", c.App.Mode, ModeOnce, ModeSchedule)
	}
	if strings.TrimSpace(c.App.Table) == "" {
		return errors.New("app.table must not be empty")
	}
	if _, err := time.Parse("15:04", c.Schedule.Time); err != nil {
		return fmt.Errorf("invalid schedule.time %q: want HH:MM", c.Schedule.Time)
	}
	if c.CoinGecko.PerPage < 1 || c.CoinGecko.PerPage > 250 {
		return fmt.Errorf("coingecko.per_page out of range [1,250]: %d", c.CoinGecko.PerPage)
	}
	if c.CoinGecko.Page < 1 {
		return fmt.Errorf("coingecko.page must be >= 1: %d", c.CoinGecko.Page)
	}
	return nil
}

// loadDotenv applies a .env file without overriding variables already set.
// ENV_FILE selects a different file; NO_DOTENV=1 skips loading.
func loadDotenv() {
	if os.Getenv("NO_DOTENV") == "1" {
		return
	}
	if envFile := os.Getenv("ENV_FILE"); envFile != "" {
		_ = godotenv.Load(envFile)
		return
	}
	_ = godotenv.Load(".env")
}
