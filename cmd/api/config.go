package main

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/aniladanir/billing-reminder-service/internal/persistant/gormdb"
	"github.com/spf13/viper"
)

type Config struct {
	HttpPort         int             `mapstructure:"http_port"`
	DbDriver         string          `mapstructure:"db_driver"`
	DbConnString     string          `mapstructure:"db_conn_string"`
	DbMaxAttempts    int             `mapstructure:"db_max_attempts"`
	RedisAddr        string          `mapstructure:"redis_addr"`
	RedisPassword    string          `mapstructure:"redis_password"`
	RedisDB          int             `mapstructure:"redis_db"`
	Timezone         string          `mapstructure:"timezone"`
	LogLevel         string          `mapstructure:"log_level"`
	DispatchMaxRetry int             `mapstructure:"dispatch_max_retry"`
	Scheduler        SchedulerConfig `mapstructure:"scheduler"`
	Evolution        EvolutionConfig `mapstructure:"evolution"`
	Pix              PixConfig       `mapstructure:"pix"`

	Location *time.Location `mapstructure:"-"`
	Level    slog.Level     `mapstructure:"-"`
}

type SchedulerConfig struct {
	Autostart     bool          `mapstructure:"autostart"`
	Interval      time.Duration `mapstructure:"interval"`
	GraceWindow   time.Duration `mapstructure:"grace_window"`
	CatchUpMissed bool          `mapstructure:"catch_up_missed"`
	CatchUpLimit  time.Duration `mapstructure:"catch_up_limit"`
	StaleAfter    time.Duration `mapstructure:"stale_after"`
}

type EvolutionConfig struct {
	ApiUrl   string        `mapstructure:"api_url"`
	ApiKey   string        `mapstructure:"api_key"`
	Instance string        `mapstructure:"instance"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

type PixConfig struct {
	ApiUrl  string        `mapstructure:"api_url"`
	Name    string        `mapstructure:"nome"`
	City    string        `mapstructure:"cidade"`
	Key     string        `mapstructure:"chave"`
	TxID    string        `mapstructure:"txid"`
	Timeout time.Duration `mapstructure:"timeout"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("http_port", 6060)
	v.SetDefault("db_driver", gormdb.DriverPostgres)
	v.SetDefault("db_conn_string", "host=localhost user=postgres password=postgres dbname=billing port=5432 sslmode=disable")
	v.SetDefault("db_max_attempts", 5)
	v.SetDefault("redis_addr", "")
	v.SetDefault("redis_password", "")
	v.SetDefault("redis_db", 0)
	v.SetDefault("timezone", "America/Sao_Paulo")
	v.SetDefault("log_level", "info")
	v.SetDefault("dispatch_max_retry", 3)

	v.SetDefault("scheduler.autostart", true)
	v.SetDefault("scheduler.interval", "1m")
	v.SetDefault("scheduler.grace_window", "1m")
	v.SetDefault("scheduler.catch_up_missed", false)
	v.SetDefault("scheduler.catch_up_limit", "24h")
	v.SetDefault("scheduler.stale_after", "10m")

	v.SetDefault("evolution.api_url", "http://localhost:8080")
	v.SetDefault("evolution.api_key", "")
	v.SetDefault("evolution.instance", "billing")
	v.SetDefault("evolution.timeout", "15s")

	v.SetDefault("pix.api_url", "https://gerarqrcodepix.com.br")
	v.SetDefault("pix.nome", "")
	v.SetDefault("pix.cidade", "")
	v.SetDefault("pix.chave", "")
	v.SetDefault("pix.txid", "")
	v.SetDefault("pix.timeout", "10s")
}

// ReadConfig reads json formatted configuration from the given file. Values
// can be overridden with BILLING_ prefixed environment variables, nested keys
// joined by underscores (BILLING_SCHEDULER_INTERVAL). A missing file leaves
// the defaults in place.
func ReadConfig(configFile string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("BILLING")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		v.SetConfigType("json")
		if err := v.ReadInConfig(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := new(Config)
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the config and resolves the derived fields
func (c *Config) Validate() error {
	if c.HttpPort <= 0 || c.HttpPort > 65535 {
		return fmt.Errorf("invalid http_port: %d", c.HttpPort)
	}
	if c.DbDriver != gormdb.DriverPostgres && c.DbDriver != gormdb.DriverSqlite {
		return fmt.Errorf("unsupported db_driver %q", c.DbDriver)
	}
	if c.DbConnString == "" {
		return errors.New("db_conn_string is required")
	}
	if c.Scheduler.Interval <= 0 {
		return errors.New("scheduler.interval must be > 0")
	}
	if c.Scheduler.GraceWindow <= 0 {
		return errors.New("scheduler.grace_window must be > 0")
	}
	if c.Scheduler.CatchUpMissed && c.Scheduler.CatchUpLimit <= 0 {
		return errors.New("scheduler.catch_up_limit must be > 0 when catch up is enabled")
	}
	if c.Evolution.ApiUrl == "" || c.Evolution.Instance == "" {
		return errors.New("evolution.api_url and evolution.instance are required")
	}
	if c.Pix.ApiUrl == "" {
		return errors.New("pix.api_url is required")
	}

	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}
	c.Location = loc

	if err := c.Level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return fmt.Errorf("invalid log_level %q: %w", c.LogLevel, err)
	}
	return nil
}
