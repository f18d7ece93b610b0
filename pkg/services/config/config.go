package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/loxe-ai/evidence-tracer/pkg/store/postgres"
	"github.com/spf13/viper"
)

const EnvPrefix = "EVIDENCE"

type Config struct {
	LogLevel   string           `mapstructure:"log_level"`
	AWS        AWSConfig        `mapstructure:"aws"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Server     ServerConfig     `mapstructure:"server"`
	Scan       ScanConfig       `mapstructure:"scan"`
	Onboarding OnboardingConfig `mapstructure:"onboarding"`
}

type AWSConfig struct {
	Region          string        `mapstructure:"region"`
	NetworkTimeout  time.Duration `mapstructure:"network_timeout"`
	SessionDuration time.Duration `mapstructure:"session_duration"`
}

type DatabaseConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	PingTimeout     time.Duration `mapstructure:"ping_timeout"`
}

type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type ScanConfig struct {
	LeaseTTL time.Duration `mapstructure:"lease_ttl"`
	Targets  string        `mapstructure:"targets"`
}

// OnboardingConfig describes the CloudFormation stack customers launch to
// create the scan role.
type OnboardingConfig struct {
	Region       string `mapstructure:"region"`
	TemplateURL  string `mapstructure:"template_url"`
	AppAccountID string `mapstructure:"app_account_id"`
	StackName    string `mapstructure:"stack_name"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log_level", "info")

	v.SetDefault("aws.region", "us-east-1")
	v.SetDefault("aws.network_timeout", 30*time.Second)
	v.SetDefault("aws.session_duration", time.Hour)

	v.SetDefault("database.dsn", "")
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", 30*time.Minute)
	v.SetDefault("database.conn_max_idle_time", 5*time.Minute)
	v.SetDefault("database.ping_timeout", 5*time.Second)

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("scan.lease_ttl", 15*time.Minute)
	v.SetDefault("scan.targets", "")

	v.SetDefault("onboarding.region", "us-east-1")
	v.SetDefault("onboarding.template_url", "")
	v.SetDefault("onboarding.app_account_id", "")
	v.SetDefault("onboarding.stack_name", "Loxe-Evidence-Tracer-Role-Stack")
}

// Load reads the optional config file at path and applies EVIDENCE_*
// environment overrides, e.g. EVIDENCE_DATABASE_DSN. DATABASE_URL is
// accepted for the DSN as well.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("database.dsn", EnvPrefix+"_DATABASE_DSN", "DATABASE_URL"); err != nil {
		return nil, fmt.Errorf("failed to bind database env: %w", err)
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}

// LoadEnvFile loads a dotenv file into the process environment. A missing
// file is not an error.
func LoadEnvFile(path string) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

func (c DatabaseConfig) Validate() error {
	if c.DSN == "" {
		return fmt.Errorf("database dsn is required (set %s_DATABASE_DSN or DATABASE_URL)", EnvPrefix)
	}
	return nil
}

func (c DatabaseConfig) Settings() postgres.Settings {
	return postgres.Settings{
		DSN:             c.DSN,
		MaxOpenConns:    c.MaxOpenConns,
		MaxIdleConns:    c.MaxIdleConns,
		ConnMaxLifetime: c.ConnMaxLifetime,
		ConnMaxIdleTime: c.ConnMaxIdleTime,
		PingTimeout:     c.PingTimeout,
	}
}

func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
