package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server      ServerConfig
	Database    DatabaseConfig
	Redis       RedisConfig
	JWT         JWTConfig
	Master      MasterConfig
	Wager       WagerConfig
	Idempotency IdempotencyConfig
}

type ServerConfig struct {
	Host string
	Port string
}

type DatabaseConfig struct {
	Driver      string
	Host        string
	Port        string
	User        string
	Password    string
	Name        string
	SSLMode     string
	AutoMigrate bool
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type JWTConfig struct {
	Secret string
	TTL    time.Duration
}

// MasterConfig holds the credentials admin requests are signed with.
type MasterConfig struct {
	Code   string
	Secret string
}

type WagerConfig struct {
	Substrate       string
	Referee         string
	DefaultDeadline time.Duration
	ScanInterval    time.Duration
}

type IdempotencyConfig struct {
	TTL time.Duration
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("HOST", "127.0.0.1")
	v.SetDefault("PORT", "3000")
	v.SetDefault("DB_DRIVER", "postgres")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("DB_AUTO_MIGRATE", false)
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("JWT_TTL", "24h")
	v.SetDefault("WAGER_SUBSTRATE", "gorm")
	v.SetDefault("WAGER_REFEREE", "referee")
	v.SetDefault("WAGER_DEFAULT_DEADLINE", "15m")
	v.SetDefault("WAGER_EXPIRY_SCAN_INTERVAL", "30s")
	v.SetDefault("IDEMPOTENCY_TTL", "24h")
}

// Load reads .env when present and then the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)
	return FromViper(v)
}

func FromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host: v.GetString("HOST"),
			Port: v.GetString("PORT"),
		},
		Database: DatabaseConfig{
			Driver:      strings.ToLower(v.GetString("DB_DRIVER")),
			Host:        v.GetString("DB_HOST"),
			Port:        v.GetString("DB_PORT"),
			User:        v.GetString("DB_USER"),
			Password:    v.GetString("DB_PASSWORD"),
			Name:        v.GetString("DB_NAME"),
			SSLMode:     v.GetString("DB_SSLMODE"),
			AutoMigrate: v.GetBool("DB_AUTO_MIGRATE"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("REDIS_ADDR"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
		},
		JWT: JWTConfig{
			Secret: v.GetString("JWT_SECRET"),
			TTL:    v.GetDuration("JWT_TTL"),
		},
		Master: MasterConfig{
			Code:   v.GetString("MASTER_AGENT_CODE"),
			Secret: v.GetString("MASTER_AGENT_SECRET"),
		},
		Wager: WagerConfig{
			Substrate:       strings.ToLower(v.GetString("WAGER_SUBSTRATE")),
			Referee:         v.GetString("WAGER_REFEREE"),
			DefaultDeadline: v.GetDuration("WAGER_DEFAULT_DEADLINE"),
			ScanInterval:    v.GetDuration("WAGER_EXPIRY_SCAN_INTERVAL"),
		},
		Idempotency: IdempotencyConfig{
			TTL: v.GetDuration("IDEMPOTENCY_TTL"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// UsesDatabase reports whether the configured substrate needs a SQL
// connection.
func (c *Config) UsesDatabase() bool {
	return c.Wager.Substrate == "gorm"
}

func (c *Config) Validate() error {
	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if len(c.JWT.Secret) < 32 {
		return fmt.Errorf("JWT_SECRET must be at least 32 characters")
	}
	if c.JWT.TTL <= 0 {
		return fmt.Errorf("JWT_TTL must be positive")
	}
	if c.Master.Code == "" || c.Master.Secret == "" {
		return fmt.Errorf("MASTER_AGENT_CODE and MASTER_AGENT_SECRET are required")
	}
	if c.Wager.Referee == "" {
		return fmt.Errorf("WAGER_REFEREE is required")
	}
	if c.Wager.DefaultDeadline <= 0 {
		return fmt.Errorf("WAGER_DEFAULT_DEADLINE must be positive")
	}
	if c.Wager.ScanInterval <= 0 {
		return fmt.Errorf("WAGER_EXPIRY_SCAN_INTERVAL must be positive")
	}
	if c.UsesDatabase() {
		switch c.Database.Driver {
		case "postgres", "mysql":
		default:
			return fmt.Errorf("unsupported DB_DRIVER %q", c.Database.Driver)
		}
		if c.Database.Host == "" {
			return fmt.Errorf("DB_HOST is required")
		}
		if c.Database.User == "" {
			return fmt.Errorf("DB_USER is required")
		}
		if c.Database.Name == "" {
			return fmt.Errorf("DB_NAME is required")
		}
	}
	return nil
}
