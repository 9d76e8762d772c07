package database

import (
	"fmt"

	"wagerd/config"
	"wagerd/substrate/gormstore"

	"github.com/gofiber/fiber/v2/log"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// DSN builds the connection string for the configured driver.
func DSN(cfg config.DatabaseConfig) string {
	if cfg.Driver == "mysql" {
		return fmt.Sprintf(
			"%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
			cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Name,
		)
	}
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=UTC",
		cfg.Host, cfg.User, cfg.Password, cfg.Name, cfg.Port, cfg.SSLMode,
	)
}

func dialector(cfg config.DatabaseConfig) gorm.Dialector {
	if cfg.Driver == "mysql" {
		return mysql.Open(DSN(cfg))
	}
	return postgres.Open(DSN(cfg))
}

func Connect(cfg config.DatabaseConfig) (*gorm.DB, error) {
	db, err := gorm.Open(dialector(cfg), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", cfg.Driver, err)
	}
	log.Infof("✅ Connected to %s database", cfg.Driver)

	if cfg.AutoMigrate {
		log.Info("🟡 Starting auto-migration...")
		if err := gormstore.Migrate(db); err != nil {
			return nil, fmt.Errorf("auto-migrate: %w", err)
		}
		log.Info("✅ Auto migration completed")
	}
	return db, nil
}
