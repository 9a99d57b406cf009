package database

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"pixgate/internal/config"
	"pixgate/pkg/logger"
)

// Open connects with the configured driver, applies the pool limits and
// verifies with a ping. postgres is the production driver; sqlite3 is for
// local development.
func Open(cfg config.DatabaseConfig, log logger.Logger) (*sql.DB, error) {
	var (
		db  *sql.DB
		err error
	)

	switch cfg.Driver {
	case "postgres":
		dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
			cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Name, cfg.SSLMode)
		db, err = sql.Open("postgres", dsn)
	case "sqlite", "sqlite3":
		db, err = sql.Open("sqlite3", cfg.Name)
	default:
		return nil, fmt.Errorf("desteklenmeyen veritabanı sürücüsü: %s", cfg.Driver)
	}

	if err != nil {
		return nil, fmt.Errorf("veritabanı bağlantısı kurulamadı: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetime) * time.Second)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("veritabanı bağlantısı test edilemedi: %w", err)
	}

	log.Info("Veritabanı bağlantısı başarılı", map[string]interface{}{
		"driver": cfg.Driver,
		"host":   cfg.Host,
		"name":   cfg.Name,
	})

	return db, nil
}

// SupportsRowLocks reports whether the driver supports SELECT ... FOR UPDATE.
// sqlite serializes its single writer, so FOR UPDATE is omitted there.
func SupportsRowLocks(driver string) bool {
	return driver == "postgres"
}
