package db

import (
	"errors"
	"fmt"
	"strings"

	"github.com/smallbiznis/hrledger/internal/config"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

var ErrUnsupportedDialect = errors.New("unsupported_database_type")

// DriverName normalizes DATABASE_TYPE. Empty means postgres. Only postgres
// and sqlite accept the ON CONFLICT upserts the repositories issue, so any
// other type is rejected by DSN.
func DriverName(cfg config.Config) string {
	switch t := strings.ToLower(strings.TrimSpace(cfg.DBType)); t {
	case "", "postgres", "postgresql", "pg":
		return "postgres"
	case "sqlite", "sqlite3":
		return "sqlite"
	default:
		return t
	}
}

// DSN builds the connection string for the configured driver. All drivers
// are pinned to UTC so ledger timestamps compare across hosts.
func DSN(cfg config.Config) (string, error) {
	switch DriverName(cfg) {
	case "postgres":
		sslMode := strings.TrimSpace(cfg.DBSSLMode)
		if sslMode == "" {
			sslMode = "disable"
		}
		return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=UTC",
			cfg.DBHost, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBPort, sslMode,
		), nil
	case "sqlite":
		name := strings.TrimSpace(cfg.DBName)
		if name == "" {
			name = "hrledger.db"
		}
		if name == ":memory:" || strings.Contains(name, "?") {
			return name, nil
		}
		// The outbox worker and the API share the file.
		return name + "?_busy_timeout=5000&_foreign_keys=on", nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedDialect, cfg.DBType)
	}
}

func Dialect(cfg config.Config) (gorm.Dialector, error) {
	dsn, err := DSN(cfg)
	if err != nil {
		return nil, err
	}
	switch DriverName(cfg) {
	case "sqlite":
		return sqlite.Open(dsn), nil
	default:
		return postgres.Open(dsn), nil
	}
}
