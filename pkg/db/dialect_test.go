package db

import (
	"testing"

	"github.com/smallbiznis/hrledger/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDSN(t *testing.T) {
	base := config.Config{
		DBHost:     "db",
		DBPort:     "5432",
		DBName:     "hrledger",
		DBUser:     "app",
		DBPassword: "p@ss",
	}

	pg := base
	pg.DBType = "PostgreSQL"
	dsn, err := DSN(pg)
	require.NoError(t, err)
	assert.Contains(t, dsn, "sslmode=disable")
	assert.Contains(t, dsn, "TimeZone=UTC")

	lite := config.Config{DBType: "sqlite3"}
	dsn, err = DSN(lite)
	require.NoError(t, err)
	assert.Equal(t, "hrledger.db?_busy_timeout=5000&_foreign_keys=on", dsn)

	lite.DBName = ":memory:"
	dsn, err = DSN(lite)
	require.NoError(t, err)
	assert.Equal(t, ":memory:", dsn)
}

func TestDialectRejectsUnknownType(t *testing.T) {
	for _, dbType := range []string{"oracle", "mysql"} {
		_, err := Dialect(config.Config{DBType: dbType})
		assert.ErrorIs(t, err, ErrUnsupportedDialect, dbType)
	}
}
