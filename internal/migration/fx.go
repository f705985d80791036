package migration

import (
	"github.com/smallbiznis/hrledger/internal/config"
	"github.com/smallbiznis/hrledger/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(Apply),
)

// Apply runs the embedded migrations before the server starts. Other
// drivers are expected to be provisioned out of band.
func Apply(conn *gorm.DB, cfg config.Config, log *zap.Logger) error {
	log = log.Named("migration")
	if driver := db.DriverName(cfg); driver != "postgres" {
		log.Warn("skipping embedded migrations for non-postgres database", zap.String("type", driver))
		return nil
	}

	sqlDB, err := conn.DB()
	if err != nil {
		return err
	}

	result, err := RunMigrations(sqlDB, log)
	if err != nil {
		return err
	}
	log.Info("schema ready",
		zap.Uint("version", result.Version),
		zap.Bool("applied", result.Applied),
		zap.Bool("dirty", result.Dirty),
	)
	return nil
}
