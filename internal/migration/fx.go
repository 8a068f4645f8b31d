package migration

import (
	"github.com/smallbiznis/campusbooks/internal/config"
	"github.com/smallbiznis/campusbooks/internal/seed"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config) error {
		// golang-migrate runs against postgres; other dialects are used in
		// tests and create their schema by hand.
		if cfg.DBType == "postgres" {
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			if err := RunMigrations(sqlDB); err != nil {
				return err
			}
		}

		if cfg.DefaultSchoolID != 0 {
			return seed.EnsureDefaultSchool(conn, cfg.DefaultSchoolID)
		}
		return nil
	}),
)
