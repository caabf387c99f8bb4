package database

import (
	"ahmp/internal/models"
	"ahmp/pkg/logger"
)

// Migrate 执行数据库迁移
func Migrate() error {
	appLogger := logger.GetLogger()
	appLogger.Info("Starting database migration...")

	err := DB.AutoMigrate(
		&models.Company{},
		&models.User{},
		&models.Profile{},
		&models.Applicant{},
		&models.Project{},
		&models.Application{},
		&models.Match{},
		&models.Notification{},
	)

	if err != nil {
		appLogger.Errorf("Database migration failed: %v", err)
		return err
	}

	appLogger.Info("Database migration completed successfully")

	return nil
}
