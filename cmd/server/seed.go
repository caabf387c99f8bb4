package main

import (
	"ahmp/internal/database"
	"ahmp/internal/models"
	"ahmp/pkg/logger"
	"errors"

	"gorm.io/gorm"
)

// seedData 初始化种子数据：默认管理员及其公司和档案
func seedData() error {
	db := database.GetDB()
	log := logger.GetLogger()

	var admin models.User
	err := db.Where("username = ?", "admin").First(&admin).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	return db.Transaction(func(tx *gorm.DB) error {
		admin = models.User{
			Username: "admin",
			Email:    "admin@example.com",
			Name:     "系统管理员",
			Status:   models.UserStatusActive,
		}
		if err := admin.SetPassword("Admin@123"); err != nil {
			return err
		}
		if err := tx.Create(&admin).Error; err != nil {
			return err
		}

		company := models.Company{
			Name: "演示置业",
			Key:  "demo-company",
			Plan: models.CompanyPlanStarter,
		}
		if err := tx.Create(&company).Error; err != nil {
			return err
		}

		profile := models.Profile{
			UserID:    admin.ID,
			Email:     admin.Email,
			FullName:  admin.Name,
			Role:      models.RoleAdmin,
			CompanyID: &company.ID,
		}
		if err := tx.Create(&profile).Error; err != nil {
			return err
		}

		log.Info("Seed data created: default admin user and demo company")
		log.Warn("Default admin password is Admin@123, change it immediately")
		return nil
	})
}
