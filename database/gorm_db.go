package database

import (
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/camden-git/requestsysbackend/models"
	"github.com/camden-git/requestsysbackend/permissions"
)

// InitGormDB initializes and returns a GORM database instance
func InitGormDB(dataSourceName string) (*gorm.DB, error) {
	gormLogger := logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags), // io writer
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  true,
		},
	)

	db, err := gorm.Open(sqlite.Open(dataSourceName), &gorm.Config{
		Logger: gormLogger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database using GORM: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB from GORM: %w", err)
	}

	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	log.Println("GORM Database initialized successfully at", dataSourceName)
	return db, nil
}

// AutoMigrateModels can be called after InitGormDB to migrate schemas
func AutoMigrateModels(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.Role{},
		&models.User{},
		&models.PermissionOverride{},
		&models.MediaRequest{},
	)
	if err != nil {
		return fmt.Errorf("GORM AutoMigrate failed: %w", err)
	}
	log.Println("GORM AutoMigrate completed successfully.")
	return nil
}

// SyncBuiltInRoles ensures the Administrator role exists with every
// defined permission and that a default role exists for new users. It is
// idempotent and safe to run on every application startup.
func SyncBuiltInRoles(db *gorm.DB) error {
	adminPermissions := make(map[string]bool)
	for _, key := range permissions.GetAllPermissionKeys() {
		adminPermissions[key] = true
	}

	return db.Transaction(func(tx *gorm.DB) error {
		var admin models.Role
		err := tx.Where("name = ?", models.AdministratorRoleName).First(&admin).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			admin = models.Role{
				Name:                 models.AdministratorRoleName,
				DisplayName:          "Administrator",
				Description:          "Built-in role carrying every permission.",
				Permissions:          adminPermissions,
				NotificationsEnabled: true,
			}
			if err := tx.Create(&admin).Error; err != nil {
				return fmt.Errorf("failed to create '%s' role: %w", models.AdministratorRoleName, err)
			}
			log.Printf("'%s' role created with all permissions", models.AdministratorRoleName)
		} else if err != nil {
			return fmt.Errorf("failed to query for '%s' role: %w", models.AdministratorRoleName, err)
		} else {
			// pick up permission keys added since the last start
			admin.Permissions = adminPermissions
			if err := tx.Save(&admin).Error; err != nil {
				return fmt.Errorf("failed to sync '%s' role permissions: %w", models.AdministratorRoleName, err)
			}
		}

		var defaults int64
		if err := tx.Model(&models.Role{}).Where("is_default = ?", true).Count(&defaults).Error; err != nil {
			return err
		}
		if defaults == 0 {
			// a role named like the built-in default may already exist
			// without the flag (e.g. after a bad edit); reuse it
			var existing models.Role
			err := tx.Where("name = ?", models.DefaultRoleName).First(&existing).Error
			if err == nil {
				log.Printf("re-marking '%s' role as default", models.DefaultRoleName)
				return tx.Model(&existing).Update("is_default", true).Error
			}
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}

			maxRequests := 5
			retentionDays := 30
			fallback := models.Role{
				Name:        models.DefaultRoleName,
				DisplayName: "User",
				Description: "Built-in default role for new users.",
				IsDefault:   true,
				Permissions: map[string]bool{
					permissions.RequestMovies: true,
					permissions.RequestTV:     true,
				},
				MaxRequests:          &maxRequests,
				RetentionDays:        &retentionDays,
				NotificationsEnabled: true,
			}
			if err := tx.Create(&fallback).Error; err != nil {
				return fmt.Errorf("failed to create default '%s' role: %w", models.DefaultRoleName, err)
			}
			log.Printf("default '%s' role created", models.DefaultRoleName)
		}
		return nil
	})
}
