package database

import (
	"log"
	"time"

	"bibliotech/pkg/config"
	"bibliotech/pkg/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func InitUserDB(cfg config.DBConfig) *gorm.DB {
	log.Printf("Connecting to user database: host=%s, port=%s", cfg.Host, cfg.Port)
	return initDB(cfg.DSN(), &models.User{})
}

func InitDocumentDB(cfg config.DBConfig) *gorm.DB {
	log.Printf("Connecting to document database: host=%s, port=%s", cfg.Host, cfg.Port)
	return initDB(cfg.DSN(), &models.Document{})
}

func InitLoanDB(cfg config.DBConfig) *gorm.DB {
	log.Printf("Connecting to loan database: host=%s, port=%s", cfg.Host, cfg.Port)
	return initDB(cfg.DSN(), &models.Loan{}, &models.Reservation{})
}

func initDB(dsn string, entities ...interface{}) *gorm.DB {
	var db *gorm.DB
	var err error

	maxRetries := 10
	for i := 0; i < maxRetries; i++ {
		// TranslateError turns driver unique violations into gorm.ErrDuplicatedKey,
		// which the ledgers map to a conflict.
		db, err = gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
		if err == nil {
			break
		}
		log.Printf("Database connection attempt %d/%d failed: %v", i+1, maxRetries, err)
		if i < maxRetries-1 {
			time.Sleep(5 * time.Second)
		}
	}
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		log.Fatalf("Failed to get database instance: %v", err)
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetConnMaxLifetime(5 * time.Minute)

	if err := sqlDB.Ping(); err != nil {
		log.Fatalf("Database ping failed: %v", err)
	}

	if err := db.AutoMigrate(entities...); err != nil {
		log.Fatal("Database migration failed:", err)
	}

	log.Println("Database connection established successfully")
	return db
}
