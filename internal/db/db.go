package db

import (
	"log"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"github.com/ewjiang/mindbridge/internal/models"
	"github.com/ewjiang/mindbridge/internal/triage"
)

func Connect(dsn string) *gorm.DB {
	gdb, err := gorm.Open(mysql.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatalf("db connect: %v", err)
	}
	return gdb
}

func Migrate(gdb *gorm.DB) {
	if err := gdb.AutoMigrate(
		&models.User{},
		&triage.ChatLog{},
		&triage.RiskScore{},
		&triage.Alert{},
		&triage.MoodLog{},
	); err != nil {
		log.Fatalf("db migrate: %v", err)
	}
}
