package infra

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
	"nicetravel/internal/models/db_models"
)

type PostgresConfig struct {
	URL      string
	MaxIdle  int
	MaxOpen  int
	LogLevel string
}

func InitPostgresql(cfg PostgresConfig, logger *zap.Logger) (*gorm.DB, error) {
	connectionPool, err := gorm.Open(postgres.Open(cfg.URL), &gorm.Config{
		Logger: gormlogger.Default.LogMode(parseGormLogLevel(cfg.LogLevel)),
	})
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	sqlDB, err := connectionPool.DB()
	if err != nil {
		return nil, fmt.Errorf("get database instance: %w", err)
	}
	sqlDB.SetMaxIdleConns(cfg.MaxIdle)
	sqlDB.SetMaxOpenConns(cfg.MaxOpen)
	sqlDB.SetConnMaxLifetime(time.Hour)

	logger.Info("PostgreSQL connection established",
		zap.Int("max_idle", cfg.MaxIdle),
		zap.Int("max_open", cfg.MaxOpen),
	)
	return connectionPool, nil
}

func ClosePostgresql(db *gorm.DB, logger *zap.Logger) {
	sqlDB, err := db.DB()
	if err != nil {
		logger.Error("Error getting database instance", zap.Error(err))
		return
	}

	if err := sqlDB.Close(); err != nil {
		logger.Error("Error closing database connection", zap.Error(err))
	} else {
		logger.Info("PostgreSQL database connection closed successfully")
	}
}

var defaultTravelPreferences = []string{
	"Adventure",
	"Beaches",
	"Budget travel",
	"Cultural experiences",
	"Food and drink",
	"History",
	"Luxury",
	"Nature",
	"Nightlife",
	"Relaxation",
	"Shopping",
	"Sightseeing",
}

// Migrate creates the schema and seeds the travel preference catalogue.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&db_models.Account{},
		&db_models.Plan{},
		&db_models.Place{},
		&db_models.TravelPreference{},
		&db_models.GenerationJob{},
	); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}

	prefs := make([]db_models.TravelPreference, 0, len(defaultTravelPreferences))
	for _, name := range defaultTravelPreferences {
		prefs = append(prefs, db_models.TravelPreference{ID: uuid.New(), Name: name})
	}
	return db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoNothing: true,
	}).Create(&prefs).Error
}

func parseGormLogLevel(level string) gormlogger.LogLevel {
	switch strings.ToLower(level) {
	case "silent":
		return gormlogger.Silent
	case "error":
		return gormlogger.Error
	case "info":
		return gormlogger.Info
	default:
		return gormlogger.Warn
	}
}
