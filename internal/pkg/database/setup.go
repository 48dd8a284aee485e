package database

import (
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/ManuelReschke/Tochigi/app/models"
	"github.com/ManuelReschke/Tochigi/internal/pkg/config"
	"github.com/ManuelReschke/Tochigi/internal/pkg/logger"
)

const maxRetries = 5
const retryDelay = 5 * time.Second

// Open connects to MySQL, retrying while the database container starts up.
func Open(cfg config.DBConfig, log *logger.Logger, debug bool) (*gorm.DB, error) {
	gormCfg := &gorm.Config{TranslateError: true}
	if !debug {
		gormCfg.Logger = gormlogger.Default.LogMode(gormlogger.Warn)
	}

	var db *gorm.DB
	var err error
	for i := 0; i < maxRetries; i++ {
		db, err = gorm.Open(mysql.New(mysql.Config{
			DSN:                       cfg.DSN(),
			DefaultStringSize:         256,
			DisableDatetimePrecision:  true,
			DontSupportRenameIndex:    true,
			DontSupportRenameColumn:   true,
			SkipInitializeWithVersion: false,
		}), gormCfg)
		if err == nil {
			return db, nil
		}

		log.Warn().Err(err).Int("attempt", i+1).Int("max", maxRetries).Msg("failed to connect to database")
		if i < maxRetries-1 {
			time.Sleep(retryDelay)
		}
	}
	return nil, err
}

// Models lists every table owned by the application in dependency order.
func Models() []any {
	return []any{
		&models.Category{},
		&models.Company{},
		&models.User{},
		&models.Service{},
		&models.Inquiry{},
		&models.InquiryCompany{},
		&models.Subscription{},
		&models.ContentPost{},
		&models.ScheduledPost{},
		&models.BillingWebhookEvent{},
	}
}

// AutoMigrate syncs the schema. Production schemas are owned by cmd/migrate.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(Models()...)
}
