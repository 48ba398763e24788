package database

import (
	"fmt"
	"strings"

	"github.com/Z3rkRapt0r/gofood-men/backend/internal/reservations"
	"github.com/Z3rkRapt0r/gofood-men/backend/internal/staff"
	"github.com/Z3rkRapt0r/gofood-men/backend/internal/venue"
	sqlite "github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Supported drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
)

// Options selects and addresses the backing database.
type Options struct {
	Driver string
	// Path is the SQLite file. DSN is used by the other drivers.
	Path string
	DSN  string
}

// Open connects to the configured database and performs schema migrations.
//
// SQLite is limited to a single open connection, which serializes write transactions.
func Open(options Options, logger *zap.Logger) (*gorm.DB, error) {
	driver := strings.ToLower(strings.TrimSpace(options.Driver))
	if driver == "" {
		driver = DriverSQLite
	}

	var dialector gorm.Dialector
	switch driver {
	case DriverSQLite:
		if options.Path == "" {
			return nil, fmt.Errorf("database path is required")
		}
		dialector = sqlite.Open(options.Path)
	case DriverPostgres:
		if options.DSN == "" {
			return nil, fmt.Errorf("database dsn is required for %s", driver)
		}
		dialector = postgres.Open(options.DSN)
	case DriverMySQL:
		if options.DSN == "" {
			return nil, fmt.Errorf("database dsn is required for %s", driver)
		}
		dialector = mysql.Open(options.DSN)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, err
	}

	if driver == DriverSQLite {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}

	if err := Migrate(db, logger); err != nil {
		return nil, err
	}

	if logger != nil {
		logger.Info("database initialized", zap.String("driver", driver))
	}
	return db, nil
}

// Migrate creates or updates every table the service uses and applies data migrations.
func Migrate(db *gorm.DB, logger *zap.Logger) error {
	if err := db.AutoMigrate(
		&venue.Config{},
		&venue.Table{},
		&venue.Shift{},
		&reservations.Reservation{},
		&reservations.Assignment{},
		&staff.Membership{},
		&migrationRecord{},
	); err != nil {
		return err
	}
	return applyMigrations(db, logger)
}
