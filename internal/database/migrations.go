package database

import (
	"errors"
	"time"

	"github.com/Z3rkRapt0r/gofood-men/backend/internal/reservations"
	"github.com/Z3rkRapt0r/gofood-men/backend/internal/venue"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	migrationDropInactiveAssignments = "2025-05-20_drop_assignments_of_inactive_reservations"
	migrationTruncateSlotSeconds     = "2025-05-27_truncate_slot_seconds"
)

type migrationRecord struct {
	Name             string `gorm:"column:name;primaryKey;size:190;not null"`
	AppliedAtSeconds int64  `gorm:"column:applied_at_s;not null"`
}

func (migrationRecord) TableName() string {
	return "db_migrations"
}

type migrationDefinition struct {
	name  string
	apply func(*gorm.DB) error
}

func applyMigrations(db *gorm.DB, logger *zap.Logger) error {
	migrations := []migrationDefinition{
		{name: migrationDropInactiveAssignments, apply: dropInactiveAssignments},
		{name: migrationTruncateSlotSeconds, apply: truncateSlotSeconds},
	}

	for _, migration := range migrations {
		var record migrationRecord
		err := db.Where("name = ?", migration.name).Take(&record).Error
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if err := db.Transaction(migration.apply); err != nil {
			return err
		}
		appliedAt := time.Now().UTC().Unix()
		if err := db.Create(&migrationRecord{Name: migration.name, AppliedAtSeconds: appliedAt}).Error; err != nil {
			return err
		}
		if logger != nil {
			logger.Info("database migration applied", zap.String("migration", migration.name))
		}
	}
	return nil
}

// Assignment rows only exist for confirmed or arrived reservations. Rows left behind by
// rejected or cancelled reservations would block their tables.
func dropInactiveAssignments(db *gorm.DB) error {
	inactive := db.Model(&reservations.Reservation{}).
		Select("reservation_id").
		Where("status NOT IN ?", reservations.ActiveStatuses())
	return db.Where("reservation_id IN (?)", inactive).Delete(&reservations.Assignment{}).Error
}

// Slot times are stored as HH:MM. Rows imported with seconds are truncated.
func truncateSlotSeconds(db *gorm.DB) error {
	if err := db.Model(&reservations.Reservation{}).
		Where("LENGTH(slot_time) > 5").
		Update("slot_time", gorm.Expr("SUBSTR(slot_time, 1, 5)")).Error; err != nil {
		return err
	}
	if err := db.Model(&reservations.Assignment{}).
		Where("LENGTH(slot_time) > 5").
		Update("slot_time", gorm.Expr("SUBSTR(slot_time, 1, 5)")).Error; err != nil {
		return err
	}
	for _, column := range []string{"start_time", "end_time"} {
		if err := db.Model(&venue.Shift{}).
			Where("LENGTH("+column+") > 5").
			Update(column, gorm.Expr("SUBSTR("+column+", 1, 5)")).Error; err != nil {
			return err
		}
	}
	return nil
}
