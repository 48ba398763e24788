package venue

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/Z3rkRapt0r/gofood-men/backend/internal/apperr"
	"github.com/Z3rkRapt0r/gofood-men/backend/internal/schedule"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	opServiceNew   = "venue.service.new"
	opLoadConfig   = "venue.load_config"
	opSaveConfig   = "venue.save_config"
	opDeleteTable  = "venue.delete_table"
	queryTenant    = "tenant_id = ?"
	queryTenantRow = "tenant_id = ? AND table_id = ?"
)

var (
	errMissingDatabase   = errors.New("database handle is required")
	errMissingTableUsage = errors.New("table usage checker is required")
	errConfigNotFound    = errors.New("reservation config not found")
	errTableNotFound     = errors.New("table not found")
	errTableInUse        = errors.New("table has upcoming assignments")
	errDuplicateTable    = errors.New("duplicate table id")
	errDuplicateShift    = errors.New("duplicate shift id")
	noOpLogger           = zap.NewNop()
)

// TableUsage reports which of the given tables carry assignments on or after a date.
// The check runs on the caller's transaction handle.
type TableUsage interface {
	TablesInUse(ctx context.Context, tx *gorm.DB, tenantID string, tableIDs []string, fromDate string) ([]string, error)
}

// ServiceConfig describes the dependencies of the venue service.
type ServiceConfig struct {
	Database   *gorm.DB
	TableUsage TableUsage
	Clock      func() time.Time
	Logger     *zap.Logger
}

// Service persists the tenant's reservation config, tables and shifts.
type Service struct {
	db     *gorm.DB
	usage  TableUsage
	clock  func() time.Time
	logger *zap.Logger
}

// NewService validates dependencies and constructs the service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Database == nil {
		return nil, apperr.New(opServiceNew, "missing_database", apperr.ErrInternal, errMissingDatabase)
	}
	if cfg.TableUsage == nil {
		return nil, apperr.New(opServiceNew, "missing_table_usage", apperr.ErrInternal, errMissingTableUsage)
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}
	return &Service{
		db:     cfg.Database,
		usage:  cfg.TableUsage,
		clock:  clock,
		logger: logger,
	}, nil
}

// LoadConfig returns the tenant config with its tables and shifts.
func (s *Service) LoadConfig(ctx context.Context, tenantID TenantID) (Config, error) {
	if s == nil || s.db == nil {
		return Config{}, apperr.New(opLoadConfig, "missing_database", apperr.ErrInternal, errMissingDatabase)
	}
	return loadConfig(s.db.WithContext(ctx), tenantID, func(reason string, err error) {
		s.logError(opLoadConfig, reason, err, zap.String("tenant_id", tenantID.String()))
	})
}

// ReadConfig reads the config through db, which may be a transaction handle.
func ReadConfig(tx *gorm.DB, tenantID TenantID) (Config, error) {
	return loadConfig(tx, tenantID, nil)
}

func loadConfig(db *gorm.DB, tenantID TenantID, onError func(string, error)) (Config, error) {
	report := func(reason string, kind, err error) error {
		if onError != nil && kind != apperr.ErrNotFound {
			onError(reason, err)
		}
		return apperr.New(opLoadConfig, reason, kind, err)
	}

	var cfg Config
	err := db.Where(queryTenant, tenantID.String()).Take(&cfg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Config{}, report("config_not_found", apperr.ErrNotFound, errConfigNotFound)
	}
	if err != nil {
		return Config{}, report("config_query_failed", apperr.ErrTransient, err)
	}
	if err := db.Where(queryTenant, tenantID.String()).Order("table_id ASC").Find(&cfg.Tables).Error; err != nil {
		return Config{}, report("tables_query_failed", apperr.ErrTransient, err)
	}
	if err := db.Where(queryTenant, tenantID.String()).Order("start_time ASC, shift_id ASC").Find(&cfg.Shifts).Error; err != nil {
		return Config{}, report("shifts_query_failed", apperr.ErrTransient, err)
	}
	return cfg, nil
}

// SaveConfig replaces the tenant config, tables and shifts as one unit.
// Tables that disappear from the set must not carry assignments on or after today.
func (s *Service) SaveConfig(ctx context.Context, cfg Config) (Config, error) {
	if s == nil || s.db == nil {
		return Config{}, apperr.New(opSaveConfig, "missing_database", apperr.ErrInternal, errMissingDatabase)
	}
	tenantID, err := NewTenantID(cfg.TenantID)
	if err != nil {
		return Config{}, apperr.New(opSaveConfig, "invalid_tenant_id", apperr.ErrValidation, err)
	}
	normalized, err := normalizeConfig(tenantID, cfg)
	if err != nil {
		return Config{}, apperr.New(opSaveConfig, "invalid_config", apperr.ErrValidation, err)
	}
	location, err := normalized.Location()
	if err != nil {
		return Config{}, apperr.New(opSaveConfig, "invalid_timezone", apperr.ErrValidation, err)
	}
	today := schedule.DateOf(s.clock().In(location)).String()

	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing []Table
		if err := tx.Where(queryTenant, tenantID.String()).Find(&existing).Error; err != nil {
			s.logError(opSaveConfig, "tables_query_failed", err, zap.String("tenant_id", tenantID.String()))
			return apperr.New(opSaveConfig, "tables_query_failed", apperr.ErrTransient, err)
		}
		kept := make(map[string]struct{}, len(normalized.Tables))
		for _, table := range normalized.Tables {
			kept[table.TableID] = struct{}{}
		}
		removed := make([]string, 0)
		for _, table := range existing {
			if _, ok := kept[table.TableID]; !ok {
				removed = append(removed, table.TableID)
			}
		}
		if len(removed) > 0 {
			inUse, err := s.usage.TablesInUse(ctx, tx, tenantID.String(), removed, today)
			if err != nil {
				s.logError(opSaveConfig, "usage_query_failed", err, zap.String("tenant_id", tenantID.String()))
				return apperr.New(opSaveConfig, "usage_query_failed", apperr.ErrTransient, err)
			}
			if len(inUse) > 0 {
				return apperr.New(opSaveConfig, "table_in_use", apperr.ErrConflict, errTableInUse)
			}
			if err := tx.Where("tenant_id = ? AND table_id IN ?", tenantID.String(), removed).Delete(&Table{}).Error; err != nil {
				s.logError(opSaveConfig, "table_delete_failed", err, zap.String("tenant_id", tenantID.String()))
				return apperr.New(opSaveConfig, "table_delete_failed", apperr.ErrTransient, err)
			}
		}

		if err := tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(&normalized).Error; err != nil {
			s.logError(opSaveConfig, "config_upsert_failed", err, zap.String("tenant_id", tenantID.String()))
			return apperr.New(opSaveConfig, "config_upsert_failed", apperr.ErrTransient, err)
		}
		if len(normalized.Tables) > 0 {
			if err := tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(&normalized.Tables).Error; err != nil {
				s.logError(opSaveConfig, "table_upsert_failed", err, zap.String("tenant_id", tenantID.String()))
				return apperr.New(opSaveConfig, "table_upsert_failed", apperr.ErrTransient, err)
			}
		}
		if err := tx.Where(queryTenant, tenantID.String()).Delete(&Shift{}).Error; err != nil {
			s.logError(opSaveConfig, "shift_delete_failed", err, zap.String("tenant_id", tenantID.String()))
			return apperr.New(opSaveConfig, "shift_delete_failed", apperr.ErrTransient, err)
		}
		if len(normalized.Shifts) > 0 {
			if err := tx.Create(&normalized.Shifts).Error; err != nil {
				s.logError(opSaveConfig, "shift_insert_failed", err, zap.String("tenant_id", tenantID.String()))
				return apperr.New(opSaveConfig, "shift_insert_failed", apperr.ErrTransient, err)
			}
		}
		return nil
	})
	if txErr != nil {
		return Config{}, txErr
	}

	s.logger.Info("reservation config saved",
		zap.String("tenant_id", tenantID.String()),
		zap.Int("tables", len(normalized.Tables)),
		zap.Int("shifts", len(normalized.Shifts)))
	return s.LoadConfig(ctx, tenantID)
}

// DeleteTable removes a table unless it still carries assignments on or after today.
func (s *Service) DeleteTable(ctx context.Context, tenantID TenantID, tableID string) error {
	if s == nil || s.db == nil {
		return apperr.New(opDeleteTable, "missing_database", apperr.ErrInternal, errMissingDatabase)
	}
	tableID = strings.TrimSpace(tableID)
	if tableID == "" {
		return apperr.New(opDeleteTable, "invalid_table_id", apperr.ErrValidation, ErrInvalidTable)
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		cfg, err := ReadConfig(tx, tenantID)
		if err != nil {
			return err
		}
		location, err := cfg.Location()
		if err != nil {
			return apperr.New(opDeleteTable, "invalid_timezone", apperr.ErrInternal, err)
		}
		today := schedule.DateOf(s.clock().In(location)).String()

		inUse, err := s.usage.TablesInUse(ctx, tx, tenantID.String(), []string{tableID}, today)
		if err != nil {
			s.logError(opDeleteTable, "usage_query_failed", err, zap.String("table_id", tableID))
			return apperr.New(opDeleteTable, "usage_query_failed", apperr.ErrTransient, err)
		}
		if len(inUse) > 0 {
			return apperr.New(opDeleteTable, "table_in_use", apperr.ErrConflict, errTableInUse)
		}

		result := tx.Where(queryTenantRow, tenantID.String(), tableID).Delete(&Table{})
		if result.Error != nil {
			s.logError(opDeleteTable, "table_delete_failed", result.Error, zap.String("table_id", tableID))
			return apperr.New(opDeleteTable, "table_delete_failed", apperr.ErrTransient, result.Error)
		}
		if result.RowsAffected == 0 {
			return apperr.New(opDeleteTable, "table_not_found", apperr.ErrNotFound, errTableNotFound)
		}

		remaining := cfg.ActiveSeats()
		for _, table := range cfg.Tables {
			if table.TableID == tableID && table.IsActive {
				remaining -= table.Seats
			}
		}
		if err := tx.Model(&Config{}).Where(queryTenant, tenantID.String()).Update("total_seats", remaining).Error; err != nil {
			s.logError(opDeleteTable, "config_update_failed", err, zap.String("table_id", tableID))
			return apperr.New(opDeleteTable, "config_update_failed", apperr.ErrTransient, err)
		}
		return nil
	})
}

func normalizeConfig(tenantID TenantID, cfg Config) (Config, error) {
	normalized := Config{
		TenantID:          tenantID.String(),
		IsActive:          cfg.IsActive,
		TotalSeats:        cfg.TotalSeats,
		TotalHighChairs:   cfg.TotalHighChairs,
		NotificationEmail: strings.TrimSpace(cfg.NotificationEmail),
		Timezone:          strings.TrimSpace(cfg.Timezone),
		Tables:            make([]Table, 0, len(cfg.Tables)),
		Shifts:            make([]Shift, 0, len(cfg.Shifts)),
	}
	if normalized.Timezone == "" {
		normalized.Timezone = "UTC"
	}
	if normalized.TotalHighChairs < 0 {
		normalized.TotalHighChairs = 0
	}

	seenTables := make(map[string]struct{}, len(cfg.Tables))
	for _, table := range cfg.Tables {
		table.TenantID = tenantID.String()
		table.TableID = strings.TrimSpace(table.TableID)
		table.Name = strings.TrimSpace(table.Name)
		if err := table.Validate(); err != nil {
			return Config{}, err
		}
		if _, duplicate := seenTables[table.TableID]; duplicate {
			return Config{}, errDuplicateTable
		}
		seenTables[table.TableID] = struct{}{}
		normalized.Tables = append(normalized.Tables, table)
	}

	seenShifts := make(map[string]struct{}, len(cfg.Shifts))
	for _, shift := range cfg.Shifts {
		shift.TenantID = tenantID.String()
		shift.ShiftID = strings.TrimSpace(shift.ShiftID)
		shift.Name = strings.TrimSpace(shift.Name)
		if err := shift.Validate(); err != nil {
			return Config{}, err
		}
		if _, duplicate := seenShifts[shift.ShiftID]; duplicate {
			return Config{}, errDuplicateShift
		}
		seenShifts[shift.ShiftID] = struct{}{}
		window, _ := shift.Window()
		shift.StartTime = window.Start.String()
		shift.EndTime = window.End.String()
		normalized.Shifts = append(normalized.Shifts, shift)
	}

	sort.Slice(normalized.Tables, func(i, j int) bool {
		return normalized.Tables[i].TableID < normalized.Tables[j].TableID
	})
	if normalized.TotalSeats <= 0 {
		normalized.TotalSeats = normalized.ActiveSeats()
	}
	return normalized, nil
}

func (s *Service) logError(operation, reason string, err error, fields ...zap.Field) {
	attrs := []zap.Field{
		zap.String("operation", operation),
		zap.String("reason", reason),
	}
	if err != nil {
		attrs = append(attrs, zap.Error(err))
	}
	attrs = append(attrs, fields...)
	logger := noOpLogger
	if s != nil && s.logger != nil {
		logger = s.logger
	}
	logger.Error("venue service error", attrs...)
}
