package reservations

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/Z3rkRapt0r/gofood-men/backend/internal/apperr"
	"github.com/Z3rkRapt0r/gofood-men/backend/internal/schedule"
	"github.com/Z3rkRapt0r/gofood-men/backend/internal/seating"
	"github.com/Z3rkRapt0r/gofood-men/backend/internal/venue"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	opServiceNew       = "reservations.service.new"
	opSubmitBooking    = "reservations.submit_booking"
	opAcceptWithTables = "reservations.accept_with_tables"
	opReject           = "reservations.reject"
	opCancel           = "reservations.cancel"
	opMarkArrived      = "reservations.mark_arrived"
	opList             = "reservations.list"
	opAvailability     = "reservations.availability"
	opOccupancy        = "reservations.occupancy"
	opSlots            = "reservations.slots"
	opSweep            = "reservations.sweep_stale_pending"

	queryTenantReservation = "tenant_id = ? AND reservation_id = ?"
	queryTenantDate        = "tenant_id = ? AND slot_date = ?"
	orderSlot              = "slot_date ASC, slot_time ASC, created_at ASC"

	reasonMissingDatabase   = "missing_database"
	reasonInvalidTenantID   = "invalid_tenant_id"
	reasonInvalidID         = "invalid_reservation_id"
	reasonInvalidDate       = "invalid_date"
	reasonInvalidTime       = "invalid_time"
	reasonNotFound          = "reservation_not_found"
	reasonIllegalTransition = "illegal_transition"
	reasonStaleStatus       = "stale_status"
	reasonTableUnavailable  = "table_unavailable"
	reasonQueryFailed       = "query_failed"

	defaultNotifyTimeout = 5 * time.Second
)

var (
	errMissingDatabase   = errors.New("database handle is required")
	errMissingIDProvider = errors.New("id provider is required")
	errEmptySelection    = errors.New("at least one table must be selected")
	errUnknownTable      = errors.New("selected table does not exist")
	errReservationAbsent = errors.New("reservation not found")
	errStaleStatus       = errors.New("reservation status changed concurrently")
	errBookingsClosed    = errors.New("reservations are not accepted for this restaurant")
	errPastDate          = errors.New("date is in the past")
	errTimeNotOffered    = errors.New("time is not one of the offered slots")

	// ErrTableUnavailable indicates that a selected table was taken by another active
	// reservation for the same date and time. It is always wrapped with apperr.ErrConflict.
	ErrTableUnavailable = errors.New("table no longer available")

	noOpLogger = zap.NewNop()
)

// Notification is the customer-facing event emitted after a committed change.
type Notification struct {
	Kind              EventKind
	TenantID          string
	NotificationEmail string
	Reservation       Reservation
}

// Notifier delivers reservation events. Delivery is best-effort.
type Notifier interface {
	Notify(ctx context.Context, notification Notification) error
}

// ChangeNotifier fans out "reservations changed" signals to dashboard sessions.
type ChangeNotifier interface {
	NotifyChange(tenantID string, reservationIDs []string)
}

// Recorder receives domain counters.
type Recorder interface {
	BookingSubmitted()
	Transitioned(from, to string)
	Conflict(reason string)
	NotificationFailed(kind string)
}

// ServiceConfig describes the dependencies of the reservation service.
type ServiceConfig struct {
	Database   *gorm.DB
	Clock      func() time.Time
	IDProvider IDProvider
	Notifier   Notifier
	Changes    ChangeNotifier
	Metrics    Recorder
	Logger     *zap.Logger
	// NotifyTimeout bounds each notification delivery. Zero selects a five second default.
	NotifyTimeout time.Duration
}

// Service orchestrates public bookings, staff transitions and derived room views.
type Service struct {
	db         *gorm.DB
	clock      func() time.Time
	idProvider IDProvider
	notifier   Notifier
	changes    ChangeNotifier
	metrics    Recorder
	logger     *zap.Logger
	validate   *validator.Validate

	notifyTimeout time.Duration
}

// NewService validates dependencies and constructs the service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Database == nil {
		return nil, apperr.New(opServiceNew, reasonMissingDatabase, apperr.ErrInternal, errMissingDatabase)
	}
	if cfg.IDProvider == nil {
		return nil, apperr.New(opServiceNew, "missing_id_provider", apperr.ErrInternal, errMissingIDProvider)
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}
	metrics := cfg.Metrics
	if metrics == nil {
		metrics = noOpRecorder{}
	}
	notifyTimeout := cfg.NotifyTimeout
	if notifyTimeout <= 0 {
		notifyTimeout = defaultNotifyTimeout
	}
	return &Service{
		db:         cfg.Database,
		clock:      clock,
		idProvider: cfg.IDProvider,
		notifier:   cfg.Notifier,
		changes:    cfg.Changes,
		metrics:    metrics,
		logger:     logger,
		validate:   validator.New(validator.WithRequiredStructEnabled()),

		notifyTimeout: notifyTimeout,
	}, nil
}

// SubmitBooking validates a public booking and stores it as pending.
func (s *Service) SubmitBooking(ctx context.Context, request BookingRequest) (SubmitResult, error) {
	if s == nil || s.db == nil {
		return SubmitResult{}, apperr.New(opSubmitBooking, reasonMissingDatabase, apperr.ErrInternal, errMissingDatabase)
	}
	request = request.normalized()
	if err := s.validate.Struct(request); err != nil {
		return SubmitResult{}, apperr.New(opSubmitBooking, validationReason(err), apperr.ErrValidation, err)
	}
	tenantID, err := venue.NewTenantID(request.TenantID)
	if err != nil {
		return SubmitResult{}, apperr.New(opSubmitBooking, reasonInvalidTenantID, apperr.ErrValidation, err)
	}
	date, err := schedule.ParseDate(request.Date)
	if err != nil {
		return SubmitResult{}, apperr.New(opSubmitBooking, reasonInvalidDate, apperr.ErrValidation, err)
	}
	clockTime, err := schedule.ParseTimeOfDay(request.Time)
	if err != nil {
		return SubmitResult{}, apperr.New(opSubmitBooking, reasonInvalidTime, apperr.ErrValidation, err)
	}

	cfg, err := venue.ReadConfig(s.db.WithContext(ctx), tenantID)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return SubmitResult{}, apperr.New(opSubmitBooking, "bookings_closed", apperr.ErrValidation, errBookingsClosed)
		}
		s.logError(opSubmitBooking, "config_query_failed", err, zap.String("tenant_id", tenantID.String()))
		return SubmitResult{}, err
	}
	if !cfg.IsActive {
		return SubmitResult{}, apperr.New(opSubmitBooking, "bookings_closed", apperr.ErrValidation, errBookingsClosed)
	}
	location, err := cfg.Location()
	if err != nil {
		s.logError(opSubmitBooking, "invalid_timezone", err, zap.String("tenant_id", tenantID.String()))
		return SubmitResult{}, apperr.New(opSubmitBooking, "invalid_timezone", apperr.ErrInternal, err)
	}
	now := s.clock().In(location)
	if date.Before(schedule.DateOf(now)) {
		return SubmitResult{}, apperr.New(opSubmitBooking, "past_date", apperr.ErrValidation, errPastDate)
	}
	if !schedule.Contains(schedule.Slots(date, cfg.Windows(), now), clockTime) {
		return SubmitResult{}, apperr.New(opSubmitBooking, "time_not_offered", apperr.ErrValidation, errTimeNotOffered)
	}

	reservationID, err := s.idProvider.NewID()
	if err != nil {
		s.logError(opSubmitBooking, "id_generation_failed", err)
		return SubmitResult{}, apperr.New(opSubmitBooking, "id_generation_failed", apperr.ErrInternal, err)
	}
	reservation := Reservation{
		ReservationID: reservationID,
		TenantID:      tenantID.String(),
		CustomerName:  request.CustomerName,
		CustomerEmail: request.CustomerEmail,
		CustomerPhone: request.CustomerPhone,
		Guests:        request.Guests,
		HighChairs:    request.HighChairs,
		Date:          date.String(),
		Time:          clockTime.String(),
		Notes:         request.Notes,
		Status:        StatusPending,
	}
	if err := s.db.WithContext(ctx).Create(&reservation).Error; err != nil {
		s.logError(opSubmitBooking, "reservation_insert_failed", err, zap.String("tenant_id", tenantID.String()))
		return SubmitResult{}, apperr.New(opSubmitBooking, "reservation_insert_failed", apperr.ErrTransient, err)
	}
	reservation.AssignedTableIDs = []string{}

	result := SubmitResult{Reservation: reservation, Warnings: bookingWarnings(cfg, reservation)}
	s.metrics.BookingSubmitted()
	s.logger.Info("reservation submitted",
		zap.String("tenant_id", tenantID.String()),
		zap.String("reservation_id", reservation.ReservationID),
		zap.String("date", reservation.Date),
		zap.String("time", reservation.Time),
		zap.Int("guests", reservation.Guests))

	result.NotificationFailed = !s.emit(ctx, EventNew, cfg, reservation)
	s.publishChange(tenantID.String(), reservation.ReservationID)
	return result, nil
}

// AcceptWithTables confirms a pending reservation onto the selected tables.
//
// The status check, the occupancy re-check and the assignment inserts run in one transaction.
// The unique assignment index rejects a concurrent confirm that slipped past the re-check.
func (s *Service) AcceptWithTables(ctx context.Context, tenantID venue.TenantID, reservationID ReservationID, tableIDs []string) (TransitionResult, error) {
	selection := normalizeSelection(tableIDs)
	if len(selection) == 0 {
		return TransitionResult{}, apperr.New(opAcceptWithTables, "empty_table_selection", apperr.ErrValidation, errEmptySelection)
	}
	return s.applyTransition(ctx, opAcceptWithTables, tenantID, reservationID, ActionAccept, selection)
}

// Reject declines a pending reservation.
func (s *Service) Reject(ctx context.Context, tenantID venue.TenantID, reservationID ReservationID) (TransitionResult, error) {
	return s.applyTransition(ctx, opReject, tenantID, reservationID, ActionReject, nil)
}

// Cancel cancels a confirmed reservation and frees its tables.
func (s *Service) Cancel(ctx context.Context, tenantID venue.TenantID, reservationID ReservationID) (TransitionResult, error) {
	return s.applyTransition(ctx, opCancel, tenantID, reservationID, ActionCancel, nil)
}

// MarkArrived records that a confirmed party is seated.
func (s *Service) MarkArrived(ctx context.Context, tenantID venue.TenantID, reservationID ReservationID) (TransitionResult, error) {
	return s.applyTransition(ctx, opMarkArrived, tenantID, reservationID, ActionArrive, nil)
}

// Apply dispatches a staff action by name.
func (s *Service) Apply(ctx context.Context, tenantID venue.TenantID, reservationID ReservationID, action Action, tableIDs []string) (TransitionResult, error) {
	switch action {
	case ActionAccept:
		return s.AcceptWithTables(ctx, tenantID, reservationID, tableIDs)
	case ActionReject:
		return s.Reject(ctx, tenantID, reservationID)
	case ActionCancel:
		return s.Cancel(ctx, tenantID, reservationID)
	case ActionArrive:
		return s.MarkArrived(ctx, tenantID, reservationID)
	default:
		return TransitionResult{}, apperr.New("reservations.apply", "unknown_action", apperr.ErrValidation, fmt.Errorf("%w: %s", ErrIllegalTransition, action))
	}
}

func (s *Service) applyTransition(ctx context.Context, operation string, tenantID venue.TenantID, reservationID ReservationID, action Action, selection []string) (TransitionResult, error) {
	if s == nil || s.db == nil {
		return TransitionResult{}, apperr.New(operation, reasonMissingDatabase, apperr.ErrInternal, errMissingDatabase)
	}
	if tenantID == "" {
		return TransitionResult{}, apperr.New(operation, reasonInvalidTenantID, apperr.ErrValidation, venue.ErrInvalidTenantID)
	}
	if reservationID == "" {
		return TransitionResult{}, apperr.New(operation, reasonInvalidID, apperr.ErrValidation, ErrInvalidReservationID)
	}

	fields := []zap.Field{
		zap.String("tenant_id", tenantID.String()),
		zap.String("reservation_id", reservationID.String()),
		zap.String("action", string(action)),
	}
	effect := EffectOf(action)
	var (
		result TransitionResult
		cfg    venue.Config
	)

	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var reservation Reservation
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where(queryTenantReservation, tenantID.String(), reservationID.String()).
			Take(&reservation).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.New(operation, reasonNotFound, apperr.ErrNotFound, errReservationAbsent)
		}
		if err != nil {
			s.logError(operation, "reservation_select_failed", err, fields...)
			return apperr.New(operation, "reservation_select_failed", apperr.ErrTransient, err)
		}

		next, err := Transition(reservation.Status, action)
		if err != nil {
			return apperr.New(operation, reasonIllegalTransition, apperr.ErrConflict, err)
		}

		cfg, err = venue.ReadConfig(tx, tenantID)
		if err != nil {
			return err
		}

		if effect.CreateAssignments {
			selected, err := s.reserveTables(tx, operation, cfg, reservation, selection)
			if err != nil {
				return err
			}
			if check := capacityCheck(selected, reservation.Guests); check != nil {
				result.Warnings = append(result.Warnings, *check)
			}
		}
		if effect.DeleteAssignments {
			if err := tx.Where("reservation_id = ?", reservation.ReservationID).Delete(&Assignment{}).Error; err != nil {
				s.logError(operation, "assignment_delete_failed", err, fields...)
				return apperr.New(operation, "assignment_delete_failed", apperr.ErrTransient, err)
			}
		}

		updatedAt := s.clock().UTC()
		update := tx.Model(&Reservation{}).
			Where(queryTenantReservation+" AND status = ?", tenantID.String(), reservationID.String(), reservation.Status).
			Updates(map[string]any{"status": next, "updated_at": updatedAt})
		if update.Error != nil {
			s.logError(operation, "status_update_failed", update.Error, fields...)
			return apperr.New(operation, "status_update_failed", apperr.ErrTransient, update.Error)
		}
		if update.RowsAffected == 0 {
			return apperr.New(operation, reasonStaleStatus, apperr.ErrConflict, errStaleStatus)
		}

		result.Previous = reservation.Status
		reservation.Status = next
		reservation.UpdatedAt = updatedAt
		assigned, err := assignedTables(tx, []string{reservation.ReservationID})
		if err != nil {
			return apperr.New(operation, "assignment_query_failed", apperr.ErrTransient, err)
		}
		reservation.AssignedTableIDs = assigned[reservation.ReservationID]
		result.Reservation = reservation
		return nil
	})
	if txErr != nil {
		if errors.Is(txErr, apperr.ErrConflict) {
			if serviceErr, ok := apperr.As(txErr); ok {
				s.metrics.Conflict(serviceErr.Reason())
			}
			s.logger.Info("reservation transition rejected", append(fields, zap.Error(txErr))...)
		}
		return TransitionResult{}, txErr
	}

	s.metrics.Transitioned(string(result.Previous), string(result.Reservation.Status))
	s.logger.Info("reservation transitioned",
		append(fields,
			zap.String("from", string(result.Previous)),
			zap.String("to", string(result.Reservation.Status)),
			zap.Strings("table_ids", result.Reservation.AssignedTableIDs))...)

	if effect.Event != "" {
		result.NotificationFailed = !s.emit(ctx, effect.Event, cfg, result.Reservation)
	}
	s.publishChange(tenantID.String(), result.Reservation.ReservationID)
	return result, nil
}

func (s *Service) reserveTables(tx *gorm.DB, operation string, cfg venue.Config, reservation Reservation, selection []string) ([]venue.Table, error) {
	inventory := make(map[string]venue.Table, len(cfg.Tables))
	for _, table := range cfg.Tables {
		inventory[table.TableID] = table
	}
	selected := make([]venue.Table, 0, len(selection))
	for _, tableID := range selection {
		table, ok := inventory[tableID]
		if !ok {
			return nil, apperr.New(operation, "unknown_table", apperr.ErrValidation, fmt.Errorf("%w: %s", errUnknownTable, tableID))
		}
		if !table.IsActive {
			return nil, apperr.New(operation, reasonTableUnavailable, apperr.ErrConflict, fmt.Errorf("%w: %s is inactive", ErrTableUnavailable, tableID))
		}
		selected = append(selected, table)
	}

	var taken []string
	if err := tx.Model(&Assignment{}).
		Where("tenant_id = ? AND slot_date = ? AND slot_time = ? AND table_id IN ?", reservation.TenantID, reservation.Date, reservation.Time, selection).
		Pluck("table_id", &taken).Error; err != nil {
		return nil, apperr.New(operation, "assignment_query_failed", apperr.ErrTransient, err)
	}
	if len(taken) > 0 {
		sort.Strings(taken)
		return nil, apperr.New(operation, reasonTableUnavailable, apperr.ErrConflict,
			fmt.Errorf("%w: %s", ErrTableUnavailable, strings.Join(taken, ",")))
	}

	assignments := make([]Assignment, 0, len(selection))
	for _, tableID := range selection {
		assignments = append(assignments, Assignment{
			ReservationID: reservation.ReservationID,
			TableID:       tableID,
			TenantID:      reservation.TenantID,
			Date:          reservation.Date,
			Time:          reservation.Time,
		})
	}
	if err := tx.Create(&assignments).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, apperr.New(operation, reasonTableUnavailable, apperr.ErrConflict, fmt.Errorf("%w: %v", ErrTableUnavailable, err))
		}
		return nil, apperr.New(operation, "assignment_insert_failed", apperr.ErrTransient, err)
	}
	return selected, nil
}

// ListReservations returns the tenant's reservations for date (all dates when empty),
// ordered by slot, with their assigned tables.
func (s *Service) ListReservations(ctx context.Context, tenantID venue.TenantID, date string) ([]Reservation, error) {
	if s == nil || s.db == nil {
		return nil, apperr.New(opList, reasonMissingDatabase, apperr.ErrInternal, errMissingDatabase)
	}
	query := s.db.WithContext(ctx).Where("tenant_id = ?", tenantID.String())
	if strings.TrimSpace(date) != "" {
		parsed, err := schedule.ParseDate(date)
		if err != nil {
			return nil, apperr.New(opList, reasonInvalidDate, apperr.ErrValidation, err)
		}
		query = query.Where("slot_date = ?", parsed.String())
	}
	var reservations []Reservation
	if err := query.Order(orderSlot).Find(&reservations).Error; err != nil {
		s.logError(opList, reasonQueryFailed, err, zap.String("tenant_id", tenantID.String()))
		return nil, apperr.New(opList, reasonQueryFailed, apperr.ErrTransient, err)
	}
	if err := s.attachAssignments(s.db.WithContext(ctx), reservations); err != nil {
		s.logError(opList, "assignment_query_failed", err, zap.String("tenant_id", tenantID.String()))
		return nil, apperr.New(opList, "assignment_query_failed", apperr.ErrTransient, err)
	}
	return reservations, nil
}

// AvailabilityView is the staff allocation panel for one date and time.
type AvailabilityView struct {
	Date        string
	Time        string
	Guests      int
	Available   []venue.Table
	Occupied    []string
	Suggestions seating.Suggestions
}

// Availability computes free tables at date and time from a fresh read and suggests
// selections for guests. The result is advisory; AcceptWithTables re-validates.
func (s *Service) Availability(ctx context.Context, tenantID venue.TenantID, rawDate, rawTime string, guests int) (AvailabilityView, error) {
	if s == nil || s.db == nil {
		return AvailabilityView{}, apperr.New(opAvailability, reasonMissingDatabase, apperr.ErrInternal, errMissingDatabase)
	}
	date, err := schedule.ParseDate(rawDate)
	if err != nil {
		return AvailabilityView{}, apperr.New(opAvailability, reasonInvalidDate, apperr.ErrValidation, err)
	}
	clockTime, err := schedule.ParseTimeOfDay(rawTime)
	if err != nil {
		return AvailabilityView{}, apperr.New(opAvailability, reasonInvalidTime, apperr.ErrValidation, err)
	}
	db := s.db.WithContext(ctx)
	cfg, err := venue.ReadConfig(db, tenantID)
	if err != nil {
		return AvailabilityView{}, err
	}
	bookings, err := s.activeBookings(db, tenantID, date.String())
	if err != nil {
		s.logError(opAvailability, reasonQueryFailed, err, zap.String("tenant_id", tenantID.String()))
		return AvailabilityView{}, apperr.New(opAvailability, reasonQueryFailed, apperr.ErrTransient, err)
	}
	return buildAvailability(date.String(), clockTime.String(), guests, cfg.Tables, bookings), nil
}

// Occupancy derives the room view for date.
func (s *Service) Occupancy(ctx context.Context, tenantID venue.TenantID, rawDate string) (seating.OccupancyView, error) {
	if s == nil || s.db == nil {
		return seating.OccupancyView{}, apperr.New(opOccupancy, reasonMissingDatabase, apperr.ErrInternal, errMissingDatabase)
	}
	date, err := schedule.ParseDate(rawDate)
	if err != nil {
		return seating.OccupancyView{}, apperr.New(opOccupancy, reasonInvalidDate, apperr.ErrValidation, err)
	}
	db := s.db.WithContext(ctx)
	cfg, err := venue.ReadConfig(db, tenantID)
	if err != nil {
		return seating.OccupancyView{}, err
	}
	bookings, err := s.activeBookings(db, tenantID, date.String())
	if err != nil {
		s.logError(opOccupancy, reasonQueryFailed, err, zap.String("tenant_id", tenantID.String()))
		return seating.OccupancyView{}, apperr.New(opOccupancy, reasonQueryFailed, apperr.ErrTransient, err)
	}
	return buildOccupancy(date.String(), bookings, cfg.Tables), nil
}

// Slots lists the bookable times for date. A restaurant that does not accept bookings offers none.
func (s *Service) Slots(ctx context.Context, tenantID venue.TenantID, rawDate string) ([]schedule.TimeOfDay, error) {
	if s == nil || s.db == nil {
		return nil, apperr.New(opSlots, reasonMissingDatabase, apperr.ErrInternal, errMissingDatabase)
	}
	date, err := schedule.ParseDate(rawDate)
	if err != nil {
		return nil, apperr.New(opSlots, reasonInvalidDate, apperr.ErrValidation, err)
	}
	cfg, err := venue.ReadConfig(s.db.WithContext(ctx), tenantID)
	if err != nil {
		return nil, err
	}
	if !cfg.IsActive {
		return []schedule.TimeOfDay{}, nil
	}
	location, err := cfg.Location()
	if err != nil {
		return nil, apperr.New(opSlots, "invalid_timezone", apperr.ErrInternal, err)
	}
	now := s.clock().In(location)
	if date.Before(schedule.DateOf(now)) {
		return []schedule.TimeOfDay{}, nil
	}
	return schedule.Slots(date, cfg.Windows(), now), nil
}

// TablesInUse lists which of tableIDs hold assignments on or after fromDate.
func (s *Service) TablesInUse(ctx context.Context, tx *gorm.DB, tenantID string, tableIDs []string, fromDate string) ([]string, error) {
	if len(tableIDs) == 0 {
		return nil, nil
	}
	db := tx
	if db == nil {
		db = s.db
	}
	var inUse []string
	err := db.WithContext(ctx).Model(&Assignment{}).
		Distinct("table_id").
		Where("tenant_id = ? AND table_id IN ? AND slot_date >= ?", tenantID, tableIDs, fromDate).
		Order("table_id ASC").
		Pluck("table_id", &inUse).Error
	return inUse, err
}

func (s *Service) activeBookings(db *gorm.DB, tenantID venue.TenantID, date string) ([]Reservation, error) {
	var reservations []Reservation
	if err := db.Where(queryTenantDate+" AND status IN ?", tenantID.String(), date, ActiveStatuses()).
		Order(orderSlot).
		Find(&reservations).Error; err != nil {
		return nil, err
	}
	if err := s.attachAssignments(db, reservations); err != nil {
		return nil, err
	}
	return reservations, nil
}

func (s *Service) attachAssignments(db *gorm.DB, reservations []Reservation) error {
	if len(reservations) == 0 {
		return nil
	}
	ids := make([]string, 0, len(reservations))
	for _, reservation := range reservations {
		ids = append(ids, reservation.ReservationID)
	}
	assigned, err := assignedTables(db, ids)
	if err != nil {
		return err
	}
	for index := range reservations {
		tables := assigned[reservations[index].ReservationID]
		if tables == nil {
			tables = []string{}
		}
		reservations[index].AssignedTableIDs = tables
	}
	return nil
}

func assignedTables(db *gorm.DB, reservationIDs []string) (map[string][]string, error) {
	var rows []Assignment
	if err := db.Where("reservation_id IN ?", reservationIDs).Order("table_id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	assigned := make(map[string][]string, len(reservationIDs))
	for _, row := range rows {
		assigned[row.ReservationID] = append(assigned[row.ReservationID], row.TableID)
	}
	return assigned, nil
}

// emit delivers a notification for a committed change. Delivery outlives a cancelled request
// but not the notify timeout.
func (s *Service) emit(ctx context.Context, kind EventKind, cfg venue.Config, reservation Reservation) bool {
	if s.notifier == nil {
		return true
	}
	notifyCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.notifyTimeout)
	defer cancel()
	err := s.notifier.Notify(notifyCtx, Notification{
		Kind:              kind,
		TenantID:          reservation.TenantID,
		NotificationEmail: cfg.NotificationEmail,
		Reservation:       reservation,
	})
	if err == nil {
		return true
	}
	s.metrics.NotificationFailed(string(kind))
	s.loggerOrDefault().Warn("reservation notification failed",
		zap.String("tenant_id", reservation.TenantID),
		zap.String("reservation_id", reservation.ReservationID),
		zap.String("event", string(kind)),
		zap.Error(err))
	return false
}

func (s *Service) publishChange(tenantID string, reservationIDs ...string) {
	if s.changes == nil || len(reservationIDs) == 0 {
		return
	}
	s.changes.NotifyChange(tenantID, reservationIDs)
}

func bookingWarnings(cfg venue.Config, reservation Reservation) []Warning {
	warnings := make([]Warning, 0)
	if cfg.TotalSeats > 0 && reservation.Guests > cfg.TotalSeats {
		warnings = append(warnings, Warning{
			Code:    WarningPartyExceedsSeats,
			Message: fmt.Sprintf("party of %d exceeds %d total seats", reservation.Guests, cfg.TotalSeats),
		})
	}
	if reservation.HighChairs > cfg.TotalHighChairs {
		warnings = append(warnings, Warning{
			Code:    WarningHighChairsExceeded,
			Message: fmt.Sprintf("%d high chairs requested, %d available", reservation.HighChairs, cfg.TotalHighChairs),
		})
	}
	return warnings
}

func normalizeSelection(tableIDs []string) []string {
	seen := make(map[string]struct{}, len(tableIDs))
	selection := make([]string, 0, len(tableIDs))
	for _, raw := range tableIDs {
		tableID := strings.TrimSpace(raw)
		if tableID == "" {
			continue
		}
		if _, duplicate := seen[tableID]; duplicate {
			continue
		}
		seen[tableID] = struct{}{}
		selection = append(selection, tableID)
	}
	sort.Strings(selection)
	return selection
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	message := strings.ToLower(err.Error())
	return strings.Contains(message, "unique constraint") ||
		strings.Contains(message, "duplicate key") ||
		strings.Contains(message, "duplicate entry")
}

var bookingFieldReasons = map[string]string{
	"CustomerName":  "invalid_customer_name",
	"CustomerEmail": "invalid_customer_email",
	"CustomerPhone": "invalid_customer_phone",
	"Guests":        "invalid_guests",
	"HighChairs":    "invalid_high_chairs",
	"Date":          reasonInvalidDate,
	"Time":          reasonInvalidTime,
	"Notes":         "invalid_notes",
}

func validationReason(err error) string {
	var fieldErrors validator.ValidationErrors
	if errors.As(err, &fieldErrors) && len(fieldErrors) > 0 {
		if reason, ok := bookingFieldReasons[fieldErrors[0].StructField()]; ok {
			return reason
		}
	}
	return "invalid_booking"
}

func (s *Service) loggerOrDefault() *zap.Logger {
	if s == nil || s.logger == nil {
		return noOpLogger
	}
	return s.logger
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
	s.loggerOrDefault().Error("reservations service error", attrs...)
}

type noOpRecorder struct{}

func (noOpRecorder) BookingSubmitted()           {}
func (noOpRecorder) Transitioned(string, string) {}
func (noOpRecorder) Conflict(string)             {}
func (noOpRecorder) NotificationFailed(string)   {}
