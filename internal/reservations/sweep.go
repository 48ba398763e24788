package reservations

import (
	"context"
	"time"

	"github.com/Z3rkRapt0r/gofood-men/backend/internal/apperr"
	"github.com/Z3rkRapt0r/gofood-men/backend/internal/schedule"
	"github.com/Z3rkRapt0r/gofood-men/backend/internal/venue"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// SweepStalePending rejects pending reservations dated before the restaurant's current date.
//
// The restaurant timezone defines the current date. Restaurants without a readable configuration
// fall back to UTC. No customer notification is sent for swept reservations.
func (s *Service) SweepStalePending(ctx context.Context, now time.Time) (int, error) {
	if s == nil || s.db == nil {
		return 0, apperr.New(opSweep, reasonMissingDatabase, apperr.ErrInternal, errMissingDatabase)
	}
	// No timezone is a full day ahead of UTC, so every local cutoff falls before this horizon.
	horizon := schedule.DateOf(now.UTC().AddDate(0, 0, 1)).String()

	var candidates []Reservation
	db := s.db.WithContext(ctx)
	if err := db.Where("status = ? AND slot_date < ?", StatusPending, horizon).
		Order("tenant_id ASC, slot_date ASC").
		Find(&candidates).Error; err != nil {
		s.logError(opSweep, reasonQueryFailed, err)
		return 0, apperr.New(opSweep, reasonQueryFailed, apperr.ErrTransient, err)
	}
	if len(candidates) == 0 {
		return 0, nil
	}

	swept := 0
	cutoffs := make(map[string]string)
	byTenant := make(map[string][]string)
	for _, reservation := range candidates {
		cutoff, ok := cutoffs[reservation.TenantID]
		if !ok {
			cutoff = s.tenantToday(db, reservation.TenantID, now).String()
			cutoffs[reservation.TenantID] = cutoff
		}
		if reservation.Date >= cutoff {
			continue
		}
		next, rejected, err := s.rejectStale(db, reservation, now)
		if err != nil {
			s.logError(opSweep, "status_update_failed", err, zap.String("reservation_id", reservation.ReservationID))
			return swept, apperr.New(opSweep, "status_update_failed", apperr.ErrTransient, err)
		}
		if !rejected {
			continue
		}
		swept++
		s.metrics.Transitioned(string(reservation.Status), string(next))
		byTenant[reservation.TenantID] = append(byTenant[reservation.TenantID], reservation.ReservationID)
	}
	for tenantID, ids := range byTenant {
		s.publishChange(tenantID, ids...)
	}
	s.logger.Info("stale pending reservations swept", zap.Int("count", swept), zap.Int("tenants", len(cutoffs)))
	return swept, nil
}

func (s *Service) tenantToday(db *gorm.DB, tenantID string, now time.Time) schedule.Date {
	cfg, err := venue.ReadConfig(db, venue.TenantID(tenantID))
	if err == nil {
		var location *time.Location
		if location, err = cfg.Location(); err == nil {
			return schedule.DateOf(now.In(location))
		}
	}
	s.logger.Warn("stale sweep using UTC date", zap.String("tenant_id", tenantID), zap.Error(err))
	return schedule.DateOf(now.UTC())
}

// rejectStale applies the reject transition to one swept reservation. It reports false when
// the reservation left its status since it was read.
func (s *Service) rejectStale(db *gorm.DB, reservation Reservation, now time.Time) (Status, bool, error) {
	next, err := Transition(reservation.Status, ActionReject)
	if err != nil {
		return "", false, nil
	}
	effect := EffectOf(ActionReject)
	rejected := false
	err = db.Transaction(func(tx *gorm.DB) error {
		update := tx.Model(&Reservation{}).
			Where("reservation_id = ? AND status = ?", reservation.ReservationID, reservation.Status).
			Updates(map[string]any{"status": next, "updated_at": now.UTC()})
		if update.Error != nil {
			return update.Error
		}
		if update.RowsAffected == 0 {
			return nil
		}
		if effect.DeleteAssignments {
			if err := tx.Where("reservation_id = ?", reservation.ReservationID).Delete(&Assignment{}).Error; err != nil {
				return err
			}
		}
		rejected = true
		return nil
	})
	return next, rejected, err
}

// RunStaleSweep sweeps on every tick until ctx is cancelled.
func (s *Service) RunStaleSweep(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.SweepStalePending(ctx, s.clock()); err != nil && ctx.Err() == nil {
				s.logger.Warn("stale sweep failed", zap.Error(err))
			}
		}
	}
}
