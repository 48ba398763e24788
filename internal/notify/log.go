package notify

import (
	"context"

	"github.com/Z3rkRapt0r/gofood-men/backend/internal/reservations"
	"go.uber.org/zap"
)

// LogNotifier records reservation events in the service log. It is used when no
// brokers are configured.
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier constructs a LogNotifier.
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogNotifier{logger: logger}
}

// Notify logs the event and never fails.
func (n *LogNotifier) Notify(_ context.Context, notification reservations.Notification) error {
	n.logger.Info("reservation event",
		zap.String("event", string(notification.Kind)),
		zap.String("tenant_id", notification.TenantID),
		zap.String("reservation_id", notification.Reservation.ReservationID),
		zap.String("status", string(notification.Reservation.Status)),
		zap.String("notification_email", notification.NotificationEmail))
	return nil
}

// Close is a no-op.
func (n *LogNotifier) Close() error {
	return nil
}
