package database

import (
	"context"
	"encoding/json"
	"time"

	"github.com/nobleverse/noble/internal/apierror"
	"github.com/nobleverse/noble/model"
)

// CreateNotification inserts the notification once per (user, kind, reference).
// Retried deliveries report false.
func (d Datasource) CreateNotification(ctx context.Context, notification *model.Notification) (bool, error) {
	payload, err := json.Marshal(notification.Payload)
	if err != nil {
		return false, apierror.NewAPIError(apierror.ErrInternalServer, "failed to marshal notification payload", err)
	}
	if notification.NotificationID == "" {
		notification.NotificationID = model.GenerateUUIDWithSuffix("ntf")
	}
	notification.CreatedAt = time.Now().UTC()

	result, err := d.q(ctx).ExecContext(ctx, `
		INSERT INTO noble.notifications (notification_id, user_id, kind, reference, payload, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id, kind, reference) DO NOTHING
	`, notification.NotificationID, notification.UserID, notification.Kind, notification.Reference, payload, notification.CreatedAt)
	if err != nil {
		return false, mapError(err, "", "failed to create notification")
	}

	n, err := result.RowsAffected()
	if err != nil {
		return false, apierror.NewAPIError(apierror.ErrInternalServer, "failed to read affected rows", err)
	}
	return n > 0, nil
}
