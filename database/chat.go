package database

import (
	"context"
	"encoding/json"
	"time"

	"github.com/nobleverse/noble/internal/apierror"
	"github.com/nobleverse/noble/model"
)

// CreateChatRoom creates the shipment's room and, when the room is new, posts
// the seed message. It reports false when the shipment already has a room.
func (d Datasource) CreateChatRoom(ctx context.Context, room *model.ChatRoom, seed *model.ChatMessage) (bool, error) {
	participants, err := json.Marshal(room.Participants)
	if err != nil {
		return false, apierror.NewAPIError(apierror.ErrInternalServer, "failed to marshal chat participants", err)
	}

	created := false
	err = d.RunInTx(ctx, func(ctx context.Context) error {
		room.CreatedAt = time.Now().UTC()
		result, err := d.q(ctx).ExecContext(ctx, `
			INSERT INTO noble.chat_rooms (room_id, shipment_id, participants, created_at)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (shipment_id) DO NOTHING
		`, room.RoomID, room.ShipmentID, participants, room.CreatedAt)
		if err != nil {
			return mapError(err, "", "failed to create chat room")
		}
		n, err := result.RowsAffected()
		if err != nil {
			return apierror.NewAPIError(apierror.ErrInternalServer, "failed to read affected rows", err)
		}
		if n == 0 || seed == nil {
			created = n > 0
			return nil
		}

		seed.RoomID = room.RoomID
		seed.CreatedAt = room.CreatedAt
		_, err = d.q(ctx).ExecContext(ctx, `
			INSERT INTO noble.chat_messages (message_id, room_id, sender_id, body, created_at)
			VALUES ($1, $2, $3, $4, $5)
		`, seed.MessageID, seed.RoomID, seed.SenderID, seed.Body, seed.CreatedAt)
		if err != nil {
			return mapError(err, "", "failed to post seed message")
		}
		created = true
		return nil
	})
	return created, err
}
