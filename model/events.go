package model

import "time"

const (
	EventShipmentAccepted        = "shipment.accepted"
	EventEscrowReleased          = "escrow.released"
	EventEscrowRefunded          = "escrow.refunded"
	EventEscrowPartiallyRefunded = "escrow.partially_refunded"
	EventShipmentDisputed        = "shipment.disputed"
	EventShipmentScanned         = "shipment.scanned"
)

// Event is a domain event published after a committed state change.
type Event struct {
	EventID    string                 `json:"event_id"`
	Type       string                 `json:"type"`
	ShipmentID string                 `json:"shipment_id"`
	ActorID    string                 `json:"actor_id,omitempty"`
	Data       map[string]interface{} `json:"data"`
	OccurredAt time.Time              `json:"occurred_at"`
}

// NewEvent stamps an event with an id and the current time.
func NewEvent(eventType, shipmentID, actorID string, data map[string]interface{}) Event {
	return Event{
		EventID:    GenerateUUIDWithSuffix("evt"),
		Type:       eventType,
		ShipmentID: shipmentID,
		ActorID:    actorID,
		Data:       data,
		OccurredAt: time.Now().UTC(),
	}
}

// Notification is an in-app notification row for a user.
type Notification struct {
	NotificationID string                 `json:"notification_id"`
	UserID         string                 `json:"user_id"`
	Kind           string                 `json:"kind"`
	Reference      string                 `json:"reference"`
	Payload        map[string]interface{} `json:"payload"`
	CreatedAt      time.Time              `json:"created_at"`
}

// ChatRoom is the per-shipment conversation between owner and forwarder.
type ChatRoom struct {
	RoomID       string    `json:"room_id"`
	ShipmentID   string    `json:"shipment_id"`
	Participants []string  `json:"participants"`
	CreatedAt    time.Time `json:"created_at"`
}

// ChatMessage is a single message in a ChatRoom.
type ChatMessage struct {
	MessageID string    `json:"message_id"`
	RoomID    string    `json:"room_id"`
	SenderID  string    `json:"sender_id"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}
