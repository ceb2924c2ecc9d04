package model

import (
	"time"
)

const (
	ShipmentCreated   = "created"
	ShipmentInTransit = "in_transit"
	ShipmentDelivered = "delivered"
	ShipmentCancelled = "cancelled"
	ShipmentDisputed  = "disputed"

	EscrowHold     = "hold"
	EscrowReleased = "released"
	EscrowRefunded = "refunded"
)

// Shipment is created once per accepted proposal. The amount fields are a cache of
// the escrow ledger and are only ever written in the transaction that appends the
// matching ledger entry.
type Shipment struct {
	ShipmentID          string    `json:"shipment_id"`
	Code                string    `json:"code"`
	RequestID           string    `json:"request_id"`
	OfferID             string    `json:"offer_id,omitempty"`
	NegotiationID       string    `json:"negotiation_id,omitempty"`
	OwnerID             string    `json:"owner_id"`
	ForwarderID         string    `json:"forwarder_id"`
	Status              string    `json:"status"`
	EscrowStatus        string    `json:"escrow_status"`
	TotalAmountCents    int64     `json:"total_amount_cents"`
	PlatformFeeCents    int64     `json:"platform_fee_cents"`
	NetAmountCents      int64     `json:"net_amount_cents"`
	RefundedAmountCents int64     `json:"refunded_amount_cents"`
	Participants        []string  `json:"participants"`
	LabelHMAC           string    `json:"-"`
	DisputeReason       string    `json:"dispute_reason,omitempty"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

// IsParticipant is the single authorization predicate for escrow, label, share and
// tracking operations: only the owner or the forwarder may act on a shipment.
func (s *Shipment) IsParticipant(userID string) bool {
	if userID == "" {
		return false
	}
	return s.OwnerID == userID || s.ForwarderID == userID
}

// RemainingNetCents is the part of the net amount not yet refunded.
func (s *Shipment) RemainingNetCents() int64 {
	return s.NetAmountCents - s.RefundedAmountCents
}

// ProposalRef returns the kind and id of the proposal the shipment was created from.
func (s *Shipment) ProposalRef() (ProposalKind, string) {
	if s.NegotiationID != "" {
		return ProposalNegotiation, s.NegotiationID
	}
	return ProposalOffer, s.OfferID
}

// EscrowResult is the body returned by release, refund, partial-refund and dispute.
type EscrowResult struct {
	OK      bool `json:"ok"`
	Already bool `json:"already,omitempty"`
}

// LabelResult hands the raw label token to the client exactly once.
type LabelResult struct {
	Token      string `json:"token"`
	ShipmentID string `json:"shipmentId"`
}

// PublicShipment is the read-only view served to share-token holders. It carries
// no money fields and no participant ids.
type PublicShipment struct {
	Code         string          `json:"code"`
	Status       string          `json:"status"`
	EscrowStatus string          `json:"escrow_status"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
	Tracking     []TrackingEvent `json:"tracking"`
	ExpiresAt    time.Time       `json:"expires_at"`
}

// PublicView projects a shipment and its latest events into the share view.
func (s *Shipment) PublicView(events []TrackingEvent, expiresAt time.Time) PublicShipment {
	if events == nil {
		events = []TrackingEvent{}
	}
	return PublicShipment{
		Code:         s.Code,
		Status:       s.Status,
		EscrowStatus: s.EscrowStatus,
		CreatedAt:    s.CreatedAt,
		UpdatedAt:    s.UpdatedAt,
		Tracking:     events,
		ExpiresAt:    expiresAt,
	}
}
