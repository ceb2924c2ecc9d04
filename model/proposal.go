package model

import (
	"time"
)

// ProposalKind distinguishes the two tables a forwarder can propose from.
// Offers are one-shot; negotiations go through counter rounds.
type ProposalKind string

const (
	ProposalOffer       ProposalKind = "offer"
	ProposalNegotiation ProposalKind = "negotiation"
)

const (
	RequestOpen      = "open"
	RequestConverted = "converted"
	RequestCancelled = "cancelled"

	OfferSent          = "sent"
	NegotiationPending = "pending"
	NegotiationCounter = "counter"
	ProposalAccepted   = "accepted"
	ProposalRejected   = "rejected"
)

// Request is a shipper's request for transport. It is converted exactly once,
// by the proposal that wins acceptance.
type Request struct {
	RequestID string    `json:"request_id"`
	OwnerID   string    `json:"owner_id"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// Proposal is an offer or a negotiation row. Details is the free-form terms payload.
type Proposal struct {
	ID          string                 `json:"id"`
	Kind        ProposalKind           `json:"kind"`
	RequestID   string                 `json:"request_id"`
	ForwarderID string                 `json:"forwarder_id"`
	Status      string                 `json:"status"`
	Details     map[string]interface{} `json:"details"`
	CreatedAt   time.Time              `json:"created_at"`
}

// OpenStatuses returns the statuses a sibling proposal of this kind can be rejected from.
func (k ProposalKind) OpenStatuses() []string {
	if k == ProposalNegotiation {
		return []string{NegotiationPending, NegotiationCounter}
	}
	return []string{OfferSent}
}

// MetaKey is the ledger/notification meta key that references a proposal of this kind.
func (k ProposalKind) MetaKey() string {
	if k == ProposalNegotiation {
		return "negotiation_id"
	}
	return "offer_id"
}

// Table is the relational table holding proposals of this kind.
func (k ProposalKind) Table() string {
	if k == ProposalNegotiation {
		return "noble.negotiations"
	}
	return "noble.offers"
}

// IDColumn is the primary id column of Table.
func (k ProposalKind) IDColumn() string {
	if k == ProposalNegotiation {
		return "negotiation_id"
	}
	return "offer_id"
}

// IsAccepted reports whether the proposal already won its request.
func (p *Proposal) IsAccepted() bool {
	return p.Status == ProposalAccepted
}

// AcceptResult is returned by both accept operations.
type AcceptResult struct {
	OK         bool   `json:"ok"`
	ShipmentID string `json:"shipmentId"`
	Code       string `json:"code"`
	Redirect   string `json:"redirect"`
	Already    bool   `json:"already,omitempty"`
}
