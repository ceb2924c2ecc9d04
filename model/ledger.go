package model

import (
	"fmt"
	"time"
)

// EntryType is the kind of money movement an escrow ledger row records.
type EntryType string

const (
	EntryHold    EntryType = "HOLD"
	EntryFee     EntryType = "FEE"
	EntryRelease EntryType = "RELEASE"
	EntryRefund  EntryType = "REFUND"
	EntryAdjust  EntryType = "ADJUST"
)

// Valid reports whether t is one of the five known entry types.
func (t EntryType) Valid() bool {
	switch t {
	case EntryHold, EntryFee, EntryRelease, EntryRefund, EntryAdjust:
		return true
	}
	return false
}

// LedgerEntry is an immutable escrow ledger row. IdempotencyKey is unique per
// shipment so a replayed write is a no-op.
type LedgerEntry struct {
	EntryID        string                 `json:"entry_id"`
	ShipmentID     string                 `json:"shipment_id"`
	EntryType      EntryType              `json:"entry_type"`
	AmountCents    int64                  `json:"amount_cents"`
	Meta           map[string]interface{} `json:"meta"`
	IdempotencyKey string                 `json:"idempotency_key"`
	CreatedAt      time.Time              `json:"created_at"`
}

// NewLedgerEntry builds an entry with a fresh id and creation time.
func NewLedgerEntry(shipmentID string, entryType EntryType, amountCents int64, key string, meta map[string]interface{}) LedgerEntry {
	if meta == nil {
		meta = map[string]interface{}{}
	}
	return LedgerEntry{
		EntryID:        GenerateUUIDWithSuffix("led"),
		ShipmentID:     shipmentID,
		EntryType:      entryType,
		AmountCents:    amountCents,
		Meta:           meta,
		IdempotencyKey: key,
		CreatedAt:      time.Now().UTC(),
	}
}

// LedgerSummary is the fold of a shipment's ledger by entry type.
type LedgerSummary struct {
	Held     int64 `json:"held_cents"`
	Fee      int64 `json:"fee_cents"`
	Net      int64 `json:"net_cents"`
	Released int64 `json:"released_cents"`
	Refunded int64 `json:"refunded_cents"`
	Adjusted int64 `json:"adjusted_cents"`
	Entries  int   `json:"entries"`
}

// FoldLedger sums entries by type. It is the source of truth for a shipment's
// economic state.
func FoldLedger(entries []LedgerEntry) LedgerSummary {
	var s LedgerSummary
	for _, e := range entries {
		switch e.EntryType {
		case EntryHold:
			s.Held += e.AmountCents
		case EntryFee:
			s.Fee += e.AmountCents
		case EntryRelease:
			s.Released += e.AmountCents
		case EntryRefund:
			s.Refunded += e.AmountCents
		case EntryAdjust:
			s.Adjusted += e.AmountCents
		}
		s.Entries++
	}
	s.Net = s.Held - s.Fee
	return s
}

// Drift lists every way the shipment's cached fields disagree with the ledger.
// An empty result means the two are reconciled.
func (s LedgerSummary) Drift(shipment *Shipment) []string {
	var drift []string
	if shipment.TotalAmountCents != s.Held {
		drift = append(drift, fmt.Sprintf("total_amount_cents %d != held %d", shipment.TotalAmountCents, s.Held))
	}
	if shipment.PlatformFeeCents != s.Fee {
		drift = append(drift, fmt.Sprintf("platform_fee_cents %d != fee %d", shipment.PlatformFeeCents, s.Fee))
	}
	if shipment.NetAmountCents != s.Net {
		drift = append(drift, fmt.Sprintf("net_amount_cents %d != held-fee %d", shipment.NetAmountCents, s.Net))
	}
	if shipment.RefundedAmountCents != s.Refunded {
		drift = append(drift, fmt.Sprintf("refunded_amount_cents %d != refunded %d", shipment.RefundedAmountCents, s.Refunded))
	}
	if s.Released+s.Refunded > s.Net {
		drift = append(drift, fmt.Sprintf("released+refunded %d exceeds net %d", s.Released+s.Refunded, s.Net))
	}

	switch shipment.EscrowStatus {
	case EscrowHold:
		if s.Released != 0 {
			drift = append(drift, "escrow on hold but ledger has RELEASE entries")
		}
	case EscrowReleased:
		if s.Released == 0 && s.Net-s.Refunded != 0 {
			drift = append(drift, "escrow released but ledger has no RELEASE entry")
		}
	case EscrowRefunded:
		if s.Refunded != s.Net {
			drift = append(drift, fmt.Sprintf("escrow refunded but ledger refunds %d of net %d", s.Refunded, s.Net))
		}
	}
	return drift
}

// Matches reports whether the ledger reproduces the shipment's cached fields.
func (s LedgerSummary) Matches(shipment *Shipment) bool {
	return len(s.Drift(shipment)) == 0
}

// LedgerReport is served by the ledger endpoint and the reconcile command.
type LedgerReport struct {
	ShipmentID string        `json:"shipment_id"`
	Entries    []LedgerEntry `json:"entries,omitempty"`
	Summary    LedgerSummary `json:"summary"`
	Drift      []string      `json:"drift"`
	Reconciled bool          `json:"reconciled"`
}
