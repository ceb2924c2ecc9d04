package model

import (
	"time"
)

type SourceKind string

const (
	SourceRoad SourceKind = "road"
	SourceAir  SourceKind = "air"
	SourceSea  SourceKind = "sea"

	EventPosition = "position"
	EventScan     = "scan"

	DefaultShareTTL = 7 * 24 * time.Hour
	MaxShareTTL     = 30 * 24 * time.Hour
)

// TrackingSource is a registered feed allowed to post positions for a shipment.
// Its secret lives in Meta["token"] and is only checked inside the database.
type TrackingSource struct {
	SourceID   string                 `json:"source_id"`
	ShipmentID string                 `json:"shipment_id"`
	Kind       SourceKind             `json:"kind"`
	Provider   string                 `json:"provider"`
	Meta       map[string]interface{} `json:"-"`
	CreatedAt  time.Time              `json:"created_at"`
}

// TrackingSourceResult returns the source together with its token, once.
type TrackingSourceResult struct {
	TrackingSource
	Token string `json:"token"`
}

// TrackingEvent is an append-only position or scan record.
type TrackingEvent struct {
	EventID    string                 `json:"event_id"`
	SourceID   string                 `json:"source_id,omitempty"`
	ShipmentID string                 `json:"shipment_id"`
	Kind       string                 `json:"kind"`
	Lat        *float64               `json:"lat,omitempty"`
	Lon        *float64               `json:"lon,omitempty"`
	Speed      *float64               `json:"speed,omitempty"`
	Heading    *float64               `json:"heading,omitempty"`
	Accuracy   *float64               `json:"accuracy,omitempty"`
	Provider   string                 `json:"provider,omitempty"`
	Meta       map[string]interface{} `json:"meta,omitempty"`
	RecordedAt time.Time              `json:"recorded_at"`
}

// TrackingPing is an ingest call after shape validation.
type TrackingPing struct {
	Token      string
	ShipmentID string
	Lat        float64
	Lon        float64
	Speed      *float64
	Heading    *float64
	Accuracy   *float64
	Provider   string
}

// ShareToken grants read-only access to a shipment until ExpiresAt. The raw
// token is never stored, only TokenHash.
type ShareToken struct {
	TokenID    string    `json:"token_id"`
	ShipmentID string    `json:"shipment_id"`
	TokenHash  string    `json:"-"`
	CreatedBy  string    `json:"created_by"`
	ExpiresAt  time.Time `json:"expires_at"`
	CreatedAt  time.Time `json:"created_at"`
}

// Expired reports whether the token is past its expiry at now.
func (t *ShareToken) Expired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}

// ShareResult hands the raw share token to its creator once.
type ShareResult struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	URL       string    `json:"url"`
}
