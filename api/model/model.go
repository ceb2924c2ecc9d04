/*
Copyright 2024 Blnk Finance Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package model

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/nobleverse/noble/model"
)

type PartialRefund struct {
	AmountCents *int64 `json:"amount_cents"`
}

type Dispute struct {
	Reason string `json:"reason"`
}

type Scan struct {
	Token string                 `json:"token"`
	Meta  map[string]interface{} `json:"meta"`
}

type IngestTracking struct {
	Token      string   `json:"token"`
	ShipmentID string   `json:"shipment_id"`
	Lat        *float64 `json:"lat"`
	Lon        *float64 `json:"lon"`
	Speed      *float64 `json:"speed"`
	Heading    *float64 `json:"heading"`
	Accuracy   *float64 `json:"accuracy"`
	Provider   string   `json:"provider"`
}

type CreateShare struct {
	TTLHours *int `json:"ttl_hours"`
}

type CreateTrackingSource struct {
	Kind     string `json:"kind"`
	Provider string `json:"provider"`
}

func (p *PartialRefund) ValidatePartialRefund() error {
	return validation.ValidateStruct(p,
		validation.Field(&p.AmountCents, validation.NotNil),
	)
}

func (d *Dispute) ValidateDispute() error {
	return validation.ValidateStruct(d,
		validation.Field(&d.Reason, validation.Length(0, 1000)),
	)
}

func (s *Scan) ValidateScan() error {
	return validation.ValidateStruct(s,
		validation.Field(&s.Token, validation.Required),
	)
}

// ValidateIngestTracking checks shape only. The token itself is verified by
// the database.
func (i *IngestTracking) ValidateIngestTracking() error {
	return validation.ValidateStruct(i,
		validation.Field(&i.Token, validation.Required),
		validation.Field(&i.ShipmentID, validation.Required),
		validation.Field(&i.Lat, validation.NotNil),
		validation.Field(&i.Lon, validation.NotNil),
	)
}

func (c *CreateShare) ValidateCreateShare() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.TTLHours, validation.Min(0)),
	)
}

func (c *CreateTrackingSource) ValidateCreateTrackingSource() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Kind, validation.Required,
			validation.In(string(model.SourceRoad), string(model.SourceAir), string(model.SourceSea))),
		validation.Field(&c.Provider, validation.Length(0, 100)),
	)
}

func (i *IngestTracking) ToTrackingPing() model.TrackingPing {
	ping := model.TrackingPing{
		Token:      i.Token,
		ShipmentID: i.ShipmentID,
		Speed:      i.Speed,
		Heading:    i.Heading,
		Accuracy:   i.Accuracy,
		Provider:   i.Provider,
	}
	if i.Lat != nil {
		ping.Lat = *i.Lat
	}
	if i.Lon != nil {
		ping.Lon = *i.Lon
	}
	return ping
}

// TTL returns zero when no lifetime was requested so the configured default applies.
// Lifetimes longer than model.MaxShareTTL are capped before conversion.
func (c *CreateShare) TTL() time.Duration {
	if c.TTLHours == nil {
		return 0
	}
	if *c.TTLHours > int(model.MaxShareTTL/time.Hour) {
		return model.MaxShareTTL
	}
	return time.Duration(*c.TTLHours) * time.Hour
}
