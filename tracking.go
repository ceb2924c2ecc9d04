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

package noble

import (
	"context"
	"math"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/nobleverse/noble/internal/apierror"
	"github.com/nobleverse/noble/model"
	"github.com/sirupsen/logrus"
)

const (
	DefaultTrackingLimit = 50
	MaxTrackingLimit     = 500
)

var finite = validation.By(func(value interface{}) error {
	var f float64
	switch v := value.(type) {
	case float64:
		f = v
	case *float64:
		if v == nil {
			return nil
		}
		f = *v
	default:
		return nil
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return validation.NewError("validation_finite", "must be a finite number")
	}
	return nil
})

func validatePing(ping model.TrackingPing) error {
	return validation.ValidateStruct(&ping,
		validation.Field(&ping.Token, validation.Required),
		validation.Field(&ping.ShipmentID, validation.Required),
		validation.Field(&ping.Lat, finite, validation.Min(-90.0), validation.Max(90.0)),
		validation.Field(&ping.Lon, finite, validation.Min(-180.0), validation.Max(180.0)),
		validation.Field(&ping.Speed, finite),
		validation.Field(&ping.Heading, finite),
		validation.Field(&ping.Accuracy, finite),
	)
}

// IngestTracking records a position from a tracking source. The token is
// checked by the database function, not here.
func (n *Noble) IngestTracking(ctx context.Context, ping model.TrackingPing) (string, error) {
	ctx, span := tracer.Start(ctx, "IngestTracking")
	defer span.End()

	if err := validatePing(ping); err != nil {
		return "", apierror.NewAPIError(apierror.ErrInvalidPayload, err.Error(), nil)
	}

	eventID, err := n.datasource.IngestTrackingEvent(ctx, ping)
	if err != nil {
		if apierror.HasCode(err, apierror.ErrForbidden) {
			logrus.WithField("shipment_id", ping.ShipmentID).Warn("tracking ingest rejected")
		}
		return "", err
	}
	return eventID, nil
}

// AddTrackingSource registers a feed for a shipment and returns its token once.
func (n *Noble) AddTrackingSource(ctx context.Context, shipmentID, callerID string, kind model.SourceKind, provider string) (*model.TrackingSourceResult, error) {
	ctx, span := tracer.Start(ctx, "AddTrackingSource")
	defer span.End()

	err := validation.Validate(string(kind), validation.Required,
		validation.In(string(model.SourceRoad), string(model.SourceAir), string(model.SourceSea)))
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInvalidPayload, "kind: "+err.Error(), nil)
	}
	if _, err := n.participantShipment(ctx, shipmentID, callerID); err != nil {
		return nil, err
	}

	token, err := model.GenerateToken()
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "could not generate source token", err)
	}
	source := model.TrackingSource{
		SourceID:   model.GenerateUUIDWithSuffix("src"),
		ShipmentID: shipmentID,
		Kind:       kind,
		Provider:   provider,
		Meta:       map[string]interface{}{"token": token, "created_by": callerID},
	}
	if err := n.datasource.CreateTrackingSource(ctx, &source); err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{"shipment_id": shipmentID, "source_id": source.SourceID, "kind": kind}).Info("tracking source added")
	return &model.TrackingSourceResult{TrackingSource: source, Token: token}, nil
}

// ListTrackingEvents returns a shipment's newest events to a participant.
func (n *Noble) ListTrackingEvents(ctx context.Context, shipmentID, callerID string, limit int) ([]model.TrackingEvent, error) {
	if _, err := n.participantShipment(ctx, shipmentID, callerID); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = DefaultTrackingLimit
	}
	if limit > MaxTrackingLimit {
		limit = MaxTrackingLimit
	}
	return n.datasource.GetTrackingEvents(ctx, shipmentID, limit)
}
