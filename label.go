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

	"github.com/nobleverse/noble/internal/apierror"
	"github.com/nobleverse/noble/model"
	"github.com/sirupsen/logrus"
)

// IssueLabel mints a new label token for a shipment. Only its HMAC is kept,
// so issuing again invalidates the previous label.
func (n *Noble) IssueLabel(ctx context.Context, shipmentID, callerID string) (*model.LabelResult, error) {
	ctx, span := tracer.Start(ctx, "IssueLabel")
	defer span.End()

	if _, err := n.participantShipment(ctx, shipmentID, callerID); err != nil {
		return nil, err
	}

	token, err := model.GenerateToken()
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "could not generate label token", err)
	}
	if err := n.datasource.SetLabelHMAC(ctx, shipmentID, model.SignLabel(token, n.config.LabelSecret)); err != nil {
		return nil, err
	}

	logrus.WithField("shipment_id", shipmentID).Info("label issued")
	return &model.LabelResult{Token: token, ShipmentID: shipmentID}, nil
}

// Scan verifies a presented label token and records a scan event. An unknown
// shipment, a shipment without a label and a wrong token all read as INVALID.
func (n *Noble) Scan(ctx context.Context, shipmentID, token string, meta map[string]interface{}) (*model.TrackingEvent, error) {
	ctx, span := tracer.Start(ctx, "Scan")
	defer span.End()

	invalid := apierror.NewAPIError(apierror.ErrInvalid, "invalid label token", nil)
	if token == "" {
		return nil, invalid
	}

	shipment, err := n.datasource.GetShipment(ctx, shipmentID)
	if err != nil {
		if apierror.HasCode(err, apierror.ErrNotFound) {
			return nil, invalid
		}
		return nil, err
	}
	if !model.VerifyLabel(token, shipment.LabelHMAC, n.config.LabelSecret) {
		logrus.WithField("shipment_id", shipmentID).Warn("label verification failed")
		return nil, invalid
	}

	event := &model.TrackingEvent{
		EventID:    model.GenerateUUIDWithSuffix("trk"),
		ShipmentID: shipment.ShipmentID,
		Kind:       model.EventScan,
		Provider:   "label",
		Meta:       meta,
		RecordedAt: n.clock(),
	}
	if err := n.datasource.RecordTrackingEvent(ctx, event); err != nil {
		return nil, err
	}

	if n.queue != nil {
		published := model.NewEvent(model.EventShipmentScanned, shipment.ShipmentID, "", map[string]interface{}{
			"tracking_event_id": event.EventID,
			"status":            shipment.Status,
		})
		if err := n.queue.EnqueueEvent(context.WithoutCancel(ctx), published, event.EventID); err != nil {
			logrus.WithField("shipment_id", shipment.ShipmentID).WithField("task", TaskPublishEvent).Error(err)
		}
	}
	return event, nil
}

// participantShipment loads a shipment the caller takes part in.
func (n *Noble) participantShipment(ctx context.Context, shipmentID, callerID string) (*model.Shipment, error) {
	if callerID == "" {
		return nil, apierror.NewAPIError(apierror.ErrUnauthorized, "", nil)
	}
	shipment, err := n.datasource.GetShipment(ctx, shipmentID)
	if err != nil {
		return nil, err
	}
	if !shipment.IsParticipant(callerID) {
		return nil, apierror.NewAPIError(apierror.ErrForbidden, "", nil)
	}
	return shipment, nil
}

// GetShipment returns a shipment to one of its participants.
func (n *Noble) GetShipment(ctx context.Context, shipmentID, callerID string) (*model.Shipment, error) {
	return n.participantShipment(ctx, shipmentID, callerID)
}
