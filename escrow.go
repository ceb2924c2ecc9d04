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
	"fmt"
	"net/http"
	"strings"

	"github.com/nobleverse/noble/internal/apierror"
	"github.com/nobleverse/noble/model"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

// transition is the outcome of an escrow operation inside its transaction.
type transition struct {
	already bool
	entry   *model.LedgerEntry
	event   string
}

// Release pays the held net, minus anything already refunded, out to the forwarder.
func (n *Noble) Release(ctx context.Context, shipmentID, callerID string) (*model.EscrowResult, error) {
	return n.applyTransition(ctx, "Release", shipmentID, callerID, func(s *model.Shipment) (*transition, error) {
		if s.EscrowStatus != model.EscrowHold {
			return nil, apierror.NewAPIError(apierror.ErrNotHold, "escrow is "+s.EscrowStatus, nil)
		}
		s.EscrowStatus = model.EscrowReleased
		if s.Status == model.ShipmentCreated {
			s.Status = model.ShipmentInTransit
		}
		entry := model.NewLedgerEntry(s.ShipmentID, model.EntryRelease, s.RemainingNetCents(),
			"release:"+s.ShipmentID, map[string]interface{}{"released_by": callerID})
		return &transition{entry: &entry, event: model.EventEscrowReleased}, nil
	})
}

// Refund returns whatever part of the net is still held and cancels the shipment.
func (n *Noble) Refund(ctx context.Context, shipmentID, callerID string) (*model.EscrowResult, error) {
	return n.applyTransition(ctx, "Refund", shipmentID, callerID, func(s *model.Shipment) (*transition, error) {
		switch s.EscrowStatus {
		case model.EscrowRefunded:
			return &transition{already: true}, nil
		case model.EscrowReleased:
			return nil, apierror.NewAPIError(apierror.ErrNotHold, "escrow already released", nil)
		}
		amount := s.RemainingNetCents()
		s.EscrowStatus = model.EscrowRefunded
		s.Status = model.ShipmentCancelled
		s.RefundedAmountCents = s.NetAmountCents
		entry := model.NewLedgerEntry(s.ShipmentID, model.EntryRefund, amount,
			"refund:"+s.ShipmentID, map[string]interface{}{"refunded_by": callerID, "full": true})
		return &transition{entry: &entry, event: model.EventEscrowRefunded}, nil
	})
}

// PartialRefund returns amountCents of the held net. Refunding exactly the
// remainder is allowed and completes the refund.
func (n *Noble) PartialRefund(ctx context.Context, shipmentID, callerID string, amountCents int64) (*model.EscrowResult, error) {
	if amountCents <= 0 {
		return nil, apierror.NewAPIError(apierror.ErrInvalidAmount, "amount_cents must be positive", nil).WithStatus(http.StatusBadRequest)
	}
	return n.applyTransition(ctx, "PartialRefund", shipmentID, callerID, func(s *model.Shipment) (*transition, error) {
		if s.EscrowStatus != model.EscrowHold {
			return nil, apierror.NewAPIError(apierror.ErrNotHold, "escrow is "+s.EscrowStatus, nil)
		}
		if s.RefundedAmountCents+amountCents > s.NetAmountCents {
			return nil, apierror.NewAPIError(apierror.ErrExceedsNet,
				fmt.Sprintf("%d cents remain refundable", s.RemainingNetCents()), nil)
		}
		s.RefundedAmountCents += amountCents
		if s.RefundedAmountCents == s.NetAmountCents {
			s.EscrowStatus = model.EscrowRefunded
		}
		// the cumulative total makes each partial refund a distinct, replay-safe key
		key := fmt.Sprintf("partial_refund:%s:%d", s.ShipmentID, s.RefundedAmountCents)
		entry := model.NewLedgerEntry(s.ShipmentID, model.EntryRefund, amountCents, key,
			map[string]interface{}{"partial": true, "refunded_by": callerID})
		return &transition{entry: &entry, event: model.EventEscrowPartiallyRefunded}, nil
	})
}

// Dispute freezes the shipment for review. It moves no money.
func (n *Noble) Dispute(ctx context.Context, shipmentID, callerID, reason string) (*model.EscrowResult, error) {
	reason = strings.TrimSpace(reason)
	return n.applyTransition(ctx, "Dispute", shipmentID, callerID, func(s *model.Shipment) (*transition, error) {
		if s.Status == model.ShipmentDisputed {
			return &transition{already: true}, nil
		}
		s.Status = model.ShipmentDisputed
		s.DisputeReason = reason
		entry := model.NewLedgerEntry(s.ShipmentID, model.EntryAdjust, 0,
			"dispute:"+s.ShipmentID, map[string]interface{}{"reason": reason, "disputed_by": callerID})
		return &transition{entry: &entry, event: model.EventShipmentDisputed}, nil
	})
}

// applyTransition loads the shipment row-locked, authorizes the caller, applies
// apply and persists the cached fields together with the ledger entry.
func (n *Noble) applyTransition(ctx context.Context, name, shipmentID, callerID string, apply func(s *model.Shipment) (*transition, error)) (*model.EscrowResult, error) {
	ctx, span := tracer.Start(ctx, name)
	defer span.End()
	span.SetAttributes(attribute.String("shipment.id", shipmentID))

	if callerID == "" {
		return nil, apierror.NewAPIError(apierror.ErrUnauthorized, "", nil)
	}

	var (
		outcome  *transition
		snapshot model.Shipment
	)
	err := n.datasource.RunInTx(ctx, func(ctx context.Context) error {
		shipment, err := n.datasource.GetShipmentForUpdate(ctx, shipmentID)
		if err != nil {
			return err
		}
		if !shipment.IsParticipant(callerID) {
			return apierror.NewAPIError(apierror.ErrForbidden, "", nil)
		}

		outcome, err = apply(shipment)
		if err != nil || outcome.already {
			return err
		}

		shipment.UpdatedAt = n.clock()
		if err := n.datasource.UpdateShipmentState(ctx, shipment); err != nil {
			return err
		}
		if _, err := n.datasource.InsertLedgerEntry(ctx, *outcome.entry); err != nil {
			return apierror.NewAPIError(apierror.ErrLedgerInsertFailed, "could not write escrow ledger", err).WithStep(stepLedgerInsert)
		}
		snapshot = *shipment
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	if outcome.already {
		return &model.EscrowResult{OK: true, Already: true}, nil
	}

	logrus.WithFields(logrus.Fields{
		"shipment_id":   snapshot.ShipmentID,
		"escrow_status": snapshot.EscrowStatus,
		"status":        snapshot.Status,
		"entry_type":    outcome.entry.EntryType,
		"amount_cents":  outcome.entry.AmountCents,
	}).Info(strings.ToLower(name) + " applied")

	n.enqueueTransitionEffects(ctx, &snapshot, outcome, callerID)
	return &model.EscrowResult{OK: true}, nil
}
