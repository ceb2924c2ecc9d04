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
	"errors"

	"github.com/nobleverse/noble/internal/apierror"
	redlock "github.com/nobleverse/noble/internal/lock"
	"github.com/nobleverse/noble/model"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

const (
	stepCreateShipment = "create_shipment"
	stepUpdateOffer    = "update_offer"
	stepUpdateRequest  = "update_request"
	stepRejectSiblings = "reject_siblings"
	stepLedgerInsert   = "ledger_insert"
)

// AcceptOffer converts a request into a shipment using the terms of an offer.
func (n *Noble) AcceptOffer(ctx context.Context, offerID, callerID string) (*model.AcceptResult, error) {
	return n.accept(ctx, model.ProposalOffer, offerID, callerID)
}

// AcceptNegotiation converts a request into a shipment using the terms of a negotiation.
func (n *Noble) AcceptNegotiation(ctx context.Context, negotiationID, callerID string) (*model.AcceptResult, error) {
	return n.accept(ctx, model.ProposalNegotiation, negotiationID, callerID)
}

// accept runs the whole conversion in one transaction with the request row
// locked, so concurrent accepts on one request serialize and a loser sees the
// winner. Replaying an accepted proposal returns its shipment with Already set.
func (n *Noble) accept(ctx context.Context, kind model.ProposalKind, id, callerID string) (*model.AcceptResult, error) {
	ctx, span := tracer.Start(ctx, "Accept")
	defer span.End()
	span.SetAttributes(attribute.String("proposal.kind", string(kind)), attribute.String("proposal.id", id))

	if callerID == "" {
		return nil, apierror.NewAPIError(apierror.ErrUnauthorized, "", nil)
	}

	proposal, err := n.datasource.GetProposal(ctx, kind, id)
	if err != nil {
		return nil, err
	}

	var (
		result  *model.AcceptResult
		created *model.Shipment
	)
	err = n.withAcceptLock(ctx, proposal.RequestID, func(ctx context.Context) error {
		return n.datasource.RunInTx(ctx, func(ctx context.Context) error {
			var err error
			result, created, err = n.acceptInTx(ctx, kind, id, proposal.RequestID, callerID)
			return err
		})
	})
	if err != nil {
		err = n.withWinner(ctx, proposal.RequestID, err)
		span.RecordError(err)
		return nil, err
	}

	if created != nil {
		n.enqueueAcceptEffects(ctx, created, kind, id, callerID)
	}
	return result, nil
}

func (n *Noble) acceptInTx(ctx context.Context, kind model.ProposalKind, id, requestID, callerID string) (*model.AcceptResult, *model.Shipment, error) {
	request, err := n.datasource.LockRequestForUpdate(ctx, requestID)
	if err != nil {
		return nil, nil, err
	}

	// re-read under the request lock; the first read was only to find the request
	proposal, err := n.datasource.GetProposal(ctx, kind, id)
	if err != nil {
		return nil, nil, err
	}

	// ownership is checked before the replay and the winner lookup so that a
	// non-owner never learns the shipment id or the winning proposal
	if request.OwnerID != callerID {
		return nil, nil, apierror.NewAPIError(apierror.ErrForbidden, "only the request owner can accept", nil)
	}

	if proposal.IsAccepted() {
		existing, err := n.datasource.GetShipmentByProposal(ctx, kind, id)
		if err != nil {
			return nil, nil, err
		}
		return acceptResult(existing, true), nil, nil
	}

	winner, err := n.datasource.FindAcceptedProposal(ctx, request.RequestID)
	if err != nil {
		return nil, nil, err
	}
	if winner != nil {
		return nil, nil, apierror.NewAPIError(apierror.ErrAlreadyAccepted, winner.ID, nil)
	}

	price, err := model.ExtractPrice(proposal.Details)
	if err != nil {
		return nil, nil, apierror.NewAPIError(apierror.ErrInvalidAmount, err.Error(), nil)
	}
	totalCents, err := model.ToCents(price)
	if err != nil {
		return nil, nil, apierror.NewAPIError(apierror.ErrInvalidAmount, err.Error(), nil)
	}
	if totalCents <= 0 {
		return nil, nil, apierror.NewAPIError(apierror.ErrInvalidAmount, "price must be positive", nil)
	}
	feeCents, netCents := model.SplitFee(totalCents, n.config.FeePercent())

	code, err := model.NewShipmentCode()
	if err != nil {
		return nil, nil, apierror.NewAPIError(apierror.ErrShipCreateFailed, "could not generate shipment code", err).WithStep(stepCreateShipment)
	}

	now := n.clock()
	shipment := &model.Shipment{
		ShipmentID:       model.GenerateUUIDWithSuffix("shp"),
		Code:             code,
		RequestID:        request.RequestID,
		OwnerID:          request.OwnerID,
		ForwarderID:      proposal.ForwarderID,
		Status:           model.ShipmentCreated,
		EscrowStatus:     model.EscrowHold,
		TotalAmountCents: totalCents,
		PlatformFeeCents: feeCents,
		NetAmountCents:   netCents,
		Participants:     []string{request.OwnerID, proposal.ForwarderID},
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if kind == model.ProposalNegotiation {
		shipment.NegotiationID = id
	} else {
		shipment.OfferID = id
	}

	if err := n.datasource.CreateShipment(ctx, shipment); err != nil {
		return nil, nil, stepError(err, apierror.ErrShipCreateFailed, "could not create shipment", stepCreateShipment)
	}

	if err := n.datasource.UpdateProposalStatus(ctx, kind, id, model.ProposalAccepted); err != nil {
		return nil, nil, stepError(err, apierror.ErrOfferUpdateFailed, "could not accept proposal", stepUpdateOffer)
	}

	if err := n.datasource.UpdateRequestStatus(ctx, request.RequestID, model.RequestConverted); err != nil {
		return nil, nil, stepError(err, apierror.ErrOfferUpdateFailed, "could not convert request", stepUpdateRequest)
	}

	// siblings live in both tables; the winner is excluded from its own
	for _, siblingKind := range []model.ProposalKind{model.ProposalOffer, model.ProposalNegotiation} {
		exceptID := ""
		if siblingKind == kind {
			exceptID = id
		}
		rejected, err := n.datasource.RejectOpenProposals(ctx, siblingKind, request.RequestID, exceptID)
		if err != nil {
			return nil, nil, stepError(err, apierror.ErrOfferUpdateFailed, "could not reject sibling proposals", stepRejectSiblings)
		}
		if rejected > 0 {
			logrus.WithFields(logrus.Fields{"request_id": request.RequestID, "kind": siblingKind, "rejected": rejected}).Info("rejected sibling proposals")
		}
	}

	meta := map[string]interface{}{kind.MetaKey(): id, "source": string(kind)}
	entries := []model.LedgerEntry{
		model.NewLedgerEntry(shipment.ShipmentID, model.EntryHold, totalCents, "hold:"+shipment.ShipmentID, meta),
		model.NewLedgerEntry(shipment.ShipmentID, model.EntryFee, feeCents, "fee:"+shipment.ShipmentID, meta),
	}
	for _, entry := range entries {
		if _, err := n.datasource.InsertLedgerEntry(ctx, entry); err != nil {
			return nil, nil, stepError(err, apierror.ErrLedgerInsertFailed, "could not write escrow ledger", stepLedgerInsert)
		}
	}

	logrus.WithFields(logrus.Fields{
		"shipment_id": shipment.ShipmentID,
		"request_id":  request.RequestID,
		"total_cents": totalCents,
		"fee_cents":   feeCents,
	}).Info("proposal accepted")

	return acceptResult(shipment, false), shipment, nil
}

// stepError tags a failed acceptance step. A unique violation means another
// accept won the request and is reported as such instead.
func stepError(err error, code apierror.ErrorCode, message, step string) error {
	if apierror.HasCode(err, apierror.ErrAlreadyAccepted) {
		return err
	}
	return apierror.NewAPIError(code, message, err).WithStep(step)
}

// withWinner fills in the winning proposal id when a concurrent accept won the
// race through the unique indexes. The aborted transaction cannot be queried,
// so the lookup runs after rollback and sees the winner's committed row.
func (n *Noble) withWinner(ctx context.Context, requestID string, err error) error {
	apiErr, ok := apierror.As(err)
	if !ok || apiErr.Code != apierror.ErrAlreadyAccepted || apiErr.Message != "" {
		return err
	}
	winner, lookupErr := n.datasource.FindAcceptedProposal(ctx, requestID)
	if lookupErr != nil || winner == nil {
		logrus.WithField("request_id", requestID).Warn("accept lost the race but the winner is not visible")
		return err
	}
	apiErr.Message = winner.ID
	return apiErr
}

func acceptResult(shipment *model.Shipment, already bool) *model.AcceptResult {
	return &model.AcceptResult{
		OK:         true,
		ShipmentID: shipment.ShipmentID,
		Code:       shipment.Code,
		Redirect:   "/shipments/" + shipment.ShipmentID,
		Already:    already,
	}
}

// withAcceptLock holds the Redis accept lock around fn when it can. The row
// lock in the transaction is what guarantees a single winner, so an
// unreachable Redis or a lock that cannot be taken in time only logs.
func (n *Noble) withAcceptLock(ctx context.Context, requestID string, fn func(ctx context.Context) error) error {
	if n.redis == nil {
		return fn(ctx)
	}
	timeout := n.config.LockTimeout()
	locker := redlock.NewAcceptLocker(n.redis, requestID)
	fields := logrus.Fields{"request_id": requestID, "key": locker.Key()}

	err := locker.Lock(ctx, timeout)
	if err != nil && errors.Is(err, redlock.ErrLockHeld) {
		err = locker.WaitLock(ctx, timeout, timeout)
	}
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		logrus.WithFields(fields).WithError(err).Warn("accept lock unavailable, relying on row lock")
		return fn(ctx)
	}

	defer func() {
		if err := locker.Unlock(context.WithoutCancel(ctx)); err != nil {
			logrus.WithFields(fields).Warn(err)
		}
	}()
	return fn(ctx)
}
