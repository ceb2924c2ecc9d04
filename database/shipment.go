package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nobleverse/noble/internal/apierror"
	"github.com/nobleverse/noble/model"
)

const shipmentColumns = `
	shipment_id, code, request_id, offer_id, negotiation_id, owner_id, forwarder_id,
	status, escrow_status, total_amount_cents, platform_fee_cents, net_amount_cents,
	refunded_amount_cents, participants, label_hmac, dispute_reason, created_at, updated_at`

func (d Datasource) CreateShipment(ctx context.Context, shipment *model.Shipment) error {
	participants, err := json.Marshal(shipment.Participants)
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "failed to marshal participants", err)
	}

	now := time.Now().UTC()
	if shipment.CreatedAt.IsZero() {
		shipment.CreatedAt = now
	}
	if shipment.UpdatedAt.IsZero() {
		shipment.UpdatedAt = shipment.CreatedAt
	}

	_, err = d.q(ctx).ExecContext(ctx, `
		INSERT INTO noble.shipments (
			shipment_id, code, request_id, offer_id, negotiation_id, owner_id, forwarder_id,
			status, escrow_status, total_amount_cents, platform_fee_cents, net_amount_cents,
			refunded_amount_cents, participants, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`,
		shipment.ShipmentID, shipment.Code, shipment.RequestID,
		nullString(shipment.OfferID), nullString(shipment.NegotiationID),
		shipment.OwnerID, shipment.ForwarderID, shipment.Status, shipment.EscrowStatus,
		shipment.TotalAmountCents, shipment.PlatformFeeCents, shipment.NetAmountCents,
		shipment.RefundedAmountCents, participants, shipment.CreatedAt, shipment.UpdatedAt,
	)
	if err != nil {
		return mapError(err, "", "failed to create shipment")
	}
	return nil
}

func (d Datasource) GetShipment(ctx context.Context, id string) (*model.Shipment, error) {
	return d.getShipment(ctx, "shipment_id", id, "")
}

// GetShipmentForUpdate row-locks the shipment until the surrounding transaction ends.
func (d Datasource) GetShipmentForUpdate(ctx context.Context, id string) (*model.Shipment, error) {
	return d.getShipment(ctx, "shipment_id", id, "FOR UPDATE")
}

func (d Datasource) GetShipmentByProposal(ctx context.Context, kind model.ProposalKind, proposalID string) (*model.Shipment, error) {
	return d.getShipment(ctx, kind.IDColumn(), proposalID, "")
}

func (d Datasource) getShipment(ctx context.Context, column, value, lock string) (*model.Shipment, error) {
	row := d.q(ctx).QueryRowContext(ctx, fmt.Sprintf(`
		SELECT %s
		FROM noble.shipments
		WHERE %s = $1
		%s
	`, shipmentColumns, column, lock), value)

	shipment, err := scanShipment(row)
	if err != nil {
		return nil, mapError(err, fmt.Sprintf("shipment with %s '%s' not found", column, value), "failed to retrieve shipment")
	}
	return shipment, nil
}

// UpdateShipmentState writes the cached escrow fields. Callers append the
// matching ledger entry in the same transaction and stamp UpdatedAt; a zero
// UpdatedAt falls back to the database clock.
func (d Datasource) UpdateShipmentState(ctx context.Context, shipment *model.Shipment) error {
	if shipment.UpdatedAt.IsZero() {
		shipment.UpdatedAt = time.Now().UTC()
	}
	result, err := d.q(ctx).ExecContext(ctx, `
		UPDATE noble.shipments
		SET status = $1, escrow_status = $2, refunded_amount_cents = $3, dispute_reason = $4, updated_at = $5
		WHERE shipment_id = $6
	`, shipment.Status, shipment.EscrowStatus, shipment.RefundedAmountCents,
		nullString(shipment.DisputeReason), shipment.UpdatedAt, shipment.ShipmentID)
	if err != nil {
		return mapError(err, "", "failed to update shipment")
	}
	return requireAffected(result, fmt.Sprintf("shipment with ID '%s' not found", shipment.ShipmentID))
}

func (d Datasource) SetLabelHMAC(ctx context.Context, id string, digest string) error {
	result, err := d.q(ctx).ExecContext(ctx, `
		UPDATE noble.shipments SET label_hmac = $1, updated_at = NOW() WHERE shipment_id = $2
	`, digest, id)
	if err != nil {
		return mapError(err, "", "failed to store label")
	}
	return requireAffected(result, fmt.Sprintf("shipment with ID '%s' not found", id))
}

func (d Datasource) GetShipmentIDs(ctx context.Context, afterID string, limit int) ([]string, error) {
	rows, err := d.q(ctx).QueryContext(ctx, `
		SELECT shipment_id
		FROM noble.shipments
		WHERE shipment_id > $1
		ORDER BY shipment_id
		LIMIT $2
	`, afterID, limit)
	if err != nil {
		return nil, mapError(err, "", "failed to list shipments")
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, mapError(err, "", "failed to scan shipment id")
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err, "", "error occurred while iterating over shipments")
	}
	return ids, nil
}

func scanShipment(row rowScanner) (*model.Shipment, error) {
	shipment := model.Shipment{}
	var offerID, negotiationID, labelHMAC, disputeReason sql.NullString
	var participants []byte

	err := row.Scan(
		&shipment.ShipmentID, &shipment.Code, &shipment.RequestID, &offerID, &negotiationID,
		&shipment.OwnerID, &shipment.ForwarderID, &shipment.Status, &shipment.EscrowStatus,
		&shipment.TotalAmountCents, &shipment.PlatformFeeCents, &shipment.NetAmountCents,
		&shipment.RefundedAmountCents, &participants, &labelHMAC, &disputeReason,
		&shipment.CreatedAt, &shipment.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	shipment.OfferID = offerID.String
	shipment.NegotiationID = negotiationID.String
	shipment.LabelHMAC = labelHMAC.String
	shipment.DisputeReason = disputeReason.String
	if len(participants) > 0 {
		if err := json.Unmarshal(participants, &shipment.Participants); err != nil {
			return nil, err
		}
	}
	return &shipment, nil
}
