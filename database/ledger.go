package database

import (
	"context"
	"encoding/json"

	"github.com/nobleverse/noble/internal/apierror"
	"github.com/nobleverse/noble/model"
)

// InsertLedgerEntry appends an entry to the escrow ledger. It reports false,
// without error, when an entry with the same idempotency key already exists
// for the shipment.
func (d Datasource) InsertLedgerEntry(ctx context.Context, entry model.LedgerEntry) (bool, error) {
	if !entry.EntryType.Valid() {
		return false, apierror.NewAPIError(apierror.ErrInvalid, "unknown ledger entry type "+string(entry.EntryType), nil)
	}
	if entry.AmountCents < 0 {
		return false, apierror.NewAPIError(apierror.ErrInvalidAmount, "ledger amounts are never negative", nil)
	}

	meta, err := json.Marshal(entry.Meta)
	if err != nil {
		return false, apierror.NewAPIError(apierror.ErrInternalServer, "failed to marshal ledger meta", err)
	}

	result, err := d.q(ctx).ExecContext(ctx, `
		INSERT INTO noble.escrow_ledger (entry_id, shipment_id, entry_type, amount_cents, meta, idempotency_key, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (shipment_id, idempotency_key) DO NOTHING
	`, entry.EntryID, entry.ShipmentID, string(entry.EntryType), entry.AmountCents, meta, entry.IdempotencyKey, entry.CreatedAt)
	if err != nil {
		return false, mapError(err, "", "failed to insert ledger entry")
	}

	n, err := result.RowsAffected()
	if err != nil {
		return false, apierror.NewAPIError(apierror.ErrInternalServer, "failed to read affected rows", err)
	}
	return n > 0, nil
}

func (d Datasource) GetLedgerEntries(ctx context.Context, shipmentID string) ([]model.LedgerEntry, error) {
	rows, err := d.q(ctx).QueryContext(ctx, `
		SELECT entry_id, shipment_id, entry_type, amount_cents, meta, idempotency_key, created_at
		FROM noble.escrow_ledger
		WHERE shipment_id = $1
		ORDER BY created_at, id
	`, shipmentID)
	if err != nil {
		return nil, mapError(err, "", "failed to retrieve ledger entries")
	}
	defer rows.Close()

	entries := []model.LedgerEntry{}
	for rows.Next() {
		entry := model.LedgerEntry{}
		var entryType string
		var meta []byte
		err = rows.Scan(&entry.EntryID, &entry.ShipmentID, &entryType, &entry.AmountCents, &meta, &entry.IdempotencyKey, &entry.CreatedAt)
		if err != nil {
			return nil, apierror.NewAPIError(apierror.ErrInternalServer, "failed to scan ledger entry", err)
		}
		entry.EntryType = model.EntryType(entryType)

		if len(meta) > 0 {
			if err = json.Unmarshal(meta, &entry.Meta); err != nil {
				return nil, apierror.NewAPIError(apierror.ErrInternalServer, "failed to unmarshal ledger meta", err)
			}
		}
		entries = append(entries, entry)
	}

	if err = rows.Err(); err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "error occurred while iterating over ledger entries", err)
	}
	return entries, nil
}
