package database

import (
	"context"
	"time"

	"github.com/nobleverse/noble/model"
)

func (d Datasource) CreateShareToken(ctx context.Context, token *model.ShareToken) error {
	if token.CreatedAt.IsZero() {
		token.CreatedAt = time.Now().UTC()
	}
	_, err := d.q(ctx).ExecContext(ctx, `
		INSERT INTO noble.shipment_share_tokens (token_id, shipment_id, token_hash, created_by, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, token.TokenID, token.ShipmentID, token.TokenHash, token.CreatedBy, token.ExpiresAt, token.CreatedAt)
	if err != nil {
		return mapError(err, "", "failed to create share token")
	}
	return nil
}

// GetShareTokenByHash returns the token row even when it has expired; callers
// decide on expiry.
func (d Datasource) GetShareTokenByHash(ctx context.Context, hash string) (*model.ShareToken, error) {
	token := model.ShareToken{}
	row := d.q(ctx).QueryRowContext(ctx, `
		SELECT token_id, shipment_id, token_hash, created_by, expires_at, created_at
		FROM noble.shipment_share_tokens
		WHERE token_hash = $1
	`, hash)

	err := row.Scan(&token.TokenID, &token.ShipmentID, &token.TokenHash, &token.CreatedBy, &token.ExpiresAt, &token.CreatedAt)
	if err != nil {
		return nil, mapError(err, "share link not found", "failed to retrieve share token")
	}
	return &token, nil
}
