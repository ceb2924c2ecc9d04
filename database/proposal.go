package database

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/lib/pq"
	"github.com/nobleverse/noble/internal/apierror"
	"github.com/nobleverse/noble/model"
)

func (d Datasource) GetRequest(ctx context.Context, requestID string) (*model.Request, error) {
	return d.getRequest(ctx, requestID, "")
}

// LockRequestForUpdate row-locks the request until the surrounding transaction
// ends. Concurrent acceptances of proposals on the same request queue up here.
func (d Datasource) LockRequestForUpdate(ctx context.Context, requestID string) (*model.Request, error) {
	return d.getRequest(ctx, requestID, "FOR UPDATE")
}

func (d Datasource) getRequest(ctx context.Context, requestID, lock string) (*model.Request, error) {
	request := model.Request{}
	row := d.q(ctx).QueryRowContext(ctx, `
		SELECT request_id, owner_id, status, created_at
		FROM noble.requests
		WHERE request_id = $1
	`+lock, requestID)

	err := row.Scan(&request.RequestID, &request.OwnerID, &request.Status, &request.CreatedAt)
	if err != nil {
		return nil, mapError(err, fmt.Sprintf("request with ID '%s' not found", requestID), "failed to retrieve request")
	}
	return &request, nil
}

func (d Datasource) GetProposal(ctx context.Context, kind model.ProposalKind, id string) (*model.Proposal, error) {
	row := d.q(ctx).QueryRowContext(ctx, fmt.Sprintf(`
		SELECT %[1]s, request_id, forwarder_id, status, details, created_at
		FROM %[2]s
		WHERE %[1]s = $1
	`, kind.IDColumn(), kind.Table()), id)

	proposal, err := scanProposal(row, kind)
	if err != nil {
		return nil, mapError(err, fmt.Sprintf("%s with ID '%s' not found", kind, id), "failed to retrieve "+string(kind))
	}
	return proposal, nil
}

// FindAcceptedProposal looks across offers and negotiations. It returns nil
// when no proposal of the request has been accepted.
func (d Datasource) FindAcceptedProposal(ctx context.Context, requestID string) (*model.Proposal, error) {
	rows, err := d.q(ctx).QueryContext(ctx, `
		SELECT 'offer', offer_id, request_id, forwarder_id, status, details, created_at
		FROM noble.offers
		WHERE request_id = $1 AND status = 'accepted'
		UNION ALL
		SELECT 'negotiation', negotiation_id, request_id, forwarder_id, status, details, created_at
		FROM noble.negotiations
		WHERE request_id = $1 AND status = 'accepted'
		LIMIT 1
	`, requestID)
	if err != nil {
		return nil, mapError(err, "", "failed to look up accepted proposals")
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, mapError(err, "", "failed to look up accepted proposals")
		}
		return nil, nil
	}

	var kind string
	var details []byte
	proposal := model.Proposal{}
	err = rows.Scan(&kind, &proposal.ID, &proposal.RequestID, &proposal.ForwarderID, &proposal.Status, &details, &proposal.CreatedAt)
	if err != nil {
		return nil, mapError(err, "", "failed to scan accepted proposal")
	}
	proposal.Kind = model.ProposalKind(kind)
	if proposal.Details, err = decodeDetails(details); err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "failed to unmarshal proposal details", err)
	}
	return &proposal, nil
}

func (d Datasource) UpdateProposalStatus(ctx context.Context, kind model.ProposalKind, id string, status string) error {
	result, err := d.q(ctx).ExecContext(ctx, fmt.Sprintf(`
		UPDATE %s SET status = $1 WHERE %s = $2
	`, kind.Table(), kind.IDColumn()), status, id)
	if err != nil {
		return mapError(err, "", "failed to update "+string(kind))
	}
	return requireAffected(result, fmt.Sprintf("%s with ID '%s' not found", kind, id))
}

func (d Datasource) UpdateRequestStatus(ctx context.Context, requestID string, status string) error {
	result, err := d.q(ctx).ExecContext(ctx, `
		UPDATE noble.requests SET status = $1 WHERE request_id = $2
	`, status, requestID)
	if err != nil {
		return mapError(err, "", "failed to update request")
	}
	return requireAffected(result, fmt.Sprintf("request with ID '%s' not found", requestID))
}

// RejectOpenProposals rejects every proposal of kind on the request that is
// still in one of the kind's open statuses, except exceptID.
func (d Datasource) RejectOpenProposals(ctx context.Context, kind model.ProposalKind, requestID, exceptID string) (int64, error) {
	result, err := d.q(ctx).ExecContext(ctx, fmt.Sprintf(`
		UPDATE %s SET status = 'rejected'
		WHERE request_id = $1 AND %s <> $2 AND status = ANY($3)
	`, kind.Table(), kind.IDColumn()), requestID, exceptID, pq.Array(kind.OpenStatuses()))
	if err != nil {
		return 0, mapError(err, "", "failed to reject sibling "+string(kind)+"s")
	}
	return result.RowsAffected()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanProposal(row rowScanner, kind model.ProposalKind) (*model.Proposal, error) {
	proposal := model.Proposal{Kind: kind}
	var details []byte
	err := row.Scan(&proposal.ID, &proposal.RequestID, &proposal.ForwarderID, &proposal.Status, &details, &proposal.CreatedAt)
	if err != nil {
		return nil, err
	}
	proposal.Details, err = decodeDetails(details)
	if err != nil {
		return nil, err
	}
	return &proposal, nil
}

// decodeDetails keeps numbers as json.Number so prices are never routed through float64.
func decodeDetails(raw []byte) (map[string]interface{}, error) {
	details := map[string]interface{}{}
	if len(raw) == 0 {
		return details, nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&details); err != nil {
		return nil, err
	}
	return details, nil
}

func requireAffected(result interface{ RowsAffected() (int64, error) }, notFound string) error {
	n, err := result.RowsAffected()
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "failed to read affected rows", err)
	}
	if n == 0 {
		return apierror.NewAPIError(apierror.ErrNotFound, notFound, nil)
	}
	return nil
}
