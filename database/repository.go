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

package database

import (
	"context"

	"github.com/nobleverse/noble/model"
)

// IDataSource defines the interface for data source operations, grouping related functionalities.
type IDataSource interface {
	transactor   // Interface for running work in one database transaction
	proposal     // Interface for requests, offers and negotiations
	shipment     // Interface for shipment-related operations
	escrowLedger // Interface for the append-only escrow ledger
	shareToken   // Interface for public share tokens
	tracking     // Interface for tracking sources and events
	notification // Interface for forwarder notifications
	chat         // Interface for shipment chat rooms
}

type transactor interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// proposal defines methods for handling requests and the proposals made against them.
type proposal interface {
	GetRequest(ctx context.Context, requestID string) (*model.Request, error)                               // Retrieves a request by ID
	LockRequestForUpdate(ctx context.Context, requestID string) (*model.Request, error)                     // Retrieves a request and row-locks it
	GetProposal(ctx context.Context, kind model.ProposalKind, id string) (*model.Proposal, error)           // Retrieves an offer or negotiation
	FindAcceptedProposal(ctx context.Context, requestID string) (*model.Proposal, error)                    // Finds the accepted proposal of a request, if any
	UpdateProposalStatus(ctx context.Context, kind model.ProposalKind, id string, status string) error      // Updates the status of an offer or negotiation
	UpdateRequestStatus(ctx context.Context, requestID string, status string) error                         // Updates the status of a request
	RejectOpenProposals(ctx context.Context, kind model.ProposalKind, requestID, exceptID string) (int64, error) // Rejects the still-open siblings of an accepted proposal
}

// shipment defines methods for handling shipments.
type shipment interface {
	CreateShipment(ctx context.Context, shipment *model.Shipment) error                                         // Records a new shipment
	GetShipment(ctx context.Context, id string) (*model.Shipment, error)                                        // Retrieves a shipment by ID
	GetShipmentForUpdate(ctx context.Context, id string) (*model.Shipment, error)                               // Retrieves a shipment and row-locks it
	GetShipmentByProposal(ctx context.Context, kind model.ProposalKind, proposalID string) (*model.Shipment, error) // Retrieves the shipment created from a proposal
	UpdateShipmentState(ctx context.Context, shipment *model.Shipment) error                                    // Persists status, escrow status, refunds and dispute reason
	SetLabelHMAC(ctx context.Context, id string, digest string) error                                           // Stores the digest of the current label token
	GetShipmentIDs(ctx context.Context, afterID string, limit int) ([]string, error)                            // Pages shipment IDs in ID order
}

// escrowLedger defines methods for the escrow ledger.
type escrowLedger interface {
	InsertLedgerEntry(ctx context.Context, entry model.LedgerEntry) (bool, error)          // Appends an entry unless its idempotency key exists
	GetLedgerEntries(ctx context.Context, shipmentID string) ([]model.LedgerEntry, error) // Retrieves entries in insertion order
}

type shareToken interface {
	CreateShareToken(ctx context.Context, token *model.ShareToken) error
	GetShareTokenByHash(ctx context.Context, hash string) (*model.ShareToken, error)
}

type tracking interface {
	CreateTrackingSource(ctx context.Context, source *model.TrackingSource) error
	IngestTrackingEvent(ctx context.Context, ping model.TrackingPing) (string, error)
	RecordTrackingEvent(ctx context.Context, event *model.TrackingEvent) error
	GetTrackingEvents(ctx context.Context, shipmentID string, limit int) ([]model.TrackingEvent, error)
}

type notification interface {
	CreateNotification(ctx context.Context, notification *model.Notification) (bool, error)
}

type chat interface {
	CreateChatRoom(ctx context.Context, room *model.ChatRoom, seed *model.ChatMessage) (bool, error)
}
