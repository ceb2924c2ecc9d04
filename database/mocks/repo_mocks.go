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
package mocks

import (
	"context"

	"github.com/nobleverse/noble/database"
	"github.com/nobleverse/noble/model"
	"github.com/stretchr/testify/mock"
)

var _ database.IDataSource = (*MockDataSource)(nil)

// MockDataSource is a mock implementation of the IDataSource interface
type MockDataSource struct {
	mock.Mock
}

// RunInTx runs fn directly. Tests observe the transaction through the calls
// fn makes; a failing fn is returned as-is, which is what a rollback reports.
func (m *MockDataSource) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// Proposal methods

func (m *MockDataSource) GetRequest(ctx context.Context, requestID string) (*model.Request, error) {
	args := m.Called(ctx, requestID)
	request, _ := args.Get(0).(*model.Request)
	return request, args.Error(1)
}

func (m *MockDataSource) LockRequestForUpdate(ctx context.Context, requestID string) (*model.Request, error) {
	args := m.Called(ctx, requestID)
	request, _ := args.Get(0).(*model.Request)
	return request, args.Error(1)
}

func (m *MockDataSource) GetProposal(ctx context.Context, kind model.ProposalKind, id string) (*model.Proposal, error) {
	args := m.Called(ctx, kind, id)
	proposal, _ := args.Get(0).(*model.Proposal)
	return proposal, args.Error(1)
}

func (m *MockDataSource) FindAcceptedProposal(ctx context.Context, requestID string) (*model.Proposal, error) {
	args := m.Called(ctx, requestID)
	proposal, _ := args.Get(0).(*model.Proposal)
	return proposal, args.Error(1)
}

func (m *MockDataSource) UpdateProposalStatus(ctx context.Context, kind model.ProposalKind, id string, status string) error {
	args := m.Called(ctx, kind, id, status)
	return args.Error(0)
}

func (m *MockDataSource) UpdateRequestStatus(ctx context.Context, requestID string, status string) error {
	args := m.Called(ctx, requestID, status)
	return args.Error(0)
}

func (m *MockDataSource) RejectOpenProposals(ctx context.Context, kind model.ProposalKind, requestID, exceptID string) (int64, error) {
	args := m.Called(ctx, kind, requestID, exceptID)
	return args.Get(0).(int64), args.Error(1)
}

// Shipment methods

func (m *MockDataSource) CreateShipment(ctx context.Context, shipment *model.Shipment) error {
	args := m.Called(ctx, shipment)
	return args.Error(0)
}

func (m *MockDataSource) GetShipment(ctx context.Context, id string) (*model.Shipment, error) {
	args := m.Called(ctx, id)
	shipment, _ := args.Get(0).(*model.Shipment)
	return shipment, args.Error(1)
}

func (m *MockDataSource) GetShipmentForUpdate(ctx context.Context, id string) (*model.Shipment, error) {
	args := m.Called(ctx, id)
	shipment, _ := args.Get(0).(*model.Shipment)
	return shipment, args.Error(1)
}

func (m *MockDataSource) GetShipmentByProposal(ctx context.Context, kind model.ProposalKind, proposalID string) (*model.Shipment, error) {
	args := m.Called(ctx, kind, proposalID)
	shipment, _ := args.Get(0).(*model.Shipment)
	return shipment, args.Error(1)
}

func (m *MockDataSource) UpdateShipmentState(ctx context.Context, shipment *model.Shipment) error {
	args := m.Called(ctx, shipment)
	return args.Error(0)
}

func (m *MockDataSource) SetLabelHMAC(ctx context.Context, id string, digest string) error {
	args := m.Called(ctx, id, digest)
	return args.Error(0)
}

func (m *MockDataSource) GetShipmentIDs(ctx context.Context, afterID string, limit int) ([]string, error) {
	args := m.Called(ctx, afterID, limit)
	ids, _ := args.Get(0).([]string)
	return ids, args.Error(1)
}

// Escrow ledger methods

func (m *MockDataSource) InsertLedgerEntry(ctx context.Context, entry model.LedgerEntry) (bool, error) {
	args := m.Called(ctx, entry)
	return args.Bool(0), args.Error(1)
}

func (m *MockDataSource) GetLedgerEntries(ctx context.Context, shipmentID string) ([]model.LedgerEntry, error) {
	args := m.Called(ctx, shipmentID)
	entries, _ := args.Get(0).([]model.LedgerEntry)
	return entries, args.Error(1)
}

// Share token methods

func (m *MockDataSource) CreateShareToken(ctx context.Context, token *model.ShareToken) error {
	args := m.Called(ctx, token)
	return args.Error(0)
}

func (m *MockDataSource) GetShareTokenByHash(ctx context.Context, hash string) (*model.ShareToken, error) {
	args := m.Called(ctx, hash)
	token, _ := args.Get(0).(*model.ShareToken)
	return token, args.Error(1)
}

// Tracking methods

func (m *MockDataSource) CreateTrackingSource(ctx context.Context, source *model.TrackingSource) error {
	args := m.Called(ctx, source)
	return args.Error(0)
}

func (m *MockDataSource) IngestTrackingEvent(ctx context.Context, ping model.TrackingPing) (string, error) {
	args := m.Called(ctx, ping)
	return args.String(0), args.Error(1)
}

func (m *MockDataSource) RecordTrackingEvent(ctx context.Context, event *model.TrackingEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MockDataSource) GetTrackingEvents(ctx context.Context, shipmentID string, limit int) ([]model.TrackingEvent, error) {
	args := m.Called(ctx, shipmentID, limit)
	events, _ := args.Get(0).([]model.TrackingEvent)
	return events, args.Error(1)
}

// Side-effect methods

func (m *MockDataSource) CreateNotification(ctx context.Context, notification *model.Notification) (bool, error) {
	args := m.Called(ctx, notification)
	return args.Bool(0), args.Error(1)
}

func (m *MockDataSource) CreateChatRoom(ctx context.Context, room *model.ChatRoom, seed *model.ChatMessage) (bool, error) {
	args := m.Called(ctx, room, seed)
	return args.Bool(0), args.Error(1)
}
