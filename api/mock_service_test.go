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

package api

import (
	"context"
	"time"

	"github.com/nobleverse/noble/internal/search"
	"github.com/nobleverse/noble/model"
	"github.com/stretchr/testify/mock"
)

type mockService struct {
	mock.Mock
}

func (m *mockService) AcceptOffer(ctx context.Context, offerID, callerID string) (*model.AcceptResult, error) {
	args := m.Called(ctx, offerID, callerID)
	res, _ := args.Get(0).(*model.AcceptResult)
	return res, args.Error(1)
}

func (m *mockService) AcceptNegotiation(ctx context.Context, negotiationID, callerID string) (*model.AcceptResult, error) {
	args := m.Called(ctx, negotiationID, callerID)
	res, _ := args.Get(0).(*model.AcceptResult)
	return res, args.Error(1)
}

func (m *mockService) Release(ctx context.Context, shipmentID, callerID string) (*model.EscrowResult, error) {
	args := m.Called(ctx, shipmentID, callerID)
	res, _ := args.Get(0).(*model.EscrowResult)
	return res, args.Error(1)
}

func (m *mockService) Refund(ctx context.Context, shipmentID, callerID string) (*model.EscrowResult, error) {
	args := m.Called(ctx, shipmentID, callerID)
	res, _ := args.Get(0).(*model.EscrowResult)
	return res, args.Error(1)
}

func (m *mockService) PartialRefund(ctx context.Context, shipmentID, callerID string, amountCents int64) (*model.EscrowResult, error) {
	args := m.Called(ctx, shipmentID, callerID, amountCents)
	res, _ := args.Get(0).(*model.EscrowResult)
	return res, args.Error(1)
}

func (m *mockService) Dispute(ctx context.Context, shipmentID, callerID, reason string) (*model.EscrowResult, error) {
	args := m.Called(ctx, shipmentID, callerID, reason)
	res, _ := args.Get(0).(*model.EscrowResult)
	return res, args.Error(1)
}

func (m *mockService) IssueLabel(ctx context.Context, shipmentID, callerID string) (*model.LabelResult, error) {
	args := m.Called(ctx, shipmentID, callerID)
	res, _ := args.Get(0).(*model.LabelResult)
	return res, args.Error(1)
}

func (m *mockService) Scan(ctx context.Context, shipmentID, token string, meta map[string]interface{}) (*model.TrackingEvent, error) {
	args := m.Called(ctx, shipmentID, token, meta)
	res, _ := args.Get(0).(*model.TrackingEvent)
	return res, args.Error(1)
}

func (m *mockService) IngestTracking(ctx context.Context, ping model.TrackingPing) (string, error) {
	args := m.Called(ctx, ping)
	return args.String(0), args.Error(1)
}

func (m *mockService) AddTrackingSource(ctx context.Context, shipmentID, callerID string, kind model.SourceKind, provider string) (*model.TrackingSourceResult, error) {
	args := m.Called(ctx, shipmentID, callerID, kind, provider)
	res, _ := args.Get(0).(*model.TrackingSourceResult)
	return res, args.Error(1)
}

func (m *mockService) ListTrackingEvents(ctx context.Context, shipmentID, callerID string, limit int) ([]model.TrackingEvent, error) {
	args := m.Called(ctx, shipmentID, callerID, limit)
	res, _ := args.Get(0).([]model.TrackingEvent)
	return res, args.Error(1)
}

func (m *mockService) CreateShareToken(ctx context.Context, shipmentID, callerID string, ttl time.Duration) (*model.ShareResult, error) {
	args := m.Called(ctx, shipmentID, callerID, ttl)
	res, _ := args.Get(0).(*model.ShareResult)
	return res, args.Error(1)
}

func (m *mockService) GetSharedShipment(ctx context.Context, raw string) (*model.PublicShipment, error) {
	args := m.Called(ctx, raw)
	res, _ := args.Get(0).(*model.PublicShipment)
	return res, args.Error(1)
}

func (m *mockService) GetShipment(ctx context.Context, shipmentID, callerID string) (*model.Shipment, error) {
	args := m.Called(ctx, shipmentID, callerID)
	res, _ := args.Get(0).(*model.Shipment)
	return res, args.Error(1)
}

func (m *mockService) GetShipmentLedger(ctx context.Context, shipmentID, callerID string) (*model.LedgerReport, error) {
	args := m.Called(ctx, shipmentID, callerID)
	res, _ := args.Get(0).(*model.LedgerReport)
	return res, args.Error(1)
}

func (m *mockService) SearchShipments(ctx context.Context, query, callerID string, page, perPage int) (*search.SearchResult, error) {
	args := m.Called(ctx, query, callerID, page, perPage)
	res, _ := args.Get(0).(*search.SearchResult)
	return res, args.Error(1)
}
