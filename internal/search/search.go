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

package search

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/nobleverse/noble/model"
	"github.com/sirupsen/logrus"
	"github.com/typesense/typesense-go/typesense"
	"github.com/typesense/typesense-go/typesense/api"
)

const CollectionShipments = "shipments"

// DefaultPerPage caps a search page when the caller does not ask for a size.
const DefaultPerPage = 20

type TypesenseClient struct {
	Client *typesense.Client
}

// ShipmentDocument is what gets indexed for a shipment. Money fields stay out
// except the total, which participants can see anyway.
type ShipmentDocument struct {
	ID               string   `json:"id"`
	ShipmentID       string   `json:"shipment_id"`
	Code             string   `json:"code"`
	RequestID        string   `json:"request_id"`
	OwnerID          string   `json:"owner_id"`
	ForwarderID      string   `json:"forwarder_id"`
	Participants     []string `json:"participants"`
	Status           string   `json:"status"`
	EscrowStatus     string   `json:"escrow_status"`
	TotalAmountCents int64    `json:"total_amount_cents"`
	CreatedAt        int64    `json:"created_at"`
	UpdatedAt        int64    `json:"updated_at"`
}

type SearchResult struct {
	Found int                `json:"found"`
	Page  int                `json:"page"`
	Hits  []ShipmentDocument `json:"hits"`
}

func NewTypesenseClient(apiKey string, hosts []string) *TypesenseClient {
	client := typesense.NewClient(
		typesense.WithServer(hosts[0]),
		typesense.WithAPIKey(apiKey),
		typesense.WithConnectionTimeout(5*time.Second),
		typesense.WithCircuitBreakerMaxRequests(50),
		typesense.WithCircuitBreakerInterval(2*time.Minute),
		typesense.WithCircuitBreakerTimeout(1*time.Minute),
	)
	return &TypesenseClient{Client: client}
}

// EnsureCollectionsExist creates the shipments collection unless it exists.
func (t *TypesenseClient) EnsureCollectionsExist(ctx context.Context) error {
	if _, err := t.CreateCollection(ctx, getShipmentSchema()); err != nil {
		return fmt.Errorf("failed to create collection %s: %w", CollectionShipments, err)
	}
	return nil
}

func (t *TypesenseClient) CreateCollection(ctx context.Context, schema *api.CollectionSchema) (*api.CollectionResponse, error) {
	resp, err := t.Client.Collections().Create(ctx, schema)
	if err != nil {
		if strings.Contains(err.Error(), "already exists") {
			return nil, nil
		}
		return nil, err
	}
	return resp, nil
}

func NewShipmentDocument(s *model.Shipment) ShipmentDocument {
	participants := s.Participants
	if len(participants) == 0 {
		participants = []string{s.OwnerID, s.ForwarderID}
	}
	return ShipmentDocument{
		ID:               s.ShipmentID,
		ShipmentID:       s.ShipmentID,
		Code:             s.Code,
		RequestID:        s.RequestID,
		OwnerID:          s.OwnerID,
		ForwarderID:      s.ForwarderID,
		Participants:     participants,
		Status:           s.Status,
		EscrowStatus:     s.EscrowStatus,
		TotalAmountCents: s.TotalAmountCents,
		CreatedAt:        s.CreatedAt.Unix(),
		UpdatedAt:        s.UpdatedAt.Unix(),
	}
}

// IndexShipment upserts the shipment's document.
func (t *TypesenseClient) IndexShipment(ctx context.Context, s *model.Shipment) error {
	doc := NewShipmentDocument(s)
	_, err := t.Client.Collection(CollectionShipments).Documents().Upsert(ctx, doc)
	if err != nil {
		return fmt.Errorf("failed to upsert document in Typesense: %w", err)
	}
	logrus.WithField("shipment_id", s.ShipmentID).Debug("shipment indexed")
	return nil
}

// SearchShipments runs a free-text query restricted to shipments the caller
// takes part in.
func (t *TypesenseClient) SearchShipments(ctx context.Context, query, callerID string, page, perPage int) (*SearchResult, error) {
	params, err := shipmentSearchParams(query, callerID, page, perPage)
	if err != nil {
		return nil, err
	}

	resp, err := t.Client.Collection(CollectionShipments).Documents().Search(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("failed to search shipments: %w", err)
	}
	return decodeSearchResult(resp)
}

// shipmentSearchParams goes through JSON so the request mirrors the
// documented Typesense query parameters one to one.
func shipmentSearchParams(query, callerID string, page, perPage int) (*api.SearchCollectionParams, error) {
	if strings.TrimSpace(query) == "" {
		query = "*"
	}
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = DefaultPerPage
	}

	raw, err := json.Marshal(map[string]interface{}{
		"q":         query,
		"query_by":  "code,shipment_id,request_id,status,escrow_status",
		"filter_by": ParticipantFilter(callerID),
		"sort_by":   "created_at:desc",
		"page":      page,
		"per_page":  perPage,
	})
	if err != nil {
		return nil, err
	}
	params := &api.SearchCollectionParams{}
	if err := json.Unmarshal(raw, params); err != nil {
		return nil, err
	}
	return params, nil
}

// ParticipantFilter restricts results to documents listing callerID.
func ParticipantFilter(callerID string) string {
	return fmt.Sprintf("participants:=`%s`", strings.ReplaceAll(callerID, "`", ""))
}

func decodeSearchResult(resp *api.SearchResult) (*SearchResult, error) {
	raw, err := json.Marshal(resp)
	if err != nil {
		return nil, err
	}
	var envelope struct {
		Found int `json:"found"`
		Page  int `json:"page"`
		Hits  []struct {
			Document ShipmentDocument `json:"document"`
		} `json:"hits"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, err
	}

	result := &SearchResult{Found: envelope.Found, Page: envelope.Page, Hits: make([]ShipmentDocument, 0, len(envelope.Hits))}
	for _, hit := range envelope.Hits {
		result.Hits = append(result.Hits, hit.Document)
	}
	return result, nil
}

func getShipmentSchema() *api.CollectionSchema {
	facet := true
	sortBy := "created_at"
	return &api.CollectionSchema{
		Name: CollectionShipments,
		Fields: []api.Field{
			{Name: "shipment_id", Type: "string"},
			{Name: "code", Type: "string"},
			{Name: "request_id", Type: "string"},
			{Name: "owner_id", Type: "string", Facet: &facet},
			{Name: "forwarder_id", Type: "string", Facet: &facet},
			{Name: "participants", Type: "string[]", Facet: &facet},
			{Name: "status", Type: "string", Facet: &facet},
			{Name: "escrow_status", Type: "string", Facet: &facet},
			{Name: "total_amount_cents", Type: "int64"},
			{Name: "created_at", Type: "int64"},
			{Name: "updated_at", Type: "int64"},
		},
		DefaultSortingField: &sortBy,
	}
}
