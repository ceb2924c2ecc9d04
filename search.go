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

	"github.com/nobleverse/noble/internal/apierror"
	"github.com/nobleverse/noble/internal/search"
	"github.com/sirupsen/logrus"
)

// SearchShipments runs a full-text query over the shipments the caller takes part in.
func (n *Noble) SearchShipments(ctx context.Context, query, callerID string, page, perPage int) (*search.SearchResult, error) {
	ctx, span := tracer.Start(ctx, "SearchShipments")
	defer span.End()

	if callerID == "" {
		return nil, apierror.NewAPIError(apierror.ErrUnauthorized, "", nil)
	}
	if n.search == nil {
		return nil, apierror.NewAPIError(apierror.ErrNotFound, "search is not configured", nil)
	}
	if query == "" {
		query = "*"
	}
	result, err := n.search.SearchShipments(ctx, query, callerID, page, perPage)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "search failed", err)
	}
	return result, nil
}

// ReindexShipments rebuilds the search collection from the database.
func (n *Noble) ReindexShipments(ctx context.Context, pageSize int) (int, error) {
	if n.search == nil {
		return 0, nil
	}
	if err := n.search.EnsureCollectionsExist(ctx); err != nil {
		return 0, err
	}
	if pageSize <= 0 {
		pageSize = DefaultReconcilePageSize
	}

	indexed := 0
	afterID := ""
	for {
		ids, err := n.datasource.GetShipmentIDs(ctx, afterID, pageSize)
		if err != nil {
			return indexed, err
		}
		for _, id := range ids {
			shipment, err := n.datasource.GetShipment(ctx, id)
			if err != nil {
				return indexed, err
			}
			if err := n.search.IndexShipment(ctx, shipment); err != nil {
				logrus.WithField("shipment_id", id).Error(err)
				continue
			}
			indexed++
		}
		if len(ids) < pageSize {
			break
		}
		afterID = ids[len(ids)-1]
	}
	return indexed, nil
}
