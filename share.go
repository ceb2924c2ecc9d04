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
	"strings"
	"time"

	"github.com/nobleverse/noble/internal/apierror"
	"github.com/nobleverse/noble/internal/cache"
	"github.com/nobleverse/noble/model"
	"github.com/sirupsen/logrus"
)

const (
	shareCacheTTL      = 30 * time.Second
	shareTrackingLimit = 20
)

func shareCacheKey(hash string) string {
	return "noble:share:" + hash
}

// CreateShareToken issues a read-only link to a shipment. A zero ttl uses the
// configured default; anything longer than the maximum is capped.
func (n *Noble) CreateShareToken(ctx context.Context, shipmentID, callerID string, ttl time.Duration) (*model.ShareResult, error) {
	ctx, span := tracer.Start(ctx, "CreateShareToken")
	defer span.End()

	if ttl < 0 {
		return nil, apierror.NewAPIError(apierror.ErrInvalidPayload, "ttl must not be negative", nil)
	}
	if _, err := n.participantShipment(ctx, shipmentID, callerID); err != nil {
		return nil, err
	}

	if ttl == 0 {
		ttl = n.config.ShareTTL()
	}
	if ttl > model.MaxShareTTL {
		ttl = model.MaxShareTTL
	}

	raw, err := model.GenerateToken()
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "could not generate share token", err)
	}
	now := n.clock()
	token := &model.ShareToken{
		TokenID:    model.GenerateUUIDWithSuffix("shr"),
		ShipmentID: shipmentID,
		TokenHash:  model.HashToken(raw),
		CreatedBy:  callerID,
		ExpiresAt:  now.Add(ttl),
		CreatedAt:  now,
	}
	if err := n.datasource.CreateShareToken(ctx, token); err != nil {
		return nil, err
	}

	return &model.ShareResult{
		Token:     raw,
		ExpiresAt: token.ExpiresAt,
		URL:       strings.TrimRight(n.config.Server.PublicURL, "/") + "/share/" + raw,
	}, nil
}

// GetSharedShipment resolves a share token to the public view of its shipment.
// Unknown and expired tokens are both NOT_FOUND.
func (n *Noble) GetSharedShipment(ctx context.Context, raw string) (*model.PublicShipment, error) {
	ctx, span := tracer.Start(ctx, "GetSharedShipment")
	defer span.End()

	notFound := apierror.NewAPIError(apierror.ErrNotFound, "share link not found or expired", nil)
	if raw == "" {
		return nil, notFound
	}
	hash := model.HashToken(raw)
	now := n.clock()

	if n.cache != nil {
		var view model.PublicShipment
		err := n.cache.Get(ctx, shareCacheKey(hash), &view)
		if err == nil && now.Before(view.ExpiresAt) {
			return &view, nil
		}
		if err != nil && !errors.Is(err, cache.ErrMiss) {
			logrus.WithError(err).Warn("share cache read failed")
		}
	}

	token, err := n.datasource.GetShareTokenByHash(ctx, hash)
	if err != nil {
		if apierror.HasCode(err, apierror.ErrNotFound) {
			return nil, notFound
		}
		return nil, err
	}
	if token.Expired(now) {
		return nil, notFound
	}

	shipment, err := n.datasource.GetShipment(ctx, token.ShipmentID)
	if err != nil {
		return nil, err
	}
	events, err := n.datasource.GetTrackingEvents(ctx, shipment.ShipmentID, shareTrackingLimit)
	if err != nil {
		return nil, err
	}
	view := shipment.PublicView(events, token.ExpiresAt)

	if n.cache != nil {
		ttl := shareCacheTTL
		if remaining := token.ExpiresAt.Sub(now); remaining < ttl {
			ttl = remaining
		}
		if err := n.cache.Set(ctx, shareCacheKey(hash), view, ttl); err != nil {
			logrus.WithError(err).Warn("share cache write failed")
		}
	}
	return &view, nil
}
