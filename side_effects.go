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
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/hibiken/asynq"
	"github.com/nobleverse/noble/internal/request"
	"github.com/nobleverse/noble/model"
	"github.com/sirupsen/logrus"
)

const (
	NotificationProposalAccepted = "proposal_accepted"
	WebhookProposalAccepted      = "proposal.accepted"
)

// Webhook is the body posted to the configured outbound webhook.
type Webhook struct {
	Event   string      `json:"event"`
	Payload interface{} `json:"data"`
}

// newWebhookBackOff bounds delivery attempts of one task run; asynq retries
// the task itself after that.
var newWebhookBackOff = func() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxElapsedTime = 30 * time.Second
	return backoff.WithMaxRetries(b, 4)
}

// enqueueAcceptEffects schedules everything that follows a committed accept.
// Failures are logged and never reach the caller.
func (n *Noble) enqueueAcceptEffects(ctx context.Context, s *model.Shipment, kind model.ProposalKind, proposalID, callerID string) {
	if n.queue == nil {
		return
	}
	ctx = context.WithoutCancel(ctx)
	fields := logrus.Fields{"shipment_id": s.ShipmentID, "request_id": s.RequestID}

	if err := n.queue.EnqueueNotifyForwarder(ctx, NotifyForwarderPayload{
		ShipmentID:   s.ShipmentID,
		Code:         s.Code,
		OwnerID:      s.OwnerID,
		ForwarderID:  s.ForwarderID,
		ProposalKind: kind,
		ProposalID:   proposalID,
	}); err != nil {
		logrus.WithFields(fields).WithField("task", TaskNotifyForwarder).Error(err)
	}
	if err := n.queue.EnqueueChatRoom(ctx, s.ShipmentID); err != nil {
		logrus.WithFields(fields).WithField("task", TaskCreateChatRoom).Error(err)
	}

	event := model.NewEvent(model.EventShipmentAccepted, s.ShipmentID, callerID, map[string]interface{}{
		"code":               s.Code,
		"request_id":         s.RequestID,
		kind.MetaKey():       proposalID,
		"total_amount_cents": s.TotalAmountCents,
		"platform_fee_cents": s.PlatformFeeCents,
		"net_amount_cents":   s.NetAmountCents,
	})
	n.enqueueEventAndIndex(ctx, event, "accepted", fields)
}

func (n *Noble) enqueueTransitionEffects(ctx context.Context, s *model.Shipment, t *transition, callerID string) {
	if n.queue == nil {
		return
	}
	ctx = context.WithoutCancel(ctx)
	event := model.NewEvent(t.event, s.ShipmentID, callerID, map[string]interface{}{
		"status":                s.Status,
		"escrow_status":         s.EscrowStatus,
		"entry_type":            t.entry.EntryType,
		"amount_cents":          t.entry.AmountCents,
		"refunded_amount_cents": s.RefundedAmountCents,
	})
	n.enqueueEventAndIndex(ctx, event, t.entry.IdempotencyKey, logrus.Fields{"shipment_id": s.ShipmentID})
}

func (n *Noble) enqueueEventAndIndex(ctx context.Context, event model.Event, key string, fields logrus.Fields) {
	if err := n.queue.EnqueueEvent(ctx, event, key); err != nil {
		logrus.WithFields(fields).WithField("task", TaskPublishEvent).Error(err)
	}
	if err := n.queue.EnqueueIndex(ctx, event.ShipmentID, key); err != nil {
		logrus.WithFields(fields).WithField("task", TaskIndexShipment).Error(err)
	}
}

// RegisterTaskHandlers binds every side-effect task type to its handler.
func (n *Noble) RegisterTaskHandlers(mux *asynq.ServeMux) {
	mux.HandleFunc(TaskNotifyForwarder, n.HandleNotifyForwarder)
	mux.HandleFunc(TaskCreateChatRoom, n.HandleCreateChatRoom)
	mux.HandleFunc(TaskPublishEvent, n.HandlePublishEvent)
	mux.HandleFunc(TaskIndexShipment, n.HandleIndexShipment)
}

func decodePayload(task *asynq.Task, v interface{}) error {
	if err := json.Unmarshal(task.Payload(), v); err != nil {
		return fmt.Errorf("invalid %s payload: %v: %w", task.Type(), err, asynq.SkipRetry)
	}
	return nil
}

// HandleNotifyForwarder records an in-app notification for the forwarder and
// posts the outbound webhook when one is configured.
func (n *Noble) HandleNotifyForwarder(ctx context.Context, task *asynq.Task) error {
	var payload NotifyForwarderPayload
	if err := decodePayload(task, &payload); err != nil {
		return err
	}

	created, err := n.datasource.CreateNotification(ctx, &model.Notification{
		NotificationID: model.GenerateUUIDWithSuffix("ntf"),
		UserID:         payload.ForwarderID,
		Kind:           NotificationProposalAccepted,
		Reference:      payload.ShipmentID,
		Payload: map[string]interface{}{
			"shipment_id":   payload.ShipmentID,
			"code":          payload.Code,
			"proposal_kind": payload.ProposalKind,
			"proposal_id":   payload.ProposalID,
		},
		CreatedAt: n.clock(),
	})
	if err != nil {
		return err
	}
	if !created {
		logrus.WithField("shipment_id", payload.ShipmentID).Debug("forwarder already notified")
	}

	if n.config.Notification.Webhook.Url == "" {
		return nil
	}
	return n.postWebhook(ctx, Webhook{Event: WebhookProposalAccepted, Payload: payload})
}

// postWebhook delivers hook with backoff. Client errors other than 429 are
// not retried.
func (n *Noble) postWebhook(ctx context.Context, hook Webhook) error {
	webhook := n.config.Notification.Webhook
	operation := func() error {
		req, err := request.NewJSONRequest(ctx, http.MethodPost, webhook.Url, hook, webhook.Headers)
		if err != nil {
			return backoff.Permanent(err)
		}
		_, err = request.Call(req, nil)
		var statusErr *request.StatusError
		if errors.As(err, &statusErr) && !statusErr.Retryable() {
			return backoff.Permanent(err)
		}
		return err
	}

	notify := func(err error, wait time.Duration) {
		logrus.WithFields(logrus.Fields{"event": hook.Event, "retry_in": wait}).Warn(err)
	}
	if err := backoff.RetryNotify(operation, backoff.WithContext(newWebhookBackOff(), ctx), notify); err != nil {
		return fmt.Errorf("webhook %s failed: %w", hook.Event, err)
	}
	return nil
}

// HandleCreateChatRoom opens the owner/forwarder conversation for a shipment.
// A second run finds the room and does nothing.
func (n *Noble) HandleCreateChatRoom(ctx context.Context, task *asynq.Task) error {
	var payload ShipmentTaskPayload
	if err := decodePayload(task, &payload); err != nil {
		return err
	}
	shipment, err := n.datasource.GetShipment(ctx, payload.ShipmentID)
	if err != nil {
		return err
	}

	now := n.clock()
	room := &model.ChatRoom{
		RoomID:       model.GenerateUUIDWithSuffix("room"),
		ShipmentID:   shipment.ShipmentID,
		Participants: []string{shipment.OwnerID, shipment.ForwarderID},
		CreatedAt:    now,
	}
	seed := &model.ChatMessage{
		MessageID: model.GenerateUUIDWithSuffix("msg"),
		RoomID:    room.RoomID,
		SenderID:  shipment.OwnerID,
		Body:      fmt.Sprintf("Shipment %s created. Use this room to coordinate pickup and delivery.", shipment.Code),
		CreatedAt: now,
	}
	created, err := n.datasource.CreateChatRoom(ctx, room, seed)
	if err != nil {
		return err
	}
	logrus.WithFields(logrus.Fields{"shipment_id": shipment.ShipmentID, "created": created}).Info("chat room ready")
	return nil
}

func (n *Noble) HandlePublishEvent(ctx context.Context, task *asynq.Task) error {
	var event model.Event
	if err := decodePayload(task, &event); err != nil {
		return err
	}
	return n.publisher.Publish(ctx, event)
}

// HandleIndexShipment upserts the current shipment document into search.
func (n *Noble) HandleIndexShipment(ctx context.Context, task *asynq.Task) error {
	if n.search == nil {
		return nil
	}
	var payload ShipmentTaskPayload
	if err := decodePayload(task, &payload); err != nil {
		return err
	}
	shipment, err := n.datasource.GetShipment(ctx, payload.ShipmentID)
	if err != nil {
		return err
	}
	return n.search.IndexShipment(ctx, shipment)
}
