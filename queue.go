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

	"github.com/hibiken/asynq"
	"github.com/nobleverse/noble/config"
	redis_db "github.com/nobleverse/noble/internal/redis-db"
	"github.com/nobleverse/noble/model"
	"github.com/sirupsen/logrus"
)

// Task types of the side-effect queue. Each runs on its own configurable queue.
const (
	TaskNotifyForwarder = "notify_forwarder"
	TaskCreateChatRoom  = "create_chat_room"
	TaskPublishEvent    = "publish_event"
	TaskIndexShipment   = "index_shipment"

	indexMaxRetry = 3
)

// enqueuer is the part of asynq.Client the queue needs.
type enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
	Close() error
}

// Queue represents the side-effect task queue.
type Queue struct {
	Client    enqueuer
	Inspector *asynq.Inspector
	conf      config.QueueConfig
}

// NotifyForwarderPayload tells the forwarder their proposal won.
type NotifyForwarderPayload struct {
	ShipmentID   string             `json:"shipment_id"`
	Code         string             `json:"code"`
	OwnerID      string             `json:"owner_id"`
	ForwarderID  string             `json:"forwarder_id"`
	ProposalKind model.ProposalKind `json:"proposal_kind"`
	ProposalID   string             `json:"proposal_id"`
}

// ShipmentTaskPayload references a shipment for chat and index tasks.
type ShipmentTaskPayload struct {
	ShipmentID string `json:"shipment_id"`
}

// RedisClientOpt converts the configured Redis DNS into asynq connection options.
func RedisClientOpt(conf *config.Configuration) (asynq.RedisClientOpt, error) {
	redisOption, err := redis_db.ParseRedisURL(conf.Redis.Dns, conf.Redis.SkipTLSVerify)
	if err != nil {
		return asynq.RedisClientOpt{}, fmt.Errorf("error parsing Redis URL: %w", err)
	}
	return asynq.RedisClientOpt{
		Addr:      redisOption.Addr,
		Username:  redisOption.Username,
		Password:  redisOption.Password,
		DB:        redisOption.DB,
		TLSConfig: redisOption.TLSConfig,
	}, nil
}

// NewQueue initializes a new Queue instance with the provided configuration.
func NewQueue(conf *config.Configuration) (*Queue, error) {
	queueOptions, err := RedisClientOpt(conf)
	if err != nil {
		return nil, err
	}
	return &Queue{
		Client:    asynq.NewClient(queueOptions),
		Inspector: asynq.NewInspector(queueOptions),
		conf:      conf.Queue,
	}, nil
}

func (q *Queue) Close() error {
	if q.Inspector != nil {
		if err := q.Inspector.Close(); err != nil {
			logrus.Error(err)
		}
	}
	return q.Client.Close()
}

// TaskID is the deterministic id of a side effect: <task>:<shipment_id>:<event>.
// Enqueuing the same effect twice collapses into one task.
func TaskID(task, shipmentID, event string) string {
	return fmt.Sprintf("%s:%s:%s", task, shipmentID, event)
}

func (q *Queue) enqueue(ctx context.Context, taskType, queueName, taskID string, payload interface{}, maxRetry int) error {
	ctx, span := tracer.Start(ctx, "Enqueue "+taskType)
	defer span.End()

	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	task := asynq.NewTask(taskType, data)
	_, err = q.Client.EnqueueContext(ctx, task,
		asynq.TaskID(taskID),
		asynq.Queue(queueName),
		asynq.MaxRetry(maxRetry),
	)
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		logrus.WithField("task_id", taskID).Debug("side effect already enqueued")
		return nil
	}
	if err != nil {
		return err
	}
	logrus.WithField("task_id", taskID).Debug("side effect enqueued")
	return nil
}

func (q *Queue) EnqueueNotifyForwarder(ctx context.Context, payload NotifyForwarderPayload) error {
	return q.enqueue(ctx, TaskNotifyForwarder, q.conf.NotificationQueue,
		TaskID(TaskNotifyForwarder, payload.ShipmentID, "accepted"), payload, q.conf.MaxRetry)
}

func (q *Queue) EnqueueChatRoom(ctx context.Context, shipmentID string) error {
	return q.enqueue(ctx, TaskCreateChatRoom, q.conf.ChatQueue,
		TaskID(TaskCreateChatRoom, shipmentID, "accepted"), ShipmentTaskPayload{ShipmentID: shipmentID}, q.conf.MaxRetry)
}

// EnqueueEvent schedules a domain event. key distinguishes repeated events of
// one type on a shipment, such as successive partial refunds.
func (q *Queue) EnqueueEvent(ctx context.Context, event model.Event, key string) error {
	return q.enqueue(ctx, TaskPublishEvent, q.conf.EventQueue,
		TaskID(TaskPublishEvent, event.ShipmentID, key), event, q.conf.MaxRetry)
}

func (q *Queue) EnqueueIndex(ctx context.Context, shipmentID, key string) error {
	return q.enqueue(ctx, TaskIndexShipment, q.conf.IndexQueue,
		TaskID(TaskIndexShipment, shipmentID, key), ShipmentTaskPayload{ShipmentID: shipmentID}, indexMaxRetry)
}
