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
	"embed"
	"strings"
	"time"

	"github.com/nobleverse/noble/config"
	"github.com/nobleverse/noble/database"
	"github.com/nobleverse/noble/internal/cache"
	"github.com/nobleverse/noble/internal/events"
	redis_db "github.com/nobleverse/noble/internal/redis-db"
	"github.com/nobleverse/noble/internal/search"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("noble.service")

// Noble holds the service dependencies behind every acceptance, escrow,
// label, share and tracking operation.
type Noble struct {
	datasource database.IDataSource
	redis      redis.UniversalClient
	cache      cache.Cache
	queue      *Queue
	search     *search.TypesenseClient
	publisher  events.Publisher
	config     *config.Configuration
	now        func() time.Time
}

//go:embed sql/*.sql
var SQLFiles embed.FS

// NewNoble wires a service from the current configuration. Typesense and
// Kafka are optional; without them indexing is skipped and events are dropped.
func NewNoble(db database.IDataSource) (*Noble, error) {
	cnf, err := config.Fetch()
	if err != nil {
		return nil, err
	}

	redisClient, err := redis_db.NewFromConfig(cnf.Redis)
	if err != nil {
		return nil, err
	}

	queue, err := NewQueue(cnf)
	if err != nil {
		return nil, err
	}

	var publisher events.Publisher = events.NopPublisher{}
	if len(cnf.Kafka.Brokers) > 0 {
		kafka, err := events.NewKafkaPublisher(cnf.Kafka.Brokers, cnf.Kafka.Topic)
		if err != nil {
			return nil, err
		}
		publisher = kafka
	}

	var typesense *search.TypesenseClient
	if cnf.TypeSense.Dns != "" {
		typesense = search.NewTypesenseClient(cnf.TypeSense.Key, strings.Split(cnf.TypeSense.Dns, ","))
	}

	return &Noble{
		datasource: db,
		redis:      redisClient.Client(),
		cache:      cache.NewCache(redisClient.Client(), 10*time.Second),
		queue:      queue,
		search:     typesense,
		publisher:  publisher,
		config:     cnf,
		now:        time.Now,
	}, nil
}

// Close releases the queue client and the event publisher.
func (n *Noble) Close() error {
	if n.queue != nil {
		if err := n.queue.Close(); err != nil {
			logrus.Error(err)
		}
	}
	if n.publisher != nil {
		return n.publisher.Close()
	}
	return nil
}

// EnsureSearchCollections creates the Typesense collections when search is configured.
func (n *Noble) EnsureSearchCollections(ctx context.Context) error {
	if n.search == nil {
		return nil
	}
	return n.search.EnsureCollectionsExist(ctx)
}

func (n *Noble) clock() time.Time {
	if n.now == nil {
		return time.Now().UTC()
	}
	return n.now().UTC()
}
