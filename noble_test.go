package noble

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/nobleverse/noble/config"
	"github.com/nobleverse/noble/database/mocks"
	"github.com/nobleverse/noble/internal/events"
	"github.com/wacul/ptr"
)

var testNow = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

type enqueuedTask struct {
	Type    string
	ID      string
	Queue   string
	Payload []byte
}

// recordingEnqueuer stands in for asynq.Client and collapses duplicate task
// ids the way asynq does.
type recordingEnqueuer struct {
	mu    sync.Mutex
	tasks []enqueuedTask
	seen  map[string]bool
	err   error
}

func (r *recordingEnqueuer) EnqueueContext(_ context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	recorded := enqueuedTask{Type: task.Type(), Payload: task.Payload()}
	for _, opt := range opts {
		switch opt.Type() {
		case asynq.TaskIDOpt:
			recorded.ID = opt.Value().(string)
		case asynq.QueueOpt:
			recorded.Queue = opt.Value().(string)
		}
	}
	if r.seen == nil {
		r.seen = map[string]bool{}
	}
	if r.seen[recorded.ID] {
		return nil, asynq.ErrTaskIDConflict
	}
	r.seen[recorded.ID] = true
	r.tasks = append(r.tasks, recorded)
	return &asynq.TaskInfo{ID: recorded.ID, Queue: recorded.Queue, Type: recorded.Type}, nil
}

func (r *recordingEnqueuer) Close() error { return nil }

func (r *recordingEnqueuer) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	types := make([]string, 0, len(r.tasks))
	for _, task := range r.tasks {
		types = append(types, task.Type)
	}
	return types
}

func (r *recordingEnqueuer) find(taskType string) (enqueuedTask, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, task := range r.tasks {
		if task.Type == taskType {
			return task, true
		}
	}
	return enqueuedTask{}, false
}

func testConfig() *config.Configuration {
	return &config.Configuration{
		LabelSecret:        "label-secret",
		PlatformFeePercent: ptr.Float64(5),
		ShareTTLHours:      ptr.Int(config.DEFAULT_SHARE_TTL_HOURS),
		LockTimeoutSec:     ptr.Int(2),
		Server:             config.ServerConfig{PublicURL: "https://noble.test/"},
		Queue: config.QueueConfig{
			NotificationQueue: "noble:notify_forwarder",
			ChatQueue:         "noble:create_chat_room",
			EventQueue:        "noble:publish_event",
			IndexQueue:        "noble:index_shipment",
			MaxRetry:          5,
		},
	}
}

func newTestNoble(t *testing.T) (*Noble, *mocks.MockDataSource, *recordingEnqueuer) {
	t.Helper()
	cnf := testConfig()
	config.MockConfig(cnf)

	ds := &mocks.MockDataSource{}
	enq := &recordingEnqueuer{}
	n := &Noble{
		datasource: ds,
		queue:      &Queue{Client: enq, conf: cnf.Queue},
		publisher:  events.NopPublisher{},
		config:     cnf,
		now:        func() time.Time { return testNow },
	}
	return n, ds, enq
}

func decodeTask(t *testing.T, task enqueuedTask, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(task.Payload, v); err != nil {
		t.Fatalf("decode %s payload: %v", task.Type, err)
	}
}
