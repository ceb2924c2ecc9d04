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

package config

import (
	"encoding/json"
	"errors"
	"log"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
	"github.com/wacul/ptr"

	"github.com/sirupsen/logrus"
)

const (
	DEFAULT_PORT             = "5001"
	DEFAULT_FEE_PERCENT      = 5.0
	DEFAULT_SHARE_TTL_HOURS  = 7 * 24
	MAX_SHARE_TTL_HOURS      = 30 * 24
	DEFAULT_MONITORING_PORT  = "5004"
	DEFAULT_QUEUE_MAX_RETRY  = 5
	DEFAULT_LOCK_TIMEOUT_SEC = 30
)

var ConfigStore atomic.Value

type ServerConfig struct {
	SSL    bool   `json:"ssl" envconfig:"NOBLE_SERVER_SSL"`
	Domain string `json:"domain" envconfig:"NOBLE_SERVER_SSL_DOMAIN"`
	Email  string `json:"ssl_email" envconfig:"NOBLE_SERVER_SSL_EMAIL"`
	Port   string `json:"port" envconfig:"NOBLE_SERVER_PORT"`
	// PublicURL prefixes share links handed back to clients.
	PublicURL string `json:"public_url" envconfig:"NOBLE_SERVER_PUBLIC_URL"`
}

type DataSourceConfig struct {
	Dns string `json:"dns" envconfig:"NOBLE_DATA_SOURCE_DNS"`
}

type RedisConfig struct {
	Dns           string `json:"dns" envconfig:"NOBLE_REDIS_DNS"`
	SkipTLSVerify bool   `json:"skip_tls_verify" envconfig:"NOBLE_REDIS_SKIP_TLS_VERIFY"`
}

type TypeSenseConfig struct {
	Dns string `json:"dns" envconfig:"NOBLE_TYPESENSE_DNS"`
	Key string `json:"key" envconfig:"NOBLE_TYPESENSE_KEY"`
}

type KafkaConfig struct {
	Brokers []string `json:"brokers" envconfig:"NOBLE_KAFKA_BROKERS"`
	Topic   string   `json:"topic" envconfig:"NOBLE_KAFKA_TOPIC"`
}

type AuthConfig struct {
	// JWTSecret verifies HS256 session tokens issued by the auth provider.
	JWTSecret string `json:"jwt_secret" envconfig:"NOBLE_AUTH_JWT_SECRET"`
	Issuer    string `json:"issuer" envconfig:"NOBLE_AUTH_ISSUER"`
}

type QueueConfig struct {
	NotificationQueue string `json:"notification_queue" envconfig:"NOBLE_QUEUE_NOTIFICATION"`
	ChatQueue         string `json:"chat_queue" envconfig:"NOBLE_QUEUE_CHAT"`
	EventQueue        string `json:"event_queue" envconfig:"NOBLE_QUEUE_EVENT"`
	IndexQueue        string `json:"index_queue" envconfig:"NOBLE_QUEUE_INDEX"`
	MaxRetry          int    `json:"max_retry" envconfig:"NOBLE_QUEUE_MAX_RETRY"`
	Concurrency       int    `json:"concurrency" envconfig:"NOBLE_QUEUE_CONCURRENCY"`
	MonitoringPort    string `json:"monitoring_port" envconfig:"NOBLE_QUEUE_MONITORING_PORT"`
}

type RateLimitConfig struct {
	RequestsPerSecond  *float64 `json:"requests_per_second" envconfig:"NOBLE_RATE_LIMIT_RPS"`
	Burst              *int     `json:"burst" envconfig:"NOBLE_RATE_LIMIT_BURST"`
	CleanupIntervalSec *int     `json:"cleanup_interval_sec" envconfig:"NOBLE_RATE_LIMIT_CLEANUP_INTERVAL_SEC"`
}

type SlackWebhook struct {
	WebhookUrl string `json:"webhook_url" envconfig:"NOBLE_SLACK_WEBHOOK_URL"`
}

type WebhookConfig struct {
	Url     string            `json:"url" envconfig:"NOBLE_WEBHOOK_URL"`
	Headers map[string]string `json:"headers"`
}

type Notification struct {
	Slack   SlackWebhook  `json:"slack"`
	Webhook WebhookConfig `json:"webhook"`
}

type Configuration struct {
	ProjectName        string           `json:"project_name" envconfig:"NOBLE_PROJECT_NAME"`
	LogLevel           string           `json:"log_level" envconfig:"NOBLE_LOG_LEVEL"`
	PlatformFeePercent *float64         `json:"platform_fee_percent" envconfig:"PLATFORM_FEE_PERCENT"`
	LabelSecret        string           `json:"label_secret" envconfig:"LABEL_SECRET"`
	ShareTTLHours      *int             `json:"share_ttl_hours" envconfig:"NOBLE_SHARE_TTL_HOURS"`
	LockTimeoutSec     *int             `json:"lock_timeout_sec" envconfig:"NOBLE_LOCK_TIMEOUT_SEC"`
	EnableTelemetry    bool             `json:"enable_telemetry" envconfig:"NOBLE_ENABLE_TELEMETRY"`
	BackupDir          string           `json:"backup_dir" envconfig:"NOBLE_BACKUP_DIR"`
	AwsAccessKeyId     string           `json:"aws_access_key_id" envconfig:"NOBLE_AWS_ACCESS_KEY_ID"`
	AwsSecretAccessKey string           `json:"aws_secret_access_key" envconfig:"NOBLE_AWS_SECRET_ACCESS_KEY"`
	S3BucketName       string           `json:"s3_bucket_name" envconfig:"NOBLE_S3_BUCKET_NAME"`
	S3Region           string           `json:"s3_region" envconfig:"NOBLE_S3_REGION"`
	Server             ServerConfig     `json:"server"`
	DataSource         DataSourceConfig `json:"data_source"`
	Redis              RedisConfig      `json:"redis"`
	TypeSense          TypeSenseConfig  `json:"typesense"`
	Kafka              KafkaConfig      `json:"kafka"`
	Auth               AuthConfig       `json:"auth"`
	Queue              QueueConfig      `json:"queue"`
	Notification       Notification     `json:"notification"`
	RateLimit          RateLimitConfig  `json:"rate_limit"`
	IngestRateLimit    RateLimitConfig  `json:"ingest_rate_limit"`
}

func loadConfigFromFile(file string) error {
	var cnf Configuration
	_, err := os.Stat(file)
	if err == nil {
		f, err := os.Open(file)
		if err != nil {
			return err
		}
		defer f.Close()
		err = json.NewDecoder(f).Decode(&cnf)
		if err != nil {
			return err
		}

	} else if errors.Is(err, os.ErrNotExist) {
		log.Println("config json not passed, will use env variables")
	}

	// override config from environment variables
	err = envconfig.Process("noble", &cnf)
	if err != nil {
		return err
	}

	err = cnf.validateAndAddDefaults()
	if err != nil {
		return err
	}

	applyLogLevel(cnf.LogLevel)
	ConfigStore.Store(&cnf)
	return nil
}

func InitConfig(configFile string) error {
	logger()
	return loadConfigFromFile(configFile)
}

func Fetch() (*Configuration, error) {
	config := ConfigStore.Load()
	c, ok := config.(*Configuration)
	if !ok {
		return nil, errors.New("config not loaded from file. Create a json file called noble.json with your config")
	}
	return c, nil
}

// FeePercent returns the platform fee as a decimal percentage.
func (cnf *Configuration) FeePercent() decimal.Decimal {
	if cnf.PlatformFeePercent == nil {
		return decimal.NewFromFloat(DEFAULT_FEE_PERCENT)
	}
	return decimal.NewFromFloat(*cnf.PlatformFeePercent)
}

// ShareTTL returns the default lifetime of a share token.
func (cnf *Configuration) ShareTTL() time.Duration {
	if cnf.ShareTTLHours == nil {
		return DEFAULT_SHARE_TTL_HOURS * time.Hour
	}
	return time.Duration(*cnf.ShareTTLHours) * time.Hour
}

// LockTimeout is how long the acceptance lock on a request may be held.
func (cnf *Configuration) LockTimeout() time.Duration {
	if cnf.LockTimeoutSec == nil {
		return DEFAULT_LOCK_TIMEOUT_SEC * time.Second
	}
	return time.Duration(*cnf.LockTimeoutSec) * time.Second
}

func (cnf *Configuration) validateAndAddDefaults() error {
	if cnf.ProjectName == "" {
		log.Println("Warning: Project name is empty. Setting a default name.")
		cnf.ProjectName = "NobleVerse Escrow"
	}

	if cnf.DataSource.Dns == "" {
		log.Println("Error: Data source DNS is empty. It's a required field.")
		return errors.New("data source DNS is required")
	}

	if cnf.Redis.Dns == "" {
		log.Println("Error: Redis DNS is empty. It's a required field.")
		return errors.New("redis DNS is required")
	}

	if strings.TrimSpace(cnf.LabelSecret) == "" {
		log.Println("Error: LABEL_SECRET is empty. It's a required field.")
		return errors.New("label secret is required")
	}

	if cnf.PlatformFeePercent == nil {
		cnf.PlatformFeePercent = ptr.Float64(DEFAULT_FEE_PERCENT)
	}
	if *cnf.PlatformFeePercent < 0 || *cnf.PlatformFeePercent > 100 {
		return errors.New("platform fee percent must be between 0 and 100")
	}

	// Trim white spaces from fields
	cnf.ProjectName = strings.TrimSpace(cnf.ProjectName)
	cnf.Server.Port = strings.TrimSpace(cnf.Server.Port)
	cnf.DataSource.Dns = strings.TrimSpace(cnf.DataSource.Dns)
	cnf.Redis.Dns = strings.TrimSpace(cnf.Redis.Dns)
	cnf.Server.PublicURL = strings.TrimRight(strings.TrimSpace(cnf.Server.PublicURL), "/")

	if cnf.Server.Port == "" {
		cnf.Server.Port = DEFAULT_PORT
		log.Printf("Warning: Port not specified in config. Setting default port: %s", DEFAULT_PORT)
	}

	if cnf.Auth.JWTSecret == "" {
		log.Println("Warning: auth JWT secret is empty. Authenticated routes will reject every request.")
	}

	if cnf.ShareTTLHours == nil {
		cnf.ShareTTLHours = ptr.Int(DEFAULT_SHARE_TTL_HOURS)
	}
	if *cnf.ShareTTLHours <= 0 || *cnf.ShareTTLHours > MAX_SHARE_TTL_HOURS {
		log.Printf("Warning: share TTL %d hours out of range. Using %d", *cnf.ShareTTLHours, DEFAULT_SHARE_TTL_HOURS)
		cnf.ShareTTLHours = ptr.Int(DEFAULT_SHARE_TTL_HOURS)
	}

	if cnf.LockTimeoutSec == nil {
		cnf.LockTimeoutSec = ptr.Int(DEFAULT_LOCK_TIMEOUT_SEC)
	}

	cnf.Queue.setDefaults()

	if cnf.Kafka.Topic == "" {
		cnf.Kafka.Topic = "noble.shipments"
	}

	cnf.RateLimit.setDefaults("rate limit")
	if cnf.IngestRateLimit.RequestsPerSecond == nil && cnf.IngestRateLimit.Burst == nil {
		cnf.IngestRateLimit.RequestsPerSecond = ptr.Float64(10)
	}
	cnf.IngestRateLimit.setDefaults("ingest rate limit")

	return nil
}

func (q *QueueConfig) setDefaults() {
	if q.NotificationQueue == "" {
		q.NotificationQueue = "noble:notify_forwarder"
	}
	if q.ChatQueue == "" {
		q.ChatQueue = "noble:create_chat_room"
	}
	if q.EventQueue == "" {
		q.EventQueue = "noble:publish_event"
	}
	if q.IndexQueue == "" {
		q.IndexQueue = "noble:index_shipment"
	}
	if q.MaxRetry <= 0 {
		q.MaxRetry = DEFAULT_QUEUE_MAX_RETRY
	}
	if q.Concurrency <= 0 {
		q.Concurrency = 4
	}
	if q.MonitoringPort == "" {
		q.MonitoringPort = DEFAULT_MONITORING_PORT
	}
}

// Rate limiting is disabled when both RPS and Burst are nil.
func (r *RateLimitConfig) setDefaults(name string) {
	if r.RequestsPerSecond != nil && r.Burst == nil {
		defaultBurst := 2 * int(*r.RequestsPerSecond)
		r.Burst = &defaultBurst
		log.Printf("Warning: %s burst not specified. Setting default value: %d", name, defaultBurst)
	}
	if r.RequestsPerSecond == nil && r.Burst != nil {
		defaultRPS := float64(*r.Burst) / 2
		r.RequestsPerSecond = &defaultRPS
		log.Printf("Warning: %s RPS not specified. Setting default value: %.2f", name, defaultRPS)
	}
	if r.CleanupIntervalSec == nil {
		r.CleanupIntervalSec = ptr.Int(10800) // 3 hours
	}
}

// Enabled reports whether the limiter should be installed.
func (r RateLimitConfig) Enabled() bool {
	return r.RequestsPerSecond != nil && r.Burst != nil
}

// MockConfig sets a mock configuration for testing purposes.
func MockConfig(mockConfig *Configuration) {
	ConfigStore.Store(mockConfig)
}

func logger() {
	logger := logrus.New()
	log.SetOutput(logger.Writer())
}

func applyLogLevel(level string) {
	if level == "" {
		return
	}
	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		log.Printf("Warning: unknown log level %q, keeping %s", level, logrus.GetLevel())
		return
	}
	logrus.SetLevel(parsed)
}
