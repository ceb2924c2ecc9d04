package config

import (
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/wacul/ptr"
)

func validConfig() Configuration {
	return Configuration{
		ProjectName: "Test Project",
		LabelSecret: "label-secret",
		DataSource:  DataSourceConfig{Dns: "some-dns"},
		Redis:       RedisConfig{Dns: "localhost:6379"},
	}
}

func TestValidateAndAddDefaults(t *testing.T) {
	cnf := validConfig()
	cnf.DataSource.Dns = ""
	err := cnf.validateAndAddDefaults()
	if err == nil || err.Error() != "data source DNS is required" {
		t.Errorf("Expected data source DNS required error, got %v", err)
	}

	cnf = validConfig()
	cnf.Redis.Dns = ""
	err = cnf.validateAndAddDefaults()
	if err == nil || err.Error() != "redis DNS is required" {
		t.Errorf("Expected redis DNS required error, got %v", err)
	}

	cnf = validConfig()
	cnf.LabelSecret = "  "
	err = cnf.validateAndAddDefaults()
	if err == nil || err.Error() != "label secret is required" {
		t.Errorf("Expected label secret required error, got %v", err)
	}

	cnf = validConfig()
	err = cnf.validateAndAddDefaults()
	if err != nil {
		t.Errorf("Expected no error, got %v", err)
	}
	if cnf.Server.Port != DEFAULT_PORT {
		t.Errorf("Expected default port %s, got %s", DEFAULT_PORT, cnf.Server.Port)
	}
	assert.True(t, cnf.FeePercent().Equal(decimal.NewFromInt(5)))
	assert.Equal(t, 7*24*time.Hour, cnf.ShareTTL())
	assert.Equal(t, "noble:notify_forwarder", cnf.Queue.NotificationQueue)
	assert.Equal(t, "noble:index_shipment", cnf.Queue.IndexQueue)
	assert.Equal(t, DEFAULT_QUEUE_MAX_RETRY, cnf.Queue.MaxRetry)
	assert.Equal(t, "noble.shipments", cnf.Kafka.Topic)
	assert.False(t, cnf.RateLimit.Enabled())
	assert.True(t, cnf.IngestRateLimit.Enabled())
	assert.Equal(t, 20, *cnf.IngestRateLimit.Burst)
}

func TestValidateFeePercentBounds(t *testing.T) {
	cnf := validConfig()
	cnf.PlatformFeePercent = ptr.Float64(120)
	assert.EqualError(t, cnf.validateAndAddDefaults(), "platform fee percent must be between 0 and 100")

	cnf = validConfig()
	cnf.PlatformFeePercent = ptr.Float64(2.5)
	assert.NoError(t, cnf.validateAndAddDefaults())
	assert.Equal(t, "2.5", cnf.FeePercent().String())
}

func TestShareTTLOutOfRangeFallsBack(t *testing.T) {
	cnf := validConfig()
	cnf.ShareTTLHours = ptr.Int(MAX_SHARE_TTL_HOURS + 1)
	assert.NoError(t, cnf.validateAndAddDefaults())
	assert.Equal(t, DEFAULT_SHARE_TTL_HOURS, *cnf.ShareTTLHours)
}

func TestRateLimitDefaults(t *testing.T) {
	cnf := validConfig()
	cnf.RateLimit.RequestsPerSecond = ptr.Float64(5)
	assert.NoError(t, cnf.validateAndAddDefaults())
	assert.Equal(t, 10, *cnf.RateLimit.Burst)
	assert.Equal(t, 10800, *cnf.RateLimit.CleanupIntervalSec)

	cnf = validConfig()
	cnf.RateLimit.Burst = ptr.Int(8)
	assert.NoError(t, cnf.validateAndAddDefaults())
	assert.Equal(t, 4.0, *cnf.RateLimit.RequestsPerSecond)
}

func TestLoadConfigFromFile(t *testing.T) {
	tmpFile, err := os.CreateTemp("", "noble.json")
	if err != nil {
		t.Fatalf("Unable to create temporary file: %v", err)
	}
	defer os.Remove(tmpFile.Name())

	sampleConfig := validConfig()
	sampleConfig.DataSource.Dns = "temp-dns"
	if err := json.NewEncoder(tmpFile).Encode(sampleConfig); err != nil {
		t.Fatalf("Unable to write to temporary file: %v", err)
	}
	tmpFile.Close()

	// environment overrides the file, including the unprefixed fee variable
	os.Setenv("NOBLE_PROJECT_NAME", "Env Project")
	defer os.Unsetenv("NOBLE_PROJECT_NAME")
	os.Setenv("PLATFORM_FEE_PERCENT", "7")
	defer os.Unsetenv("PLATFORM_FEE_PERCENT")

	if err := loadConfigFromFile(tmpFile.Name()); err != nil {
		t.Fatalf("loadConfigFromFile failed: %v", err)
	}

	loadedConfig, err := Fetch()
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}

	assert.Equal(t, "Env Project", loadedConfig.ProjectName)
	assert.Equal(t, "temp-dns", loadedConfig.DataSource.Dns)
	assert.True(t, loadedConfig.FeePercent().Equal(decimal.NewFromInt(7)))
}

func TestInitConfig(t *testing.T) {
	tmpFile, err := os.CreateTemp("", "noble.json")
	if err != nil {
		t.Fatalf("Unable to create temporary file: %v", err)
	}
	defer os.Remove(tmpFile.Name())

	sampleConfig := validConfig()
	sampleConfig.ProjectName = "InitConfig Test"
	sampleConfig.DataSource.Dns = "init-config-dns"
	if err := json.NewEncoder(tmpFile).Encode(sampleConfig); err != nil {
		t.Fatalf("Unable to write to temporary file: %v", err)
	}
	tmpFile.Close()

	if err := InitConfig(tmpFile.Name()); err != nil {
		t.Fatalf("InitConfig failed: %v", err)
	}

	loadedConfig, err := Fetch()
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if loadedConfig.ProjectName != "InitConfig Test" {
		t.Errorf("Expected ProjectName to be 'InitConfig Test', got '%s'", loadedConfig.ProjectName)
	}
	if loadedConfig.DataSource.Dns != "init-config-dns" {
		t.Errorf("Expected DataSource.Dns to be 'init-config-dns', got '%s'", loadedConfig.DataSource.Dns)
	}
}
