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

package notification

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/nobleverse/noble/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const slackURL = "https://hooks.slack.test/services/T000/B000/XXX"

func slackConfig(url string) {
	cnf := &config.Configuration{}
	cnf.Notification.Slack.WebhookUrl = url
	config.MockConfig(cnf)
}

func TestSlackNotification(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	var body map[string]interface{}
	httpmock.RegisterResponder(http.MethodPost, slackURL, func(req *http.Request) (*http.Response, error) {
		raw, _ := io.ReadAll(req.Body)
		require.NoError(t, json.Unmarshal(raw, &body))
		return httpmock.NewStringResponse(http.StatusOK, "ok"), nil
	})

	err := SlackNotification(context.Background(), slackURL, "Title", Field{Label: "Shipment", Value: "shp_1"})
	require.NoError(t, err)

	blocks := body["blocks"].([]interface{})
	require.Len(t, blocks, 2)
	section := blocks[1].(map[string]interface{})["fields"].([]interface{})[0].(map[string]interface{})
	assert.Equal(t, "*Shipment:*\nshp_1", section["text"])
}

func TestNotifyDrift(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()
	slackConfig(slackURL)

	var text string
	httpmock.RegisterResponder(http.MethodPost, slackURL, func(req *http.Request) (*http.Response, error) {
		raw, _ := io.ReadAll(req.Body)
		text = string(raw)
		return httpmock.NewStringResponse(http.StatusOK, "ok"), nil
	})

	err := NotifyDrift(context.Background(), "shp_1", []string{"refunded_amount_cents 1000 != refunded 0"})
	assert.NoError(t, err)
	assert.Equal(t, 1, httpmock.GetTotalCallCount())
	assert.True(t, strings.Contains(text, "refunded_amount_cents 1000"))

	// nothing to report
	assert.NoError(t, NotifyDrift(context.Background(), "shp_1", nil))
	assert.Equal(t, 1, httpmock.GetTotalCallCount())
}

func TestNotifyDrift_SlackDown(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()
	slackConfig(slackURL)

	httpmock.RegisterResponder(http.MethodPost, slackURL, httpmock.NewStringResponder(http.StatusInternalServerError, "boom"))

	err := NotifyDrift(context.Background(), "shp_1", []string{"drift"})
	assert.Error(t, err)
}

func TestNotifyDrift_NotConfigured(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()
	slackConfig("")

	assert.NoError(t, NotifyDrift(context.Background(), "shp_1", []string{"drift"}))
	assert.Equal(t, 0, httpmock.GetTotalCallCount())
}

func TestNotifyError(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()
	slackConfig(slackURL)

	done := make(chan struct{})
	httpmock.RegisterResponder(http.MethodPost, slackURL, func(req *http.Request) (*http.Response, error) {
		close(done)
		return httpmock.NewStringResponse(http.StatusOK, "ok"), nil
	})

	NotifyError(errors.New("worker crashed"))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("slack was not notified")
	}
}
