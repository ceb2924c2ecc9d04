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
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/nobleverse/noble/config"
	"github.com/nobleverse/noble/internal/request"
	"github.com/sirupsen/logrus"
)

// Field is one labelled value in a Slack message.
type Field struct {
	Label string
	Value string
}

// SlackNotification posts a header and a list of fields to a Slack webhook.
func SlackNotification(ctx context.Context, webhookURL, title string, fields ...Field) error {
	blocks := []map[string]interface{}{
		{
			"type": "header",
			"text": map[string]interface{}{"type": "plain_text", "text": title, "emoji": true},
		},
	}
	for _, f := range fields {
		blocks = append(blocks, map[string]interface{}{
			"type": "section",
			"fields": []map[string]string{
				{"type": "mrkdwn", "text": fmt.Sprintf("*%s:*\n%s", f.Label, f.Value)},
			},
		})
	}

	req, err := request.NewJSONRequest(ctx, http.MethodPost, webhookURL, map[string]interface{}{"blocks": blocks}, nil)
	if err != nil {
		return err
	}
	_, err = request.Call(req, nil)
	return err
}

// NotifyError logs the error and, when Slack is configured, reports it there
// without blocking the caller.
func NotifyError(systemError error) {
	go func(systemError error) {
		logrus.Error(systemError)

		conf, err := config.Fetch()
		if err != nil {
			log.Println(err)
			return
		}
		if conf.Notification.Slack.WebhookUrl == "" {
			return
		}

		err = SlackNotification(context.Background(), conf.Notification.Slack.WebhookUrl, "Error From Noble 🐞",
			Field{Label: "Error", Value: systemError.Error()},
			Field{Label: "Time", Value: time.Now().Format(time.RFC822)},
		)
		if err != nil {
			log.Println(err)
		}
	}(systemError)
}

// NotifyDrift reports a shipment whose cached escrow fields disagree with its
// ledger. It is a no-op when Slack is not configured.
func NotifyDrift(ctx context.Context, shipmentID string, drift []string) error {
	conf, err := config.Fetch()
	if err != nil {
		return err
	}
	if conf.Notification.Slack.WebhookUrl == "" || len(drift) == 0 {
		return nil
	}

	return SlackNotification(ctx, conf.Notification.Slack.WebhookUrl, "Escrow ledger drift ⚖️",
		Field{Label: "Shipment", Value: shipmentID},
		Field{Label: "Drift", Value: "• " + strings.Join(drift, "\n• ")},
		Field{Label: "Time", Value: time.Now().Format(time.RFC822)},
	)
}
