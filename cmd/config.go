package main

import (
	"encoding/json"
	"fmt"
	"log"

	"github.com/nobleverse/noble/config"
	"github.com/spf13/cobra"
)

const redacted = "********"

// redactConfig blanks every secret before the configuration is printed.
func redactConfig(cfg config.Configuration) config.Configuration {
	for _, secret := range []*string{
		&cfg.LabelSecret,
		&cfg.Auth.JWTSecret,
		&cfg.TypeSense.Key,
		&cfg.AwsSecretAccessKey,
		&cfg.DataSource.Dns,
		&cfg.Redis.Dns,
		&cfg.Notification.Slack.WebhookUrl,
	} {
		if *secret != "" {
			*secret = redacted
		}
	}
	if len(cfg.Notification.Webhook.Headers) > 0 {
		headers := make(map[string]string, len(cfg.Notification.Webhook.Headers))
		for k := range cfg.Notification.Webhook.Headers {
			headers[k] = redacted
		}
		cfg.Notification.Webhook.Headers = headers
	}
	return cfg
}

func configCommands() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "config outputs your instance's computed configuration",
		Run: func(cmd *cobra.Command, args []string) {
			cfg, err := config.Fetch()
			if err != nil {
				log.Fatalf("Error getting config: %v\n", err)
			}

			data, err := json.MarshalIndent(redactConfig(*cfg), "", "    ")
			if err != nil {
				log.Fatalf("Error printing config: %v\n", err)
			}

			fmt.Println(string(data))
		},
	}
	return cmd
}
