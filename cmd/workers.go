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

package main

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"go.elastic.co/apm/module/apmlogrus/v2"

	"github.com/nobleverse/noble"
	"github.com/nobleverse/noble/config"

	"github.com/hibiken/asynq"
	"github.com/hibiken/asynqmon"
)

func init() {
	logrus.AddHook(&apmlogrus.Hook{})
}

// initializeQueues weights the side-effect queues. Forwarder notifications
// and chat rooms are user-visible, events and indexing can lag.
func initializeQueues(cfg *config.Configuration) map[string]int {
	queues := make(map[string]int)
	queues[cfg.Queue.NotificationQueue] = 3
	queues[cfg.Queue.ChatQueue] = 3
	queues[cfg.Queue.EventQueue] = 2
	queues[cfg.Queue.IndexQueue] = 1
	return queues
}

func initializeWorkerServer(conf *config.Configuration, queues map[string]int) (*asynq.Server, error) {
	redisOption, err := noble.RedisClientOpt(conf)
	if err != nil {
		return nil, err
	}

	return asynq.NewServer(
		redisOption,
		asynq.Config{
			Concurrency: conf.Queue.Concurrency,
			Queues:      queues,
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				retried, _ := asynq.GetRetryCount(ctx)
				maxRetry, _ := asynq.GetMaxRetry(ctx)
				logrus.WithFields(logrus.Fields{
					"task":      task.Type(),
					"retried":   retried,
					"max_retry": maxRetry,
				}).WithError(err).Warn("side-effect task failed")
			}),
		},
	), nil
}

// workerCommands defines the "workers" command, which drains the side-effect
// queues and serves asynqmon under /monitoring.
func workerCommands(n *nobleInstance) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "workers",
		Short: "start noble workers",
		Run: func(cmd *cobra.Command, args []string) {
			ctx := context.Background()
			defer n.noble.Close()

			phClient, shutdown, err := initializeObservability(ctx, n.cnf, "NOBLE_WORKERS")
			if err != nil {
				log.Fatal(err)
			}
			if shutdown != nil {
				defer func() {
					if err := shutdown(ctx); err != nil {
						log.Printf("Error during shutdown: %v", err)
					}
				}()
			}
			if phClient != nil {
				defer phClient.Close()
			}

			if err := n.noble.EnsureSearchCollections(ctx); err != nil {
				log.Printf("TypeSense initialization error: %v", err)
			}

			srv, err := initializeWorkerServer(n.cnf, initializeQueues(n.cnf))
			if err != nil {
				log.Fatal(err)
			}

			mux := asynq.NewServeMux()
			n.noble.RegisterTaskHandlers(mux)

			redisOption, err := noble.RedisClientOpt(n.cnf)
			if err != nil {
				log.Fatal(err)
			}
			h := asynqmon.New(asynqmon.Options{
				RootPath:     "/monitoring",
				RedisConnOpt: redisOption,
			})

			go func() {
				monitoringAddr := fmt.Sprintf(":%s", n.cnf.Queue.MonitoringPort)
				log.Printf("Asynqmon server listening on %s/monitoring", monitoringAddr)
				if err := http.ListenAndServe(monitoringAddr, h); err != nil {
					log.Fatalf("could not start asynqmon server: %v", err)
				}
			}()

			if err := srv.Run(mux); err != nil {
				log.Fatalf("could not run server: %v", err)
			}
		},
	}

	return cmd
}
