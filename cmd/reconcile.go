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
	"log"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// reconcileCommands folds every shipment's ledger and reports cached totals
// that drifted from it. With --reindex the search index is rebuilt as well.
func reconcileCommands(n *nobleInstance) *cobra.Command {
	var pageSize int
	var reindex bool

	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "check shipment totals against the escrow ledger",
		Run: func(cmd *cobra.Command, args []string) {
			ctx := cmd.Context()
			defer n.noble.Close()

			summary, err := n.noble.ReconcileAll(ctx, pageSize)
			if err != nil {
				log.Fatalf("reconciliation failed: %v", err)
			}
			logrus.WithFields(logrus.Fields{
				"checked": summary.Checked,
				"drifted": summary.Drifted,
			}).Info("reconciliation finished")

			if !reindex {
				return
			}
			indexed, err := n.noble.ReindexShipments(ctx, pageSize)
			if err != nil {
				log.Fatalf("reindex failed: %v", err)
			}
			logrus.WithField("indexed", indexed).Info("reindex finished")
		},
	}

	cmd.Flags().IntVar(&pageSize, "page-size", 100, "shipments loaded per page")
	cmd.Flags().BoolVar(&reindex, "reindex", false, "rebuild the shipments search index afterwards")

	return cmd
}
