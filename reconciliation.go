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
	"time"

	"github.com/google/uuid"
	redlock "github.com/nobleverse/noble/internal/lock"
	"github.com/nobleverse/noble/internal/notification"
	"github.com/nobleverse/noble/model"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
)

const (
	DefaultReconcilePageSize = 200
	reconcileLockKey         = "noble:lock:reconcile"
	reconcileLockTimeout     = 30 * time.Minute
)

// ReconcileSummary is the outcome of a full reconciliation run.
type ReconcileSummary struct {
	Checked    int      `json:"checked"`
	Drifted    int      `json:"drifted"`
	DriftedIDs []string `json:"drifted_ids"`
}

// ReconcileShipment folds a shipment's ledger and compares it with the cached
// amount fields. The shipment row is locked so no transition lands between
// the two reads.
func (n *Noble) ReconcileShipment(ctx context.Context, shipmentID string) (*model.LedgerReport, error) {
	ctx, span := otel.Tracer("noble.reconciliation").Start(ctx, "ReconcileShipment")
	defer span.End()

	var report *model.LedgerReport
	err := n.datasource.RunInTx(ctx, func(ctx context.Context) error {
		shipment, err := n.datasource.GetShipmentForUpdate(ctx, shipmentID)
		if err != nil {
			return err
		}
		entries, err := n.datasource.GetLedgerEntries(ctx, shipmentID)
		if err != nil {
			return err
		}
		summary := model.FoldLedger(entries)
		drift := summary.Drift(shipment)
		if drift == nil {
			drift = []string{}
		}
		report = &model.LedgerReport{
			ShipmentID: shipmentID,
			Entries:    entries,
			Summary:    summary,
			Drift:      drift,
			Reconciled: len(drift) == 0,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return report, nil
}

// GetShipmentLedger serves the ledger report to a participant.
func (n *Noble) GetShipmentLedger(ctx context.Context, shipmentID, callerID string) (*model.LedgerReport, error) {
	if _, err := n.participantShipment(ctx, shipmentID, callerID); err != nil {
		return nil, err
	}
	return n.ReconcileShipment(ctx, shipmentID)
}

// ReconcileAll checks every shipment page by page. Drift is logged and sent to
// Slack; it is never repaired automatically. Only one run holds the lock at a
// time when Redis is available.
func (n *Noble) ReconcileAll(ctx context.Context, pageSize int) (*ReconcileSummary, error) {
	if pageSize <= 0 {
		pageSize = DefaultReconcilePageSize
	}
	if n.redis == nil {
		return n.reconcileAll(ctx, pageSize)
	}

	var summary *ReconcileSummary
	locker := redlock.NewLocker(n.redis, reconcileLockKey, uuid.NewString())
	err := locker.Run(ctx, reconcileLockTimeout, time.Second, func(ctx context.Context) error {
		var err error
		summary, err = n.reconcileAll(ctx, pageSize)
		return err
	})
	return summary, err
}

func (n *Noble) reconcileAll(ctx context.Context, pageSize int) (*ReconcileSummary, error) {
	summary := &ReconcileSummary{DriftedIDs: []string{}}
	afterID := ""
	for {
		ids, err := n.datasource.GetShipmentIDs(ctx, afterID, pageSize)
		if err != nil {
			return summary, err
		}
		for _, id := range ids {
			report, err := n.ReconcileShipment(ctx, id)
			if err != nil {
				return summary, err
			}
			summary.Checked++
			if report.Reconciled {
				continue
			}
			summary.Drifted++
			summary.DriftedIDs = append(summary.DriftedIDs, id)
			logrus.WithFields(logrus.Fields{"shipment_id": id, "drift": report.Drift}).Error("escrow ledger drift")
			if err := notification.NotifyDrift(ctx, id, report.Drift); err != nil {
				logrus.WithField("shipment_id", id).Warn(err)
			}
		}
		if len(ids) < pageSize {
			break
		}
		afterID = ids[len(ids)-1]
	}

	logrus.WithFields(logrus.Fields{"checked": summary.Checked, "drifted": summary.Drifted}).Info("reconciliation finished")
	return summary, nil
}
