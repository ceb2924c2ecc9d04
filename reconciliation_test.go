package noble

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/jarcoal/httpmock"
	"github.com/nobleverse/noble/config"
	"github.com/nobleverse/noble/model"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func releasedLedger(id string) []model.LedgerEntry {
	return []model.LedgerEntry{
		model.NewLedgerEntry(id, model.EntryHold, 100000, "hold:"+id, nil),
		model.NewLedgerEntry(id, model.EntryFee, 5000, "fee:"+id, nil),
		model.NewLedgerEntry(id, model.EntryRelease, 95000, "release:"+id, nil),
	}
}

func TestReconcileShipmentMatchesLedger(t *testing.T) {
	n, ds, _ := newTestNoble(t)
	s := heldShipment()
	s.EscrowStatus = model.EscrowReleased
	ds.On("GetShipmentForUpdate", mock.Anything, "shp_1").Return(s, nil)
	ds.On("GetLedgerEntries", mock.Anything, "shp_1").Return(releasedLedger("shp_1"), nil)

	report, err := n.ReconcileShipment(context.Background(), "shp_1")
	require.NoError(t, err)

	assert.True(t, report.Reconciled)
	assert.Empty(t, report.Drift)
	assert.Equal(t, int64(95000), report.Summary.Net)
	assert.Len(t, report.Entries, 3)
}

func TestGetShipmentLedgerRequiresParticipant(t *testing.T) {
	n, ds, _ := newTestNoble(t)
	ds.On("GetShipment", mock.Anything, "shp_1").Return(heldShipment(), nil)

	_, err := n.GetShipmentLedger(context.Background(), "shp_1", "usr_stranger")
	assert.Error(t, err)
	ds.AssertNotCalled(t, "GetLedgerEntries", mock.Anything, mock.Anything)
}

func TestReconcileAllReportsDrift(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()
	httpmock.RegisterResponder(http.MethodPost, "https://hooks.slack.test/drift", httpmock.NewStringResponder(http.StatusOK, "ok"))

	mr := miniredis.RunT(t)
	n, ds, _ := newTestNoble(t)
	n.config.Notification.Slack.WebhookUrl = "https://hooks.slack.test/drift"
	config.MockConfig(n.config)
	n.redis = redis.NewClient(&redis.Options{Addr: mr.Addr()})

	ids := make([]string, 0, 3)
	for i := 1; i <= 3; i++ {
		id := fmt.Sprintf("shp_%d", i)
		ids = append(ids, id)
		s := heldShipment()
		s.ShipmentID = id
		s.EscrowStatus = model.EscrowReleased
		if i == 2 {
			s.RefundedAmountCents = 500
		}
		ds.On("GetShipmentForUpdate", mock.Anything, id).Return(s, nil)
		ds.On("GetLedgerEntries", mock.Anything, id).Return(releasedLedger(id), nil)
	}
	ds.On("GetShipmentIDs", mock.Anything, "", 2).Return(ids[:2], nil)
	ds.On("GetShipmentIDs", mock.Anything, "shp_2", 2).Return(ids[2:], nil)

	summary, err := n.ReconcileAll(context.Background(), 2)
	require.NoError(t, err)

	assert.Equal(t, 3, summary.Checked)
	assert.Equal(t, 1, summary.Drifted)
	assert.Equal(t, []string{"shp_2"}, summary.DriftedIDs)
	assert.Equal(t, 1, httpmock.GetTotalCallCount())
	assert.False(t, mr.Exists(reconcileLockKey))
}
