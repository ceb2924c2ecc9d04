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

package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/nobleverse/noble/internal/apierror"
	"github.com/nobleverse/noble/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInsertLedgerEntry_Success(t *testing.T) {
	ds, mock := newMockDatasource(t)
	entry := model.NewLedgerEntry("shp_1", model.EntryHold, 100000, "hold:shp_1", map[string]interface{}{"offer_id": "off_1"})

	mock.ExpectExec("INSERT INTO noble.escrow_ledger").
		WithArgs(entry.EntryID, "shp_1", "HOLD", int64(100000), []byte(`{"offer_id":"off_1"}`), "hold:shp_1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	inserted, err := ds.InsertLedgerEntry(context.Background(), entry)
	assert.NoError(t, err)
	assert.True(t, inserted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertLedgerEntry_DuplicateKey(t *testing.T) {
	ds, mock := newMockDatasource(t)
	entry := model.NewLedgerEntry("shp_1", model.EntryRelease, 95000, "release:shp_1", nil)

	mock.ExpectExec("ON CONFLICT \\(shipment_id, idempotency_key\\) DO NOTHING").
		WillReturnResult(sqlmock.NewResult(0, 0))

	inserted, err := ds.InsertLedgerEntry(context.Background(), entry)
	assert.NoError(t, err)
	assert.False(t, inserted)
}

func TestInsertLedgerEntry_Rejected(t *testing.T) {
	ds, mock := newMockDatasource(t)

	_, err := ds.InsertLedgerEntry(context.Background(), model.NewLedgerEntry("shp_1", "BONUS", 1, "x", nil))
	assert.True(t, apierror.HasCode(err, apierror.ErrInvalid))

	_, err = ds.InsertLedgerEntry(context.Background(), model.NewLedgerEntry("shp_1", model.EntryRefund, -1, "x", nil))
	assert.True(t, apierror.HasCode(err, apierror.ErrInvalidAmount))

	mock.ExpectExec("INSERT INTO noble.escrow_ledger").
		WillReturnError(errors.New("connection reset"))
	_, err = ds.InsertLedgerEntry(context.Background(), model.NewLedgerEntry("shp_1", model.EntryFee, 5000, "fee:shp_1", nil))
	assert.True(t, apierror.HasCode(err, apierror.ErrInternalServer))
}

func TestGetLedgerEntries(t *testing.T) {
	ds, mock := newMockDatasource(t)
	now := time.Now()

	rows := sqlmock.NewRows([]string{"entry_id", "shipment_id", "entry_type", "amount_cents", "meta", "idempotency_key", "created_at"}).
		AddRow("led_1", "shp_1", "HOLD", int64(100000), []byte(`{}`), "hold:shp_1", now).
		AddRow("led_2", "shp_1", "FEE", int64(5000), []byte(`{}`), "fee:shp_1", now).
		AddRow("led_3", "shp_1", "REFUND", int64(20000), []byte(`{"partial":true}`), "partial_refund:shp_1:20000", now)

	mock.ExpectQuery("FROM noble.escrow_ledger WHERE shipment_id = \\$1").
		WithArgs("shp_1").
		WillReturnRows(rows)

	entries, err := ds.GetLedgerEntries(context.Background(), "shp_1")
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, model.EntryRefund, entries[2].EntryType)
	assert.Equal(t, true, entries[2].Meta["partial"])

	summary := model.FoldLedger(entries)
	assert.Equal(t, int64(95000), summary.Net)
	assert.Equal(t, int64(20000), summary.Refunded)
}
