package database

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/nobleverse/noble/internal/apierror"
	"github.com/nobleverse/noble/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wacul/ptr"
)

func TestIngestTrackingEvent_Success(t *testing.T) {
	ds, mock := newMockDatasource(t)
	ping := model.TrackingPing{Token: "tok", ShipmentID: "shp_1", Lat: 6.45, Lon: 3.39, Speed: ptr.Float64(42)}

	mock.ExpectQuery("SELECT noble.ingest_tracking_event").
		WithArgs("tok", "shp_1", 6.45, 3.39, 42.0, nil, nil, nil).
		WillReturnRows(sqlmock.NewRows([]string{"ingest_tracking_event"}).AddRow("trk_1"))

	eventID, err := ds.IngestTrackingEvent(context.Background(), ping)
	assert.NoError(t, err)
	assert.Equal(t, "trk_1", eventID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIngestTrackingEvent_TokenMismatch(t *testing.T) {
	ds, mock := newMockDatasource(t)

	mock.ExpectQuery("SELECT noble.ingest_tracking_event").
		WillReturnError(&pq.Error{Code: "28000", Message: "invalid tracking token"})

	_, err := ds.IngestTrackingEvent(context.Background(), model.TrackingPing{Token: "wrong", ShipmentID: "shp_1"})
	assert.True(t, apierror.HasCode(err, apierror.ErrForbidden))
}

func TestCreateTrackingSource(t *testing.T) {
	ds, mock := newMockDatasource(t)
	source := &model.TrackingSource{
		SourceID:   "src_1",
		ShipmentID: "shp_1",
		Kind:       model.SourceSea,
		Provider:   "marinetraffic",
		Meta:       map[string]interface{}{"token": "secret"},
	}

	mock.ExpectExec("INSERT INTO noble.tracking_sources").
		WithArgs("src_1", "shp_1", "sea", "marinetraffic", []byte(`{"token":"secret"}`), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	assert.NoError(t, ds.CreateTrackingSource(context.Background(), source))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordTrackingEvent_Scan(t *testing.T) {
	ds, mock := newMockDatasource(t)
	event := &model.TrackingEvent{EventID: "trk_2", ShipmentID: "shp_1", Kind: model.EventScan}

	mock.ExpectExec("INSERT INTO noble.tracking_events").
		WithArgs("trk_2", nil, "shp_1", "scan", nil, nil, nil, nil, nil, nil, []byte(`{}`), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	assert.NoError(t, ds.RecordTrackingEvent(context.Background(), event))
	assert.False(t, event.RecordedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetTrackingEvents(t *testing.T) {
	ds, mock := newMockDatasource(t)
	now := time.Now()

	rows := sqlmock.NewRows([]string{"event_id", "source_id", "shipment_id", "kind", "lat", "lon", "speed", "heading", "accuracy", "provider", "meta", "recorded_at"}).
		AddRow("trk_2", nil, "shp_1", "scan", nil, nil, nil, nil, nil, nil, []byte(`{"hub":"LOS"}`), now).
		AddRow("trk_1", "src_1", "shp_1", "position", 6.45, 3.39, 40.5, nil, 5.0, "gps", []byte(`{}`), now.Add(-time.Minute))

	mock.ExpectQuery("FROM noble.tracking_events").
		WithArgs("shp_1", 20).
		WillReturnRows(rows)

	events, err := ds.GetTrackingEvents(context.Background(), "shp_1", 20)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Nil(t, events[0].Lat)
	assert.Equal(t, "LOS", events[0].Meta["hub"])
	assert.Equal(t, 6.45, *events[1].Lat)
	assert.Nil(t, events[1].Heading)
	assert.Equal(t, "src_1", events[1].SourceID)
}
