package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/nobleverse/noble/internal/apierror"
	"github.com/nobleverse/noble/model"
)

func (d Datasource) CreateTrackingSource(ctx context.Context, source *model.TrackingSource) error {
	meta, err := json.Marshal(source.Meta)
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "failed to marshal tracking source meta", err)
	}
	source.CreatedAt = time.Now().UTC()

	_, err = d.q(ctx).ExecContext(ctx, `
		INSERT INTO noble.tracking_sources (source_id, shipment_id, kind, provider, meta, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, source.SourceID, source.ShipmentID, string(source.Kind), source.Provider, meta, source.CreatedAt)
	if err != nil {
		return mapError(err, "", "failed to create tracking source")
	}
	return nil
}

// IngestTrackingEvent hands the ping to noble.ingest_tracking_event, which
// owns the token check. A token that matches no source of the shipment
// surfaces as FORBIDDEN.
func (d Datasource) IngestTrackingEvent(ctx context.Context, ping model.TrackingPing) (string, error) {
	var eventID string
	row := d.q(ctx).QueryRowContext(ctx, `
		SELECT noble.ingest_tracking_event($1, $2, $3, $4, $5, $6, $7, $8)
	`, ping.Token, ping.ShipmentID, ping.Lat, ping.Lon, ping.Speed, ping.Heading, ping.Accuracy, nullString(ping.Provider))

	if err := row.Scan(&eventID); err != nil {
		return "", mapError(err, "", "failed to ingest tracking event")
	}
	return eventID, nil
}

func (d Datasource) RecordTrackingEvent(ctx context.Context, event *model.TrackingEvent) error {
	if event.Meta == nil {
		event.Meta = map[string]interface{}{}
	}
	meta, err := json.Marshal(event.Meta)
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "failed to marshal tracking event meta", err)
	}
	if event.RecordedAt.IsZero() {
		event.RecordedAt = time.Now().UTC()
	}

	_, err = d.q(ctx).ExecContext(ctx, `
		INSERT INTO noble.tracking_events (event_id, source_id, shipment_id, kind, lat, lon, speed, heading, accuracy, provider, meta, recorded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`, event.EventID, nullString(event.SourceID), event.ShipmentID, event.Kind,
		event.Lat, event.Lon, event.Speed, event.Heading, event.Accuracy,
		nullString(event.Provider), meta, event.RecordedAt)
	if err != nil {
		return mapError(err, "", "failed to record tracking event")
	}
	return nil
}

// GetTrackingEvents returns the newest events first.
func (d Datasource) GetTrackingEvents(ctx context.Context, shipmentID string, limit int) ([]model.TrackingEvent, error) {
	rows, err := d.q(ctx).QueryContext(ctx, `
		SELECT event_id, source_id, shipment_id, kind, lat, lon, speed, heading, accuracy, provider, meta, recorded_at
		FROM noble.tracking_events
		WHERE shipment_id = $1
		ORDER BY recorded_at DESC
		LIMIT $2
	`, shipmentID, limit)
	if err != nil {
		return nil, mapError(err, "", "failed to retrieve tracking events")
	}
	defer rows.Close()

	events := []model.TrackingEvent{}
	for rows.Next() {
		event := model.TrackingEvent{}
		var sourceID, provider sql.NullString
		var lat, lon, speed, heading, accuracy sql.NullFloat64
		var meta []byte

		err = rows.Scan(&event.EventID, &sourceID, &event.ShipmentID, &event.Kind,
			&lat, &lon, &speed, &heading, &accuracy, &provider, &meta, &event.RecordedAt)
		if err != nil {
			return nil, apierror.NewAPIError(apierror.ErrInternalServer, "failed to scan tracking event", err)
		}

		event.SourceID = sourceID.String
		event.Provider = provider.String
		event.Lat, event.Lon = floatPtr(lat), floatPtr(lon)
		event.Speed, event.Heading, event.Accuracy = floatPtr(speed), floatPtr(heading), floatPtr(accuracy)
		if len(meta) > 0 {
			if err = json.Unmarshal(meta, &event.Meta); err != nil {
				return nil, apierror.NewAPIError(apierror.ErrInternalServer, "failed to unmarshal tracking event meta", err)
			}
		}
		events = append(events, event)
	}

	if err = rows.Err(); err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "error occurred while iterating over tracking events", err)
	}
	return events, nil
}
