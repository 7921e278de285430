package repository

import (
	"context"
	"fmt"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"tagnet/backend/internal/reading/domain"
)

const measurement = "sensor_data"

// latestFlux pulls a sensor's readings most recent first. The sensor id and
// limit are bound via query params, never interpolated into the Flux text.
const latestFlux = `
from(bucket: params.bucket)
  |> range(start: 0)
  |> filter(fn: (r) => r._measurement == "sensor_data" and r.sensor_id == params.sensor)
  |> pivot(rowKey: ["_time"], columnKey: ["_field"], valueColumn: "_value")
  |> sort(columns: ["_time"], desc: true)
  |> limit(n: params.n)
`

// InfluxRepository is a telemetry store backed by InfluxDB.
type InfluxRepository struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	queryAPI api.QueryAPI
	bucket   string
	timeout  time.Duration
}

// NewInfluxRepository returns a telemetry repository writing to the given
// bucket. timeout bounds each store call. Call Close when shutting down.
func NewInfluxRepository(url, token, org, bucket string, timeout time.Duration) *InfluxRepository {
	client := influxdb2.NewClient(url, token)
	return &InfluxRepository{
		client:   client,
		writeAPI: client.WriteAPIBlocking(org, bucket),
		queryAPI: client.QueryAPI(org),
		bucket:   bucket,
		timeout:  timeout,
	}
}

// WriteBatch writes all readings in a single WritePoint call. The client
// sends them as one request; on error the caller retries the whole batch.
func (r *InfluxRepository) WriteBatch(ctx context.Context, readings []*domain.Reading) error {
	if len(readings) == 0 {
		return nil
	}
	points := make([]*write.Point, len(readings))
	for i, rd := range readings {
		points[i] = influxdb2.NewPoint(
			measurement,
			map[string]string{"sensor_id": rd.SensorID},
			map[string]interface{}{
				"data":              rd.Data,
				"rssi":              rd.RSSI,
				"gwmac":             rd.GatewayMAC,
				"gateway_timestamp": rd.GatewayTimestamp,
				"coordinates":       rd.Coordinates,
				"received_at":       rd.ReceivedAt,
			},
			time.UnixMilli(rd.Timestamp).UTC(),
		)
	}

	writeCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	if err := r.writeAPI.WritePoint(writeCtx, points...); err != nil {
		return fmt.Errorf("influx write batch: %w", err)
	}
	return nil
}

// Latest returns up to limit readings for sensorID, most recent first.
func (r *InfluxRepository) Latest(ctx context.Context, sensorID string, limit int) ([]*domain.Reading, error) {
	queryCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	result, err := r.queryAPI.QueryWithParams(queryCtx, latestFlux, struct {
		Bucket string `json:"bucket"`
		Sensor string `json:"sensor"`
		N      int    `json:"n"`
	}{Bucket: r.bucket, Sensor: sensorID, N: limit})
	if err != nil {
		return nil, fmt.Errorf("influx query: %w", err)
	}
	defer result.Close()

	var out []*domain.Reading
	for result.Next() {
		rec := result.Record()
		rd := &domain.Reading{
			SensorID:  sensorID,
			Timestamp: rec.Time().UnixMilli(),
		}
		if v, ok := rec.ValueByKey("data").(string); ok {
			rd.Data = v
		}
		if v, ok := rec.ValueByKey("rssi").(int64); ok {
			rd.RSSI = int(v)
		}
		if v, ok := rec.ValueByKey("gwmac").(string); ok {
			rd.GatewayMAC = v
		}
		if v, ok := rec.ValueByKey("gateway_timestamp").(string); ok {
			rd.GatewayTimestamp = v
		}
		if v, ok := rec.ValueByKey("coordinates").(string); ok {
			rd.Coordinates = v
		}
		if v, ok := rec.ValueByKey("received_at").(int64); ok {
			rd.ReceivedAt = v
		}
		out = append(out, rd)
	}
	if result.Err() != nil {
		return nil, fmt.Errorf("influx query: %w", result.Err())
	}
	return out, nil
}

// Close releases the underlying HTTP client.
func (r *InfluxRepository) Close() {
	r.client.Close()
}
