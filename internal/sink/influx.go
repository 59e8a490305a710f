package sink

import (
	"context"
	"fmt"

	"flume-exporter/internal/models"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
)

// Sink mirrors flow readings to an external store. The collector treats sink
// failures like per-device failures: logged and skipped, never fatal.
type Sink interface {
	RecordFlow(ctx context.Context, device models.Device, reading models.FlowReading) error
	Close()
}

// InfluxSink writes one point per reading to an InfluxDB bucket.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
}

// NewInfluxSink creates an InfluxSink for the given server and bucket.
func NewInfluxSink(url, token, org, bucket string) *InfluxSink {
	client := influxdb2.NewClient(url, token)
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(org, bucket),
	}
}

// RecordFlow writes the reading as a "water_flow" point tagged by device.
func (s *InfluxSink) RecordFlow(ctx context.Context, device models.Device, reading models.FlowReading) error {
	p := influxdb2.NewPoint(
		"water_flow",
		map[string]string{
			"device_id":   device.ID,
			"device_name": device.Name,
		},
		map[string]interface{}{
			"flow_rate_gpm": reading.GallonsPM,
			"flow_rate_lpm": reading.LitersPM(),
		},
		reading.Timestamp,
	)

	if err := s.writeAPI.WritePoint(ctx, p); err != nil {
		return fmt.Errorf("error writing to InfluxDB: %w", err)
	}
	return nil
}

// Close releases the underlying client.
func (s *InfluxSink) Close() {
	s.client.Close()
}
