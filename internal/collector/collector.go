package collector

import (
	"context"
	"sync"
	"time"

	"flume-exporter/internal/logger"
	"flume-exporter/internal/metrics"
	"flume-exporter/internal/models"
	"flume-exporter/internal/sink"
)

// API is the slice of the Flume client the collector needs. Tests substitute
// a fake.
type API interface {
	Devices(ctx context.Context) ([]models.Device, error)
	FlowRate(ctx context.Context, deviceID string) (models.FlowReading, error)
	DailyConsumption(ctx context.Context, deviceID string) (float64, error)
	MonthlyConsumption(ctx context.Context, deviceID string) (float64, error)
}

// Collector periodically enumerates devices and publishes their latest flow
// readings to the metrics registry. A failed tick leaves the previously
// published values in place; nothing in a tick can crash the process.
type Collector struct {
	api      API
	registry *metrics.Registry
	sink     sink.Sink // optional, may be nil
	interval time.Duration
}

// New creates a Collector. sink may be nil.
func New(api API, registry *metrics.Registry, snk sink.Sink, interval time.Duration) *Collector {
	return &Collector{
		api:      api,
		registry: registry,
		sink:     snk,
		interval: interval,
	}
}

// Start runs an immediate first tick, then one tick per interval, on a single
// goroutine so ticks never overlap. It returns a function that stops the
// loop; calling it more than once is safe.
func (c *Collector) Start() (stop func()) {
	done := make(chan struct{})
	var once sync.Once
	ticker := time.NewTicker(c.interval)

	go func() {
		defer ticker.Stop()
		c.tick(context.Background())
		for {
			select {
			case <-ticker.C:
				c.tick(context.Background())
			case <-done:
				return
			}
		}
	}()

	return func() {
		once.Do(func() { close(done) })
	}
}

// tick is one fetch-and-publish cycle. A device list failure skips the whole
// tick; a per-device failure skips that device only.
func (c *Collector) tick(ctx context.Context) {
	devices, err := c.api.Devices(ctx)
	if err != nil {
		logger.Errorf("Device listing failed, skipping this tick: %v", err)
		return
	}

	published := 0
	for _, d := range devices {
		reading, err := c.api.FlowRate(ctx, d.ID)
		if err != nil {
			logger.Warnf("Skipping device %s (%s): %v", d.ID, d.Name, err)
			continue
		}

		c.registry.SetFlowRate(d.ID, d.Name, reading)
		c.registry.SetDeviceInfo(d)
		published++

		// Consumption failures leave the flow reading published.
		if gallons, err := c.api.DailyConsumption(ctx, d.ID); err != nil {
			logger.Warnf("Daily consumption unavailable for device %s: %v", d.ID, err)
		} else {
			c.registry.SetDailyConsumption(d.ID, d.Name, gallons)
		}
		if gallons, err := c.api.MonthlyConsumption(ctx, d.ID); err != nil {
			logger.Warnf("Monthly consumption unavailable for device %s: %v", d.ID, err)
		} else {
			c.registry.SetMonthlyConsumption(d.ID, d.Name, gallons)
		}

		if c.sink != nil {
			if err := c.sink.RecordFlow(ctx, d, reading); err != nil {
				logger.Warnf("Failed to mirror reading for device %s: %v", d.ID, err)
			}
		}
	}

	c.registry.SetLastSuccess(time.Now())
	logger.Infof("Collection tick published %d of %d devices", published, len(devices))
}
