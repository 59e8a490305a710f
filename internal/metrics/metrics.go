package metrics

import (
	"bytes"
	"net/http"
	"strconv"
	"time"

	"flume-exporter/internal/models"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/common/expfmt"
)

const (
	MetricFlowRate    = "flume_water_flow_rate"
	MetricFlowRateLPM = "flume_water_flow_rate_lpm"
	MetricDeviceInfo  = "flume_device_info"
	MetricDailyUse    = "flume_daily_consumption_gallons"
	MetricMonthlyUse  = "flume_monthly_consumption_gallons"
)

// gaugeDef declares one gauge metric: its name, help text and label names.
// All gauges are created and written through this table so adding a metric
// is a table entry, not a new code path.
type gaugeDef struct {
	name   string
	help   string
	labels []string
}

var gaugeDefs = []gaugeDef{
	{MetricFlowRate, "Current water flow rate in gallons per minute", []string{"device_id", "device_name"}},
	{MetricFlowRateLPM, "Current water flow rate in liters per minute", []string{"device_id", "device_name"}},
	{MetricDeviceInfo, "Information about Flume devices (value is always 1)", []string{"device_id", "device_name", "location", "product_type", "connected"}},
	{MetricDailyUse, "Water consumption since local midnight in gallons", []string{"device_id", "device_name"}},
	{MetricMonthlyUse, "Water consumption since the first of the month in gallons", []string{"device_id", "device_name"}},
}

// Registry owns the exporter's metric series. Writes come from the collector
// loop; reads come from scrape handlers. The prometheus registry makes both
// safe to run concurrently.
type Registry struct {
	reg    *prometheus.Registry
	gauges map[string]*prometheus.GaugeVec

	apiRequests *prometheus.CounterVec
	apiDuration *prometheus.HistogramVec
	apiErrors   *prometheus.CounterVec
	lastSuccess prometheus.Gauge
}

// NewRegistry builds the gauge set from the definition table plus the API
// client's self-observability metrics, all registered on a dedicated
// prometheus registry.
func NewRegistry() *Registry {
	r := &Registry{
		reg:    prometheus.NewRegistry(),
		gauges: make(map[string]*prometheus.GaugeVec, len(gaugeDefs)),
	}

	for _, def := range gaugeDefs {
		g := prometheus.NewGaugeVec(
			prometheus.GaugeOpts{Name: def.name, Help: def.help},
			def.labels,
		)
		r.reg.MustRegister(g)
		r.gauges[def.name] = g
	}

	r.apiRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flume_api_requests_total",
			Help: "Total number of Flume API requests",
		},
		[]string{"endpoint"},
	)
	r.apiDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "flume_api_request_duration_seconds",
			Help:    "Flume API request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)
	r.apiErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flume_api_errors_total",
			Help: "Total number of Flume API errors",
		},
		[]string{"endpoint", "error_type"},
	)
	r.lastSuccess = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "flume_last_collection_success_timestamp_seconds",
		Help: "Unix timestamp of the last fully attempted collection that published data",
	})

	r.reg.MustRegister(r.apiRequests, r.apiDuration, r.apiErrors, r.lastSuccess)
	return r
}

// SetFlowRate upserts the flow-rate series (both units) for a device.
func (r *Registry) SetFlowRate(deviceID, deviceName string, reading models.FlowReading) {
	labels := prometheus.Labels{"device_id": deviceID, "device_name": deviceName}
	r.gauges[MetricFlowRate].With(labels).Set(reading.GallonsPM)
	r.gauges[MetricFlowRateLPM].With(labels).Set(reading.LitersPM())
}

// SetDeviceInfo upserts the device-info series (value 1) with descriptive
// labels. A changed label value creates a new series; old label combinations
// are left published, matching the vendor exporter this replaces.
func (r *Registry) SetDeviceInfo(d models.Device) {
	r.gauges[MetricDeviceInfo].With(prometheus.Labels{
		"device_id":    d.ID,
		"device_name":  d.Name,
		"location":     d.Location,
		"product_type": d.ProductType,
		"connected":    strconv.FormatBool(d.Connected),
	}).Set(1)
}

// SetDailyConsumption upserts the since-midnight consumption series.
func (r *Registry) SetDailyConsumption(deviceID, deviceName string, gallons float64) {
	r.gauges[MetricDailyUse].With(prometheus.Labels{"device_id": deviceID, "device_name": deviceName}).Set(gallons)
}

// SetMonthlyConsumption upserts the month-to-date consumption series.
func (r *Registry) SetMonthlyConsumption(deviceID, deviceName string, gallons float64) {
	r.gauges[MetricMonthlyUse].With(prometheus.Labels{"device_id": deviceID, "device_name": deviceName}).Set(gallons)
}

// ObserveRequest records one API call's duration against the endpoint label.
func (r *Registry) ObserveRequest(endpoint string, d time.Duration) {
	r.apiRequests.WithLabelValues(endpoint).Inc()
	r.apiDuration.WithLabelValues(endpoint).Observe(d.Seconds())
}

// IncError counts one API failure by endpoint and error type.
func (r *Registry) IncError(endpoint string, kind models.ErrorKind) {
	r.apiErrors.WithLabelValues(endpoint, string(kind)).Inc()
}

// SetLastSuccess records when the collector last published data.
func (r *Registry) SetLastSuccess(t time.Time) {
	r.lastSuccess.Set(float64(t.Unix()))
}

// Render returns the exposition-format text snapshot of all series. Safe to
// call concurrently with writers; two renders with no intervening writes
// produce identical output.
func (r *Registry) Render() (string, error) {
	families, err := r.reg.Gather()
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	enc := expfmt.NewEncoder(&buf, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range families {
		if err := enc.Encode(mf); err != nil {
			return "", err
		}
	}
	return buf.String(), nil
}

// Handler returns the scrape handler for this registry.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}
