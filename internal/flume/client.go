package flume

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"flume-exporter/internal/metrics"
	"flume-exporter/internal/models"

	"github.com/go-resty/resty/v2"
)

const (
	endpointDevices = "devices"
	endpointQuery   = "query"

	// The vendor timestamps query buckets in this layout.
	queryTimeLayout = "2006-01-02 15:04:05"
)

// Client talks to the Flume REST API using bearer tokens from the
// TokenManager. Every call is counted and timed on the metrics registry.
// The client does no backoff of its own; the collection interval is the
// rate limiter.
type Client struct {
	tokens  *TokenManager
	http    *resty.Client
	metrics *metrics.Registry
}

// NewClient creates a Client for the given base URL.
func NewClient(tokens *TokenManager, baseURL string, timeout time.Duration, reg *metrics.Registry) *Client {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json")

	return &Client{
		tokens:  tokens,
		http:    client,
		metrics: reg,
	}
}

// Devices lists the account's devices.
func (c *Client) Devices(ctx context.Context) ([]models.Device, error) {
	token, err := c.tokens.AccessToken(ctx)
	if err != nil {
		c.metrics.IncError(endpointDevices, models.ErrorKindAuth)
		return nil, err
	}

	var out models.DevicesResponse
	start := time.Now()
	resp, err := c.http.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetResult(&out).
		Get("/users/me/devices")
	c.metrics.ObserveRequest(endpointDevices, time.Since(start))

	if err := c.checkResponse(endpointDevices, resp, err); err != nil {
		return nil, err
	}
	return out.Data, nil
}

// FlowRate fetches the most recent one-minute flow bucket for a device.
func (c *Client) FlowRate(ctx context.Context, deviceID string) (models.FlowReading, error) {
	points, err := c.runQuery(ctx, deviceID, "MIN", time.Now().Add(-time.Hour))
	if err != nil {
		return models.FlowReading{}, err
	}

	reading := models.FlowReading{DeviceID: deviceID, Timestamp: time.Now()}
	if len(points) == 0 {
		// No bucket yet for the current minute; the device is idle.
		return reading, nil
	}

	reading.GallonsPM = points[0].Value
	if ts, err := time.Parse(queryTimeLayout, points[0].Datetime); err == nil {
		reading.Timestamp = ts
	}
	return reading, nil
}

// DailyConsumption returns the gallons consumed since local midnight.
func (c *Client) DailyConsumption(ctx context.Context, deviceID string) (float64, error) {
	now := time.Now()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	return c.consumption(ctx, deviceID, "DAY", midnight)
}

// MonthlyConsumption returns the gallons consumed since the first of the
// current month.
func (c *Client) MonthlyConsumption(ctx context.Context, deviceID string) (float64, error) {
	now := time.Now()
	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	return c.consumption(ctx, deviceID, "MON", first)
}

func (c *Client) consumption(ctx context.Context, deviceID, bucket string, since time.Time) (float64, error) {
	points, err := c.runQuery(ctx, deviceID, bucket, since)
	if err != nil {
		return 0, err
	}
	if len(points) == 0 {
		return 0, nil
	}
	return points[0].Value, nil
}

// runQuery posts a single-point query for the device: latest bucket only,
// sorted descending. The vendor caps a query at 1440 points, so the full
// history is never requested.
func (c *Client) runQuery(ctx context.Context, deviceID, bucket string, since time.Time) ([]models.QueryPoint, error) {
	token, err := c.tokens.AccessToken(ctx)
	if err != nil {
		c.metrics.IncError(endpointQuery, models.ErrorKindAuth)
		return nil, err
	}

	const requestID = "latest"
	body := models.QueryBody{
		Queries: []models.QueryRequest{{
			RequestID:     requestID,
			Bucket:        bucket,
			SinceDatetime: since.Format(queryTimeLayout),
			Operation:     "SUM",
			Units:         "GALLONS",
			SortDirection: "DESC",
			Limit:         1,
		}},
	}

	var out models.QueryResponse
	start := time.Now()
	resp, err := c.http.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetBody(body).
		SetResult(&out).
		Post(fmt.Sprintf("/users/me/devices/%s/query", deviceID))
	c.metrics.ObserveRequest(endpointQuery, time.Since(start))

	if err := c.checkResponse(endpointQuery, resp, err); err != nil {
		return nil, err
	}
	if len(out.Data) == 0 {
		c.metrics.IncError(endpointQuery, models.ErrorKindMalformed)
		return nil, &models.APIError{
			Endpoint: endpointQuery,
			Kind:     models.ErrorKindMalformed,
			Message:  "query response contained no result set",
		}
	}
	return out.Data[0][requestID], nil
}

// checkResponse maps transport and HTTP failures into the error taxonomy,
// counting each on the registry. A 401 invalidates the cached token so the
// next tick re-authenticates.
func (c *Client) checkResponse(endpoint string, resp *resty.Response, err error) error {
	if err != nil {
		c.metrics.IncError(endpoint, models.ErrorKindNetwork)
		return &models.APIError{
			Endpoint: endpoint,
			Kind:     models.ErrorKindNetwork,
			Message:  err.Error(),
		}
	}
	if resp.StatusCode() == http.StatusUnauthorized {
		c.tokens.Invalidate()
		c.metrics.IncError(endpoint, models.ErrorKindAuth)
		return &models.AuthError{
			Op:         endpoint,
			StatusCode: resp.StatusCode(),
			Message:    strings.TrimSpace(string(resp.Body())),
		}
	}
	if resp.IsError() {
		c.metrics.IncError(endpoint, models.ErrorKindHTTP)
		return &models.APIError{
			Endpoint:   endpoint,
			Kind:       models.ErrorKindHTTP,
			StatusCode: resp.StatusCode(),
			Message:    strings.TrimSpace(string(resp.Body())),
		}
	}
	return nil
}
