package flume

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"flume-exporter/internal/metrics"
	"flume-exporter/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newVendorServer fakes the token, devices and query endpoints. Handlers for
// the data endpoints can be swapped per test.
func newVendorServer(t *testing.T, devices http.HandlerFunc, query http.HandlerFunc) *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth2/token", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(models.TokenResponse{
			AccessToken:  "test-token",
			RefreshToken: "test-refresh",
			ExpiresIn:    3600,
		})
	})
	if devices != nil {
		mux.HandleFunc("/users/me/devices", devices)
	}
	if query != nil {
		mux.HandleFunc("/users/me/devices/", query)
	}

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestClient(srv *httptest.Server) (*Client, *metrics.Registry) {
	reg := metrics.NewRegistry()
	tokens := NewTokenManager(testCreds, srv.URL, time.Second)
	return NewClient(tokens, srv.URL, time.Second, reg), reg
}

func TestDevices(t *testing.T) {
	srv := newVendorServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(models.DevicesResponse{Data: []models.Device{
			{ID: "6001", Name: "Main House", Location: "123 Elm St", ProductType: "flume2", Connected: true},
			{ID: "6002", Name: "Guest House", Location: "125 Elm St", ProductType: "flume1", Connected: false},
		}})
	}, nil)

	client, reg := newTestClient(srv)
	devices, err := client.Devices(context.Background())
	require.NoError(t, err)
	require.Len(t, devices, 2)
	assert.Equal(t, "6001", devices[0].ID)
	assert.Equal(t, "Main House", devices[0].Name)
	assert.True(t, devices[0].Connected)
	assert.False(t, devices[1].Connected)

	out, err := reg.Render()
	require.NoError(t, err)
	assert.Contains(t, out, `flume_api_requests_total{endpoint="devices"} 1`)
}

func TestFlowRate(t *testing.T) {
	srv := newVendorServer(t, nil, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.True(t, strings.HasSuffix(r.URL.Path, "/6001/query"))

		var body models.QueryBody
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Len(t, body.Queries, 1)
		assert.Equal(t, 1, body.Queries[0].Limit)
		assert.Equal(t, "DESC", body.Queries[0].SortDirection)
		assert.Equal(t, "MIN", body.Queries[0].Bucket)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(models.QueryResponse{Data: []map[string][]models.QueryPoint{
			{body.Queries[0].RequestID: {{Datetime: "2026-03-14 09:41:00", Value: 3.5}}},
		}})
	})

	client, _ := newTestClient(srv)
	reading, err := client.FlowRate(context.Background(), "6001")
	require.NoError(t, err)
	assert.Equal(t, "6001", reading.DeviceID)
	assert.Equal(t, 3.5, reading.GallonsPM)
	assert.InDelta(t, 13.249, reading.LitersPM(), 0.001)
	assert.Equal(t, 2026, reading.Timestamp.Year())
}

func TestDailyConsumption(t *testing.T) {
	srv := newVendorServer(t, nil, func(w http.ResponseWriter, r *http.Request) {
		var body models.QueryBody
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Len(t, body.Queries, 1)
		assert.Equal(t, "DAY", body.Queries[0].Bucket)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(models.QueryResponse{Data: []map[string][]models.QueryPoint{
			{body.Queries[0].RequestID: {{Datetime: "2026-03-14 00:00:00", Value: 42.5}}},
		}})
	})

	client, _ := newTestClient(srv)
	gallons, err := client.DailyConsumption(context.Background(), "6001")
	require.NoError(t, err)
	assert.Equal(t, 42.5, gallons)
}

func TestFlowRateNoPoints(t *testing.T) {
	srv := newVendorServer(t, nil, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(models.QueryResponse{Data: []map[string][]models.QueryPoint{
			{"latest": {}},
		}})
	})

	client, _ := newTestClient(srv)
	reading, err := client.FlowRate(context.Background(), "6001")
	require.NoError(t, err)
	assert.Zero(t, reading.GallonsPM)
}

func TestDevicesServerError(t *testing.T) {
	srv := newVendorServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream exploded", http.StatusBadGateway)
	}, nil)

	client, reg := newTestClient(srv)
	_, err := client.Devices(context.Background())
	require.Error(t, err)

	var apiErr *models.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadGateway, apiErr.StatusCode)
	assert.Equal(t, models.ErrorKindHTTP, apiErr.Kind)

	out, err := reg.Render()
	require.NoError(t, err)
	assert.Contains(t, out, `flume_api_errors_total{endpoint="devices",error_type="http"} 1`)
}

func TestDevicesUnauthorizedInvalidatesToken(t *testing.T) {
	srv := newVendorServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "token expired", http.StatusUnauthorized)
	}, nil)

	client, _ := newTestClient(srv)
	_, err := client.Devices(context.Background())

	var authErr *models.AuthError
	require.True(t, errors.As(err, &authErr))
	assert.Equal(t, http.StatusUnauthorized, authErr.StatusCode)

	// The cached token must be gone so the next tick re-authenticates.
	assert.Empty(t, client.tokens.token.AccessToken)
}

func TestFlowRateMalformedResponse(t *testing.T) {
	srv := newVendorServer(t, nil, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":[]}`))
	})

	client, _ := newTestClient(srv)
	_, err := client.FlowRate(context.Background(), "6001")

	var apiErr *models.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, models.ErrorKindMalformed, apiErr.Kind)
}
