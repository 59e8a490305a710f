package models

import "time"

// Device is a read-only snapshot of one Flume device as returned by the
// devices endpoint. It is refetched every tick and never persisted.
type Device struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Location    string `json:"location"`
	ProductType string `json:"type"`
	Connected   bool   `json:"connected"`
}

// FlowReading represents the most recent flow-rate sample for a device.
// Each tick overwrites the previous reading; no history is kept in-process.
type FlowReading struct {
	DeviceID  string    `json:"device_id"`
	GallonsPM float64   `json:"flow_rate_gpm"`
	Timestamp time.Time `json:"timestamp"`
}

// LitersPM converts the reading to liters per minute.
func (r FlowReading) LitersPM() float64 {
	return r.GallonsPM * 3.78541
}
