package models

// DevicesResponse is the envelope the vendor wraps the device list in.
type DevicesResponse struct {
	Data []Device `json:"data"`
}

// QueryRequest is one entry in the body posted to the per-device query
// endpoint. The vendor caps a single query at 1440 points, so requests
// always ask for the most recent bucket only (Limit 1, descending).
type QueryRequest struct {
	RequestID     string `json:"request_id"`
	Bucket        string `json:"bucket"`
	SinceDatetime string `json:"since_datetime"`
	Operation     string `json:"operation"`
	Units         string `json:"units"`
	SortDirection string `json:"sort_direction"`
	Limit         int    `json:"limit"`
}

// QueryBody wraps the query list the vendor expects.
type QueryBody struct {
	Queries []QueryRequest `json:"queries"`
}

// QueryPoint is a single time/value pair from a query result.
type QueryPoint struct {
	Datetime string  `json:"datetime"`
	Value    float64 `json:"value"`
}

// QueryResponse maps request_id to the returned points.
type QueryResponse struct {
	Data []map[string][]QueryPoint `json:"data"`
}
