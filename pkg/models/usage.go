package models

import "time"

// UsageRecord is one per-client usage snapshot taken from the gateway
// daemon's client table. Records are spooled locally and uploaded to the
// backend in batches.
type UsageRecord struct {
	ClientMAC      string    `json:"client_mac"`
	ClientIP       string    `json:"client_ip,omitempty"`
	BytesUp        int64     `json:"bytes_up"`
	BytesDown      int64     `json:"bytes_down"`
	SessionSeconds int64     `json:"session_seconds"`
	CapturedAt     time.Time `json:"captured_at"`
}

// UsageBatch is the wire format for the metrics endpoint. Router and
// contract identity travel in request headers, not the body.
type UsageBatch struct {
	Records []UsageRecord `json:"records"`
}

// NetInfo is the cached network-info document. Raw holds the backend's
// JSON body verbatim; the cache file is only replaced after the response
// passed the success-field check.
type NetInfo struct {
	Raw       []byte    `json:"-"`
	FetchedAt time.Time `json:"-"`
}
