package testutil

import (
	"time"

	"github.com/zonenet/splashgate/pkg/models"
)

// NewUsageRecord returns a UsageRecord with sensible defaults, suitable for
// test fixtures. Override individual fields after creation as needed.
func NewUsageRecord(opts ...func(*models.UsageRecord)) models.UsageRecord {
	rec := models.UsageRecord{
		ClientMAC:      "aa:bb:cc:dd:ee:ff",
		ClientIP:       "192.168.8.50",
		BytesUp:        1024,
		BytesDown:      4096,
		SessionSeconds: 300,
		CapturedAt:     time.Now().UTC(),
	}
	for _, opt := range opts {
		opt(&rec)
	}
	return rec
}

// WithClientMAC sets the record's client MAC.
func WithClientMAC(mac string) func(*models.UsageRecord) {
	return func(r *models.UsageRecord) { r.ClientMAC = mac }
}

// WithClientIP sets the record's client IP.
func WithClientIP(ip string) func(*models.UsageRecord) {
	return func(r *models.UsageRecord) { r.ClientIP = ip }
}

// WithTraffic sets the record's byte counters.
func WithTraffic(up, down int64) func(*models.UsageRecord) {
	return func(r *models.UsageRecord) {
		r.BytesUp = up
		r.BytesDown = down
	}
}

// WithCapturedAt sets the record's capture time.
func WithCapturedAt(ts time.Time) func(*models.UsageRecord) {
	return func(r *models.UsageRecord) { r.CapturedAt = ts }
}
