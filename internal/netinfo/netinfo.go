// Package netinfo maintains the local cache of the backend's network-info
// document. The splash page reads this cache, so it is replaced atomically
// and only with responses that pass validation; a bad response can never
// clobber a good cache.
package netinfo

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/zonenet/splashgate/pkg/models"
)

// Source fetches the raw network-info document.
type Source interface {
	FetchNetInfo(ctx context.Context) ([]byte, error)
}

// Valid reports whether data is an acceptable network-info document: a JSON
// object whose top-level success field is true, in either boolean or
// stringified encoding.
func Valid(data []byte) bool {
	var doc struct {
		Success any `json:"success"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return false
	}
	switch v := doc.Success.(type) {
	case bool:
		return v
	case string:
		return strings.EqualFold(v, "true")
	default:
		return false
	}
}

// Refresher keeps the cache file current.
type Refresher struct {
	source    Source
	cachePath string
	log       *zap.Logger
}

// NewRefresher creates a Refresher writing to cachePath.
func NewRefresher(log *zap.Logger, source Source, cachePath string) *Refresher {
	return &Refresher{source: source, cachePath: cachePath, log: log}
}

// Refresh fetches the document and, when valid, atomically replaces the
// cache. Invalid or unreachable responses are discarded and the existing
// cache stays as it was.
func (r *Refresher) Refresh(ctx context.Context) error {
	data, err := r.source.FetchNetInfo(ctx)
	if err != nil {
		return fmt.Errorf("fetch netinfo: %w", err)
	}
	if !Valid(data) {
		return fmt.Errorf("netinfo response rejected, cache left untouched")
	}

	tmp := r.cachePath + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write netinfo temp: %w", err)
	}
	if err := os.Rename(tmp, r.cachePath); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replace netinfo cache: %w", err)
	}
	r.log.Info("netinfo cache refreshed", zap.Int("bytes", len(data)))
	return nil
}

// Cached returns the current cache contents and their fetch time.
func (r *Refresher) Cached() (models.NetInfo, error) {
	data, err := os.ReadFile(r.cachePath)
	if err != nil {
		return models.NetInfo{}, fmt.Errorf("read netinfo cache: %w", err)
	}
	info, err := os.Stat(r.cachePath)
	if err != nil {
		return models.NetInfo{}, fmt.Errorf("stat netinfo cache: %w", err)
	}
	return models.NetInfo{Raw: data, FetchedAt: info.ModTime()}, nil
}
