// Package uci wraps OpenWrt's Unified Configuration Interface. All system
// configuration on the target (nodogsplash, wireless, firewall) is read and
// written through a Store so the transaction engine never touches /etc/config
// files directly.
package uci

import (
	"context"
	"errors"
	"strings"
)

// ErrEntryNotFound is returned by Get when the requested key does not exist
// in either the staged changes or the committed configuration.
var ErrEntryNotFound = errors.New("uci: entry not found")

// Store abstracts uci state access. Keys use the dotted uci notation,
// e.g. "nodogsplash.@nodogsplash[0].enabled" or "wireless.@wifi-iface[0].ssid".
// Mutations are staged; nothing reaches the config artifact until Commit.
type Store interface {
	// Get returns the staged value for key, falling back to the committed one.
	Get(ctx context.Context, key string) (string, error)
	// Set stages a scalar option value.
	Set(ctx context.Context, key, value string) error
	// AddList stages an append to a list option.
	AddList(ctx context.Context, key, value string) error
	// DelList stages removal of a single value from a list option.
	DelList(ctx context.Context, key, value string) error
	// Delete stages removal of an option (scalar or entire list).
	Delete(ctx context.Context, key string) error
	// Commit flushes staged changes for one config to its artifact file.
	Commit(ctx context.Context, config string) error
	// Revert discards staged, uncommitted changes for one config.
	Revert(ctx context.Context, config string) error
	// ArtifactPath returns the filesystem path of a config's artifact,
	// whether or not it exists yet.
	ArtifactPath(config string) string
}

// ConfigOf extracts the config name from a dotted key:
// "nodogsplash.@nodogsplash[0].enabled" -> "nodogsplash".
func ConfigOf(key string) string {
	if i := strings.IndexByte(key, '.'); i >= 0 {
		return key[:i]
	}
	return key
}
