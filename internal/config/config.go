// Package config persists the provisioning configuration: the credentials
// collected at install time plus the derived router identity. The file is
// the durable source of truth for every later run and background job.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// ErrNotProvisioned is returned by Load when no configuration file exists.
var ErrNotProvisioned = errors.New("config: not provisioned")

// Provisioning holds the operator-supplied credentials and the derived
// identity. Written once by install, read by every other subcommand and
// both cron jobs. CreatedAt is kept as RFC 3339 text so the file decodes
// without custom hooks.
type Provisioning struct {
	ContractID string `mapstructure:"contract_id"`
	SecretKey  string `mapstructure:"secret_key"`
	MainServer string `mapstructure:"main_server"`
	WifiSSID   string `mapstructure:"wifi_ssid"`
	RouterID   string `mapstructure:"router_id"`
	AdminMAC   string `mapstructure:"admin_mac"`
	CreatedAt  string `mapstructure:"created_at"`
}

// Validate reports the first hard validation problem, or nil. SecretKey
// length is recommended at 16+ characters but deliberately not enforced.
func (p *Provisioning) Validate() error {
	if strings.TrimSpace(p.ContractID) == "" {
		return errors.New("contract id is required")
	}
	if strings.TrimSpace(p.SecretKey) == "" {
		return errors.New("secret key is required")
	}
	u, err := url.Parse(p.MainServer)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("main server %q is not a valid http(s) URL", p.MainServer)
	}
	if strings.TrimSpace(p.WifiSSID) == "" {
		return errors.New("wifi ssid is required")
	}
	return nil
}

// Load reads the persisted configuration from path.
func Load(path string) (*Provisioning, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotProvisioned
		}
		return nil, fmt.Errorf("stat config %q: %w", path, err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config %q: %w", path, err)
	}

	var p Provisioning
	if err := v.Unmarshal(&p); err != nil {
		return nil, fmt.Errorf("parse config %q: %w", path, err)
	}
	return &p, nil
}

// Save writes the configuration to path with restricted permissions.
// Credentials live in this file, so it must never be group or world
// readable.
func Save(path string, p *Provisioning) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	v := viper.New()
	v.SetConfigType("yaml")
	v.Set("contract_id", p.ContractID)
	v.Set("secret_key", p.SecretKey)
	v.Set("main_server", p.MainServer)
	v.Set("wifi_ssid", p.WifiSSID)
	v.Set("router_id", p.RouterID)
	v.Set("admin_mac", p.AdminMAC)
	created := p.CreatedAt
	if created == "" {
		created = time.Now().UTC().Format(time.RFC3339)
	}
	v.Set("created_at", created)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("write config %q: %w", path, err)
	}
	if err := os.Chmod(path, 0o600); err != nil {
		return fmt.Errorf("restrict config permissions: %w", err)
	}
	return nil
}
