package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/zonenet/splashgate/internal/config"
)

func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	in := &config.Provisioning{
		ContractID: "CT-12345",
		SecretKey:  "s3cret-key-0123456789",
		MainServer: "https://portal.example.net",
		WifiSSID:   "Zone Free WiFi",
		RouterID:   "ZN-0A1B2C3D4E5F",
		AdminMAC:   "aa:bb:cc:dd:ee:ff",
	}

	if err := config.Save(path, in); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	out, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if out.ContractID != in.ContractID {
		t.Errorf("ContractID = %q, want %q", out.ContractID, in.ContractID)
	}
	if out.SecretKey != in.SecretKey {
		t.Errorf("SecretKey = %q, want %q", out.SecretKey, in.SecretKey)
	}
	if out.MainServer != in.MainServer {
		t.Errorf("MainServer = %q, want %q", out.MainServer, in.MainServer)
	}
	if out.RouterID != in.RouterID {
		t.Errorf("RouterID = %q, want %q", out.RouterID, in.RouterID)
	}
	if out.AdminMAC != in.AdminMAC {
		t.Errorf("AdminMAC = %q, want %q", out.AdminMAC, in.AdminMAC)
	}
	if out.CreatedAt == "" {
		t.Error("CreatedAt not filled in on save")
	}
}

func TestSaveRestrictsPermissions(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("file modes not meaningful on windows")
	}
	path := filepath.Join(t.TempDir(), "config.yaml")
	in := &config.Provisioning{
		ContractID: "CT-1",
		SecretKey:  "k",
		MainServer: "http://portal.example.net",
		WifiSSID:   "x",
	}
	if err := config.Save(path, in); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat() error = %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("config file mode = %o, want 600", perm)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if !errors.Is(err, config.ErrNotProvisioned) {
		t.Errorf("Load() on missing file = %v, want ErrNotProvisioned", err)
	}
}

func TestValidate(t *testing.T) {
	valid := config.Provisioning{
		ContractID: "CT-9",
		SecretKey:  "0123456789abcdef",
		MainServer: "https://portal.example.net",
		WifiSSID:   "Zone",
	}

	tests := []struct {
		name    string
		mutate  func(*config.Provisioning)
		wantErr bool
	}{
		{"valid", func(p *config.Provisioning) {}, false},
		{"blank contract id", func(p *config.Provisioning) { p.ContractID = "  " }, true},
		{"empty secret", func(p *config.Provisioning) { p.SecretKey = "" }, true},
		{"bad server scheme", func(p *config.Provisioning) { p.MainServer = "ftp://portal.example.net" }, true},
		{"server without host", func(p *config.Provisioning) { p.MainServer = "https://" }, true},
		{"server not a url", func(p *config.Provisioning) { p.MainServer = "not a url" }, true},
		{"empty ssid", func(p *config.Provisioning) { p.WifiSSID = "" }, true},
		{"short secret accepted", func(p *config.Provisioning) { p.SecretKey = "abc" }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := valid
			tt.mutate(&p)
			err := p.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestDefaultLayout(t *testing.T) {
	l := config.DefaultLayout()
	if l.ConfigFile != "/etc/splashgate/config.yaml" {
		t.Errorf("ConfigFile = %q, want /etc/splashgate/config.yaml", l.ConfigFile)
	}
	if got := l.InstallLog(); got != "/usr/share/splashgate/install.log" {
		t.Errorf("InstallLog() = %q, want /usr/share/splashgate/install.log", got)
	}
	if got := l.UCIArtifact("nodogsplash"); got != "/etc/config/nodogsplash" {
		t.Errorf("UCIArtifact(nodogsplash) = %q, want /etc/config/nodogsplash", got)
	}
}
