package main

import (
	"context"
	"testing"

	"go.uber.org/zap"

	"github.com/zonenet/splashgate/internal/config"
)

func TestFillCredentialsPromptsOnlyMissing(t *testing.T) {
	cfg := &config.Provisioning{
		ContractID: "C-1042",
		MainServer: "https://portal.example.net",
	}
	// Only the secret key and SSID are missing, so exactly two answers
	// are consumed, in declaration order.
	p := scriptedPrompter(t, "s3cr3t\nGuest WiFi\n", false)
	fillCredentials(p, cfg)

	if cfg.ContractID != "C-1042" {
		t.Errorf("ContractID = %q, want flag value kept", cfg.ContractID)
	}
	if cfg.SecretKey != "s3cr3t" {
		t.Errorf("SecretKey = %q, want %q", cfg.SecretKey, "s3cr3t")
	}
	if cfg.MainServer != "https://portal.example.net" {
		t.Errorf("MainServer = %q, want flag value kept", cfg.MainServer)
	}
	if cfg.WifiSSID != "Guest WiFi" {
		t.Errorf("WifiSSID = %q, want %q", cfg.WifiSSID, "Guest WiFi")
	}
}

func TestFillCredentialsNoInputLeavesBlanks(t *testing.T) {
	cfg := &config.Provisioning{ContractID: "C-1042"}
	p := scriptedPrompter(t, "never read\n", true)
	fillCredentials(p, cfg)

	if cfg.SecretKey != "" || cfg.MainServer != "" || cfg.WifiSSID != "" {
		t.Errorf("blank fields filled in no-input mode: %+v", cfg)
	}
	if err := cfg.Validate(); err == nil {
		t.Error("Validate() = nil, want error for missing credentials")
	}
}

func TestResolveAdminCanonicalizesExplicitMAC(t *testing.T) {
	cfg := &config.Provisioning{AdminMAC: "AA-BB-CC-DD-EE-FF"}
	p := scriptedPrompter(t, "", true)
	if err := resolveAdmin(context.Background(), zap.NewNop(), p, cfg); err != nil {
		t.Fatalf("resolveAdmin() error = %v", err)
	}
	if cfg.AdminMAC != "aa:bb:cc:dd:ee:ff" {
		t.Errorf("AdminMAC = %q, want canonical form", cfg.AdminMAC)
	}
}

func TestResolveAdminRejectsBadExplicitMAC(t *testing.T) {
	cfg := &config.Provisioning{AdminMAC: "not-a-mac"}
	p := scriptedPrompter(t, "", true)
	if err := resolveAdmin(context.Background(), zap.NewNop(), p, cfg); err == nil {
		t.Error("resolveAdmin() = nil, want error for invalid MAC")
	}
}
