package provision

import (
	"strings"
	"testing"

	"github.com/zonenet/splashgate/internal/conftx"
)

func TestGatewayBatchMarksIdentityCritical(t *testing.T) {
	b := GatewayBatch("ZN-0A1B2C3D4E5F", "/www/splash")

	var nameMutation *conftx.Mutation
	for i := range b.Mutations {
		if strings.HasSuffix(b.Mutations[i].Key, ".gatewayname") {
			nameMutation = &b.Mutations[i]
		} else if b.Mutations[i].MustSucceed {
			t.Errorf("mutation %s should be best-effort", b.Mutations[i].Key)
		}
	}
	if nameMutation == nil {
		t.Fatal("gateway batch has no gatewayname mutation")
	}
	if !nameMutation.MustSucceed {
		t.Error("gatewayname must be a must-succeed mutation")
	}
	if nameMutation.Value != "ZN-0A1B2C3D4E5F" {
		t.Errorf("gatewayname = %q, want router id", nameMutation.Value)
	}
}

func TestFirewallBatchClearsBeforeAdding(t *testing.T) {
	b := FirewallBatch()

	// A list must be deleted before anything is re-added to it, or
	// re-running an install would stack duplicates.
	added := make(map[string]bool)
	for _, m := range b.Mutations {
		switch m.Op {
		case conftx.OpAddList:
			added[m.Key] = true
		case conftx.OpDelete:
			if added[m.Key] {
				t.Errorf("delete of %s comes after add_list", m.Key)
			}
		}
	}
	if len(added) != 3 {
		t.Errorf("firewall batch touches %d lists, want 3", len(added))
	}
	for key := range added {
		cleared := false
		for _, m := range b.Mutations {
			if m.Op == conftx.OpDelete && m.Key == key {
				cleared = true
			}
		}
		if !cleared {
			t.Errorf("list %s is never cleared", key)
		}
	}
}

func TestWhitelistBatchTrustsAdminDevice(t *testing.T) {
	b := WhitelistBatch("aa:bb:cc:dd:ee:ff")

	var add *conftx.Mutation
	for i := range b.Mutations {
		if b.Mutations[i].Op == conftx.OpAddList {
			add = &b.Mutations[i]
		}
	}
	if add == nil {
		t.Fatal("whitelist batch has no add_list mutation")
	}
	if add.Value != "aa:bb:cc:dd:ee:ff" {
		t.Errorf("trustedmac = %q, want admin MAC", add.Value)
	}
	if !add.MustSucceed {
		t.Error("whitelisting the admin device must succeed or the phase must roll back")
	}
}

func TestWirelessBatchTargetsWirelessConfig(t *testing.T) {
	b := WirelessBatch("CoffeeShop Guest")
	configs := b.Configs()
	if len(configs) != 1 || configs[0] != "wireless" {
		t.Errorf("wireless batch configs = %v, want [wireless]", configs)
	}

	foundSSID := false
	for _, m := range b.Mutations {
		if strings.HasSuffix(m.Key, ".ssid") {
			foundSSID = true
			if m.Value != "CoffeeShop Guest" {
				t.Errorf("ssid = %q, want operator value", m.Value)
			}
			if !m.MustSucceed {
				t.Error("ssid mutation must succeed")
			}
		}
	}
	if !foundSSID {
		t.Error("wireless batch has no ssid mutation")
	}
}

func TestTeardownBatchDisablesGateway(t *testing.T) {
	b := TeardownBatch()
	for _, m := range b.Mutations {
		if m.MustSucceed {
			t.Errorf("teardown mutation %s must stay best-effort", m.Key)
		}
	}

	var enabled *conftx.Mutation
	for i := range b.Mutations {
		if strings.HasSuffix(b.Mutations[i].Key, ".enabled") {
			enabled = &b.Mutations[i]
		}
	}
	if enabled == nil || enabled.Value != "0" {
		t.Fatalf("teardown must set enabled=0, got %+v", enabled)
	}
}
