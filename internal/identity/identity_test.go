package identity

import (
	"regexp"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/zonenet/splashgate/pkg/models"
)

var idPattern = regexp.MustCompile(`^ZN-[0-9A-F]{12}$`)

func TestDeriveIDFormat(t *testing.T) {
	id := DeriveID("aa:bb:cc:dd:ee:ff")
	if !idPattern.MatchString(id) {
		t.Errorf("DeriveID() = %q, want ZN- followed by 12 uppercase hex characters", id)
	}
}

func TestDeriveIDDeterministic(t *testing.T) {
	a := DeriveID("aa:bb:cc:dd:ee:ff")
	b := DeriveID("aa:bb:cc:dd:ee:ff")
	if a != b {
		t.Errorf("DeriveID() not deterministic: %q vs %q", a, b)
	}

	other := DeriveID("11:22:33:44:55:66")
	if a == other {
		t.Errorf("distinct sources produced the same id %q", a)
	}
}

func TestResolveRouterDeterministic(t *testing.T) {
	log := zap.NewNop()
	first := ResolveRouter(log)
	second := ResolveRouter(log)

	if first.ID == "" {
		t.Fatal("ResolveRouter() returned empty id")
	}
	if !idPattern.MatchString(first.ID) {
		t.Errorf("ResolveRouter() id = %q, want ZN-<12 hex> form", first.ID)
	}

	// The clock fallback is the only non-repeatable source; on any real test
	// host an interface or hostname exists, making resolution stable.
	if first.Source != models.IdentityFromClock && first.ID != second.ID {
		t.Errorf("ResolveRouter() unstable: %q then %q", first.ID, second.ID)
	}
	if first.SourceAddress == "" {
		t.Error("ResolveRouter() returned empty source address")
	}
}

func TestDeriveIDPrefixIsUpper(t *testing.T) {
	id := DeriveID("host-1234")
	body := strings.TrimPrefix(id, models.IDPrefix)
	if body != strings.ToUpper(body) {
		t.Errorf("id body %q not upper-cased", body)
	}
}
