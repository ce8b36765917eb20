package uci

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"
)

// fakeRunner replays canned outputs keyed by the joined argument list.
type fakeRunner struct {
	calls [][]string
	out   map[string]string
	errs  map[string]error
}

func (f *fakeRunner) Run(_ context.Context, args ...string) ([]byte, error) {
	f.calls = append(f.calls, args)
	key := strings.Join(args, " ")
	return []byte(f.out[key]), f.errs[key]
}

func newFakeStore(f *fakeRunner) *ExecStore {
	return NewExecStoreWithRunner(zap.NewNop(), "/etc/config", f)
}

func TestExecStoreGet(t *testing.T) {
	f := &fakeRunner{out: map[string]string{
		"get wireless.@wifi-iface[0].ssid": "Zone Free WiFi\n",
	}}
	s := newFakeStore(f)

	got, err := s.Get(context.Background(), "wireless.@wifi-iface[0].ssid")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got != "Zone Free WiFi" {
		t.Errorf("Get() = %q, want %q", got, "Zone Free WiFi")
	}
}

func TestExecStoreGetNotFound(t *testing.T) {
	f := &fakeRunner{
		out:  map[string]string{"get nodogsplash.missing": "uci: Entry not found\n"},
		errs: map[string]error{"get nodogsplash.missing": errors.New("exit status 1")},
	}
	s := newFakeStore(f)

	_, err := s.Get(context.Background(), "nodogsplash.missing")
	if !errors.Is(err, ErrEntryNotFound) {
		t.Errorf("Get() missing key = %v, want ErrEntryNotFound", err)
	}
}

func TestExecStoreSet(t *testing.T) {
	f := &fakeRunner{}
	s := newFakeStore(f)

	key := "nodogsplash.@nodogsplash[0].gatewayname"
	if err := s.Set(context.Background(), key, "ZN-0A1B2C3D4E5F"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if len(f.calls) != 1 {
		t.Fatalf("runner called %d times, want 1", len(f.calls))
	}
	want := []string{"set", key + "=ZN-0A1B2C3D4E5F"}
	if got := f.calls[0]; !equalArgs(got, want) {
		t.Errorf("uci args = %v, want %v", got, want)
	}
}

func TestExecStoreAddList(t *testing.T) {
	f := &fakeRunner{}
	s := newFakeStore(f)

	key := "nodogsplash.@nodogsplash[0].users_to_router"
	if err := s.AddList(context.Background(), key, "allow tcp port 2050"); err != nil {
		t.Fatalf("AddList() error = %v", err)
	}
	want := []string{"add_list", key + "=allow tcp port 2050"}
	if got := f.calls[0]; !equalArgs(got, want) {
		t.Errorf("uci args = %v, want %v", got, want)
	}
}

func TestExecStoreDeleteMissingIsNotAnError(t *testing.T) {
	f := &fakeRunner{
		out:  map[string]string{"delete nodogsplash.gone": "uci: Entry not found\n"},
		errs: map[string]error{"delete nodogsplash.gone": errors.New("exit status 1")},
	}
	s := newFakeStore(f)

	if err := s.Delete(context.Background(), "nodogsplash.gone"); err != nil {
		t.Errorf("Delete() on missing key = %v, want nil", err)
	}
}

func TestExecStoreCommitFailure(t *testing.T) {
	f := &fakeRunner{
		out:  map[string]string{"commit nodogsplash": "uci: I/O error\n"},
		errs: map[string]error{"commit nodogsplash": errors.New("exit status 1")},
	}
	s := newFakeStore(f)

	err := s.Commit(context.Background(), "nodogsplash")
	if err == nil {
		t.Fatal("Commit() error = nil, want failure")
	}
	if !strings.Contains(err.Error(), "I/O error") {
		t.Errorf("Commit() error %q does not carry uci output", err)
	}
}

func TestExecStoreArtifactPath(t *testing.T) {
	s := newFakeStore(&fakeRunner{})
	if got := s.ArtifactPath("wireless"); got != "/etc/config/wireless" {
		t.Errorf("ArtifactPath() = %q, want /etc/config/wireless", got)
	}
}

func TestConfigOf(t *testing.T) {
	tests := []struct {
		key  string
		want string
	}{
		{"nodogsplash.@nodogsplash[0].enabled", "nodogsplash"},
		{"wireless.radio0.disabled", "wireless"},
		{"nodogsplash", "nodogsplash"},
	}
	for _, tt := range tests {
		if got := ConfigOf(tt.key); got != tt.want {
			t.Errorf("ConfigOf(%q) = %q, want %q", tt.key, got, tt.want)
		}
	}
}

func equalArgs(got, want []string) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}
