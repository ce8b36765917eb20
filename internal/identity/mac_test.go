package identity

import "testing"

func TestCanonicalMAC(t *testing.T) {
	tests := []struct {
		name   string
		in     string
		want   string
		wantOK bool
	}{
		{"lowercase colons", "aa:bb:cc:dd:ee:ff", "aa:bb:cc:dd:ee:ff", true},
		{"uppercase colons", "AA:BB:CC:DD:EE:FF", "aa:bb:cc:dd:ee:ff", true},
		{"dashes", "AA-BB-CC-DD-EE-FF", "aa:bb:cc:dd:ee:ff", true},
		{"cisco dots", "aabb.ccdd.eeff", "aa:bb:cc:dd:ee:ff", true},
		{"bare hex", "aabbccddeeff", "aa:bb:cc:dd:ee:ff", true},
		{"surrounding space", "  aa:bb:cc:dd:ee:ff\n", "aa:bb:cc:dd:ee:ff", true},
		{"all-zero sentinel", "00:00:00:00:00:00", "", false},
		{"too short", "aa:bb:cc:dd:ee", "", false},
		{"too long", "aa:bb:cc:dd:ee:ff:00", "", false},
		{"non-hex", "gg:bb:cc:dd:ee:ff", "", false},
		{"empty", "", "", false},
		{"garbage", "not a mac", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := CanonicalMAC(tt.in)
			if ok != tt.wantOK {
				t.Fatalf("CanonicalMAC(%q) ok = %v, want %v", tt.in, ok, tt.wantOK)
			}
			if got != tt.want {
				t.Errorf("CanonicalMAC(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestValidMAC(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"aa:bb:cc:dd:ee:ff", true},
		{"AA:BB:CC:DD:EE:FF", true},
		{"Aa:bB:cC:dD:eE:fF", true},
		{"00:00:00:00:00:00", false},
		{"aa-bb-cc-dd-ee-ff", false},
		{"aabbccddeeff", false},
		{"aa:bb:cc:dd:ee", false},
		{"", false},
	}

	for _, tt := range tests {
		if got := ValidMAC(tt.in); got != tt.want {
			t.Errorf("ValidMAC(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
