package mesh

import (
	"errors"
	"net/netip"
	"path/filepath"
	"testing"
)

func TestNewSettings(t *testing.T) {
	s, err := NewSettings(netip.MustParseAddr("10.20.0.1"), "255.255.255.0")
	if err != nil {
		t.Fatalf("NewSettings() error = %v", err)
	}
	if s.Subnet != "10.20.0.0/24" {
		t.Errorf("Subnet = %s, want 10.20.0.0/24", s.Subnet)
	}
	if s.Cipher != DefaultCipher || s.Digest != DefaultDigest || s.Compression != DefaultCompression {
		t.Errorf("transport policy = %+v", s)
	}
}

func TestNetmaskBits(t *testing.T) {
	cases := map[string]int{
		"255.255.255.0":   24,
		"255.255.0.0":     16,
		"255.255.255.252": 30,
	}
	for mask, want := range cases {
		got, err := NetmaskBits(mask)
		if err != nil {
			t.Errorf("NetmaskBits(%q) error = %v", mask, err)
			continue
		}
		if got != want {
			t.Errorf("NetmaskBits(%q) = %d, want %d", mask, got, want)
		}
	}

	for _, mask := range []string{"", "255.0.255.0", "not-a-mask", "::ffff:0:0"} {
		var verr *ValidationError
		if _, err := NetmaskBits(mask); !errors.As(err, &verr) {
			t.Errorf("NetmaskBits(%q) = %v, want ValidationError", mask, err)
		}
	}
}

func TestSettingsRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mesh.yaml")
	want, err := NewSettings(netip.MustParseAddr("10.20.0.1"), "255.255.255.0")
	if err != nil {
		t.Fatal(err)
	}
	if err := SaveSettings(path, want); err != nil {
		t.Fatalf("SaveSettings() error = %v", err)
	}
	got, err := LoadSettings(path)
	if err != nil {
		t.Fatalf("LoadSettings() error = %v", err)
	}
	if got != want {
		t.Errorf("round trip = %+v, want %+v", got, want)
	}
}

func TestLoadSettingsMissing(t *testing.T) {
	_, err := LoadSettings(filepath.Join(t.TempDir(), "mesh.yaml"))
	if !errors.Is(err, ErrNotInitialized) {
		t.Fatalf("LoadSettings() error = %v, want ErrNotInitialized", err)
	}
}
