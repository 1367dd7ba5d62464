package mesh

import (
	"errors"
	"fmt"
	"net"
	"net/netip"
	"os"

	"gopkg.in/yaml.v3"
)

// Transport policy is fixed per mesh at init time; every descriptor carries
// the same values so tincd negotiation cannot drift between peers.
const (
	DefaultCipher      = "aes-256-cbc"
	DefaultDigest      = "sha256"
	DefaultCompression = 0
)

// Settings is the per-mesh configuration written once by init, next to the
// membership file. It makes the allocator pool and netmask durable without
// widening the membership record format.
type Settings struct {
	Subnet      string `yaml:"subnet"`
	Netmask     string `yaml:"netmask"`
	Cipher      string `yaml:"cipher"`
	Digest      string `yaml:"digest"`
	Compression int    `yaml:"compression"`
}

// NewSettings derives mesh settings from the anchor's private address and
// dotted netmask.
func NewSettings(private netip.Addr, netmask string) (Settings, error) {
	bits, err := NetmaskBits(netmask)
	if err != nil {
		return Settings{}, err
	}
	prefix := netip.PrefixFrom(private, bits).Masked()
	return Settings{
		Subnet:      prefix.String(),
		Netmask:     netmask,
		Cipher:      DefaultCipher,
		Digest:      DefaultDigest,
		Compression: DefaultCompression,
	}, nil
}

// SubnetPrefix parses the stored mesh subnet.
func (s Settings) SubnetPrefix() (netip.Prefix, error) {
	prefix, err := netip.ParsePrefix(s.Subnet)
	if err != nil {
		return netip.Prefix{}, fmt.Errorf("parse mesh subnet %q: %w", s.Subnet, err)
	}
	return prefix, nil
}

// NetmaskBits converts a dotted IPv4 netmask to a prefix length.
func NetmaskBits(netmask string) (int, error) {
	ip := net.ParseIP(netmask)
	if ip == nil || ip.To4() == nil {
		return 0, &ValidationError{Field: "netmask", Message: "is not a valid IPv4 netmask"}
	}
	mask := net.IPMask(ip.To4())
	bits, total := mask.Size()
	if total != 32 || (bits == 0 && netmask != "0.0.0.0") {
		return 0, &ValidationError{Field: "netmask", Message: "is not contiguous"}
	}
	return bits, nil
}

// LoadSettings reads the mesh settings file. A missing file means the mesh
// was never initialized.
func LoadSettings(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Settings{}, ErrNotInitialized
		}
		return Settings{}, fmt.Errorf("read mesh settings: %w", err)
	}
	var s Settings
	if err := yaml.Unmarshal(data, &s); err != nil {
		return Settings{}, fmt.Errorf("parse mesh settings: %w", err)
	}
	return s, nil
}

// SaveSettings writes the mesh settings file.
func SaveSettings(path string, s Settings) error {
	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal mesh settings: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write mesh settings: %w", err)
	}
	return nil
}
