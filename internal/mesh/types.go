// Package mesh is the control plane core: membership bookkeeping, address
// allocation, per-node configuration, remote bootstrap, and topology
// synchronization for one named tinc mesh.
package mesh

import (
	"net/netip"
	"path/filepath"
	"regexp"
	"strings"
)

// Role distinguishes the anchor (the host the control plane runs on) from
// ordinary members.
type Role string

const (
	RoleAnchor Role = "anchor"
	RoleMember Role = "member"
)

const (
	// DefaultPort is tinc's registered port.
	DefaultPort = 655

	// DefaultMTU leaves room for the tunnel header on a 1500-byte path.
	DefaultMTU = 1448

	// DefaultKeyBits sizes generated RSA key pairs.
	DefaultKeyBits = 4096
)

// Node is one mesh participant. Records are immutable once persisted;
// changing an address means delete-then-add.
type Node struct {
	Name        string
	PublicAddr  string
	PrivateAddr string
	SSHUser     string
	Role        Role
	Port        int
	MTU         int
}

func (n Node) IsAnchor() bool { return n.Role == RoleAnchor }

// nameRE is the restricted character set shared by mesh and node names.
// It is what makes interpolating names into remote scripts and file paths
// safe, on top of shell quoting.
var nameRE = regexp.MustCompile(`^[A-Za-z0-9_]{1,64}$`)

// hostRE admits IPv4/IPv6 literals and DNS names, nothing shell-special.
var hostRE = regexp.MustCompile(`^[A-Za-z0-9.:\-]{1,253}$`)

// ValidateName checks a mesh or node name against the restricted set.
func ValidateName(field, name string) error {
	if strings.TrimSpace(name) == "" {
		return &ValidationError{Field: field, Message: "is required"}
	}
	if !nameRE.MatchString(name) {
		return &ValidationError{Field: field, Message: "must match [A-Za-z0-9_]{1,64}"}
	}
	return nil
}

// ValidateHost checks a public address (IP or hostname) used as an SSH and
// tunnel endpoint.
func ValidateHost(field, host string) error {
	if strings.TrimSpace(host) == "" {
		return &ValidationError{Field: field, Message: "is required"}
	}
	if !hostRE.MatchString(host) {
		return &ValidationError{Field: field, Message: "contains invalid characters"}
	}
	return nil
}

// ParsePrivateAddr parses and validates a node's private mesh address.
func ParsePrivateAddr(raw string) (netip.Addr, error) {
	addr, err := netip.ParseAddr(strings.TrimSpace(raw))
	if err != nil {
		return netip.Addr{}, &ValidationError{Field: "private_address", Message: "is not a valid IP address"}
	}
	if !addr.Is4() {
		return netip.Addr{}, &ValidationError{Field: "private_address", Message: "must be IPv4"}
	}
	return addr, nil
}

// SanitizeName maps an arbitrary hostname into the restricted name set,
// used when addq derives a node name from the peer's hostname.
func SanitizeName(raw string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(raw) {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	s := b.String()
	if len(s) > 64 {
		s = s[:64]
	}
	return s
}

// Paths locates one mesh's on-disk layout under the anchor's data root.
type Paths struct {
	DataRoot string
	Net      string
}

func (p Paths) Dir() string              { return filepath.Join(p.DataRoot, p.Net) }
func (p Paths) HostsDir() string         { return filepath.Join(p.Dir(), "hosts") }
func (p Paths) MembersFile() string      { return filepath.Join(p.Dir(), "members") }
func (p Paths) SettingsFile() string     { return filepath.Join(p.Dir(), "mesh.yaml") }
func (p Paths) TincConf() string         { return filepath.Join(p.Dir(), "tinc.conf") }
func (p Paths) TincUp() string           { return filepath.Join(p.Dir(), "tinc-up") }
func (p Paths) TincDown() string         { return filepath.Join(p.Dir(), "tinc-down") }
func (p Paths) Descriptor(name string) string { return filepath.Join(p.HostsDir(), name) }

// Unit is the systemd unit for this mesh's daemon instance.
func (p Paths) Unit() string { return "tinc@" + p.Net }
