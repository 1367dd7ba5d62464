package mesh

import (
	"context"
	"fmt"
	"net/netip"

	"weft/internal/remote"
	"weft/pkg/ipam"
)

// AddRequest carries an explicit new-member definition: every field except
// Port and MTU must be supplied.
type AddRequest struct {
	Name        string
	PublicAddr  string
	PrivateAddr string
	SSHUser     string
	Port        int
	MTU         int
}

// AddAutoRequest is the convenience form: a missing Name is resolved from
// the peer's hostname and a missing PrivateAddr from the allocator.
type AddAutoRequest struct {
	PublicAddr  string
	SSHUser     string
	Name        string
	PrivateAddr string
	Port        int
	MTU         int
}

// Add bootstraps a new member and persists it. creds authenticates the new
// peer for the duration of this call only; source resolves credentials for
// the existing members during the post-bootstrap fan-out (nil falls back to
// reusing creds with each member's own ssh user).
//
// The membership record is written only after the remote bootstrap fully
// succeeds: a connectivity or authentication failure leaves the store
// untouched. Local files written before the failure are left as-is;
// re-invoking add is the recovery path and is safe to repeat.
func (m *Manager) Add(ctx context.Context, req AddRequest, creds remote.Credentials, source CredentialSource) (SyncReport, error) {
	nodes, err := m.store.Load()
	if err != nil {
		return SyncReport{}, err
	}
	settings, err := LoadSettings(m.paths.SettingsFile())
	if err != nil {
		return SyncReport{}, err
	}
	node, err := m.validateAdd(req, nodes, settings)
	if err != nil {
		return SyncReport{}, err
	}
	anchor, err := m.anchorOf(nodes)
	if err != nil {
		return SyncReport{}, err
	}

	// The descriptor is written locally first so the fan-out after bootstrap
	// already includes the new member.
	if err := WriteDescriptor(m.paths, node, settings); err != nil {
		return SyncReport{}, err
	}

	if err := m.prov.Bootstrap(ctx, m.paths, settings, anchor, node, creds); err != nil {
		m.record(ctx, "add", node.Name, "failed", err.Error())
		return SyncReport{}, err
	}

	// Bidirectional exchange: the anchor's key-bearing descriptor went out
	// during bootstrap; the peer's comes back here, replacing the locally
	// rendered copy that lacked the public key.
	desc, err := m.prov.FetchDescriptor(ctx, m.paths.Net, node, creds)
	if err != nil {
		m.record(ctx, "add", node.Name, "failed", err.Error())
		return SyncReport{}, err
	}
	if err := WriteDescriptorContent(m.paths, node.Name, desc); err != nil {
		return SyncReport{}, err
	}

	if err := m.store.Upsert(node); err != nil {
		return SyncReport{}, err
	}

	all := append(nodes, node)
	report, err := m.sync.Push(ctx, m.paths, all, singleCredential{node: node.Name, creds: creds, fallback: source})
	if err != nil {
		return SyncReport{}, err
	}

	// The anchor re-reads its own descriptor set to pick up any MTU change.
	if err := m.daemon.Reload(ctx); err != nil {
		m.log.Warn("anchor reload failed", "err", err)
	}

	m.record(ctx, "add", node.Name, outcomeOf(report), node.PrivateAddr)
	return report, nil
}

// AddAuto resolves the convenience-form defaults and delegates to the full
// add workflow.
func (m *Manager) AddAuto(ctx context.Context, req AddAutoRequest, creds remote.Credentials, source CredentialSource) (SyncReport, error) {
	if err := ValidateHost("public_address", req.PublicAddr); err != nil {
		return SyncReport{}, err
	}
	if req.SSHUser == "" {
		req.SSHUser = "root"
	}
	if creds.User == "" {
		creds.User = req.SSHUser
	}

	name := req.Name
	if name == "" {
		resolved, err := m.prov.Hostname(ctx, req.PublicAddr, creds)
		if err != nil {
			return SyncReport{}, err
		}
		name = resolved
	}

	private := req.PrivateAddr
	if private == "" {
		addr, err := m.allocate()
		if err != nil {
			return SyncReport{}, err
		}
		private = addr.String()
	}

	return m.Add(ctx, AddRequest{
		Name:        name,
		PublicAddr:  req.PublicAddr,
		PrivateAddr: private,
		SSHUser:     req.SSHUser,
		Port:        req.Port,
		MTU:         req.MTU,
	}, creds, source)
}

// allocate computes the first free private address from the mesh subnet and
// the currently recorded membership.
func (m *Manager) allocate() (netip.Addr, error) {
	nodes, err := m.store.Load()
	if err != nil {
		return netip.Addr{}, err
	}
	settings, err := LoadSettings(m.paths.SettingsFile())
	if err != nil {
		return netip.Addr{}, err
	}
	subnet, err := settings.SubnetPrefix()
	if err != nil {
		return netip.Addr{}, err
	}

	used := make([]netip.Addr, 0, len(nodes))
	for _, n := range nodes {
		if a, err := netip.ParseAddr(n.PrivateAddr); err == nil {
			used = append(used, a)
		}
	}
	return ipam.Allocate(subnet, used)
}

func (m *Manager) validateAdd(req AddRequest, nodes []Node, settings Settings) (Node, error) {
	if err := ValidateName("name", req.Name); err != nil {
		return Node{}, err
	}
	if err := ValidateHost("public_address", req.PublicAddr); err != nil {
		return Node{}, err
	}
	if req.SSHUser == "" {
		return Node{}, &ValidationError{Field: "ssh_user", Message: "is required"}
	}
	private, err := ParsePrivateAddr(req.PrivateAddr)
	if err != nil {
		return Node{}, err
	}
	subnet, err := settings.SubnetPrefix()
	if err != nil {
		return Node{}, err
	}
	if !subnet.Contains(private) {
		return Node{}, &ValidationError{
			Field:   "private_address",
			Message: fmt.Sprintf("%s is outside the mesh subnet %s", private, subnet),
		}
	}
	for _, n := range nodes {
		if n.Name == req.Name {
			return Node{}, &ValidationError{Field: "name", Message: fmt.Sprintf("%q is already a member", req.Name)}
		}
		if n.PrivateAddr == private.String() {
			return Node{}, &ValidationError{Field: "private_address", Message: fmt.Sprintf("%s is already assigned to %q", private, n.Name)}
		}
	}

	return Node{
		Name:        req.Name,
		PublicAddr:  req.PublicAddr,
		PrivateAddr: private.String(),
		SSHUser:     req.SSHUser,
		Role:        RoleMember,
		Port:        defaultPort(req.Port),
		MTU:         defaultMTU(req.MTU),
	}, nil
}

// singleCredential satisfies CredentialSource for the fan-out immediately
// after an add: the new node uses the bootstrap credentials, everyone else
// goes through the broader source when one is available.
type singleCredential struct {
	node     string
	creds    remote.Credentials
	fallback CredentialSource
}

func (s singleCredential) Credentials(n Node) (remote.Credentials, error) {
	if n.Name == s.node {
		return s.creds, nil
	}
	if s.fallback != nil {
		return s.fallback.Credentials(n)
	}
	c := s.creds
	c.User = n.SSHUser
	return c, nil
}
