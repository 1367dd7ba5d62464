package mesh

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"weft/internal/remote"
)

// Provisioner drives the one-time remote bootstrap of a new peer: preflight,
// install, configure, keygen, start.
type Provisioner struct {
	Runner  remote.Runner
	KeyBits int
	Log     *slog.Logger
}

func (p *Provisioner) logger() *slog.Logger {
	if p.Log != nil {
		return p.Log
	}
	return slog.Default()
}

func (p *Provisioner) keyBits() int {
	if p.KeyBits > 0 {
		return p.KeyBits
	}
	return DefaultKeyBits
}

// Bootstrap provisions node over SSH using credentials that live only for
// this call.
//
// The preflight round trip doubles as the reachability and authentication
// check: its failure aborts the bootstrap before anything is written on the
// peer, and the caller must not persist a membership record. The install,
// configure, and keygen steps are best-effort (logged and skipped on
// failure); failing to start the daemon is fatal.
//
// Re-running Bootstrap against an already-provisioned peer wholly replaces
// that peer's mesh configuration directory. That is deliberate: re-bootstrap
// is the supported recovery path for a broken peer.
func (p *Provisioner) Bootstrap(ctx context.Context, paths Paths, s Settings, anchor, node Node, creds remote.Credentials) error {
	log := p.logger().With("node", node.Name, "host", node.PublicAddr)
	host := node.PublicAddr

	// Step 1: reachability and authentication.
	if _, err := p.Runner.Execute(ctx, host, creds, remote.PreflightScript()); err != nil {
		return fmt.Errorf("bootstrap %s: %w", node.Name, err)
	}

	// Step 2: idempotent package install.
	if _, err := p.Runner.Execute(ctx, host, creds, remote.InstallScript()); err != nil {
		log.Warn("package install failed, continuing", "err", err)
	}

	// Step 3: materialize the peer's configuration.
	if err := p.configure(ctx, paths, s, anchor, node, creds); err != nil {
		log.Warn("peer configuration incomplete, continuing", "err", err)
	}

	// Step 4: private key material is generated on the peer, never
	// transmitted.
	if _, err := p.Runner.Execute(ctx, host, creds, remote.KeygenScript(paths.Net, p.keyBits())); err != nil {
		log.Warn("key generation failed, continuing", "err", err)
	}

	// Step 5: register and start the daemon instance. Fatal on failure.
	if _, err := p.Runner.Execute(ctx, host, creds, remote.StartDaemonScript(paths.Net)); err != nil {
		return fmt.Errorf("start daemon on %s: %w", node.Name, err)
	}
	return nil
}

func (p *Provisioner) configure(ctx context.Context, paths Paths, s Settings, anchor, node Node, creds remote.Credentials) error {
	host := node.PublicAddr
	net := paths.Net
	dir := remote.PeerConfigDir(net)

	if _, err := p.Runner.Execute(ctx, host, creds, remote.ResetConfigScript(net)); err != nil {
		return err
	}

	// The anchor descriptor is read from disk rather than re-rendered so the
	// copy carries the anchor's public key block.
	anchorDesc, err := ReadDescriptor(paths, anchor.Name)
	if err != nil {
		return err
	}

	files := []struct {
		path    string
		content []byte
	}{
		{dir + "/tinc.conf", []byte(RenderTincConf(net, node, &anchor))},
		{dir + "/tinc-up", []byte(RenderTincUp(node, s, node.MTU))},
		{dir + "/tinc-down", []byte(RenderTincDown())},
		{remote.PeerDescriptorPath(net, node.Name), []byte(RenderDescriptor(node, s))},
		{remote.PeerDescriptorPath(net, anchor.Name), anchorDesc},
	}
	for _, f := range files {
		if err := p.Runner.Copy(ctx, host, creds, f.content, f.path); err != nil {
			return err
		}
	}

	if _, err := p.Runner.Execute(ctx, host, creds, remote.FinalizeConfigScript(net)); err != nil {
		return err
	}
	return nil
}

// FetchDescriptor reads a peer's own descriptor back after bootstrap, once
// keygen has appended the public key block.
func (p *Provisioner) FetchDescriptor(ctx context.Context, net string, node Node, creds remote.Credentials) ([]byte, error) {
	out, err := p.Runner.Execute(ctx, node.PublicAddr, creds, remote.FetchDescriptorScript(net, node.Name))
	if err != nil {
		return nil, fmt.Errorf("fetch descriptor for %s: %w", node.Name, err)
	}
	if strings.TrimSpace(out) == "" {
		return nil, fmt.Errorf("fetch descriptor for %s: empty response", node.Name)
	}
	return []byte(out + "\n"), nil
}

// Hostname queries a peer's short hostname, used by addq when no name was
// supplied.
func (p *Provisioner) Hostname(ctx context.Context, host string, creds remote.Credentials) (string, error) {
	out, err := p.Runner.Execute(ctx, host, creds, remote.HostnameScript())
	if err != nil {
		return "", fmt.Errorf("query hostname of %s: %w", host, err)
	}
	name := SanitizeName(out)
	if name == "" {
		return "", fmt.Errorf("peer %s returned an empty hostname", host)
	}
	return name, nil
}
