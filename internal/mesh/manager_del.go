package mesh

import (
	"context"
	"fmt"

	"weft/internal/remote"
)

// Del removes a member from the mesh. Deleting the anchor is rejected with
// no side effects.
//
// Remote steps are best-effort in order: stop and tear down the peer's own
// daemon and files, remove the peer's descriptor locally, retract the
// descriptor from every other reachable member with a reload. However many
// of those succeed, the membership record is removed unconditionally at the
// end — re-invoking del is how stragglers get cleaned up.
func (m *Manager) Del(ctx context.Context, name string, source CredentialSource) (SyncReport, error) {
	nodes, err := m.store.Load()
	if err != nil {
		return SyncReport{}, err
	}
	node, found := findNode(nodes, name)
	if !found {
		return SyncReport{}, fmt.Errorf("%q: %w", name, ErrNodeNotFound)
	}
	if node.IsAnchor() {
		return SyncReport{}, fmt.Errorf("%q: %w", name, ErrAnchorProtected)
	}

	if creds, err := source.Credentials(node); err != nil {
		m.log.Warn("no credentials for peer teardown, skipping", "node", name, "err", err)
	} else if _, err := m.runnerExecute(ctx, node, creds, remote.TeardownScript(m.paths.Net)); err != nil {
		m.log.Warn("peer teardown failed, continuing", "node", name, "err", err)
	}

	if err := RemoveDescriptor(m.paths, name); err != nil {
		m.log.Warn("local descriptor removal failed, continuing", "node", name, "err", err)
	}

	report := m.sync.Retract(ctx, m.paths.Net, nodes, name, source)

	if err := m.daemon.Reload(ctx); err != nil {
		m.log.Warn("anchor reload failed", "err", err)
	}

	if err := m.store.Remove(name); err != nil {
		return report, err
	}

	m.record(ctx, "del", name, outcomeOf(report), "")
	return report, nil
}

func (m *Manager) runnerExecute(ctx context.Context, n Node, creds remote.Credentials, script string) (string, error) {
	return m.sync.Runner.Execute(ctx, n.PublicAddr, creds, script)
}

func findNode(nodes []Node, name string) (Node, bool) {
	for _, n := range nodes {
		if n.Name == name {
			return n, true
		}
	}
	return Node{}, false
}
