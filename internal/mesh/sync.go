package mesh

import (
	"context"
	"log/slog"

	"weft/internal/remote"
)

// CredentialSource resolves transient credentials for one node. The CLI
// implements it with a per-peer prompt or the shared batch override; tests
// implement it with canned values. Credentials obtained here are scoped to
// the single workflow invocation.
type CredentialSource interface {
	Credentials(n Node) (remote.Credentials, error)
}

// SyncWarning records one peer that could not be brought up to date.
type SyncWarning struct {
	Node string
	Err  error
}

// SyncReport is the outcome of one fan-out. A skipped peer is a warning,
// not a failure: the operator re-invokes push until the report is clean.
type SyncReport struct {
	Synced  []string
	Skipped []SyncWarning
}

// OK reports whether every targeted peer was reached.
func (r SyncReport) OK() bool { return len(r.Skipped) == 0 }

// Synchronizer makes every member's descriptor set match the membership
// snapshot and hot-reloads each reachable peer.
type Synchronizer struct {
	Runner remote.Runner
	Log    *slog.Logger
}

func (s *Synchronizer) logger() *slog.Logger {
	if s.Log != nil {
		return s.Log
	}
	return slog.Default()
}

// Push copies the complete current descriptor directory to every member and
// signals a reload. The anchor is excluded: it holds the full set locally by
// construction. Peers are synchronized one at a time; an unreachable peer is
// skipped with a warning and the batch continues. No retry is performed.
func (s *Synchronizer) Push(ctx context.Context, paths Paths, nodes []Node, creds CredentialSource) (SyncReport, error) {
	files, err := Descriptors(paths)
	if err != nil {
		return SyncReport{}, err
	}

	var report SyncReport
	for _, n := range nodes {
		if n.IsAnchor() {
			continue
		}
		if err := s.pushOne(ctx, paths.Net, n, files, creds); err != nil {
			s.logger().Warn("peer skipped during push", "node", n.Name, "err", err)
			report.Skipped = append(report.Skipped, SyncWarning{Node: n.Name, Err: err})
			continue
		}
		report.Synced = append(report.Synced, n.Name)
	}
	return report, nil
}

func (s *Synchronizer) pushOne(ctx context.Context, net string, n Node, files []DescriptorFile, creds CredentialSource) error {
	c, err := creds.Credentials(n)
	if err != nil {
		return err
	}
	for _, f := range files {
		if err := s.Runner.Copy(ctx, n.PublicAddr, c, f.Content, remote.PeerDescriptorPath(net, f.Name)); err != nil {
			return err
		}
	}
	if _, err := s.Runner.Execute(ctx, n.PublicAddr, c, remote.ReloadScript(net)); err != nil {
		return err
	}
	return nil
}

// Retract best-effort removes one departed node's descriptor from every
// remaining member and reloads each, recording unreachable peers as
// warnings.
func (s *Synchronizer) Retract(ctx context.Context, net string, nodes []Node, departed string, creds CredentialSource) SyncReport {
	var report SyncReport
	for _, n := range nodes {
		if n.IsAnchor() || n.Name == departed {
			continue
		}
		c, err := creds.Credentials(n)
		if err == nil {
			_, err = s.Runner.Execute(ctx, n.PublicAddr, c, remote.RemoveDescriptorScript(net, departed))
		}
		if err != nil {
			s.logger().Warn("peer skipped during retract", "node", n.Name, "err", err)
			report.Skipped = append(report.Skipped, SyncWarning{Node: n.Name, Err: err})
			continue
		}
		report.Synced = append(report.Synced, n.Name)
	}
	return report
}
