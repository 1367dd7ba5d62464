package mesh

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"weft/internal/daemon"
	"weft/internal/remote"
)

// JournalEntry is one recorded workflow invocation.
type JournalEntry struct {
	Mesh    string
	Op      string
	Target  string
	Outcome string
	Detail  string
}

// Journal records workflow invocations. Recording is best-effort: a journal
// failure never fails a workflow.
type Journal interface {
	Record(ctx context.Context, e JournalEntry) error
}

// Options configures a Manager. Net and Runner are required; the remaining
// collaborators default to their production implementations.
type Options struct {
	DataRoot string
	Net      string
	Runner   remote.Runner
	Daemon   daemon.Daemon
	Service  daemon.ServiceManager
	Journal  Journal
	KeyBits  int
	Log      *slog.Logger
}

// Manager orchestrates the operator-facing workflows by composing the store,
// allocator, provisioner, and synchronizer.
//
// Execution is strictly sequential: each remote operation is a blocking
// round trip. Cancellation aborts immediately with no compensating rollback;
// local files and remote steps already applied stay in place.
type Manager struct {
	paths   Paths
	store   *Store
	daemon  daemon.Daemon
	service daemon.ServiceManager
	prov    *Provisioner
	sync    *Synchronizer
	journal Journal
	keyBits int
	log     *slog.Logger
}

// New validates options and assembles a Manager.
func New(opts Options) (*Manager, error) {
	if err := ValidateName("net", opts.Net); err != nil {
		return nil, err
	}
	if opts.Runner == nil {
		return nil, fmt.Errorf("remote runner is required")
	}
	if opts.DataRoot == "" {
		opts.DataRoot = "/etc/tinc"
	}
	if opts.Daemon == nil {
		opts.Daemon = &daemon.Tinc{Net: opts.Net, ConfigRoot: opts.DataRoot}
	}
	if opts.Service == nil {
		opts.Service = daemon.Systemd{}
	}
	if opts.KeyBits <= 0 {
		opts.KeyBits = DefaultKeyBits
	}
	if opts.Log == nil {
		opts.Log = slog.Default()
	}

	paths := Paths{DataRoot: opts.DataRoot, Net: opts.Net}
	return &Manager{
		paths:   paths,
		store:   NewStore(paths.MembersFile()),
		daemon:  opts.Daemon,
		service: opts.Service,
		prov:    &Provisioner{Runner: opts.Runner, KeyBits: opts.KeyBits, Log: opts.Log},
		sync:    &Synchronizer{Runner: opts.Runner, Log: opts.Log},
		journal: opts.Journal,
		keyBits: opts.KeyBits,
		log:     opts.Log,
	}, nil
}

// Net returns the mesh name this manager operates on.
func (m *Manager) Net() string { return m.paths.Net }

// InitRequest carries the anchor's identity for mesh creation.
type InitRequest struct {
	Name        string
	PublicAddr  string
	PrivateAddr string
	Netmask     string
	Port        int
	MTU         int
}

// Init creates the mesh: local key material and descriptor for the anchor,
// a running local daemon, and the anchor's membership record. Exactly one
// anchor exists per mesh from this point on.
func (m *Manager) Init(ctx context.Context, req InitRequest) error {
	if err := ValidateName("name", req.Name); err != nil {
		return err
	}
	if err := ValidateHost("public_address", req.PublicAddr); err != nil {
		return err
	}
	private, err := ParsePrivateAddr(req.PrivateAddr)
	if err != nil {
		return err
	}
	settings, err := NewSettings(private, req.Netmask)
	if err != nil {
		return err
	}
	if err := m.daemon.Installed(); err != nil {
		return err
	}
	if m.store.Exists() {
		return fmt.Errorf("mesh %q: %w", m.paths.Net, ErrAlreadyInitialized)
	}

	anchor := Node{
		Name:        req.Name,
		PublicAddr:  req.PublicAddr,
		PrivateAddr: private.String(),
		Role:        RoleAnchor,
		Port:        defaultPort(req.Port),
		MTU:         defaultMTU(req.MTU),
	}

	if err := os.MkdirAll(m.paths.HostsDir(), 0o755); err != nil {
		return fmt.Errorf("create mesh directory: %w", err)
	}
	if err := os.WriteFile(m.paths.TincConf(), []byte(RenderTincConf(m.paths.Net, anchor, nil)), 0o644); err != nil {
		return fmt.Errorf("write tinc.conf: %w", err)
	}
	if err := os.WriteFile(m.paths.TincUp(), []byte(RenderTincUp(anchor, settings, anchor.MTU)), 0o755); err != nil {
		return fmt.Errorf("write tinc-up: %w", err)
	}
	if err := os.WriteFile(m.paths.TincDown(), []byte(RenderTincDown()), 0o755); err != nil {
		return fmt.Errorf("write tinc-down: %w", err)
	}
	if err := SaveSettings(m.paths.SettingsFile(), settings); err != nil {
		return err
	}
	if err := WriteDescriptor(m.paths, anchor, settings); err != nil {
		return err
	}
	if err := m.daemon.GenerateKeys(ctx, m.keyBits); err != nil {
		return fmt.Errorf("generate anchor keys: %w", err)
	}
	if err := m.service.Enable(ctx, m.paths.Unit()); err != nil {
		m.log.Warn("enable daemon unit failed", "unit", m.paths.Unit(), "err", err)
	}
	if err := m.service.Restart(ctx, m.paths.Unit()); err != nil {
		return fmt.Errorf("start anchor daemon: %w", err)
	}
	if err := m.store.Upsert(anchor); err != nil {
		return err
	}

	m.record(ctx, "init", anchor.Name, "ok", "anchor "+anchor.PrivateAddr)
	return nil
}

// List is a pure read of the membership record set.
func (m *Manager) List() ([]Node, error) {
	return m.store.Load()
}

// Push reconciles every member's descriptor set with current membership,
// unconditionally.
func (m *Manager) Push(ctx context.Context, creds CredentialSource) (SyncReport, error) {
	nodes, err := m.store.Load()
	if err != nil {
		return SyncReport{}, err
	}
	report, err := m.sync.Push(ctx, m.paths, nodes, creds)
	if err != nil {
		return SyncReport{}, err
	}
	m.record(ctx, "push", "", outcomeOf(report), pushDetail(report))
	return report, nil
}

// Restart reloads the anchor's own daemon using a per-mesh MTU value.
//
// Known limitation, preserved from the original behavior: the MTU applied is
// taken from whichever membership record is physically last in the file, not
// from the anchor's record or a designated mesh-wide value.
func (m *Manager) Restart(ctx context.Context) error {
	nodes, err := m.store.Load()
	if err != nil {
		return err
	}
	if len(nodes) == 0 {
		return ErrNotInitialized
	}
	mtu := nodes[len(nodes)-1].MTU

	settings, err := LoadSettings(m.paths.SettingsFile())
	if err != nil {
		return err
	}
	anchor, err := m.anchorOf(nodes)
	if err != nil {
		return err
	}
	if err := os.WriteFile(m.paths.TincUp(), []byte(RenderTincUp(anchor, settings, mtu)), 0o755); err != nil {
		return fmt.Errorf("write tinc-up: %w", err)
	}
	if err := m.daemon.Reload(ctx); err != nil {
		return fmt.Errorf("reload anchor daemon: %w", err)
	}
	m.record(ctx, "restart", anchor.Name, "ok", fmt.Sprintf("mtu %d", mtu))
	return nil
}

func (m *Manager) anchorOf(nodes []Node) (Node, error) {
	for _, n := range nodes {
		if n.IsAnchor() {
			return n, nil
		}
	}
	return Node{}, fmt.Errorf("mesh %q has no anchor record", m.paths.Net)
}

func (m *Manager) record(ctx context.Context, op, target, outcome, detail string) {
	if m.journal == nil {
		return
	}
	e := JournalEntry{Mesh: m.paths.Net, Op: op, Target: target, Outcome: outcome, Detail: detail}
	if err := m.journal.Record(ctx, e); err != nil {
		m.log.Warn("journal record failed", "op", op, "err", err)
	}
}

func outcomeOf(r SyncReport) string {
	if r.OK() {
		return "ok"
	}
	return "partial"
}

func pushDetail(r SyncReport) string {
	return fmt.Sprintf("synced %d, skipped %d", len(r.Synced), len(r.Skipped))
}

func defaultPort(p int) int {
	if p > 0 {
		return p
	}
	return DefaultPort
}

func defaultMTU(m int) int {
	if m > 0 {
		return m
	}
	return DefaultMTU
}
