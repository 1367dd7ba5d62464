// Package meshcmd implements the operator-facing mesh commands.
package meshcmd

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"weft/cmd/weft/ui"
	"weft/config"
	"weft/internal/journal"
	"weft/internal/mesh"
	"weft/internal/remote"

	"github.com/spf13/cobra"
)

const envSSHPassword = "WEFT_SSH_PASSWORD"

// CommonFlags carries the per-command tuning flags shared by the mesh
// workflows. Defaults come from the operator's config file.
type CommonFlags struct {
	DataRoot string
	Port     int
	MTU      int
	KeyBits  int
	SSHKey   string

	cfg *config.Config
}

func (f *CommonFlags) Bind(cmd *cobra.Command) {
	cfg, err := config.Load()
	if err != nil {
		// A broken config file must not take the CLI down; stock defaults
		// still work and the parse error surfaces at debug level.
		slog.Debug("config load failed, using defaults", "err", err)
		cfg = &config.Config{}
	}
	f.cfg = cfg

	cmd.Flags().StringVar(&f.DataRoot, "data-root", cfg.DataRoot, "Mesh state directory on the anchor")
	cmd.Flags().IntVar(&f.Port, "port", cfg.Port, "Daemon listen port for new nodes")
	cmd.Flags().IntVar(&f.MTU, "mtu", cfg.MTU, "Tunnel MTU for new nodes")
	cmd.Flags().IntVar(&f.KeyBits, "key-bits", cfg.KeyBits, "RSA key size for generated key pairs")
	cmd.Flags().StringVar(&f.SSHKey, "ssh-key", "", "SSH private key file for peer access")
}

func (f *CommonFlags) journalPath() string {
	if f.cfg != nil && f.cfg.JournalPath != "" {
		return f.cfg.JournalPath
	}
	return "/etc/tinc/weft-journal.db"
}

// manager assembles a Manager for net with the production collaborators.
// The returned closer releases the journal; call it when the command is done.
func (f *CommonFlags) manager(net string) (*mesh.Manager, func(), error) {
	closer := func() {}

	opts := mesh.Options{
		DataRoot: f.DataRoot,
		Net:      net,
		Runner:   &remote.SSHRunner{},
		KeyBits:  f.KeyBits,
		Log:      slog.Default(),
	}

	if j, err := journal.Open(f.journalPath()); err != nil {
		slog.Warn("operation journal unavailable", "err", err)
	} else {
		opts.Journal = j
		closer = func() { _ = j.Close() }
	}

	m, err := mesh.New(opts)
	if err != nil {
		closer()
		return nil, nil, err
	}
	return m, closer, nil
}

// credentialsFor resolves SSH credentials for one target without ever
// putting the secret on a command line or in a file. Order: key file flag,
// batch environment override, interactive no-echo prompt.
func (f *CommonFlags) credentialsFor(user, host string) (remote.Credentials, error) {
	creds := remote.Credentials{User: user, KeyPath: f.SSHKey}
	if pw := os.Getenv(envSSHPassword); pw != "" {
		creds.Password = pw
		return creds, nil
	}
	if f.SSHKey != "" {
		return creds, nil
	}
	pw, err := ui.PasswordPrompt(
		fmt.Sprintf("SSH password for %s@%s", user, host),
		"set "+envSSHPassword+" or use --ssh-key",
	)
	if err != nil {
		return remote.Credentials{}, err
	}
	creds.Password = pw
	return creds, nil
}

// source returns a CredentialSource for fan-out across existing members.
func (f *CommonFlags) source() mesh.CredentialSource {
	return &promptSource{flags: f, cache: make(map[string]remote.Credentials)}
}

// promptSource resolves per-peer credentials during a fan-out, caching each
// answer for the rest of the invocation so one peer is asked about once.
// Nothing here outlives the workflow call.
type promptSource struct {
	flags *CommonFlags
	cache map[string]remote.Credentials
}

func (s *promptSource) Credentials(n mesh.Node) (remote.Credentials, error) {
	user := n.SSHUser
	if user == "" {
		user = "root"
	}
	key := user + "@" + n.PublicAddr
	if c, ok := s.cache[key]; ok {
		return c, nil
	}
	c, err := s.flags.credentialsFor(user, n.PublicAddr)
	if err != nil {
		return remote.Credentials{}, err
	}
	s.cache[key] = c
	return c, nil
}

// printReport renders a fan-out outcome: one line per skipped peer, then a
// summary.
func printReport(report mesh.SyncReport) {
	for _, w := range report.Skipped {
		fmt.Println(ui.WarnMsg("skipped %s: %v", ui.Accent(w.Node), w.Err))
	}
	if report.OK() {
		if len(report.Synced) > 0 {
			fmt.Println(ui.SuccessMsg("synchronized %d peer(s)", len(report.Synced)))
		}
		return
	}
	fmt.Println(ui.WarnMsg("%d peer(s) skipped; re-run push to retry", len(report.Skipped)))
}

func netArg(args []string) (string, error) {
	if len(args) < 1 || strings.TrimSpace(args[0]) == "" {
		return "", fmt.Errorf("mesh name is required")
	}
	return strings.TrimSpace(args[0]), nil
}
