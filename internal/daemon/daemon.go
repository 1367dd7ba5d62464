// Package daemon wraps the local tinc daemon and service manager on the
// anchor host. Key generation, tunnel crypto, and packet routing all belong
// to tincd; weft only configures and signals it.
package daemon

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// Daemon drives one mesh's local tincd instance.
type Daemon interface {
	// Installed reports whether the tinc binary is available locally.
	Installed() error

	// GenerateKeys creates the local key pair for the mesh. tincd appends
	// the public key to the node's own host descriptor.
	GenerateKeys(ctx context.Context, bits int) error

	// Reload sends the running daemon a HUP so it re-reads descriptors
	// without dropping established sessions.
	Reload(ctx context.Context) error
}

// ServiceManager registers and restarts daemon units.
type ServiceManager interface {
	Enable(ctx context.Context, unit string) error
	Restart(ctx context.Context, unit string) error
}

// DependencyError reports a required local tool that is absent.
type DependencyError struct {
	Tool string
}

func (e *DependencyError) Error() string {
	return "required tool not found: " + e.Tool
}

// Tinc is the production Daemon bound to one mesh.
type Tinc struct {
	Net string

	// ConfigRoot overrides tincd's configuration root when the mesh data
	// lives outside /etc/tinc. Empty means tincd's default.
	ConfigRoot string
}

var _ Daemon = (*Tinc)(nil)

func (t *Tinc) Installed() error {
	if _, err := exec.LookPath("tincd"); err != nil {
		return &DependencyError{Tool: "tincd"}
	}
	return nil
}

func (t *Tinc) GenerateKeys(ctx context.Context, bits int) error {
	args := t.baseArgs()
	args = append(args, "-K"+strconv.Itoa(bits))
	// EOF on stdin makes tincd take its default key file locations.
	return runLocal(ctx, "tincd", args, "")
}

func (t *Tinc) Reload(ctx context.Context) error {
	args := t.baseArgs()
	args = append(args, "-kHUP")
	return runLocal(ctx, "tincd", args, "")
}

func (t *Tinc) baseArgs() []string {
	args := []string{"-n", t.Net}
	if strings.TrimSpace(t.ConfigRoot) != "" {
		args = append(args, "-c", t.ConfigRoot+"/"+t.Net)
	}
	return args
}

// Systemd is the production ServiceManager.
type Systemd struct{}

var _ ServiceManager = (*Systemd)(nil)

func (Systemd) Enable(ctx context.Context, unit string) error {
	return runLocal(ctx, "systemctl", []string{"enable", unit}, "")
}

func (Systemd) Restart(ctx context.Context, unit string) error {
	return runLocal(ctx, "systemctl", []string{"restart", unit}, "")
}

func runLocal(ctx context.Context, name string, args []string, stdin string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	if stdin != "" {
		cmd.Stdin = strings.NewReader(stdin)
	}
	out, err := cmd.CombinedOutput()
	if err != nil {
		output := strings.TrimSpace(string(out))
		if output == "" {
			return fmt.Errorf("%s %s: %w", name, strings.Join(args, " "), err)
		}
		return fmt.Errorf("%s %s: %w: %s", name, strings.Join(args, " "), err, output)
	}
	return nil
}
