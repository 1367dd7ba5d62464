package remote

import (
	"fmt"
	"strconv"
	"strings"
)

// Peer-side configuration root. Mesh and node names are validated against a
// restricted character set before they get near a script, and every
// interpolated value is shell-quoted on top of that.
const peerConfigRoot = "/etc/tinc"

const sudoPreamble = `SUDO=""
if [ "$(id -u)" -ne 0 ]; then
  if ! command -v sudo >/dev/null 2>&1; then
    echo "sudo is required for non-root remote user" >&2
    exit 1
  fi
  SUDO="sudo"
fi
`

// PeerConfigDir returns the mesh configuration directory on a peer.
func PeerConfigDir(net string) string {
	return peerConfigRoot + "/" + net
}

// PeerDescriptorPath returns the path of a node descriptor on a peer.
func PeerDescriptorPath(net, name string) string {
	return PeerConfigDir(net) + "/hosts/" + name
}

// PreflightScript verifies the peer is a usable bootstrap target. Running it
// at all doubles as the reachability and authentication check.
func PreflightScript() string {
	return strings.TrimSpace(`set -eu
if [ "$(uname -s)" != "Linux" ]; then
  echo "remote host must be Linux" >&2
  exit 1
fi
if ! command -v systemctl >/dev/null 2>&1; then
  echo "missing prerequisite: systemctl" >&2
  exit 1
fi`) + "\n"
}

// InstallScript idempotently ensures the tinc package is present, trying the
// common package managers in turn.
func InstallScript() string {
	return "set -eu\n" + sudoPreamble + strings.TrimSpace(`
if command -v tincd >/dev/null 2>&1; then
  exit 0
fi
if command -v apt-get >/dev/null 2>&1; then
  $SUDO apt-get update -qq && $SUDO apt-get install -y -qq tinc
elif command -v dnf >/dev/null 2>&1; then
  $SUDO dnf install -y -q tinc
elif command -v yum >/dev/null 2>&1; then
  $SUDO yum install -y -q tinc
else
  echo "no supported package manager found" >&2
  exit 1
fi`) + "\n"
}

// ResetConfigScript wipes and recreates the peer's mesh configuration
// directory. Re-running bootstrap against a provisioned peer is the supported
// recovery path, so the replacement is deliberate and total.
func ResetConfigScript(net string) string {
	dir := ShellQuote(PeerConfigDir(net))
	return "set -eu\n" + sudoPreamble +
		fmt.Sprintf("$SUDO rm -rf %s\n$SUDO mkdir -p %s/hosts\n", dir, dir)
}

// FinalizeConfigScript marks the interface scripts executable.
func FinalizeConfigScript(net string) string {
	dir := ShellQuote(PeerConfigDir(net))
	return "set -eu\n" + sudoPreamble +
		fmt.Sprintf("$SUDO chmod 755 %s/tinc-up %s/tinc-down\n", dir, dir)
}

// KeygenScript generates the peer's key pair locally on the peer. The EOF on
// stdin makes tincd accept its default key file locations.
func KeygenScript(net string, bits int) string {
	return "set -eu\n" + sudoPreamble +
		fmt.Sprintf("$SUDO tincd -n %s -K%s </dev/null\n", ShellQuote(net), strconv.Itoa(bits))
}

// StartDaemonScript registers and starts the peer's daemon instance.
func StartDaemonScript(net string) string {
	unit := ShellQuote("tinc@" + net)
	return "set -eu\n" + sudoPreamble +
		fmt.Sprintf("$SUDO systemctl enable %s >/dev/null 2>&1 || true\n$SUDO systemctl restart %s\n", unit, unit)
}

// ReloadScript signals the running daemon to re-read its host descriptors
// without dropping sessions.
func ReloadScript(net string) string {
	return "set -eu\n" + sudoPreamble +
		fmt.Sprintf("$SUDO tincd -n %s -kHUP\n", ShellQuote(net))
}

// TeardownScript best-effort stops, disables, and removes a peer's mesh
// daemon and configuration.
func TeardownScript(net string) string {
	unit := ShellQuote("tinc@" + net)
	dir := ShellQuote(PeerConfigDir(net))
	return sudoPreamble + fmt.Sprintf(`$SUDO systemctl stop %s 2>/dev/null || true
$SUDO systemctl disable %s 2>/dev/null || true
$SUDO rm -rf %s
`, unit, unit, dir)
}

// RemoveDescriptorScript deletes one descriptor on a peer and reloads its
// daemon so the departed node is forgotten.
func RemoveDescriptorScript(net, name string) string {
	return "set -eu\n" + sudoPreamble +
		fmt.Sprintf("$SUDO rm -f %s\n$SUDO tincd -n %s -kHUP || true\n",
			ShellQuote(PeerDescriptorPath(net, name)), ShellQuote(net))
}

// FetchDescriptorScript prints a descriptor file so the control plane can
// read it back after keygen appended the public key.
func FetchDescriptorScript(net, name string) string {
	return "set -eu\n" + sudoPreamble +
		fmt.Sprintf("$SUDO cat %s\n", ShellQuote(PeerDescriptorPath(net, name)))
}

// HostnameScript prints the peer's short hostname.
func HostnameScript() string {
	return "set -eu\nhostname | cut -d. -f1 | tr -d '[:space:]'\n"
}

// ShellQuote wraps s in single quotes, escaping embedded single quotes.
func ShellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "'\"'\"'") + "'"
}
