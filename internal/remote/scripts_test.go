package remote

import (
	"strings"
	"testing"
)

func TestShellQuote(t *testing.T) {
	t.Run("plain string", func(t *testing.T) {
		if got := ShellQuote("office"); got != "'office'" {
			t.Errorf("ShellQuote() = %q", got)
		}
	})

	t.Run("embedded single quote survives", func(t *testing.T) {
		got := ShellQuote("a'b")
		if want := `'a'"'"'b'`; got != want {
			t.Errorf("ShellQuote() = %q, want %q", got, want)
		}
	})

	t.Run("injection attempt stays inert", func(t *testing.T) {
		got := ShellQuote("x; rm -rf /")
		if !strings.HasPrefix(got, "'") || !strings.HasSuffix(got, "'") {
			t.Errorf("ShellQuote() = %q, not wrapped", got)
		}
	})
}

func TestScripts(t *testing.T) {
	t.Run("keygen quotes mesh name", func(t *testing.T) {
		s := KeygenScript("office", 4096)
		if !strings.Contains(s, "tincd -n 'office' -K4096") {
			t.Errorf("KeygenScript() = %q", s)
		}
		if !strings.Contains(s, "</dev/null") {
			t.Error("KeygenScript() must run non-interactively")
		}
	})

	t.Run("reset is a full replacement", func(t *testing.T) {
		s := ResetConfigScript("office")
		if !strings.Contains(s, "rm -rf '/etc/tinc/office'") {
			t.Errorf("ResetConfigScript() = %q", s)
		}
		if !strings.Contains(s, "mkdir -p '/etc/tinc/office'/hosts") {
			t.Errorf("ResetConfigScript() missing hosts dir: %q", s)
		}
	})

	t.Run("reload signals instead of restarting", func(t *testing.T) {
		s := ReloadScript("office")
		if !strings.Contains(s, "-kHUP") {
			t.Errorf("ReloadScript() = %q", s)
		}
		if strings.Contains(s, "systemctl restart") {
			t.Error("ReloadScript() must not restart the unit")
		}
	})

	t.Run("teardown tolerates missing unit", func(t *testing.T) {
		s := TeardownScript("office")
		if strings.Contains(s, "set -e") {
			t.Errorf("TeardownScript() must be best-effort: %q", s)
		}
		if !strings.Contains(s, "systemctl disable 'tinc@office'") {
			t.Errorf("TeardownScript() = %q", s)
		}
	})

	t.Run("descriptor paths", func(t *testing.T) {
		if got := PeerDescriptorPath("office", "web_1"); got != "/etc/tinc/office/hosts/web_1" {
			t.Errorf("PeerDescriptorPath() = %q", got)
		}
	})

	t.Run("start enables and restarts the unit", func(t *testing.T) {
		s := StartDaemonScript("office")
		if !strings.Contains(s, "systemctl enable 'tinc@office'") ||
			!strings.Contains(s, "systemctl restart 'tinc@office'") {
			t.Errorf("StartDaemonScript() = %q", s)
		}
	})
}
