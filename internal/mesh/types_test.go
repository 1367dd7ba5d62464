package mesh

import (
	"errors"
	"testing"
)

func TestValidateName(t *testing.T) {
	for _, name := range []string{"hq", "web_1", "A", "node_with_underscores_123"} {
		if err := ValidateName("name", name); err != nil {
			t.Errorf("ValidateName(%q) = %v, want nil", name, err)
		}
	}
	for _, name := range []string{"", "  ", "web-1", "a b", "über", "x;rm -rf /", "../etc"} {
		var verr *ValidationError
		if err := ValidateName("name", name); !errors.As(err, &verr) {
			t.Errorf("ValidateName(%q) = %v, want ValidationError", name, err)
		}
	}
}

func TestValidateHost(t *testing.T) {
	for _, host := range []string{"1.2.3.4", "host.example.com", "fe80::1", "my-host"} {
		if err := ValidateHost("public_address", host); err != nil {
			t.Errorf("ValidateHost(%q) = %v, want nil", host, err)
		}
	}
	for _, host := range []string{"", "host name", "a;b", "$(whoami)", "host'name"} {
		var verr *ValidationError
		if err := ValidateHost("public_address", host); !errors.As(err, &verr) {
			t.Errorf("ValidateHost(%q) = %v, want ValidationError", host, err)
		}
	}
}

func TestParsePrivateAddr(t *testing.T) {
	if _, err := ParsePrivateAddr(" 10.20.0.1 "); err != nil {
		t.Errorf("ParsePrivateAddr trims whitespace: %v", err)
	}
	for _, raw := range []string{"", "not-an-ip", "10.20.0", "fe80::1"} {
		if _, err := ParsePrivateAddr(raw); err == nil {
			t.Errorf("ParsePrivateAddr(%q) expected error", raw)
		}
	}
}

func TestSanitizeName(t *testing.T) {
	cases := map[string]string{
		"web-1":        "web_1",
		"db.internal":  "db_internal",
		"  padded  ":   "padded",
		"ALL_good_123": "ALL_good_123",
	}
	for in, want := range cases {
		if got := SanitizeName(in); got != want {
			t.Errorf("SanitizeName(%q) = %q, want %q", in, got, want)
		}
	}

	long := make([]byte, 100)
	for i := range long {
		long[i] = 'a'
	}
	if got := SanitizeName(string(long)); len(got) != 64 {
		t.Errorf("SanitizeName long input = %d chars, want 64", len(got))
	}
}

func TestPaths(t *testing.T) {
	p := Paths{DataRoot: "/etc/tinc", Net: "office"}
	cases := map[string]string{
		p.Dir():                 "/etc/tinc/office",
		p.HostsDir():            "/etc/tinc/office/hosts",
		p.MembersFile():         "/etc/tinc/office/members",
		p.SettingsFile():        "/etc/tinc/office/mesh.yaml",
		p.TincConf():            "/etc/tinc/office/tinc.conf",
		p.Descriptor("web_1"):   "/etc/tinc/office/hosts/web_1",
		p.Unit():                "tinc@office",
	}
	for got, want := range cases {
		if got != want {
			t.Errorf("path = %q, want %q", got, want)
		}
	}
}
