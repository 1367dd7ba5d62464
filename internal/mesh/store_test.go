package mesh

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(filepath.Join(t.TempDir(), "members"))
}

func anchorNode() Node {
	return Node{
		Name:        "hq",
		PublicAddr:  "1.2.3.4",
		PrivateAddr: "10.20.0.1",
		Role:        RoleAnchor,
		Port:        655,
		MTU:         1448,
	}
}

func memberNode(name, private string) Node {
	return Node{
		Name:        name,
		PublicAddr:  "5.6.7.8",
		PrivateAddr: private,
		SSHUser:     "root",
		Role:        RoleMember,
		Port:        655,
		MTU:         1448,
	}
}

func TestStoreLoad(t *testing.T) {
	t.Run("uninitialized mesh", func(t *testing.T) {
		s := testStore(t)
		if _, err := s.Load(); !errors.Is(err, ErrNotInitialized) {
			t.Fatalf("Load() error = %v, want ErrNotInitialized", err)
		}
	})

	t.Run("preserves file order", func(t *testing.T) {
		s := testStore(t)
		for _, n := range []Node{anchorNode(), memberNode("web_1", "10.20.0.2"), memberNode("db_1", "10.20.0.3")} {
			if err := s.Upsert(n); err != nil {
				t.Fatalf("Upsert() error = %v", err)
			}
		}
		nodes, err := s.Load()
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		got := make([]string, len(nodes))
		for i, n := range nodes {
			got[i] = n.Name
		}
		if want := "hq,web_1,db_1"; strings.Join(got, ",") != want {
			t.Errorf("Load() order = %s, want %s", strings.Join(got, ","), want)
		}
	})

	t.Run("rejects malformed lines", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "members")
		if err := os.WriteFile(path, []byte("too|few|fields\n"), 0o600); err != nil {
			t.Fatal(err)
		}
		if _, err := NewStore(path).Load(); err == nil {
			t.Fatal("Load() expected error for malformed record")
		}
	})
}

func TestStoreRecordFormat(t *testing.T) {
	s := testStore(t)
	if err := s.Upsert(anchorNode()); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	if err := s.Upsert(memberNode("web_1", "10.20.0.2")); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 2 {
		t.Fatalf("persisted %d lines, want 2", len(lines))
	}
	if want := "hq|1.2.3.4|10.20.0.1||local|*|655|1448"; lines[0] != want {
		t.Errorf("anchor line = %q, want %q", lines[0], want)
	}
	if want := "web_1|5.6.7.8|10.20.0.2|root|password|*|655|1448"; lines[1] != want {
		t.Errorf("member line = %q, want %q", lines[1], want)
	}
	if strings.Contains(string(data), "secret") {
		t.Error("persisted state must never contain credentials")
	}
}

func TestStoreUpsertIdempotent(t *testing.T) {
	s := testStore(t)
	n := memberNode("web_1", "10.20.0.2")
	if err := s.Upsert(n); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	first, err := os.ReadFile(s.path)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Upsert(n); err != nil {
		t.Fatalf("second Upsert() error = %v", err)
	}
	second, err := os.ReadFile(s.path)
	if err != nil {
		t.Fatal(err)
	}
	if string(first) != string(second) {
		t.Errorf("re-applying the same record changed persisted state:\n%q\n%q", first, second)
	}
}

func TestStoreUpsertReplaces(t *testing.T) {
	s := testStore(t)
	if err := s.Upsert(memberNode("web_1", "10.20.0.2")); err != nil {
		t.Fatal(err)
	}
	changed := memberNode("web_1", "10.20.0.9")
	if err := s.Upsert(changed); err != nil {
		t.Fatal(err)
	}
	nodes, err := s.Load()
	if err != nil {
		t.Fatal(err)
	}
	if len(nodes) != 1 {
		t.Fatalf("Load() returned %d records, want 1", len(nodes))
	}
	if nodes[0].PrivateAddr != "10.20.0.9" {
		t.Errorf("PrivateAddr = %s, want 10.20.0.9", nodes[0].PrivateAddr)
	}
}

func TestStoreRemove(t *testing.T) {
	t.Run("returns store to pre-add snapshot", func(t *testing.T) {
		s := testStore(t)
		if err := s.Upsert(anchorNode()); err != nil {
			t.Fatal(err)
		}
		before, err := os.ReadFile(s.path)
		if err != nil {
			t.Fatal(err)
		}

		if err := s.Upsert(memberNode("web_1", "10.20.0.2")); err != nil {
			t.Fatal(err)
		}
		if err := s.Remove("web_1"); err != nil {
			t.Fatal(err)
		}
		after, err := os.ReadFile(s.path)
		if err != nil {
			t.Fatal(err)
		}
		if string(before) != string(after) {
			t.Errorf("add then del did not restore snapshot:\n%q\n%q", before, after)
		}
	})

	t.Run("absent name is not an error", func(t *testing.T) {
		s := testStore(t)
		if err := s.Upsert(anchorNode()); err != nil {
			t.Fatal(err)
		}
		if err := s.Remove("ghost"); err != nil {
			t.Fatalf("Remove() error = %v", err)
		}
	})
}

func TestStoreFind(t *testing.T) {
	s := testStore(t)
	if err := s.Upsert(anchorNode()); err != nil {
		t.Fatal(err)
	}

	if _, err := s.Find("hq"); err != nil {
		t.Errorf("Find(hq) error = %v", err)
	}
	if _, err := s.Find("ghost"); !errors.Is(err, ErrNodeNotFound) {
		t.Errorf("Find(ghost) error = %v, want ErrNodeNotFound", err)
	}
}

func TestStoreRoundTrip(t *testing.T) {
	s := testStore(t)
	want := memberNode("db_1", "10.20.0.3")
	want.Port = 656
	want.MTU = 1400
	if err := s.Upsert(want); err != nil {
		t.Fatal(err)
	}
	got, err := s.Find("db_1")
	if err != nil {
		t.Fatal(err)
	}
	if got != want {
		t.Errorf("round trip = %+v, want %+v", got, want)
	}
}
