package mesh

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Membership record wire format, one line per node:
//
//	name|public_address|private_address|ssh_user|auth_kind|auth_placeholder|port|mtu
//
// auth_kind is "local" for the anchor and "password" for members. The
// placeholder column is always the non-secret sentinel "*"; credentials are
// never written to disk.
const (
	recordFields    = 8
	authKindLocal   = "local"
	authKindSSH     = "password"
	authPlaceholder = "*"
)

// Store is the durable membership record set for one mesh.
//
// Every mutation rewrites the full record set to a temporary file and
// atomically renames it into place, so a crash mid-write never leaves a
// partially written membership file. No locking is performed: a single
// concurrent writer is assumed, and two simultaneous workflow invocations
// against the same mesh may race (last whole-file write wins).
type Store struct {
	path string
}

func NewStore(path string) *Store {
	return &Store{path: path}
}

// Load returns all records in file order. ErrNotInitialized when the mesh
// has no membership file.
func (s *Store) Load() ([]Node, error) {
	nodes, exists, err := s.read()
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrNotInitialized
	}
	return nodes, nil
}

// Exists reports whether the membership file is present.
func (s *Store) Exists() bool {
	_, err := os.Stat(s.path)
	return err == nil
}

// Find returns the record with the given name, or ErrNodeNotFound.
func (s *Store) Find(name string) (Node, error) {
	nodes, err := s.Load()
	if err != nil {
		return Node{}, err
	}
	for _, n := range nodes {
		if n.Name == name {
			return n, nil
		}
	}
	return Node{}, fmt.Errorf("%q: %w", name, ErrNodeNotFound)
}

// Upsert replaces the record with the same name or appends a new one.
// Re-applying an identical record produces byte-identical persisted state.
func (s *Store) Upsert(node Node) error {
	nodes, _, err := s.read()
	if err != nil {
		return err
	}
	replaced := false
	for i, n := range nodes {
		if n.Name == node.Name {
			nodes[i] = node
			replaced = true
			break
		}
	}
	if !replaced {
		nodes = append(nodes, node)
	}
	return s.save(nodes)
}

// Remove deletes the record with the given name. Removing an absent name is
// not an error; del must be safe to re-invoke.
func (s *Store) Remove(name string) error {
	nodes, exists, err := s.read()
	if err != nil {
		return err
	}
	if !exists {
		return ErrNotInitialized
	}
	out := nodes[:0]
	for _, n := range nodes {
		if n.Name != name {
			out = append(out, n)
		}
	}
	return s.save(out)
}

func (s *Store) read() ([]Node, bool, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("read membership file: %w", err)
	}

	var nodes []Node
	for i, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		n, err := parseRecord(line)
		if err != nil {
			return nil, false, fmt.Errorf("membership file line %d: %w", i+1, err)
		}
		nodes = append(nodes, n)
	}
	return nodes, true, nil
}

// save writes a full replacement of the record set and atomically swaps it
// into place.
func (s *Store) save(nodes []Node) error {
	var b strings.Builder
	for _, n := range nodes {
		b.WriteString(formatRecord(n))
		b.WriteByte('\n')
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create mesh directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".members-*")
	if err != nil {
		return fmt.Errorf("create temp membership file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.WriteString(b.String()); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write membership file: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("chmod membership file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close membership file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("replace membership file: %w", err)
	}
	return nil
}

func parseRecord(line string) (Node, error) {
	fields := strings.Split(line, "|")
	if len(fields) != recordFields {
		return Node{}, fmt.Errorf("expected %d fields, got %d", recordFields, len(fields))
	}
	port, err := strconv.Atoi(fields[6])
	if err != nil {
		return Node{}, fmt.Errorf("invalid port %q", fields[6])
	}
	mtu, err := strconv.Atoi(fields[7])
	if err != nil {
		return Node{}, fmt.Errorf("invalid mtu %q", fields[7])
	}

	role := RoleMember
	if fields[4] == authKindLocal {
		role = RoleAnchor
	}
	return Node{
		Name:        fields[0],
		PublicAddr:  fields[1],
		PrivateAddr: fields[2],
		SSHUser:     fields[3],
		Role:        role,
		Port:        port,
		MTU:         mtu,
	}, nil
}

func formatRecord(n Node) string {
	kind := authKindSSH
	if n.IsAnchor() {
		kind = authKindLocal
	}
	return strings.Join([]string{
		n.Name,
		n.PublicAddr,
		n.PrivateAddr,
		n.SSHUser,
		kind,
		authPlaceholder,
		strconv.Itoa(n.Port),
		strconv.Itoa(n.MTU),
	}, "|")
}
