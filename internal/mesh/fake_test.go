package mesh

import (
	"context"
	"strings"
	"sync"

	"weft/internal/remote"
)

// fakeRunner is an in-memory remote.Runner. Error and output hooks follow
// the same shape as the production collaborators: nil hook means success.
type fakeRunner struct {
	mu     sync.Mutex
	execs  []execCall
	copies []copyCall

	// ExecuteErr, when set, is consulted before every Execute.
	ExecuteErr func(host, script string) error
	// Output, when set, supplies Execute output.
	Output func(host, script string) string
	// CopyErr, when set, is consulted before every Copy.
	CopyErr func(host, path string) error
}

type execCall struct {
	Host   string
	User   string
	Script string
}

type copyCall struct {
	Host    string
	Path    string
	Content string
}

var _ remote.Runner = (*fakeRunner)(nil)

func (r *fakeRunner) Execute(_ context.Context, host string, creds remote.Credentials, script string) (string, error) {
	if r.ExecuteErr != nil {
		if err := r.ExecuteErr(host, script); err != nil {
			return "", err
		}
	}
	r.mu.Lock()
	r.execs = append(r.execs, execCall{Host: host, User: creds.User, Script: script})
	r.mu.Unlock()
	if r.Output != nil {
		return r.Output(host, script), nil
	}
	return "", nil
}

func (r *fakeRunner) Copy(_ context.Context, host string, _ remote.Credentials, content []byte, path string) error {
	if r.CopyErr != nil {
		if err := r.CopyErr(host, path); err != nil {
			return err
		}
	}
	r.mu.Lock()
	r.copies = append(r.copies, copyCall{Host: host, Path: path, Content: string(content)})
	r.mu.Unlock()
	return nil
}

func (r *fakeRunner) copiesTo(host string) []copyCall {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []copyCall
	for _, c := range r.copies {
		if c.Host == host {
			out = append(out, c)
		}
	}
	return out
}

func (r *fakeRunner) executedOn(host, fragment string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.execs {
		if e.Host == host && strings.Contains(e.Script, fragment) {
			return true
		}
	}
	return false
}

// fakeDaemon is an in-memory daemon.Daemon.
type fakeDaemon struct {
	InstalledErr error
	KeygenErr    error
	ReloadErr    error

	Keygens int
	Reloads int
}

func (d *fakeDaemon) Installed() error { return d.InstalledErr }

func (d *fakeDaemon) GenerateKeys(context.Context, int) error {
	if d.KeygenErr != nil {
		return d.KeygenErr
	}
	d.Keygens++
	return nil
}

func (d *fakeDaemon) Reload(context.Context) error {
	if d.ReloadErr != nil {
		return d.ReloadErr
	}
	d.Reloads++
	return nil
}

// fakeService is an in-memory daemon.ServiceManager.
type fakeService struct {
	EnableErr  error
	RestartErr error

	Enabled   []string
	Restarted []string
}

func (s *fakeService) Enable(_ context.Context, unit string) error {
	if s.EnableErr != nil {
		return s.EnableErr
	}
	s.Enabled = append(s.Enabled, unit)
	return nil
}

func (s *fakeService) Restart(_ context.Context, unit string) error {
	if s.RestartErr != nil {
		return s.RestartErr
	}
	s.Restarted = append(s.Restarted, unit)
	return nil
}

// staticSource hands out the same credentials for every node.
type staticSource struct {
	creds remote.Credentials
	err   error
}

func (s staticSource) Credentials(Node) (remote.Credentials, error) {
	return s.creds, s.err
}

// memoryJournal records entries in memory.
type memoryJournal struct {
	entries []JournalEntry
}

func (j *memoryJournal) Record(_ context.Context, e JournalEntry) error {
	j.entries = append(j.entries, e)
	return nil
}
