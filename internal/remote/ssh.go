package remote

import (
	"context"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"golang.org/x/crypto/ssh"
)

const (
	defaultSSHPort     = "22"
	defaultDialTimeout = 15 * time.Second
)

// SSHRunner implements Runner with an in-process SSH client, so passwords
// travel through the client API and never appear on an argv or in the
// environment of a child process.
type SSHRunner struct {
	// DialTimeout bounds connection establishment. Zero means 15s.
	DialTimeout time.Duration
}

var _ Runner = (*SSHRunner)(nil)

func (r *SSHRunner) Execute(ctx context.Context, host string, creds Credentials, script string) (string, error) {
	client, err := r.dial(ctx, host, creds)
	if err != nil {
		return "", err
	}
	defer client.Close()

	session, err := client.NewSession()
	if err != nil {
		return "", fmt.Errorf("open session to %s: %w", host, err)
	}
	defer session.Close()

	session.Stdin = strings.NewReader(script)
	out, err := session.CombinedOutput("sh -s")
	if err != nil {
		output := strings.TrimSpace(string(out))
		if output == "" {
			return "", fmt.Errorf("ssh %s failed: %w", host, err)
		}
		return "", fmt.Errorf("ssh %s failed: %w: %s", host, err, output)
	}
	return strings.TrimSpace(string(out)), nil
}

func (r *SSHRunner) Copy(ctx context.Context, host string, creds Credentials, content []byte, path string) error {
	client, err := r.dial(ctx, host, creds)
	if err != nil {
		return err
	}
	defer client.Close()

	session, err := client.NewSession()
	if err != nil {
		return fmt.Errorf("open session to %s: %w", host, err)
	}
	defer session.Close()

	session.Stdin = strings.NewReader(string(content))
	out, err := session.CombinedOutput(receiveFileCommand(path))
	if err != nil {
		output := strings.TrimSpace(string(out))
		if output == "" {
			return fmt.Errorf("copy to %s:%s: %w", host, path, err)
		}
		return fmt.Errorf("copy to %s:%s: %w: %s", host, path, err, output)
	}
	return nil
}

func (r *SSHRunner) dial(ctx context.Context, host string, creds Credentials) (*ssh.Client, error) {
	timeout := r.DialTimeout
	if timeout <= 0 {
		timeout = defaultDialTimeout
	}

	auth, err := authMethods(creds)
	if err != nil {
		return nil, err
	}

	cfg := &ssh.ClientConfig{
		User: creds.User,
		Auth: auth,
		// Peers are bootstrapped fresh; host keys are not pinned. The data
		// plane does its own mutual authentication with tinc key material.
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         timeout,
	}

	addr := host
	if _, _, splitErr := net.SplitHostPort(host); splitErr != nil {
		addr = net.JoinHostPort(host, defaultSSHPort)
	}

	dialer := net.Dialer{Timeout: timeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, &ConnectError{Host: host, Err: err}
	}

	sshConn, chans, reqs, err := ssh.NewClientConn(conn, addr, cfg)
	if err != nil {
		_ = conn.Close()
		if strings.Contains(err.Error(), "unable to authenticate") ||
			strings.Contains(err.Error(), "no supported methods remain") {
			return nil, &AuthError{Host: host, Err: err}
		}
		return nil, &ConnectError{Host: host, Err: err}
	}
	return ssh.NewClient(sshConn, chans, reqs), nil
}

func authMethods(creds Credentials) ([]ssh.AuthMethod, error) {
	var methods []ssh.AuthMethod
	if strings.TrimSpace(creds.KeyPath) != "" {
		raw, err := os.ReadFile(creds.KeyPath)
		if err != nil {
			return nil, fmt.Errorf("read ssh key %s: %w", creds.KeyPath, err)
		}
		signer, err := ssh.ParsePrivateKey(raw)
		if err != nil {
			return nil, fmt.Errorf("parse ssh key %s: %w", creds.KeyPath, err)
		}
		methods = append(methods, ssh.PublicKeys(signer))
	}
	if creds.Password != "" {
		methods = append(methods, ssh.Password(creds.Password))
	}
	if len(methods) == 0 {
		return nil, fmt.Errorf("no ssh credentials supplied")
	}
	return methods, nil
}

// receiveFileCommand builds the remote side of Copy: parent directory
// creation plus a stdin capture, elevated when the login user is not root.
func receiveFileCommand(path string) string {
	dir := parentDir(path)
	return fmt.Sprintf(`SUDO=""; if [ "$(id -u)" -ne 0 ]; then SUDO=sudo; fi; $SUDO mkdir -p %s && $SUDO sh -c %s`,
		ShellQuote(dir), ShellQuote("cat > "+path))
}

func parentDir(path string) string {
	idx := strings.LastIndex(path, "/")
	if idx <= 0 {
		return "/"
	}
	return path[:idx]
}
