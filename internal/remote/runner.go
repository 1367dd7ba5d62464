// Package remote is the channel through which weft reaches peers: script
// execution and file placement over SSH.
//
// Credentials are scoped values. They are handed to a Runner call, used for
// that one round trip, and never persisted, logged, or exposed on a process
// argument list.
package remote

import (
	"context"
	"errors"
)

// Credentials authenticates one remote operation. Password and KeyPath are
// alternatives; when both are set the key is tried first.
type Credentials struct {
	User     string
	Password string
	KeyPath  string
}

// Runner executes scripts and places files on a remote host.
type Runner interface {
	// Execute streams script to `sh -s` on host and returns the combined
	// trimmed output.
	Execute(ctx context.Context, host string, creds Credentials, script string) (string, error)

	// Copy writes content to path on host, creating parent directories.
	Copy(ctx context.Context, host string, creds Credentials, content []byte, path string) error
}

// ConnectError reports a host that could not be reached.
type ConnectError struct {
	Host string
	Err  error
}

func (e *ConnectError) Error() string { return "connect " + e.Host + ": " + e.Err.Error() }
func (e *ConnectError) Unwrap() error { return e.Err }

// AuthError reports a host that rejected the supplied credentials.
type AuthError struct {
	Host string
	Err  error
}

func (e *AuthError) Error() string { return "authenticate to " + e.Host + ": " + e.Err.Error() }
func (e *AuthError) Unwrap() error { return e.Err }

// IsUnreachable reports whether err means the peer could not be contacted or
// authenticated, as opposed to a script failing on the peer.
func IsUnreachable(err error) bool {
	var ce *ConnectError
	var ae *AuthError
	return errors.As(err, &ce) || errors.As(err, &ae)
}
