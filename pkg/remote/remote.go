// Package remote runs single shell commands on an appliance. Each command
// gets its own channel on an established connection and reports its exit
// status; the package never interprets output.
package remote

import (
	"context"
	"errors"
	"fmt"
)

// ErrAuthentication is returned by dialers when the appliance rejects the
// supplied credentials.
var ErrAuthentication = errors.New("remote: authentication failed")

// Credentials authenticate a remote connection.
type Credentials struct {
	Username string
	Password string
}

// Result is the outcome of one command.
type Result struct {
	ExitStatus int
	Stdout     []byte
	Stderr     []byte
}

// Success reports a zero exit status.
func (r *Result) Success() bool {
	return r != nil && r.ExitStatus == 0
}

// Conn executes commands on one remote host.
type Conn interface {
	// Run executes command and blocks until it exits. A non-zero exit status
	// is reported through Result, not as an error.
	Run(ctx context.Context, command string) (*Result, error)
	Close() error
}

// Dialer opens connections to remote hosts.
type Dialer interface {
	Dial(ctx context.Context, host string, creds Credentials) (Conn, error)
}

// DialerFunc adapts a function to the Dialer interface.
type DialerFunc func(ctx context.Context, host string, creds Credentials) (Conn, error)

// Dial calls f.
func (f DialerFunc) Dial(ctx context.Context, host string, creds Credentials) (Conn, error) {
	return f(ctx, host, creds)
}

// DialError describes a connection that could not be established.
type DialError struct {
	Host string
	Err  error
}

func (e *DialError) Error() string {
	return fmt.Sprintf("remote: connect %s: %v", e.Host, e.Err)
}

func (e *DialError) Unwrap() error { return e.Err }
