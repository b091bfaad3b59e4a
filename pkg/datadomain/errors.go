package datadomain

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	// ErrTransport matches failures to reach the appliance at all.
	ErrTransport = errors.New("datadomain: transport failure")
	// ErrAuthentication matches rejected credentials and expired sessions,
	// over REST as well as SSH.
	ErrAuthentication = errors.New("datadomain: authentication failed")
	// ErrUnexpectedStatus matches any REST response other than the one
	// success code an operation accepts.
	ErrUnexpectedStatus = errors.New("datadomain: unexpected status")
	// ErrCommandFailed matches a remote command that exited non-zero.
	ErrCommandFailed = errors.New("datadomain: command failed")
	// ErrNoCredentials is returned by remote operations before any
	// credentials were supplied.
	ErrNoCredentials = errors.New("datadomain: no credentials; call Login or use WithCredentials")
	// ErrInvalidArgument matches input rejected before anything is sent.
	ErrInvalidArgument = errors.New("datadomain: invalid argument")
)

// Succeeded collapses an operation result to the boolean contract of older
// clients: true exactly when err is nil.
func Succeeded(err error) bool {
	return err == nil
}

// TransportError wraps a network level failure of operation Op.
type TransportError struct {
	Op   string
	Host string
	Err  error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("datadomain: %s: %s: %v", e.Op, e.Host, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrTransport) match.
func (e *TransportError) Is(target error) bool { return target == ErrTransport }

// StatusError reports a REST response whose status differed from Expected.
type StatusError struct {
	Op         string
	Method     string
	URL        string
	StatusCode int
	Expected   int
	Details    string
	Body       []byte
}

func (e *StatusError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "datadomain: %s: %s %s: status %d, expected %d", e.Op, e.Method, e.URL, e.StatusCode, e.Expected)
	if e.Details != "" {
		b.WriteString(": ")
		b.WriteString(e.Details)
	}
	return b.String()
}

// Is matches ErrUnexpectedStatus always and ErrAuthentication for 401/403.
func (e *StatusError) Is(target error) bool {
	switch target {
	case ErrUnexpectedStatus:
		return true
	case ErrAuthentication:
		return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden
	}
	return false
}

// NotFound reports a 404 response.
func (e *StatusError) NotFound() bool {
	return e.StatusCode == http.StatusNotFound
}

// CommandError reports a remote command that exited non-zero.
type CommandError struct {
	Host       string
	Command    string
	ExitStatus int
	Output     string
}

func (e *CommandError) Error() string {
	msg := fmt.Sprintf("datadomain: %s: %q exited with status %d", e.Host, e.Command, e.ExitStatus)
	if e.Output != "" {
		msg += ": " + e.Output
	}
	return msg
}

// Is lets errors.Is(err, ErrCommandFailed) match.
func (e *CommandError) Is(target error) bool { return target == ErrCommandFailed }

// StepError reports which step of a multi-step operation failed. Steps in
// Completed already took effect on the appliance and were not undone, unless
// RolledBack is set.
type StepError struct {
	Op         string
	Step       int
	Name       string
	Completed  []string
	RolledBack bool
	// RollbackErr is set when a requested cleanup itself failed.
	RollbackErr error
	Err         error
}

func (e *StepError) Error() string {
	msg := fmt.Sprintf("datadomain: %s: step %d (%s) failed: %v", e.Op, e.Step, e.Name, e.Err)
	if len(e.Completed) > 0 {
		msg += fmt.Sprintf("; completed: %s", strings.Join(e.Completed, ", "))
	}
	if e.RolledBack {
		msg += "; rolled back"
	} else if e.RollbackErr != nil {
		msg += fmt.Sprintf("; rollback failed: %v", e.RollbackErr)
	}
	return msg
}

func (e *StepError) Unwrap() error { return e.Err }

func invalidArg(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrInvalidArgument}, args...)...)
}
