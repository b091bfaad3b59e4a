package remote

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/crypto/ssh"
)

// DefaultSSHPort is the port appliances accept SSH logins on.
const DefaultSSHPort = 22

// SSHOption configures an SSHDialer.
type SSHOption func(*SSHDialer)

// WithPort overrides the SSH port.
func WithPort(port int) SSHOption {
	return func(d *SSHDialer) {
		if port > 0 {
			d.port = port
		}
	}
}

// WithDialTimeout bounds TCP connect plus SSH handshake.
func WithDialTimeout(timeout time.Duration) SSHOption {
	return func(d *SSHDialer) {
		if timeout > 0 {
			d.timeout = timeout
		}
	}
}

// WithHostKeyCallback sets the host key policy. The default accepts any key.
func WithHostKeyCallback(cb ssh.HostKeyCallback) SSHOption {
	return func(d *SSHDialer) {
		if cb != nil {
			d.hostKeyCallback = cb
		}
	}
}

// WithSSHLogger routes command diagnostics to l.
func WithSSHLogger(l *slog.Logger) SSHOption {
	return func(d *SSHDialer) {
		if l != nil {
			d.logger = l
		}
	}
}

// SSHDialer dials appliances with password or keyboard-interactive
// authentication.
type SSHDialer struct {
	port            int
	timeout         time.Duration
	hostKeyCallback ssh.HostKeyCallback
	logger          *slog.Logger
}

// NewSSHDialer returns a dialer with appliance defaults: port 22, a 30 second
// handshake limit and no host key verification.
func NewSSHDialer(opts ...SSHOption) *SSHDialer {
	d := &SSHDialer{
		port:            DefaultSSHPort,
		timeout:         30 * time.Second,
		hostKeyCallback: InsecureIgnoreHostKey(),
		logger:          slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Dial connects and authenticates. Rejected credentials yield an error
// matching ErrAuthentication; every failure is a *DialError.
func (d *SSHDialer) Dial(ctx context.Context, host string, creds Credentials) (Conn, error) {
	if strings.TrimSpace(host) == "" {
		return nil, &DialError{Host: host, Err: errors.New("host is required")}
	}
	addr := net.JoinHostPort(host, strconv.Itoa(d.port))
	cfg := &ssh.ClientConfig{
		User: creds.Username,
		Auth: []ssh.AuthMethod{
			ssh.Password(creds.Password),
			ssh.KeyboardInteractive(passwordChallenge(creds.Password)),
		},
		HostKeyCallback: d.hostKeyCallback,
		Timeout:         d.timeout,
	}

	nd := net.Dialer{Timeout: d.timeout}
	nc, err := nd.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, &DialError{Host: host, Err: errors.Wrap(err, "tcp dial")}
	}
	deadline := time.Now().Add(d.timeout)
	if dl, ok := ctx.Deadline(); ok && dl.Before(deadline) {
		deadline = dl
	}
	_ = nc.SetDeadline(deadline)

	stop := context.AfterFunc(ctx, func() { _ = nc.Close() })
	cc, chans, reqs, err := ssh.NewClientConn(nc, addr, cfg)
	if !stop() {
		if err == nil {
			_ = cc.Close()
		}
		_ = nc.Close()
		return nil, &DialError{Host: host, Err: errors.WithStack(ctx.Err())}
	}
	if err != nil {
		_ = nc.Close()
		if isAuthFailure(err) {
			return nil, &DialError{Host: host, Err: errors.WithStack(ErrAuthentication)}
		}
		return nil, &DialError{Host: host, Err: errors.Wrap(err, "ssh handshake")}
	}
	_ = nc.SetDeadline(time.Time{})

	d.logger.DebugContext(ctx, "ssh connected", "host", host, "user", creds.Username)
	return &sshConn{host: host, client: ssh.NewClient(cc, chans, reqs), logger: d.logger}, nil
}

func passwordChallenge(password string) ssh.KeyboardInteractiveChallenge {
	return func(_, _ string, questions []string, _ []bool) ([]string, error) {
		answers := make([]string, len(questions))
		for i := range answers {
			answers[i] = password
		}
		return answers, nil
	}
}

func isAuthFailure(err error) bool {
	return strings.Contains(err.Error(), "unable to authenticate")
}

type sshConn struct {
	host   string
	client *ssh.Client
	logger *slog.Logger
}

func (c *sshConn) Run(ctx context.Context, command string) (*Result, error) {
	sess, err := c.client.NewSession()
	if err != nil {
		return nil, errors.Wrapf(err, "remote: open channel on %s", c.host)
	}
	defer sess.Close()

	var stdout, stderr bytes.Buffer
	sess.Stdout = &stdout
	sess.Stderr = &stderr

	done := make(chan error, 1)
	go func() { done <- sess.Run(command) }()

	select {
	case <-ctx.Done():
		_ = sess.Close()
		<-done
		return nil, errors.Wrapf(ctx.Err(), "remote: run on %s", c.host)
	case err = <-done:
	}

	res := &Result{Stdout: stdout.Bytes(), Stderr: stderr.Bytes()}
	var exitErr *ssh.ExitError
	switch {
	case err == nil:
	case errors.As(err, &exitErr):
		res.ExitStatus = exitErr.ExitStatus()
	default:
		return nil, errors.Wrapf(err, "remote: run on %s", c.host)
	}
	c.logger.DebugContext(ctx, "ssh command", "host", c.host, "command", command, "exit_status", res.ExitStatus)
	return res, nil
}

func (c *sshConn) Close() error {
	return c.client.Close()
}
