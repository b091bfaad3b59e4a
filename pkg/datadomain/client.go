package datadomain

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync/atomic"

	"github.com/ddtools/datadomain_sdk_go/internal/ddapi"
	"github.com/ddtools/datadomain_sdk_go/internal/httpx"
	"github.com/ddtools/datadomain_sdk_go/pkg/remote"
)

// Client manages one appliance. Operations are synchronous; a Client may be
// shared between goroutines, but interleaved Login/Logout calls race on which
// session later requests observe.
type Client struct {
	http    *httpx.Client
	dialer  remote.Dialer
	logger  *slog.Logger
	session atomic.Pointer[Session]
}

// New returns a client for the appliance at hostname. No network traffic
// happens until the first operation.
func New(hostname string, opts ...Option) (*Client, error) {
	hostname = strings.TrimSpace(hostname)
	if hostname == "" {
		return nil, invalidArg("hostname is required")
	}
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	baseURL := cfg.baseURL
	if baseURL == "" {
		baseURL = ddapi.BaseURL(hostname)
	}
	hc := cfg.httpClient
	if hc == nil {
		hc = &http.Client{Timeout: cfg.timeout, Transport: newTransport(cfg)}
	}
	hx, err := httpx.NewClient(baseURL,
		httpx.WithHTTPClient(hc),
		httpx.WithHeaders(http.Header{
			"Content-Type": {"application/json"},
			"Accept":       {"application/json"},
		}),
		httpx.WithRetryPolicy(cfg.retry),
		httpx.WithLogger(cfg.logger),
	)
	if err != nil {
		return nil, fmt.Errorf("datadomain: %w", err)
	}

	dialer := cfg.dialer
	if dialer == nil {
		sshOpts := []remote.SSHOption{remote.WithPort(cfg.sshPort), remote.WithSSHLogger(cfg.logger)}
		if cfg.hostKeyCallback != nil {
			sshOpts = append(sshOpts, remote.WithHostKeyCallback(cfg.hostKeyCallback))
		}
		dialer = remote.NewSSHDialer(sshOpts...)
	}

	c := &Client{http: hx, dialer: dialer, logger: cfg.logger}
	s := Session{Host: hostname, VerifyTLS: cfg.verifyTLS}.withCredentials(cfg.username, cfg.password)
	c.session.Store(&s)
	return c, nil
}

func newTransport(cfg config) http.RoundTripper {
	tr := http.DefaultTransport.(*http.Transport).Clone()
	tr.TLSClientConfig = &tls.Config{
		InsecureSkipVerify: !cfg.verifyTLS, //nolint:gosec // appliance certificates are self-signed unless configured otherwise
		RootCAs:            cfg.rootCAs,
		MinVersion:         tls.VersionTLS12,
	}
	return tr
}

// Session returns a copy of the current session.
func (c *Client) Session() Session {
	return *c.session.Load()
}

// Host is the appliance hostname given to New.
func (c *Client) Host() string {
	return c.Session().Host
}

type authRequest struct {
	AuthInfo authInfo `json:"auth_info"`
}

type authInfo struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Login authenticates against /auth. The credentials are kept for remote
// commands whether or not the REST login succeeds. Only HTTP 201 counts as
// success; the returned token is attached to every later request.
func (c *Client) Login(ctx context.Context, username, password string) error {
	if strings.TrimSpace(username) == "" {
		return invalidArg("username is required")
	}
	base := c.Session().withCredentials(username, password)
	c.session.Store(&base)

	payload := authRequest{AuthInfo: authInfo{Username: username, Password: password}}
	_, header, err := c.send(ctx, "login", http.MethodPost, ddapi.AuthPath, payload, http.StatusCreated)
	if err != nil {
		return err
	}
	token := header.Get(ddapi.TokenHeader)
	if token == "" {
		return fmt.Errorf("%w: login response carried no %s header", ErrAuthentication, ddapi.TokenHeader)
	}
	next := base.withToken(token)
	c.session.Store(&next)
	c.logger.DebugContext(ctx, "datadomain login", "host", base.Host, "user", username)
	return nil
}

// Logout ends the REST session. Only HTTP 200 counts as success, after which
// the token is dropped from the session; on failure the token is kept so the
// caller may retry.
func (c *Client) Logout(ctx context.Context) error {
	if _, _, err := c.send(ctx, "logout", http.MethodDelete, ddapi.AuthPath, nil, http.StatusOK); err != nil {
		return err
	}
	next := c.Session().withToken("")
	c.session.Store(&next)
	return nil
}

func (c *Client) get(ctx context.Context, op, path string) ([]byte, error) {
	body, _, err := c.send(ctx, op, http.MethodGet, path, nil, http.StatusOK)
	return body, err
}

func (c *Client) post(ctx context.Context, op, path string, payload any) ([]byte, error) {
	body, _, err := c.send(ctx, op, http.MethodPost, path, payload, http.StatusCreated)
	return body, err
}

func (c *Client) delete(ctx context.Context, op, path string) error {
	_, _, err := c.send(ctx, op, http.MethodDelete, path, nil, http.StatusOK)
	return err
}

// send issues one request and accepts exactly one status code.
func (c *Client) send(ctx context.Context, op, method, path string, payload any, expect int) ([]byte, http.Header, error) {
	s := c.Session()
	target, err := c.http.URL(path)
	if err != nil {
		return nil, nil, fmt.Errorf("datadomain: %s: %w", op, err)
	}
	// POSTs create resources or sessions, so a retry could apply them twice.
	req := &httpx.Request{Method: method, Path: path, DisableRetry: method == http.MethodPost}
	if payload != nil {
		body, getBody, err := httpx.JSONBody(payload)
		if err != nil {
			return nil, nil, fmt.Errorf("datadomain: %s: encode request: %w", op, err)
		}
		req.Body = body
		req.GetBody = getBody
	}
	if s.Token != "" {
		req.Header = http.Header{ddapi.TokenHeader: {s.Token}}
	}
	resp, err := c.http.Do(ctx, req)
	if err != nil {
		var httpErr *httpx.HTTPError
		if errors.As(err, &httpErr) {
			return nil, nil, &StatusError{
				Op:         op,
				Method:     method,
				URL:        target,
				StatusCode: httpErr.StatusCode,
				Expected:   expect,
				Details:    ddapi.ExtractDetails(httpErr.Body),
				Body:       httpErr.Body,
			}
		}
		return nil, nil, &TransportError{Op: op, Host: s.Host, Err: err}
	}
	data, err := httpx.ReadAllAndClose(resp.Body)
	if err != nil {
		return nil, nil, &TransportError{Op: op, Host: s.Host, Err: err}
	}
	if resp.StatusCode != expect {
		return nil, nil, &StatusError{
			Op:         op,
			Method:     method,
			URL:        target,
			StatusCode: resp.StatusCode,
			Expected:   expect,
			Details:    ddapi.ExtractDetails(data),
			Body:       data,
		}
	}
	return data, resp.Header, nil
}

// connect opens a remote command connection to host with the session
// credentials.
func (c *Client) connect(ctx context.Context, op, host string) (remote.Conn, error) {
	s := c.Session()
	if !s.HasCredentials() {
		return nil, ErrNoCredentials
	}
	conn, err := c.dialer.Dial(ctx, host, remote.Credentials{Username: s.Username, Password: s.password})
	if err != nil {
		if errors.Is(err, remote.ErrAuthentication) {
			return nil, fmt.Errorf("%w: %s: ssh to %s as %s", ErrAuthentication, op, host, s.Username)
		}
		return nil, &TransportError{Op: op, Host: host, Err: err}
	}
	return conn, nil
}

// run executes one validated command and requires exit status 0.
func (c *Client) run(ctx context.Context, op, host string, conn remote.Conn, cmd Command) error {
	if err := cmd.Validate(); err != nil {
		return err
	}
	line := cmd.String()
	c.logger.DebugContext(ctx, "datadomain command", "op", op, "host", host, "command", line)
	res, err := conn.Run(ctx, line)
	if err != nil {
		return &TransportError{Op: op, Host: host, Err: err}
	}
	if res.ExitStatus != 0 {
		out := strings.TrimSpace(string(res.Stderr))
		if out == "" {
			out = strings.TrimSpace(string(res.Stdout))
		}
		return &CommandError{Host: host, Command: line, ExitStatus: res.ExitStatus, Output: out}
	}
	return nil
}

type step struct {
	name string
	host string
	conn remote.Conn
	cmd  Command
}

// runSteps executes steps in order and stops at the first failure. Nothing
// already done is undone.
func (c *Client) runSteps(ctx context.Context, op string, steps []step) error {
	completed := make([]string, 0, len(steps))
	for i, st := range steps {
		if err := c.run(ctx, op, st.host, st.conn, st.cmd); err != nil {
			return &StepError{Op: op, Step: i + 1, Name: st.name, Completed: completed, Err: err}
		}
		completed = append(completed, st.name)
	}
	return nil
}

func closeConn(conn remote.Conn) {
	if conn != nil {
		_ = conn.Close()
	}
}
