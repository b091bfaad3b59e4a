package datadomain

import (
	"crypto/x509"
	"io"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/crypto/ssh"

	"github.com/ddtools/datadomain_sdk_go/internal/httpx"
	"github.com/ddtools/datadomain_sdk_go/pkg/remote"
)

// Option configures a Client.
type Option func(*config)

type config struct {
	baseURL         string
	httpClient      *http.Client
	timeout         time.Duration
	verifyTLS       bool
	rootCAs         *x509.CertPool
	retry           httpx.RetryPolicy
	dialer          remote.Dialer
	sshPort         int
	hostKeyCallback ssh.HostKeyCallback
	username        string
	password        string
	logger          *slog.Logger
}

func defaultConfig() config {
	return config{
		timeout: 30 * time.Second,
		retry:   httpx.NoRetry,
		sshPort: remote.DefaultSSHPort,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

// WithBaseURL replaces https://<host>:3009/rest/v1.0. The hostname given to
// New is still used for SSH and replication locators.
func WithBaseURL(u string) Option {
	return func(c *config) { c.baseURL = u }
}

// WithHTTPClient supplies the HTTP client. TLS and timeout options are
// ignored when it is set.
func WithHTTPClient(h *http.Client) Option {
	return func(c *config) { c.httpClient = h }
}

// WithTimeout bounds each HTTP request.
func WithTimeout(d time.Duration) Option {
	return func(c *config) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithVerifyTLS turns certificate verification on or off. It is off by
// default because appliances ship self-signed certificates, which leaves
// the management session open to interception.
func WithVerifyTLS(verify bool) Option {
	return func(c *config) { c.verifyTLS = verify }
}

// WithRootCAs verifies the appliance certificate against pool. It implies
// WithVerifyTLS(true).
func WithRootCAs(pool *x509.CertPool) Option {
	return func(c *config) {
		c.rootCAs = pool
		c.verifyTLS = pool != nil || c.verifyTLS
	}
}

// WithRetries retries transient failures (429, 408, 502, 503, 504 and
// connection errors) up to max times. Requests are sent once by default.
func WithRetries(max int, baseDelay, maxDelay time.Duration) Option {
	return func(c *config) {
		c.retry = httpx.RetryPolicy{
			MaxRetries: max,
			BaseDelay:  baseDelay,
			MaxDelay:   maxDelay,
			Jitter:     httpx.DefaultRetryPolicy.Jitter,
		}
	}
}

// WithDialer replaces the SSH dialer used for remote commands.
func WithDialer(d remote.Dialer) Option {
	return func(c *config) { c.dialer = d }
}

// WithSSHPort sets the port of the default SSH dialer.
func WithSSHPort(port int) Option {
	return func(c *config) {
		if port > 0 {
			c.sshPort = port
		}
	}
}

// WithHostKeyCallback sets the host key policy of the default SSH dialer.
func WithHostKeyCallback(cb ssh.HostKeyCallback) Option {
	return func(c *config) { c.hostKeyCallback = cb }
}

// WithCredentials seeds the session so remote operations work without a
// REST login.
func WithCredentials(username, password string) Option {
	return func(c *config) {
		c.username = username
		c.password = password
	}
}

// WithLogger routes debug diagnostics to l. Credentials and tokens are never
// logged.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}
