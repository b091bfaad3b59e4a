package mock

import (
	"context"
	"net/http"
	"net/http/httptest"

	"github.com/pkg/errors"

	"github.com/ddtools/datadomain_sdk_go/pkg/remote"
)

// HTTPClient returns a client whose requests are served in-process by the
// appliance, whatever host they address.
func (a *Appliance) HTTPClient() *http.Client {
	return &http.Client{Transport: roundTripper{h: a}}
}

type roundTripper struct {
	h http.Handler
}

func (rt roundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	if err := req.Context().Err(); err != nil {
		return nil, err
	}
	rec := httptest.NewRecorder()
	rt.h.ServeHTTP(rec, req)
	if req.Body != nil {
		_ = req.Body.Close()
	}
	resp := rec.Result()
	resp.Request = req
	return resp, nil
}

// Dialer returns an in-process remote.Dialer. Commands are attributed to the
// dialed host, so one appliance can stand in for both ends of a replication.
func (a *Appliance) Dialer() remote.Dialer {
	return remote.DialerFunc(func(ctx context.Context, host string, creds remote.Credentials) (remote.Conn, error) {
		if err := ctx.Err(); err != nil {
			return nil, &remote.DialError{Host: host, Err: err}
		}
		a.mu.Lock()
		_, down := a.unreachable[host]
		a.mu.Unlock()
		if down {
			return nil, &remote.DialError{Host: host, Err: errors.New("connection refused")}
		}
		if creds.Username != a.cfg.Username || creds.Password != a.cfg.Password {
			return nil, &remote.DialError{Host: host, Err: errors.WithStack(remote.ErrAuthentication)}
		}
		return &conn{appliance: a, host: host}, nil
	})
}

type conn struct {
	appliance *Appliance
	host      string
	closed    bool
}

func (c *conn) Run(ctx context.Context, command string) (*remote.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if c.closed {
		return nil, errors.New("mock: connection closed")
	}
	return c.appliance.Exec(c.host, command), nil
}

func (c *conn) Close() error {
	c.closed = true
	return nil
}
