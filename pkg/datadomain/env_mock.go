package datadomain

import (
	"fmt"

	"github.com/ddtools/datadomain_sdk_go/internal/ddapi"
	"github.com/ddtools/datadomain_sdk_go/pkg/datadomain/mock"
)

// MockHost is the hostname of clients returned by NewMock.
const MockHost = "dd-mock.local"

// NewMock returns a client wired to a fresh in-memory appliance, together
// with that appliance. The client already holds the appliance credentials
// for remote commands.
func NewMock(cfg mock.Config, opts ...Option) (*Client, *mock.Appliance, error) {
	appliance := mock.New(cfg)
	creds := appliance.Credentials()
	base := []Option{
		WithBaseURL("http://" + MockHost + "/rest/" + ddapi.Version),
		WithHTTPClient(appliance.HTTPClient()),
		WithDialer(appliance.Dialer()),
		WithCredentials(creds.Username, creds.Password),
	}
	client, err := New(MockHost, append(base, opts...)...)
	if err != nil {
		return nil, nil, err
	}
	return client, appliance, nil
}

func newMockClientFromEnv(lookup func(string) string, extra []Option) (*Client, string, error) {
	cfg := mock.Config{Username: lookup(envUsername), Password: lookup(envPassword)}
	client, _, err := NewMock(cfg, extra...)
	if err != nil {
		return nil, "", fmt.Errorf("datadomain: init mock client: %w", err)
	}
	return client, modeMock, nil
}
