package datadomain

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	envMode      = "DD_RUNTIME_MODE"
	envHost      = "DD_HOST"
	envUsername  = "DD_USERNAME"
	envPassword  = "DD_PASSWORD"
	envBaseURL   = "DD_BASE_URL"
	envVerifyTLS = "DD_VERIFY_TLS"
	envSSHPort   = "DD_SSH_PORT"
	envEnvFile   = "DD_ENV_FILE"

	modeAuto = "auto"
	modeHTTP = "http"
	modeMock = "mock"
)

// NewFromEnv builds a client from DD_* environment variables and returns the
// resolved mode ("http" or "mock"). DD_ENV_FILE may name a dotenv file whose
// values apply where the process environment is unset. In auto mode (the
// default) a missing DD_HOST selects an in-memory mock appliance.
//
// Credentials from DD_USERNAME/DD_PASSWORD seed the session for remote
// commands; Login still has to be called for REST operations.
func NewFromEnv(opts ...Option) (client *Client, mode string, err error) {
	lookup, err := envLookup()
	if err != nil {
		return nil, "", err
	}
	mode = strings.ToLower(lookup(envMode))
	host := lookup(envHost)

	switch mode {
	case "", modeAuto:
		if host != "" {
			return newHTTPClientFromEnv(lookup, opts)
		}
		return newMockClientFromEnv(lookup, opts)
	case modeHTTP:
		if host == "" {
			return nil, "", fmt.Errorf("datadomain: HTTP mode requires %s", envHost)
		}
		return newHTTPClientFromEnv(lookup, opts)
	case modeMock:
		return newMockClientFromEnv(lookup, opts)
	default:
		return nil, "", fmt.Errorf("datadomain: unsupported %s value %q", envMode, mode)
	}
}

func envLookup() (func(string) string, error) {
	var file map[string]string
	if path := strings.TrimSpace(os.Getenv(envEnvFile)); path != "" {
		values, err := godotenv.Read(path)
		if err != nil {
			return nil, fmt.Errorf("datadomain: read %s: %w", envEnvFile, err)
		}
		file = values
	}
	return func(key string) string {
		if v, ok := os.LookupEnv(key); ok {
			return strings.TrimSpace(v)
		}
		return strings.TrimSpace(file[key])
	}, nil
}

func newHTTPClientFromEnv(lookup func(string) string, extra []Option) (*Client, string, error) {
	var opts []Option
	if u := lookup(envBaseURL); u != "" {
		opts = append(opts, WithBaseURL(u))
	}
	if v := lookup(envVerifyTLS); v != "" {
		verify, err := strconv.ParseBool(v)
		if err != nil {
			return nil, "", fmt.Errorf("datadomain: parse %s: %w", envVerifyTLS, err)
		}
		opts = append(opts, WithVerifyTLS(verify))
	}
	if v := lookup(envSSHPort); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil || port <= 0 || port > 65535 {
			return nil, "", fmt.Errorf("datadomain: invalid %s %q", envSSHPort, v)
		}
		opts = append(opts, WithSSHPort(port))
	}
	if user := lookup(envUsername); user != "" {
		opts = append(opts, WithCredentials(user, lookup(envPassword)))
	}
	client, err := New(lookup(envHost), append(opts, extra...)...)
	if err != nil {
		return nil, "", fmt.Errorf("datadomain: init HTTP client: %w", err)
	}
	return client, modeHTTP, nil
}
