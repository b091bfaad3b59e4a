// Package cli implements the ddctl command tree.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/ddtools/datadomain_sdk_go/pkg/datadomain"
	"github.com/ddtools/datadomain_sdk_go/pkg/remote"
)

// Settings is the resolved connection configuration: flags over DD_*
// environment variables over the config file.
type Settings struct {
	Host       string
	BaseURL    string
	Username   string
	Password   string
	VerifyTLS  bool
	SSHPort    int
	KnownHosts string
}

// ClientFactory builds the appliance client for a command.
type ClientFactory func(s Settings, logger *slog.Logger) (*datadomain.Client, error)

// DefaultClientFactory connects to s.Host over HTTPS and SSH.
func DefaultClientFactory(s Settings, logger *slog.Logger) (*datadomain.Client, error) {
	if s.Host == "" {
		return nil, fmt.Errorf("no appliance host: set --host, DD_HOST or host in %s", DefaultConfigPath())
	}
	opts := []datadomain.Option{
		datadomain.WithVerifyTLS(s.VerifyTLS),
		datadomain.WithLogger(logger),
	}
	if s.BaseURL != "" {
		opts = append(opts, datadomain.WithBaseURL(s.BaseURL))
	}
	if s.Username != "" {
		opts = append(opts, datadomain.WithCredentials(s.Username, s.Password))
	}
	if s.SSHPort > 0 {
		opts = append(opts, datadomain.WithSSHPort(s.SSHPort))
	}
	if s.KnownHosts != "" {
		cb, err := remote.KnownHosts(s.KnownHosts)
		if err != nil {
			return nil, err
		}
		opts = append(opts, datadomain.WithHostKeyCallback(cb))
	}
	return datadomain.New(s.Host, opts...)
}

type rootFlags struct {
	configFile string
	envFile    string
	host       string
	baseURL    string
	username   string
	password   string
	verifyTLS  bool
	sshPort    int
	knownHosts string
	output     string
	verbose    bool
}

// root carries state shared by subcommands once PersistentPreRunE ran.
type root struct {
	flags     rootFlags
	factory   ClientFactory
	settings  Settings
	logger    *slog.Logger
	formatter Formatter
	client    *datadomain.Client
}

// NewRootCommand returns the ddctl command tree. A nil factory selects
// DefaultClientFactory.
func NewRootCommand(factory ClientFactory) *cobra.Command {
	if factory == nil {
		factory = DefaultClientFactory
	}
	r := &root{factory: factory}

	cmd := &cobra.Command{
		Use:   "ddctl",
		Short: "Manage DataDomain appliances",
		Long: `ddctl manages network interfaces, mtrees, NFS exports and replication
on DataDomain appliances through their REST API and SSH command line.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: r.setup,
	}

	r.flags.register(cmd.PersistentFlags())

	cmd.AddCommand(
		newInterfaceCommand(r),
		newMtreeCommand(r),
		newExportCommand(r),
		newReplicateCommand(r),
		newVersionCommand(),
	)
	return cmd
}

func (f *rootFlags) register(pf *pflag.FlagSet) {
	pf.StringVar(&f.configFile, "config", "", "config file (default is ~/.ddctl/config.yaml)")
	pf.StringVar(&f.envFile, "env-file", "", "dotenv file with DD_* variables")
	pf.StringVar(&f.host, "host", "", "appliance hostname or address")
	pf.StringVar(&f.baseURL, "base-url", "", "REST base URL (default https://<host>:3009/rest/v1.0)")
	pf.StringVarP(&f.username, "username", "u", "", "appliance account")
	pf.StringVarP(&f.password, "password", "p", "", "appliance password (or DD_PASSWORD)")
	pf.BoolVar(&f.verifyTLS, "verify-tls", false, "verify the appliance TLS certificate")
	pf.IntVar(&f.sshPort, "ssh-port", 0, "SSH port (default 22)")
	pf.StringVar(&f.knownHosts, "known-hosts", "", "known_hosts file for SSH host key verification")
	pf.StringVarP(&f.output, "output", "o", "", "output format: table, json, yaml (default \"table\")")
	pf.BoolVarP(&f.verbose, "verbose", "v", false, "log requests and commands")
}

func (r *root) setup(cmd *cobra.Command, _ []string) error {
	if r.flags.envFile != "" {
		if err := godotenv.Load(r.flags.envFile); err != nil {
			return fmt.Errorf("load env file: %w", err)
		}
	}
	path := r.flags.configFile
	if path == "" {
		path = DefaultConfigPath()
	}
	cfg, err := LoadConfig(path, cmd.ErrOrStderr())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	s, err := resolveSettings(cmd, r.flags, cfg)
	if err != nil {
		return err
	}
	r.settings = s

	output := cfg.Output
	if cmd.Flags().Changed("output") {
		output = r.flags.output
	}
	if r.formatter, err = NewFormatter(output); err != nil {
		return err
	}
	r.logger = newLogger(cmd.ErrOrStderr(), r.flags.verbose)
	return nil
}

func resolveSettings(cmd *cobra.Command, f rootFlags, cfg *Config) (Settings, error) {
	s := Settings{
		Host:       pick(cmd, "host", f.host, os.Getenv("DD_HOST"), cfg.Host),
		BaseURL:    pick(cmd, "base-url", f.baseURL, os.Getenv("DD_BASE_URL"), cfg.BaseURL),
		Username:   pick(cmd, "username", f.username, os.Getenv("DD_USERNAME"), cfg.Username),
		Password:   pick(cmd, "password", f.password, os.Getenv("DD_PASSWORD"), cfg.Password),
		KnownHosts: pick(cmd, "known-hosts", f.knownHosts, "", cfg.KnownHosts),
		VerifyTLS:  cfg.VerifyTLS,
		SSHPort:    cfg.SSHPort,
	}

	switch {
	case cmd.Flags().Changed("verify-tls"):
		s.VerifyTLS = f.verifyTLS
	case os.Getenv("DD_VERIFY_TLS") != "":
		v, err := strconv.ParseBool(os.Getenv("DD_VERIFY_TLS"))
		if err != nil {
			return Settings{}, fmt.Errorf("parse DD_VERIFY_TLS: %w", err)
		}
		s.VerifyTLS = v
	}

	switch {
	case cmd.Flags().Changed("ssh-port"):
		s.SSHPort = f.sshPort
	case os.Getenv("DD_SSH_PORT") != "":
		p, err := strconv.Atoi(os.Getenv("DD_SSH_PORT"))
		if err != nil {
			return Settings{}, fmt.Errorf("parse DD_SSH_PORT: %w", err)
		}
		s.SSHPort = p
	}
	if s.SSHPort < 0 || s.SSHPort > 65535 {
		return Settings{}, fmt.Errorf("ssh port %d out of range", s.SSHPort)
	}
	return s, nil
}

func pick(cmd *cobra.Command, flag, flagValue, envValue, cfgValue string) string {
	if cmd.Flags().Changed(flag) {
		return strings.TrimSpace(flagValue)
	}
	if v := strings.TrimSpace(envValue); v != "" {
		return v
	}
	return strings.TrimSpace(cfgValue)
}

func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(tint.NewHandler(w, &tint.Options{
		Level:      level,
		TimeFormat: time.Kitchen,
		NoColor:    w != os.Stderr,
	}))
}

// connect builds the client on first use.
func (r *root) connect() (*datadomain.Client, error) {
	if r.client != nil {
		return r.client, nil
	}
	c, err := r.factory(r.settings, r.logger)
	if err != nil {
		return nil, err
	}
	r.client = c
	return c, nil
}

// withSession logs in, runs fn and logs out again.
func (r *root) withSession(ctx context.Context, fn func(c *datadomain.Client) error) error {
	c, err := r.connect()
	if err != nil {
		return err
	}
	if err := c.Login(ctx, r.settings.Username, r.settings.Password); err != nil {
		return fmt.Errorf("login to %s: %w", c.Host(), err)
	}
	defer func() {
		if err := c.Logout(ctx); err != nil {
			r.logger.Warn("logout failed", "host", c.Host(), "err", err)
		}
	}()
	return fn(c)
}

// withCredentials runs fn against a client that can open SSH sessions.
func (r *root) withCredentials(fn func(c *datadomain.Client) error) error {
	c, err := r.connect()
	if err != nil {
		return err
	}
	if !c.Session().HasCredentials() {
		return fmt.Errorf("%w: set --username, DD_USERNAME or username in the config file", datadomain.ErrNoCredentials)
	}
	return fn(c)
}

func (r *root) print(cmd *cobra.Command, data any) {
	fmt.Fprint(cmd.OutOrStdout(), r.formatter.Format(data))
}

// ExitCode maps an error returned by the command tree to a process exit
// status.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, datadomain.ErrInvalidArgument):
		return 2
	case errors.Is(err, datadomain.ErrAuthentication), errors.Is(err, datadomain.ErrNoCredentials):
		return 3
	case errors.Is(err, datadomain.ErrTransport):
		return 4
	default:
		return 1
	}
}
