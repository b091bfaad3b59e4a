package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"math/rand"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/lmittmann/tint"
	"golang.org/x/crypto/ssh"

	"github.com/ddtools/datadomain_sdk_go/internal/ddapi"
	"github.com/ddtools/datadomain_sdk_go/pkg/datadomain/mock"
)

type failConfig struct {
	rate float64
	code int
}

type commandFailure struct {
	prefix string
	status int
}

func main() {
	addr := flag.String("addr", ":8787", "REST listen address")
	sshAddr := flag.String("ssh-addr", ":2222", "SSH listen address (empty disables SSH)")
	hostName := flag.String("hostname", "localhost", "appliance name that SSH commands are attributed to")
	username := flag.String("username", mock.DefaultConfig.Username, "accepted account")
	password := flag.String("password", mock.DefaultConfig.Password, "accepted password")
	seed := flag.String("seed", "", "path to JSON seed (mtrees, exports, interfaces)")
	latency := flag.Duration("latency", 0, "artificial latency to inject per request")
	fail := flag.String("fail", "", "REST failure injection (rate=<float>,code=<httpStatus>)")
	failCommands := flag.String("fail-command", "", "command failure injection (<prefix>=<exitStatus>;...)")
	verbose := flag.Bool("verbose", false, "log every request at debug level")
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(tint.NewHandler(os.Stderr, &tint.Options{Level: level, TimeFormat: time.Kitchen}))

	if err := run(logger, *addr, *sshAddr, *hostName, mock.Config{Username: *username, Password: *password}, *seed, *latency, *fail, *failCommands); err != nil {
		logger.Error("dd-sandbox failed", "err", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger, addr, sshAddr, hostName string, cfg mock.Config, seedPath string, latency time.Duration, fail, failCommands string) error {
	appliance := mock.New(cfg)
	if seedPath != "" {
		data, err := mock.LoadSeed(seedPath)
		if err != nil {
			return fmt.Errorf("load seed: %w", err)
		}
		if err := appliance.Seed(data); err != nil {
			return fmt.Errorf("apply seed: %w", err)
		}
	}

	failCfg, err := parseFailConfig(fail)
	if err != nil {
		return fmt.Errorf("parse fail flag: %w", err)
	}
	cmdFailures, err := parseCommandFailures(failCommands)
	if err != nil {
		return fmt.Errorf("parse fail-command flag: %w", err)
	}
	for _, f := range cmdFailures {
		appliance.FailCommand(f.prefix, f.status)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var sshServer *mock.SSHServer
	var sshBound net.Addr
	if sshAddr != "" {
		sshServer, err = appliance.NewSSHServer(hostName)
		if err != nil {
			return err
		}
		if sshBound, err = sshServer.Start(sshAddr); err != nil {
			return err
		}
		defer sshServer.Close()
		logger.Info("ssh listening", "addr", sshBound.String(), "host_key", strings.TrimSpace(string(ssh.MarshalAuthorizedKey(sshServer.PublicKey()))))
	}

	server := &http.Server{
		Addr:              addr,
		Handler:           withMiddleware(logger, latency, failCfg, appliance),
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("dd-sandbox listening", "addr", addr, "username", cfg.Username)
	printExports(addr, sshBound, cfg)

	errCh := make(chan error, 1)
	go func() { errCh <- server.ListenAndServe() }()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	}
}

func printExports(addr string, sshBound net.Addr, cfg mock.Config) {
	host := addr
	if strings.HasPrefix(host, ":") {
		host = "localhost" + host
	}
	fmt.Println()
	fmt.Println("export DD_RUNTIME_MODE=http")
	fmt.Println("export DD_HOST=localhost")
	fmt.Printf("export DD_BASE_URL=http://%s/rest/%s\n", host, ddapi.Version)
	if tcp, ok := sshBound.(*net.TCPAddr); ok {
		fmt.Printf("export DD_SSH_PORT=%d\n", tcp.Port)
	}
	fmt.Printf("export DD_USERNAME=%s\n", cfg.Username)
	fmt.Printf("export DD_PASSWORD=%s\n", cfg.Password)
	fmt.Println()
}

type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (r *statusRecorder) Write(p []byte) (int, error) {
	n, err := r.ResponseWriter.Write(p)
	r.bytes += n
	return n, err
}

func withMiddleware(logger *slog.Logger, delay time.Duration, failCfg failConfig, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		if delay > 0 {
			time.Sleep(delay)
		}
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		if failCfg.rate > 0 && rand.Float64() < failCfg.rate {
			status := failCfg.code
			if status == 0 {
				status = http.StatusInternalServerError
			}
			rec.Header().Set("Content-Type", "application/json")
			rec.WriteHeader(status)
			_, _ = rec.Write(ddapi.WriteError(status, "failure injected"))
		} else {
			next.ServeHTTP(rec, r)
		}
		logger.Debug("request",
			"method", r.Method,
			"path", r.URL.EscapedPath(),
			"status", rec.status,
			"size", humanize.Bytes(uint64(rec.bytes)),
			"took", time.Since(start).Round(time.Microsecond),
		)
	})
}

func parseFailConfig(raw string) (failConfig, error) {
	if strings.TrimSpace(raw) == "" {
		return failConfig{}, nil
	}
	cfg := failConfig{code: http.StatusInternalServerError}
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		key, val, ok := strings.Cut(part, "=")
		if !ok {
			return failConfig{}, fmt.Errorf("invalid fail segment %q", part)
		}
		switch strings.TrimSpace(key) {
		case "rate":
			v, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
			if err != nil {
				return failConfig{}, err
			}
			if v < 0 || v > 1 {
				return failConfig{}, fmt.Errorf("fail rate %v outside [0,1]", v)
			}
			cfg.rate = v
		case "code":
			v, err := strconv.Atoi(strings.TrimSpace(val))
			if err != nil {
				return failConfig{}, err
			}
			cfg.code = v
		default:
			return failConfig{}, fmt.Errorf("unknown fail key %q", key)
		}
	}
	return cfg, nil
}

func parseCommandFailures(raw string) ([]commandFailure, error) {
	var out []commandFailure
	for _, part := range strings.Split(raw, ";") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		prefix, status, ok := strings.Cut(part, "=")
		if !ok || strings.TrimSpace(prefix) == "" {
			return nil, fmt.Errorf("invalid fail-command segment %q", part)
		}
		code, err := strconv.Atoi(strings.TrimSpace(status))
		if err != nil || code <= 0 || code > 255 {
			return nil, fmt.Errorf("invalid exit status in %q", part)
		}
		out = append(out, commandFailure{prefix: strings.TrimSpace(prefix), status: code})
	}
	return out, nil
}
