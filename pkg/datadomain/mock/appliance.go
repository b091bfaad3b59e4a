// Package mock implements an in-memory DataDomain appliance. It serves the
// REST subset used by the client, interprets the shell commands the client
// issues, and can be reached in-process (HTTPClient, Dialer) or over real
// sockets (Handler, SSHServer).
package mock

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/ddtools/datadomain_sdk_go/internal/ddapi"
)

// Config holds the single account the appliance accepts.
type Config struct {
	Username string
	Password string
}

// DefaultConfig is the account used when Config fields are empty.
var DefaultConfig = Config{Username: "sysadmin", Password: "changeme"}

// Mtree is a stored storage tree.
type Mtree struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ExportClient mirrors the client entry of an export.
type ExportClient struct {
	Name    string `json:"name"`
	Options string `json:"options,omitempty"`
}

// Export is a stored NFS export.
type Export struct {
	ID      string         `json:"id"`
	Path    string         `json:"path"`
	Clients []ExportClient `json:"clients"`
}

// Interface is a network interface.
type Interface struct {
	ID       string `json:"id"`
	Physical string `json:"physical,omitempty"`
	VLANID   int    `json:"vlan_id,omitempty"`
	Address  string `json:"address,omitempty"`
	Netmask  string `json:"netmask,omitempty"`
}

// Pairing is a registered replication pair as seen by one appliance.
type Pairing struct {
	Source      string
	Destination string
	Initialized bool
}

// ExecutedCommand records one remote command.
type ExecutedCommand struct {
	Host       string
	Command    string
	ExitStatus int
}

// RecordedRequest records one REST request. Path is the escaped request path.
type RecordedRequest struct {
	Method string
	Path   string
	Token  string
}

type failure struct {
	prefix string
	status int
}

// Appliance is the mock. All methods are safe for concurrent use.
type Appliance struct {
	mu          sync.Mutex
	cfg         Config
	tokens      map[string]struct{}
	mtrees      map[string]*Mtree
	exports     map[string]*Export
	ifaces      map[string]*Interface
	pairs       map[string]map[string]*Pairing
	commands    []ExecutedCommand
	requests    []RecordedRequest
	failures    []failure
	unreachable map[string]struct{}
}

// New returns an empty appliance with one physical interface, veth2.
func New(cfg Config) *Appliance {
	if cfg.Username == "" {
		cfg.Username = DefaultConfig.Username
	}
	if cfg.Password == "" {
		cfg.Password = DefaultConfig.Password
	}
	return &Appliance{
		cfg:         cfg,
		tokens:      make(map[string]struct{}),
		mtrees:      make(map[string]*Mtree),
		exports:     make(map[string]*Export),
		ifaces:      map[string]*Interface{"veth2": {ID: "veth2"}},
		pairs:       make(map[string]map[string]*Pairing),
		unreachable: make(map[string]struct{}),
	}
}

// Credentials returns the accepted account.
func (a *Appliance) Credentials() Config {
	return a.cfg
}

// SeedData pre-populates an appliance.
type SeedData struct {
	Mtrees     []string `json:"mtrees"`
	Exports    []Export `json:"exports"`
	Interfaces []string `json:"interfaces"`
}

// LoadSeed reads SeedData from a JSON file.
func LoadSeed(path string) (*SeedData, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("mock: read seed: %w", err)
	}
	var seed SeedData
	if err := json.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("mock: decode seed %s: %w", path, err)
	}
	return &seed, nil
}

// Seed adds mtrees (by name), exports (by path) and physical interfaces.
func (a *Appliance) Seed(seed *SeedData) error {
	if seed == nil {
		return nil
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, name := range seed.Mtrees {
		if strings.TrimSpace(name) == "" {
			return fmt.Errorf("mock: seed mtree with empty name")
		}
		p := ddapi.StoragePath(name)
		a.mtrees[p] = &Mtree{ID: uuid.NewString(), Name: p}
	}
	for _, e := range seed.Exports {
		if !strings.HasPrefix(e.Path, ddapi.StorageRoot+"/") {
			return fmt.Errorf("mock: seed export path %q outside %s", e.Path, ddapi.StorageRoot)
		}
		exp := e
		if exp.ID == "" {
			exp.ID = uuid.NewString()
		}
		a.exports[exp.Path] = &exp
	}
	for _, name := range seed.Interfaces {
		a.ifaces[name] = &Interface{ID: name}
	}
	return nil
}

// FailCommand makes every later command starting with prefix exit with
// status instead of running.
func (a *Appliance) FailCommand(prefix string, status int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.failures = append(a.failures, failure{prefix: prefix, status: status})
}

// SetUnreachable makes in-process dials to host fail.
func (a *Appliance) SetUnreachable(host string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.unreachable[host] = struct{}{}
}

// Commands returns every executed command in order.
func (a *Appliance) Commands() []ExecutedCommand {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]ExecutedCommand(nil), a.commands...)
}

// Requests returns every REST request in order.
func (a *Appliance) Requests() []RecordedRequest {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]RecordedRequest(nil), a.requests...)
}

// Mtree returns the mtree stored at path.
func (a *Appliance) Mtree(path string) (Mtree, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	m, ok := a.mtrees[path]
	if !ok {
		return Mtree{}, false
	}
	return *m, true
}

// Export returns the export of path.
func (a *Appliance) Export(path string) (Export, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	e, ok := a.exports[path]
	if !ok {
		return Export{}, false
	}
	cp := *e
	cp.Clients = append([]ExportClient(nil), e.Clients...)
	return cp, true
}

// Interface returns the interface called name.
func (a *Appliance) Interface(name string) (Interface, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	i, ok := a.ifaces[name]
	if !ok {
		return Interface{}, false
	}
	return *i, true
}

// Pairings returns the replication pairs registered on host, sorted by
// destination.
func (a *Appliance) Pairings(host string) []Pairing {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]Pairing, 0, len(a.pairs[host]))
	for _, p := range a.pairs[host] {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Destination < out[j].Destination })
	return out
}

func (a *Appliance) validToken(token string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	_, ok := a.tokens[token]
	return ok
}
