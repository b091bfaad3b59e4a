package mock

import (
	"fmt"
	"net/netip"
	"strconv"
	"strings"

	"github.com/ddtools/datadomain_sdk_go/pkg/remote"
)

// Exec interprets one shell command as run on host.
//
// Supported:
//
//	net create interface <if> vlan <id>
//	net config <if> <ip> netmask <mask>
//	net destroy <if>
//	replication add source <mtree-url> destination <mtree-url>
//	replication initialize <mtree-url>
func (a *Appliance) Exec(host, command string) *remote.Result {
	a.mu.Lock()
	defer a.mu.Unlock()

	res := a.execLocked(host, command)
	a.commands = append(a.commands, ExecutedCommand{Host: host, Command: command, ExitStatus: res.ExitStatus})
	return res
}

func (a *Appliance) execLocked(host, command string) *remote.Result {
	for _, f := range a.failures {
		if strings.HasPrefix(command, f.prefix) {
			return fail(f.status, "injected failure")
		}
	}

	f := strings.Fields(command)
	switch {
	case len(f) == 6 && f[0] == "net" && f[1] == "create" && f[2] == "interface" && f[4] == "vlan":
		phys := f[3]
		if _, ok := a.ifaces[phys]; !ok {
			return fail(1, "**** Interface %s does not exist.", phys)
		}
		vlan, err := strconv.Atoi(f[5])
		if err != nil || vlan < 1 || vlan > 4094 {
			return fail(1, "**** Invalid VLAN id %q.", f[5])
		}
		name := phys + "." + f[5]
		if _, ok := a.ifaces[name]; ok {
			return fail(1, "**** Interface %s already exists.", name)
		}
		a.ifaces[name] = &Interface{ID: name, Physical: phys, VLANID: vlan}
		return succeed("Interface %s created.", name)

	case len(f) == 6 && f[0] == "net" && f[1] == "config" && f[4] == "netmask":
		iface, exists := a.ifaces[f[2]]
		if !exists {
			return fail(1, "**** Interface %s does not exist.", f[2])
		}
		if _, err := netip.ParseAddr(f[3]); err != nil {
			return fail(1, "**** Invalid address %q.", f[3])
		}
		iface.Address = f[3]
		iface.Netmask = f[5]
		return succeed("Interface %s configured.", f[2])

	case len(f) == 3 && f[0] == "net" && f[1] == "destroy":
		iface, exists := a.ifaces[f[2]]
		if !exists {
			return fail(1, "**** Interface %s does not exist.", f[2])
		}
		if iface.VLANID == 0 {
			return fail(1, "**** Interface %s is a physical interface.", f[2])
		}
		delete(a.ifaces, f[2])
		return succeed("Interface %s destroyed.", f[2])

	case len(f) == 6 && f[0] == "replication" && f[1] == "add" && f[2] == "source" && f[4] == "destination":
		src, dst := f[3], f[5]
		if !strings.HasPrefix(src, "mtree://") || !strings.HasPrefix(dst, "mtree://") {
			return fail(1, "**** Invalid replication context.")
		}
		if a.pairs[host] == nil {
			a.pairs[host] = make(map[string]*Pairing)
		}
		if _, exists := a.pairs[host][dst]; exists {
			return fail(1, "**** Replication context %s already exists.", dst)
		}
		a.pairs[host][dst] = &Pairing{Source: src, Destination: dst}
		return succeed("Replication context %s added.", dst)

	case len(f) == 3 && f[0] == "replication" && f[1] == "initialize":
		p, exists := a.pairs[host][f[2]]
		if !exists {
			return fail(1, "**** Replication context %s does not exist.", f[2])
		}
		p.Initialized = true
		return succeed("Initialization started for %s.", f[2])
	}
	return fail(127, "**** Unknown command: %s", command)
}

func succeed(format string, args ...any) *remote.Result {
	return &remote.Result{Stdout: []byte(fmt.Sprintf(format, args...) + "\n")}
}

func fail(status int, format string, args ...any) *remote.Result {
	return &remote.Result{ExitStatus: status, Stderr: []byte(fmt.Sprintf(format, args...) + "\n")}
}
