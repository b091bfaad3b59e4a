package datadomain

import (
	"encoding/binary"
	"fmt"
	"net/netip"
	"regexp"
	"strconv"

	"github.com/ddtools/datadomain_sdk_go/internal/ddapi"
)

// Command is a remote shell command with validated arguments. String must
// only be sent after Validate returned nil.
type Command interface {
	Validate() error
	String() string
}

var (
	physicalIfaceRE = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9]{0,14}$`)
	ifaceRE         = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9]{0,14}(\.[0-9]{1,4})?$`)
	mtreeNameRE     = regexp.MustCompile(`^[A-Za-z0-9_-]{1,50}$`)
	hostLabelRE     = regexp.MustCompile(`^[A-Za-z0-9]([A-Za-z0-9-]{0,61}[A-Za-z0-9])?$`)
)

// CreateVLAN adds a tagged sub-interface on a physical interface.
type CreateVLAN struct {
	Interface string
	VLANID    int
}

func (c CreateVLAN) Validate() error {
	if !physicalIfaceRE.MatchString(c.Interface) {
		return invalidArg("physical interface %q", c.Interface)
	}
	return validateVLAN(c.VLANID)
}

func (c CreateVLAN) String() string {
	return fmt.Sprintf("net create interface %s vlan %d", c.Interface, c.VLANID)
}

// ConfigureInterface assigns an address to an interface.
type ConfigureInterface struct {
	Interface string
	IP        string
	Netmask   string
}

func (c ConfigureInterface) Validate() error {
	if err := validateInterface(c.Interface); err != nil {
		return err
	}
	return validateAddress(c.IP, c.Netmask)
}

func (c ConfigureInterface) String() string {
	return fmt.Sprintf("net config %s %s netmask %s", c.Interface, c.IP, c.Netmask)
}

// DestroyInterface removes an interface.
type DestroyInterface struct {
	Interface string
}

func (c DestroyInterface) Validate() error {
	return validateInterface(c.Interface)
}

func (c DestroyInterface) String() string {
	return "net destroy " + c.Interface
}

// AddReplication registers an mtree replication pairing. Source and
// destination mtrees share the same name.
type AddReplication struct {
	SourceHost      string
	DestinationHost string
	Mtree           string
}

func (c AddReplication) Validate() error {
	if err := validateHost(c.SourceHost); err != nil {
		return err
	}
	if err := validateHost(c.DestinationHost); err != nil {
		return err
	}
	return validateMtreeName(c.Mtree)
}

func (c AddReplication) String() string {
	return fmt.Sprintf("replication add source %s destination %s",
		ddapi.ReplicationURL(c.SourceHost, c.Mtree),
		ddapi.ReplicationURL(c.DestinationHost, c.Mtree))
}

// InitializeReplication starts the initial transfer of a registered pairing.
type InitializeReplication struct {
	DestinationHost string
	Mtree           string
}

func (c InitializeReplication) Validate() error {
	if err := validateHost(c.DestinationHost); err != nil {
		return err
	}
	return validateMtreeName(c.Mtree)
}

func (c InitializeReplication) String() string {
	return "replication initialize " + ddapi.ReplicationURL(c.DestinationHost, c.Mtree)
}

func validateInterface(name string) error {
	if !ifaceRE.MatchString(name) {
		return invalidArg("interface name %q", name)
	}
	return nil
}

func validateVLAN(id int) error {
	if id < 1 || id > 4094 {
		return invalidArg("vlan id %d outside 1-4094", id)
	}
	return nil
}

func validateMtreeName(name string) error {
	if !mtreeNameRE.MatchString(name) {
		return invalidArg("mtree name %q (letters, digits, '-' and '_', at most 50)", name)
	}
	return nil
}

// validateHost accepts IP literals and RFC 1123 host names.
func validateHost(host string) error {
	if _, err := netip.ParseAddr(host); err == nil {
		return nil
	}
	if len(host) == 0 || len(host) > 253 {
		return invalidArg("host %q", host)
	}
	start := 0
	for i := 0; i <= len(host); i++ {
		if i == len(host) || host[i] == '.' {
			if !hostLabelRE.MatchString(host[start:i]) {
				return invalidArg("host %q", host)
			}
			start = i + 1
		}
	}
	return nil
}

// validateAddress checks ip and its mask. IPv4 addresses take a dotted
// contiguous netmask, IPv6 addresses a prefix length.
func validateAddress(ip, mask string) error {
	addr, err := netip.ParseAddr(ip)
	if err != nil || addr.Zone() != "" {
		return invalidArg("ip address %q", ip)
	}
	if addr.Is4() {
		m, err := netip.ParseAddr(mask)
		if err != nil || !m.Is4() {
			return invalidArg("netmask %q", mask)
		}
		b := m.As4()
		inv := ^binary.BigEndian.Uint32(b[:])
		if inv&(inv+1) != 0 {
			return invalidArg("netmask %q is not contiguous", mask)
		}
		return nil
	}
	bits, err := strconv.Atoi(mask)
	if err != nil || bits < 0 || bits > 128 {
		return invalidArg("ipv6 prefix length %q", mask)
	}
	return nil
}
