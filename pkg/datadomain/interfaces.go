package datadomain

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/ddtools/datadomain_sdk_go/internal/ddapi"
)

// DefaultPhysicalInterface carries new VLAN interfaces unless told otherwise.
const DefaultPhysicalInterface = "veth2"

// CreateInterfaceRequest describes a VLAN interface to create.
type CreateInterfaceRequest struct {
	IP      string
	Netmask string
	VLANID  int
	// PhysicalInterface defaults to DefaultPhysicalInterface.
	PhysicalInterface string
	// Cleanup destroys the VLAN again when assigning the address fails.
	Cleanup bool
}

// Name is the interface name the request creates, <physical>.<vlan>.
func (r CreateInterfaceRequest) Name() string {
	return r.physical() + "." + strconv.Itoa(r.VLANID)
}

func (r CreateInterfaceRequest) physical() string {
	if r.PhysicalInterface == "" {
		return DefaultPhysicalInterface
	}
	return r.PhysicalInterface
}

// CreateInterface creates a VLAN interface and assigns its address over SSH,
// since the REST API cannot. The two commands are not atomic: when the second
// fails the VLAN stays behind unless req.Cleanup is set. The returned error
// is a *StepError naming the failed step.
func (c *Client) CreateInterface(ctx context.Context, req CreateInterfaceRequest) (string, error) {
	const op = "create interface"
	name := req.Name()
	create := CreateVLAN{Interface: req.physical(), VLANID: req.VLANID}
	configure := ConfigureInterface{Interface: name, IP: req.IP, Netmask: req.Netmask}
	for _, cmd := range []Command{create, configure} {
		if err := cmd.Validate(); err != nil {
			return "", err
		}
	}

	host := c.Host()
	conn, err := c.connect(ctx, op, host)
	if err != nil {
		return "", err
	}
	defer closeConn(conn)

	err = c.runSteps(ctx, op, []step{
		{name: "create vlan " + name, host: host, conn: conn, cmd: create},
		{name: "configure " + name, host: host, conn: conn, cmd: configure},
	})
	if err == nil {
		return name, nil
	}
	stepErr := err.(*StepError)
	if req.Cleanup && stepErr.Step == 2 {
		if rbErr := c.run(ctx, op, host, conn, DestroyInterface{Interface: name}); rbErr != nil {
			stepErr.RollbackErr = rbErr
		} else {
			stepErr.RolledBack = true
		}
	}
	return "", stepErr
}

// GetInterface returns the raw interface document for name, or the whole
// collection when name is empty. Only HTTP 200 counts as success.
func (c *Client) GetInterface(ctx context.Context, name string) (json.RawMessage, error) {
	path := ddapi.NetworksPath
	if name != "" {
		path = ddapi.NetworkItemPath(name)
	}
	return c.get(ctx, "get interface", path)
}

// ListInterfaces returns the raw interface collection.
func (c *Client) ListInterfaces(ctx context.Context) (json.RawMessage, error) {
	return c.GetInterface(ctx, "")
}

// DeleteInterface destroys an interface over SSH.
func (c *Client) DeleteInterface(ctx context.Context, name string) error {
	const op = "delete interface"
	cmd := DestroyInterface{Interface: name}
	if err := cmd.Validate(); err != nil {
		return err
	}
	host := c.Host()
	conn, err := c.connect(ctx, op, host)
	if err != nil {
		return err
	}
	defer closeConn(conn)
	return c.run(ctx, op, host, conn, cmd)
}
