package datadomain_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ddtools/datadomain_sdk_go/pkg/datadomain"
	"github.com/ddtools/datadomain_sdk_go/pkg/datadomain/mock"
	"github.com/ddtools/datadomain_sdk_go/pkg/remote"
)

func commandLines(cmds []mock.ExecutedCommand) []string {
	out := make([]string, 0, len(cmds))
	for _, c := range cmds {
		out = append(out, c.Host+": "+c.Command)
	}
	return out
}

func TestCreateInterfaceRunsBothSteps(t *testing.T) {
	c, appliance, err := datadomain.NewMock(mock.Config{})
	require.NoError(t, err)
	ctx := context.Background()

	name, err := c.CreateInterface(ctx, datadomain.CreateInterfaceRequest{IP: "10.1.2.3", Netmask: "255.255.255.0", VLANID: 242})
	require.NoError(t, err)
	assert.Equal(t, "veth2.242", name)
	assert.Equal(t, []string{
		"dd-mock.local: net create interface veth2 vlan 242",
		"dd-mock.local: net config veth2.242 10.1.2.3 netmask 255.255.255.0",
	}, commandLines(appliance.Commands()))

	require.NoError(t, c.Login(ctx, "sysadmin", "changeme"))
	raw, err := c.GetInterface(ctx, name)
	require.NoError(t, err)
	var iface mock.Interface
	require.NoError(t, json.Unmarshal(raw, &iface))
	assert.Equal(t, "10.1.2.3", iface.Address)
	assert.Equal(t, 242, iface.VLANID)

	require.NoError(t, c.DeleteInterface(ctx, name))
	_, ok := appliance.Interface(name)
	assert.False(t, ok)
}

func TestCreateInterfaceStopsWhenVLANCreationFails(t *testing.T) {
	c, appliance, err := datadomain.NewMock(mock.Config{})
	require.NoError(t, err)
	appliance.FailCommand("net create interface", 1)

	_, err = c.CreateInterface(context.Background(), datadomain.CreateInterfaceRequest{IP: "10.1.2.3", Netmask: "255.255.255.0", VLANID: 242, Cleanup: true})
	require.ErrorIs(t, err, datadomain.ErrCommandFailed)
	var stepErr *datadomain.StepError
	require.True(t, errors.As(err, &stepErr))
	assert.Equal(t, 1, stepErr.Step)
	assert.Empty(t, stepErr.Completed)
	assert.False(t, stepErr.RolledBack)

	var cmdErr *datadomain.CommandError
	require.True(t, errors.As(err, &cmdErr))
	assert.Equal(t, 1, cmdErr.ExitStatus)
	assert.Equal(t, "net create interface veth2 vlan 242", cmdErr.Command)
	assert.Len(t, appliance.Commands(), 1)
}

func TestCreateInterfaceLeavesVLANWhenConfigFails(t *testing.T) {
	c, appliance, err := datadomain.NewMock(mock.Config{})
	require.NoError(t, err)
	appliance.FailCommand("net config", 2)

	_, err = c.CreateInterface(context.Background(), datadomain.CreateInterfaceRequest{IP: "10.1.2.3", Netmask: "255.255.255.0", VLANID: 7, PhysicalInterface: "veth2"})
	var stepErr *datadomain.StepError
	require.True(t, errors.As(err, &stepErr))
	assert.Equal(t, 2, stepErr.Step)
	assert.Equal(t, []string{"create vlan veth2.7"}, stepErr.Completed)
	assert.False(t, stepErr.RolledBack)

	_, ok := appliance.Interface("veth2.7")
	assert.True(t, ok, "vlan must survive a failed configure step")
}

func TestCreateInterfaceCleanupDestroysVLAN(t *testing.T) {
	c, appliance, err := datadomain.NewMock(mock.Config{})
	require.NoError(t, err)
	appliance.FailCommand("net config", 1)

	_, err = c.CreateInterface(context.Background(), datadomain.CreateInterfaceRequest{IP: "10.1.2.3", Netmask: "255.255.255.0", VLANID: 7, Cleanup: true})
	var stepErr *datadomain.StepError
	require.True(t, errors.As(err, &stepErr))
	assert.True(t, stepErr.RolledBack)
	assert.NoError(t, stepErr.RollbackErr)

	_, ok := appliance.Interface("veth2.7")
	assert.False(t, ok)
	lines := commandLines(appliance.Commands())
	require.Len(t, lines, 3)
	assert.Equal(t, "dd-mock.local: net destroy veth2.7", lines[2])
}

func TestCreateInterfaceRejectsInjection(t *testing.T) {
	c, appliance, err := datadomain.NewMock(mock.Config{})
	require.NoError(t, err)
	ctx := context.Background()

	bad := []datadomain.CreateInterfaceRequest{
		{IP: "10.0.0.1; reboot", Netmask: "255.255.255.0", VLANID: 10},
		{IP: "10.0.0.1", Netmask: "255.0.255.0", VLANID: 10},
		{IP: "10.0.0.1", Netmask: "255.255.255.0", VLANID: 0},
		{IP: "10.0.0.1", Netmask: "255.255.255.0", VLANID: 4095},
		{IP: "10.0.0.1", Netmask: "255.255.255.0", VLANID: 10, PhysicalInterface: "veth2 && rm"},
	}
	for _, req := range bad {
		_, err := c.CreateInterface(ctx, req)
		require.ErrorIs(t, err, datadomain.ErrInvalidArgument, "%+v", req)
	}
	require.ErrorIs(t, c.DeleteInterface(ctx, "veth2.1`id`"), datadomain.ErrInvalidArgument)
	assert.Empty(t, appliance.Commands())
}

func TestDeleteInterfaceRequiresZeroExit(t *testing.T) {
	c, _, err := datadomain.NewMock(mock.Config{})
	require.NoError(t, err)
	err = c.DeleteInterface(context.Background(), "veth2.999")
	require.ErrorIs(t, err, datadomain.ErrCommandFailed)
	var cmdErr *datadomain.CommandError
	require.True(t, errors.As(err, &cmdErr))
	assert.Contains(t, cmdErr.Output, "does not exist")
}

func TestReplicateMtreeRunsThreeCommandsInOrder(t *testing.T) {
	c, appliance, err := datadomain.NewMock(mock.Config{})
	require.NoError(t, err)

	require.NoError(t, c.ReplicateMtree(context.Background(), "t1", "dd02.example.com"))
	assert.Equal(t, []string{
		"dd02.example.com: replication add source mtree://dd-mock.local/data/col1/t1 destination mtree://dd02.example.com/data/col1/t1",
		"dd-mock.local: replication add source mtree://dd-mock.local/data/col1/t1 destination mtree://dd02.example.com/data/col1/t1",
		"dd-mock.local: replication initialize mtree://dd02.example.com/data/col1/t1",
	}, commandLines(appliance.Commands()))

	pairs := appliance.Pairings("dd-mock.local")
	require.Len(t, pairs, 1)
	assert.True(t, pairs[0].Initialized)
	require.Len(t, appliance.Pairings("dd02.example.com"), 1)
}

func TestReplicateMtreeAbortsAtFirstFailure(t *testing.T) {
	tests := []struct {
		name      string
		prefix    string
		step      int
		commands  int
		completed int
	}{
		{"destination add", "replication add", 1, 1, 0},
		{"initialize", "replication initialize", 3, 3, 2},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c, appliance, err := datadomain.NewMock(mock.Config{})
			require.NoError(t, err)
			appliance.FailCommand(tc.prefix, 1)

			err = c.ReplicateMtree(context.Background(), "t1", "dd02")
			var stepErr *datadomain.StepError
			require.True(t, errors.As(err, &stepErr))
			assert.Equal(t, tc.step, stepErr.Step)
			assert.Len(t, stepErr.Completed, tc.completed)
			assert.Len(t, appliance.Commands(), tc.commands)
		})
	}
}

func TestReplicateMtreeSecondStepFailure(t *testing.T) {
	c, appliance, err := datadomain.NewMock(mock.Config{})
	require.NoError(t, err)
	// The source already knows the pairing, so registering it again fails.
	appliance.Exec("dd-mock.local", "replication add source mtree://dd-mock.local/data/col1/t1 destination mtree://dd02/data/col1/t1")

	err = c.ReplicateMtree(context.Background(), "t1", "dd02")
	var stepErr *datadomain.StepError
	require.True(t, errors.As(err, &stepErr))
	assert.Equal(t, 2, stepErr.Step)
	assert.Equal(t, []string{"add pairing on dd02"}, stepErr.Completed)
	assert.Len(t, appliance.Commands(), 3)
}

func TestReplicateMtreeUnreachableDestination(t *testing.T) {
	c, appliance, err := datadomain.NewMock(mock.Config{})
	require.NoError(t, err)
	appliance.SetUnreachable("dd02")

	err = c.ReplicateMtree(context.Background(), "t1", "dd02")
	require.ErrorIs(t, err, datadomain.ErrTransport)
	assert.Empty(t, appliance.Commands())
}

func TestReplicateMtreeBothUnreachableReportsSource(t *testing.T) {
	c, appliance, err := datadomain.NewMock(mock.Config{})
	require.NoError(t, err)
	appliance.SetUnreachable(c.Host())
	appliance.SetUnreachable("dd02")

	for i := 0; i < 20; i++ {
		err = c.ReplicateMtree(context.Background(), "t1", "dd02")
		var transportErr *datadomain.TransportError
		require.True(t, errors.As(err, &transportErr))
		assert.Equal(t, c.Host(), transportErr.Host)
	}
	assert.Empty(t, appliance.Commands())
}

func TestReplicateMtreeValidatesArguments(t *testing.T) {
	c, appliance, err := datadomain.NewMock(mock.Config{})
	require.NoError(t, err)
	ctx := context.Background()
	require.ErrorIs(t, c.ReplicateMtree(ctx, "t1;reboot", "dd02"), datadomain.ErrInvalidArgument)
	require.ErrorIs(t, c.ReplicateMtree(ctx, "t1", "dd02 destination x"), datadomain.ErrInvalidArgument)
	assert.Empty(t, appliance.Commands())
}

func TestRemoteAuthenticationFailure(t *testing.T) {
	c, appliance, err := datadomain.NewMock(mock.Config{})
	require.NoError(t, err)
	ctx := context.Background()

	// A failed REST login still replaces the credentials used over SSH.
	require.Error(t, c.Login(ctx, "sysadmin", "wrong"))
	err = c.DeleteInterface(ctx, "veth2.1")
	require.ErrorIs(t, err, datadomain.ErrAuthentication)
	assert.Empty(t, appliance.Commands())
}

func TestRemoteOperationsNeedCredentials(t *testing.T) {
	dialed := false
	dialer := remote.DialerFunc(func(ctx context.Context, host string, creds remote.Credentials) (remote.Conn, error) {
		dialed = true
		return nil, errors.New("unexpected dial")
	})
	c, err := datadomain.New("dd01", datadomain.WithDialer(dialer))
	require.NoError(t, err)
	err = c.DeleteInterface(context.Background(), "veth2.1")
	require.ErrorIs(t, err, datadomain.ErrNoCredentials)
	assert.False(t, dialed)
}
