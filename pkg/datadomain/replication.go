package datadomain

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/ddtools/datadomain_sdk_go/internal/ddapi"
	"github.com/ddtools/datadomain_sdk_go/pkg/remote"
)

// ReplicateMtree sets up and starts replication of mtree from this appliance
// to destination, which must accept the same credentials. It registers the
// pairing on the destination, then on the source, then initializes it from
// the source. If either appliance cannot be reached, nothing is run and the
// error for this appliance takes precedence. The first failing step aborts the sequence with a *StepError;
// earlier steps stay registered.
func (c *Client) ReplicateMtree(ctx context.Context, mtree, destination string) error {
	const op = "replicate mtree"
	self := c.Host()
	add := AddReplication{SourceHost: self, DestinationHost: destination, Mtree: mtree}
	initialize := InitializeReplication{DestinationHost: destination, Mtree: mtree}
	for _, cmd := range []Command{add, initialize} {
		if err := cmd.Validate(); err != nil {
			return err
		}
	}

	// Both appliances are dialed concurrently and both dials run to
	// completion. When both fail, the error for this appliance is returned.
	var (
		src, dst       remote.Conn
		srcErr, dstErr error
		g              errgroup.Group
	)
	g.Go(func() error {
		src, srcErr = c.connect(ctx, op, self)
		return srcErr
	})
	g.Go(func() error {
		dst, dstErr = c.connect(ctx, op, destination)
		return dstErr
	})
	_ = g.Wait()
	defer closeConn(src)
	defer closeConn(dst)
	if srcErr != nil {
		return srcErr
	}
	if dstErr != nil {
		return dstErr
	}

	c.logger.DebugContext(ctx, "datadomain replication", "source", ddapi.ReplicationURL(self, mtree), "destination", ddapi.ReplicationURL(destination, mtree))
	return c.runSteps(ctx, op, []step{
		{name: "add pairing on " + destination, host: destination, conn: dst, cmd: add},
		{name: "add pairing on " + self, host: self, conn: src, cmd: add},
		{name: "initialize " + ddapi.ReplicationURL(destination, mtree), host: self, conn: src, cmd: initialize},
	})
}
