package cli

import (
	"github.com/spf13/cobra"

	"github.com/ddtools/datadomain_sdk_go/pkg/datadomain"
)

func newReplicateCommand(r *root) *cobra.Command {
	return &cobra.Command{
		Use:   "replicate <mtree> <destination-host>",
		Short: "Pair an mtree with the same mtree on another appliance and start replication",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return r.withCredentials(func(c *datadomain.Client) error {
				if err := c.ReplicateMtree(cmd.Context(), args[0], args[1]); err != nil {
					return err
				}
				r.print(cmd, map[string]any{"mtree": args[0], "source": c.Host(), "destination": args[1]})
				return nil
			})
		},
	}
}
