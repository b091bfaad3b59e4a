package cli

import (
	"github.com/spf13/cobra"

	"github.com/ddtools/datadomain_sdk_go/pkg/datadomain"
)

func newMtreeCommand(r *root) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mtree",
		Short: "Manage storage trees below /data/col1",
	}

	create := &cobra.Command{
		Use:   "create <name>",
		Short: "Create an mtree",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return r.withSession(cmd.Context(), func(c *datadomain.Client) error {
				body, err := c.CreateMtree(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				r.print(cmd, body)
				return nil
			})
		},
	}

	get := &cobra.Command{
		Use:   "get [name]",
		Short: "Show one mtree, or all of them",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return r.withSession(cmd.Context(), func(c *datadomain.Client) error {
				var body []byte
				var err error
				if len(args) == 1 {
					body, err = c.GetMtree(cmd.Context(), args[0])
				} else {
					body, err = c.ListMtrees(cmd.Context())
				}
				if err != nil {
					return err
				}
				r.print(cmd, body)
				return nil
			})
		},
	}

	del := &cobra.Command{
		Use:   "delete <name>",
		Short: "Delete an mtree",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return r.withSession(cmd.Context(), func(c *datadomain.Client) error {
				if err := c.DeleteMtree(cmd.Context(), args[0]); err != nil {
					return err
				}
				r.print(cmd, map[string]any{"deleted": args[0]})
				return nil
			})
		},
	}

	cmd.AddCommand(create, get, del)
	return cmd
}
