package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ddtools/datadomain_sdk_go/pkg/datadomain"
)

func newExportCommand(r *root) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Manage NFS exports of mtrees",
	}

	var clients []string
	create := &cobra.Command{
		Use:   "create <mtree>",
		Short: "Export an mtree over NFS",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			list, err := parseClients(clients)
			if err != nil {
				return err
			}
			return r.withSession(cmd.Context(), func(c *datadomain.Client) error {
				body, err := c.CreateExport(cmd.Context(), args[0], list)
				if err != nil {
					return err
				}
				r.print(cmd, body)
				return nil
			})
		},
	}
	create.Flags().StringArrayVar(&clients, "client", nil, "client host or network, optionally followed by =options (repeatable)")

	get := &cobra.Command{
		Use:   "get [mtree]",
		Short: "Show the export of one mtree, or all exports",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return r.withSession(cmd.Context(), func(c *datadomain.Client) error {
				var body []byte
				var err error
				if len(args) == 1 {
					body, err = c.GetExport(cmd.Context(), args[0])
				} else {
					body, err = c.ListExports(cmd.Context())
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
		Use:   "delete <mtree>",
		Short: "Remove the export of an mtree",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return r.withSession(cmd.Context(), func(c *datadomain.Client) error {
				if err := c.DeleteExport(cmd.Context(), args[0]); err != nil {
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

// parseClients reads "name" or "name=options" entries.
func parseClients(specs []string) ([]datadomain.ExportClient, error) {
	out := make([]datadomain.ExportClient, 0, len(specs))
	for _, s := range specs {
		name, opts, _ := strings.Cut(s, "=")
		name = strings.TrimSpace(name)
		if name == "" {
			return nil, fmt.Errorf("%w: empty export client in %q", datadomain.ErrInvalidArgument, s)
		}
		out = append(out, datadomain.ExportClient{Name: name, Options: strings.TrimSpace(opts)})
	}
	return out, nil
}
