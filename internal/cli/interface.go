package cli

import (
	"github.com/spf13/cobra"

	"github.com/ddtools/datadomain_sdk_go/pkg/datadomain"
)

func newInterfaceCommand(r *root) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "interface",
		Aliases: []string{"if"},
		Short:   "Manage VLAN network interfaces",
	}

	var req datadomain.CreateInterfaceRequest
	create := &cobra.Command{
		Use:   "create",
		Short: "Create a VLAN interface and assign it an address",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return r.withCredentials(func(c *datadomain.Client) error {
				name, err := c.CreateInterface(cmd.Context(), req)
				if err != nil {
					return err
				}
				r.print(cmd, map[string]any{"interface": name, "address": req.IP, "netmask": req.Netmask})
				return nil
			})
		},
	}
	create.Flags().StringVar(&req.IP, "ip", "", "interface address")
	create.Flags().StringVar(&req.Netmask, "netmask", "", "dotted netmask (IPv4) or prefix length (IPv6)")
	create.Flags().IntVar(&req.VLANID, "vlan", 0, "VLAN id (1-4094)")
	create.Flags().StringVar(&req.PhysicalInterface, "physical", datadomain.DefaultPhysicalInterface, "physical interface carrying the VLAN")
	create.Flags().BoolVar(&req.Cleanup, "cleanup", false, "destroy the VLAN again when address configuration fails")
	_ = create.MarkFlagRequired("ip")
	_ = create.MarkFlagRequired("netmask")
	_ = create.MarkFlagRequired("vlan")

	get := &cobra.Command{
		Use:   "get [name]",
		Short: "Show one interface, or all of them",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return r.withSession(cmd.Context(), func(c *datadomain.Client) error {
				name := ""
				if len(args) == 1 {
					name = args[0]
				}
				body, err := c.GetInterface(cmd.Context(), name)
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
		Short: "Destroy a VLAN interface",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return r.withCredentials(func(c *datadomain.Client) error {
				if err := c.DeleteInterface(cmd.Context(), args[0]); err != nil {
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
