package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ddtools/datadomain_sdk_go/internal/ddapi"
)

// Version is set at build time via -ldflags "-X github.com/ddtools/datadomain_sdk_go/internal/cli.Version=x.y.z".
var Version = "0.1.0"

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show the ddctl version and the REST API version it speaks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "ddctl version %s\n", Version)
			fmt.Fprintf(cmd.OutOrStdout(), "REST API: %s (port %d)\n", ddapi.Version, ddapi.Port)
			return nil
		},
	}
}
