// Command meshnodectl talks to a running node's admin endpoint
// (internal/admin) to dump configuration-store state and drive
// network management for bench and CI use: inject a beacon without a
// radio, or fire a guard timer without waiting out its real duration.
package main

import (
	"fmt"
	"os"

	"github.com/packetcraft-inc/meshnode/cmd/meshnodectl/ui"
	"github.com/packetcraft-inc/meshnode/internal/logging"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var addr, logLevel string

	cmd := &cobra.Command{
		Use:           "meshnodectl",
		Short:         "Inspect and drive a mesh node's admin endpoint",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			ui.ConfigureTerminal()
			return logging.Configure(logLevel)
		},
	}
	cmd.PersistentFlags().StringVar(&addr, "addr", "127.0.0.1:7790", "admin endpoint address")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", logging.LevelWarn, "log level (debug, info, warn, error)")

	ctx := &rootContext{addr: &addr}
	cmd.AddCommand(
		newDumpCmd(ctx),
		newInjectBeaconCmd(ctx),
		newFireGuardCmd(ctx),
	)
	return cmd
}

// rootContext carries flags resolved on the root command down to
// subcommands built before flag parsing runs.
type rootContext struct {
	addr *string
}

func (r *rootContext) dial() (*client, error) {
	return dial(*r.addr)
}
