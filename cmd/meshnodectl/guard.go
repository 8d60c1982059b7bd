package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/packetcraft-inc/meshnode/cmd/meshnodectl/ui"
	"github.com/packetcraft-inc/meshnode/internal/admin"
)

func newFireGuardCmd(root *rootContext) *cobra.Command {
	var timerName string

	cmd := &cobra.Command{
		Use:   "fire-guard",
		Short: "Force an IV update or IV recovery guard timer without waiting out its duration",
		RunE: func(cmd *cobra.Command, args []string) error {
			var timer admin.GuardTimer
			switch timerName {
			case "iv-update":
				timer = admin.GuardTimerIVUpdate
			case "iv-recover":
				timer = admin.GuardTimerIVRecover
			default:
				return fmt.Errorf("unknown timer %q, want iv-update or iv-recover", timerName)
			}

			c, err := root.dial()
			if err != nil {
				return err
			}
			defer c.Close()

			if _, err := invoke[admin.FireGuardTimerRequest, admin.FireGuardTimerResponse](
				cmd.Context(), c, "FireGuardTimer", &admin.FireGuardTimerRequest{Timer: timer}); err != nil {
				return err
			}
			fmt.Println(ui.SuccessMsg("fired %s", timerName))
			return nil
		},
	}
	cmd.Flags().StringVar(&timerName, "timer", "", "guard timer to fire: iv-update or iv-recover")
	_ = cmd.MarkFlagRequired("timer")
	return cmd
}
