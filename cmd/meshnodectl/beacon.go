package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/packetcraft-inc/meshnode/cmd/meshnodectl/ui"
	"github.com/packetcraft-inc/meshnode/internal/admin"
)

func newInjectBeaconCmd(root *rootContext) *cobra.Command {
	var req admin.InjectBeaconRequest

	cmd := &cobra.Command{
		Use:   "inject-beacon",
		Short: "Feed a decoded Secure Network Beacon into network management without a radio",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := root.dial()
			if err != nil {
				return err
			}
			defer c.Close()

			if _, err := invoke[admin.InjectBeaconRequest, admin.InjectBeaconResponse](
				cmd.Context(), c, "InjectBeacon", &req); err != nil {
				return err
			}
			fmt.Println(ui.SuccessMsg("beacon injected for net key index %d", req.NetKeyIndex))
			return nil
		},
	}

	cmd.Flags().IntVar(&req.NetKeyIndex, "net-key-index", 0, "NetKey index the beacon authenticates under")
	cmd.Flags().BoolVar(&req.NewKeyUsed, "new-key-used", false, "beacon was authenticated with the new key")
	cmd.Flags().Uint32Var(&req.IVIndex, "iv-index", 0, "IV index carried by the beacon")
	cmd.Flags().BoolVar(&req.KeyRefreshFlag, "key-refresh-flag", false, "Key Refresh flag carried by the beacon")
	cmd.Flags().BoolVar(&req.IVUpdateFlag, "iv-update-flag", false, "IV Update flag carried by the beacon")
	return cmd
}
