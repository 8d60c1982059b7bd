package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/packetcraft-inc/meshnode/cmd/meshnodectl/ui"
	"github.com/packetcraft-inc/meshnode/internal/admin"
	"github.com/packetcraft-inc/meshnode/internal/modeltbl"
)

func newDumpCmd(root *rootContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dump",
		Short: "Dump a configuration-store or network-management table",
	}
	cmd.AddCommand(
		newDumpAddressesCmd(root),
		newDumpKeysCmd(root),
		newDumpModelsCmd(root),
		newDumpSeqCmd(root),
		newDumpNetmgmtCmd(root),
	)
	return cmd
}

// parseInstanceKey parses "element:modelID:sig" (modelID is always
// read as hex, with or without a 0x prefix; sig is "sig" or "vendor")
// into an InstanceKey.
func parseInstanceKey(s string) (modeltbl.InstanceKey, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return modeltbl.InstanceKey{}, fmt.Errorf("instance %q: want element:modelID:sig|vendor", s)
	}
	elem, err := strconv.Atoi(parts[0])
	if err != nil {
		return modeltbl.InstanceKey{}, fmt.Errorf("instance %q: bad element: %w", s, err)
	}
	modelID, err := strconv.ParseUint(strings.TrimPrefix(parts[1], "0x"), 16, 32)
	if err != nil {
		return modeltbl.InstanceKey{}, fmt.Errorf("instance %q: bad model id: %w", s, err)
	}
	var isSIG bool
	switch parts[2] {
	case "sig":
		isSIG = true
	case "vendor":
		isSIG = false
	default:
		return modeltbl.InstanceKey{}, fmt.Errorf("instance %q: third field must be sig or vendor", s)
	}
	return modeltbl.InstanceKey{Element: elem, ModelID: uint32(modelID), IsSIG: isSIG}, nil
}

func newDumpAddressesCmd(root *rootContext) *cobra.Command {
	return &cobra.Command{
		Use:   "addresses",
		Short: "Dump the address table",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := root.dial()
			if err != nil {
				return err
			}
			defer c.Close()

			resp, err := invoke[admin.DumpAddressTableRequest, admin.DumpAddressTableResponse](
				cmd.Context(), c, "DumpAddressTable", &admin.DumpAddressTableRequest{})
			if err != nil {
				return err
			}
			if len(resp.Rows) == 0 {
				fmt.Println(ui.Muted("no occupied address slots"))
				return nil
			}
			rows := make([][]string, len(resp.Rows))
			for i, r := range resp.Rows {
				rows[i] = []string{
					strconv.Itoa(r.Slot),
					fmt.Sprintf("0x%04X", r.Address),
					ui.Bool(r.Virtual),
					r.Label,
					strconv.Itoa(r.RefcountPublish),
					strconv.Itoa(r.RefcountSubscribe),
				}
			}
			fmt.Print(ui.Table([]string{"Slot", "Address", "Virtual", "Label", "Pub", "Sub"}, rows))
			return nil
		},
	}
}

func newDumpKeysCmd(root *rootContext) *cobra.Command {
	return &cobra.Command{
		Use:   "keys",
		Short: "Dump the NetKey and AppKey tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := root.dial()
			if err != nil {
				return err
			}
			defer c.Close()

			resp, err := invoke[admin.DumpKeyTableRequest, admin.DumpKeyTableResponse](
				cmd.Context(), c, "DumpKeyTable", &admin.DumpKeyTableRequest{})
			if err != nil {
				return err
			}

			if len(resp.NetKeys) == 0 {
				fmt.Println(ui.Muted("no NetKeys"))
			} else {
				rows := make([][]string, len(resp.NetKeys))
				for i, k := range resp.NetKeys {
					rows[i] = []string{
						strconv.Itoa(int(k.Index)),
						k.Refresh,
						ui.Bool(k.NewAvailable),
						k.NodeIdentity,
					}
				}
				fmt.Print(ui.Table([]string{"NetKey", "Refresh", "NewPending", "NodeIdentity"}, rows))
			}

			if len(resp.AppKeys) == 0 {
				fmt.Println(ui.Muted("no AppKeys"))
			} else {
				rows := make([][]string, len(resp.AppKeys))
				for i, k := range resp.AppKeys {
					boundTo := ui.Muted("-")
					if k.Bound {
						boundTo = strconv.Itoa(k.BoundNetSlot)
					}
					rows[i] = []string{
						strconv.Itoa(int(k.Index)),
						ui.Bool(k.NewAvailable),
						boundTo,
					}
				}
				fmt.Print(ui.Table([]string{"AppKey", "NewPending", "BoundNetSlot"}, rows))
			}
			return nil
		},
	}
}

func newDumpModelsCmd(root *rootContext) *cobra.Command {
	var instances []string
	cmd := &cobra.Command{
		Use:   "models",
		Short: "Dump publication and subscription state for model instances",
		Long:  "Dump publication and subscription state for the given model instances, each specified as element:modelID:sig|vendor (e.g. 0:0x1000:sig).",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(instances) == 0 {
				return fmt.Errorf("at least one --instance is required")
			}
			keys := make([]modeltbl.InstanceKey, len(instances))
			for i, s := range instances {
				key, err := parseInstanceKey(s)
				if err != nil {
					return err
				}
				keys[i] = key
			}

			c, err := root.dial()
			if err != nil {
				return err
			}
			defer c.Close()

			resp, err := invoke[admin.DumpModelTableRequest, admin.DumpModelTableResponse](
				cmd.Context(), c, "DumpModelTable", &admin.DumpModelTableRequest{Instances: keys})
			if err != nil {
				return err
			}
			rows := make([][]string, len(resp.Rows))
			for i, r := range resp.Rows {
				kind := "vendor"
				if r.IsSIG {
					kind = "sig"
				}
				rows[i] = []string{
					strconv.Itoa(r.Element),
					fmt.Sprintf("0x%04X", r.ModelID),
					kind,
					fmt.Sprintf("0x%04X", r.PublishAddress),
					fmt.Sprintf("%d/%d", r.SubscribeUsed, r.SubscribeTotal),
				}
			}
			fmt.Print(ui.Table([]string{"Element", "ModelID", "Kind", "PublishAddr", "Subs"}, rows))
			return nil
		},
	}
	cmd.Flags().StringArrayVar(&instances, "instance", nil, "model instance as element:modelID:sig|vendor, repeatable")
	return cmd
}

func newDumpSeqCmd(root *rootContext) *cobra.Command {
	var elements int
	cmd := &cobra.Command{
		Use:   "seq",
		Short: "Dump per-element sequence counters",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := root.dial()
			if err != nil {
				return err
			}
			defer c.Close()

			resp, err := invoke[admin.DumpSequenceStateRequest, admin.DumpSequenceStateResponse](
				cmd.Context(), c, "DumpSequenceState", &admin.DumpSequenceStateRequest{Elements: elements})
			if err != nil {
				return err
			}
			rows := make([][]string, len(resp.Rows))
			for i, r := range resp.Rows {
				rows[i] = []string{strconv.Itoa(r.Element), humanize.Comma(int64(r.Seq))}
			}
			fmt.Print(ui.Table([]string{"Element", "Seq"}, rows))
			return nil
		},
	}
	cmd.Flags().IntVar(&elements, "elements", 1, "number of elements to dump")
	return cmd
}

func newDumpNetmgmtCmd(root *rootContext) *cobra.Command {
	return &cobra.Command{
		Use:   "netmgmt",
		Short: "Dump network management's IV state",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := root.dial()
			if err != nil {
				return err
			}
			defer c.Close()

			resp, err := invoke[admin.DumpNetworkManagementStateRequest, admin.DumpNetworkManagementStateResponse](
				cmd.Context(), c, "DumpNetworkManagementState", &admin.DumpNetworkManagementStateRequest{})
			if err != nil {
				return err
			}
			fmt.Printf("%s %s\n", ui.Accent("iv index:"), humanize.Comma(int64(resp.IVIndex)))
			fmt.Printf("%s %s\n", ui.Accent("iv update in progress:"), ui.Bool(resp.IVUpdateInProgress))
			return nil
		},
	}
}
