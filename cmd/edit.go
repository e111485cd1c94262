package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/devtreehq/devtree/internal/hierarchy"
)

// applyNow runs one edit through a fresh session and prints the resulting
// tree. This is the one-shot CLI path; nothing is staged.
func applyNow(ctx context.Context, edit hierarchy.Edit) error {
	session, closeSvc, err := newSession()
	if err != nil {
		return err
	}
	defer func() { _ = closeSvc() }()

	if err := session.Start(ctx); err != nil {
		return err
	}
	if err := session.ApplyNow(ctx, edit); err != nil {
		return err
	}

	fmt.Printf("applied: %s\n\n", edit)
	printTree(session.Tree())
	return nil
}

var reattachCmd = &cobra.Command{
	Use:   "reattach <device-id> <master-id>",
	Short: "Attach a slave device to a master",
	Long: `Attach a slave device to the given master. Pointer devices attach to
pointer masters, keyboard devices to keyboard masters; use "floating" as the
master id to detach the device instead.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		device, err := parseDeviceID(args[0])
		if err != nil {
			return err
		}
		master := hierarchy.FloatingID
		if args[1] != "floating" {
			master, err = parseDeviceID(args[1])
			if err != nil {
				return err
			}
		}
		return applyNow(cmd.Context(), hierarchy.Reattach{DeviceID: device, NewMasterID: master})
	},
}

var floatCmd = &cobra.Command{
	Use:   "float <device-id>",
	Short: "Detach a slave device from its master",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		device, err := parseDeviceID(args[0])
		if err != nil {
			return err
		}
		return applyNow(cmd.Context(), hierarchy.Float{DeviceID: device})
	},
}

var createCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a new master pointer/keyboard pair",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return applyNow(cmd.Context(), hierarchy.CreateMaster{Name: args[0]})
	},
}

var removeCmd = &cobra.Command{
	Use:   "remove <master-id>",
	Short: "Remove a master pair",
	Long: `Remove a master device and its paired master. What happens to the
attached slaves follows display.removal_policy: "reattach" hands them to the
core pointer and keyboard, "float" detaches them. The core masters themselves
cannot be removed.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		device, err := parseDeviceID(args[0])
		if err != nil {
			return err
		}
		return applyNow(cmd.Context(), hierarchy.RemoveMaster{DeviceID: device})
	},
}
