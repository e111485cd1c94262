package cmd

import (
	"fmt"
	"strconv"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/devtreehq/devtree/internal/config"
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Interactive configuration",
	Long:  `Walk through the devtree settings and write the config file.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Get()

		backend := cfg.Display.Backend
		policy := cfg.Display.RemovalPolicy
		interval := strconv.Itoa(cfg.UI.RefreshInterval)
		confirmQuit := cfg.UI.ConfirmQuit

		form := huh.NewForm(
			huh.NewGroup(
				huh.NewSelect[string]().
					Title("Hierarchy backend").
					Description("How devtree talks to the display server").
					Options(
						huh.NewOption("Auto-detect", "auto"),
						huh.NewOption("xinput command line tool", "xinput"),
						huh.NewOption("In-memory demo (no real devices)", "demo"),
					).
					Value(&backend),
				huh.NewSelect[string]().
					Title("Removed master's slaves").
					Description("Where slave devices go when their master is removed").
					Options(
						huh.NewOption("Reattach to the core pointer/keyboard", "reattach"),
						huh.NewOption("Set floating", "float"),
					).
					Value(&policy),
				huh.NewInput().
					Title("Refresh interval (seconds, 0 to disable)").
					Value(&interval).
					Validate(func(s string) error {
						n, err := strconv.Atoi(s)
						if err != nil || n < 0 {
							return fmt.Errorf("enter a non-negative number")
						}
						return nil
					}),
				huh.NewConfirm().
					Title("Confirm before quitting with unapplied changes?").
					Value(&confirmQuit),
			),
		)

		if err := form.Run(); err != nil {
			return err
		}

		seconds, _ := strconv.Atoi(interval)
		viper.Set("display.backend", backend)
		viper.Set("display.removal_policy", policy)
		viper.Set("ui.refresh_interval", seconds)
		viper.Set("ui.confirm_quit", confirmQuit)

		if err := config.Save(); err != nil {
			return err
		}

		fmt.Printf("Configuration written to %s\n", config.GetConfigPath())
		return nil
	},
}
