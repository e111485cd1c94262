package cmd

import (
	"github.com/spf13/cobra"

	"github.com/devtreehq/devtree/internal/config"
	"github.com/devtreehq/devtree/internal/logger"
)

var (
	// Version is set during build
	Version = "0.1.0-dev"

	flagConfig  string
	flagBackend string

	rootCmd = &cobra.Command{
		Use:   "devtree",
		Short: "devtree - input device hierarchy manager",
		Long: `Devtree inspects and rearranges the input device hierarchy of a running
X server: master pointers and keyboards, the slave devices attached to them,
and floating devices. Run it without arguments for the interactive session,
or use the subcommands for one-shot changes.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if flagConfig != "" {
				config.SetConfigPath(flagConfig)
			}
			if err := config.Init(); err != nil {
				return err
			}
			cfg := config.Get()
			if cfg.Logging.LogLevel != "" {
				logger.SetLevel(cfg.Logging.LogLevel)
			}
			if flagBackend != "" {
				cfg.Display.Backend = flagBackend
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSession(cmd.Context())
		},
	}
)

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.Version = Version
	rootCmd.SetVersionTemplate(`{{with .Name}}{{printf "%s " .}}{{end}}{{printf "version %s\n" .Version}}`)

	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "config file path")
	rootCmd.PersistentFlags().StringVar(&flagBackend, "backend", "", "hierarchy backend (auto, xinput, demo)")

	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(reattachCmd)
	rootCmd.AddCommand(floatCmd)
	rootCmd.AddCommand(createCmd)
	rootCmd.AddCommand(removeCmd)
	rootCmd.AddCommand(setupCmd)
	rootCmd.AddCommand(tuiCmd)
}
