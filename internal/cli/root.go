// Package cli implements hazardctl, an offline companion to the server for
// ranking the catalog, checking alerts and replaying the simulated drive.
package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mr1hm/road-hazard-alerts/internal/logging"
)

// NewRootCmd builds the command tree with its own viper instance, so every
// invocation starts from clean flag state.
func NewRootCmd() *cobra.Command {
	v := viper.New()

	rootCmd := &cobra.Command{
		Use:   "hazardctl",
		Short: "Road hazard catalog and proximity alert tool",
		Long: `hazardctl works against the built-in hazard catalog without a server.

It ranks hazards by distance from a point, reports which hazard would raise a
proximity alert, exports the catalog and replays the simulated drive.

Flags may also be set through HAZARD_* environment variables or a YAML config
file, e.g. HAZARD_LAT=13.62 hazardctl rank.`,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig(v, cmd)
		},
	}

	rootCmd.PersistentFlags().String("config", "", "config file (yaml)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().String("log-level", "error", "log level (debug, info, warn, error)")

	rootCmd.AddCommand(
		newRankCmd(v),
		newAlertCmd(v),
		newCatalogCmd(v),
		newSimulateCmd(v),
		newVersionCmd(),
	)
	return rootCmd
}

// Execute runs the root command
func Execute() error {
	return NewRootCmd().Execute()
}

// initConfig binds the running command's flags and reads HAZARD_* variables.
func initConfig(v *viper.Viper, cmd *cobra.Command) error {
	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return fmt.Errorf("error binding flags: %w", err)
	}

	v.SetEnvPrefix("HAZARD")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if cfgFile := v.GetString("config"); cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("error reading config file: %w", err)
		}
		if v.GetBool("verbose") {
			fmt.Fprintf(cmd.ErrOrStderr(), "Using config file: %s\n", v.ConfigFileUsed())
		}
	}

	logging.SetupWriter(cmd.ErrOrStderr(), v.GetString("log-level"))
	return nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "hazardctl v0.1.0")
		},
	}
}
