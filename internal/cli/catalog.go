package cli

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mr1hm/road-hazard-alerts/internal/catalog"
)

func newCatalogCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Print the hazard catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			return catalog.Export(cmd.OutOrStdout(), v.GetString("format"))
		},
	}

	cmd.Flags().String("format", "yaml", "output format (yaml, json)")
	return cmd
}
