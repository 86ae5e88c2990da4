package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mr1hm/road-hazard-alerts/internal/catalog"
	"github.com/mr1hm/road-hazard-alerts/internal/geo"
	"github.com/mr1hm/road-hazard-alerts/internal/ranking"
)

func newAlertCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "alert",
		Short: "Show which hazard would raise a proximity alert at a point",
		Long: `Alert evaluates the whole catalog, ignoring any severity filter. A hazard
qualifies within 120 m (high), 100 m (medium) or 80 m (low); the closest
qualifying hazard wins.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			pos, err := pointFromFlags(v)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			a := ranking.EvaluateAlert(pos, catalog.All())
			if a == nil {
				fmt.Fprintln(out, "No hazard within alert range")
				return nil
			}
			fmt.Fprintf(out, "%s %s\n", a.Type.Icon(), a.Name)
			fmt.Fprintf(out, "%s · %s ahead\n", a.SeverityLabel(), geo.FormatDistance(a.Distance))
			if a.Description != "" {
				fmt.Fprintln(out, a.Description)
			}
			return nil
		},
	}

	addPointFlags(cmd)
	return cmd
}
