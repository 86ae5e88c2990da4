package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mr1hm/road-hazard-alerts/internal/catalog"
	"github.com/mr1hm/road-hazard-alerts/internal/geo"
	"github.com/mr1hm/road-hazard-alerts/internal/models"
	"github.com/mr1hm/road-hazard-alerts/internal/ranking"
)

func newRankCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rank",
		Short: "List hazards sorted by distance from a point",
		Long: `Rank computes the distance from the given point to every catalog hazard,
keeps those matching the severity filter and sorts them nearest first.
The nearest distance always considers the full catalog.

Example:
  hazardctl rank --lat 13.6236 --lng 123.1935
  hazardctl rank --lat 13.6236 --lng 123.1935 --severity high --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			pos, err := pointFromFlags(v)
			if err != nil {
				return err
			}
			res := ranking.Rank(pos, catalog.All(), ranking.ParseFilter(v.GetString("severity")))

			if v.GetBool("json") {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(res)
			}
			return printRanking(cmd.OutOrStdout(), res)
		},
	}

	addPointFlags(cmd)
	cmd.Flags().String("severity", "all", "severity filter (all, medium, high)")
	cmd.Flags().Bool("json", false, "print JSON instead of a table")
	return cmd
}

func addPointFlags(cmd *cobra.Command) {
	cmd.Flags().Float64("lat", catalog.NagaCenter.Latitude, "latitude in decimal degrees")
	cmd.Flags().Float64("lng", catalog.NagaCenter.Longitude, "longitude in decimal degrees")
}

func pointFromFlags(v *viper.Viper) (*models.PositionSample, error) {
	lat, lng := v.GetFloat64("lat"), v.GetFloat64("lng")
	if lat < -90 || lat > 90 {
		return nil, fmt.Errorf("latitude out of range: %v", lat)
	}
	if lng < -180 || lng > 180 {
		return nil, fmt.Errorf("longitude out of range: %v", lng)
	}
	return &models.PositionSample{Latitude: lat, Longitude: lng}, nil
}

func printRanking(w io.Writer, res ranking.Result) error {
	nearest := "–"
	if res.Nearest != nil {
		nearest = geo.FormatDistance(*res.Nearest)
	}
	fmt.Fprintf(w, "Nearest hazard: %s\n\n", nearest)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tHAZARD\tTYPE\tSEVERITY\tVERIFIED\tDISTANCE")
	for _, h := range res.Hazards {
		distance := "–"
		if h.Distance != nil {
			distance = geo.FormatDistance(*h.Distance)
		}
		verified := ""
		if h.Verified {
			verified = "yes"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s %s\t%s\t%s\t%s\n",
			h.ID, h.Name, h.Type.Icon(), h.Type.Label(), h.Severity.Title(), verified, distance)
	}
	return tw.Flush()
}
