package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mr1hm/road-hazard-alerts/internal/catalog"
	"github.com/mr1hm/road-hazard-alerts/internal/models"
	"github.com/mr1hm/road-hazard-alerts/internal/position"
	"github.com/mr1hm/road-hazard-alerts/internal/ranking"
	"github.com/mr1hm/road-hazard-alerts/internal/stream"
	"github.com/mr1hm/road-hazard-alerts/internal/tracker"
)

type simulateOptions struct {
	Ticks    int
	Interval time.Duration
	// Fast replays the drive on a fake clock instead of waiting between ticks.
	Fast   bool
	Bell   bool
	Center models.Coordinates
	Filter ranking.Filter
}

func newSimulateCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Replay the simulated drive and print each update",
		Long: `Simulate drives a point around a small circle near the map center, one
sample per tick, and prints speed, the nearest hazard and any active alert.

Example:
  hazardctl simulate --ticks 60 --fast
  hazardctl simulate --ticks 30 --bell`,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := simulateOptions{
				Ticks:    v.GetInt("ticks"),
				Interval: v.GetDuration("interval"),
				Fast:     v.GetBool("fast"),
				Bell:     v.GetBool("bell"),
				Center: models.Coordinates{
					Latitude:  v.GetFloat64("center-lat"),
					Longitude: v.GetFloat64("center-lng"),
				},
				Filter: ranking.ParseFilter(v.GetString("severity")),
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runSimulation(ctx, cmd.OutOrStdout(), opts)
		},
	}

	cmd.Flags().Int("ticks", 60, "number of simulated samples")
	cmd.Flags().Duration("interval", time.Second, "time between samples")
	cmd.Flags().Bool("fast", false, "do not wait between samples")
	cmd.Flags().Bool("bell", false, "ring the terminal bell when an alert starts")
	cmd.Flags().Float64("center-lat", catalog.NagaCenter.Latitude, "center latitude of the simulated drive")
	cmd.Flags().Float64("center-lng", catalog.NagaCenter.Longitude, "center longitude of the simulated drive")
	cmd.Flags().String("severity", "all", "severity filter for the hazard list (all, medium, high)")
	return cmd
}

func runSimulation(ctx context.Context, w io.Writer, opts simulateOptions) error {
	if opts.Ticks < 1 {
		return errors.New("ticks must be at least 1")
	}
	if opts.Interval <= 0 {
		return errors.New("interval must be positive")
	}

	var (
		clock clockwork.Clock = clockwork.NewRealClock()
		fake  *clockwork.FakeClock
	)
	if opts.Fast {
		fake = clockwork.NewFakeClock()
		clock = fake
	}

	cfg := position.DefaultSimulatorConfig(opts.Center)
	cfg.Interval = opts.Interval

	samples := make(chan models.PositionSample, 1)
	sim := position.NewSimulator(cfg, clock, samples)
	broadcaster := stream.NewBroadcaster()
	defer broadcaster.Close()
	id, updates := broadcaster.Subscribe()
	defer broadcaster.Unsubscribe(id)

	var cue tracker.Cue
	if opts.Bell {
		cue = &bellCue{w: w}
	}
	tr := tracker.New(tracker.Options{
		Hazards:   catalog.All(),
		Samples:   samples,
		Simulator: sim,
		Publisher: broadcaster,
		Cue:       cue,
		Clock:     clock,
	})
	tr.Start(ctx)
	defer tr.Stop()

	if _, err := tr.SetFilter(ctx, opts.Filter); err != nil {
		return err
	}
	if _, err := tr.ToggleSimulation(ctx); err != nil {
		return err
	}

	for n := 1; n <= opts.Ticks; {
		if fake != nil {
			fake.Advance(opts.Interval)
		}

		snap, err := nextPositioned(ctx, updates)
		if err != nil {
			return err
		}
		printTick(w, n, snap)
		n++
	}
	return nil
}

// nextPositioned skips status-only updates published before the first fix.
func nextPositioned(ctx context.Context, updates <-chan *models.Snapshot) (*models.Snapshot, error) {
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case snap, ok := <-updates:
			if !ok {
				return nil, errors.New("update stream closed")
			}
			if snap.Position != nil {
				return snap, nil
			}
		}
	}
}

func printTick(w io.Writer, n int, s *models.Snapshot) {
	fmt.Fprintf(w, "#%03d %.5f,%.5f  %-8s nearest %-8s",
		n, s.Position.Latitude, s.Position.Longitude, s.Speed, s.Nearest)
	if s.Alert != nil {
		fmt.Fprintf(w, "  ALERT %s %s (%s, %s)", s.Alert.Type.Icon(), s.Alert.Name, s.AlertLabel, s.AlertDistance)
	}
	fmt.Fprintln(w)
}
