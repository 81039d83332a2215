// Package analyze provides CLI access to the lap analytics, rendering the
// results as tables.
package analyze

import (
	"context"
	"fmt"
	"os"

	"github.com/aarondl/opt/null"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/pitlap/race-analytics-service-go/pkg/analysis/degradation"
	"github.com/pitlap/race-analytics-service-go/pkg/analysis/strategy"
	"github.com/pitlap/race-analytics-service-go/pkg/cmd/options"
	"github.com/pitlap/race-analytics-service-go/pkg/config"
	"github.com/pitlap/race-analytics-service-go/pkg/db/postgres"
	"github.com/pitlap/race-analytics-service-go/pkg/model"
	"github.com/pitlap/race-analytics-service-go/pkg/repository/impl"
	"github.com/pitlap/race-analytics-service-go/pkg/service"
)

var (
	season  int
	round   int
	session string
	driver  string
)

func NewAnalyzeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "lap analytics on stored session data",
	}
	cmd.PersistentFlags().IntVar(&season, "season", 0, "season to analyze")
	cmd.PersistentFlags().IntVar(&round, "round", 0, "round to analyze")
	cmd.PersistentFlags().StringVar(&session, "session", service.RaceSession,
		"session identifier")
	//nolint:errcheck // flags are present
	cmd.MarkPersistentFlagRequired("season")
	//nolint:errcheck // flags are present
	cmd.MarkPersistentFlagRequired("round")

	cmd.AddCommand(newStintsCmd())
	cmd.AddCommand(newDegradationCmd())
	cmd.AddCommand(newStrategyCmd())
	return cmd
}

func newStintsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stints",
		Short: "shows the tyre stints of a session",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withAnalysisService(cmd.Context(), showStints)
		},
	}
}

func newDegradationCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "degradation",
		Short: "shows the tyre degradation fits of a driver",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withAnalysisService(cmd.Context(), showDegradation)
		},
	}
	cmd.Flags().StringVar(&driver, "driver", "", "driver to analyze")
	//nolint:errcheck // flag is present
	cmd.MarkFlagRequired("driver")
	return cmd
}

func newStrategyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "strategy",
		Short: "shows the race strategy report of a round",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withAnalysisService(cmd.Context(), showStrategy)
		},
	}
}

func withAnalysisService(
	ctx context.Context,
	fn func(ctx context.Context, s *service.AnalysisService) error,
) error {
	options.SetupLoggers()
	pool := postgres.InitWithURL(config.DB)
	defer postgres.CloseDb()
	return fn(ctx, service.NewAnalysisService(impl.NewRepositories(pool)))
}

func showStints(ctx context.Context, s *service.AnalysisService) error {
	ret, err := s.TyreStints(ctx, model.SessionKey{
		Season: season, Round: round, Session: session,
	})
	if err != nil {
		return err
	}
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Driver", "Stint", "Compound", "Laps", "Pit lap"})
	for _, d := range ret.Drivers {
		for i, st := range d.Stints {
			t.AppendRow(table.Row{
				d.Driver,
				i + 1,
				st.Compound,
				fmt.Sprintf("%d-%d", st.LapStart, st.LapEnd),
				fmtNullInt(st.PitLap),
			})
		}
		t.AppendSeparator()
	}
	t.Render()
	return nil
}

func showDegradation(ctx context.Context, s *service.AnalysisService) error {
	ret, err := s.Degradation(ctx,
		model.SessionKey{Season: season, Round: round, Session: session},
		driver, degradation.DefaultConfig())
	if err != nil {
		return err
	}
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{
		"Stint", "Compound", "Laps used", "Best lap",
		"Slope s/lap", "R2", "Message",
	})
	for i, fit := range ret.Fits {
		t.AppendRow(table.Row{
			i + 1,
			fit.Compound,
			fit.LapsUsed,
			fmtNullFloat(fit.BestLapS, "%.3f"),
			fmtNullFloat(fit.SlopeSecPerLap, "%.4f"),
			fmtNullFloat(fit.R2, "%.3f"),
			fit.Message,
		})
	}
	t.Render()
	return nil
}

func showStrategy(ctx context.Context, s *service.AnalysisService) error {
	ret, err := s.Strategy(ctx, season, round, strategy.DefaultConfig())
	if err != nil {
		return err
	}
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{
		"Driver", "Pit laps", "Stints", "Pit effects",
	})
	for _, d := range ret.Drivers {
		effects := ""
		for i, e := range d.PitEffects {
			if i > 0 {
				effects += ", "
			}
			effects += fmt.Sprintf("lap %d: %s", e.PitLap, e.Label)
		}
		t.AppendRow(table.Row{
			d.Driver,
			fmt.Sprintf("%v", d.PitLaps),
			len(d.Stints),
			effects,
		})
	}
	t.Render()
	return nil
}

func fmtNullInt(v null.Val[int]) string {
	if !v.IsValue() {
		return "-"
	}
	return fmt.Sprintf("%d", v.MustGet())
}

func fmtNullFloat(v null.Val[float64], format string) string {
	if !v.IsValue() {
		return "-"
	}
	return fmt.Sprintf(format, v.MustGet())
}
