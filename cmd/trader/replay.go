package main

import (
	"fmt"
	"os"
	"os/signal"
	"time"
	"tradeengine/internal/engine"
	"tradeengine/internal/marketdata"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

func replayCmd() *cobra.Command {
	var from, to, reportsDir string
	var maxBars int
	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Run the engine over stored history with a simulated clock",
		Long: `Replay walks a simulated clock from the first to the last stored bar of
the watchlist (or the --from/--to dates) and runs the same session loop as
'trader run'. Bars are revealed only after they close. Nothing is persisted
to the configured state store.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			a, err := newApp(configPath)
			if err != nil {
				return err
			}
			defer a.close()

			loc, err := a.cfg.Location()
			if err != nil {
				return err
			}

			var clock *engine.ReplayClock
			now := func() time.Time {
				if clock == nil {
					return time.Now()
				}
				return clock.Now()
			}
			src, err := a.openSource(ctx, now)
			if err != nil {
				return err
			}

			start, end, err := marketdata.Span(ctx, src, a.cfg.Watchlist, a.cfg.Interval())
			if err != nil {
				return err
			}
			if from != "" {
				if start, err = time.ParseInLocation(time.DateOnly, from, loc); err != nil {
					return fmt.Errorf("--from: %w", err)
				}
			}
			if to != "" {
				if end, err = time.ParseInLocation(time.DateOnly, to, loc); err != nil {
					return fmt.Errorf("--to: %w", err)
				}
				end = end.AddDate(0, 0, 1)
			}
			if !end.After(start) {
				return fmt.Errorf("empty replay window %s .. %s", start.Format(time.RFC3339), end.Format(time.RFC3339))
			}

			bar := initProgressBar(int(end.Sub(start).Minutes()))
			clock = engine.NewReplayClock(start, end, func(t time.Time) {
				_ = bar.Set(int(t.Sub(start).Minutes()))
			})

			eng, err := a.buildEngine(engineDeps{
				market:     marketdata.NewReplaySource(src, a.cfg.Interval(), clock.Now, maxBars),
				clock:      clock,
				reportsDir: reportsDir,
			})
			if err != nil {
				return err
			}
			runErr := eng.Run(ctx)
			_ = bar.Finish()
			fmt.Println()
			if runErr != nil {
				return runErr
			}

			printStatus(os.Stdout, eng.Status(), engine.RecentTrades(eng.Trades(), 10))
			return nil
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "First day to replay (YYYY-MM-DD, exchange time)")
	cmd.Flags().StringVar(&to, "to", "", "Last day to replay (YYYY-MM-DD, inclusive)")
	cmd.Flags().StringVar(&reportsDir, "reports", "replay_reports", "Directory for the replay's daily reports")
	cmd.Flags().IntVar(&maxBars, "max-bars", 200, "Bars of history handed to the strategy per scan (0 = all)")
	return cmd
}

func initProgressBar(maxTicks int) *progressbar.ProgressBar {
	return progressbar.NewOptions(maxTicks,
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetElapsedTime(true),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionSetDescription("Replaying history..."),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}))
}
