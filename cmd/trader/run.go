package main

import (
	"os"
	"os/signal"
	"syscall"
	"time"
	"tradeengine/internal/api"
	"tradeengine/internal/engine"
	"tradeengine/internal/logging"
	"tradeengine/internal/metrics"
	"tradeengine/types"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func runCmd() *cobra.Command {
	var fresh bool
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Trade the watchlist during market hours until interrupted",
		Long: `Run the engine against the wall clock. On SIGINT or SIGTERM every open
position is closed at its last known price, the final report is written and
the state is saved before exit.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := newApp(configPath)
			if err != nil {
				return err
			}
			defer a.close()
			log := logging.Component(a.logger, "trader")

			store, err := a.openStore(ctx)
			if err != nil {
				return err
			}
			var initial *types.Portfolio
			if !fresh {
				if initial, err = a.loadState(ctx, store); err != nil {
					return err
				}
				if initial != nil {
					log.Infow("resuming saved state", "cash", initial.Cash.StringFixed(2), "positions", len(initial.Positions))
				}
			}

			src, err := a.openSource(ctx, time.Now)
			if err != nil {
				return err
			}
			recorder := metrics.New()
			eng, err := a.buildEngine(engineDeps{
				market:   a.guard(src),
				clock:    engine.SystemClock{},
				store:    store,
				recorder: recorder,
				initial:  initial,
			})
			if err != nil {
				return err
			}

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				return eng.Run(gctx)
			})
			if a.cfg.HTTP.Enabled {
				gin.SetMode(gin.ReleaseMode)
				srv := api.NewServer(eng, recorder.Handler(), logging.Component(a.logger, "http"))
				g.Go(func() error {
					return srv.Run(gctx, a.cfg.HTTP.Listen)
				})
			}
			return g.Wait()
		},
	}
	cmd.Flags().BoolVar(&fresh, "fresh", false, "Ignore saved state and start from initial_capital")
	return cmd
}
