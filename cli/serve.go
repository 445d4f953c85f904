package cli

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"go-soilsync/routes"
	"go-soilsync/services"
)

const shutdownTimeout = 10 * time.Second

func newServeCommand(st *state) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, log := st.cfg, st.log
			gin.SetMode(cfg.Server.Mode)

			store, err := openStore(ctx, cfg.Storage, log)
			if err != nil {
				return err
			}
			defer store.Close()

			predictor := newPredictor(cfg, log)
			svc := services.NewAnalysisService(predictor, store, log,
				services.WithRandom(randomSource(cfg.Engine)),
				services.WithBatchLimits(cfg.Batch.MaxRows, cfg.Batch.Concurrency),
			)
			router := routes.SetupRouter(routes.Deps{
				Service:     svc,
				Log:         log,
				JWTSecret:   cfg.Auth.JWTSecret,
				CORSOrigins: cfg.Server.CORSOrigins,
				Storage:     cfg.Storage.Driver,
				Remote:      predictor.Remote(),
			})

			srv := &http.Server{
				Addr:              cfg.Server.Addr,
				Handler:           router,
				ReadHeaderTimeout: 5 * time.Second,
			}

			g, ctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				log.Info("Starting server", "addr", cfg.Server.Addr, "storage", cfg.Storage.Driver, "remote", predictor.Remote())
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			})
			g.Go(func() error {
				<-ctx.Done()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
				defer cancel()
				log.Info("Shutting down server")
				return srv.Shutdown(shutdownCtx)
			})
			return g.Wait()
		},
	}
}
