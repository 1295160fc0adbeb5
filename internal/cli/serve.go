package cli

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/forPelevin/narrate/internal/api"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the segment, synthesis and merge operations over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			uc := a.serverUsecase()
			gin.SetMode(gin.ReleaseMode)
			srv := api.NewServer(uc, api.Settings{
				ClipsDir: a.cfg.OutDir,
				RefVoice: a.cfg.RefVoice,
				EmoAlpha: a.cfg.EmoAlpha,
				GapMs:    a.cfg.GapMs,
			}, a.log)

			httpSrv := &http.Server{
				Addr:              a.cfg.Server.Addr,
				Handler:           srv.Router(),
				ReadHeaderTimeout: 10 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				a.log.Info().Str("addr", httpSrv.Addr).Msg("listening")
				errCh <- httpSrv.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return err
			case <-cmd.Context().Done():
			}

			a.log.Info().Msg("shutting down")
			ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return httpSrv.Shutdown(ctx)
		},
	}
	cmd.Flags().String("addr", ":8080", "Listen address")
	return cmd
}
