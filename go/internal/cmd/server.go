package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/mcdev12/retroboard/go/internal/config"
	"github.com/mcdev12/retroboard/go/internal/gateway"
	"github.com/mcdev12/retroboard/go/internal/storage"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the board API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		migrate, _ := cmd.Flags().GetBool("migrate")

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		boardCfg, err := config.LoadBoard(cfg.BoardConfig)
		if err != nil {
			return err
		}

		database, err := setupDatabase(ctx, cfg.DB)
		if err != nil {
			return err
		}
		defer database.Close()

		if migrate {
			if err := storage.Migrate(ctx, database, cfg.DB.Driver); err != nil {
				return err
			}
		}

		services, err := setupServices(ctx, cfg, boardCfg, database)
		if err != nil {
			return err
		}
		defer services.Close()
		services.Run(ctx)

		server := gateway.NewServer(
			fmt.Sprintf(":%s", cfg.Port),
			gateway.NewRouter(services.Handlers(boardCfg)),
			cfg.AllowedOrigins,
		)
		return runServer(ctx, server)
	},
}

func init() {
	serveCmd.Flags().Bool("migrate", false, "Apply the database schema before serving")
}

func runServer(ctx context.Context, server *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", server.Addr).Msg("server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	return nil
}
