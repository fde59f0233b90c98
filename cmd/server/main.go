package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Shreya-nipunge/Glowra/internal/config"
	"github.com/Shreya-nipunge/Glowra/internal/db"
	"github.com/Shreya-nipunge/Glowra/internal/handlers"
	mw "github.com/Shreya-nipunge/Glowra/internal/middleware"
	"github.com/Shreya-nipunge/Glowra/internal/models"
)

func main() {
	_ = godotenv.Load()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	root := &cobra.Command{
		Use:           "glowra",
		Short:         "Glowra wellness progression and planning backend",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(serveCmd(), migrateCmd(), tokenCmd())

	if err := root.ExecuteContext(context.Background()); err != nil {
		slog.Error("command failed", slog.Any("err", err))
		os.Exit(1)
	}
}

func newZap(cfg *config.Config) (*zap.Logger, error) {
	if cfg.Development() {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			zl, err := newZap(cfg)
			if err != nil {
				return fmt.Errorf("creating logger: %w", err)
			}
			defer func() { _ = zl.Sync() }()

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := build(ctx, cfg, zl)
			if err != nil {
				return err
			}
			defer a.close(cfg.ShutdownTimeout)

			var verifier models.Verifier = mw.NewJWTVerifier([]byte(cfg.JWTSecret))
			if cfg.DevMode {
				slog.Warn("DEV_MODE enabled; X-Dev-User-Id bypasses token checks")
			}

			router := handlers.NewRouter(handlers.Deps{
				Activity:       a.activity,
				Planner:        a.planner,
				Chat:           a.chat,
				Meditation:     a.meditation,
				Insights:       a.insights,
				Progression:    a.progression,
				Auth:           mw.NewAuthMiddleware(verifier, cfg.DevMode, zl),
				Logger:         zl,
				Environment:    cfg.Env,
				AllowedOrigins: []string{cfg.FrontendOrigin},
			})

			srv := &http.Server{
				Addr:              ":" + cfg.Port,
				Handler:           router,
				ReadHeaderTimeout: 10 * time.Second,
			}
			errc := make(chan error, 1)
			go func() {
				slog.Info("server starting",
					slog.String("addr", srv.Addr),
					slog.String("storage", string(cfg.Storage)),
					slog.String("ai", string(cfg.AI)),
					slog.String("analytics", string(cfg.Analytics)),
				)
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errc <- err
				}
				close(errc)
			}()

			select {
			case err := <-errc:
				if err != nil {
					return fmt.Errorf("server error: %w", err)
				}
			case <-ctx.Done():
			}

			slog.Info("shutdown initiated")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				slog.Error("shutdown failed", slog.Any("err", err))
			}
			slog.Info("server stopped")
			return nil
		},
	}
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the Postgres schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cfg.Storage != config.StoragePostgres {
				return fmt.Errorf("migrate needs GLOWRA_STORAGE=postgres, got %s", cfg.Storage)
			}
			conn, err := openPostgres(cmd.Context(), cfg.DatabaseURL)
			if err != nil {
				return err
			}
			defer conn.Close()
			if err := db.RunMigrations(cmd.Context(), conn); err != nil {
				return fmt.Errorf("running migrations: %w", err)
			}
			slog.Info("migrations applied")
			return nil
		},
	}
}

func tokenCmd() *cobra.Command {
	var (
		user  string
		email string
		name  string
		ttl   time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Sign an access token for local testing",
		RunE: func(cmd *cobra.Command, args []string) error {
			secret := os.Getenv("JWT_SECRET")
			if secret == "" {
				return fmt.Errorf("JWT_SECRET is required")
			}
			tok, err := mw.IssueToken([]byte(secret), models.Identity{
				UserID: models.UserID(user),
				Email:  email,
				Name:   name,
			}, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}
	cmd.Flags().StringVar(&user, "user", "", "user id (token subject)")
	cmd.Flags().StringVar(&email, "email", "", "email claim")
	cmd.Flags().StringVar(&name, "name", "", "name claim")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}
