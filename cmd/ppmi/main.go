package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/livingpark/ppmi/internal/config"
	"github.com/livingpark/ppmi/internal/domain/imaging"
	"github.com/livingpark/ppmi/internal/domain/study"
	"github.com/livingpark/ppmi/internal/platform/db"
	"github.com/livingpark/ppmi/internal/platform/download"
	"github.com/livingpark/ppmi/internal/platform/logging"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "ppmi",
		Short:         "Research utilities for the PPMI cohort",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	rootCmd.PersistentFlags().String("study-dir", "", "Directory holding the PPMI study files (overrides STUDY_DIR)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level (overrides LOG_LEVEL)")

	rootCmd.AddCommand(cohortIDCmd())
	rootCmd.AddCommand(cleanProtocolCmd())
	rootCmd.AddCommand(diseaseDurationCmd())
	rootCmd.AddCommand(findNiftiCmd())
	rootCmd.AddCommand(serveCmd())
	return rootCmd
}

// app carries what every command needs once configuration is resolved.
type app struct {
	cfg     *config.Config
	logger  zerolog.Logger
	pool    *pgxpool.Pool
	closers []func()
}

func newApp(cmd *cobra.Command) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if v, _ := cmd.Flags().GetString("study-dir"); v != "" {
		cfg.StudyDir = v
	}
	if v, _ := cmd.Flags().GetString("log-level"); v != "" {
		cfg.LogLevel = v
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	logger, err := logging.New(cmd.ErrOrStderr(), cfg.LogLevel, cfg.IsDev())
	if err != nil {
		return nil, err
	}
	return &app{cfg: cfg, logger: logger}, nil
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

// studyService reads the study tables from Postgres when DATABASE_URL is
// set, otherwise from CSV files kept current by the downloader.
func (a *app) studyService(ctx context.Context) (*study.Service, error) {
	if a.cfg.HasDatabase() {
		pool, err := db.NewPool(ctx, a.cfg.DatabaseURL, db.PoolOptions{
			MaxConns: a.cfg.DBMaxConns,
			MinConns: a.cfg.DBMinConns,
			Schema:   a.cfg.DBSchema,
		})
		if err != nil {
			return nil, err
		}
		a.pool = pool
		a.closers = append(a.closers, pool.Close)
		a.logger.Info().Str("schema", a.cfg.DBSchema).Msg("reading study tables from database")
		return study.NewService(study.NewRepoPG(pool, a.cfg.DBSchema), nil, a.cfg.DBSchema, a.logger), nil
	}

	dl, err := a.downloader(ctx)
	if err != nil {
		return nil, err
	}
	return study.NewService(study.NewCSVRepo(a.cfg.StudyDir), dl, a.cfg.StudyDir, a.logger), nil
}

func (a *app) downloader(ctx context.Context) (study.Downloader, error) {
	if !a.cfg.HasObjectStore() {
		return download.NewLocal(a.cfg.StudyDir, a.logger), nil
	}
	return download.NewObjectStore(ctx, download.ObjectStoreConfig{
		Endpoint:  a.cfg.S3Endpoint,
		Region:    a.cfg.S3Region,
		Bucket:    a.cfg.S3Bucket,
		Prefix:    a.cfg.S3Prefix,
		AccessKey: a.cfg.S3AccessKey,
		SecretKey: a.cfg.S3SecretKey,
		UseSSL:    a.cfg.S3UseSSL,
	}, a.cfg.StudyDir, a.logger)
}

func (a *app) resolver() *imaging.Resolver {
	return imaging.NewResolver(a.cfg.CacheDir, a.cfg.BaseDir, nil, a.logger)
}

func writeLine(w io.Writer, s string) error {
	_, err := fmt.Fprintln(w, s)
	return err
}
