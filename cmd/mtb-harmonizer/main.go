package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/mode1990/mtb-harmonizer/internal/config"
	"github.com/mode1990/mtb-harmonizer/internal/domain/run"
	"github.com/mode1990/mtb-harmonizer/internal/genomic"
	"github.com/mode1990/mtb-harmonizer/internal/manifest"
	"github.com/mode1990/mtb-harmonizer/internal/mtb"
	"github.com/mode1990/mtb-harmonizer/internal/pipeline"
	"github.com/mode1990/mtb-harmonizer/internal/platform/auth"
	"github.com/mode1990/mtb-harmonizer/internal/platform/db"
	"github.com/mode1990/mtb-harmonizer/internal/platform/middleware"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "mtb-harmonizer",
		Short: "Repair and harmonize clinical genomic JSON exports",
	}

	rootCmd.AddCommand(repairCmd())
	rootCmd.AddCommand(convertCmd())
	rootCmd.AddCommand(validateCmd())
	rootCmd.AddCommand(runCmd())
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger() zerolog.Logger {
	if os.Getenv("ENV") == "development" || os.Getenv("ENV") == "" {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stderr).With().Timestamp().Logger()
}

// ---------------------------------------------------------------------------
// File commands
// ---------------------------------------------------------------------------

func repairCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "repair <manifest>",
		Short: "Repair the documents listed in a manifest",
		Long: `Repair iterates the manifest in order and applies the configured
comma-repair strategy to each json/<id>_ngs.json document. Files the
repair cannot bring to valid JSON are reported and left untouched; a
failed file never aborts the batch.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runManifest(cmd, args[0], true)
		},
	}
	addPipelineFlags(cmd)
	return cmd
}

func runCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <manifest>",
		Short: "Run the full pipeline: repair, convert, validate, extract",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runManifest(cmd, args[0], false)
		},
	}
	addPipelineFlags(cmd)
	cmd.Flags().Bool("record", false, "Persist the run to the registry database")
	return cmd
}

func addPipelineFlags(cmd *cobra.Command) {
	cmd.Flags().String("json-dir", "", "Directory holding the raw exports (default from JSON_DIR)")
	cmd.Flags().String("suffix", "", "Export file name suffix (default from FILE_SUFFIX)")
	cmd.Flags().String("out", "", "Output directory (default from OUTPUT_DIR)")
}

func runManifest(cmd *cobra.Command, manifestPath string, repairOnly bool) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	jsonDir, _ := cmd.Flags().GetString("json-dir")
	if jsonDir == "" {
		jsonDir = cfg.JSONDir
	}
	suffix, _ := cmd.Flags().GetString("suffix")
	if suffix == "" {
		suffix = cfg.FileSuffix
	}
	outDir, _ := cmd.Flags().GetString("out")
	if outDir == "" {
		outDir = cfg.OutputDir
	}

	m, err := manifest.Load(manifestPath)
	if err != nil {
		return err
	}

	runner := pipeline.NewRunner(pipeline.Config{
		JSONDir:    jsonDir,
		FileSuffix: suffix,
		OutputDir:  outDir,
		RepairOnly: repairOnly,
	}, newLogger())

	sum, err := runner.Run(cmd.Context(), m)
	if err != nil {
		return err
	}
	printSummary(sum)

	if record, _ := cmd.Flags().GetBool("record"); record {
		if err := recordRun(cmd.Context(), cfg, manifestPath, repairOnly, sum); err != nil {
			return err
		}
	}

	// A completed pass exits zero even when files failed; the summary
	// carries the outcome.
	return nil
}

func printSummary(sum *pipeline.Summary) {
	for _, f := range sum.Files {
		mark := "✓"
		if !f.Status.Succeeded() && f.Status != pipeline.StatusSkipped {
			mark = "✗"
		}
		line := fmt.Sprintf("%s %-16s %s", mark, f.ID, f.Status)
		if f.Validation != "" {
			line += fmt.Sprintf(" [%s]", f.Validation)
		}
		if f.Detail != "" {
			line += " — " + f.Detail
		}
		fmt.Println(line)
	}
	fmt.Printf("\n%d files: %d fixed, %d already valid, %d still invalid, %d missing, %d skipped, %d errors\n",
		len(sum.Files), sum.Fixed, sum.AlreadyValid, sum.StillInvalid,
		sum.Missing, sum.Skipped, sum.Errors)
	if sum.Passed+sum.Incomplete > 0 {
		fmt.Printf("validation: %d passed, %d incomplete\n", sum.Passed, sum.Incomplete)
	}
}

func recordRun(ctx context.Context, cfg *config.Config, manifestPath string, repairOnly bool, sum *pipeline.Summary) error {
	if cfg.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required to record runs")
	}
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		return err
	}
	defer pool.Close()

	svc := run.NewService(run.NewRepoPG(pool))
	r, err := svc.RecordSummary(ctx, manifestPath, repairOnly, sum)
	if err != nil {
		return err
	}
	fmt.Printf("recorded run %s\n", r.ID)
	return nil
}

func convertCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "convert <input.json> <output.json>",
		Short: "Convert a hospital export to the normalized report format",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := mtb.ConvertFile(args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Printf("✓ %s (%s format) -> %s\n", args[0], format, args[1])
			return nil
		},
	}
}

func validateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <normalized.json>",
		Short: "Check a normalized report for required-field completeness",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outDir, _ := cmd.Flags().GetString("out")

			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			var report map[string]interface{}
			if err := json.Unmarshal(data, &report); err != nil {
				return fmt.Errorf("parse %s: %w", args[0], err)
			}

			res := genomic.Validate(report)
			fmt.Printf("%s: %s\n", res.PatientID, res.Status())
			for _, s := range res.Sections {
				if !s.Complete() {
					fmt.Printf("  %s missing: %v\n", s.Name, s.Missing)
				}
			}

			if outDir != "" {
				if _, err := genomic.WriteReport(res, args[0], outDir, time.Now()); err != nil {
					return err
				}
				tables := genomic.NewTables()
				tables.AddReport(report)
				written, err := tables.WritePerPatient(outDir, res.PatientID)
				if err != nil {
					return err
				}
				fmt.Printf("wrote %d tables to %s\n", len(written), outDir)
			}
			return nil
		},
	}
	cmd.Flags().String("out", "", "Write the validation report and TSV tables to this directory")
	return cmd
}

// ---------------------------------------------------------------------------
// Server commands
// ---------------------------------------------------------------------------

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the harmonizer API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func runServer() error {
	// Logger
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if os.Getenv("ENV") == "development" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}

	// Config
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.ValidateServer(); err != nil {
		logger.Fatal().Err(err).Msg("invalid server configuration")
	}

	// Database
	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	// Echo server
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))

	// Health checks
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": "0.1.0",
		})
	})
	e.GET("/health/db", db.HealthHandler(pool))

	// API
	apiV1 := e.Group("/api/v1")
	if cfg.IsDev() {
		logger.Warn().Msg("development mode: API authentication disabled")
		apiV1.Use(auth.DevAuthMiddleware())
	} else {
		apiV1.Use(auth.JWTMiddleware(auth.JWTConfig{
			Issuer:     cfg.AuthIssuer,
			SigningKey: []byte(cfg.AuthSecret),
		}))
	}

	runSvc := run.NewService(run.NewRepoPG(pool))
	run.NewHandler(runSvc).RegisterRoutes(apiV1)

	// Graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("server shutdown failed")
	}
	logger.Info().Msg("server stopped")
	return nil
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if err := cfg.ValidateServer(); err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator := db.NewMigrator(pool, dir)
			count, err := migrator.Up(ctx)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}

			fmt.Printf("Applied %d migration(s) successfully.\n", count)
			return nil
		},
	}
	upCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(upCmd)

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if err := cfg.ValidateServer(); err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator := db.NewMigrator(pool, dir)
			statuses, err := migrator.Status(ctx)
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}

			fmt.Printf("%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
			fmt.Println("---------- ---------------------------------------- ---------- --------------------")
			for _, s := range statuses {
				status := "pending"
				appliedAt := ""
				if s.Applied {
					status = "applied"
					if s.AppliedAt != nil {
						appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
					}
				}
				fmt.Printf("%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
			}
			return nil
		},
	}
	statusCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(statusCmd)

	return cmd
}
