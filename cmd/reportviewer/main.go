// Package main is the entry point for the ReportViewer command line client.
// ReportViewer opens reports on a remote reporting service, collects their
// parameters interactively and follows the server-side render.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/verustcode/reportviewer/consts"
	"github.com/verustcode/reportviewer/internal/config"
	"github.com/verustcode/reportviewer/internal/database"
	"github.com/verustcode/reportviewer/internal/recovery"
	"github.com/verustcode/reportviewer/internal/reportapi"
	"github.com/verustcode/reportviewer/internal/store"
	"github.com/verustcode/reportviewer/internal/tui"
	"github.com/verustcode/reportviewer/pkg/errors"
	"github.com/verustcode/reportviewer/pkg/logger"
	"github.com/verustcode/reportviewer/pkg/telemetry"
)

// Build information - set via ldflags during build
// These variables are linked to consts package for global access
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// init synchronizes build info to consts package for global access
func init() {
	consts.Version = Version
	consts.BuildTime = BuildTime
	consts.GitCommit = GitCommit
}

// configPath holds the path to the configuration file
var configPath string

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "reportviewer",
	Short: "ReportViewer - terminal client for a remote reporting service",
	Long: `ReportViewer opens reports and FlexReports on a reporting service,
asks for their parameters and follows the render until the document is ready.

Every open document is journaled locally so that server caches left behind
by a crash can be released with 'reportviewer recover'.`,
	SilenceUsage: true,
}

// versionCmd prints version information
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("%s %s\n", consts.ProjectName, consts.Version)
		fmt.Printf("  Build Time: %s\n", consts.BuildTime)
		fmt.Printf("  Git Commit: %s\n", consts.GitCommit)
	},
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file path (default: config/reportviewer.yaml)")

	rootCmd.AddCommand(viewCmd)
	rootCmd.AddCommand(catalogCmd)
	rootCmd.AddCommand(formatsCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(mockCmd)
	rootCmd.AddCommand(recoverCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	consts.SetStartedAt(time.Now())
	if err := rootCmd.Execute(); err != nil {
		tui.PrintError(os.Stderr, err)
		os.Exit(1)
	}
}

// app carries what every command needs after start-up
type app struct {
	cfg *config.Config
	tel *telemetry.Telemetry
}

// setup loads the configuration, initializes the logger and telemetry.
// requireService additionally validates the service settings.
func setup(requireService bool) (*app, error) {
	path := configPath
	if path == "" {
		path = config.DefaultConfigPath
	}
	cfg, err := config.LoadOrDefault(path)
	if err != nil {
		return nil, err
	}

	if requireService {
		if err := cfg.Validate(); err != nil {
			fmt.Fprintf(os.Stderr, "\n[ERROR] Configuration validation failed\n")
			fmt.Fprintf(os.Stderr, "Error: %v\n\n", err)
			fmt.Fprintf(os.Stderr, "Please configure the reporting service in %s:\n", path)
			fmt.Fprintf(os.Stderr, "  service:\n")
			fmt.Fprintf(os.Stderr, "    url: \"http://localhost:8090\"\n\n")
			os.Exit(errors.ExitCodeConfigValidation)
		}
	}

	if err := logger.Init(cfg.Logging); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	tel, err := telemetry.New(cfg.Telemetry)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	return &app{cfg: cfg, tel: tel}, nil
}

// shutdown flushes telemetry and the logger
func (a *app) shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := a.tel.Shutdown(ctx); err != nil {
		logger.Error("Failed to shutdown telemetry", zap.Error(err))
	}
	_ = logger.Sync()
}

// client creates the reporting service client from the configuration
func (a *app) client(ctx context.Context) (*reportapi.Client, error) {
	return reportapi.NewFromConfig(ctx, &a.cfg.Service)
}

// journal opens the session journal. A disabled journal yields nil.
func (a *app) journal() (store.Store, error) {
	if !a.cfg.Journal.Enabled {
		return nil, nil
	}
	if err := database.Init(a.cfg.Journal.Path); err != nil {
		return nil, err
	}
	return store.NewStore(database.Get()), nil
}

// recoverOrphans releases caches journaled as open by an earlier run
func recoverOrphans(ctx context.Context, st store.Store, api recovery.CacheClearer) (recovery.Result, error) {
	res, err := recovery.NewService(st.Session(), api).DisposeOrphans(ctx)
	if err != nil {
		return res, err
	}
	if res.Total > 0 {
		logger.Info("Released orphaned caches",
			zap.Int("total", res.Total),
			zap.Int("disposed", res.Disposed),
			zap.Int("failed", res.Failed),
			zap.Int("skipped", res.Skipped),
		)
	}
	return res, nil
}
