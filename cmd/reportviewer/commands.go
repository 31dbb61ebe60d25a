package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/verustcode/reportviewer/internal/check"
	"github.com/verustcode/reportviewer/internal/database"
	"github.com/verustcode/reportviewer/internal/document"
	"github.com/verustcode/reportviewer/internal/mockservice"
	"github.com/verustcode/reportviewer/internal/reportapi"
	"github.com/verustcode/reportviewer/internal/server"
	"github.com/verustcode/reportviewer/internal/tui"
	"github.com/verustcode/reportviewer/pkg/errors"
	"github.com/verustcode/reportviewer/pkg/logger"
)

// catalogCmd lists the report catalog
var catalogCmd = &cobra.Command{
	Use:   "catalog [path]",
	Short: "List folders, files and reports of the catalog",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := setup(true)
		if err != nil {
			return err
		}
		defer a.shutdown()

		catalogPath := ""
		if len(args) == 1 {
			catalogPath = args[0]
		}
		recursive, _ := cmd.Flags().GetBool("recursive")

		ctx := cmd.Context()
		client, err := a.client(ctx)
		if err != nil {
			return err
		}
		items, err := client.ListCatalog(ctx, catalogPath, recursive)
		if err != nil {
			return err
		}
		tui.PrintCatalog(os.Stdout, items)
		return nil
	},
}

// formatsCmd lists the export formats of a document
var formatsCmd = &cobra.Command{
	Use:   "formats <file-path>",
	Short: "List the export formats a report supports",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := setup(true)
		if err != nil {
			return err
		}
		defer a.shutdown()

		ctx := cmd.Context()
		client, err := a.client(ctx)
		if err != nil {
			return err
		}
		source := sourceFromFlags(cmd, args[0], a.cfg.Viewer.Paginated)
		formats, err := document.NewReportSession(client, source).SupportedFormats(ctx)
		if err != nil {
			return err
		}
		tui.PrintFormats(os.Stdout, formats)
		return nil
	},
}

// exportCmd renders a document without prompting and writes one export
var exportCmd = &cobra.Command{
	Use:   "export <file-path>",
	Short: "Render a report with the given parameters and export it",
	Args:  cobra.ExactArgs(1),
	RunE:  runExport,
}

// mockCmd runs the built-in mock reporting service
var mockCmd = &cobra.Command{
	Use:   "mock",
	Short: "Run the mock reporting service",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := setup(false)
		if err != nil {
			return err
		}
		defer a.shutdown()

		if host, _ := cmd.Flags().GetString("host"); host != "" {
			a.cfg.Mock.Host = host
		}
		if port, _ := cmd.Flags().GetInt("port"); port != 0 {
			a.cfg.Mock.Port = port
		}
		if delay, _ := cmd.Flags().GetDuration("render-delay"); delay > 0 {
			a.cfg.Mock.RenderDelay = delay
		}

		srv := server.New(a.cfg, mockservice.New(a.cfg.Mock))
		if err := srv.Start(); err != nil {
			return fmt.Errorf("failed to start mock service: %w", err)
		}
		logger.Info("Mock reporting service is running", zap.String("url", srv.URL()))

		srv.WaitForShutdown()
		return nil
	},
}

// recoverCmd releases caches journaled as open by earlier runs
var recoverCmd = &cobra.Command{
	Use:   "recover",
	Short: "Release server caches left open by interrupted sessions",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := setup(true)
		if err != nil {
			return err
		}
		defer a.shutdown()

		if !a.cfg.Journal.Enabled {
			return errors.ErrInvalidConfiguration("the session journal is disabled")
		}
		st, err := a.journal()
		if err != nil {
			return err
		}
		defer database.Close()

		ctx := cmd.Context()
		client, err := a.client(ctx)
		if err != nil {
			return err
		}
		res, err := recoverOrphans(ctx, st, client)
		if err != nil {
			return err
		}
		tui.PrintSuccess(os.Stdout, fmt.Sprintf("%d open session(s): %d disposed, %d failed, %d skipped",
			res.Total, res.Disposed, res.Failed, res.Skipped))
		return nil
	},
}

// checkCmd verifies the configuration, the journal and the service
var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check the local environment and the reporting service",
	RunE: func(cmd *cobra.Command, args []string) error {
		checker := check.NewChecker(configPath, os.Stdout)
		interactive, _ := cmd.Flags().GetBool("interactive")
		if !interactive {
			report := checker.RunNonInteractive(cmd.Context())
			report.Print(os.Stdout)
			if !report.Success() {
				os.Exit(errors.ExitCodeConfigValidation)
			}
			return nil
		}

		report, err := checker.Run(cmd.Context())
		if err != nil {
			return err
		}
		if !report.Success() {
			os.Exit(errors.ExitCodeConfigValidation)
		}
		return nil
	},
}

func init() {
	checkCmd.Flags().BoolP("interactive", "i", true, "offer to create a missing configuration file")

	catalogCmd.Flags().BoolP("recursive", "R", true, "include nested folders")

	addSourceFlags(formatsCmd)

	addSourceFlags(exportCmd)
	exportCmd.Flags().StringArrayP("param", "p", nil, "parameter value as name=value (repeat for multi-value)")
	exportCmd.Flags().StringP("format", "f", "pdf", "export format")
	exportCmd.Flags().StringP("output", "o", "", "output file (default: file name suggested by the service)")
	exportCmd.Flags().StringToString("option", nil, "format option as key=value")
	exportCmd.Flags().Duration("timeout", 5*time.Minute, "maximum time to wait for the render")

	mockCmd.Flags().String("host", "", "listen host (overrides config)")
	mockCmd.Flags().Int("port", 0, "listen port (overrides config)")
	mockCmd.Flags().Duration("render-delay", 0, "simulated render time (overrides config)")
}

func runExport(cmd *cobra.Command, args []string) error {
	a, err := setup(true)
	if err != nil {
		return err
	}
	defer a.shutdown()

	pairs, _ := cmd.Flags().GetStringArray("param")
	values, err := parseParamFlags(pairs)
	if err != nil {
		return err
	}
	format, _ := cmd.Flags().GetString("format")
	output, _ := cmd.Flags().GetString("output")
	options, _ := cmd.Flags().GetStringToString("option")
	timeout, _ := cmd.Flags().GetDuration("timeout")

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	client, err := a.client(ctx)
	if err != nil {
		return err
	}
	session := document.NewReportSession(client, sourceFromFlags(cmd, args[0], a.cfg.Viewer.Paginated))
	defer func() {
		disposeCtx, cancel := context.WithTimeout(context.Background(), closeTimeout)
		defer cancel()
		if err := session.Dispose(disposeCtx); err != nil {
			logger.Warn("Failed to dispose session", zap.Error(err))
		}
	}()

	var req *reportapi.LoadRequest
	if len(values) > 0 {
		req = &reportapi.LoadRequest{Parameters: values}
	}
	if err := session.Load(ctx, req); err != nil {
		return err
	}
	if session.HasParameters() {
		params, err := session.Parameters(ctx)
		if err != nil {
			return err
		}
		if errs := reportapi.ParameterErrors(params); len(errs) > 0 {
			return errors.ErrValidation("parameter values are invalid").WithDetails(errs)
		}
		for i := range params {
			if params[i].Required() {
				return errors.ErrValidation("parameter " + params[i].Name + " needs a value")
			}
		}
	}

	if err := session.Render(ctx); err != nil {
		return err
	}
	if err := waitRendered(ctx, session, a.cfg.Viewer.PollInterval); err != nil {
		return err
	}

	result, err := session.Export(ctx, reportapi.ExportOptions{Format: format, Options: options})
	if err != nil {
		return err
	}
	if output == "" {
		output = result.FileName
	}
	if output == "" {
		output = filepath.Base(args[0]) + "." + format
	}
	if err := os.WriteFile(output, result.Data, 0644); err != nil {
		return fmt.Errorf("failed to write export: %w", err)
	}
	tui.PrintSuccess(os.Stdout, fmt.Sprintf("Exported %d bytes to %s", len(result.Data), output))
	return nil
}

// waitRendered polls the document status until rendering finishes
func waitRendered(ctx context.Context, session *document.ReportSession, interval time.Duration) error {
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		switch status := session.Status(); status {
		case reportapi.StatusCompleted:
			return nil
		case reportapi.StatusRendering:
		default:
			return errors.ErrInvalidState("render ended with status " + string(status))
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := session.DocumentStatus(ctx); err != nil {
				return err
			}
		}
	}
}
